package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/scalesync/internal/database"
)

const healthCheckTimeout = 5 * time.Second

// Pinger checks that a dependency is reachable.
type Pinger func(ctx context.Context) error

type HealthResponse struct {
	Status  string            `json:"status"`
	Time    string            `json:"time"`
	Version string            `json:"version,omitempty"`
	Checks  map[string]string `json:"checks"`
}

type HealthController struct {
	db      *database.Database
	miall   Pinger
	version string
}

// NewHealthController creates the controller. db and miall may be nil, in
// which case their check reports "not configured".
func NewHealthController(db *database.Database, miall Pinger, version string) *HealthController {
	return &HealthController{
		db:      db,
		miall:   miall,
		version: version,
	}
}

func (h *HealthController) Status(c *gin.Context) {
	checks := make(map[string]string)
	status := "healthy"

	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	// Check journal connectivity
	if h.db != nil {
		sqlDB, err := h.db.DB.DB()
		if err != nil {
			checks["journal"] = "error: " + err.Error()
			status = "unhealthy"
		} else if err := sqlDB.PingContext(ctx); err != nil {
			checks["journal"] = "error: " + err.Error()
			status = "unhealthy"
		} else {
			checks["journal"] = "ok"
		}
	} else {
		checks["journal"] = "not configured"
	}

	if h.miall != nil {
		if err := h.miall(ctx); err != nil {
			checks["miall"] = "error: " + err.Error()
			status = "unhealthy"
		} else {
			checks["miall"] = "ok"
		}
	} else {
		checks["miall"] = "not configured"
	}

	health := HealthResponse{
		Status:  status,
		Time:    time.Now().Format(time.RFC3339),
		Version: h.version,
		Checks:  checks,
	}

	statusCode := http.StatusOK
	if status != "healthy" {
		statusCode = http.StatusServiceUnavailable
	}

	c.IndentedJSON(statusCode, health)
}
