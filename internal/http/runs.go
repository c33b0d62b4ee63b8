package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/mrlokans/scalesync/internal/database/runs"
	"github.com/mrlokans/scalesync/internal/entities"
)

const (
	defaultRunsLimit = 20
	maxRunsLimit     = 500
)

// RunStore provides read access to the run journal.
type RunStore interface {
	ListRuns(limit int) ([]entities.SyncRun, error)
	GetRun(id string) (*entities.SyncRun, error)
}

type RunsController struct {
	store RunStore
	log   zerolog.Logger
}

func NewRunsController(store RunStore, log zerolog.Logger) *RunsController {
	return &RunsController{store: store, log: log}
}

// List handles GET /api/runs?limit=.
func (r *RunsController) List(c *gin.Context) {
	limit, ok := parseLimitQuery(c, "limit", defaultRunsLimit, maxRunsLimit)
	if !ok {
		return
	}

	list, err := r.store.ListRuns(limit)
	if err != nil {
		respondInternalError(c, r.log, err, "list runs")
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": list, "count": len(list)})
}

// Get handles GET /api/runs/:id.
func (r *RunsController) Get(c *gin.Context) {
	run, err := r.store.GetRun(c.Param("id"))
	if errors.Is(err, runs.ErrRunNotFound) {
		respondError(c, http.StatusNotFound, "not_found", "sync run not found")
		return
	}
	if err != nil {
		respondInternalError(c, r.log, err, "get run")
		return
	}
	c.JSON(http.StatusOK, run)
}
