package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/mrlokans/scalesync/internal/apperr"
)

type SyncController struct {
	manager *RunManager
	log     zerolog.Logger
}

func NewSyncController(manager *RunManager, log zerolog.Logger) *SyncController {
	return &SyncController{manager: manager, log: log}
}

// Start handles POST /api/sync?dry_run=.
func (s *SyncController) Start(c *gin.Context) {
	dryRun, ok := parseBoolQuery(c, "dry_run")
	if !ok {
		return
	}

	err := s.manager.Start(dryRun)
	var cfgErr *apperr.ConfigurationError
	var nfErr *apperr.NotFoundError
	switch {
	case err == nil:
		respondAccepted(c, "Sync started", gin.H{"dry_run": dryRun != nil && *dryRun})
	case errors.Is(err, ErrRunActive):
		respondError(c, http.StatusConflict, "run_active", err.Error())
	case errors.As(err, &cfgErr), errors.As(err, &nfErr):
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error: err.Error(),
			Code:  "configuration",
			Hint:  apperr.Hint(err),
		})
	default:
		respondInternalError(c, s.log, err, "start sync")
	}
}

// Cancel handles POST /api/sync/cancel.
func (s *SyncController) Cancel(c *gin.Context) {
	if !s.manager.Cancel() {
		respondError(c, http.StatusConflict, "no_active_run", "no sync run in progress")
		return
	}
	respondAccepted(c, "Cancellation requested", nil)
}

// Status handles GET /api/sync/status.
func (s *SyncController) Status(c *gin.Context) {
	c.JSON(http.StatusOK, s.manager.Status())
}
