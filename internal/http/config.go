package http

import (
	"github.com/rs/zerolog"

	"github.com/mrlokans/scalesync/internal/database"
)

// RouterConfig contains all dependencies and configuration needed
// to create the HTTP router.
type RouterConfig struct {
	// Run control
	Manager *RunManager

	// Run journal (optional)
	Runs     RunStore
	Database *database.Database

	// MiAll reachability for /health (optional)
	MiAllPing Pinger

	// Application info
	Version string

	Log zerolog.Logger
}
