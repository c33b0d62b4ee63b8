// Package database holds the local run journal, a small SQLite file that
// records every sync run so the CLI history command and the HTTP API can
// show what happened while nobody was watching.
//
//	database/
//	├── database.go      # Connection setup and migrations
//	└── runs/            # Sync run records
//
// The journal never stores product data. MiAll and the scale database are
// reached through the miall and scale packages instead.
//
//	db, err := database.NewDatabase(cfg.Journal.Path, log)
//	runsRepo := runs.NewRepository(db.DB)
//	engine.SetRecorder(runsRepo)
package database
