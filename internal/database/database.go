package database

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/mrlokans/scalesync/internal/entities"
	"github.com/mrlokans/scalesync/internal/logging"
)

type Database struct {
	DB   *gorm.DB
	Path string
}

// NewDatabase opens (creating if needed) the local run journal at dbPath and
// migrates its tables.
func NewDatabase(dbPath string, log zerolog.Logger) (*Database, error) {
	if dir := filepath.Dir(dbPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create journal directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(journalDSN(dbPath)), &gorm.Config{
		Logger: logging.Gorm(log),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open journal database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access journal connection: %w", err)
	}
	// SQLite allows a single writer.
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&entities.SyncRun{}); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to migrate journal database: %w", err)
	}

	log.Debug().Str("path", dbPath).Msg("Journal database initialized")

	return &Database{DB: db, Path: dbPath}, nil
}

func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func journalDSN(path string) string {
	return "file:" + filepath.ToSlash(path) + "?_busy_timeout=5000&_journal_mode=WAL"
}
