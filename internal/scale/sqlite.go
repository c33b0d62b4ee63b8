package scale

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/mrlokans/scalesync/internal/apperr"
	"github.com/mrlokans/scalesync/internal/entities"
)

const sqliteHint = "if the scale software was upgraded, the schema may differ; contact support"

// SQLiteReader reads products from the scale software's SQLite database.
// The file is opened read-only.
type SQLiteReader struct {
	path        string
	busyTimeout time.Duration
	decoder     *textDecoder
}

// NewSQLiteReader creates a reader for the SQLite database at path.
func NewSQLiteReader(path string, busyTimeout time.Duration) *SQLiteReader {
	return &SQLiteReader{path: path, busyTimeout: busyTimeout}
}

func (r *SQLiteReader) ReadAll(ctx context.Context) ([]entities.Good, error) {
	if err := checkPath(r.path, "SQLite"); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, apperr.Cancelled(err)
	}

	db, err := sql.Open("sqlite3", sqliteDSN(r.path, r.busyTimeout))
	if err != nil {
		return nil, wrapReadError(fmt.Errorf("failed to open database: %w", err), "SQLite", sqliteHint)
	}
	defer db.Close()

	goods, err := readGoods(ctx, db, r.decoder)
	if err != nil {
		return nil, wrapReadError(err, "SQLite", sqliteHint)
	}
	return goods, nil
}

// sqliteDSN builds a read-only URI filename. Characters SQLite treats as URI
// delimiters are percent-encoded.
func sqliteDSN(path string, busyTimeout time.Duration) string {
	p := strings.NewReplacer("%", "%25", "?", "%3f", "#", "%23").Replace(filepath.ToSlash(path))
	return fmt.Sprintf("file:%s?mode=ro&_busy_timeout=%d", p, busyTimeout.Milliseconds())
}
