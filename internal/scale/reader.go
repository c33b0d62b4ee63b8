// Package scale reads the product catalog stored locally by the scale
// software. Two storage formats are supported: the SQLite database used by
// current versions and the Access (.mdb/.accdb) file used by older ones.
//
// Both readers run the same query and share the row handling, so a product
// read from either source goes through identical barcode normalization and
// price conversion.
package scale

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"

	"github.com/mrlokans/scalesync/internal/apperr"
	"github.com/mrlokans/scalesync/internal/barcode"
	"github.com/mrlokans/scalesync/internal/config"
	"github.com/mrlokans/scalesync/internal/entities"
)

const (
	Table = "t_base_merchandise"

	selectGoods = `select mname1 as name, mprice as price, mcode as barcode from t_base_merchandise`
)

// Columns are the source columns the scale software stores products in.
var Columns = []string{"mname1", "mprice", "mcode"}

// Reader returns every product in the scale's local store.
type Reader interface {
	ReadAll(ctx context.Context) ([]entities.Good, error)
}

// NewReader picks the reader implementation for cfg.Kind.
func NewReader(cfg config.Scale) (Reader, error) {
	dec, err := newTextDecoder(cfg.Encoding)
	if err != nil {
		return nil, err
	}

	switch cfg.Kind {
	case config.ScaleKindSQLite, "":
		return &SQLiteReader{path: cfg.DBPath, busyTimeout: cfg.BusyTimeout, decoder: dec}, nil
	case config.ScaleKindAccess:
		return &AccessReader{path: cfg.DBPath, decoder: dec}, nil
	default:
		return nil, &apperr.ConfigurationError{
			Setting: "scale.kind",
			Msg:     fmt.Sprintf("unsupported scale database kind %q", cfg.Kind),
			Hint:    "use sqlite or access",
		}
	}
}

// CheckSource verifies that the configured database file exists without
// opening it.
func CheckSource(cfg config.Scale) error {
	what := "SQLite"
	if cfg.Kind == config.ScaleKindAccess {
		what = "Access"
	}
	return checkPath(cfg.DBPath, what)
}

// checkPath validates the configured database path before any driver is involved.
func checkPath(path, what string) error {
	if path == "" {
		return &apperr.ConfigurationError{
			Setting: "scale.db_path",
			Msg:     fmt.Sprintf("%s database path is not configured", what),
			Hint:    "point scale.db_path at the scale software database file",
		}
	}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &apperr.NotFoundError{What: what + " database file", Path: path}
		}
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.IsDir() {
		return &apperr.NotFoundError{What: what + " database file", Path: path}
	}
	return nil
}

// readGoods runs the product query on db and converts every row. Driver
// failures are returned as plain errors for the caller to wrap; validation
// errors and cancellation come back as they are.
func readGoods(ctx context.Context, db *sql.DB, dec *textDecoder) ([]entities.Good, error) {
	rows, err := db.QueryContext(ctx, selectGoods)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var goods []entities.Good
	for rows.Next() {
		if err := ctx.Err(); err != nil {
			return nil, apperr.Cancelled(err)
		}

		var rawName, rawPrice, rawBarcode any
		if err := rows.Scan(&rawName, &rawPrice, &rawBarcode); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		good, err := convertRow(rawName, rawPrice, rawBarcode, dec)
		if err != nil {
			return nil, err
		}
		goods = append(goods, good)
	}

	if err := rows.Err(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, apperr.Cancelled(ctxErr)
		}
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return goods, nil
}

func convertRow(rawName, rawPrice, rawBarcode any, dec *textDecoder) (entities.Good, error) {
	name, err := dec.text(rawName)
	if err != nil {
		return entities.Good{}, &apperr.ValidationError{Msg: fmt.Sprintf("cannot decode product name: %v", err)}
	}
	code, err := dec.text(rawBarcode)
	if err != nil {
		return entities.Good{}, &apperr.ValidationError{Label: name, Msg: fmt.Sprintf("cannot decode barcode: %v", err)}
	}

	normalized, err := barcode.Normalize(code, name)
	if err != nil {
		return entities.Good{}, err
	}

	price, err := toPrice(rawPrice, name)
	if err != nil {
		return entities.Good{}, err
	}

	return entities.Good{Name: name, Barcode: normalized, Price: price}, nil
}

// wrapReadError turns driver errors into a SourceReadError and passes
// validation errors and cancellation through.
func wrapReadError(err error, source, hint string) error {
	if err == nil {
		return nil
	}
	var valErr *apperr.ValidationError
	if errors.As(err, &valErr) || apperr.IsCancelled(err) {
		return err
	}
	return &apperr.SourceReadError{
		Source:  source,
		Table:   Table,
		Columns: Columns,
		Hint:    hint,
		Err:     err,
	}
}
