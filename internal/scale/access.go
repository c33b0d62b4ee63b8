package scale

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mrlokans/scalesync/internal/apperr"
	"github.com/mrlokans/scalesync/internal/entities"
)

const (
	driverAccessCombined = "Microsoft Access Driver (*.mdb, *.accdb)"
	driverAccessLegacy   = "Microsoft Access Driver (*.mdb)"

	accessHint = "expected the scale software file mscale.mdb or mscale.accdb; if no ODBC driver is found, " +
		"install the Microsoft Access Database Engine with the same bitness as scalesync"
)

var errODBCUnavailable = errors.New("odbc driver not compiled in")

// AccessReader reads products from the legacy Access database through ODBC.
// ODBC support is compiled in only with the odbc build tag.
type AccessReader struct {
	path    string
	decoder *textDecoder
}

// NewAccessReader creates a reader for the Access database at path.
func NewAccessReader(path string) *AccessReader {
	return &AccessReader{path: path}
}

func (r *AccessReader) ReadAll(ctx context.Context) ([]entities.Good, error) {
	if err := checkPath(r.path, "Access"); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, apperr.Cancelled(err)
	}

	if !odbcAvailable {
		return nil, &apperr.SourceReadError{
			Source:  "Access",
			Table:   Table,
			Columns: Columns,
			Hint:    "this build has no ODBC support; rebuild with `go build -tags odbc` on a machine with the Access ODBC driver",
			Err:     errODBCUnavailable,
		}
	}

	db, driver, err := r.open(ctx)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	goods, err := readGoods(ctx, db, r.decoder)
	if err != nil {
		return nil, wrapReadError(err, "Access", fmt.Sprintf("%s (driver: %s)", accessHint, driver))
	}
	return goods, nil
}

// open tries every candidate ODBC driver for the file extension and moves on
// only when the driver is not installed. Any other failure is final.
func (r *AccessReader) open(ctx context.Context) (*sql.DB, string, error) {
	candidates := accessDrivers(r.path)
	var last error
	for _, driver := range candidates {
		db, err := sql.Open(odbcDriverName, accessDSN(driver, r.path))
		if err != nil {
			return nil, driver, wrapReadError(err, "Access", accessHint)
		}
		err = db.PingContext(ctx)
		if err == nil {
			return db, driver, nil
		}
		db.Close()

		if !isDriverMissing(err) {
			return nil, driver, wrapReadError(err, "Access", fmt.Sprintf("%s (driver: %s)", accessHint, driver))
		}
		last = err
	}

	return nil, "", &apperr.SourceReadError{
		Source:  "Access",
		Table:   Table,
		Columns: Columns,
		Hint: fmt.Sprintf("no usable Access ODBC driver found (tried: %s); for .mdb files run a 32-bit build, "+
			"for .accdb install the Access Database Engine 2010/2016 matching the program bitness",
			strings.Join(candidates, ", ")),
		Err: last,
	}
}

// accessDrivers lists ODBC drivers able to open path in order of preference.
// .accdb files need the newer combined driver; .mdb files can fall back to
// the legacy Jet driver that ships with 32-bit Windows.
func accessDrivers(path string) []string {
	if strings.EqualFold(filepath.Ext(path), ".accdb") {
		return []string{driverAccessCombined}
	}
	return []string{driverAccessCombined, driverAccessLegacy}
}

func accessDSN(driver, path string) string {
	return fmt.Sprintf("Driver={%s};Dbq=%s;ReadOnly=1;", driver, path)
}

// driverMissingMessage recognizes driver manager messages for a driver that
// is not installed, for errors that carry no SQLSTATE.
func driverMissingMessage(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "im002") ||
		strings.Contains(msg, "data source name not found") ||
		strings.Contains(msg, "can't open lib") ||
		strings.Contains(msg, "file not found")
}
