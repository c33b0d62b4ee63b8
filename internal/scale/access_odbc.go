//go:build odbc

package scale

import (
	"errors"

	"github.com/alexbrainman/odbc"
)

const (
	odbcAvailable  = true
	odbcDriverName = "odbc"
)

// isDriverMissing reports SQLSTATE IM002 (data source name not found and
// no default driver specified), which the driver manager returns when the
// requested driver is not installed.
func isDriverMissing(err error) bool {
	var odbcErr *odbc.Error
	if errors.As(err, &odbcErr) {
		for _, rec := range odbcErr.Diag {
			if rec.State == "IM002" {
				return true
			}
		}
		return false
	}
	return driverMissingMessage(err)
}
