//go:build !odbc

package scale

const (
	odbcAvailable  = false
	odbcDriverName = "odbc"
)

func isDriverMissing(err error) bool {
	return driverMissingMessage(err)
}
