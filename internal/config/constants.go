package config

const (
	// EnvPrefix is prepended to every environment variable, e.g.
	// SCALESYNC_SCALE_DB_PATH or SCALESYNC_MIALL_CONNECTION_STRING.
	EnvPrefix = "SCALESYNC"

	// DefaultConfigFile is looked up in the working directory and next to the binary.
	DefaultConfigFile = "appsettings.json"

	// DefaultJournalPath is the default path of the local run journal database.
	DefaultJournalPath = "./scalesync.db"

	DefaultReportsDir = "./reports"

	// DefaultCategoryName is the MiAll category scale products are filed under.
	DefaultCategoryName = "099 生鲜（电子秤）"
)

const (
	ScaleKindSQLite = "sqlite"
	ScaleKindAccess = "access"
)

const (
	DialectSQLServer = "sqlserver"
	DialectPostgres  = "postgres"
	DialectSQLite    = "sqlite"
)

const (
	EncodingUTF8    = "utf-8"
	EncodingGBK     = "gbk"
	EncodingGB18030 = "gb18030"
	EncodingBig5    = "big5"
)

const maskedSecret = "****"
