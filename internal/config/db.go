package config

const (
	// DBDriverSQLite is the default driver for single-node deployments.
	DBDriverSQLite = "sqlite"

	// DBDriverMySQL is the driver for multi-node deployments.
	DBDriverMySQL = "mysql"
)

// DB holds the database configuration settings. The sqlite driver only
// needs Path; the mysql driver uses the host, port and credential fields.
type DB struct {
	Driver   string // "sqlite" or "mysql"
	Path     string // sqlite database file
	Extras   string
	Host     string
	Port     int
	User     string
	Password string
	Name     string
}
