package sqlstore

// Supported drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config holds relational database connection settings
type Config struct {
	// Driver is either "sqlite" or "postgres"
	Driver string

	// DSN is passed to the driver unchanged, e.g. "gamehost.db" or
	// "host=localhost user=gamehost dbname=gamehost sslmode=disable"
	DSN string

	// Pool settings, ignored for sqlite which is limited to one connection
	MaxOpenConns int
	MaxIdleConns int

	// LogQueries enables gorm's statement logging
	LogQueries bool
}

// DefaultConfig returns a local sqlite configuration
func DefaultConfig() Config {
	return Config{
		Driver:       DriverSQLite,
		DSN:          "gamehost.db",
		MaxOpenConns: 10,
		MaxIdleConns: 2,
	}
}
