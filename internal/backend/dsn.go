package backend

import (
	"net"
	"net/url"
	"strings"

	"github.com/go-sql-driver/mysql"

	"github.com/hourglass-app/hourglass/internal/errors"
)

// Supported database engines.
const (
	EngineSQLite     = "sqlite"
	EnginePostgreSQL = "postgresql"
	EngineMySQL      = "mysql"
)

// Default ports used when DBConfig.Port is empty.
const (
	DefaultPostgresPort = "5432"
	DefaultMySQLPort    = "3306"
)

// DSN returns the database/sql driver name and data source name for db.
func DSN(db DBConfig) (driver, dsn string, err error) {
	switch strings.ToLower(db.Engine) {
	case EngineSQLite:
		if db.Path == "" {
			return "", "", errors.User(errors.CodeStoreUnavailable, "sqlite db_path is empty")
		}
		return "sqlite3", db.Path + "?_foreign_keys=on&_journal_mode=WAL", nil

	case EnginePostgreSQL, "postgres":
		port := db.Port
		if port == "" {
			port = DefaultPostgresPort
		}
		u := url.URL{
			Scheme:   "postgres",
			User:     url.UserPassword(db.User, db.Password),
			Host:     net.JoinHostPort(db.Host, port),
			Path:     "/" + db.Name,
			RawQuery: "sslmode=disable",
		}
		return "postgres", u.String(), nil

	case EngineMySQL:
		port := db.Port
		if port == "" {
			port = DefaultMySQLPort
		}
		cfg := mysql.NewConfig()
		cfg.User = db.User
		cfg.Passwd = db.Password
		cfg.Net = "tcp"
		cfg.Addr = net.JoinHostPort(db.Host, port)
		cfg.DBName = db.Name
		cfg.ParseTime = true
		return "mysql", cfg.FormatDSN(), nil

	default:
		return "", "", errors.NewBuilder(errors.CodeStoreUnavailable, "unsupported database engine").
			WithContext("engine", db.Engine).
			Build()
	}
}
