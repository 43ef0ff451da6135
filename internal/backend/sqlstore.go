package backend

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"

	// Database drivers (required for database/sql registration).
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// SchemaVersion is the version recorded in schema_migrations by Init.
const SchemaVersion = 1

var sqlitePragmas = []string{
	"PRAGMA synchronous = NORMAL",
	"PRAGMA temp_store = MEMORY",
}

// SQLStore persists facts in a SQL database.
type SQLStore struct {
	db     *sqlx.DB
	driver string
	dsn    string
}

// OpenSQL opens the database described by db and creates the schema if it
// doesn't exist.
func OpenSQL(ctx context.Context, db DBConfig) (*SQLStore, error) {
	driver, dsn, err := DSN(db)
	if err != nil {
		return nil, err
	}

	if driver == "sqlite3" {
		if err := os.MkdirAll(filepath.Dir(db.Path), 0755); err != nil {
			return nil, err
		}
	}

	conn, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, err
	}

	if driver == "sqlite3" {
		for _, pragma := range sqlitePragmas {
			if _, err := conn.ExecContext(ctx, pragma); err != nil {
				conn.Close()
				return nil, err
			}
		}
	}

	s := NewSQLStore(conn)
	s.dsn = dsn
	if err := s.Init(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLStore wraps an open connection. Call Init before use.
func NewSQLStore(db *sqlx.DB) *SQLStore {
	return &SQLStore{db: db, driver: db.DriverName()}
}

// columnTypes returns the id column definition plus the text and time
// types of the store's dialect.
func (s *SQLStore) columnTypes() (idColumn, textType, timeType string) {
	switch s.driver {
	case "postgres":
		return "id SERIAL PRIMARY KEY", "TEXT", "TIMESTAMP"
	case "mysql":
		return "id INTEGER PRIMARY KEY AUTO_INCREMENT", "VARCHAR(255)", "DATETIME"
	default:
		return "id INTEGER PRIMARY KEY AUTOINCREMENT", "TEXT", "TIMESTAMP"
	}
}

func (s *SQLStore) schema() []string {
	idColumn, textType, timeType := s.columnTypes()
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS schema_migrations (
	version INTEGER PRIMARY KEY,
	applied_at %s NOT NULL DEFAULT CURRENT_TIMESTAMP,
	description %s
)`, timeType, textType),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS facts (
	%s,
	activity %s NOT NULL,
	category %s NOT NULL DEFAULT '',
	description %s NOT NULL DEFAULT '',
	start_time %s NOT NULL,
	end_time %s NOT NULL
)`, idColumn, textType, textType, textType, timeType, timeType),
	}
}

// Init creates the tables and records the schema version.
func (s *SQLStore) Init(ctx context.Context) error {
	for _, ddl := range s.schema() {
		if _, err := s.db.ExecContext(ctx, ddl); err != nil {
			return err
		}
	}
	return s.ensureSchemaVersion(ctx, SchemaVersion, "facts table")
}

// AppliedVersion returns the highest applied schema version, or 0.
func (s *SQLStore) AppliedVersion(ctx context.Context) (int, error) {
	var current sql.NullInt64
	if err := s.db.QueryRowxContext(ctx, "SELECT MAX(version) FROM schema_migrations").Scan(&current); err != nil {
		return 0, err
	}
	return int(current.Int64), nil
}

func (s *SQLStore) ensureSchemaVersion(ctx context.Context, version int, description string) error {
	current, err := s.AppliedVersion(ctx)
	if err != nil {
		return err
	}
	if current >= version {
		return nil
	}
	_, err = s.db.ExecContext(ctx,
		s.db.Rebind("INSERT INTO schema_migrations (version, description) VALUES (?, ?)"),
		version, description)
	return err
}

// AddFact inserts a finished fact. Times are stored in UTC.
func (s *SQLStore) AddFact(ctx context.Context, f Fact) error {
	query := s.db.Rebind(`INSERT INTO facts (activity, category, description, start_time, end_time)
VALUES (?, ?, ?, ?, ?)`)
	_, err := s.db.ExecContext(ctx, query,
		f.Activity, f.Category, f.Description, f.Start.UTC(), f.End.UTC())
	return err
}

// FactsBetween returns the facts starting in [from, to), oldest first.
func (s *SQLStore) FactsBetween(ctx context.Context, from, to time.Time) ([]Fact, error) {
	query := s.db.Rebind(`SELECT id, activity, category, description, start_time, end_time
FROM facts WHERE start_time >= ? AND start_time < ? ORDER BY start_time`)

	var facts []Fact
	if err := s.db.SelectContext(ctx, &facts, query, from.UTC(), to.UTC()); err != nil {
		return nil, err
	}
	return facts, nil
}

// Activities returns the distinct activity/category pairs used since the
// given time, most recently used first.
func (s *SQLStore) Activities(ctx context.Context, since time.Time) ([]Activity, error) {
	query := s.db.Rebind(`SELECT activity, category FROM facts WHERE start_time >= ?
GROUP BY activity, category ORDER BY MAX(start_time) DESC`)

	var acts []Activity
	if err := s.db.SelectContext(ctx, &acts, query, since.UTC()); err != nil {
		return nil, err
	}
	return acts, nil
}

// Close closes the underlying connection.
func (s *SQLStore) Close() error {
	return s.db.Close()
}
