package backend

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLStore_SchemaDialects(t *testing.T) {
	tests := []struct {
		driver string
		want   []string
	}{
		{"sqlite3", []string{"AUTOINCREMENT", "TIMESTAMP"}},
		{"postgres", []string{"SERIAL", "TIMESTAMP"}},
		{"mysql", []string{"AUTO_INCREMENT", "VARCHAR(255)", "DATETIME"}},
	}
	for _, tt := range tests {
		t.Run(tt.driver, func(t *testing.T) {
			s := &SQLStore{driver: tt.driver}
			ddl := s.schema()
			require.Len(t, ddl, 2)
			assert.Contains(t, ddl[0], "schema_migrations")
			for _, frag := range tt.want {
				assert.Contains(t, ddl[1], frag)
			}
		})
	}
}

func TestSQLStore_InitIsIdempotent(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	s := NewSQLStore(sqlx.NewDb(conn, "sqlmock"))

	expectInit(mock)
	require.NoError(t, s.Init(context.Background()))

	// Second run finds the version already recorded and inserts nothing.
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS facts").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT MAX\(version\) FROM schema_migrations`).
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(SchemaVersion))
	require.NoError(t, s.Init(context.Background()))

	mock.ExpectQuery(`SELECT MAX\(version\) FROM schema_migrations`).
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(SchemaVersion))
	v, err := s.AppliedVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SchemaVersion, v)

	mock.ExpectClose()
	require.NoError(t, s.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}
