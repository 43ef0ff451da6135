// Package backendtest provides go-sqlmock helpers for code that opens a
// backend.SQLStore.
package backendtest

import (
	"context"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"

	"github.com/hourglass-app/hourglass/internal/backend"
)

// ExpectInit registers the statements SQLStore.Init runs against an
// empty database.
func ExpectInit(mock sqlmock.Sqlmock) {
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS facts").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT MAX\(version\) FROM schema_migrations`).
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(nil))
	mock.ExpectExec("INSERT INTO schema_migrations").
		WithArgs(backend.SchemaVersion, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
}

// Opened records the connection parameters of every open.
type Opened struct {
	mu  sync.Mutex
	dbs []backend.DBConfig
}

// All returns the recorded parameters in open order.
func (o *Opened) All() []backend.DBConfig {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]backend.DBConfig(nil), o.dbs...)
}

// Opener returns a backend.Opener backed by go-sqlmock. Every open gets a
// fresh mock expecting Init, then whatever expect adds, then Close.
// Unmet expectations fail t when the test ends.
func Opener(t *testing.T, expect func(sqlmock.Sqlmock)) (backend.Opener, *Opened) {
	t.Helper()
	opened := &Opened{}

	open := func(ctx context.Context, db backend.DBConfig) (*backend.SQLStore, error) {
		conn, mock, err := sqlmock.New()
		if err != nil {
			return nil, err
		}
		ExpectInit(mock)
		if expect != nil {
			expect(mock)
		}
		mock.ExpectClose()
		t.Cleanup(func() {
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Errorf("sqlmock: %v", err)
			}
		})

		s := backend.NewSQLStore(sqlx.NewDb(conn, "sqlmock"))
		if err := s.Init(ctx); err != nil {
			conn.Close()
			return nil, err
		}

		opened.mu.Lock()
		opened.dbs = append(opened.dbs, db)
		opened.mu.Unlock()
		return s, nil
	}
	return open, opened
}
