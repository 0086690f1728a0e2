// Package store persists archives, builds, build queue entries and
// publishing history in an SQLite database.
//
// All access happens within transactions: Update for read-write access and
// View for consistent reads. A function passed to Update which returns an
// error causes the transaction to be rolled back, which gives batch scripts
// the “commit per phase, roll back on failure” discipline.
package store

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"sync"
	"time"

	"golang.org/x/xerrors"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitemigration"
	"zombiezen.com/go/sqlite/sqlitex"
)

// ErrNotFound is returned by lookups which match no row.
var ErrNotFound = errors.New("not found")

// Store is a handle to the soyuz database. It is safe for concurrent use.
type Store struct {
	pool *sqlitemigration.Pool
}

// Open opens (and if necessary creates and migrates) the database at path.
// Use "file::memory:?mode=memory&cache=shared" style URIs for tests, or simply
// a path in a temporary directory.
func Open(path string, logger *log.Logger) (*Store, error) {
	schema, err := loadSchema()
	if err != nil {
		return nil, err
	}
	pool := sqlitemigration.NewPool(path, schema, sqlitemigration.Options{
		Flags:       sqlite.OpenCreate | sqlite.OpenReadWrite | sqlite.OpenWAL | sqlite.OpenURI,
		PoolSize:    4,
		PrepareConn: prepareConn,
		OnError: func(err error) {
			if logger != nil {
				logger.Printf("migrating %s: %v", path, err)
			}
		},
	})
	s := &Store{pool: pool}
	// Surface migration errors on Open instead of the first query:
	ctx, canc := context.WithTimeout(context.Background(), 30*time.Second)
	defer canc()
	conn, err := pool.Get(ctx)
	if err != nil {
		pool.Close()
		return nil, xerrors.Errorf("opening %s: %w", path, err)
	}
	pool.Put(conn)
	return s, nil
}

// Close releases all database connections.
func (s *Store) Close() error {
	return s.pool.Close()
}

// Tx is a database transaction. A Tx must not be used after the function it
// was passed to has returned.
type Tx struct {
	conn *sqlite.Conn
	now  func() time.Time
}

// Now returns the transaction timestamp source, overridable in tests.
var Now = func() time.Time { return time.Now().UTC() }

// Update runs fn within an immediate (write-locking) transaction. The
// transaction commits if fn returns nil and is rolled back otherwise.
func (s *Store) Update(ctx context.Context, fn func(tx *Tx) error) (err error) {
	conn, err := s.pool.Get(ctx)
	if err != nil {
		return err
	}
	defer s.pool.Put(conn)
	endFn, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return err
	}
	defer endFn(&err)
	return fn(&Tx{conn: conn, now: Now})
}

// View runs fn within a deferred transaction. Changes made by fn are rolled
// back regardless of its result.
func (s *Store) View(ctx context.Context, fn func(tx *Tx) error) (err error) {
	conn, err := s.pool.Get(ctx)
	if err != nil {
		return err
	}
	defer s.pool.Put(conn)
	endFn := sqlitex.Save(conn)
	defer func() {
		rollback := errReadOnly
		endFn(&rollback)
	}()
	return fn(&Tx{conn: conn, now: Now})
}

var errReadOnly = errors.New("read-only transaction")

// Now returns the current time as seen by this transaction.
func (tx *Tx) Now() time.Time { return tx.now() }

func prepareConn(conn *sqlite.Conn) error {
	if err := sqlitex.ExecuteTransient(conn, "PRAGMA foreign_keys = on;", nil); err != nil {
		return err
	}
	if err := sqlitex.ExecuteTransient(conn, "PRAGMA busy_timeout = 10000;", nil); err != nil {
		return err
	}
	return nil
}

//go:embed sql/schema/*.sql
var rawSQLFiles embed.FS

var schemaState struct {
	init   sync.Once
	schema sqlitemigration.Schema
	err    error
}

func loadSchema() (sqlitemigration.Schema, error) {
	schemaState.init.Do(func() {
		for i := 1; ; i++ {
			migration, err := fs.ReadFile(rawSQLFiles, fmt.Sprintf("sql/schema/%02d.sql", i))
			if errors.Is(err, fs.ErrNotExist) {
				break
			}
			if err != nil {
				schemaState.err = err
				return
			}
			schemaState.schema.Migrations = append(schemaState.schema.Migrations, string(migration))
		}
	})
	return schemaState.schema, schemaState.err
}

func (tx *Tx) exec(query string, args []interface{}, resultFn func(stmt *sqlite.Stmt) error) error {
	return sqlitex.Execute(tx.conn, query, &sqlitex.ExecOptions{
		Args:       args,
		ResultFunc: resultFn,
	})
}

// changes returns the number of rows modified by the last statement.
func (tx *Tx) changes() int { return tx.conn.Changes() }

func (tx *Tx) lastInsertID() int64 { return tx.conn.LastInsertRowID() }

func millis(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t.UnixMilli()
}

func getTime(stmt *sqlite.Stmt, col string) time.Time {
	idx := stmt.ColumnIndex(col)
	if idx < 0 || stmt.ColumnType(idx) == sqlite.TypeNull {
		return time.Time{}
	}
	return time.UnixMilli(stmt.ColumnInt64(idx)).UTC()
}

func nullID(id int64) interface{} {
	if id == 0 {
		return nil
	}
	return id
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// placeholders returns "?, ?, ?" for n arguments.
func placeholders(n int) string {
	if n == 0 {
		return ""
	}
	b := make([]byte, 0, 3*n)
	for i := 0; i < n; i++ {
		if i > 0 {
			b = append(b, ", "...)
		}
		b = append(b, '?')
	}
	return string(b)
}

func stringArgs(ss []string) []interface{} {
	args := make([]interface{}, len(ss))
	for i, s := range ss {
		args[i] = s
	}
	return args
}
