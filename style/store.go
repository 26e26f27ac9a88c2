// Package style implements the Style Store (spec §3): a persistent,
// process-scoped, transactional catalogue mapping a (kind, id) pair to the
// open/close markup an inline delimiter stands in for.
package style

import (
	"fmt"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/mr-martian/transfuse/sentinel"
)

const schema = `
CREATE TABLE IF NOT EXISTS styles (
	kind  TEXT NOT NULL,
	id    TEXT NOT NULL,
	open  TEXT NOT NULL,
	close TEXT NOT NULL,
	PRIMARY KEY (kind, id)
)`

// Store is a single connection to the project's state.sqlite3 database.
// It is not safe for concurrent use — the pipeline is single-threaded
// (spec §5) and a Store is owned by exactly one extract or inject run.
type Store struct {
	conn *sqlite.Conn
	inTx bool
}

// Open creates or reuses the sqlite database at path and ensures the
// styles table exists.
func Open(path string) (*Store, error) {
	conn, err := sqlite.OpenConn(path, sqlite.OpenReadWrite|sqlite.OpenCreate)
	if err != nil {
		return nil, fmt.Errorf("open style store %s: %w", path, err)
	}
	if err := sqlitex.ExecuteTransient(conn, schema, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("create styles table: %w", err)
	}
	return &Store{conn: conn}, nil
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

// Begin starts a transaction, coalescing subsequent Put writes.
func (s *Store) Begin() error {
	if s.inTx {
		return fmt.Errorf("style store: transaction already open")
	}
	if err := sqlitex.ExecuteTransient(s.conn, "BEGIN IMMEDIATE;", nil); err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	s.inTx = true
	return nil
}

// Commit ends the transaction started by Begin.
func (s *Store) Commit() error {
	if !s.inTx {
		return fmt.Errorf("style store: no transaction open")
	}
	if err := sqlitex.ExecuteTransient(s.conn, "COMMIT;", nil); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	s.inTx = false
	return nil
}

// Rollback discards the transaction started by Begin.
func (s *Store) Rollback() error {
	if !s.inTx {
		return nil
	}
	err := sqlitex.ExecuteTransient(s.conn, "ROLLBACK;", nil)
	s.inTx = false
	if err != nil {
		return fmt.Errorf("rollback transaction: %w", err)
	}
	return nil
}

// Put catalogues a (kind, open, close) triple and returns its stable,
// content-addressed id. Identical triples yield identical ids.
func (s *Store) Put(kind, open, close_ string) (string, error) {
	id := sentinel.StyleID(kind, open, close_)
	err := sqlitex.Execute(s.conn,
		`INSERT OR IGNORE INTO styles (kind, id, open, close) VALUES (?, ?, ?, ?);`,
		&sqlitex.ExecOptions{Args: []any{kind, id, open, close_}})
	if err != nil {
		return "", fmt.Errorf("put style (%s,%s): %w", kind, id, err)
	}
	return id, nil
}

// Get returns the open/close markup catalogued under (kind, id), or two
// empty strings if absent.
func (s *Store) Get(kind, id string) (open, close_ string, err error) {
	err = sqlitex.Execute(s.conn,
		`SELECT open, close FROM styles WHERE kind = ? AND id = ?;`,
		&sqlitex.ExecOptions{
			Args: []any{kind, id},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				open = stmt.ColumnText(0)
				close_ = stmt.ColumnText(1)
				return nil
			},
		})
	if err != nil {
		return "", "", fmt.Errorf("get style (%s,%s): %w", kind, id, err)
	}
	return open, close_, nil
}
