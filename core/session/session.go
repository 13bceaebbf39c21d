// Package session owns the lifetime of one open database file.
//
// A session holds exactly one SQLite connection and keeps an IMMEDIATE
// transaction open from Open until Close. Mutating operations run inside
// nested savepoints issued by BeginAction, which double as undo points:
// nothing reaches the file until the session commits, and any savepoint
// still standing can be rolled back to.
package session

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"sync"

	"github.com/staticdb/staticdb/core/catalog"
	"github.com/staticdb/staticdb/core/dberr"
	"github.com/staticdb/staticdb/core/sqlite"
	"github.com/staticdb/staticdb/internal/logging"
)

// Session is an open database file with its ambient transaction.
type Session struct {
	db   *sql.DB
	conn *sql.Conn
	path string

	mu        sync.Mutex
	saveCount int
}

// Open opens the database at path, creating and bootstrapping it when the
// file does not exist, and begins the ambient transaction.
func Open(path string) (*Session, error) {
	_, statErr := os.Stat(path)
	fresh := errors.Is(statErr, os.ErrNotExist)

	db, err := sqlite.Open(path)
	if err != nil {
		return nil, dberr.NewStorage("open", err)
	}
	conn, err := db.Conn(context.Background())
	if err != nil {
		db.Close()
		return nil, dberr.NewStorage("open", err)
	}

	s := &Session{db: db, conn: conn, path: path}

	for _, pragma := range []string{
		`PRAGMA foreign_keys = ON`,
		`PRAGMA journal_mode = WAL`,
	} {
		if _, err := s.Exec(pragma); err != nil {
			s.closeConn()
			return nil, err
		}
	}

	if fresh {
		if err := catalog.Bootstrap(s); err != nil {
			s.closeConn()
			return nil, err
		}
	}

	if _, err := s.Exec(`BEGIN IMMEDIATE`); err != nil {
		s.closeConn()
		return nil, err
	}

	logging.SessionEvent("open", path, "fresh", fresh)
	return s, nil
}

func (s *Session) closeConn() {
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
	if s.db != nil {
		s.db.Close()
		s.db = nil
	}
}

// Path returns the database file path.
func (s *Session) Path() string {
	return s.path
}

// IsOpen reports whether the session still holds its connection.
func (s *Session) IsOpen() bool {
	return s != nil && s.conn != nil
}

// Close commits the ambient transaction and releases the connection.
func (s *Session) Close() error {
	if !s.IsOpen() {
		return dberr.ErrNotOpen
	}
	_, err := s.conn.ExecContext(context.Background(), `COMMIT`)
	s.closeConn()
	logging.SessionEvent("close", s.path)
	if err != nil {
		return dberr.NewStorage("commit", err)
	}
	return nil
}

// Abort rolls back the ambient transaction and releases the connection.
// Nothing done since Open reaches the file.
func (s *Session) Abort() error {
	if !s.IsOpen() {
		return dberr.ErrNotOpen
	}
	_, err := s.conn.ExecContext(context.Background(), `ROLLBACK`)
	s.closeConn()
	logging.SessionEvent("abort", s.path)
	if err != nil {
		return dberr.NewStorage("rollback", err)
	}
	return nil
}

// Exec runs a statement inside the ambient transaction.
func (s *Session) Exec(query string, args ...any) (sql.Result, error) {
	if !s.IsOpen() {
		return nil, dberr.ErrNotOpen
	}
	res, err := s.conn.ExecContext(context.Background(), query, args...)
	if err != nil {
		return nil, dberr.NewStorage("exec", err)
	}
	return res, nil
}

// QueryOne scans at most one row into dest. It returns false when the
// query produces no rows.
func (s *Session) QueryOne(query string, args []any, dest ...any) (bool, error) {
	if !s.IsOpen() {
		return false, dberr.ErrNotOpen
	}
	err := s.conn.QueryRowContext(context.Background(), query, args...).Scan(dest...)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, dberr.NewStorage("query", err)
	}
	return true, nil
}

// QueryIterate runs fn once per result row without buffering the result
// set. fn receives the positioned *sql.Rows and should only call Scan;
// issuing another statement on the session while iterating would contend
// for the single connection.
func (s *Session) QueryIterate(query string, args []any, fn func(rows *sql.Rows) error) error {
	if !s.IsOpen() {
		return dberr.ErrNotOpen
	}
	rows, err := s.conn.QueryContext(context.Background(), query, args...)
	if err != nil {
		return dberr.NewStorage("query", err)
	}
	defer rows.Close()
	for rows.Next() {
		if err := fn(rows); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return dberr.NewStorage("query", err)
	}
	return nil
}

// Action is a nested savepoint scope around one mutating operation.
type Action struct {
	s    *Session
	n    int
	done bool
}

// BeginAction opens the next savepoint. Exactly one of Release or
// Rollback must follow.
func (s *Session) BeginAction() (*Action, error) {
	if !s.IsOpen() {
		return nil, dberr.ErrNotOpen
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.saveCount + 1
	if _, err := s.Exec(`SAVEPOINT ` + catalog.SavepointName(n)); err != nil {
		return nil, err
	}
	s.saveCount = n
	return &Action{s: s, n: n}, nil
}

// Release keeps the savepoint in place as an undo point.
func (a *Action) Release() {
	a.done = true
}

// Rollback undoes everything since BeginAction and retires the savepoint.
func (a *Action) Rollback() error {
	if a.done {
		return nil
	}
	a.done = true
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	name := catalog.SavepointName(a.n)
	if _, err := a.s.Exec(`ROLLBACK TO ` + name); err != nil {
		return err
	}
	if _, err := a.s.Exec(`RELEASE ` + name); err != nil {
		return err
	}
	if a.s.saveCount == a.n {
		a.s.saveCount--
	}
	return nil
}

// Undo rolls back to the newest savepoint, if any. It reports whether an
// undo point existed.
func (s *Session) Undo() (bool, error) {
	if !s.IsOpen() {
		return false, dberr.ErrNotOpen
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveCount == 0 {
		return false, nil
	}
	name := catalog.SavepointName(s.saveCount)
	if _, err := s.Exec(`ROLLBACK TO ` + name); err != nil {
		return false, err
	}
	if _, err := s.Exec(`RELEASE ` + name); err != nil {
		return false, err
	}
	s.saveCount--
	logging.UndoEvent("undo", s.saveCount)
	return true, nil
}

// SavepointDepth returns the number of standing undo points.
func (s *Session) SavepointDepth() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveCount
}
