package session

import (
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/staticdb/staticdb/core/dberr"
)

func openTemp(t *testing.T) *Session {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "engine.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() {
		if s.IsOpen() {
			s.Abort()
		}
	})
	return s
}

// seedType inserts the METADATA_TYPE parent a METADATA_TABLE row needs.
func seedType(t *testing.T, s *Session, oid int64) {
	t.Helper()
	if _, err := s.Exec(`INSERT INTO METADATA_TYPE (OID, MODE) VALUES (?, 3)`, oid); err != nil {
		t.Fatalf("seed type %d: %v", oid, err)
	}
}

func TestOpenBootstrapsFreshFile(t *testing.T) {
	s := openTemp(t)

	var count int
	found, err := s.QueryOne(`SELECT COUNT(*) FROM METADATA_TYPE`, nil, &count)
	if err != nil || !found {
		t.Fatalf("catalog query: found=%v err=%v", found, err)
	}
	if count != 10 {
		t.Errorf("expected 10 seeded types, got %d", count)
	}
}

func TestCloseCommits(t *testing.T) {
	path := filepath.Join(t.TempDir(), "persist.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	seedType(t, s, 10)
	if _, err := s.Exec(`INSERT INTO METADATA_TABLE (TYPE_OID, NAME) VALUES (10, 'Person')`); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Abort()

	var name string
	found, err := reopened.QueryOne(`SELECT NAME FROM METADATA_TABLE WHERE TYPE_OID = 10`, nil, &name)
	if err != nil || !found {
		t.Fatalf("query after reopen: found=%v err=%v", found, err)
	}
	if name != "Person" {
		t.Errorf("NAME = %q, want Person", name)
	}
}

func TestAbortDiscards(t *testing.T) {
	path := filepath.Join(t.TempDir(), "discard.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	seedType(t, s, 10)
	if _, err := s.Exec(`INSERT INTO METADATA_TABLE (TYPE_OID, NAME) VALUES (10, 'Gone')`); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := s.Abort(); err != nil {
		t.Fatalf("abort: %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Abort()

	var name string
	found, err := reopened.QueryOne(`SELECT NAME FROM METADATA_TABLE WHERE TYPE_OID = 10`, nil, &name)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if found {
		t.Error("aborted insert should not have been committed")
	}
}

func TestQueryOneNoRows(t *testing.T) {
	s := openTemp(t)

	var name string
	found, err := s.QueryOne(`SELECT NAME FROM METADATA_TABLE WHERE TYPE_OID = 999`, nil, &name)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if found {
		t.Error("expected no row")
	}
}

func TestQueryIterate(t *testing.T) {
	s := openTemp(t)

	for oid := 10; oid < 13; oid++ {
		seedType(t, s, int64(oid))
		if _, err := s.Exec(`INSERT INTO METADATA_TABLE (TYPE_OID, NAME) VALUES (?, ?)`, oid, "T"); err != nil {
			t.Fatalf("insert %d: %v", oid, err)
		}
	}

	var oids []int64
	err := s.QueryIterate(`SELECT TYPE_OID FROM METADATA_TABLE ORDER BY TYPE_OID`, nil, func(rows *sql.Rows) error {
		var oid int64
		if err := rows.Scan(&oid); err != nil {
			return err
		}
		oids = append(oids, oid)
		return nil
	})
	if err != nil {
		t.Fatalf("iterate: %v", err)
	}
	if len(oids) != 3 || oids[0] != 10 || oids[2] != 12 {
		t.Errorf("oids = %v", oids)
	}
}

func TestQueryIterateCallbackError(t *testing.T) {
	s := openTemp(t)

	sentinel := errors.New("stop")
	err := s.QueryIterate(`SELECT OID FROM METADATA_TYPE`, nil, func(rows *sql.Rows) error {
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Errorf("expected callback error to propagate, got %v", err)
	}
}

func TestActionRollback(t *testing.T) {
	s := openTemp(t)
	seedType(t, s, 10)

	a, err := s.BeginAction()
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if _, err := s.Exec(`INSERT INTO METADATA_TABLE (TYPE_OID, NAME) VALUES (10, 'Doomed')`); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := a.Rollback(); err != nil {
		t.Fatalf("rollback: %v", err)
	}

	var name string
	found, err := s.QueryOne(`SELECT NAME FROM METADATA_TABLE WHERE TYPE_OID = 10`, nil, &name)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if found {
		t.Error("rolled-back insert should be gone")
	}
	if depth := s.SavepointDepth(); depth != 0 {
		t.Errorf("SavepointDepth = %d, want 0", depth)
	}
}

func TestActionReleaseThenUndo(t *testing.T) {
	s := openTemp(t)
	seedType(t, s, 10)

	a, err := s.BeginAction()
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if _, err := s.Exec(`INSERT INTO METADATA_TABLE (TYPE_OID, NAME) VALUES (10, 'Kept')`); err != nil {
		t.Fatalf("insert: %v", err)
	}
	a.Release()

	if depth := s.SavepointDepth(); depth != 1 {
		t.Fatalf("SavepointDepth = %d, want 1", depth)
	}

	undone, err := s.Undo()
	if err != nil {
		t.Fatalf("undo: %v", err)
	}
	if !undone {
		t.Fatal("expected an undo point")
	}

	var name string
	found, err := s.QueryOne(`SELECT NAME FROM METADATA_TABLE WHERE TYPE_OID = 10`, nil, &name)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if found {
		t.Error("undone insert should be gone")
	}
}

func TestUndoOrderIsLIFO(t *testing.T) {
	s := openTemp(t)
	seedType(t, s, 10)
	seedType(t, s, 11)

	for i, name := range []string{"First", "Second"} {
		a, err := s.BeginAction()
		if err != nil {
			t.Fatalf("begin %d: %v", i, err)
		}
		if _, err := s.Exec(`INSERT INTO METADATA_TABLE (TYPE_OID, NAME) VALUES (?, ?)`, 10+i, name); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
		a.Release()
	}

	if undone, err := s.Undo(); err != nil || !undone {
		t.Fatalf("first undo: undone=%v err=%v", undone, err)
	}

	var name string
	if found, _ := s.QueryOne(`SELECT NAME FROM METADATA_TABLE WHERE TYPE_OID = 11`, nil, &name); found {
		t.Error("second insert should be undone first")
	}
	if found, _ := s.QueryOne(`SELECT NAME FROM METADATA_TABLE WHERE TYPE_OID = 10`, nil, &name); !found {
		t.Error("first insert should survive the first undo")
	}

	if undone, err := s.Undo(); err != nil || !undone {
		t.Fatalf("second undo: undone=%v err=%v", undone, err)
	}
	if found, _ := s.QueryOne(`SELECT NAME FROM METADATA_TABLE WHERE TYPE_OID = 10`, nil, &name); found {
		t.Error("first insert should be undone second")
	}

	if undone, err := s.Undo(); err != nil || undone {
		t.Errorf("no undo points left: undone=%v err=%v", undone, err)
	}
}

func TestClosedSessionReturnsErrNotOpen(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "closed.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	if _, err := s.Exec(`SELECT 1`); !errors.Is(err, dberr.ErrNotOpen) {
		t.Errorf("Exec after close: %v", err)
	}
	if _, err := s.QueryOne(`SELECT 1`, nil, new(int)); !errors.Is(err, dberr.ErrNotOpen) {
		t.Errorf("QueryOne after close: %v", err)
	}
	if _, err := s.BeginAction(); !errors.Is(err, dberr.ErrNotOpen) {
		t.Errorf("BeginAction after close: %v", err)
	}
	if _, err := s.Undo(); !errors.Is(err, dberr.ErrNotOpen) {
		t.Errorf("Undo after close: %v", err)
	}
	if err := s.Close(); !errors.Is(err, dberr.ErrNotOpen) {
		t.Errorf("second Close: %v", err)
	}
}
