package actions

import (
	"path/filepath"
	"testing"

	"github.com/staticdb/staticdb/core/catalog"
	"github.com/staticdb/staticdb/core/schema"
	"github.com/staticdb/staticdb/core/session"
)

func mustJournal(t *testing.T, s *session.Session) *Journal {
	t.Helper()
	j, err := OpenJournal(s)
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	return j
}

func mustRecord(t *testing.T, j *Journal, a Action) {
	t.Helper()
	if err := j.Execute(a); err != nil {
		t.Fatalf("%s: %v", a.Name(), err)
	}
}

func TestJournalUndoRedo(t *testing.T) {
	s := openSession(t)
	j := mustJournal(t, s)

	var table, column, row int64
	mustRecord(t, j, CreateTable{TableName: "Person", Created: &table})
	mustRecord(t, j, CreateColumn{TableOID: table, Spec: schema.ColumnSpec{
		Name: "Name", Mode: catalog.ModePrimitive, Primitive: catalog.PrimitiveText, Nullable: true,
	}, Created: &column})
	mustRecord(t, j, PushRow{TableOID: table, Created: &row})
	mustRecord(t, j, UpdateValue{ColumnOID: column, RowOID: row, Value: str("Ada")})

	if done, err := j.Undo(); err != nil || !done {
		t.Fatalf("undo: done=%v err=%v", done, err)
	}
	if got := cellText(t, s, table, column, row); got != nil {
		t.Errorf("after undo cell = %q, want NULL", *got)
	}
	if done, err := j.Redo(); err != nil || !done {
		t.Fatalf("redo: done=%v err=%v", done, err)
	}
	if got := cellText(t, s, table, column, row); got == nil || *got != "Ada" {
		t.Errorf("after redo cell = %v, want Ada", got)
	}
}

func TestJournalSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")

	s, err := session.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	j := mustJournal(t, s)

	var table, column, row int64
	mustRecord(t, j, CreateTable{TableName: "Person", Created: &table})
	mustRecord(t, j, CreateColumn{TableOID: table, Spec: schema.ColumnSpec{
		Name: "Name", Mode: catalog.ModePrimitive, Primitive: catalog.PrimitiveText, Nullable: true,
	}, Created: &column})
	mustRecord(t, j, PushRow{TableOID: table, Created: &row})
	mustRecord(t, j, UpdateValue{ColumnOID: column, RowOID: row, Value: str("Ada")})
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	s, err = session.Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Abort()
	j = mustJournal(t, s)

	undo, redo, err := j.Depths()
	if err != nil {
		t.Fatalf("depths: %v", err)
	}
	if undo != 4 || redo != 0 {
		t.Fatalf("depths = %d/%d, want 4/0", undo, redo)
	}

	if done, err := j.Undo(); err != nil || !done {
		t.Fatalf("undo after reopen: done=%v err=%v", done, err)
	}
	if got := cellText(t, s, table, column, row); got != nil {
		t.Errorf("after undo cell = %q, want NULL", *got)
	}
}

func TestJournalExecuteClearsRedo(t *testing.T) {
	s := openSession(t)
	j := mustJournal(t, s)

	var table, column, row int64
	mustRecord(t, j, CreateTable{TableName: "Person", Created: &table})
	mustRecord(t, j, CreateColumn{TableOID: table, Spec: schema.ColumnSpec{
		Name: "Name", Mode: catalog.ModePrimitive, Primitive: catalog.PrimitiveText, Nullable: true,
	}, Created: &column})
	mustRecord(t, j, PushRow{TableOID: table, Created: &row})

	mustRecord(t, j, UpdateValue{ColumnOID: column, RowOID: row, Value: str("Ada")})
	if done, err := j.Undo(); err != nil || !done {
		t.Fatalf("undo: done=%v err=%v", done, err)
	}
	mustRecord(t, j, UpdateValue{ColumnOID: column, RowOID: row, Value: str("Grace")})

	_, redo, err := j.Depths()
	if err != nil {
		t.Fatalf("depths: %v", err)
	}
	if redo != 0 {
		t.Errorf("redo depth = %d, want 0 after a fresh action", redo)
	}
}

func TestJournalEmpty(t *testing.T) {
	s := openSession(t)
	j := mustJournal(t, s)
	if done, err := j.Undo(); err != nil || done {
		t.Errorf("undo on empty journal: done=%v err=%v", done, err)
	}
	if done, err := j.Redo(); err != nil || done {
		t.Errorf("redo on empty journal: done=%v err=%v", done, err)
	}
}
