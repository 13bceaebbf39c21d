package blob

import (
	"bytes"
	"encoding/base64"
	"errors"
	"path/filepath"
	"testing"

	"github.com/staticdb/staticdb/core/catalog"
	"github.com/staticdb/staticdb/core/dberr"
	"github.com/staticdb/staticdb/core/rows"
	"github.com/staticdb/staticdb/core/schema"
	"github.com/staticdb/staticdb/core/session"
)

// memStore keeps files in memory.
type memStore struct {
	files    map[string][]byte
	writeErr error
}

func newMemStore() *memStore {
	return &memStore{files: map[string][]byte{}}
}

func (m *memStore) ReadFile(path string) ([]byte, error) {
	data, ok := m.files[path]
	if !ok {
		return nil, errors.New("no such file: " + path)
	}
	return data, nil
}

func (m *memStore) WriteFile(path string, data []byte) error {
	if m.writeErr != nil {
		return m.writeErr
	}
	m.files[path] = data
	return nil
}

func setupBlobColumn(t *testing.T) (*session.Session, int64, int64) {
	t.Helper()
	s, err := session.Open(filepath.Join(t.TempDir(), "blob.db"))
	if err != nil {
		t.Fatalf("open session: %v", err)
	}
	t.Cleanup(func() {
		if s.IsOpen() {
			s.Abort()
		}
	})
	table, err := schema.CreateTable(s, "Document", nil)
	if err != nil {
		t.Fatalf("create table: %v", err)
	}
	col, err := schema.CreateColumn(s, table, schema.ColumnSpec{
		Name: "Content", Mode: catalog.ModePrimitive, Primitive: catalog.PrimitiveBlob, Nullable: true,
	})
	if err != nil {
		t.Fatalf("create column: %v", err)
	}
	row, err := rows.Push(s, table, nil)
	if err != nil {
		t.Fatalf("push: %v", err)
	}
	return s, col, row
}

func TestImportExportRoundTrip(t *testing.T) {
	s, col, row := setupBlobColumn(t)
	store := newMemStore()
	payload := []byte("the quick brown fox")
	store.files["in.bin"] = payload

	imported, err := Import(s, store, col, row, "in.bin")
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if imported.Bytes != int64(len(payload)) {
		t.Errorf("imported bytes = %d, want %d", imported.Bytes, len(payload))
	}
	if imported.Checksum == "" {
		t.Error("import produced no checksum")
	}

	exported, err := Export(s, store, col, row, "out.bin")
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if exported.Checksum != imported.Checksum {
		t.Errorf("checksum changed: %s vs %s", exported.Checksum, imported.Checksum)
	}
	if !bytes.Equal(store.files["out.bin"], payload) {
		t.Error("exported bytes differ from imported bytes")
	}
}

func TestPreview(t *testing.T) {
	s, col, row := setupBlobColumn(t)
	store := newMemStore()
	payload := []byte{0x89, 0x50, 0x4e, 0x47}
	store.files["img"] = payload

	if _, err := Import(s, store, col, row, "img"); err != nil {
		t.Fatalf("import: %v", err)
	}
	preview, err := Preview(s, col, row)
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	decoded, err := base64.StdEncoding.DecodeString(preview)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !bytes.Equal(decoded, payload) {
		t.Error("preview does not round-trip")
	}
}

func TestExportEmptyCell(t *testing.T) {
	s, col, row := setupBlobColumn(t)
	if _, err := Export(s, newMemStore(), col, row, "out.bin"); !errors.Is(err, dberr.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestImportRejectsNonBlobColumn(t *testing.T) {
	s, _, _ := setupBlobColumn(t)
	table, err := schema.CreateTable(s, "Plain", nil)
	if err != nil {
		t.Fatalf("create table: %v", err)
	}
	textCol, err := schema.CreateColumn(s, table, schema.ColumnSpec{
		Name: "Note", Mode: catalog.ModePrimitive, Primitive: catalog.PrimitiveText, Nullable: true,
	})
	if err != nil {
		t.Fatalf("create column: %v", err)
	}
	row, err := rows.Push(s, table, nil)
	if err != nil {
		t.Fatalf("push: %v", err)
	}
	store := newMemStore()
	store.files["in"] = []byte("x")
	if _, err := Import(s, store, textCol, row, "in"); !errors.Is(err, dberr.ErrConstraint) {
		t.Errorf("expected ErrConstraint, got %v", err)
	}
}

func TestImportMissingFile(t *testing.T) {
	s, col, row := setupBlobColumn(t)

	_, err := Import(s, newMemStore(), col, row, "absent.bin")
	var fe *dberr.FileError
	if !errors.As(err, &fe) {
		t.Fatalf("expected FileError, got %v", err)
	}
	if fe.Op != "read" {
		t.Errorf("Op = %q, want read", fe.Op)
	}
	var se *dberr.StorageError
	if errors.As(err, &se) {
		t.Error("file failure should not surface as a storage error")
	}
}

func TestExportWriteFailure(t *testing.T) {
	s, col, row := setupBlobColumn(t)
	store := newMemStore()
	store.files["in"] = []byte("x")
	if _, err := Import(s, store, col, row, "in"); err != nil {
		t.Fatalf("import: %v", err)
	}

	store.writeErr = errors.New("disk full")
	_, err := Export(s, store, col, row, "out.bin")
	var fe *dberr.FileError
	if !errors.As(err, &fe) {
		t.Fatalf("expected FileError, got %v", err)
	}
	if fe.Op != "write" || fe.Path != "out.bin" {
		t.Errorf("FileError = %+v, want write out.bin", fe)
	}
}

func TestImportMissingRow(t *testing.T) {
	s, col, _ := setupBlobColumn(t)
	store := newMemStore()
	store.files["in"] = []byte("x")
	if _, err := Import(s, store, col, 999, "in"); !errors.Is(err, dberr.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
