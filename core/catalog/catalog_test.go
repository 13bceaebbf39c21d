package catalog

import (
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/staticdb/staticdb/core/dberr"
	"github.com/staticdb/staticdb/core/sqlite"
)

// testDB wraps *sql.DB with the Queryer/Execer surface under test.
type testDB struct {
	db *sql.DB
}

func (t *testDB) Exec(query string, args ...any) (sql.Result, error) {
	return t.db.Exec(query, args...)
}

func (t *testDB) QueryOne(query string, args []any, dest ...any) (bool, error) {
	err := t.db.QueryRow(query, args...).Scan(dest...)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func openBootstrapped(t *testing.T) *testDB {
	t.Helper()
	db, err := sqlite.Open(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	tdb := &testDB{db: db}
	if err := Bootstrap(tdb); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	return tdb
}

func TestBootstrapSeedsPrimitives(t *testing.T) {
	tdb := openBootstrapped(t)

	var count int
	found, err := tdb.QueryOne(`SELECT COUNT(*) FROM METADATA_TYPE WHERE MODE = 0`, nil, &count)
	if err != nil || !found {
		t.Fatalf("count query: found=%v err=%v", found, err)
	}
	if count != 10 {
		t.Errorf("expected 10 seeded primitive types, got %d", count)
	}
}

func TestResolvePrimitives(t *testing.T) {
	tdb := openBootstrapped(t)

	tests := []struct {
		oid  int64
		want Primitive
	}{
		{0, PrimitiveNull},
		{1, PrimitiveBoolean},
		{2, PrimitiveInteger},
		{3, PrimitiveNumber},
		{4, PrimitiveDate},
		{5, PrimitiveTimestamp},
		{6, PrimitiveText},
		{7, PrimitiveJSON},
		{8, PrimitiveBlob},
		{9, PrimitiveImageBlob},
	}
	for _, tt := range tests {
		t.Run(tt.want.String(), func(t *testing.T) {
			ct, err := Resolve(tdb, tt.oid)
			if err != nil {
				t.Fatalf("Resolve(%d): %v", tt.oid, err)
			}
			if ct.Mode != ModePrimitive {
				t.Errorf("Mode = %v, want primitive", ct.Mode)
			}
			if ct.Primitive != tt.want {
				t.Errorf("Primitive = %v, want %v", ct.Primitive, tt.want)
			}
			if ct.TypeOID() != tt.oid {
				t.Errorf("TypeOID() = %d, want %d", ct.TypeOID(), tt.oid)
			}
		})
	}
}

func TestResolveTableBackedModes(t *testing.T) {
	tdb := openBootstrapped(t)

	tests := []struct {
		oid  int64
		mode Mode
	}{
		{10, ModeSingleSelect},
		{11, ModeMultiSelect},
		{12, ModeReference},
		{13, ModeChildObject},
		{14, ModeChildTable},
	}
	for _, tt := range tests {
		if _, err := tdb.Exec(`INSERT INTO METADATA_TYPE (OID, MODE) VALUES (?, ?)`, tt.oid, int(tt.mode)); err != nil {
			t.Fatalf("seed type %d: %v", tt.oid, err)
		}
	}

	for _, tt := range tests {
		t.Run(tt.mode.String(), func(t *testing.T) {
			ct, err := Resolve(tdb, tt.oid)
			if err != nil {
				t.Fatalf("Resolve(%d): %v", tt.oid, err)
			}
			if ct.Mode != tt.mode {
				t.Errorf("Mode = %v, want %v", ct.Mode, tt.mode)
			}
			if ct.BackingTableOID != tt.oid {
				t.Errorf("BackingTableOID = %d, want %d", ct.BackingTableOID, tt.oid)
			}
			if ct.TypeOID() != tt.oid {
				t.Errorf("TypeOID() = %d, want %d", ct.TypeOID(), tt.oid)
			}
		})
	}
}

func TestResolveUnknownType(t *testing.T) {
	tdb := openBootstrapped(t)

	_, err := Resolve(tdb, 999)
	if !errors.Is(err, dberr.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestResolveBadMode(t *testing.T) {
	tdb := openBootstrapped(t)

	if _, err := tdb.Exec(`INSERT INTO METADATA_TYPE (OID, MODE) VALUES (50, 9)`); err != nil {
		t.Fatalf("seed: %v", err)
	}
	_, err := Resolve(tdb, 50)
	if !errors.Is(err, dberr.ErrUnsupported) {
		t.Errorf("expected ErrUnsupported, got %v", err)
	}
}

func TestStorageType(t *testing.T) {
	tests := []struct {
		name    string
		ct      ColumnType
		want    string
		wantCol bool
	}{
		{"boolean", ColumnType{Mode: ModePrimitive, Primitive: PrimitiveBoolean}, "INTEGER", true},
		{"integer", ColumnType{Mode: ModePrimitive, Primitive: PrimitiveInteger}, "INTEGER", true},
		{"number", ColumnType{Mode: ModePrimitive, Primitive: PrimitiveNumber}, "REAL", true},
		{"date", ColumnType{Mode: ModePrimitive, Primitive: PrimitiveDate}, "INTEGER", true},
		{"timestamp", ColumnType{Mode: ModePrimitive, Primitive: PrimitiveTimestamp}, "INTEGER", true},
		{"text", ColumnType{Mode: ModePrimitive, Primitive: PrimitiveText}, "TEXT", true},
		{"json", ColumnType{Mode: ModePrimitive, Primitive: PrimitiveJSON}, "TEXT", true},
		{"blob", ColumnType{Mode: ModePrimitive, Primitive: PrimitiveBlob}, "BLOB", true},
		{"null", ColumnType{Mode: ModePrimitive, Primitive: PrimitiveNull}, "ANY", true},
		{"single select", ColumnType{Mode: ModeSingleSelect, BackingTableOID: 10}, "INTEGER", true},
		{"reference", ColumnType{Mode: ModeReference, BackingTableOID: 12}, "INTEGER", true},
		{"child object", ColumnType{Mode: ModeChildObject, BackingTableOID: 13}, "INTEGER", true},
		{"multi select", ColumnType{Mode: ModeMultiSelect, BackingTableOID: 11}, "", false},
		{"child table", ColumnType{Mode: ModeChildTable, BackingTableOID: 14}, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, hasCol := StorageType(tt.ct)
			if got != tt.want || hasCol != tt.wantCol {
				t.Errorf("StorageType() = (%q, %v), want (%q, %v)", got, hasCol, tt.want, tt.wantCol)
			}
			if tt.ct.HasPhysicalColumn() != tt.wantCol {
				t.Errorf("HasPhysicalColumn() = %v, want %v", tt.ct.HasPhysicalColumn(), tt.wantCol)
			}
		})
	}
}

func TestIsBlob(t *testing.T) {
	if !(ColumnType{Mode: ModePrimitive, Primitive: PrimitiveBlob}).IsBlob() {
		t.Error("Blob should be a blob type")
	}
	if !(ColumnType{Mode: ModePrimitive, Primitive: PrimitiveImageBlob}).IsBlob() {
		t.Error("ImageBlob should be a blob type")
	}
	if (ColumnType{Mode: ModePrimitive, Primitive: PrimitiveText}).IsBlob() {
		t.Error("Text should not be a blob type")
	}
	if (ColumnType{Mode: ModeReference, BackingTableOID: 12}).IsBlob() {
		t.Error("reference should not be a blob type")
	}
}

func TestNaming(t *testing.T) {
	tests := []struct {
		got  string
		want string
	}{
		{TableName(12), "TABLE12"},
		{ColumnName(7), "COLUMN7"},
		{SurrogateViewName(12), "TABLE12_SURROGATE"},
		{MultiselectTableName(15), "TABLE15_MULTISELECT"},
		{MasterColumnName(3), "MASTER3_OID"},
		{SavepointName(4), "save4"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("got %q, want %q", tt.got, tt.want)
		}
	}
}
