package schema

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/staticdb/staticdb/core/catalog"
	"github.com/staticdb/staticdb/core/dberr"
	"github.com/staticdb/staticdb/core/session"
	"github.com/staticdb/staticdb/internal/logging"
)

// ColumnSpec describes a column to create or the target state of an edit.
//
// Mode selects how values are stored. ModePrimitive uses Primitive;
// ModeReference and ModeChildObject use ReferencedTableOID; the dropdown
// and child table modes create their backing table as part of the column.
type ColumnSpec struct {
	Name               string
	Mode               catalog.Mode
	Primitive          catalog.Primitive
	ReferencedTableOID int64

	// Ordering is the target slot. Nil appends after the last column.
	Ordering   *int64
	Nullable   bool
	Unique     bool
	PrimaryKey bool
	Width      int64
	Style      string
}

// ColumnMetadata is one row of METADATA_TABLE_COLUMN.
type ColumnMetadata struct {
	OID        int64
	TableOID   int64
	Name       string
	TypeOID    int64
	Width      int64
	Ordering   int64
	Style      string
	Nullable   bool
	Unique     bool
	PrimaryKey bool
	Trash      bool
}

// DropdownValue is one selectable value of a dropdown column.
type DropdownValue struct {
	OID   int64
	Value string
}

// CreateColumn adds a column to a table and returns its OID. Dropdown
// modes create their value table (multi-select also the junction table),
// and child table mode creates the child table with its parent link.
//
// Physical data columns are always nullable and carry no UNIQUE index;
// IS_NULLABLE and IS_UNIQUE are enforced when data is read, so a
// constraint edit never has to rewrite stored rows.
func CreateColumn(s *session.Session, tableOID int64, spec ColumnSpec) (int64, error) {
	if spec.Name == "" {
		return 0, dberr.NewValidation("name", "must not be empty")
	}
	if _, err := Metadata(s, tableOID); err != nil {
		return 0, err
	}

	typeOID, err := resolveSpecType(s, tableOID, spec)
	if err != nil {
		return 0, err
	}

	ordering, err := claimOrdering(s, tableOID, spec.Ordering)
	if err != nil {
		return 0, err
	}
	width := spec.Width
	if width == 0 {
		width = 100
	}

	res, err := s.Exec(
		`INSERT INTO METADATA_TABLE_COLUMN
			(TABLE_OID, NAME, TYPE_OID, COLUMN_WIDTH, COLUMN_ORDERING, COLUMN_STYLE, IS_NULLABLE, IS_UNIQUE, IS_PRIMARY_KEY, TRASH)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 0)`,
		tableOID, spec.Name, typeOID, width, ordering, spec.Style,
		boolInt(spec.Nullable), boolInt(spec.Unique), boolInt(spec.PrimaryKey))
	if err != nil {
		return 0, err
	}
	columnOID, err := res.LastInsertId()
	if err != nil {
		return 0, dberr.NewStorage("insert", err)
	}

	ct, err := catalog.Resolve(s, typeOID)
	if err != nil {
		return 0, err
	}
	if err := addPhysicalColumn(s, tableOID, columnOID, ct); err != nil {
		return 0, err
	}
	if ct.Mode == catalog.ModeMultiSelect {
		if err := createJunctionTable(s, tableOID, ct.BackingTableOID); err != nil {
			return 0, err
		}
	}

	if spec.PrimaryKey {
		if err := UpdateSurrogateView(s, tableOID); err != nil {
			return 0, err
		}
	}
	logging.SchemaChange("create column", tableOID)
	return columnOID, nil
}

// resolveSpecType returns the METADATA_TYPE OID a column spec stores as,
// creating backing tables where the mode calls for them.
func resolveSpecType(s *session.Session, tableOID int64, spec ColumnSpec) (int64, error) {
	switch spec.Mode {
	case catalog.ModePrimitive:
		return int64(spec.Primitive), nil
	case catalog.ModeSingleSelect, catalog.ModeMultiSelect:
		return createValueTable(s, spec.Name, spec.Mode)
	case catalog.ModeReference:
		target, err := Metadata(s, spec.ReferencedTableOID)
		if err != nil {
			return 0, err
		}
		if target.Mode != catalog.ModeReference && target.Mode != catalog.ModeChildObject {
			return 0, dberr.NewSchema("table", spec.ReferencedTableOID, "not a referenceable table")
		}
		return spec.ReferencedTableOID, nil
	case catalog.ModeChildObject:
		target, err := Metadata(s, spec.ReferencedTableOID)
		if err != nil {
			return 0, err
		}
		if target.Mode != catalog.ModeChildObject {
			return 0, dberr.NewSchema("table", spec.ReferencedTableOID, "not a child object type")
		}
		return spec.ReferencedTableOID, nil
	case catalog.ModeChildTable:
		return createChildTable(s, spec.Name, tableOID)
	default:
		return 0, dberr.NewUnsupported("column mode", spec.Mode.String())
	}
}

// createValueTable creates the table holding the selectable values of a
// dropdown column.
func createValueTable(s *session.Session, name string, mode catalog.Mode) (int64, error) {
	oid, err := insertTableRecord(s, name, mode, nil)
	if err != nil {
		return 0, err
	}
	_, err = s.Exec(fmt.Sprintf(
		"CREATE TABLE %s (\n\tOID INTEGER PRIMARY KEY,\n\tVALUE TEXT NOT NULL UNIQUE,\n\tTRASH INTEGER NOT NULL DEFAULT 0\n) STRICT",
		catalog.TableName(oid)))
	if err != nil {
		return 0, err
	}
	return oid, nil
}

// createJunctionTable creates the row-to-value table of a multi-select
// column.
func createJunctionTable(s *session.Session, tableOID, backingOID int64) error {
	_, err := s.Exec(fmt.Sprintf(
		"CREATE TABLE %s (\n\tROW_OID INTEGER NOT NULL REFERENCES %s (OID) ON UPDATE CASCADE ON DELETE CASCADE,\n\tVALUE_OID INTEGER NOT NULL REFERENCES %s (OID) ON UPDATE CASCADE ON DELETE CASCADE,\n\tPRIMARY KEY (ROW_OID, VALUE_OID)\n) STRICT",
		catalog.MultiselectTableName(backingOID),
		catalog.TableName(tableOID),
		catalog.TableName(backingOID)))
	return err
}

// createChildTable creates the table behind a child table column. Child
// rows carry PARENT_OID pointing at the owning row.
func createChildTable(s *session.Session, name string, parentTableOID int64) (int64, error) {
	oid, err := insertTableRecord(s, name, catalog.ModeChildTable, &parentTableOID)
	if err != nil {
		return 0, err
	}
	_, err = s.Exec(fmt.Sprintf(
		"CREATE TABLE %s (\n\tOID INTEGER PRIMARY KEY,\n\tTRASH INTEGER NOT NULL DEFAULT 0,\n\tPARENT_OID INTEGER NOT NULL REFERENCES %s (OID) ON UPDATE CASCADE ON DELETE CASCADE\n) STRICT",
		catalog.TableName(oid), catalog.TableName(parentTableOID)))
	if err != nil {
		return 0, err
	}
	if err := UpdateSurrogateView(s, oid); err != nil {
		return 0, err
	}
	return oid, nil
}

// addPhysicalColumn adds the data column for types that occupy one.
func addPhysicalColumn(s *session.Session, tableOID, columnOID int64, ct catalog.ColumnType) error {
	storage, has := catalog.StorageType(ct)
	if !has {
		return nil
	}
	ddl := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s",
		catalog.TableName(tableOID), catalog.ColumnName(columnOID), storage)
	if ct.Mode != catalog.ModePrimitive {
		ddl += fmt.Sprintf(" REFERENCES %s (OID) ON UPDATE CASCADE ON DELETE SET NULL",
			catalog.TableName(ct.BackingTableOID))
	}
	_, err := s.Exec(ddl)
	return err
}

// claimOrdering returns the ordering slot for a new column, shifting
// later columns up when a slot in the middle is requested.
func claimOrdering(s *session.Session, tableOID int64, want *int64) (int64, error) {
	if want == nil {
		var next int64
		if _, err := s.QueryOne(
			`SELECT COALESCE(MAX(COLUMN_ORDERING) + 1, 0) FROM METADATA_TABLE_COLUMN WHERE TABLE_OID = ?`,
			[]any{tableOID}, &next); err != nil {
			return 0, err
		}
		return next, nil
	}
	if _, err := s.Exec(
		`UPDATE METADATA_TABLE_COLUMN SET COLUMN_ORDERING = COLUMN_ORDERING + 1
		 WHERE TABLE_OID = ? AND COLUMN_ORDERING >= ?`,
		tableOID, *want); err != nil {
		return 0, err
	}
	return *want, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// ColumnByOID returns one column's catalog row.
func ColumnByOID(s *session.Session, columnOID int64) (ColumnMetadata, error) {
	var md ColumnMetadata
	found, err := s.QueryOne(
		`SELECT OID, TABLE_OID, NAME, TYPE_OID, COLUMN_WIDTH, COLUMN_ORDERING, COLUMN_STYLE, IS_NULLABLE, IS_UNIQUE, IS_PRIMARY_KEY, TRASH
		 FROM METADATA_TABLE_COLUMN WHERE OID = ?`,
		[]any{columnOID},
		&md.OID, &md.TableOID, &md.Name, &md.TypeOID, &md.Width, &md.Ordering,
		&md.Style, &md.Nullable, &md.Unique, &md.PrimaryKey, &md.Trash)
	if err != nil {
		return ColumnMetadata{}, err
	}
	if !found {
		return ColumnMetadata{}, dberr.NewResource("column", columnOID)
	}
	return md, nil
}

// Columns returns a table's live columns in display order.
func Columns(s *session.Session, tableOID int64) ([]ColumnMetadata, error) {
	var list []ColumnMetadata
	err := s.QueryIterate(
		`SELECT OID, TABLE_OID, NAME, TYPE_OID, COLUMN_WIDTH, COLUMN_ORDERING, COLUMN_STYLE, IS_NULLABLE, IS_UNIQUE, IS_PRIMARY_KEY, TRASH
		 FROM METADATA_TABLE_COLUMN
		 WHERE TABLE_OID = ? AND TRASH = 0
		 ORDER BY COLUMN_ORDERING`,
		[]any{tableOID},
		func(rows *sql.Rows) error {
			var md ColumnMetadata
			if err := rows.Scan(&md.OID, &md.TableOID, &md.Name, &md.TypeOID, &md.Width, &md.Ordering,
				&md.Style, &md.Nullable, &md.Unique, &md.PrimaryKey, &md.Trash); err != nil {
				return err
			}
			list = append(list, md)
			return nil
		})
	if err != nil {
		return nil, err
	}
	return list, nil
}

// EditColumnMetadata updates a column's catalog row and returns the
// previous row so the edit can be reversed with
// RestoreEditedColumnMetadata.
//
// Changing the type converts stored values through a staging table: the
// old column is dropped and re-added with the new storage type, which is
// the only way SQLite changes a column's declared type. Only conversions
// between primitive types are supported.
func EditColumnMetadata(s *session.Session, columnOID int64, spec ColumnSpec) (ColumnMetadata, error) {
	if spec.Name == "" {
		return ColumnMetadata{}, dberr.NewValidation("name", "must not be empty")
	}
	old, err := ColumnByOID(s, columnOID)
	if err != nil {
		return ColumnMetadata{}, err
	}

	newTypeOID := old.TypeOID
	if spec.Mode == catalog.ModePrimitive && int64(spec.Primitive) != old.TypeOID {
		oldCT, err := catalog.Resolve(s, old.TypeOID)
		if err != nil {
			return ColumnMetadata{}, err
		}
		if oldCT.Mode != catalog.ModePrimitive {
			return ColumnMetadata{}, dberr.NewUnsupported("column type change",
				"only primitive types can be converted")
		}
		newTypeOID = int64(spec.Primitive)
		if err := migrateColumnType(s, old.TableOID, columnOID, spec.Primitive); err != nil {
			return ColumnMetadata{}, err
		}
	} else if spec.Mode != catalog.ModePrimitive {
		target := ColumnSpecTypeOID(spec)
		if target != old.TypeOID {
			return ColumnMetadata{}, dberr.NewUnsupported("column type change",
				"only primitive types can be converted")
		}
	}

	if _, err := s.Exec(
		`UPDATE METADATA_TABLE_COLUMN
		 SET NAME = ?, TYPE_OID = ?, COLUMN_STYLE = ?, IS_NULLABLE = ?, IS_UNIQUE = ?, IS_PRIMARY_KEY = ?
		 WHERE OID = ?`,
		spec.Name, newTypeOID, spec.Style,
		boolInt(spec.Nullable), boolInt(spec.Unique), boolInt(spec.PrimaryKey),
		columnOID); err != nil {
		return ColumnMetadata{}, err
	}

	if old.PrimaryKey || spec.PrimaryKey || newTypeOID != old.TypeOID {
		if err := UpdateSurrogateView(s, old.TableOID); err != nil {
			return ColumnMetadata{}, err
		}
	}
	logging.SchemaChange("edit column", old.TableOID)
	return old, nil
}

// ColumnSpecTypeOID returns the type OID a spec names without creating
// anything.
func ColumnSpecTypeOID(spec ColumnSpec) int64 {
	if spec.Mode == catalog.ModePrimitive {
		return int64(spec.Primitive)
	}
	return spec.ReferencedTableOID
}

// RestoreEditedColumnMetadata puts a column's catalog row back to a
// previously captured state.
func RestoreEditedColumnMetadata(s *session.Session, prior ColumnMetadata) error {
	current, err := ColumnByOID(s, prior.OID)
	if err != nil {
		return err
	}
	if current.TypeOID != prior.TypeOID {
		ct, err := catalog.Resolve(s, prior.TypeOID)
		if err != nil {
			return err
		}
		if ct.Mode != catalog.ModePrimitive {
			return dberr.NewUnsupported("column type change",
				"only primitive types can be converted")
		}
		if err := migrateColumnType(s, prior.TableOID, prior.OID, ct.Primitive); err != nil {
			return err
		}
	}
	if _, err := s.Exec(
		`UPDATE METADATA_TABLE_COLUMN
		 SET NAME = ?, TYPE_OID = ?, COLUMN_WIDTH = ?, COLUMN_ORDERING = ?, COLUMN_STYLE = ?, IS_NULLABLE = ?, IS_UNIQUE = ?, IS_PRIMARY_KEY = ?, TRASH = ?
		 WHERE OID = ?`,
		prior.Name, prior.TypeOID, prior.Width, prior.Ordering, prior.Style,
		boolInt(prior.Nullable), boolInt(prior.Unique), boolInt(prior.PrimaryKey), boolInt(prior.Trash),
		prior.OID); err != nil {
		return err
	}
	if current.PrimaryKey || prior.PrimaryKey || current.TypeOID != prior.TypeOID {
		if err := UpdateSurrogateView(s, prior.TableOID); err != nil {
			return err
		}
	}
	return nil
}

// migrateColumnType rewrites a primitive column to a new storage type.
// Values are staged in a throwaway table keyed by row OID, the column is
// dropped and re-added with the new type, and the staged values are cast
// back in.
func migrateColumnType(s *session.Session, tableOID, columnOID int64, to catalog.Primitive) error {
	newCT := catalog.ColumnType{Mode: catalog.ModePrimitive, Primitive: to}
	storage, _ := catalog.StorageType(newCT)

	staging := "MIGRATE_" + strings.ReplaceAll(uuid.NewString(), "-", "_")
	table := catalog.TableName(tableOID)
	column := catalog.ColumnName(columnOID)

	if _, err := s.Exec(fmt.Sprintf(
		`CREATE TABLE %s (OID INTEGER PRIMARY KEY, VALUE ANY) STRICT`, staging)); err != nil {
		return err
	}
	if _, err := s.Exec(fmt.Sprintf(
		`INSERT INTO %s (OID, VALUE) SELECT OID, %s FROM %s WHERE %s IS NOT NULL`,
		staging, column, table, column)); err != nil {
		return err
	}
	if _, err := s.Exec(fmt.Sprintf(`ALTER TABLE %s DROP COLUMN %s`, table, column)); err != nil {
		return err
	}
	if _, err := s.Exec(fmt.Sprintf(
		`ALTER TABLE %s ADD COLUMN %s %s`, table, column, storage)); err != nil {
		return err
	}
	if _, err := s.Exec(fmt.Sprintf(
		`UPDATE %s SET %s = (SELECT CAST(m.VALUE AS %s) FROM %s m WHERE m.OID = %s.OID)
		 WHERE OID IN (SELECT OID FROM %s)`,
		table, column, storage, staging, table, staging)); err != nil {
		return err
	}
	if _, err := s.Exec(`DROP TABLE ` + staging); err != nil {
		return err
	}
	return nil
}

// EditColumnWidth stores a column's display width, returning the prior
// width.
func EditColumnWidth(s *session.Session, columnOID, width int64) (int64, error) {
	old, err := ColumnByOID(s, columnOID)
	if err != nil {
		return 0, err
	}
	if _, err := s.Exec(
		`UPDATE METADATA_TABLE_COLUMN SET COLUMN_WIDTH = ? WHERE OID = ?`,
		width, columnOID); err != nil {
		return 0, err
	}
	return old.Width, nil
}

// Reorder moves a column to a new slot, keeping orderings dense, and
// returns the slot it came from.
func Reorder(s *session.Session, columnOID, newOrdering int64) (int64, error) {
	old, err := ColumnByOID(s, columnOID)
	if err != nil {
		return 0, err
	}
	if newOrdering == old.Ordering {
		return old.Ordering, nil
	}
	if _, err := s.Exec(
		`UPDATE METADATA_TABLE_COLUMN SET COLUMN_ORDERING = COLUMN_ORDERING - 1
		 WHERE TABLE_OID = ? AND COLUMN_ORDERING > ?`,
		old.TableOID, old.Ordering); err != nil {
		return 0, err
	}
	if _, err := s.Exec(
		`UPDATE METADATA_TABLE_COLUMN SET COLUMN_ORDERING = COLUMN_ORDERING + 1
		 WHERE TABLE_OID = ? AND COLUMN_ORDERING >= ? AND OID <> ?`,
		old.TableOID, newOrdering, columnOID); err != nil {
		return 0, err
	}
	if _, err := s.Exec(
		`UPDATE METADATA_TABLE_COLUMN SET COLUMN_ORDERING = ? WHERE OID = ?`,
		newOrdering, columnOID); err != nil {
		return 0, err
	}
	logging.SchemaChange("reorder column", old.TableOID)
	return old.Ordering, nil
}

// MoveColumnTrash trashes a column. Stored data stays in place; the
// column just stops appearing in query plans and display views.
func MoveColumnTrash(s *session.Session, columnOID int64) error {
	return setColumnTrash(s, columnOID, 1, "trash column")
}

// UnmoveColumnTrash restores a trashed column.
func UnmoveColumnTrash(s *session.Session, columnOID int64) error {
	return setColumnTrash(s, columnOID, 0, "restore column")
}

func setColumnTrash(s *session.Session, columnOID int64, trash int, op string) error {
	md, err := ColumnByOID(s, columnOID)
	if err != nil {
		return err
	}
	if _, err := s.Exec(
		`UPDATE METADATA_TABLE_COLUMN SET TRASH = ? WHERE OID = ?`,
		trash, columnOID); err != nil {
		return err
	}
	if md.PrimaryKey {
		if err := UpdateSurrogateView(s, md.TableOID); err != nil {
			return err
		}
	}
	logging.SchemaChange(op, md.TableOID)
	return nil
}

// DropdownValues returns the live selectable values of a dropdown column
// in value order.
func DropdownValues(s *session.Session, columnOID int64) ([]DropdownValue, error) {
	backing, err := dropdownBacking(s, columnOID)
	if err != nil {
		return nil, err
	}
	var values []DropdownValue
	err = s.QueryIterate(
		fmt.Sprintf(`SELECT OID, VALUE FROM %s WHERE TRASH = 0 ORDER BY VALUE`, catalog.TableName(backing)),
		nil,
		func(rows *sql.Rows) error {
			var v DropdownValue
			if err := rows.Scan(&v.OID, &v.Value); err != nil {
				return err
			}
			values = append(values, v)
			return nil
		})
	if err != nil {
		return nil, err
	}
	return values, nil
}

// SetDropdownValues replaces a dropdown column's value list and returns
// the previous one. Values no longer listed are trashed, not deleted, so
// rows holding them keep displaying.
func SetDropdownValues(s *session.Session, columnOID int64, values []string) ([]string, error) {
	backing, err := dropdownBacking(s, columnOID)
	if err != nil {
		return nil, err
	}
	existing, err := DropdownValues(s, columnOID)
	if err != nil {
		return nil, err
	}
	prior := make([]string, len(existing))
	byValue := map[string]int64{}
	for i, v := range existing {
		prior[i] = v.Value
		byValue[v.Value] = v.OID
	}
	wanted := map[string]bool{}
	for _, v := range values {
		wanted[v] = true
	}

	valueTable := catalog.TableName(backing)
	for _, v := range existing {
		if !wanted[v.Value] {
			if _, err := s.Exec(
				fmt.Sprintf(`UPDATE %s SET TRASH = 1 WHERE OID = ?`, valueTable), v.OID); err != nil {
				return nil, err
			}
		}
	}
	for _, v := range values {
		if _, live := byValue[v]; live {
			continue
		}
		var trashedOID int64
		revive, err := s.QueryOne(
			fmt.Sprintf(`SELECT OID FROM %s WHERE VALUE = ?`, valueTable),
			[]any{v}, &trashedOID)
		if err != nil {
			return nil, err
		}
		if revive {
			if _, err := s.Exec(
				fmt.Sprintf(`UPDATE %s SET TRASH = 0 WHERE OID = ?`, valueTable), trashedOID); err != nil {
				return nil, err
			}
			continue
		}
		if _, err := s.Exec(
			fmt.Sprintf(`INSERT INTO %s (VALUE, TRASH) VALUES (?, 0)`, valueTable), v); err != nil {
			return nil, err
		}
	}
	return prior, nil
}

// dropdownBacking resolves a dropdown column to its value table OID.
func dropdownBacking(s *session.Session, columnOID int64) (int64, error) {
	md, err := ColumnByOID(s, columnOID)
	if err != nil {
		return 0, err
	}
	ct, err := catalog.Resolve(s, md.TypeOID)
	if err != nil {
		return 0, err
	}
	if ct.Mode != catalog.ModeSingleSelect && ct.Mode != catalog.ModeMultiSelect {
		return 0, dberr.NewSchema("column", columnOID, "not a dropdown column")
	}
	return ct.BackingTableOID, nil
}
