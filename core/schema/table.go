package schema

import (
	"database/sql"
	"fmt"

	"github.com/staticdb/staticdb/core/catalog"
	"github.com/staticdb/staticdb/core/dberr"
	"github.com/staticdb/staticdb/core/session"
	"github.com/staticdb/staticdb/internal/logging"
)

// TableMetadata is one catalog entry of METADATA_TABLE joined with its
// type record and live master list.
type TableMetadata struct {
	OID                   int64
	Name                  string
	Mode                  catalog.Mode
	ParentOID             sql.NullInt64
	SurrogateKeyColumnOID sql.NullInt64
	Trash                 bool
	Masters               []int64
}

// TableOption is a candidate entry for a selection list.
type TableOption struct {
	OID  int64
	Name string
}

// CreateTable creates a user table with the given masters and returns its
// OID.
func CreateTable(s *session.Session, name string, masters []int64) (int64, error) {
	return createTable(s, name, catalog.ModeReference, nil, masters)
}

// CreateObjectTable creates a table usable as a child object type.
func CreateObjectTable(s *session.Session, name string, masters []int64) (int64, error) {
	return createTable(s, name, catalog.ModeChildObject, nil, masters)
}

func createTable(s *session.Session, name string, mode catalog.Mode, parentOID *int64, masters []int64) (int64, error) {
	if name == "" {
		return 0, dberr.NewValidation("name", "must not be empty")
	}
	for _, m := range masters {
		if _, err := Metadata(s, m); err != nil {
			return 0, err
		}
	}

	oid, err := insertTableRecord(s, name, mode, parentOID)
	if err != nil {
		return 0, err
	}
	for _, m := range masters {
		if _, err := s.Exec(
			`INSERT INTO METADATA_TABLE_INHERITANCE (INHERITOR_TABLE_OID, MASTER_TABLE_OID, TRASH) VALUES (?, ?, 0)`,
			oid, m); err != nil {
			return 0, err
		}
	}
	if err := createPhysicalTable(s, oid, masters); err != nil {
		return 0, err
	}
	if err := UpdateSurrogateView(s, oid); err != nil {
		return 0, err
	}
	logging.SchemaChange("create table", oid)
	return oid, nil
}

// insertTableRecord allocates the next type OID and inserts the catalog
// rows for a new table. The physical table is not created.
func insertTableRecord(s *session.Session, name string, mode catalog.Mode, parentOID *int64) (int64, error) {
	var next int64
	if _, err := s.QueryOne(
		`SELECT COALESCE(MAX(OID) + 1, ?) FROM METADATA_TYPE`,
		[]any{int64(catalog.FirstTableOID)}, &next); err != nil {
		return 0, err
	}
	if next < catalog.FirstTableOID {
		next = catalog.FirstTableOID
	}
	if _, err := s.Exec(
		`INSERT INTO METADATA_TYPE (OID, MODE) VALUES (?, ?)`,
		next, int(mode)); err != nil {
		return 0, err
	}
	var parent any
	if parentOID != nil {
		parent = *parentOID
	}
	if _, err := s.Exec(
		`INSERT INTO METADATA_TABLE (TYPE_OID, PARENT_OID, NAME, TRASH) VALUES (?, ?, ?, 0)`,
		next, parent, name); err != nil {
		return 0, err
	}
	return next, nil
}

// createPhysicalTable creates the backing table. Master columns stay
// nullable: removing a master keeps the physical column, and inserts
// fill only the live edges.
func createPhysicalTable(s *session.Session, oid int64, masters []int64) error {
	ddl := fmt.Sprintf("CREATE TABLE %s (\n\tOID INTEGER PRIMARY KEY,\n\tTRASH INTEGER NOT NULL DEFAULT 0", catalog.TableName(oid))
	for _, m := range masters {
		ddl += fmt.Sprintf(",\n\t%s INTEGER REFERENCES %s (OID) ON UPDATE CASCADE ON DELETE CASCADE",
			catalog.MasterColumnName(m), catalog.TableName(m))
	}
	ddl += "\n) STRICT"
	_, err := s.Exec(ddl)
	return err
}

// EditTableMetadata renames a table and reconciles its master list. It
// returns the previous name and master list so the edit can be undone at
// the metadata level.
//
// A removed master trashes the inheritance edge but keeps the physical
// column. An added master revives a trashed edge when one exists;
// otherwise the column is added nullable and every existing row is
// backfilled with a freshly inserted master chain row.
func EditTableMetadata(s *session.Session, tableOID int64, name string, masters []int64) (string, []int64, error) {
	if name == "" {
		return "", nil, dberr.NewValidation("name", "must not be empty")
	}
	var oldName string
	found, err := s.QueryOne(
		`SELECT NAME FROM METADATA_TABLE WHERE TYPE_OID = ?`,
		[]any{tableOID}, &oldName)
	if err != nil {
		return "", nil, err
	}
	if !found {
		return "", nil, dberr.NewResource("table", tableOID)
	}
	oldMasters, err := Masters(s, tableOID)
	if err != nil {
		return "", nil, err
	}

	descendants, err := InheritorClosure(s, tableOID)
	if err != nil {
		return "", nil, err
	}
	below := map[int64]bool{}
	for _, d := range descendants {
		below[d] = true
	}
	for _, m := range masters {
		if below[m] {
			return "", nil, dberr.NewCycle(m)
		}
	}

	if _, err := s.Exec(
		`UPDATE METADATA_TABLE SET NAME = ? WHERE TYPE_OID = ?`,
		name, tableOID); err != nil {
		return "", nil, err
	}

	keep := map[int64]bool{}
	for _, m := range masters {
		keep[m] = true
	}
	for _, m := range oldMasters {
		if keep[m] {
			continue
		}
		if _, err := s.Exec(
			`UPDATE METADATA_TABLE_INHERITANCE SET TRASH = 1
			 WHERE INHERITOR_TABLE_OID = ? AND MASTER_TABLE_OID = ?`,
			tableOID, m); err != nil {
			return "", nil, err
		}
	}

	had := map[int64]bool{}
	for _, m := range oldMasters {
		had[m] = true
	}
	for _, m := range masters {
		if had[m] {
			continue
		}
		if err := addMaster(s, tableOID, m); err != nil {
			return "", nil, err
		}
	}

	if err := UpdateSurrogateView(s, tableOID); err != nil {
		return "", nil, err
	}
	logging.SchemaChange("edit table", tableOID)
	return oldName, oldMasters, nil
}

// addMaster wires one new master below an existing table.
func addMaster(s *session.Session, tableOID, masterOID int64) error {
	var trashed int
	revive, err := s.QueryOne(
		`SELECT TRASH FROM METADATA_TABLE_INHERITANCE
		 WHERE INHERITOR_TABLE_OID = ? AND MASTER_TABLE_OID = ?`,
		[]any{tableOID, masterOID}, &trashed)
	if err != nil {
		return err
	}
	if revive {
		_, err := s.Exec(
			`UPDATE METADATA_TABLE_INHERITANCE SET TRASH = 0
			 WHERE INHERITOR_TABLE_OID = ? AND MASTER_TABLE_OID = ?`,
			tableOID, masterOID)
		return err
	}

	if _, err := s.Exec(
		`INSERT INTO METADATA_TABLE_INHERITANCE (INHERITOR_TABLE_OID, MASTER_TABLE_OID, TRASH) VALUES (?, ?, 0)`,
		tableOID, masterOID); err != nil {
		return err
	}
	if _, err := s.Exec(fmt.Sprintf(
		"ALTER TABLE %s ADD COLUMN %s INTEGER REFERENCES %s (OID) ON UPDATE CASCADE ON DELETE CASCADE",
		catalog.TableName(tableOID), catalog.MasterColumnName(masterOID), catalog.TableName(masterOID))); err != nil {
		return err
	}

	rowOIDs, err := collectOIDs(s,
		fmt.Sprintf(`SELECT OID FROM %s ORDER BY OID`, catalog.TableName(tableOID)))
	if err != nil {
		return err
	}
	for _, rowOID := range rowOIDs {
		masterRowOID, err := insertMasterChainRow(s, masterOID)
		if err != nil {
			return err
		}
		if _, err := s.Exec(fmt.Sprintf(
			`UPDATE %s SET %s = ? WHERE OID = ?`,
			catalog.TableName(tableOID), catalog.MasterColumnName(masterOID)),
			masterRowOID, rowOID); err != nil {
			return err
		}
	}
	return nil
}

// insertMasterChainRow inserts one row into masterOID and, recursively,
// into each of its masters first, returning the new row's OID.
func insertMasterChainRow(s *session.Session, masterOID int64) (int64, error) {
	masters, err := Masters(s, masterOID)
	if err != nil {
		return 0, err
	}
	cols := "TRASH"
	vals := "0"
	args := []any{}
	for _, m := range masters {
		upOID, err := insertMasterChainRow(s, m)
		if err != nil {
			return 0, err
		}
		cols += ", " + catalog.MasterColumnName(m)
		vals += ", ?"
		args = append(args, upOID)
	}
	res, err := s.Exec(fmt.Sprintf(
		`INSERT INTO %s (%s) VALUES (%s)`, catalog.TableName(masterOID), cols, vals), args...)
	if err != nil {
		return 0, err
	}
	oid, err := res.LastInsertId()
	if err != nil {
		return 0, dberr.NewStorage("insert", err)
	}
	return oid, nil
}

// MoveTrash marks a table and its master edges as trashed.
func MoveTrash(s *session.Session, tableOID int64) error {
	return setTableTrash(s, tableOID, 1, "trash table")
}

// UnmoveTrash restores a trashed table and its master edges.
func UnmoveTrash(s *session.Session, tableOID int64) error {
	return setTableTrash(s, tableOID, 0, "restore table")
}

func setTableTrash(s *session.Session, tableOID int64, trash int, op string) error {
	var exists int64
	found, err := s.QueryOne(
		`SELECT TYPE_OID FROM METADATA_TABLE WHERE TYPE_OID = ?`,
		[]any{tableOID}, &exists)
	if err != nil {
		return err
	}
	if !found {
		return dberr.NewResource("table", tableOID)
	}
	if _, err := s.Exec(
		`UPDATE METADATA_TABLE SET TRASH = ? WHERE TYPE_OID = ?`,
		trash, tableOID); err != nil {
		return err
	}
	if _, err := s.Exec(
		`UPDATE METADATA_TABLE_INHERITANCE SET TRASH = ? WHERE INHERITOR_TABLE_OID = ?`,
		trash, tableOID); err != nil {
		return err
	}
	logging.SchemaChange(op, tableOID)
	return nil
}

// DeleteTable permanently removes a table: its backing objects, its
// dropdown value and junction tables, and its child tables. Columns in
// other tables typed as this table are trashed and their display views
// rebuilt. A table that still has inheritors cannot be deleted.
func DeleteTable(s *session.Session, tableOID int64) error {
	if _, err := Metadata(s, tableOID); err != nil {
		return err
	}
	inheritors, err := Inheritors(s, tableOID)
	if err != nil {
		return err
	}
	if len(inheritors) > 0 {
		return dberr.NewSchema("table", tableOID, "table still has inheritors")
	}

	type ownedColumn struct {
		oid     int64
		typeOID int64
	}
	var cols []ownedColumn
	err = s.QueryIterate(
		`SELECT OID, TYPE_OID FROM METADATA_TABLE_COLUMN WHERE TABLE_OID = ?`,
		[]any{tableOID},
		func(rows *sql.Rows) error {
			var c ownedColumn
			if err := rows.Scan(&c.oid, &c.typeOID); err != nil {
				return err
			}
			cols = append(cols, c)
			return nil
		})
	if err != nil {
		return err
	}

	for _, c := range cols {
		ct, err := catalog.Resolve(s, c.typeOID)
		if err != nil {
			return err
		}
		switch ct.Mode {
		case catalog.ModeSingleSelect:
			if err := deleteBackingTable(s, ct.BackingTableOID); err != nil {
				return err
			}
		case catalog.ModeMultiSelect:
			if _, err := s.Exec(`DROP TABLE IF EXISTS ` + catalog.MultiselectTableName(ct.BackingTableOID)); err != nil {
				return err
			}
			if err := deleteBackingTable(s, ct.BackingTableOID); err != nil {
				return err
			}
		case catalog.ModeChildTable:
			if err := DeleteTable(s, ct.BackingTableOID); err != nil {
				return err
			}
		}
	}

	// columns elsewhere typed as this table cannot display anymore
	affected, err := collectOIDs(s,
		`SELECT DISTINCT TABLE_OID FROM METADATA_TABLE_COLUMN
		 WHERE TYPE_OID = ? AND TABLE_OID <> ?`,
		tableOID, tableOID)
	if err != nil {
		return err
	}
	if _, err := s.Exec(
		`UPDATE METADATA_TABLE_COLUMN SET TRASH = 1 WHERE TYPE_OID = ?`,
		tableOID); err != nil {
		return err
	}

	if _, err := s.Exec(`DROP VIEW IF EXISTS ` + catalog.SurrogateViewName(tableOID)); err != nil {
		return err
	}
	if _, err := s.Exec(`DROP TABLE IF EXISTS ` + catalog.TableName(tableOID)); err != nil {
		return err
	}
	if _, err := s.Exec(`DELETE FROM METADATA_TABLE_COLUMN WHERE TABLE_OID = ?`, tableOID); err != nil {
		return err
	}
	if _, err := s.Exec(
		`DELETE FROM METADATA_TABLE_INHERITANCE WHERE INHERITOR_TABLE_OID = ? OR MASTER_TABLE_OID = ?`,
		tableOID, tableOID); err != nil {
		return err
	}
	if _, err := s.Exec(`DELETE FROM METADATA_TABLE WHERE TYPE_OID = ?`, tableOID); err != nil {
		return err
	}
	if _, err := s.Exec(`DELETE FROM METADATA_TYPE WHERE OID = ?`, tableOID); err != nil {
		return err
	}

	for _, t := range affected {
		if err := UpdateSurrogateView(s, t); err != nil {
			return err
		}
	}
	logging.SchemaChange("delete table", tableOID)
	return nil
}

// deleteBackingTable removes a dropdown value table and its catalog rows.
func deleteBackingTable(s *session.Session, backingOID int64) error {
	if _, err := s.Exec(`DROP TABLE IF EXISTS ` + catalog.TableName(backingOID)); err != nil {
		return err
	}
	if _, err := s.Exec(`DELETE FROM METADATA_TABLE WHERE TYPE_OID = ?`, backingOID); err != nil {
		return err
	}
	_, err := s.Exec(`DELETE FROM METADATA_TYPE WHERE OID = ?`, backingOID)
	return err
}

// Metadata returns the catalog entry for one table.
func Metadata(s *session.Session, tableOID int64) (TableMetadata, error) {
	var (
		md   TableMetadata
		mode int
	)
	found, err := s.QueryOne(
		`SELECT t.TYPE_OID, t.NAME, y.MODE, t.PARENT_OID, t.SURROGATE_KEY_COLUMN_OID, t.TRASH
		 FROM METADATA_TABLE t
		 INNER JOIN METADATA_TYPE y ON y.OID = t.TYPE_OID
		 WHERE t.TYPE_OID = ?`,
		[]any{tableOID},
		&md.OID, &md.Name, &mode, &md.ParentOID, &md.SurrogateKeyColumnOID, &md.Trash)
	if err != nil {
		return TableMetadata{}, err
	}
	if !found {
		return TableMetadata{}, dberr.NewResource("table", tableOID)
	}
	md.Mode = catalog.Mode(mode)
	md.Masters, err = Masters(s, tableOID)
	if err != nil {
		return TableMetadata{}, err
	}
	return md, nil
}

// MetadataList returns every live table, ordered by name.
func MetadataList(s *session.Session) ([]TableMetadata, error) {
	var list []TableMetadata
	err := s.QueryIterate(
		`SELECT t.TYPE_OID, t.NAME, y.MODE, t.PARENT_OID, t.SURROGATE_KEY_COLUMN_OID, t.TRASH
		 FROM METADATA_TABLE t
		 INNER JOIN METADATA_TYPE y ON y.OID = t.TYPE_OID
		 WHERE t.TRASH = 0
		 ORDER BY t.NAME`,
		nil,
		func(rows *sql.Rows) error {
			var (
				md   TableMetadata
				mode int
			)
			if err := rows.Scan(&md.OID, &md.Name, &mode, &md.ParentOID, &md.SurrogateKeyColumnOID, &md.Trash); err != nil {
				return err
			}
			md.Mode = catalog.Mode(mode)
			list = append(list, md)
			return nil
		})
	if err != nil {
		return nil, err
	}
	for i := range list {
		masters, err := Masters(s, list[i].OID)
		if err != nil {
			return nil, err
		}
		list[i].Masters = masters
	}
	return list, nil
}

// MasterListOptions returns the tables that may serve as masters for
// tableOID: live user tables (only child object types when objectOnly),
// excluding the table itself and everything below it, which would close
// an inheritance loop.
func MasterListOptions(s *session.Session, tableOID int64, objectOnly bool) ([]TableOption, error) {
	excluded := map[int64]bool{}
	if tableOID != 0 {
		descendants, err := InheritorClosure(s, tableOID)
		if err != nil {
			return nil, err
		}
		for _, d := range descendants {
			excluded[d] = true
		}
	}

	modeFilter := `y.MODE IN (3, 4)`
	if objectOnly {
		modeFilter = `y.MODE = 4`
	}
	var options []TableOption
	err := s.QueryIterate(
		`SELECT t.TYPE_OID, t.NAME
		 FROM METADATA_TABLE t
		 INNER JOIN METADATA_TYPE y ON y.OID = t.TYPE_OID
		 WHERE t.TRASH = 0 AND `+modeFilter+`
		 ORDER BY t.NAME`,
		nil,
		func(rows *sql.Rows) error {
			var o TableOption
			if err := rows.Scan(&o.OID, &o.Name); err != nil {
				return err
			}
			if !excluded[o.OID] {
				options = append(options, o)
			}
			return nil
		})
	if err != nil {
		return nil, err
	}
	return options, nil
}
