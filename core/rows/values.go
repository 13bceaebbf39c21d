package rows

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/staticdb/staticdb/core/catalog"
	"github.com/staticdb/staticdb/core/dberr"
	"github.com/staticdb/staticdb/core/schema"
	"github.com/staticdb/staticdb/core/session"
	"github.com/staticdb/staticdb/internal/logging"
)

// UpdatePrimitiveValue writes a cell from its text form, converting to
// the column's storage representation, and returns the prior stored
// value as text. A nil value stores NULL. Multi-select and child table
// columns have no cell to write; blob columns are written through the
// blob import path.
func UpdatePrimitiveValue(s *session.Session, columnOID, rowOID int64, value *string) (sql.NullString, error) {
	md, err := schema.ColumnByOID(s, columnOID)
	if err != nil {
		return sql.NullString{}, err
	}
	ct, err := catalog.Resolve(s, md.TypeOID)
	if err != nil {
		return sql.NullString{}, err
	}
	if !ct.HasPhysicalColumn() {
		return sql.NullString{}, dberr.NewUnsupported("value update", ct.Mode.String()+" columns have no cell")
	}
	if ct.IsBlob() {
		return sql.NullString{}, dberr.NewUnsupported("value update", "blob columns are written via import")
	}

	table := catalog.TableName(md.TableOID)
	column := catalog.ColumnName(columnOID)

	var prior sql.NullString
	found, err := s.QueryOne(
		fmt.Sprintf(`SELECT CAST(%s AS TEXT) FROM %s WHERE OID = ?`, column, table),
		[]any{rowOID}, &prior)
	if err != nil {
		return sql.NullString{}, err
	}
	if !found {
		return sql.NullString{}, dberr.NewResource("row", rowOID)
	}

	var stored any
	if value != nil {
		stored, err = convertValue(ct, *value)
		if err != nil {
			return sql.NullString{}, err
		}
	}
	if _, err := s.Exec(
		fmt.Sprintf(`UPDATE %s SET %s = ? WHERE OID = ?`, table, column), stored, rowOID); err != nil {
		return sql.NullString{}, err
	}
	logging.RowChange("update value", md.TableOID, rowOID)
	return prior, nil
}

// convertValue turns a cell's text form into its storage representation.
func convertValue(ct catalog.ColumnType, text string) (any, error) {
	if ct.Mode != catalog.ModePrimitive {
		// single select, reference and child object cells store a row OID
		oid, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return nil, dberr.NewValidation("value", "not a row OID: "+text)
		}
		return oid, nil
	}
	switch ct.Primitive {
	case catalog.PrimitiveBoolean:
		switch strings.ToLower(text) {
		case "true", "1":
			return int64(1), nil
		case "false", "0":
			return int64(0), nil
		}
		return nil, dberr.NewValidation("value", "not a boolean: "+text)
	case catalog.PrimitiveInteger:
		if n, err := strconv.ParseInt(text, 10, 64); err == nil {
			return n, nil
		}
		// a fractional input truncates toward zero
		if f, err := strconv.ParseFloat(text, 64); err == nil {
			return int64(f), nil
		}
		return nil, dberr.NewValidation("value", "not an integer: "+text)
	case catalog.PrimitiveNumber:
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, dberr.NewValidation("value", "not a number: "+text)
		}
		return f, nil
	case catalog.PrimitiveDate:
		t, err := time.Parse("2006-01-02", text)
		if err != nil {
			return nil, dberr.NewValidation("value", "not a date: "+text)
		}
		return t.Unix(), nil
	case catalog.PrimitiveTimestamp:
		t, err := time.Parse(time.RFC3339, text)
		if err != nil {
			return nil, dberr.NewValidation("value", "not a timestamp: "+text)
		}
		return t.Unix(), nil
	case catalog.PrimitiveJSON:
		if !json.Valid([]byte(text)) {
			return nil, dberr.NewValidation("value", "not valid JSON")
		}
		return text, nil
	default:
		// Null and Text store the text as given
		return text, nil
	}
}

// SetObjectValue creates a row of a child object column's type and points
// the cell at it, returning the new object row's OID.
func SetObjectValue(s *session.Session, columnOID, rowOID int64) (int64, error) {
	md, ct, err := objectColumn(s, columnOID)
	if err != nil {
		return 0, err
	}

	objectRow, err := insertInPlace(s, ct.BackingTableOID, nil, nil, nil)
	if err != nil {
		return 0, err
	}
	if _, err := s.Exec(
		fmt.Sprintf(`UPDATE %s SET %s = ? WHERE OID = ?`,
			catalog.TableName(md.TableOID), catalog.ColumnName(columnOID)),
		objectRow, rowOID); err != nil {
		return 0, err
	}
	logging.RowChange("set object", md.TableOID, rowOID)
	return objectRow, nil
}

// UnsetObjectValue clears a child object cell and trashes the object row
// it pointed at, returning that row's OID so the unset can be reversed.
func UnsetObjectValue(s *session.Session, columnOID, rowOID int64) (int64, error) {
	md, ct, err := objectColumn(s, columnOID)
	if err != nil {
		return 0, err
	}

	var objectRow sql.NullInt64
	found, err := s.QueryOne(
		fmt.Sprintf(`SELECT %s FROM %s WHERE OID = ?`,
			catalog.ColumnName(columnOID), catalog.TableName(md.TableOID)),
		[]any{rowOID}, &objectRow)
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, dberr.NewResource("row", rowOID)
	}
	if !objectRow.Valid {
		return 0, nil
	}

	if _, err := s.Exec(
		fmt.Sprintf(`UPDATE %s SET %s = NULL WHERE OID = ?`,
			catalog.TableName(md.TableOID), catalog.ColumnName(columnOID)),
		rowOID); err != nil {
		return 0, err
	}
	if _, _, err := Trash(s, ct.BackingTableOID, objectRow.Int64); err != nil {
		return 0, err
	}
	logging.RowChange("unset object", md.TableOID, rowOID)
	return objectRow.Int64, nil
}

// RestoreObjectValue reverses an unset: the trashed object row comes
// back and the cell points at it again.
func RestoreObjectValue(s *session.Session, columnOID, rowOID, objectOID int64) error {
	md, ct, err := objectColumn(s, columnOID)
	if err != nil {
		return err
	}
	if err := Untrash(s, ct.BackingTableOID, objectOID); err != nil {
		return err
	}
	if _, err := s.Exec(
		fmt.Sprintf(`UPDATE %s SET %s = ? WHERE OID = ?`,
			catalog.TableName(md.TableOID), catalog.ColumnName(columnOID)),
		objectOID, rowOID); err != nil {
		return err
	}
	logging.RowChange("restore object", md.TableOID, rowOID)
	return nil
}

func objectColumn(s *session.Session, columnOID int64) (schema.ColumnMetadata, catalog.ColumnType, error) {
	md, err := schema.ColumnByOID(s, columnOID)
	if err != nil {
		return schema.ColumnMetadata{}, catalog.ColumnType{}, err
	}
	ct, err := catalog.Resolve(s, md.TypeOID)
	if err != nil {
		return schema.ColumnMetadata{}, catalog.ColumnType{}, err
	}
	if ct.Mode != catalog.ModeChildObject {
		return schema.ColumnMetadata{}, catalog.ColumnType{}, dberr.NewSchema("column", columnOID, "not a child object column")
	}
	return md, ct, nil
}

// SetMultiselect replaces the selected values of a multi-select cell and
// returns the previously selected value OIDs.
func SetMultiselect(s *session.Session, columnOID, rowOID int64, valueOIDs []int64) ([]int64, error) {
	md, err := schema.ColumnByOID(s, columnOID)
	if err != nil {
		return nil, err
	}
	ct, err := catalog.Resolve(s, md.TypeOID)
	if err != nil {
		return nil, err
	}
	if ct.Mode != catalog.ModeMultiSelect {
		return nil, dberr.NewSchema("column", columnOID, "not a multi select column")
	}

	junction := catalog.MultiselectTableName(ct.BackingTableOID)
	prior, err := collectRowOIDs(s,
		fmt.Sprintf(`SELECT VALUE_OID FROM %s WHERE ROW_OID = ? ORDER BY VALUE_OID`, junction),
		rowOID)
	if err != nil {
		return nil, err
	}

	if _, err := s.Exec(
		fmt.Sprintf(`DELETE FROM %s WHERE ROW_OID = ?`, junction), rowOID); err != nil {
		return nil, err
	}
	for _, v := range valueOIDs {
		if _, err := s.Exec(
			fmt.Sprintf(`INSERT INTO %s (ROW_OID, VALUE_OID) VALUES (?, ?)`, junction),
			rowOID, v); err != nil {
			return nil, err
		}
	}
	logging.RowChange("set multiselect", md.TableOID, rowOID)
	return prior, nil
}
