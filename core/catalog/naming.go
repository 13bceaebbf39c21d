package catalog

import "fmt"

// Physical identifier synthesis. Only OIDs formatted with %d ever enter
// an identifier, so user text can never reach a DDL statement.

// TableName returns the physical table name for a table OID.
func TableName(oid int64) string {
	return fmt.Sprintf("TABLE%d", oid)
}

// ColumnName returns the physical column name for a column OID.
func ColumnName(oid int64) string {
	return fmt.Sprintf("COLUMN%d", oid)
}

// SurrogateViewName returns the display view name for a table OID.
func SurrogateViewName(oid int64) string {
	return fmt.Sprintf("TABLE%d_SURROGATE", oid)
}

// MultiselectTableName returns the junction table name for a
// multi-select type. The OID is the backing value table's OID.
func MultiselectTableName(tableOID int64) string {
	return fmt.Sprintf("TABLE%d_MULTISELECT", tableOID)
}

// MasterColumnName returns the name of the column pairing a subtype row
// with its row in the master table.
func MasterColumnName(masterOID int64) string {
	return fmt.Sprintf("MASTER%d_OID", masterOID)
}

// SavepointName returns the name of the n-th undo savepoint.
func SavepointName(n int) string {
	return fmt.Sprintf("save%d", n)
}
