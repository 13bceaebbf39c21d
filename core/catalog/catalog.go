// Package catalog maps catalog type OIDs to column behavior and owns the
// synthesis of every physical SQLite identifier.
//
// A type OID below FirstTableOID names a seeded primitive type. Any other
// type OID is the OID of a backing table: a dropdown value table, a
// referenced table, a child object type, or a child table. The MODE column
// of METADATA_TYPE distinguishes the six cases.
package catalog

import (
	"database/sql"
	"fmt"

	"github.com/staticdb/staticdb/core/dberr"
)

// Queryer is the read surface catalog needs from a storage session.
type Queryer interface {
	QueryOne(query string, args []any, dest ...any) (bool, error)
}

// Execer is the write surface catalog needs to bootstrap a new database.
type Execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

// Mode classifies how a column of a given type stores and displays values.
type Mode int

const (
	ModePrimitive    Mode = 0
	ModeSingleSelect Mode = 1
	ModeMultiSelect  Mode = 2
	ModeReference    Mode = 3
	ModeChildObject  Mode = 4
	ModeChildTable   Mode = 5
)

func (m Mode) String() string {
	switch m {
	case ModePrimitive:
		return "primitive"
	case ModeSingleSelect:
		return "single select"
	case ModeMultiSelect:
		return "multi select"
	case ModeReference:
		return "reference"
	case ModeChildObject:
		return "child object"
	case ModeChildTable:
		return "child table"
	default:
		return "unknown"
	}
}

// Primitive identifies one of the seeded primitive types. The values are
// the fixed catalog OIDs.
type Primitive int64

const (
	PrimitiveNull      Primitive = 0
	PrimitiveBoolean   Primitive = 1
	PrimitiveInteger   Primitive = 2
	PrimitiveNumber    Primitive = 3
	PrimitiveDate      Primitive = 4
	PrimitiveTimestamp Primitive = 5
	PrimitiveText      Primitive = 6
	PrimitiveJSON      Primitive = 7
	PrimitiveBlob      Primitive = 8
	PrimitiveImageBlob Primitive = 9
)

// FirstTableOID is the first OID available for user-created types. OIDs
// below it are reserved for the seeded primitives.
const FirstTableOID = 10

func (p Primitive) String() string {
	switch p {
	case PrimitiveNull:
		return "Null"
	case PrimitiveBoolean:
		return "Boolean"
	case PrimitiveInteger:
		return "Integer"
	case PrimitiveNumber:
		return "Number"
	case PrimitiveDate:
		return "Date"
	case PrimitiveTimestamp:
		return "Timestamp"
	case PrimitiveText:
		return "Text"
	case PrimitiveJSON:
		return "JSON"
	case PrimitiveBlob:
		return "Blob"
	case PrimitiveImageBlob:
		return "ImageBlob"
	default:
		return "unknown"
	}
}

// ColumnType is the resolved form of a type OID.
//
// For ModePrimitive, Primitive identifies the kind and BackingTableOID is
// zero. For every other mode, BackingTableOID is the type OID itself: the
// table holding dropdown values, the referenced table, the child object
// type, or the child table.
type ColumnType struct {
	Mode            Mode
	Primitive       Primitive
	BackingTableOID int64
}

// Resolve reads a type OID from METADATA_TYPE and classifies it.
func Resolve(q Queryer, typeOID int64) (ColumnType, error) {
	var mode int
	found, err := q.QueryOne(
		`SELECT MODE FROM METADATA_TYPE WHERE OID = ?`,
		[]any{typeOID}, &mode)
	if err != nil {
		return ColumnType{}, err
	}
	if !found {
		return ColumnType{}, dberr.NewResource("type", typeOID)
	}
	switch Mode(mode) {
	case ModePrimitive:
		if typeOID >= FirstTableOID {
			return ColumnType{}, dberr.NewSchema("type", typeOID, "primitive mode on a table OID")
		}
		return ColumnType{Mode: ModePrimitive, Primitive: Primitive(typeOID)}, nil
	case ModeSingleSelect, ModeMultiSelect, ModeReference, ModeChildObject, ModeChildTable:
		return ColumnType{Mode: Mode(mode), BackingTableOID: typeOID}, nil
	default:
		return ColumnType{}, dberr.NewUnsupported("column mode", Mode(mode).String())
	}
}

// TypeOID is the inverse of Resolve: the catalog OID this ColumnType is
// stored as.
func (c ColumnType) TypeOID() int64 {
	if c.Mode == ModePrimitive {
		return int64(c.Primitive)
	}
	return c.BackingTableOID
}

// ModeInt returns the MODE integer stored in METADATA_TYPE.
func (c ColumnType) ModeInt() int {
	return int(c.Mode)
}

// HasPhysicalColumn reports whether a column of this type occupies a
// column in its owning table. Multi-select values live in a junction
// table and child table rows live in the child, so neither does.
func (c ColumnType) HasPhysicalColumn() bool {
	return c.Mode != ModeMultiSelect && c.Mode != ModeChildTable
}

func (c ColumnType) String() string {
	if c.Mode == ModePrimitive {
		return c.Primitive.String()
	}
	return fmt.Sprintf("%s(%d)", c.Mode, c.BackingTableOID)
}

// IsBlob reports whether values are raw bytes.
func (c ColumnType) IsBlob() bool {
	return c.Mode == ModePrimitive &&
		(c.Primitive == PrimitiveBlob || c.Primitive == PrimitiveImageBlob)
}

// StorageType returns the SQL column type used in DDL for this type, and
// whether the type occupies a physical column at all.
func StorageType(c ColumnType) (string, bool) {
	if !c.HasPhysicalColumn() {
		return "", false
	}
	if c.Mode != ModePrimitive {
		// single select, reference and child object store the OID of a
		// row in the backing table
		return "INTEGER", true
	}
	switch c.Primitive {
	case PrimitiveBoolean, PrimitiveInteger, PrimitiveDate, PrimitiveTimestamp:
		return "INTEGER", true
	case PrimitiveNumber:
		return "REAL", true
	case PrimitiveText, PrimitiveJSON:
		return "TEXT", true
	case PrimitiveBlob, PrimitiveImageBlob:
		return "BLOB", true
	default:
		// Null: data tables are STRICT, so the catch-all type is ANY
		return "ANY", true
	}
}
