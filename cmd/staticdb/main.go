// Command staticdb is the CLI front end for the staticdb engine.
// It provides commands for defining tables and columns, editing rows,
// dumping table data, and walking the undo log.
package main

import (
	"fmt"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/dustin/go-humanize"

	"github.com/staticdb/staticdb/core/actions"
	"github.com/staticdb/staticdb/core/blob"
	"github.com/staticdb/staticdb/core/catalog"
	"github.com/staticdb/staticdb/core/query"
	"github.com/staticdb/staticdb/core/report"
	"github.com/staticdb/staticdb/core/schema"
	"github.com/staticdb/staticdb/core/session"
)

const version = "0.1.0"

// CLI defines the command-line interface for staticdb.
var CLI struct {
	// Global flags
	DB string `name:"db" short:"d" default:"staticdb.db" help:"Database file path" type:"path"`

	// Command groups (noun-first organization)
	Init   InitCmd     `cmd:"" help:"Create an empty database file"`
	Table  TableGroup  `cmd:"" help:"Table operations (list, create, edit, trash, restore, delete)"`
	Column ColumnGroup `cmd:"" help:"Column operations (add, list, width, reorder, values)"`
	Row    RowGroup    `cmd:"" help:"Row operations (push, insert, set, trash, restore, retype)"`
	Data   DataCmd     `cmd:"" help:"Dump table data with validation results"`
	Report ReportGroup `cmd:"" help:"Report definitions"`
	Blob   BlobGroup   `cmd:"" help:"Blob cell import and export"`
	Undo   UndoCmd     `cmd:"" help:"Undo the most recent recorded action"`
	Redo   RedoCmd     `cmd:"" help:"Redo the most recently undone action"`

	Version VersionCmd `cmd:"" help:"Print version information"`
}

// TableGroup contains table lifecycle operations.
type TableGroup struct {
	List    TableListCmd    `cmd:"" help:"List live tables"`
	Create  TableCreateCmd  `cmd:"" help:"Create a table"`
	Edit    TableEditCmd    `cmd:"" help:"Rename a table and set its master tables"`
	Trash   TableTrashCmd   `cmd:"" help:"Move a table to the trash"`
	Restore TableRestoreCmd `cmd:"" help:"Restore a trashed table"`
	Delete  TableDeleteCmd  `cmd:"" help:"Permanently delete a table"`
}

// ColumnGroup contains column operations.
type ColumnGroup struct {
	Add     ColumnAddCmd     `cmd:"" help:"Add a column to a table"`
	List    ColumnListCmd    `cmd:"" help:"List a table's live columns"`
	Width   ColumnWidthCmd   `cmd:"" help:"Set a column's display width"`
	Reorder ColumnReorderCmd `cmd:"" help:"Move a column to a new slot"`
	Values  ColumnValuesCmd  `cmd:"" help:"Replace a dropdown column's value list"`
	Trash   ColumnTrashCmd   `cmd:"" help:"Move a column to the trash"`
	Restore ColumnRestoreCmd `cmd:"" help:"Restore a trashed column"`
}

// RowGroup contains row lifecycle operations.
type RowGroup struct {
	Push    RowPushCmd    `cmd:"" help:"Append a row"`
	Insert  RowInsertCmd  `cmd:"" help:"Insert a row before an existing one"`
	Set     RowSetCmd     `cmd:"" help:"Write a cell value"`
	Select  RowSelectCmd  `cmd:"" help:"Replace a multi-select cell's selection"`
	Trash   RowTrashCmd   `cmd:"" help:"Move a row to the trash"`
	Restore RowRestoreCmd `cmd:"" help:"Restore a trashed row"`
	Retype  RowRetypeCmd  `cmd:"" help:"Move a row to a different subtype table"`
}

// ReportGroup contains report definition operations.
type ReportGroup struct {
	Create       ReportCreateCmd       `cmd:"" help:"Define a report over a base table"`
	List         ReportListCmd         `cmd:"" help:"List live reports"`
	Columns      ReportColumnsCmd      `cmd:"" help:"List a report's columns"`
	AddFormula   ReportAddFormulaCmd   `cmd:"" name:"add-formula" help:"Add a formula column"`
	AddSubreport ReportAddSubreportCmd `cmd:"" name:"add-subreport" help:"Add a sub-report column"`
	Data         ReportDataCmd         `cmd:"" help:"Dump a report's base table data"`
}

// BlobGroup contains blob transfer operations.
type BlobGroup struct {
	Import BlobImportCmd `cmd:"" help:"Import a file into a blob cell"`
	Export BlobExportCmd `cmd:"" help:"Export a blob cell to a file"`
}

// withSession opens the database, runs fn, and commits on success. A
// failed fn aborts the session so nothing reaches the file.
func withSession(fn func(s *session.Session) error) error {
	s, err := session.Open(CLI.DB)
	if err != nil {
		return err
	}
	if err := fn(s); err != nil {
		s.Abort()
		return err
	}
	return s.Close()
}

// record runs a mutating action through the persistent undo journal.
func record(s *session.Session, a actions.Action) error {
	j, err := actions.OpenJournal(s)
	if err != nil {
		return err
	}
	return j.Execute(a)
}

// InitCmd creates and bootstraps an empty database file.
type InitCmd struct{}

func (c *InitCmd) Run() error {
	return withSession(func(s *session.Session) error {
		fmt.Printf("Initialized: %s\n", s.Path())
		return nil
	})
}

// TableListCmd lists live tables.
type TableListCmd struct{}

func (c *TableListCmd) Run() error {
	return withSession(func(s *session.Session) error {
		list, err := schema.MetadataList(s)
		if err != nil {
			return err
		}
		if len(list) == 0 {
			fmt.Println("No tables")
			return nil
		}
		for _, md := range list {
			line := fmt.Sprintf("%4d  %s", md.OID, md.Name)
			if len(md.Masters) > 0 {
				line += fmt.Sprintf("  (inherits %s)", joinOIDs(md.Masters))
			}
			fmt.Println(line)
		}
		return nil
	})
}

// TableCreateCmd creates a table.
type TableCreateCmd struct {
	Name    string  `arg:"" help:"Table name"`
	Master  []int64 `help:"Master table OIDs" name:"master"`
	Objects bool    `help:"Create as an object table (usable by child-object columns)"`
}

func (c *TableCreateCmd) Run() error {
	return withSession(func(s *session.Session) error {
		var oid int64
		var err error
		if c.Objects {
			oid, err = schema.CreateObjectTable(s, c.Name, c.Master)
			if err != nil {
				return err
			}
		} else {
			if err = record(s, actions.CreateTable{TableName: c.Name, Masters: c.Master, Created: &oid}); err != nil {
				return err
			}
		}
		fmt.Printf("Created table %d: %s\n", oid, c.Name)
		return nil
	})
}

// TableEditCmd renames a table and replaces its master list.
type TableEditCmd struct {
	Table  int64   `arg:"" help:"Table OID"`
	Name   string  `required:"" help:"New table name"`
	Master []int64 `help:"Master table OIDs" name:"master"`
}

func (c *TableEditCmd) Run() error {
	return withSession(func(s *session.Session) error {
		if err := record(s, actions.EditTable{TableOID: c.Table, TableName: c.Name, Masters: c.Master}); err != nil {
			return err
		}
		fmt.Printf("Edited table %d\n", c.Table)
		return nil
	})
}

// TableTrashCmd moves a table to the trash.
type TableTrashCmd struct {
	Table int64 `arg:"" help:"Table OID"`
}

func (c *TableTrashCmd) Run() error {
	return withSession(func(s *session.Session) error {
		if err := record(s, actions.TrashTable{TableOID: c.Table}); err != nil {
			return err
		}
		fmt.Printf("Trashed table %d\n", c.Table)
		return nil
	})
}

// TableRestoreCmd restores a trashed table.
type TableRestoreCmd struct {
	Table int64 `arg:"" help:"Table OID"`
}

func (c *TableRestoreCmd) Run() error {
	return withSession(func(s *session.Session) error {
		if err := record(s, actions.RestoreTable{TableOID: c.Table}); err != nil {
			return err
		}
		fmt.Printf("Restored table %d\n", c.Table)
		return nil
	})
}

// TableDeleteCmd permanently deletes a table. This bypasses the undo
// journal: dropped physical tables cannot be replayed.
type TableDeleteCmd struct {
	Table int64 `arg:"" help:"Table OID"`
}

func (c *TableDeleteCmd) Run() error {
	return withSession(func(s *session.Session) error {
		if err := schema.DeleteTable(s, c.Table); err != nil {
			return err
		}
		fmt.Printf("Deleted table %d\n", c.Table)
		return nil
	})
}

// ColumnAddCmd adds a column to a table.
type ColumnAddCmd struct {
	Table int64  `arg:"" help:"Table OID"`
	Name  string `required:"" help:"Column name"`
	Type  string `required:"" help:"Column type" enum:"null,boolean,integer,number,date,timestamp,text,json,blob,image,single-select,multi-select,reference,child-object,child-table"`

	Of       int64    `help:"Referenced table OID (reference, child-object)"`
	Values   []string `help:"Dropdown values (single-select, multi-select)"`
	Nullable bool     `default:"true" negatable:"" help:"Allow empty cells"`
	Unique   bool     `help:"Values must be unique"`
	PK       bool     `name:"pk" help:"Column is part of the display key"`
	Width    int64    `default:"100" help:"Display width"`
}

func (c *ColumnAddCmd) Run() error {
	spec, err := columnSpec(c)
	if err != nil {
		return err
	}
	return withSession(func(s *session.Session) error {
		var oid int64
		if err := record(s, actions.CreateColumn{TableOID: c.Table, Spec: spec, Created: &oid}); err != nil {
			return err
		}
		if len(c.Values) > 0 {
			if err := record(s, actions.SetDropdownValues{ColumnOID: oid, Values: c.Values}); err != nil {
				return err
			}
		}
		fmt.Printf("Added column %d: %s\n", oid, c.Name)
		return nil
	})
}

func columnSpec(c *ColumnAddCmd) (schema.ColumnSpec, error) {
	spec := schema.ColumnSpec{
		Name:       c.Name,
		Nullable:   c.Nullable,
		Unique:     c.Unique,
		PrimaryKey: c.PK,
		Width:      c.Width,
	}
	primitives := map[string]catalog.Primitive{
		"null": catalog.PrimitiveNull, "boolean": catalog.PrimitiveBoolean,
		"integer": catalog.PrimitiveInteger, "number": catalog.PrimitiveNumber,
		"date": catalog.PrimitiveDate, "timestamp": catalog.PrimitiveTimestamp,
		"text": catalog.PrimitiveText, "json": catalog.PrimitiveJSON,
		"blob": catalog.PrimitiveBlob, "image": catalog.PrimitiveImageBlob,
	}
	if p, ok := primitives[c.Type]; ok {
		spec.Mode = catalog.ModePrimitive
		spec.Primitive = p
		return spec, nil
	}
	switch c.Type {
	case "single-select":
		spec.Mode = catalog.ModeSingleSelect
	case "multi-select":
		spec.Mode = catalog.ModeMultiSelect
	case "reference":
		spec.Mode = catalog.ModeReference
	case "child-object":
		spec.Mode = catalog.ModeChildObject
	case "child-table":
		spec.Mode = catalog.ModeChildTable
	}
	if spec.Mode == catalog.ModeReference || spec.Mode == catalog.ModeChildObject {
		if c.Of == 0 {
			return spec, fmt.Errorf("--of is required for %s columns", c.Type)
		}
		spec.ReferencedTableOID = c.Of
	}
	return spec, nil
}

// ColumnListCmd lists a table's live columns.
type ColumnListCmd struct {
	Table int64 `arg:"" help:"Table OID"`
}

func (c *ColumnListCmd) Run() error {
	return withSession(func(s *session.Session) error {
		list, err := schema.Columns(s, c.Table)
		if err != nil {
			return err
		}
		if len(list) == 0 {
			fmt.Println("No columns")
			return nil
		}
		for _, md := range list {
			ct, err := catalog.Resolve(s, md.TypeOID)
			if err != nil {
				return err
			}
			flags := ""
			if md.PrimaryKey {
				flags += " pk"
			}
			if md.Unique {
				flags += " unique"
			}
			if !md.Nullable {
				flags += " required"
			}
			fmt.Printf("%4d  %-20s %s%s\n", md.OID, md.Name, ct, flags)
		}
		return nil
	})
}

// ColumnWidthCmd sets a column's display width.
type ColumnWidthCmd struct {
	Column int64 `arg:"" help:"Column OID"`
	Width  int64 `arg:"" help:"Display width"`
}

func (c *ColumnWidthCmd) Run() error {
	return withSession(func(s *session.Session) error {
		return record(s, actions.SetColumnWidth{ColumnOID: c.Column, Width: c.Width})
	})
}

// ColumnReorderCmd moves a column to a new slot.
type ColumnReorderCmd struct {
	Column int64 `arg:"" help:"Column OID"`
	Slot   int64 `arg:"" help:"Target slot, 0-based"`
}

func (c *ColumnReorderCmd) Run() error {
	return withSession(func(s *session.Session) error {
		return record(s, actions.ReorderColumn{ColumnOID: c.Column, Ordering: c.Slot})
	})
}

// ColumnValuesCmd replaces a dropdown column's value list.
type ColumnValuesCmd struct {
	Column int64    `arg:"" help:"Column OID"`
	Values []string `arg:"" help:"Dropdown values"`
}

func (c *ColumnValuesCmd) Run() error {
	return withSession(func(s *session.Session) error {
		return record(s, actions.SetDropdownValues{ColumnOID: c.Column, Values: c.Values})
	})
}

// ColumnTrashCmd moves a column to the trash.
type ColumnTrashCmd struct {
	Column int64 `arg:"" help:"Column OID"`
}

func (c *ColumnTrashCmd) Run() error {
	return withSession(func(s *session.Session) error {
		return record(s, actions.TrashColumn{ColumnOID: c.Column})
	})
}

// ColumnRestoreCmd restores a trashed column.
type ColumnRestoreCmd struct {
	Column int64 `arg:"" help:"Column OID"`
}

func (c *ColumnRestoreCmd) Run() error {
	return withSession(func(s *session.Session) error {
		return record(s, actions.RestoreColumn{ColumnOID: c.Column})
	})
}

// RowPushCmd appends a row.
type RowPushCmd struct {
	Table  int64  `arg:"" help:"Table OID"`
	Parent *int64 `help:"Owning row OID (child tables)"`
}

func (c *RowPushCmd) Run() error {
	return withSession(func(s *session.Session) error {
		var oid int64
		if err := record(s, actions.PushRow{TableOID: c.Table, ParentRowOID: c.Parent, Created: &oid}); err != nil {
			return err
		}
		fmt.Printf("Row %d\n", oid)
		return nil
	})
}

// RowInsertCmd inserts a row before an existing one.
type RowInsertCmd struct {
	Table  int64  `arg:"" help:"Table OID"`
	Before int64  `arg:"" help:"Row OID to insert before"`
	Parent *int64 `help:"Owning row OID (child tables)"`
}

func (c *RowInsertCmd) Run() error {
	return withSession(func(s *session.Session) error {
		var oid int64
		if err := record(s, actions.InsertRow{TableOID: c.Table, BeforeOID: c.Before, ParentRowOID: c.Parent, Created: &oid}); err != nil {
			return err
		}
		fmt.Printf("Row %d\n", oid)
		return nil
	})
}

// RowSetCmd writes a cell value from text, or clears it.
type RowSetCmd struct {
	Column int64  `arg:"" help:"Column OID"`
	Row    int64  `arg:"" help:"Row OID"`
	Value  string `help:"New value"`
	Null   bool   `help:"Clear the cell"`
}

func (c *RowSetCmd) Run() error {
	return withSession(func(s *session.Session) error {
		var value *string
		if !c.Null {
			value = &c.Value
		}
		return record(s, actions.UpdateValue{ColumnOID: c.Column, RowOID: c.Row, Value: value})
	})
}

// RowSelectCmd replaces a multi-select cell's selection.
type RowSelectCmd struct {
	Column int64   `arg:"" help:"Column OID"`
	Row    int64   `arg:"" help:"Row OID"`
	Values []int64 `arg:"" optional:"" help:"Selected value OIDs"`
}

func (c *RowSelectCmd) Run() error {
	return withSession(func(s *session.Session) error {
		return record(s, actions.SetMultiselect{ColumnOID: c.Column, RowOID: c.Row, ValueOIDs: c.Values})
	})
}

// RowTrashCmd moves a row to the trash.
type RowTrashCmd struct {
	Table int64 `arg:"" help:"Table OID"`
	Row   int64 `arg:"" help:"Row OID"`
}

func (c *RowTrashCmd) Run() error {
	return withSession(func(s *session.Session) error {
		return record(s, actions.TrashRow{TableOID: c.Table, RowOID: c.Row})
	})
}

// RowRestoreCmd restores a trashed row.
type RowRestoreCmd struct {
	Table int64 `arg:"" help:"Table OID"`
	Row   int64 `arg:"" help:"Row OID"`
}

func (c *RowRestoreCmd) Run() error {
	return withSession(func(s *session.Session) error {
		return record(s, actions.UntrashRow{TableOID: c.Table, RowOID: c.Row})
	})
}

// RowRetypeCmd moves a row to a different subtype table.
type RowRetypeCmd struct {
	Table int64 `arg:"" help:"Table OID the row is viewed from"`
	Row   int64 `arg:"" help:"Row OID"`
	To    int64 `arg:"" help:"Target subtype table OID"`
}

func (c *RowRetypeCmd) Run() error {
	return withSession(func(s *session.Session) error {
		return record(s, actions.RetypeRow{TableOID: c.Table, RowOID: c.Row, SubtypeOID: c.To})
	})
}

// DataCmd dumps table data as streamed cells.
type DataCmd struct {
	Table  int64  `arg:"" help:"Table OID"`
	Limit  int64  `default:"50" help:"Page size"`
	Offset int64  `help:"Page offset"`
	Parent *int64 `help:"Owning row OID (child tables)"`
	Row    *int64 `help:"Dump one row by OID"`
}

func (c *DataCmd) Run() error {
	return withSession(func(s *session.Session) error {
		sink := &printSink{}
		if c.Row != nil {
			return query.SendTableRow(s, sink, c.Table, *c.Row)
		}
		return query.SendTableData(s, sink, c.Table, c.Limit, c.Offset, c.Parent)
	})
}

// printSink renders streamed cells as indented text.
type printSink struct{}

func (p *printSink) Send(cell query.Cell) error {
	switch v := cell.(type) {
	case query.RowExists:
		if !v.Exists {
			fmt.Println("Row not found")
		}
	case query.RowStart:
		fmt.Printf("Row %d (#%d)\n", v.RowOID, v.RowIndex)
	case query.ColumnValue:
		display := "NULL"
		if v.DisplayValue != nil {
			display = *v.DisplayValue
		}
		fmt.Printf("  %-20s %s\n", v.Name+":", display)
		for _, f := range v.FailedValidations {
			fmt.Printf("    ! %s\n", f.Description)
		}
	}
	return nil
}

// ReportCreateCmd defines a report over a base table.
type ReportCreateCmd struct {
	Table int64  `arg:"" help:"Base table OID"`
	Name  string `required:"" help:"Report name"`
}

func (c *ReportCreateCmd) Run() error {
	return withSession(func(s *session.Session) error {
		oid, err := report.Create(s, c.Table, c.Name)
		if err != nil {
			return err
		}
		fmt.Printf("Created report %d: %s\n", oid, c.Name)
		return nil
	})
}

// ReportListCmd lists live reports.
type ReportListCmd struct{}

func (c *ReportListCmd) Run() error {
	return withSession(func(s *session.Session) error {
		list, err := report.List(s)
		if err != nil {
			return err
		}
		if len(list) == 0 {
			fmt.Println("No reports")
			return nil
		}
		for _, md := range list {
			fmt.Printf("%4d  %-24s (table %d)\n", md.OID, md.Name, md.BaseTableOID)
		}
		return nil
	})
}

// ReportColumnsCmd lists a report's columns.
type ReportColumnsCmd struct {
	Report int64 `arg:"" help:"Report OID"`
}

func (c *ReportColumnsCmd) Run() error {
	return withSession(func(s *session.Session) error {
		list, err := report.Columns(s, c.Report)
		if err != nil {
			return err
		}
		for _, col := range list {
			detail := ""
			switch col.Kind {
			case report.KindFormula:
				detail = col.Formula
			case report.KindSubreport:
				detail = fmt.Sprintf("report %d via column %d", col.SubreportOID, col.ParameterOID)
			}
			fmt.Printf("%4d  %-20s %-10s %s\n", col.OID, col.Name, col.Kind, detail)
		}
		return nil
	})
}

// ReportAddFormulaCmd adds a formula column to a report.
type ReportAddFormulaCmd struct {
	Report  int64  `arg:"" help:"Report OID"`
	Name    string `required:"" help:"Column name"`
	Formula string `required:"" help:"Formula expression"`
}

func (c *ReportAddFormulaCmd) Run() error {
	return withSession(func(s *session.Session) error {
		oid, err := report.CreateFormulaColumn(s, c.Report, c.Name, c.Formula)
		if err != nil {
			return err
		}
		fmt.Printf("Added column %d\n", oid)
		return nil
	})
}

// ReportAddSubreportCmd adds a sub-report column to a report.
type ReportAddSubreportCmd struct {
	Report    int64  `arg:"" help:"Report OID"`
	Name      string `required:"" help:"Column name"`
	Subreport int64  `required:"" help:"Embedded report OID"`
	Parameter int64  `required:"" help:"Parameter column OID"`
}

func (c *ReportAddSubreportCmd) Run() error {
	return withSession(func(s *session.Session) error {
		oid, err := report.CreateSubreportColumn(s, c.Report, c.Name, c.Subreport, c.Parameter)
		if err != nil {
			return err
		}
		fmt.Printf("Added column %d\n", oid)
		return nil
	})
}

// ReportDataCmd dumps a report's base table as streamed cells.
type ReportDataCmd struct {
	Report int64  `arg:"" help:"Report OID"`
	Limit  int64  `default:"50" help:"Page size"`
	Offset int64  `help:"Page offset"`
	Row    *int64 `help:"Dump one row by OID"`
}

func (c *ReportDataCmd) Run() error {
	return withSession(func(s *session.Session) error {
		sink := &printSink{}
		if c.Row != nil {
			return report.SendRow(s, sink, c.Report, *c.Row)
		}
		return report.SendData(s, sink, c.Report, c.Limit, c.Offset)
	})
}

// BlobImportCmd imports a file into a blob cell.
type BlobImportCmd struct {
	Column int64  `arg:"" help:"Column OID"`
	Row    int64  `arg:"" help:"Row OID"`
	Path   string `arg:"" help:"File to import" type:"existingfile"`
}

func (c *BlobImportCmd) Run() error {
	return withSession(func(s *session.Session) error {
		res, err := blob.Import(s, blob.OSStore{}, c.Column, c.Row, c.Path)
		if err != nil {
			return err
		}
		fmt.Printf("Imported %s (%s)\n", humanize.Bytes(uint64(res.Bytes)), res.Checksum[:16])
		return nil
	})
}

// BlobExportCmd exports a blob cell to a file.
type BlobExportCmd struct {
	Column int64  `arg:"" help:"Column OID"`
	Row    int64  `arg:"" help:"Row OID"`
	Path   string `arg:"" help:"Output file" type:"path"`
}

func (c *BlobExportCmd) Run() error {
	return withSession(func(s *session.Session) error {
		res, err := blob.Export(s, blob.OSStore{}, c.Column, c.Row, c.Path)
		if err != nil {
			return err
		}
		fmt.Printf("Exported %s (%s)\n", humanize.Bytes(uint64(res.Bytes)), res.Checksum[:16])
		return nil
	})
}

// UndoCmd undoes the most recent recorded action.
type UndoCmd struct{}

func (c *UndoCmd) Run() error {
	return withSession(func(s *session.Session) error {
		j, err := actions.OpenJournal(s)
		if err != nil {
			return err
		}
		done, err := j.Undo()
		if err != nil {
			return err
		}
		if !done {
			fmt.Println("Nothing to undo")
			return nil
		}
		undo, redo, err := j.Depths()
		if err != nil {
			return err
		}
		fmt.Printf("Undone (%d undoable, %d redoable)\n", undo, redo)
		return nil
	})
}

// RedoCmd redoes the most recently undone action.
type RedoCmd struct{}

func (c *RedoCmd) Run() error {
	return withSession(func(s *session.Session) error {
		j, err := actions.OpenJournal(s)
		if err != nil {
			return err
		}
		done, err := j.Redo()
		if err != nil {
			return err
		}
		if !done {
			fmt.Println("Nothing to redo")
			return nil
		}
		undo, redo, err := j.Depths()
		if err != nil {
			return err
		}
		fmt.Printf("Redone (%d undoable, %d redoable)\n", undo, redo)
		return nil
	})
}

// VersionCmd prints version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Printf("staticdb version %s\n", version)
	return nil
}

func joinOIDs(oids []int64) string {
	parts := make([]string, len(oids))
	for i, oid := range oids {
		parts[i] = fmt.Sprint(oid)
	}
	return strings.Join(parts, ", ")
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("staticdb"),
		kong.Description("staticdb - dynamic relational schema engine"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)
	err := ctx.Run(ctx)
	ctx.FatalIfErrorf(err)
}
