// Package actions wraps mutating operations in reversible commands. Each
// action runs inside a session savepoint and yields its inverse, so a
// stack of executed actions can be walked backward and forward without
// replaying the whole file.
package actions

import (
	"database/sql"

	"github.com/staticdb/staticdb/core/dberr"
	"github.com/staticdb/staticdb/core/rows"
	"github.com/staticdb/staticdb/core/schema"
	"github.com/staticdb/staticdb/core/session"
	"github.com/staticdb/staticdb/internal/logging"
)

// Action is one reversible operation. Do applies the operation and
// returns the action that reverses it. On error nothing is applied and
// no inverse exists.
type Action interface {
	Name() string
	Do(s *session.Session) (Action, error)
}

// Stack executes actions and tracks their inverses for undo and redo.
// Executing a new action clears the redo side.
type Stack struct {
	s    *session.Session
	undo []Action
	redo []Action
}

// NewStack returns an empty stack bound to a session.
func NewStack(s *session.Session) *Stack {
	return &Stack{s: s}
}

// Execute runs an action inside a savepoint. A failed action is rolled
// back and leaves both stacks untouched.
func (st *Stack) Execute(a Action) error {
	inverse, err := st.run(a)
	if err != nil {
		return err
	}
	st.undo = append(st.undo, inverse)
	st.redo = nil
	return nil
}

// Undo reverses the most recent action. It reports whether there was
// anything to undo.
func (st *Stack) Undo() (bool, error) {
	if len(st.undo) == 0 {
		return false, nil
	}
	a := st.undo[len(st.undo)-1]
	inverse, err := st.run(a)
	if err != nil {
		return false, err
	}
	st.undo = st.undo[:len(st.undo)-1]
	st.redo = append(st.redo, inverse)
	logging.UndoEvent("undo", len(st.undo))
	return true, nil
}

// Redo reapplies the most recently undone action.
func (st *Stack) Redo() (bool, error) {
	if len(st.redo) == 0 {
		return false, nil
	}
	a := st.redo[len(st.redo)-1]
	inverse, err := st.run(a)
	if err != nil {
		return false, err
	}
	st.redo = st.redo[:len(st.redo)-1]
	st.undo = append(st.undo, inverse)
	logging.UndoEvent("redo", len(st.undo))
	return true, nil
}

// Depths returns the number of undoable and redoable actions.
func (st *Stack) Depths() (int, int) {
	return len(st.undo), len(st.redo)
}

func (st *Stack) run(a Action) (Action, error) {
	return runAction(st.s, a)
}

// runAction applies one action inside its own savepoint, rolling back
// when it fails.
func runAction(s *session.Session, a Action) (Action, error) {
	sp, err := s.BeginAction()
	if err != nil {
		return nil, err
	}
	inverse, err := a.Do(s)
	if err != nil {
		if rbErr := sp.Rollback(); rbErr != nil {
			return nil, dberr.Wrap(rbErr, "rollback after failed "+a.Name())
		}
		return nil, err
	}
	sp.Release()
	return inverse, nil
}

// CreateTable creates a user table. Undoing trashes it, so the table can
// come back on redo.
type CreateTable struct {
	TableName string
	Masters   []int64
	// Created receives the new table's OID.
	Created *int64
}

func (a CreateTable) Name() string { return "create table" }

func (a CreateTable) Do(s *session.Session) (Action, error) {
	oid, err := schema.CreateTable(s, a.TableName, a.Masters)
	if err != nil {
		return nil, err
	}
	if a.Created != nil {
		*a.Created = oid
	}
	return TrashTable{TableOID: oid}, nil
}

// TrashTable soft-deletes a table.
type TrashTable struct {
	TableOID int64
}

func (a TrashTable) Name() string { return "trash table" }

func (a TrashTable) Do(s *session.Session) (Action, error) {
	if err := schema.MoveTrash(s, a.TableOID); err != nil {
		return nil, err
	}
	return RestoreTable{TableOID: a.TableOID}, nil
}

// RestoreTable brings a trashed table back.
type RestoreTable struct {
	TableOID int64
}

func (a RestoreTable) Name() string { return "restore table" }

func (a RestoreTable) Do(s *session.Session) (Action, error) {
	if err := schema.UnmoveTrash(s, a.TableOID); err != nil {
		return nil, err
	}
	return TrashTable{TableOID: a.TableOID}, nil
}

// EditTable renames a table and sets its master list.
type EditTable struct {
	TableOID  int64
	TableName string
	Masters   []int64
}

func (a EditTable) Name() string { return "edit table" }

func (a EditTable) Do(s *session.Session) (Action, error) {
	oldName, oldMasters, err := schema.EditTableMetadata(s, a.TableOID, a.TableName, a.Masters)
	if err != nil {
		return nil, err
	}
	return EditTable{TableOID: a.TableOID, TableName: oldName, Masters: oldMasters}, nil
}

// CreateColumn adds a column to a table.
type CreateColumn struct {
	TableOID int64
	Spec     schema.ColumnSpec
	// Created receives the new column's OID.
	Created *int64
}

func (a CreateColumn) Name() string { return "create column" }

func (a CreateColumn) Do(s *session.Session) (Action, error) {
	oid, err := schema.CreateColumn(s, a.TableOID, a.Spec)
	if err != nil {
		return nil, err
	}
	if a.Created != nil {
		*a.Created = oid
	}
	return TrashColumn{ColumnOID: oid}, nil
}

// TrashColumn soft-deletes a column.
type TrashColumn struct {
	ColumnOID int64
}

func (a TrashColumn) Name() string { return "trash column" }

func (a TrashColumn) Do(s *session.Session) (Action, error) {
	if err := schema.MoveColumnTrash(s, a.ColumnOID); err != nil {
		return nil, err
	}
	return RestoreColumn{ColumnOID: a.ColumnOID}, nil
}

// RestoreColumn brings a trashed column back.
type RestoreColumn struct {
	ColumnOID int64
}

func (a RestoreColumn) Name() string { return "restore column" }

func (a RestoreColumn) Do(s *session.Session) (Action, error) {
	if err := schema.UnmoveColumnTrash(s, a.ColumnOID); err != nil {
		return nil, err
	}
	return TrashColumn{ColumnOID: a.ColumnOID}, nil
}

// EditColumn rewrites a column's metadata from a spec.
type EditColumn struct {
	ColumnOID int64
	Spec      schema.ColumnSpec
}

func (a EditColumn) Name() string { return "edit column" }

func (a EditColumn) Do(s *session.Session) (Action, error) {
	prior, err := schema.EditColumnMetadata(s, a.ColumnOID, a.Spec)
	if err != nil {
		return nil, err
	}
	return RevertColumn{Prior: prior}, nil
}

// RevertColumn puts a column back to a recorded metadata state.
type RevertColumn struct {
	Prior schema.ColumnMetadata
}

func (a RevertColumn) Name() string { return "revert column" }

func (a RevertColumn) Do(s *session.Session) (Action, error) {
	current, err := schema.ColumnByOID(s, a.Prior.OID)
	if err != nil {
		return nil, err
	}
	if err := schema.RestoreEditedColumnMetadata(s, a.Prior); err != nil {
		return nil, err
	}
	return RevertColumn{Prior: current}, nil
}

// SetColumnWidth stores a column's display width.
type SetColumnWidth struct {
	ColumnOID int64
	Width     int64
}

func (a SetColumnWidth) Name() string { return "set column width" }

func (a SetColumnWidth) Do(s *session.Session) (Action, error) {
	old, err := schema.EditColumnWidth(s, a.ColumnOID, a.Width)
	if err != nil {
		return nil, err
	}
	return SetColumnWidth{ColumnOID: a.ColumnOID, Width: old}, nil
}

// ReorderColumn moves a column to a new display slot.
type ReorderColumn struct {
	ColumnOID int64
	Ordering  int64
}

func (a ReorderColumn) Name() string { return "reorder column" }

func (a ReorderColumn) Do(s *session.Session) (Action, error) {
	old, err := schema.Reorder(s, a.ColumnOID, a.Ordering)
	if err != nil {
		return nil, err
	}
	return ReorderColumn{ColumnOID: a.ColumnOID, Ordering: old}, nil
}

// PushRow appends a row to a table.
type PushRow struct {
	TableOID     int64
	ParentRowOID *int64
	// Created receives the new row's OID.
	Created *int64
}

func (a PushRow) Name() string { return "push row" }

func (a PushRow) Do(s *session.Session) (Action, error) {
	oid, err := rows.Push(s, a.TableOID, a.ParentRowOID)
	if err != nil {
		return nil, err
	}
	if a.Created != nil {
		*a.Created = oid
	}
	return TrashRow{TableOID: a.TableOID, RowOID: oid}, nil
}

// InsertRow creates a row at a chosen OID.
type InsertRow struct {
	TableOID     int64
	BeforeOID    int64
	ParentRowOID *int64
	Created      *int64
}

func (a InsertRow) Name() string { return "insert row" }

func (a InsertRow) Do(s *session.Session) (Action, error) {
	oid, err := rows.Insert(s, a.TableOID, a.BeforeOID, a.ParentRowOID)
	if err != nil {
		return nil, err
	}
	if a.Created != nil {
		*a.Created = oid
	}
	return TrashRow{TableOID: a.TableOID, RowOID: oid}, nil
}

// TrashRow soft-deletes a logical row.
type TrashRow struct {
	TableOID int64
	RowOID   int64
}

func (a TrashRow) Name() string { return "trash row" }

func (a TrashRow) Do(s *session.Session) (Action, error) {
	deepTable, deepRow, err := rows.Trash(s, a.TableOID, a.RowOID)
	if err != nil {
		return nil, err
	}
	return UntrashRow{TableOID: deepTable, RowOID: deepRow}, nil
}

// UntrashRow restores a trashed logical row.
type UntrashRow struct {
	TableOID int64
	RowOID   int64
}

func (a UntrashRow) Name() string { return "restore row" }

func (a UntrashRow) Do(s *session.Session) (Action, error) {
	if err := rows.Untrash(s, a.TableOID, a.RowOID); err != nil {
		return nil, err
	}
	return TrashRow{TableOID: a.TableOID, RowOID: a.RowOID}, nil
}

// RetypeRow changes the subtype of a logical row.
type RetypeRow struct {
	TableOID   int64
	RowOID     int64
	SubtypeOID int64
}

func (a RetypeRow) Name() string { return "retype row" }

func (a RetypeRow) Do(s *session.Session) (Action, error) {
	oldSubtype, err := rows.Retype(s, a.TableOID, a.RowOID, a.SubtypeOID)
	if err != nil {
		return nil, err
	}
	return RetypeRow{TableOID: a.TableOID, RowOID: a.RowOID, SubtypeOID: oldSubtype}, nil
}

// UpdateValue writes a cell from its text form.
type UpdateValue struct {
	ColumnOID int64
	RowOID    int64
	Value     *string
}

func (a UpdateValue) Name() string { return "update value" }

func (a UpdateValue) Do(s *session.Session) (Action, error) {
	prior, err := rows.UpdatePrimitiveValue(s, a.ColumnOID, a.RowOID, a.Value)
	if err != nil {
		return nil, err
	}
	return UpdateValue{ColumnOID: a.ColumnOID, RowOID: a.RowOID, Value: nullableString(prior)}, nil
}

// SetObject fills a child object cell with a fresh object row.
type SetObject struct {
	ColumnOID int64
	RowOID    int64
	// Created receives the new object row's OID.
	Created *int64
}

func (a SetObject) Name() string { return "set object" }

func (a SetObject) Do(s *session.Session) (Action, error) {
	oid, err := rows.SetObjectValue(s, a.ColumnOID, a.RowOID)
	if err != nil {
		return nil, err
	}
	if a.Created != nil {
		*a.Created = oid
	}
	return UnsetObject{ColumnOID: a.ColumnOID, RowOID: a.RowOID}, nil
}

// UnsetObject clears a child object cell.
type UnsetObject struct {
	ColumnOID int64
	RowOID    int64
}

func (a UnsetObject) Name() string { return "unset object" }

func (a UnsetObject) Do(s *session.Session) (Action, error) {
	prior, err := rows.UnsetObjectValue(s, a.ColumnOID, a.RowOID)
	if err != nil {
		return nil, err
	}
	return RestoreObject{ColumnOID: a.ColumnOID, RowOID: a.RowOID, ObjectOID: prior}, nil
}

// RestoreObject points a child object cell back at a trashed object row.
type RestoreObject struct {
	ColumnOID int64
	RowOID    int64
	ObjectOID int64
}

func (a RestoreObject) Name() string { return "restore object" }

func (a RestoreObject) Do(s *session.Session) (Action, error) {
	if a.ObjectOID != 0 {
		if err := rows.RestoreObjectValue(s, a.ColumnOID, a.RowOID, a.ObjectOID); err != nil {
			return nil, err
		}
	}
	return UnsetObject{ColumnOID: a.ColumnOID, RowOID: a.RowOID}, nil
}

// SetMultiselect replaces a multi-select cell's selection.
type SetMultiselect struct {
	ColumnOID int64
	RowOID    int64
	ValueOIDs []int64
}

func (a SetMultiselect) Name() string { return "set multiselect" }

func (a SetMultiselect) Do(s *session.Session) (Action, error) {
	prior, err := rows.SetMultiselect(s, a.ColumnOID, a.RowOID, a.ValueOIDs)
	if err != nil {
		return nil, err
	}
	return SetMultiselect{ColumnOID: a.ColumnOID, RowOID: a.RowOID, ValueOIDs: prior}, nil
}

// SetDropdownValues replaces a dropdown column's value list.
type SetDropdownValues struct {
	ColumnOID int64
	Values    []string
}

func (a SetDropdownValues) Name() string { return "set dropdown values" }

func (a SetDropdownValues) Do(s *session.Session) (Action, error) {
	prior, err := schema.SetDropdownValues(s, a.ColumnOID, a.Values)
	if err != nil {
		return nil, err
	}
	return SetDropdownValues{ColumnOID: a.ColumnOID, Values: prior}, nil
}

func nullableString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	return &v.String
}
