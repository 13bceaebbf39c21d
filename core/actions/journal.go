package actions

import (
	"database/sql"
	"encoding/json"

	"github.com/staticdb/staticdb/core/dberr"
	"github.com/staticdb/staticdb/core/session"
	"github.com/staticdb/staticdb/internal/logging"
)

// Journal is a Stack whose inverses live in the database instead of
// memory, so undo and redo survive closing the file. Every mutating
// engine operation is already expressible as an Action with a recorded
// inverse, which is what makes the log replayable.
type Journal struct {
	s *session.Session
}

const journalDDL = `CREATE TABLE IF NOT EXISTS UNDO_LOG (
	N    INTEGER PRIMARY KEY,
	SIDE TEXT NOT NULL,
	KIND TEXT NOT NULL,
	DATA TEXT NOT NULL
) STRICT`

// OpenJournal binds a journal to a session, creating its log table on
// first use.
func OpenJournal(s *session.Session) (*Journal, error) {
	if _, err := s.Exec(journalDDL); err != nil {
		return nil, err
	}
	return &Journal{s: s}, nil
}

// Execute runs an action and records its inverse on the undo side. The
// redo side is cleared, as with the in-memory stack.
func (j *Journal) Execute(a Action) error {
	inverse, err := runAction(j.s, a)
	if err != nil {
		return err
	}
	kind, data, err := encodeAction(inverse)
	if err != nil {
		return err
	}
	if _, err := j.s.Exec(`DELETE FROM UNDO_LOG WHERE SIDE = 'redo'`); err != nil {
		return err
	}
	if _, err := j.s.Exec(
		`INSERT INTO UNDO_LOG (SIDE, KIND, DATA) VALUES ('undo', ?, ?)`, kind, data); err != nil {
		return err
	}
	return nil
}

// Undo applies the newest recorded inverse and moves it to the redo
// side. It reports whether there was anything to undo.
func (j *Journal) Undo() (bool, error) {
	return j.pop("undo", "redo")
}

// Redo reapplies the newest undone action.
func (j *Journal) Redo() (bool, error) {
	return j.pop("redo", "undo")
}

func (j *Journal) pop(from, to string) (bool, error) {
	var (
		n    int64
		kind string
		data string
	)
	found, err := j.s.QueryOne(
		`SELECT N, KIND, DATA FROM UNDO_LOG WHERE SIDE = ? ORDER BY N DESC LIMIT 1`,
		[]any{from}, &n, &kind, &data)
	if err != nil {
		return false, err
	}
	if !found {
		return false, nil
	}

	a, err := decodeAction(kind, []byte(data))
	if err != nil {
		return false, err
	}
	inverse, err := runAction(j.s, a)
	if err != nil {
		return false, err
	}
	invKind, invData, err := encodeAction(inverse)
	if err != nil {
		return false, err
	}
	if _, err := j.s.Exec(`DELETE FROM UNDO_LOG WHERE N = ?`, n); err != nil {
		return false, err
	}
	if _, err := j.s.Exec(
		`INSERT INTO UNDO_LOG (SIDE, KIND, DATA) VALUES (?, ?, ?)`, to, invKind, invData); err != nil {
		return false, err
	}

	undo, _, err := j.Depths()
	if err != nil {
		return false, err
	}
	logging.UndoEvent(from, undo)
	return true, nil
}

// Depths returns the number of undoable and redoable entries.
func (j *Journal) Depths() (undo, redo int, err error) {
	err = j.s.QueryIterate(
		`SELECT SIDE, COUNT(*) FROM UNDO_LOG GROUP BY SIDE`,
		nil, func(rows *sql.Rows) error {
			var side string
			var count int
			if err := rows.Scan(&side, &count); err != nil {
				return err
			}
			if side == "undo" {
				undo = count
			} else {
				redo = count
			}
			return nil
		})
	return undo, redo, err
}

func encodeAction(a Action) (kind, data string, err error) {
	b, err := json.Marshal(a)
	if err != nil {
		return "", "", dberr.Wrap(err, "encode "+a.Name())
	}
	return a.Name(), string(b), nil
}

func decodeAction(kind string, data []byte) (Action, error) {
	decode, ok := actionDecoders[kind]
	if !ok {
		return nil, dberr.NewUnsupported("journal entry", "unknown action kind "+kind)
	}
	a, err := decode(data)
	if err != nil {
		return nil, dberr.Wrap(err, "decode "+kind)
	}
	return a, nil
}

func decodeInto[T Action](data []byte) (Action, error) {
	var a T
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, err
	}
	return a, nil
}

var actionDecoders = map[string]func([]byte) (Action, error){
	CreateTable{}.Name():       decodeInto[CreateTable],
	TrashTable{}.Name():        decodeInto[TrashTable],
	RestoreTable{}.Name():      decodeInto[RestoreTable],
	EditTable{}.Name():         decodeInto[EditTable],
	CreateColumn{}.Name():      decodeInto[CreateColumn],
	TrashColumn{}.Name():       decodeInto[TrashColumn],
	RestoreColumn{}.Name():     decodeInto[RestoreColumn],
	EditColumn{}.Name():        decodeInto[EditColumn],
	RevertColumn{}.Name():      decodeInto[RevertColumn],
	SetColumnWidth{}.Name():    decodeInto[SetColumnWidth],
	ReorderColumn{}.Name():     decodeInto[ReorderColumn],
	PushRow{}.Name():           decodeInto[PushRow],
	InsertRow{}.Name():         decodeInto[InsertRow],
	TrashRow{}.Name():          decodeInto[TrashRow],
	UntrashRow{}.Name():        decodeInto[UntrashRow],
	RetypeRow{}.Name():         decodeInto[RetypeRow],
	UpdateValue{}.Name():       decodeInto[UpdateValue],
	SetObject{}.Name():         decodeInto[SetObject],
	UnsetObject{}.Name():       decodeInto[UnsetObject],
	RestoreObject{}.Name():     decodeInto[RestoreObject],
	SetMultiselect{}.Name():    decodeInto[SetMultiselect],
	SetDropdownValues{}.Name(): decodeInto[SetDropdownValues],
}
