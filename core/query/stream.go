package query

import (
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/staticdb/staticdb/core/catalog"
	"github.com/staticdb/staticdb/core/dberr"
	"github.com/staticdb/staticdb/core/schema"
	"github.com/staticdb/staticdb/core/session"
	"github.com/staticdb/staticdb/internal/logging"
)

// Cell is one element of a streamed result. A row arrives as a RowStart
// followed by one ColumnValue per plan column.
type Cell interface {
	isCell()
}

// RowStart opens a row in the stream.
type RowStart struct {
	RowOID   int64
	RowIndex int64
}

// RowExists reports whether a single-row read found its row. It is the
// only cell sent when the row does not exist.
type RowExists struct {
	Exists bool
}

// FailedValidation names one constraint a stored cell value violates.
type FailedValidation struct {
	Kind        dberr.Validation
	Description string
}

// ColumnValue is one cell of a streamed row. TableOID and RowOID name
// the physical row holding the value, which for an inherited column is a
// master table row rather than the base row.
type ColumnValue struct {
	TableOID          int64
	RowOID            int64
	ColumnOID         int64
	Name              string
	Type              catalog.ColumnType
	TrueValue         *string
	DisplayValue      *string
	FailedValidations []FailedValidation
}

func (RowStart) isCell()    {}
func (RowExists) isCell()   {}
func (ColumnValue) isCell() {}

// Sink receives streamed cells. Send must not issue statements on the
// session the stream reads from.
type Sink interface {
	Send(Cell) error
}

// SendTableData streams a page of a table's rows. parentRowOID narrows a
// child table to the rows of one owner.
func SendTableData(s *session.Session, sink Sink, tableOID, limit, offset int64, parentRowOID *int64) error {
	start := time.Now()
	p, err := ConstructDataQuery(s, tableOID)
	if err != nil {
		return err
	}
	invalid, err := p.uniqueViolations(s)
	if err != nil {
		return err
	}

	suffix := "LIMIT ? OFFSET ?"
	args := []any{limit, offset}
	if parentRowOID != nil {
		suffix = "AND t.PARENT_OID = ?\nLIMIT ? OFFSET ?"
		args = []any{*parentRowOID, limit, offset}
	}

	sent, err := p.stream(s, sink, p.dataSQL(suffix), args, invalid, false)
	if err != nil {
		return err
	}
	logging.QueryExecution(tableOID, sent, time.Since(start))
	return nil
}

// SendTableRow streams one row. When the row is missing or trashed the
// stream is a single RowExists{false} and no error.
func SendTableRow(s *session.Session, sink Sink, tableOID, rowOID int64) error {
	start := time.Now()
	p, err := ConstructDataQuery(s, tableOID)
	if err != nil {
		return err
	}
	invalid, err := p.uniqueViolations(s)
	if err != nil {
		return err
	}

	sent, err := p.stream(s, sink, p.dataSQL("AND t.OID = ?"), []any{rowOID}, invalid, true)
	if err != nil {
		return err
	}
	if sent == 0 {
		return sink.Send(RowExists{Exists: false})
	}
	logging.QueryExecution(tableOID, sent, time.Since(start))
	return nil
}

// stream runs the compiled query and sends each row's cells, returning
// the number of rows sent. With announceExists the first row is preceded
// by RowExists{true}.
func (p *Plan) stream(s *session.Session, sink Sink, query string, args []any, invalid map[int64]map[int64]bool, announceExists bool) (int, error) {
	sent := 0
	err := s.QueryIterate(query, args, func(rows *sql.Rows) error {
		names, err := rows.Columns()
		if err != nil {
			return dberr.NewStorage("query", err)
		}
		raw := make([]any, len(names))
		ptrs := make([]any, len(names))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return dberr.NewStorage("query", err)
		}
		byName := map[string]any{}
		for i, n := range names {
			byName[n] = raw[i]
		}

		rowIndex := mustInt64(byName["ROW_INDEX"])
		baseRow := mustInt64(byName["t_OID"])
		if sent == 0 && announceExists {
			if err := sink.Send(RowExists{Exists: true}); err != nil {
				return err
			}
		}
		if err := sink.Send(RowStart{RowOID: baseRow, RowIndex: rowIndex}); err != nil {
			return err
		}

		for _, c := range p.Columns {
			ownerRow := baseRow
			if c.Meta.TableOID != p.TableOID {
				alias := rowAlias(c.Meta.TableOID, false)
				ownerRow = mustInt64(byName[alias+"_OID"])
			}
			name := catalog.ColumnName(c.Meta.OID)
			cv := ColumnValue{
				TableOID:     c.Meta.TableOID,
				RowOID:       ownerRow,
				ColumnOID:    c.Meta.OID,
				Name:         c.Meta.Name,
				Type:         c.Type,
				TrueValue:    formatValue(byName["_"+name]),
				DisplayValue: formatValue(byName[name]),
			}
			cv.FailedValidations = validations(c, cv.TrueValue, invalid[c.Meta.OID], baseRow)
			if err := sink.Send(cv); err != nil {
				return err
			}
		}
		sent++
		return nil
	})
	if err != nil {
		return sent, err
	}
	return sent, nil
}

// validations reports the constraints a cell's stored value fails. A
// primary key column folds both checks into one kind.
func validations(c ColumnPlan, trueValue *string, invalidRows map[int64]bool, baseRow int64) []FailedValidation {
	var failed []FailedValidation
	missing := trueValue == nil && c.Type.HasPhysicalColumn()
	duplicate := invalidRows[baseRow]

	if c.Meta.PrimaryKey {
		switch {
		case missing:
			failed = append(failed, FailedValidation{
				Kind:        dberr.ValidationPrimaryKey,
				Description: fmt.Sprintf("primary key column %q has no value", c.Meta.Name),
			})
		case duplicate:
			failed = append(failed, FailedValidation{
				Kind:        dberr.ValidationPrimaryKey,
				Description: fmt.Sprintf("primary key column %q repeats a value", c.Meta.Name),
			})
		}
		return failed
	}
	if missing && !c.Meta.Nullable {
		failed = append(failed, FailedValidation{
			Kind:        dberr.ValidationNotNull,
			Description: fmt.Sprintf("column %q requires a value", c.Meta.Name),
		})
	}
	if duplicate {
		failed = append(failed, FailedValidation{
			Kind:        dberr.ValidationUnique,
			Description: fmt.Sprintf("column %q repeats a value", c.Meta.Name),
		})
	}
	return failed
}

func mustInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	default:
		return 0
	}
}

// formatValue renders a driver value as text, nil staying nil.
func formatValue(v any) *string {
	var s string
	switch x := v.(type) {
	case nil:
		return nil
	case string:
		s = x
	case []byte:
		s = string(x)
	case int64:
		s = strconv.FormatInt(x, 10)
	case float64:
		s = strconv.FormatFloat(x, 'g', -1, 64)
	case bool:
		if x {
			s = "true"
		} else {
			s = "false"
		}
	default:
		s = fmt.Sprint(x)
	}
	return &s
}

func scanOIDs(dst *[]int64) func(*sql.Rows) error {
	return func(rows *sql.Rows) error {
		var oid int64
		if err := rows.Scan(&oid); err != nil {
			return err
		}
		*dst = append(*dst, oid)
		return nil
	}
}

func scanColumnMetadata(dst *[]schema.ColumnMetadata) func(*sql.Rows) error {
	return func(rows *sql.Rows) error {
		var md schema.ColumnMetadata
		if err := rows.Scan(&md.OID, &md.TableOID, &md.Name, &md.TypeOID, &md.Width, &md.Ordering,
			&md.Style, &md.Nullable, &md.Unique, &md.PrimaryKey, &md.Trash); err != nil {
			return err
		}
		*dst = append(*dst, md)
		return nil
	}
}
