package schema

import (
	"container/heap"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/staticdb/staticdb/core/catalog"
	"github.com/staticdb/staticdb/core/dberr"
	"github.com/staticdb/staticdb/core/session"
	"github.com/staticdb/staticdb/internal/logging"
)

// tableDependency orders surrogate rebuilds by dependency depth.
type tableDependency struct {
	depth    int
	tableOID int64
}

// dependencyHeap is a max-heap: deepest dependents rebuild first, so every
// view a shallower view joins against already exists.
type dependencyHeap []tableDependency

func (h dependencyHeap) Len() int { return len(h) }
func (h dependencyHeap) Less(i, j int) bool {
	if h[i].depth != h[j].depth {
		return h[i].depth > h[j].depth
	}
	return h[i].tableOID < h[j].tableOID
}
func (h dependencyHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *dependencyHeap) Push(x any)        { *h = append(*h, x.(tableDependency)) }
func (h *dependencyHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// UpdateSurrogateView drops and rebuilds the display view for a table and
// for every table whose display transitively depends on it. A primary-key
// reference cycle fails the whole rebuild before any view is recreated
// out of order.
func UpdateSurrogateView(s *session.Session, tableOID int64) error {
	dependencies, err := dropSurrogateView(s, tableOID, nil)
	if err != nil {
		return err
	}

	h := make(dependencyHeap, 0, len(dependencies))
	for oid, depth := range dependencies {
		h = append(h, tableDependency{depth: depth, tableOID: oid})
	}
	heap.Init(&h)

	rebuilt := 0
	for h.Len() > 0 {
		dep := heap.Pop(&h).(tableDependency)
		if err := createSurrogateView(s, dep.tableOID); err != nil {
			return err
		}
		rebuilt++
	}
	logging.SurrogateRebuild(tableOID, rebuilt)
	return nil
}

// dropSurrogateView drops the view for tableOID and, recursively, the view
// of every table holding a primary-key column typed as tableOID. It
// returns each affected table with the maximum dependency depth at which
// it was seen. ancestry is the chain of tables above this recursion; a
// revisit means the primary keys reference each other in a loop.
func dropSurrogateView(s *session.Session, tableOID int64, ancestry []int64) (map[int64]int, error) {
	found := map[int64]int{tableOID: 0}
	ancestry = append(ancestry, tableOID)

	dependents, err := collectOIDs(s,
		`SELECT TABLE_OID FROM METADATA_TABLE_COLUMN
		 WHERE TYPE_OID = ? AND IS_PRIMARY_KEY = 1`,
		tableOID)
	if err != nil {
		return nil, err
	}

	for _, dependent := range dependents {
		if dependent == tableOID {
			// self-references join their own view, no recursion needed
			continue
		}
		for _, above := range ancestry {
			if above == dependent {
				return nil, dberr.NewCycle(dependent)
			}
		}
		sub, err := dropSurrogateView(s, dependent, ancestry)
		if err != nil {
			return nil, err
		}
		for oid, depth := range sub {
			if prev, ok := found[oid]; !ok || depth+1 > prev {
				found[oid] = depth + 1
			}
		}
	}

	if _, err := s.Exec(`DROP VIEW IF EXISTS ` + catalog.SurrogateViewName(tableOID)); err != nil {
		return nil, err
	}
	return found, nil
}

// primaryKeyExpr carries the two display expressions of one primary-key
// column.
type primaryKeyExpr struct {
	singleExpr string
	jsonExpr   string
}

// createSurrogateView composes and creates the display view for a table
// from its live primary-key columns.
func createSurrogateView(s *session.Session, tableOID int64) error {
	type pkColumn struct {
		oid  int64
		name string
		typ  int64
		mode int
	}
	var pkCols []pkColumn
	err := s.QueryIterate(
		`SELECT
			c.OID,
			c.NAME,
			c.TYPE_OID,
			t.MODE
		FROM METADATA_TABLE_COLUMN c
		INNER JOIN METADATA_TYPE t ON t.OID = c.TYPE_OID
		WHERE c.TABLE_OID = ? AND c.TRASH = 0 AND c.IS_PRIMARY_KEY = 1
		ORDER BY c.COLUMN_ORDERING`,
		[]any{tableOID},
		func(rows *sql.Rows) error {
			var c pkColumn
			if err := rows.Scan(&c.oid, &c.name, &c.typ, &c.mode); err != nil {
				return err
			}
			pkCols = append(pkCols, c)
			return nil
		})
	if err != nil {
		return err
	}

	fromClause := fmt.Sprintf("FROM %s t", catalog.TableName(tableOID))
	var exprs []primaryKeyExpr
	tblCount := 1

	for _, c := range pkCols {
		jsonName, err := json.Marshal(c.name)
		if err != nil {
			return dberr.Wrap(err, "surrogate view")
		}
		col := "t." + catalog.ColumnName(c.oid)
		prefix := fmt.Sprintf("'%s: ' || ", jsonName)

		ct := catalog.ColumnType{Mode: catalog.Mode(c.mode), Primitive: catalog.Primitive(c.typ), BackingTableOID: c.typ}
		switch ct.Mode {
		case catalog.ModePrimitive:
			switch ct.Primitive {
			case catalog.PrimitiveBoolean:
				exprs = append(exprs, primaryKeyExpr{
					singleExpr: fmt.Sprintf("CASE WHEN %s = 1 THEN 'True' ELSE 'False' END", col),
					jsonExpr:   prefix + fmt.Sprintf("CASE WHEN %s = 1 THEN 'true' ELSE 'false' END", col),
				})
			case catalog.PrimitiveText:
				exprs = append(exprs, primaryKeyExpr{
					singleExpr: col,
					jsonExpr:   prefix + fmt.Sprintf(`CASE WHEN %s IS NOT NULL THEN '"' || %s || '"' ELSE 'null' END`, col, col),
				})
			case catalog.PrimitiveDate:
				exprs = append(exprs, primaryKeyExpr{
					singleExpr: fmt.Sprintf("DATE(%s, 'unixepoch')", col),
					jsonExpr:   prefix + fmt.Sprintf(`CASE WHEN %s IS NOT NULL THEN '"' || DATE(%s, 'unixepoch') || '"' ELSE 'null' END`, col, col),
				})
			case catalog.PrimitiveTimestamp:
				exprs = append(exprs, primaryKeyExpr{
					singleExpr: fmt.Sprintf("STRFTIME('%%FT%%TZ', %s, 'unixepoch')", col),
					jsonExpr:   prefix + fmt.Sprintf(`CASE WHEN %s IS NOT NULL THEN '"' || STRFTIME('%%FT%%TZ', %s, 'unixepoch') || '"' ELSE 'null' END`, col, col),
				})
			case catalog.PrimitiveBlob, catalog.PrimitiveImageBlob:
				exprs = append(exprs, primaryKeyExpr{
					singleExpr: fmt.Sprintf("CASE WHEN %s IS NULL THEN NULL ELSE '{}' END", col),
					jsonExpr:   prefix + fmt.Sprintf("CASE WHEN %s IS NOT NULL THEN '{}' ELSE 'null' END", col),
				})
			default:
				// Null, Integer, Number and JSON all cast to text
				exprs = append(exprs, primaryKeyExpr{
					singleExpr: fmt.Sprintf("CAST(%s AS TEXT)", col),
					jsonExpr:   prefix + fmt.Sprintf("CASE WHEN %s IS NOT NULL THEN CAST(%s AS TEXT) ELSE 'null' END", col, col),
				})
			}
		case catalog.ModeSingleSelect:
			alias := fmt.Sprintf("t%d", tblCount)
			exprs = append(exprs, primaryKeyExpr{
				singleExpr: alias + ".VALUE",
				jsonExpr:   prefix + fmt.Sprintf(`CASE WHEN %s IS NOT NULL THEN '"' || %s.VALUE || '"' ELSE 'null' END`, col, alias),
			})
			fromClause += fmt.Sprintf(" LEFT JOIN %s %s ON %s.OID = %s",
				catalog.TableName(ct.BackingTableOID), alias, alias, col)
			tblCount++
		case catalog.ModeMultiSelect:
			values := catalog.TableName(ct.BackingTableOID)
			junction := catalog.MultiselectTableName(ct.BackingTableOID)
			exprs = append(exprs, primaryKeyExpr{
				singleExpr: fmt.Sprintf("(SELECT '[' || GROUP_CONCAT(b.VALUE) || ']' FROM %s a INNER JOIN %s b ON b.OID = a.VALUE_OID WHERE a.ROW_OID = t.OID GROUP BY a.ROW_OID)", junction, values),
				jsonExpr:   prefix + fmt.Sprintf("COALESCE('[' || (SELECT GROUP_CONCAT(b.VALUE) FROM %s a INNER JOIN %s b ON b.OID = a.VALUE_OID WHERE a.ROW_OID = t.OID GROUP BY a.ROW_OID) || ']', 'null')", junction, values),
			})
		case catalog.ModeReference, catalog.ModeChildObject:
			alias := fmt.Sprintf("t%d", tblCount)
			exprs = append(exprs, primaryKeyExpr{
				singleExpr: alias + ".DISPLAY_VALUE",
				jsonExpr:   prefix + alias + ".JSON_DISPLAY_VALUE",
			})
			fromClause += fmt.Sprintf(" LEFT JOIN %s %s ON %s.OID = %s",
				catalog.SurrogateViewName(ct.BackingTableOID), alias, alias, col)
			tblCount++
		case catalog.ModeChildTable:
			childTable := catalog.TableName(ct.BackingTableOID)
			childView := catalog.SurrogateViewName(ct.BackingTableOID)
			exprs = append(exprs, primaryKeyExpr{
				singleExpr: fmt.Sprintf("'[' || (SELECT GROUP_CONCAT(v.DISPLAY_VALUE) FROM %s c INNER JOIN %s v ON v.OID = c.OID WHERE c.PARENT_OID = t.OID AND c.TRASH = 0 GROUP BY c.PARENT_OID) || ']'", childTable, childView),
				jsonExpr:   fmt.Sprintf("'%s: [' || (SELECT GROUP_CONCAT(v.JSON_DISPLAY_VALUE) FROM %s c INNER JOIN %s v ON v.OID = c.OID WHERE c.PARENT_OID = t.OID AND c.TRASH = 0 GROUP BY c.PARENT_OID) || ']'", jsonName, childTable, childView),
			})
		default:
			return dberr.NewUnsupported("column mode", ct.Mode.String())
		}
	}

	var jsonDisplay string
	if len(exprs) > 0 {
		parts := make([]string, len(exprs))
		for i, e := range exprs {
			parts[i] = e.jsonExpr
		}
		jsonDisplay = fmt.Sprintf("'{ ' || %s || ' }'", strings.Join(parts, " || ', ' || "))
	} else {
		jsonDisplay = "'{}'"
	}

	var display string
	switch {
	case len(exprs) > 1:
		display = jsonDisplay
	case len(exprs) == 1:
		display = exprs[0].singleExpr
	default:
		display = "'— NO PRIMARY KEY —'"
	}

	createCmd := fmt.Sprintf(`CREATE VIEW %s
AS
SELECT
	t.OID,
	CASE
		WHEN t.TRASH = 0 THEN %s
		ELSE '— DELETED —'
	END AS DISPLAY_VALUE,
	CASE
		WHEN t.TRASH = 0 THEN %s
		ELSE 'null'
	END AS JSON_DISPLAY_VALUE
%s`, catalog.SurrogateViewName(tableOID), display, jsonDisplay, fromClause)

	_, err = s.Exec(createCmd)
	return err
}
