package rows

import (
	"fmt"
	"sort"

	"github.com/staticdb/staticdb/core/catalog"
	"github.com/staticdb/staticdb/core/dberr"
	"github.com/staticdb/staticdb/core/schema"
	"github.com/staticdb/staticdb/core/session"
	"github.com/staticdb/staticdb/internal/logging"
)

// Trash trashes a logical row. The walk first probes downward for the
// deepest live subtype row, then trashes that row and its whole master
// chain, so trashing through any supertype hits the same physical rows.
// It returns the deepest table and row it landed on; Untrash on that
// pair reverses the operation.
func Trash(s *session.Session, tableOID, rowOID int64) (int64, int64, error) {
	deepTable, deepRow, _, err := deepestLiveSubtype(s, tableOID, rowOID, 0)
	if err != nil {
		return 0, 0, err
	}
	if err := setTrashUpward(s, deepTable, deepRow, 1, map[int64]bool{}); err != nil {
		return 0, 0, err
	}
	logging.RowChange("trash", deepTable, deepRow)
	return deepTable, deepRow, nil
}

// Untrash restores a logical row, reviving the row and its master chain.
// tableOID and rowOID should be the pair Trash returned.
func Untrash(s *session.Session, tableOID, rowOID int64) error {
	if err := setTrashUpward(s, tableOID, rowOID, 0, map[int64]bool{}); err != nil {
		return err
	}
	logging.RowChange("untrash", tableOID, rowOID)
	return nil
}

// deepestLiveSubtype follows inheritor edges downward from (tableOID,
// rowOID) to the most specific live row of the same logical entity,
// returning the pair and its depth. All edges are probed, trashed ones
// included, because a trashed subtype row still pairs with its master
// rows.
func deepestLiveSubtype(s *session.Session, tableOID, rowOID int64, depth int) (int64, int64, int, error) {
	bestTable, bestRow, bestDepth := tableOID, rowOID, depth

	inheritors, err := schema.Inheritors(s, tableOID)
	if err != nil {
		return 0, 0, 0, err
	}
	for _, sub := range inheritors {
		var subRow int64
		found, err := s.QueryOne(
			fmt.Sprintf(`SELECT OID FROM %s WHERE %s = ? AND TRASH = 0`,
				catalog.TableName(sub), catalog.MasterColumnName(tableOID)),
			[]any{rowOID}, &subRow)
		if err != nil {
			return 0, 0, 0, err
		}
		if !found {
			continue
		}
		t, r, d, err := deepestLiveSubtype(s, sub, subRow, depth+1)
		if err != nil {
			return 0, 0, 0, err
		}
		if d > bestDepth {
			bestTable, bestRow, bestDepth = t, r, d
		}
	}
	return bestTable, bestRow, bestDepth, nil
}

// setTrashUpward sets TRASH on a row and every row in its master chain,
// live edges only.
func setTrashUpward(s *session.Session, tableOID, rowOID int64, trash int, visited map[int64]bool) error {
	if visited[tableOID] {
		return nil
	}
	visited[tableOID] = true

	res, err := s.Exec(
		fmt.Sprintf(`UPDATE %s SET TRASH = ? WHERE OID = ?`, catalog.TableName(tableOID)),
		trash, rowOID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return dberr.NewResource("row", rowOID)
	}

	masters, err := schema.Masters(s, tableOID)
	if err != nil {
		return err
	}
	for _, m := range masters {
		var masterRow int64
		found, err := s.QueryOne(
			fmt.Sprintf(`SELECT %s FROM %s WHERE OID = ?`,
				catalog.MasterColumnName(m), catalog.TableName(tableOID)),
			[]any{rowOID}, &masterRow)
		if err != nil {
			return err
		}
		if !found {
			return dberr.NewResource("row", rowOID)
		}
		if err := setTrashUpward(s, m, masterRow, trash, visited); err != nil {
			return err
		}
	}
	return nil
}

// Retype changes the subtype of a logical row: the current subtype chain
// is trashed, then the chain toward the new subtype is revived where
// rows already exist and inserted where they do not. It returns the OID
// of the subtype table the row was trashed out of, which Retype back to
// restores the original shape.
func Retype(s *session.Session, baseTableOID, rowOID, newSubtypeOID int64) (int64, error) {
	subOfBase, err := schema.InheritorClosure(s, baseTableOID)
	if err != nil {
		return 0, err
	}
	below := map[int64]bool{}
	for _, t := range subOfBase {
		below[t] = true
	}
	if !below[newSubtypeOID] {
		return 0, dberr.NewSchema("table", newSubtypeOID, "not a subtype of the row's table")
	}

	oldSubtypeOID, _, err := Trash(s, baseTableOID, rowOID)
	if err != nil {
		return 0, err
	}

	// tables between the base and the new subtype, new subtype first
	superOfNew, err := schema.AncestorDepths(s, newSubtypeOID)
	if err != nil {
		return 0, err
	}

	type chainEntry struct {
		oid   int64
		depth int
	}
	var chain []chainEntry
	for t, d := range superOfNew {
		if below[t] && t != baseTableOID {
			chain = append(chain, chainEntry{oid: t, depth: d})
		}
	}
	sort.Slice(chain, func(i, j int) bool {
		if chain[i].depth != chain[j].depth {
			return chain[i].depth > chain[j].depth
		}
		return chain[i].oid < chain[j].oid
	})

	known := map[int64]int64{baseTableOID: rowOID}
	for _, entry := range chain {
		row, found, err := findRowByMasters(s, entry.oid, known)
		if err != nil {
			return 0, err
		}
		if found {
			known[entry.oid] = row
		}
	}

	if newSubtypeOID == baseTableOID {
		if err := Untrash(s, baseTableOID, rowOID); err != nil {
			return 0, err
		}
		return oldSubtypeOID, nil
	}

	targetRow, exists, err := findRowByMasters(s, newSubtypeOID, known)
	if err != nil {
		return 0, err
	}
	if !exists {
		targetRow, err = insertInPlace(s, newSubtypeOID, nil, nil, known)
		if err != nil {
			return 0, err
		}
	}
	if err := Untrash(s, newSubtypeOID, targetRow); err != nil {
		return 0, err
	}
	logging.RowChange("retype", newSubtypeOID, targetRow)
	return oldSubtypeOID, nil
}

// findRowByMasters looks for an existing row of tableOID whose master
// columns point at the known chain rows. A master without a known row
// means no match can exist on this path.
func findRowByMasters(s *session.Session, tableOID int64, known map[int64]int64) (int64, bool, error) {
	masters, err := schema.Masters(s, tableOID)
	if err != nil {
		return 0, false, err
	}
	if len(masters) == 0 {
		return 0, false, nil
	}
	where := ""
	args := []any{}
	for _, m := range masters {
		masterRow, ok := known[m]
		if !ok {
			return 0, false, nil
		}
		if where != "" {
			where += " AND "
		}
		where += catalog.MasterColumnName(m) + " = ?"
		args = append(args, masterRow)
	}
	var row int64
	found, err := s.QueryOne(
		fmt.Sprintf(`SELECT OID FROM %s WHERE %s`, catalog.TableName(tableOID), where),
		args, &row)
	if err != nil {
		return 0, false, err
	}
	return row, found, nil
}
