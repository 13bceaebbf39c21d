// Package rows implements the row lifecycle over inherited tables.
//
// A logical row is one physical row per table in its supertype chain,
// linked through master columns. Creating, trashing, restoring and
// retyping a row therefore walk the inheritance graph; the walks run in
// memory over the catalog so the data statements stay simple.
package rows

import (
	"database/sql"
	"fmt"
	"sort"

	"github.com/staticdb/staticdb/core/catalog"
	"github.com/staticdb/staticdb/core/dberr"
	"github.com/staticdb/staticdb/core/schema"
	"github.com/staticdb/staticdb/core/session"
	"github.com/staticdb/staticdb/internal/logging"
)

// Push appends a new row to a table, inserting rows into every master
// table first. parentRowOID links the row to its owner when the table is
// a child table.
func Push(s *session.Session, tableOID int64, parentRowOID *int64) (int64, error) {
	oid, err := insertInPlace(s, tableOID, parentRowOID, nil, nil)
	if err != nil {
		return 0, err
	}
	logging.RowChange("push", tableOID, oid)
	return oid, nil
}

// Insert creates a new row at the given OID. A free slot is used as is;
// when the slot is taken but the one below is free the row slips in
// there; otherwise every row at or above the slot shifts up by one.
// Master and child links follow the shift through UPDATE cascades.
func Insert(s *session.Session, tableOID int64, beforeOID int64, parentRowOID *int64) (int64, error) {
	target := beforeOID
	taken, err := rowExists(s, tableOID, beforeOID)
	if err != nil {
		return 0, err
	}
	if taken {
		belowTaken, err := rowExists(s, tableOID, beforeOID-1)
		if err != nil {
			return 0, err
		}
		if !belowTaken && beforeOID > 1 {
			target = beforeOID - 1
		} else {
			if err := shiftRowsUp(s, tableOID, beforeOID); err != nil {
				return 0, err
			}
		}
	}

	oid, err := insertInPlace(s, tableOID, parentRowOID, &target, nil)
	if err != nil {
		return 0, err
	}
	logging.RowChange("insert", tableOID, oid)
	return oid, nil
}

func rowExists(s *session.Session, tableOID, rowOID int64) (bool, error) {
	var oid int64
	return s.QueryOne(
		fmt.Sprintf(`SELECT OID FROM %s WHERE OID = ?`, catalog.TableName(tableOID)),
		[]any{rowOID}, &oid)
}

// shiftRowsUp renumbers every row at or above fromOID one slot higher,
// highest first so the new OID is always free.
func shiftRowsUp(s *session.Session, tableOID, fromOID int64) error {
	oids, err := collectRowOIDs(s,
		fmt.Sprintf(`SELECT OID FROM %s WHERE OID >= ? ORDER BY OID DESC`, catalog.TableName(tableOID)),
		fromOID)
	if err != nil {
		return err
	}
	for _, oid := range oids {
		if _, err := s.Exec(
			fmt.Sprintf(`UPDATE %s SET OID = OID + 1 WHERE OID = ?`, catalog.TableName(tableOID)),
			oid); err != nil {
			return err
		}
	}
	return nil
}

// insertInPlace inserts one row into tableOID and into every master table
// above it, masters first. known maps tables whose rows already exist;
// those tables and everything above them are reused instead of inserted.
// rowOID and parentRowOID apply only to the target table.
func insertInPlace(s *session.Session, tableOID int64, parentRowOID, rowOID *int64, known map[int64]int64) (int64, error) {
	inserted := map[int64]int64{}
	for t, r := range known {
		inserted[t] = r
	}

	depths, err := schema.AncestorDepths(s, tableOID)
	if err != nil {
		return 0, err
	}

	// everything at or above a known row already exists
	covered := map[int64]bool{}
	for t := range known {
		closure, err := schema.SupertypeClosure(s, t)
		if err != nil {
			return 0, err
		}
		for _, c := range closure {
			covered[c] = true
		}
	}

	type pending struct {
		oid   int64
		depth int
	}
	var order []pending
	for t, d := range depths {
		if !covered[t] {
			order = append(order, pending{oid: t, depth: d})
		}
	}
	sort.Slice(order, func(i, j int) bool {
		if order[i].depth != order[j].depth {
			return order[i].depth > order[j].depth
		}
		return order[i].oid < order[j].oid
	})
	order = append(order, pending{oid: tableOID, depth: 0})

	for _, p := range order {
		masters, err := schema.Masters(s, p.oid)
		if err != nil {
			return 0, err
		}
		cols := "TRASH"
		vals := "0"
		args := []any{}
		for _, m := range masters {
			masterRow, ok := inserted[m]
			if !ok {
				return 0, dberr.NewSchema("table", m, "missing master row during insert")
			}
			cols += ", " + catalog.MasterColumnName(m)
			vals += ", ?"
			args = append(args, masterRow)
		}
		if p.oid == tableOID {
			if rowOID != nil {
				cols += ", OID"
				vals += ", ?"
				args = append(args, *rowOID)
			}
			if parentRowOID != nil {
				cols += ", PARENT_OID"
				vals += ", ?"
				args = append(args, *parentRowOID)
			}
		}
		res, err := s.Exec(fmt.Sprintf(
			`INSERT INTO %s (%s) VALUES (%s)`, catalog.TableName(p.oid), cols, vals), args...)
		if err != nil {
			return 0, err
		}
		oid, err := res.LastInsertId()
		if err != nil {
			return 0, dberr.NewStorage("insert", err)
		}
		inserted[p.oid] = oid
	}
	return inserted[tableOID], nil
}

func collectRowOIDs(s *session.Session, query string, args ...any) ([]int64, error) {
	var oids []int64
	err := s.QueryIterate(query, args, func(rows *sql.Rows) error {
		var oid int64
		if err := rows.Scan(&oid); err != nil {
			return err
		}
		oids = append(oids, oid)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return oids, nil
}

// Delete permanently removes a logical row: the row itself, its master
// chain and, through delete cascades, every subtype row and child row
// hanging off it.
func Delete(s *session.Session, tableOID, rowOID int64) error {
	chain, err := ancestorRows(s, tableOID, rowOID)
	if err != nil {
		return err
	}
	chain[tableOID] = rowOID

	// deleting the topmost rows cascades down every master column
	for t, r := range chain {
		masters, err := schema.Masters(s, t)
		if err != nil {
			return err
		}
		inChain := false
		for _, m := range masters {
			if _, ok := chain[m]; ok {
				inChain = true
				break
			}
		}
		if inChain {
			continue
		}
		if _, err := s.Exec(
			fmt.Sprintf(`DELETE FROM %s WHERE OID = ?`, catalog.TableName(t)), r); err != nil {
			return err
		}
	}
	logging.RowChange("delete", tableOID, rowOID)
	return nil
}

// ancestorRows resolves the master chain row of every ancestor table,
// following the master columns upward.
func ancestorRows(s *session.Session, tableOID, rowOID int64) (map[int64]int64, error) {
	found := map[int64]int64{}
	var walk func(t, r int64) error
	walk = func(t, r int64) error {
		masters, err := schema.Masters(s, t)
		if err != nil {
			return err
		}
		for _, m := range masters {
			if _, ok := found[m]; ok {
				continue
			}
			var masterRow int64
			ok, err := s.QueryOne(
				fmt.Sprintf(`SELECT %s FROM %s WHERE OID = ?`,
					catalog.MasterColumnName(m), catalog.TableName(t)),
				[]any{r}, &masterRow)
			if err != nil {
				return err
			}
			if !ok {
				return dberr.NewResource("row", r)
			}
			found[m] = masterRow
			if err := walk(m, masterRow); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(tableOID, rowOID); err != nil {
		return nil, err
	}
	return found, nil
}
