// Package schema owns the metadata catalog and all physical DDL: table and
// column lifecycle, inheritance edges, and the per-table surrogate display
// views. Row-level DML lives in core/rows; read plans live in core/query.
//
// Inheritance is stored as (inheritor, master) edges and walked in memory
// with visited sets. Helpers here are shared by the row lifecycle and the
// query compiler, which need the same ancestor and descendant closures.
package schema

import (
	"database/sql"
	"sort"

	"github.com/staticdb/staticdb/core/session"
)

// Masters returns the direct master table OIDs of a table, live edges
// only, ordered by OID.
func Masters(s *session.Session, tableOID int64) ([]int64, error) {
	return collectOIDs(s,
		`SELECT MASTER_TABLE_OID FROM METADATA_TABLE_INHERITANCE
		 WHERE TRASH = 0 AND INHERITOR_TABLE_OID = ? ORDER BY MASTER_TABLE_OID`,
		tableOID)
}

// Inheritors returns the direct inheritor table OIDs of a table. Trashed
// edges are included: a trashed subtype row still shadows its masters.
func Inheritors(s *session.Session, tableOID int64) ([]int64, error) {
	return collectOIDs(s,
		`SELECT INHERITOR_TABLE_OID FROM METADATA_TABLE_INHERITANCE
		 WHERE MASTER_TABLE_OID = ? ORDER BY INHERITOR_TABLE_OID`,
		tableOID)
}

// LiveInheritors returns the direct inheritor table OIDs over live edges.
func LiveInheritors(s *session.Session, tableOID int64) ([]int64, error) {
	return collectOIDs(s,
		`SELECT INHERITOR_TABLE_OID FROM METADATA_TABLE_INHERITANCE
		 WHERE TRASH = 0 AND MASTER_TABLE_OID = ? ORDER BY INHERITOR_TABLE_OID`,
		tableOID)
}

func collectOIDs(s *session.Session, query string, args ...any) ([]int64, error) {
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

// SupertypeClosure returns the table itself plus every ancestor reachable
// over live inheritance edges, deduplicated, in breadth-first order.
func SupertypeClosure(s *session.Session, tableOID int64) ([]int64, error) {
	return closure(s, tableOID, Masters)
}

// InheritorClosure returns the table itself plus every descendant
// reachable over live inheritance edges.
func InheritorClosure(s *session.Session, tableOID int64) ([]int64, error) {
	return closure(s, tableOID, LiveInheritors)
}

func closure(s *session.Session, start int64, next func(*session.Session, int64) ([]int64, error)) ([]int64, error) {
	seen := map[int64]bool{start: true}
	order := []int64{start}
	queue := []int64{start}
	for len(queue) > 0 {
		oid := queue[0]
		queue = queue[1:]
		adj, err := next(s, oid)
		if err != nil {
			return nil, err
		}
		for _, a := range adj {
			if !seen[a] {
				seen[a] = true
				order = append(order, a)
				queue = append(queue, a)
			}
		}
	}
	return order, nil
}

// AncestorDepths returns, for every ancestor of tableOID over live edges,
// the maximum edge distance from tableOID. The table itself is not
// included.
func AncestorDepths(s *session.Session, tableOID int64) (map[int64]int, error) {
	depths := map[int64]int{}
	var walk func(oid int64, depth int) error
	walk = func(oid int64, depth int) error {
		masters, err := Masters(s, oid)
		if err != nil {
			return err
		}
		for _, m := range masters {
			if prev, ok := depths[m]; !ok || depth+1 > prev {
				depths[m] = depth + 1
				if err := walk(m, depth+1); err != nil {
					return err
				}
			}
		}
		return nil
	}
	if err := walk(tableOID, 0); err != nil {
		return nil, err
	}
	return depths, nil
}

// sortedOIDs returns the keys of m in ascending order.
func sortedOIDs(m map[int64]int) []int64 {
	oids := make([]int64, 0, len(m))
	for oid := range m {
		oids = append(oids, oid)
	}
	sort.Slice(oids, func(i, j int) bool { return oids[i] < oids[j] })
	return oids
}
