// Package query compiles and streams read plans over inherited tables.
//
// One SELECT joins a table with every master table in its supertype
// chain, so a logical row comes back as one result row carrying the
// columns of the whole chain. Each column contributes a display
// expression and a true-value expression; validations the stored data
// would fail are reported per cell instead of failing the read.
package query

import (
	"fmt"
	"sort"
	"strings"

	"github.com/staticdb/staticdb/core/catalog"
	"github.com/staticdb/staticdb/core/dberr"
	"github.com/staticdb/staticdb/core/schema"
	"github.com/staticdb/staticdb/core/session"
)

// ColumnPlan is one column of a compiled plan with its resolved type.
type ColumnPlan struct {
	Meta schema.ColumnMetadata
	Type catalog.ColumnType
}

// Plan is a compiled read over a table and its supertype chain.
type Plan struct {
	TableOID  int64
	Ancestors []int64 // join order, nearest first
	Columns   []ColumnPlan

	selectList  string
	fromMasters string // FROM plus the master INNER JOINs
	columnJoins string // LEFT JOINs feeding display expressions
}

// rowAlias returns the result-set alias of a chain table's row OID.
func rowAlias(tableOID int64, base bool) string {
	if base {
		return "t"
	}
	return fmt.Sprintf("m%d", tableOID)
}

// ConstructDataQuery compiles the read plan for a table.
func ConstructDataQuery(s *session.Session, tableOID int64) (*Plan, error) {
	if _, err := schema.Metadata(s, tableOID); err != nil {
		return nil, err
	}

	depths, err := schema.AncestorDepths(s, tableOID)
	if err != nil {
		return nil, err
	}
	type ranked struct {
		oid   int64
		depth int
	}
	order := make([]ranked, 0, len(depths))
	for oid, d := range depths {
		order = append(order, ranked{oid: oid, depth: d})
	}
	sort.Slice(order, func(i, j int) bool {
		if order[i].depth != order[j].depth {
			return order[i].depth < order[j].depth
		}
		return order[i].oid < order[j].oid
	})
	ancestors := make([]int64, len(order))
	for i, r := range order {
		ancestors[i] = r.oid
	}

	p := &Plan{TableOID: tableOID, Ancestors: ancestors}

	if err := p.loadColumns(s); err != nil {
		return nil, err
	}
	if err := p.buildFrom(s); err != nil {
		return nil, err
	}
	p.buildSelect()
	return p, nil
}

// loadColumns collects the live columns of the whole chain in display
// order.
func (p *Plan) loadColumns(s *session.Session) error {
	chain := append([]int64{p.TableOID}, p.Ancestors...)
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(chain)), ", ")
	args := make([]any, len(chain))
	for i, t := range chain {
		args[i] = t
	}

	metas := []schema.ColumnMetadata{}
	err := s.QueryIterate(
		`SELECT OID, TABLE_OID, NAME, TYPE_OID, COLUMN_WIDTH, COLUMN_ORDERING, COLUMN_STYLE, IS_NULLABLE, IS_UNIQUE, IS_PRIMARY_KEY, TRASH
		 FROM METADATA_TABLE_COLUMN
		 WHERE TRASH = 0 AND TABLE_OID IN (`+placeholders+`)
		 ORDER BY COLUMN_ORDERING, OID`,
		args,
		scanColumnMetadata(&metas))
	if err != nil {
		return err
	}

	for _, md := range metas {
		ct, err := catalog.Resolve(s, md.TypeOID)
		if err != nil {
			return err
		}
		p.Columns = append(p.Columns, ColumnPlan{Meta: md, Type: ct})
	}
	return nil
}

// buildFrom assembles the master join plan. Every chain table that names
// an ancestor as a direct master contributes a join condition; a table
// reached over two paths gets both conditions ANDed so the chain rows
// stay consistent.
func (p *Plan) buildFrom(s *session.Session) error {
	from := fmt.Sprintf("FROM %s t", catalog.TableName(p.TableOID))

	joined := map[int64]bool{p.TableOID: true}
	chain := append([]int64{p.TableOID}, p.Ancestors...)
	for _, m := range p.Ancestors {
		var conds []string
		for _, i := range chain {
			if i == m || !joined[i] {
				continue
			}
			masters, err := schema.Masters(s, i)
			if err != nil {
				return err
			}
			for _, mm := range masters {
				if mm == m {
					conds = append(conds, fmt.Sprintf("%s.%s = %s.OID",
						rowAlias(i, i == p.TableOID), catalog.MasterColumnName(m), rowAlias(m, false)))
				}
			}
		}
		if len(conds) == 0 {
			return dberr.NewSchema("table", m, "ancestor not reachable in join plan")
		}
		from += fmt.Sprintf("\nINNER JOIN %s %s ON %s",
			catalog.TableName(m), rowAlias(m, false), strings.Join(conds, " AND "))
		joined[m] = true
	}
	p.fromMasters = from
	return nil
}

// buildSelect assembles the select list and the LEFT JOINs feeding the
// display expressions.
func (p *Plan) buildSelect() {
	parts := []string{
		"ROW_NUMBER() OVER (ORDER BY t.OID) AS ROW_INDEX",
		"t.OID AS t_OID",
	}
	for _, m := range p.Ancestors {
		alias := rowAlias(m, false)
		parts = append(parts, fmt.Sprintf("%s.OID AS %s_OID", alias, alias))
	}

	joins := ""
	joinCount := 0
	for _, c := range p.Columns {
		alias := rowAlias(c.Meta.TableOID, c.Meta.TableOID == p.TableOID)
		display, trueValue, join := columnExpressions(c, alias, &joinCount)
		joins += join
		parts = append(parts,
			fmt.Sprintf("%s AS %s", display, catalog.ColumnName(c.Meta.OID)),
			fmt.Sprintf("%s AS _%s", trueValue, catalog.ColumnName(c.Meta.OID)))
	}
	p.selectList = "SELECT\n\t" + strings.Join(parts, ",\n\t")
	p.columnJoins = joins
}

// columnExpressions returns the display and true-value SQL for one
// column, plus any LEFT JOIN the display needs.
func columnExpressions(c ColumnPlan, ownerAlias string, joinCount *int) (display, trueValue, join string) {
	q := ownerAlias + "." + catalog.ColumnName(c.Meta.OID)

	switch c.Type.Mode {
	case catalog.ModePrimitive:
		switch c.Type.Primitive {
		case catalog.PrimitiveBoolean:
			return fmt.Sprintf("CASE WHEN %s = 1 THEN 'True' WHEN %s = 0 THEN 'False' END", q, q),
				fmt.Sprintf("CAST(%s AS TEXT)", q), ""
		case catalog.PrimitiveDate:
			return fmt.Sprintf("DATE(%s, 'unixepoch')", q),
				fmt.Sprintf("CAST(%s AS TEXT)", q), ""
		case catalog.PrimitiveTimestamp:
			return fmt.Sprintf("STRFTIME('%%FT%%TZ', %s, 'unixepoch')", q),
				fmt.Sprintf("CAST(%s AS TEXT)", q), ""
		case catalog.PrimitiveText:
			return q, q, ""
		case catalog.PrimitiveBlob:
			return fmt.Sprintf(
					"CASE WHEN %s IS NULL THEN NULL WHEN LENGTH(%s) >= 1073741824 THEN FORMAT('%%.1f GB', LENGTH(%s) / 1073741824.0) WHEN LENGTH(%s) >= 1048576 THEN FORMAT('%%.1f MB', LENGTH(%s) / 1048576.0) WHEN LENGTH(%s) >= 1024 THEN FORMAT('%%.1f KB', LENGTH(%s) / 1024.0) ELSE FORMAT('%%d B', LENGTH(%s)) END",
					q, q, q, q, q, q, q, q),
				fmt.Sprintf("CAST(LENGTH(%s) AS TEXT)", q), ""
		case catalog.PrimitiveImageBlob:
			return fmt.Sprintf("CASE WHEN %s IS NOT NULL THEN 'Thumbnail' END", q),
				fmt.Sprintf("CAST(LENGTH(%s) AS TEXT)", q), ""
		default:
			// Null, Integer, Number, JSON
			return fmt.Sprintf("CAST(%s AS TEXT)", q),
				fmt.Sprintf("CAST(%s AS TEXT)", q), ""
		}
	case catalog.ModeSingleSelect:
		*joinCount++
		alias := fmt.Sprintf("t%d", *joinCount)
		join = fmt.Sprintf("\nLEFT JOIN %s %s ON %s.OID = %s",
			catalog.TableName(c.Type.BackingTableOID), alias, alias, q)
		return alias + ".VALUE", fmt.Sprintf("CAST(%s AS TEXT)", q), join
	case catalog.ModeMultiSelect:
		junction := catalog.MultiselectTableName(c.Type.BackingTableOID)
		values := catalog.TableName(c.Type.BackingTableOID)
		display = fmt.Sprintf(
			"(SELECT '[' || GROUP_CONCAT(b.VALUE) || ']' FROM %s a INNER JOIN %s b ON b.OID = a.VALUE_OID WHERE a.ROW_OID = %s.OID GROUP BY a.ROW_OID)",
			junction, values, ownerAlias)
		trueValue = fmt.Sprintf(
			"(SELECT '[' || GROUP_CONCAT(a.VALUE_OID) || ']' FROM %s a WHERE a.ROW_OID = %s.OID GROUP BY a.ROW_OID)",
			junction, ownerAlias)
		return display, trueValue, ""
	case catalog.ModeReference, catalog.ModeChildObject:
		*joinCount++
		alias := fmt.Sprintf("t%d", *joinCount)
		join = fmt.Sprintf("\nLEFT JOIN %s %s ON %s.OID = %s",
			catalog.SurrogateViewName(c.Type.BackingTableOID), alias, alias, q)
		return alias + ".DISPLAY_VALUE", fmt.Sprintf("CAST(%s AS TEXT)", q), join
	default: // child table
		childTable := catalog.TableName(c.Type.BackingTableOID)
		childView := catalog.SurrogateViewName(c.Type.BackingTableOID)
		display = fmt.Sprintf(
			"'[' || (SELECT GROUP_CONCAT(v.DISPLAY_VALUE) FROM %s c INNER JOIN %s v ON v.OID = c.OID WHERE c.PARENT_OID = %s.OID AND c.TRASH = 0 GROUP BY c.PARENT_OID) || ']'",
			childTable, childView, ownerAlias)
		trueValue = fmt.Sprintf(
			"(SELECT '[' || GROUP_CONCAT(c.OID) || ']' FROM %s c WHERE c.PARENT_OID = %s.OID AND c.TRASH = 0 GROUP BY c.PARENT_OID)",
			childTable, ownerAlias)
		return display, trueValue, ""
	}
}

// dataSQL returns the full query with the given suffix after the
// standing live-row filter.
func (p *Plan) dataSQL(suffix string) string {
	sql := p.selectList + "\n" + p.fromMasters + p.columnJoins + "\nWHERE t.TRASH = 0"
	if suffix != "" {
		sql += "\n" + suffix
	}
	return sql
}

// uniqueViolations finds, per unique or primary-key column, the base row
// OIDs holding a value that occurs more than once. The sets are computed
// up front so streaming never issues statements mid-iteration.
func (p *Plan) uniqueViolations(s *session.Session) (map[int64]map[int64]bool, error) {
	invalid := map[int64]map[int64]bool{}
	for _, c := range p.Columns {
		if !c.Meta.Unique && !c.Meta.PrimaryKey {
			continue
		}
		if !c.Type.HasPhysicalColumn() {
			continue
		}
		q := rowAlias(c.Meta.TableOID, c.Meta.TableOID == p.TableOID) + "." + catalog.ColumnName(c.Meta.OID)
		query := fmt.Sprintf(
			`SELECT t.OID %s
			 WHERE t.TRASH = 0 AND %s IS NOT NULL AND %s IN (
				SELECT %s %s WHERE t.TRASH = 0 AND %s IS NOT NULL
				GROUP BY %s HAVING COUNT(t.OID) > 1
			 )`,
			p.fromMasters, q, q, q, p.fromMasters, q, q)
		var oids []int64
		err := s.QueryIterate(query, nil, scanOIDs(&oids))
		if err != nil {
			return nil, err
		}
		if len(oids) > 0 {
			set := map[int64]bool{}
			for _, oid := range oids {
				set[oid] = true
			}
			invalid[c.Meta.OID] = set
		}
	}
	return invalid, nil
}
