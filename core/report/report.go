// Package report manages report definitions. A report names a base
// table and carries its own column list; each report column is either a
// formula over the base table or an embedded sub-report.
package report

import (
	"database/sql"
	"strings"

	"github.com/staticdb/staticdb/core/dberr"
	"github.com/staticdb/staticdb/core/schema"
	"github.com/staticdb/staticdb/core/session"
	"github.com/staticdb/staticdb/internal/logging"
)

// Kind says what a report column computes.
type Kind int

const (
	// KindPlain is a column with no formula or sub-report yet.
	KindPlain Kind = iota
	KindFormula
	KindSubreport
)

func (k Kind) String() string {
	switch k {
	case KindFormula:
		return "formula"
	case KindSubreport:
		return "subreport"
	default:
		return "plain"
	}
}

// Metadata describes one report.
type Metadata struct {
	OID          int64
	BaseTableOID int64
	Name         string
}

// Column describes one report column.
type Column struct {
	OID       int64
	ReportOID int64
	Name      string
	Ordering  int64
	Style     string
	Kind      Kind

	// Formula holds the expression for KindFormula columns.
	Formula string
	// SubreportOID and ParameterOID bind KindSubreport columns.
	SubreportOID int64
	ParameterOID int64
}

// Create defines a report over a base table and returns its OID.
func Create(s *session.Session, baseTableOID int64, name string) (int64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, dberr.NewValidation("name", "report name must not be empty")
	}
	if _, err := schema.Metadata(s, baseTableOID); err != nil {
		return 0, err
	}

	res, err := s.Exec(`INSERT INTO METADATA_RPT DEFAULT VALUES`)
	if err != nil {
		return 0, err
	}
	oid, err := res.LastInsertId()
	if err != nil {
		return 0, dberr.NewStorage("create report", err)
	}
	if _, err := s.Exec(
		`INSERT INTO METADATA_RPT__REPORT (RPT_OID, BASE_TABLE_OID, NAME) VALUES (?, ?, ?)`,
		oid, baseTableOID, name); err != nil {
		return 0, err
	}
	logging.SchemaChange("create report", baseTableOID, "report", oid, "name", name)
	return oid, nil
}

// Rename changes a report's name and returns the previous one.
func Rename(s *session.Session, reportOID int64, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", dberr.NewValidation("name", "report name must not be empty")
	}
	md, err := ByOID(s, reportOID)
	if err != nil {
		return "", err
	}
	if _, err := s.Exec(
		`UPDATE METADATA_RPT__REPORT SET NAME = ? WHERE RPT_OID = ?`, name, reportOID); err != nil {
		return "", err
	}
	logging.SchemaChange("rename report", md.BaseTableOID, "report", reportOID, "name", name)
	return md.Name, nil
}

// MoveTrash soft-deletes a report.
func MoveTrash(s *session.Session, reportOID int64) error {
	return setTrash(s, reportOID, 1)
}

// UnmoveTrash restores a trashed report.
func UnmoveTrash(s *session.Session, reportOID int64) error {
	return setTrash(s, reportOID, 0)
}

func setTrash(s *session.Session, reportOID, trash int64) error {
	res, err := s.Exec(`UPDATE METADATA_RPT SET TRASH = ? WHERE OID = ?`, trash, reportOID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return dberr.NewResource("report", reportOID)
	}
	return nil
}

// ByOID returns a live report's metadata.
func ByOID(s *session.Session, reportOID int64) (Metadata, error) {
	var md Metadata
	found, err := s.QueryOne(
		`SELECT r.RPT_OID, r.BASE_TABLE_OID, r.NAME
		 FROM METADATA_RPT__REPORT r
		 INNER JOIN METADATA_RPT b ON b.OID = r.RPT_OID
		 WHERE r.RPT_OID = ? AND b.TRASH = 0`,
		[]any{reportOID}, &md.OID, &md.BaseTableOID, &md.Name)
	if err != nil {
		return Metadata{}, err
	}
	if !found {
		return Metadata{}, dberr.NewResource("report", reportOID)
	}
	return md, nil
}

// List returns every live report ordered by name.
func List(s *session.Session) ([]Metadata, error) {
	var list []Metadata
	err := s.QueryIterate(
		`SELECT r.RPT_OID, r.BASE_TABLE_OID, r.NAME
		 FROM METADATA_RPT__REPORT r
		 INNER JOIN METADATA_RPT b ON b.OID = r.RPT_OID
		 WHERE b.TRASH = 0
		 ORDER BY r.NAME, r.RPT_OID`,
		nil, func(rows *sql.Rows) error {
			var md Metadata
			if err := rows.Scan(&md.OID, &md.BaseTableOID, &md.Name); err != nil {
				return err
			}
			list = append(list, md)
			return nil
		})
	if err != nil {
		return nil, err
	}
	return list, nil
}

// CreateFormulaColumn adds a formula column to a report.
func CreateFormulaColumn(s *session.Session, reportOID int64, name, formula string) (int64, error) {
	formula = strings.TrimSpace(formula)
	if formula == "" {
		return 0, dberr.NewValidation("formula", "formula must not be empty")
	}
	oid, err := createColumn(s, reportOID, name)
	if err != nil {
		return 0, err
	}
	if _, err := s.Exec(
		`INSERT INTO METADATA_RPT_COLUMN__FORMULA (RPT_COLUMN_OID, FORMULA) VALUES (?, ?)`,
		oid, formula); err != nil {
		return 0, err
	}
	return oid, nil
}

// CreateSubreportColumn adds a column that embeds another report,
// passing one of this report's columns as its parameter.
func CreateSubreportColumn(s *session.Session, reportOID int64, name string, subreportOID, parameterOID int64) (int64, error) {
	if subreportOID == reportOID {
		return 0, dberr.NewSchema("report", reportOID, "a report cannot embed itself")
	}
	if _, err := ByOID(s, subreportOID); err != nil {
		return 0, err
	}
	owner, err := columnReport(s, parameterOID)
	if err != nil {
		return 0, err
	}
	if owner != reportOID {
		return 0, dberr.NewSchema("report column", parameterOID, "parameter column belongs to another report")
	}

	oid, err := createColumn(s, reportOID, name)
	if err != nil {
		return 0, err
	}
	if _, err := s.Exec(
		`INSERT INTO METADATA_RPT_COLUMN__SUBREPORT (RPT_COLUMN_OID, RPT_OID, RPT_PARAMETER_OID)
		 VALUES (?, ?, ?)`,
		oid, subreportOID, parameterOID); err != nil {
		return 0, err
	}
	return oid, nil
}

func createColumn(s *session.Session, reportOID int64, name string) (int64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, dberr.NewValidation("name", "column name must not be empty")
	}
	if _, err := ByOID(s, reportOID); err != nil {
		return 0, err
	}

	var next int64
	if _, err := s.QueryOne(
		`SELECT COALESCE(MAX(COLUMN_ORDERING) + 1, 0) FROM METADATA_RPT_COLUMN
		 WHERE RPT_OID = ? AND TRASH = 0`,
		[]any{reportOID}, &next); err != nil {
		return 0, err
	}
	res, err := s.Exec(
		`INSERT INTO METADATA_RPT_COLUMN (RPT_OID, NAME, COLUMN_ORDERING) VALUES (?, ?, ?)`,
		reportOID, name, next)
	if err != nil {
		return 0, err
	}
	oid, err := res.LastInsertId()
	if err != nil {
		return 0, dberr.NewStorage("create report column", err)
	}
	return oid, nil
}

// columnReport returns the report owning a live report column.
func columnReport(s *session.Session, columnOID int64) (int64, error) {
	var reportOID int64
	found, err := s.QueryOne(
		`SELECT RPT_OID FROM METADATA_RPT_COLUMN WHERE OID = ? AND TRASH = 0`,
		[]any{columnOID}, &reportOID)
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, dberr.NewResource("report column", columnOID)
	}
	return reportOID, nil
}

// ColumnByOID returns one live report column with its kind resolved. A
// column bound as both formula and sub-report is a broken definition.
func ColumnByOID(s *session.Session, columnOID int64) (Column, error) {
	var (
		c       Column
		formula *string
		subOID  *int64
		parmOID *int64
	)
	found, err := s.QueryOne(
		`SELECT c.OID, c.RPT_OID, c.NAME, c.COLUMN_ORDERING, c.COLUMN_STYLE,
		        f.FORMULA, sr.RPT_OID, sr.RPT_PARAMETER_OID
		 FROM METADATA_RPT_COLUMN c
		 LEFT JOIN METADATA_RPT_COLUMN__FORMULA f ON f.RPT_COLUMN_OID = c.OID
		 LEFT JOIN METADATA_RPT_COLUMN__SUBREPORT sr ON sr.RPT_COLUMN_OID = c.OID
		 WHERE c.OID = ? AND c.TRASH = 0`,
		[]any{columnOID},
		&c.OID, &c.ReportOID, &c.Name, &c.Ordering, &c.Style, &formula, &subOID, &parmOID)
	if err != nil {
		return Column{}, err
	}
	if !found {
		return Column{}, dberr.NewResource("report column", columnOID)
	}
	if err := bindKind(&c, formula, subOID, parmOID); err != nil {
		return Column{}, err
	}
	return c, nil
}

// Columns returns a report's live columns in display order.
func Columns(s *session.Session, reportOID int64) ([]Column, error) {
	if _, err := ByOID(s, reportOID); err != nil {
		return nil, err
	}
	type scanned struct {
		c       Column
		formula *string
		subOID  *int64
		parmOID *int64
	}
	var raw []scanned
	err := s.QueryIterate(
		`SELECT c.OID, c.RPT_OID, c.NAME, c.COLUMN_ORDERING, c.COLUMN_STYLE,
		        f.FORMULA, sr.RPT_OID, sr.RPT_PARAMETER_OID
		 FROM METADATA_RPT_COLUMN c
		 LEFT JOIN METADATA_RPT_COLUMN__FORMULA f ON f.RPT_COLUMN_OID = c.OID
		 LEFT JOIN METADATA_RPT_COLUMN__SUBREPORT sr ON sr.RPT_COLUMN_OID = c.OID
		 WHERE c.RPT_OID = ? AND c.TRASH = 0
		 ORDER BY c.COLUMN_ORDERING, c.OID`,
		[]any{reportOID}, func(rows *sql.Rows) error {
			var sc scanned
			if err := rows.Scan(&sc.c.OID, &sc.c.ReportOID, &sc.c.Name, &sc.c.Ordering,
				&sc.c.Style, &sc.formula, &sc.subOID, &sc.parmOID); err != nil {
				return err
			}
			raw = append(raw, sc)
			return nil
		})
	if err != nil {
		return nil, err
	}
	list := make([]Column, 0, len(raw))
	for _, sc := range raw {
		if err := bindKind(&sc.c, sc.formula, sc.subOID, sc.parmOID); err != nil {
			return nil, err
		}
		list = append(list, sc.c)
	}
	return list, nil
}

func bindKind(c *Column, formula *string, subOID, parmOID *int64) error {
	switch {
	case formula != nil && subOID != nil:
		return dberr.NewSchema("report column", c.OID, "bound as both formula and subreport")
	case formula != nil:
		c.Kind = KindFormula
		c.Formula = *formula
	case subOID != nil:
		c.Kind = KindSubreport
		c.SubreportOID = *subOID
		if parmOID != nil {
			c.ParameterOID = *parmOID
		}
	default:
		c.Kind = KindPlain
	}
	return nil
}

// EditFormula replaces a formula column's expression and returns the
// previous one.
func EditFormula(s *session.Session, columnOID int64, formula string) (string, error) {
	formula = strings.TrimSpace(formula)
	if formula == "" {
		return "", dberr.NewValidation("formula", "formula must not be empty")
	}
	c, err := ColumnByOID(s, columnOID)
	if err != nil {
		return "", err
	}
	if c.Kind != KindFormula {
		return "", dberr.NewSchema("report column", columnOID, "not a formula column")
	}
	if _, err := s.Exec(
		`UPDATE METADATA_RPT_COLUMN__FORMULA SET FORMULA = ? WHERE RPT_COLUMN_OID = ?`,
		formula, columnOID); err != nil {
		return "", err
	}
	return c.Formula, nil
}

// MoveColumnTrash soft-deletes a report column.
func MoveColumnTrash(s *session.Session, columnOID int64) error {
	return setColumnTrash(s, columnOID, 1)
}

// UnmoveColumnTrash restores a trashed report column.
func UnmoveColumnTrash(s *session.Session, columnOID int64) error {
	return setColumnTrash(s, columnOID, 0)
}

func setColumnTrash(s *session.Session, columnOID, trash int64) error {
	res, err := s.Exec(`UPDATE METADATA_RPT_COLUMN SET TRASH = ? WHERE OID = ?`, trash, columnOID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return dberr.NewResource("report column", columnOID)
	}
	return nil
}
