package report

import (
	"github.com/staticdb/staticdb/core/query"
	"github.com/staticdb/staticdb/core/session"
)

// SendData streams a page of the report's base table through sink.
// Formula and sub-report columns are stored definitions the renderer
// applies on top, so the data path is the base table's compiled read.
func SendData(s *session.Session, sink query.Sink, reportOID, limit, offset int64) error {
	md, err := ByOID(s, reportOID)
	if err != nil {
		return err
	}
	return query.SendTableData(s, sink, md.BaseTableOID, limit, offset, nil)
}

// SendRow streams one row of the report's base table.
func SendRow(s *session.Session, sink query.Sink, reportOID, rowOID int64) error {
	md, err := ByOID(s, reportOID)
	if err != nil {
		return err
	}
	return query.SendTableRow(s, sink, md.BaseTableOID, rowOID)
}
