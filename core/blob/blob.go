// Package blob moves file contents in and out of blob cells. Imports
// preallocate the cell with ZEROBLOB before writing so SQLite reserves
// the pages in one step, and every transfer carries a BLAKE3 checksum so
// a later export can prove the bytes survived unchanged.
package blob

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/zeebo/blake3"

	"github.com/staticdb/staticdb/core/catalog"
	"github.com/staticdb/staticdb/core/dberr"
	"github.com/staticdb/staticdb/core/schema"
	"github.com/staticdb/staticdb/core/session"
	"github.com/staticdb/staticdb/internal/logging"
)

// Store abstracts the filesystem so transfers can be tested without one.
type Store interface {
	ReadFile(path string) ([]byte, error)
	WriteFile(path string, data []byte) error
}

// OSStore is the filesystem-backed Store.
type OSStore struct{}

func (OSStore) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

func (OSStore) WriteFile(path string, data []byte) error {
	return os.WriteFile(path, data, 0o644)
}

// Result describes one completed transfer.
type Result struct {
	Bytes    int64
	Checksum string
}

// blobCell resolves a column to its table and verifies it stores bytes.
func blobCell(s *session.Session, columnOID int64) (schema.ColumnMetadata, error) {
	md, err := schema.ColumnByOID(s, columnOID)
	if err != nil {
		return schema.ColumnMetadata{}, err
	}
	ct, err := catalog.Resolve(s, md.TypeOID)
	if err != nil {
		return schema.ColumnMetadata{}, err
	}
	if !ct.IsBlob() {
		return schema.ColumnMetadata{}, dberr.NewSchema("column", columnOID, "not a blob column")
	}
	return md, nil
}

func checksum(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Import reads a file into a blob cell and returns its size and
// checksum.
func Import(s *session.Session, store Store, columnOID, rowOID int64, path string) (Result, error) {
	md, err := blobCell(s, columnOID)
	if err != nil {
		return Result{}, err
	}
	data, err := store.ReadFile(path)
	if err != nil {
		return Result{}, dberr.NewFile("read", path, err)
	}

	table := catalog.TableName(md.TableOID)
	column := catalog.ColumnName(columnOID)

	res, err := s.Exec(
		fmt.Sprintf(`UPDATE %s SET %s = ZEROBLOB(?) WHERE OID = ?`, table, column),
		len(data), rowOID)
	if err != nil {
		return Result{}, err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return Result{}, dberr.NewResource("row", rowOID)
	}
	if _, err := s.Exec(
		fmt.Sprintf(`UPDATE %s SET %s = ? WHERE OID = ?`, table, column),
		data, rowOID); err != nil {
		return Result{}, err
	}

	result := Result{Bytes: int64(len(data)), Checksum: checksum(data)}
	logging.RowChange("blob import", md.TableOID, rowOID,
		"size", humanize.Bytes(uint64(result.Bytes)), "checksum", result.Checksum)
	return result, nil
}

// Export writes a blob cell to a file and returns its size and checksum,
// which the caller can compare against the value Import reported.
func Export(s *session.Session, store Store, columnOID, rowOID int64, path string) (Result, error) {
	md, err := blobCell(s, columnOID)
	if err != nil {
		return Result{}, err
	}
	data, err := readCell(s, md, columnOID, rowOID)
	if err != nil {
		return Result{}, err
	}
	if err := store.WriteFile(path, data); err != nil {
		return Result{}, dberr.NewFile("write", path, err)
	}
	result := Result{Bytes: int64(len(data)), Checksum: checksum(data)}
	logging.RowChange("blob export", md.TableOID, rowOID,
		"size", humanize.Bytes(uint64(result.Bytes)), "checksum", result.Checksum)
	return result, nil
}

// Preview returns the cell's bytes base64-encoded for inline display.
func Preview(s *session.Session, columnOID, rowOID int64) (string, error) {
	md, err := blobCell(s, columnOID)
	if err != nil {
		return "", err
	}
	data, err := readCell(s, md, columnOID, rowOID)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

func readCell(s *session.Session, md schema.ColumnMetadata, columnOID, rowOID int64) ([]byte, error) {
	var data []byte
	found, err := s.QueryOne(
		fmt.Sprintf(`SELECT %s FROM %s WHERE OID = ?`,
			catalog.ColumnName(columnOID), catalog.TableName(md.TableOID)),
		[]any{rowOID}, &data)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, dberr.NewResource("row", rowOID)
	}
	if data == nil {
		return nil, dberr.NewValidation("cell", "blob cell is empty")
	}
	return data, nil
}
