// Package dberr provides standardized error types and helpers for the staticdb engine.
package dberr

import (
	"errors"
	"fmt"
)

// Sentinel errors for common cases
var (
	// ErrNotOpen indicates no database session is open
	ErrNotOpen = errors.New("no database open")
	// ErrNotFound indicates a catalog entity or row was not found
	ErrNotFound = errors.New("not found")
	// ErrCycle indicates a reference cycle in the table graph
	ErrCycle = errors.New("reference cycle")
	// ErrInvalidInput indicates invalid input or validation failure
	ErrInvalidInput = errors.New("invalid input")
	// ErrConstraint indicates a catalog consistency violation
	ErrConstraint = errors.New("constraint violation")
	// ErrUnsupported indicates an unsupported operation or column type
	ErrUnsupported = errors.New("unsupported")
)

// StorageError represents a failed SQLite operation with context
type StorageError struct {
	Op  string // Operation being performed (e.g., "exec", "query", "savepoint")
	Err error  // Underlying driver error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s failed: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// ResourceError represents a catalog entity that could not be found
type ResourceError struct {
	Entity string // Type of entity (e.g., "table", "column", "row", "report")
	OID    int64  // Identifier of the entity
	Err    error  // Underlying error, if any
}

func (e *ResourceError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.OID)
}

func (e *ResourceError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrNotFound
}

// SchemaError represents an inconsistency discovered in the schema catalog,
// such as a reference cycle or a report column that is both a formula and a
// subreport.
type SchemaError struct {
	Entity  string // Entity involved (e.g., "table", "report column")
	OID     int64  // Identifier of the entity, if known
	Message string // What is inconsistent
	Err     error  // Underlying error, if any
}

func (e *SchemaError) Error() string {
	if e.OID != 0 {
		return fmt.Sprintf("schema inconsistency in %s %d: %s", e.Entity, e.OID, e.Message)
	}
	return fmt.Sprintf("schema inconsistency in %s: %s", e.Entity, e.Message)
}

func (e *SchemaError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrConstraint
}

// ValidationError represents an input validation error with context
type ValidationError struct {
	Field   string // Field name that failed validation
	Message string // Human-readable error message
	Err     error  // Underlying error, if any
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

func (e *ValidationError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrInvalidInput
}

// FileError represents a failed filesystem read or write, distinct from
// the StorageError a SQLite operation produces
type FileError struct {
	Op   string // "read" or "write"
	Path string // File being transferred
	Err  error  // Underlying filesystem error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s file %s: %v", e.Op, e.Path, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}

// UnsupportedError represents an unsupported operation or column type
type UnsupportedError struct {
	Feature string // Feature that is unsupported
	Reason  string // Why it's not supported
	Err     error  // Underlying error, if any
}

func (e *UnsupportedError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("unsupported %s: %s", e.Feature, e.Reason)
	}
	return fmt.Sprintf("unsupported %s", e.Feature)
}

func (e *UnsupportedError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrUnsupported
}

// Validation names a constraint a streamed cell value violates. Query
// results carry these per cell rather than aborting the stream.
type Validation int

const (
	ValidationNotNull Validation = iota
	ValidationUnique
	ValidationPrimaryKey
)

func (v Validation) String() string {
	switch v {
	case ValidationNotNull:
		return "not null"
	case ValidationUnique:
		return "unique"
	case ValidationPrimaryKey:
		return "primary key"
	default:
		return fmt.Sprintf("validation(%d)", int(v))
	}
}

// Helper functions for creating common errors

// NewStorage creates a StorageError
func NewStorage(op string, err error) *StorageError {
	return &StorageError{
		Op:  op,
		Err: err,
	}
}

// NewResource creates a ResourceError
func NewResource(entity string, oid int64) *ResourceError {
	return &ResourceError{
		Entity: entity,
		OID:    oid,
	}
}

// NewSchema creates a SchemaError
func NewSchema(entity string, oid int64, message string) *SchemaError {
	return &SchemaError{
		Entity:  entity,
		OID:     oid,
		Message: message,
	}
}

// NewCycle creates a SchemaError that unwraps to ErrCycle
func NewCycle(tableOID int64) *SchemaError {
	return &SchemaError{
		Entity:  "table",
		OID:     tableOID,
		Message: "reference cycle detected",
		Err:     ErrCycle,
	}
}

// NewValidation creates a ValidationError
func NewValidation(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// NewFile creates a FileError
func NewFile(op, path string, err error) *FileError {
	return &FileError{
		Op:   op,
		Path: path,
		Err:  err,
	}
}

// NewUnsupported creates an UnsupportedError
func NewUnsupported(feature, reason string) *UnsupportedError {
	return &UnsupportedError{
		Feature: feature,
		Reason:  reason,
	}
}

// Wrap adds context to an error. If err is nil, returns nil.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf adds formatted context to an error. If err is nil, returns nil.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	message := fmt.Sprintf(format, args...)
	return fmt.Errorf("%s: %w", message, err)
}

// Is wraps errors.Is for convenience
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As wraps errors.As for convenience
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
