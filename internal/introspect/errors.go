package introspect

import (
	"errors"
	"fmt"

	"github.com/graphiti-lang/graphiti/internal/db"
)

// Generation errors. Every one of them aborts the current generation; no
// partial schema is ever returned.
var (
	// ErrConnectionUnavailable is returned when the provider cannot produce a connection
	ErrConnectionUnavailable = errors.New("connection unavailable")

	// ErrMetadataAccess is returned when a catalog query fails
	ErrMetadataAccess = errors.New("metadata access failed")

	// ErrUnknownColumnType is returned when a native column type has no scalar mapping
	ErrUnknownColumnType = errors.New("unknown column type")

	// ErrDuplicateOperationName is returned when two tables generate the same operation name
	ErrDuplicateOperationName = errors.New("duplicate operation name")

	// ErrInvalidBinding is returned when an operation cannot be bound to a handler
	ErrInvalidBinding = errors.New("invalid operation binding")
)

// UnknownColumnTypeError carries the location of an unmappable column type.
// Table and Column are empty when the lookup happened outside a table walk.
type UnknownColumnTypeError struct {
	Table    string
	Column   string
	TypeName string
}

// Error implements the error interface
func (e *UnknownColumnTypeError) Error() string {
	if e.Table == "" && e.Column == "" {
		return fmt.Sprintf("unknown column type %q", e.TypeName)
	}
	return fmt.Sprintf("unknown column type %q for column %s.%s", e.TypeName, e.Table, e.Column)
}

// Unwrap returns ErrUnknownColumnType
func (e *UnknownColumnTypeError) Unwrap() error {
	return ErrUnknownColumnType
}

// DuplicateOperationError reports two tables whose generated names collide
type DuplicateOperationError struct {
	Name     string
	Table    db.TableRef
	Existing db.TableRef
}

// Error implements the error interface
func (e *DuplicateOperationError) Error() string {
	return fmt.Sprintf("duplicate operation name %q: generated for %s and %s", e.Name, e.Existing, e.Table)
}

// Unwrap returns ErrDuplicateOperationName
func (e *DuplicateOperationError) Unwrap() error {
	return ErrDuplicateOperationName
}

// MetadataAccessError wraps a catalog failure. Both ErrMetadataAccess and the
// underlying driver error match with errors.Is.
type MetadataAccessError struct {
	// Table is empty when listing tables failed
	Table string
	Err   error
}

// Error implements the error interface
func (e *MetadataAccessError) Error() string {
	if e.Table == "" {
		return fmt.Sprintf("metadata access failed listing tables: %v", e.Err)
	}
	return fmt.Sprintf("metadata access failed listing columns of %s: %v", e.Table, e.Err)
}

// Unwrap returns ErrMetadataAccess and the underlying error
func (e *MetadataAccessError) Unwrap() []error {
	return []error{ErrMetadataAccess, e.Err}
}

// IsUnknownColumnType returns true if the error is an unknown column type error
func IsUnknownColumnType(err error) bool {
	return errors.Is(err, ErrUnknownColumnType)
}

// IsDuplicateOperationName returns true if the error is a duplicate operation name error
func IsDuplicateOperationName(err error) bool {
	return errors.Is(err, ErrDuplicateOperationName)
}
