package apothecary

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aws/smithy-go"
	"go.uber.org/zap"
)

var (
	// ErrNotFound is returned when no item exists for the requested key.
	ErrNotFound = errors.New("apothecary: not found")
	// ErrMissingKey is returned when an entity lacks a value for a key attribute.
	ErrMissingKey = errors.New("apothecary: missing key")
	// ErrAmbiguousKey is returned by Get when the table has a sort key but none was supplied.
	ErrAmbiguousKey = errors.New("apothecary: ambiguous key")
	// ErrUnknownField is returned by Update for a field the entity type does not have.
	ErrUnknownField = errors.New("apothecary: unknown field")
	// ErrInvalidKey is returned for key values of the wrong kind, or for attempts to update a key.
	ErrInvalidKey = errors.New("apothecary: invalid key")
	// ErrTableNotFound is returned when the target table does not exist.
	ErrTableNotFound = errors.New("apothecary: table not found")
	// ErrTableExists is returned by CreateTable when the table already exists.
	ErrTableExists = errors.New("apothecary: table already exists")
	// ErrSchemaMismatch is returned when a stored item was written by a different entity type or schema version.
	ErrSchemaMismatch = errors.New("apothecary: schema mismatch")
	// ErrInvalidEntity is returned when an entity fails schema validation. See ValidationError.
	ErrInvalidEntity = errors.New("apothecary: invalid entity")
	// ErrInvalidSchema is returned for a malformed Schema.
	ErrInvalidSchema = errors.New("apothecary: invalid schema")
)

// FieldResult is the outcome of validating one declared attribute.
type FieldResult struct {
	Field   string
	Problem string
}

// OK reports whether the field passed validation.
func (r FieldResult) OK() bool {
	return r.Problem == ""
}

// ValidationError carries the failing field results for an entity that could not be written.
type ValidationError struct {
	EntityType string
	Results    []FieldResult
}

func (e *ValidationError) Error() string {
	var problems []string
	for _, r := range e.Results {
		if !r.OK() {
			problems = append(problems, r.Field+": "+r.Problem)
		}
	}
	return fmt.Sprintf("%s %s: %s", ErrInvalidEntity.Error(), e.EntityType, strings.Join(problems, "; "))
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidEntity
}

// IsStoreError reports whether err came back from the AWS transport, such as a
// throttling, connectivity, or permission failure.
func IsStoreError(err error) bool {
	var oe *smithy.OperationError
	if errors.As(err, &oe) {
		return true
	}
	var ae smithy.APIError
	return errors.As(err, &ae)
}

// storeErrorFields describes an AWS error for structured logging.
func storeErrorFields(err error) []zap.Field {
	fields := []zap.Field{zap.Error(err)}
	var oe *smithy.OperationError
	if errors.As(err, &oe) {
		fields = append(fields, zap.String("service", oe.Service()), zap.String("operation", oe.Operation()))
	}
	var ae smithy.APIError
	if errors.As(err, &ae) {
		fields = append(fields, zap.String("code", ae.ErrorCode()), zap.String("fault", ae.ErrorFault().String()))
	}
	return fields
}
