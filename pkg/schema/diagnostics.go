package schema

import (
	"fmt"

	"github.com/ajitpratap0/docarrow/pkg/errors"
)

// BatchLevel is the Record index of diagnostics that concern the whole batch
const BatchLevel = -1

// Diagnostic is an advisory warning raised while converting a batch. It
// never aborts the batch.
type Diagnostic struct {
	Field  string
	Kind   errors.ErrorType // ErrorTypeUnsupportedValue or ErrorTypeTypeConflict
	Reason string
	Record int // index of the record in the batch, or BatchLevel
}

func (d Diagnostic) String() string {
	if d.Record == BatchLevel {
		return fmt.Sprintf("%s: field %q: %s", d.Kind, d.Field, d.Reason)
	}
	return fmt.Sprintf("%s: record %d field %q: %s", d.Kind, d.Record, d.Field, d.Reason)
}

func unsupported(field string, v interface{}) Diagnostic {
	return Diagnostic{
		Field:  field,
		Kind:   errors.ErrorTypeUnsupportedValue,
		Reason: fmt.Sprintf("unsupported value type %T dropped", v),
		Record: BatchLevel,
	}
}

// structural builds the error that excludes a record from its batch
func structural(field, format string, args ...interface{}) *errors.Error {
	return errors.Newf(errors.ErrorTypeStructural, format, args...).
		WithDetail(errors.DetailField, field)
}
