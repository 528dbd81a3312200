// Package errors provides structured error handling for docarrow
package errors

import (
	"errors"
	"fmt"
	"runtime"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrorTypeInternal represents internal system errors
	ErrorTypeInternal ErrorType = "internal"
	// ErrorTypeUnsupportedValue represents a value outside the classifier's closed set
	ErrorTypeUnsupportedValue ErrorType = "unsupported_value"
	// ErrorTypeTypeConflict represents a field observed with different kinds in one batch
	ErrorTypeTypeConflict ErrorType = "type_conflict"
	// ErrorTypeStructural represents a record that cannot be flattened
	ErrorTypeStructural ErrorType = "structural"
	// ErrorTypeSource represents record source failures
	ErrorTypeSource ErrorType = "source"
	// ErrorTypeSerialization represents columnar serialization failures
	ErrorTypeSerialization ErrorType = "serialization"
	// ErrorTypeDestination represents destination write failures
	ErrorTypeDestination ErrorType = "destination"
	// ErrorTypeConnection represents connection errors
	ErrorTypeConnection ErrorType = "connection"
	// ErrorTypeConfig represents configuration errors
	ErrorTypeConfig ErrorType = "config"
	// ErrorTypeFile represents file operation errors
	ErrorTypeFile ErrorType = "file"
)

// Error is a typed error. Details carry structured context such as the
// record index or field name of a conversion failure.
type Error struct {
	Type    ErrorType
	Message string
	Cause   error
	Details map[string]interface{}

	// program counters of the creation site, resolved on demand
	pcs []uintptr
}

// StackFrame is one resolved frame of an error's creation stack
type StackFrame struct {
	Function string
	File     string
	Line     int
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// WithDetail sets a detail and returns e for chaining
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{}, 2)
	}
	e.Details[key] = value
	return e
}

// Detail returns a detail value, or nil when absent
func (e *Error) Detail(key string) interface{} {
	return e.Details[key]
}

// StackTrace resolves the stack recorded when the innermost typed error of
// the chain was created.
func (e *Error) StackTrace() []StackFrame {
	if len(e.pcs) == 0 {
		return nil
	}
	frames := runtime.CallersFrames(e.pcs)
	out := make([]StackFrame, 0, len(e.pcs))
	for {
		f, more := frames.Next()
		out = append(out, StackFrame{Function: f.Function, File: f.File, Line: f.Line})
		if !more {
			return out
		}
	}
}

// New creates an error of the given type
func New(errType ErrorType, message string) *Error {
	return &Error{Type: errType, Message: message, pcs: callers()}
}

// Newf creates an error with a formatted message
func Newf(errType ErrorType, format string, args ...interface{}) *Error {
	return &Error{Type: errType, Message: fmt.Sprintf(format, args...), pcs: callers()}
}

// Wrap puts err under a typed message. A typed cause keeps its stack, so
// the trace points at the original failure. Wrap(nil, ...) is nil.
func Wrap(err error, errType ErrorType, message string) *Error {
	if err == nil {
		return nil
	}
	wrapped := &Error{Type: errType, Message: message, Cause: err}
	var inner *Error
	if errors.As(err, &inner) {
		wrapped.pcs = inner.pcs
	} else {
		wrapped.pcs = callers()
	}
	return wrapped
}

// Detail keys shared by the conversion packages
const (
	DetailField  = "field"
	DetailRecord = "record"
)

// TypeOf returns the type of the outermost *Error in err's chain, or ""
// when there is none.
func TypeOf(err error) ErrorType {
	var e *Error
	if !errors.As(err, &e) {
		return ""
	}
	return e.Type
}

// IsPermanent reports whether err stems from the input or the configuration,
// so repeating the operation cannot succeed.
func IsPermanent(err error) bool {
	switch TypeOf(err) {
	case ErrorTypeConfig, ErrorTypeSerialization, ErrorTypeStructural,
		ErrorTypeUnsupportedValue, ErrorTypeTypeConflict:
		return true
	}
	return false
}

// IsType checks if the error is of the given type
func IsType(err error, errType ErrorType) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Type == errType
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// callers records the stack above the exported constructor
func callers() []uintptr {
	const maxFrames = 32
	pcs := make([]uintptr, maxFrames)
	// skip runtime.Callers, callers and the constructor
	n := runtime.Callers(3, pcs)
	return pcs[:n]
}
