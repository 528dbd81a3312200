// Package errors provides examples of structured error handling in docarrow.
package errors_test

import (
	"fmt"
	"io"

	"github.com/ajitpratap0/docarrow/pkg/errors"
)

// Example demonstrates basic error creation and details.
func Example() {
	err := errors.New(errors.ErrorTypeStructural, "geo-point is missing longitude").
		WithDetail(errors.DetailRecord, 3).
		WithDetail(errors.DetailField, "location")

	fmt.Println(err.Error())
	fmt.Println(err.Detail(errors.DetailRecord))

	// Output:
	// structural: geo-point is missing longitude
	// 3
}

// ExampleWrap shows how source failures keep their cause.
func ExampleWrap() {
	err := errors.Wrap(io.ErrUnexpectedEOF, errors.ErrorTypeSource, "failed to read entity").
		WithDetail("line", 42)

	if errors.IsType(err, errors.ErrorTypeSource) {
		fmt.Println("This is a source error")
	}

	if errors.Is(err, io.ErrUnexpectedEOF) {
		fmt.Println("Cause was unexpected EOF")
	}

	// Output:
	// This is a source error
	// Cause was unexpected EOF
}

// ExampleNewf demonstrates formatted messages.
func ExampleNewf() {
	err := errors.Newf(errors.ErrorTypeConfig, "unsupported output format %q", "orc")
	fmt.Println(err)

	// Output:
	// config: unsupported output format "orc"
}
