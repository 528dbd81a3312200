// Package connector provides examples of using the docarrow connector registry.
package connector_test

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/ajitpratap0/docarrow/pkg/connector/core"
	"github.com/ajitpratap0/docarrow/pkg/connector/registry"
	"github.com/ajitpratap0/docarrow/pkg/connector/sources/jsonl"
	"github.com/ajitpratap0/docarrow/pkg/encoder"

	// Import connectors to register them
	_ "github.com/ajitpratap0/docarrow/pkg/connector/destinations"
	_ "github.com/ajitpratap0/docarrow/pkg/connector/sources"
)

// Example reads entities and encodes them into one batch.
func Example() {
	input := `{"properties":{"name":{"stringValue":"Ada"},"age":{"integerValue":"36"}}}
{"properties":{"name":{"stringValue":"Alan"},"age":{"stringValue":"unknown"}}}
`
	src := jsonl.NewReaderSource(strings.NewReader(input), false, nil)
	defer src.Close()

	batch, done, err := encoder.New(encoder.Config{}, nil).EncodeSource(context.Background(), src, 0)
	if err != nil {
		log.Fatal(err)
	}
	defer batch.Release()

	fmt.Println(done, batch.NumRows, batch.Schema.Names())
	for _, f := range batch.Schema.Fields {
		fmt.Printf("%s %s widened=%t\n", f.Name, f.Kind, f.Widened)
	}

	// Output:
	// true 2 [name age]
	// name string widened=false
	// age string widened=true
}

// Example_registry lists the registered connectors.
func Example_registry() {
	fmt.Println(registry.ListSources())
	fmt.Println(registry.ListDestinations())

	// Output:
	// [datastore jsonl mongodb]
	// [bigquery file gcs kafka nats s3]
}

// Example_memoryDestination shows the in-memory destination used in tests.
func Example_memoryDestination() {
	ctx := context.Background()
	dst := core.NewMemoryDestination()

	_ = dst.Write(ctx, core.Object{Name: "batch.arrow", Data: []byte("ARROW1")})
	_ = dst.Close(ctx)

	for _, obj := range dst.Objects() {
		fmt.Println(obj.Name, len(obj.Data))
	}

	// Output:
	// batch.arrow 6
}
