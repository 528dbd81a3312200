package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/ajitpratap0/docarrow/pkg/connector/registry"

	// Import all available connectors to register them
	_ "github.com/ajitpratap0/docarrow/pkg/connector/destinations"
	_ "github.com/ajitpratap0/docarrow/pkg/connector/sources"
)

var version = "0.1.0"

func main() {
	// Load .env file if it exists
	_ = godotenv.Load() // Ignore error if .env doesn't exist

	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "docarrow",
		Short: "docarrow - convert document records into Arrow columnar batches",
		Long: `docarrow reads schemaless document records from Cloud Datastore, MongoDB or
newline-delimited entity JSON, infers one schema per batch and writes the batches
as Arrow, Parquet or Avro to files, object storage, BigQuery, Kafka or NATS.`,
		SilenceUsage: true,
	}

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "docarrow v%s\n", version)
			fmt.Fprintf(out, "Go version: %s\n", runtime.Version())
			fmt.Fprintf(out, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	})

	list := &cobra.Command{
		Use:   "list",
		Short: "List available connectors",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Available Source Connectors:")
			for _, source := range registry.ListSources() {
				fmt.Fprintf(out, "  - %s\n", source)
			}
			fmt.Fprintln(out, "\nAvailable Destination Connectors:")
			for _, dest := range registry.ListDestinations() {
				fmt.Fprintf(out, "  - %s\n", dest)
			}
		},
	}
	list.AddCommand(newListKindsCommand())
	root.AddCommand(list)

	root.AddCommand(newConvertCommand())
	root.AddCommand(newInspectCommand())
	return root
}
