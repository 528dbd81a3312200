package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/goccy/go-json"
	"github.com/linkedin/goavro/v2"
	"github.com/spf13/cobra"

	"github.com/ajitpratap0/docarrow/pkg/compression"
	"github.com/ajitpratap0/docarrow/pkg/formats/columnar"
	"github.com/ajitpratap0/docarrow/pkg/schema"
)

var compressedSuffixes = []compression.Algorithm{
	compression.Gzip, compression.Snappy, compression.LZ4, compression.Zstd, compression.S2,
}

func newInspectCommand() *cobra.Command {
	var (
		format     string
		limit      int
		schemaOnly bool
	)

	cmd := &cobra.Command{
		Use:   "inspect FILE",
		Short: "Print the schema and rows of a converted file",
		Long: `Inspect reads a file written by convert and prints its schema followed by
its rows. The format and any outer compression are detected from the file name
unless --format is given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, detected, err := readConverted(args[0])
			if err != nil {
				return err
			}
			if format != "" {
				detected, err = columnar.ParseFormat(format)
				if err != nil {
					return err
				}
			}
			if detected == "" {
				return fmt.Errorf("cannot detect format of %s, use --format", args[0])
			}

			out := cmd.OutOrStdout()
			if detected == columnar.Avro {
				return inspectAvro(out, data, limit, schemaOnly)
			}
			return inspectColumnar(out, data, detected, limit, schemaOnly)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "", "File format (arrow, arrow_stream, parquet, avro)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum rows to print (0 = all)")
	cmd.Flags().BoolVar(&schemaOnly, "schema-only", false, "Print only the schema")
	return cmd
}

// readConverted reads path, undoing outer compression named by its
// extension, and guesses the format from the remaining extension.
func readConverted(path string) ([]byte, columnar.Format, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", err
	}

	name := path
	for _, algo := range compressedSuffixes {
		if strings.HasSuffix(name, algo.Extension()) {
			if data, err = compression.Decompress(data, algo); err != nil {
				return nil, "", err
			}
			name = strings.TrimSuffix(name, algo.Extension())
			break
		}
	}

	ext := filepath.Ext(name)
	for _, f := range []columnar.Format{columnar.Arrow, columnar.ArrowStream, columnar.Parquet, columnar.Avro} {
		if columnar.GetFormatInfo(f).FileExtension == ext {
			return data, f, nil
		}
	}
	return data, "", nil
}

func inspectColumnar(out io.Writer, data []byte, format columnar.Format, limit int, schemaOnly bool) error {
	r, err := columnar.NewReader(data, format, memory.DefaultAllocator)
	if err != nil {
		return err
	}
	defer r.Close()

	unified, err := schema.FromArrowSchema(r.Schema())
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FIELD\tKIND\tNULLABLE\tWIDENED")
	for _, f := range unified.Fields {
		fmt.Fprintf(tw, "%s\t%s\t%t\t%t\n", f.Name, f.Kind, f.Nullable, f.Widened)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if schemaOnly {
		return nil
	}

	fmt.Fprintln(out)
	tw = tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(unified.Names(), "\t"))

	printed, total := 0, int64(0)
	for {
		rec, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		total += rec.NumRows()
		for i := 0; i < int(rec.NumRows()) && (limit <= 0 || printed < limit); i++ {
			fmt.Fprintln(tw, rowString(rec, i))
			printed++
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "\n%d rows\n", total)
	return nil
}

func rowString(rec arrow.Record, row int) string {
	cells := make([]string, rec.NumCols())
	for j, col := range rec.Columns() {
		if col.IsNull(row) {
			cells[j] = "null"
			continue
		}
		cells[j] = col.ValueStr(row)
	}
	return strings.Join(cells, "\t")
}

func inspectAvro(out io.Writer, data []byte, limit int, schemaOnly bool) error {
	ocf, err := goavro.NewOCFReader(bytes.NewReader(data))
	if err != nil {
		return err
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, []byte(ocf.Codec().Schema()), "", "  "); err != nil {
		return err
	}
	fmt.Fprintln(out, pretty.String())
	if schemaOnly {
		return nil
	}

	fmt.Fprintln(out)
	rows := 0
	for ocf.Scan() {
		datum, err := ocf.Read()
		if err != nil {
			return err
		}
		if limit <= 0 || rows < limit {
			line, err := json.Marshal(datum)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(line))
		}
		rows++
	}
	if err := ocf.Err(); err != nil {
		return err
	}
	fmt.Fprintf(out, "\n%d rows\n", rows)
	return nil
}
