package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/reoring/jsontab"
	"github.com/reoring/jsontab/metadata"
)

type convertFlags struct {
	outputDir      string
	schema         string
	schemaFormat   string
	encoding       string
	compression    string
	driver         string
	extendColumns  bool
	maxDepth       int
	onDuplicateKey string
}

func newConvertCommand(a *app) *cobra.Command {
	var f convertFlags
	cmd := &cobra.Command{
		Use:   "convert <input.json>",
		Short: "Convert one document",
		Long: `Converts one JSON document whose root is an object. Every array-valued member
is flattened into the same CSV artifact, named <prefix>-<uuid>.csv in the output
directory. The artifact path is printed on stdout.

The schema document is written next to the artifact as <artifact>.schema.json
unless --schema names another file, or "-" for stdout.`,
		Example: `  # Convert into ./out and print the schema
  jsontab convert orders.json -o ./out --schema -

  # Windows-1252 input, zstd artifact, keep late columns
  jsontab convert legacy.json.gz --encoding windows-1252 --compression zstd --extend-columns`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runConvert(cmd, args[0], f)
		},
	}
	fl := cmd.Flags()
	fl.StringVarP(&f.outputDir, "output-dir", "o", "", "artifact directory (default: config or system temp dir)")
	fl.StringVar(&f.schema, "schema", "", `schema destination file, "-" for stdout`)
	fl.StringVar(&f.schemaFormat, "schema-format", "", "schema format: json, yaml")
	fl.StringVar(&f.encoding, "encoding", "", "input charset label, e.g. windows-1252")
	fl.StringVar(&f.compression, "compression", "", "artifact compression: none, gzip, zstd, s2, lz4")
	fl.StringVar(&f.driver, "driver", "", "JSON token source: "+fmt.Sprint(jsontab.JSONDriverNames()))
	fl.BoolVar(&f.extendColumns, "extend-columns", false, "keep fields first seen after the first row")
	fl.IntVar(&f.maxDepth, "max-depth", 0, "maximum input nesting (0 = unlimited)")
	fl.StringVar(&f.onDuplicateKey, "on-duplicate-key", "", "duplicate keys: ignore, warn, error")
	return cmd
}

func (a *app) runConvert(cmd *cobra.Command, input string, f convertFlags) error {
	cc := a.cfg.Convert
	fl := cmd.Flags()
	if fl.Changed("output-dir") {
		cc.OutputDir = f.outputDir
	}
	if fl.Changed("schema-format") {
		cc.SchemaFormat = f.schemaFormat
	}
	if fl.Changed("encoding") {
		cc.Encoding = f.encoding
	}
	if fl.Changed("compression") {
		cc.Compression = f.compression
	}
	if fl.Changed("driver") {
		cc.Driver = f.driver
	}
	if fl.Changed("extend-columns") {
		cc.ExtendColumns = f.extendColumns
	}
	if fl.Changed("max-depth") {
		cc.MaxDepth = f.maxDepth
	}
	if fl.Changed("on-duplicate-key") {
		cc.OnDuplicateKey = f.onDuplicateKey
	}

	opt, err := cc.Options()
	if err != nil {
		return err
	}
	format, err := metadata.ParseFormat(cc.SchemaFormat)
	if err != nil {
		return err
	}

	res, err := jsontab.New(opt).Run(cmd.Context(), cc.Input(input))
	if err != nil {
		return err
	}
	schema, err := res.Document.Render(format)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, res.ArtifactPath)
	switch f.schema {
	case "-":
		_, err = out.Write(schema)
		if err == nil && (len(schema) == 0 || schema[len(schema)-1] != '\n') {
			_, err = fmt.Fprintln(out)
		}
		return err
	case "":
		return os.WriteFile(res.ArtifactPath+".schema."+string(format), schema, 0o644)
	default:
		return os.WriteFile(f.schema, schema, 0o644)
	}
}
