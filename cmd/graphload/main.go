// Command graphload bulk-synchronizes delimited-text record sets with a
// schema-typed graph API: it imports (or dry-run validates) CSV files as
// batched composite mutations, and exports API-held records back into
// delimited text.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/graphload/graphload/internal/config"
	"github.com/graphload/graphload/internal/core"
	"github.com/graphload/graphload/internal/csv"
	"github.com/graphload/graphload/internal/graph"
	"github.com/graphload/graphload/internal/logging"
	"github.com/graphload/graphload/internal/schema"
)

const version = "0.1.0"

// Command represents a CLI subcommand.
type Command struct {
	Name        string
	Description string
	Run         func(args []string) error
}

func main() {
	commands := map[string]*Command{
		"import": {
			Name:        "import",
			Description: "Create records from a CSV file via batched mutations",
			Run:         func(args []string) error { return importCmd(args, core.ModeCreate) },
		},
		"validate": {
			Name:        "validate",
			Description: "Dry-run a CSV file against the creation validators",
			Run:         func(args []string) error { return importCmd(args, core.ModeValidate) },
		},
		"export": {
			Name:        "export",
			Description: "Export API-held records into delimited text",
			Run:         exportCmd,
		},
		"version": {
			Name:        "version",
			Description: "Show version information",
			Run:         versionCmd,
		},
	}

	if len(os.Args) < 2 {
		printUsage(commands)
		os.Exit(0)
	}

	cmdName := os.Args[1]
	if cmdName == "help" || cmdName == "-h" || cmdName == "--help" {
		printUsage(commands)
		os.Exit(0)
	}

	cmd, ok := commands[cmdName]
	if !ok {
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmdName)
		printUsage(commands)
		os.Exit(1)
	}

	if err := cmd.Run(os.Args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage(commands map[string]*Command) {
	fmt.Println("graphload - bulk CSV <-> graph API synchronization")
	fmt.Println()
	fmt.Println("Usage: graphload <command> [options]")
	fmt.Println()
	fmt.Println("Commands:")
	for _, name := range []string{"import", "validate", "export", "version"} {
		if c, ok := commands[name]; ok {
			fmt.Printf("  %-10s %s\n", c.Name, c.Description)
		}
	}
	fmt.Println()
	fmt.Println("Run 'graphload <command> -h' for help on a specific command.")
}

// setup loads .env, configuration, and logging. Shared by every command
// that talks to the API.
func setup() (*config.Config, error) {
	if err := godotenv.Overload(); err == nil {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Debug("configuration loaded", "config", cfg.String())
	return cfg, nil
}

// importCmd runs the import pipeline in create or validate mode.
func importCmd(args []string, mode core.Mode) error {
	fs := flag.NewFlagSet(mode.String(), flag.ExitOnError)
	modelPath := fs.String("model", "", "Path to the model definition YAML (required)")
	inputPath := fs.String("input", "-", "CSV input file ('-' for stdin)")
	batchSize := fs.Int("batch", 0, "Batch size override (default from IMPORT_BATCH_SIZE)")
	quiet := fs.Bool("q", false, "Suppress per-batch progress output")
	fs.Parse(args)

	if *modelPath == "" {
		return fmt.Errorf("-model is required")
	}

	cfg, err := setup()
	if err != nil {
		return err
	}
	if *batchSize <= 0 {
		*batchSize = cfg.Import.BatchSize
	}

	model, err := schema.Load(*modelPath)
	if err != nil {
		return err
	}

	in, size, closeIn, err := openInput(*inputPath)
	if err != nil {
		return err
	}
	defer closeIn()

	dialect := cfg.Dialect()
	reader, err := csv.NewStreamingRowReader(in, size, dialect)
	if err != nil {
		return err
	}
	reader.Canonicalize(defaultAttrs(model))

	client := graph.NewClient(cfg.API.URL, cfg.API.Token, cfg.API.Timeout)
	runner := &core.Runner{
		Exec:      client.Execute,
		Model:     model,
		Dialect:   dialect,
		BatchSize: *batchSize,
		Mode:      mode,
	}
	if !*quiet {
		runner.Progress = func(p core.Progress) {
			if p.Phase != core.PhaseExecuting {
				return
			}
			msg := fmt.Sprintf("  batch %d executing (%d records done, line %d",
				p.Batch, p.Records, reader.Line())
			if pct := reader.Percent(); pct > 0 {
				msg += fmt.Sprintf(", %d%% read", pct)
			}
			fmt.Fprintln(os.Stderr, msg+")")
		}
	}

	ctx := context.Background()
	logging.WithFields(ctx, "command", mode.String(), "model", model.Name).
		Debug("starting run", "input", *inputPath, "batch_size", *batchSize,
			"columns", len(reader.Header()))

	result, err := runner.Run(ctx, core.NewCSVSource(reader))
	if err != nil {
		return err
	}

	fmt.Printf("%s %s: %d records in %d batches (%s)\n",
		mode.String(), model.Name, result.Records, result.Batches,
		result.Duration.Round(time.Millisecond))
	return nil
}

// exportCmd runs the paginated export.
func exportCmd(args []string) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	modelPath := fs.String("model", "", "Path to the model definition YAML (required)")
	attrList := fs.String("attrs", "", "Comma-separated attributes to project (default: all declared fields)")
	outputPath := fs.String("output", "-", "Output file ('-' for stdout)")
	pageSize := fs.Int("page", 0, "Page size override (default from EXPORT_PAGE_SIZE)")
	fs.Parse(args)

	if *modelPath == "" {
		return fmt.Errorf("-model is required")
	}

	cfg, err := setup()
	if err != nil {
		return err
	}
	if *pageSize <= 0 {
		*pageSize = cfg.Export.PageSize
	}

	model, err := schema.Load(*modelPath)
	if err != nil {
		return err
	}

	attrs := splitAttrs(*attrList)
	if len(attrs) == 0 {
		attrs = defaultAttrs(model)
	}

	out, closeOut, err := openOutput(*outputPath)
	if err != nil {
		return err
	}
	defer closeOut()

	dialect := cfg.Dialect()
	client := graph.NewClient(cfg.API.URL, cfg.API.Token, cfg.API.Timeout)
	exporter := &core.Exporter{
		Exec:     client.Execute,
		Dialect:  dialect,
		PageSize: *pageSize,
	}

	ctx := context.Background()
	logging.WithFields(ctx, "command", "export", "model", model.Name).
		Debug("starting export", "output", *outputPath, "page_size", *pageSize)

	sink := &core.WriterSink{W: out, Record: dialect.Record}
	result, err := exporter.Export(ctx, model.Name, nil, attrs, sink)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "export %s: %d rows in %d pages (%s)\n",
		model.Name, result.Rows, result.Pages, result.Duration.Round(time.Millisecond))
	return nil
}

func versionCmd(args []string) error {
	fmt.Printf("graphload v%s\n", version)
	return nil
}

func splitAttrs(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	attrs := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			attrs = append(attrs, p)
		}
	}
	return attrs
}

// defaultAttrs projects every declared field, primary key first.
func defaultAttrs(m *schema.Model) []string {
	attrs := make([]string, 0, len(m.Fields))
	for name := range m.Fields {
		if name != m.PrimaryKey {
			attrs = append(attrs, name)
		}
	}
	sort.Strings(attrs)
	return append([]string{m.PrimaryKey}, attrs...)
}

// openInput opens the input stream and reports its size when known
// (0 for stdin), which feeds byte-based read progress.
func openInput(path string) (io.Reader, int64, func(), error) {
	if path == "-" {
		return os.Stdin, 0, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, nil, fmt.Errorf("open input: %w", err)
	}
	var size int64
	if info, err := f.Stat(); err == nil {
		size = info.Size()
	}
	return f, size, func() { f.Close() }, nil
}

func openOutput(path string) (io.Writer, func(), error) {
	if path == "-" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("create output: %w", err)
	}
	return f, func() { f.Close() }, nil
}
