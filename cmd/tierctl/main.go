// Package main is the entry point for tierctl, a command-line client that
// drives the storage tiers directly, without the HTTP server.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"

	"github.com/tierstore/tierstore/internal/app"
	"github.com/tierstore/tierstore/internal/config"
	"github.com/tierstore/tierstore/internal/logging"
	"github.com/tierstore/tierstore/internal/serialization"
	"github.com/tierstore/tierstore/internal/tier"
)

const usage = "Usage: tierctl <paths|exists|create|write|read|list|export|import> [flags]"

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(1)
	}
	os.Exit(run(os.Args[1], os.Args[2:], os.Stdin, os.Stdout))
}

// run executes one subcommand and returns the process exit code.
func run(command string, args []string, stdin io.Reader, stdout io.Writer) int {
	fs := flag.NewFlagSet(command, flag.ContinueOnError)
	configPath := fs.String("config", "tierstore.yaml", "Config file path")
	tierName := fs.String("tier", "internal-persistent", "Storage tier")
	name := fs.String("name", "", "File name")
	data := fs.String("data", "", "Content to write (default: read stdin)")
	verbose := fs.Bool("v", false, "Log at debug level")
	output := fs.String("output", "-", "Export output file path (- for stdout)")
	input := fs.String("input", "-", "Import input file path (- for stdin)")
	replace := fs.Bool("replace", false, "Import overwrites existing catalog entries")

	switch command {
	case "paths", "exists", "create", "write", "read", "list", "export", "import":
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n%s\n", command, usage)
		return 1
	}
	if err := fs.Parse(args); err != nil {
		return 1
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading config: %v\n", err)
		return 1
	}
	level := "warn"
	if *verbose {
		level = "debug"
	}
	logging.Setup(level, cfg.Logging.Format, os.Stderr)

	ctx := context.Background()
	a, err := app.New(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer a.Close()

	if command == "paths" {
		for _, p := range a.Locations.Paths(cfg.Locations.ExternalSubtype) {
			state := "available"
			if !p.Available {
				state = "unavailable"
			}
			fmt.Fprintf(stdout, "%-15s %-12s %s\n", p.Name, state, p.Dir)
		}
		if a.Media != nil {
			fmt.Fprintf(stdout, "%-15s %-12s %s\n", "shared media", "available", a.Media.Location())
		}
		return 0
	}

	switch command {
	case "export":
		return runExport(ctx, a, *output, stdout)
	case "import":
		return runImport(ctx, a, *input, *replace, stdin)
	}

	t, err := tier.Parse(*tierName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	switch command {
	case "exists":
		if !a.Manager.Exists(ctx, t, *name) {
			fmt.Fprintln(stdout, "false")
			return 1
		}
		fmt.Fprintln(stdout, "true")

	case "create":
		if err := a.Manager.Create(ctx, t, *name); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		// The file exists now; a failed lookup only loses the path.
		target, err := a.Manager.Resolve(ctx, t, *name)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Created %s, but resolving its path failed: %v\n", *name, err)
			break
		}
		fmt.Fprintln(stdout, target.Path())

	case "write":
		content := []byte(*data)
		if *data == "" {
			if content, err = io.ReadAll(stdin); err != nil {
				fmt.Fprintf(os.Stderr, "Error reading input: %v\n", err)
				return 1
			}
		}
		n, err := a.Manager.Write(ctx, t, *name, content)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		fmt.Fprintf(os.Stderr, "Wrote %s to %s\n", humanize.IBytes(uint64(n)), *name)

	case "read":
		content, err := a.Manager.Read(ctx, t, *name)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		stdout.Write(content)

	case "list":
		entries, err := a.Manager.List(ctx, t)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		for _, e := range entries {
			fmt.Fprintf(stdout, "%-32s %10s  %-24s %s\n", e.Name, humanize.IBytes(uint64(e.Size)), e.MimeType, humanize.Time(e.UpdatedAt))
		}
	}
	return 0
}

func runExport(ctx context.Context, a *app.App, output string, stdout io.Writer) int {
	if a.Catalog == nil {
		fmt.Fprintln(os.Stderr, "Error: catalog is disabled")
		return 1
	}
	data, err := serialization.ExportCatalog(ctx, a.Catalog, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error exporting: %v\n", err)
		return 1
	}
	if output == "-" {
		fmt.Fprintln(stdout, string(data))
		return 0
	}
	if err := os.WriteFile(output, append(data, '\n'), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing output: %v\n", err)
		return 1
	}
	fmt.Fprintf(os.Stderr, "Exported to %s\n", output)
	return 0
}

func runImport(ctx context.Context, a *app.App, input string, replace bool, stdin io.Reader) int {
	if a.Catalog == nil {
		fmt.Fprintln(os.Stderr, "Error: catalog is disabled")
		return 1
	}
	var (
		data []byte
		err  error
	)
	if input == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(input)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading input: %v\n", err)
		return 1
	}

	result, err := serialization.ImportCatalog(ctx, a.Catalog, data, &serialization.ImportOptions{Replace: replace})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error importing: %v\n", err)
		return 1
	}
	for _, t := range tier.All {
		count, ok := result.Counts[t.String()]
		if !ok {
			continue
		}
		msg := fmt.Sprintf("  %s: %d imported", t, count)
		if skip := result.Skipped[t.String()]; skip > 0 {
			msg += fmt.Sprintf(", %d skipped", skip)
		}
		fmt.Fprintln(os.Stderr, msg)
	}
	for _, w := range result.Warnings {
		fmt.Fprintf(os.Stderr, "  WARNING: %s\n", w)
	}
	return 0
}
