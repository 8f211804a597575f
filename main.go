package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/olehluchkiv/typereg/internal/diagram"
	"github.com/olehluchkiv/typereg/internal/loader"
	"github.com/olehluchkiv/typereg/internal/logging"
	"github.com/olehluchkiv/typereg/internal/manifest"
	"github.com/olehluchkiv/typereg/internal/prompt"
	"github.com/olehluchkiv/typereg/internal/registry"
	"github.com/olehluchkiv/typereg/internal/report"
	"github.com/olehluchkiv/typereg/internal/server"
)

// options is the parsed command line.
type options struct {
	typeName string

	load loader.Config

	method      string
	params      []string
	field       string
	constructor []string // nil unless -constructor was given
	nested      string

	format   string
	output   string
	export   string
	schema   bool
	serve    bool
	port     int
	browser  bool
	logFile  string
	logLevel string
}

var errUsage = errors.New("usage")

func main() {
	opts, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		if !errors.Is(err, errUsage) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(2)
	}

	level, err := logging.ParseLevel(opts.logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid log level %q: %v\n", opts.logLevel, err)
		os.Exit(1)
	}

	logger, logCleanup, err := logging.Setup(opts.logFile, level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to setup logging: %v\n", err)
		os.Exit(1)
	}
	defer logCleanup()

	// Setup signal handling with context cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received signal, shutting down", "signal", sig)
		cancel()
	}()

	if err := run(ctx, opts, os.Stdout, logger); err != nil {
		logger.Error("command failed", "error", err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// parseFlags reads args into options. Flags may appear before or after the
// positional type name.
func parseFlags(args []string, stderr io.Writer) (options, error) {
	// Go's default flag.Parse stops at the first non-flag argument, which
	// breaks "typereg pkg.Type -method Foo". Reorder so flags come first.
	flags, positional := reorderArgs(args)

	var opts options
	fs := flag.NewFlagSet("typereg", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintln(stderr, "Usage: typereg [flags] [type-name]")
		fs.PrintDefaults()
	}

	manifests := fs.String("manifest", "", "comma-separated YAML manifest files to load")
	fs.StringVar(&opts.load.Source, "source", "", "Go module path or GitHub URL to analyze")
	fs.StringVar(&opts.load.Filter, "filter", "", "package path prefix or glob pattern for -source")
	fs.BoolVar(&opts.load.IncludeStdlib, "include-stdlib", false, "include standard library interfaces")
	fs.BoolVar(&opts.load.IncludeUnexported, "include-unexported", false, "include unexported types")
	fs.BoolVar(&opts.load.Strict, "strict", false, "treat unresolved supertypes as errors")
	fs.StringVar(&opts.method, "method", "", "look up a method by name")
	params := fs.String("params", "", "comma-separated parameter types for -method")
	constructor := fs.String("constructor", "", "look up a constructor by comma-separated parameter types (empty for no-arg)")
	fs.StringVar(&opts.field, "field", "", "look up a field by name")
	fs.StringVar(&opts.nested, "nested", "", "find the type declaring this nested type")
	fs.StringVar(&opts.format, "format", "text", "report format (text, json)")
	fs.StringVar(&opts.output, "output", "", "write a Mermaid diagram of the type to file")
	fs.StringVar(&opts.export, "export", "", "write the registry as a YAML manifest (- for stdout)")
	fs.BoolVar(&opts.schema, "schema", false, "print the manifest JSON Schema and exit")
	fs.BoolVar(&opts.serve, "serve", false, "serve the registry over HTTP")
	fs.IntVar(&opts.port, "port", 8080, "HTTP server port")
	noBrowser := fs.Bool("no-browser", false, "skip auto-opening browser")
	fs.StringVar(&opts.logFile, "log-file", "logs/typereg.log", "log file path (empty for stderr only)")
	logLevel := fs.String("log-level", "", "log level (debug, info, warn, error); defaults to $"+logging.LevelEnv+" or warn")

	if err := fs.Parse(flags); err != nil {
		return options{}, err
	}
	positional = append(positional, fs.Args()...)
	if len(positional) > 1 {
		fs.Usage()
		return options{}, fmt.Errorf("%w: at most one type name, got %d", errUsage, len(positional))
	}
	if len(positional) == 1 {
		opts.typeName = positional[0]
	}

	opts.load.Manifests = splitList(*manifests)
	opts.params = server.SplitParams(*params)
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "constructor" {
			opts.constructor = server.SplitParams(*constructor)
			if opts.constructor == nil {
				opts.constructor = []string{}
			}
		}
	})
	opts.browser = !*noBrowser
	opts.logLevel = logging.ResolveLevel(*logLevel)

	if opts.format != "text" && opts.format != "json" {
		return options{}, fmt.Errorf("unknown format %q (valid: text, json)", opts.format)
	}
	if !opts.schema && len(opts.load.Manifests) == 0 && opts.load.Source == "" {
		fs.Usage()
		return options{}, fmt.Errorf("%w: -manifest or -source is required", errUsage)
	}
	return opts, nil
}

// run executes one command against a freshly loaded registry.
func run(ctx context.Context, opts options, stdout io.Writer, logger *slog.Logger) error {
	if opts.schema {
		schema, err := manifest.Schema()
		if err != nil {
			return err
		}
		_, err = stdout.Write(append(schema, '\n'))
		return err
	}

	reg, err := loader.Load(ctx, opts.load, logger)
	if err != nil {
		return err
	}
	logger.Info("registry ready", "types", reg.Count())

	if opts.export != "" {
		if err := exportManifest(reg, opts.export, stdout); err != nil {
			return err
		}
	}

	if opts.serve {
		fmt.Fprintf(stdout, "Starting server on http://localhost:%d\n", opts.port)
		return server.Serve(ctx, reg, opts.port, opts.browser, logger)
	}

	name := opts.typeName
	if name == "" {
		if opts.export != "" {
			return nil
		}
		picker := prompt.NewTypePicker(reg)
		if !picker.IsInteractive() {
			return errors.New("no type name given")
		}
		if name, err = picker.Pick(); err != nil {
			return err
		}
	}

	if opts.output != "" {
		diagramOpts := diagram.DefaultDiagramOptions()
		// File output: include %%{init:}%% for standalone .mmd rendering
		diagramOpts.IncludeInit = true
		src, err := diagram.GenerateMermaid(reg, name, diagramOpts)
		if err != nil {
			return err
		}
		if err := os.WriteFile(opts.output, []byte(src), 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", opts.output, err)
		}
		logger.Info("wrote diagram", "path", opts.output)
	}

	r, err := report.Build(reg, report.Query{
		Type:        name,
		Method:      opts.method,
		Params:      opts.params,
		Field:       opts.field,
		Constructor: opts.constructor,
		Nested:      opts.nested,
	})
	if err != nil {
		return err
	}
	if opts.format == "json" {
		return report.WriteJSON(stdout, r)
	}
	return report.WriteText(stdout, r)
}

func exportManifest(reg *registry.Registry, path string, stdout io.Writer) error {
	doc, err := manifest.Export(reg)
	if err != nil {
		return err
	}
	data, err := doc.Marshal()
	if err != nil {
		return err
	}
	if path == "-" {
		_, err = stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// reorderArgs separates flags and positional arguments so flags can appear
// in any position (before or after the positional type name).
// Flags that take a value (e.g., -method foo) consume the next arg.
func reorderArgs(args []string) (flags, positional []string) {
	// Set of flags that take a value argument
	valueFlagSet := map[string]bool{
		"-manifest": true, "-source": true, "-filter": true,
		"-method": true, "-params": true, "-field": true,
		"-constructor": true, "-nested": true, "-format": true,
		"-output": true, "-export": true, "-port": true,
		"-log-file": true, "-log-level": true,
	}

	for i := 0; i < len(args); i++ {
		arg := args[i]
		if strings.HasPrefix(arg, "-") && arg != "-" {
			flags = append(flags, arg)
			// Check if this flag takes a value (and it's not using = syntax)
			name := "-" + strings.TrimLeft(arg, "-")
			if !strings.Contains(arg, "=") && valueFlagSet[name] && i+1 < len(args) {
				i++
				flags = append(flags, args[i])
			}
		} else {
			positional = append(positional, arg)
		}
	}
	return flags, positional
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
