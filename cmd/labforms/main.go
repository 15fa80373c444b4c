package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/goliatone/go-labforms"
	"github.com/goliatone/go-labforms/internal/config"
	"github.com/goliatone/go-labforms/internal/logging"
	"github.com/goliatone/go-labforms/pkg/catalog"
)

// errFailed marks a command that already reported its failure and only
// needs a non-zero exit.
var errFailed = errors.New("labforms: command failed")

type env struct {
	cfg    config.Config
	logger *zap.Logger
	reg    *catalog.Registry
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

type command struct {
	summary string
	run     func(ctx context.Context, e *env, args []string) error
}

var commands = map[string]command{
	"list":     {summary: "list registered instruments", run: runList},
	"show":     {summary: "describe an instrument's fields and measures", run: runShow},
	"resolve":  {summary: "print the fields visible for an answer file", run: runResolve},
	"validate": {summary: "validate an answer file", run: runValidate},
	"measures": {summary: "validate an answer file and print its measures", run: runMeasures},
	"report":   {summary: "render a text or HTML report for an answer file", run: runReport},
	"openapi":  {summary: "print the OpenAPI document for every submission endpoint", run: runOpenAPI},
	"lint":     {summary: "exercise every dynamic field for authoring mistakes", run: runLint},
	"fill":     {summary: "fill an instrument interactively", run: runFill},
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	global := flag.NewFlagSet("labforms", flag.ContinueOnError)
	global.SetOutput(stderr)
	envFile := global.String("env", ".env", "dotenv file loaded before reading LABFORMS_* variables")
	defsDir := global.String("definitions", "", "directory of instrument definition files (overrides "+config.EnvDefinitionsDir+")")
	logLevel := global.String("log-level", "", "debug, info, warn or error (overrides "+config.EnvLogLevel+")")
	global.Usage = func() { usage(global) }
	if err := global.Parse(args); err != nil {
		return 2
	}

	rest := global.Args()
	if len(rest) == 0 {
		usage(global)
		return 2
	}
	cmd, ok := commands[rest[0]]
	if !ok {
		fmt.Fprintf(stderr, "unknown command %q\n", rest[0])
		usage(global)
		return 2
	}

	cfg, err := config.Load(*envFile)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	if *defsDir != "" {
		cfg.DefinitionsDir = *defsDir
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogEncoding)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	defer func() { _ = logger.Sync() }()

	reg, err := labforms.Default(
		labforms.WithDefinitionsDir(cfg.DefinitionsDir),
		labforms.WithLogger(logger),
	)
	if err != nil {
		logger.Error("load instruments", zap.Error(err))
		fmt.Fprintln(stderr, err)
		return 1
	}

	e := &env{cfg: cfg, logger: logger, reg: reg, stdin: stdin, stdout: stdout, stderr: stderr}
	if err := cmd.run(ctx, e, rest[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		if !errors.Is(err, errFailed) {
			fmt.Fprintln(stderr, err)
		}
		return 1
	}
	return 0
}

func usage(fs *flag.FlagSet) {
	out := fs.Output()
	fmt.Fprintf(out, "Usage: %s [flags] <command> [command flags]\n\nCommands:\n", filepath.Base(os.Args[0]))
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(out, "  %-9s %s\n", name, commands[name].summary)
	}
	fmt.Fprintln(out, "\nFlags:")
	fs.PrintDefaults()
}

func newFlagSet(e *env, name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(e.stderr)
	return fs
}

func outputFlag(fs *flag.FlagSet, e *env) *string {
	return fs.String("output", e.cfg.Output, "text or json (default from "+config.EnvOutput+")")
}

func requireID(id string) error {
	if strings.TrimSpace(id) == "" {
		return errors.New("-id is required")
	}
	return nil
}
