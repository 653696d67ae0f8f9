// project-intel answers structural questions about a codebase from a
// pre-generated PROJECT_INDEX.json.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/phobologic/project-intel/internal/config"
	"github.com/phobologic/project-intel/internal/discover"
	"github.com/phobologic/project-intel/internal/exclude"
	"github.com/phobologic/project-intel/internal/graph"
	"github.com/phobologic/project-intel/internal/index"
	"github.com/phobologic/project-intel/internal/model"
)

var version = "dev"

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	a := newApp(stdout, stderr)
	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	return root.Execute()
}

// app carries global flags and the state shared by every command of one
// invocation.
type app struct {
	stdout io.Writer
	stderr io.Writer
	stdin  io.Reader

	// interactive reports whether the size prompt may be shown.
	interactive func() bool

	indexPath string
	rootDir   string
	jsonOut   bool
	format    string
	force     bool
	verbose   bool

	logger *slog.Logger
	cfg    config.Config
	root   string
	store  *index.Store
	filter *exclude.Filter
}

func newApp(stdout, stderr io.Writer) *app {
	a := &app{stdout: stdout, stderr: stderr, stdin: os.Stdin}
	a.interactive = func() bool { return isTerminal(os.Stdin) && isTerminal(stdout) }
	return a
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "project-intel",
		Short: "Query a PROJECT_INDEX.json for callers, imports, dead code and more",
		Long: `project-intel answers structural questions about a codebase ("who calls X",
"what imports Y", "is Z dead code", "how do these two symbols connect") from a
pre-generated PROJECT_INDEX.json instead of re-parsing source.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&a.indexPath, "index", "i", "", "path to PROJECT_INDEX.json (default: <project root>/PROJECT_INDEX.json)")
	pf.StringVar(&a.rootDir, "root", "", "project root (default: nearest directory holding PROJECT_INDEX.json)")
	pf.BoolVar(&a.jsonOut, "json", false, "format output as JSON (also bypasses the output size check)")
	pf.StringVar(&a.format, "format", "text", "output format: text, json or toon")
	pf.BoolVar(&a.force, "force", false, "skip the large-output warning and show all output")
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "log debug details to stderr")

	root.AddCommand(
		statsCmd(a),
		treeCmd(a),
		searchCmd(a),
		callersCmd(a),
		calleesCmd(a),
		traceCmd(a),
		deadCmd(a),
		importsCmd(a),
		importersCmd(a),
		metricsCmd(a),
		summarizeCmd(a),
		investigateCmd(a),
		debugCmd(a),
		sanitizeCmd(a),
		docsCmd(a),
		reportCmd(a),
		mapImportsCmd(a),
		initCmd(a),
	)
	return root
}

// setup resolves the logger, project root, configuration and exclusion
// filter. The index itself is loaded lazily by the commands that need it.
func (a *app) setup() error {
	level := slog.LevelWarn
	if a.verbose {
		level = slog.LevelDebug
	}
	a.logger = slog.New(slog.NewTextHandler(a.stderr, &slog.HandlerOptions{Level: level}))

	switch a.format {
	case formatText, formatJSON, formatTOON:
	default:
		return fmt.Errorf("unknown format %q (want text, json or toon)", a.format)
	}
	if a.jsonOut {
		a.format = formatJSON
	}

	if a.rootDir != "" {
		abs, err := filepath.Abs(a.rootDir)
		if err != nil {
			return fmt.Errorf("resolving root: %w", err)
		}
		a.root = abs
	} else {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("resolving working directory: %w", err)
		}
		a.root = discover.ProjectRoot(wd)
	}

	cfg, err := config.Load(a.root)
	if err != nil {
		return err
	}
	a.cfg = cfg

	filter, err := exclude.Load(a.root, cfg.Exclude...)
	if err != nil {
		return fmt.Errorf("loading exclusion patterns: %w", err)
	}
	a.filter = filter
	a.store = index.NewStore(a.logger)

	a.logger.Debug("project resolved", "root", a.root, "patterns", len(filter.Patterns()))
	return nil
}

// indexFile is the index path: the --index flag as given, else the configured
// name inside the project root.
func (a *app) indexFile() string {
	if a.indexPath != "" {
		return a.indexPath
	}
	if filepath.IsAbs(a.cfg.Index) {
		return a.cfg.Index
	}
	return filepath.Join(a.root, a.cfg.Index)
}

// load returns the index and its derived graph under the project filter.
func (a *app) load() (*model.Index, *graph.Graph, error) {
	path := a.indexFile()
	idx, err := a.store.Load(path)
	if err != nil {
		return nil, nil, err
	}
	g, err := a.store.Graph(path, a.filter)
	if err != nil {
		return nil, nil, err
	}
	return idx, g, nil
}

// limit returns the -l flag value when set, else the configured default.
func limit(cmd *cobra.Command, flag, fallback int) int {
	if cmd.Flags().Changed("limit") {
		return flag
	}
	return fallback
}
