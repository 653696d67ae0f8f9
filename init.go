package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

const (
	sentinelStart = "<!-- project-intel:start -->"
	sentinelEnd   = "<!-- project-intel:end -->"
)

func initCmd(a *app) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "init [path-to-CLAUDE.md]",
		Short: "Write a project-intel usage section to a CLAUDE.md file",
		Long: `Write a project-intel usage section to a CLAUDE.md file. The section is
wrapped in sentinel comments so it can be updated in place on subsequent runs
without touching surrounding content. Creates the file if it does not exist.

path-to-CLAUDE.md defaults to ./CLAUDE.md.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(args, dryRun, a.stdout, a.stderr)
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print what would be written without modifying the file")
	return cmd
}

// sectionChange is what applySection did to a CLAUDE.md.
type sectionChange int

const (
	sectionAdded sectionChange = iota
	sectionUpdated
	sectionUnchanged
)

// runInit writes (or updates) the usage section in the CLAUDE.md named by
// args, or ./CLAUDE.md. An up-to-date file is left untouched.
func runInit(args []string, dryRun bool, stdout, stderr io.Writer) error {
	section := generateSection()

	// --dry-run with no path: just print the section itself.
	if dryRun && len(args) == 0 {
		_, _ = fmt.Fprintln(stdout, section)
		return nil
	}

	path := "CLAUDE.md"
	if len(args) > 0 {
		path = args[0]
	}

	existing, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	updated, change := applySection(string(existing), section)

	if dryRun {
		_, _ = fmt.Fprint(stdout, updated)
		return nil
	}

	switch change {
	case sectionUnchanged:
		_, _ = fmt.Fprintf(stderr, "project-intel section in %s is up to date\n", path)
		return nil
	case sectionUpdated:
		_, _ = fmt.Fprintf(stderr, "updated project-intel section in %s\n", path)
	default:
		_, _ = fmt.Fprintf(stderr, "added project-intel section to %s\n", path)
	}
	if err := os.WriteFile(path, []byte(updated), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// generateSection returns the full sentinel-wrapped usage block.
func generateSection() string {
	body := `## project-intel: Index Queries

Use ` + "`project-intel`" + ` via the Bash tool to answer structural questions from
` + "`PROJECT_INDEX.json`" + ` instead of grepping or reading files speculatively.

**Availability:** Check with ` + "`project-intel --version`" + ` first; skip gracefully
if not found. If it reports a missing index, regenerate the index with ` + "`/index`" + `.

**Run it:**
` + "```" + `bash
project-intel stats                        # what the index covers
project-intel tree --max-depth 2           # indexed directories with file counts
project-intel search auth -l 10            # files, then symbols
project-intel investigate auth session     # files, symbols and docs per term
project-intel callers handleLogin          # who calls a symbol
project-intel callees handleLogin          # what a symbol calls
project-intel trace main saveUser          # shortest call path
project-intel imports src/app/page.tsx     # modules a file imports
project-intel importers react              # files importing a module
project-intel summarize src/app            # what lives in a directory
project-intel debug src/app/page.tsx       # a file's symbols and their neighbours
project-intel dead -l 20                   # symbols nobody calls (advisory)
project-intel sanitize --tests             # dead symbols plus test files
project-intel metrics -l 5                 # most-called and most-calling symbols
project-intel docs setup                   # search documentation excerpts
project-intel report --focus src/          # languages, hotspots, top modules
project-intel map-imports memory           # @-reference tree of CLAUDE.md
project-intel init                         # refresh this section
` + "```" + `

Add ` + "`--json`" + ` or ` + "`--format toon`" + ` for machine-readable output.

**All commands and flags:** ` + "`project-intel --help`" + `

**How to use the output:**

1. **Start with ` + "`search`" + ` or ` + "`investigate`" + `** to locate files and symbols
   before opening anything.

2. **Use ` + "`callers`" + `, ` + "`callees`" + ` and ` + "`trace`" + ` to follow flows.** Call edges are
   keyed by bare symbol name, so same-named symbols in different files share
   one node.

3. **Treat ` + "`dead`" + ` as a hint, not proof.** Entry points, framework callbacks and
   dynamic calls have no recorded callers either.

4. **Fall back to Grep only for what the index cannot answer**, such as usages
   inside function bodies or non-exported code.`

	return sentinelStart + "\n" + body + "\n" + sentinelEnd
}

// applySection puts section into content. The first start..end sentinel pair
// is replaced; without a complete pair the section is appended after a blank
// line.
func applySection(content, section string) (string, sectionChange) {
	before, rest, hasStart := strings.Cut(content, sentinelStart)
	_, after, hasEnd := strings.Cut(rest, sentinelEnd)
	if hasStart && hasEnd {
		updated := before + section + after
		if updated == content {
			return content, sectionUnchanged
		}
		return updated, sectionUpdated
	}

	if content != "" && !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	return content + "\n" + section + "\n", sectionAdded
}
