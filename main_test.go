package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phobologic/project-intel/internal/config"
	"github.com/phobologic/project-intel/internal/index"
)

const sampleIndex = `{
  "f": {
    "src/main.ts": ["typescript", ["main:1:::run"]],
    "src/run.ts": ["typescript", ["run:1:opts:void:save", "save:10"]],
    "src/orphan.ts": ["typescript", ["orphan:1"]],
    "node_modules/lib/index.js": ["javascript", ["vendored:1"]]
  },
  "d": {"docs/guide.md": ["# Guide", "Run the app."]},
  "g": [["main", "run"], ["run", "save"]],
  "deps": {"src/main.ts": ["./run", "react"], "src/run.ts": ["react"]},
  "stats": {
    "total_files": 4,
    "total_directories": 2,
    "fully_parsed": {"typescript": 3},
    "listed_only": {".json": 1},
    "markdown_files": 1
  }
}`

func writeTestFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func createSampleProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeTestFile(t, dir, index.DefaultName, sampleIndex)
	return dir
}

// runIn executes the CLI against the project at dir.
func runIn(t *testing.T, dir string, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := run(append([]string{"--root", dir}, args...), &stdout, &stderr)
	return stdout.String(), stderr.String(), err
}

func TestRunVersion(t *testing.T) {
	t.Parallel()

	var stdout, stderr bytes.Buffer
	require.NoError(t, run([]string{"--version"}, &stdout, &stderr))
	assert.Contains(t, stdout.String(), "project-intel version dev")
}

func TestRunMissingIndex(t *testing.T) {
	t.Parallel()

	_, _, err := runIn(t, t.TempDir(), "dead")
	require.Error(t, err)
	assert.True(t, errors.Is(err, index.ErrNotFound))
}

func TestRunInvalidIndex(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeTestFile(t, dir, index.DefaultName, `{"g": []}`)
	_, _, err := runIn(t, dir, "dead")
	assert.True(t, errors.Is(err, index.ErrInvalidFormat))
}

func TestRunExplicitIndexFlag(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeTestFile(t, dir, "build/custom.json", sampleIndex)
	out, _, err := runIn(t, dir, "-i", filepath.Join(dir, "build", "custom.json"), "callers", "run")
	require.NoError(t, err)
	assert.Equal(t, "main (in src/main.ts)\n", out)
}

func TestRunUnknownFormat(t *testing.T) {
	t.Parallel()

	_, _, err := runIn(t, createSampleProject(t), "--format", "yaml", "dead")
	assert.ErrorContains(t, err, "unknown format")
}

func TestRunStats(t *testing.T) {
	t.Parallel()

	out, _, err := runIn(t, createSampleProject(t), "stats")
	require.NoError(t, err)
	assert.Equal(t, "Total files: 4\n"+
		"Total directories: 2\n"+
		"Fully parsed:\n"+
		"  - typescript: 3 files\n"+
		"Listed only (unparsed):\n"+
		"  - .json: 1 files\n"+
		"Markdown files: 1\n", out)
}

func TestRunCallersAndCallees(t *testing.T) {
	t.Parallel()
	dir := createSampleProject(t)

	out, _, err := runIn(t, dir, "callers", "run")
	require.NoError(t, err)
	assert.Equal(t, "main (in src/main.ts)\n", out)

	out, _, err = runIn(t, dir, "callees", "run")
	require.NoError(t, err)
	assert.Equal(t, "run calls save (defined in src/run.ts)\n", out)

	out, _, err = runIn(t, dir, "callers", "main")
	require.NoError(t, err)
	assert.Equal(t, "No functions call main.\n", out)
}

func TestRunCallersSuggestsUnknownSymbol(t *testing.T) {
	t.Parallel()

	out, _, err := runIn(t, createSampleProject(t), "callers", "orphn")
	require.NoError(t, err)
	assert.Contains(t, out, "No functions call orphn.\n")
	assert.Contains(t, out, "Did you mean: orphan")
}

func TestRunCallersJSON(t *testing.T) {
	t.Parallel()

	out, _, err := runIn(t, createSampleProject(t), "--json", "callers", "save")
	require.NoError(t, err)

	var rows []callerRow
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	assert.Equal(t, []callerRow{{Caller: "run", Files: []string{"src/run.ts"}}}, rows)
}

func TestRunTrace(t *testing.T) {
	t.Parallel()
	dir := createSampleProject(t)

	out, _, err := runIn(t, dir, "trace", "main", "save")
	require.NoError(t, err)
	assert.Equal(t, "main -> run -> save\n", out)

	out, _, err = runIn(t, dir, "trace", "save", "main")
	require.NoError(t, err)
	assert.Equal(t, "No call path from save to main.\n", out)

	out, _, err = runIn(t, dir, "--json", "trace", "save", "main")
	require.NoError(t, err)
	assert.JSONEq(t, `{"path": null}`, out)
}

func TestRunDeadSkipsExcludedFiles(t *testing.T) {
	t.Parallel()

	out, _, err := runIn(t, createSampleProject(t), "--json", "dead")
	require.NoError(t, err)

	var dead []symbolRef
	require.NoError(t, json.Unmarshal([]byte(out), &dead))
	assert.Equal(t, []symbolRef{
		{Name: "main", Files: []string{"src/main.ts"}},
		{Name: "orphan", Files: []string{"src/orphan.ts"}},
	}, dead)
}

func TestRunDeadLimit(t *testing.T) {
	t.Parallel()

	out, _, err := runIn(t, createSampleProject(t), "dead", "-l", "1")
	require.NoError(t, err)
	assert.Equal(t, "main (defined in src/main.ts)\n", out)
}

func TestRunImportsAndImporters(t *testing.T) {
	t.Parallel()
	dir := createSampleProject(t)

	out, _, err := runIn(t, dir, "imports", "src/main.ts")
	require.NoError(t, err)
	assert.Equal(t, "Imports for src/main.ts:\n  - ./run\n  - react\n", out)

	out, _, err = runIn(t, dir, "importers", "react")
	require.NoError(t, err)
	assert.Equal(t, "Files that import react:\n  - src/main.ts\n  - src/run.ts\n", out)

	out, _, err = runIn(t, dir, "importers", "reakt")
	require.NoError(t, err)
	assert.Contains(t, out, "No files import module reakt.\n")
	assert.Contains(t, out, "Did you mean: react?")
}

func TestRunSearchTOON(t *testing.T) {
	t.Parallel()

	out, _, err := runIn(t, createSampleProject(t), "--format", "toon", "search", "run")
	require.NoError(t, err)
	assert.Equal(t, "results[2]{type,name,files}:\n"+
		`  file,src/run.ts,""`+"\n"+
		"  symbol,run,src/run.ts\n", out)
}

func TestRunSearchExcludesVendoredFiles(t *testing.T) {
	t.Parallel()

	out, _, err := runIn(t, createSampleProject(t), "search", "index.js")
	require.NoError(t, err)
	assert.Equal(t, "No matches found.\n", out)
}

func TestRunSummarizeDirectory(t *testing.T) {
	t.Parallel()

	out, _, err := runIn(t, createSampleProject(t), "summarize", "src")
	require.NoError(t, err)
	assert.Equal(t, "Directory src\n- other files: 3 files (e.g. main.ts, run.ts, orphan.ts)\n", out)
}

func TestRunDebugFile(t *testing.T) {
	t.Parallel()

	out, _, err := runIn(t, createSampleProject(t), "debug", "src/run.ts")
	require.NoError(t, err)
	assert.Contains(t, out, "File src/run.ts\n")
	assert.Contains(t, out, "Imports:\n  - react\nDefined symbols:\n")
	assert.Contains(t, out, "Defined symbols:\n  - run\n      callers: main\n      callees: save\n")
}

func TestRunDebugSymbol(t *testing.T) {
	t.Parallel()

	out, _, err := runIn(t, createSampleProject(t), "debug", "run")
	require.NoError(t, err)
	assert.Equal(t, "Function run\nDefined in: src/run.ts\nCallers: main\nCallees: save\n", out)
}

func TestRunDocs(t *testing.T) {
	t.Parallel()
	dir := createSampleProject(t)

	out, _, err := runIn(t, dir, "docs", "docs/guide.md")
	require.NoError(t, err)
	assert.Equal(t, "Documentation for docs/guide.md:\n# Guide\nRun the app.\n", out)

	out, _, err = runIn(t, dir, "docs", "the app")
	require.NoError(t, err)
	assert.Equal(t, "Matching documentation files:\n  - docs/guide.md\n", out)
}

func TestRunReportJSON(t *testing.T) {
	t.Parallel()

	out, _, err := runIn(t, createSampleProject(t), "--json", "report", "--focus", "src/**")
	require.NoError(t, err)

	var r struct {
		Stats struct {
			TotalFiles int `json:"totalFiles"`
		} `json:"stats"`
		TopModules []struct {
			Name  string `json:"name"`
			Count int    `json:"count"`
		} `json:"topModules"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &r))
	assert.Equal(t, 3, r.Stats.TotalFiles)
	require.NotEmpty(t, r.TopModules)
	assert.Equal(t, "react", r.TopModules[0].Name)
	assert.Equal(t, 2, r.TopModules[0].Count)
}

func TestRunTree(t *testing.T) {
	t.Parallel()

	out, _, err := runIn(t, createSampleProject(t), "tree")
	require.NoError(t, err)
	assert.Equal(t, "├── docs/ (1 files)\n└── src/ (3 files)\n", out)
}

func TestRunMapImportsMemory(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeTestFile(t, dir, "CLAUDE.md", "See @docs/a.md and @docs/gone.md\n")
	writeTestFile(t, dir, "docs/a.md", "Back to @docs/b.md\n")
	writeTestFile(t, dir, "docs/b.md", "Loop @docs/a.md\n")

	out, _, err := runIn(t, dir, "map-imports", "memory")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "Memory Imports (CLAUDE.md)\n"))
	assert.Contains(t, out, "docs/a.md [CIRCULAR]")
	assert.Contains(t, out, "docs/gone.md [MISSING]")
	assert.Contains(t, out, "  Circular references: 1\n")
	assert.Contains(t, out, "  Missing files: 1\n")
}

func TestRunMapImportsErrors(t *testing.T) {
	t.Parallel()

	_, _, err := runIn(t, t.TempDir(), "map-imports", "plugins")
	assert.ErrorContains(t, err, "memory|skills|commands|agents")

	_, _, err = runIn(t, t.TempDir(), "map-imports", "agents")
	assert.ErrorContains(t, err, ".claude/agents directory not found")
}

func TestRunConfigExcludeAndLimits(t *testing.T) {
	t.Parallel()

	dir := createSampleProject(t)
	writeTestFile(t, dir, config.FileName, "exclude = [\"orphan.ts\"]\n\n[limits]\ndead = 5\n")

	out, _, err := runIn(t, dir, "dead")
	require.NoError(t, err)
	assert.Equal(t, "main (defined in src/main.ts)\n", out)
}

func TestRunOutputWarningNonInteractive(t *testing.T) {
	t.Parallel()

	dir := createSampleProject(t)
	writeTestFile(t, dir, config.FileName, "[limits]\noutput_lines = 2\n")

	out, errOut, err := runIn(t, dir, "dead")
	require.NoError(t, err)
	assert.Equal(t, "main (defined in src/main.ts)\norphan (defined in src/orphan.ts)\n", out)
	assert.Contains(t, errOut, "Warning: output is 2 lines (limit: 2)")

	_, errOut, err = runIn(t, dir, "--force", "dead")
	require.NoError(t, err)
	assert.NotContains(t, errOut, "Warning")

	_, errOut, err = runIn(t, dir, "--json", "dead")
	require.NoError(t, err)
	assert.NotContains(t, errOut, "Warning")
}

func testApp(answer string, limit int) (*app, *bytes.Buffer, *bytes.Buffer) {
	var stdout, stderr bytes.Buffer
	a := newApp(&stdout, &stderr)
	a.stdin = strings.NewReader(answer)
	a.interactive = func() bool { return true }
	a.cfg = config.Default()
	a.cfg.Limits.OutputLines = limit
	return a, &stdout, &stderr
}

func numbered(n int) string {
	var b strings.Builder
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&b, "line %d\n", i)
	}
	return b.String()
}

func TestFlushPrompt(t *testing.T) {
	t.Parallel()

	out := numbered(60)

	a, stdout, stderr := testApp("y\n", 10)
	require.NoError(t, a.flush("dead", out))
	assert.Equal(t, out, stdout.String())
	assert.Contains(t, stderr.String(), "Use -l <n> to limit the number of dead symbols shown")

	a, stdout, stderr = testApp("h\n", 10)
	require.NoError(t, a.flush("dead", out))
	assert.Equal(t, numbered(50), stdout.String())
	assert.Contains(t, stderr.String(), "(10 more lines omitted)")

	a, stdout, stderr = testApp("n\n", 10)
	require.NoError(t, a.flush("dead", out))
	assert.Empty(t, stdout.String())
	assert.Contains(t, stderr.String(), "Output cancelled")

	a, stdout, stderr = testApp("h\n", 10)
	require.NoError(t, a.flush("dead", numbered(20)))
	assert.Equal(t, numbered(20), stdout.String())
	assert.NotContains(t, stderr.String(), "more lines omitted")

	a, stdout, _ = testApp("", 100)
	require.NoError(t, a.flush("dead", out))
	assert.Equal(t, out, stdout.String(), "below the limit nothing is asked")
}

func TestCountLines(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0, countLines(""))
	assert.Equal(t, 1, countLines("a"))
	assert.Equal(t, 1, countLines("a\n"))
	assert.Equal(t, 2, countLines("a\nb"))
}

func TestRunMetrics(t *testing.T) {
	t.Parallel()

	out, _, err := runIn(t, createSampleProject(t), "metrics")
	require.NoError(t, err)
	assert.Equal(t, "Top functions by number of callers (inbound edges):\n"+
		"  - run: 1\n"+
		"  - save: 1\n"+
		"\n"+
		"Top functions by number of callees (outbound edges):\n"+
		"  - main: 1\n"+
		"  - run: 1\n", out)
}

func TestRunInvestigate(t *testing.T) {
	t.Parallel()

	out, _, err := runIn(t, createSampleProject(t), "investigate", "run")
	require.NoError(t, err)
	assert.Equal(t, "Investigate term: run\n"+
		"  Files:\n"+
		"    - src/run.ts\n"+
		"  Symbols:\n"+
		"    - run (in src/run.ts, callers: 1, callees: 1)\n"+
		"  Documentation:\n"+
		"    - docs/guide.md\n"+
		"\n", out)
}

func TestRunSanitize(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeTestFile(t, dir, index.DefaultName, `{
  "f": {
    "src/app.ts": ["typescript", ["start:1"]],
    "src/app.test.ts": ["typescript", ["checkStart:1"]]
  },
  "g": [["checkStart", "start"]]
}`)

	out, _, err := runIn(t, dir, "sanitize", "--tests")
	require.NoError(t, err)
	assert.Equal(t, "Unused exported functions:\n"+
		"  - checkStart (in src/app.test.ts)\n"+
		"\n"+
		"Test files:\n"+
		"  - src/app.test.ts\n", out)
}
