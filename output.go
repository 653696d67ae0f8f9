package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/phobologic/project-intel/internal/toon"
)

const (
	formatText = "text"
	formatJSON = "json"
	formatTOON = "toon"
)

// headLines is how much the "h" answer of the size prompt shows.
const headLines = 50

// result is a command's output in every supported format.
type result struct {
	value any
	text  func(w io.Writer)
	toon  func() toon.Document
}

// suggestions are shown when a command's output exceeds the line limit.
var suggestions = map[string]string{
	"tree":        "Use --max-depth <n> to limit tree depth, or focus on a specific directory",
	"search":      "Use -l <n> to limit results, or make your search term more specific",
	"callers":     "Use -l <n> to limit the number of results shown",
	"callees":     "Use -l <n> to limit the number of results shown",
	"dead":        "Use -l <n> to limit the number of dead symbols shown",
	"importers":   "Use -l <n> to limit the number of importers shown",
	"investigate": "Use -l <n> to limit results per term, or investigate fewer terms",
	"sanitize":    "Use -l <n> to limit results, or drop --tests",
	"docs":        "Use -l <n> to limit results, or be more specific with your search term",
	"report":      "Use --focus <path> to analyze a specific directory",
}

func isTerminal(v any) bool {
	f, ok := v.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// emit renders r in the selected format and writes it, applying the output
// size check to text and TOON output.
func (a *app) emit(command string, r result) error {
	var buf bytes.Buffer
	switch a.format {
	case formatJSON:
		enc := json.NewEncoder(&buf)
		enc.SetIndent("", "  ")
		if err := enc.Encode(r.value); err != nil {
			return fmt.Errorf("encoding JSON: %w", err)
		}
		_, err := a.stdout.Write(buf.Bytes())
		return err
	case formatTOON:
		if r.toon == nil {
			return fmt.Errorf("%s does not support TOON output", command)
		}
		buf.WriteString(toon.Encode(r.toon()))
	default:
		r.text(&buf)
	}
	return a.flush(command, buf.String())
}

func countLines(s string) int {
	if s == "" {
		return 0
	}
	return strings.Count(strings.TrimSuffix(s, "\n"), "\n") + 1
}

// flush writes out, first warning (non-interactive) or asking (interactive)
// when it has at least the configured number of lines.
func (a *app) flush(command, out string) error {
	n := countLines(out)
	threshold := a.cfg.Limits.OutputLines
	if a.force || threshold <= 0 || n < threshold {
		_, err := io.WriteString(a.stdout, out)
		return err
	}

	if !a.interactive() {
		fmt.Fprintf(a.stderr, "\nWarning: output is %d lines (limit: %d)\n", n, threshold)
		fmt.Fprintf(a.stderr, "   Consider using --force to suppress this warning\n\n")
		_, err := io.WriteString(a.stdout, out)
		return err
	}

	suggestion, ok := suggestions[command]
	if !ok {
		suggestion = "Try using available flags to limit output"
	}
	fmt.Fprintf(a.stderr, "\nLarge Output Warning\n")
	fmt.Fprintf(a.stderr, "   This command will produce %d lines of output (limit: %d)\n\n", n, threshold)
	fmt.Fprintf(a.stderr, "Suggestion: %s\n\n", suggestion)
	fmt.Fprintf(a.stderr, "Options:\n")
	fmt.Fprintf(a.stderr, "  [y] Show all output anyway\n")
	fmt.Fprintf(a.stderr, "  [n] Cancel and refine your query\n")
	fmt.Fprintf(a.stderr, "  [h] Show first %d lines (head)\n", headLines)
	fmt.Fprintf(a.stderr, "  Or use --force to skip this prompt\n\n")
	fmt.Fprintf(a.stderr, "Continue? [y/n/h]: ")

	answer, _ := bufio.NewReader(a.stdin).ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		_, err := io.WriteString(a.stdout, out)
		return err
	case "h", "head":
		lines := strings.SplitAfter(out, "\n")
		if _, err := io.WriteString(a.stdout, strings.Join(lines[:min(headLines, len(lines))], "")); err != nil {
			return err
		}
		if n > headLines {
			fmt.Fprintf(a.stderr, "\n... (%d more lines omitted)\n", max(0, n-headLines))
		}
		return nil
	default:
		fmt.Fprintf(a.stderr, "\nOutput cancelled. Try refining your query.\n")
		return nil
	}
}
