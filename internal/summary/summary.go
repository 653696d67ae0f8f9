// Package summary describes a single indexed file or the immediate contents
// of a directory prefix.
package summary

import (
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/phobologic/project-intel/internal/graph"
	"github.com/phobologic/project-intel/internal/model"
)

// Kind is what a summary target resolved to.
type Kind string

const (
	File      Kind = "file"
	Directory Kind = "directory"
)

// Category is one class of files directly below a directory prefix.
type Category struct {
	Name     string   `json:"name"`
	Count    int      `json:"count"`
	Examples []string `json:"examples"`
}

// Summary is the result of summarizing a path.
type Summary struct {
	Target string `json:"target"`
	Kind   Kind   `json:"kind"`

	// File summaries.
	Language string         `json:"language,omitempty"`
	Imports  []string       `json:"imports,omitempty"`
	Symbols  []model.Symbol `json:"symbols,omitempty"`
	Doc      []string       `json:"doc,omitempty"`

	// Directory summaries.
	Categories []Category `json:"categories,omitempty"`
}

// rule classifies a file directly below a directory prefix. Rules are tried in
// order and the first match wins.
type rule struct {
	name  string
	match func(target, file string) bool
}

var (
	pageRe      = regexp.MustCompile(`(?i)page\.tsx$`)
	layoutRe    = regexp.MustCompile(`(?i)layout\.tsx$`)
	routeRe     = regexp.MustCompile(`(?i)route\.tsx?$`)
	testRe      = regexp.MustCompile(`(?i)__tests__|\.test\.|\.spec\.`)
	docRe       = regexp.MustCompile(`(?i)\.md$`)
	compDirRe   = regexp.MustCompile(`(?i)components?/`)
	componentRe = regexp.MustCompile(`(?i)components`)
)

func matchFile(re *regexp.Regexp) func(string, string) bool {
	return func(_, file string) bool { return re.MatchString(file) }
}

var rules = []rule{
	{"pages", matchFile(pageRe)},
	{"layouts", matchFile(layoutRe)},
	{"routes", matchFile(routeRe)},
	{"tests", matchFile(testRe)},
	{"docs", matchFile(docRe)},
	{"components", func(target, file string) bool {
		return compDirRe.MatchString(target) || componentRe.MatchString(file)
	}},
	{"other files", func(string, string) bool { return true }},
}

// categoryOrder is the order categories are listed in, which differs from the
// order rules are tried in: components come before tests and docs.
var categoryOrder = []string{"pages", "layouts", "routes", "components", "tests", "docs", "other files"}

// IsTest reports whether path names a test file.
func IsTest(path string) bool {
	return testRe.MatchString(path)
}

// IsDoc reports whether path names a markdown document.
func IsDoc(path string) bool {
	return docRe.MatchString(path)
}

const maxExamples = 3

// Summarize describes target. A key of the index's file or doc tables yields
// a file summary; anything else is treated as a directory prefix. The graph
// supplies import rows, so excluded files report none.
func Summarize(idx *model.Index, g *graph.Graph, target string) *Summary {
	fe, isFile := idx.File(target)
	doc, isDoc := idx.Doc(target)
	if isFile || isDoc {
		s := &Summary{Target: target, Kind: File, Language: "unknown", Doc: doc}
		if isFile {
			if fe.Language != "" {
				s.Language = fe.Language
			}
			s.Symbols = fe.Symbols
		}
		s.Imports = graph.Imports(g, target)
		return s
	}

	prefix := target
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	buckets := make(map[string][]string, len(rules))
	for _, p := range idx.Paths() {
		rest, ok := strings.CutPrefix(p, prefix)
		if !ok || strings.Contains(rest, "/") {
			continue
		}
		for _, r := range rules {
			if r.match(target, p) {
				buckets[r.name] = append(buckets[r.name], p)
				break
			}
		}
	}

	s := &Summary{Target: target, Kind: Directory}
	for _, name := range categoryOrder {
		files := buckets[name]
		if len(files) == 0 {
			continue
		}
		c := Category{Name: name, Count: len(files)}
		for _, f := range files[:min(len(files), maxExamples)] {
			c.Examples = append(c.Examples, path.Base(f))
		}
		s.Categories = append(s.Categories, c)
	}
	return s
}

// String renders the summary as human-readable text.
func (s *Summary) String() string {
	var b strings.Builder
	if s.Kind == Directory {
		fmt.Fprintf(&b, "Directory %s\n", s.Target)
		for _, c := range s.Categories {
			plural := "s"
			if c.Count == 1 {
				plural = ""
			}
			fmt.Fprintf(&b, "- %s: %d file%s (e.g. %s)\n", c.Name, c.Count, plural, strings.Join(c.Examples, ", "))
		}
		return b.String()
	}

	fmt.Fprintf(&b, "File %s\n", s.Target)
	fmt.Fprintf(&b, "Language: %s\n", s.Language)
	if len(s.Imports) > 0 {
		fmt.Fprintf(&b, "Imports: %s\n", strings.Join(s.Imports, ", "))
	}
	if len(s.Symbols) > 0 {
		b.WriteString("Exported symbols:\n")
		for _, sym := range s.Symbols {
			fmt.Fprintf(&b, "  - %s (line %d)", sym.Name, sym.Line)
			if sym.Signature != "" {
				fmt.Fprintf(&b, ": (%s)", sym.Signature)
			}
			if sym.ReturnType != "" {
				fmt.Fprintf(&b, " -> %s", sym.ReturnType)
			}
			if len(sym.Calls) > 0 {
				fmt.Fprintf(&b, " [calls: %s]", strings.Join(sym.Calls, ", "))
			}
			b.WriteByte('\n')
		}
	}
	if len(s.Doc) > 0 {
		b.WriteString("Documentation preview:\n")
		b.WriteString(strings.Join(s.Doc, "\n"))
		b.WriteByte('\n')
	}
	return b.String()
}
