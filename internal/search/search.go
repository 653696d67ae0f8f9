// Package search finds files, symbols and documentation matching free-text
// terms.
package search

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/hbollon/go-edlib"

	"github.com/phobologic/project-intel/internal/graph"
	"github.com/phobologic/project-intel/internal/model"
	"github.com/phobologic/project-intel/internal/summary"
)

// Compile turns a search term into a matcher. Unless regex is set the term is
// a literal matched case-insensitively.
func Compile(term string, regex bool) (*regexp.Regexp, error) {
	if regex {
		re, err := regexp.Compile(term)
		if err != nil {
			return nil, fmt.Errorf("invalid search pattern: %w", err)
		}
		return re, nil
	}
	return regexp.MustCompile("(?i)" + regexp.QuoteMeta(term)), nil
}

// Result is one search hit: a file, or a symbol with its defining files.
type Result struct {
	Type  string   `json:"type"`
	File  string   `json:"file,omitempty"`
	Name  string   `json:"name,omitempty"`
	Files []string `json:"files,omitempty"`
}

// Options tunes Search. Limit <= 0 means no limit. Glob, when set, restricts
// file hits to paths matching the doublestar pattern.
type Options struct {
	Regex bool
	Limit int
	Glob  string
}

// Search matches term against non-excluded file paths first and then against
// symbol names, stopping once Limit hits have been collected.
func Search(idx *model.Index, g *graph.Graph, filter graph.Filter, term string, opts Options) ([]Result, error) {
	re, err := Compile(term, opts.Regex)
	if err != nil {
		return nil, err
	}
	if opts.Glob != "" && !doublestar.ValidatePattern(opts.Glob) {
		return nil, fmt.Errorf("invalid glob %q", opts.Glob)
	}
	full := func(n int) bool { return opts.Limit > 0 && n >= opts.Limit }

	results := []Result{}
	for _, path := range files(idx, filter) {
		if full(len(results)) {
			return results, nil
		}
		if opts.Glob != "" {
			if ok, _ := doublestar.Match(opts.Glob, path); !ok {
				continue
			}
		}
		if re.MatchString(path) {
			results = append(results, Result{Type: "file", File: path})
		}
	}
	for _, name := range g.Symbols() {
		if full(len(results)) {
			break
		}
		if re.MatchString(name) {
			results = append(results, Result{Type: "symbol", Name: name, Files: g.DefinedIn(name)})
		}
	}
	return results, nil
}

func files(idx *model.Index, filter graph.Filter) []string {
	out := make([]string, 0, len(idx.Files))
	for i := range idx.Files {
		if filter != nil && filter.Exclude(idx.Files[i].Path) {
			continue
		}
		out = append(out, idx.Files[i].Path)
	}
	return out
}

// FileMatch is a file hit with its summary.
type FileMatch struct {
	File    string           `json:"file"`
	Summary *summary.Summary `json:"summary"`
}

// SymbolMatch is a symbol hit with its degree in the call graph.
type SymbolMatch struct {
	Name    string   `json:"name"`
	Files   []string `json:"files"`
	Callers int      `json:"callers"`
	Callees int      `json:"callees"`
}

// DocMatch is a documentation hit.
type DocMatch struct {
	File    string `json:"file"`
	Preview string `json:"preview"`
}

// Investigation gathers everything matching one term.
type Investigation struct {
	Term    string        `json:"term"`
	Files   []FileMatch   `json:"files"`
	Symbols []SymbolMatch `json:"symbols"`
	Docs    []DocMatch    `json:"docs"`
}

// Investigate searches files, symbols and docs for each literal term. Each
// category is cut to limit independently; limit <= 0 means no limit.
func Investigate(idx *model.Index, g *graph.Graph, filter graph.Filter, terms []string, limit int) []Investigation {
	out := make([]Investigation, 0, len(terms))
	for _, term := range terms {
		re, _ := Compile(term, false)
		inv := Investigation{
			Term:    term,
			Files:   []FileMatch{},
			Symbols: []SymbolMatch{},
		}
		for _, path := range files(idx, filter) {
			if limit > 0 && len(inv.Files) >= limit {
				break
			}
			if re.MatchString(path) {
				inv.Files = append(inv.Files, FileMatch{File: path, Summary: summary.Summarize(idx, g, path)})
			}
		}
		for _, name := range g.Symbols() {
			if limit > 0 && len(inv.Symbols) >= limit {
				break
			}
			if re.MatchString(name) {
				inv.Symbols = append(inv.Symbols, SymbolMatch{
					Name:    name,
					Files:   g.DefinedIn(name),
					Callers: len(graph.Callers(g, name, 0)),
					Callees: len(graph.Callees(g, name, 0)),
				})
			}
		}
		inv.Docs = matchDocs(idx, re, limit)
		out = append(out, inv)
	}
	return out
}

// Docs returns the documentation files whose path or excerpt contains term.
func Docs(idx *model.Index, term string, limit int) []DocMatch {
	re, _ := Compile(term, false)
	return matchDocs(idx, re, limit)
}

func matchDocs(idx *model.Index, re *regexp.Regexp, limit int) []DocMatch {
	matches := []DocMatch{}
	for _, d := range idx.Docs {
		if limit > 0 && len(matches) >= limit {
			break
		}
		content := strings.Join(d.Lines, "\n")
		if re.MatchString(d.Path) || re.MatchString(content) {
			matches = append(matches, DocMatch{File: d.Path, Preview: content})
		}
	}
	return matches
}

// suggestThreshold is the minimum Jaro-Winkler similarity for a suggestion.
const suggestThreshold = 0.8

// Suggest returns up to n candidates similar to name, most similar first.
// Ties keep candidate order.
func Suggest(candidates []string, name string, n int) []string {
	if n <= 0 {
		return nil
	}
	type scored struct {
		name  string
		score float32
	}
	var hits []scored
	lower := strings.ToLower(name)
	for _, c := range candidates {
		if c == name {
			continue
		}
		score, err := edlib.StringsSimilarity(lower, strings.ToLower(c), edlib.JaroWinkler)
		if err != nil || score < suggestThreshold {
			continue
		}
		hits = append(hits, scored{c, score})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })

	out := make([]string, 0, min(n, len(hits)))
	for _, h := range hits {
		if len(out) >= n {
			break
		}
		out = append(out, h.name)
	}
	return out
}
