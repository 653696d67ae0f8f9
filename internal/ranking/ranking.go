// Package ranking orders symbols and modules by degree and assembles
// repository reports.
package ranking

import (
	"fmt"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/phobologic/project-intel/internal/graph"
	"github.com/phobologic/project-intel/internal/model"
	"github.com/phobologic/project-intel/internal/summary"
)

// Metrics holds the two independently ranked hotspot lists.
type Metrics struct {
	Inbound  []graph.Degree `json:"topInbound"`
	Outbound []graph.Degree `json:"topOutbound"`
}

// Hotspots ranks symbols by distinct caller count and by distinct callee
// count, descending. Ties keep enumeration order. Each list is cut to k; a
// k <= 0 keeps every entry.
func Hotspots(g *graph.Graph, k int) Metrics {
	return Metrics{
		Inbound:  top(g.InDegrees(), k),
		Outbound: top(g.OutDegrees(), k),
	}
}

// TopModules ranks imported modules by importing-file count.
func TopModules(g *graph.Graph, k int) []graph.Degree {
	return top(g.ImporterCounts(), k)
}

func top(ds []graph.Degree, k int) []graph.Degree {
	sort.SliceStable(ds, func(i, j int) bool { return ds[i].Count > ds[j].Count })
	if k > 0 && len(ds) > k {
		ds = ds[:k]
	}
	return ds
}

// Focus restricts a report to part of the tree. A focus containing glob
// metacharacters is matched with doublestar semantics; any other focus is a
// plain path prefix.
type Focus struct {
	pattern string
	glob    bool
}

// ParseFocus validates s. The empty focus matches everything.
func ParseFocus(s string) (Focus, error) {
	f := Focus{pattern: s, glob: strings.ContainsAny(s, "*?[{")}
	if f.glob && !doublestar.ValidatePattern(s) {
		return Focus{}, fmt.Errorf("invalid focus pattern %q", s)
	}
	return f, nil
}

// String returns the focus as given.
func (f Focus) String() string {
	return f.pattern
}

// Match reports whether path lies within the focus.
func (f Focus) Match(path string) bool {
	switch {
	case f.pattern == "":
		return true
	case f.glob:
		ok, err := doublestar.Match(f.pattern, path)
		return err == nil && ok
	default:
		return strings.HasPrefix(path, f.pattern)
	}
}

// LanguageCount is the number of files tagged with one language.
type LanguageCount struct {
	Language string `json:"language"`
	Count    int    `json:"count"`
}

// Stats describes the files in a report's focus.
type Stats struct {
	TotalFiles int             `json:"totalFiles"`
	Languages  []LanguageCount `json:"languages"`
	Docs       int             `json:"docs"`
	Tests      int             `json:"tests"`
}

// Report is a repository overview.
type Report struct {
	Focus       string         `json:"focus,omitempty"`
	Stats       Stats          `json:"stats"`
	TopInbound  []graph.Degree `json:"topInbound"`
	TopOutbound []graph.Degree `json:"topOutbound"`
	TopModules  []graph.Degree `json:"topModules"`
}

// BuildReport counts the non-excluded files of idx within focus and adds the
// graph-wide hotspot and module rankings, each cut to k. Languages are listed
// in first-seen order.
func BuildReport(idx *model.Index, g *graph.Graph, filter graph.Filter, focus Focus, k int) *Report {
	r := &Report{Focus: focus.String()}
	langIndex := make(map[string]int)
	for i := range idx.Files {
		fe := &idx.Files[i]
		if (filter != nil && filter.Exclude(fe.Path)) || !focus.Match(fe.Path) {
			continue
		}
		r.Stats.TotalFiles++

		lang := fe.Language
		if lang == "" {
			lang = "unknown"
		}
		if j, ok := langIndex[lang]; ok {
			r.Stats.Languages[j].Count++
		} else {
			langIndex[lang] = len(r.Stats.Languages)
			r.Stats.Languages = append(r.Stats.Languages, LanguageCount{Language: lang, Count: 1})
		}
		if summary.IsTest(fe.Path) {
			r.Stats.Tests++
		}
		if summary.IsDoc(fe.Path) {
			r.Stats.Docs++
		}
	}

	h := Hotspots(g, k)
	r.TopInbound = h.Inbound
	r.TopOutbound = h.Outbound
	r.TopModules = TopModules(g, k)
	return r
}
