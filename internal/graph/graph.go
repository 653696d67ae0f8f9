// Package graph derives queryable call and import graphs from an index and
// answers structural queries over them.
//
// Call-graph nodes are bare symbol names, exactly as the index records them.
// Two unrelated files that define a symbol with the same name collapse into a
// single node; telling them apart would require re-parsing source.
package graph

import (
	"github.com/phobologic/project-intel/internal/model"
)

// Filter decides whether a path is dropped from the derived graph.
type Filter interface {
	Exclude(path string) bool
}

// set is an insertion-ordered string set.
type set struct {
	items []string
	seen  map[string]struct{}
}

func (s *set) add(v string) {
	if s.seen == nil {
		s.seen = make(map[string]struct{})
	}
	if _, ok := s.seen[v]; ok {
		return
	}
	s.seen[v] = struct{}{}
	s.items = append(s.items, v)
}

// adjacency maps keys to ordered sets, remembering key insertion order.
type adjacency struct {
	keys []string
	sets map[string]*set
}

func newAdjacency() adjacency {
	return adjacency{sets: make(map[string]*set)}
}

func (a *adjacency) add(key, value string) {
	s, ok := a.sets[key]
	if !ok {
		s = &set{}
		a.sets[key] = s
		a.keys = append(a.keys, key)
	}
	s.add(value)
}

func (a *adjacency) get(key string) []string {
	if s, ok := a.sets[key]; ok {
		return s.items
	}
	return nil
}

func (a *adjacency) has(key string) bool {
	_, ok := a.sets[key]
	return ok
}

// Graph is the derived view of an index under one exclusion filter.
type Graph struct {
	symbols   adjacency // symbol name -> defining files
	calls     adjacency // caller -> callees
	callers   adjacency // callee -> callers
	importers adjacency // module specifier -> importing files

	imports     map[string][]string // file -> module specifiers
	importOrder []string
}

// Derive builds the graph in one pass over each index table. Excluded files
// contribute no symbols and no import rows. Call edges are taken as-is:
// duplicates collapse and self-loops are kept.
func Derive(idx *model.Index, filter Filter) *Graph {
	g := &Graph{
		symbols:   newAdjacency(),
		calls:     newAdjacency(),
		callers:   newAdjacency(),
		importers: newAdjacency(),
		imports:   make(map[string][]string),
	}

	for i := range idx.Files {
		fe := &idx.Files[i]
		if excluded(filter, fe.Path) {
			continue
		}
		for j := range fe.Symbols {
			g.symbols.add(fe.Symbols[j].Name, fe.Path)
		}
	}

	for _, e := range idx.Calls {
		g.calls.add(e.Caller, e.Callee)
		g.callers.add(e.Callee, e.Caller)
	}

	for i := range idx.Deps {
		row := &idx.Deps[i]
		if excluded(filter, row.Path) {
			continue
		}
		if _, dup := g.imports[row.Path]; !dup {
			g.importOrder = append(g.importOrder, row.Path)
		}
		g.imports[row.Path] = row.Modules
		for _, mod := range row.Modules {
			g.importers.add(mod, row.Path)
		}
	}

	return g
}

func excluded(f Filter, path string) bool {
	return f != nil && f.Exclude(path)
}

// Symbols returns every defined symbol name in index order.
func (g *Graph) Symbols() []string {
	return g.symbols.keys
}

// SymbolCount is the number of distinct defined symbol names.
func (g *Graph) SymbolCount() int {
	return len(g.symbols.keys)
}

// CallerCount is the number of symbols with at least one recorded caller.
func (g *Graph) CallerCount() int {
	return len(g.callers.keys)
}

// DefinedIn returns the files defining name.
func (g *Graph) DefinedIn(name string) []string {
	return g.symbols.get(name)
}

// IsDefined reports whether name is defined by any non-excluded file.
func (g *Graph) IsDefined(name string) bool {
	return g.symbols.has(name)
}

// ImportingFiles returns the files with an import row, in index order.
func (g *Graph) ImportingFiles() []string {
	return g.importOrder
}

// Modules returns every imported module specifier in first-seen order.
func (g *Graph) Modules() []string {
	return g.importers.keys
}

// Degree is a node name paired with an edge count.
type Degree struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// InDegrees returns, for every symbol with at least one caller, its number of
// distinct callers, in first-seen order.
func (g *Graph) InDegrees() []Degree {
	return degrees(&g.callers)
}

// OutDegrees returns, for every symbol with at least one callee, its number
// of distinct callees, in first-seen order.
func (g *Graph) OutDegrees() []Degree {
	return degrees(&g.calls)
}

// ImporterCounts returns every module with its number of importing files.
func (g *Graph) ImporterCounts() []Degree {
	return degrees(&g.importers)
}

func degrees(a *adjacency) []Degree {
	out := make([]Degree, 0, len(a.keys))
	for _, k := range a.keys {
		out = append(out, Degree{Name: k, Count: len(a.sets[k].items)})
	}
	return out
}
