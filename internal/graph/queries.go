package graph

// FindPath returns a shortest call path from start to target, measured in
// edges, or nil when target is unreachable. A symbol reaches itself with the
// one-element path [start].
func FindPath(g *Graph, start, target string) []string {
	if start == target {
		return []string{start}
	}

	visited := map[string]struct{}{start: {}}
	queue := [][]string{{start}}

	for len(queue) > 0 {
		path := queue[0]
		queue = queue[1:]
		node := path[len(path)-1]

		for _, next := range g.calls.get(node) {
			if _, seen := visited[next]; seen {
				continue
			}
			extended := make([]string, len(path), len(path)+1)
			copy(extended, path)
			extended = append(extended, next)
			if next == target {
				return extended
			}
			visited[next] = struct{}{}
			queue = append(queue, extended)
		}
	}
	return nil
}

// Callers returns the distinct symbols that call symbol, in the order their
// edges appear in the index, truncated to limit. A limit <= 0 means no limit.
func Callers(g *Graph, symbol string, limit int) []string {
	return truncate(g.callers.get(symbol), limit)
}

// Callees returns the distinct symbols called by symbol, in the order their
// edges appear in the index, truncated to limit. A limit <= 0 means no limit.
func Callees(g *Graph, symbol string, limit int) []string {
	return truncate(g.calls.get(symbol), limit)
}

// DeadSymbols returns defined symbols with no recorded inbound call edge, in
// index order, truncated to limit. A limit <= 0 means no limit.
//
// The result is advisory. Entry points, framework callbacks and dynamically
// dispatched calls have no inbound edges in a static index either, so they are
// reported alongside code that is genuinely unused.
func DeadSymbols(g *Graph, limit int) []string {
	var dead []string
	for _, name := range g.symbols.keys {
		if g.callers.has(name) {
			continue
		}
		dead = append(dead, name)
		if limit > 0 && len(dead) >= limit {
			break
		}
	}
	return dead
}

// Imports returns the module specifiers recorded for file.
func Imports(g *Graph, file string) []string {
	return g.imports[file]
}

// Importers returns the files importing module, truncated to limit. A limit
// <= 0 means no limit.
func Importers(g *Graph, module string, limit int) []string {
	return truncate(g.importers.get(module), limit)
}

func truncate(items []string, limit int) []string {
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	out := make([]string, len(items))
	copy(out, items)
	return out
}
