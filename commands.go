package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/phobologic/project-intel/internal/graph"
	"github.com/phobologic/project-intel/internal/model"
	"github.com/phobologic/project-intel/internal/search"
	"github.com/phobologic/project-intel/internal/summary"
	"github.com/phobologic/project-intel/internal/toon"
)

// maxSuggestions caps "did you mean" lists.
const maxSuggestions = 3

func addLimit(cmd *cobra.Command, dst *int, what string) {
	cmd.Flags().IntVarP(dst, "limit", "l", 0, "maximum number of "+what+" (default from config)")
}

// symbolRef is a symbol together with the files defining it.
type symbolRef struct {
	Name  string   `json:"name"`
	Files []string `json:"files"`
}

func refs(g *graph.Graph, names []string) []symbolRef {
	out := make([]symbolRef, 0, len(names))
	for _, n := range names {
		files := g.DefinedIn(n)
		if files == nil {
			files = []string{}
		}
		out = append(out, symbolRef{Name: n, Files: files})
	}
	return out
}

func refTable(name string, rs []symbolRef) toon.Table {
	t := toon.Table{Name: name, Columns: []string{"name", "files"}}
	for _, r := range rs {
		t.Add(r.Name, toon.List(r.Files))
	}
	return t
}

func listTable(name, column string, items []string) toon.Table {
	t := toon.Table{Name: name, Columns: []string{column}}
	for _, it := range items {
		t.Add(it)
	}
	return t
}

func degreeTable(name string, ds []graph.Degree) toon.Table {
	t := toon.Table{Name: name, Columns: []string{"name", "count"}}
	for _, d := range ds {
		t.Add(d.Name, toon.Int(d.Count))
	}
	return t
}

// didYouMean prints close matches for a name that is not in candidates.
func didYouMean(w io.Writer, candidates []string, name string) {
	if s := search.Suggest(candidates, name, maxSuggestions); len(s) > 0 {
		fmt.Fprintf(w, "Did you mean: %s?\n", strings.Join(s, ", "))
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

type indexStats struct {
	TotalFiles       int            `json:"total_files"`
	TotalDirectories int            `json:"total_directories"`
	FullyParsed      map[string]int `json:"fully_parsed"`
	ListedOnly       map[string]int `json:"listed_only"`
	MarkdownFiles    int            `json:"markdown_files"`
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func statsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show summary statistics recorded in the index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			idx, _, err := a.load()
			if err != nil {
				return err
			}
			raw := idx.Stats
			if len(raw) == 0 {
				raw = json.RawMessage("{}")
			}
			var st indexStats
			if err := json.Unmarshal(raw, &st); err != nil {
				a.logger.Debug("stats object has unexpected shape", "error", err)
			}
			return a.emit("stats", result{
				value: raw,
				text: func(w io.Writer) {
					fmt.Fprintf(w, "Total files: %d\n", st.TotalFiles)
					fmt.Fprintf(w, "Total directories: %d\n", st.TotalDirectories)
					fmt.Fprintln(w, "Fully parsed:")
					for _, k := range sortedKeys(st.FullyParsed) {
						fmt.Fprintf(w, "  - %s: %d files\n", k, st.FullyParsed[k])
					}
					fmt.Fprintln(w, "Listed only (unparsed):")
					for _, k := range sortedKeys(st.ListedOnly) {
						fmt.Fprintf(w, "  - %s: %d files\n", k, st.ListedOnly[k])
					}
					fmt.Fprintf(w, "Markdown files: %d\n", st.MarkdownFiles)
				},
				toon: func() toon.Document {
					parsed := toon.Table{Name: "fully_parsed", Columns: []string{"language", "files"}}
					for _, k := range sortedKeys(st.FullyParsed) {
						parsed.Add(k, toon.Int(st.FullyParsed[k]))
					}
					listed := toon.Table{Name: "listed_only", Columns: []string{"extension", "files"}}
					for _, k := range sortedKeys(st.ListedOnly) {
						listed.Add(k, toon.Int(st.ListedOnly[k]))
					}
					return toon.Document{
						Fields: []toon.Field{
							{Key: "total_files", Value: toon.Int(st.TotalFiles)},
							{Key: "total_directories", Value: toon.Int(st.TotalDirectories)},
							{Key: "markdown_files", Value: toon.Int(st.MarkdownFiles)},
						},
						Tables: []toon.Table{parsed, listed},
					}
				},
			})
		},
	}
}

// filteredPaths returns the non-excluded file and doc paths.
func (a *app) filteredPaths(idx *model.Index) []string {
	var out []string
	for _, p := range idx.Paths() {
		if !a.filter.Exclude(p) {
			out = append(out, p)
		}
	}
	return out
}

func treeCmd(a *app) *cobra.Command {
	var opts summary.TreeOptions
	cmd := &cobra.Command{
		Use:   "tree",
		Short: "Print the directory tree of indexed files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			idx, _, err := a.load()
			if err != nil {
				return err
			}
			tree := summary.BuildTree(a.filteredPaths(idx))
			return a.emit("tree", result{
				value: tree,
				text:  func(w io.Writer) { _ = summary.WriteTree(w, tree, opts) },
				toon: func() toon.Document {
					t := toon.Table{Name: "directories", Columns: []string{"path", "files"}}
					var walk func(n *summary.TreeNode, prefix string, depth int)
					walk = func(n *summary.TreeNode, prefix string, depth int) {
						for _, c := range n.Children {
							if !c.IsDir() {
								continue
							}
							t.Add(prefix+c.Name, toon.Int(c.Count))
							if opts.MaxDepth <= 0 || depth+1 < opts.MaxDepth {
								walk(c, prefix+c.Name+"/", depth+1)
							}
						}
					}
					walk(tree, "", 0)
					return toon.Document{Tables: []toon.Table{t}}
				},
			})
		},
	}
	cmd.Flags().IntVar(&opts.MaxDepth, "max-depth", 0, "limit the tree depth")
	cmd.Flags().BoolVar(&opts.Files, "files", false, "include files, not only directories")
	return cmd
}

func searchCmd(a *app) *cobra.Command {
	var (
		n    int
		opts search.Options
	)
	cmd := &cobra.Command{
		Use:   "search <term>",
		Short: "Search file paths, then symbol names",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, g, err := a.load()
			if err != nil {
				return err
			}
			opts.Limit = limit(cmd, n, a.cfg.Limits.Search)
			results, err := search.Search(idx, g, a.filter, args[0], opts)
			if err != nil {
				return err
			}
			return a.emit("search", result{
				value: results,
				text: func(w io.Writer) {
					if len(results) == 0 {
						fmt.Fprintln(w, "No matches found.")
						return
					}
					for _, r := range results {
						if r.Type == "file" {
							fmt.Fprintf(w, "File: %s\n", r.File)
						} else {
							fmt.Fprintf(w, "Symbol: %s (defined in %s)\n", r.Name, strings.Join(r.Files, ", "))
						}
					}
				},
				toon: func() toon.Document {
					t := toon.Table{Name: "results", Columns: []string{"type", "name", "files"}}
					for _, r := range results {
						if r.Type == "file" {
							t.Add(r.Type, r.File, "")
						} else {
							t.Add(r.Type, r.Name, toon.List(r.Files))
						}
					}
					return toon.Document{Tables: []toon.Table{t}}
				},
			})
		},
	}
	addLimit(cmd, &n, "results")
	cmd.Flags().BoolVar(&opts.Regex, "regex", false, "treat the term as a regular expression")
	cmd.Flags().StringVar(&opts.Glob, "glob", "", "only match files whose path matches this glob")
	return cmd
}

type callerRow struct {
	Caller string   `json:"caller"`
	Files  []string `json:"files"`
}

type calleeRow struct {
	Callee string   `json:"callee"`
	Files  []string `json:"files"`
}

func callersCmd(a *app) *cobra.Command {
	var n int
	cmd := &cobra.Command{
		Use:   "callers <symbol>",
		Short: "List the symbols that call <symbol>",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, g, err := a.load()
			if err != nil {
				return err
			}
			name := args[0]
			found := refs(g, graph.Callers(g, name, limit(cmd, n, a.cfg.Limits.Callers)))
			rows := make([]callerRow, len(found))
			for i, r := range found {
				rows[i] = callerRow{Caller: r.Name, Files: r.Files}
			}
			return a.emit("callers", result{
				value: rows,
				text: func(w io.Writer) {
					if len(rows) == 0 {
						fmt.Fprintf(w, "No functions call %s.\n", name)
						if !g.IsDefined(name) {
							didYouMean(w, g.Symbols(), name)
						}
						return
					}
					for _, r := range rows {
						fmt.Fprintf(w, "%s (in %s)\n", r.Caller, strings.Join(r.Files, ", "))
					}
				},
				toon: func() toon.Document {
					return toon.Document{
						Fields: []toon.Field{{Key: "symbol", Value: name}},
						Tables: []toon.Table{refTable("callers", found)},
					}
				},
			})
		},
	}
	addLimit(cmd, &n, "callers")
	return cmd
}

func calleesCmd(a *app) *cobra.Command {
	var n int
	cmd := &cobra.Command{
		Use:   "callees <symbol>",
		Short: "List the symbols called by <symbol>",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, g, err := a.load()
			if err != nil {
				return err
			}
			name := args[0]
			found := refs(g, graph.Callees(g, name, limit(cmd, n, a.cfg.Limits.Callees)))
			rows := make([]calleeRow, len(found))
			for i, r := range found {
				rows[i] = calleeRow{Callee: r.Name, Files: r.Files}
			}
			return a.emit("callees", result{
				value: rows,
				text: func(w io.Writer) {
					if len(rows) == 0 {
						fmt.Fprintf(w, "%s does not call any functions in the index.\n", name)
						if !g.IsDefined(name) {
							didYouMean(w, g.Symbols(), name)
						}
						return
					}
					for _, r := range rows {
						fmt.Fprintf(w, "%s calls %s (defined in %s)\n", name, r.Callee, strings.Join(r.Files, ", "))
					}
				},
				toon: func() toon.Document {
					return toon.Document{
						Fields: []toon.Field{{Key: "symbol", Value: name}},
						Tables: []toon.Table{refTable("callees", found)},
					}
				},
			})
		},
	}
	addLimit(cmd, &n, "callees")
	return cmd
}

func traceCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "trace <from> <to>",
		Short: "Find a shortest call path between two symbols",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, g, err := a.load()
			if err != nil {
				return err
			}
			from, to := args[0], args[1]
			path := graph.FindPath(g, from, to)
			return a.emit("trace", result{
				value: map[string][]string{"path": path},
				text: func(w io.Writer) {
					if path == nil {
						fmt.Fprintf(w, "No call path from %s to %s.\n", from, to)
						return
					}
					fmt.Fprintln(w, strings.Join(path, " -> "))
				},
				toon: func() toon.Document {
					return toon.Document{
						Fields: []toon.Field{{Key: "from", Value: from}, {Key: "to", Value: to}},
						Tables: []toon.Table{listTable("path", "symbol", path)},
					}
				},
			})
		},
	}
}

func deadCmd(a *app) *cobra.Command {
	var n int
	cmd := &cobra.Command{
		Use:   "dead",
		Short: "List defined symbols with no recorded callers (advisory)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, g, err := a.load()
			if err != nil {
				return err
			}
			dead := refs(g, graph.DeadSymbols(g, limit(cmd, n, a.cfg.Limits.Dead)))
			return a.emit("dead", result{
				value: dead,
				text: func(w io.Writer) {
					if len(dead) == 0 {
						fmt.Fprintln(w, "No dead functions detected.")
						return
					}
					for _, d := range dead {
						fmt.Fprintf(w, "%s (defined in %s)\n", d.Name, strings.Join(d.Files, ", "))
					}
				},
				toon: func() toon.Document {
					return toon.Document{Tables: []toon.Table{refTable("dead", dead)}}
				},
			})
		},
	}
	addLimit(cmd, &n, "symbols")
	return cmd
}

func importsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "imports <file>",
		Short: "List the modules imported by <file>",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, g, err := a.load()
			if err != nil {
				return err
			}
			file := args[0]
			mods := nonNil(graph.Imports(g, file))
			return a.emit("imports", result{
				value: mods,
				text: func(w io.Writer) {
					if len(mods) == 0 {
						fmt.Fprintf(w, "%s does not import any modules recorded in the index.\n", file)
						return
					}
					fmt.Fprintf(w, "Imports for %s:\n", file)
					for _, m := range mods {
						fmt.Fprintf(w, "  - %s\n", m)
					}
				},
				toon: func() toon.Document {
					return toon.Document{
						Fields: []toon.Field{{Key: "file", Value: file}},
						Tables: []toon.Table{listTable("imports", "module", mods)},
					}
				},
			})
		},
	}
}

func importersCmd(a *app) *cobra.Command {
	var n int
	cmd := &cobra.Command{
		Use:   "importers <module>",
		Short: "List the files importing <module>",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, g, err := a.load()
			if err != nil {
				return err
			}
			mod := args[0]
			files := graph.Importers(g, mod, limit(cmd, n, a.cfg.Limits.Importers))
			return a.emit("importers", result{
				value: files,
				text: func(w io.Writer) {
					if len(files) == 0 {
						fmt.Fprintf(w, "No files import module %s.\n", mod)
						didYouMean(w, g.Modules(), mod)
						return
					}
					fmt.Fprintf(w, "Files that import %s:\n", mod)
					for _, f := range files {
						fmt.Fprintf(w, "  - %s\n", f)
					}
				},
				toon: func() toon.Document {
					return toon.Document{
						Fields: []toon.Field{{Key: "module", Value: mod}},
						Tables: []toon.Table{listTable("importers", "file", files)},
					}
				},
			})
		},
	}
	addLimit(cmd, &n, "files")
	return cmd
}
