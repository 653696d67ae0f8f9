package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/phobologic/project-intel/internal/graph"
	"github.com/phobologic/project-intel/internal/ranking"
	"github.com/phobologic/project-intel/internal/search"
	"github.com/phobologic/project-intel/internal/summary"
	"github.com/phobologic/project-intel/internal/toon"
)

func writeDegrees(w io.Writer, title string, ds []graph.Degree) {
	fmt.Fprintln(w, title)
	for _, d := range ds {
		fmt.Fprintf(w, "  - %s: %d\n", d.Name, d.Count)
	}
}

func metricsCmd(a *app) *cobra.Command {
	var n int
	cmd := &cobra.Command{
		Use:   "metrics",
		Short: "Show the symbols with the most callers and callees",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, g, err := a.load()
			if err != nil {
				return err
			}
			m := ranking.Hotspots(g, limit(cmd, n, a.cfg.Limits.Hotspots))
			return a.emit("metrics", result{
				value: m,
				text: func(w io.Writer) {
					writeDegrees(w, "Top functions by number of callers (inbound edges):", m.Inbound)
					fmt.Fprintln(w)
					writeDegrees(w, "Top functions by number of callees (outbound edges):", m.Outbound)
				},
				toon: func() toon.Document {
					return toon.Document{Tables: []toon.Table{
						degreeTable("inbound", m.Inbound),
						degreeTable("outbound", m.Outbound),
					}}
				},
			})
		},
	}
	addLimit(cmd, &n, "entries per list")
	return cmd
}

func summaryDocument(s *summary.Summary) toon.Document {
	doc := toon.Document{Fields: []toon.Field{
		{Key: "target", Value: s.Target},
		{Key: "kind", Value: string(s.Kind)},
	}}
	if s.Kind == summary.Directory {
		t := toon.Table{Name: "categories", Columns: []string{"name", "count", "examples"}}
		for _, c := range s.Categories {
			t.Add(c.Name, toon.Int(c.Count), toon.List(c.Examples))
		}
		doc.Tables = append(doc.Tables, t)
		return doc
	}
	doc.Fields = append(doc.Fields, toon.Field{Key: "language", Value: s.Language})
	syms := toon.Table{Name: "symbols", Columns: []string{"name", "line", "signature", "returns", "calls"}}
	for _, sym := range s.Symbols {
		syms.Add(sym.Name, toon.Int(sym.Line), sym.Signature, sym.ReturnType, toon.List(sym.Calls))
	}
	doc.Tables = append(doc.Tables, listTable("imports", "module", s.Imports), syms)
	return doc
}

func summarizeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "summarize <path>",
		Short: "Summarize a file or the direct contents of a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, g, err := a.load()
			if err != nil {
				return err
			}
			s := summary.Summarize(idx, g, args[0])
			return a.emit("summarize", result{
				value: s,
				text:  func(w io.Writer) { io.WriteString(w, s.String()) },
				toon:  func() toon.Document { return summaryDocument(s) },
			})
		},
	}
}

func investigateCmd(a *app) *cobra.Command {
	var n int
	cmd := &cobra.Command{
		Use:   "investigate <term>...",
		Short: "Explore terms across files, symbols and documentation",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, g, err := a.load()
			if err != nil {
				return err
			}
			invs := search.Investigate(idx, g, a.filter, args, limit(cmd, n, a.cfg.Limits.Investigate))
			return a.emit("investigate", result{
				value: invs,
				text: func(w io.Writer) {
					for _, inv := range invs {
						fmt.Fprintf(w, "Investigate term: %s\n", inv.Term)
						if len(inv.Files) > 0 {
							fmt.Fprintln(w, "  Files:")
							for _, f := range inv.Files {
								fmt.Fprintf(w, "    - %s\n", f.File)
							}
						}
						if len(inv.Symbols) > 0 {
							fmt.Fprintln(w, "  Symbols:")
							for _, s := range inv.Symbols {
								fmt.Fprintf(w, "    - %s (in %s, callers: %d, callees: %d)\n",
									s.Name, strings.Join(s.Files, ", "), s.Callers, s.Callees)
							}
						}
						if len(inv.Docs) > 0 {
							fmt.Fprintln(w, "  Documentation:")
							for _, d := range inv.Docs {
								fmt.Fprintf(w, "    - %s\n", d.File)
							}
						}
						fmt.Fprintln(w)
					}
				},
				toon: func() toon.Document {
					t := toon.Table{Name: "matches", Columns: []string{"term", "type", "name", "callers", "callees"}}
					for _, inv := range invs {
						for _, f := range inv.Files {
							t.Add(inv.Term, "file", f.File)
						}
						for _, s := range inv.Symbols {
							t.Add(inv.Term, "symbol", s.Name, toon.Int(s.Callers), toon.Int(s.Callees))
						}
						for _, d := range inv.Docs {
							t.Add(inv.Term, "doc", d.File)
						}
					}
					return toon.Document{Tables: []toon.Table{t}}
				},
			})
		},
	}
	addLimit(cmd, &n, "results per term and category")
	return cmd
}

type debugSymbol struct {
	Name    string   `json:"name"`
	Callers []string `json:"callers"`
	Callees []string `json:"callees"`
}

type debugFile struct {
	Type    string           `json:"type"`
	File    string           `json:"file"`
	Summary *summary.Summary `json:"summary"`
	Symbols []debugSymbol    `json:"symbols"`
	Imports []string         `json:"imports"`
}

type debugFunc struct {
	Type    string   `json:"type"`
	Name    string   `json:"name"`
	Files   []string `json:"files"`
	Callers []string `json:"callers"`
	Callees []string `json:"callees"`
}

func debugCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "debug <symbol|file>",
		Short: "Show a file's symbols with their callers and callees, or a symbol's neighbourhood",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, g, err := a.load()
			if err != nil {
				return err
			}
			target := args[0]

			_, isFile := idx.File(target)
			_, isDoc := idx.Doc(target)
			if isFile || isDoc {
				out := debugFile{
					Type:    "file",
					File:    target,
					Summary: summary.Summarize(idx, g, target),
					Symbols: []debugSymbol{},
					Imports: nonNil(graph.Imports(g, target)),
				}
				for _, sym := range out.Summary.Symbols {
					out.Symbols = append(out.Symbols, debugSymbol{
						Name:    sym.Name,
						Callers: graph.Callers(g, sym.Name, 0),
						Callees: graph.Callees(g, sym.Name, 0),
					})
				}
				return a.emit("debug", result{
					value: out,
					text: func(w io.Writer) {
						io.WriteString(w, out.Summary.String())
						if len(out.Imports) > 0 {
							fmt.Fprintln(w, "Imports:")
							for _, m := range out.Imports {
								fmt.Fprintf(w, "  - %s\n", m)
							}
						}
						if len(out.Symbols) > 0 {
							fmt.Fprintln(w, "Defined symbols:")
							for _, s := range out.Symbols {
								fmt.Fprintf(w, "  - %s\n", s.Name)
								if len(s.Callers) > 0 {
									fmt.Fprintf(w, "      callers: %s\n", strings.Join(s.Callers, ", "))
								}
								if len(s.Callees) > 0 {
									fmt.Fprintf(w, "      callees: %s\n", strings.Join(s.Callees, ", "))
								}
							}
						}
					},
					toon: func() toon.Document {
						doc := summaryDocument(out.Summary)
						t := toon.Table{Name: "neighbours", Columns: []string{"symbol", "callers", "callees"}}
						for _, s := range out.Symbols {
							t.Add(s.Name, toon.List(s.Callers), toon.List(s.Callees))
						}
						doc.Tables = append(doc.Tables, t)
						return doc
					},
				})
			}

			out := debugFunc{
				Type:    "symbol",
				Name:    target,
				Files:   nonNil(g.DefinedIn(target)),
				Callers: graph.Callers(g, target, 0),
				Callees: graph.Callees(g, target, 0),
			}
			return a.emit("debug", result{
				value: out,
				text: func(w io.Writer) {
					fmt.Fprintf(w, "Function %s\n", out.Name)
					if len(out.Files) > 0 {
						fmt.Fprintf(w, "Defined in: %s\n", strings.Join(out.Files, ", "))
					}
					if len(out.Callers) > 0 {
						fmt.Fprintf(w, "Callers: %s\n", strings.Join(out.Callers, ", "))
					}
					if len(out.Callees) > 0 {
						fmt.Fprintf(w, "Callees: %s\n", strings.Join(out.Callees, ", "))
					}
					if len(out.Files)+len(out.Callers)+len(out.Callees) == 0 {
						didYouMean(w, g.Symbols(), target)
					}
				},
				toon: func() toon.Document {
					return toon.Document{
						Fields: []toon.Field{{Key: "symbol", Value: out.Name}},
						Tables: []toon.Table{
							listTable("files", "file", out.Files),
							listTable("callers", "symbol", out.Callers),
							listTable("callees", "symbol", out.Callees),
						},
					}
				},
			})
		},
	}
}

func sanitizeCmd(a *app) *cobra.Command {
	var (
		n     int
		tests bool
	)
	cmd := &cobra.Command{
		Use:   "sanitize",
		Short: "List unused symbols and, optionally, test files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			idx, g, err := a.load()
			if err != nil {
				return err
			}
			dead := refs(g, graph.DeadSymbols(g, limit(cmd, n, a.cfg.Limits.Dead)))
			testFiles := []string{}
			if tests {
				for i := range idx.Files {
					p := idx.Files[i].Path
					if !a.filter.Exclude(p) && summary.IsTest(p) {
						testFiles = append(testFiles, p)
					}
				}
			}
			return a.emit("sanitize", result{
				value: map[string]any{"dead": dead, "tests": testFiles},
				text: func(w io.Writer) {
					fmt.Fprintln(w, "Unused exported functions:")
					for _, d := range dead {
						fmt.Fprintf(w, "  - %s (in %s)\n", d.Name, strings.Join(d.Files, ", "))
					}
					if tests {
						fmt.Fprintln(w, "\nTest files:")
						for _, f := range testFiles {
							fmt.Fprintf(w, "  - %s\n", f)
						}
					}
				},
				toon: func() toon.Document {
					return toon.Document{Tables: []toon.Table{
						refTable("dead", dead),
						listTable("tests", "file", testFiles),
					}}
				},
			})
		},
	}
	addLimit(cmd, &n, "dead symbols")
	cmd.Flags().BoolVar(&tests, "tests", false, "also list test files")
	return cmd
}

func docsCmd(a *app) *cobra.Command {
	var n int
	cmd := &cobra.Command{
		Use:   "docs <term|file>",
		Short: "Preview a documentation file or search documentation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, _, err := a.load()
			if err != nil {
				return err
			}
			target := args[0]

			if lines, ok := idx.Doc(target); ok {
				preview := search.DocMatch{File: target, Preview: strings.Join(lines, "\n")}
				return a.emit("docs", result{
					value: preview,
					text: func(w io.Writer) {
						fmt.Fprintf(w, "Documentation for %s:\n%s\n", preview.File, preview.Preview)
					},
					toon: func() toon.Document {
						return toon.Document{Fields: []toon.Field{
							{Key: "file", Value: preview.File},
							{Key: "preview", Value: preview.Preview},
						}}
					},
				})
			}

			matches := search.Docs(idx, target, limit(cmd, n, a.cfg.Limits.Docs))
			return a.emit("docs", result{
				value: matches,
				text: func(w io.Writer) {
					if len(matches) == 0 {
						fmt.Fprintln(w, "No matching documentation found.")
						return
					}
					fmt.Fprintln(w, "Matching documentation files:")
					for _, m := range matches {
						fmt.Fprintf(w, "  - %s\n", m.File)
					}
				},
				toon: func() toon.Document {
					files := make([]string, len(matches))
					for i, m := range matches {
						files[i] = m.File
					}
					return toon.Document{Tables: []toon.Table{listTable("docs", "file", files)}}
				},
			})
		},
	}
	addLimit(cmd, &n, "documents")
	return cmd
}

func reportCmd(a *app) *cobra.Command {
	var (
		n     int
		focus string
	)
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Summarize languages, hotspots and the most imported modules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			idx, g, err := a.load()
			if err != nil {
				return err
			}
			f, err := ranking.ParseFocus(focus)
			if err != nil {
				return err
			}
			r := ranking.BuildReport(idx, g, a.filter, f, limit(cmd, n, a.cfg.Limits.Hotspots))
			return a.emit("report", result{
				value: r,
				text: func(w io.Writer) {
					fmt.Fprintln(w, "Report")
					if r.Focus != "" {
						fmt.Fprintf(w, "Total files in %s: %d\n", r.Focus, r.Stats.TotalFiles)
					} else {
						fmt.Fprintf(w, "Total files: %d\n", r.Stats.TotalFiles)
					}
					fmt.Fprintln(w, "Languages:")
					for _, l := range r.Stats.Languages {
						fmt.Fprintf(w, "  - %s: %d\n", l.Language, l.Count)
					}
					fmt.Fprintf(w, "Documentation files: %d\n", r.Stats.Docs)
					fmt.Fprintf(w, "Test files: %d\n\n", r.Stats.Tests)
					writeDegrees(w, "Top functions by number of callers (inbound edges):", r.TopInbound)
					fmt.Fprintln(w)
					writeDegrees(w, "Top functions by number of callees (outbound edges):", r.TopOutbound)
					fmt.Fprintln(w)
					writeDegrees(w, "Top imported modules:", r.TopModules)
				},
				toon: func() toon.Document {
					langs := toon.Table{Name: "languages", Columns: []string{"language", "files"}}
					for _, l := range r.Stats.Languages {
						langs.Add(l.Language, toon.Int(l.Count))
					}
					return toon.Document{
						Fields: []toon.Field{
							{Key: "focus", Value: r.Focus},
							{Key: "total_files", Value: toon.Int(r.Stats.TotalFiles)},
							{Key: "docs", Value: toon.Int(r.Stats.Docs)},
							{Key: "tests", Value: toon.Int(r.Stats.Tests)},
						},
						Tables: []toon.Table{
							langs,
							degreeTable("inbound", r.TopInbound),
							degreeTable("outbound", r.TopOutbound),
							degreeTable("modules", r.TopModules),
						},
					}
				},
			})
		},
	}
	addLimit(cmd, &n, "entries per ranking")
	cmd.Flags().StringVar(&focus, "focus", "", "restrict file counts to a path prefix or glob")
	return cmd
}
