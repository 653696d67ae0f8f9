package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/phobologic/project-intel/internal/discover"
	"github.com/phobologic/project-intel/internal/importmap"
	"github.com/phobologic/project-intel/internal/toon"
)

var componentTitles = map[discover.Kind]struct{ heading, label string }{
	discover.Skills:   {"Skill Imports", "Skill"},
	discover.Commands: {"Command Imports", "Command"},
	discover.Agents:   {"Agent Imports", "Agent"},
}

func mapImportsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:       "map-imports <memory|skills|commands|agents>",
		Short:     "Map @-references of memory, skill, command or agent documents recursively",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"memory", "skills", "commands", "agents"},
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, ok := discover.ParseKind(args[0])
			if !ok {
				return fmt.Errorf("map-imports requires type: memory|skills|commands|agents (got %q)", args[0])
			}

			m := importmap.New(a.root, a.logger)
			defer m.Close()
			cm, err := m.MapComponent(cmd.Context(), kind)
			if err != nil {
				return err
			}

			return a.emit("map-imports", result{
				value: cm,
				text:  func(w io.Writer) { writeComponentMap(w, cm) },
				toon: func() toon.Document {
					t := toon.Table{Name: "nodes", Columns: []string{"entry", "depth", "file", "kind", "exists", "size"}}
					var walk func(entry string, n *importmap.Node)
					walk = func(entry string, n *importmap.Node) {
						t.Add(entry, toon.Int(n.Depth), n.File, string(n.Kind), fmt.Sprint(n.Exists), fmt.Sprint(n.Size))
						for _, c := range n.Children {
							walk(entry, c)
						}
					}
					for _, e := range cm.Entries {
						walk(e.Name, e.Tree)
					}
					s := cm.Summary
					return toon.Document{
						Fields: []toon.Field{
							{Key: "type", Value: string(cm.Kind)},
							{Key: "total_files", Value: toon.Int(s.TotalFiles)},
							{Key: "internal_files", Value: toon.Int(s.InternalFiles)},
							{Key: "external_files", Value: toon.Int(s.ExternalFiles)},
							{Key: "max_depth", Value: toon.Int(s.MaxDepth)},
							{Key: "total_size", Value: fmt.Sprint(s.TotalSize)},
							{Key: "circular_references", Value: toon.Int(s.CircularReferences)},
							{Key: "missing_files", Value: toon.Int(s.MissingFiles)},
						},
						Tables: []toon.Table{t},
					}
				},
			})
		},
	}
}

func writeComponentMap(w io.Writer, cm *importmap.ComponentMap) {
	if cm.Kind == discover.Memory {
		fmt.Fprintln(w, "Memory Imports (CLAUDE.md)")
		fmt.Fprintf(w, "%s\n\n", strings.Repeat("=", 50))
		for _, e := range cm.Entries {
			writeNode(w, e.Tree, "", true)
		}
	} else {
		t := componentTitles[cm.Kind]
		fmt.Fprintf(w, "%s (%d %s)\n", t.heading, len(cm.Entries), cm.Kind)
		fmt.Fprintf(w, "%s\n\n", strings.Repeat("=", 50))
		for i, e := range cm.Entries {
			fmt.Fprintf(w, "%s: %s\n", t.label, e.Name)
			writeNode(w, e.Tree, "", true)
			if i < len(cm.Entries)-1 {
				fmt.Fprintln(w)
			}
		}
	}

	s := cm.Summary
	fmt.Fprintln(w, "\nSummary:")
	fmt.Fprintf(w, "  Total files: %d\n", s.TotalFiles)
	fmt.Fprintf(w, "  Internal files: %d\n", s.InternalFiles)
	fmt.Fprintf(w, "  External files: %d\n", s.ExternalFiles)
	fmt.Fprintf(w, "  Max depth: %d\n", s.MaxDepth)
	fmt.Fprintf(w, "  Total size: %d bytes\n", s.TotalSize)
	if s.CircularReferences > 0 {
		fmt.Fprintf(w, "  Circular references: %d\n", s.CircularReferences)
	}
	if s.MissingFiles > 0 {
		fmt.Fprintf(w, "  Missing files: %d\n", s.MissingFiles)
	}
}

func writeNode(w io.Writer, n *importmap.Node, prefix string, last bool) {
	connector, indent := "├── ", "│   "
	if last {
		connector, indent = "└── ", "    "
	}

	line := connector + n.File
	switch n.Kind {
	case importmap.Circular:
		line += " [CIRCULAR]"
	case importmap.Missing:
		line += " [MISSING]"
	case importmap.External:
		line += " [EXTERNAL]"
		if !n.Exists {
			line += " [MISSING]"
		}
	}
	if n.Size > 0 {
		line += fmt.Sprintf(" (%d bytes)", n.Size)
	}
	fmt.Fprintln(w, prefix+line)

	for i, c := range n.Children {
		writeNode(w, c, prefix+indent, i == len(n.Children)-1)
	}
}
