// Package importmap resolves the @-reference trees of documentation files.
package importmap

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/phobologic/project-intel/internal/discover"
	"github.com/phobologic/project-intel/internal/parse"
)

// Kind classifies a node of an import tree.
type Kind string

const (
	// Document is a resolved file whose own references were followed.
	Document Kind = "document"
	// External is a home-directory reference. It is checked for existence
	// but never followed.
	External Kind = "external"
	// Missing is a reference whose resolved path does not exist.
	Missing Kind = "missing"
	// Circular is a reference to a document already open on the same branch.
	Circular Kind = "circular"
)

// Node is one document in an import tree.
type Node struct {
	File     string  `json:"file"`
	Path     string  `json:"path,omitempty"`
	Kind     Kind    `json:"kind"`
	Exists   bool    `json:"exists"`
	Size     int64   `json:"size,omitempty"`
	Depth    int     `json:"depth"`
	Children []*Node `json:"imports,omitempty"`
}

// branch is the set of documents open between the root and the current node.
// Each level links to its parent, so siblings share their common prefix and
// never see each other's additions.
type branch struct {
	path   string
	parent *branch
}

func (b *branch) contains(path string) bool {
	for n := b; n != nil; n = n.parent {
		if n.path == path {
			return true
		}
	}
	return false
}

// Mapper builds import trees for one project. It is not safe for concurrent
// use.
type Mapper struct {
	ProjectRoot string
	Home        string
	Logger      *slog.Logger

	parser *parse.Parser
}

// New returns a Mapper rooted at projectRoot. The home directory is taken from
// the environment; a nil logger discards output.
func New(projectRoot string, logger *slog.Logger) *Mapper {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	home, _ := os.UserHomeDir()
	root, err := filepath.Abs(projectRoot)
	if err != nil {
		root = projectRoot
	}
	return &Mapper{
		ProjectRoot: root,
		Home:        home,
		Logger:      logger,
		parser:      parse.NewParser(),
	}
}

// Close releases the reference parser.
func (m *Mapper) Close() {
	m.parser.Close()
}

// Map resolves the tree rooted at document. Recursion is bounded only by the
// reference depth of the documents themselves and by cycle detection.
func (m *Mapper) Map(ctx context.Context, document string) *Node {
	abs, err := filepath.Abs(document)
	if err != nil {
		abs = filepath.Clean(document)
	}
	return m.mapDocument(ctx, abs, 0, nil)
}

func (m *Mapper) mapDocument(ctx context.Context, path string, depth int, open *branch) *Node {
	content, err := os.ReadFile(path)
	if err != nil {
		m.Logger.Debug("document unreadable", "path", path, "error", err)
		return &Node{File: m.display(path), Path: path, Kind: Missing, Depth: depth}
	}

	node := &Node{
		File:   m.display(path),
		Path:   path,
		Kind:   Document,
		Exists: true,
		Size:   int64(len(content)),
		Depth:  depth,
	}
	open = &branch{path: path, parent: open}

	for _, ref := range m.parser.References(ctx, content) {
		resolved, external := m.resolve(ref, path)
		exists := fileExists(resolved)

		switch {
		case external:
			node.Children = append(node.Children, &Node{
				File: ref, Path: resolved, Kind: External, Exists: exists, Depth: depth + 1,
			})
		case !exists:
			m.Logger.Debug("missing reference", "from", path, "ref", ref, "resolved", resolved)
			node.Children = append(node.Children, &Node{
				File: ref, Path: resolved, Kind: Missing, Depth: depth + 1,
			})
		case open.contains(resolved):
			m.Logger.Debug("circular reference", "from", path, "ref", ref)
			node.Children = append(node.Children, &Node{
				File: m.display(resolved), Path: resolved, Kind: Circular, Exists: true, Depth: depth + 1,
			})
		default:
			node.Children = append(node.Children, m.mapDocument(ctx, resolved, depth+1, open))
		}
	}
	return node
}

// resolve maps a reference to an absolute path. "~" references are external
// and resolve against the home directory; "./" and "../" resolve against the
// referencing document; everything else resolves against the project root.
func (m *Mapper) resolve(ref, from string) (string, bool) {
	switch {
	case strings.HasPrefix(ref, "~"):
		return filepath.Join(m.Home, strings.TrimPrefix(ref, "~")), true
	case strings.HasPrefix(ref, "./"), strings.HasPrefix(ref, "../"):
		return filepath.Join(filepath.Dir(from), ref), false
	default:
		return filepath.Join(m.ProjectRoot, ref), false
	}
}

func (m *Mapper) display(path string) string {
	rel, err := filepath.Rel(m.ProjectRoot, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return path
	}
	return filepath.ToSlash(rel)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Stats aggregates one or more import trees.
type Stats struct {
	TotalFiles         int   `json:"totalFiles"`
	InternalFiles      int   `json:"internalFiles"`
	ExternalFiles      int   `json:"externalFiles"`
	MaxDepth           int   `json:"maxDepth"`
	TotalSize          int64 `json:"totalSize"`
	CircularReferences int   `json:"circularReferences"`
	MissingFiles       int   `json:"missingFiles"`
}

// Summarize walks every node of trees once. Circular and missing nodes count
// as internal files.
func Summarize(trees ...*Node) Stats {
	var s Stats
	var walk func(n *Node)
	walk = func(n *Node) {
		if n == nil {
			return
		}
		s.TotalFiles++
		s.MaxDepth = max(s.MaxDepth, n.Depth)
		s.TotalSize += n.Size
		switch n.Kind {
		case External:
			s.ExternalFiles++
		case Circular:
			s.InternalFiles++
			s.CircularReferences++
		case Missing:
			s.InternalFiles++
			s.MissingFiles++
		default:
			s.InternalFiles++
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	for _, t := range trees {
		walk(t)
	}
	return s
}

// Entry is the tree of one component document.
type Entry struct {
	Name string `json:"name"`
	Tree *Node  `json:"tree"`
}

// ComponentMap is the result of mapping every document of one kind.
type ComponentMap struct {
	Kind    discover.Kind `json:"type"`
	Entries []Entry       `json:"entries"`
	Summary Stats         `json:"summary"`
}

// MapComponent maps every entry-point document of kind in the project.
func (m *Mapper) MapComponent(ctx context.Context, kind discover.Kind) (*ComponentMap, error) {
	docs, err := discover.Components(m.ProjectRoot, kind)
	if err != nil {
		return nil, err
	}
	cm := &ComponentMap{Kind: kind, Entries: make([]Entry, 0, len(docs))}
	trees := make([]*Node, 0, len(docs))
	for _, d := range docs {
		tree := m.Map(ctx, d.Path)
		cm.Entries = append(cm.Entries, Entry{Name: d.Name, Tree: tree})
		trees = append(trees, tree)
	}
	cm.Summary = Summarize(trees...)
	return cm, nil
}
