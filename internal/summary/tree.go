package summary

import (
	"fmt"
	"io"
	"sort"
	"strings"
)

// TreeNode is a directory or file in a tree built from index paths. Count is
// the number of paths at or below the node.
type TreeNode struct {
	Name     string      `json:"name"`
	Count    int         `json:"files"`
	Children []*TreeNode `json:"children,omitempty"`

	index map[string]*TreeNode
}

// IsDir reports whether the node has children.
func (n *TreeNode) IsDir() bool {
	return len(n.Children) > 0
}

func (n *TreeNode) child(name string) *TreeNode {
	if c, ok := n.index[name]; ok {
		return c
	}
	if n.index == nil {
		n.index = make(map[string]*TreeNode)
	}
	c := &TreeNode{Name: name}
	n.index[name] = c
	n.Children = append(n.Children, c)
	return c
}

// BuildTree arranges slash-separated paths into a tree rooted at ".". Children
// are sorted by name.
func BuildTree(paths []string) *TreeNode {
	root := &TreeNode{Name: "."}
	for _, p := range paths {
		node := root
		for _, part := range strings.Split(p, "/") {
			node = node.child(part)
			node.Count++
		}
	}
	sortTree(root)
	return root
}

func sortTree(n *TreeNode) {
	sort.Slice(n.Children, func(i, j int) bool { return n.Children[i].Name < n.Children[j].Name })
	for _, c := range n.Children {
		sortTree(c)
	}
}

// TreeOptions controls WriteTree. A MaxDepth <= 0 prints every level.
type TreeOptions struct {
	MaxDepth int
	Files    bool
}

// WriteTree prints the tree below root with box-drawing connectors.
// Directories show their file count; files are printed only with Files set.
func WriteTree(w io.Writer, root *TreeNode, opts TreeOptions) error {
	return writeTree(w, root, "", 0, opts)
}

func writeTree(w io.Writer, n *TreeNode, prefix string, depth int, opts TreeOptions) error {
	for i, c := range n.Children {
		last := i == len(n.Children)-1
		connector, indent := "├── ", "│   "
		if last {
			connector, indent = "└── ", "    "
		}
		switch {
		case c.IsDir():
			if _, err := fmt.Fprintf(w, "%s%s%s/ (%d files)\n", prefix, connector, c.Name, c.Count); err != nil {
				return err
			}
		case opts.Files:
			if _, err := fmt.Fprintf(w, "%s%s%s\n", prefix, connector, c.Name); err != nil {
				return err
			}
		}
		if c.IsDir() && (opts.MaxDepth <= 0 || depth+1 < opts.MaxDepth) {
			if err := writeTree(w, c, prefix+indent, depth+1, opts); err != nil {
				return err
			}
		}
	}
	return nil
}
