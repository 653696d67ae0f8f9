package importmap

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phobologic/project-intel/internal/discover"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func newMapper(t *testing.T, root string) *Mapper {
	t.Helper()
	m := New(root, nil)
	m.Home = filepath.Join(root, "home")
	t.Cleanup(m.Close)
	return m
}

func kinds(nodes []*Node) []Kind {
	out := make([]Kind, len(nodes))
	for i, n := range nodes {
		out[i] = n.Kind
	}
	return out
}

func TestMapCircular(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "docs/a.md", "see @docs/b.md\n")
	writeFile(t, dir, "docs/b.md", "back to @docs/a.md\n")

	m := newMapper(t, dir)
	root := m.Map(context.Background(), filepath.Join(dir, "docs", "a.md"))

	assert.Equal(t, Document, root.Kind)
	assert.Equal(t, "docs/a.md", root.File)
	assert.Equal(t, 0, root.Depth)
	require.Len(t, root.Children, 1)

	b := root.Children[0]
	assert.Equal(t, Document, b.Kind)
	assert.Equal(t, "docs/b.md", b.File)
	assert.Equal(t, 1, b.Depth)
	require.Len(t, b.Children, 1)

	back := b.Children[0]
	assert.Equal(t, Circular, back.Kind)
	assert.Equal(t, "docs/a.md", back.File)
	assert.Equal(t, 2, back.Depth)
	assert.Empty(t, back.Children)

	s := Summarize(root)
	assert.Equal(t, 3, s.TotalFiles)
	assert.Equal(t, 1, s.CircularReferences)
	assert.Equal(t, 2, s.MaxDepth)
}

func TestMapSelfReference(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "docs/self.md", "@docs/self.md and again @./self.md\n")

	m := newMapper(t, dir)
	root := m.Map(context.Background(), filepath.Join(dir, "docs", "self.md"))

	require.Len(t, root.Children, 2)
	assert.Equal(t, []Kind{Circular, Circular}, kinds(root.Children))
	assert.Equal(t, 2, Summarize(root).CircularReferences)
}

func TestMapMissingAndExternal(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "CLAUDE.md", "@docs/gone.md @~/.claude/present.md @~/.claude/absent.md\n")
	writeFile(t, dir, "home/.claude/present.md", "@docs/never-followed.md\n")

	m := newMapper(t, dir)
	root := m.Map(context.Background(), filepath.Join(dir, "CLAUDE.md"))

	require.Len(t, root.Children, 3)
	assert.Equal(t, []Kind{Missing, External, External}, kinds(root.Children))
	assert.Equal(t, "docs/gone.md", root.Children[0].File)
	assert.False(t, root.Children[0].Exists)
	assert.True(t, root.Children[1].Exists)
	assert.Empty(t, root.Children[1].Children)
	assert.False(t, root.Children[2].Exists)

	s := Summarize(root)
	assert.Equal(t, 4, s.TotalFiles)
	assert.Equal(t, 2, s.InternalFiles)
	assert.Equal(t, 2, s.ExternalFiles)
	assert.Equal(t, 1, s.MissingFiles)
}

func TestMapMissingRoot(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	m := newMapper(t, dir)
	root := m.Map(context.Background(), filepath.Join(dir, "nope.md"))

	assert.Equal(t, Missing, root.Kind)
	assert.Equal(t, 0, root.Depth)
	assert.Equal(t, 1, Summarize(root).MissingFiles)
}

func TestMapSiblingsShareDocument(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "docs/root.md", "@docs/left.md @docs/right.md\n")
	writeFile(t, dir, "docs/left.md", "@docs/shared.md\n")
	writeFile(t, dir, "docs/right.md", "@docs/shared.md\n")
	writeFile(t, dir, "docs/shared.md", "leaf\n")

	m := newMapper(t, dir)
	root := m.Map(context.Background(), filepath.Join(dir, "docs", "root.md"))

	require.Len(t, root.Children, 2)
	for _, side := range root.Children {
		require.Len(t, side.Children, 1)
		assert.Equal(t, Document, side.Children[0].Kind, "a document on a sibling branch is not circular")
		assert.Equal(t, int64(len("leaf\n")), side.Children[0].Size)
	}
	s := Summarize(root)
	assert.Equal(t, 0, s.CircularReferences)
	assert.Equal(t, 5, s.TotalFiles)
}

func TestMapRelativeResolution(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "docs/guide/index.md", "@./part.md @../top.md\n")
	writeFile(t, dir, "docs/guide/part.md", "")
	writeFile(t, dir, "docs/top.md", "")

	m := newMapper(t, dir)
	root := m.Map(context.Background(), filepath.Join(dir, "docs", "guide", "index.md"))

	require.Len(t, root.Children, 2)
	assert.Equal(t, "docs/guide/part.md", root.Children[0].File)
	assert.Equal(t, "docs/top.md", root.Children[1].File)
	assert.Equal(t, []Kind{Document, Document}, kinds(root.Children))
}

func TestMapIgnoresFencedCode(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "CLAUDE.md", "```\n@docs/example.md\n```\n")

	m := newMapper(t, dir)
	root := m.Map(context.Background(), filepath.Join(dir, "CLAUDE.md"))
	assert.Empty(t, root.Children)
}

func TestMapComponent(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, ".claude/commands/ship.md", "@docs/release.md\n")
	writeFile(t, dir, ".claude/commands/check.md", "plain\n")
	writeFile(t, dir, "docs/release.md", "steps\n")

	m := newMapper(t, dir)
	cm, err := m.MapComponent(context.Background(), discover.Commands)
	require.NoError(t, err)

	require.Len(t, cm.Entries, 2)
	assert.Equal(t, "check", cm.Entries[0].Name)
	assert.Equal(t, "ship", cm.Entries[1].Name)
	assert.Equal(t, 3, cm.Summary.TotalFiles)
	assert.Equal(t, 1, cm.Summary.MaxDepth)

	_, err = m.MapComponent(context.Background(), discover.Agents)
	assert.Error(t, err)
}
