package search

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phobologic/project-intel/internal/exclude"
	"github.com/phobologic/project-intel/internal/graph"
	"github.com/phobologic/project-intel/internal/model"
)

const doc = `{
  "f": {
    "src/auth/login.ts": ["typescript", ["handleLogin:4", "validateToken:20"]],
    "src/auth/logout.ts": ["typescript", ["handleLogout:2"]],
    "src/ui/Button.tsx": ["tsx", ["Button:1"]],
    "node_modules/auth-lib/index.js": ["javascript", ["authLib:1"]]
  },
  "d": {
    "docs/auth.md": ["# Authentication", "Tokens expire after an hour."],
    "docs/ui.md": ["# UI kit"]
  },
  "g": [["handleLogin", "validateToken"], ["Button", "handleLogin"]]
}`

func load(t *testing.T) (*model.Index, *graph.Graph, *exclude.Filter) {
	t.Helper()
	var idx model.Index
	require.NoError(t, json.Unmarshal([]byte(doc), &idx))
	f := exclude.New(exclude.DefaultPatterns)
	return &idx, graph.Derive(&idx, f), f
}

func TestSearchFilesThenSymbols(t *testing.T) {
	t.Parallel()

	idx, g, f := load(t)
	got, err := Search(idx, g, f, "LOG", Options{})
	require.NoError(t, err)

	assert.Equal(t, []Result{
		{Type: "file", File: "src/auth/login.ts"},
		{Type: "file", File: "src/auth/logout.ts"},
		{Type: "symbol", Name: "handleLogin", Files: []string{"src/auth/login.ts"}},
		{Type: "symbol", Name: "handleLogout", Files: []string{"src/auth/logout.ts"}},
	}, got)
}

func TestSearchSkipsExcludedFiles(t *testing.T) {
	t.Parallel()

	idx, g, f := load(t)
	got, err := Search(idx, g, f, "auth-lib", Options{})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSearchLimit(t *testing.T) {
	t.Parallel()

	idx, g, f := load(t)
	got, err := Search(idx, g, f, "log", Options{Limit: 3})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "handleLogin", got[2].Name)
}

func TestSearchRegexAndGlob(t *testing.T) {
	t.Parallel()

	idx, g, f := load(t)
	got, err := Search(idx, g, f, `^handle`, Options{Regex: true})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "symbol", got[0].Type)

	got, err = Search(idx, g, f, "s", Options{Glob: "src/ui/**"})
	require.NoError(t, err)
	assert.Equal(t, Result{Type: "file", File: "src/ui/Button.tsx"}, got[0])
	for _, r := range got[1:] {
		assert.Equal(t, "symbol", r.Type)
	}

	_, err = Search(idx, g, f, "(", Options{Regex: true})
	assert.Error(t, err)
}

func TestInvestigate(t *testing.T) {
	t.Parallel()

	idx, g, f := load(t)
	got := Investigate(idx, g, f, []string{"login", "nothing-matches"}, 5)
	require.Len(t, got, 2)

	inv := got[0]
	assert.Equal(t, "login", inv.Term)
	require.Len(t, inv.Files, 1)
	assert.Equal(t, "src/auth/login.ts", inv.Files[0].File)
	assert.Equal(t, "typescript", inv.Files[0].Summary.Language)
	assert.Equal(t, []SymbolMatch{
		{Name: "handleLogin", Files: []string{"src/auth/login.ts"}, Callers: 1, Callees: 1},
	}, inv.Symbols)
	assert.Empty(t, inv.Docs)

	assert.Empty(t, got[1].Files)
	assert.Empty(t, got[1].Symbols)
	assert.Empty(t, got[1].Docs)
}

func TestDocs(t *testing.T) {
	t.Parallel()

	idx, _, _ := load(t)

	got := Docs(idx, "tokens", 10)
	require.Len(t, got, 1)
	assert.Equal(t, "docs/auth.md", got[0].File)
	assert.Equal(t, "# Authentication\nTokens expire after an hour.", got[0].Preview)

	assert.Len(t, Docs(idx, "docs/", 1), 1)
	assert.Empty(t, Docs(idx, "absent", 10))
}

func TestSuggest(t *testing.T) {
	t.Parallel()

	candidates := []string{"handleLogin", "handleLogout", "Button", "validateToken"}

	got := Suggest(candidates, "handleLogn", 3)
	require.NotEmpty(t, got)
	assert.Equal(t, "handleLogin", got[0])
	assert.NotContains(t, got, "Button")

	assert.Empty(t, Suggest(candidates, "zzz", 3))
	assert.Empty(t, Suggest(candidates, "handleLogn", 0))
	assert.Len(t, Suggest(candidates, "handleLog", 1), 1)
}
