// Package discover locates the project root and the documentation entry points
// of a repository.
package discover

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"
)

// IndexName is the index file that marks a project root.
const IndexName = "PROJECT_INDEX.json"

// ProjectRoot walks up from start to the nearest directory holding IndexName.
// If none is found, start is returned and the caller reports the missing
// index from there.
func ProjectRoot(start string) string {
	start, err := filepath.Abs(start)
	if err != nil {
		return start
	}
	for dir := start; ; {
		if exists(filepath.Join(dir, IndexName)) {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return start
		}
		dir = parent
	}
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Kind names a family of documentation entry points.
type Kind string

const (
	Memory   Kind = "memory"
	Skills   Kind = "skills"
	Commands Kind = "commands"
	Agents   Kind = "agents"
)

// Kinds lists every supported Kind.
var Kinds = []Kind{Memory, Skills, Commands, Agents}

// ParseKind validates a kind name.
func ParseKind(s string) (Kind, bool) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, true
		}
	}
	return "", false
}

// Document is a discovered entry-point document.
type Document struct {
	Name string // skill, command or agent name; "CLAUDE.md" for memory
	Path string // absolute
}

// ErrMissing reports that the location a Kind is read from does not exist.
type ErrMissing struct {
	Path string
}

func (e *ErrMissing) Error() string {
	return e.Path + " not found"
}

// Components returns the entry-point documents of kind under root, sorted by
// name. Entries ignored by the project's .gitignore are skipped.
func Components(root string, kind Kind) ([]Document, error) {
	gi := loadGitignore(root)

	switch kind {
	case Memory:
		path := filepath.Join(root, "CLAUDE.md")
		if !exists(path) {
			return nil, &ErrMissing{Path: "CLAUDE.md"}
		}
		return []Document{{Name: "CLAUDE.md", Path: path}}, nil

	case Skills:
		dir := filepath.Join(root, ".claude", "skills")
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, &ErrMissing{Path: ".claude/skills directory"}
		}
		var docs []Document
		for _, e := range entries {
			if !e.IsDir() {
				continue
			}
			path := filepath.Join(dir, e.Name(), "SKILL.md")
			if !exists(path) || ignored(gi, root, path) {
				continue
			}
			docs = append(docs, Document{Name: e.Name(), Path: path})
		}
		return sorted(docs), nil

	case Commands, Agents:
		rel := ".claude/" + string(kind)
		dir := filepath.Join(root, ".claude", string(kind))
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, &ErrMissing{Path: rel + " directory"}
		}
		var docs []Document
		for _, e := range entries {
			if e.IsDir() || !strings.HasSuffix(e.Name(), ".md") {
				continue
			}
			path := filepath.Join(dir, e.Name())
			if ignored(gi, root, path) {
				continue
			}
			docs = append(docs, Document{Name: strings.TrimSuffix(e.Name(), ".md"), Path: path})
		}
		return sorted(docs), nil
	}
	return nil, &ErrMissing{Path: string(kind)}
}

func sorted(docs []Document) []Document {
	sort.Slice(docs, func(i, j int) bool { return docs[i].Name < docs[j].Name })
	return docs
}

func ignored(gi *ignore.GitIgnore, root, path string) bool {
	if gi == nil {
		return false
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return gi.MatchesPath(filepath.ToSlash(rel))
}

func loadGitignore(root string) *ignore.GitIgnore {
	gi, err := ignore.CompileIgnoreFile(filepath.Join(root, ".gitignore"))
	if err != nil {
		return nil
	}
	return gi
}
