// Package index loads PROJECT_INDEX.json documents and owns the derived
// graphs built from them for the lifetime of one invocation.
package index

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/phobologic/project-intel/internal/exclude"
	"github.com/phobologic/project-intel/internal/graph"
	"github.com/phobologic/project-intel/internal/model"
)

// DefaultName is the index file name looked for in the project root.
const DefaultName = "PROJECT_INDEX.json"

var (
	// ErrNotFound means the index file does not exist.
	ErrNotFound = errors.New("index not found")
	// ErrInvalidFormat means the index file is not a structurally valid
	// index document.
	ErrInvalidFormat = errors.New("invalid index format")
)

// Load reads and validates the index at path.
func Load(path string) (*model.Index, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s\n\n"+
			"Generate the index first, e.g. with the /index slash command or your\n"+
			"project's index generation script. The file belongs in the project root.",
			ErrNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var idx model.Index
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, fmt.Errorf("%w: %s: %v\n\n"+
			"The file appears to be corrupted. Regenerate it with /index or your\n"+
			"index generation script.",
			ErrInvalidFormat, path, err)
	}
	return &idx, nil
}

type entry struct {
	idx    *model.Index
	graphs map[uint64]*graph.Graph
}

// Store caches loaded documents by absolute path and their derived graphs by
// the exclusion filter's content key. It is not safe for concurrent use.
type Store struct {
	logger  *slog.Logger
	entries map[string]*entry
}

// NewStore returns an empty store. A nil logger discards output.
func NewStore(logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Store{logger: logger, entries: make(map[string]*entry)}
}

// Load returns the document at path, reading it only on first use.
func (s *Store) Load(path string) (*model.Index, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", path, err)
	}
	if e, ok := s.entries[abs]; ok {
		s.logger.Debug("index cache hit", "path", abs)
		return e.idx, nil
	}
	idx, err := Load(abs)
	if err != nil {
		return nil, err
	}
	if idx.SkippedEdges > 0 {
		s.logger.Debug("skipped malformed call edges", "path", abs, "count", idx.SkippedEdges)
	}
	s.logger.Debug("index loaded", "path", abs,
		"files", len(idx.Files), "docs", len(idx.Docs), "edges", len(idx.Calls))
	s.entries[abs] = &entry{idx: idx, graphs: make(map[uint64]*graph.Graph)}
	return idx, nil
}

// Graph returns the derived graph of the document at path under filter,
// building it on first use for that pattern list.
func (s *Store) Graph(path string, filter *exclude.Filter) (*graph.Graph, error) {
	idx, err := s.Load(path)
	if err != nil {
		return nil, err
	}
	abs, _ := filepath.Abs(path)
	e := s.entries[abs]

	key := filter.Key()
	if g, ok := e.graphs[key]; ok {
		s.logger.Debug("graph cache hit", "path", abs, "key", key)
		return g, nil
	}
	g := graph.Derive(idx, filter)
	e.graphs[key] = g
	s.logger.Debug("graph derived", "path", abs, "key", key,
		"symbols", g.SymbolCount(), "callers", g.CallerCount())
	return g, nil
}
