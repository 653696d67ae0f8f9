// Package model defines the index document consumed by project-intel.
package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Symbol is a parsed symbol descriptor. The index encodes descriptors as
// "name:line:signature:returnType:callee1,callee2"; only the name is required.
type Symbol struct {
	Name       string   `json:"name"`
	Line       int      `json:"line"`
	Signature  string   `json:"signature"`
	ReturnType string   `json:"returnType"`
	Calls      []string `json:"calls"`
	Raw        string   `json:"-"`
}

// ParseSymbol splits a raw descriptor into its fields. Missing or malformed
// fields are left at their zero value.
func ParseSymbol(raw string) Symbol {
	parts := strings.Split(raw, ":")
	sym := Symbol{Name: parts[0], Raw: raw}
	if len(parts) > 1 {
		sym.Line, _ = strconv.Atoi(strings.TrimSpace(parts[1]))
	}
	if len(parts) > 2 {
		sym.Signature = parts[2]
	}
	if len(parts) > 3 {
		sym.ReturnType = parts[3]
	}
	if len(parts) > 4 {
		for _, c := range strings.Split(parts[4], ",") {
			if c != "" {
				sym.Calls = append(sym.Calls, c)
			}
		}
	}
	return sym
}

// FileEntry is one row of the index's "f" table: a source file, its language
// tag and the symbols it exports.
type FileEntry struct {
	Path     string
	Language string
	Symbols  []Symbol
}

// UnmarshalJSON decodes the [language, [descriptor, ...]] tuple form.
func (fe *FileEntry) UnmarshalJSON(data []byte) error {
	var tuple []json.RawMessage
	if err := json.Unmarshal(data, &tuple); err != nil {
		return fmt.Errorf("file entry is not an array: %w", err)
	}
	if len(tuple) > 0 {
		if err := json.Unmarshal(tuple[0], &fe.Language); err != nil {
			return fmt.Errorf("language tag: %w", err)
		}
	}
	if len(tuple) > 1 && !isNull(tuple[1]) {
		var raws []string
		if err := json.Unmarshal(tuple[1], &raws); err != nil {
			// A non-array symbol slot means "no symbols", matching how the
			// index generator writes files it only lists.
			var elems []json.RawMessage
			if json.Unmarshal(tuple[1], &elems) == nil {
				return fmt.Errorf("symbol descriptors: %w", err)
			}
			return nil
		}
		fe.Symbols = make([]Symbol, 0, len(raws))
		for _, raw := range raws {
			fe.Symbols = append(fe.Symbols, ParseSymbol(raw))
		}
	}
	return nil
}

// CallEdge is a directed "caller invokes callee" relationship. Both ends are
// bare symbol names: the index does not qualify them by file, so two files
// defining the same name share a single call-graph node.
type CallEdge struct {
	Caller string
	Callee string
}

// Doc is one row of the "d" table: a documentation file and its excerpt.
type Doc struct {
	Path  string
	Lines []string
}

// FileDeps is one row of the "deps" table.
type FileDeps struct {
	Path    string
	Modules []string
}

// Index is the decoded PROJECT_INDEX.json document. Object key order of the
// f, d and deps tables is preserved because query enumeration order depends
// on it.
type Index struct {
	Files []FileEntry
	Docs  []Doc
	Calls []CallEdge
	Deps  []FileDeps
	Stats json.RawMessage

	// SkippedEdges counts entries of "g" that were not [caller, callee]
	// string pairs.
	SkippedEdges int

	files map[string]int
	docs  map[string]int
}

// File returns the entry for path, if indexed.
func (ix *Index) File(path string) (*FileEntry, bool) {
	i, ok := ix.files[path]
	if !ok {
		return nil, false
	}
	return &ix.Files[i], true
}

// Doc returns the documentation excerpt for path, if indexed.
func (ix *Index) Doc(path string) ([]string, bool) {
	i, ok := ix.docs[path]
	if !ok {
		return nil, false
	}
	return ix.Docs[i].Lines, true
}

// Paths returns every file path followed by every doc path not already listed,
// in document order.
func (ix *Index) Paths() []string {
	paths := make([]string, 0, len(ix.Files)+len(ix.Docs))
	for i := range ix.Files {
		paths = append(paths, ix.Files[i].Path)
	}
	for i := range ix.Docs {
		if _, dup := ix.files[ix.Docs[i].Path]; !dup {
			paths = append(paths, ix.Docs[i].Path)
		}
	}
	return paths
}

// ErrMissingFiles is returned when the document has no "f" object.
var ErrMissingFiles = errors.New(`missing "f" table`)

type rawIndex struct {
	F     json.RawMessage `json:"f"`
	D     json.RawMessage `json:"d"`
	G     json.RawMessage `json:"g"`
	Deps  json.RawMessage `json:"deps"`
	Stats json.RawMessage `json:"stats"`
}

// UnmarshalJSON decodes and structurally validates an index document.
func (ix *Index) UnmarshalJSON(data []byte) error {
	var raw rawIndex
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if isNull(raw.F) {
		return ErrMissingFiles
	}

	*ix = Index{
		Stats: raw.Stats,
		files: make(map[string]int),
		docs:  make(map[string]int),
	}

	err := decodeObject(raw.F, func(key string, val json.RawMessage) error {
		var fe FileEntry
		if err := json.Unmarshal(val, &fe); err != nil {
			return fmt.Errorf("f[%q]: %w", key, err)
		}
		fe.Path = key
		if i, dup := ix.files[key]; dup {
			ix.Files[i] = fe
			return nil
		}
		ix.files[key] = len(ix.Files)
		ix.Files = append(ix.Files, fe)
		return nil
	})
	if err != nil {
		return fmt.Errorf(`"f": %w`, err)
	}

	if !isNull(raw.D) {
		err := decodeObject(raw.D, func(key string, val json.RawMessage) error {
			var lines []string
			if json.Unmarshal(val, &lines) != nil {
				return nil
			}
			if i, dup := ix.docs[key]; dup {
				ix.Docs[i].Lines = lines
				return nil
			}
			ix.docs[key] = len(ix.Docs)
			ix.Docs = append(ix.Docs, Doc{Path: key, Lines: lines})
			return nil
		})
		if err != nil {
			return fmt.Errorf(`"d": %w`, err)
		}
	}

	if !isNull(raw.G) {
		var edges []json.RawMessage
		if err := json.Unmarshal(raw.G, &edges); err != nil {
			return fmt.Errorf(`"g": %w`, err)
		}
		for _, e := range edges {
			edge, ok := decodeEdge(e)
			if !ok {
				ix.SkippedEdges++
				continue
			}
			ix.Calls = append(ix.Calls, edge)
		}
	}

	if !isNull(raw.Deps) {
		seen := make(map[string]int)
		err := decodeObject(raw.Deps, func(key string, val json.RawMessage) error {
			var items []json.RawMessage
			if json.Unmarshal(val, &items) != nil {
				return nil
			}
			modules := make([]string, 0, len(items))
			for _, item := range items {
				var mod string
				if json.Unmarshal(item, &mod) == nil {
					modules = append(modules, mod)
				}
			}
			if i, dup := seen[key]; dup {
				ix.Deps[i].Modules = modules
				return nil
			}
			seen[key] = len(ix.Deps)
			ix.Deps = append(ix.Deps, FileDeps{Path: key, Modules: modules})
			return nil
		})
		if err != nil {
			return fmt.Errorf(`"deps": %w`, err)
		}
	}

	return nil
}

func decodeEdge(data json.RawMessage) (CallEdge, bool) {
	var pair []json.RawMessage
	if json.Unmarshal(data, &pair) != nil || len(pair) < 2 {
		return CallEdge{}, false
	}
	var edge CallEdge
	if json.Unmarshal(pair[0], &edge.Caller) != nil || json.Unmarshal(pair[1], &edge.Callee) != nil {
		return CallEdge{}, false
	}
	return edge, true
}

// decodeObject walks a JSON object in document order.
func decodeObject(data json.RawMessage, fn func(key string, val json.RawMessage) error) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return errors.New("not an object")
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected token %v", tok)
		}
		var val json.RawMessage
		if err := dec.Decode(&val); err != nil {
			return fmt.Errorf("%q: %w", key, err)
		}
		if err := fn(key, val); err != nil {
			return err
		}
	}
	_, err = dec.Token()
	return err
}

func isNull(data json.RawMessage) bool {
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
