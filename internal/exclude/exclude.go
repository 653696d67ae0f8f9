// Package exclude decides which index paths are dropped before any derived
// structure is built.
package exclude

import (
	"bufio"
	"encoding/binary"
	"errors"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// DefaultPatterns are always applied ahead of the project's ignore rules.
var DefaultPatterns = []string{
	"project-intel",
	"project-intel.mjs",
	"project-intel.js",
	"**/archive/**",
	"**/archived/**",
	"**/.archive/**",
	"**/.archived/**",
	"Archive*.zip",
	"archive.zip",
	"node_modules/**",
	".next/**",
	".git/**",
	"coverage/**",
	".vercel/**",
	"*.tsbuildinfo",
	".DS_Store",
	"*.backup",
	"*.bak",
	"*.old",
	".backups/**",
}

type kind int

const (
	kindExact kind = iota
	kindDir
	kindDeepGlob
	kindGlob
)

type pattern struct {
	kind kind
	text string
	re   *regexp.Regexp
}

func compile(raw string) pattern {
	p := strings.TrimPrefix(raw, "/")
	switch {
	case strings.HasSuffix(p, "/"):
		return pattern{kind: kindDir, text: strings.TrimSuffix(p, "/")}
	case strings.Contains(p, "**"):
		return pattern{kind: kindDeepGlob, text: p, re: globRegexp(p)}
	case strings.Contains(p, "*"):
		return pattern{kind: kindGlob, text: p, re: globRegexp(p)}
	default:
		return pattern{kind: kindExact, text: p}
	}
}

// globRegexp translates a glob into an anchored expression. "**/" spans zero
// or more whole segments, any other "**" spans segments, and "*" stays inside
// one segment. Everything else is literal.
func globRegexp(glob string) *regexp.Regexp {
	var b strings.Builder
	b.WriteString("^")
	for i := 0; i < len(glob); {
		switch {
		case strings.HasPrefix(glob[i:], "**/"):
			b.WriteString("(?:.*/)?")
			i += 3
		case strings.HasPrefix(glob[i:], "**"):
			b.WriteString(".*")
			i += 2
		case glob[i] == '*':
			b.WriteString("[^/]*")
			i++
		default:
			b.WriteString(regexp.QuoteMeta(glob[i : i+1]))
			i++
		}
	}
	b.WriteString("$")
	return regexp.MustCompile(b.String())
}

func (p pattern) match(candidate string) bool {
	switch p.kind {
	case kindDir:
		return candidate == p.text ||
			strings.HasPrefix(candidate, p.text+"/") ||
			strings.Contains(candidate, "/"+p.text+"/")
	case kindDeepGlob:
		return p.re.MatchString(candidate)
	case kindGlob:
		return p.re.MatchString(candidate) || p.re.MatchString(path.Base(candidate))
	default:
		return candidate == p.text ||
			strings.HasSuffix(candidate, "/"+p.text) ||
			path.Base(candidate) == p.text
	}
}

// Filter is a compiled, ordered exclusion pattern list.
type Filter struct {
	raw      []string
	patterns []pattern
	key      uint64
}

// New compiles patterns in order.
func New(patterns []string) *Filter {
	f := &Filter{
		raw:      append([]string(nil), patterns...),
		patterns: make([]pattern, 0, len(patterns)),
	}
	h := xxhash.New()
	var n [8]byte
	for _, p := range patterns {
		f.patterns = append(f.patterns, compile(p))
		binary.LittleEndian.PutUint64(n[:], uint64(len(p)))
		_, _ = h.Write(n[:])
		_, _ = h.WriteString(p)
	}
	f.key = h.Sum64()
	return f
}

// Load builds the filter for a project: DefaultPatterns, then the non-blank,
// non-comment lines of <projectRoot>/.gitignore, then extra. A missing
// .gitignore is not an error.
func Load(projectRoot string, extra ...string) (*Filter, error) {
	patterns := append([]string(nil), DefaultPatterns...)
	lines, err := readIgnoreFile(filepath.Join(projectRoot, ".gitignore"))
	if err != nil {
		return nil, err
	}
	patterns = append(patterns, lines...)
	patterns = append(patterns, extra...)
	return New(patterns), nil
}

func readIgnoreFile(name string) ([]string, error) {
	file, err := os.Open(name)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	return lines, scanner.Err()
}

// Exclude reports whether any pattern matches path.
func (f *Filter) Exclude(path string) bool {
	if f == nil {
		return false
	}
	for i := range f.patterns {
		if f.patterns[i].match(path) {
			return true
		}
	}
	return false
}

// Patterns returns the pattern list in evaluation order.
func (f *Filter) Patterns() []string {
	if f == nil {
		return nil
	}
	return append([]string(nil), f.raw...)
}

// Key is a digest of the ordered pattern list. Filters built from equal lists
// share a key.
func (f *Filter) Key() uint64 {
	if f == nil {
		return New(nil).key
	}
	return f.key
}
