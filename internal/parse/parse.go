// Package parse extracts @-references from markdown documents using
// tree-sitter.
package parse

import (
	"context"
	"regexp"
	"sort"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	markdown "github.com/smacker/go-tree-sitter/markdown/tree-sitter-markdown"
)

// referenceRe matches "@path.md" references. The path must begin with a
// relative marker, a home marker or one of the project-relative prefixes the
// documentation conventions recognise.
var referenceRe = regexp.MustCompile(
	`@((?:\.\.?/|~/|\.claude/|docs/|planning|todo|workbook|event-stream)[^\s)>\]]*\.md)`)

// fenceRe matches closed triple-backtick spans, including inline ones that the
// block grammar leaves inside paragraphs.
var fenceRe = regexp.MustCompile("(?s)```.*?```")

const codeBlockQuery = `(fenced_code_block) @code`

var (
	queryOnce sync.Once
	codeQuery *sitter.Query
	queryErr  error
)

func getCodeQuery() (*sitter.Query, error) {
	queryOnce.Do(func() {
		codeQuery, queryErr = sitter.NewQuery([]byte(codeBlockQuery), markdown.GetLanguage())
	})
	return codeQuery, queryErr
}

// Parser finds references in markdown. It is not safe for concurrent use.
type Parser struct {
	parser *sitter.Parser
}

// NewParser returns a Parser configured for the markdown block grammar.
func NewParser() *Parser {
	p := sitter.NewParser()
	p.SetLanguage(markdown.GetLanguage())
	return &Parser{parser: p}
}

// Close releases the underlying tree-sitter parser.
func (p *Parser) Close() {
	p.parser.Close()
}

// References returns the distinct references in source, in order of first
// appearance, ignoring anything inside closed fenced code blocks or inline
// triple-backtick spans. An unclosed fence hides nothing.
func (p *Parser) References(ctx context.Context, source []byte) []string {
	text := p.stripCode(ctx, source)

	var refs []string
	seen := make(map[string]struct{})
	for _, m := range referenceRe.FindAllSubmatch(text, -1) {
		ref := string(m[1])
		if _, dup := seen[ref]; dup {
			continue
		}
		seen[ref] = struct{}{}
		refs = append(refs, ref)
	}
	return refs
}

type span struct{ start, end uint32 }

// stripCode replaces every closed fenced code block, then every remaining
// triple-backtick span, with a newline so that text on either side of a block
// is never joined into a reference.
func (p *Parser) stripCode(ctx context.Context, source []byte) []byte {
	spans, ok := p.codeSpans(ctx, source)
	if ok && len(spans) > 0 {
		source = cut(source, spans)
	}
	return fenceRe.ReplaceAll(source, []byte("\n"))
}

func cut(source []byte, spans []span) []byte {
	out := make([]byte, 0, len(source))
	var pos uint32
	for _, s := range spans {
		if s.start < pos {
			continue
		}
		out = append(out, source[pos:s.start]...)
		out = append(out, '\n')
		pos = s.end
	}
	return append(out, source[pos:]...)
}

func (p *Parser) codeSpans(ctx context.Context, source []byte) ([]span, bool) {
	if len(source) == 0 {
		return nil, true
	}
	query, err := getCodeQuery()
	if err != nil {
		return nil, false
	}
	tree, err := p.parser.ParseCtx(ctx, nil, source)
	if err != nil || tree == nil {
		return nil, false
	}
	defer tree.Close()

	qc := sitter.NewQueryCursor()
	defer qc.Close()
	qc.Exec(query, tree.RootNode())

	var spans []span
	for {
		match, ok := qc.NextMatch()
		if !ok {
			break
		}
		for _, c := range match.Captures {
			if !closedFence(c.Node) {
				continue
			}
			end := c.Node.EndByte()
			if end > uint32(len(source)) {
				end = uint32(len(source))
			}
			spans = append(spans, span{c.Node.StartByte(), end})
		}
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })
	return spans, true
}

// closedFence reports whether a fenced_code_block node has both its opening
// and closing delimiter. The grammar extends an unclosed fence to the end of
// the document.
func closedFence(n *sitter.Node) bool {
	delims := 0
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if n.NamedChild(i).Type() == "fenced_code_block_delimiter" {
			delims++
		}
	}
	return delims >= 2
}
