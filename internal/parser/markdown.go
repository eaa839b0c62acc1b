package parser

import (
	"bytes"
	"io"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"

	"github.com/dgallion1/mindmapper/internal/apperr"
	"github.com/dgallion1/mindmapper/internal/doctree"
)

// MarkdownParser extracts a heading/list tree from Markdown using goldmark.
// It holds no per-call state and is safe for concurrent use.
type MarkdownParser struct {
	limits Limits
	md     goldmark.Markdown
}

// NewMarkdownParser builds a parser enforcing the given limits. Zero fields
// fall back to the defaults.
func NewMarkdownParser(limits Limits) *MarkdownParser {
	return &MarkdownParser{
		limits: limits.withDefaults(),
		md:     goldmark.New(goldmark.WithExtensions(extension.GFM)),
	}
}

// Limits returns the ceilings this parser enforces.
func (p *MarkdownParser) Limits() Limits {
	return p.limits
}

// Parse reads a whole Markdown file and extracts its tree. The file ceiling
// applies.
func (p *MarkdownParser) Parse(r io.Reader, filename string) (*Result, error) {
	src, err := p.ReadSource(r, filename)
	if err != nil {
		return nil, err
	}
	return p.Extract(src)
}

// ReadSource reads at most one byte past the file ceiling from r, so an
// oversized file is rejected without being loaded.
func (p *MarkdownParser) ReadSource(r io.Reader, filename string) ([]byte, error) {
	src, err := io.ReadAll(io.LimitReader(r, p.limits.MaxFileBytes+1))
	if err != nil {
		return nil, apperr.FileSystem(err, "READ_FAILED", "read "+filename)
	}
	if err := p.limits.CheckFile(int64(len(src))); err != nil {
		return nil, err
	}
	return src, nil
}

// ExtractString extracts inline Markdown content. The inline ceiling applies.
func (p *MarkdownParser) ExtractString(content string) (*Result, error) {
	if err := p.limits.CheckInline(len(content)); err != nil {
		return nil, err
	}
	return p.Extract([]byte(content))
}

// Extract builds the tree and statistics for src. Identical input always
// yields an identical tree and identical statistics.
func (p *MarkdownParser) Extract(src []byte) (*Result, error) {
	if len(bytes.TrimSpace(src)) == 0 {
		return nil, apperr.Validation("EMPTY_CONTENT", "markdown content is empty")
	}

	body, fm := splitFrontMatter(src)
	doc := p.md.Parser().Parse(text.NewReader(body))

	tree := doctree.NewTree()
	tree.Title = fm.Title

	b := &builder{src: body, root: tree.Root}
	b.stack = []*doctree.Node{tree.Root}
	b.last = tree.Root

	// Walk the top-level blocks. Headings open sections, lists hang below the
	// current section, everything else is body text for the last node.
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		switch node := n.(type) {
		case *ast.Heading:
			b.heading(node)
		case *ast.List:
			top := b.stack[len(b.stack)-1]
			b.list(node, top, top.Level+1)
		default:
			b.appendContent(b.last, blockText(n, body))
		}
	}

	nodes, depth := tree.Count()
	if err := p.limits.checkShape(nodes, depth); err != nil {
		return nil, err
	}

	features := detectFeatures(doc)
	if fm.Found {
		features = append(features, FeatureFrontMatter)
	}

	return &Result{
		Tree: tree,
		Stats: doctree.Stats{
			NodeCount:    nodes,
			MaxDepth:     depth,
			FeaturesUsed: sortedFeatures(features),
		},
	}, nil
}

type builder struct {
	src   []byte
	root  *doctree.Node
	stack []*doctree.Node // open headings; stack[0] is the root
	last  *doctree.Node   // nearest preceding node, receives body text
}

func (b *builder) heading(h *ast.Heading) {
	node := &doctree.Node{
		Text:     inlineText(h, b.src),
		Level:    h.Level,
		Children: []*doctree.Node{},
	}

	// Pop stack until we find a parent with lower level.
	for len(b.stack) > 1 && b.stack[len(b.stack)-1].Level >= h.Level {
		b.stack = b.stack[:len(b.stack)-1]
	}
	parent := b.stack[len(b.stack)-1]
	parent.Children = append(parent.Children, node)
	b.stack = append(b.stack, node)
	b.last = node
}

// list adds every item of l below parent at the given level. Nested lists go
// one level deeper.
func (b *builder) list(l *ast.List, parent *doctree.Node, level int) {
	for item := l.FirstChild(); item != nil; item = item.NextSibling() {
		node := &doctree.Node{Level: level, Children: []*doctree.Node{}}
		parent.Children = append(parent.Children, node)
		b.last = node

		titled := false
		for c := item.FirstChild(); c != nil; c = c.NextSibling() {
			switch c := c.(type) {
			case *ast.List:
				b.list(c, node, level+1)
			case *ast.TextBlock, *ast.Paragraph:
				if !titled {
					node.Text = inlineText(c, b.src)
					titled = true
					continue
				}
				b.appendContent(node, blockText(c, b.src))
			default:
				b.appendContent(node, blockText(c, b.src))
			}
		}
	}
}

func (b *builder) appendContent(n *doctree.Node, t string) {
	t = strings.TrimSpace(t)
	if t == "" {
		return
	}
	if n.Content != "" {
		n.Content += "\n\n" + t
	} else {
		n.Content = t
	}
}

// inlineText flattens the inline children of n into a single line.
func inlineText(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	writeInline(&buf, n, src)
	return strings.Join(strings.Fields(buf.String()), " ")
}

func writeInline(buf *bytes.Buffer, n ast.Node, src []byte) {
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch c := c.(type) {
		case *ast.Text:
			v := c.Value(src)
			if !c.IsRaw() {
				v = util.UnescapePunctuations(v)
			}
			buf.Write(v)
			if c.SoftLineBreak() || c.HardLineBreak() {
				buf.WriteByte(' ')
			}
		case *ast.String:
			buf.Write(c.Value)
		case *ast.AutoLink:
			buf.Write(c.Label(src))
		case *ast.RawHTML, *east.TaskCheckBox:
			// Markup only.
		default:
			writeInline(buf, c, src)
		}
	}
}

// blockText gets the readable text of a block node.
func blockText(n ast.Node, src []byte) string {
	switch node := n.(type) {
	case *ast.Paragraph, *ast.TextBlock, *ast.Heading:
		return inlineText(node, src)
	case *ast.FencedCodeBlock, *ast.CodeBlock, *ast.HTMLBlock:
		var buf bytes.Buffer
		lines := n.Lines()
		for i := 0; i < lines.Len(); i++ {
			line := lines.At(i)
			buf.Write(line.Value(src))
		}
		return strings.TrimRight(buf.String(), "\n")
	case *ast.ThematicBreak:
		return ""
	case *east.TableRow, *east.TableHeader:
		var cells []string
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			cells = append(cells, inlineText(c, src))
		}
		return strings.Join(cells, " | ")
	case *ast.ListItem:
		var parts []string
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			if t := blockText(c, src); t != "" {
				parts = append(parts, t)
			}
		}
		return "- " + strings.Join(parts, "\n  ")
	}

	// Containers: blockquotes, tables, nested lists.
	sep := "\n\n"
	if n.Kind() == east.KindTable || n.Kind() == ast.KindList {
		sep = "\n"
	}
	var parts []string
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t := blockText(c, src); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, sep)
}
