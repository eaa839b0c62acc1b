// Package builtin is a self-contained render engine that lays the extracted
// tree out left to right and writes plain SVG.
package builtin

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"

	"github.com/dgallion1/mindmapper/internal/doctree"
	"github.com/dgallion1/mindmapper/internal/parser"
	"github.com/dgallion1/mindmapper/internal/render"
)

const (
	charWidth = 7.2 // average glyph advance at 12px
	padX      = 8
	margin    = 20
	fontSize  = 12
	maxLabel  = 80
)

// Engine draws mind maps without any external process.
type Engine struct {
	parser *parser.MarkdownParser
}

func New(limits parser.Limits) *Engine {
	return &Engine{parser: parser.NewMarkdownParser(limits)}
}

func (e *Engine) Name() string { return "builtin" }

// Transform extracts the tree from markdown and draws it.
func (e *Engine) Transform(ctx context.Context, markdown string, opts render.Options) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	res, err := e.parser.Extract([]byte(markdown))
	if err != nil {
		return "", err
	}

	title := opts.Title
	if title == "" {
		title = res.Tree.Title
	}
	l := layout(res.Tree.Root, title, opts)

	if err := ctx.Err(); err != nil {
		return "", err
	}
	return l.svg(opts), nil
}

type box struct {
	label  string
	color  string
	depth  int
	x, y   float64 // left edge, vertical center
	width  float64
	parent *box
}

type drawing struct {
	boxes  []*box
	width  float64
	height float64
}

// layout assigns columns by depth and rows by leaf order. Each parent is
// centered on the span of its children.
func layout(root *doctree.Node, title string, opts render.Options) *drawing {
	palette := opts.Palette
	if len(palette) == 0 {
		palette = []string{"#999999"}
	}
	rowHeight := float64(max(opts.NodeMinHeight, fontSize+4) + opts.SpacingVertical*2)

	d := &drawing{}
	colWidth := map[int]float64{}
	next := 0 // palette cursor
	row := 0

	var place func(n *doctree.Node, depth int, parent *box) *box
	place = func(n *doctree.Node, depth int, parent *box) *box {
		b := &box{label: clip(n.Text), depth: depth, parent: parent}
		if n == root {
			b.label = clip(title)
		}
		switch {
		case parent == nil:
			b.color = palette[0]
		case opts.ColorFreezeLevel > 0 && depth > opts.ColorFreezeLevel:
			b.color = parent.color
		default:
			b.color = palette[next%len(palette)]
			next++
		}
		b.width = float64(utf8.RuneCountInString(b.label))*charWidth + 2*padX
		if b.width > colWidth[depth] {
			colWidth[depth] = b.width
		}
		d.boxes = append(d.boxes, b)

		var first, last *box
		for _, c := range n.Children {
			cb := place(c, depth+1, b)
			if first == nil {
				first = cb
			}
			last = cb
		}
		if first == nil {
			b.y = float64(margin) + rowHeight*(float64(row)+0.5)
			row++
		} else {
			b.y = (first.y + last.y) / 2
		}
		return b
	}

	// An untitled root over a single top-level node is drawn from that node.
	if title == "" && len(root.Children) == 1 {
		place(root.Children[0], 0, nil)
	} else {
		place(root, 0, nil)
	}

	colX := map[int]float64{}
	x := float64(margin)
	maxDepth := 0
	for _, b := range d.boxes {
		maxDepth = max(maxDepth, b.depth)
	}
	for depth := 0; depth <= maxDepth; depth++ {
		colX[depth] = x
		x += colWidth[depth] + float64(opts.SpacingHorizontal)
	}
	for _, b := range d.boxes {
		b.x = colX[b.depth]
	}

	d.width = x - float64(opts.SpacingHorizontal) + margin
	d.height = float64(margin)*2 + rowHeight*float64(max(row, 1))
	return d
}

func (d *drawing) svg(opts render.Options) string {
	bg := opts.Background
	if bg == "" {
		bg = "#ffffff"
	}
	fg := opts.Foreground
	if fg == "" {
		fg = "#333333"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, `<svg xmlns="http://www.w3.org/2000/svg" class="mindmap" width="%.0f" height="%.0f" viewBox="0 0 %.0f %.0f">`,
		d.width, d.height, d.width, d.height)
	fmt.Fprintf(&sb, `<rect width="100%%" height="100%%" fill="%s"/>`, html.EscapeString(bg))

	sb.WriteString(`<g class="links" fill="none" stroke-width="1.5">`)
	for _, b := range d.boxes {
		if b.parent == nil {
			continue
		}
		x1, y1 := b.parent.x+b.parent.width, b.parent.y+4
		x2, y2 := b.x, b.y+4
		mid := (x1 + x2) / 2
		fmt.Fprintf(&sb, `<path d="M%.1f,%.1f C%.1f,%.1f %.1f,%.1f %.1f,%.1f" stroke="%s"/>`,
			x1, y1, mid, y1, mid, y2, x2, y2, html.EscapeString(b.color))
	}
	sb.WriteString(`</g>`)

	fmt.Fprintf(&sb, `<g class="nodes" font-family="sans-serif" font-size="%d" fill="%s">`, fontSize, html.EscapeString(fg))
	for _, b := range d.boxes {
		fmt.Fprintf(&sb, `<g class="node" data-depth="%d">`, b.depth)
		fmt.Fprintf(&sb, `<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" stroke="%s" stroke-width="2"/>`,
			b.x, b.y+4, b.x+b.width, b.y+4, html.EscapeString(b.color))
		fmt.Fprintf(&sb, `<circle cx="%.1f" cy="%.1f" r="3" fill="%s"/>`,
			b.x+b.width, b.y+4, html.EscapeString(b.color))
		fmt.Fprintf(&sb, `<text x="%.1f" y="%.1f">%s</text>`, b.x+padX, b.y, html.EscapeString(b.label))
		sb.WriteString(`</g>`)
	}
	sb.WriteString(`</g></svg>`)
	return sb.String()
}

func clip(s string) string {
	if utf8.RuneCountInString(s) <= maxLabel {
		return s
	}
	r := []rune(s)
	return string(r[:maxLabel-1]) + "…"
}
