package render

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/dgallion1/mindmapper/internal/apperr"
)

const pageStyle = `body{margin:0;font-family:system-ui,-apple-system,"Segoe UI",sans-serif;background:#fafafa;color:#222}
header{padding:12px 20px;border-bottom:1px solid #ddd}
header h1{margin:0;font-size:18px}
.mindmap{overflow:auto;padding:16px}
.mindmap svg{display:block;max-width:none}
details{margin:16px 20px;padding:8px 12px;border:1px solid #ddd;background:#fff}
details pre{overflow:auto}`

var sourceRenderer = goldmark.New(goldmark.WithExtensions(extension.GFM))

// BuildHTML assembles a standalone page embedding svg, with the Markdown
// source rendered in a collapsible section below it.
func BuildHTML(title, svg, markdown string) ([]byte, error) {
	if strings.TrimSpace(title) == "" {
		title = "Mind map"
	}

	var md bytes.Buffer
	if err := sourceRenderer.Convert([]byte(markdown), &md); err != nil {
		return nil, apperr.Render(err, "HTML_BUILD_FAILED", "render markdown source")
	}
	svgNodes, err := html.ParseFragment(strings.NewReader(svg), bodyContext())
	if err != nil {
		return nil, apperr.Render(err, "HTML_BUILD_FAILED", "parse svg")
	}
	sourceNodes, err := html.ParseFragment(&md, bodyContext())
	if err != nil {
		return nil, apperr.Render(err, "HTML_BUILD_FAILED", "parse markdown source")
	}

	head := elem(atom.Head,
		withAttr(elem(atom.Meta), "charset", "utf-8"),
		withAttr(withAttr(elem(atom.Meta), "name", "viewport"), "content", "width=device-width, initial-scale=1"),
		elem(atom.Title, text(title)),
		elem(atom.Style, text(pageStyle)),
	)
	body := elem(atom.Body,
		elem(atom.Header, elem(atom.H1, text(title))),
		withAttr(elem(atom.Main, svgNodes...), "class", "mindmap"),
		elem(atom.Details,
			elem(atom.Summary, text("Markdown source")),
			elem(atom.Div, sourceNodes...),
			elem(atom.Pre, elem(atom.Code, text(markdown))),
		),
	)

	doc := &html.Node{Type: html.DocumentNode}
	doc.AppendChild(&html.Node{Type: html.DoctypeNode, Data: "html"})
	doc.AppendChild(withAttr(elem(atom.Html, head, body), "lang", "en"))

	var out bytes.Buffer
	if err := html.Render(&out, doc); err != nil {
		return nil, apperr.Render(err, "HTML_BUILD_FAILED", "render page")
	}
	return out.Bytes(), nil
}

func elem(a atom.Atom, children ...*html.Node) *html.Node {
	n := &html.Node{Type: html.ElementNode, Data: a.String(), DataAtom: a}
	for _, c := range children {
		if c.Parent != nil {
			c.Parent.RemoveChild(c)
		}
		n.AppendChild(c)
	}
	return n
}

func withAttr(n *html.Node, key, val string) *html.Node {
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
	return n
}

func text(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}
