package parser

import (
	"bytes"
	"fmt"

	"github.com/adrg/frontmatter"
)

type frontMatter struct {
	Title string
	Found bool
}

// splitFrontMatter strips a leading YAML (---) or TOML (+++) block. The block
// counts only when it decodes to a non-empty mapping; anything else, such as
// headings between two thematic breaks, stays Markdown.
func splitFrontMatter(src []byte) ([]byte, frontMatter) {
	if !bytes.HasPrefix(src, []byte("---")) && !bytes.HasPrefix(src, []byte("+++")) {
		return src, frontMatter{}
	}
	var fields map[string]any
	rest, err := frontmatter.MustParse(bytes.NewReader(src), &fields)
	if err != nil || len(fields) == 0 {
		return src, frontMatter{}
	}

	fm := frontMatter{Found: true}
	switch t := fields["title"].(type) {
	case nil:
	case string:
		fm.Title = t
	default:
		fm.Title = fmt.Sprint(t)
	}
	return rest, fm
}
