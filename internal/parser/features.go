package parser

import (
	"sort"

	"github.com/yuin/goldmark/ast"
	east "github.com/yuin/goldmark/extension/ast"
)

// Feature tags reported in Stats.FeaturesUsed.
const (
	FeatureBlockquotes    = "blockquotes"
	FeatureCodeBlocks     = "code_blocks"
	FeatureEmphasis       = "emphasis"
	FeatureFrontMatter    = "frontmatter"
	FeatureHeadings       = "headings"
	FeatureHTML           = "html"
	FeatureImages         = "images"
	FeatureInlineCode     = "inline_code"
	FeatureLinks          = "links"
	FeatureLists          = "lists"
	FeatureOrderedLists   = "ordered_lists"
	FeatureStrikethrough  = "strikethrough"
	FeatureStrong         = "strong"
	FeatureTables         = "tables"
	FeatureTaskLists      = "task_lists"
	FeatureThematicBreaks = "thematic_breaks"
)

// detectFeatures walks the whole document and collects the Markdown
// constructs it uses. Duplicates are removed by sortedFeatures.
func detectFeatures(doc ast.Node) []string {
	var found []string
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n.Kind() {
		case ast.KindHeading:
			found = append(found, FeatureHeadings)
		case ast.KindList:
			if n.(*ast.List).IsOrdered() {
				found = append(found, FeatureOrderedLists)
			} else {
				found = append(found, FeatureLists)
			}
		case ast.KindBlockquote:
			found = append(found, FeatureBlockquotes)
		case ast.KindFencedCodeBlock, ast.KindCodeBlock:
			found = append(found, FeatureCodeBlocks)
		case ast.KindCodeSpan:
			found = append(found, FeatureInlineCode)
		case ast.KindEmphasis:
			if n.(*ast.Emphasis).Level >= 2 {
				found = append(found, FeatureStrong)
			} else {
				found = append(found, FeatureEmphasis)
			}
		case ast.KindLink, ast.KindAutoLink:
			found = append(found, FeatureLinks)
		case ast.KindImage:
			found = append(found, FeatureImages)
		case ast.KindHTMLBlock, ast.KindRawHTML:
			found = append(found, FeatureHTML)
		case ast.KindThematicBreak:
			found = append(found, FeatureThematicBreaks)
		case east.KindTable:
			found = append(found, FeatureTables)
		case east.KindStrikethrough:
			found = append(found, FeatureStrikethrough)
		case east.KindTaskCheckBox:
			found = append(found, FeatureTaskLists)
		}
		return ast.WalkContinue, nil
	})
	return found
}

func sortedFeatures(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, f := range in {
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	sort.Strings(out)
	return out
}
