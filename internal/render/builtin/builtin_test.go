package builtin

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/mindmapper/internal/parser"
	"github.com/dgallion1/mindmapper/internal/render"
)

func testOptions(palette ...string) render.Options {
	return render.Options{
		Palette:           palette,
		Background:        "#000000",
		Foreground:        "#ffffff",
		SpacingHorizontal: 80,
		SpacingVertical:   5,
		NodeMinHeight:     16,
	}
}

func TestTransformDrawsEveryNode(t *testing.T) {
	t.Parallel()
	e := New(parser.Limits{})

	svg, err := e.Transform(context.Background(), "# Root\n## Left\n## Right 1 < 2\n", testOptions("#aa0000", "#00aa00"))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(svg, "<svg"))
	assert.True(t, strings.HasSuffix(svg, "</svg>"))
	assert.Contains(t, svg, ">Root</text>")
	assert.Contains(t, svg, ">Left</text>")
	assert.Contains(t, svg, "Right 1 &lt; 2")
	assert.Contains(t, svg, `fill="#000000"`)
	assert.Contains(t, svg, "#00aa00")
}

func TestLayoutRootLabel(t *testing.T) {
	t.Parallel()
	p := parser.NewMarkdownParser(parser.Limits{})

	single, err := p.ExtractString("# Root\n## Child\n")
	require.NoError(t, err)
	d := layout(single.Tree.Root, "", testOptions("#111111"))
	require.Len(t, d.boxes, 2)
	assert.Equal(t, "Root", d.boxes[0].label)
	assert.Equal(t, "Child", d.boxes[1].label)

	titled, err := p.ExtractString("---\ntitle: Plan\n---\n# Q1\n# Q2\n")
	require.NoError(t, err)
	d = layout(titled.Tree.Root, titled.Tree.Title, testOptions("#111111"))
	require.Len(t, d.boxes, 3)
	assert.Equal(t, "Plan", d.boxes[0].label)
	assert.Equal(t, "Q1", d.boxes[1].label)
	assert.Equal(t, "Q2", d.boxes[2].label)
}

func TestTransformDeterministic(t *testing.T) {
	t.Parallel()
	e := New(parser.Limits{})
	md := "# A\n\n- x\n  - y\n- z\n\n## B\n"

	first, err := e.Transform(context.Background(), md, testOptions("#111111"))
	require.NoError(t, err)
	second, err := e.Transform(context.Background(), md, testOptions("#111111"))
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestLayoutColorFreeze(t *testing.T) {
	t.Parallel()
	res, err := parser.NewMarkdownParser(parser.Limits{}).ExtractString("# A\n## B\n### D\n## C\n")
	require.NoError(t, err)

	opts := testOptions("#111111", "#222222", "#333333")
	opts.ColorFreezeLevel = 1
	d := layout(res.Tree.Root, "", opts)

	colors := map[string]string{}
	for _, b := range d.boxes {
		colors[b.label] = b.color
	}
	assert.Equal(t, "#111111", colors["A"])
	assert.Equal(t, "#111111", colors["B"])
	assert.Equal(t, colors["B"], colors["D"], "below the freeze level children keep the branch color")
	assert.Equal(t, "#222222", colors["C"])
}

func TestLayoutCyclesWithoutFreeze(t *testing.T) {
	t.Parallel()
	res, err := parser.NewMarkdownParser(parser.Limits{}).ExtractString("# A\n## B\n### D\n## C\n")
	require.NoError(t, err)

	d := layout(res.Tree.Root, "", testOptions("#111111", "#222222", "#333333"))
	colors := map[string]string{}
	for _, b := range d.boxes {
		colors[b.label] = b.color
	}
	assert.Equal(t, "#222222", colors["D"])
	assert.Equal(t, "#333333", colors["C"])
}

func TestLayoutParentsCenteredOnChildren(t *testing.T) {
	t.Parallel()
	res, err := parser.NewMarkdownParser(parser.Limits{}).ExtractString("# A\n## B\n## C\n")
	require.NoError(t, err)

	d := layout(res.Tree.Root, "", testOptions("#111111"))
	require.Len(t, d.boxes, 3)
	a, b, c := d.boxes[0], d.boxes[1], d.boxes[2]
	assert.InDelta(t, (b.y+c.y)/2, a.y, 0.001)
	assert.Less(t, a.x, b.x)
	assert.Equal(t, b.x, c.x)
}

func TestTransformHonoursContext(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-ctx.Done()

	_, err := New(parser.Limits{}).Transform(ctx, "# A", testOptions())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestTransformThroughAdapter(t *testing.T) {
	t.Parallel()
	a := render.NewAdapter(New(parser.Limits{}))

	res, err := a.Render(context.Background(), "# AI\n## ML\n## NLP\n", "minimal", nil)
	require.NoError(t, err)
	assert.Contains(t, res.SVG, ">NLP</text>")
	assert.Equal(t, "minimal", res.Theme)
}
