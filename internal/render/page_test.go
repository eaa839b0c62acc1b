package render_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/mindmapper/internal/render"
)

func TestBuildHTML(t *testing.T) {
	t.Parallel()
	md := "# Plan & Goals\n\n- ship <it>\n\n<script>alert(1)</script>\n"

	out, err := render.BuildHTML("Plan & Goals", okSVG, md)
	require.NoError(t, err)
	page := string(out)

	assert.True(t, strings.HasPrefix(page, "<!DOCTYPE html>"), page[:min(len(page), 40)])
	assert.Contains(t, page, "<title>Plan &amp; Goals</title>")
	assert.Contains(t, page, "<svg")
	assert.Contains(t, page, "<details>")
	assert.Contains(t, page, "<h1>Plan &amp; Goals</h1>")
	assert.Contains(t, page, "<li>ship")
	assert.NotContains(t, page, "<script>")
	assert.Contains(t, page, "&lt;script&gt;")
}

func TestBuildHTMLDefaultTitle(t *testing.T) {
	t.Parallel()
	out, err := render.BuildHTML("", okSVG, "# A")
	require.NoError(t, err)
	assert.Contains(t, string(out), "<title>Mind map</title>")
}
