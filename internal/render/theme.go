package render

import "sort"

// Theme fixes the palette and layout density handed to an engine.
type Theme struct {
	Name              string   `json:"name"`
	Description       string   `json:"description"`
	Palette           []string `json:"palette"`
	ColorFreezeLevel  int      `json:"color_freeze_level"`
	Background        string   `json:"background"`
	Foreground        string   `json:"foreground"`
	SpacingHorizontal int      `json:"spacing_horizontal"`
	SpacingVertical   int      `json:"spacing_vertical"`
	NodeMinHeight     int      `json:"node_min_height"`
}

const DefaultTheme = "default"

var themes = map[string]Theme{
	"default": {
		Name:        "default",
		Description: "Balanced palette on a light background",
		Palette: []string{
			"#1f77b4", "#ff7f0e", "#2ca02c", "#d62728", "#9467bd",
			"#8c564b", "#e377c2", "#7f7f7f", "#bcbd22", "#17becf",
		},
		ColorFreezeLevel:  0,
		Background:        "#ffffff",
		Foreground:        "#333333",
		SpacingHorizontal: 80,
		SpacingVertical:   5,
		NodeMinHeight:     16,
	},
	"dark": {
		Name:        "dark",
		Description: "Muted neon palette on a dark background",
		Palette: []string{
			"#4fc3f7", "#81c784", "#ffb74d", "#e57373", "#ba68c8", "#4db6ac",
		},
		ColorFreezeLevel:  0,
		Background:        "#1e1e1e",
		Foreground:        "#e0e0e0",
		SpacingHorizontal: 80,
		SpacingVertical:   5,
		NodeMinHeight:     16,
	},
	"colorful": {
		Name:        "colorful",
		Description: "Saturated palette, colors held per top-level branch",
		Palette: []string{
			"#ff595e", "#ffca3a", "#8ac926", "#1982c4", "#6a4c93", "#ff924c", "#52a675",
		},
		ColorFreezeLevel:  2,
		Background:        "#fffdf7",
		Foreground:        "#222222",
		SpacingHorizontal: 100,
		SpacingVertical:   10,
		NodeMinHeight:     20,
	},
	"minimal": {
		Name:              "minimal",
		Description:       "Grayscale with tight spacing",
		Palette:           []string{"#555555", "#888888", "#aaaaaa"},
		ColorFreezeLevel:  1,
		Background:        "#ffffff",
		Foreground:        "#111111",
		SpacingHorizontal: 60,
		SpacingVertical:   3,
		NodeMinHeight:     14,
	},
}

// LookupTheme returns a copy of the named theme.
func LookupTheme(name string) (Theme, bool) {
	t, ok := themes[name]
	if !ok {
		return Theme{}, false
	}
	t.Palette = append([]string(nil), t.Palette...)
	return t, true
}

// ThemeNames lists the fixed theme names in sorted order.
func ThemeNames() []string {
	names := make([]string, 0, len(themes))
	for n := range themes {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Themes returns every theme sorted by name.
func Themes() []Theme {
	out := make([]Theme, 0, len(themes))
	for _, n := range ThemeNames() {
		t, _ := LookupTheme(n)
		out = append(out, t)
	}
	return out
}
