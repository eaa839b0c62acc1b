// Package render turns Markdown into an SVG mind map through a pluggable
// engine and assembles the standalone HTML page.
package render

import "context"

// Options are the styling knobs handed to an engine.
type Options struct {
	Title             string   `json:"title,omitempty"`
	Palette           []string `json:"color"`
	ColorFreezeLevel  int      `json:"colorFreezeLevel"`
	Background        string   `json:"background"`
	Foreground        string   `json:"foreground"`
	SpacingHorizontal int      `json:"spacingHorizontal"`
	SpacingVertical   int      `json:"spacingVertical"`
	NodeMinHeight     int      `json:"nodeMinHeight"`
}

// OptionsFor derives engine options from a decision.
func OptionsFor(d Decision) Options {
	return Options{
		Palette:           append([]string(nil), d.Palette...),
		ColorFreezeLevel:  d.Theme.ColorFreezeLevel,
		Background:        d.Theme.Background,
		Foreground:        d.Theme.Foreground,
		SpacingHorizontal: d.Theme.SpacingHorizontal,
		SpacingVertical:   d.Theme.SpacingVertical,
		NodeMinHeight:     d.Theme.NodeMinHeight,
	}
}

// Engine draws Markdown as an SVG document. Implementations must return
// promptly once ctx is done.
type Engine interface {
	Name() string
	Transform(ctx context.Context, markdown string, opts Options) (string, error)
}
