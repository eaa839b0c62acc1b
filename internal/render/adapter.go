package render

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/dgallion1/mindmapper/internal/apperr"
)

const DefaultTimeout = 30 * time.Second

// Result is one successful render.
type Result struct {
	SVG        string        `json:"-"`
	ColorsUsed []string      `json:"colors_used"`
	Theme      string        `json:"theme"`
	Source     PaletteSource `json:"palette_source"`
	Duration   time.Duration `json:"-"`
}

// Adapter validates styling input, calls the engine under a deadline and
// checks what comes back.
type Adapter struct {
	engine  Engine
	timeout time.Duration
	stats   *Stats
	log     *slog.Logger
}

// AdapterOption configures an Adapter.
type AdapterOption func(*Adapter)

func WithTimeout(d time.Duration) AdapterOption {
	return func(a *Adapter) {
		if d > 0 {
			a.timeout = d
		}
	}
}

func WithStats(s *Stats) AdapterOption {
	return func(a *Adapter) { a.stats = s }
}

func WithLogger(l *slog.Logger) AdapterOption {
	return func(a *Adapter) { a.log = l }
}

func NewAdapter(engine Engine, opts ...AdapterOption) *Adapter {
	a := &Adapter{
		engine:  engine,
		timeout: DefaultTimeout,
		stats:   NewStats(time.Hour),
		log:     slog.Default(),
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Stats returns the latency tracker.
func (a *Adapter) Stats() *Stats { return a.stats }

// Render draws markdown with the chosen theme and colors. Invalid styling
// input fails before the engine is called.
func (a *Adapter) Render(ctx context.Context, markdown, theme string, colors []string) (Result, error) {
	d, err := Decide(theme, colors)
	if err != nil {
		return Result{}, err
	}
	return a.RenderDecision(ctx, markdown, d, "")
}

// RenderDecision renders with an already validated decision.
func (a *Adapter) RenderDecision(ctx context.Context, markdown string, d Decision, title string) (Result, error) {
	opts := OptionsFor(d)
	opts.Title = title

	callCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	start := time.Now()
	svg, err := a.transform(callCtx, markdown, opts)
	elapsed := time.Since(start)

	if err == nil {
		err = checkSVG(svg)
	}
	a.stats.Record(elapsed, err != nil)

	if err != nil {
		a.log.Warn("render failed",
			"engine", a.engine.Name(),
			"duration_ms", elapsed.Milliseconds(),
			"error", err,
		)
		switch {
		case errors.Is(callCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil:
			return Result{}, apperr.Render(err, "RENDER_TIMEOUT",
				fmt.Sprintf("render engine %s exceeded %s", a.engine.Name(), a.timeout))
		case ctx.Err() != nil:
			return Result{}, apperr.Render(ctx.Err(), "RENDER_CANCELLED", "render cancelled")
		case apperr.Code(err) == "INVALID_ENGINE_OUTPUT":
			return Result{}, err
		default:
			return Result{}, apperr.Render(err, "RENDER_FAILED",
				fmt.Sprintf("render engine %s failed", a.engine.Name()))
		}
	}

	a.log.Debug("rendered",
		"engine", a.engine.Name(),
		"theme", d.Theme.Name,
		"palette_source", d.Source,
		"duration_ms", elapsed.Milliseconds(),
	)
	return Result{
		SVG:        svg,
		ColorsUsed: opts.Palette,
		Theme:      d.Theme.Name,
		Source:     d.Source,
		Duration:   elapsed,
	}, nil
}

type outcome struct {
	svg   string
	err   error
	panic any
}

// transform runs the engine on its own goroutine and stops waiting once ctx
// is done, even if the engine never returns. Engine panics resurface on the
// caller's goroutine.
func (a *Adapter) transform(ctx context.Context, markdown string, opts Options) (string, error) {
	done := make(chan outcome, 1)
	go func() {
		var o outcome
		defer func() {
			if r := recover(); r != nil {
				o.panic = r
			}
			done <- o
		}()
		o.svg, o.err = a.engine.Transform(ctx, markdown, opts)
	}()

	select {
	case o := <-done:
		if o.panic != nil {
			panic(o.panic)
		}
		return o.svg, o.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// checkSVG requires an <svg> element at the top of the engine output.
func checkSVG(out string) error {
	nodes, err := html.ParseFragment(strings.NewReader(out), bodyContext())
	if err == nil {
		for _, n := range nodes {
			if n.Type == html.ElementNode && n.DataAtom == atom.Svg {
				return nil
			}
		}
	}
	return apperr.Render(err, "INVALID_ENGINE_OUTPUT", "render engine returned no <svg> element")
}

func bodyContext() *html.Node {
	return &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
}
