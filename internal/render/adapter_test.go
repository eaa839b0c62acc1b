package render_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/mindmapper/internal/apperr"
	"github.com/dgallion1/mindmapper/internal/render"
)

const okSVG = `<svg xmlns="http://www.w3.org/2000/svg"><g></g></svg>`

type fakeEngine struct {
	mu    sync.Mutex
	calls int
	got   render.Options
	out   string
	err   error
	block bool
}

func (f *fakeEngine) Name() string { return "fake" }

func (f *fakeEngine) Transform(ctx context.Context, _ string, opts render.Options) (string, error) {
	f.mu.Lock()
	f.calls++
	f.got = opts
	f.mu.Unlock()
	if f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return f.out, f.err
}

func (f *fakeEngine) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestRenderDarkTheme(t *testing.T) {
	t.Parallel()
	eng := &fakeEngine{out: okSVG}
	a := render.NewAdapter(eng)

	res, err := a.Render(context.Background(), "# A", "dark", nil)
	require.NoError(t, err)

	dark, ok := render.LookupTheme("dark")
	require.True(t, ok)
	assert.Equal(t, dark.Palette, res.ColorsUsed)
	assert.Equal(t, "dark", res.Theme)
	assert.Equal(t, render.SourceTheme, res.Source)
	assert.Equal(t, dark.Background, eng.got.Background)
	assert.Equal(t, okSVG, res.SVG)
}

func TestRenderDefaultsToDefaultTheme(t *testing.T) {
	t.Parallel()
	res, err := render.NewAdapter(&fakeEngine{out: okSVG}).Render(context.Background(), "# A", "", nil)
	require.NoError(t, err)

	def, _ := render.LookupTheme(render.DefaultTheme)
	assert.Equal(t, def.Palette, res.ColorsUsed)
	assert.Equal(t, render.SourceTheme, res.Source)
}

func TestRenderExplicitColorsWin(t *testing.T) {
	t.Parallel()
	colors := []string{"#FF0000", "#00ff00", "#0000FF"}

	eng := &fakeEngine{out: okSVG}
	res, err := render.NewAdapter(eng).Render(context.Background(), "# A", "colorful", colors)
	require.NoError(t, err)
	assert.Equal(t, colors, res.ColorsUsed)
	assert.Equal(t, colors, eng.got.Palette)
	assert.Equal(t, render.SourceMixed, res.Source)

	colorful, _ := render.LookupTheme("colorful")
	assert.Equal(t, colorful.SpacingHorizontal, eng.got.SpacingHorizontal)

	res, err = render.NewAdapter(&fakeEngine{out: okSVG}).Render(context.Background(), "# A", "", colors)
	require.NoError(t, err)
	assert.Equal(t, render.SourceCustom, res.Source)
	assert.Equal(t, render.DefaultTheme, res.Theme)
}

func TestRenderInvalidInputNeverReachesEngine(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		theme  string
		colors []string
		code   string
	}{
		{"named color", "", []string{"red"}, "INVALID_COLOR"},
		{"bad hex digits", "", []string{"#ZZZZZZ"}, "INVALID_COLOR"},
		{"short hex", "dark", []string{"#fff"}, "INVALID_COLOR"},
		{"empty color", "", []string{""}, "INVALID_COLOR"},
		{"too many colors", "", repeat("#000000", render.MaxColors+1), "INVALID_COLOR"},
		{"unknown theme", "neon", nil, "INVALID_THEME"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			eng := &fakeEngine{out: okSVG}
			_, err := render.NewAdapter(eng).Render(context.Background(), "# A", tt.theme, tt.colors)
			require.Error(t, err)
			assert.True(t, apperr.Is(err, apperr.KindValidation))
			assert.Equal(t, tt.code, apperr.Code(err))
			assert.Zero(t, eng.callCount())
		})
	}
}

func TestRenderTimeout(t *testing.T) {
	t.Parallel()
	stats := render.NewStats(time.Hour)
	a := render.NewAdapter(&fakeEngine{block: true},
		render.WithTimeout(20*time.Millisecond),
		render.WithStats(stats),
	)

	_, err := a.Render(context.Background(), "# A", "", nil)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindRender))
	assert.Equal(t, "RENDER_TIMEOUT", apperr.Code(err))

	snap := stats.Snapshot()
	assert.Equal(t, 1, snap.Count)
	assert.Equal(t, 1, snap.Failures)
}

// stuckEngine ignores its context until released.
type stuckEngine struct{ release chan struct{} }

func (stuckEngine) Name() string { return "stuck" }

func (e stuckEngine) Transform(context.Context, string, render.Options) (string, error) {
	<-e.release
	return okSVG, nil
}

func TestRenderTimeoutWhenEngineIgnoresContext(t *testing.T) {
	t.Parallel()
	eng := stuckEngine{release: make(chan struct{})}
	t.Cleanup(func() { close(eng.release) })

	a := render.NewAdapter(eng, render.WithTimeout(20*time.Millisecond))
	start := time.Now()
	_, err := a.Render(context.Background(), "# A", "", nil)
	require.Error(t, err)
	assert.Equal(t, "RENDER_TIMEOUT", apperr.Code(err))
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestRenderCallerCancelled(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := render.NewAdapter(&fakeEngine{block: true}).Render(ctx, "# A", "", nil)
	assert.Equal(t, "RENDER_CANCELLED", apperr.Code(err))
}

func TestRenderEngineFailure(t *testing.T) {
	t.Parallel()
	_, err := render.NewAdapter(&fakeEngine{err: errors.New("exit status 1")}).Render(context.Background(), "# A", "", nil)
	assert.True(t, apperr.Is(err, apperr.KindRender))
	assert.Equal(t, "RENDER_FAILED", apperr.Code(err))
}

func TestRenderRejectsNonSVGOutput(t *testing.T) {
	t.Parallel()
	for _, out := range []string{"", "not svg", "<div>hello</div>"} {
		_, err := render.NewAdapter(&fakeEngine{out: out}).Render(context.Background(), "# A", "", nil)
		assert.Equal(t, "INVALID_ENGINE_OUTPUT", apperr.Code(err), "output %q", out)
	}

	_, err := render.NewAdapter(&fakeEngine{out: `<?xml version="1.0"?>` + okSVG}).Render(context.Background(), "# A", "", nil)
	assert.NoError(t, err)
}

func TestThemes(t *testing.T) {
	t.Parallel()
	assert.Equal(t, []string{"colorful", "dark", "default", "minimal"}, render.ThemeNames())
	for _, th := range render.Themes() {
		assert.NoError(t, render.ValidateColors(th.Palette), th.Name)
	}
}

func repeat(s string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = s
	}
	return out
}
