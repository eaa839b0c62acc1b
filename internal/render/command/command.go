// Package command renders through an external program, such as a markmap
// wrapper script. The program reads Markdown on stdin, finds its options as
// JSON in the MINDMAP_OPTIONS environment variable and writes SVG to stdout.
package command

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/dgallion1/mindmapper/internal/render"
)

const (
	OptionsEnv = "MINDMAP_OPTIONS"

	maxStderr = 1024
	maxOutput = 32 << 20
)

// Engine runs one external program per render.
type Engine struct {
	name string
	args []string
}

// New returns an engine running name with args.
func New(name string, args ...string) *Engine {
	return &Engine{name: name, args: args}
}

// Parse splits a command line on whitespace. Quoting is not supported.
func Parse(cmdline string) (*Engine, error) {
	fields := strings.Fields(cmdline)
	if len(fields) == 0 {
		return nil, errors.New("render command is empty")
	}
	return New(fields[0], fields[1:]...), nil
}

func (e *Engine) Name() string { return "command" }

func (e *Engine) Transform(ctx context.Context, markdown string, opts render.Options) (string, error) {
	optJSON, err := json.Marshal(opts)
	if err != nil {
		return "", fmt.Errorf("marshal options: %w", err)
	}

	cmd := exec.CommandContext(ctx, e.name, e.args...)
	cmd.Stdin = strings.NewReader(markdown)
	cmd.Env = append(os.Environ(), OptionsEnv+"="+string(optJSON))
	cmd.WaitDelay = 2 * time.Second

	var stdout bytes.Buffer
	stderr := &limitedBuffer{max: maxStderr}
	cmd.Stdout = &limitedWriter{w: &stdout, remaining: maxOutput}
	cmd.Stderr = stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return "", fmt.Errorf("%s: %w: %s", e.name, err, msg)
		}
		return "", fmt.Errorf("%s: %w", e.name, err)
	}
	return stdout.String(), nil
}

type limitedWriter struct {
	w         io.Writer
	remaining int
}

func (l *limitedWriter) Write(p []byte) (int, error) {
	if len(p) > l.remaining {
		return 0, fmt.Errorf("render output exceeds %d bytes", maxOutput)
	}
	l.remaining -= len(p)
	return l.w.Write(p)
}

// limitedBuffer keeps the first max bytes and silently drops the rest.
type limitedBuffer struct {
	buf bytes.Buffer
	max int
}

func (b *limitedBuffer) Write(p []byte) (int, error) {
	if room := b.max - b.buf.Len(); room > 0 {
		if len(p) > room {
			b.buf.Write(p[:room])
		} else {
			b.buf.Write(p)
		}
	}
	return len(p), nil
}

func (b *limitedBuffer) String() string { return b.buf.String() }
