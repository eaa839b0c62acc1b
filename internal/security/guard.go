package security

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/dgallion1/mindmapper/internal/apperr"
)

// Guard resolves caller-supplied paths and accepts them only inside the
// working directory or the caller's own storage subtree. Anything under the
// storage root is reserved for its owning agent, even when the storage root
// itself sits inside the working directory.
type Guard struct {
	root    string
	workDir string
}

// GuardOption configures a Guard.
type GuardOption func(*Guard)

// WithWorkingDir overrides the process working directory.
func WithWorkingDir(dir string) GuardOption {
	return func(g *Guard) { g.workDir = dir }
}

// NewGuard returns a guard over storageRoot.
func NewGuard(storageRoot string, opts ...GuardOption) (*Guard, error) {
	g := &Guard{root: storageRoot}
	for _, o := range opts {
		o(g)
	}
	if g.workDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, apperr.FileSystem(err, "GETWD_FAILED", "resolve working directory")
		}
		g.workDir = wd
	}
	return g, nil
}

// Resolve returns the canonical absolute form of path if it is permitted for
// agentID. Relative paths resolve against the working directory. Targets
// that do not exist yet are accepted when their nearest existing ancestor
// canonicalizes inside a permitted root.
func (g *Guard) Resolve(path, agentID string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", apperr.Validation("PATH_REQUIRED", "path is required")
	}
	id, err := SanitizeAgentID(agentID)
	if err != nil {
		return "", err
	}

	if !filepath.IsAbs(path) {
		path = filepath.Join(g.workDir, path)
	}
	target, err := canonicalize(path)
	if err != nil {
		return "", err
	}
	root, err := canonicalize(g.root)
	if err != nil {
		return "", err
	}
	agentDir := filepath.Join(root, id)

	if within(root, target) {
		if within(agentDir, target) {
			return target, nil
		}
		return "", outside(path)
	}

	wd, err := canonicalize(g.workDir)
	if err != nil {
		return "", err
	}
	if within(wd, target) {
		return target, nil
	}
	return "", outside(path)
}

// ResolveMarkdown is Resolve restricted to .md and .markdown files.
func (g *Guard) ResolveMarkdown(path, agentID string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
	default:
		return "", apperr.Validation("UNSUPPORTED_EXTENSION",
			fmt.Sprintf("unsupported file extension %q (expected .md or .markdown)", filepath.Ext(path)))
	}
	return g.Resolve(path, agentID)
}

func outside(path string) error {
	return apperr.PathSecurity("PATH_OUTSIDE_ALLOWED_ROOTS",
		fmt.Sprintf("path %q is outside the permitted roots", path))
}

// canonicalize resolves symlinks on the longest existing prefix of an
// absolute path and re-appends the missing tail.
func canonicalize(path string) (string, error) {
	path = filepath.Clean(path)
	var tail []string
	cur := path
	for {
		resolved, err := filepath.EvalSymlinks(cur)
		if err == nil {
			parts := append([]string{resolved}, tail...)
			return filepath.Join(parts...), nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", apperr.FileSystem(err, "RESOLVE_FAILED", "resolve "+path)
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return path, nil
		}
		tail = append([]string{filepath.Base(cur)}, tail...)
		cur = parent
	}
}

// within reports whether p equals base or lies beneath it.
func within(base, p string) bool {
	rel, err := filepath.Rel(base, p)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
