package pathstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/dgallion1/mindmapper/internal/apperr"
	"github.com/dgallion1/mindmapper/internal/security"
)

// Artifact kinds, used as file extensions.
const (
	KindMarkdown = "md"
	KindSVG      = "svg"
	KindHTML     = "html"
	KindJSON     = "json"
)

// exclusiveRetries bounds how often a name taken by another process is
// skipped before giving up.
const exclusiveRetries = 3

// Payload is one artifact to persist.
type Payload struct {
	Kind string
	Data []byte
}

// Artifact is one persisted file.
type Artifact struct {
	Kind  string `json:"kind"`
	Path  string `json:"path"`
	Bytes int    `json:"bytes"`
}

// ArtifactSet is every file produced by one operation. All files share the
// base name {operation}_{millis}.
type ArtifactSet struct {
	AgentDir  string     `json:"agent_dir"`
	BaseName  string     `json:"base_name"`
	Millis    int64      `json:"millis"`
	Artifacts []Artifact `json:"artifacts"`
}

// Paths maps artifact kind to path.
func (s ArtifactSet) Paths() map[string]string {
	out := make(map[string]string, len(s.Artifacts))
	for _, a := range s.Artifacts {
		out[a.Kind] = a.Path
	}
	return out
}

// Writer names and persists artifact sets under {root}/{agent}.
type Writer struct {
	root  string
	store Store
	clock *millisClock
}

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithClock replaces the wall clock used for artifact names.
func WithClock(now func() time.Time) WriterOption {
	return func(w *Writer) { w.clock.now = now }
}

func NewWriter(root string, store Store, opts ...WriterOption) *Writer {
	w := &Writer{
		root:  filepath.Clean(root),
		store: store,
		clock: &millisClock{now: time.Now},
	}
	for _, o := range opts {
		o(w)
	}
	return w
}

// Root returns the storage root.
func (w *Writer) Root() string { return w.root }

// Store returns the underlying store.
func (w *Writer) Store() Store { return w.store }

// EnsureRoot creates the storage root if it does not exist.
func (w *Writer) EnsureRoot() error {
	if !filepath.IsAbs(w.root) {
		return apperr.Validation("INVALID_STORAGE_ROOT",
			fmt.Sprintf("storage root %q must be absolute", w.root))
	}
	if err := w.store.MkdirAll(w.root); err != nil {
		return apperr.FileSystem(err, "MKDIR_FAILED", "create storage root "+w.root)
	}
	return nil
}

// AgentDir returns {root}/{sanitized id}. The directory is not created.
func (w *Writer) AgentDir(agentID string) (string, error) {
	id, err := security.SanitizeAgentID(agentID)
	if err != nil {
		return "", err
	}
	return filepath.Join(w.root, id), nil
}

// Write persists payloads in order as {operation}_{millis}.{kind}. Files
// already written stay in place when a later payload fails; the error names
// them.
func (w *Writer) Write(ctx context.Context, agentID, operation string, payloads ...Payload) (ArtifactSet, error) {
	if err := ctx.Err(); err != nil {
		return ArtifactSet{}, apperr.Render(err, "CANCELLED", "write cancelled")
	}
	if operation == "" || strings.ContainsAny(operation, `/\.`) {
		return ArtifactSet{}, apperr.Validation("INVALID_OPERATION",
			fmt.Sprintf("operation name %q is not a valid file prefix", operation))
	}
	if len(payloads) == 0 {
		return ArtifactSet{}, apperr.Validation("NO_PAYLOADS", "nothing to write")
	}

	dir, err := w.AgentDir(agentID)
	if err != nil {
		return ArtifactSet{}, err
	}
	if err := w.store.MkdirAll(dir); err != nil {
		return ArtifactSet{}, apperr.FileSystem(err, "MKDIR_FAILED", "create agent directory")
	}

	set := ArtifactSet{AgentDir: dir}
	for attempt := 0; ; attempt++ {
		set.Millis = w.clock.next()
		set.BaseName = fmt.Sprintf("%s_%d", operation, set.Millis)

		// The first file claims the base name. Another process holding the
		// same name moves us to the next millisecond.
		first := payloads[0]
		path := filepath.Join(dir, set.BaseName+"."+first.Kind)
		err := w.store.WriteFileDurable(path, first.Data)
		if err == nil {
			set.Artifacts = append(set.Artifacts, Artifact{Kind: first.Kind, Path: path, Bytes: len(first.Data)})
			break
		}
		if errors.Is(err, fs.ErrExist) && attempt < exclusiveRetries {
			continue
		}
		return ArtifactSet{}, apperr.FileSystem(err, "WRITE_FAILED", "write "+path)
	}

	for _, p := range payloads[1:] {
		path := filepath.Join(dir, set.BaseName+"."+p.Kind)
		if err := w.store.WriteFileDurable(path, p.Data); err != nil {
			return set, apperr.FileSystem(err, "WRITE_FAILED",
				fmt.Sprintf("write %s (already written: %s)", path, strings.Join(writtenPaths(set), ", ")))
		}
		set.Artifacts = append(set.Artifacts, Artifact{Kind: p.Kind, Path: path, Bytes: len(p.Data)})
	}
	return set, nil
}

// WriteAt writes data to an exact, already-guarded path. Used for the
// caller-specified output location.
func (w *Writer) WriteAt(path string, data []byte) error {
	if err := w.store.MkdirAll(filepath.Dir(path)); err != nil {
		return apperr.FileSystem(err, "MKDIR_FAILED", "create output directory")
	}
	if err := w.store.WriteFileDurable(path, data); err != nil {
		return apperr.FileSystem(err, "WRITE_FAILED", "write "+path)
	}
	return nil
}

// List returns the agent's artifacts whose names match pattern, sorted by
// name. An empty pattern matches everything.
func (w *Writer) List(agentID, pattern string) ([]FileInfo, error) {
	if pattern == "" {
		pattern = "*"
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, apperr.Validation("INVALID_PATTERN", fmt.Sprintf("invalid pattern %q", pattern))
	}
	dir, err := w.AgentDir(agentID)
	if err != nil {
		return nil, err
	}

	files, err := w.store.List(dir)
	if err != nil {
		return nil, apperr.FileSystem(err, "LIST_FAILED", "list agent directory")
	}
	out := make([]FileInfo, 0, len(files))
	for _, f := range files {
		if ok, _ := doublestar.Match(pattern, f.Name); ok {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func writtenPaths(s ArtifactSet) []string {
	out := make([]string, 0, len(s.Artifacts))
	for _, a := range s.Artifacts {
		out = append(out, a.Path)
	}
	return out
}
