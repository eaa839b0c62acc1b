// Package pipeline runs the caller-facing operations: extract, render and
// persist, with every outcome recorded in the operation history.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/dgallion1/mindmapper/internal/apperr"
	"github.com/dgallion1/mindmapper/internal/doctree"
	"github.com/dgallion1/mindmapper/internal/outline"
	"github.com/dgallion1/mindmapper/internal/parser"
	"github.com/dgallion1/mindmapper/internal/pathstore"
	"github.com/dgallion1/mindmapper/internal/render"
	"github.com/dgallion1/mindmapper/internal/security"
)

// Operation names double as artifact file prefixes.
const (
	OpMindmap   = "mindmap"
	OpOutline   = "outline"
	OpFile      = "file"
	OpCustom    = "custom"
	OpStructure = "structure"
)

// Result is the success payload of an operation.
type Result struct {
	OperationID   string               `json:"operation_id"`
	Operation     string               `json:"operation"`
	AgentID       string               `json:"agent_id"`
	AgentDir      string               `json:"agent_dir"`
	Artifacts     map[string]string    `json:"artifacts"`
	Stats         doctree.Stats        `json:"stats"`
	Title         string               `json:"title,omitempty"`
	Theme         string               `json:"theme,omitempty"`
	ColorsUsed    []string             `json:"colors_used,omitempty"`
	PaletteSource render.PaletteSource `json:"palette_source,omitempty"`
	Markdown      string               `json:"markdown,omitempty"`
	Tree          *doctree.Tree        `json:"tree,omitempty"`
}

// GenerateRequest renders inline Markdown.
type GenerateRequest struct {
	AgentID  string   `json:"-"`
	Markdown string   `json:"markdown"`
	Theme    string   `json:"theme,omitempty"`
	Colors   []string `json:"colors,omitempty"`
}

// OutlineRequest renders a caller-built outline.
type OutlineRequest struct {
	AgentID string                `json:"-"`
	Items   []doctree.OutlineItem `json:"items"`
	Theme   string                `json:"theme,omitempty"`
	Colors  []string              `json:"colors,omitempty"`
}

// FileRequest renders a Markdown file. OutputPath, when set, receives an
// extra copy of the SVG.
type FileRequest struct {
	AgentID    string   `json:"-"`
	Path       string   `json:"path"`
	Theme      string   `json:"theme,omitempty"`
	Colors     []string `json:"colors,omitempty"`
	OutputPath string   `json:"output_path,omitempty"`
}

// StructureRequest extracts the tree without rendering.
type StructureRequest struct {
	AgentID  string `json:"-"`
	Markdown string `json:"markdown"`
}

// Service wires the extractor, render adapter, path guard and writer.
type Service struct {
	parser  *parser.MarkdownParser
	adapter *render.Adapter
	writer  *pathstore.Writer
	guard   *security.Guard
	history *History
	log     *slog.Logger
}

func NewService(p *parser.MarkdownParser, a *render.Adapter, w *pathstore.Writer, g *security.Guard, h *History, log *slog.Logger) *Service {
	return &Service{
		parser:  p,
		adapter: a,
		writer:  w,
		guard:   g,
		history: h,
		log:     log,
	}
}

// Generate renders inline Markdown into md, svg and html artifacts.
func (s *Service) Generate(ctx context.Context, req GenerateRequest) (*Result, error) {
	return s.run(req.AgentID, OpMindmap, func(log *slog.Logger, res *Result) error {
		d, err := render.Decide(req.Theme, req.Colors)
		if err != nil {
			return err
		}
		ext, err := s.parser.ExtractString(req.Markdown)
		if err != nil {
			return err
		}
		return s.renderAndStore(ctx, log, res, req.Markdown, ext, d)
	})
}

// FromOutline compiles items to heading Markdown and renders it.
func (s *Service) FromOutline(ctx context.Context, req OutlineRequest) (*Result, error) {
	return s.run(req.AgentID, OpOutline, func(log *slog.Logger, res *Result) error {
		d, err := render.Decide(req.Theme, req.Colors)
		if err != nil {
			return err
		}
		md, err := outline.Compile(req.Items)
		if err != nil {
			return err
		}
		ext, err := s.parser.ExtractString(md)
		if err != nil {
			return err
		}
		res.Markdown = md
		return s.renderAndStore(ctx, log, res, md, ext, d)
	})
}

// RenderFile loads a guarded Markdown file and renders it.
func (s *Service) RenderFile(ctx context.Context, req FileRequest) (*Result, error) {
	return s.run(req.AgentID, OpFile, func(log *slog.Logger, res *Result) error {
		d, err := render.Decide(req.Theme, req.Colors)
		if err != nil {
			return err
		}
		src, err := s.guard.ResolveMarkdown(req.Path, res.AgentID)
		if err != nil {
			return err
		}
		var out string
		if req.OutputPath != "" {
			if !strings.EqualFold(filepath.Ext(req.OutputPath), ".svg") {
				return apperr.Validation("UNSUPPORTED_EXTENSION", "output path must end in .svg")
			}
			if out, err = s.guard.Resolve(req.OutputPath, res.AgentID); err != nil {
				return err
			}
		}

		f, err := s.writer.Store().Open(src)
		if err != nil {
			return apperr.FileSystem(err, "READ_FAILED", "read "+src)
		}
		data, err := s.parser.ReadSource(f, src)
		f.Close()
		if err != nil {
			return err
		}
		ext, err := s.parser.Extract(data)
		if err != nil {
			return err
		}
		md := string(data)
		if err := s.renderAndStore(ctx, log, res, md, ext, d); err != nil {
			return err
		}

		if out != "" {
			svg, err := s.writer.Store().ReadFile(res.Artifacts[pathstore.KindSVG])
			if err != nil {
				return apperr.FileSystem(err, "READ_FAILED", "reload svg artifact")
			}
			if err := s.writer.WriteAt(out, svg); err != nil {
				return err
			}
			res.Artifacts["output"] = out
			log.Info("wrote output copy", "path", out)
		}
		return nil
	})
}

// Customize re-renders Markdown with an explicit theme, palette or both.
func (s *Service) Customize(ctx context.Context, req GenerateRequest) (*Result, error) {
	return s.run(req.AgentID, OpCustom, func(log *slog.Logger, res *Result) error {
		if strings.TrimSpace(req.Theme) == "" && len(req.Colors) == 0 {
			return apperr.Validation("CUSTOMIZATION_REQUIRED", "theme or colors is required")
		}
		d, err := render.Decide(req.Theme, req.Colors)
		if err != nil {
			return err
		}
		ext, err := s.parser.ExtractString(req.Markdown)
		if err != nil {
			return err
		}
		return s.renderAndStore(ctx, log, res, req.Markdown, ext, d)
	})
}

// Structure extracts the tree and persists md and json artifacts.
func (s *Service) Structure(ctx context.Context, req StructureRequest) (*Result, error) {
	return s.run(req.AgentID, OpStructure, func(log *slog.Logger, res *Result) error {
		ext, err := s.parser.ExtractString(req.Markdown)
		if err != nil {
			return err
		}
		doc, err := json.MarshalIndent(struct {
			Title string        `json:"title,omitempty"`
			Root  *doctree.Node `json:"root"`
			Stats doctree.Stats `json:"stats"`
		}{ext.Tree.Title, ext.Tree.Root, ext.Stats}, "", "  ")
		if err != nil {
			return apperr.Render(err, "ENCODE_FAILED", "encode structure")
		}

		set, err := s.writer.Write(ctx, res.AgentID, OpStructure,
			pathstore.Payload{Kind: pathstore.KindMarkdown, Data: []byte(req.Markdown)},
			pathstore.Payload{Kind: pathstore.KindJSON, Data: append(doc, '\n')},
		)
		if err != nil {
			return err
		}
		res.AgentDir = set.AgentDir
		res.Artifacts = set.Paths()
		res.Stats = ext.Stats
		res.Title = titleOf(ext.Tree)
		res.Tree = ext.Tree
		log.Info("structure extracted", "nodes", ext.Stats.NodeCount, "max_depth", ext.Stats.MaxDepth)
		return nil
	})
}

// Themes lists the fixed themes.
func (s *Service) Themes() []render.Theme {
	return render.Themes()
}

// ListArtifacts lists an agent's stored artifacts matching pattern.
func (s *Service) ListArtifacts(agentID, pattern string) ([]pathstore.FileInfo, error) {
	return s.writer.List(agentID, pattern)
}

// Operation returns the history record for id. Records of other agents are
// reported as not found.
func (s *Service) Operation(agentID, id string) (RecordSnapshot, error) {
	agent, err := security.SanitizeAgentID(agentID)
	if err != nil {
		return RecordSnapshot{}, err
	}
	notFound := apperr.Validation("OPERATION_NOT_FOUND",
		fmt.Sprintf("operation %q not found or expired", id))

	rec, ok := s.history.Get(id)
	if !ok {
		return RecordSnapshot{}, notFound
	}
	snap := rec.Snapshot()
	if snap.AgentID != agent {
		return RecordSnapshot{}, notFound
	}
	return snap, nil
}

// RenderStats exposes engine latency.
func (s *Service) RenderStats() render.StatsSnapshot {
	return s.adapter.Stats().Snapshot()
}

func (s *Service) renderAndStore(ctx context.Context, log *slog.Logger, res *Result, md string, ext *parser.Result, d render.Decision) error {
	title := titleOf(ext.Tree)

	rendered, err := s.adapter.RenderDecision(ctx, md, d, ext.Tree.Title)
	if err != nil {
		return err
	}
	page, err := render.BuildHTML(title, rendered.SVG, md)
	if err != nil {
		return err
	}

	set, err := s.writer.Write(ctx, res.AgentID, res.Operation,
		pathstore.Payload{Kind: pathstore.KindMarkdown, Data: []byte(md)},
		pathstore.Payload{Kind: pathstore.KindSVG, Data: []byte(rendered.SVG)},
		pathstore.Payload{Kind: pathstore.KindHTML, Data: page},
	)
	if err != nil {
		return err
	}

	res.AgentDir = set.AgentDir
	res.Artifacts = set.Paths()
	res.Stats = ext.Stats
	res.Title = title
	res.Theme = rendered.Theme
	res.ColorsUsed = rendered.ColorsUsed
	res.PaletteSource = rendered.Source

	log.Info("mind map rendered",
		"nodes", ext.Stats.NodeCount,
		"max_depth", ext.Stats.MaxDepth,
		"theme", rendered.Theme,
		"palette_source", rendered.Source,
		"render_ms", rendered.Duration.Milliseconds(),
	)
	return nil
}

// run sanitizes the agent id, records the operation and converts any panic
// or unclassified error into a RenderError.
func (s *Service) run(agentID, op string, fn func(log *slog.Logger, res *Result) error) (res *Result, err error) {
	id, err := security.SanitizeAgentID(agentID)
	if err != nil {
		return nil, err
	}

	rec := s.history.Start(id, op)
	log := s.log.With("op_id", rec.ID, "agent", id, "operation", op)
	res = &Result{OperationID: rec.ID, Operation: op, AgentID: id}
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			log.Error("operation panicked", "panic", r)
			err = apperr.Render(fmt.Errorf("panic: %v", r), "OPERATION_PANIC", "operation failed unexpectedly")
		}
		if err != nil {
			err = apperr.Classify(err)
			s.history.Fail(rec, err)
			log.Warn("operation failed",
				"kind", apperr.KindOf(err),
				"code", apperr.Code(err),
				"error", err,
				"duration_ms", time.Since(start).Milliseconds(),
			)
			res = nil
			return
		}
		s.history.Complete(rec, res)
	}()

	err = fn(log, res)
	return res, err
}

// titleOf prefers the front matter title, then the first top-level node.
func titleOf(t *doctree.Tree) string {
	if t.Title != "" {
		return t.Title
	}
	if len(t.Root.Children) > 0 {
		return t.Root.Children[0].Text
	}
	return ""
}
