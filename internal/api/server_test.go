package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/mindmapper/internal/config"
	"github.com/dgallion1/mindmapper/internal/parser"
	"github.com/dgallion1/mindmapper/internal/pathstore"
	"github.com/dgallion1/mindmapper/internal/pipeline"
	"github.com/dgallion1/mindmapper/internal/render"
	"github.com/dgallion1/mindmapper/internal/render/builtin"
	"github.com/dgallion1/mindmapper/internal/security"
)

func newTestServer(t *testing.T, apiKey string) *Server {
	t.Helper()
	root, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)

	cfg := config.Defaults()
	cfg.StorageRoot = root
	cfg.APIKey = apiKey
	cfg.MaxFileBytes = 64 << 10

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	guard, err := security.NewGuard(root, security.WithWorkingDir(root))
	require.NoError(t, err)
	svc := pipeline.NewService(
		parser.NewMarkdownParser(cfg.Limits()),
		render.NewAdapter(builtin.New(cfg.Limits()), render.WithLogger(log)),
		pathstore.NewWriter(root, pathstore.NewMemStore()),
		guard,
		pipeline.NewHistory(time.Hour),
		log,
	)
	return NewServer(svc, log, cfg)
}

func do(t *testing.T, s *Server, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		if raw, ok := body.(string); ok {
			rd = strings.NewReader(raw)
		} else {
			b, err := json.Marshal(body)
			require.NoError(t, err)
			rd = bytes.NewReader(b)
		}
	}
	req := httptest.NewRequest(method, path, rd)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

type errorBody struct {
	Error struct {
		Kind             string `json:"kind"`
		Code             string `json:"code"`
		Message          string `json:"message"`
		ValidationErrors []struct {
			Field string `json:"field"`
		} `json:"validation_errors"`
	} `json:"error"`
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var b errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &b), rec.Body.String())
	return b
}

func TestHealth(t *testing.T) {
	t.Parallel()
	rec := do(t, newTestServer(t, "secret"), http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestAuth(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, "secret")

	rec := do(t, s, http.MethodGet, "/api/themes", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/themes", nil, "Authorization", "Bearer wrong")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/themes", nil, "Authorization", "Bearer secret")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGenerateEndpoint(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, "")

	rec := do(t, s, http.MethodPost, "/api/agents/agent-7/mindmaps", map[string]any{
		"markdown": "# AI\n## ML\n## NLP\n",
		"theme":    "dark",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var res pipeline.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, "agent-7", res.AgentID)
	assert.Equal(t, 3, res.Stats.NodeCount)
	assert.Equal(t, 2, res.Stats.MaxDepth)
	assert.Len(t, res.Artifacts, 3)
	dark, _ := render.LookupTheme("dark")
	assert.Equal(t, dark.Palette, res.ColorsUsed)

	rec = do(t, s, http.MethodGet, "/api/agents/agent-7/operations/"+res.OperationID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var op pipeline.RecordSnapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &op))
	assert.Equal(t, pipeline.StatusCompleted, op.Status)

	rec = do(t, s, http.MethodGet, "/api/agents/someone-else/operations/"+res.OperationID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/agents/agent-7/artifacts?pattern=*.svg", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Artifacts []pathstore.FileInfo `json:"artifacts"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list.Artifacts, 1)

	rec = do(t, s, http.MethodGet, "/api/stats/render", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"count":1`)
}

func TestErrorMapping(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, "")

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
		kind   string
		code   string
	}{
		{"invalid color", http.MethodPost, "/api/agents/a/mindmaps",
			map[string]any{"markdown": "# A", "colors": []string{"red"}},
			http.StatusBadRequest, "ValidationError", "INVALID_COLOR"},
		{"empty content", http.MethodPost, "/api/agents/a/mindmaps",
			map[string]any{"markdown": "   "},
			http.StatusBadRequest, "ValidationError", "EMPTY_CONTENT"},
		{"bad agent", http.MethodPost, "/api/agents/@@@/structure",
			map[string]any{"markdown": "# A"},
			http.StatusBadRequest, "ValidationError", "INVALID_AGENT_ID"},
		{"bad json", http.MethodPost, "/api/agents/a/mindmaps", "{",
			http.StatusBadRequest, "ValidationError", "INVALID_JSON"},
		{"traversal", http.MethodPost, "/api/agents/a/files",
			map[string]any{"path": "../etc/passwd.md"},
			http.StatusForbidden, "PathSecurityError", "PATH_OUTSIDE_ALLOWED_ROOTS"},
		{"too deep", http.MethodPost, "/api/agents/a/outlines",
			map[string]any{"items": []map[string]any{{"text": "x", "level": 7}}},
			http.StatusBadRequest, "ValidationError", "INVALID_OUTLINE"},
		{"body too large", http.MethodPost, "/api/agents/a/mindmaps",
			map[string]any{"markdown": strings.Repeat("a", 2<<20)},
			http.StatusRequestEntityTooLarge, "ResourceLimitError", "CONTENT_TOO_LARGE"},
		{"unknown operation", http.MethodGet, "/api/agents/a/operations/nope", nil,
			http.StatusNotFound, "ValidationError", "OPERATION_NOT_FOUND"},
		{"customize needs input", http.MethodPost, "/api/agents/a/customize",
			map[string]any{"markdown": "# A"},
			http.StatusBadRequest, "ValidationError", "CUSTOMIZATION_REQUIRED"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec := do(t, s, tt.method, tt.path, tt.body)
			require.Equal(t, tt.status, rec.Code, rec.Body.String())
			b := decodeError(t, rec)
			assert.Equal(t, tt.kind, b.Error.Kind)
			assert.Equal(t, tt.code, b.Error.Code)
		})
	}
}

func TestStructureEndpoint(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, "")

	rec := do(t, s, http.MethodPost, "/api/agents/a/structure", map[string]any{
		"markdown": "# Root\n\n- one\n- two\n",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var res pipeline.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.NotNil(t, res.Tree)
	require.Len(t, res.Tree.Root.Children, 1)
	assert.Len(t, res.Tree.Root.Children[0].Children, 2)
	assert.Contains(t, res.Artifacts, "json")
}

func TestThemesEndpoint(t *testing.T) {
	t.Parallel()
	rec := do(t, newTestServer(t, ""), http.MethodGet, "/api/themes", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Themes []render.Theme `json:"themes"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Themes, 4)
	assert.Equal(t, "colorful", body.Themes[0].Name)
}
