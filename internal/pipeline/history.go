package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dgallion1/mindmapper/internal/apperr"
	"github.com/dgallion1/mindmapper/internal/doctree"
)

// Status is the state of one operation.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Record tracks a single operation from start to finish.
type Record struct {
	mu sync.Mutex

	ID        string
	AgentID   string
	Operation string
	Status    Status
	Artifacts map[string]string
	Stats     doctree.Stats
	ErrKind   apperr.Kind
	ErrCode   string
	ErrMsg    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// RecordSnapshot is a read-only, JSON-safe copy of a record.
type RecordSnapshot struct {
	ID         string            `json:"operation_id"`
	AgentID    string            `json:"agent_id"`
	Operation  string            `json:"operation"`
	Status     Status            `json:"status"`
	Artifacts  map[string]string `json:"artifacts"`
	Stats      doctree.Stats     `json:"stats"`
	ErrorKind  apperr.Kind       `json:"error_kind,omitempty"`
	ErrorCode  string            `json:"error_code,omitempty"`
	Error      string            `json:"error,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
	DurationMs int64             `json:"duration_ms"`
}

func (r *Record) complete(res *Result, now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Status = StatusCompleted
	r.Artifacts = res.Artifacts
	r.Stats = res.Stats
	r.UpdatedAt = now
}

func (r *Record) fail(err error, now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	body := apperr.ToBody(err)
	r.Status = StatusFailed
	r.ErrKind = body.Kind
	r.ErrCode = body.Code
	r.ErrMsg = body.Message
	r.UpdatedAt = now
}

// Snapshot returns a JSON-safe copy of the record.
func (r *Record) Snapshot() RecordSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	artifacts := make(map[string]string, len(r.Artifacts))
	for k, v := range r.Artifacts {
		artifacts[k] = v
	}
	return RecordSnapshot{
		ID:        r.ID,
		AgentID:   r.AgentID,
		Operation: r.Operation,
		Status:    r.Status,
		Artifacts: artifacts,
		Stats: doctree.Stats{
			NodeCount:    r.Stats.NodeCount,
			MaxDepth:     r.Stats.MaxDepth,
			FeaturesUsed: append([]string{}, r.Stats.FeaturesUsed...),
		},
		ErrorKind:  r.ErrKind,
		ErrorCode:  r.ErrCode,
		Error:      r.ErrMsg,
		CreatedAt:  r.CreatedAt,
		DurationMs: r.UpdatedAt.Sub(r.CreatedAt).Milliseconds(),
	}
}

// History is a thread-safe in-memory operation registry with TTL eviction.
type History struct {
	mu      sync.Mutex
	records map[string]*Record
	ttl     time.Duration
	now     func() time.Time
}

func NewHistory(ttl time.Duration) *History {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &History{
		records: make(map[string]*Record),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Start registers a new running operation.
func (h *History) Start(agentID, operation string) *Record {
	now := h.now()
	rec := &Record{
		ID:        uuid.NewString(),
		AgentID:   agentID,
		Operation: operation,
		Status:    StatusRunning,
		CreatedAt: now,
		UpdatedAt: now,
	}
	h.mu.Lock()
	h.records[rec.ID] = rec
	h.mu.Unlock()
	return rec
}

func (h *History) Complete(rec *Record, res *Result) { rec.complete(res, h.now()) }

func (h *History) Fail(rec *Record, err error) { rec.fail(err, h.now()) }

func (h *History) Get(id string) (*Record, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	rec, ok := h.records[id]
	return rec, ok
}

// Len returns the number of retained records.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.records)
}

// Cleanup removes finished records idle for longer than the TTL.
func (h *History) Cleanup() {
	now := h.now()
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, rec := range h.records {
		rec.mu.Lock()
		expired := rec.Status != StatusRunning && now.Sub(rec.UpdatedAt) > h.ttl
		rec.mu.Unlock()
		if expired {
			delete(h.records, id)
		}
	}
}

// Run calls Cleanup every interval until ctx is done.
func (h *History) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.Cleanup()
		}
	}
}
