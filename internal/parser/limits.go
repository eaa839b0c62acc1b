package parser

import (
	"fmt"

	"github.com/dgallion1/mindmapper/internal/apperr"
)

const (
	DefaultMaxInlineBytes = 1 << 20
	DefaultMaxFileBytes   = 5 << 20
	DefaultMaxNodes       = 10000
	DefaultMaxDepth       = 20
)

// Limits bounds what a single extraction accepts.
type Limits struct {
	MaxInlineBytes int64
	MaxFileBytes   int64
	MaxNodes       int
	MaxDepth       int
}

// DefaultLimits returns the stock ceilings.
func DefaultLimits() Limits {
	return Limits{
		MaxInlineBytes: DefaultMaxInlineBytes,
		MaxFileBytes:   DefaultMaxFileBytes,
		MaxNodes:       DefaultMaxNodes,
		MaxDepth:       DefaultMaxDepth,
	}
}

func (l Limits) withDefaults() Limits {
	d := DefaultLimits()
	if l.MaxInlineBytes <= 0 {
		l.MaxInlineBytes = d.MaxInlineBytes
	}
	if l.MaxFileBytes <= 0 {
		l.MaxFileBytes = d.MaxFileBytes
	}
	if l.MaxNodes <= 0 {
		l.MaxNodes = d.MaxNodes
	}
	if l.MaxDepth <= 0 {
		l.MaxDepth = d.MaxDepth
	}
	return l
}

// CheckInline rejects raw Markdown content over the inline ceiling.
func (l Limits) CheckInline(size int) error {
	l = l.withDefaults()
	if int64(size) > l.MaxInlineBytes {
		return apperr.ResourceLimit("CONTENT_TOO_LARGE",
			fmt.Sprintf("markdown content is %d bytes, limit is %d", size, l.MaxInlineBytes))
	}
	return nil
}

// CheckFile rejects file-sourced Markdown over the file ceiling.
func (l Limits) CheckFile(size int64) error {
	l = l.withDefaults()
	if size > l.MaxFileBytes {
		return apperr.ResourceLimit("CONTENT_TOO_LARGE",
			fmt.Sprintf("markdown file is %d bytes, limit is %d", size, l.MaxFileBytes))
	}
	return nil
}

// checkShape enforces the post-parse node and depth ceilings.
func (l Limits) checkShape(nodes, depth int) error {
	l = l.withDefaults()
	if nodes > l.MaxNodes {
		return apperr.ResourceLimit("TOO_MANY_NODES",
			fmt.Sprintf("document has %d nodes, limit is %d", nodes, l.MaxNodes))
	}
	if depth > l.MaxDepth {
		return apperr.ResourceLimit("TOO_DEEP",
			fmt.Sprintf("document reaches depth %d, limit is %d", depth, l.MaxDepth))
	}
	return nil
}
