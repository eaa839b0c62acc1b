// Package security gates caller identifiers and caller-supplied paths before
// anything touches storage.
package security

import (
	"fmt"
	"strings"

	"github.com/dgallion1/mindmapper/internal/apperr"
)

// MaxAgentIDLength caps a sanitized identifier.
const MaxAgentIDLength = 128

// SanitizeAgentID keeps ASCII letters, digits, '.', '_' and '-' in their
// original order and drops everything else. The result is safe to use as a
// single path component.
func SanitizeAgentID(id string) (string, error) {
	if strings.TrimSpace(id) == "" {
		return "", apperr.Validation("INVALID_AGENT_ID", "agent id is required")
	}

	var b strings.Builder
	b.Grow(len(id))
	for i := 0; i < len(id); i++ {
		if allowed(id[i]) {
			b.WriteByte(id[i])
		}
	}
	out := b.String()

	switch {
	case out == "":
		return "", apperr.Validation("INVALID_AGENT_ID",
			fmt.Sprintf("agent id %q has no permitted characters", id))
	case out == "." || out == "..":
		return "", apperr.Validation("INVALID_AGENT_ID",
			fmt.Sprintf("agent id %q is reserved", out))
	case len(out) > MaxAgentIDLength:
		return "", apperr.Validation("INVALID_AGENT_ID",
			fmt.Sprintf("agent id is %d characters, limit is %d", len(out), MaxAgentIDLength))
	}
	return out, nil
}

func allowed(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	case c == '.', c == '_', c == '-':
		return true
	}
	return false
}
