package parser

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/dgallion1/mindmapper/internal/apperr"
	"github.com/dgallion1/mindmapper/internal/doctree"
)

// Result is the output of one extraction.
type Result struct {
	Tree  *doctree.Tree
	Stats doctree.Stats
}

// Parser converts raw document bytes into a tree.
type Parser interface {
	Parse(r io.Reader, filename string) (*Result, error)
}

// SupportedExtensions lists file extensions this service can load.
var SupportedExtensions = map[string]bool{
	".md":       true,
	".markdown": true,
}

// ForFile returns the appropriate parser for a filename.
func ForFile(filename string, limits Limits) (Parser, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".md", ".markdown":
		return NewMarkdownParser(limits), nil
	default:
		return nil, apperr.Validation("UNSUPPORTED_EXTENSION",
			fmt.Sprintf("unsupported file extension: %q (expected .md or .markdown)", ext))
	}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return SupportedExtensions[ext]
}
