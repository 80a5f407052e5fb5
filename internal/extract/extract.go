// Package extract turns uploaded files into plain text.
package extract

import (
	"fmt"
	"path/filepath"
	"strings"

	"ragdoc/internal/domain"
)

// ForName picks an extractor by file extension.
func ForName(name string) (domain.Extractor, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".docx":
		return DOCX{}, nil
	case ".md", ".markdown":
		return Markdown{}, nil
	case ".txt", "":
		return Plain{}, nil
	default:
		return nil, fmt.Errorf("%w: unsupported file type %q", domain.ErrExtraction, filepath.Ext(name))
	}
}

// Text extracts name's content and fails when nothing is left.
func Text(name string, data []byte) (string, error) {
	ex, err := ForName(name)
	if err != nil {
		return "", err
	}
	text, err := ex.Extract(data)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", domain.ErrExtraction, name, err)
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: %s contains no text", domain.ErrExtraction, name)
	}
	return text, nil
}

// Plain passes UTF-8 text through with normalized newlines.
type Plain struct{}

func (Plain) Extract(data []byte) (string, error) {
	return normalize(string(data)), nil
}

func normalize(s string) string {
	s = strings.ReplaceAll(s, "\x00", "")
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}
