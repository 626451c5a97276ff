// Package ingest reads transcript files from disk and splits them into
// word-budgeted blocks for processing. Network acquisition of transcripts
// lives outside this module; only local files are handled here.
package ingest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ErrUnsupportedFormat is returned for unrecognized transcript formats.
var ErrUnsupportedFormat = errors.New("ingest: unsupported transcript format")

// LoadTranscript reads a .txt or .pdf transcript file into plain text.
func LoadTranscript(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".text", ".md":
		raw, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("ingest: reading %s: %w", path, err)
		}
		return string(raw), nil
	case ".pdf":
		return loadPDF(path)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

func loadPDF(path string) (string, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("ingest: opening PDF: %w", err)
	}
	defer f.Close()

	var b strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// Skip pages that fail to extract.
			continue
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		b.WriteString(text)
		b.WriteString("\n\n")
	}
	return b.String(), nil
}

// SplitBlocks cuts the text into blocks of roughly blockWords words,
// breaking only at sentence ends so no block starts mid-thought.
// Non-positive blockWords returns the whole text as one block.
func SplitBlocks(text string, blockWords int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if blockWords <= 0 {
		return []string{text}
	}

	var blocks []string
	var b strings.Builder
	words := 0
	flush := func() {
		s := strings.TrimSpace(b.String())
		b.Reset()
		words = 0
		if s != "" {
			blocks = append(blocks, s)
		}
	}

	for _, r := range text {
		b.WriteRune(r)
		if r == ' ' || r == '\n' || r == '\t' {
			words++
		}
		if words >= blockWords && (r == '.' || r == '!' || r == '?') {
			flush()
		}
	}
	flush()
	return blocks
}
