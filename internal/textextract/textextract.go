// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package textextract turns a stored document into plain text for the
// mining service. Backends (pdfcpu in-process, pdftotext in a container)
// implement Extractor.
package textextract

import (
	"errors"
	"fmt"
	"strings"

	"github.com/pdiddy/files-processor/internal/container"
	"github.com/pdiddy/files-processor/pkg/types"
)

// FormatPDF is the only format hint the backends understand.
const FormatPDF = "pdf"

// ErrUnsupportedFormat is returned for format hints other than "pdf".
var ErrUnsupportedFormat = errors.New("unsupported format")

// ErrNoText is returned when a document yields no extractable text.
var ErrNoText = errors.New("no text content found")

// Extractor reads the file at path and returns its plain text. format is a
// hint such as "pdf"; content is not sniffed.
type Extractor interface {
	Extract(path, format string) (string, error)
}

// New selects a backend from cfg. The pdftotext backend needs a working
// container runtime and is detected here.
func New(cfg types.TextConfig) (Extractor, error) {
	switch cfg.Backend {
	case "", types.TextBackendPdfcpu:
		return NewPdfcpuExtractor(), nil
	case types.TextBackendPdftotext:
		rt, err := container.DetectRuntime()
		if err != nil {
			return nil, err
		}
		return NewPdftotextExtractor(rt)
	default:
		return nil, fmt.Errorf("unknown text backend %q", cfg.Backend)
	}
}

func checkFormat(format string) error {
	if !strings.EqualFold(strings.TrimPrefix(format, "."), FormatPDF) {
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	return nil
}
