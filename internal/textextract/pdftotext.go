// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package textextract

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/pdiddy/files-processor/internal/container"
)

const imagePoppler = "poppler:latest"

// pdftotextCmd reads the PDF from stdin and writes UTF-8 text to stdout.
var pdftotextCmd = []string{"pdftotext", "-enc", "UTF-8", "-", "-"}

// PdftotextExtractor pipes PDFs through poppler's pdftotext inside a
// container. It depends on a container.Runtime (docker or podman) injected
// at construction time.
type PdftotextExtractor struct {
	runtime container.Runtime
}

// NewPdftotextExtractor creates an extractor that uses rt to run the poppler
// image. It verifies that the image exists locally before returning.
func NewPdftotextExtractor(rt container.Runtime) (*PdftotextExtractor, error) {
	if err := rt.ImageExists(imagePoppler); err != nil {
		return nil, fmt.Errorf("poppler image not available in %s: %w", rt.Name(), err)
	}
	return &PdftotextExtractor{runtime: rt}, nil
}

// Extract reads the PDF at path, pipes it through pdftotext, and returns
// the resulting text.
func (p *PdftotextExtractor) Extract(path, format string) (string, error) {
	if err := checkFormat(format); err != nil {
		return "", err
	}

	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening PDF %s: %w", path, err)
	}
	defer f.Close()

	var out bytes.Buffer
	if err := p.runtime.Run(imagePoppler, pdftotextCmd, f, &out); err != nil {
		return "", fmt.Errorf("extracting %s with pdftotext: %w", path, err)
	}

	text := strings.TrimSpace(out.String())
	if text == "" {
		return "", fmt.Errorf("%s: %w", path, ErrNoText)
	}
	return text, nil
}
