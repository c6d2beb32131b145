// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package textextract

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// PdfcpuExtractor reads text operators from each page's content stream.
// It handles simple (single-byte) fonts; CID-keyed fonts come out garbled.
type PdfcpuExtractor struct {
	conf *model.Configuration
}

// NewPdfcpuExtractor returns an extractor with pdfcpu's default configuration.
func NewPdfcpuExtractor() *PdfcpuExtractor {
	return &PdfcpuExtractor{conf: model.NewDefaultConfiguration()}
}

// Extract returns the text of every page, one page per paragraph.
func (e *PdfcpuExtractor) Extract(path, format string) (string, error) {
	if err := checkFormat(format); err != nil {
		return "", err
	}

	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening PDF %s: %w", path, err)
	}
	defer f.Close()

	ctx, err := api.ReadValidateAndOptimize(f, e.conf)
	if err != nil {
		return "", fmt.Errorf("reading PDF %s: %w", path, err)
	}

	var pages []string
	for pageNr := 1; pageNr <= ctx.PageCount; pageNr++ {
		r, err := pdfcpu.ExtractPageContent(ctx, pageNr)
		if err != nil || r == nil {
			continue
		}
		data, err := io.ReadAll(r)
		if err != nil {
			continue
		}
		if text := contentText(data); text != "" {
			pages = append(pages, text)
		}
	}
	if len(pages) == 0 {
		return "", fmt.Errorf("%s: %w", path, ErrNoText)
	}
	return strings.Join(pages, "\n\n"), nil
}

// contentText scans a content stream for text-showing operators
// (Tj, TJ, ', ") and line moves (T*, Td, TD, Tm, ET).
func contentText(data []byte) string {
	var out strings.Builder
	var operands [][]byte
	s := &streamScanner{data: data}

	for {
		tok, kind := s.next()
		if kind == tokEOF {
			break
		}
		switch kind {
		case tokString, tokHexString:
			operands = append(operands, decodeString(tok, kind))
		case tokArrayStart, tokArrayEnd, tokOther:
			// numbers, names and array brackets are operands we do not need
		case tokOperator:
			switch string(tok) {
			case "Tj", "TJ":
				for _, o := range operands {
					out.Write(o)
				}
			case "'", `"`:
				out.WriteByte('\n')
				for _, o := range operands {
					out.Write(o)
				}
			case "T*", "ET":
				out.WriteByte('\n')
			case "Td", "TD", "Tm":
				out.WriteByte(' ')
			}
			operands = operands[:0]
		}
	}
	return normalizeText(out.String())
}

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokString
	tokHexString
	tokArrayStart
	tokArrayEnd
	tokOperator
	tokOther
)

// streamScanner is a minimal PDF content-stream lexer.
type streamScanner struct {
	data []byte
	pos  int
}

func (s *streamScanner) next() ([]byte, tokenKind) {
	for s.pos < len(s.data) && isPDFSpace(s.data[s.pos]) {
		s.pos++
	}
	if s.pos >= len(s.data) {
		return nil, tokEOF
	}

	c := s.data[s.pos]
	switch {
	case c == '%':
		for s.pos < len(s.data) && s.data[s.pos] != '\n' && s.data[s.pos] != '\r' {
			s.pos++
		}
		return s.next()
	case c == '(':
		return s.literal(), tokString
	case c == '<' && s.pos+1 < len(s.data) && s.data[s.pos+1] == '<':
		s.pos += 2
		return nil, tokOther
	case c == '>' && s.pos+1 < len(s.data) && s.data[s.pos+1] == '>':
		s.pos += 2
		return nil, tokOther
	case c == '<':
		start := s.pos + 1
		end := bytes.IndexByte(s.data[start:], '>')
		if end < 0 {
			s.pos = len(s.data)
			return nil, tokEOF
		}
		s.pos = start + end + 1
		return s.data[start : start+end], tokHexString
	case c == '[':
		s.pos++
		return nil, tokArrayStart
	case c == ']':
		s.pos++
		return nil, tokArrayEnd
	case c == '/' || c == '-' || c == '+' || c == '.' || (c >= '0' && c <= '9'):
		s.pos++
		s.skipRegular()
		return nil, tokOther
	}

	start := s.pos
	s.pos++
	if c != '\'' && c != '"' {
		s.skipRegular()
	}
	return s.data[start:s.pos], tokOperator
}

func (s *streamScanner) skipRegular() {
	for s.pos < len(s.data) && !isPDFSpace(s.data[s.pos]) && !isPDFDelimiter(s.data[s.pos]) {
		s.pos++
	}
}

// literal returns the raw bytes of a balanced (...) string without the
// outer parentheses; escapes are decoded later.
func (s *streamScanner) literal() []byte {
	s.pos++ // opening paren
	start := s.pos
	depth := 1
	for s.pos < len(s.data) {
		switch s.data[s.pos] {
		case '\\':
			s.pos++
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				raw := s.data[start:s.pos]
				s.pos++
				return raw
			}
		}
		s.pos++
	}
	return s.data[start:]
}

func decodeString(raw []byte, kind tokenKind) []byte {
	if kind == tokHexString {
		clean := bytes.Map(func(r rune) rune {
			if unicode.IsSpace(r) {
				return -1
			}
			return r
		}, raw)
		if len(clean)%2 == 1 {
			clean = append(clean, '0')
		}
		out := make([]byte, hex.DecodedLen(len(clean)))
		n, err := hex.Decode(out, clean)
		if err != nil {
			return nil
		}
		return out[:n]
	}

	var out []byte
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if c != '\\' || i+1 >= len(raw) {
			out = append(out, c)
			continue
		}
		i++
		switch e := raw[i]; e {
		case 'n':
			out = append(out, '\n')
		case 'r':
			out = append(out, '\r')
		case 't':
			out = append(out, '\t')
		case 'b', 'f':
			// backspace and form feed carry no text
		case '\n':
			// line continuation
		case '\r':
			if i+1 < len(raw) && raw[i+1] == '\n' {
				i++
			}
		default:
			if e >= '0' && e <= '7' {
				val := int(e - '0')
				for k := 0; k < 2 && i+1 < len(raw) && raw[i+1] >= '0' && raw[i+1] <= '7'; k++ {
					i++
					val = val*8 + int(raw[i]-'0')
				}
				out = append(out, byte(val))
			} else {
				out = append(out, e)
			}
		}
	}
	return out
}

// normalizeText collapses runs of spaces, keeps single line breaks, and
// drops unprintable bytes.
func normalizeText(s string) string {
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.Map(func(r rune) rune {
			if r == unicode.ReplacementChar || (!unicode.IsPrint(r) && !unicode.IsSpace(r)) {
				return -1
			}
			return r
		}, line)
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

func isPDFSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '\f', 0:
		return true
	}
	return false
}

func isPDFDelimiter(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}
