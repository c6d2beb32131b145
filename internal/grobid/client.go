// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package grobid submits PDFs to a GROBID server and maps the TEI response
// onto an ExtractedDocument.
package grobid

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/pdiddy/files-processor/internal/httputil"
	"github.com/pdiddy/files-processor/pkg/types"
)

const (
	defaultBaseURL = "http://localhost:8070"
	defaultTimeout = 60 * time.Second

	fulltextPath = "/api/processFulltextDocument"
	isAlivePath  = "/api/isalive"

	// inputField is the multipart field GROBID reads the PDF from.
	inputField = "input"
)

// ErrRequest wraps every failure to obtain a TEI document from GROBID.
var ErrRequest = errors.New("grobid request failed")

// StatusError reports a non-200 answer from GROBID.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("grobid returned HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("grobid returned HTTP %d: %s", e.StatusCode, e.Body)
}

// Client talks to one GROBID server.
type Client struct {
	baseURL     string
	userAgent   string
	maxRetries  int
	consolidate bool
	http        *http.Client
}

// NewClient builds a client from cfg, applying defaults for the URL and
// timeout.
func NewClient(cfg types.GrobidConfig) *Client {
	base := strings.TrimRight(cfg.URL, "/")
	if base == "" {
		base = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:     base,
		userAgent:   cfg.UserAgent,
		maxRetries:  cfg.MaxRetries,
		consolidate: cfg.ConsolidateHeader,
		http:        &http.Client{Timeout: timeout},
	}
}

// ProcessFulltext uploads the PDF read from pdf and returns the raw TEI XML.
// Busy answers (429, 503) are retried with backoff; everything else that is
// not HTTP 200 is an error wrapping ErrRequest.
func (c *Client) ProcessFulltext(ctx context.Context, pdf io.Reader, filename string) ([]byte, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile(inputField, filename)
	if err != nil {
		return nil, fmt.Errorf("%w: creating multipart field: %v", ErrRequest, err)
	}
	if _, err := io.Copy(part, pdf); err != nil {
		return nil, fmt.Errorf("%w: reading PDF: %v", ErrRequest, err)
	}
	if c.consolidate {
		if err := mw.WriteField("consolidateHeader", "1"); err != nil {
			return nil, fmt.Errorf("%w: writing field: %v", ErrRequest, err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("%w: closing multipart body: %v", ErrRequest, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+fulltextPath, bytes.NewReader(body.Bytes()))
	if err != nil {
		return nil, fmt.Errorf("%w: creating request: %v", ErrRequest, err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/xml")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := httputil.DoWithRetry(ctx, c.http, req, c.maxRetries)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRequest, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", ErrRequest, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %w", ErrRequest, &StatusError{
			StatusCode: resp.StatusCode,
			Body:       truncate(strings.TrimSpace(string(data)), 200),
		})
	}
	return data, nil
}

// Extract uploads the PDF and maps the TEI response to an ExtractedDocument.
func (c *Client) Extract(ctx context.Context, pdf io.Reader, filename string) (types.ExtractedDocument, error) {
	tei, err := c.ProcessFulltext(ctx, pdf, filename)
	if err != nil {
		return types.ExtractedDocument{}, err
	}
	doc, err := ParseTEI(tei)
	if err != nil {
		return types.ExtractedDocument{}, fmt.Errorf("%w: %w", ErrRequest, err)
	}
	return doc, nil
}

// Alive reports whether the GROBID server answers its liveness endpoint.
func (c *Client) Alive(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+isAlivePath, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("grobid unreachable at %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return &StatusError{StatusCode: resp.StatusCode}
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
