// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package mining submits document text to the OpenAIRE mining service and
// returns the project information it infers.
package mining

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pdiddy/files-processor/pkg/types"
)

const (
	// DefaultURL is the public OpenAIRE analyze endpoint.
	DefaultURL     = "http://mining.openaire.eu/openaireplus/analyze"
	defaultTimeout = 30 * time.Second
)

// ErrUnavailable reports that the mining service could not be reached.
var ErrUnavailable = errors.New("mining service unavailable")

// Client posts documents to one mining endpoint.
type Client struct {
	endpoint  string
	userAgent string
	http      *http.Client
}

// NewClient builds a client from cfg, applying defaults for the URL and
// timeout.
func NewClient(cfg types.MiningConfig) *Client {
	endpoint := cfg.URL
	if endpoint == "" {
		endpoint = DefaultURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		endpoint:  endpoint,
		userAgent: cfg.UserAgent,
		http:      &http.Client{Timeout: timeout},
	}
}

// Form builds the three form fields the analyze endpoint expects.
func Form(text string, setting types.OpenAIRESetting) url.Values {
	return url.Values{
		"document":       {text},
		"datacitations":  {setting.DataCitations.OnOff()},
		"classification": {setting.Classification.OnOff()},
	}
}

// Analyze submits text and returns the JSON response verbatim. A transport
// failure wraps ErrUnavailable unless ctx ended, in which case ctx.Err() is
// returned as is; a non-2xx status or a body that is not JSON is returned
// as a plain error.
func (c *Client) Analyze(ctx context.Context, text string, setting types.OpenAIRESetting) (types.ProjectInfo, error) {
	form := Form(text, setting)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("creating mining request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %w", ErrUnavailable, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("mining service returned HTTP %d", resp.StatusCode)
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("mining service returned invalid JSON")
	}
	return types.ProjectInfo(data), nil
}
