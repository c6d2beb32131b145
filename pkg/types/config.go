// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines the data structures shared by the files-processor
// packages: stored object versions, processor settings, extracted documents,
// metadata records, and configuration.
package types

import "time"

// HTTPConfig holds shared HTTP settings used by clients of remote services.
type HTTPConfig struct {
	// Timeout bounds a single request, including reading the response.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests.
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// Permission selects how the HTTP endpoint authorizes callers.
type Permission string

const (
	PermissionAllowAll Permission = "allow_all"
	PermissionToken    Permission = "token"
)

// ServerConfig holds settings for the HTTP surface.
type ServerConfig struct {
	// Addr is the listen address (default ":5000").
	Addr string `json:"addr" yaml:"addr"`

	// Permission selects the access policy for /fileprocessor routes.
	Permission Permission `json:"permission" yaml:"permission"`

	// Token is the bearer token required when Permission is "token".
	// It is normally loaded from the files-processor-token secret.
	Token string `json:"-" yaml:"-"`

	// DefaultValue is echoed by the health endpoint; deployments use it to
	// tell instances apart.
	DefaultValue string `json:"default_value" yaml:"default_value"`

	// ShutdownTimeout bounds graceful shutdown (default 10s).
	ShutdownTimeout time.Duration `json:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// StoreConfig holds settings for the object version store.
type StoreConfig struct {
	// DBPath is the SQLite database file (default "data/files.db").
	DBPath string `json:"db_path" yaml:"db_path"`
}

// GrobidConfig holds settings for the structured-extraction service.
type GrobidConfig struct {
	HTTPConfig `yaml:",inline"`

	// URL is the GROBID base URL (e.g. "http://localhost:8070").
	URL string `json:"url" yaml:"url"`

	// MaxRetries is the number of retries when GROBID answers 429 or 503.
	MaxRetries int `json:"max_retries" yaml:"max_retries"`

	// ConsolidateHeader asks GROBID to consolidate header metadata
	// against an external bibliographic service.
	ConsolidateHeader bool `json:"consolidate_header" yaml:"consolidate_header"`
}

// MiningConfig holds settings for the OpenAIRE mining service.
type MiningConfig struct {
	HTTPConfig `yaml:",inline"`

	// URL is the analyze endpoint.
	URL string `json:"url" yaml:"url"`
}

// TextBackend identifies the plain-text extraction tool.
type TextBackend string

const (
	TextBackendPdfcpu    TextBackend = "pdfcpu"
	TextBackendPdftotext TextBackend = "pdftotext"
)

// TextConfig holds settings for plain-text extraction.
type TextConfig struct {
	// Backend selects the extractor: pdfcpu (in-process) or pdftotext
	// (poppler in a container).
	Backend TextBackend `json:"backend" yaml:"backend"`
}

// ProcessorConfig holds settings for the processor chain.
type ProcessorConfig struct {
	// SettingFile is a YAML ProcessorSetting used when a request carries none.
	SettingFile string `json:"setting_file" yaml:"setting_file"`
}

// Config groups all settings, read once at startup.
type Config struct {
	Server    ServerConfig    `json:"server" yaml:"server"`
	Store     StoreConfig     `json:"store" yaml:"store"`
	Grobid    GrobidConfig    `json:"grobid" yaml:"grobid"`
	Mining    MiningConfig    `json:"mining" yaml:"mining"`
	Text      TextConfig      `json:"text" yaml:"text"`
	Processor ProcessorConfig `json:"processor" yaml:"processor"`
}
