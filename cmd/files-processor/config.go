// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/pdiddy/files-processor/internal/grobid"
	"github.com/pdiddy/files-processor/internal/mining"
	"github.com/pdiddy/files-processor/internal/processor"
	"github.com/pdiddy/files-processor/internal/processor/pdfmetadata"
	"github.com/pdiddy/files-processor/internal/secrets"
	"github.com/pdiddy/files-processor/internal/server"
	"github.com/pdiddy/files-processor/internal/textextract"
	"github.com/pdiddy/files-processor/pkg/types"
)

const defaultUserAgent = "files-processor/0.1"

// setDefaults registers every configuration key so that environment
// variables (FILES_PROCESSOR_GROBID_URL, ...) are honoured without a file.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":5000")
	v.SetDefault("server.permission", string(types.PermissionAllowAll))
	v.SetDefault("server.default_value", "")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("store.db_path", "data/files.db")

	v.SetDefault("grobid.url", "http://localhost:8070")
	v.SetDefault("grobid.timeout", 60*time.Second)
	v.SetDefault("grobid.max_retries", 3)
	v.SetDefault("grobid.consolidate_header", false)

	v.SetDefault("mining.url", mining.DefaultURL)
	v.SetDefault("mining.timeout", 30*time.Second)

	v.SetDefault("text.backend", string(types.TextBackendPdfcpu))
	v.SetDefault("processor.setting_file", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// loadConfig reads the effective configuration from v. The server token
// comes from the files-processor-token secret.
func loadConfig(v *viper.Viper, secretValues map[string]string) types.Config {
	return types.Config{
		Server: types.ServerConfig{
			Addr:            v.GetString("server.addr"),
			Permission:      types.Permission(v.GetString("server.permission")),
			Token:           secretValues[secrets.KeyToken],
			DefaultValue:    v.GetString("server.default_value"),
			ShutdownTimeout: v.GetDuration("server.shutdown_timeout"),
		},
		Store: types.StoreConfig{
			DBPath: v.GetString("store.db_path"),
		},
		Grobid: types.GrobidConfig{
			HTTPConfig: types.HTTPConfig{
				Timeout:   v.GetDuration("grobid.timeout"),
				UserAgent: defaultUserAgent,
			},
			URL:               v.GetString("grobid.url"),
			MaxRetries:        v.GetInt("grobid.max_retries"),
			ConsolidateHeader: v.GetBool("grobid.consolidate_header"),
		},
		Mining: types.MiningConfig{
			HTTPConfig: types.HTTPConfig{
				Timeout:   v.GetDuration("mining.timeout"),
				UserAgent: defaultUserAgent,
			},
			URL: v.GetString("mining.url"),
		},
		Text: types.TextConfig{
			Backend: types.TextBackend(v.GetString("text.backend")),
		},
		Processor: types.ProcessorConfig{
			SettingFile: v.GetString("processor.setting_file"),
		},
	}
}

// newLogger builds the structured logger. format is "text" or "json".
func newLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "", "info":
		lvl = slog.LevelInfo
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		return nil, fmt.Errorf("unknown log level %q", level)
	}

	opts := &slog.HandlerOptions{Level: lvl}
	switch strings.ToLower(format) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
}

// pipeline is the processor chain plus the clients behind it.
type pipeline struct {
	registry *processor.Registry
	grobid   *grobid.Client
}

// buildPipeline registers the processors in order. A pdftotext backend
// without a container runtime fails here, not on the first mining request.
func buildPipeline(cfg types.Config, logger *slog.Logger) (*pipeline, error) {
	text, err := textextract.New(cfg.Text)
	if err != nil {
		return nil, fmt.Errorf("text extraction: %w", err)
	}

	gc := grobid.NewClient(cfg.Grobid)
	mc := mining.NewClient(cfg.Mining)

	reg := processor.NewRegistry(logger)
	if err := reg.Register(pdfmetadata.New(gc, text, mc, logger)); err != nil {
		return nil, err
	}
	return &pipeline{registry: reg, grobid: gc}, nil
}

// healthChecks lists the dependencies reported by GET /healthz.
func (p *pipeline) healthChecks(store interface{ Ping(context.Context) error }) map[string]server.HealthCheck {
	return map[string]server.HealthCheck{
		"store":  store.Ping,
		"grobid": p.grobid.Alive,
	}
}
