// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/files-processor/internal/secrets"
	"github.com/pdiddy/files-processor/pkg/types"
)

func TestLoadConfigDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	cfg := loadConfig(v, map[string]string{secrets.KeyToken: "tok"})
	assert.Equal(t, ":5000", cfg.Server.Addr)
	assert.Equal(t, types.PermissionAllowAll, cfg.Server.Permission)
	assert.Equal(t, "tok", cfg.Server.Token)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "data/files.db", cfg.Store.DBPath)
	assert.Equal(t, "http://localhost:8070", cfg.Grobid.URL)
	assert.Equal(t, 60*time.Second, cfg.Grobid.Timeout)
	assert.Equal(t, 3, cfg.Grobid.MaxRetries)
	assert.Equal(t, 30*time.Second, cfg.Mining.Timeout)
	assert.Equal(t, types.TextBackendPdfcpu, cfg.Text.Backend)
	assert.Empty(t, cfg.Processor.SettingFile)
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "files-processor.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: ":8080"
  permission: token
grobid:
  url: http://grobid:8070
  timeout: 2m
mining:
  timeout: 5s
processor:
  setting_file: setting.yaml
`), 0o644))

	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	cfg := loadConfig(v, nil)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, types.PermissionToken, cfg.Server.Permission)
	assert.Empty(t, cfg.Server.Token)
	assert.Equal(t, "http://grobid:8070", cfg.Grobid.URL)
	assert.Equal(t, 2*time.Minute, cfg.Grobid.Timeout)
	assert.Equal(t, 5*time.Second, cfg.Mining.Timeout)
	assert.Equal(t, "setting.yaml", cfg.Processor.SettingFile)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := newLogger(&buf, "warn", "json")
	require.NoError(t, err)
	logger.Info("hidden")
	logger.Warn("shown", "version_id", "v1")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)
	assert.Contains(t, buf.String(), `"version_id":"v1"`)

	buf.Reset()
	logger, err = newLogger(&buf, "", "")
	require.NoError(t, err)
	logger.Info("text")
	assert.Contains(t, buf.String(), "msg=text")

	_, err = newLogger(&buf, "loud", "text")
	assert.Error(t, err)
	_, err = newLogger(&buf, "info", "xml")
	assert.Error(t, err)
}

func TestSettingFromFlag(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "setting.yaml")
	require.NoError(t, os.WriteFile(file, []byte("grobid: false\nopenaire:\n  datacitations: on\n"), 0o644))

	tests := []struct {
		name    string
		raw     string
		file    string
		want    types.ProcessorSetting
		wantErr bool
	}{
		{name: "default", want: types.ProcessorSetting{Grobid: true}},
		{name: "configured file", file: file, want: types.ProcessorSetting{OpenAIRE: &types.OpenAIRESetting{DataCitations: true}}},
		{name: "inline JSON", raw: `{"grobid":true,"openaire":{}}`, want: types.ProcessorSetting{Grobid: true, OpenAIRE: &types.OpenAIRESetting{}}},
		{name: "at file", raw: "@" + file, want: types.ProcessorSetting{OpenAIRE: &types.OpenAIRESetting{DataCitations: true}}},
		{name: "bare at", raw: "@", wantErr: true},
		{name: "missing file", raw: "@" + filepath.Join(dir, "nope.yaml"), wantErr: true},
		{name: "bad JSON", raw: `{"grobid":`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := settingFromFlag(tt.raw, tt.file)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatVersions(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, formatVersions(&buf, nil, false))
	assert.Equal(t, "No files stored.\n", buf.String())

	versions := []*types.ObjectVersion{{
		VersionID: "0b7c5d1e-4a8f-4c52-9d1e-2f3a4b5c6d7e",
		Bucket:    "default",
		Key:       "paper.pdf",
		MimeType:  types.MimePDF,
		Size:      1024,
	}}

	buf.Reset()
	require.NoError(t, formatVersions(&buf, versions, false))
	assert.Contains(t, buf.String(), "0b7c5d1e-4a8f-4c52-9d1e-2f3a4b5c6d7e")
	assert.Contains(t, buf.String(), "paper.pdf")
	assert.Contains(t, buf.String(), "1 files")

	buf.Reset()
	require.NoError(t, formatVersions(&buf, versions, true))
	assert.Contains(t, buf.String(), `"mimetype": "application/pdf"`)
}
