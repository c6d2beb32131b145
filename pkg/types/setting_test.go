// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"
)

func TestToggleJSON(t *testing.T) {
	tests := []struct {
		in      string
		want    Toggle
		wantErr bool
	}{
		{in: `true`, want: true},
		{in: `false`, want: false},
		{in: `null`, want: false},
		{in: `1`, want: true},
		{in: `0`, want: false},
		{in: `"on"`, want: true},
		{in: `"ON"`, want: true},
		{in: `"off"`, want: false},
		{in: `"yes"`, want: true},
		{in: `"no"`, want: false},
		{in: `"1"`, want: true},
		{in: `""`, want: false},
		{in: `"maybe"`, wantErr: true},
		{in: `{}`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var got Toggle
			err := json.Unmarshal([]byte(tt.in), &got)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidSetting)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestToggleYAML(t *testing.T) {
	var s OpenAIRESetting
	require.NoError(t, yaml.Unmarshal([]byte("datacitations: on\nclassification: false\n"), &s))
	assert.Equal(t, OpenAIRESetting{DataCitations: true}, s)

	err := yaml.Unmarshal([]byte("datacitations: [on]\n"), &s)
	assert.ErrorIs(t, err, ErrInvalidSetting)
}

func TestToggleOnOff(t *testing.T) {
	assert.Equal(t, "on", Toggle(true).OnOff())
	assert.Equal(t, "off", Toggle(false).OnOff())
}

func TestParseProcessorSetting(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    ProcessorSetting
		wantErr bool
	}{
		{name: "grobid only", in: `{"grobid":true}`, want: ProcessorSetting{Grobid: true}},
		{name: "empty object", in: `{}`, want: ProcessorSetting{}},
		{name: "openaire present but empty", in: `{"openaire":{}}`, want: ProcessorSetting{OpenAIRE: &OpenAIRESetting{}}},
		{name: "openaire null", in: `{"grobid":true,"openaire":null}`, want: ProcessorSetting{Grobid: true, OpenAIRE: &OpenAIRESetting{}}},
		{name: "openaire absent", in: `{"grobid":true}`, want: ProcessorSetting{Grobid: true}},
		{name: "top-level null", in: `null`, want: ProcessorSetting{}},
		{
			name: "openaire toggles",
			in:   `{"grobid":false,"openaire":{"datacitations":"on","classification":"off"}}`,
			want: ProcessorSetting{OpenAIRE: &OpenAIRESetting{DataCitations: true}},
		},
		{name: "unknown keys ignored", in: `{"grobid":true,"ocr":true}`, want: ProcessorSetting{Grobid: true}},
		{name: "truncated", in: `{"grobid":`, wantErr: true},
		{name: "wrong type", in: `{"grobid":"yes"}`, wantErr: true},
		{name: "bad toggle", in: `{"openaire":{"datacitations":"sometimes"}}`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseProcessorSetting([]byte(tt.in))
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidSetting)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadProcessorSetting(t *testing.T) {
	got, err := LoadProcessorSetting("")
	require.NoError(t, err)
	assert.Equal(t, DefaultProcessorSetting(), got)

	dir := t.TempDir()
	path := filepath.Join(dir, "setting.yaml")
	require.NoError(t, os.WriteFile(path, []byte("grobid: true\nopenaire:\n  datacitations: yes\n  classification: off\n"), 0o644))

	got, err = LoadProcessorSetting(path)
	require.NoError(t, err)
	assert.Equal(t, ProcessorSetting{Grobid: true, OpenAIRE: &OpenAIRESetting{DataCitations: true}}, got)

	_, err = LoadProcessorSetting(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("grobid: [\n"), 0o644))
	_, err = LoadProcessorSetting(bad)
	assert.ErrorIs(t, err, ErrInvalidSetting)
}

func TestProcessorSettingYAML(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want ProcessorSetting
	}{
		{name: "bare openaire", in: "grobid: true\nopenaire:\n", want: ProcessorSetting{Grobid: true, OpenAIRE: &OpenAIRESetting{}}},
		{name: "openaire null", in: "grobid: true\nopenaire: null\n", want: ProcessorSetting{Grobid: true, OpenAIRE: &OpenAIRESetting{}}},
		{name: "openaire empty mapping", in: "openaire: {}\n", want: ProcessorSetting{OpenAIRE: &OpenAIRESetting{}}},
		{name: "openaire absent", in: "grobid: true\n", want: ProcessorSetting{Grobid: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got ProcessorSetting
			require.NoError(t, yaml.Unmarshal([]byte(tt.in), &got))
			assert.Equal(t, tt.want, got)
		})
	}

	path := filepath.Join(t.TempDir(), "setting.yaml")
	require.NoError(t, os.WriteFile(path, []byte("grobid: true\nopenaire:\n"), 0o644))
	got, err := LoadProcessorSetting(path)
	require.NoError(t, err)
	assert.Equal(t, ProcessorSetting{Grobid: true, OpenAIRE: &OpenAIRESetting{}}, got)
}

func TestClone(t *testing.T) {
	orig := ProcessorSetting{Grobid: true, OpenAIRE: &OpenAIRESetting{Classification: true}}
	c := orig.Clone()
	assert.Equal(t, orig, c)

	c.OpenAIRE.Classification = false
	c.Grobid = false
	assert.True(t, bool(orig.OpenAIRE.Classification))
	assert.True(t, orig.Grobid)

	assert.Nil(t, ProcessorSetting{}.Clone().OpenAIRE)
}
