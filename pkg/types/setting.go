// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"go.yaml.in/yaml/v3"
)

// ErrInvalidSetting reports a processor setting that could not be decoded.
var ErrInvalidSetting = errors.New("invalid processor setting")

// Toggle is a boolean-like option. It decodes JSON and YAML booleans as well
// as the strings "on", "off", "true", "false", "yes", "no", "1" and "0".
type Toggle bool

// OnOff returns the form value the mining service expects.
func (t Toggle) OnOff() string {
	if t {
		return "on"
	}
	return "off"
}

func parseToggle(s string) (Toggle, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "on", "true", "yes", "1":
		return true, nil
	case "off", "false", "no", "0", "":
		return false, nil
	}
	return false, fmt.Errorf("%w: unrecognized toggle value %q", ErrInvalidSetting, s)
}

// UnmarshalJSON accepts booleans, numbers and on/off style strings.
func (t *Toggle) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*t = false
		return nil
	}
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*t = Toggle(b)
		return nil
	}
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*t = n != 0
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: toggle must be a boolean or string", ErrInvalidSetting)
	}
	v, err := parseToggle(s)
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// UnmarshalYAML accepts the same forms as UnmarshalJSON.
func (t *Toggle) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("%w: toggle must be a scalar", ErrInvalidSetting)
	}
	v, err := parseToggle(value.Value)
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// OpenAIRESetting controls the request sent to the mining service.
type OpenAIRESetting struct {
	// DataCitations asks the mining service to detect dataset citations.
	DataCitations Toggle `json:"datacitations" yaml:"datacitations"`

	// Classification asks the mining service to classify the document.
	Classification Toggle `json:"classification" yaml:"classification"`
}

// ProcessorSetting is the per-invocation configuration of a processor.
//
// An example:
//
//	grobid: true
//	openaire:
//	  datacitations: on
//	  classification: on
type ProcessorSetting struct {
	// Grobid enables structured extraction of the PDF header and body.
	Grobid bool `json:"grobid" yaml:"grobid"`

	// OpenAIRE enables project mining when non-nil. A present key whose
	// value is empty or null enables it with both sub-options off.
	OpenAIRE *OpenAIRESetting `json:"openaire,omitempty" yaml:"openaire,omitempty"`
}

const openAIREKey = "openaire"

// UnmarshalJSON decodes s, treating "openaire": null like an empty object.
func (s *ProcessorSetting) UnmarshalJSON(data []byte) error {
	type plain ProcessorSetting
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	if p.OpenAIRE == nil {
		var keys map[string]json.RawMessage
		if err := json.Unmarshal(data, &keys); err != nil {
			return err
		}
		for k := range keys {
			if strings.EqualFold(k, openAIREKey) {
				p.OpenAIRE = &OpenAIRESetting{}
				break
			}
		}
	}
	*s = ProcessorSetting(p)
	return nil
}

// UnmarshalYAML decodes s, treating a bare "openaire:" like an empty mapping.
func (s *ProcessorSetting) UnmarshalYAML(value *yaml.Node) error {
	type plain ProcessorSetting
	var p plain
	if err := value.Decode(&p); err != nil {
		return err
	}
	if p.OpenAIRE == nil && value.Kind == yaml.MappingNode {
		for i := 0; i+1 < len(value.Content); i += 2 {
			if value.Content[i].Value == openAIREKey {
				p.OpenAIRE = &OpenAIRESetting{}
				break
			}
		}
	}
	*s = ProcessorSetting(p)
	return nil
}

// DefaultProcessorSetting is used when neither the caller nor the
// configuration provides one.
func DefaultProcessorSetting() ProcessorSetting {
	return ProcessorSetting{Grobid: true}
}

// Clone returns a copy that shares no memory with s.
func (s ProcessorSetting) Clone() ProcessorSetting {
	out := ProcessorSetting{Grobid: s.Grobid}
	if s.OpenAIRE != nil {
		oa := *s.OpenAIRE
		out.OpenAIRE = &oa
	}
	return out
}

// ParseProcessorSetting decodes a JSON setting. Unknown keys are ignored.
func ParseProcessorSetting(data []byte) (ProcessorSetting, error) {
	var s ProcessorSetting
	if err := json.Unmarshal(data, &s); err != nil {
		if errors.Is(err, ErrInvalidSetting) {
			return ProcessorSetting{}, err
		}
		return ProcessorSetting{}, fmt.Errorf("%w: %v", ErrInvalidSetting, err)
	}
	return s, nil
}

// LoadProcessorSetting reads a YAML setting file. An empty path yields
// DefaultProcessorSetting.
func LoadProcessorSetting(path string) (ProcessorSetting, error) {
	if path == "" {
		return DefaultProcessorSetting(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return ProcessorSetting{}, fmt.Errorf("reading setting file %s: %w", path, err)
	}
	var s ProcessorSetting
	if err := yaml.Unmarshal(data, &s); err != nil {
		return ProcessorSetting{}, fmt.Errorf("%w: parsing %s: %v", ErrInvalidSetting, path, err)
	}
	return s, nil
}
