package posting

import (
	"fmt"
	"os"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// FromMap decodes a loosely typed posting, as found in request bodies and
// posting files, into a Record. Numeric values are accepted for text fields.
func FromMap(data map[string]any) (*Record, error) {
	var record Record

	cfg := &mapstructure.DecoderConfig{
		Result:           &record,
		TagName:          "json",
		WeaklyTypedInput: true,
	}

	decoder, err := mapstructure.NewDecoder(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating posting decoder: %w", err)
	}

	if err := decoder.Decode(data); err != nil {
		return nil, fmt.Errorf("decoding posting: %w", err)
	}

	normalized := record.Normalized()
	return &normalized, nil
}

// LoadFile reads a posting from a YAML or JSON file.
func LoadFile(path string) (*Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading posting file: %w", err)
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing posting file %q: %w", path, err)
	}

	if raw == nil {
		return &Record{}, nil
	}

	return FromMap(raw)
}
