package dialect

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadDDF parses a CSV-DDF document. JSON documents are accepted as well as
// YAML since JSON is a subset of YAML. An empty document yields an empty map.
func LoadDDF(r io.Reader) (map[string]any, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read dialect: %w", err)
	}
	return ParseDDF(data)
}

// ParseDDF parses an in-memory CSV-DDF document.
func ParseDDF(data []byte) (map[string]any, error) {
	out := make(map[string]any)
	if len(bytes.TrimSpace(data)) == 0 {
		return out, nil
	}

	// A DDF is often embedded in a larger descriptor under a "dialect" key.
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse dialect: %w", err)
	}
	if nested, ok := doc["dialect"].(map[string]any); ok {
		doc = nested
	}

	for k, v := range doc {
		out[k] = v
	}
	return out, nil
}

// LoadDDFFile reads a CSV-DDF document from disk.
func LoadDDFFile(path string) (map[string]any, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dialect %s: %w", path, err)
	}
	defer f.Close()

	return LoadDDF(f)
}
