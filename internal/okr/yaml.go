package okr

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"
)

// MarshalDatasetYAML renders a dataset as YAML with two-space indentation. The
// output is deterministic for a given dataset.
func MarshalDatasetYAML(ds Dataset) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(ds); err != nil {
		return nil, fmt.Errorf("encode dataset yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode dataset yaml: %w", err)
	}
	return buf.Bytes(), nil
}

// UnmarshalDatasetYAML parses a dataset previously written by
// MarshalDatasetYAML.
func UnmarshalDatasetYAML(data []byte) (Dataset, error) {
	var ds Dataset
	if err := yaml.Unmarshal(data, &ds); err != nil {
		return Dataset{}, fmt.Errorf("parse dataset yaml: %w", err)
	}
	return ds, nil
}
