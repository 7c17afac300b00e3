// Package report writes small YAML reports with stable key order, for
// the per-stage artifact reports and the training plan handed to the
// external driver.
package report

import (
	"os"
	"path/filepath"

	yaml "gopkg.in/yaml.v2"

	"github.com/textsumlab/sumpipe/pkg/errors"
)

// Report is an ordered set of fields. Values may themselves be a
// *Report for nested sections.
type Report struct {
	fields yaml.MapSlice
}

func New() *Report {
	return &Report{}
}

// Set appends a field, preserving insertion order.
func (r *Report) Set(key string, value interface{}) *Report {
	r.fields = append(r.fields, yaml.MapItem{Key: key, Value: value})
	return r
}

func (r *Report) mapSlice() yaml.MapSlice {
	out := make(yaml.MapSlice, 0, len(r.fields))
	for _, item := range r.fields {
		if nested, ok := item.Value.(*Report); ok {
			item.Value = nested.mapSlice()
		}
		out = append(out, item)
	}
	return out
}

func (r *Report) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(r.mapSlice())
	if err != nil {
		return nil, errors.NewInternalError(err)
	}
	return data, nil
}

// WriteFile writes the report, creating parent directories.
func (r *Report) WriteFile(filename string) error {
	data, err := r.Marshal()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
		return errors.NewInternalError(err)
	}
	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return errors.NewInternalError(err)
	}
	return nil
}
