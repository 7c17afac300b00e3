package config

import (
	"bytes"
	"os"

	"sigs.k8s.io/yaml"

	"github.com/textsumlab/sumpipe/pkg/errors"
)

const (
	DefaultConfigFile = "config/config.yaml"
	DefaultParamsFile = "config/params.yaml"
)

// ReadParams loads and validates params.yaml.
func ReadParams(path string) (*Params, error) {
	params := &Params{}
	if err := readDocument(path, params); err != nil {
		return nil, err
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return params, nil
}

// ReadConfig loads and validates config.yaml.
func ReadConfig(path string) (*Config, error) {
	config := &Config{}
	if err := readDocument(path, config); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func readDocument(path string, into any) error {
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return errors.NewFileNotFoundError(path)
		}
		return errors.NewInternalError(err)
	}
	if len(bytes.TrimSpace(content)) == 0 {
		return errors.NewDocumentInvalidError(path, errDocumentEmpty)
	}
	if err := yaml.UnmarshalStrict(content, into); err != nil {
		return errors.NewDocumentInvalidError(path, err)
	}
	return nil
}

var errDocumentEmpty = errors.NewDataInvalidError("document is empty")

// Marshal renders a loaded document back to YAML. A marshal-then-read
// cycle yields an equivalent record.
func Marshal(doc any) ([]byte, error) {
	content, err := yaml.Marshal(doc)
	if err != nil {
		return nil, errors.NewInternalError(err)
	}
	return content, nil
}
