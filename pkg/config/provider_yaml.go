package config

import (
	"os"

	"gopkg.in/yaml.v2"
)

// YAMLProvider implements ConfigProvider for YAML configuration files
type YAMLProvider struct {
	filename string
}

// NewYAMLProvider creates a new YAML configuration provider
func NewYAMLProvider(filename string) *YAMLProvider {
	return &YAMLProvider{
		filename: filename,
	}
}

// LoadConfig loads the configuration from the YAML file. Keys missing from
// the file keep their default values.
func (y *YAMLProvider) LoadConfig() (*Config, error) {
	cfgFile, err := os.ReadFile(y.filename)
	if err != nil {
		return nil, err
	}

	config := Defaults()
	if err := yaml.UnmarshalStrict(cfgFile, config); err != nil {
		return nil, err
	}
	return config, nil
}

// IsReadOnly returns true since YAML files are read-only in this implementation
func (y *YAMLProvider) IsReadOnly() bool {
	return true
}

// Close is a no-op for YAML provider
func (y *YAMLProvider) Close() error {
	return nil
}
