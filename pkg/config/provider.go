package config

// ConfigProvider defines the interface for configuration data sources
type ConfigProvider interface {
	// LoadConfig returns the defaults overlaid with the source's settings
	LoadConfig() (*Config, error)

	IsReadOnly() bool
	Close() error
}

// ProfileWriter is implemented by providers that can store named profiles
type ProfileWriter interface {
	InitSchema() error
	SaveProfile(name string, cfg *Config) error
}
