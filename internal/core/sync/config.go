package sync

import (
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds configuration for the sync client and its HTTP transport.
type Config struct {
	// BaseURL is the server root, e.g. "http://localhost:8080".
	BaseURL string `json:"base_url" yaml:"base_url"`

	// DocumentPath is the path of the GET/PATCH document endpoint.
	DocumentPath string `json:"document_path" yaml:"document_path"`

	// ListField is the top-level sequence field a loaded document must
	// contain to be considered well formed.
	ListField string `json:"list_field" yaml:"list_field"`

	RequestTimeout time.Duration `json:"request_timeout" yaml:"request_timeout"`
}

// DefaultConfig returns the configuration used when nothing is overridden.
func DefaultConfig() Config {
	return Config{
		BaseURL:        "http://localhost:8080",
		DocumentPath:   "/api/v1/document",
		ListField:      "bridges",
		RequestTimeout: 10 * time.Second,
	}
}

// Validate reports configuration errors up front.
func (c Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("%w: base_url is required", ErrInvalidConfig)
	}
	if c.DocumentPath == "" {
		return fmt.Errorf("%w: document_path is required", ErrInvalidConfig)
	}
	if c.ListField == "" {
		return fmt.Errorf("%w: list_field is required", ErrInvalidConfig)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("%w: request_timeout must be positive", ErrInvalidConfig)
	}
	return nil
}

// UnmarshalYAML fills the config from YAML, leaving fields the document
// does not mention untouched and accepting durations in time.ParseDuration
// form ("2s", "500ms").
func (c *Config) UnmarshalYAML(node *yaml.Node) error {
	var raw struct {
		BaseURL        *string `yaml:"base_url"`
		DocumentPath   *string `yaml:"document_path"`
		ListField      *string `yaml:"list_field"`
		RequestTimeout *string `yaml:"request_timeout"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	if raw.BaseURL != nil {
		c.BaseURL = *raw.BaseURL
	}
	if raw.DocumentPath != nil {
		c.DocumentPath = *raw.DocumentPath
	}
	if raw.ListField != nil {
		c.ListField = *raw.ListField
	}
	if raw.RequestTimeout != nil {
		d, err := time.ParseDuration(*raw.RequestTimeout)
		if err != nil {
			return fmt.Errorf("request_timeout: %w", err)
		}
		c.RequestTimeout = d
	}
	return nil
}

// LoadConfig decodes a YAML config, filling unset fields from defaults.
func LoadConfig(r io.Reader) (Config, error) {
	c := DefaultConfig()
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&c); err != nil {
		return Config{}, fmt.Errorf("decode sync config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}
