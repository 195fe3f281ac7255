package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"time"

	"github.com/yosuke-furukawa/json5/encoding/json5"
)

// Defaults match the limits PageVitals documents for its API.
const (
	DefaultAPIBase           = "https://api.pagevitals.com"
	DefaultCredentialsFile   = ".env"
	DefaultMaxCalls          = 50
	DefaultWindowSeconds     = 10
	DefaultRetryAfterSeconds = 10
)

// Config holds the CLI configuration
type Config struct {
	APIBase           string `json:"api_base,omitempty"`
	CredentialsFile   string `json:"credentials_file,omitempty"`
	MaxCalls          int    `json:"max_calls,omitempty"`
	WindowSeconds     int    `json:"window_seconds,omitempty"`
	RetryAfterDefault int    `json:"retry_after_default,omitempty"`
	DefaultOutput     string `json:"default_output,omitempty"`

	path string
}

// Default returns a config with every field at its default value.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads config from XDG path, returns defaults if file doesn't exist
func Load() (*Config, error) {
	return LoadFile(ConfigPath())
}

// LoadFile reads config from path. Fields missing from the file get their
// defaults.
func LoadFile(path string) (*Config, error) {
	cfg := &Config{path: path}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyDefaults()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := json5.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.APIBase == "" {
		c.APIBase = DefaultAPIBase
	}
	if c.CredentialsFile == "" {
		c.CredentialsFile = DefaultCredentialsFile
	}
	if c.MaxCalls == 0 {
		c.MaxCalls = DefaultMaxCalls
	}
	if c.WindowSeconds == 0 {
		c.WindowSeconds = DefaultWindowSeconds
	}
	if c.RetryAfterDefault == 0 {
		c.RetryAfterDefault = DefaultRetryAfterSeconds
	}
}

// Validate rejects budgets that could never admit a call.
func (c *Config) Validate() error {
	if c.MaxCalls < 0 {
		return fmt.Errorf("invalid config: max_calls must be positive, got %d", c.MaxCalls)
	}
	if c.WindowSeconds < 0 {
		return fmt.Errorf("invalid config: window_seconds must be positive, got %d", c.WindowSeconds)
	}
	if c.RetryAfterDefault < 0 {
		return fmt.Errorf("invalid config: retry_after_default must not be negative, got %d", c.RetryAfterDefault)
	}
	return nil
}

// Window returns the call budget window as a duration.
func (c *Config) Window() time.Duration {
	return time.Duration(c.WindowSeconds) * time.Second
}

// Path returns the file this config is saved to.
func (c *Config) Path() string {
	if c.path != "" {
		return c.path
	}
	return ConfigPath()
}

// Save writes the config to its file
func (c *Config) Save() error {
	path := c.Path()

	// Ensure parent directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// JSON is valid JSON5
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// Keys returns the config key names in declaration order.
func Keys() []string {
	t := reflect.TypeOf(Config{})
	keys := make([]string, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		if name := jsonName(t.Field(i)); name != "" {
			keys = append(keys, name)
		}
	}
	return keys
}

// Get retrieves a config value by key name
func (c *Config) Get(key string) (string, error) {
	field, err := c.field(key)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%v", field.Interface()), nil
}

// Set sets a config value by key name and saves
func (c *Config) Set(key, value string) error {
	field, err := c.field(key)
	if err != nil {
		return err
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int:
		n, err := strconv.Atoi(value)
		if err != nil || n <= 0 {
			return fmt.Errorf("%s must be a positive integer, got %q", key, value)
		}
		field.SetInt(int64(n))
	default:
		return fmt.Errorf("unsupported config key type: %s", key)
	}

	return c.Save()
}

// Unset resets a config value to its default and saves
func (c *Config) Unset(key string) error {
	field, err := c.field(key)
	if err != nil {
		return err
	}

	field.Set(reflect.Zero(field.Type()))
	c.applyDefaults()
	return c.Save()
}

func (c *Config) field(key string) (reflect.Value, error) {
	v := reflect.ValueOf(c).Elem()
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		if jsonName(t.Field(i)) == key {
			return v.Field(i), nil
		}
	}

	return reflect.Value{}, fmt.Errorf("unknown config key: %s", key)
}

func jsonName(f reflect.StructField) string {
	if !f.IsExported() {
		return ""
	}
	tag := f.Tag.Get("json")
	for i := 0; i < len(tag); i++ {
		if tag[i] == ',' {
			return tag[:i]
		}
	}
	return tag
}
