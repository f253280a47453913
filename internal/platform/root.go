package platform

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigFile is the name of the optional project configuration file.
const ConfigFile = "noteboard.yaml"

// TokenEnv names the environment variable holding the rest bearer token.
const TokenEnv = "NOTEBOARD_TOKEN"

// ErrRootNotFound is returned by FindRoot when no indicator is found.
var ErrRootNotFound = errors.New("board root not found")

// Config is the content of noteboard.yaml. Empty fields keep the defaults.
type Config struct {
	Adapter     string        `yaml:"adapter"`
	Dir         string        `yaml:"dir"`
	URL         string        `yaml:"url"`
	Token       string        `yaml:"token"`
	Format      string        `yaml:"format"`
	Versioning  *bool         `yaml:"versioning"`
	Timeout     time.Duration `yaml:"timeout"`
	EventBuffer int           `yaml:"event_buffer"`
}

// FindRoot recursively looks upwards for a board root indicator.
// Indicators are: noteboard.yaml, a board document, or a .git directory.
// If found, returns the absolute path to the root.
func FindRoot(startDir string) (string, error) {
	abs, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	dir := abs
	for {
		if hasFile(dir, ConfigFile) || hasFile(dir, "board.yaml") || hasFile(dir, "board.yml") ||
			hasFile(dir, "board.json") || hasFile(dir, ".git") {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", ErrRootNotFound
}

func hasFile(dir, name string) bool {
	_, err := os.Stat(filepath.Join(dir, name))
	return err == nil
}

// LoadConfig reads noteboard.yaml from dir. A missing file yields an empty
// config. A relative Dir is resolved against dir. The token falls back to
// the TokenEnv environment variable.
func LoadConfig(dir string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(filepath.Join(dir, ConfigFile))
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", ConfigFile, err)
		}
	case !os.IsNotExist(err):
		return nil, err
	}

	if cfg.Dir != "" && !filepath.IsAbs(cfg.Dir) {
		cfg.Dir = filepath.Join(dir, cfg.Dir)
	}
	if cfg.Token == "" {
		cfg.Token = os.Getenv(TokenEnv)
	}
	return cfg, nil
}

// Options converts the config into factory options.
func (c *Config) Options() []Option {
	var opts []Option
	if c.Adapter != "" {
		opts = append(opts, WithAdapter(c.Adapter))
	}
	if c.Token != "" {
		opts = append(opts, WithToken(c.Token))
	}
	if c.Format != "" {
		opts = append(opts, WithFormat(c.Format))
	}
	if c.Versioning != nil {
		opts = append(opts, WithVersioning(*c.Versioning))
	}
	if c.Timeout > 0 {
		opts = append(opts, WithTimeout(c.Timeout))
	}
	if c.EventBuffer > 0 {
		opts = append(opts, WithEventBuffer(c.EventBuffer))
	}
	return opts
}

// URI returns the adapter-specific location: URL for rest, Dir otherwise.
func (c *Config) URI() string {
	if c.Adapter == AdapterREST {
		return c.URL
	}
	return c.Dir
}
