// Package config loads the xmcp configuration from YAML, JSON or TOML files.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/cockroachdb/errors"
	"github.com/effective-security/x/configloader"
	"github.com/effective-security/x/values"
	"github.com/effective-security/xlog"
	"github.com/effective-security/xmcp/connection"
	"github.com/effective-security/xmcp/sdk"
	"github.com/effective-security/xmcp/server"
	"github.com/effective-security/xmcp/tools"
	"github.com/effective-security/xmcp/tools/smoke"
	"github.com/effective-security/xmcp/tools/x"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/xmcp", "config")

var validate = validator.New(validator.WithRequiredStructEnabled())

// Toolsets
const (
	ToolsetX     = "x"
	ToolsetSmoke = "smoke"
)

// DefaultToolsets are served when none are configured
var DefaultToolsets = []string{ToolsetSmoke, ToolsetX}

// Config of xmcp
type Config struct {
	// LogLevel is the global log level
	LogLevel string `json:"log_level,omitempty" yaml:"log_level,omitempty" toml:"log_level,omitempty" validate:"omitempty,oneof=TRACE DEBUG INFO WARNING ERROR"`
	// Server of the MCP endpoint
	Server server.Config `json:"server" yaml:"server" toml:"server"`
	// Connections are the upstream APIs, X by default
	Connections []*connection.Connection `json:"connections,omitempty" yaml:"connections,omitempty" toml:"connections,omitempty" validate:"dive"`
	// Toolsets served by the MCP server
	Toolsets []string `json:"toolsets,omitempty" yaml:"toolsets,omitempty" toml:"toolsets,omitempty" validate:"dive,oneof=x smoke"`
	// SDK client of the model API
	SDK sdk.Config `json:"sdk" yaml:"sdk" toml:"sdk" validate:"-"`
	// Store of the run history
	Store StoreConfig `json:"store" yaml:"store" toml:"store"`
}

// StoreConfig of the run history
type StoreConfig struct {
	// RedisURL enables the redis store, for example redis://localhost:6379/0
	RedisURL string `json:"redis_url,omitempty" yaml:"redis_url,omitempty" toml:"redis_url,omitempty" validate:"omitempty,url"`
	// Prefix of redis keys
	Prefix string `json:"prefix,omitempty" yaml:"prefix,omitempty" toml:"prefix,omitempty"`
}

// Load returns config from file, or the defaults when file is empty.
// Environment variables in the file are expanded.
func Load(file string) (*Config, error) {
	cfg := new(Config)
	if file != "" {
		var err error
		switch strings.ToLower(filepath.Ext(file)) {
		case ".toml":
			err = loadTOML(file, cfg)
		default:
			err = configloader.UnmarshalAndExpand(file, cfg)
		}
		if err != nil {
			return nil, errors.WithMessagef(err, "failed to load config %s", file)
		}
		logger.KV(xlog.DEBUG, "config", file)
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadTOML(file string, cfg *Config) error {
	b, err := os.ReadFile(file)
	if err != nil {
		return errors.WithStack(err)
	}
	md, err := toml.Decode(os.ExpandEnv(string(b)), cfg)
	if err != nil {
		return errors.WithStack(err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		logger.KV(xlog.WARNING, "reason", "unknown_keys", "file", file, "keys", undecoded)
	}
	return nil
}

// LoadDotEnv loads environment from the files that exist,
// .env by default
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}

	var existing []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return errors.Wrap(err, "failed to load environment")
	}
	return nil
}

// SetDefaults fills empty values
func (c *Config) SetDefaults() {
	c.Server.SetDefaults()
	if len(c.Connections) == 0 {
		c.Connections = []*connection.Connection{connection.X}
	}
	if len(c.Toolsets) == 0 {
		c.Toolsets = DefaultToolsets
	}

	env := sdk.ConfigFromEnv()
	c.SDK.APIKey = values.StringsCoalesce(c.SDK.APIKey, env.APIKey)
	c.SDK.BaseURL = values.StringsCoalesce(c.SDK.BaseURL, env.BaseURL)
	c.SDK.ASBaseURL = values.StringsCoalesce(c.SDK.ASBaseURL, env.ASBaseURL)
	if c.SDK.MaxRetries == 0 {
		c.SDK.MaxRetries = env.MaxRetries
	}
	c.Store.Prefix = values.StringsCoalesce(c.Store.Prefix, "xmcp")
}

// Validate returns error if the config is not valid
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "invalid config")
	}
	if _, err := connection.NewMap(c.Connections...); err != nil {
		return errors.WithMessage(err, "invalid config")
	}
	return nil
}

// Tools returns the tools of the configured toolsets
func (c *Config) Tools() []tools.IMCPTool {
	var list []tools.IMCPTool
	for _, ts := range c.Toolsets {
		switch ts {
		case ToolsetX:
			list = append(list, x.Tools()...)
		case ToolsetSmoke:
			list = append(list, smoke.Tools()...)
		}
	}
	return list
}
