package sdk

import (
	"net/http"
	"os"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/x/values"
	"github.com/go-playground/validator/v10"
)

// Environment variables
const (
	EnvAPIKey     = "DEDALUS_API_KEY"
	EnvAPIURL     = "DEDALUS_API_URL"
	EnvASURL      = "DEDALUS_AS_URL"
	EnvMaxRetries = "DEDALUS_MAX_RETRIES"
)

// Defaults
const (
	DefaultBaseURL    = "http://localhost:8080"
	DefaultASBaseURL  = "http://localhost:4444"
	DefaultModel      = "openai/gpt-4.1"
	DefaultMaxRetries = 2
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Config of the Client
type Config struct {
	// APIKey of the product API
	APIKey string `json:"api_key" yaml:"api_key" toml:"api_key" validate:"required"`
	// BaseURL of the product API, /v1 is appended for model requests
	BaseURL string `json:"base_url" yaml:"base_url" toml:"base_url" validate:"required,url"`
	// ASBaseURL of the authorization server publishing the encryption key
	ASBaseURL string `json:"as_base_url" yaml:"as_base_url" toml:"as_base_url" validate:"required,url"`
	// MaxRetries of failed model requests
	MaxRetries int `json:"max_retries" yaml:"max_retries" toml:"max_retries" validate:"gte=0"`

	HTTPClient *http.Client `json:"-" yaml:"-" toml:"-"`
}

// ConfigFromEnv returns Config from the environment
func ConfigFromEnv() Config {
	retries := DefaultMaxRetries
	if v, err := strconv.Atoi(os.Getenv(EnvMaxRetries)); err == nil {
		retries = v
	}
	return Config{
		APIKey:     os.Getenv(EnvAPIKey),
		BaseURL:    values.StringsCoalesce(os.Getenv(EnvAPIURL), DefaultBaseURL),
		ASBaseURL:  values.StringsCoalesce(os.Getenv(EnvASURL), DefaultASBaseURL),
		MaxRetries: retries,
	}
}

// Validate returns error if the config is not valid
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "invalid SDK config")
	}
	return nil
}
