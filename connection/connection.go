// Package connection describes upstream REST APIs and the secrets
// needed to call them.
package connection

import (
	"net/url"
	"os"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/x/values"
	"github.com/go-playground/validator/v10"
)

const (
	// DefaultAuthHeader is the header name used when Connection.AuthHeader is empty
	DefaultAuthHeader = "Authorization"
	// DefaultAuthHeaderFormat is the header format used when Connection.AuthHeaderFormat is empty
	DefaultAuthHeaderFormat = "Bearer {api_key}"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// SecretKeys maps logical secret names to environment variable keys,
// for example token -> X_BEARER_TOKEN
type SecretKeys map[string]string

// Names returns logical secret names in sorted order
func (k SecretKeys) Names() []string {
	names := make([]string, 0, len(k))
	for name := range k {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Connection is a static descriptor of an upstream API
type Connection struct {
	// Name is the identifier used by tools to address the connection
	Name string `json:"name" yaml:"name" toml:"name" validate:"required"`
	// Secrets lists the secrets required by the connection
	Secrets SecretKeys `json:"secrets" yaml:"secrets" toml:"secrets" validate:"required,min=1,dive,keys,required,endkeys,required"`
	// BaseURL is the absolute URL requests paths are appended to
	BaseURL string `json:"base_url" yaml:"base_url" toml:"base_url" validate:"required,url"`
	// AuthHeaderFormat is the format of the auth header value,
	// {api_key} is replaced with the primary secret
	AuthHeaderFormat string `json:"auth_header_format,omitempty" yaml:"auth_header_format,omitempty" toml:"auth_header_format,omitempty"`
	// AuthHeader is the name of the auth header
	AuthHeader string `json:"auth_header,omitempty" yaml:"auth_header,omitempty" toml:"auth_header,omitempty"`
}

// Validate returns error if the connection is not valid
func (c *Connection) Validate() error {
	if c == nil {
		return errors.New("connection is nil")
	}
	if err := validate.Struct(c); err != nil {
		return errors.Wrapf(err, "invalid connection %q", c.Name)
	}
	return nil
}

// HeaderName returns the auth header name
func (c *Connection) HeaderName() string {
	return values.StringsCoalesce(c.AuthHeader, DefaultAuthHeader)
}

// AuthHeaderValue returns the auth header value for the secret
func (c *Connection) AuthHeaderValue(secret string) string {
	format := values.StringsCoalesce(c.AuthHeaderFormat, DefaultAuthHeaderFormat)
	return strings.ReplaceAll(format, "{api_key}", secret)
}

// AuthHeaderValueFor returns the auth header value, substituting
// {api_key} with the primary secret and {<name>} with each named secret
func (c *Connection) AuthHeaderValueFor(sv *SecretValues) string {
	v := c.AuthHeaderValue(sv.Primary())
	for _, name := range c.Secrets.Names() {
		v = strings.ReplaceAll(v, "{"+name+"}", sv.Get(name))
	}
	return v
}

// URL returns the absolute URL of the request path,
// the path may include a query
func (c *Connection) URL(path string) string {
	if path == "" {
		return c.BaseURL
	}
	return strings.TrimSuffix(c.BaseURL, "/") + "/" + strings.TrimPrefix(path, "/")
}

// Host returns the host of BaseURL
func (c *Connection) Host() string {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return ""
	}
	return u.Host
}

// Map is a name -> connection index
type Map map[string]*Connection

// NewMap validates connections and returns them indexed by name
func NewMap(list ...*Connection) (Map, error) {
	m := make(Map, len(list))
	for _, c := range list {
		if err := c.Validate(); err != nil {
			return nil, err
		}
		if _, ok := m[c.Name]; ok {
			return nil, errors.Newf("duplicate connection: %s", c.Name)
		}
		m[c.Name] = c
	}
	return m, nil
}

// Names returns sorted connection names
func (m Map) Names() []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Predefined connections
var (
	// X is the X (Twitter) API v2 with App-Only bearer token
	X = &Connection{
		Name:             "x",
		Secrets:          SecretKeys{"token": "X_BEARER_TOKEN"},
		BaseURL:          "https://api.x.com/2",
		AuthHeaderFormat: DefaultAuthHeaderFormat,
	}

	// GitHub is the GitHub REST API with a personal access token
	GitHub = &Connection{
		Name:    "github",
		Secrets: SecretKeys{"token": "GITHUB_TOKEN"},
		BaseURL: "https://api.github.com",
	}
)

// Supabase returns a connection to the Supabase REST API of the project,
// when projectURL is empty, SUPABASE_URL environment is used
func Supabase(projectURL string) *Connection {
	projectURL = values.StringsCoalesce(projectURL, os.Getenv("SUPABASE_URL"))
	return &Connection{
		Name:    "supabase",
		Secrets: SecretKeys{"key": "SUPABASE_SECRET_KEY"},
		BaseURL: strings.TrimSuffix(projectURL, "/") + "/rest/v1",
	}
}
