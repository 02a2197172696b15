package connection

import (
	"encoding/json"
	"os"

	"github.com/cockroachdb/errors"
)

// SecretValues binds actual values to the secrets of a connection
type SecretValues struct {
	conn   *Connection
	values map[string]string
}

// NewSecretValues returns the binding of values to the connection secrets,
// values are keyed by logical secret name
func NewSecretValues(conn *Connection, vals map[string]string) (*SecretValues, error) {
	if conn == nil {
		return nil, errors.New("connection is nil")
	}
	sv := &SecretValues{
		conn:   conn,
		values: make(map[string]string, len(vals)),
	}
	for name, v := range vals {
		if _, ok := conn.Secrets[name]; !ok {
			return nil, errors.Newf("unknown secret %q for connection %s", name, conn.Name)
		}
		sv.values[name] = v
	}
	return sv, nil
}

// FromEnv resolves every secret of the connection from the environment
func FromEnv(conn *Connection) *SecretValues {
	sv := &SecretValues{
		conn:   conn,
		values: make(map[string]string, len(conn.Secrets)),
	}
	for name, env := range conn.Secrets {
		sv.values[name] = os.Getenv(env)
	}
	return sv
}

// Connection returns the bound connection
func (s *SecretValues) Connection() *Connection {
	return s.conn
}

// Get returns the value of the logical secret
func (s *SecretValues) Get(name string) string {
	return s.values[name]
}

// Primary returns the value of the first secret in sorted name order
func (s *SecretValues) Primary() string {
	names := s.conn.Secrets.Names()
	if len(names) == 0 {
		return ""
	}
	return s.values[names[0]]
}

// Complete returns true when every secret has a non-empty value
func (s *SecretValues) Complete() bool {
	for name := range s.conn.Secrets {
		if s.values[name] == "" {
			return false
		}
	}
	return true
}

// Values returns a copy of the values keyed by logical name
func (s *SecretValues) Values() map[string]string {
	m := make(map[string]string, len(s.values))
	for k, v := range s.values {
		m[k] = v
	}
	return m
}

type secretValuesJSON struct {
	Connection string            `json:"connection"`
	Values     map[string]string `json:"values"`
}

// MarshalJSON returns {"connection":name,"values":{...}}
func (s *SecretValues) MarshalJSON() ([]byte, error) {
	return json.Marshal(secretValuesJSON{
		Connection: s.conn.Name,
		Values:     s.values,
	})
}

// String does not print the values
func (s *SecretValues) String() string {
	return "SecretValues(" + s.conn.Name + ")"
}
