package connection_test

import (
	"encoding/json"
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/effective-security/xmcp/connection"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_SecretValues(t *testing.T) {
	token := gofakeit.UUID()

	sv, err := connection.NewSecretValues(connection.GitHub, map[string]string{"token": token})
	require.NoError(t, err)
	assert.Equal(t, token, sv.Get("token"))
	assert.Equal(t, token, sv.Primary())
	assert.True(t, sv.Complete())
	assert.Same(t, connection.GitHub, sv.Connection())
	assert.Equal(t, "SecretValues(github)", sv.String())
	assert.NotContains(t, sv.String(), token)

	js, err := json.Marshal(sv)
	require.NoError(t, err)
	assert.Equal(t, `{"connection":"github","values":{"token":"`+token+`"}}`, string(js))

	_, err = connection.NewSecretValues(connection.GitHub, map[string]string{"key": token})
	assert.EqualError(t, err, `unknown secret "key" for connection github`)

	_, err = connection.NewSecretValues(nil, nil)
	assert.EqualError(t, err, "connection is nil")
}

func Test_FromEnv(t *testing.T) {
	t.Setenv("X_BEARER_TOKEN", "")
	sv := connection.FromEnv(connection.X)
	assert.False(t, sv.Complete())
	assert.Empty(t, sv.Primary())

	t.Setenv("X_BEARER_TOKEN", "xtoken")
	sv = connection.FromEnv(connection.X)
	assert.True(t, sv.Complete())
	assert.Equal(t, "xtoken", sv.Primary())
	assert.Equal(t, map[string]string{"token": "xtoken"}, sv.Values())
}
