package sdk

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
	"github.com/effective-security/xmcp/connection"
	"github.com/go-jose/go-jose/v4"
)

// JWKSPath is the path of the encryption keys on the authorization server
const JWKSPath = "/.well-known/jwks.json"

// SealedCredential is a connection secret encrypted for the authorization server
type SealedCredential struct {
	Connection string `json:"connection"`
	KeyID      string `json:"kid,omitempty"`
	// Ciphertext is JWE in compact serialization
	Ciphertext string `json:"ciphertext"`
}

// SealCredentials encrypts the values to the authorization server key,
// with RSA-OAEP-256 key wrapping and A256GCM content encryption
func (c *Client) SealCredentials(ctx context.Context, list ...*connection.SecretValues) ([]SealedCredential, error) {
	if len(list) == 0 {
		return nil, nil
	}

	key, err := c.encryptionKey(ctx)
	if err != nil {
		return nil, err
	}

	enc, err := jose.NewEncrypter(jose.A256GCM, jose.Recipient{
		Algorithm: jose.RSA_OAEP_256,
		Key:       key.Key,
		KeyID:     key.KeyID,
	}, (&jose.EncrypterOptions{}).WithContentType("JSON"))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create encrypter")
	}

	sealed := make([]SealedCredential, 0, len(list))
	for _, sv := range list {
		if sv == nil {
			return nil, errors.New("secret values are nil")
		}
		name := sv.Connection().Name
		if !sv.Complete() {
			logger.ContextKV(ctx, xlog.WARNING, "reason", "incomplete_secrets", "connection", name)
		}

		payload, err := json.Marshal(sv)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to marshal secrets for %s", name)
		}
		obj, err := enc.Encrypt(payload)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to encrypt secrets for %s", name)
		}
		compact, err := obj.CompactSerialize()
		if err != nil {
			return nil, errors.Wrapf(err, "failed to serialize secrets for %s", name)
		}
		sealed = append(sealed, SealedCredential{
			Connection: name,
			KeyID:      key.KeyID,
			Ciphertext: compact,
		})
	}
	return sealed, nil
}

// encryptionKey returns the cached authorization server key
func (c *Client) encryptionKey(ctx context.Context) (*jose.JSONWebKey, error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	if c.key != nil {
		return c.key, nil
	}

	set, err := c.fetchJWKS(ctx)
	if err != nil {
		return nil, err
	}
	key, err := selectEncryptionKey(set)
	if err != nil {
		return nil, err
	}
	c.key = key

	logger.ContextKV(ctx, xlog.DEBUG, "status", "encryption_key", "kid", key.KeyID)
	return key, nil
}

func (c *Client) fetchJWKS(ctx context.Context) (*jose.JSONWebKeySet, error) {
	u := strings.TrimSuffix(c.cfg.ASBaseURL, "/") + JWKSPath
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to fetch %s", u)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Newf("failed to fetch %s: HTTP %d", u, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, errors.Wrap(err, "failed to read JWKS")
	}
	var set jose.JSONWebKeySet
	if err = json.Unmarshal(body, &set); err != nil {
		return nil, errors.Wrap(err, "failed to decode JWKS")
	}
	return &set, nil
}

// selectEncryptionKey returns the first RSA key with use=enc,
// or the first RSA key
func selectEncryptionKey(set *jose.JSONWebKeySet) (*jose.JSONWebKey, error) {
	var first *jose.JSONWebKey
	for i := range set.Keys {
		k := &set.Keys[i]
		if _, ok := k.Key.(*rsa.PublicKey); !ok {
			continue
		}
		if k.Use == "enc" {
			return k, nil
		}
		if first == nil {
			first = k
		}
	}
	if first == nil {
		return nil, errors.New("no RSA encryption key in JWKS")
	}
	return first, nil
}
