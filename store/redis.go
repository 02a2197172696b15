package store

import (
	"context"
	"encoding/json"
	"path"
	"sort"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
	"github.com/redis/go-redis/v9"
)

// The redis store keeps each session as a list of JSON messages.
// The keys namespace is organized as follows:
// - `<prefix>/runstore/messages/<sessionID>` list of messages
// - `<prefix>/runstore/sessions` set of session IDs

type redisStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisStore returns Store backed by Redis
func NewRedisStore(client redis.UniversalClient, prefix string) Store {
	return &redisStore{
		client: client,
		prefix: prefix,
	}
}

func (m *redisStore) messagesKey(sessionID string) string {
	return path.Join(m.prefix, "runstore", "messages", sessionID)
}

func (m *redisStore) sessionsKey() string {
	return path.Join(m.prefix, "runstore", "sessions")
}

func (m *redisStore) Messages(ctx context.Context, sessionID string) ([]json.RawMessage, error) {
	if err := checkSession(sessionID); err != nil {
		return nil, err
	}

	data, err := m.client.LRange(ctx, m.messagesKey(sessionID), 0, -1).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to get messages from Redis")
	}

	msgs := make([]json.RawMessage, 0, len(data))
	for _, item := range data {
		if !json.Valid([]byte(item)) {
			logger.ContextKV(ctx, xlog.ERROR, "reason", "invalid_message", "session", sessionID)
			continue
		}
		msgs = append(msgs, json.RawMessage(item))
	}
	return msgs, nil
}

func (m *redisStore) Add(ctx context.Context, sessionID string, msgs ...json.RawMessage) error {
	if err := checkSession(sessionID); err != nil {
		return err
	}
	if len(msgs) == 0 {
		return nil
	}

	items := make([]any, len(msgs))
	for i, msg := range msgs {
		items[i] = []byte(msg)
	}

	key := m.messagesKey(sessionID)
	pipe := m.client.TxPipeline()
	pipe.RPush(ctx, key, items...)
	pipe.LTrim(ctx, key, -MaxMessages, -1)
	pipe.SAdd(ctx, m.sessionsKey(), sessionID)
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Wrap(err, "failed to store messages in Redis")
	}
	return nil
}

func (m *redisStore) Reset(ctx context.Context, sessionID string) error {
	if err := checkSession(sessionID); err != nil {
		return err
	}

	pipe := m.client.TxPipeline()
	pipe.Del(ctx, m.messagesKey(sessionID))
	pipe.SRem(ctx, m.sessionsKey(), sessionID)
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Wrap(err, "failed to reset session in Redis")
	}
	return nil
}

func (m *redisStore) ListSessions(ctx context.Context) ([]string, error) {
	list, err := m.client.SMembers(ctx, m.sessionsKey()).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to list sessions from Redis")
	}
	sort.Strings(list)
	return list, nil
}
