package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/benvon/smart-planner/internal/models"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "planner:session:"

// touchScript refreshes the TTLs of a live session and returns its meta hash and messages in
// the same step, so the caller never reads a session that expires before the refresh.
// KEYS: meta, messages. ARGV: ttl_ms. Returns nil when the session is absent.
var touchScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return false
end
redis.call('PEXPIRE', KEYS[1], ARGV[1])
redis.call('PEXPIRE', KEYS[2], ARGV[1])
return {redis.call('HGETALL', KEYS[1]), redis.call('LRANGE', KEYS[2], 0, -1)}
`)

// createScript writes the meta hash unless another instance created it first, in which case
// it only refreshes the TTLs.
// KEYS: meta, messages. ARGV: ttl_ms, user_id, now, preferences_json.
var createScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
  redis.call('PEXPIRE', KEYS[2], ARGV[1])
  return 0
end
redis.call('HSET', KEYS[1], 'user_id', ARGV[2], 'created_at', ARGV[3], 'updated_at', ARGV[3], 'preferences', ARGV[4])
redis.call('PEXPIRE', KEYS[1], ARGV[1])
return 1
`)

// appendScript pushes a message only when the session exists, trimming to the newest max entries.
// KEYS: meta, messages. ARGV: message_json, ttl_ms, now, max.
var appendScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return 0
end
redis.call('RPUSH', KEYS[2], ARGV[1])
local max = tonumber(ARGV[4])
if max > 0 then
  redis.call('LTRIM', KEYS[2], -max, -1)
end
redis.call('HSET', KEYS[1], 'updated_at', ARGV[3])
redis.call('PEXPIRE', KEYS[1], ARGV[2])
redis.call('PEXPIRE', KEYS[2], ARGV[2])
return 1
`)

// moodScript records the last mood only when the session exists.
// KEYS: meta, messages. ARGV: mood, ttl_ms, now.
var moodScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return 0
end
redis.call('HSET', KEYS[1], 'last_mood', ARGV[1], 'updated_at', ARGV[3])
redis.call('PEXPIRE', KEYS[1], ARGV[2])
redis.call('PEXPIRE', KEYS[2], ARGV[2])
return 1
`)

// RedisStore keeps sessions in Redis so any server instance can continue a conversation
type RedisStore struct {
	client *redis.Client
	prefs  PreferenceSource
	opts   Options
}

// NewRedisStore creates a Redis-backed store.
func NewRedisStore(client *redis.Client, prefs PreferenceSource, opts Options) *RedisStore {
	return &RedisStore{client: client, prefs: prefs, opts: opts.withDefaults()}
}

func metaKey(sessionID string) string     { return keyPrefix + sessionID + ":meta" }
func messagesKey(sessionID string) string { return keyPrefix + sessionID + ":messages" }

func (s *RedisStore) keys(sessionID string) []string {
	return []string{metaKey(sessionID), messagesKey(sessionID)}
}

func (s *RedisStore) ttlMillis() int64 {
	return s.opts.TTL.Milliseconds()
}

func (s *RedisStore) now() string {
	return s.opts.Now().UTC().Format(time.RFC3339Nano)
}

func (s *RedisStore) GetOrCreate(ctx context.Context, sessionID string, userID uuid.UUID) (*models.ConversationContext, error) {
	conv, err := s.touch(ctx, sessionID)
	if err == nil {
		return conv, nil
	}
	if !errors.Is(err, ErrSessionNotFound) {
		return nil, err
	}

	prefs := fetchPreferences(ctx, s.prefs, userID)
	prefsJSON, err := json.Marshal(prefs)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal preferences: %w", err)
	}
	if _, err := createScript.Run(ctx, s.client, s.keys(sessionID), s.ttlMillis(), userID.String(), s.now(), string(prefsJSON)).Result(); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return s.touch(ctx, sessionID)
}

// touch reads a live session and slides its TTL atomically.
func (s *RedisStore) touch(ctx context.Context, sessionID string) (*models.ConversationContext, error) {
	reply, err := touchScript.Run(ctx, s.client, s.keys(sessionID), s.ttlMillis()).Slice()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to refresh session: %w", err)
	}
	if len(reply) != 2 {
		return nil, fmt.Errorf("failed to refresh session: unexpected reply of %d elements", len(reply))
	}
	meta, err := stringPairs(reply[0])
	if err != nil {
		return nil, fmt.Errorf("corrupt session %s: meta: %w", sessionID, err)
	}
	messages, err := stringList(reply[1])
	if err != nil {
		return nil, fmt.Errorf("corrupt session %s: messages: %w", sessionID, err)
	}
	if len(meta) == 0 {
		return nil, ErrSessionNotFound
	}
	return decodeContext(sessionID, meta, messages)
}

func stringList(v any) ([]string, error) {
	items, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("expected array, got %T", v)
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		str, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("expected string, got %T", item)
		}
		out = append(out, str)
	}
	return out, nil
}

// stringPairs decodes a flat HGETALL reply into a map.
func stringPairs(v any) (map[string]string, error) {
	flat, err := stringList(v)
	if err != nil {
		return nil, err
	}
	if len(flat)%2 != 0 {
		return nil, errors.New("odd number of hash fields")
	}
	m := make(map[string]string, len(flat)/2)
	for i := 0; i < len(flat); i += 2 {
		m[flat[i]] = flat[i+1]
	}
	return m, nil
}

func (s *RedisStore) Get(ctx context.Context, sessionID string) (*models.ConversationContext, error) {
	pipe := s.client.Pipeline()
	metaCmd := pipe.HGetAll(ctx, metaKey(sessionID))
	msgsCmd := pipe.LRange(ctx, messagesKey(sessionID), 0, -1)
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}

	meta := metaCmd.Val()
	if len(meta) == 0 {
		return nil, ErrSessionNotFound
	}
	return decodeContext(sessionID, meta, msgsCmd.Val())
}

func (s *RedisStore) AppendMessage(ctx context.Context, sessionID string, role models.MessageRole, text string) (bool, error) {
	msg, err := json.Marshal(models.Message{Role: role, Text: text, Timestamp: s.opts.Now().UTC()})
	if err != nil {
		return false, fmt.Errorf("failed to marshal message: %w", err)
	}
	n, err := appendScript.Run(ctx, s.client, s.keys(sessionID), string(msg), s.ttlMillis(), s.now(), s.opts.MaxMessages).Int()
	if err != nil {
		return false, fmt.Errorf("failed to append message: %w", err)
	}
	return n == 1, nil
}

func (s *RedisStore) SetMood(ctx context.Context, sessionID string, mood models.Mood) (bool, error) {
	n, err := moodScript.Run(ctx, s.client, s.keys(sessionID), string(mood), s.ttlMillis(), s.now()).Int()
	if err != nil {
		return false, fmt.Errorf("failed to set mood: %w", err)
	}
	return n == 1, nil
}

func (s *RedisStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, s.keys(sessionID)...).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func decodeContext(sessionID string, meta map[string]string, rawMessages []string) (*models.ConversationContext, error) {
	conv := &models.ConversationContext{
		SessionID: sessionID,
		Messages:  make([]models.Message, 0, len(rawMessages)),
	}

	userID, err := uuid.Parse(meta["user_id"])
	if err != nil {
		return nil, fmt.Errorf("corrupt session %s: user_id: %w", sessionID, err)
	}
	conv.UserID = userID
	conv.CreatedAt, _ = time.Parse(time.RFC3339Nano, meta["created_at"])
	conv.UpdatedAt, _ = time.Parse(time.RFC3339Nano, meta["updated_at"])

	if raw := meta["last_mood"]; raw != "" {
		m := models.Mood(raw)
		conv.LastMood = &m
	}
	if raw := meta["preferences"]; raw != "" {
		var prefs models.UserPreferences
		if err := json.Unmarshal([]byte(raw), &prefs); err == nil {
			conv.Preferences = &prefs
		}
	}

	for i, raw := range rawMessages {
		var msg models.Message
		if err := json.Unmarshal([]byte(raw), &msg); err != nil {
			return nil, fmt.Errorf("corrupt session %s: message %s: %w", sessionID, strconv.Itoa(i), err)
		}
		conv.Messages = append(conv.Messages, msg)
	}
	return conv, nil
}
