package history

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"

	keyPrefix = "oliva:history"
)

// Message is one chat turn
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Intent    string    `json:"intent,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Store keeps the recent conversation of each user; channel is "telegram" or "twilio"
type Store interface {
	Save(ctx context.Context, channel, user string, msg Message) error
	Recent(ctx context.Context, channel, user string, n int) ([]Message, error)
}

// Nop is used when Redis is not configured
type Nop struct{}

func (Nop) Save(context.Context, string, string, Message) error { return nil }

func (Nop) Recent(context.Context, string, string, int) ([]Message, error) { return nil, nil }

// RedisStore keeps a capped list per user
type RedisStore struct {
	rdb *redis.Client
	max int64
	ttl time.Duration
}

func NewRedisStore(rdb *redis.Client, max int) *RedisStore {
	if max <= 0 {
		max = 50
	}
	return &RedisStore{rdb: rdb, max: int64(max), ttl: 30 * 24 * time.Hour}
}

// Key is oliva:history:<channel>:<user>
func Key(channel, user string) string {
	return fmt.Sprintf("%s:%s:%s", keyPrefix, channel, user)
}

func (s *RedisStore) Save(ctx context.Context, channel, user string, msg Message) error {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	key := Key(channel, user)
	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, data)
		pipe.LTrim(ctx, key, -s.max, -1)
		pipe.Expire(ctx, key, s.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("save history: %w", err)
	}
	return nil
}

// Recent returns up to n messages, oldest first
func (s *RedisStore) Recent(ctx context.Context, channel, user string, n int) ([]Message, error) {
	if n <= 0 {
		return nil, nil
	}
	raw, err := s.rdb.LRange(ctx, Key(channel, user), int64(-n), -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	return decode(raw), nil
}

// decode skips entries that are not valid JSON
func decode(raw []string) []Message {
	msgs := make([]Message, 0, len(raw))
	for _, r := range raw {
		var m Message
		if err := json.Unmarshal([]byte(r), &m); err != nil {
			continue
		}
		msgs = append(msgs, m)
	}
	return msgs
}
