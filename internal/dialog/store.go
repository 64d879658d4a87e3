package dialog

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/zulandar/territorio/internal/logging"
)

// DefaultTTL is how long a conversation may sit idle before it is forgotten.
const DefaultTTL = 5 * time.Minute

// KeyPrefix namespaces dialog state keys in Redis.
const KeyPrefix = "bot:state:"

// Store keeps one State per phone number. Get returns Idle for a phone with
// no stored or an expired state; Set overwrites and restarts the expiry.
type Store interface {
	Get(ctx context.Context, phone string) (State, error)
	Set(ctx context.Context, phone string, s State) error
	Clear(ctx context.Context, phone string) error
}

// RedisStore persists states as JSON strings with a TTL.
type RedisStore struct {
	client redis.Cmdable
	ttl    time.Duration
	log    logrus.FieldLogger
}

// NewRedisStore returns a Store backed by client. A non-positive ttl selects
// DefaultTTL. A nil logger discards.
func NewRedisStore(client redis.Cmdable, ttl time.Duration, logger logrus.FieldLogger) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{client: client, ttl: ttl, log: logging.Component(logger, "dialog")}
}

// Key returns the Redis key holding the state of phone.
func Key(phone string) string {
	return KeyPrefix + phone
}

// Get loads the state of phone. A value that no longer decodes is treated as
// Idle so a corrupt entry cannot wedge the conversation.
func (r *RedisStore) Get(ctx context.Context, phone string) (State, error) {
	data, err := r.client.Get(ctx, Key(phone)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Idle{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("dialog: get %s: %w", phone, err)
	}
	s, err := Decode(data)
	if err != nil {
		r.log.WithFields(logrus.Fields{"phone": phone, "error": err}).Warn("discarding undecodable dialog state")
		return Idle{}, nil
	}
	return s, nil
}

// Set stores s for phone and restarts its expiry.
func (r *RedisStore) Set(ctx context.Context, phone string, s State) error {
	data, err := Encode(s)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, Key(phone), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("dialog: set %s: %w", phone, err)
	}
	return nil
}

// Clear forgets the state of phone.
func (r *RedisStore) Clear(ctx context.Context, phone string) error {
	if err := r.client.Del(ctx, Key(phone)).Err(); err != nil {
		return fmt.Errorf("dialog: clear %s: %w", phone, err)
	}
	return nil
}

// MemoryStore is an in-process Store. Expired entries are dropped when read.
type MemoryStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]memoryEntry
}

type memoryEntry struct {
	state   State
	expires time.Time
}

// NewMemoryStore returns an empty MemoryStore. A nil now uses time.Now.
func NewMemoryStore(ttl time.Duration, now func() time.Time) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{ttl: ttl, now: now, entries: make(map[string]memoryEntry)}
}

func (m *MemoryStore) Get(_ context.Context, phone string) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[phone]
	if !ok {
		return Idle{}, nil
	}
	if !m.now().Before(e.expires) {
		delete(m.entries, phone)
		return Idle{}, nil
	}
	return e.state, nil
}

func (m *MemoryStore) Set(_ context.Context, phone string, s State) error {
	if s == nil {
		s = Idle{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[phone] = memoryEntry{state: s, expires: m.now().Add(m.ttl)}
	return nil
}

func (m *MemoryStore) Clear(_ context.Context, phone string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, phone)
	return nil
}
