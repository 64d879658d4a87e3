package dialog

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
)

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisStore(client, 0, nil), mr
}

// memLen counts the unexpired entries of m.
func memLen(m *MemoryStore) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	now := m.now()
	for _, e := range m.entries {
		if now.Before(e.expires) {
			n++
		}
	}
	return n
}

// storeContract runs the behaviour every Store must share.
func storeContract(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	got, err := s.Get(ctx, "5511")
	if err != nil {
		t.Fatalf("Get empty: %v", err)
	}
	if _, ok := got.(Idle); !ok {
		t.Errorf("Get empty = %#v, want Idle", got)
	}

	want := SelectingMap{Options: []MapOption{{Code: "1", TerritoryID: "t1"}}}
	if err := s.Set(ctx, "5511", want); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err = s.Get(ctx, "5511")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Get = %#v, want %#v", got, want)
	}

	if err := s.Set(ctx, "5511", AwaitingReason{AssignmentID: "a1"}); err != nil {
		t.Fatal(err)
	}
	got, _ = s.Get(ctx, "5511")
	if _, ok := got.(AwaitingReason); !ok {
		t.Errorf("overwrite = %#v, want AwaitingReason", got)
	}

	other, _ := s.Get(ctx, "5522")
	if _, ok := other.(Idle); !ok {
		t.Errorf("other phone = %#v, want Idle", other)
	}

	if err := s.Clear(ctx, "5511"); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	got, err = s.Get(ctx, "5511")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := got.(Idle); !ok {
		t.Errorf("after Clear = %#v, want Idle", got)
	}

	if err := s.Clear(ctx, "never-set"); err != nil {
		t.Errorf("Clear of absent key: %v", err)
	}
}

func TestRedisStore_Contract(t *testing.T) {
	s, _ := newRedisStore(t)
	storeContract(t, s)
}

func TestMemoryStore_Contract(t *testing.T) {
	storeContract(t, NewMemoryStore(0, nil))
}

func TestRedisStore_KeyAndTTL(t *testing.T) {
	s, mr := newRedisStore(t)
	ctx := context.Background()

	if err := s.Set(ctx, "5511", SelectingType{}); err != nil {
		t.Fatal(err)
	}
	if !mr.Exists("bot:state:5511") {
		t.Fatal("expected key bot:state:5511")
	}
	if got := mr.TTL("bot:state:5511"); got != 300*time.Second {
		t.Errorf("TTL = %v, want 300s", got)
	}
	val, err := mr.Get("bot:state:5511")
	if err != nil {
		t.Fatal(err)
	}
	if val != `{"step":"SELECT_TYPE"}` {
		t.Errorf("stored value = %s", val)
	}

	mr.FastForward(301 * time.Second)
	got, err := s.Get(ctx, "5511")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := got.(Idle); !ok {
		t.Errorf("after expiry = %#v, want Idle", got)
	}
}

func TestRedisStore_SetResetsTTL(t *testing.T) {
	s, mr := newRedisStore(t)
	ctx := context.Background()

	if err := s.Set(ctx, "5511", SelectingType{}); err != nil {
		t.Fatal(err)
	}
	mr.FastForward(200 * time.Second)
	if err := s.Set(ctx, "5511", AwaitingReason{AssignmentID: "a1"}); err != nil {
		t.Fatal(err)
	}
	mr.FastForward(200 * time.Second)

	got, _ := s.Get(ctx, "5511")
	if _, ok := got.(AwaitingReason); !ok {
		t.Errorf("state = %#v, want AwaitingReason kept alive by second Set", got)
	}
}

func TestRedisStore_CorruptValueIsIdle(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	logger, hook := logtest.NewNullLogger()
	s := NewRedisStore(client, 0, logger)
	mr.Set("bot:state:5511", `{"step":"SELECT_COLOR"}`)

	got, err := s.Get(context.Background(), "5511")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if _, ok := got.(Idle); !ok {
		t.Errorf("corrupt value = %#v, want Idle", got)
	}

	entry := hook.LastEntry()
	if entry == nil {
		t.Fatal("expected a warning for the corrupt value")
	}
	if entry.Level != logrus.WarnLevel || entry.Data["phone"] != "5511" || entry.Data["component"] != "dialog" {
		t.Errorf("entry = %s %v", entry.Level, entry.Data)
	}
}

func TestRedisStore_ConnectionError(t *testing.T) {
	s, mr := newRedisStore(t)
	mr.Close()

	if _, err := s.Get(context.Background(), "5511"); err == nil {
		t.Error("expected error when redis is down")
	}
}

func TestMemoryStore_Expiry(t *testing.T) {
	now := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	s := NewMemoryStore(5*time.Minute, func() time.Time { return now })
	ctx := context.Background()

	if err := s.Set(ctx, "5511", SelectingType{}); err != nil {
		t.Fatal(err)
	}
	now = now.Add(4 * time.Minute)
	if got, _ := s.Get(ctx, "5511"); got.Step() != StepSelectType {
		t.Errorf("before expiry = %s", got.Step())
	}
	if n := memLen(s); n != 1 {
		t.Errorf("len = %d, want 1", n)
	}

	now = now.Add(time.Minute)
	if got, _ := s.Get(ctx, "5511"); got.Step() != StepIdle {
		t.Errorf("at expiry = %s, want IDLE", got.Step())
	}
	if n := memLen(s); n != 0 {
		t.Errorf("len = %d, want 0", n)
	}
}
