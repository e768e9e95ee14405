package ceremony

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/redis/go-redis/v9"
)

func sampleSession() webauthn.SessionData {
	return webauthn.SessionData{
		Challenge:      "c2FtcGxlLWNoYWxsZW5nZQ",
		RelyingPartyID: "app.example.com",
		UserID:         []byte{0, 0, 0, 0, 0, 0, 0, 9},
	}
}

func TestMemoryStoreTakeIsSingleUse(t *testing.T) {
	t.Parallel()
	store := NewMemoryStore()
	ctx := context.Background()

	if err := store.Put(ctx, RegistrationKey(9), sampleSession(), time.Minute); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, err := store.Take(ctx, RegistrationKey(9))
	if err != nil {
		t.Fatalf("take: %v", err)
	}
	if got.Challenge != sampleSession().Challenge {
		t.Fatalf("challenge = %q", got.Challenge)
	}
	if _, err := store.Take(ctx, RegistrationKey(9)); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second take, got %v", err)
	}
}

func TestMemoryStoreExpires(t *testing.T) {
	t.Parallel()
	store := NewMemoryStore()
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return base }

	_ = store.Put(context.Background(), AssertionKey(1), sampleSession(), time.Minute)
	store.now = func() time.Time { return base.Add(2 * time.Minute) }

	if _, err := store.Take(context.Background(), AssertionKey(1)); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected expired ceremony, got %v", err)
	}
}

func TestRedisStoreRoundTrip(t *testing.T) {
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	store := NewRedisStore(client)
	t.Cleanup(func() { _ = store.Close() })
	ctx := context.Background()

	if err := store.Put(ctx, AssertionKey(12), sampleSession(), time.Minute); err != nil {
		t.Fatalf("put: %v", err)
	}
	if ttl := server.TTL(redisKeyPrefix + AssertionKey(12)); ttl <= 0 || ttl > time.Minute {
		t.Fatalf("unexpected ttl %s", ttl)
	}

	got, err := store.Take(ctx, AssertionKey(12))
	if err != nil {
		t.Fatalf("take: %v", err)
	}
	if got.RelyingPartyID != "app.example.com" || len(got.UserID) != 8 {
		t.Fatalf("unexpected session %+v", got)
	}
	if _, err := store.Take(ctx, AssertionKey(12)); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestKeysAreUserScoped(t *testing.T) {
	t.Parallel()
	if RegistrationKey(42) != "reg:42" || AssertionKey(0) != "login:0" {
		t.Fatalf("unexpected keys %q %q", RegistrationKey(42), AssertionKey(0))
	}
}
