package session

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/teamhub/teamhub/internal/verification"
)

type fakeFetcher struct {
	user *User
	err  error
}

func (f *fakeFetcher) FetchUser(_ context.Context, token string) (*User, error) {
	if f.err != nil {
		return nil, f.err
	}
	if token == "" {
		return nil, ErrUnauthorized
	}
	copied := *f.user
	return &copied, nil
}

func pinUser() *User {
	method := MethodPIN
	return &User{ID: 7, TeamID: 3, Username: "jana", Role: "member", TwoFAMethod: &method}
}

func prague(year int, month time.Month, day, hour, minute int) time.Time {
	return time.Date(year, month, day, hour, minute, 0, 0, verification.Location())
}

func seedSession(store Store, user *User) {
	store.Set(KeyUserID, strconv.FormatUint(user.ID, 10))
	store.Set(KeyTeamID, strconv.FormatUint(user.TeamID, 10))
	store.Set(KeySessionToken, "token")
}

func TestStartWithoutIdentifiersStaysSignedOut(t *testing.T) {
	t.Parallel()
	m := NewManager(NewMemoryStore(), &fakeFetcher{user: pinUser()})
	state, errStart := m.Start(context.Background())
	if errStart != nil {
		t.Fatalf("start: %v", errStart)
	}
	if state.Authenticated || m.Step() != StepNone {
		t.Fatalf("unexpected state %+v", state)
	}
}

func TestStartStopsAtSetup(t *testing.T) {
	t.Parallel()
	store := NewMemoryStore()
	user := &User{ID: 1, TeamID: 1, TwoFASetupRequired: true}
	seedSession(store, user)
	m := NewManager(store, &fakeFetcher{user: user})

	state, errStart := m.Start(context.Background())
	if errStart != nil {
		t.Fatalf("start: %v", errStart)
	}
	if !state.SetupRequired || state.PendingVerification {
		t.Fatalf("unexpected state %+v", state)
	}
	if m.Step() != StepSetup {
		t.Fatalf("step = %v, want setup", m.Step())
	}
}

func TestStartMarksPendingButKeepsIdentifiers(t *testing.T) {
	t.Parallel()
	store := NewMemoryStore()
	user := pinUser()
	seedSession(store, user)
	store.Set(KeyPINVerified, "true")
	store.Set(KeyBiometricVerifiedLegacy, "true")
	store.Set(KeyVerificationTime, strconv.FormatInt(prague(2026, 5, 4, 12, 0).UnixMilli(), 10))

	m := NewManager(store, &fakeFetcher{user: user})
	m.now = func() time.Time { return prague(2026, 5, 5, 8, 0) }

	state, errStart := m.Start(context.Background())
	if errStart != nil {
		t.Fatalf("start: %v", errStart)
	}
	if !state.PendingVerification || m.Step() != StepPIN {
		t.Fatalf("expected pending pin step, got %+v", state)
	}
	for _, key := range verifiedFlagKeys {
		if _, ok := store.Get(key); ok {
			t.Fatalf("%s should be cleared", key)
		}
	}
	for _, key := range []string{KeyUserID, KeyTeamID, KeySessionToken} {
		if _, ok := store.Get(key); !ok {
			t.Fatalf("%s must survive re-verification", key)
		}
	}
	if value, _ := store.Get(KeyPending2FA); value != "true" {
		t.Fatalf("pending flag = %q", value)
	}
}

func TestStartSignsOutOnRejectedToken(t *testing.T) {
	t.Parallel()
	store := NewMemoryStore()
	seedSession(store, pinUser())
	store.Set(KeyBiometricCredential, "{}")
	store.Set(KeyPINHash, "stale")
	store.Set(KeyPINCredential, "stale")
	m := NewManager(store, &fakeFetcher{err: ErrUnauthorized})

	state, errStart := m.Start(context.Background())
	if errStart != nil || state.Authenticated {
		t.Fatalf("state=%+v err=%v", state, errStart)
	}
	if _, ok := store.Get(KeyUserID); ok {
		t.Fatalf("user id should be cleared")
	}
	for _, key := range []string{KeyPINHash, KeyPINCredential} {
		if _, ok := store.Get(key); ok {
			t.Fatalf("legacy key %s should be cleared", key)
		}
	}
	if _, ok := store.Get(KeyBiometricCredential); !ok {
		t.Fatalf("device biometric registration must survive sign out")
	}
}

func TestStartSurfacesFetchErrors(t *testing.T) {
	t.Parallel()
	store := NewMemoryStore()
	seedSession(store, pinUser())
	boom := errors.New("network down")
	m := NewManager(store, &fakeFetcher{err: boom})
	if _, errStart := m.Start(context.Background()); !errors.Is(errStart, boom) {
		t.Fatalf("expected wrapped fetch error, got %v", errStart)
	}
}

func TestVerificationFlipsAtNextPragueMorning(t *testing.T) {
	t.Parallel()
	store := NewMemoryStore()
	m := NewManager(store, &fakeFetcher{user: pinUser()})
	verifiedAt := prague(2026, 3, 9, 23, 30)
	m.now = func() time.Time { return verifiedAt }

	m.SignIn(pinUser(), "password-token")
	if m.Step() != StepPIN {
		t.Fatalf("fresh login must ask for the pin")
	}
	m.MarkVerified(MethodPIN, "verified-token", verifiedAt)
	if m.Step() != StepNone {
		t.Fatalf("verified session step = %v", m.Step())
	}
	if token, _ := store.Get(KeySessionToken); token != "verified-token" {
		t.Fatalf("token = %q", token)
	}

	m.now = func() time.Time { return prague(2026, 3, 10, 2, 59) }
	if m.Refresh() {
		t.Fatalf("must stay verified before 03:00")
	}

	m.now = func() time.Time { return prague(2026, 3, 10, 3, 1) }
	if !m.Refresh() {
		t.Fatalf("expected re-verification at 03:01, under 4h after verifying")
	}
	if m.Step() != StepPIN {
		t.Fatalf("step = %v, want pin", m.Step())
	}
	if m.Refresh() {
		t.Fatalf("refresh must report a crossing only once")
	}
}

func TestBiometricUserVerifiesOnBiometricPage(t *testing.T) {
	t.Parallel()
	method := MethodBiometric
	user := &User{ID: 2, TeamID: 1, TwoFAMethod: &method}
	store := NewMemoryStore()
	m := NewManager(store, &fakeFetcher{user: user})
	m.SignIn(user, "t")

	if m.Step() != StepBiometric {
		t.Fatalf("step = %v, want biometric", m.Step())
	}
	m.MarkVerified(MethodBiometric, "", time.Now())
	for _, key := range []string{KeyBiometricVerified, KeyBiometricVerifiedLegacy} {
		if value, _ := store.Get(key); value != "true" {
			t.Fatalf("%s = %q", key, value)
		}
	}
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

func TestWatchFiresOncePerCrossing(t *testing.T) {
	clk := &clock{now: prague(2026, 7, 1, 10, 0)}
	m := NewManager(NewMemoryStore(), &fakeFetcher{user: pinUser()})
	m.now = clk.Now
	m.SignIn(pinUser(), "t")
	m.MarkVerified(MethodPIN, "t2", clk.Now())

	fired := make(chan string, 4)
	stop := m.Watch(context.Background(), 5*time.Millisecond, func(path string) { fired <- path })
	defer stop()

	time.Sleep(20 * time.Millisecond)
	if len(fired) != 0 {
		t.Fatalf("watcher fired before the boundary")
	}

	clk.Set(prague(2026, 7, 2, 3, 0))
	select {
	case path := <-fired:
		if path != PathVerifyPIN {
			t.Fatalf("path = %q", path)
		}
	case <-time.After(time.Second):
		t.Fatalf("watcher did not fire after the boundary")
	}
	time.Sleep(30 * time.Millisecond)
	if len(fired) != 0 {
		t.Fatalf("watcher fired more than once for one crossing")
	}

	m.MarkVerified(MethodPIN, "t3", clk.Now())
	clk.Set(prague(2026, 7, 3, 3, 0))
	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatalf("re-armed watcher did not fire on the next crossing")
	}
}

func TestWatchStopsOnContextCancel(t *testing.T) {
	m := NewManager(NewMemoryStore(), &fakeFetcher{user: pinUser()})
	ctx, cancel := context.WithCancel(context.Background())
	stop := m.Watch(ctx, time.Millisecond, nil)
	cancel()

	done := make(chan struct{})
	go func() {
		stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("stop blocked after context cancel")
	}
}
