package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/teamhub/teamhub/internal/verification"
)

// Client routes.
const (
	PathLogin           = "/login"
	PathHome            = "/"
	PathSetup2FA        = "/setup-2fa"
	PathVerifyPIN       = "/verify-pin"
	PathVerifyBiometric = "/verify-biometric"
)

// DefaultWatchInterval is how often the watcher re-evaluates the clock.
const DefaultWatchInterval = time.Minute

// Step is the next authentication step the client must complete.
type Step int

const (
	StepNone Step = iota
	StepSetup
	StepPIN
	StepBiometric
)

// State is a snapshot of the client session.
type State struct {
	User                *User
	Authenticated       bool
	SetupRequired       bool
	PendingVerification bool
}

// Manager owns the session state backed by a Store.
type Manager struct {
	store Store
	users UserFetcher
	now   func() time.Time

	mu    sync.Mutex
	state State
	watch *watcher
}

// NewManager constructs a Manager.
func NewManager(store Store, users UserFetcher) *Manager {
	return &Manager{store: store, users: users, now: time.Now}
}

// Start restores a persisted session. Without stored identifiers the session
// stays signed out. An account that still has to set up 2FA stops there;
// otherwise the verification clock decides whether the 2FA step is due again.
func (m *Manager) Start(ctx context.Context) (State, error) {
	token, hasToken := m.store.Get(KeySessionToken)
	_, hasUser := m.store.Get(KeyUserID)
	if !hasToken || !hasUser {
		m.mu.Lock()
		m.state = State{}
		m.mu.Unlock()
		return State{}, nil
	}

	user, errFetch := m.users.FetchUser(ctx, token)
	if errFetch != nil {
		if errors.Is(errFetch, ErrUnauthorized) {
			log.Info("stored session rejected, signing out")
			m.SignOut()
			return State{}, nil
		}
		return State{}, fmt.Errorf("session: fetch user: %w", errFetch)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.applyUserLocked(user)
	return m.state, nil
}

// SignIn stores the identifiers from a password login and evaluates the 2FA state.
func (m *Manager) SignIn(user *User, token string) State {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.store.Set(KeyUserID, strconv.FormatUint(user.ID, 10))
	m.store.Set(KeyTeamID, strconv.FormatUint(user.TeamID, 10))
	m.store.Set(KeySessionToken, token)
	m.applyUserLocked(user)
	return m.state
}

func (m *Manager) applyUserLocked(user *User) {
	m.state = State{User: user, Authenticated: true}
	if method := user.Method(); method != "" {
		m.store.Set(KeyTwoFAMethod, method)
	} else {
		m.store.Remove(KeyTwoFAMethod)
	}
	if user.TwoFASetupRequired {
		m.state.SetupRequired = true
		return
	}
	if _, pending := m.store.Get(KeyPending2FA); pending || m.verificationDueLocked() {
		m.markPendingLocked()
	}
}

func (m *Manager) lastVerifiedLocked() *time.Time {
	raw, ok := m.store.Get(KeyVerificationTime)
	if !ok {
		return nil
	}
	millis, errParse := strconv.ParseInt(raw, 10, 64)
	if errParse != nil {
		return nil
	}
	return verification.FromMillis(millis)
}

func (m *Manager) verificationDueLocked() bool {
	return verification.ShouldRequireVerification(m.lastVerifiedLocked(), m.now())
}

// markPendingLocked flags the 2FA step as due and clears only the per-method
// verified flags, keeping the user and team identifiers.
func (m *Manager) markPendingLocked() {
	m.state.PendingVerification = true
	m.store.Set(KeyPending2FA, "true")
	m.store.Remove(verifiedFlagKeys...)
}

// Refresh re-evaluates the verification clock. It reports whether the session
// just became pending.
func (m *Manager) Refresh() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.state.Authenticated || m.state.SetupRequired || m.state.PendingVerification {
		return false
	}
	if !m.verificationDueLocked() {
		return false
	}
	m.markPendingLocked()
	log.WithField("user_id", m.state.User.ID).Info("2FA re-verification due")
	return true
}

// MarkVerified records a successful 2FA step with the server-issued token and
// re-arms the watcher.
func (m *Manager) MarkVerified(method, token string, at time.Time) {
	m.mu.Lock()
	switch method {
	case MethodBiometric:
		m.store.Set(KeyBiometricVerified, "true")
		m.store.Set(KeyBiometricVerifiedLegacy, "true")
	default:
		m.store.Set(KeyPINVerified, "true")
	}
	m.store.Set(KeyVerificationTime, strconv.FormatInt(at.UnixMilli(), 10))
	m.store.Remove(KeyPending2FA)
	if token != "" {
		m.store.Set(KeySessionToken, token)
	}
	m.state.PendingVerification = false
	m.state.SetupRequired = false
	if m.state.User != nil && m.state.User.TwoFAMethod == nil {
		configured := method
		m.state.User.TwoFAMethod = &configured
		m.store.Set(KeyTwoFAMethod, method)
	}
	w := m.watch
	m.mu.Unlock()

	if w != nil {
		w.rearm()
	}
}

// SignOut clears the session keys and stops the watcher.
func (m *Manager) SignOut() {
	m.mu.Lock()
	m.store.Remove(sessionKeys...)
	m.state = State{}
	w := m.watch
	m.watch = nil
	m.mu.Unlock()

	if w != nil {
		w.cancel()
	}
}

// State returns the current snapshot.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Step returns the next step the user must complete.
func (m *Manager) Step() Step {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch {
	case !m.state.Authenticated:
		return StepNone
	case m.state.SetupRequired:
		return StepSetup
	case !m.state.PendingVerification:
		return StepNone
	case m.state.User.Method() == MethodBiometric:
		return StepBiometric
	default:
		return StepPIN
	}
}

// VerifyPath returns the verification page for method.
func VerifyPath(method string) string {
	if method == MethodBiometric {
		return PathVerifyBiometric
	}
	return PathVerifyPIN
}
