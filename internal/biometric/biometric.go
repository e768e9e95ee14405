// Package biometric drives a device's platform authenticator for the
// biometric 2FA method and remembers the registration locally.
package biometric

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"
	log "github.com/sirupsen/logrus"
	"github.com/teamhub/teamhub/internal/security"
	"github.com/teamhub/teamhub/internal/session"
)

// promptTimeout bounds a platform prompt.
const promptTimeout = 60 * time.Second

// Errors surfaced to the caller. Platform failures other than cancellation are wrapped.
var (
	ErrUnavailable    = errors.New("biometric authentication is not available on this device")
	ErrNotRegistered  = errors.New("no biometric credential registered on this device")
	ErrDomainMismatch = errors.New("biometric credential was registered for a different domain, register again")
	ErrCancelled      = errors.New("biometric prompt was cancelled")
)

// Platform is the device's public-key credential API.
type Platform interface {
	// SecureContext reports whether the page runs over HTTPS or on localhost.
	SecureContext() bool
	PublicKeyCredentialSupported() bool
	PlatformAuthenticatorAvailable(ctx context.Context) (bool, error)
	Create(ctx context.Context, options protocol.PublicKeyCredentialCreationOptions) (*CreatedCredential, error)
	Get(ctx context.Context, options protocol.PublicKeyCredentialRequestOptions) (*Assertion, error)
	// Origin is the current page origin, e.g. https://app.example.com.
	Origin() string
}

// CreatedCredential is what the platform returns after creation.
type CreatedCredential struct {
	ID    string
	RawID []byte
}

// Assertion is what the platform returns after a successful prompt.
type Assertion struct {
	CredentialID []byte
}

// Credential is the locally persisted registration.
type Credential struct {
	ID           string    `json:"credentialId"`
	RawID        []byte    `json:"rawId"`
	UserID       uint64    `json:"userId"`
	Username     string    `json:"username"`
	CreatedAt    time.Time `json:"createdAt"`
	OriginDomain string    `json:"originDomain"`
}

// Identity is the account a successful prompt maps to on this device.
type Identity struct {
	UserID   uint64
	Username string
}

// Service runs registration and authentication against one Platform.
type Service struct {
	platform Platform
	store    session.Store
	rpName   string
	now      func() time.Time
}

// NewService constructs a Service. rpName is shown in the platform prompt.
func NewService(platform Platform, store session.Store, rpName string) *Service {
	if rpName == "" {
		rpName = "Teamhub"
	}
	return &Service{platform: platform, store: store, rpName: rpName, now: time.Now}
}

// IsAvailable checks the platform on every call.
func (s *Service) IsAvailable(ctx context.Context) bool {
	if !s.platform.SecureContext() || !s.platform.PublicKeyCredentialSupported() {
		return false
	}
	available, err := s.platform.PlatformAuthenticatorAvailable(ctx)
	if err != nil {
		log.WithError(err).Debug("platform authenticator check failed")
		return false
	}
	return available
}

// Register creates a platform credential for the user and stores it locally.
func (s *Service) Register(ctx context.Context, userID uint64, username string) (*Credential, error) {
	if !s.IsAvailable(ctx) {
		return nil, ErrUnavailable
	}
	challenge, err := protocol.CreateChallenge()
	if err != nil {
		return nil, fmt.Errorf("biometric: challenge: %w", err)
	}
	domain := security.OriginHost(s.platform.Origin())

	handle := make([]byte, 8)
	binary.BigEndian.PutUint64(handle, userID)
	options := protocol.PublicKeyCredentialCreationOptions{
		RelyingParty: protocol.RelyingPartyEntity{
			CredentialEntity: protocol.CredentialEntity{Name: s.rpName},
			ID:               domain,
		},
		User: protocol.UserEntity{
			CredentialEntity: protocol.CredentialEntity{Name: username},
			DisplayName:      username,
			ID:               protocol.URLEncodedBase64(handle),
		},
		Challenge:  challenge,
		Parameters: webauthn.CredentialParametersDefault(),
		Timeout:    int(promptTimeout.Milliseconds()),
		AuthenticatorSelection: protocol.AuthenticatorSelection{
			AuthenticatorAttachment: protocol.Platform,
			UserVerification:        protocol.VerificationRequired,
		},
		Attestation: protocol.PreferNoAttestation,
	}

	promptCtx, cancel := context.WithTimeout(ctx, promptTimeout)
	defer cancel()
	created, err := s.platform.Create(promptCtx, options)
	if err != nil {
		return nil, platformError(err)
	}

	credential := &Credential{
		ID:           created.ID,
		RawID:        created.RawID,
		UserID:       userID,
		Username:     username,
		CreatedAt:    s.now().UTC(),
		OriginDomain: domain,
	}
	raw, err := json.Marshal(credential)
	if err != nil {
		return nil, fmt.Errorf("biometric: encode credential: %w", err)
	}
	s.store.Set(session.KeyBiometricCredential, string(raw))
	s.store.Set(session.KeyBiometricDomain, domain)
	log.WithFields(log.Fields{"user_id": userID, "domain": domain}).Info("biometric credential registered")
	return credential, nil
}

// Authenticate prompts for the stored credential. The returned identity comes
// from local storage; the prompt proves only that this device's registered
// authenticator responded. A credential registered under another domain fails
// with ErrDomainMismatch before the platform is touched.
func (s *Service) Authenticate(ctx context.Context) (*Identity, error) {
	credential, err := s.load()
	if err != nil {
		return nil, err
	}
	domain := security.OriginHost(s.platform.Origin())
	if credential.OriginDomain != domain {
		return nil, ErrDomainMismatch
	}
	if !s.IsAvailable(ctx) {
		return nil, ErrUnavailable
	}

	challenge, err := protocol.CreateChallenge()
	if err != nil {
		return nil, fmt.Errorf("biometric: challenge: %w", err)
	}
	options := protocol.PublicKeyCredentialRequestOptions{
		Challenge:      challenge,
		Timeout:        int(promptTimeout.Milliseconds()),
		RelyingPartyID: domain,
		AllowedCredentials: []protocol.CredentialDescriptor{{
			Type:         protocol.PublicKeyCredentialType,
			CredentialID: credential.RawID,
			Transport:    []protocol.AuthenticatorTransport{protocol.Internal},
		}},
		UserVerification: protocol.VerificationRequired,
	}

	promptCtx, cancel := context.WithTimeout(ctx, promptTimeout)
	defer cancel()
	if _, err = s.platform.Get(promptCtx, options); err != nil {
		return nil, platformError(err)
	}
	return &Identity{UserID: credential.UserID, Username: credential.Username}, nil
}

// Disable forgets the local registration. Nothing is revoked server-side.
func (s *Service) Disable() {
	s.store.Remove(session.KeyBiometricCredential, session.KeyBiometricDomain)
	if method, ok := s.store.Get(session.KeyTwoFAMethod); ok && method == session.MethodBiometric {
		s.store.Remove(session.KeyTwoFAMethod)
	}
}

// Enabled reports whether a readable registration is stored.
func (s *Service) Enabled() bool {
	_, err := s.load()
	return err == nil
}

func (s *Service) load() (*Credential, error) {
	raw, ok := s.store.Get(session.KeyBiometricCredential)
	if !ok || raw == "" {
		return nil, ErrNotRegistered
	}
	var credential Credential
	if err := json.Unmarshal([]byte(raw), &credential); err != nil || len(credential.RawID) == 0 {
		return nil, ErrNotRegistered
	}
	if credential.OriginDomain == "" {
		credential.OriginDomain, _ = s.store.Get(session.KeyBiometricDomain)
	}
	return &credential, nil
}

func platformError(err error) error {
	switch {
	case errors.Is(err, ErrCancelled),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return ErrCancelled
	default:
		return fmt.Errorf("biometric: platform: %w", err)
	}
}
