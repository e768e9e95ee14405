package auth

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"
	log "github.com/sirupsen/logrus"
	"github.com/teamhub/teamhub/internal/ceremony"
	"github.com/teamhub/teamhub/internal/models"
	"gorm.io/gorm"
)

// Passkey ceremony errors.
var (
	ErrPasskeyNotRegistered = errors.New("no biometric credential registered")
	ErrCeremonyExpired      = errors.New("biometric request expired, try again")
	ErrPasskeyRejected      = errors.New("biometric verification failed")
)

// PasskeyService runs server-side WebAuthn ceremonies so biometric 2FA is
// backed by a stored public key rather than a client-side flag.
type PasskeyService struct {
	db       *gorm.DB
	webAuthn *webauthn.WebAuthn
	sessions ceremony.Store
	ttl      time.Duration
}

// NewPasskeyService constructs a PasskeyService.
func NewPasskeyService(db *gorm.DB, webAuthn *webauthn.WebAuthn, sessions ceremony.Store, ttl time.Duration) *PasskeyService {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &PasskeyService{db: db, webAuthn: webAuthn, sessions: sessions, ttl: ttl}
}

// userWebAuthnUser adapts a user row and its credentials to webauthn.User.
type userWebAuthnUser struct {
	id          uint64
	username    string
	displayName string
	credentials []webauthn.Credential
}

// WebAuthnID returns the user ID as 8 big-endian bytes.
func (u userWebAuthnUser) WebAuthnID() []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, u.id)
	return buf
}

func (u userWebAuthnUser) WebAuthnName() string { return u.username }

func (u userWebAuthnUser) WebAuthnDisplayName() string {
	if u.displayName != "" {
		return u.displayName
	}
	return u.username
}

func (u userWebAuthnUser) WebAuthnCredentials() []webauthn.Credential { return u.credentials }

func (p *PasskeyService) loadWebAuthnUser(ctx context.Context, userID uint64) (userWebAuthnUser, error) {
	var user models.User
	if errFind := p.db.WithContext(ctx).
		Select("id", "username", "display_name").
		First(&user, userID).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return userWebAuthnUser{}, ErrUserNotFound
		}
		return userWebAuthnUser{}, fmt.Errorf("auth: load user: %w", errFind)
	}

	var rows []models.BiometricCredential
	if errFind := p.db.WithContext(ctx).
		Where("user_id = ? AND origin = ?", userID, p.webAuthn.Config.RPID).
		Order("id ASC").
		Find(&rows).Error; errFind != nil {
		return userWebAuthnUser{}, fmt.Errorf("auth: load credentials: %w", errFind)
	}

	out := userWebAuthnUser{id: user.ID, username: user.Username, displayName: user.DisplayName}
	for _, row := range rows {
		out.credentials = append(out.credentials, webauthn.Credential{
			ID:        row.CredentialID,
			PublicKey: row.PublicKey,
			Transport: []protocol.AuthenticatorTransport{protocol.Internal},
			Flags: webauthn.CredentialFlags{
				BackupEligible: row.BackupEligible,
				BackupState:    row.BackupState,
			},
			Authenticator: webauthn.Authenticator{SignCount: row.SignCount},
		})
	}
	return out, nil
}

// BeginRegistration returns creation options for a platform authenticator
// that must verify the user.
func (p *PasskeyService) BeginRegistration(ctx context.Context, userID uint64) (*protocol.CredentialCreation, error) {
	user, errUser := p.loadWebAuthnUser(ctx, userID)
	if errUser != nil {
		return nil, errUser
	}

	options := []webauthn.RegistrationOption{
		webauthn.WithAuthenticatorSelection(protocol.AuthenticatorSelection{
			AuthenticatorAttachment: protocol.Platform,
			UserVerification:        protocol.VerificationRequired,
		}),
	}
	if len(user.credentials) > 0 {
		options = append(options, webauthn.WithExclusions(webauthn.Credentials(user.credentials).CredentialDescriptors()))
	}

	creation, session, errBegin := p.webAuthn.BeginRegistration(user, options...)
	if errBegin != nil {
		return nil, fmt.Errorf("auth: begin registration: %w", errBegin)
	}
	if errPut := p.sessions.Put(ctx, ceremony.RegistrationKey(userID), *session, p.ttl); errPut != nil {
		return nil, fmt.Errorf("auth: store registration session: %w", errPut)
	}
	return creation, nil
}

// FinishRegistration verifies the attestation in body, stores the public key
// and switches the account to the biometric method.
func (p *PasskeyService) FinishRegistration(ctx context.Context, userID uint64, body []byte) error {
	session, errSession := p.sessions.Take(ctx, ceremony.RegistrationKey(userID))
	if errSession != nil {
		if errors.Is(errSession, ceremony.ErrNotFound) {
			return ErrCeremonyExpired
		}
		return errSession
	}
	user, errUser := p.loadWebAuthnUser(ctx, userID)
	if errUser != nil {
		return errUser
	}

	parsed, errParse := protocol.ParseCredentialCreationResponseBytes(body)
	if errParse != nil {
		log.WithError(errParse).WithField("user_id", userID).Warn("passkey registration parse failed")
		return ErrPasskeyRejected
	}
	credential, errCreate := p.webAuthn.CreateCredential(user, session, parsed)
	if errCreate != nil {
		log.WithError(errCreate).WithField("user_id", userID).Warn("passkey registration failed")
		return ErrPasskeyRejected
	}

	return p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := models.BiometricCredential{
			UserID:         userID,
			CredentialID:   credential.ID,
			PublicKey:      credential.PublicKey,
			SignCount:      credential.Authenticator.SignCount,
			BackupEligible: credential.Flags.BackupEligible,
			BackupState:    credential.Flags.BackupState,
			Origin:         p.webAuthn.Config.RPID,
		}
		if errInsert := tx.Create(&row).Error; errInsert != nil {
			return fmt.Errorf("auth: store credential: %w", errInsert)
		}
		return setBiometricMethod(tx, userID)
	})
}

// SetBiometricMethod makes biometric the user's 2FA method and clears the setup flag.
func (s *Service) SetBiometricMethod(ctx context.Context, userID uint64) error {
	return setBiometricMethod(s.db.WithContext(ctx), userID)
}

func setBiometricMethod(tx *gorm.DB, userID uint64) error {
	res := tx.Model(&models.User{}).
		Where("id = ?", userID).
		Updates(map[string]any{
			"two_fa_method":         models.TwoFAMethodBiometric,
			"two_fa_setup_required": false,
			"updated_at":            time.Now().UTC(),
		})
	if res.Error != nil {
		return fmt.Errorf("auth: set biometric method: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// BeginLogin returns assertion options restricted to the user's registered
// internal credentials.
func (p *PasskeyService) BeginLogin(ctx context.Context, userID uint64) (*protocol.CredentialAssertion, error) {
	user, errUser := p.loadWebAuthnUser(ctx, userID)
	if errUser != nil {
		return nil, errUser
	}
	if len(user.credentials) == 0 {
		return nil, ErrPasskeyNotRegistered
	}

	assertion, session, errBegin := p.webAuthn.BeginLogin(user, webauthn.WithUserVerification(protocol.VerificationRequired))
	if errBegin != nil {
		return nil, fmt.Errorf("auth: begin login: %w", errBegin)
	}
	if errPut := p.sessions.Put(ctx, ceremony.AssertionKey(userID), *session, p.ttl); errPut != nil {
		return nil, fmt.Errorf("auth: store login session: %w", errPut)
	}
	return assertion, nil
}

// FinishLogin verifies the assertion signature against the stored public key
// and advances the sign counter.
func (p *PasskeyService) FinishLogin(ctx context.Context, userID uint64, body []byte) error {
	session, errSession := p.sessions.Take(ctx, ceremony.AssertionKey(userID))
	if errSession != nil {
		if errors.Is(errSession, ceremony.ErrNotFound) {
			return ErrCeremonyExpired
		}
		return errSession
	}
	user, errUser := p.loadWebAuthnUser(ctx, userID)
	if errUser != nil {
		return errUser
	}
	if len(user.credentials) == 0 {
		return ErrPasskeyNotRegistered
	}

	parsed, errParse := protocol.ParseCredentialRequestResponseBytes(body)
	if errParse != nil {
		log.WithError(errParse).WithField("user_id", userID).Warn("passkey login parse failed")
		return ErrPasskeyRejected
	}
	credential, errValidate := p.webAuthn.ValidateLogin(user, session, parsed)
	if errValidate != nil {
		log.WithError(errValidate).WithField("user_id", userID).Warn("passkey login failed")
		return ErrPasskeyRejected
	}
	if credential.Authenticator.CloneWarning {
		log.WithField("user_id", userID).Warn("passkey sign counter did not advance")
	}

	if errUpdate := p.db.WithContext(ctx).Model(&models.BiometricCredential{}).
		Where("credential_id = ?", credential.ID).
		Updates(map[string]any{
			"sign_count":      credential.Authenticator.SignCount,
			"backup_eligible": credential.Flags.BackupEligible,
			"backup_state":    credential.Flags.BackupState,
			"updated_at":      time.Now().UTC(),
		}).Error; errUpdate != nil {
		return fmt.Errorf("auth: update credential: %w", errUpdate)
	}
	return nil
}
