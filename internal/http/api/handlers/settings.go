package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/teamhub/teamhub/internal/auth"
	"github.com/teamhub/teamhub/internal/security"
)

// SettingsHandler serves the /api/settings actions. Every action needs a
// session token.
type SettingsHandler struct {
	accounts *auth.Service
	passkeys *auth.PasskeyService
	sessions *Sessions
}

// NewSettingsHandler constructs a SettingsHandler. passkeys may be nil when
// WebAuthn is not configured.
func NewSettingsHandler(accounts *auth.Service, passkeys *auth.PasskeyService, sessions *Sessions) *SettingsHandler {
	return &SettingsHandler{accounts: accounts, passkeys: passkeys, sessions: sessions}
}

// Actions returns the action table for the settings endpoint.
func (h *SettingsHandler) Actions() map[string]ActionFunc {
	return map[string]ActionFunc{
		"setupPIN":               h.SetupPIN,
		"get2FASettings":         h.Get2FASettings,
		"disable2FA":             h.Disable2FA,
		"passkeyRegisterOptions": h.PasskeyRegisterOptions,
		"passkeyRegisterVerify":  h.PasskeyRegisterVerify,
		"passkeyLoginOptions":    h.PasskeyLoginOptions,
		"passkeyLoginVerify":     h.PasskeyLoginVerify,
		"activateUser":           h.ActivateUser,
		"deactivateUser":         h.DeactivateUser,
	}
}

// currentUser resolves the token and loads its account.
func (h *SettingsHandler) currentUser(c *gin.Context) (*auth.UserRecord, *security.SessionClaims, bool) {
	claims, ok := h.sessions.claims(c)
	if !ok {
		return nil, nil, false
	}
	user, errGet := h.accounts.GetUser(c.Request.Context(), claims.UserID)
	if errGet != nil {
		respondError(c, errGet)
		return nil, nil, false
	}
	return user, claims, true
}

// SetupPIN stores a new PIN and returns a verified token.
func (h *SettingsHandler) SetupPIN(c *gin.Context, body []byte) {
	user, claims, ok := h.currentUser(c)
	if !ok || !h.sessions.canManage2FA(c, user, claims) {
		return
	}
	var req pinRequest
	if !bindParams(c, body, &req) {
		return
	}
	if errSetup := h.accounts.SetupPIN(c.Request.Context(), user.ID, req.PIN); errSetup != nil {
		respondError(c, errSetup)
		return
	}
	updated, errGet := h.accounts.GetUser(c.Request.Context(), user.ID)
	if errGet != nil {
		respondError(c, errGet)
		return
	}
	h.sessions.respondVerified(c, updated, gin.H{"ok": true})
}

// Get2FASettings returns the caller's second-factor configuration.
func (h *SettingsHandler) Get2FASettings(c *gin.Context, _ []byte) {
	claims, ok := h.sessions.claims(c)
	if !ok {
		return
	}
	settings, errSettings := h.accounts.Get2FASettings(c.Request.Context(), claims.UserID)
	if errSettings != nil {
		respondError(c, errSettings)
		return
	}
	c.JSON(http.StatusOK, settings)
}

// Disable2FA removes the PIN and passkeys. Requires a verified session.
func (h *SettingsHandler) Disable2FA(c *gin.Context, _ []byte) {
	claims, ok := h.sessions.verifiedClaims(c)
	if !ok {
		return
	}
	if errDisable := h.accounts.DisableTwoFA(c.Request.Context(), claims.UserID); errDisable != nil {
		respondError(c, errDisable)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *SettingsHandler) passkeysEnabled(c *gin.Context) bool {
	if h.passkeys == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "biometric authentication not configured"})
		return false
	}
	return true
}

// PasskeyRegisterOptions starts registering a platform credential.
func (h *SettingsHandler) PasskeyRegisterOptions(c *gin.Context, _ []byte) {
	if !h.passkeysEnabled(c) {
		return
	}
	user, claims, ok := h.currentUser(c)
	if !ok || !h.sessions.canManage2FA(c, user, claims) {
		return
	}
	creation, errBegin := h.passkeys.BeginRegistration(c.Request.Context(), user.ID)
	if errBegin != nil {
		respondError(c, errBegin)
		return
	}
	c.JSON(http.StatusOK, creation)
}

type credentialRequest struct {
	Credential json.RawMessage `json:"credential"`
}

func bindCredential(c *gin.Context, body []byte) (json.RawMessage, bool) {
	var req credentialRequest
	if !bindParams(c, body, &req) {
		return nil, false
	}
	if len(req.Credential) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "credential is required"})
		return nil, false
	}
	return req.Credential, true
}

// PasskeyRegisterVerify stores the attested credential, switches the account to
// biometric 2FA and returns a verified token.
func (h *SettingsHandler) PasskeyRegisterVerify(c *gin.Context, body []byte) {
	if !h.passkeysEnabled(c) {
		return
	}
	user, claims, ok := h.currentUser(c)
	if !ok || !h.sessions.canManage2FA(c, user, claims) {
		return
	}
	credential, ok := bindCredential(c, body)
	if !ok {
		return
	}
	if errFinish := h.passkeys.FinishRegistration(c.Request.Context(), user.ID, credential); errFinish != nil {
		respondError(c, errFinish)
		return
	}
	updated, errGet := h.accounts.GetUser(c.Request.Context(), user.ID)
	if errGet != nil {
		respondError(c, errGet)
		return
	}
	h.sessions.respondVerified(c, updated, gin.H{"ok": true})
}

// PasskeyLoginOptions starts a biometric 2FA assertion.
func (h *SettingsHandler) PasskeyLoginOptions(c *gin.Context, _ []byte) {
	if !h.passkeysEnabled(c) {
		return
	}
	claims, ok := h.sessions.claims(c)
	if !ok {
		return
	}
	assertion, errBegin := h.passkeys.BeginLogin(c.Request.Context(), claims.UserID)
	if errBegin != nil {
		respondError(c, errBegin)
		return
	}
	c.JSON(http.StatusOK, assertion)
}

// PasskeyLoginVerify checks the assertion signature and returns a verified token.
func (h *SettingsHandler) PasskeyLoginVerify(c *gin.Context, body []byte) {
	if !h.passkeysEnabled(c) {
		return
	}
	user, _, ok := h.currentUser(c)
	if !ok {
		return
	}
	credential, ok := bindCredential(c, body)
	if !ok {
		return
	}
	if errFinish := h.passkeys.FinishLogin(c.Request.Context(), user.ID, credential); errFinish != nil {
		respondError(c, errFinish)
		return
	}
	h.sessions.respondVerified(c, user, gin.H{"valid": true})
}

type userStatusRequest struct {
	UserID uint64 `json:"user_id"`
}

// ActivateUser approves a member of the admin's team.
func (h *SettingsHandler) ActivateUser(c *gin.Context, body []byte) {
	h.changeStatus(c, body, h.accounts.ActivateUser)
}

// DeactivateUser blocks a member of the admin's team.
func (h *SettingsHandler) DeactivateUser(c *gin.Context, body []byte) {
	h.changeStatus(c, body, h.accounts.DeactivateUser)
}

func (h *SettingsHandler) changeStatus(c *gin.Context, body []byte, apply func(ctx context.Context, teamID, userID uint64) error) {
	claims, ok := h.sessions.verifiedClaims(c)
	if !ok {
		return
	}
	if !isAdmin(claims) {
		c.JSON(http.StatusForbidden, gin.H{"error": "admin role required"})
		return
	}
	var req userStatusRequest
	if !bindParams(c, body, &req) {
		return
	}
	if req.UserID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
		return
	}
	if errApply := apply(c.Request.Context(), claims.TeamID, req.UserID); errApply != nil {
		respondError(c, errApply)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
