package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/teamhub/teamhub/internal/auth"
)

// AuthHandler serves the /api/auth actions.
type AuthHandler struct {
	accounts *auth.Service
	sessions *Sessions
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(accounts *auth.Service, sessions *Sessions) *AuthHandler {
	return &AuthHandler{accounts: accounts, sessions: sessions}
}

// Actions returns the action table for the auth endpoint.
func (h *AuthHandler) Actions() map[string]ActionFunc {
	return map[string]ActionFunc{
		"login":          h.Login,
		"getUser":        h.GetUser,
		"verifyPIN":      h.VerifyPIN,
		"get2FASettings": h.Get2FASettings,
		"logout":         h.Logout,
	}
}

type loginRequest struct {
	TeamSlug string `json:"team_slug"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login checks the password and returns a password-only session token. The
// client must complete the 2FA step (or set one up) to get a verified token.
func (h *AuthHandler) Login(c *gin.Context, body []byte) {
	var req loginRequest
	if !bindParams(c, body, &req) {
		return
	}
	user, errLogin := h.accounts.Login(c.Request.Context(), auth.LoginInput{
		TeamSlug: req.TeamSlug,
		Username: req.Username,
		Password: req.Password,
	})
	if errLogin != nil {
		respondError(c, errLogin)
		return
	}

	token, errToken := h.sessions.Issue(user, nil)
	if errToken != nil {
		respondError(c, errToken)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"user":                  user,
		"token":                 token,
		"two_fa_method":         user.TwoFAMethod,
		"two_fa_setup_required": user.TwoFASetupRequired,
	})
}

// GetUser returns the account behind the bearer token.
func (h *AuthHandler) GetUser(c *gin.Context, _ []byte) {
	claims, ok := h.sessions.claims(c)
	if !ok {
		return
	}
	user, errGet := h.accounts.GetUser(c.Request.Context(), claims.UserID)
	if errGet != nil {
		respondError(c, errGet)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"user":            user,
		"two_fa_verified": h.sessions.verified(claims),
	})
}

type pinRequest struct {
	PIN string `json:"pin"`
}

// VerifyPIN checks a PIN and, on success, returns a verified session token.
func (h *AuthHandler) VerifyPIN(c *gin.Context, body []byte) {
	claims, ok := h.sessions.claims(c)
	if !ok {
		return
	}
	var req pinRequest
	if !bindParams(c, body, &req) {
		return
	}

	valid, errVerify := h.accounts.VerifyUserPIN(c.Request.Context(), claims.UserID, req.PIN)
	if errVerify != nil {
		respondError(c, errVerify)
		return
	}
	if !valid {
		log.WithField("user_id", claims.UserID).Info("pin verification failed")
		c.JSON(http.StatusOK, gin.H{"valid": false})
		return
	}

	user, errGet := h.accounts.GetUser(c.Request.Context(), claims.UserID)
	if errGet != nil {
		respondError(c, errGet)
		return
	}
	h.sessions.respondVerified(c, user, gin.H{"valid": true})
}

// Get2FASettings returns the caller's second-factor configuration.
func (h *AuthHandler) Get2FASettings(c *gin.Context, _ []byte) {
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

// Logout acknowledges a sign out. Tokens are stateless; the client drops its copy.
func (h *AuthHandler) Logout(c *gin.Context, _ []byte) {
	if claims, ok := h.sessions.claimsIfPresent(c); ok {
		log.WithField("user_id", claims.UserID).Info("user logged out")
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
