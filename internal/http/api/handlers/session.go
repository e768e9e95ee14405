package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/teamhub/teamhub/internal/auth"
	"github.com/teamhub/teamhub/internal/config"
	"github.com/teamhub/teamhub/internal/models"
	"github.com/teamhub/teamhub/internal/security"
	"github.com/teamhub/teamhub/internal/verification"
)

var (
	errMissingToken         = errors.New("missing authorization header")
	errVerificationRequired = errors.New("2FA verification required")
)

// Sessions issues and checks signed session tokens.
type Sessions struct {
	secret string
	expiry time.Duration
	now    func() time.Time
}

// NewSessions constructs Sessions from the JWT config.
func NewSessions(cfg config.JWTConfig) *Sessions {
	return &Sessions{secret: cfg.Secret, expiry: cfg.Expiry, now: time.Now}
}

// Issue signs a token for user. A nil verifiedAt issues a password-only token.
func (s *Sessions) Issue(user *auth.UserRecord, verifiedAt *time.Time) (string, error) {
	return security.GenerateSessionToken(s.secret, security.SessionSubject{
		UserID:   user.ID,
		TeamID:   user.TeamID,
		Username: user.Username,
		Role:     user.Role,
	}, verifiedAt, s.expiry)
}

// claims parses the bearer token or writes a 401.
func (s *Sessions) claims(c *gin.Context) (*security.SessionClaims, bool) {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	token, found := strings.CutPrefix(header, "Bearer ")
	token = strings.TrimSpace(token)
	if header == "" || !found || token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": errMissingToken.Error()})
		return nil, false
	}
	claims, errParse := security.ParseSessionToken(s.secret, token)
	if errParse != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": errParse.Error()})
		return nil, false
	}
	return claims, true
}

// verified reports whether the token carries a 2FA step that has not crossed
// the daily re-verification boundary.
func (s *Sessions) verified(claims *security.SessionClaims) bool {
	return !verification.ShouldRequireVerification(claims.VerifiedTime(), s.now())
}

// verifiedClaims parses the token and requires a current 2FA verification.
func (s *Sessions) verifiedClaims(c *gin.Context) (*security.SessionClaims, bool) {
	claims, ok := s.claims(c)
	if !ok {
		return nil, false
	}
	if !s.verified(claims) {
		c.JSON(http.StatusForbidden, gin.H{"error": errVerificationRequired.Error()})
		return nil, false
	}
	return claims, true
}

// respondVerified issues a 2FA-verified token stamped now.
func (s *Sessions) respondVerified(c *gin.Context, user *auth.UserRecord, extra gin.H) {
	now := s.now().UTC()
	token, errToken := s.Issue(user, &now)
	if errToken != nil {
		respondError(c, errToken)
		return
	}
	out := gin.H{
		"token":       token,
		"verified_at": now.UnixMilli(),
		"user":        user,
	}
	for key, value := range extra {
		out[key] = value
	}
	c.JSON(http.StatusOK, out)
}

// canManage2FA allows changing the second factor when the account still has to
// set one up, or when the session is already verified.
func (s *Sessions) canManage2FA(c *gin.Context, user *auth.UserRecord, claims *security.SessionClaims) bool {
	if user.TwoFASetupRequired || user.TwoFAMethod == nil || s.verified(claims) {
		return true
	}
	c.JSON(http.StatusForbidden, gin.H{"error": errVerificationRequired.Error()})
	return false
}

func isAdmin(claims *security.SessionClaims) bool {
	return claims != nil && claims.Role == models.RoleAdmin
}

// claimsIfPresent parses a bearer token without failing the request.
func (s *Sessions) claimsIfPresent(c *gin.Context) (*security.SessionClaims, bool) {
	token, found := strings.CutPrefix(strings.TrimSpace(c.GetHeader("Authorization")), "Bearer ")
	if !found {
		return nil, false
	}
	claims, errParse := security.ParseSessionToken(s.secret, strings.TrimSpace(token))
	if errParse != nil {
		return nil, false
	}
	return claims, true
}
