package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/teamhub/teamhub/internal/auth"
)

// maxActionBody bounds a single action request.
const maxActionBody = 1 << 20

// ActionFunc handles one named action. body is the full request document.
type ActionFunc func(c *gin.Context, body []byte)

// actionEnvelope is the part of every request the dispatcher reads.
type actionEnvelope struct {
	Action string `json:"action"`
}

// Dispatch routes a POST body of the form {"action": "...", ...} to actions.
func Dispatch(actions map[string]ActionFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, errRead := io.ReadAll(io.LimitReader(c.Request.Body, maxActionBody))
		if errRead != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		var envelope actionEnvelope
		if errDecode := json.Unmarshal(body, &envelope); errDecode != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
			return
		}
		name := strings.TrimSpace(envelope.Action)
		c.Set("action", name)

		handle, ok := actions[name]
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown action: " + name})
			return
		}
		handle(c, body)
	}
}

// bindParams decodes the action parameters into dst.
func bindParams(c *gin.Context, body []byte, dst any) bool {
	if errDecode := json.Unmarshal(body, dst); errDecode != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return false
	}
	return true
}

// clientErrors are returned to the caller verbatim.
var clientErrors = []error{
	auth.ErrValidation,
	auth.ErrInvalidCredentials,
	auth.ErrAccountPending,
	auth.ErrAccountInactive,
	auth.ErrTeamRequired,
	auth.ErrTeamNotFound,
	auth.ErrUsernameTaken,
	auth.ErrEmailTaken,
	auth.ErrInvalidRole,
	auth.ErrUserNotFound,
	auth.ErrPINNotConfigured,
	auth.ErrPasskeyNotRegistered,
	auth.ErrCeremonyExpired,
	auth.ErrPasskeyRejected,
}

// respondError reports err as a 400. Unexpected errors are logged and masked.
func respondError(c *gin.Context, err error) {
	for _, known := range clientErrors {
		if errors.Is(err, known) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	log.WithError(err).WithField("action", c.GetString("action")).Error("action failed")
	c.JSON(http.StatusBadRequest, gin.H{"error": "internal error"})
}
