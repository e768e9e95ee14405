package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/teamhub/teamhub/internal/auth"
)

// SignupHandler serves the /api/signup actions.
type SignupHandler struct {
	accounts *auth.Service
}

// NewSignupHandler constructs a SignupHandler.
func NewSignupHandler(accounts *auth.Service) *SignupHandler {
	return &SignupHandler{accounts: accounts}
}

// Actions returns the action table for the signup endpoint.
func (h *SignupHandler) Actions() map[string]ActionFunc {
	return map[string]ActionFunc{"signup": h.Signup}
}

type signupRequest struct {
	TeamSlug    string `json:"team_slug"`
	TeamName    string `json:"team_name"`
	Username    string `json:"username"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Password    string `json:"password"`
	Role        string `json:"role"`
}

// Signup creates an account. Non-admin accounts start pending approval.
func (h *SignupHandler) Signup(c *gin.Context, body []byte) {
	var req signupRequest
	if !bindParams(c, body, &req) {
		return
	}
	user, errSignup := h.accounts.Signup(c.Request.Context(), auth.SignupInput{
		TeamSlug:    req.TeamSlug,
		TeamName:    req.TeamName,
		Username:    req.Username,
		Email:       req.Email,
		DisplayName: req.DisplayName,
		Password:    req.Password,
		Role:        req.Role,
	})
	if errSignup != nil {
		respondError(c, errSignup)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"user": user})
}
