package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/khutwa-dev/khutwa/internal/apiclient"
	"github.com/khutwa-dev/khutwa/internal/auth"
	"github.com/khutwa-dev/khutwa/internal/guard"
	"github.com/khutwa-dev/khutwa/internal/models"
	"github.com/khutwa-dev/khutwa/internal/nav"
	"github.com/khutwa-dev/khutwa/internal/session"
)

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse represents a login response
type LoginResponse struct {
	Identity *models.Identity `json:"identity"`
	Redirect string           `json:"redirect"`
}

// SessionResponse describes the current session
type SessionResponse struct {
	Authenticated bool               `json:"authenticated"`
	Identity      *models.Identity   `json:"identity,omitempty"`
	Token         *session.TokenInfo `json:"token,omitempty"`
	Menu          nav.Menu           `json:"menu,omitempty"`
}

func (s *Server) login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": auth.ErrMissingCredentials.Error()})
		return
	}

	if err := s.validator.Var(strings.TrimSpace(req.Email), "email"); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Enter a valid email address"})
		return
	}

	identity, err := auth.Login(c.Request.Context(), s.api, s.sessions, req.Email, req.Password)
	if err != nil {
		var apiErr *apiclient.Error
		switch {
		case errors.Is(err, auth.ErrMissingCredentials):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.As(err, &apiErr):
			message := apiErr.Message
			if message == "" {
				message = apiclient.LoginFailedMessage
			}
			c.JSON(http.StatusUnauthorized, gin.H{"error": message})
		default:
			s.logger.Error().Err(err).Msg("Login failed")
			c.JSON(http.StatusBadGateway, gin.H{"error": apiclient.LoginFailedMessage})
		}
		return
	}

	s.broadcastSession("login")
	c.JSON(http.StatusOK, LoginResponse{Identity: identity, Redirect: guard.HomePath})
}

func (s *Server) logout(c *gin.Context) {
	out, err := getShell(c).Logout()
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to clear session")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to log out"})
		return
	}

	s.broadcastSession("logout")
	c.JSON(http.StatusOK, gin.H{"redirect": out.Path})
}

func (s *Server) getSession(c *gin.Context) {
	snap := s.sessions.Snapshot()

	resp := SessionResponse{
		Authenticated: snap.HasToken(),
		Identity:      snap.Identity,
	}
	if snap.HasToken() {
		if info, ok := session.InspectToken(snap.Token); ok {
			resp.Token = &info
		}
		if snap.Identity != nil {
			resp.Menu = s.menu.Visible(snap.Role())
		}
	}

	c.JSON(http.StatusOK, resp)
}
