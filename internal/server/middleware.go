package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/khutwa-dev/khutwa/internal/apiclient"
	"github.com/khutwa-dev/khutwa/internal/guard"
	"github.com/khutwa-dev/khutwa/internal/nav"
)

const shellKey = "shell"

// shellMiddleware gives each request its own navigation shell, the way each
// browser tab has its own location
func (s *Server) shellMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(shellKey, nav.NewShell(s.sessions, s.table, s.menu, s.logger))
		c.Next()
	}
}

func getShell(c *gin.Context) *nav.Shell {
	if v, ok := c.Get(shellKey); ok {
		if shell, ok := v.(*nav.Shell); ok {
			return shell
		}
	}
	return nil
}

// screenURL maps a console route onto the web console's URL space
func screenURL(p string) string {
	if p == guard.HomePath {
		return "/screens/"
	}
	return "/screens" + p
}

// respondWithAPIError maps a platform API failure onto the response. A 401
// has already logged the session out; the tab is told where to go.
func (s *Server) respondWithAPIError(c *gin.Context, err error) {
	var apiErr *apiclient.Error
	if !errors.As(err, &apiErr) {
		s.logger.Error().Err(err).Str("path", c.Request.URL.Path).Msg("Platform API request failed")
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": "Platform API is unavailable"})
		return
	}

	message := apiErr.Message
	if message == "" {
		message = http.StatusText(apiErr.StatusCode)
	}
	body := gin.H{"error": message}

	if errors.Is(err, apiclient.ErrUnauthorized) {
		body["redirect"] = guard.LoginPath
		s.broadcastSession("unauthorized")
	}

	s.logger.Warn().
		Err(err).
		Int("status", apiErr.StatusCode).
		Str("path", c.Request.URL.Path).
		Msg("Platform API rejected request")
	c.AbortWithStatusJSON(apiErr.StatusCode, body)
}
