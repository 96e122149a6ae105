package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/khutwa-dev/khutwa/internal/guard"
	"github.com/khutwa-dev/khutwa/internal/models"
	"github.com/khutwa-dev/khutwa/internal/nav"
	"github.com/khutwa-dev/khutwa/internal/views"
)

// ScreenResponse is one rendered console route
type ScreenResponse struct {
	Path     string            `json:"path"`
	Pattern  string            `json:"pattern"`
	Params   map[string]string `json:"params,omitempty"`
	Identity *models.Identity  `json:"identity,omitempty"`
	Menu     nav.Menu          `json:"menu,omitempty"`
	Screen   *views.Screen     `json:"screen"`
}

func (s *Server) screen(c *gin.Context) {
	shell := getShell(c)

	out := shell.Navigate(c.Param("path"))
	if out.Redirected() {
		s.logger.Debug().
			Str("requested", out.Requested).
			Str("decision", out.Steps[0].Decision.String()).
			Msg("Route guarded")
		c.Redirect(http.StatusFound, screenURL(out.Path))
		return
	}

	client := s.api.WithNavigator(shell)
	screen, err := s.views.Render(c.Request.Context(), client, views.Request{
		Pattern:  out.Pattern,
		Params:   out.Params,
		Identity: out.Identity,
	})
	if err != nil {
		s.respondWithAPIError(c, err)
		return
	}

	resp := ScreenResponse{
		Path:     out.Path,
		Pattern:  out.Pattern,
		Params:   out.Params,
		Identity: out.Identity,
		Screen:   screen,
	}
	if out.ShowMenu {
		resp.Menu = out.Menu
	}
	if out.Path == guard.LoginPath {
		resp.Identity = nil
	}

	c.JSON(http.StatusOK, resp)
}
