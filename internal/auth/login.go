// Package auth is the login flow shared by the CLI and the web console:
// authenticate against the platform, then persist the session.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/khutwa-dev/khutwa/internal/apiclient"
	"github.com/khutwa-dev/khutwa/internal/models"
)

var ErrMissingCredentials = errors.New("email and password are required")

// Authenticator exchanges credentials for a token and identity
type Authenticator interface {
	Login(ctx context.Context, email, password string) (*apiclient.LoginResponse, error)
}

// SessionWriter persists a successful login
type SessionWriter interface {
	SetSession(token string, identity models.Identity) error
}

// Login authenticates and, only on success, stores token and identity. A
// rejected login leaves whatever session existed untouched.
func Login(ctx context.Context, api Authenticator, sessions SessionWriter, email, password string) (*models.Identity, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, ErrMissingCredentials
	}

	resp, err := api.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}

	if err := sessions.SetSession(resp.Token, resp.User); err != nil {
		return nil, fmt.Errorf("failed to start session: %w", err)
	}

	identity := resp.User
	return &identity, nil
}
