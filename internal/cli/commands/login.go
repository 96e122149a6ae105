package commands

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/khutwa-dev/khutwa/internal/apiclient"
	"github.com/khutwa-dev/khutwa/internal/auth"
	"github.com/khutwa-dev/khutwa/internal/guard"
	"github.com/khutwa-dev/khutwa/internal/session"
)

// NewLoginCmd creates the login command
func NewLoginCmd(env *Env) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to the Khutwa platform",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogin(cmd, env, email, password)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email address (or set KHUTWA_EMAIL)")
	cmd.Flags().StringVar(&password, "password", "", "Password (or set KHUTWA_PASSWORD, will prompt if not provided)")

	return cmd
}

func runLogin(cmd *cobra.Command, env *Env, email, password string) error {
	out := cmd.OutOrStdout()

	// Check for environment variables (useful for CI/CD)
	if email == "" {
		email = os.Getenv("KHUTWA_EMAIL")
	}
	if password == "" {
		password = os.Getenv("KHUTWA_PASSWORD")
	}

	if strings.TrimSpace(email) == "" {
		return fmt.Errorf("email is required (use --email flag or KHUTWA_EMAIL env var)")
	}

	if password == "" {
		p, err := env.ReadPassword()
		if err != nil {
			return err
		}
		password = p
	}

	identity, err := auth.Login(cmd.Context(), env.API, env.App.Sessions, email, password)
	if err != nil {
		var apiErr *apiclient.Error
		if errors.As(err, &apiErr) {
			return errors.New(apiErr.Message)
		}
		return err
	}

	outcome := env.Shell.Navigate(guard.HomePath)

	fmt.Fprintln(out, "✓ Login successful!")
	fmt.Fprintf(out, "  User: %s\n", identity.DisplayName())
	fmt.Fprintf(out, "  Role: %s\n", identity.Role)
	if outcome.ShowMenu && len(outcome.Menu) > 0 {
		fmt.Fprintln(out)
		printMenu(out, outcome.Menu)
	}

	return nil
}

// NewLogoutCmd creates the logout command
func NewLogoutCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and clear the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := env.Shell.Logout(); err != nil {
				return fmt.Errorf("failed to clear session: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
			return nil
		},
	}
}

// NewWhoamiCmd creates the whoami command
func NewWhoamiCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in account",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWhoami(cmd, env, time.Now())
		},
	}
}

func runWhoami(cmd *cobra.Command, env *Env, now time.Time) error {
	out := cmd.OutOrStdout()

	snap := env.App.Sessions.Snapshot()
	if !snap.HasToken() {
		return errNotLoggedIn
	}

	if snap.Identity != nil {
		fmt.Fprintf(out, "User:  %s\n", snap.Identity.DisplayName())
		if snap.Identity.Email != "" {
			fmt.Fprintf(out, "Email: %s\n", snap.Identity.Email)
		}
		fmt.Fprintf(out, "Role:  %s\n", snap.Identity.Role)
	} else {
		fmt.Fprintln(out, "User:  (no profile stored)")
	}

	if info, ok := session.InspectToken(snap.Token); ok && info.ExpiresAt != nil {
		status := ""
		if info.Expired(now) {
			status = " (expired)"
		}
		fmt.Fprintf(out, "Token: expires %s%s\n", info.ExpiresAt.Local().Format(time.RFC1123), status)
	}

	return nil
}
