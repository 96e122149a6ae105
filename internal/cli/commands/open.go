package commands

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/khutwa-dev/khutwa/internal/guard"
	"github.com/khutwa-dev/khutwa/internal/nav"
	"github.com/khutwa-dev/khutwa/internal/views"
)

// NewOpenCmd creates the open command
func NewOpenCmd(env *Env) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "open <path>",
		Short: "Open a console screen by its route path",
		Example: `  khutwa open /
  khutwa open /admin/users
  khutwa open /admin/course/12/quizzes --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOpen(cmd, env, args[0], asJSON)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the screen as JSON")

	return cmd
}

type openOutput struct {
	Outcome nav.Outcome   `json:"outcome"`
	Screen  *views.Screen `json:"screen"`
}

func runOpen(cmd *cobra.Command, env *Env, path string, asJSON bool) error {
	out := cmd.OutOrStdout()

	outcome := env.Shell.Navigate(path)
	screen, err := render(cmd.Context(), env, outcome)
	if err != nil {
		return apiError(err)
	}

	if asJSON {
		return printJSON(out, openOutput{Outcome: outcome, Screen: screen})
	}

	if outcome.Redirected() {
		fmt.Fprintf(out, "%s → %s (%s)\n\n", outcome.Requested, outcome.Path, outcome.Steps[0].Decision)
	}
	printScreen(out, screen)
	return nil
}

func render(ctx context.Context, env *Env, outcome nav.Outcome) (*views.Screen, error) {
	return env.App.Views.Render(ctx, env.API, views.Request{
		Pattern:  outcome.Pattern,
		Params:   outcome.Params,
		Identity: outcome.Identity,
	})
}

// NewMenuCmd creates the menu command
func NewMenuCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "menu",
		Short: "List the screens available to the signed-in account",
		RunE: func(cmd *cobra.Command, args []string) error {
			menu := env.Shell.Menu()
			if menu == nil {
				return errNotLoggedIn
			}
			printMenu(cmd.OutOrStdout(), menu)
			return nil
		},
	}
}

// NewShellCmd creates the interactive shell command
func NewShellCmd(env *Env) *cobra.Command {
	var start string

	cmd := &cobra.Command{
		Use:   "shell",
		Short: "Browse the console interactively from the side menu",
		Long: `Browse the console from the role-filtered side menu.

The shell follows the shared session: signing out in another terminal or in
the web console ends the shell on its next step.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShell(cmd, env, start)
		},
	}

	cmd.Flags().StringVar(&start, "start", guard.HomePath, "Route to open first")

	return cmd
}

const (
	shellLogout = "Log out"
	shellQuit   = "Quit"
)

func runShell(cmd *cobra.Command, env *Env, start string) error {
	out := &syncWriter{w: cmd.OutOrStdout()}

	stop := env.Shell.Watch(func(o nav.Outcome) {
		fmt.Fprintf(out, "\nSession changed in another console, now at %s\n", o.Path)
	})
	defer stop()

	outcome := env.Shell.Navigate(start)
	for {
		if !outcome.ShowMenu {
			fmt.Fprintln(out, errNotLoggedIn.Error())
			return nil
		}

		if screen, err := render(cmd.Context(), env, outcome); err != nil {
			fmt.Fprintf(out, "Error: %v\n", apiError(err))
		} else {
			printScreen(out, screen)
		}
		fmt.Fprintln(out)

		// re-read so a role change elsewhere shows up in the next menu
		menu := env.Shell.Menu()
		if menu == nil {
			fmt.Fprintln(out, errNotLoggedIn.Error())
			return nil
		}
		items := make([]string, 0, len(menu)+2)
		for _, e := range menu {
			items = append(items, e.Name)
		}
		items = append(items, shellLogout, shellQuit)

		idx, err := env.Select("Go to", items)
		if err != nil {
			if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) || errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("menu selection failed: %w", err)
		}

		switch {
		case idx >= 0 && idx < len(menu):
			outcome = env.Shell.Navigate(menu[idx].Path)
		case idx == len(menu):
			if _, err := env.Shell.Logout(); err != nil {
				return fmt.Errorf("failed to clear session: %w", err)
			}
			fmt.Fprintln(out, "Logged out.")
			return nil
		default:
			return nil
		}
	}
}
