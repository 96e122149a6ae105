package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"text/tabwriter"

	"github.com/manifoldco/promptui"
	"golang.org/x/term"

	"github.com/khutwa-dev/khutwa/internal/apiclient"
	"github.com/khutwa-dev/khutwa/internal/app"
	"github.com/khutwa-dev/khutwa/internal/nav"
	"github.com/khutwa-dev/khutwa/internal/views"
)

var errNotLoggedIn = errors.New("not logged in. Run 'khutwa login' first")

// Env is what every command runs against. The root command fills it in
// before a command runs; tests build one directly.
type Env struct {
	App *app.App

	// Shell is this process's location in the console
	Shell *nav.Shell

	// API logs the session out and moves Shell to the login route on a 401
	API *apiclient.Client

	// ReadPassword prompts for a password without echo
	ReadPassword func() (string, error)

	// Select shows an interactive list and returns the chosen index
	Select func(label string, items []string) (int, error)
}

// NewEnv opens a shell on the app's session and wires the interactive prompts
func NewEnv(a *app.App) *Env {
	shell := a.NewShell()
	return &Env{
		App:          a,
		Shell:        shell,
		API:          a.API.WithNavigator(shell),
		ReadPassword: readPasswordFromTerminal,
		Select:       promptSelect,
	}
}

func readPasswordFromTerminal() (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("password is required in non-interactive mode (use --password flag or KHUTWA_PASSWORD env var)")
	}

	fmt.Fprint(os.Stderr, "Password: ")
	password, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(password), nil
}

func promptSelect(label string, items []string) (int, error) {
	prompt := promptui.Select{
		Label: label,
		Items: items,
		Templates: &promptui.SelectTemplates{
			Label:    "{{ . }}",
			Active:   "> {{ . | cyan }}",
			Inactive: "  {{ . }}",
			Selected: "{{ . | green }}",
		},
		Size: 12,
	}

	index, _, err := prompt.Run()
	if err != nil {
		return -1, err
	}
	return index, nil
}

// printScreen writes a view as a titled table
func printScreen(w io.Writer, s *views.Screen) {
	fmt.Fprintln(w, s.Title)
	fmt.Fprintln(w, strings.Repeat("─", len([]rune(s.Title))))
	if s.Notice != "" {
		fmt.Fprintln(w, s.Notice)
	}
	if len(s.Columns) == 0 {
		return
	}
	if len(s.Rows) == 0 {
		fmt.Fprintln(w, "No records found.")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	rules := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		rules[i] = strings.Repeat("─", len([]rune(c)))
	}
	fmt.Fprintln(tw, strings.Join(s.Columns, "\t"))
	fmt.Fprintln(tw, strings.Join(rules, "\t"))
	for _, row := range s.Rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	tw.Flush()
}

func printMenu(w io.Writer, menu nav.Menu) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tPATH")
	fmt.Fprintln(tw, "────\t────")
	for _, e := range menu {
		fmt.Fprintf(tw, "%s\t%s\n", e.Name, e.Path)
	}
	tw.Flush()
}

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	fmt.Fprintln(w, string(data))
	return nil
}

// apiError turns a platform failure into the message the user should see.
// A 401 has already ended the session by the time it gets here.
func apiError(err error) error {
	if errors.Is(err, apiclient.ErrUnauthorized) {
		return fmt.Errorf("session expired, run 'khutwa login' to sign in again: %w", err)
	}
	return err
}

// requireRoute checks that the current session may open route before a
// command acts on it
func requireRoute(env *Env, route string) (nav.Outcome, error) {
	out := env.Shell.Navigate(route)
	if !out.Authenticated {
		return out, errNotLoggedIn
	}
	if out.Redirected() {
		return out, fmt.Errorf("%s is not available to this account (%s)", out.Requested, out.Steps[0].Decision)
	}
	return out, nil
}

// syncWriter serialises writes from session watchers and the command itself
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}
