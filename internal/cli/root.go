package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/khutwa-dev/khutwa/internal/app"
	"github.com/khutwa-dev/khutwa/internal/cli/commands"
	"github.com/khutwa-dev/khutwa/internal/config"
	"github.com/khutwa-dev/khutwa/internal/logger"
)

var version = "dev" // Will be set during build

type options struct {
	env *commands.Env
}

// Option configures the root command
type Option func(*options)

// WithEnv runs the commands against env instead of one built from the
// environment
func WithEnv(env *commands.Env) Option {
	return func(o *options) {
		o.env = env
	}
}

// NewRootCmd creates the khutwa command tree
func NewRootCmd(opts ...Option) *cobra.Command {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	env := o.env
	injected := env != nil
	if env == nil {
		env = &commands.Env{}
	}

	rootCmd := &cobra.Command{
		Use:   "khutwa",
		Short: "Khutwa - Operator console for the Khutwa course platform",
		Long: `Khutwa CLI - Manage courses, quizzes, users and payments on the Khutwa
platform.

Every screen of the admin console is addressed by its route path. The session
is shared with the web console, so signing out in one signs out everywhere.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if injected || cmd.Name() == "version" {
				return nil
			}

			cfg, err := config.Load("console")
			if err != nil {
				return err
			}
			logger.Init(cfg.Logging, os.Stderr)

			a, err := app.Open(cmd.Context(), cfg, logger.GetLogger())
			if err != nil {
				return err
			}
			*env = *commands.NewEnv(a)
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if injected || env.App == nil {
				return nil
			}
			return env.App.Close()
		},
	}

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "khutwa version %s\n", version)
		},
	})

	rootCmd.AddCommand(commands.NewLoginCmd(env))
	rootCmd.AddCommand(commands.NewLogoutCmd(env))
	rootCmd.AddCommand(commands.NewWhoamiCmd(env))
	rootCmd.AddCommand(commands.NewOpenCmd(env))
	rootCmd.AddCommand(commands.NewMenuCmd(env))
	rootCmd.AddCommand(commands.NewShellCmd(env))
	rootCmd.AddCommand(commands.NewCourseCmd(env))
	rootCmd.AddCommand(commands.NewQuizCmd(env))

	return rootCmd
}

// Execute runs the root command
func Execute() error {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}
