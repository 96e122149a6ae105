// Package logger holds the process-wide zerolog logger shared by the CLI and
// the web console.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/term"

	"github.com/khutwa-dev/khutwa/internal/config"
)

// Logger stays silent until Init runs, so library code and tests log nowhere
var Logger = zerolog.Nop()

// Init builds the logger from cfg and installs it as the process logger.
// The CLI writes to stderr so screen output on stdout can be piped.
func Init(cfg config.LoggingConfig, out io.Writer) {
	zerolog.SetGlobalLevel(parseLogLevel(cfg.Level))
	Logger = New(cfg.Format, out)
	log.Logger = Logger
}

// New returns a logger writing json lines, or human readable lines for any
// other format. Colors are used only when out is a terminal.
func New(format string, out io.Writer) zerolog.Logger {
	if strings.EqualFold(format, "json") {
		return zerolog.New(out).With().Timestamp().Caller().Logger()
	}

	return zerolog.New(zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: time.RFC3339,
		NoColor:    !isTerminal(out),
	}).With().Timestamp().Logger()
}

func isTerminal(out io.Writer) bool {
	f, ok := out.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// parseLogLevel maps LOG_LEVEL onto zerolog; unknown values fall back to info
func parseLogLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "off", "disabled":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// GetLogger returns the process logger
func GetLogger() zerolog.Logger {
	return Logger
}

// Component returns the process logger tagged with a component name
func Component(name string) zerolog.Logger {
	return Logger.With().Str("component", name).Logger()
}
