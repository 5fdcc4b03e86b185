package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"
)

type Options struct {
	Verbose bool
	JSON    bool

	// ForceConsole keeps the console encoder even when stderr is not a
	// terminal. Used by tests.
	ForceConsole bool
}

// New builds the process logger. Interactive runs get a colored console
// encoder; anything without a terminal on stderr (systemd, containers)
// gets JSON so log collectors can parse it.
func New(opts Options) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if opts.Verbose {
		level = zapcore.DebugLevel
	}

	useJSON := opts.JSON
	if !useJSON && !opts.ForceConsole && !term.IsTerminal(int(os.Stderr.Fd())) {
		useJSON = true
	}

	cfg := zap.NewProductionConfig()
	if !useJSON {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.TimeKey = ""
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		cfg.EncoderConfig.EncodeCaller = nil
	}

	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.DisableStacktrace = !opts.Verbose

	if useJSON {
		cfg.Encoding = "json"
	} else {
		cfg.Encoding = "console"
	}

	return cfg.Build()
}
