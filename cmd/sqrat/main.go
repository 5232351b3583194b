// Command sqrat explores overload resolution over a small demo binding:
// an interactive prompt plus a SQLite catalog of the bound overloads.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/substring/sqrat/internal/config"
	sqrat "github.com/substring/sqrat/pkg/embed"
)

const (
	appName = "sqrat"
	Version = "0.3.0"
)

var colorEnabled = isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())

func paint(code, s string) string {
	if !colorEnabled {
		return s
	}
	return "\x1b[" + code + "m" + s + "\x1b[0m"
}

func red(s string) string   { return paint("31", s) }
func green(s string) string { return paint("32", s) }
func blue(s string) string  { return paint("94", s) }

func usage() {
	fmt.Printf(`sqrat %s

Usage:
  %s [-config file] repl                       Start the interactive prompt.
  %s [-config file] catalog export [-db path]  Write the bound overloads to SQLite.
  %s [-config file] catalog classes [-db path]
  %s [-config file] catalog overloads [-db path] [name]
  %s [-config file] catalog accepting [-db path] <type>
  %s version                                   Print the version.

Settings are read from -config, or from the nearest sqrat.yaml, sqrat.yml
or sqrat.toml above the working directory.
`, Version, appName, appName, appName, appName, appName, appName)
}

func main() {
	fs := flag.NewFlagSet(appName, flag.ContinueOnError)
	fs.Usage = usage
	configPath := fs.String("config", "", "settings file")
	if err := fs.Parse(os.Args[1:]); err != nil {
		os.Exit(2)
	}
	args := fs.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}

	switch cmd := args[0]; cmd {
	case "repl":
		os.Exit(withSession(*configPath, func(s *session) int { return cmdRepl(s, args[1:]) }))
	case "catalog":
		os.Exit(withSession(*configPath, func(s *session) int { return cmdCatalog(s, args[1:]) }))
	case "version":
		fmt.Println(Version)
	case "-h", "--help", "help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "%s: unknown command %q\n", appName, cmd)
		usage()
		os.Exit(2)
	}
}

// session is the state shared by the subcommands.
type session struct {
	vm       *sqrat.VM
	settings *config.Settings
	logger   *zap.Logger
}

func withSession(configPath string, run func(*session) int) int {
	s, err := newSession(configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, red(err.Error()))
		return 1
	}
	defer s.logger.Sync()
	return run(s)
}

func newSession(configPath string) (*session, error) {
	var (
		settings *config.Settings
		err      error
	)
	if configPath != "" {
		settings, err = config.LoadSettings(configPath)
	} else {
		settings, configPath, err = config.Discover(".")
	}
	if err != nil {
		return nil, err
	}

	logger, err := newLogger(settings.Log.Level)
	if err != nil {
		return nil, err
	}
	if configPath != "" {
		logger.Debug("settings loaded", zap.String("path", configPath))
	}

	v := sqrat.New(sqrat.WithLogger(logger), sqrat.WithSettings(settings))
	if err := bindDemo(v); err != nil {
		return nil, fmt.Errorf("binding demo classes: %w", err)
	}
	return &session{vm: v, settings: settings, logger: logger}, nil
}

// newLogger builds a zap logger writing to stderr. Debug level selects the
// development encoder config.
func newLogger(level string) (*zap.Logger, error) {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("log level %q: %w", level, err)
	}
	cfg := zap.NewProductionConfig()
	if lvl == zapcore.DebugLevel {
		cfg = zap.NewDevelopmentConfig()
	}
	if isatty.IsTerminal(os.Stderr.Fd()) {
		cfg.Encoding = "console"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	return cfg.Build()
}
