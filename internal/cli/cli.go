// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/jessevdk/go-flags"
	"go.uber.org/zap"

	"github.com/jeranaias/studymate/internal/config"
	"github.com/jeranaias/studymate/internal/errs"
	"github.com/jeranaias/studymate/internal/logging"
	"github.com/jeranaias/studymate/internal/mistral"
	"github.com/jeranaias/studymate/internal/rag"
	"github.com/jeranaias/studymate/internal/session"
)

// historyLimit caps the prior turns sent with each question.
const historyLimit = 20

// =============================================================================
// ENTRY POINT
// =============================================================================

// Run parses args, executes the selected command and returns the process
// exit code.
func Run(args []string) int {
	return run(args, os.Stdout, os.Stderr)
}

func run(args []string, stdout, stderr io.Writer) int {
	opts := &Options{}
	app := &App{opts: opts, out: stdout, errOut: stderr}
	defer app.Close()
	opts.bind(app)

	parser := flags.NewParser(opts, flags.HelpFlag|flags.PassDoubleDash)
	parser.Name = "studymate"
	parser.SubcommandsOptional = true

	ran := false
	dispatch := func(cmd flags.Commander, rest []string) error {
		ran = true
		if opts.Version {
			fmt.Fprintln(stdout, Version())
			return nil
		}
		if cmd == nil {
			return opts.TUI.Execute(rest)
		}
		return cmd.Execute(rest)
	}
	parser.CommandHandler = dispatch

	rest, err := parser.ParseArgs(args)
	if err == nil && !ran {
		err = dispatch(nil, rest)
	}
	if err == nil {
		return ExitSuccess
	}

	var flagErr *flags.Error
	if errors.As(err, &flagErr) && flagErr.Type == flags.ErrHelp {
		fmt.Fprintln(stdout, flagErr.Message)
		return ExitSuccess
	}

	app.logger().Error("command failed", zap.Error(err))
	fmt.Fprintln(stderr, ErrorStyle.Render("Error:")+" "+err.Error())
	if cfgErr, ok := errs.AsConfiguration(err); ok && cfgErr.Remedy != "" {
		fmt.Fprintln(stderr, DimStyle.Render(cfgErr.Remedy))
	}
	return ExitCode(err)
}

// =============================================================================
// APPLICATION STATE
// =============================================================================

// App holds what commands share: output streams, configuration, the logger
// and the backend clients. Everything is built on first use.
type App struct {
	opts   *Options
	out    io.Writer
	errOut io.Writer

	cfg      *config.Config
	log      *zap.Logger
	closeLog func()
}

// Close flushes the log.
func (a *App) Close() {
	if a.closeLog != nil {
		a.closeLog()
		a.closeLog = nil
	}
}

// Config loads configuration once and applies command-line overrides.
func (a *App) Config() (*config.Config, error) {
	if a.cfg != nil {
		return a.cfg, nil
	}

	var (
		cfg *config.Config
		err error
	)
	if a.opts.ConfigPath != "" {
		config.LoadDotEnv(".env")
		cfg, err = config.LoadFromPath(a.opts.ConfigPath)
	} else {
		cfg, err = config.Load()
		if err != nil && cfg != nil {
			fmt.Fprintf(a.errOut, "%s %v (using defaults)\n", WarningStyle.Render("Warning:"), err)
			err = nil
		}
	}
	if err != nil {
		return nil, err
	}

	if a.opts.Model != "" {
		cfg.Mistral.Model = mistral.ResolveModel(a.opts.Model)
	}
	if a.opts.APIURL != "" {
		cfg.RAG.BaseURL = a.opts.APIURL
	}
	if a.opts.LogFile != "" {
		cfg.Log.File = a.opts.LogFile
	}
	if a.opts.Debug {
		cfg.Log.Level = "debug"
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}

	config.SetGlobal(cfg)
	a.cfg = cfg
	return cfg, nil
}

// initLogger starts file logging. console mirrors entries to stderr and
// must stay off while the full-screen UI owns the terminal.
func (a *App) initLogger(console bool) error {
	if a.log != nil {
		return nil
	}
	cfg, err := a.Config()
	if err != nil {
		return err
	}
	path := cfg.Log.File
	if path == "" {
		path = config.DefaultLogPath()
	}
	log, closeLog, err := logging.New(logging.Options{
		File:    path,
		Level:   cfg.Log.Level,
		Console: console,
	})
	if err != nil {
		return fmt.Errorf("could not open log %s: %w", path, err)
	}
	a.log = log.With(zap.String("version", version))
	a.closeLog = closeLog
	return nil
}

// logger returns the application logger, or a no-op logger before
// initLogger has run.
func (a *App) logger() *zap.Logger {
	if a.log == nil {
		return zap.NewNop()
	}
	return a.log
}

// RAGClient builds a document service client from the configuration.
func (a *App) RAGClient() (*rag.Client, error) {
	cfg, err := a.Config()
	if err != nil {
		return nil, err
	}
	return rag.New(rag.Config{
		BaseURL:        cfg.RAG.BaseURL,
		Streaming:      cfg.RAG.Streaming,
		RequestTimeout: time.Duration(cfg.RAG.RequestTimeoutSecs) * time.Second,
		Logger:         a.logger().Named("rag"),
	}), nil
}

// Controller builds a session controller wired to both backends.
func (a *App) Controller() (*session.Controller, error) {
	cfg, err := a.Config()
	if err != nil {
		return nil, err
	}
	docs, err := a.RAGClient()
	if err != nil {
		return nil, err
	}
	chat := mistral.New(mistral.Config{
		APIKey:            cfg.Mistral.APIKey,
		BaseURL:           cfg.Mistral.BaseURL,
		Model:             cfg.Mistral.Model,
		Temperature:       cfg.Mistral.Temperature,
		MaxTokens:         cfg.Mistral.MaxTokens,
		RequestsPerMinute: cfg.Mistral.RequestsPerMinute,
		Logger:            a.logger().Named("mistral"),
	})

	a.logger().Info("session starting",
		zap.String("model", chat.Model()),
		zap.String("document_service", docs.BaseURL()),
		zap.Bool("streaming", cfg.RAG.Streaming))

	return session.New(session.Config{
		Chat:         chat,
		Grounded:     docs,
		Logger:       a.logger().Named("session"),
		HistoryLimit: historyLimit,
	}), nil
}

// plainOutput configures lipgloss for line-oriented commands.
func (a *App) plainOutput() {
	lipgloss.SetColorProfile(GetColorProfile())
}

// maxUploadBytes returns the configured upload limit.
func maxUploadBytes(cfg *config.Config) int64 {
	return int64(cfg.RAG.MaxUploadMB) << 20
}
