package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/san-kum/commlab/internal/chat"
	"github.com/san-kum/commlab/internal/config"
	"github.com/san-kum/commlab/internal/logs"
	"github.com/san-kum/commlab/internal/remote"
	"github.com/san-kum/commlab/internal/viz"
)

// app is the wiring shared by every command.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	level   *slog.LevelVar
	closers []io.Closer
}

// setup loads .env and config, applies flag overrides and builds the logger.
// Commands that own the terminal log to a file.
func setup(cmd *cobra.Command, toFile bool) (*app, error) {
	if err := config.LoadEnv(); err != nil {
		return nil, err
	}

	var cfg *config.Config
	var err error
	if configFile != "" {
		cfg, err = config.Load(configFile)
	} else {
		cfg, err = config.LoadOrDefault(config.DefaultPath())
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("provider") {
		cfg.Remote.Provider = provider
	}
	if flags.Changed("endpoint") {
		cfg.Remote.Endpoint = endpoint
	}
	if flags.Changed("model") {
		cfg.Remote.Model = modelName
	}
	if flags.Changed("timeout") {
		cfg.Remote.Timeout = timeout
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = logLevel
	}
	if flags.Changed("log-file") {
		cfg.Log.File = logFile
	}
	if flags.Changed("theme") {
		cfg.UI.Theme = theme
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	lvl, err := logs.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, level: new(slog.LevelVar)}
	a.level.Set(lvl)

	var w io.Writer = os.Stderr
	if toFile {
		path := cfg.Log.File
		if path == "" {
			path = config.DefaultLogPath()
		}
		f, err := logs.OpenFile(path)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		a.closers = append(a.closers, f)
		w = f
	}
	a.logger = logs.New(logs.Options{Writer: w, Level: a.level})
	return a, nil
}

func (a *app) Close() {
	for _, c := range a.closers {
		_ = c.Close()
	}
}

func (a *app) inferencer(ctx context.Context) (remote.Inferencer, error) {
	inf, err := remote.New(ctx, remote.Config{
		Provider: a.cfg.Remote.Provider,
		Endpoint: a.cfg.Remote.Endpoint,
		Model:    a.cfg.Remote.Model,
		APIKey:   a.cfg.APIKey(),
		Timeout:  a.cfg.Remote.Timeout,
	})
	if err != nil {
		return nil, err
	}
	return remote.WithTimeout(inf, a.cfg.Remote.Timeout), nil
}

// axisMargin is the room asciigraph needs for the y-axis labels.
const axisMargin = 12

// chartWidth is ui.width, narrowed to fit the terminal when stdout is one.
func (a *app) chartWidth() int {
	w := a.cfg.UI.Width
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		return w
	}
	cols, _, err := term.GetSize(fd)
	if err != nil || cols <= axisMargin {
		return w
	}
	if avail := cols - axisMargin; w == 0 || w > avail {
		return avail
	}
	return w
}

func (a *app) theme() viz.Theme {
	return viz.GetTheme(a.cfg.UI.Theme)
}

// controller builds a controller over the configured schema and sampling.
func (a *app) controller(sink viz.RenderSink) *viz.Controller {
	return viz.NewController(sink,
		viz.WithLogger(a.logger.With("component", "viz")),
		viz.WithConfig(a.cfg.SynthConfig()),
		viz.WithParameters(a.cfg.Parameters()),
	)
}

func (a *app) orchestrator(inf remote.Inferencer, armer chat.Armer) (*chat.Orchestrator, error) {
	codec, err := a.cfg.Codec()
	if err != nil {
		return nil, err
	}
	return chat.New(inf,
		chat.WithCodec(codec),
		chat.WithArmer(armer),
		chat.WithLogger(a.logger.With("component", "chat")),
	), nil
}
