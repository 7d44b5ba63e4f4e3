package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/san-kum/commlab/internal/analysis"
	"github.com/san-kum/commlab/internal/audio"
	"github.com/san-kum/commlab/internal/config"
	"github.com/san-kum/commlab/internal/export"
	"github.com/san-kum/commlab/internal/server"
	"github.com/san-kum/commlab/internal/synth"
	"github.com/san-kum/commlab/internal/tui"
	"github.com/san-kum/commlab/internal/viz"
)

var (
	configFile string
	logLevel   string
	logFile    string
	provider   string
	endpoint   string
	modelName  string
	timeout    time.Duration
	theme      string

	// Signal parameters
	carrier float64
	modFreq float64
	index   float64
	preset  string

	spectrum bool
	outPath  string
	showPlot bool
	addr     string
	sound    bool

	sweepParam string
	sweepFrom  float64
	sweepTo    float64
	sweepSteps int
)

// main registers the commands and runs the chat when no subcommand is given.
// It exits with status 1 if the command returns an error.
func main() {
	rootCmd := &cobra.Command{
		Use:          "commlab",
		Short:        "communication theory assistant with live AM simulation",
		SilenceUsage: true,
		RunE:         runChat,
		Args:         cobra.NoArgs,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configFile, "config", "", "config file path (yaml, default ~/.commlab/config.yaml)")
	pf.StringVar(&logLevel, "log-level", config.DefaultLogLevel, "log level (debug|info|warn|error)")
	pf.StringVar(&logFile, "log-file", "", "log file for terminal UIs (default ~/.commlab/commlab.log)")
	pf.StringVar(&provider, "provider", config.ProviderHTTP, "inference provider (http|gemini)")
	pf.StringVar(&endpoint, "endpoint", config.DefaultEndpoint, "chat endpoint for the http provider")
	pf.StringVar(&modelName, "model", config.DefaultModel, "model for the gemini provider")
	pf.DurationVar(&timeout, "timeout", config.DefaultTimeout, "inference timeout")
	pf.StringVar(&theme, "theme", config.DefaultTheme, "color theme ("+strings.Join(viz.ThemeNames(), "|")+")")

	chatCmd := &cobra.Command{
		Use:   "chat",
		Short: "interactive chat with the simulation panel",
		Args:  cobra.NoArgs,
		RunE:  runChat,
	}

	askCmd := &cobra.Command{
		Use:   "ask [question...]",
		Short: "ask one question and print the answer",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runAsk,
	}
	askCmd.Flags().BoolVar(&showPlot, "plot", false, "plot the simulation when the answer has one")

	simCmd := &cobra.Command{
		Use:   "sim",
		Short: "live AM visualization",
		Args:  cobra.NoArgs,
		RunE:  runSim,
	}
	addSignalFlags(simCmd)
	simCmd.Flags().BoolVar(&sound, "audio", false, "play the signal, carrier shifted x10 into the audible range")

	plotCmd := &cobra.Command{
		Use:   "plot",
		Short: "plot one AM frame",
		Args:  cobra.NoArgs,
		RunE:  runPlot,
	}
	addSignalFlags(plotCmd)
	plotCmd.Flags().BoolVar(&spectrum, "spectrum", false, "also plot the magnitude spectrum")

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv",
		Short: "export one AM frame to CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, func(_ *app, w io.Writer, f synth.Frame) error {
				return export.WriteCSV(w, f)
			})
		},
	}

	exportJSONCmd := &cobra.Command{
		Use:   "export-json",
		Short: "export one AM frame to JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, func(_ *app, w io.Writer, f synth.Frame) error {
				return export.WriteJSON(w, f)
			})
		},
	}

	exportSVGCmd := &cobra.Command{
		Use:   "export-svg",
		Short: "export one AM frame to SVG",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, func(a *app, w io.Writer, f synth.Frame) error {
				opts := export.DefaultSVGOptions()
				t := a.theme()
				opts.Colors = []string{string(t.Secondary), string(t.Primary)}
				return export.WriteSVG(w, f, opts)
			})
		},
	}

	for _, c := range []*cobra.Command{exportCSVCmd, exportJSONCmd, exportSVGCmd} {
		addSignalFlags(c)
		c.Flags().StringVarP(&outPath, "out", "o", "", "output file (default stdout)")
	}

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "sweep one parameter and tabulate efficiency and spectral peaks",
		Args:  cobra.NoArgs,
		RunE:  runSweep,
	}
	addSignalFlags(sweepCmd)
	sweepCmd.Flags().StringVar(&sweepParam, "param", "index", "parameter to sweep (fc|fm|index)")
	sweepCmd.Flags().Float64Var(&sweepFrom, "from", 0, "first value")
	sweepCmd.Flags().Float64Var(&sweepTo, "to", 1, "last value")
	sweepCmd.Flags().IntVar(&sweepSteps, "steps", 5, "number of values")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available AM presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tCARRIER\tTONE\tINDEX\tDESCRIPTION")
			for _, name := range config.ListPresets("am") {
				p := config.GetPreset("am", name)
				fmt.Fprintf(w, "%s\t%g Hz\t%g Hz\t%.2f\t%s\n", name, p.Params.CarrierFreq, p.Params.ModFreq, p.Params.ModIndex, p.Description)
			}
			return w.Flush()
		},
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "serve the /chat endpoint",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
	serveCmd.Flags().StringVar(&addr, "addr", config.DefaultAddr, "listen address")

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "inspect or create the config file",
	}
	configInitCmd := &cobra.Command{
		Use:   "init",
		Short: "write the default config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigInit,
	}
	configShowCmd := &cobra.Command{
		Use:   "show",
		Short: "print the effective config",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd, false)
			if err != nil {
				return err
			}
			defer a.Close()
			return config.Encode(cmd.OutOrStdout(), a.cfg)
		},
	}
	configCmd.AddCommand(configInitCmd, configShowCmd)

	rootCmd.AddCommand(chatCmd, askCmd, simCmd, plotCmd, exportCSVCmd, exportJSONCmd, exportSVGCmd, sweepCmd, presetsCmd, serveCmd, configCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addSignalFlags(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&carrier, "fc", 50, "carrier frequency (Hz)")
	cmd.Flags().Float64Var(&modFreq, "fm", 5, "modulating frequency (Hz)")
	cmd.Flags().Float64Var(&index, "index", 0.5, "modulation index")
	cmd.Flags().StringVar(&preset, "preset", "", "use preset parameters ("+strings.Join(config.ListPresets("am"), "|")+")")
}

// applySignalFlags applies a preset, then explicit flags, on top of the config.
func applySignalFlags(cmd *cobra.Command, cfg *config.Config) error {
	p := cfg.SynthParams()
	if preset != "" {
		pr := config.GetPreset("am", preset)
		if pr == nil {
			return fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets("am"))
		}
		p = pr.Params
	}
	if cmd.Flags().Changed("fc") {
		p.CarrierFreq = carrier
	}
	if cmd.Flags().Changed("fm") {
		p.ModFreq = modFreq
	}
	if cmd.Flags().Changed("index") {
		p.ModIndex = index
	}
	if err := p.Validate(); err != nil {
		return err
	}
	cfg.ApplyParams(p)
	return nil
}

func runChat(cmd *cobra.Command, args []string) error {
	a, err := setup(cmd, true)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	inf, err := a.inferencer(ctx)
	if err != nil {
		return err
	}
	sink := viz.NewAsciiSink(a.theme(), a.chartWidth(), a.cfg.UI.Height)
	ctrl := a.controller(sink)
	orch, err := a.orchestrator(inf, ctrl)
	if err != nil {
		return err
	}

	a.logger.Info("chat started", "provider", a.cfg.Remote.Provider, "endpoint", a.cfg.Remote.Endpoint)
	p := tea.NewProgram(tui.NewChatModel(ctx, orch, ctrl, sink), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err = p.Run()
	return err
}

func runAsk(cmd *cobra.Command, args []string) error {
	a, err := setup(cmd, false)
	if err != nil {
		return err
	}
	defer a.Close()

	inf, err := a.inferencer(cmd.Context())
	if err != nil {
		return err
	}
	sink := viz.NewAsciiSink(a.theme(), a.chartWidth(), a.cfg.UI.Height)
	ctrl := a.controller(sink)
	orch, err := a.orchestrator(inf, ctrl)
	if err != nil {
		return err
	}

	out, err := orch.Ask(cmd.Context(), strings.Join(args, " "))
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	fmt.Fprintln(w, out.Turn.Rendered)
	if out.Err != nil {
		return fmt.Errorf("ask: %w", out.Err)
	}
	if !out.Armed {
		return nil
	}

	fmt.Fprintf(w, "\nsimulation: %s\n", out.Turn.Descriptor.Scheme)
	for _, p := range ctrl.Params() {
		fmt.Fprintf(w, "  %-24s %s  [%s .. %s, step %g]\n", p.DisplayName(), p.Format(p.Current), p.Format(p.Min), p.Format(p.Max), p.Step)
	}
	if showPlot {
		if err := ctrl.Activate(); err != nil {
			return err
		}
		fmt.Fprintln(w)
		fmt.Fprintln(w, sink.View())
	}
	return nil
}

func runSim(cmd *cobra.Command, args []string) error {
	a, err := setup(cmd, true)
	if err != nil {
		return err
	}
	defer a.Close()
	if err := applySignalFlags(cmd, a.cfg); err != nil {
		return err
	}

	sink := viz.NewAsciiSink(a.theme(), a.chartWidth(), a.cfg.UI.Height)
	m, err := tui.NewSimModel(a.controller(sink), sink)
	if err != nil {
		return err
	}
	if sound {
		player := audio.NewPlayer(a.cfg.SynthParams())
		if err := player.Start(); err != nil {
			return err
		}
		defer player.Stop()
		m.OnChange(player.Set)
	}
	_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}

// frame renders the configured parameters once through a controller, so
// values are clamped exactly as in the interactive views.
func frame(cmd *cobra.Command) (*app, *viz.Controller, *viz.AsciiSink, error) {
	a, err := setup(cmd, false)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := applySignalFlags(cmd, a.cfg); err != nil {
		a.Close()
		return nil, nil, nil, err
	}
	sink := viz.NewAsciiSink(a.theme(), a.chartWidth(), a.cfg.UI.Height)
	ctrl := a.controller(sink)
	if err := ctrl.Activate(); err != nil {
		a.Close()
		return nil, nil, nil, err
	}
	return a, ctrl, sink, nil
}

func runPlot(cmd *cobra.Command, args []string) error {
	a, ctrl, sink, err := frame(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	w := cmd.OutOrStdout()
	fmt.Fprintln(w, sink.View())
	if !spectrum {
		return nil
	}

	snap := ctrl.Snapshot()
	bins, err := analysis.Spectrum(snap.Frame.Signal, snap.Frame.Config.Duration)
	if err != nil {
		return err
	}
	p := snap.Frame.Params
	maxFreq := p.CarrierFreq + 2*p.ModFreq
	caption := fmt.Sprintf("magnitude spectrum 0..%g Hz", maxFreq)
	fmt.Fprintln(w)
	fmt.Fprintln(w, viz.PlotSpectrum(analysis.Magnitudes(bins, maxFreq), caption, a.theme(), a.chartWidth(), a.cfg.UI.Height))

	fmt.Fprintln(w)
	for _, b := range analysis.PeakFrequencies(bins, 3) {
		fmt.Fprintf(w, "peak %7.2f Hz  magnitude %.3f\n", b.Freq, b.Magnitude)
	}
	fmt.Fprintf(w, "bandwidth %.2f Hz  efficiency %.1f%%\n", analysis.Bandwidth(p.ModFreq), analysis.Efficiency(p.ModIndex)*100)
	if analysis.Overmodulated(p.ModIndex) {
		fmt.Fprintln(w, "overmodulated: envelope distortion")
	}
	return nil
}

func runExport(cmd *cobra.Command, write func(*app, io.Writer, synth.Frame) error) error {
	a, ctrl, _, err := frame(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	f := ctrl.Snapshot().Frame
	if outPath == "" {
		return write(a, cmd.OutOrStdout(), f)
	}
	if err := writeFile(outPath, func(w io.Writer) error { return write(a, w, f) }); err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "exported to %s\n", outPath)
	return nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := writeClose(f, write); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// writeClose always closes wc and reports the close error when the write
// itself succeeded.
func writeClose(wc io.WriteCloser, write func(io.Writer) error) (err error) {
	defer func() {
		if cerr := wc.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return write(wc)
}

func runSweep(cmd *cobra.Command, args []string) error {
	a, err := setup(cmd, false)
	if err != nil {
		return err
	}
	defer a.Close()
	if err := applySignalFlags(cmd, a.cfg); err != nil {
		return err
	}

	setters := map[string]synth.Setter{
		"fc":    synth.SetCarrierFreq,
		"fm":    synth.SetModFreq,
		"index": synth.SetModIndex,
	}
	set, ok := setters[sweepParam]
	if !ok {
		return fmt.Errorf("unknown sweep parameter: %s (available: fc, fm, index)", sweepParam)
	}
	if sweepSteps < 1 {
		return fmt.Errorf("steps must be at least 1, got %d", sweepSteps)
	}

	simCfg := a.cfg.SynthConfig()
	frames, err := synth.Sweep(cmd.Context(), a.cfg.SynthParams(), simCfg, synth.Range(sweepFrom, sweepTo, sweepSteps), set)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "FC\tFM\tINDEX\tEFFICIENCY\tBANDWIDTH\tPEAKS")
	for _, f := range frames {
		bins, err := analysis.Spectrum(f.Signal, simCfg.Duration)
		if err != nil {
			return err
		}
		var peaks []string
		for _, b := range analysis.PeakFrequencies(bins, 3) {
			peaks = append(peaks, fmt.Sprintf("%.1f:%.2f", b.Freq, b.Magnitude))
		}
		p := f.Params
		mark := ""
		if analysis.Overmodulated(p.ModIndex) {
			mark = " !"
		}
		fmt.Fprintf(w, "%g\t%g\t%.2f%s\t%.1f%%\t%g Hz\t%s\n", p.CarrierFreq, p.ModFreq, p.ModIndex, mark,
			analysis.Efficiency(p.ModIndex)*100, analysis.Bandwidth(p.ModFreq), strings.Join(peaks, " "))
	}
	return w.Flush()
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := setup(cmd, false)
	if err != nil {
		return err
	}
	defer a.Close()
	if cmd.Flags().Changed("addr") {
		a.cfg.Server.Addr = addr
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	inf, err := a.inferencer(ctx)
	if err != nil {
		return err
	}
	srv, err := server.New(inf, server.Config{
		Addr:           a.cfg.Server.Addr,
		AllowedOrigins: a.cfg.Server.AllowedOrigins,
		Logger:         a.logger.With("component", "server"),
	})
	if err != nil {
		return err
	}

	var wg sync.WaitGroup
	errChan := make(chan error, 1)
	srv.Start(&wg, errChan)

	select {
	case err = <-errChan:
	case <-ctx.Done():
		a.logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err = srv.Shutdown(shutdownCtx)
	}
	wg.Wait()
	return err
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := configFile
	if path == "" {
		path = config.DefaultPath()
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config already exists: %s", path)
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	}
	if err := config.Save(path, config.DefaultConfig()); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
	return nil
}
