package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/banshee-data/sonarmap/internal/api"
	"github.com/banshee-data/sonarmap/internal/config"
	"github.com/banshee-data/sonarmap/internal/db"
	"github.com/banshee-data/sonarmap/internal/fsutil"
	"github.com/banshee-data/sonarmap/internal/ingest"
	"github.com/banshee-data/sonarmap/internal/monitoring"
	"github.com/banshee-data/sonarmap/internal/serialmux"
	"github.com/banshee-data/sonarmap/internal/snapshot"
	"github.com/banshee-data/sonarmap/internal/sonar"
	"github.com/banshee-data/sonarmap/internal/tui"
	"github.com/banshee-data/sonarmap/internal/units"
)

const defaultReplayInterval = 20 * time.Millisecond

type runOptions struct {
	configPath     string
	port           string
	baud           int
	replay         string
	replayInterval time.Duration
	listen         string
	tui            bool
	logFile        string
	plotDir        string
	dbPath         string
	units          string
	logRejections  bool
	disablePlots   bool
	disableSerial  bool
	disableDB      bool
}

func newRunCmd() *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Read the sensor and maintain the live map",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts.configPath)
			if err != nil {
				return err
			}
			opts.applyOverrides(cmd, cfg)
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			if !units.IsValid(opts.units) {
				return fmt.Errorf("invalid --units %q; valid units: %s", opts.units, units.GetValidUnitsString())
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runSonarmap(ctx, opts, cfg)
		},
	}

	opts.bindFlags(cmd)
	return cmd
}

func (o *runOptions) bindFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&o.configPath, "config", "", "Path to a .json or .toml config file (default "+config.DefaultConfigPath+" when present)")
	f.StringVar(&o.port, "port", config.DefaultSerialPort, "Serial port the sensor is attached to")
	f.IntVar(&o.baud, "baud", config.DefaultBaudRate, "Serial baud rate")
	f.StringVar(&o.replay, "replay", "", "Replay lines from a capture file instead of reading the serial port")
	f.DurationVar(&o.replayInterval, "replay-interval", defaultReplayInterval, "Delay between replayed lines")
	f.StringVar(&o.listen, "listen", config.DefaultListen, "HTTP listen address; empty disables the server")
	f.BoolVar(&o.tui, "tui", false, "Draw the live map in the terminal")
	f.StringVar(&o.logFile, "log-file", "sonarmap.log", "Log destination while --tui owns the terminal")
	f.StringVar(&o.plotDir, "plot-dir", config.DefaultPlotDir, "Directory for PNG snapshots")
	f.StringVar(&o.dbPath, "db", config.DefaultDBPath, "Snapshot catalog database")
	f.StringVar(&o.units, "units", units.Metres, "Default units for /api/points")
	f.BoolVar(&o.logRejections, "log-rejections", false, "Log every dropped line")
	f.BoolVar(&o.disablePlots, "disable-plots", false, "Do not write PNG snapshots")
	f.BoolVar(&o.disableSerial, "disable-serial", false, "Run without any line source")
	f.BoolVar(&o.disableDB, "disable-db", false, "Do not record sessions and snapshots")
}

// loadConfig reads path, or the canonical defaults file when path is empty and
// the file exists, or falls back to the built-in defaults.
func loadConfig(path string) (*config.SonarConfig, error) {
	if path != "" {
		return config.LoadSonarConfig(path)
	}
	if _, err := os.Stat(config.DefaultConfigPath); err == nil {
		return config.LoadSonarConfig(config.DefaultConfigPath)
	}
	return config.DefaultSonarConfig(), nil
}

// applyOverrides copies explicitly set flags over the file configuration.
func (o *runOptions) applyOverrides(cmd *cobra.Command, cfg *config.SonarConfig) {
	changed := cmd.Flags().Changed

	if changed("port") {
		cfg.SerialPort = &o.port
	}
	if changed("baud") {
		serial := cfg.GetSerialOptions()
		serial.BaudRate = o.baud
		cfg.Serial = &serial
	}
	if changed("listen") {
		cfg.Listen = &o.listen
	}
	if changed("plot-dir") {
		cfg.PlotDir = &o.plotDir
	}
	if changed("db") {
		cfg.DBPath = &o.dbPath
	}
	if changed("log-rejections") {
		cfg.LogRejections = &o.logRejections
	}
}

// openLineSource picks the transport: nothing, a replay file, or the serial
// port. The returned label names the source in logs and the catalog.
func openLineSource(o *runOptions, cfg *config.SonarConfig) (serialmux.SerialMuxInterface, string, error) {
	switch {
	case o.disableSerial:
		return serialmux.NewDisabledSerialMux(), "disabled", nil

	case o.replay != "":
		lines, err := serialmux.LoadReplayLines(fsutil.OSFileSystem{}, o.replay)
		if err != nil {
			return nil, "", err
		}
		return serialmux.NewReplaySerialMux(lines, o.replayInterval, serialmux.WithSettleDelay(0)),
			"replay:" + filepath.Base(o.replay), nil

	default:
		port := cfg.GetSerialPort()
		m, err := serialmux.NewRealSerialMux(port, cfg.GetSerialOptions(),
			serialmux.WithSettleDelay(cfg.GetSettleDelay()))
		if err != nil {
			return nil, "", fmt.Errorf("failed to open serial port %s: %w", port, err)
		}
		return m, port, nil
	}
}

func runSonarmap(parent context.Context, o *runOptions, cfg *config.SonarConfig) error {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	if o.tui {
		f, err := tea.LogToFile(o.logFile, "sonarmap")
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		defer f.Close()
	}

	pcfg := cfg.PipelineConfig()

	source, label, err := openLineSource(o, cfg)
	if err != nil {
		return err
	}
	defer source.Close()

	if err := source.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize %s: %w", label, err)
	}
	log.Printf("initialized line source %s", label)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := monitoring.NewPipelineMetrics(reg)

	pipeOpts := []sonar.Option{sonar.WithObserver(metrics)}
	if cfg.GetLogRejections() {
		pipeOpts = append(pipeOpts, sonar.WithObserver(monitoring.RejectionLogger()))
	}
	pipeline, err := sonar.New(pcfg, pipeOpts...)
	if err != nil {
		return err
	}

	var (
		database *db.DB
		session  *db.Session
	)
	if !o.disableDB {
		database, err = db.NewDB(cfg.GetDBPath())
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer database.Close()

		session, err = database.StartSession(label, pcfg, time.Now())
		if err != nil {
			return fmt.Errorf("failed to start session: %w", err)
		}
		log.Printf("started session %s", session.ID())
		defer func() {
			if err := session.End(pipeline.Stats(), time.Now()); err != nil {
				log.Printf("failed to close session %s: %v", session.ID(), err)
			}
		}()
	}

	sub := serialmux.NewSubscription(source)
	defer sub.Close()

	loopCfg := ingest.Config{
		Pipeline: pipeline,
		Source:   sub,
		Interval: cfg.GetIngestInterval(),
		Metrics:  metrics,
	}
	if !o.disablePlots {
		saverOpts := []snapshot.SaverOption{
			snapshot.WithResultHook(func(r snapshot.Result) { metrics.SnapshotSaved(r.Err) }),
		}
		if session != nil {
			saverOpts = append(saverOpts, snapshot.WithRecorder(session))
		}
		loopCfg.Saver = snapshot.NewSaver(snapshot.NewRenderer(pcfg), cfg.GetPlotDir(), cfg.GetSaveEveryNFrames(), saverOpts...)
	}
	loop := ingest.NewLoop(loopCfg)

	var wg sync.WaitGroup

	// run the monitor routine to manage IO on the line source; when the
	// transport ends there is nothing left to drain, so the run stops
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer cancel()
		if err := source.Monitor(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("failed to monitor %s: %v", label, err)
		}
		log.Print("monitor routine terminated")
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer cancel()
		if err := loop.Run(ctx); err != nil {
			log.Printf("ingest loop failed: %v", err)
		}
		log.Printf("ingest routine stopped after %d frames", loop.Frames())
	}()

	if listen := cfg.GetListen(); listen != "" {
		serverOpts := apiOptions(o, cfg, reg)
		if database != nil {
			serverOpts = append(serverOpts, api.WithCatalog(database), api.WithSessionID(session.ID()))
		}
		mux := api.NewServer(pipeline, serverOpts...).ServeMux()
		source.AttachAdminRoutes(mux)
		if database != nil {
			if err := database.AttachAdminRoutes(mux); err != nil {
				log.Printf("failed to attach database admin routes: %v", err)
			}
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			serveHTTP(ctx, cancel, listen, api.LoggingMiddleware(mux))
		}()
	}

	if o.tui {
		model := tui.New(ctx, tui.NewLocalSource(pipeline, label), cfg.GetRenderInterval())
		prog := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
		if _, err := prog.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
			log.Printf("terminal map stopped: %v", err)
		}
		cancel()
	}

	// Wait for all goroutines to finish
	wg.Wait()
	log.Printf("Graceful shutdown complete")
	return nil
}

// apiOptions returns the HTTP server options shared by every run.
func apiOptions(o *runOptions, cfg *config.SonarConfig, reg prometheus.Gatherer) []api.ServerOption {
	return []api.ServerOption{
		api.WithGatherer(reg),
		api.WithUnits(o.units),
		api.WithRefresh(cfg.GetRenderInterval()),
	}
}

// serveHTTP runs the server until ctx ends. A listen failure cancels the run.
func serveHTTP(ctx context.Context, cancel context.CancelFunc, addr string, h http.Handler) {
	server := &http.Server{
		Addr:    addr,
		Handler: h,
	}

	// Start server in a goroutine so it doesn't block
	go func() {
		log.Printf("HTTP server listening on %s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
			cancel()
		}
	}()

	// Wait for context cancellation to shut down server
	<-ctx.Done()
	log.Println("shutting down HTTP server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
		// Force close the server if graceful shutdown fails
		if err := server.Close(); err != nil {
			log.Printf("HTTP server force close error: %v", err)
		}
	}

	log.Printf("HTTP server routine stopped")
}
