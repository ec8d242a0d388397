package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/five82/cardbridge/internal/capture"
	"github.com/five82/cardbridge/internal/config"
	"github.com/five82/cardbridge/internal/logging"
	"github.com/five82/cardbridge/internal/metrics"
	"github.com/five82/cardbridge/internal/monitor"
	"github.com/five82/cardbridge/internal/outcome"
	"github.com/five82/cardbridge/internal/reader"
	"github.com/five82/cardbridge/internal/server"
	"github.com/five82/cardbridge/internal/state"
	"github.com/five82/cardbridge/internal/submit"
	"github.com/five82/cardbridge/internal/sweep"
	"github.com/five82/cardbridge/internal/ui"
)

// eventBuffer absorbs bursts of reader status changes while the monitor is
// busy notifying.
const eventBuffer = 16

// Options configure the cardbridge application.
type Options struct {
	ConfigPath string
	EnvPath    string
	PrefsPath  string // empty uses ~/.config/cardbridge/prefs.toml
	Dashboard  bool

	// Stderr receives the config_invalid report. Nil means os.Stderr.
	Stderr io.Writer
}

// Run loads the config and runs the bridge until ctx is cancelled or the
// dashboard is closed.
func Run(ctx context.Context, opts Options) error {
	stderr := opts.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}

	cfg, err := config.Load(opts.ConfigPath, opts.EnvPath)
	if err != nil {
		reportConfigInvalid(stderr, err)
		return fmt.Errorf("load config: %w", err)
	}

	var console io.Writer = os.Stdout
	if opts.Dashboard {
		console = io.Discard
	}
	log, closer, err := logging.New(logging.Options{
		Path:    cfg.LogPath(),
		Level:   cfg.LogLevel,
		Console: console,
	})
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer func() { _ = closer.Close() }()

	log.WithFields(logrus.Fields{
		"reader":  cfg.TargetReader,
		"submit":  cfg.SubmitURL(),
		"capture": cfg.ExecFile,
	}).Info("cardbridge starting")

	store := &state.Store{}
	store.SetReader(cfg.TargetReader)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	notify := newNotifier(cfg, log, store, m, opts.Dashboard, os.Stdout)

	captureOpts := capture.Options{
		Executable: cfg.ExecFile,
		Args:       cfg.ExecArgs,
		WorkingDir: cfg.WorkingDir,
		ResultFile: cfg.ResultFile,
		Log:        log,
	}
	if opts.Dashboard {
		out := log.WriterLevel(logrus.InfoLevel)
		defer func() { _ = out.Close() }()
		captureOpts.Stdout = out
		captureOpts.Stderr = out
	} else {
		capture.InheritConsole(&captureOpts)
	}

	client, err := submit.NewClient(cfg.SubmitURL())
	if err != nil {
		return fmt.Errorf("init submit client: %w", err)
	}

	mon := monitor.New(monitor.Options{
		Reader:    cfg.TargetReader,
		Capturer:  capture.NewSupervisor(captureOpts),
		Submitter: client,
		Notify:    notify,
		Presence:  store,
		Observer:  m,
		Log:       log,
	})

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	sweeper := &sweep.Sweeper{
		Dir:             cfg.ImageDir,
		KeepImages:      cfg.KeepImages,
		RetentionMonths: cfg.RetentionMonths,
		Log:             log.WithField("component", "sweep"),
		Notify:          notify,
		Observer:        m,
	}
	sched := sweep.Start(cfg.Schedule, func() { sweeper.Run(runCtx) }, log)
	defer func() { <-sched.Stop().Done() }()
	log.WithField("next", sched.Next()).Info("image sweep scheduled")

	g, gctx := errgroup.WithContext(runCtx)
	events := make(chan reader.Event, eventBuffer)

	src := reader.NewPCSC(cfg.TargetReader, log.WithField("component", "reader"))
	g.Go(func() error {
		defer close(events)
		return src.Run(gctx, events)
	})
	g.Go(func() error {
		return mon.Run(gctx, events)
	})

	if cfg.StatusAddr != "" {
		srv := server.New(cfg.StatusAddr, store, reg, log.WithField("component", "server"))
		g.Go(func() error {
			if err := srv.Run(gctx); err != nil {
				log.WithError(err).Error("status endpoint stopped")
			}
			return nil
		})
	}

	if opts.Dashboard {
		g.Go(func() error {
			defer cancel()
			return ui.Run(gctx, ui.Options{
				Store:     store,
				LogPath:   cfg.LogPath(),
				PrefsPath: opts.PrefsPath,
			})
		})
	}

	err = g.Wait()
	log.Info("cardbridge stopped")
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// newNotifier builds the outcome fan-out for the configured notify mode. The
// console banner is suppressed while the dashboard owns the terminal.
func newNotifier(cfg config.Config, log logrus.FieldLogger, store *state.Store, m *metrics.Metrics, dashboard bool, stdout io.Writer) outcome.Fanout {
	fanout := outcome.Fanout{outcome.LogNotifier{Log: log}, store, m}
	switch cfg.NotifyMode {
	case config.NotifyDesktop:
		fanout = append(fanout, outcome.NewDesktopNotifier(cfg.IconSuccess, cfg.IconFailure, log))
	case config.NotifyConsole:
		if !dashboard {
			fanout = append(fanout, &outcome.ConsoleNotifier{Out: stdout})
		}
	}
	return fanout
}

// reportConfigInvalid reports a config_invalid outcome before the logger exists.
func reportConfigInvalid(w io.Writer, err error) {
	o := outcome.New(outcome.ConfigInvalid, err.Error(), err)
	log := logrus.New()
	log.SetOutput(w)
	outcome.LogNotifier{Log: log}.Notify(o)
	fmt.Fprintln(w, outcome.Banner(o))
}
