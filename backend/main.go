package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"syscall"
	"time"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"

	"github.com/soar/freightteleop/backend/internal/binding"
	"github.com/soar/freightteleop/backend/internal/config"
	"github.com/soar/freightteleop/backend/internal/hub"
	"github.com/soar/freightteleop/backend/internal/joystick"
	"github.com/soar/freightteleop/backend/internal/runner"
	"github.com/soar/freightteleop/backend/internal/server"
	"github.com/soar/freightteleop/backend/internal/sink"
	"github.com/soar/freightteleop/backend/internal/teleop"
	"github.com/soar/freightteleop/backend/internal/tray"
	"github.com/soar/freightteleop/backend/internal/watch"
)

// os.Interrupt covers Ctrl+C on every platform
var shutdownSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}

func main() {
	cfg, opts, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		config.Usage(os.Stderr)
		os.Exit(2)
	}
	if opts.Help {
		fmt.Fprintln(os.Stdout, "Usage: freightteleop [flags]")
		config.Usage(os.Stdout)
		return
	}
	if opts.PrintConfig {
		if err := config.Dump(os.Stdout, cfg); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	logger := cfg.NewLogger("freightteleop")
	defer func() { _ = logger.Sync() }()

	ctx, cancel := signal.NotifyContext(context.Background(), shutdownSignals...)
	defer cancel()

	if opts.WatchURL != "" {
		err = watch.Run(ctx, opts.WatchURL, os.Stdout, logger.Named("watch"))
	} else {
		err = run(ctx, cfg, logger)
	}
	if err != nil {
		logger.Errorw("exiting", "error", err)
		_ = logger.Sync()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger golog.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	table, err := binding.New(cfg.Bindings)
	if err != nil {
		return err
	}
	table.Describe(logger.Named("bindings"))
	translator := teleop.NewTranslator(table, logger.Named("teleop"))

	out, err := openSinks(cfg.Sink, logger.Named("sink"))
	if err != nil {
		return err
	}
	defer func() {
		if err := out.Close(); err != nil {
			logger.Warnw("closing sinks", "error", err)
		}
	}()

	reader := joystick.NewReader(joystick.Config{
		Deadzone:       cfg.Input.Deadzone,
		PollInterval:   cfg.Input.PollInterval,
		RepeatInterval: cfg.Input.RepeatInterval,
	}, logger.Named("joystick"))

	var (
		observers runner.Observers
		r         *runner.Runner
	)

	// monitor
	monitorDone := make(chan struct{})
	defer close(monitorDone)
	var (
		srv         *server.Server
		broadcaster *hub.Broadcaster
	)
	monitorURL := ""
	if cfg.Monitor.Enabled {
		h := hub.NewHub(logger.Named("hub"))
		go h.Run(monitorDone)
		// only read once the broadcaster and server goroutines start, after r
		// is assigned
		broadcaster = hub.NewBroadcaster(h, hub.StatsFunc(func() runner.Stats { return r.Stats() }), logger.Named("hub"))
		observers = append(observers, broadcaster)

		srv, err = server.New(h, broadcaster, getFrontendFS(), cfg.Monitor.Addr, logger.Named("server"))
		if err != nil {
			return err
		}
		addr, err := srv.Listen()
		if err != nil {
			return err
		}
		monitorURL = monitorURLFor(cfg.Monitor.Addr, addr)
	}

	// tray, Windows only
	shutdownRequested := make(chan struct{})
	var t *tray.Tray
	if runtime.GOOS == "windows" && cfg.Tray.Enabled {
		t = tray.New(monitorURL, func() { close(shutdownRequested) }, logger.Named("tray"))
		icon, err := tray.GetIcon()
		if err != nil {
			logger.Warnw("tray icon", "error", err)
		}
		go t.Run(icon)
		last := teleop.ModeNone
		observers = append(observers, runner.ObserverFunc(func(b runner.Batch) {
			if b.Mode != last {
				last = b.Mode
				t.SetMode(b.Mode.String())
			}
		}))
	} else {
		logger.Info("press Ctrl+C to exit")
	}

	r = runner.New(runner.Config{SendRetries: cfg.Sink.SendRetries},
		translator, reader.Snapshots(), out, observers, logger.Named("runner"))
	r.Start()

	serverErrCh := make(chan error, 1)
	if srv != nil {
		go broadcaster.Run(monitorDone)
		go func() {
			if err := srv.Serve(); err != nil {
				serverErrCh <- err
			}
		}()
		logger.Infow("monitor available", "url", monitorURL)
		if cfg.Monitor.QRCode {
			if qr, err := server.QRCode(monitorURL); err == nil {
				fmt.Fprint(os.Stdout, qr)
			} else {
				logger.Warnw("qr code", "error", err)
			}
		}
	}

	readerErrCh := make(chan error, 1)
	go func() {
		readerErrCh <- reader.Run(ctx)
	}()

	logger.Info("freight teleop started")

	var (
		runErr       error
		readerExited bool
	)
	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case <-shutdownRequested:
		logger.Info("shutdown requested from tray")
	case err := <-serverErrCh:
		runErr = errors.Wrap(err, "monitor server")
	case err := <-readerErrCh:
		readerExited = true
		if err != nil {
			runErr = errors.Wrap(err, "joystick reader")
		}
	}
	cancel()

	if !readerExited {
		if err := <-readerErrCh; err != nil && runErr == nil {
			runErr = errors.Wrap(err, "joystick reader")
		}
	}
	// the reader closed the snapshot stream, so the runner sends its final
	// neutral and exits
	r.Stop()
	logger.Infow("runner stopped", "stats", r.Stats(), "dropped_snapshots", reader.Dropped())

	if srv != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warnw("HTTP server shutdown error", "error", err)
		}
	}
	if t != nil {
		t.Quit()
	}

	logger.Info("freight teleop stopped")
	return runErr
}

func openSinks(cfg config.SinkConfig, logger golog.Logger) (sink.Multi, error) {
	udp, err := sink.NewUDP(cfg.UDP, logger.Named("udp"))
	if err != nil {
		return nil, err
	}
	out := sink.Multi{udp}
	if cfg.CAN.Enabled {
		can, err := sink.NewCAN(cfg.CAN, logger.Named("can"))
		if err != nil {
			_ = out.Close()
			return nil, err
		}
		out = append(out, can)
	}
	if cfg.Serial.Enabled {
		ser, err := sink.NewSerial(cfg.Serial, logger.Named("serial"))
		if err != nil {
			_ = out.Close()
			return nil, err
		}
		out = append(out, ser)
	}
	return out, nil
}

// monitorURLFor combines the configured host with the bound port.
func monitorURLFor(configured string, bound net.Addr) string {
	host, _, _ := net.SplitHostPort(configured)
	port := 0
	if tcp, ok := bound.(*net.TCPAddr); ok {
		port = tcp.Port
	} else if _, p, err := net.SplitHostPort(bound.String()); err == nil {
		port, _ = strconv.Atoi(p)
	}
	return server.MonitorURL(host, port)
}
