package core

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/encodeous/ripd/config"
	"github.com/encodeous/ripd/state"
	"github.com/encodeous/ripd/transport"
	"github.com/encodeous/tint"
	slogmulti "github.com/samber/slog-multi"
)

// newLogger builds the fanned-out slog logger: a colourized tint handler on
// stderr, plus a plain text handler appended to logPath when one is given.
func newLogger(id state.RouterId, level slog.Level, logPath string) (*slog.Logger, error) {
	handlers := []slog.Handler{
		tint.NewHandler(os.Stderr, &tint.Options{
			Level:        level,
			AddSource:    false,
			CustomPrefix: fmt.Sprintf("router-%d", id),
		}),
	}

	if logPath != "" {
		f, err := os.OpenFile(logPath, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0644)
		if err != nil {
			return nil, fmt.Errorf("opening log file %q: %w", logPath, err)
		}
		handlers = append(handlers, slog.NewTextHandler(f, &slog.HandlerOptions{Level: level}))
	}

	return slog.New(slogmulti.Fanout(handlers...)), nil
}

// Bootstrap loads configuration from configPath, binds the transport, and
// runs the engine until SIGINT or SIGTERM is received. It is the
// single entrypoint the cmd package calls into, running a single always-on
// config for the lifetime of the process (no live-restart loop).
func Bootstrap(configPath, logPath string, verbose bool) error {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log, err := newLogger(cfg.Id, level, logPath)
	if err != nil {
		return err
	}

	tr, err := transport.Bind(cfg.Inputs)
	if err != nil {
		return err
	}
	defer tr.Close()

	ctx, cancel := context.WithCancelCause(context.Background())
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-c:
			cancel(fmt.Errorf("received shutdown signal"))
		case <-ctx.Done():
		}
	}()

	engine := NewEngine(*cfg, tr, log)
	engine.Start()

	log.Info("router online, send SIGINT or Ctrl+C to stop", "id", cfg.Id)
	engine.Run(ctx)
	log.Info("stopped", "reason", context.Cause(ctx))
	return nil
}
