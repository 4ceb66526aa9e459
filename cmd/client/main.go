package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/joho/godotenv"
	"github.com/rocketscienceinc/inarow-server/internal/apperror"
	"github.com/rocketscienceinc/inarow-server/internal/remote"
)

const (
	retryInitialInterval = 2 * time.Second
	retryMultiplier      = 1.2
)

type options struct {
	addr     string
	password string
	name     string
	retry    bool
	verbose  bool
}

// main - connects to a game server as a spectator, or as an automatic player when a name is given.
func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "failed to load .env file: %v\n", err)
		os.Exit(1)
	}

	opts := options{}
	flag.StringVar(&opts.addr, "addr", "ws://localhost:9090/ws", "game server address")
	flag.StringVar(&opts.password, "password", os.Getenv("TTT_PASSWORD"), "game server password")
	flag.StringVar(&opts.name, "name", "", "join as a player with this name, spectate when empty")
	flag.BoolVar(&opts.retry, "retry", false, "reconnect when the connection fails or ends")
	flag.BoolVar(&opts.verbose, "v", false, "debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if opts.verbose {
		level = slog.LevelDebug
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, opts); err != nil {
		logger.Error("client stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, opts options) error {
	log := logger.With("method", "run")

	dialer := remote.NewDialer(logger, remote.DialerOptions{})
	closeDialer := func() {
		if err := dialer.Close(); err != nil {
			log.Error("could not close connections", "error", err)
		}
	}
	defer closeDialer()

	// closing the connections ends HandleAllUpdates
	stopDialer := context.AfterFunc(ctx, closeDialer)
	defer stopDialer()

	retry := backoff.NewExponentialBackOff()
	retry.InitialInterval = retryInitialInterval
	retry.Multiplier = retryMultiplier
	retry.MaxElapsedTime = 0

	session := func() error {
		client, err := connect(ctx, logger, dialer, opts)
		if err != nil {
			var rejected *apperror.JoinRejectedError
			if errors.As(err, &rejected) {
				return backoff.Permanent(err)
			}

			log.Warn("connection has not succeeded", "error", err)

			return err
		}

		log.Info("connected to server", "token", client.Token(), "timeout", client.Timeout())

		defer func() { _ = client.Close() }()

		client.HandleAllUpdates()

		log.Info("disconnected", "reason", client.Err())

		if ctx.Err() != nil {
			return nil
		}

		return client.Err()
	}

	if !opts.retry {
		if err := session(); err != nil && !errors.Is(err, apperror.ErrServerClosed) {
			return err
		}

		return nil
	}

	notify := func(err error, wait time.Duration) {
		log.Info("retrying", "in", wait, "error", err)
	}

	for ctx.Err() == nil {
		err := backoff.RetryNotify(session, backoff.WithContext(retry, ctx), notify)
		if err != nil && ctx.Err() == nil {
			return err
		}
	}

	return nil
}

func connect(ctx context.Context, logger *slog.Logger, dialer *remote.Dialer, opts options) (*remote.Client, error) {
	printer := &eventLogger{logger: logger.With("component", "events")}

	if opts.name == "" {
		return dialer.ConnectObserver(ctx, opts.addr, printer, opts.password)
	}

	return dialer.ConnectPlayer(ctx, opts.addr, &autoPlayer{name: opts.name, events: printer}, opts.password)
}
