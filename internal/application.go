package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/rocketscienceinc/inarow-server/internal/config"
	"github.com/rocketscienceinc/inarow-server/internal/entity"
	"github.com/rocketscienceinc/inarow-server/internal/remote"
	"github.com/rocketscienceinc/inarow-server/internal/repository"
	"github.com/rocketscienceinc/inarow-server/internal/repository/storage"
	"github.com/rocketscienceinc/inarow-server/transport/rest"
	"github.com/rocketscienceinc/inarow-server/transport/websocket"
	"golang.org/x/sync/errgroup"
)

const (
	lobbyWait       = 500 * time.Millisecond
	shutdownTimeout = 5 * time.Second
)

// RunApp - runs the application.
func RunApp(logger *slog.Logger, conf *config.Config) error {
	log := logger.With("component", "app")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	participants := repository.NewMemoryParticipantRepository()

	if conf.Redis.Enabled {
		redisStorage, err := storage.NewRedisStorage(ctx, conf.Redis.GetRedisAddr(), conf.Redis.Password, conf.Redis.DB)
		if err != nil {
			return fmt.Errorf("could not connect to redis storage: %w", err)
		}

		defer func() {
			if err = redisStorage.Close(); err != nil {
				log.Error("could not close redis storage", "error", err)
			}
		}()

		participants = repository.NewParticipantRepository(redisStorage.Connection, conf.Redis.SessionTTL)
	}

	router := websocket.NewRouter(logger)

	httpServer, err := rest.Listen(conf.HTTPPort, rest.NewRouter(router))
	if err != nil {
		return err
	}

	group, groupCtx := errgroup.WithContext(ctx)

	gameServer := remote.NewServer(groupCtx, logger, router, participants, conf.Timeout())
	gameServer.SetPassword(conf.Password)

	// a closed router fails every pending read, so a running game ends quickly
	stopRouter := context.AfterFunc(groupCtx, func() {
		if closeErr := router.Close(); closeErr != nil {
			log.Error("could not close router", "error", closeErr)
		}
	})
	defer stopRouter()

	group.Go(func() error {
		log.Info("Starting HTTP server", "addr", httpServer.Addr())

		return httpServer.Serve()
	})

	group.Go(func() error {
		gamesErr := playGames(groupCtx, logger, gameServer, conf.Options(), conf.Games)

		gameServer.Shutdown()
		if closeErr := router.Close(); closeErr != nil {
			log.Error("could not close router", "error", closeErr)
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if shutdownErr := httpServer.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error("could not shutdown HTTP server", "error", shutdownErr)
		}

		if errors.Is(gamesErr, context.Canceled) {
			log.Info("Application context canceled, shutting down")
			return nil
		}

		return gamesErr
	})

	if err = group.Wait(); err != nil {
		return fmt.Errorf("application error: %w", err)
	}

	return nil
}

// playGames - collects two players, runs a game between them and repeats. games == 0 plays until ctx is done.
func playGames(ctx context.Context, logger *slog.Logger, server *remote.Server, opts entity.Options, games int) error {
	log := logger.With("method", "playGames")

	for played := 0; games == 0 || played < games; played++ {
		x, o, err := waitForPlayers(ctx, server)
		if err != nil {
			return err
		}

		server.AcceptPlayers(false)
		result, err := server.RunGame(opts, x, o)
		server.AcceptPlayers(true)

		if err != nil {
			return fmt.Errorf("failed to run game: %w", err)
		}

		log.Info("game over", "game", played+1, "result", result)
	}

	return nil
}

// waitForPlayers - serves the lobby until two players are connected and alive, and returns them.
func waitForPlayers(ctx context.Context, server *remote.Server) (*remote.RemotePlayer, *remote.RemotePlayer, error) {
	for {
		if x, o := server.Player(0), server.Player(1); x != nil && o != nil {
			return x, o, nil
		}

		if err := ctx.Err(); err != nil {
			return nil, nil, fmt.Errorf("failed to wait for players: %w", err)
		}

		if err := server.WaitForPlayers(lobbyWait); err != nil {
			return nil, nil, err
		}

		server.HeartbeatPlayers()
	}
}
