package rest

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter - routes the game socket, health check and metrics.
func NewRouter(gameSocket http.Handler) http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)

	router.Get("/ping", ping)
	router.Get("/ws", gameSocket.ServeHTTP)
	router.Handle("/metrics", promhttp.Handler())

	return router
}

type Server struct {
	srv      *http.Server
	listener net.Listener
}

// Listen - binds the port up front, so a taken port is reported to the caller instead of from Serve.
func Listen(port string, handler http.Handler) (*Server, error) {
	listener, err := net.Listen("tcp", ":"+port)
	if err != nil {
		return nil, fmt.Errorf("failed to bind port %s: %w", port, err)
	}

	return &Server{
		srv: &http.Server{
			Handler:      handler,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  30 * time.Second,
		},
		listener: listener,
	}, nil
}

func (that *Server) Addr() string {
	return that.listener.Addr().String()
}

// Serve - blocks until Shutdown.
func (that *Server) Serve() error {
	if err := that.srv.Serve(that.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to serve: %w", err)
	}

	return nil
}

func (that *Server) Shutdown(ctx context.Context) error {
	if err := that.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	return nil
}

func ping(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	if _, err := w.Write([]byte("pong")); err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}
