// Package server wires the lottery runtime and HTTP lifecycle.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	lotteryapi "github.com/ankwata/ankwata/internal/api/http/lottery"
	"github.com/ankwata/ankwata/internal/gateway"
	"github.com/ankwata/ankwata/internal/lottery/service"
	"github.com/ankwata/ankwata/internal/storage"
	memorystore "github.com/ankwata/ankwata/internal/storage/memory"
	redisstore "github.com/ankwata/ankwata/internal/storage/redis"
	sqlitestore "github.com/ankwata/ankwata/internal/storage/sqlite"
)

const shutdownTimeout = 10 * time.Second

// Config defines the inputs for the lottery server.
type Config struct {
	HTTPAddr       string        `env:"ANKWATA_HTTP_ADDR" envDefault:":8080"`
	StoreBackend   string        `env:"ANKWATA_STORE_BACKEND" envDefault:"memory"`
	DBPath         string        `env:"ANKWATA_DB_PATH" envDefault:"data/sessions.db"`
	RedisAddr      string        `env:"ANKWATA_REDIS_ADDR" envDefault:"localhost:6379"`
	PlayAmount     int64         `env:"ANKWATA_PLAY_AMOUNT" envDefault:"5000"`
	Currency       string        `env:"ANKWATA_CURRENCY" envDefault:"UGX"`
	GatewaySecret  string        `env:"ANKWATA_GATEWAY_SECRET"`
	GatewayBaseURL string        `env:"ANKWATA_GATEWAY_BASE_URL"`
	PollInterval   time.Duration `env:"ANKWATA_POLL_INTERVAL" envDefault:"3s"`
	PollTimeout    time.Duration `env:"ANKWATA_POLL_TIMEOUT" envDefault:"2m"`
}

// Server hosts the lottery HTTP API and storage lifecycle.
type Server struct {
	listener   net.Listener
	httpServer *http.Server
	store      storage.SessionStore
	closer     io.Closer
}

// New creates a configured lottery server listening on cfg.HTTPAddr.
func New(ctx context.Context, cfg Config) (*Server, error) {
	listener, err := net.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", cfg.HTTPAddr, err)
	}

	store, closer, err := openStore(ctx, cfg)
	if err != nil {
		_ = listener.Close()
		return nil, err
	}

	gw := selectGateway(cfg)
	machine := service.NewMachine(store)
	handler := lotteryapi.NewHandler(lotteryapi.Config{
		PlayAmount:   cfg.PlayAmount,
		Currency:     cfg.Currency,
		PollInterval: cfg.PollInterval,
		PollTimeout:  cfg.PollTimeout,
	}, store, machine, gw)

	mux := http.NewServeMux()
	handler.Routes(mux)

	return &Server{
		listener: listener,
		httpServer: &http.Server{
			Handler:           otelhttp.NewHandler(mux, "ankwata"),
			ReadHeaderTimeout: 10 * time.Second,
		},
		store:  store,
		closer: closer,
	}, nil
}

// Addr returns the listener address for the server.
func (s *Server) Addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Run creates and serves a lottery server until context cancellation.
func Run(ctx context.Context, cfg Config) error {
	server, err := New(ctx, cfg)
	if err != nil {
		return err
	}
	return server.Serve(ctx)
}

// Serve starts the HTTP server until context cancellation.
func (s *Server) Serve(ctx context.Context) error {
	if s == nil {
		return errors.New("server is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	defer s.Close()

	log.Printf("lottery server listening at %v", s.listener.Addr())
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.httpServer.Serve(s.listener)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		err := <-serveErr
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve http: %w", err)
	case err := <-serveErr:
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve http: %w", err)
	}
}

// Close releases lottery server resources.
func (s *Server) Close() {
	if s == nil {
		return
	}
	if s.httpServer != nil {
		_ = s.httpServer.Close()
	}
	if s.listener != nil {
		_ = s.listener.Close()
	}
	if s.closer != nil {
		if err := s.closer.Close(); err != nil {
			log.Printf("close session store: %v", err)
		}
	}
}

// openStore selects and opens the configured session store backend.
func openStore(ctx context.Context, cfg Config) (storage.SessionStore, io.Closer, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.StoreBackend)) {
	case "", "memory":
		return memorystore.New(), nil, nil
	case "sqlite":
		if dir := filepath.Dir(cfg.DBPath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, nil, fmt.Errorf("create storage dir: %w", err)
			}
		}
		store, err := sqlitestore.Open(cfg.DBPath)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite session store: %w", err)
		}
		return store, store, nil
	case "redis":
		store, err := redisstore.Open(ctx, cfg.RedisAddr)
		if err != nil {
			return nil, nil, fmt.Errorf("open redis session store: %w", err)
		}
		return store, store, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

// selectGateway picks the provider client, falling back to the demo
// gateway when no secret is configured.
func selectGateway(cfg Config) gateway.Gateway {
	if strings.TrimSpace(cfg.GatewaySecret) == "" {
		log.Printf("no gateway secret configured, using demo gateway")
		return gateway.Demo{}
	}
	return gateway.NewFlutterwave(cfg.GatewaySecret, cfg.GatewayBaseURL)
}
