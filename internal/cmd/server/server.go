// Package server parses server command flags and launches the lottery runtime.
package server

import (
	"context"
	"flag"

	appserver "github.com/ankwata/ankwata/internal/app/server"
	entrypoint "github.com/ankwata/ankwata/internal/platform/cmd"
)

// ParseConfig parses environment and flags into a server Config.
func ParseConfig(fs *flag.FlagSet, args []string) (appserver.Config, error) {
	var cfg appserver.Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return appserver.Config{}, err
	}
	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "The HTTP listen address")
	fs.StringVar(&cfg.StoreBackend, "store", cfg.StoreBackend, "Session store backend: memory, sqlite, or redis")
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "The SQLite database path")
	fs.StringVar(&cfg.RedisAddr, "redis-addr", cfg.RedisAddr, "The Redis address")
	fs.Int64Var(&cfg.PlayAmount, "play-amount", cfg.PlayAmount, "Server-enforced price of one play")
	fs.StringVar(&cfg.Currency, "currency", cfg.Currency, "Gateway currency code")
	fs.DurationVar(&cfg.PollInterval, "poll-interval", cfg.PollInterval, "Confirmation poll interval")
	fs.DurationVar(&cfg.PollTimeout, "poll-timeout", cfg.PollTimeout, "Confirmation poll timeout")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return appserver.Config{}, err
	}
	return cfg, nil
}

// Run starts the lottery server runtime.
func Run(ctx context.Context, cfg appserver.Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceServer, func(ctx context.Context) error {
		return appserver.Run(ctx, cfg)
	})
}
