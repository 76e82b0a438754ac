package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/JonMunkholm/intake/internal/config"
	"github.com/JonMunkholm/intake/internal/core"
	"github.com/JonMunkholm/intake/internal/store/memstore"
	"github.com/JonMunkholm/intake/internal/store/postgres"
	"github.com/JonMunkholm/intake/internal/store/sqlite"
)

// relationalStore is what main needs from any driver.
type relationalStore interface {
	core.Store
	Ping(ctx context.Context) error
}

// openStore opens the driver named by DATABASE_DRIVER. The returned close
// func is never nil.
func openStore(ctx context.Context, cfg config.DatabaseConfig) (relationalStore, func(), error) {
	switch strings.ToLower(cfg.Driver) {
	case "", "postgres", "postgresql":
		pg, err := postgres.Open(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		if cfg.EnsureSchema {
			if err := pg.EnsureSchema(ctx); err != nil {
				pg.Close()
				return nil, nil, err
			}
		}
		// Log which database we connected to
		if u, err := url.Parse(cfg.URL); err == nil {
			slog.Info("connected to database", "driver", "postgres", "name", strings.TrimPrefix(u.Path, "/"))
		}
		return pg, pg.Close, nil

	case "sqlite":
		lite, err := sqlite.Open(ctx, cfg.URL)
		if err != nil {
			return nil, nil, err
		}
		slog.Info("connected to database", "driver", "sqlite", "path", cfg.URL)
		return lite, func() {
			if err := lite.Close(); err != nil {
				slog.Warn("sqlite close failed", "error", err)
			}
		}, nil

	case "memory":
		slog.Warn("using in-memory relational store; data is lost on restart")
		return memstore.New(), func() {}, nil

	default:
		return nil, nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}
