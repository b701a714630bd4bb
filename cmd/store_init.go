package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/meridian-sourcing/procure-cli/internal/pipeline"
	"github.com/meridian-sourcing/procure-cli/internal/store"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "procure.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// initRunner opens the store, runs migrations, and wires the pipeline.
// Callers should defer closing the returned store.
func initRunner(ctx context.Context) (*pipeline.Runner, store.Store, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, nil, eris.Wrap(err, "migrate store")
	}
	return pipeline.New(st, cfg.Rules, cfg.Queue.Limit), st, nil
}
