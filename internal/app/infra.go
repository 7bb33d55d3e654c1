package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/chandama/touken-west-sub001/internal/config"
	"github.com/chandama/touken-west-sub001/internal/db"
	"github.com/chandama/touken-west-sub001/internal/logger"
	"github.com/chandama/touken-west-sub001/internal/mongostore"
	"github.com/chandama/touken-west-sub001/internal/redis"
	"github.com/chandama/touken-west-sub001/internal/sword"
	"github.com/chandama/touken-west-sub001/internal/user"
)

const (
	driverMongo    = "mongo"
	driverPostgres = "postgres"
	driverMemory   = "memory"
)

type Infra struct {
	Users  user.Store
	Swords sword.Store
	Redis  *redis.Client

	closers []func() error
}

func (i *Infra) Close() error {
	var errs []error
	for n := len(i.closers) - 1; n >= 0; n-- {
		if err := i.closers[n](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func setupInfra(ctx context.Context, cfg config.Config) (*Infra, error) {
	infra := &Infra{}

	if err := infra.setupStores(ctx, cfg); err != nil {
		_ = infra.Close()
		return nil, err
	}

	redisClient, err := redis.New(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		_ = infra.Close()
		return nil, fmt.Errorf("redis: %w", err)
	}
	infra.Redis = redisClient
	infra.closers = append(infra.closers, redisClient.Close)

	logger.Info("redis ready", map[string]any{"addr": cfg.RedisAddr})

	return infra, nil
}

func (i *Infra) setupStores(ctx context.Context, cfg config.Config) error {
	switch cfg.StoreDriver {
	case driverMongo:
		store, err := mongostore.NewStore(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return err
		}
		i.Users = store.Users()
		i.Swords = store.Swords()
		i.closers = append(i.closers, store.Close)

	case driverPostgres:
		pg, err := db.Open(ctx, cfg.DatabaseDSN)
		if err != nil {
			return err
		}
		i.Users = db.NewUserStore(pg)
		i.Swords = db.NewSwordStore(pg)
		i.closers = append(i.closers, pg.Close)

	case driverMemory:
		i.Users = user.NewMemoryStore()
		i.Swords = sword.NewMemoryStore()

	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}

	logger.Info("store ready", map[string]any{"driver": cfg.StoreDriver})
	return nil
}
