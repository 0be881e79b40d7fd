package storageutils

import (
	"context"
	"fmt"
	"time"

	"github.com/papercomputeco/tabletalk/pkg/storage"
	"github.com/papercomputeco/tabletalk/pkg/storage/inmemory"
	"github.com/papercomputeco/tabletalk/pkg/storage/postgres"
	"github.com/papercomputeco/tabletalk/pkg/storage/redis"
	"github.com/papercomputeco/tabletalk/pkg/storage/sqlite"
)

const (
	InMemory = "inmemory"
	SQLite   = "sqlite"
	Postgres = "postgres"
	Redis    = "redis"
)

// SupportedDrivers returns the driver names accepted by NewDriver.
func SupportedDrivers() []string {
	return []string{InMemory, SQLite, Postgres, Redis}
}

type NewDriverOpts struct {
	Driver      string
	SQLitePath  string
	PostgresDSN string
	RedisURL    string

	// TTL expires thread records on the inmemory and redis drivers.
	TTL time.Duration
}

func NewDriver(ctx context.Context, o *NewDriverOpts) (storage.Driver, error) {
	switch o.Driver {
	case InMemory, "":
		return inmemory.NewDriver(o.TTL), nil

	case SQLite:
		if o.SQLitePath == "" {
			return nil, fmt.Errorf("sqlite storage requires a path")
		}
		return sqlite.NewDriver(o.SQLitePath)

	case Postgres:
		if o.PostgresDSN == "" {
			return nil, fmt.Errorf("postgres storage requires a dsn")
		}
		return postgres.NewDriver(ctx, o.PostgresDSN)

	case Redis:
		if o.RedisURL == "" {
			return nil, fmt.Errorf("redis storage requires a url")
		}
		return redis.NewDriver(ctx, redis.Config{URL: o.RedisURL, TTL: o.TTL})

	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", o.Driver)
	}
}
