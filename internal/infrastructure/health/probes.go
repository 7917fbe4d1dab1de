// Package health adapts each infrastructure client to usecase.HealthProbe,
// grounded on the teacher's health_handler.go which pinged pgxpool/redis
// directly; that direct coupling moved behind this port so the admin
// readiness endpoint stays decoupled from which dependencies are wired.
package health

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/v4vapp/bridge/internal/adapter/hive"
	"github.com/v4vapp/bridge/internal/adapter/lightning"
)

// PostgresProbe pings the shared connection pool.
type PostgresProbe struct {
	Pool *pgxpool.Pool
}

func (p PostgresProbe) Name() string { return "postgres" }

func (p PostgresProbe) Ping(ctx context.Context) error {
	return p.Pool.Ping(ctx)
}

// RedisProbe pings the shared redis client.
type RedisProbe struct {
	Client *redis.Client
}

func (p RedisProbe) Name() string { return "redis" }

func (p RedisProbe) Ping(ctx context.Context) error {
	return p.Client.Ping(ctx).Err()
}

// HiveProbe confirms the configured Hive node still answers head-block
// queries.
type HiveProbe struct {
	Client *hive.Client
}

func (p HiveProbe) Name() string { return "hive" }

func (p HiveProbe) Ping(ctx context.Context) error {
	_, err := p.Client.HeadBlockHeight(ctx)
	return err
}

// LightningProbe confirms the lnd gRPC channel answers GetInfo.
type LightningProbe struct {
	Client *lightning.Client
}

func (p LightningProbe) Name() string { return "lnd" }

func (p LightningProbe) Ping(ctx context.Context) error {
	return p.Client.Ping(ctx)
}
