// Package health provides readiness checks for the service's dependencies.
package health

import (
	"context"
	"database/sql"
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/onnwee/regions/internal/persist"
)

// DBChecker pings a SQL database.
type DBChecker struct {
	db *sql.DB
}

// NewDBChecker creates a new database health checker.
func NewDBChecker(db *sql.DB) *DBChecker {
	return &DBChecker{db: db}
}

// HealthCheck pings the database.
func (d *DBChecker) HealthCheck(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

// RedisChecker sends PING to Redis.
type RedisChecker struct {
	client *redis.Client
}

// NewRedisChecker creates a new Redis health checker.
func NewRedisChecker(client *redis.Client) *RedisChecker {
	return &RedisChecker{client: client}
}

// HealthCheck sends PING.
func (r *RedisChecker) HealthCheck(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// ProbeKey is read by KVChecker. It is never written.
const ProbeKey = "health:probe"

// KVChecker verifies a persistence backend answers reads. A missing probe
// key counts as healthy.
type KVChecker struct {
	kv persist.KV
}

// NewKVChecker creates a checker for kv.
func NewKVChecker(kv persist.KV) *KVChecker {
	return &KVChecker{kv: kv}
}

// HealthCheck reads ProbeKey.
func (k *KVChecker) HealthCheck(ctx context.Context) error {
	_, err := k.kv.Load(ctx, ProbeKey)
	if err == nil || errors.Is(err, persist.ErrNotFound) {
		return nil
	}
	return err
}
