package store

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// KeyPrefix namespaces every redis key the tracker writes, so the mark
// queue and rate-limit counters never collide with other tenants of a
// shared redis.
const KeyPrefix = "classattend:"

// Key returns a namespaced redis key.
func Key(suffix string) string {
	return KeyPrefix + suffix
}

// Redis wraps the client shared by the mark queue, the rate limiter and
// health checks.
type Redis struct {
	Client *redis.Client
}

// NewRedis connects with short timeouts; redis is a soft dependency here
// and a slow one should not stall attendance submissions.
func NewRedis(addr string) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  1 * time.Second,
		WriteTimeout: 1 * time.Second,
	})
	return &Redis{Client: client}
}

// Healthy verifies redis connectivity for the health endpoint.
func (r *Redis) Healthy(ctx context.Context) bool {
	if r == nil || r.Client == nil {
		return false
	}
	return r.Client.Ping(ctx).Err() == nil
}
