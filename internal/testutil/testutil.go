//go:build integration

// Package testutil provides shared helpers for integration tests that need
// a real Redis instance, grounded on the teacher's internal/testutil
// package of the same shape (RedisAddr/SkipIfNoRedis discovery, seed/flush
// helpers gated behind the "integration" build tag so `go test ./...`
// never requires Redis to be running).
package testutil

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisAddr returns the test Redis address, from BDCTL_TEST_REDIS_ADDR or
// the default local instance.
func RedisAddr() string {
	if addr := os.Getenv("BDCTL_TEST_REDIS_ADDR"); addr != "" {
		return addr
	}
	return "127.0.0.1:6379"
}

// SkipIfNoRedis skips the test unless a Redis instance answers a PING at
// RedisAddr(), so `go test -tags integration ./...` degrades gracefully on
// a machine with no Redis rather than failing outright.
func SkipIfNoRedis(t *testing.T) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	client := redis.NewClient(&redis.Options{Addr: RedisAddr()})
	defer client.Close()

	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("test Redis not reachable at %s: %v", RedisAddr(), err)
	}
}

// FlushTestDB flushes the given logical Redis DB number on the test
// instance, for a clean slate between integration test cases.
func FlushTestDB(t *testing.T, db int) {
	t.Helper()

	client := redis.NewClient(&redis.Options{Addr: RedisAddr(), DB: db})
	defer client.Close()

	if err := client.FlushDB(context.Background()).Err(); err != nil {
		t.Fatalf("flushing test DB %d: %v", db, err)
	}
}
