//go:build integration

// Package testutil provides test helpers for integration tests.
package testutil

import (
	"context"
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisDB is the database integration tests write to.
const RedisDB = 15

// RedisAddr returns the address of the test Redis (IP:port).
// It first checks NEWTGRADE_TEST_REDIS, then discovers the Docker container IP.
func RedisAddr() string {
	if addr := os.Getenv("NEWTGRADE_TEST_REDIS"); addr != "" {
		return addr
	}

	ip := redisContainerIP()
	if ip == "" {
		return ""
	}
	return ip + ":6379"
}

func redisContainerIP() string {
	out, err := exec.Command("docker", "inspect",
		"--format", "{{range .NetworkSettings.Networks}}{{.IPAddress}}{{end}}",
		"newtgrade-test-redis").Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}

// SkipIfNoRedis skips the test if the test Redis is not reachable and
// returns its address otherwise.
func SkipIfNoRedis(t *testing.T) string {
	t.Helper()

	addr := RedisAddr()
	if addr == "" {
		t.Skip("test Redis not available: set NEWTGRADE_TEST_REDIS or start newtgrade-test-redis")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()

	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("test Redis not reachable at %s: %v", addr, err)
	}
	return addr
}

// FlushDB flushes the test database and registers the same for cleanup.
func FlushDB(t *testing.T, addr string) {
	t.Helper()

	flush := func() {
		client := redis.NewClient(&redis.Options{Addr: addr, DB: RedisDB})
		defer client.Close()
		if err := client.FlushDB(context.Background()).Err(); err != nil {
			t.Fatalf("flushing DB %d: %v", RedisDB, err)
		}
	}
	flush()
	t.Cleanup(flush)
}

// Keys returns all keys in the test database.
func Keys(t *testing.T, addr string) []string {
	t.Helper()

	client := redis.NewClient(&redis.Options{Addr: addr, DB: RedisDB})
	defer client.Close()

	keys, err := client.Keys(context.Background(), "*").Result()
	if err != nil {
		t.Fatalf("failed to get keys for DB %d: %v", RedisDB, err)
	}
	return keys
}

// Context returns a context with a reasonable timeout for tests.
// The cancel function is registered via t.Cleanup.
func Context(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}
