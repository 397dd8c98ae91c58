//go:build integration

package store

import (
	"context"
	"testing"

	"github.com/newtron-network/newtgrade/internal/testutil"
	"github.com/newtron-network/newtgrade/pkg/model"
)

func redisBackend(t *testing.T) *RedisBackend {
	t.Helper()
	addr := testutil.SkipIfNoRedis(t)
	testutil.FlushDB(t, addr)
	b := NewRedisBackend(addr, testutil.RedisDB)
	if err := b.Connect(testutil.Context(t)); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	t.Cleanup(func() { b.Close() })
	return b
}

func TestRedisStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	st := New(redisBackend(t))

	snap := testSnapshot(model.PhasePrecheck)
	plan := &model.ShutdownPlan{Host: "leaf1", Ports: []string{"ethernet1/5", "ethernet1/6"}}
	if err := st.SaveSnapshot(ctx, snap, plan); err != nil {
		t.Fatalf("SaveSnapshot() error = %v", err)
	}

	got, err := st.LoadSnapshot(ctx, "leaf1", model.PhasePrecheck)
	if err != nil {
		t.Fatalf("LoadSnapshot() error = %v", err)
	}
	if got.Version != snap.Version {
		t.Errorf("Version = %q", got.Version)
	}
	gotPlan, err := st.LoadPlan(ctx, "leaf1")
	if err != nil {
		t.Fatal(err)
	}
	if len(gotPlan.Ports) != 2 {
		t.Errorf("plan = %v", gotPlan.Ports)
	}
}

func TestRedisStore_RecommitDropsStaleDocuments(t *testing.T) {
	ctx := context.Background()
	b := redisBackend(t)

	if err := b.Commit(ctx, "leaf1", model.PhasePrecheck, map[string][]byte{"a": []byte(`1`), "b": []byte(`2`)}); err != nil {
		t.Fatal(err)
	}
	if err := b.Commit(ctx, "leaf1", model.PhasePrecheck, map[string][]byte{"a": []byte(`3`)}); err != nil {
		t.Fatal(err)
	}
	if _, err := b.Read(ctx, "leaf1", model.PhasePrecheck, "b"); !IsNotFound(err) {
		t.Errorf("b err = %v, want not found", err)
	}
	if data, _ := b.Read(ctx, "leaf1", model.PhasePrecheck, "a"); string(data) != "3" {
		t.Errorf("a = %s", data)
	}
	addr := testutil.RedisAddr()
	if keys := testutil.Keys(t, addr); len(keys) != 1 || keys[0] != redisKey("leaf1", model.PhasePrecheck) {
		t.Errorf("keys = %v, want one hash per phase", keys)
	}
}
