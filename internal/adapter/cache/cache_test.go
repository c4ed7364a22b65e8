package cache

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type cachedDiscount struct {
	Code  string `json:"code"`
	Value string `json:"value"`
}

func newTestCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisCache(client, "test:", slog.New(slog.NewJSONHandler(io.Discard, nil))), srv
}

func TestRedisCacheSetGet(t *testing.T) {
	c, srv := newTestCache(t)
	ctx := context.Background()

	var got cachedDiscount
	found, err := c.Get(ctx, "discounts:list", &got)
	if err != nil || found {
		t.Fatalf("expected miss, got found=%v err=%v", found, err)
	}

	want := cachedDiscount{Code: "TEST10", Value: "10"}
	if err := c.Set(ctx, "discounts:list", want, time.Minute, TagDiscounts); err != nil {
		t.Fatalf("set: %v", err)
	}

	found, err = c.Get(ctx, "discounts:list", &got)
	if err != nil || !found || got != want {
		t.Fatalf("expected hit with %+v, got %+v found=%v err=%v", want, got, found, err)
	}

	if !srv.Exists("test:discounts:list") {
		t.Fatal("expected namespaced key")
	}
	if ok, _ := srv.SIsMember("test:tag:discounts", "test:discounts:list"); !ok {
		t.Fatal("expected key registered under tag")
	}

	srv.FastForward(2 * time.Minute)
	found, err = c.Get(ctx, "discounts:list", &got)
	if err != nil || found {
		t.Fatalf("expected expiry, got found=%v err=%v", found, err)
	}
}

func TestRedisCacheInvalidateTags(t *testing.T) {
	c, srv := newTestCache(t)
	ctx := context.Background()

	if err := c.Set(ctx, "orders:1", "a", time.Minute, TagOrders); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := c.Set(ctx, "orders:2", "b", time.Minute, TagOrders, TagPayments); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := c.Set(ctx, "tip", 100, time.Minute, ExplorerTag("bitcoin")); err != nil {
		t.Fatalf("set: %v", err)
	}

	removed, err := c.InvalidateTags(ctx, TagOrders)
	if err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if removed != 2 {
		t.Fatalf("expected 2 keys removed, got %d", removed)
	}
	if srv.Exists("test:orders:1") || srv.Exists("test:orders:2") || srv.Exists("test:tag:orders") {
		t.Fatal("expected tagged keys and tag set to be gone")
	}
	if !srv.Exists("test:tip") {
		t.Fatal("untagged key must survive")
	}

	removed, err = c.InvalidateTags(ctx, "unknown")
	if err != nil || removed != 0 {
		t.Fatalf("expected no-op for unknown tag, got %d err=%v", removed, err)
	}
}

func TestRedisCacheErrors(t *testing.T) {
	c, srv := newTestCache(t)
	ctx := context.Background()

	if err := c.Set(ctx, "bad", make(chan int), time.Minute); err == nil {
		t.Fatal("expected encode error")
	}

	if err := srv.Set("test:corrupt", "{not json"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	var dest cachedDiscount
	if _, err := c.Get(ctx, "corrupt", &dest); err == nil {
		t.Fatal("expected decode error")
	}

	srv.Close()
	if _, err := c.Get(ctx, "any", &dest); err == nil {
		t.Fatal("expected connection error")
	}
	if err := c.Set(ctx, "any", 1, time.Minute, TagOrders); err == nil {
		t.Fatal("expected connection error")
	}
	if _, err := c.InvalidateTags(ctx, TagOrders); err == nil {
		t.Fatal("expected connection error")
	}
}

func TestNopCache(t *testing.T) {
	var c Cache = NopCache{}
	ctx := context.Background()
	if err := c.Set(ctx, "k", 1, time.Minute, TagOrders); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var v int
	if found, err := c.Get(ctx, "k", &v); found || err != nil {
		t.Fatalf("expected miss, got found=%v err=%v", found, err)
	}
	if n, err := c.InvalidateTags(ctx, TagOrders); n != 0 || err != nil {
		t.Fatalf("expected no-op, got %d err=%v", n, err)
	}
}
