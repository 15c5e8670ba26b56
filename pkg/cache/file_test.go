package cache

import (
	"context"
	stderrors "errors"
	"os"
	"testing"
	"time"
)

func TestFileCache_GetSet(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir(), time.Hour)
	if err != nil {
		t.Fatalf("NewFileCache() failed: %v", err)
	}

	if err := c.Set(ctx, "svg", []byte("<svg/>")); err != nil {
		t.Fatalf("Set() failed: %v", err)
	}
	data, ok, err := c.Get(ctx, "svg")
	if err != nil || !ok {
		t.Fatalf("Get() = %v, %v; want true, nil", ok, err)
	}
	if string(data) != "<svg/>" {
		t.Errorf("Get() data = %q", data)
	}

	if err := c.Delete(ctx, "svg"); err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}
	if _, ok, _ := c.Get(ctx, "svg"); ok {
		t.Error("Get() returned true after Delete")
	}
	if err := c.Delete(ctx, "svg"); err != nil {
		t.Errorf("Delete() of missing key failed: %v", err)
	}
}

func TestFileCache_Miss(t *testing.T) {
	c, _ := NewFileCache(t.TempDir(), time.Hour)
	data, ok, err := c.Get(context.Background(), "missing")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok || data != nil {
		t.Error("Get() returned data for missing key")
	}
}

func TestFileCache_Expiration(t *testing.T) {
	ctx := context.Background()
	c, _ := NewFileCache(t.TempDir(), 10*time.Millisecond)

	if err := c.Set(ctx, "key", []byte("value")); err != nil {
		t.Fatalf("Set() failed: %v", err)
	}
	if _, ok, err := c.Get(ctx, "key"); err != nil || !ok {
		t.Fatalf("Get() = %v, %v; want true, nil", ok, err)
	}

	time.Sleep(20 * time.Millisecond)

	_, ok, err := c.Get(ctx, "key")
	if !stderrors.Is(err, ErrExpired) {
		t.Errorf("got error %v, want ErrExpired", err)
	}
	if ok {
		t.Error("Get() returned true for expired key")
	}

	// Set refreshes the TTL.
	if err := c.Set(ctx, "key", []byte("fresh")); err != nil {
		t.Fatalf("Set() failed: %v", err)
	}
	if _, ok, err := c.Get(ctx, "key"); err != nil || !ok {
		t.Errorf("Get() after refresh = %v, %v", ok, err)
	}
}

func TestFileCache_NoTTL(t *testing.T) {
	ctx := context.Background()
	c, _ := NewFileCache(t.TempDir(), 0)
	_ = c.Set(ctx, "key", []byte("value"))
	old := time.Now().Add(-365 * 24 * time.Hour)
	if err := os.Chtimes(c.keyPath("key"), old, old); err != nil {
		t.Fatal(err)
	}
	if _, ok, err := c.Get(ctx, "key"); err != nil || !ok {
		t.Errorf("Get() = %v, %v; entries without TTL never expire", ok, err)
	}
}

func TestFileCache_KeyStability(t *testing.T) {
	c, _ := NewFileCache(t.TempDir(), time.Hour)
	if c.keyPath("test") != c.keyPath("test") {
		t.Error("path should be deterministic")
	}
	if c.keyPath("test") == c.keyPath("other") {
		t.Error("different keys should produce different paths")
	}
}

func TestFileCache_Namespace(t *testing.T) {
	ctx := context.Background()
	c, _ := NewFileCache(t.TempDir(), time.Hour)

	svg := c.Namespace("svg:")
	json := c.Namespace("json:")
	_ = svg.Set(ctx, "graph", []byte("svg-data"))
	_ = json.Set(ctx, "graph", []byte("json-data"))

	got, ok, _ := svg.Get(ctx, "graph")
	if !ok || string(got) != "svg-data" {
		t.Errorf("svg.Get() = %q, %v", got, ok)
	}
	got, ok, _ = json.Get(ctx, "graph")
	if !ok || string(got) != "json-data" {
		t.Errorf("json.Get() = %q, %v", got, ok)
	}
	if _, ok, _ := c.Get(ctx, "graph"); ok {
		t.Error("value accessible without namespace")
	}
	if svg.Dir() != c.Dir() || svg.TTL() != c.TTL() {
		t.Error("namespace should share dir and TTL")
	}
}

func TestFileCache_Clear(t *testing.T) {
	ctx := context.Background()
	c, _ := NewFileCache(t.TempDir(), time.Hour)
	_ = c.Set(ctx, "a", []byte("1"))
	_ = c.Namespace("x:").Set(ctx, "b", []byte("2"))

	n, err := c.Clear()
	if err != nil {
		t.Fatalf("Clear() failed: %v", err)
	}
	if n != 2 {
		t.Errorf("Clear() = %d, want 2", n)
	}
	if _, ok, _ := c.Get(ctx, "a"); ok {
		t.Error("entry survived Clear")
	}
}
