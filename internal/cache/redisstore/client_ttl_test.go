package redisstore

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
)

func TestTTLExpiry_GetAndMGetMissExpired(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	t.Cleanup(cancel)

	rc, err := New(ctx, mr.Addr())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = rc.Close() })

	const key = "bbox:crs-84:epsg-3857:n=10:f=00000000000000ff"
	if err := rc.Set(ctx, key, []byte(`{"x1":1}`), 2*time.Second); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if ttl := mr.TTL(key); ttl != 2*time.Second {
		t.Fatalf("ttl=%s want 2s", ttl)
	}

	if _, found, err := rc.Get(ctx, key); err != nil || !found {
		t.Fatalf("pre expiry found=%v err=%v", found, err)
	}

	mr.FastForward(3 * time.Second)

	if _, found, err := rc.Get(ctx, key); err != nil || found {
		t.Fatalf("post expiry found=%v err=%v", found, err)
	}
	got, err := rc.MGet(ctx, []string{key})
	if err != nil {
		t.Fatalf("MGet: %v", err)
	}
	if _, ok := got[key]; ok {
		t.Fatalf("expected %s to be absent after expiry; got=%v", key, got)
	}
}
