package db

import (
	"context"
	"testing"
	"time"
)

func TestOptionsDefaults(t *testing.T) {
	o := Options{}.withDefaults()
	if o.MaxConns != 10 || o.MinConns != 1 {
		t.Fatalf("unexpected conns: %+v", o)
	}
	if o.MaxConnLifetime != 30*time.Minute || o.MaxConnIdleTime != 5*time.Minute {
		t.Fatalf("unexpected lifetimes: %+v", o)
	}

	o = Options{MaxConns: 2, MinConns: 5}.withDefaults()
	if o.MinConns != 2 {
		t.Fatalf("expected MinConns clamped to MaxConns, got %d", o.MinConns)
	}
}

func TestReadyCheckWithoutPool(t *testing.T) {
	if err := ReadyCheck(nil)(context.Background()); err == nil {
		t.Fatal("expected error for nil pool")
	}
}
