package cache

import (
	"context"
	"errors"
	"testing"
)

func TestNoopInvalidator(t *testing.T) {
	var inv Invalidator = NoopInvalidator{}

	if err := inv.Invalidate(context.Background(), DefaultLeaderboardKey); err != nil {
		t.Errorf("expected no error, got %v", err)
	}
}

func TestRecordingInvalidator_RecordsKeys(t *testing.T) {
	inv := NewRecordingInvalidator()

	if err := inv.Invalidate(context.Background(), "leaderboard:top20"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if err := inv.Invalidate(context.Background(), "leaderboard:weekly"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	keys := inv.Keys()
	if len(keys) != 2 || keys[0] != "leaderboard:top20" || keys[1] != "leaderboard:weekly" {
		t.Errorf("unexpected recorded keys: %v", keys)
	}
}

func TestRecordingInvalidator_FailWith(t *testing.T) {
	inv := NewRecordingInvalidator()
	wantErr := errors.New("redis unavailable")
	inv.FailWith(wantErr)

	err := inv.Invalidate(context.Background(), "leaderboard:top20")
	if !errors.Is(err, wantErr) {
		t.Errorf("expected injected error, got %v", err)
	}
	if len(inv.Keys()) != 0 {
		t.Error("expected no keys recorded on failure")
	}
}

func TestRecordingInvalidator_KeysReturnsCopy(t *testing.T) {
	inv := NewRecordingInvalidator()
	if err := inv.Invalidate(context.Background(), "a"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	keys := inv.Keys()
	keys[0] = "mutated"

	if inv.Keys()[0] != "a" {
		t.Error("expected Keys to return a copy")
	}
}

func TestNewRedisInvalidator(t *testing.T) {
	inv := NewRedisInvalidator(nil)
	if inv == nil {
		t.Fatal("expected invalidator to be non-nil")
	}
}
