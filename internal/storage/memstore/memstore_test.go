package memstore

import (
	"context"
	"testing"
)

func TestGetMissingKeyReturnsNil(t *testing.T) {
	store := New()

	value, err := store.Get(context.Background(), "absent")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if value != nil {
		t.Fatalf("missing key should yield nil, got %q", value)
	}
}

func TestPutAndGetCopySemantics(t *testing.T) {
	store := New()
	ctx := context.Background()

	original := []byte("hello")
	if err := store.Put(ctx, "k", original); err != nil {
		t.Fatalf("put failed: %v", err)
	}

	// Mutating the caller's slice after Put must not change the stored value.
	original[0] = 'X'

	got, err := store.Get(ctx, "k")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if string(got) != "hello" {
		t.Fatalf("stored value was aliased: %q", got)
	}

	// Mutating the returned slice must not change the stored value either.
	got[0] = 'Y'
	again, err := store.Get(ctx, "k")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if string(again) != "hello" {
		t.Fatalf("returned value was aliased: %q", again)
	}
}

func TestDelete(t *testing.T) {
	store := New()
	ctx := context.Background()

	if err := store.Put(ctx, "k", []byte("v")); err != nil {
		t.Fatalf("put failed: %v", err)
	}
	if err := store.Delete(ctx, "k"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	got, err := store.Get(ctx, "k")
	if err != nil || got != nil {
		t.Fatalf("expected key gone, got %q err %v", got, err)
	}

	// Deleting an absent key is not an error.
	if err := store.Delete(ctx, "k"); err != nil {
		t.Fatalf("repeat delete failed: %v", err)
	}
}

func TestListFiltersByPrefix(t *testing.T) {
	store := New()
	ctx := context.Background()

	for _, key := range []string{"game:1", "game:2", "session:x"} {
		if err := store.Put(ctx, key, []byte("v")); err != nil {
			t.Fatalf("put %s failed: %v", key, err)
		}
	}

	keys, err := store.List(ctx, "game:")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(keys) != 2 {
		t.Fatalf("expected 2 keys, got %v", keys)
	}
	for _, key := range keys {
		if key != "game:1" && key != "game:2" {
			t.Fatalf("unexpected key %q", key)
		}
	}
}
