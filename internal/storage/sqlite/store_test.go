package sqlite

import (
	"context"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "partition.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSetGetDelete(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	tx, err := s.Begin(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if err := tx.Set(ctx, "users", "a@x.com", []byte("u1")); err != nil {
		t.Fatal(err)
	}
	if err := tx.Set(ctx, "users", "a@x.com", []byte("u2")); err != nil {
		t.Fatal(err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatal(err)
	}

	tx, _ = s.Begin(ctx)
	value, ok, err := tx.Get(ctx, "users", "a@x.com")
	if err != nil || !ok || string(value) != "u2" {
		t.Fatalf("ok=%v err=%v value=%s", ok, err, value)
	}
	if err := tx.Delete(ctx, "users", "a@x.com"); err != nil {
		t.Fatal(err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatal(err)
	}

	tx, _ = s.Begin(ctx)
	defer tx.Rollback()
	if _, ok, _ := tx.Get(ctx, "users", "a@x.com"); ok {
		t.Fatal("deleted record still visible")
	}
}

func TestRollbackDiscards(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	tx, _ := s.Begin(ctx)
	_ = tx.Set(ctx, "items", "k", []byte("v"))
	if err := tx.Rollback(); err != nil {
		t.Fatal(err)
	}

	tx, _ = s.Begin(ctx)
	defer tx.Rollback()
	if _, ok, _ := tx.Get(ctx, "items", "k"); ok {
		t.Fatal("rolled-back write persisted")
	}
}

func TestCollectionsAreIsolated(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	tx, _ := s.Begin(ctx)
	_ = tx.Set(ctx, "users", "k", []byte("user"))
	_ = tx.Set(ctx, "items", "k", []byte("item"))
	if err := tx.Commit(); err != nil {
		t.Fatal(err)
	}

	tx, _ = s.Begin(ctx)
	defer tx.Rollback()
	value, ok, _ := tx.Get(ctx, "items", "k")
	if !ok || string(value) != "item" {
		t.Fatalf("got %q", value)
	}
	pairs, err := tx.Enumerate(ctx, "users")
	if err != nil {
		t.Fatal(err)
	}
	if len(pairs) != 1 || string(pairs[0].Value) != "user" {
		t.Fatalf("got %+v", pairs)
	}
}

func TestEnumerateOrdersByKey(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	tx, _ := s.Begin(ctx)
	for _, k := range []string{"c", "a", "b"} {
		_ = tx.Set(ctx, "items", k, []byte(k))
	}
	if err := tx.Commit(); err != nil {
		t.Fatal(err)
	}

	tx, _ = s.Begin(ctx)
	defer tx.Rollback()
	pairs, err := tx.Enumerate(ctx, "items")
	if err != nil {
		t.Fatal(err)
	}
	got := ""
	for _, p := range pairs {
		got += p.Key
	}
	if got != "abc" {
		t.Fatalf("order %q", got)
	}
}

func TestReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "partition.db")
	s, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	tx, _ := s.Begin(ctx)
	_ = tx.Set(ctx, "users", "k", []byte("v"))
	if err := tx.Commit(); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	s, err = Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	tx, _ = s.Begin(ctx)
	defer tx.Rollback()
	if _, ok, _ := tx.Get(ctx, "users", "k"); !ok {
		t.Fatal("data lost across reopen")
	}
}
