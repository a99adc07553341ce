package partition

import (
	"math/rand"
	"testing"
	"testing/quick"
	"time"
)

func TestKeyForDeterministic(t *testing.T) {
	ids := []string{"a@x.com", "  A@X.com ", "seller@example.org~widget", "1234567890"}
	for _, id := range ids {
		k1 := KeyFor(id)
		k2 := KeyFor(id)
		if k1 != k2 {
			t.Fatalf("key should be deterministic for %q", id)
		}
	}
}

func TestKeyForKnownChecksum(t *testing.T) {
	// CRC-32/0xEDB88320 check value from the reference tables.
	if got := KeyFor("123456789"); uint32(got) != uint32(0xCBF43926) {
		t.Fatalf("KeyFor(123456789) = %#x", uint32(got))
	}
}

func TestKeyForCaseInsensitive(t *testing.T) {
	if KeyFor("Seller@Example.ORG") != KeyFor("seller@example.org") {
		t.Fatal("keys must ignore identifier case")
	}
	cfg := &quick.Config{Rand: rand.New(rand.NewSource(time.Now().UnixNano()))}
	if err := quick.Check(func(s string) bool {
		return KeyFor(s) == KeyFor(Canonicalize(s))
	}, cfg); err != nil {
		t.Fatalf("case-insensitivity property failed: %v", err)
	}
}

func TestCanonicalizeEdgeCases(t *testing.T) {
	cases := map[string]string{
		"  A@X.com  ": "a@x.com",
		"":            "",
		"MiXeD Case":  "mixed case",
	}
	for in, want := range cases {
		if got := Canonicalize(in); got != want {
			t.Fatalf("canonicalize(%q)=%q, want %q", in, got, want)
		}
	}
}

func TestIndexForCoversRanges(t *testing.T) {
	for _, n := range []int{1, 2, 4, 25} {
		for i := 0; i < n; i++ {
			if got := IndexFor(LowKey(i, n), n); got != i {
				t.Fatalf("IndexFor(LowKey(%d,%d)) = %d", i, n, got)
			}
		}
	}
}

func TestIndexForRangeProperty(t *testing.T) {
	cfg := &quick.Config{Rand: rand.New(rand.NewSource(time.Now().UnixNano()))}
	if err := quick.Check(func(key int32) bool {
		i := IndexFor(key, 25)
		return i >= 0 && i < 25
	}, cfg); err != nil {
		t.Fatalf("index property failed: %v", err)
	}
}
