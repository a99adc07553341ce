// Package memory is an in-process Store used by unit tests and single-node
// development runs. Transactions buffer writes and apply them on commit;
// the store mutex is held for the transaction's lifetime, so transactions
// are serialized.
package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/MarkoKacprzak/ServiceFabricAuction/internal/storage"
)

type Store struct {
	mu   sync.Mutex
	data map[string]map[string][]byte
}

func New() *Store {
	return &Store{data: make(map[string]map[string][]byte)}
}

func (s *Store) Begin(ctx context.Context) (storage.Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	return &memTx{store: s, writes: make(map[string]map[string]*[]byte)}, nil
}

func (s *Store) Close() error { return nil }

// memTx overlays buffered writes on the store. A nil value pointer in the
// overlay marks a pending delete.
type memTx struct {
	store  *Store
	writes map[string]map[string]*[]byte
	done   bool
}

var errTxDone = errors.New("transaction already finished")

func (t *memTx) Get(ctx context.Context, collection, key string) ([]byte, bool, error) {
	if t.done {
		return nil, false, errTxDone
	}
	if pending, ok := t.writes[collection][key]; ok {
		if pending == nil {
			return nil, false, nil
		}
		return append([]byte(nil), (*pending)...), true, nil
	}
	value, ok := t.store.data[collection][key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), value...), true, nil
}

func (t *memTx) Set(ctx context.Context, collection, key string, value []byte) error {
	if t.done {
		return errTxDone
	}
	copied := append([]byte(nil), value...)
	t.collection(collection)[key] = &copied
	return nil
}

func (t *memTx) Delete(ctx context.Context, collection, key string) error {
	if t.done {
		return errTxDone
	}
	t.collection(collection)[key] = nil
	return nil
}

func (t *memTx) Enumerate(ctx context.Context, collection string) ([]storage.Pair, error) {
	if t.done {
		return nil, errTxDone
	}
	merged := make(map[string][]byte)
	for k, v := range t.store.data[collection] {
		merged[k] = v
	}
	for k, pending := range t.writes[collection] {
		if pending == nil {
			delete(merged, k)
			continue
		}
		merged[k] = *pending
	}
	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]storage.Pair, 0, len(keys))
	for _, k := range keys {
		out = append(out, storage.Pair{Key: k, Value: append([]byte(nil), merged[k]...)})
	}
	return out, nil
}

func (t *memTx) Commit() error {
	if t.done {
		return errTxDone
	}
	for collection, writes := range t.writes {
		target, ok := t.store.data[collection]
		if !ok {
			target = make(map[string][]byte)
			t.store.data[collection] = target
		}
		for key, pending := range writes {
			if pending == nil {
				delete(target, key)
				continue
			}
			target[key] = *pending
		}
	}
	t.finish()
	return nil
}

func (t *memTx) Rollback() error {
	if t.done {
		return nil
	}
	t.finish()
	return nil
}

func (t *memTx) finish() {
	t.done = true
	t.store.mu.Unlock()
}

func (t *memTx) collection(name string) map[string]*[]byte {
	c, ok := t.writes[name]
	if !ok {
		c = make(map[string]*[]byte)
		t.writes[name] = c
	}
	return c
}
