package storage

import (
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"
)

type PebbleKV struct {
	db *pebble.DB
}

func NewPebbleKV(dir string) (*PebbleKV, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to open pebble at %s: %w", dir, err)
	}
	return &PebbleKV{db: db}, nil
}

func (kv *PebbleKV) Get(key string) ([]byte, error) {
	v, closer, err := kv.db.Get([]byte(key))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get %q: %w", key, err)
	}
	defer closer.Close()

	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (kv *PebbleKV) Put(key string, value []byte) error {
	if err := kv.db.Set([]byte(key), value, pebble.Sync); err != nil {
		return fmt.Errorf("failed to set %q: %w", key, err)
	}
	return nil
}

func (kv *PebbleKV) Close() error {
	return kv.db.Close()
}
