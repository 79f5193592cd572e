package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

var ErrNotFound = errors.New("key not found")

// KV is the local key-value store the history and saved webhooks live in.
type KV interface {
	Get(key string) ([]byte, error)
	Put(key string, value []byte) error
	Close() error
}

// CorruptError reports a backing store that could not be read. The KV is
// still usable and starts empty.
type CorruptError struct {
	Path string
	Err  error
}

func (e *CorruptError) Error() string {
	return fmt.Sprintf("corrupt store %s: %v", e.Path, e.Err)
}

func (e *CorruptError) Unwrap() error {
	return e.Err
}

const (
	BackendFile   = "file"
	BackendPebble = "pebble"
)

// Open returns the KV for backend at path. A CorruptError comes back
// together with a usable, empty KV.
func Open(backend, path string) (KV, error) {
	switch backend {
	case "", BackendFile:
		kv, err := NewFileKV(path)
		if kv == nil {
			return nil, err
		}
		return kv, err
	case BackendPebble:
		kv, err := NewPebbleKV(path)
		if err != nil {
			return nil, err
		}
		return kv, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", backend)
	}
}

// marshal encodes v without HTML escaping so stored payloads keep the exact
// bytes that were sent.
func marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
