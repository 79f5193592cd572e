package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileKV keeps every key in a single JSON object on disk. Values must be JSON
// documents. The whole file is rewritten on each Put.
type FileKV struct {
	mu       sync.RWMutex
	filePath string
	data     map[string]json.RawMessage
}

func NewFileKV(filePath string) (*FileKV, error) {
	kv := &FileKV{
		filePath: filePath,
		data:     map[string]json.RawMessage{},
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return kv, nil
		}
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if len(data) == 0 {
		return kv, nil
	}

	if err := json.Unmarshal(data, &kv.data); err != nil {
		// An unreadable file loses its contents rather than blocking startup;
		// the next Put overwrites it.
		kv.data = map[string]json.RawMessage{}
		return kv, &CorruptError{Path: filePath, Err: err}
	}
	if kv.data == nil {
		kv.data = map[string]json.RawMessage{}
	}
	return kv, nil
}

func (kv *FileKV) Get(key string) ([]byte, error) {
	kv.mu.RLock()
	defer kv.mu.RUnlock()

	v, ok := kv.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (kv *FileKV) Put(key string, value []byte) error {
	kv.mu.Lock()
	defer kv.mu.Unlock()

	if !json.Valid(value) {
		return fmt.Errorf("value for %q is not valid JSON", key)
	}

	next := make(map[string]json.RawMessage, len(kv.data)+1)
	for k, v := range kv.data {
		next[k] = v
	}
	next[key] = append(json.RawMessage(nil), value...)
	if err := kv.save(next); err != nil {
		return err
	}
	kv.data = next
	return nil
}

func (kv *FileKV) Close() error {
	return nil
}

func (kv *FileKV) save(values map[string]json.RawMessage) error {
	data, err := marshal(values)
	if err != nil {
		return fmt.Errorf("failed to marshal data: %w", err)
	}

	// Ensure directory exists
	dir := filepath.Dir(kv.filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create storage directory: %w", err)
	}

	if err := os.WriteFile(kv.filePath, data, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}
