package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/noahxzhu/chatcard/internal/model"
)

// MaxHistory is how many sent payloads are retained, newest first.
const MaxHistory = 50

const (
	keyHistory     = "history"
	keyWebhooks    = "webhooks"
	keyLastWebhook = "last_webhook"
)

var ErrWebhookNotFound = errors.New("webhook not found")

type Store struct {
	mu          sync.RWMutex
	kv          KV
	logger      *slog.Logger
	validate    *validator.Validate
	history     []model.HistoryItem
	webhooks    []model.SavedWebhook
	lastWebhook string
}

func NewStore(kv KV, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		kv:       kv,
		logger:   logger,
		validate: validator.New(),
		history:  []model.HistoryItem{},
		webhooks: []model.SavedWebhook{},
	}
}

// Load reads every collection once. Missing or unreadable values leave the
// collection empty; Load never fails.
func (s *Store) Load() {
	s.mu.Lock()
	defer s.mu.Unlock()

	var history []model.HistoryItem
	if s.loadKey(keyHistory, &history) && history != nil {
		if len(history) > MaxHistory {
			history = history[:MaxHistory]
		}
		s.history = history
	}

	var webhooks []model.SavedWebhook
	if s.loadKey(keyWebhooks, &webhooks) && webhooks != nil {
		s.webhooks = webhooks
	}

	var last string
	if s.loadKey(keyLastWebhook, &last) {
		s.lastWebhook = last
	}
}

func (s *Store) loadKey(key string, dst any) bool {
	data, err := s.kv.Get(key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.logger.Warn("Failed to read stored value, starting empty", "key", key, "error", err)
		}
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		s.logger.Warn("Stored value is corrupt, starting empty", "key", key, "error", err)
		return false
	}
	return true
}

func (s *Store) put(key string, v any) error {
	data, err := marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	if err := s.kv.Put(key, data); err != nil {
		return fmt.Errorf("failed to save %s: %w", key, err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.kv.Close()
}

// AddHistory puts item at the front and evicts anything past MaxHistory.
func (s *Store) AddHistory(item model.HistoryItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	history := make([]model.HistoryItem, 0, MaxHistory)
	history = append(history, item)
	history = append(history, s.history...)
	if len(history) > MaxHistory {
		history = history[:MaxHistory]
	}
	if err := s.put(keyHistory, history); err != nil {
		return err
	}
	s.history = history
	return nil
}

func (s *Store) History() []model.HistoryItem {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]model.HistoryItem, len(s.history))
	copy(result, s.history)
	return result
}

func (s *Store) HistoryItem(index int) (model.HistoryItem, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if index < 0 || index >= len(s.history) {
		return model.HistoryItem{}, false
	}
	return s.history[index], true
}

func (s *Store) ClearHistory() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	history := []model.HistoryItem{}
	if err := s.put(keyHistory, history); err != nil {
		return err
	}
	s.history = history
	return nil
}

// AddWebhook saves a new named webhook. Saving the same url twice creates two
// entries.
func (s *Store) AddWebhook(name, url string) (model.SavedWebhook, error) {
	w := model.SavedWebhook{
		ID:   uuid.New().String(),
		Name: strings.TrimSpace(name),
		URL:  strings.TrimSpace(url),
	}
	if err := s.validate.Struct(w); err != nil {
		return model.SavedWebhook{}, fmt.Errorf("invalid webhook: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	webhooks := append(s.webhooks[:len(s.webhooks):len(s.webhooks)], w)
	if err := s.put(keyWebhooks, webhooks); err != nil {
		return model.SavedWebhook{}, err
	}
	s.webhooks = webhooks
	return w, nil
}

func (s *Store) DeleteWebhook(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, w := range s.webhooks {
		if w.ID == id {
			webhooks := append(s.webhooks[:i:i], s.webhooks[i+1:]...)
			if err := s.put(keyWebhooks, webhooks); err != nil {
				return err
			}
			s.webhooks = webhooks
			return nil
		}
	}
	return ErrWebhookNotFound
}

func (s *Store) Webhooks() []model.SavedWebhook {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]model.SavedWebhook, len(s.webhooks))
	copy(result, s.webhooks)
	return result
}

// FindWebhook looks a saved webhook up by id, then by name.
func (s *Store) FindWebhook(ref string) (model.SavedWebhook, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, w := range s.webhooks {
		if w.ID == ref {
			return w, true
		}
	}
	for _, w := range s.webhooks {
		if w.Name == ref {
			return w, true
		}
	}
	return model.SavedWebhook{}, false
}

func (s *Store) LastWebhook() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastWebhook
}

func (s *Store) SetLastWebhook(url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.lastWebhook == url {
		return nil
	}
	if err := s.put(keyLastWebhook, url); err != nil {
		return err
	}
	s.lastWebhook = url
	return nil
}
