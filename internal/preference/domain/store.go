package domain

import (
	"context"
	"errors"
	"sync"
	"time"

	"gorm.io/datatypes"
)

// Store is the key-value backend UI preferences are persisted to. Get
// reports found=false for a missing key.
type Store interface {
	Get(ctx context.Context, owner, key string) ([]byte, bool, error)
	Put(ctx context.Context, owner, key string, value []byte) error
	Delete(ctx context.Context, owner, key string) error
}

// Preference is one stored preference value.
type Preference struct {
	Owner     string         `gorm:"primaryKey;type:text" json:"owner"`
	Key       string         `gorm:"primaryKey;column:pref_key;type:text" json:"key"`
	Value     datatypes.JSON `gorm:"type:json;not null" json:"value"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
}

// TableName sets the database table name.
func (Preference) TableName() string { return "ui_preferences" }

// SavedView is a named set of list filters.
type SavedView struct {
	Name    string            `json:"name"`
	Filters map[string]string `json:"filters,omitempty"`
	Sort    string            `json:"sort,omitempty"`
}

var (
	ErrInvalidOwner    = errors.New("invalid_owner")
	ErrInvalidScope    = errors.New("invalid_scope")
	ErrInvalidItem     = errors.New("invalid_item")
	ErrInvalidViewName = errors.New("invalid_view_name")
	ErrViewNotFound    = errors.New("view_not_found")
)

// MemoryStore keeps preferences in process memory.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string][]byte)}
}

func memoryKey(owner, key string) string {
	return owner + "\x00" + key
}

func (m *MemoryStore) Get(_ context.Context, owner, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	value, ok := m.items[memoryKey(owner, key)]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), value...), true, nil
}

func (m *MemoryStore) Put(_ context.Context, owner, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[memoryKey(owner, key)] = append([]byte(nil), value...)
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, owner, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, memoryKey(owner, key))
	return nil
}
