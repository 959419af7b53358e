package service

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"

	preferencedomain "github.com/smallbiznis/opsdesk/internal/preference/domain"
)

// CollapseState tracks which items of a list are collapsed. Call Load once
// before use; every change is written back to the store.
type CollapseState struct {
	store preferencedomain.Store
	owner string
	key   string

	mu    sync.Mutex
	items map[string]struct{}
}

func NewCollapseState(store preferencedomain.Store, owner, scope string) *CollapseState {
	return &CollapseState{
		store: store,
		owner: owner,
		key:   "collapse:" + scope,
		items: make(map[string]struct{}),
	}
}

func (c *CollapseState) Load(ctx context.Context) error {
	raw, found, err := c.store.Get(ctx, c.owner, c.key)
	if err != nil {
		return err
	}
	items := make(map[string]struct{})
	if found && len(raw) > 0 {
		var ids []string
		if err := json.Unmarshal(raw, &ids); err != nil {
			return err
		}
		for _, id := range ids {
			items[id] = struct{}{}
		}
	}
	c.mu.Lock()
	c.items = items
	c.mu.Unlock()
	return nil
}

func (c *CollapseState) IsCollapsed(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.items[id]
	return ok
}

// Items returns the collapsed ids in sorted order.
func (c *CollapseState) Items() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sortedLocked()
}

// Toggle flips id and returns its new state.
func (c *CollapseState) Toggle(ctx context.Context, id string) (bool, error) {
	collapsed := !c.IsCollapsed(id)
	return collapsed, c.Set(ctx, id, collapsed)
}

func (c *CollapseState) Set(ctx context.Context, id string, collapsed bool) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return preferencedomain.ErrInvalidItem
	}
	c.mu.Lock()
	if collapsed {
		c.items[id] = struct{}{}
	} else {
		delete(c.items, id)
	}
	ids := c.sortedLocked()
	c.mu.Unlock()

	raw, err := json.Marshal(ids)
	if err != nil {
		return err
	}
	return c.store.Put(ctx, c.owner, c.key, raw)
}

func (c *CollapseState) sortedLocked() []string {
	ids := make([]string, 0, len(c.items))
	for id := range c.items {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
