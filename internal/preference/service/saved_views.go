package service

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"

	preferencedomain "github.com/smallbiznis/opsdesk/internal/preference/domain"
)

// SavedViews holds the named filter views of one list.
type SavedViews struct {
	store preferencedomain.Store
	owner string
	key   string

	mu    sync.Mutex
	views map[string]preferencedomain.SavedView
}

func NewSavedViews(store preferencedomain.Store, owner, scope string) *SavedViews {
	return &SavedViews{
		store: store,
		owner: owner,
		key:   "views:" + scope,
		views: make(map[string]preferencedomain.SavedView),
	}
}

func (v *SavedViews) Load(ctx context.Context) error {
	raw, found, err := v.store.Get(ctx, v.owner, v.key)
	if err != nil {
		return err
	}
	views := make(map[string]preferencedomain.SavedView)
	if found && len(raw) > 0 {
		var list []preferencedomain.SavedView
		if err := json.Unmarshal(raw, &list); err != nil {
			return err
		}
		for _, view := range list {
			views[view.Name] = view
		}
	}
	v.mu.Lock()
	v.views = views
	v.mu.Unlock()
	return nil
}

// List returns the views sorted by name.
func (v *SavedViews) List() []preferencedomain.SavedView {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.sortedLocked()
}

func (v *SavedViews) Upsert(ctx context.Context, view preferencedomain.SavedView) error {
	view.Name = strings.TrimSpace(view.Name)
	if view.Name == "" {
		return preferencedomain.ErrInvalidViewName
	}
	v.mu.Lock()
	v.views[view.Name] = view
	list := v.sortedLocked()
	v.mu.Unlock()
	return v.persist(ctx, list)
}

func (v *SavedViews) Delete(ctx context.Context, name string) error {
	v.mu.Lock()
	if _, ok := v.views[name]; !ok {
		v.mu.Unlock()
		return preferencedomain.ErrViewNotFound
	}
	delete(v.views, name)
	list := v.sortedLocked()
	v.mu.Unlock()
	return v.persist(ctx, list)
}

func (v *SavedViews) persist(ctx context.Context, list []preferencedomain.SavedView) error {
	raw, err := json.Marshal(list)
	if err != nil {
		return err
	}
	return v.store.Put(ctx, v.owner, v.key, raw)
}

func (v *SavedViews) sortedLocked() []preferencedomain.SavedView {
	list := make([]preferencedomain.SavedView, 0, len(v.views))
	for _, view := range v.views {
		list = append(list, view)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list
}
