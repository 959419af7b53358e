package service

import (
	"context"
	"strings"
	"time"

	preferencedomain "github.com/smallbiznis/opsdesk/internal/preference/domain"
	"github.com/smallbiznis/opsdesk/internal/preference/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const defaultCacheTTL = 5 * time.Minute

type ServiceParam struct {
	fx.In

	DB  *gorm.DB
	Log *zap.Logger
}

type Service struct {
	store preferencedomain.Store
	log   *zap.Logger
}

func NewService(p ServiceParam) preferencedomain.Service {
	return NewServiceWithStore(NewCachedStore(repository.NewStore(p.DB), defaultCacheTTL), p.Log)
}

func NewServiceWithStore(store preferencedomain.Store, log *zap.Logger) preferencedomain.Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: store, log: log.Named("preference.service")}
}

func (s *Service) CollapsedItems(ctx context.Context, owner, scope string) ([]string, error) {
	state, err := s.collapse(ctx, owner, scope)
	if err != nil {
		return nil, err
	}
	return state.Items(), nil
}

// SetCollapsed sets item to collapsed, or toggles it when collapsed is nil,
// and returns the resulting state.
func (s *Service) SetCollapsed(ctx context.Context, owner, scope, item string, collapsed *bool) (bool, error) {
	state, err := s.collapse(ctx, owner, scope)
	if err != nil {
		return false, err
	}
	if collapsed == nil {
		return state.Toggle(ctx, item)
	}
	return *collapsed, state.Set(ctx, item, *collapsed)
}

func (s *Service) ListViews(ctx context.Context, owner, scope string) ([]preferencedomain.SavedView, error) {
	views, err := s.views(ctx, owner, scope)
	if err != nil {
		return nil, err
	}
	return views.List(), nil
}

func (s *Service) UpsertView(ctx context.Context, owner, scope string, view preferencedomain.SavedView) ([]preferencedomain.SavedView, error) {
	views, err := s.views(ctx, owner, scope)
	if err != nil {
		return nil, err
	}
	if err := views.Upsert(ctx, view); err != nil {
		return nil, err
	}
	s.log.Debug("saved view stored", zap.String("owner", owner), zap.String("scope", scope), zap.String("view", view.Name))
	return views.List(), nil
}

func (s *Service) DeleteView(ctx context.Context, owner, scope, name string) error {
	views, err := s.views(ctx, owner, scope)
	if err != nil {
		return err
	}
	return views.Delete(ctx, strings.TrimSpace(name))
}

func (s *Service) collapse(ctx context.Context, owner, scope string) (*CollapseState, error) {
	owner, scope, err := normalizeScope(owner, scope)
	if err != nil {
		return nil, err
	}
	state := NewCollapseState(s.store, owner, scope)
	if err := state.Load(ctx); err != nil {
		return nil, err
	}
	return state, nil
}

func (s *Service) views(ctx context.Context, owner, scope string) (*SavedViews, error) {
	owner, scope, err := normalizeScope(owner, scope)
	if err != nil {
		return nil, err
	}
	views := NewSavedViews(s.store, owner, scope)
	if err := views.Load(ctx); err != nil {
		return nil, err
	}
	return views, nil
}

func normalizeScope(owner, scope string) (string, string, error) {
	owner = strings.TrimSpace(owner)
	if owner == "" {
		return "", "", preferencedomain.ErrInvalidOwner
	}
	scope = strings.ToLower(strings.TrimSpace(scope))
	if scope == "" {
		return "", "", preferencedomain.ErrInvalidScope
	}
	return owner, scope, nil
}
