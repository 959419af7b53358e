package domain

import "context"

type Service interface {
	CollapsedItems(ctx context.Context, owner, scope string) ([]string, error)
	SetCollapsed(ctx context.Context, owner, scope, item string, collapsed *bool) (bool, error)
	ListViews(ctx context.Context, owner, scope string) ([]SavedView, error)
	UpsertView(ctx context.Context, owner, scope string, view SavedView) ([]SavedView, error)
	DeleteView(ctx context.Context, owner, scope, name string) error
}
