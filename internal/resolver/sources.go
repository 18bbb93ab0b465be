package resolver

import (
	"context"

	"github.com/conorfennell/idiomas/internal/backend"
	"github.com/conorfennell/idiomas/internal/bundle"
	"github.com/conorfennell/idiomas/internal/domain"
	"github.com/conorfennell/idiomas/internal/remote"
)

// Source is one tier of vocabulary data. An error or an empty result means
// the resolver moves on to the next tier.
type Source interface {
	Name() string
	Available() bool
	Themes(ctx context.Context) ([]domain.Theme, error)
	Words(ctx context.Context, theme string) ([]domain.Word, error)
}

// RemoteSource reads vocabulary rows from the remote store and groups them locally.
type RemoteSource struct {
	Store remote.Store
}

func (s RemoteSource) Name() string { return "remote" }

func (s RemoteSource) Available() bool { return s.Store != nil && s.Store.Configured() }

func (s RemoteSource) Themes(ctx context.Context) ([]domain.Theme, error) {
	labels, err := s.Store.ThemeLabels(ctx)
	if err != nil {
		return nil, err
	}
	return domain.CountThemes(labels), nil
}

func (s RemoteSource) Words(ctx context.Context, theme string) ([]domain.Word, error) {
	return s.Store.WordsByTheme(ctx, theme)
}

// BackendSource asks the REST backend.
type BackendSource struct {
	Client *backend.Client
}

func (s BackendSource) Name() string { return "backend" }

func (s BackendSource) Available() bool { return s.Client != nil && s.Client.Configured() }

func (s BackendSource) Themes(ctx context.Context) ([]domain.Theme, error) {
	return s.Client.Themes(ctx)
}

func (s BackendSource) Words(ctx context.Context, theme string) ([]domain.Word, error) {
	return s.Client.Words(ctx, theme)
}

// BundleSource groups and filters the static bundle.
type BundleSource struct {
	Loader bundle.Loader
}

func (s BundleSource) Name() string { return "bundle" }

func (s BundleSource) Available() bool { return s.Loader != nil }

func (s BundleSource) Themes(ctx context.Context) ([]domain.Theme, error) {
	words, err := s.Loader.Load(ctx)
	if err != nil {
		return nil, err
	}
	return domain.GroupThemes(words), nil
}

func (s BundleSource) Words(ctx context.Context, theme string) ([]domain.Word, error) {
	words, err := s.Loader.Load(ctx)
	if err != nil {
		return nil, err
	}
	return domain.WordsForTheme(words, theme), nil
}
