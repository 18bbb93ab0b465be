package resolver

import (
	"context"
	"log/slog"

	"github.com/conorfennell/idiomas/internal/backend"
	"github.com/conorfennell/idiomas/internal/domain"
	"github.com/conorfennell/idiomas/internal/metrics"
	"github.com/conorfennell/idiomas/internal/remote"
	"github.com/conorfennell/idiomas/internal/srs"
)

// Resolver answers vocabulary and drill queries from the first tier that has data.
type Resolver struct {
	sources []Source
	remote  remote.Store
	backend *backend.Client
	logger  *slog.Logger
}

// New returns a resolver that tries sources in the given order. Drill
// queries only ever use the remote store; reviews go to the backend.
func New(store remote.Store, be *backend.Client, logger *slog.Logger, sources ...Source) *Resolver {
	if store == nil {
		store = remote.Disabled{}
	}
	if be == nil {
		be = backend.NewClient("", nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{sources: sources, remote: store, backend: be, logger: logger}
}

// Themes returns theme counts from the first tier with at least one theme.
// It returns an empty slice when every tier is unavailable, empty or failing.
func (r *Resolver) Themes(ctx context.Context) []domain.Theme {
	for _, s := range r.sources {
		if !s.Available() {
			continue
		}
		themes, err := s.Themes(ctx)
		if err != nil {
			r.logger.Debug("Theme source failed, trying next", "source", s.Name(), "error", err)
			continue
		}
		if len(themes) > 0 {
			metrics.RecordResolve("themes", s.Name())
			return themes
		}
	}
	metrics.RecordResolve("themes", "none")
	return []domain.Theme{}
}

// Words returns the words of theme from the first tier that has any.
func (r *Resolver) Words(ctx context.Context, theme string) []domain.Word {
	for _, s := range r.sources {
		if !s.Available() {
			continue
		}
		words, err := s.Words(ctx, theme)
		if err != nil {
			r.logger.Debug("Word source failed, trying next", "source", s.Name(), "theme", theme, "error", err)
			continue
		}
		if len(words) > 0 {
			metrics.RecordResolve("words", s.Name())
			return words
		}
	}
	metrics.RecordResolve("words", "none")
	return []domain.Word{}
}

// Weeks lists drill weeks. Drills are only kept in the remote store.
func (r *Resolver) Weeks(ctx context.Context) []string {
	if !r.remote.Configured() {
		return []string{}
	}
	weeks, err := r.remote.Weeks(ctx)
	if err != nil {
		r.logger.Debug("Week list failed", "error", err)
		return []string{}
	}
	return weeks
}

// WeekItems lists the drill items of week from the remote store.
func (r *Resolver) WeekItems(ctx context.Context, week string) []domain.WeekItem {
	if !r.remote.Configured() {
		return []domain.WeekItem{}
	}
	items, err := r.remote.WeekItems(ctx, week)
	if err != nil {
		r.logger.Debug("Week items failed", "week", week, "error", err)
		return []domain.WeekItem{}
	}
	if items == nil {
		return []domain.WeekItem{}
	}
	return items
}

// SubmitReview posts the grade to the REST backend when one is configured.
// Failures are logged and dropped.
func (r *Resolver) SubmitReview(ctx context.Context, wordID string, grade srs.Grade) {
	if !r.backend.Configured() {
		return
	}
	if _, err := r.backend.Review(ctx, wordID, grade); err != nil {
		r.logger.Debug("Review submission failed", "word_id", wordID, "error", err)
	}
}
