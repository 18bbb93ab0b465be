package remote

import (
	"context"
	"errors"

	"github.com/conorfennell/idiomas/internal/domain"
)

// ErrNotConfigured is returned by Disabled for every operation.
var ErrNotConfigured = errors.New("remote store not configured")

// Store is the hosted table store: vocabulary, progress, review log,
// profiles and weekly drill items.
type Store interface {
	// Configured reports whether the store can be reached at all.
	Configured() bool

	ThemeLabels(ctx context.Context) ([]string, error)
	WordsByTheme(ctx context.Context, theme string) ([]domain.Word, error)
	UpsertWords(ctx context.Context, words []domain.Word) error

	// Progress reports false when the identity has no numeric xp stored.
	Progress(ctx context.Context, id string) (int, bool, error)
	UpsertProgress(ctx context.Context, id string, xp int) error
	InsertReview(ctx context.Context, review domain.ReviewLog) error

	// Profile returns nil, nil when no profile exists.
	Profile(ctx context.Context, id string) (*domain.Profile, error)

	Weeks(ctx context.Context) ([]string, error)
	WeekItems(ctx context.Context, week string) ([]domain.WeekItem, error)
	UpsertWeekItems(ctx context.Context, items []domain.WeekItem) error
}

// Disabled is the Store used when no remote store is configured.
type Disabled struct{}

var _ Store = Disabled{}

func (Disabled) Configured() bool { return false }

func (Disabled) ThemeLabels(context.Context) ([]string, error) { return nil, ErrNotConfigured }

func (Disabled) WordsByTheme(context.Context, string) ([]domain.Word, error) {
	return nil, ErrNotConfigured
}

func (Disabled) UpsertWords(context.Context, []domain.Word) error { return ErrNotConfigured }

func (Disabled) Progress(context.Context, string) (int, bool, error) { return 0, false, ErrNotConfigured }

func (Disabled) UpsertProgress(context.Context, string, int) error { return ErrNotConfigured }

func (Disabled) InsertReview(context.Context, domain.ReviewLog) error { return ErrNotConfigured }

func (Disabled) Profile(context.Context, string) (*domain.Profile, error) {
	return nil, ErrNotConfigured
}

func (Disabled) Weeks(context.Context) ([]string, error) { return nil, ErrNotConfigured }

func (Disabled) WeekItems(context.Context, string) ([]domain.WeekItem, error) {
	return nil, ErrNotConfigured
}

func (Disabled) UpsertWeekItems(context.Context, []domain.WeekItem) error { return ErrNotConfigured }

// uniqueWeeks keeps the first occurrence of every week label.
func uniqueWeeks(weeks []string) []string {
	seen := make(map[string]bool, len(weeks))
	out := make([]string, 0, len(weeks))
	for _, w := range weeks {
		if seen[w] {
			continue
		}
		seen[w] = true
		out = append(out, w)
	}
	return out
}
