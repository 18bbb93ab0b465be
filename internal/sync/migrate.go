package sync

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/conorfennell/idiomas/internal/bundle"
	"github.com/conorfennell/idiomas/internal/domain"
	"github.com/conorfennell/idiomas/internal/metrics"
	"github.com/conorfennell/idiomas/internal/remote"
)

// BatchSize is the number of words sent per upsert during Migrate.
const BatchSize = 500

// Migrate uploads the whole static bundle to the remote store in batches.
// A failed batch is recorded in the report and the next batch still runs.
// It returns an error only when the store is unconfigured or the bundle
// cannot be read.
func Migrate(ctx context.Context, store remote.Store, loader bundle.Loader) (*domain.MigrationReport, error) {
	if store == nil || !store.Configured() {
		return nil, remote.ErrNotConfigured
	}
	words, err := loader.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load bundle: %w", err)
	}

	report := &domain.MigrationReport{Total: len(words), Errors: []string{}}
	for start := 0; start < len(words); start += BatchSize {
		end := min(start+BatchSize, len(words))
		batch := words[start:end]

		err := store.UpsertWords(ctx, batch)
		metrics.RecordSync("migrate_batch", err)
		if err != nil {
			slog.Warn("Migration batch failed", "from", start, "to", end, "error", err)
			report.Errors = append(report.Errors, err.Error())
			continue
		}
		report.Inserted += len(batch)
	}
	report.Failed = len(report.Errors)

	slog.Info("Migration complete",
		"total", report.Total,
		"inserted", report.Inserted,
		"failed", report.Failed,
	)
	return report, nil
}
