package sync

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/conorfennell/idiomas/internal/domain"
	"github.com/conorfennell/idiomas/internal/gitsource"
	"github.com/conorfennell/idiomas/internal/metrics"
	"github.com/conorfennell/idiomas/internal/parser"
	"github.com/conorfennell/idiomas/internal/remote"
)

// ImportReport summarizes one Import run.
type ImportReport struct {
	Weeks  []string
	Items  int
	Errors []string
}

// Import reads week lists from every source and upserts their items into the
// remote store. A source is a local directory or a git URL, which is cloned
// or pulled under reposDir first. Each .md file is one week.
func Import(ctx context.Context, store remote.Store, sources []string, reposDir string) (*ImportReport, error) {
	if store == nil || !store.Configured() {
		return nil, remote.ErrNotConfigured
	}
	report := &ImportReport{}
	if len(sources) == 0 {
		slog.Info("No import sources configured. Set import.sources to directories or git URLs")
		return report, nil
	}
	if err := os.MkdirAll(reposDir, os.ModePerm); err != nil {
		return nil, fmt.Errorf("failed to create repos directory: %w", err)
	}

	for _, source := range sources {
		slog.Info("Importing source", "source", source)
		dir := source
		if gitsource.IsRemote(source) {
			local, err := gitsource.LocalPath(reposDir, source)
			if err != nil {
				report.Errors = append(report.Errors, err.Error())
				continue
			}
			if err := gitsource.Sync(ctx, source, local); err != nil {
				slog.Error("Error syncing git repo", "url", source, "error", err)
				report.Errors = append(report.Errors, err.Error())
				continue
			}
			dir = local
		}
		importDir(ctx, store, dir, report)
	}

	slog.Info("Import complete",
		"weeks", len(report.Weeks),
		"items", report.Items,
		"errors", len(report.Errors),
	)
	return report, nil
}

func importDir(ctx context.Context, store remote.Store, dir string, report *ImportReport) {
	walkErr := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(strings.ToLower(d.Name()), ".md") {
			return nil
		}

		week, items, err := parser.ParseFile(path)
		if err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("parsing %s: %v", path, err))
			return nil
		}
		if len(items) == 0 {
			slog.Debug("Skipping empty week list", "path", path)
			return nil
		}
		err = store.UpsertWeekItems(ctx, items)
		metrics.RecordSync("import_week", err)
		if err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("saving %s: %v", week, err))
			return nil
		}
		slog.Info("Imported week", "week", week, "items", len(items), "path", path)
		report.Weeks = append(report.Weeks, week)
		report.Items += len(items)
		return nil
	})
	if walkErr != nil {
		slog.Error("Error walking directory", "path", dir, "error", walkErr)
		report.Errors = append(report.Errors, walkErr.Error())
	}
}

// SaveWeek stores a single pasted week list. It returns the number of items
// saved; an empty list saves nothing.
func SaveWeek(ctx context.Context, store remote.Store, items []domain.WeekItem) (int, error) {
	if store == nil || !store.Configured() {
		return 0, remote.ErrNotConfigured
	}
	if len(items) == 0 {
		return 0, nil
	}
	if err := store.UpsertWeekItems(ctx, items); err != nil {
		return 0, err
	}
	return len(items), nil
}
