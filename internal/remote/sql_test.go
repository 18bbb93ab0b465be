package remote

import (
	"context"
	"os"
	"testing"

	"github.com/conorfennell/idiomas/internal/domain"
)

// newTestSQLStore connects to IDIOMAS_TEST_DATABASE_URL and skips when unset.
func newTestSQLStore(t *testing.T) *SQLStore {
	t.Helper()
	dsn := os.Getenv("IDIOMAS_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("IDIOMAS_TEST_DATABASE_URL not set")
	}
	s, err := OpenSQL(dsn)
	if err != nil {
		t.Fatalf("OpenSQL() returned an unexpected error: %v", err)
	}
	if err := s.AutoMigrate(); err != nil {
		t.Fatalf("AutoMigrate() returned an unexpected error: %v", err)
	}
	for _, tbl := range []string{"words", "progress", "reviews", "profiles", "school_items"} {
		s.db.Exec("DELETE FROM " + tbl)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLStoreWords(t *testing.T) {
	s := newTestSQLStore(t)
	ctx := context.Background()

	words := []domain.Word{
		{ID: "1", Theme: "animals", En: "dog", Es: "perro"},
		{ID: "2", Theme: "food", En: "bread", Es: "pan"},
	}
	if err := s.UpsertWords(ctx, words); err != nil {
		t.Fatalf("UpsertWords() returned an unexpected error: %v", err)
	}
	words[0].Es = "can"
	if err := s.UpsertWords(ctx, words[:1]); err != nil {
		t.Fatalf("UpsertWords() again returned an unexpected error: %v", err)
	}

	labels, err := s.ThemeLabels(ctx)
	if err != nil || len(labels) != 2 {
		t.Fatalf("Expected 2 labels without duplicates, got %v (err %v)", labels, err)
	}
	got, err := s.WordsByTheme(ctx, "ANIMALS")
	if err != nil || len(got) != 1 || got[0].Es != "can" || got[0].Theme != "animals" {
		t.Errorf("Expected overwritten animal word, got %+v (err %v)", got, err)
	}
}

func TestSQLStoreProgress(t *testing.T) {
	s := newTestSQLStore(t)
	ctx := context.Background()

	if _, ok, err := s.Progress(ctx, "local-user"); err != nil || ok {
		t.Fatalf("Expected no progress, got ok=%v err=%v", ok, err)
	}
	if err := s.UpsertProgress(ctx, "local-user", 30); err != nil {
		t.Fatalf("UpsertProgress() returned an unexpected error: %v", err)
	}
	if err := s.UpsertProgress(ctx, "local-user", 45); err != nil {
		t.Fatalf("UpsertProgress() returned an unexpected error: %v", err)
	}
	xp, ok, err := s.Progress(ctx, "local-user")
	if err != nil || !ok || xp != 45 {
		t.Errorf("Expected 45 XP, got %d ok=%v err=%v", xp, ok, err)
	}
	if err := s.InsertReview(ctx, domain.ReviewLog{UserID: "local-user", WordID: "1", Grade: 3}); err != nil {
		t.Errorf("InsertReview() returned an unexpected error: %v", err)
	}
}

func TestSQLStoreWeekItems(t *testing.T) {
	s := newTestSQLStore(t)
	ctx := context.Background()

	items := []domain.WeekItem{
		{Week: "Lesson 8", Kind: domain.KindReview, Idx: 1, Word: "sun"},
		{Week: "Lesson 8", Kind: domain.KindPattern, Idx: 1, Word: "cake"},
		{Week: "Lesson 7", Kind: domain.KindPattern, Idx: 1, Word: "rain"},
	}
	if err := s.UpsertWeekItems(ctx, items); err != nil {
		t.Fatalf("UpsertWeekItems() returned an unexpected error: %v", err)
	}
	if err := s.UpsertWeekItems(ctx, []domain.WeekItem{{Week: "Lesson 8", Kind: domain.KindPattern, Idx: 1, Word: "lake"}}); err != nil {
		t.Fatalf("UpsertWeekItems() again returned an unexpected error: %v", err)
	}

	weeks, err := s.Weeks(ctx)
	if err != nil || len(weeks) != 2 || weeks[0] != "Lesson 7" {
		t.Errorf("Expected [Lesson 7 Lesson 8], got %v (err %v)", weeks, err)
	}
	got, err := s.WeekItems(ctx, "Lesson 8")
	if err != nil || len(got) != 2 {
		t.Fatalf("Expected 2 items, got %+v (err %v)", got, err)
	}
	if got[0].Kind != domain.KindPattern || got[0].Word != "lake" {
		t.Errorf("Expected overwritten pattern item first, got %+v", got[0])
	}
}
