package remote

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/conorfennell/idiomas/internal/domain"
)

type wordRow struct {
	ID      string `gorm:"primaryKey"`
	Theme   string `gorm:"index;not null"`
	En      string `gorm:"not null"`
	Es      string `gorm:"not null"`
	Image   *string
	Example *string
}

func (wordRow) TableName() string { return "words" }

type progressRecord struct {
	ID string `gorm:"primaryKey"`
	XP *int   `gorm:"column:xp"`
}

func (progressRecord) TableName() string { return "progress" }

type reviewRow struct {
	ID        string `gorm:"type:uuid;primaryKey"`
	UserID    string `gorm:"index;not null"`
	WordID    string `gorm:"not null"`
	Grade     int    `gorm:"not null"`
	CreatedAt time.Time
}

func (reviewRow) TableName() string { return "reviews" }

type profileRow struct {
	ID   string `gorm:"primaryKey"`
	Role string `gorm:"not null;default:user"`
}

func (profileRow) TableName() string { return "profiles" }

type schoolItemRow struct {
	ID       string `gorm:"type:uuid;primaryKey"`
	Week     string `gorm:"not null;uniqueIndex:idx_school_items_week_kind_idx"`
	Kind     string `gorm:"not null;uniqueIndex:idx_school_items_week_kind_idx"`
	Idx      int    `gorm:"not null;uniqueIndex:idx_school_items_week_kind_idx"`
	Word     string `gorm:"not null"`
	Sentence *string
	Es       *string
}

func (schoolItemRow) TableName() string { return "school_items" }

// SQLStore reaches the same tables directly through the store's Postgres
// connection string instead of the REST interface.
type SQLStore struct {
	db *gorm.DB
}

var _ Store = (*SQLStore)(nil)

// OpenSQL connects to databaseURL.
func OpenSQL(databaseURL string) (*SQLStore, error) {
	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to remote database: %w", err)
	}
	return &SQLStore{db: db}, nil
}

// AutoMigrate creates the tables when they are missing.
func (s *SQLStore) AutoMigrate() error {
	return s.db.AutoMigrate(&wordRow{}, &progressRecord{}, &reviewRow{}, &profileRow{}, &schoolItemRow{})
}

// Close releases the underlying connection pool.
func (s *SQLStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *SQLStore) Configured() bool { return s.db != nil }

func (s *SQLStore) ThemeLabels(ctx context.Context) ([]string, error) {
	var labels []string
	if err := s.db.WithContext(ctx).Model(&wordRow{}).Pluck("theme", &labels).Error; err != nil {
		return nil, fmt.Errorf("failed to select themes: %w", err)
	}
	return labels, nil
}

func (s *SQLStore) WordsByTheme(ctx context.Context, theme string) ([]domain.Word, error) {
	var rows []wordRow
	err := s.db.WithContext(ctx).Where("LOWER(theme) = LOWER(?)", theme).Order("id").Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to select words for theme %s: %w", theme, err)
	}
	words := make([]domain.Word, len(rows))
	for i, r := range rows {
		words[i] = domain.Word{ID: r.ID, Theme: r.Theme, En: r.En, Es: r.Es, Image: r.Image, Example: r.Example}
	}
	return domain.WordsForTheme(words, theme), nil
}

func (s *SQLStore) UpsertWords(ctx context.Context, words []domain.Word) error {
	if len(words) == 0 {
		return nil
	}
	rows := make([]wordRow, len(words))
	for i, w := range words {
		rows[i] = wordRow{ID: w.ID, Theme: w.Theme, En: w.En, Es: w.Es, Image: w.Image, Example: w.Example}
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(&rows).Error
}

func (s *SQLStore) Progress(ctx context.Context, id string) (int, bool, error) {
	var rec progressRecord
	err := s.db.WithContext(ctx).Where("id = ?", id).Take(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to read progress for %s: %w", id, err)
	}
	if rec.XP == nil {
		return 0, false, nil
	}
	return *rec.XP, true, nil
}

func (s *SQLStore) UpsertProgress(ctx context.Context, id string, xp int) error {
	rec := progressRecord{ID: id, XP: &xp}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"xp"}),
	}).Create(&rec).Error
	if err != nil {
		return fmt.Errorf("failed to upsert progress for %s: %w", id, err)
	}
	return nil
}

func (s *SQLStore) InsertReview(ctx context.Context, review domain.ReviewLog) error {
	row := reviewRow{
		ID:        review.ID,
		UserID:    review.UserID,
		WordID:    review.WordID,
		Grade:     review.Grade,
		CreatedAt: review.CreatedAt,
	}
	if row.ID == "" {
		row.ID = uuid.NewString()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now()
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to insert review for %s: %w", review.WordID, err)
	}
	return nil
}

func (s *SQLStore) Profile(ctx context.Context, id string) (*domain.Profile, error) {
	var row profileRow
	err := s.db.WithContext(ctx).Where("id = ?", id).Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read profile %s: %w", id, err)
	}
	return &domain.Profile{ID: row.ID, Role: row.Role}, nil
}

func (s *SQLStore) Weeks(ctx context.Context) ([]string, error) {
	var weeks []string
	err := s.db.WithContext(ctx).Model(&schoolItemRow{}).Distinct("week").Order("week").Pluck("week", &weeks).Error
	if err != nil {
		return nil, fmt.Errorf("failed to select weeks: %w", err)
	}
	return uniqueWeeks(weeks), nil
}

func (s *SQLStore) WeekItems(ctx context.Context, week string) ([]domain.WeekItem, error) {
	var rows []schoolItemRow
	err := s.db.WithContext(ctx).Where("week = ?", week).Order("kind").Order("idx").Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to select items for week %s: %w", week, err)
	}
	items := make([]domain.WeekItem, len(rows))
	for i, r := range rows {
		items[i] = domain.WeekItem{
			ID:       r.ID,
			Week:     r.Week,
			Kind:     domain.Kind(r.Kind),
			Idx:      r.Idx,
			Word:     r.Word,
			Sentence: r.Sentence,
			Es:       r.Es,
		}
	}
	return items, nil
}

func (s *SQLStore) UpsertWeekItems(ctx context.Context, items []domain.WeekItem) error {
	if len(items) == 0 {
		return nil
	}
	rows := make([]schoolItemRow, len(items))
	for i, it := range items {
		id := it.ID
		if id == "" {
			id = uuid.NewString()
		}
		rows[i] = schoolItemRow{
			ID:       id,
			Week:     it.Week,
			Kind:     string(it.Kind),
			Idx:      it.Idx,
			Word:     it.Word,
			Sentence: it.Sentence,
			Es:       it.Es,
		}
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "week"}, {Name: "kind"}, {Name: "idx"}},
		DoUpdates: clause.AssignmentColumns([]string{"word", "sentence", "es"}),
	}).Create(&rows).Error
}
