package practice

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/conorfennell/idiomas/internal/srs"
)

// Progress is the local XP counter.
type Progress interface {
	XP(ctx context.Context) (int, error)
	AddXP(ctx context.Context, delta int) (int, error)
}

// Reviewer forwards a graded review to the scheduling backend.
type Reviewer interface {
	SubmitReview(ctx context.Context, wordID string, grade srs.Grade)
}

// Remote mirrors progress to the hosted store.
type Remote interface {
	SyncXP(xp int)
	LogReview(wordID string, grade srs.Grade)
	FetchRemoteXP(ctx context.Context) (int, bool)
}

// Result is the outcome of grading one flashcard.
type Result struct {
	Grade   srs.Grade     `json:"grade"`
	Gained  int           `json:"gained"`
	XP      int           `json:"xp"`
	NextDue time.Duration `json:"next_due"`
	Requeue bool          `json:"requeue"`
}

// Service runs the practice flows: grading flashcards and scoring game answers.
type Service struct {
	progress Progress
	reviewer Reviewer
	remote   Remote
	logger   *slog.Logger
}

func NewService(progress Progress, reviewer Reviewer, remote Remote, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{progress: progress, reviewer: reviewer, remote: remote, logger: logger}
}

// Grade records a flashcard review. The backend and remote writes are
// best-effort; only a local storage failure is returned.
func (s *Service) Grade(ctx context.Context, wordID string, grade srs.Grade) (*Result, error) {
	if !grade.Valid() {
		return nil, fmt.Errorf("invalid grade %d", grade)
	}
	if s.reviewer != nil {
		s.reviewer.SubmitReview(ctx, wordID, grade)
	}
	if s.remote != nil {
		s.remote.LogReview(wordID, grade)
	}

	gained := srs.XPFor(grade)
	total, err := s.award(ctx, gained)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("Graded word", "word_id", wordID, "grade", grade.String(), "xp", total)
	return &Result{
		Grade:   grade,
		Gained:  gained,
		XP:      total,
		NextDue: srs.NextDelay(grade),
		Requeue: srs.Requeue(grade),
	}, nil
}

// Answer scores a game answer. Wrong answers leave XP unchanged.
func (s *Service) Answer(ctx context.Context, correct bool) (int, error) {
	if !correct {
		return s.progress.XP(ctx)
	}
	return s.award(ctx, srs.CorrectAnswerXP)
}

// DisplayXP is the counter shown to the learner: the local total, raised to
// the remote total when that is larger.
func (s *Service) DisplayXP(ctx context.Context) int {
	local, err := s.progress.XP(ctx)
	if err != nil {
		s.logger.Warn("Failed to read local xp", "error", err)
		local = 0
	}
	if s.remote != nil {
		if remote, ok := s.remote.FetchRemoteXP(ctx); ok && remote > local {
			return remote
		}
	}
	return local
}

func (s *Service) award(ctx context.Context, gained int) (int, error) {
	total, err := s.progress.AddXP(ctx, gained)
	if err != nil {
		return 0, fmt.Errorf("failed to add xp: %w", err)
	}
	if s.remote != nil {
		s.remote.SyncXP(total)
	}
	return total, nil
}
