package practice

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/conorfennell/idiomas/internal/srs"
)

type memProgress struct {
	xp  int
	err error
}

func (m *memProgress) XP(context.Context) (int, error) { return m.xp, m.err }

func (m *memProgress) AddXP(_ context.Context, delta int) (int, error) {
	if m.err != nil {
		return 0, m.err
	}
	m.xp += delta
	return m.xp, nil
}

type recorder struct {
	submitted []string
	logged    []string
	synced    []int
	remoteXP  int
}

func (r *recorder) SubmitReview(_ context.Context, wordID string, _ srs.Grade) {
	r.submitted = append(r.submitted, wordID)
}

func (r *recorder) SyncXP(xp int) { r.synced = append(r.synced, xp) }

func (r *recorder) LogReview(wordID string, _ srs.Grade) { r.logged = append(r.logged, wordID) }

func (r *recorder) FetchRemoteXP(context.Context) (int, bool) {
	return r.remoteXP, r.remoteXP > 0
}

func TestGrade(t *testing.T) {
	testCases := []struct {
		grade   srs.Grade
		gained  int
		nextDue time.Duration
		requeue bool
	}{
		{srs.Again, 5, 30 * time.Second, true},
		{srs.Hard, 8, 5 * time.Minute, true},
		{srs.Good, 10, 25 * time.Minute, false},
		{srs.Easy, 15, 12 * time.Hour, false},
	}

	for _, tc := range testCases {
		t.Run(tc.grade.String(), func(t *testing.T) {
			progress := &memProgress{xp: 100}
			rec := &recorder{}
			svc := NewService(progress, rec, rec, nil)

			res, err := svc.Grade(context.Background(), "w1", tc.grade)
			if err != nil {
				t.Fatalf("Grade() returned an unexpected error: %v", err)
			}
			if res.Gained != tc.gained || res.XP != 100+tc.gained {
				t.Errorf("Expected +%d to %d, but got +%d to %d", tc.gained, 100+tc.gained, res.Gained, res.XP)
			}
			if res.NextDue != tc.nextDue || res.Requeue != tc.requeue {
				t.Errorf("Expected next due %v requeue %v, but got %v %v", tc.nextDue, tc.requeue, res.NextDue, res.Requeue)
			}
			if len(rec.submitted) != 1 || len(rec.logged) != 1 {
				t.Errorf("Expected the review to be submitted and logged once, but got %d and %d", len(rec.submitted), len(rec.logged))
			}
			if len(rec.synced) != 1 || rec.synced[0] != res.XP {
				t.Errorf("Expected xp %d to be synced, but got %v", res.XP, rec.synced)
			}
		})
	}
}

func TestGradeInvalid(t *testing.T) {
	rec := &recorder{}
	svc := NewService(&memProgress{}, rec, rec, nil)
	if _, err := svc.Grade(context.Background(), "w1", srs.Grade(4)); err == nil {
		t.Error("Expected an error for grade 4")
	}
	if len(rec.submitted) != 0 {
		t.Error("Expected nothing to be submitted for an invalid grade")
	}
}

func TestGradeLocalFailure(t *testing.T) {
	rec := &recorder{}
	svc := NewService(&memProgress{err: errors.New("disk full")}, rec, rec, nil)
	if _, err := svc.Grade(context.Background(), "w1", srs.Good); err == nil {
		t.Error("Expected the local storage error to be returned")
	}
	if len(rec.synced) != 0 {
		t.Error("Expected no xp sync after a local failure")
	}
}

func TestAnswer(t *testing.T) {
	progress := &memProgress{}
	svc := NewService(progress, nil, nil, nil)

	xp, err := svc.Answer(context.Background(), true)
	if err != nil || xp != srs.CorrectAnswerXP {
		t.Errorf("Expected %d xp after a correct answer, but got %d (%v)", srs.CorrectAnswerXP, xp, err)
	}
	xp, err = svc.Answer(context.Background(), false)
	if err != nil || xp != srs.CorrectAnswerXP {
		t.Errorf("Expected xp unchanged after a wrong answer, but got %d (%v)", xp, err)
	}
}

func TestDisplayXP(t *testing.T) {
	testCases := []struct {
		name     string
		local    int
		remote   int
		expected int
	}{
		{name: "remote raises", local: 20, remote: 50, expected: 50},
		{name: "remote never lowers", local: 80, remote: 50, expected: 80},
		{name: "no remote value", local: 30, remote: 0, expected: 30},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			svc := NewService(&memProgress{xp: tc.local}, nil, &recorder{remoteXP: tc.remote}, nil)
			if got := svc.DisplayXP(context.Background()); got != tc.expected {
				t.Errorf("Expected %d, but got %d", tc.expected, got)
			}
		})
	}
}
