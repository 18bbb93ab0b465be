package srs

import (
	"fmt"
	"time"
)

// Grade is the user's response to a flashcard.
type Grade int

const (
	Again Grade = 0
	Hard  Grade = 1
	Good  Grade = 2
	Easy  Grade = 3
)

// CorrectAnswerXP is awarded for a correct multiple-choice answer.
const CorrectAnswerXP = 10

// XPPerLevel is the width of a level on the progress bar.
const XPPerLevel = 100

// defaultDelay applies to grades outside the table.
const defaultDelay = 10 * time.Minute

var delays = map[Grade]time.Duration{
	Again: 30 * time.Second,
	Hard:  5 * time.Minute,
	Good:  25 * time.Minute,
	Easy:  12 * time.Hour,
}

var gains = map[Grade]int{
	Again: 5,
	Hard:  8,
	Good:  10,
	Easy:  15,
}

// ParseGrade converts a number or a button name into a Grade.
func ParseGrade(s string) (Grade, error) {
	switch s {
	case "0", "again":
		return Again, nil
	case "1", "hard":
		return Hard, nil
	case "2", "good":
		return Good, nil
	case "3", "easy":
		return Easy, nil
	}
	return 0, fmt.Errorf("invalid grade %q: want 0-3 or again|hard|good|easy", s)
}

// Valid reports whether g is one of the four flashcard grades.
func (g Grade) Valid() bool {
	return g >= Again && g <= Easy
}

func (g Grade) String() string {
	switch g {
	case Again:
		return "again"
	case Hard:
		return "hard"
	case Good:
		return "good"
	case Easy:
		return "easy"
	}
	return fmt.Sprintf("grade(%d)", int(g))
}

// NextDelay is the fixed wait before a word is due again.
func NextDelay(g Grade) time.Duration {
	if d, ok := delays[g]; ok {
		return d
	}
	return defaultDelay
}

// XPFor returns the experience awarded for grading a card. Invalid grades earn nothing.
func XPFor(g Grade) int {
	return gains[g]
}

// Requeue reports whether the card goes back to the end of the session queue.
func Requeue(g Grade) bool {
	return g <= Hard
}

// Level returns the 1-based level for an XP total and the XP earned inside it.
func Level(xp int) (level, progress int) {
	if xp < 0 {
		xp = 0
	}
	return xp/XPPerLevel + 1, xp % XPPerLevel
}
