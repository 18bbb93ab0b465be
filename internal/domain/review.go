package domain

import "time"

// PlaceholderIdentity is the progress key used when no user is signed in.
const PlaceholderIdentity = "local-user"

// ReviewLog records a single graded review of a word.
// Grade follows the flashcard buttons:
// 0: Again
// 1: Hard
// 2: Good
// 3: Easy
type ReviewLog struct {
	ID        string
	UserID    string
	WordID    string
	Grade     int
	CreatedAt time.Time
}

// Profile is the role record kept for a signed-in user.
type Profile struct {
	ID   string `json:"id"`
	Role string `json:"role"`
}

// IsAdmin reports whether the profile may run authoring tools.
func (p *Profile) IsAdmin() bool {
	return p != nil && p.Role == "admin"
}
