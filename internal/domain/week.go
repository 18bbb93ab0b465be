package domain

// Kind is the drill category of a week item.
type Kind string

const (
	KindPattern Kind = "pattern"
	KindReview  Kind = "review"
)

// WeekItem is one spelling drill entry. The natural key is (Week, Kind, Idx);
// Idx is 1-based and dense within a (Week, Kind) pair when produced by the
// week list parser.
type WeekItem struct {
	ID       string  `json:"id,omitempty"`
	Week     string  `json:"week" validate:"required"`
	Kind     Kind    `json:"kind" validate:"required,oneof=pattern review"`
	Idx      int     `json:"idx" validate:"min=1"`
	Word     string  `json:"word" validate:"required"`
	Sentence *string `json:"sentence"`
	Es       *string `json:"es"`
}
