package domain

import (
	"sort"

	"golang.org/x/text/cases"
)

// Word is a single vocabulary item. En is the target form and Es the native
// form; Image holds an illustrative glyph (usually an emoji) or an image URL.
type Word struct {
	ID      string  `json:"id" validate:"required"`
	Theme   string  `json:"theme" validate:"required"`
	En      string  `json:"en" validate:"required"`
	Es      string  `json:"es" validate:"required"`
	Image   *string `json:"image,omitempty"`
	Example *string `json:"example,omitempty"`
}

// Theme summarizes how many words belong to a theme.
type Theme struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// SameTheme reports whether two theme labels match ignoring case.
func SameTheme(a, b string) bool {
	fold := cases.Fold()
	return fold.String(a) == fold.String(b)
}

// CountThemes groups theme labels exactly as stored and returns the counts
// sorted by name.
func CountThemes(labels []string) []Theme {
	counts := make(map[string]int)
	for _, l := range labels {
		counts[l]++
	}
	themes := make([]Theme, 0, len(counts))
	for name, count := range counts {
		themes = append(themes, Theme{Name: name, Count: count})
	}
	sort.Slice(themes, func(i, j int) bool { return themes[i].Name < themes[j].Name })
	return themes
}

// GroupThemes counts words per theme.
func GroupThemes(words []Word) []Theme {
	labels := make([]string, len(words))
	for i, w := range words {
		labels[i] = w.Theme
	}
	return CountThemes(labels)
}

// WordsForTheme returns the words whose theme matches theme ignoring case.
// The returned words keep their stored theme label.
func WordsForTheme(words []Word, theme string) []Word {
	fold := cases.Fold()
	want := fold.String(theme)
	var out []Word
	for _, w := range words {
		if fold.String(w.Theme) == want {
			out = append(out, w)
		}
	}
	return out
}
