package parser

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/conorfennell/idiomas/internal/domain"
)

const (
	headingPrefix  = "# "
	fieldSeparator = "|"
)

var (
	patternHeading = regexp.MustCompile(`(?i)\*\*?\s*pattern`)
	reviewHeading  = regexp.MustCompile(`(?i)\*\*?\s*review`)
	numbering      = regexp.MustCompile(`^\d+\.?\s*(.*)$`)
)

// ParseFile reads a week list from path. The week label is the file's first
// "# " heading, or the file name without its extension when there is none.
func ParseFile(path string) (string, []domain.WeekItem, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", nil, err
	}
	defer file.Close()

	heading, items, err := parse(file)
	if err != nil {
		return "", nil, err
	}
	week := heading
	if week == "" {
		week = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	for i := range items {
		items[i].Week = week
	}
	return week, items, nil
}

// Parse reads a week list for week. Each line is "word", "word | sentence" or
// "word | sentence | es". Lines under a **Pattern** or **Review** heading
// belong to that category and are numbered from 1; lines before any heading
// are pattern items.
func Parse(r io.Reader, week string) ([]domain.WeekItem, error) {
	_, items, err := parse(r)
	if err != nil {
		return nil, err
	}
	for i := range items {
		items[i].Week = week
	}
	return items, nil
}

func parse(r io.Reader) (string, []domain.WeekItem, error) {
	scanner := bufio.NewScanner(r)
	var heading string
	var items []domain.WeekItem
	kind := domain.KindPattern
	idx := 1

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if patternHeading.MatchString(line) {
			kind, idx = domain.KindPattern, 1
			continue
		}
		if reviewHeading.MatchString(line) {
			kind, idx = domain.KindReview, 1
			continue
		}
		if strings.HasPrefix(line, headingPrefix) {
			if heading == "" {
				heading = strings.TrimSpace(line[len(headingPrefix):])
			}
			continue
		}

		body := line
		if m := numbering.FindStringSubmatch(line); m != nil {
			body = m[1]
		}
		fields := strings.Split(body, fieldSeparator)
		word := strings.TrimSpace(fields[0])
		if word == "" {
			continue
		}
		items = append(items, domain.WeekItem{
			Kind:     kind,
			Idx:      idx,
			Word:     word,
			Sentence: field(fields, 1),
			Es:       field(fields, 2),
		})
		idx++
	}

	if err := scanner.Err(); err != nil {
		return "", nil, err
	}
	return heading, items, nil
}

// field returns the trimmed i-th field, or nil when it is missing or blank.
func field(fields []string, i int) *string {
	if i >= len(fields) {
		return nil
	}
	v := strings.TrimSpace(fields[i])
	if v == "" {
		return nil
	}
	return &v
}
