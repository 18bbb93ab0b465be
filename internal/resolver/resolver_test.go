package resolver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/conorfennell/idiomas/internal/backend"
	"github.com/conorfennell/idiomas/internal/domain"
	"github.com/conorfennell/idiomas/internal/remote"
	"github.com/conorfennell/idiomas/internal/srs"
)

// fakeRemote is a configured remote store backed by slices.
type fakeRemote struct {
	remote.Disabled
	words []domain.Word
	items []domain.WeekItem
	err   error
}

func (f *fakeRemote) Configured() bool { return true }

func (f *fakeRemote) ThemeLabels(context.Context) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	labels := make([]string, len(f.words))
	for i, w := range f.words {
		labels[i] = w.Theme
	}
	return labels, nil
}

func (f *fakeRemote) WordsByTheme(_ context.Context, theme string) ([]domain.Word, error) {
	if f.err != nil {
		return nil, f.err
	}
	return domain.WordsForTheme(f.words, theme), nil
}

func (f *fakeRemote) Weeks(context.Context) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	var weeks []string
	for _, it := range f.items {
		weeks = append(weeks, it.Week)
	}
	return weeks, nil
}

func (f *fakeRemote) WeekItems(_ context.Context, week string) ([]domain.WeekItem, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []domain.WeekItem
	for _, it := range f.items {
		if it.Week == week {
			out = append(out, it)
		}
	}
	return out, nil
}

type staticLoader []domain.Word

func (l staticLoader) Load(context.Context) ([]domain.Word, error) { return l, nil }

var bundleWords = staticLoader{
	{ID: "b1", Theme: "animals", En: "dog", Es: "perro"},
	{ID: "b2", Theme: "animals", En: "cat", Es: "gato"},
	{ID: "b3", Theme: "food", En: "bread", Es: "pan"},
}

func newBackend(t *testing.T, themes []domain.Theme, reviews *int) *backend.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/themes/":
			json.NewEncoder(w).Encode(themes)
		case "/srs/review":
			if reviews != nil {
				*reviews++
			}
			json.NewEncoder(w).Encode(backend.ReviewResponse{WordID: "b1", NextDueSeconds: 30})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return backend.NewClient(srv.URL, srv.Client())
}

func TestThemesTierOrder(t *testing.T) {
	ctx := context.Background()
	animals := []domain.Theme{{Name: "animals", Count: 7}}

	testCases := []struct {
		name     string
		remote   remote.Store
		backend  *backend.Client
		expected []domain.Theme
	}{
		{
			name:     "remote wins",
			remote:   &fakeRemote{words: []domain.Word{{ID: "r1", Theme: "verbs"}}},
			backend:  newBackend(t, animals, nil),
			expected: []domain.Theme{{Name: "verbs", Count: 1}},
		},
		{
			name:     "remote error falls to backend",
			remote:   &fakeRemote{err: errors.New("boom")},
			backend:  newBackend(t, animals, nil),
			expected: animals,
		},
		{
			name:     "empty remote falls to backend",
			remote:   &fakeRemote{},
			backend:  newBackend(t, animals, nil),
			expected: animals,
		},
		{
			name:     "empty backend falls to bundle",
			remote:   remote.Disabled{},
			backend:  newBackend(t, []domain.Theme{}, nil),
			expected: []domain.Theme{{Name: "animals", Count: 2}, {Name: "food", Count: 1}},
		},
		{
			name:     "nothing configured uses bundle",
			remote:   remote.Disabled{},
			backend:  backend.NewClient("", nil),
			expected: []domain.Theme{{Name: "animals", Count: 2}, {Name: "food", Count: 1}},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r := New(tc.remote, tc.backend, nil,
				RemoteSource{Store: tc.remote},
				BackendSource{Client: tc.backend},
				BundleSource{Loader: bundleWords},
			)
			got := r.Themes(ctx)
			if len(got) != len(tc.expected) {
				t.Fatalf("Expected %d themes, but got %d (%+v)", len(tc.expected), len(got), got)
			}
			for i := range got {
				if got[i] != tc.expected[i] {
					t.Errorf("Expected theme %+v, but got %+v", tc.expected[i], got[i])
				}
			}
		})
	}
}

func TestThemesNoDoubleCounting(t *testing.T) {
	store := &fakeRemote{words: []domain.Word{
		{ID: "1", Theme: "animals"},
		{ID: "2", Theme: "animals"},
		{ID: "3", Theme: "food"},
	}}
	r := New(store, nil, nil, RemoteSource{Store: store}, BundleSource{Loader: bundleWords})

	total := 0
	for _, th := range r.Themes(context.Background()) {
		total += th.Count
	}
	if total != 3 {
		t.Errorf("Expected counts to sum to 3 remote rows, but got %d", total)
	}
}

func TestWordsCaseInsensitive(t *testing.T) {
	r := New(nil, nil, nil, BundleSource{Loader: bundleWords})

	words := r.Words(context.Background(), "Animals")
	if len(words) != 2 {
		t.Fatalf("Expected 2 words for Animals, but got %d", len(words))
	}
	for _, w := range words {
		if w.Theme != "animals" {
			t.Errorf("Expected stored theme label animals, but got %q", w.Theme)
		}
	}
}

func TestWordsUnknownThemeIsEmpty(t *testing.T) {
	r := New(nil, nil, nil, BundleSource{Loader: bundleWords})

	words := r.Words(context.Background(), "planets")
	if words == nil || len(words) != 0 {
		t.Errorf("Expected an empty non-nil slice, but got %#v", words)
	}
}

func TestWeekItems(t *testing.T) {
	ctx := context.Background()
	sentence := "I go to school."
	store := &fakeRemote{items: []domain.WeekItem{
		{Week: "Week 1", Kind: domain.KindPattern, Idx: 1, Word: "go", Sentence: &sentence},
		{Week: "Week 1", Kind: domain.KindReview, Idx: 1, Word: "school"},
		{Week: "Week 2", Kind: domain.KindPattern, Idx: 1, Word: "eat"},
	}}

	t.Run("unconfigured is empty", func(t *testing.T) {
		r := New(nil, nil, nil, BundleSource{Loader: bundleWords})
		if items := r.WeekItems(ctx, "Week 1"); len(items) != 0 {
			t.Errorf("Expected no week items, but got %d", len(items))
		}
		if weeks := r.Weeks(ctx); len(weeks) != 0 {
			t.Errorf("Expected no weeks, but got %v", weeks)
		}
	})

	t.Run("remote failure is empty", func(t *testing.T) {
		r := New(&fakeRemote{err: errors.New("down")}, nil, nil)
		if items := r.WeekItems(ctx, "Week 1"); len(items) != 0 {
			t.Errorf("Expected no week items, but got %d", len(items))
		}
	})

	t.Run("configured", func(t *testing.T) {
		r := New(store, nil, nil)
		items := r.WeekItems(ctx, "Week 1")
		if len(items) != 2 {
			t.Fatalf("Expected 2 items, but got %d", len(items))
		}
		if items[0].Sentence == nil || *items[0].Sentence != sentence {
			t.Errorf("Expected sentence %q, but got %v", sentence, items[0].Sentence)
		}
	})
}

func TestSubmitReview(t *testing.T) {
	var reviews int
	r := New(nil, newBackend(t, nil, &reviews), nil)
	r.SubmitReview(context.Background(), "b1", srs.Good)
	if reviews != 1 {
		t.Errorf("Expected 1 review posted, but got %d", reviews)
	}

	// No backend configured: nothing happens.
	New(nil, nil, nil).SubmitReview(context.Background(), "b1", srs.Good)
}
