package bundle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"

	"github.com/go-playground/validator/v10"

	"github.com/conorfennell/idiomas/internal/domain"
)

// Loader reads the static vocabulary bundle.
type Loader interface {
	Load(ctx context.Context) ([]domain.Word, error)
}

var validate = validator.New()

// Decode parses a bundle and drops records missing a required field.
func Decode(r io.Reader) ([]domain.Word, error) {
	var raw []domain.Word
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode bundle: %w", err)
	}
	words := raw[:0]
	for i, w := range raw {
		if err := validate.Struct(w); err != nil {
			slog.Warn("Skipping invalid bundle record", "index", i, "id", w.ID, "error", err)
			continue
		}
		words = append(words, w)
	}
	return words, nil
}

// HTTPLoader fetches the bundle from a URL, normally through the asset cache
// worker so it stays available offline.
type HTTPLoader struct {
	Client *http.Client
	URL    string
}

func (l HTTPLoader) Load(ctx context.Context) ([]domain.Word, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.URL, nil)
	if err != nil {
		return nil, err
	}
	client := l.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch bundle: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch bundle: HTTP %d", resp.StatusCode)
	}
	return Decode(resp.Body)
}

// FSLoader reads the bundle from a file system, such as the embedded app shell.
type FSLoader struct {
	FS   fs.FS
	Name string
}

func (l FSLoader) Load(context.Context) ([]domain.Word, error) {
	f, err := l.FS.Open(l.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to open bundle %s: %w", l.Name, err)
	}
	defer f.Close()
	return Decode(f)
}

// FileLoader reads the bundle from a path on disk.
type FileLoader struct {
	Path string
}

func (l FileLoader) Load(context.Context) ([]domain.Word, error) {
	f, err := os.Open(l.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open bundle %s: %w", l.Path, err)
	}
	defer f.Close()
	return Decode(f)
}

// Chain tries each loader in order and returns the first bundle that loads.
type Chain []Loader

func (c Chain) Load(ctx context.Context) ([]domain.Word, error) {
	var errs []error
	for _, l := range c {
		words, err := l.Load(ctx)
		if err == nil {
			return words, nil
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return nil, errors.New("no bundle loaders")
	}
	return nil, errors.Join(errs...)
}
