package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/conorfennell/idiomas/internal/domain"
	"github.com/conorfennell/idiomas/internal/srs"
)

// Client calls the optional REST backend. An empty base URL disables it.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient returns a backend client. A nil httpClient uses a client with a
// 30 second timeout.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// Configured reports whether a base URL is set.
func (c *Client) Configured() bool {
	return c.baseURL != ""
}

// ReviewRequest is the body of POST /srs/review.
type ReviewRequest struct {
	WordID string `json:"word_id" binding:"required"`
	Grade  *int   `json:"grade" binding:"required,min=0,max=3"`
}

// ReviewResponse is the answer to POST /srs/review.
type ReviewResponse struct {
	WordID         string       `json:"word_id"`
	NextDueSeconds int          `json:"next_due_seconds"`
	NextWord       *domain.Word `json:"next_word,omitempty"`
}

// Themes calls GET /themes/.
func (c *Client) Themes(ctx context.Context) ([]domain.Theme, error) {
	var themes []domain.Theme
	if err := c.getJSON(ctx, "/themes/", &themes); err != nil {
		return nil, err
	}
	return themes, nil
}

// Words calls GET /themes/{theme}/words.
func (c *Client) Words(ctx context.Context, theme string) ([]domain.Word, error) {
	var words []domain.Word
	if err := c.getJSON(ctx, "/themes/"+url.PathEscape(theme)+"/words", &words); err != nil {
		return nil, err
	}
	return words, nil
}

// Review calls POST /srs/review.
func (c *Client) Review(ctx context.Context, wordID string, grade srs.Grade) (*ReviewResponse, error) {
	g := int(grade)
	body, err := json.Marshal(ReviewRequest{WordID: wordID, Grade: &g})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/srs/review", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	var out ReviewResponse
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	req.Header.Set("Accept", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("backend returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode backend response: %w", err)
	}
	return nil
}
