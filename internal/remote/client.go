package remote

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
)

// APIError is an error response from the REST interface of the store.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
	Hint    string `json:"hint"`
}

func (e *APIError) Error() string {
	msg := strings.TrimSpace(e.Code + " " + e.Message)
	if msg == "" {
		msg = fmt.Sprintf("HTTP %d", e.Status)
	}
	return msg
}

// Client talks to the store's PostgREST interface (/rest/v1) with an
// access key, and optionally a signed-in user's access token.
type Client struct {
	baseURL    string
	key        string
	token      string
	httpClient *http.Client
}

var _ Store = (*Client)(nil)

// NewClient returns a client for baseURL using key. A nil httpClient uses a
// client with a 30 second timeout.
func NewClient(baseURL, key string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		key:        key,
		httpClient: httpClient,
	}
}

// WithToken returns a copy of the client that authenticates as the user
// owning token.
func (c *Client) WithToken(token string) *Client {
	cp := *c
	cp.token = token
	return &cp
}

// Configured reports whether both the URL and the key are set.
func (c *Client) Configured() bool {
	return c.baseURL != "" && c.key != ""
}

type request struct {
	method string
	path   string
	query  url.Values
	body   any
	prefer string
}

func (c *Client) do(ctx context.Context, r request, out any) error {
	u := c.baseURL + r.path
	if len(r.query) > 0 {
		u += "?" + r.query.Encode()
	}

	var body io.Reader
	if r.body != nil {
		b, err := json.Marshal(r.body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, u, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	c.authorize(req)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.prefer != "" {
		req.Header.Set("Prefer", r.prefer)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		b, _ := io.ReadAll(resp.Body)
		if err := json.Unmarshal(b, apiErr); err != nil && apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(b))
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *Client) authorize(req *http.Request) {
	bearer := c.key
	if c.token != "" {
		bearer = c.token
	}
	req.Header.Set("apikey", c.key)
	req.Header.Set("Authorization", "Bearer "+bearer)
}

func table(name string) string {
	return "/rest/v1/" + name
}

// likeEscape escapes the pattern characters of an ilike filter.
func likeEscape(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// ThemeLabels returns the theme column of every word.
func (c *Client) ThemeLabels(ctx context.Context) ([]string, error) {
	var rows []struct {
		Theme string `json:"theme"`
	}
	err := c.do(ctx, request{
		method: http.MethodGet,
		path:   table("words"),
		query:  url.Values{"select": {"theme"}},
	}, &rows)
	if err != nil {
		return nil, fmt.Errorf("failed to select themes: %w", err)
	}
	labels := make([]string, len(rows))
	for i, r := range rows {
		labels[i] = r.Theme
	}
	return labels, nil
}

// WordsByTheme returns the words whose theme equals theme ignoring case.
func (c *Client) WordsByTheme(ctx context.Context, theme string) ([]domain.Word, error) {
	var words []domain.Word
	err := c.do(ctx, request{
		method: http.MethodGet,
		path:   table("words"),
		query: url.Values{
			"select": {"*"},
			"theme":  {"ilike." + likeEscape(theme)},
		},
	}, &words)
	if err != nil {
		return nil, fmt.Errorf("failed to select words for theme %s: %w", theme, err)
	}
	return domain.WordsForTheme(words, theme), nil
}

// UpsertWords writes words, overwriting rows with the same id.
func (c *Client) UpsertWords(ctx context.Context, words []domain.Word) error {
	return c.do(ctx, request{
		method: http.MethodPost,
		path:   table("words"),
		query:  url.Values{"on_conflict": {"id"}},
		body:   words,
		prefer: "resolution=merge-duplicates,return=minimal",
	}, nil)
}

type progressRow struct {
	ID string   `json:"id"`
	XP *float64 `json:"xp"`
}

// Progress reads the xp stored for id.
func (c *Client) Progress(ctx context.Context, id string) (int, bool, error) {
	var rows []progressRow
	err := c.do(ctx, request{
		method: http.MethodGet,
		path:   table("progress"),
		query:  url.Values{"select": {"id,xp"}, "id": {"eq." + id}},
	}, &rows)
	if err != nil {
		return 0, false, fmt.Errorf("failed to read progress for %s: %w", id, err)
	}
	if len(rows) == 0 || rows[0].XP == nil {
		return 0, false, nil
	}
	return int(*rows[0].XP), true, nil
}

// UpsertProgress stores xp for id.
func (c *Client) UpsertProgress(ctx context.Context, id string, xp int) error {
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   table("progress"),
		query:  url.Values{"on_conflict": {"id"}},
		body:   map[string]any{"id": id, "xp": xp},
		prefer: "resolution=merge-duplicates,return=minimal",
	}, nil)
	if err != nil {
		return fmt.Errorf("failed to upsert progress for %s: %w", id, err)
	}
	return nil
}

// InsertReview appends a review event.
func (c *Client) InsertReview(ctx context.Context, review domain.ReviewLog) error {
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   table("reviews"),
		body: map[string]any{
			"user_id": review.UserID,
			"word_id": review.WordID,
			"grade":   review.Grade,
		},
		prefer: "return=minimal",
	}, nil)
	if err != nil {
		return fmt.Errorf("failed to insert review for %s: %w", review.WordID, err)
	}
	return nil
}

// Profile returns the profile for id, or nil when there is none.
func (c *Client) Profile(ctx context.Context, id string) (*domain.Profile, error) {
	var rows []domain.Profile
	err := c.do(ctx, request{
		method: http.MethodGet,
		path:   table("profiles"),
		query:  url.Values{"select": {"id,role"}, "id": {"eq." + id}},
	}, &rows)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile %s: %w", id, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// Weeks lists the distinct week labels in ascending order.
func (c *Client) Weeks(ctx context.Context) ([]string, error) {
	var rows []struct {
		Week string `json:"week"`
	}
	err := c.do(ctx, request{
		method: http.MethodGet,
		path:   table("school_items"),
		query:  url.Values{"select": {"week"}, "order": {"week"}},
	}, &rows)
	if err != nil {
		return nil, fmt.Errorf("failed to select weeks: %w", err)
	}
	weeks := make([]string, len(rows))
	for i, r := range rows {
		weeks[i] = r.Week
	}
	return uniqueWeeks(weeks), nil
}

// WeekItems returns the drill items of week ordered by kind and ordinal.
func (c *Client) WeekItems(ctx context.Context, week string) ([]domain.WeekItem, error) {
	var items []domain.WeekItem
	err := c.do(ctx, request{
		method: http.MethodGet,
		path:   table("school_items"),
		query: url.Values{
			"select": {"*"},
			"week":   {"eq." + week},
			"order":  {"kind,idx"},
		},
	}, &items)
	if err != nil {
		return nil, fmt.Errorf("failed to select items for week %s: %w", week, err)
	}
	return items, nil
}

// UpsertWeekItems writes items keyed on (week, kind, idx).
func (c *Client) UpsertWeekItems(ctx context.Context, items []domain.WeekItem) error {
	return c.do(ctx, request{
		method: http.MethodPost,
		path:   table("school_items"),
		query:  url.Values{"on_conflict": {"week,kind,idx"}},
		body:   items,
		prefer: "resolution=merge-duplicates,return=minimal",
	}, nil)
}
