package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// Stage names the step a connectivity diagnostic stopped at.
type Stage string

const (
	StageConfig Stage = "config"
	StageHealth Stage = "health"
	StageREST   Stage = "rest"
)

// Diagnostic is an operator-facing connectivity report. It never gates
// functionality.
type Diagnostic struct {
	Configured bool   `json:"configured"`
	OK         bool   `json:"ok"`
	Stage      Stage  `json:"stage,omitempty"`
	Code       int    `json:"code,omitempty"`
	Message    string `json:"message"`
}

func (c *Client) get(ctx context.Context, path string, prefer string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	c.authorize(req)
	if prefer != "" {
		req.Header.Set("Prefer", prefer)
	}
	return c.httpClient.Do(req)
}

// CheckConnection reports whether the auth health endpoint answers OK.
func (c *Client) CheckConnection(ctx context.Context) bool {
	if !c.Configured() {
		return false
	}
	resp, err := c.get(ctx, "/auth/v1/health", "")
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return false
	}
	var body struct {
		Status  string `json:"status"`
		Success bool   `json:"success"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return false
	}
	return strings.EqualFold(body.Status, "OK") || body.Success
}

// Diagnose checks configuration, the auth health endpoint and read access
// to the progress table, in that order. A network error at either request is
// reported at the rest stage.
func (c *Client) Diagnose(ctx context.Context) Diagnostic {
	switch {
	case c.baseURL == "" && c.key == "":
		return Diagnostic{Stage: StageConfig, Message: "remote url and key are not set"}
	case c.baseURL == "":
		return Diagnostic{Stage: StageConfig, Message: "remote url is not set"}
	case c.key == "":
		return Diagnostic{Stage: StageConfig, Message: "remote key is not set"}
	}

	h, err := c.get(ctx, "/auth/v1/health", "")
	if err != nil {
		return Diagnostic{Configured: true, Stage: StageREST, Message: fmt.Sprintf("network error: %v", err)}
	}
	h.Body.Close()
	if h.StatusCode < 200 || h.StatusCode > 299 {
		return Diagnostic{Configured: true, Stage: StageHealth, Code: h.StatusCode, Message: fmt.Sprintf("health check failed with HTTP %d", h.StatusCode)}
	}

	r, err := c.get(ctx, table("progress")+"?select=count", "count=exact")
	if err != nil {
		return Diagnostic{Configured: true, Stage: StageREST, Message: fmt.Sprintf("network error: %v", err)}
	}
	r.Body.Close()

	d := Diagnostic{Configured: true, Stage: StageREST, Code: r.StatusCode}
	switch {
	case r.StatusCode >= 200 && r.StatusCode <= 299:
		d.OK = true
		d.Code = http.StatusOK
		d.Message = "connected"
	case r.StatusCode == http.StatusNotFound:
		d.Message = "progress table does not exist"
	case r.StatusCode == http.StatusUnauthorized || r.StatusCode == http.StatusForbidden:
		d.Message = "row level security or key does not allow select"
	default:
		d.Message = fmt.Sprintf("REST returned HTTP %d", r.StatusCode)
	}
	return d
}
