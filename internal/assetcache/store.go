package assetcache

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Entry is a stored response keyed by request identity.
type Entry struct {
	Key      string
	Method   string
	URL      string
	Status   int
	Header   http.Header
	Body     []byte
	StoredAt time.Time
}

// Response rebuilds the stored response for req.
func (e *Entry) Response(req *http.Request) *http.Response {
	return &http.Response{
		Status:        fmt.Sprintf("%d %s", e.Status, http.StatusText(e.Status)),
		StatusCode:    e.Status,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        e.Header.Clone(),
		Body:          io.NopCloser(bytes.NewReader(e.Body)),
		ContentLength: int64(len(e.Body)),
		Request:       req,
	}
}

// Store persists cache generations. Get returns nil, nil when the key is absent.
type Store interface {
	Get(ctx context.Context, generation, key string) (*Entry, error)
	Put(ctx context.Context, generation string, entry Entry) error
	// PutAll writes every entry or none of them.
	PutAll(ctx context.Context, generation string, entries []Entry) error
	Generations(ctx context.Context) ([]string, error)
	DeleteGeneration(ctx context.Context, generation string) error
}
