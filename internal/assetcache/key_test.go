package assetcache

import (
	"net/url"
	"testing"
)

func mustParse(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("url.Parse(%q): %v", raw, err)
	}
	return u
}

func TestNormalize(t *testing.T) {
	u := mustParse(t, "HTTP://Example.COM/index.html#top")
	expected := "GET http://example.com/index.html"
	if got := Normalize("get", u); got != expected {
		t.Errorf("Expected normalized identity to be '%s', but got '%s'", expected, got)
	}
}

func TestRequestKey(t *testing.T) {
	t.Run("key is deterministic", func(t *testing.T) {
		a := RequestKey("GET", mustParse(t, "http://example.com/base_words.json"))
		b := RequestKey("GET", mustParse(t, "http://example.com/base_words.json"))
		if a != b {
			t.Error("Expected keys for identical requests to be the same")
		}
	})

	t.Run("normalization produces same key", func(t *testing.T) {
		a := RequestKey("GET", mustParse(t, "http://EXAMPLE.com"))
		b := RequestKey("get", mustParse(t, "http://example.com/"))
		if a != b {
			t.Error("Expected keys to be the same after normalization, but they were different.")
		}
	})

	t.Run("query string is part of the identity", func(t *testing.T) {
		a := RequestKey("GET", mustParse(t, "http://example.com/a?x=1"))
		b := RequestKey("GET", mustParse(t, "http://example.com/a?x=2"))
		if a == b {
			t.Error("Expected keys for different queries to be different")
		}
	})

	t.Run("method is part of the identity", func(t *testing.T) {
		u := mustParse(t, "http://example.com/a")
		if RequestKey("GET", u) == RequestKey("HEAD", u) {
			t.Error("Expected keys for different methods to be different")
		}
	})
}
