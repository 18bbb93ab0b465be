package assetcache

import (
	"crypto/sha256"
	"fmt"
	"net/url"
	"strings"
)

// Normalize builds the request identity used for cache lookups: the upper-cased
// method and the absolute URL with a lower-cased scheme and host and no fragment.
func Normalize(method string, u *url.URL) string {
	c := *u
	c.Scheme = strings.ToLower(c.Scheme)
	c.Host = strings.ToLower(c.Host)
	c.Fragment = ""
	c.RawFragment = ""
	if c.Path == "" {
		c.Path = "/"
	}
	return strings.ToUpper(method) + " " + c.String()
}

// RequestKey returns the SHA-256 of the normalized request identity as a hex string.
func RequestKey(method string, u *url.URL) string {
	sum := sha256.Sum256([]byte(Normalize(method, u)))
	return fmt.Sprintf("%x", sum)
}
