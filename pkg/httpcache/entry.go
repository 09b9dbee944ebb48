package httpcache

import (
	"net/http"
	"time"
)

// Entry represents a cached GitLab API response.
type Entry struct {
	// Body is the response body
	Body []byte `json:"body"`

	// ETag for conditional requests (If-None-Match)
	ETag string `json:"etag"`

	// StatusCode is the HTTP status code of the cached response
	StatusCode int `json:"status_code"`

	// Header holds the response headers
	Header http.Header `json:"header"`

	// CachedAt is when the response was cached
	CachedAt time.Time `json:"cached_at"`
}

// NewEntry builds a cache entry from the parts of a fully read response.
func NewEntry(statusCode int, header http.Header, body []byte) *Entry {
	return &Entry{
		Body:       body,
		ETag:       header.Get("ETag"),
		StatusCode: statusCode,
		Header:     header.Clone(),
		CachedAt:   time.Now(),
	}
}

// Age returns how long ago the entry was cached.
func (e *Entry) Age() time.Duration {
	return time.Since(e.CachedAt)
}
