package httpcache

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// Key identifies a cached GitLab API response.
type Key struct {
	// Path is the API path (e.g. "/projects/42/merge_requests")
	Path string

	// Query holds the request query parameters
	Query url.Values
}

// String generates a deterministic cache key string.
// Format: glmr:path:query1=val1:query2=val2
//
// Example:
//
//	glmr:projects/42/merge_requests:per_page=100:state=all
func (k Key) String() string {
	parts := []string{"glmr"}

	path := strings.Trim(k.Path, "/")
	if path != "" {
		parts = append(parts, path)
	}

	// Query params sorted for determinism
	if len(k.Query) > 0 {
		queryKeys := make([]string, 0, len(k.Query))
		for key := range k.Query {
			queryKeys = append(queryKeys, key)
		}
		sort.Strings(queryKeys)

		for _, key := range queryKeys {
			parts = append(parts, fmt.Sprintf("%s=%s", key, k.Query.Get(key)))
		}
	}

	return strings.Join(parts, ":")
}
