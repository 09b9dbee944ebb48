package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// GitLab cursor pagination headers and parameters.
const (
	nextPageHeader = "X-Next-Page"
	pageParam      = "page"
	perPageParam   = "per_page"
)

// Paginate drives Request across a paginated listing, yielding each raw
// element to fn in order. It seeds the page size, accepts either a raw JSON
// array body or an object with a nested "data" array, and follows the
// X-Next-Page response header until it is absent. An unexpected payload
// shape is a non-retryable decode error. The sequence is finite and not
// restartable; an error from fn aborts the iteration.
func (c *Client) Paginate(ctx context.Context, method, path string, query url.Values, fn func(json.RawMessage) error) error {
	params := url.Values{}
	for key, values := range query {
		params[key] = values
	}
	if params.Get(perPageParam) == "" {
		params.Set(perPageParam, strconv.Itoa(c.config.PerPage))
	}

	for {
		resp, err := c.Request(ctx, method, path, params)
		if err != nil {
			return err
		}

		items, err := pageItems(resp)
		if err != nil {
			return err
		}

		for _, item := range items {
			if err := fn(item); err != nil {
				return err
			}
		}

		nextPage := resp.Header.Get(nextPageHeader)
		if nextPage == "" {
			return nil
		}
		params.Set(pageParam, nextPage)
	}
}

// pageItems extracts the element list from a page body. GitLab listings are
// raw arrays; some bulk endpoints wrap the list in a "data" field.
func pageItems(resp *Response) ([]json.RawMessage, error) {
	body := bytes.TrimSpace(resp.Body)
	if len(body) == 0 {
		return nil, fmt.Errorf("%w: empty page body", ErrDecode)
	}

	switch body[0] {
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(body, &items); err != nil {
			return nil, fmt.Errorf("%w: invalid JSON array: %v", ErrDecode, err)
		}
		return items, nil

	case '{':
		var envelope struct {
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(body, &envelope); err != nil {
			return nil, fmt.Errorf("%w: invalid JSON object: %v", ErrDecode, err)
		}
		if len(envelope.Data) == 0 || string(envelope.Data) == "null" {
			return nil, nil
		}
		var items []json.RawMessage
		if err := json.Unmarshal(envelope.Data, &items); err != nil {
			return nil, fmt.Errorf("%w: data field is not an array: %v", ErrDecode, err)
		}
		return items, nil

	default:
		return nil, fmt.Errorf("%w: neither array nor object (status %d)", ErrDecode, resp.StatusCode)
	}
}

// Get is a convenience wrapper for single-resource GET requests.
func (c *Client) Get(ctx context.Context, path string, query url.Values) (*Response, error) {
	return c.Request(ctx, http.MethodGet, path, query)
}
