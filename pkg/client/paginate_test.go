package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/glmr-tools/glmr/internal/testutil"
)

func TestPaginate_FollowsNextPageHeader(t *testing.T) {
	mock := testutil.NewMockGitLab()
	defer mock.Close()

	mock.SetPages("/groups/acme/projects",
		`[{"id":1},{"id":2}]`,
		`[{"id":3},{"id":4}]`,
		`[{"id":5}]`,
	)

	c, _ := New(fastTestConfig(mock.URL()))

	var ids []int
	err := c.Paginate(context.Background(), http.MethodGet, "/groups/acme/projects", nil, func(raw json.RawMessage) error {
		var item struct {
			ID int `json:"id"`
		}
		if err := json.Unmarshal(raw, &item); err != nil {
			return err
		}
		ids = append(ids, item.ID)
		return nil
	})
	if err != nil {
		t.Fatalf("Paginate() failed: %v", err)
	}

	expected := []int{1, 2, 3, 4, 5}
	if len(ids) != len(expected) {
		t.Fatalf("got %d items, want %d", len(ids), len(expected))
	}
	for i, id := range expected {
		if ids[i] != id {
			t.Errorf("ids[%d] = %d, want %d (ordering must follow pages)", i, ids[i], id)
		}
	}
	if count := mock.RequestCount("/groups/acme/projects"); count != 3 {
		t.Errorf("request count = %d, want 3", count)
	}
}

func TestPaginate_SeedsPerPage(t *testing.T) {
	mock := testutil.NewMockGitLab()
	defer mock.Close()

	var gotPerPage string
	mock.SetHandler("/projects", func(w http.ResponseWriter, r *http.Request) {
		gotPerPage = r.URL.Query().Get("per_page")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`[]`))
	})

	cfg := fastTestConfig(mock.URL())
	cfg.PerPage = 50
	c, _ := New(cfg)

	err := c.Paginate(context.Background(), http.MethodGet, "/projects", nil, func(json.RawMessage) error {
		return nil
	})
	if err != nil {
		t.Fatalf("Paginate() failed: %v", err)
	}
	if gotPerPage != "50" {
		t.Errorf("per_page = %q, want %q", gotPerPage, "50")
	}
}

func TestPaginate_CallbackErrorAborts(t *testing.T) {
	mock := testutil.NewMockGitLab()
	defer mock.Close()

	mock.SetPages("/projects",
		`[{"id":1},{"id":2}]`,
		`[{"id":3}]`,
	)

	c, _ := New(fastTestConfig(mock.URL()))

	sentinel := errors.New("stop here")
	seen := 0
	err := c.Paginate(context.Background(), http.MethodGet, "/projects", nil, func(json.RawMessage) error {
		seen++
		return sentinel
	})

	if !errors.Is(err, sentinel) {
		t.Errorf("expected callback error surfaced, got %v", err)
	}
	if seen != 1 {
		t.Errorf("seen = %d, want 1 (iteration aborts on callback error)", seen)
	}
	if count := mock.RequestCount("/projects"); count != 1 {
		t.Errorf("request count = %d, want 1 (second page never fetched)", count)
	}
}

func TestPageItems(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantItems int
		wantErr   bool
	}{
		{
			name:      "raw array",
			body:      `[{"id":1},{"id":2}]`,
			wantItems: 2,
		},
		{
			name:      "empty array",
			body:      `[]`,
			wantItems: 0,
		},
		{
			name:      "data envelope",
			body:      `{"data":[{"id":1}]}`,
			wantItems: 1,
		},
		{
			name:      "null data envelope",
			body:      `{"data":null}`,
			wantItems: 0,
		},
		{
			name:      "envelope without data field",
			body:      `{"message":"ok"}`,
			wantItems: 0,
		},
		{
			name:    "data field not an array",
			body:    `{"data":{"id":1}}`,
			wantErr: true,
		},
		{
			name:    "scalar payload",
			body:    `42`,
			wantErr: true,
		},
		{
			name:    "empty body",
			body:    ``,
			wantErr: true,
		},
		{
			name:    "html error page",
			body:    `<html>gateway</html>`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, err := pageItems(&Response{StatusCode: 200, Body: []byte(tt.body)})
			if tt.wantErr {
				if !errors.Is(err, ErrDecode) {
					t.Errorf("expected ErrDecode, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("pageItems() failed: %v", err)
			}
			if len(items) != tt.wantItems {
				t.Errorf("got %d items, want %d", len(items), tt.wantItems)
			}
		})
	}
}
