package ratelimit

import (
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestTracker_UpdateFromHeaders(t *testing.T) {
	tracker := NewTracker(zerolog.Nop())

	reset := time.Now().Add(time.Minute).Unix()
	headers := http.Header{}
	headers.Set("RateLimit-Limit", "600")
	headers.Set("RateLimit-Remaining", "387")
	headers.Set("RateLimit-Reset", strconv.FormatInt(reset, 10))

	if err := tracker.UpdateFromHeaders(headers); err != nil {
		t.Fatalf("UpdateFromHeaders() failed: %v", err)
	}

	state := tracker.State()
	if state.Limit != 600 {
		t.Errorf("Limit = %d, want 600", state.Limit)
	}
	if state.Remaining != 387 {
		t.Errorf("Remaining = %d, want 387", state.Remaining)
	}
	if state.ResetAt.Unix() != reset {
		t.Errorf("ResetAt = %v, want unix %d", state.ResetAt, reset)
	}
	if state.LastUpdate.IsZero() {
		t.Error("LastUpdate should be set")
	}
	if !state.IsHealthy {
		t.Error("387 remaining should be healthy")
	}
}

func TestTracker_MissingHeadersAreNoOp(t *testing.T) {
	tracker := NewTracker(zerolog.Nop())

	if err := tracker.UpdateFromHeaders(http.Header{}); err != nil {
		t.Fatalf("UpdateFromHeaders() failed: %v", err)
	}

	state := tracker.State()
	if !state.LastUpdate.IsZero() {
		t.Error("state should remain untouched without rate limit headers")
	}
}

func TestTracker_PartialHeaders(t *testing.T) {
	tracker := NewTracker(zerolog.Nop())

	headers := http.Header{}
	headers.Set("RateLimit-Remaining", "10")

	if err := tracker.UpdateFromHeaders(headers); err != nil {
		t.Fatalf("UpdateFromHeaders() failed: %v", err)
	}

	state := tracker.State()
	if state.Remaining != 10 {
		t.Errorf("Remaining = %d, want 10", state.Remaining)
	}
	if state.Limit != 0 {
		t.Errorf("Limit = %d, want 0 when header absent", state.Limit)
	}
	if !state.IsLow() {
		t.Error("10 remaining should report low")
	}
}

func TestTracker_InvalidHeaders(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
	}{
		{
			name:    "invalid remaining",
			headers: map[string]string{"RateLimit-Remaining": "lots"},
		},
		{
			name: "invalid limit",
			headers: map[string]string{
				"RateLimit-Remaining": "100",
				"RateLimit-Limit":     "many",
			},
		},
		{
			name: "invalid reset",
			headers: map[string]string{
				"RateLimit-Remaining": "100",
				"RateLimit-Reset":     "tomorrow",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracker := NewTracker(zerolog.Nop())
			headers := http.Header{}
			for key, value := range tt.headers {
				headers.Set(key, value)
			}
			if err := tracker.UpdateFromHeaders(headers); err == nil {
				t.Error("expected parse error")
			}
		})
	}
}
