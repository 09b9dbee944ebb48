package ratelimit

import (
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for rate limit tracking.
var (
	rateLimitRemaining = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "glmr_rate_limit_remaining",
		Help: "Requests remaining in the current GitLab rate limit window",
	})

	rateLimitLowTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "glmr_rate_limit_low_total",
		Help: "Total number of responses observed with a low remaining budget",
	})
)

// GitLab rate limit response headers.
const (
	headerLimit     = "RateLimit-Limit"
	headerRemaining = "RateLimit-Remaining"
	headerReset     = "RateLimit-Reset"
)

// Tracker records rate limit state from response headers.
type Tracker struct {
	mu     sync.Mutex
	state  State
	logger zerolog.Logger
}

// NewTracker creates a new rate limit tracker.
func NewTracker(logger zerolog.Logger) *Tracker {
	return &Tracker{logger: logger}
}

// State returns a copy of the current rate limit state.
func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// UpdateFromHeaders parses GitLab rate limit headers and updates the state.
// Responses without the headers are a no-op; GitLab omits them on some
// endpoints and self-hosted instances can disable them entirely.
func (t *Tracker) UpdateFromHeaders(headers http.Header) error {
	remainStr := headers.Get(headerRemaining)
	if remainStr == "" {
		return nil
	}

	remaining, err := strconv.Atoi(remainStr)
	if err != nil {
		return fmt.Errorf("parse %s header: %w", headerRemaining, err)
	}

	now := time.Now()
	state := State{
		Remaining:  remaining,
		LastUpdate: now,
	}

	if limitStr := headers.Get(headerLimit); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil {
			return fmt.Errorf("parse %s header: %w", headerLimit, err)
		}
		state.Limit = limit
	}

	if resetStr := headers.Get(headerReset); resetStr != "" {
		resetUnix, err := strconv.ParseInt(resetStr, 10, 64)
		if err != nil {
			return fmt.Errorf("parse %s header: %w", headerReset, err)
		}
		state.ResetAt = time.Unix(resetUnix, 0)
	}

	state.UpdateHealth()

	t.mu.Lock()
	t.state = state
	t.mu.Unlock()

	rateLimitRemaining.Set(float64(remaining))

	if state.IsLow() {
		rateLimitLowTotal.Inc()
		t.logger.Warn().
			Int("remaining", state.Remaining).
			Int("limit", state.Limit).
			Dur("until_reset", state.TimeUntilReset()).
			Msg("GitLab rate limit budget running low")
	}

	return nil
}
