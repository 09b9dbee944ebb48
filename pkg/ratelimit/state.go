// Package ratelimit tracks the GitLab rate limit headers observed on API
// responses. It is purely observational: the client's 429 handling decides
// when to sleep, the tracker surfaces how much budget remains.
package ratelimit

import (
	"time"
)

// Thresholds for rate limit warnings.
const (
	// RemainingThresholdLow triggers warn logging when the remaining request
	// budget falls below this value.
	RemainingThresholdLow = 50

	// RemainingThresholdHealthy indicates normal operation.
	RemainingThresholdHealthy = 200
)

// State represents the most recently observed GitLab rate limit window.
type State struct {
	// Limit is the total request budget for the current window.
	// Extracted from the RateLimit-Limit header.
	Limit int `json:"limit"`

	// Remaining is the number of requests left in the current window.
	// Extracted from the RateLimit-Remaining header.
	Remaining int `json:"remaining"`

	// ResetAt is the timestamp when the window resets.
	// Parsed from the RateLimit-Reset header (unix epoch seconds).
	ResetAt time.Time `json:"reset_at"`

	// LastUpdate is when this state was last refreshed from headers.
	LastUpdate time.Time `json:"last_update"`

	// IsHealthy indicates the remaining budget is comfortably above the
	// warning thresholds.
	IsHealthy bool `json:"is_healthy"`
}

// IsStale returns true if the state is older than the given duration.
func (s *State) IsStale(maxAge time.Duration) bool {
	return time.Since(s.LastUpdate) > maxAge
}

// IsLow returns true when the remaining budget is below the warning threshold.
func (s *State) IsLow() bool {
	return s.LastUpdate.IsZero() == false && s.Remaining < RemainingThresholdLow
}

// TimeUntilReset returns the duration until the window resets.
// Returns 0 if the reset time has already passed.
func (s *State) TimeUntilReset() time.Duration {
	duration := time.Until(s.ResetAt)
	if duration < 0 {
		return 0
	}
	return duration
}

// UpdateHealth updates the IsHealthy field based on the current Remaining value.
func (s *State) UpdateHealth() {
	s.IsHealthy = s.Remaining >= RemainingThresholdHealthy
}
