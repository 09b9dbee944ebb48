package ratelimit

import (
	"testing"
	"time"
)

func TestState_IsStale(t *testing.T) {
	tests := []struct {
		name     string
		age      time.Duration
		maxAge   time.Duration
		expected bool
	}{
		{
			name:     "fresh state",
			age:      time.Second,
			maxAge:   time.Minute,
			expected: false,
		},
		{
			name:     "stale state",
			age:      2 * time.Minute,
			maxAge:   time.Minute,
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := State{LastUpdate: time.Now().Add(-tt.age)}
			if got := state.IsStale(tt.maxAge); got != tt.expected {
				t.Errorf("IsStale(%v) = %v, want %v", tt.maxAge, got, tt.expected)
			}
		})
	}
}

func TestState_IsLow(t *testing.T) {
	tests := []struct {
		name     string
		state    State
		expected bool
	}{
		{
			name:     "never updated state is not low",
			state:    State{Remaining: 0},
			expected: false,
		},
		{
			name:     "below threshold",
			state:    State{Remaining: RemainingThresholdLow - 1, LastUpdate: time.Now()},
			expected: true,
		},
		{
			name:     "at threshold",
			state:    State{Remaining: RemainingThresholdLow, LastUpdate: time.Now()},
			expected: false,
		},
		{
			name:     "plenty of budget",
			state:    State{Remaining: 500, LastUpdate: time.Now()},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.state.IsLow(); got != tt.expected {
				t.Errorf("IsLow() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestState_TimeUntilReset(t *testing.T) {
	future := State{ResetAt: time.Now().Add(30 * time.Second)}
	if d := future.TimeUntilReset(); d <= 0 || d > 30*time.Second {
		t.Errorf("TimeUntilReset() = %v, want within (0, 30s]", d)
	}

	past := State{ResetAt: time.Now().Add(-time.Minute)}
	if d := past.TimeUntilReset(); d != 0 {
		t.Errorf("TimeUntilReset() = %v, want 0 for past reset", d)
	}
}

func TestState_UpdateHealth(t *testing.T) {
	state := State{Remaining: RemainingThresholdHealthy}
	state.UpdateHealth()
	if !state.IsHealthy {
		t.Error("state at healthy threshold should be healthy")
	}

	state.Remaining = RemainingThresholdHealthy - 1
	state.UpdateHealth()
	if state.IsHealthy {
		t.Error("state below healthy threshold should not be healthy")
	}
}
