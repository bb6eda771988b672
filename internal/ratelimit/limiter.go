// Package ratelimit implements fixed-window counters for citizen submissions.
package ratelimit

import (
	"context"
	"fmt"
	"time"
)

// Action names
const (
	ActionReportCreate    = "report.create"
	ActionEmergencyCreate = "emergency.create"
)

type ActionConfig struct {
	Limit  int64
	Window time.Duration
}

// Counter is the storage behind a Limiter.
type Counter interface {
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)
	TTL(ctx context.Context, key string) (time.Duration, error)
}

type Limiter struct {
	store  Counter
	limits map[string]ActionConfig
}

type CheckResult struct {
	Allowed   bool  `json:"allowed"`
	Remaining int64 `json:"remaining"`
	ResetAt   int64 `json:"resetAt"`
	Limit     int64 `json:"limit"`
}

// DefaultLimits builds the per-citizen hourly submission limits.
func DefaultLimits(reportsPerHour, emergenciesPerHour int64) map[string]ActionConfig {
	return map[string]ActionConfig{
		ActionReportCreate:    {Limit: reportsPerHour, Window: time.Hour},
		ActionEmergencyCreate: {Limit: emergenciesPerHour, Window: time.Hour},
	}
}

func NewLimiter(store Counter, limits map[string]ActionConfig) *Limiter {
	return &Limiter{store: store, limits: limits}
}

// Limits returns the configured limit for each action.
func (l *Limiter) Limits() map[string]ActionConfig {
	out := make(map[string]ActionConfig, len(l.limits))
	for k, v := range l.limits {
		out[k] = v
	}
	return out
}

// Check counts one attempt of action by clientID and reports whether it is
// within the limit. Unknown actions are never limited.
func (l *Limiter) Check(ctx context.Context, clientID, action string) (*CheckResult, error) {
	config, ok := l.limits[action]
	if !ok || config.Limit <= 0 {
		return &CheckResult{Allowed: true, Remaining: -1}, nil
	}

	key := fmt.Sprintf("rate:%s:%s", clientID, action)

	count, err := l.store.Incr(ctx, key, config.Window)
	if err != nil {
		return nil, fmt.Errorf("failed to increment counter: %w", err)
	}

	ttl, err := l.store.TTL(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to get TTL: %w", err)
	}
	if ttl < 0 {
		ttl = config.Window
	}

	remaining := config.Limit - count
	if remaining < 0 {
		remaining = 0
	}

	return &CheckResult{
		Allowed:   count <= config.Limit,
		Remaining: remaining,
		ResetAt:   time.Now().Add(ttl).Unix(),
		Limit:     config.Limit,
	}, nil
}
