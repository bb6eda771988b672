package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"
)

type memoryCounter struct {
	counts map[string]int64
	fail   error
}

func (m *memoryCounter) Incr(_ context.Context, key string, _ time.Duration) (int64, error) {
	if m.fail != nil {
		return 0, m.fail
	}
	m.counts[key]++
	return m.counts[key], nil
}

func (m *memoryCounter) TTL(context.Context, string) (time.Duration, error) {
	return 30 * time.Minute, nil
}

func TestLimiterCheck(t *testing.T) {
	store := &memoryCounter{counts: map[string]int64{}}
	l := NewLimiter(store, DefaultLimits(2, 1))
	ctx := context.Background()

	for i, wantAllowed := range []bool{true, true, false} {
		res, err := l.Check(ctx, "7", ActionReportCreate)
		if err != nil {
			t.Fatalf("check %d: %v", i, err)
		}
		if res.Allowed != wantAllowed {
			t.Fatalf("check %d allowed=%v, want %v", i, res.Allowed, wantAllowed)
		}
		if res.Limit != 2 {
			t.Fatalf("limit = %d", res.Limit)
		}
	}
	if store.counts["rate:7:report.create"] != 3 {
		t.Fatalf("unexpected key layout: %v", store.counts)
	}

	res, err := l.Check(ctx, "8", ActionReportCreate)
	if err != nil || !res.Allowed || res.Remaining != 1 {
		t.Fatalf("clients are counted separately: %+v (%v)", res, err)
	}
	res, err = l.Check(ctx, "7", ActionEmergencyCreate)
	if err != nil || !res.Allowed || res.Remaining != 0 {
		t.Fatalf("actions are counted separately: %+v (%v)", res, err)
	}
}

func TestLimiterUnknownActionAndErrors(t *testing.T) {
	store := &memoryCounter{counts: map[string]int64{}, fail: errors.New("connection refused")}
	l := NewLimiter(store, DefaultLimits(1, 1))

	res, err := l.Check(context.Background(), "1", "profile.update")
	if err != nil || !res.Allowed {
		t.Fatalf("unknown actions are unlimited: %+v (%v)", res, err)
	}
	if _, err := l.Check(context.Background(), "1", ActionReportCreate); err == nil {
		t.Fatalf("storage failure should surface")
	}
	if got := len(l.Limits()); got != 2 {
		t.Fatalf("limits = %d", got)
	}
}
