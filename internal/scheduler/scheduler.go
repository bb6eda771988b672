package scheduler

import (
	"context"
	"log"
	"sync"
	"time"
)

// Purger deletes notifications that expired at or before cutoff.
type Purger interface {
	PurgeExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

// NotificationSweeper periodically removes expired notifications.
type NotificationSweeper struct {
	purger   Purger
	interval time.Duration
	now      func() time.Time

	mu          sync.Mutex
	running     bool
	stopChan    chan struct{}
	lastRun     time.Time
	lastPurged  int64
	totalPurged int64
	runs        int64
	lastError   string

	// OnSweep, when set, observes every sweep.
	OnSweep func(purged int64, err error)
}

func NewNotificationSweeper(purger Purger, interval time.Duration) *NotificationSweeper {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &NotificationSweeper{
		purger:   purger,
		interval: interval,
		now:      time.Now,
		stopChan: make(chan struct{}),
	}
}

// Start sweeps once immediately and then every interval until ctx is done
// or Stop is called. It blocks; run it in its own goroutine.
func (s *NotificationSweeper) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	stop := s.stopChan
	s.mu.Unlock()

	log.Printf("[Sweeper] Starting with interval %v", s.interval)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.RunOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			log.Println("[Sweeper] Context cancelled, stopping")
			s.mu.Lock()
			s.running = false
			s.mu.Unlock()
			return
		case <-stop:
			log.Println("[Sweeper] Stop signal received")
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

func (s *NotificationSweeper) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		close(s.stopChan)
		s.stopChan = make(chan struct{})
		s.running = false
		log.Println("[Sweeper] Stopped")
	}
}

// RunOnce performs a single sweep and returns the number of purged rows.
func (s *NotificationSweeper) RunOnce(ctx context.Context) (int64, error) {
	started := s.now()
	purged, err := s.purger.PurgeExpired(ctx, started)

	s.mu.Lock()
	s.lastRun = started
	s.runs++
	if err != nil {
		s.lastError = err.Error()
	} else {
		s.lastError = ""
		s.lastPurged = purged
		s.totalPurged += purged
	}
	s.mu.Unlock()

	if err != nil {
		log.Printf("[Sweeper] Purge failed: %v", err)
	} else if purged > 0 {
		log.Printf("[Sweeper] Purged %d expired notifications", purged)
	}
	if s.OnSweep != nil {
		s.OnSweep(purged, err)
	}
	return purged, err
}

// GetStatus returns current sweeper status
func (s *NotificationSweeper) GetStatus() map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := map[string]interface{}{
		"running":         s.running,
		"intervalSeconds": int(s.interval.Seconds()),
		"runs":            s.runs,
		"lastPurged":      s.lastPurged,
		"totalPurged":     s.totalPurged,
	}
	if !s.lastRun.IsZero() {
		status["lastRun"] = s.lastRun.Format(time.RFC3339)
	}
	if s.lastError != "" {
		status["lastError"] = s.lastError
	}
	return status
}
