package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"farmstand-realtime/pkg/log"
)

const (
	LimitSessionsTotal   = "max_sessions"
	LimitSessionsPerUser = "max_sessions_per_user"
	LimitSessionRate     = "session_rate_limit"
)

// RateLimitConfig holds realtime session limits. Zero disables a limit.
type RateLimitConfig struct {
	// MaxSessions caps concurrent sessions across all users.
	MaxSessions int
	// MaxSessionsPerUser caps concurrent sessions of one user.
	MaxSessionsPerUser int
	// SessionRateLimit is the number of new sessions a user may open per window.
	SessionRateLimit int
	RateLimitWindow  time.Duration
}

// DefaultRateLimitConfig returns default session limits.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		MaxSessions:        10000,
		MaxSessionsPerUser: 5,
		SessionRateLimit:   20,
		RateLimitWindow:    time.Minute,
	}
}

// RateLimitError represents a rate limit exceeded error
type RateLimitError struct {
	UserID  string
	Limit   string
	Current int
	Max     int
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded for user %s: %s (current: %d, max: %d)", e.UserID, e.Limit, e.Current, e.Max)
}

// IsRateLimitError checks if an error is a RateLimitError
func IsRateLimitError(err error) bool {
	var rle *RateLimitError
	return errors.As(err, &rle)
}

// SessionTracker counts open realtime sessions and recent session starts.
type SessionTracker struct {
	userSessions map[string]int
	total        int

	// Rate limiting: session start timestamps per user
	startTimestamps map[string][]time.Time

	mu     sync.Mutex
	config RateLimitConfig
	logger log.Logger
	clock  func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

// NewSessionTracker creates a tracker and starts its cleanup loop. Call Close
// to stop the loop.
func NewSessionTracker(config RateLimitConfig, logger log.Logger) *SessionTracker {
	st := &SessionTracker{
		userSessions:    make(map[string]int),
		startTimestamps: make(map[string][]time.Time),
		config:          config,
		logger:          logger,
		clock:           time.Now,
		stop:            make(chan struct{}),
	}

	if config.RateLimitWindow > 0 {
		go st.cleanupLoop()
	}

	return st
}

// CheckAndTrack checks every limit and, when all pass, counts a new session for userID.
func (st *SessionTracker) CheckAndTrack(ctx context.Context, userID string) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.config.MaxSessions > 0 && st.total >= st.config.MaxSessions {
		return &RateLimitError{UserID: userID, Limit: LimitSessionsTotal, Current: st.total, Max: st.config.MaxSessions}
	}

	current := st.userSessions[userID]
	if st.config.MaxSessionsPerUser > 0 && current >= st.config.MaxSessionsPerUser {
		return &RateLimitError{UserID: userID, Limit: LimitSessionsPerUser, Current: current, Max: st.config.MaxSessionsPerUser}
	}

	if err := st.checkRateLocked(userID); err != nil {
		st.logger.Warnf(ctx, "internal.auth.SessionTracker: session rate exceeded for user %s", userID)
		return err
	}

	st.userSessions[userID]++
	st.total++
	return nil
}

// checkRateLocked must be called with the lock held.
func (st *SessionTracker) checkRateLocked(userID string) error {
	if st.config.SessionRateLimit <= 0 || st.config.RateLimitWindow <= 0 {
		return nil
	}

	now := st.clock()
	valid := pruneBefore(st.startTimestamps[userID], now.Add(-st.config.RateLimitWindow))
	if len(valid) >= st.config.SessionRateLimit {
		st.startTimestamps[userID] = valid
		return &RateLimitError{UserID: userID, Limit: LimitSessionRate, Current: len(valid), Max: st.config.SessionRateLimit}
	}

	st.startTimestamps[userID] = append(valid, now)
	return nil
}

// Untrack removes one open session of userID.
func (st *SessionTracker) Untrack(userID string) {
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.userSessions[userID] == 0 {
		return
	}
	st.userSessions[userID]--
	st.total--
	if st.userSessions[userID] == 0 {
		delete(st.userSessions, userID)
	}
}

// UserSessionCount returns the open sessions of userID.
func (st *SessionTracker) UserSessionCount(userID string) int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.userSessions[userID]
}

// SessionTrackerStats holds session tracking statistics
type SessionTrackerStats struct {
	TotalUsers    int `json:"total_users"`
	TotalSessions int `json:"total_sessions"`
}

func (st *SessionTracker) Stats() SessionTrackerStats {
	st.mu.Lock()
	defer st.mu.Unlock()
	return SessionTrackerStats{
		TotalUsers:    len(st.userSessions),
		TotalSessions: st.total,
	}
}

// Close stops the cleanup loop.
func (st *SessionTracker) Close() {
	st.stopOnce.Do(func() { close(st.stop) })
}

func (st *SessionTracker) cleanupLoop() {
	ticker := time.NewTicker(st.config.RateLimitWindow)
	defer ticker.Stop()

	for {
		select {
		case <-st.stop:
			return
		case <-ticker.C:
			st.cleanupTimestamps()
		}
	}
}

func (st *SessionTracker) cleanupTimestamps() {
	st.mu.Lock()
	defer st.mu.Unlock()

	windowStart := st.clock().Add(-st.config.RateLimitWindow)
	for userID, timestamps := range st.startTimestamps {
		valid := pruneBefore(timestamps, windowStart)
		if len(valid) == 0 {
			delete(st.startTimestamps, userID)
		} else {
			st.startTimestamps[userID] = valid
		}
	}
}

func pruneBefore(timestamps []time.Time, windowStart time.Time) []time.Time {
	valid := make([]time.Time, 0, len(timestamps))
	for _, ts := range timestamps {
		if ts.After(windowStart) {
			valid = append(valid, ts)
		}
	}
	return valid
}
