// Package ratelimit provides per-account, per-action sliding-window
// admission control for automation actions. State is process-local and
// never persisted.
package ratelimit

import (
	"math/rand"
	"strings"
	"sync"
	"time"
)

// Window tiers evaluated in order, narrowest first.
const (
	hourWindow = time.Hour
	dayWindow  = 24 * time.Hour
	weekWindow = 7 * 24 * time.Hour
)

// engagementActions are the low-risk action kinds covered by the
// engagement-only bypass.
var engagementActions = map[string]struct{}{
	"comment": {},
	"reply":   {},
	"vote":    {},
	"follow":  {},
	"save":    {},
	"message": {},
}

// ActionLimit caps one action across the three window tiers. A zero tier
// is unenforced.
type ActionLimit struct {
	PerHour       int `json:"per_hour,omitempty" yaml:"per_hour,omitempty" mapstructure:"per_hour"`
	PerDay        int `json:"per_day,omitempty" yaml:"per_day,omitempty" mapstructure:"per_day"`
	PerWeek       int `json:"per_week,omitempty" yaml:"per_week,omitempty" mapstructure:"per_week"`
	JitterSeconds int `json:"jitter_seconds,omitempty" yaml:"jitter_seconds,omitempty" mapstructure:"jitter_seconds"`
}

// Limits maps an action name to its configured caps. Actions absent from
// the map are unrestricted.
type Limits map[string]ActionLimit

// Bypass controls which actions skip rate limiting entirely. Resolved from
// configuration once at startup and passed by value.
type Bypass struct {
	All        bool `mapstructure:"all"`
	Engagement bool `mapstructure:"engagement"`
}

// Limiter tracks action timestamps per account and answers admission
// queries against a sliding window. Safe for concurrent use.
type Limiter struct {
	mu       sync.Mutex
	activity map[string]map[string][]time.Time

	Bypass Bypass
	Clock  func() time.Time
	Rand   *rand.Rand
}

// New returns a limiter with the given bypass configuration.
func New(bypass Bypass) *Limiter {
	return &Limiter{
		activity: make(map[string]map[string][]time.Time),
		Bypass:   bypass,
	}
}

// Record notes that an action happened now. Entries older than the widest
// window tier are pruned on every write so the activity log stays bounded
// over long runs.
func (l *Limiter) Record(account, action string) {
	if l == nil {
		return
	}

	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.activity == nil {
		l.activity = make(map[string]map[string][]time.Time)
	}
	actions := l.activity[account]
	if actions == nil {
		actions = make(map[string][]time.Time)
		l.activity[account] = actions
	}

	stamps := append(actions[action], now)
	actions[action] = pruneBefore(stamps, now.Add(-weekWindow))
}

// Check reports whether the action is currently admissible for the account
// and, when denied, how long the caller should wait. The wait carries the
// configured jitter and is clamped to zero.
//
// Bypass flags are evaluated before any counting; an action missing from
// limits is always allowed. Check never fails.
func (l *Limiter) Check(account, action string, limits Limits) (bool, time.Duration) {
	if l == nil {
		return true, 0
	}

	if l.Bypass.All {
		return true, 0
	}
	if l.Bypass.Engagement {
		if _, ok := engagementActions[strings.ToLower(action)]; ok {
			return true, 0
		}
	}

	limit, ok := limits[action]
	if !ok {
		return true, 0
	}

	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	stamps := l.stamps(account, action)

	tiers := []struct {
		window time.Duration
		cap    int
	}{
		{hourWindow, limit.PerHour},
		{dayWindow, limit.PerDay},
		{weekWindow, limit.PerWeek},
	}

	for _, tier := range tiers {
		if tier.cap <= 0 {
			continue
		}
		if countSince(stamps, now.Add(-tier.window)) >= tier.cap {
			return false, l.jittered(tier.window, limit.JitterSeconds)
		}
	}

	return true, 0
}

// Pending returns the number of recorded actions inside the given window.
func (l *Limiter) Pending(account, action string, window time.Duration) int {
	if l == nil {
		return 0
	}

	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	return countSince(l.stamps(account, action), now.Add(-window))
}

func (l *Limiter) stamps(account, action string) []time.Time {
	actions := l.activity[account]
	if actions == nil {
		return nil
	}
	return actions[action]
}

func (l *Limiter) jittered(window time.Duration, jitterSeconds int) time.Duration {
	wait := window
	if jitterSeconds > 0 {
		span := 2*jitterSeconds + 1
		offset := l.intn(span) - jitterSeconds
		wait += time.Duration(offset) * time.Second
	}
	if wait < 0 {
		wait = 0
	}
	return wait
}

func (l *Limiter) intn(n int) int {
	if l.Rand != nil {
		return l.Rand.Intn(n)
	}
	return rand.Intn(n)
}

func (l *Limiter) now() time.Time {
	if l != nil && l.Clock != nil {
		return l.Clock()
	}
	return time.Now().UTC()
}

func pruneBefore(stamps []time.Time, cutoff time.Time) []time.Time {
	idx := 0
	for idx < len(stamps) && stamps[idx].Before(cutoff) {
		idx++
	}
	if idx == 0 {
		return stamps
	}
	kept := make([]time.Time, len(stamps)-idx)
	copy(kept, stamps[idx:])
	return kept
}

func countSince(stamps []time.Time, cutoff time.Time) int {
	count := 0
	for _, ts := range stamps {
		if !ts.Before(cutoff) {
			count++
		}
	}
	return count
}
