package ratelimit

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

func TestCheckUnconfiguredActionAllowed(t *testing.T) {
	limiter := New(Bypass{})
	limiter.Clock = fixedClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	allowed, wait := limiter.Check("acct", "vote", Limits{})
	require.True(t, allowed)
	require.Equal(t, time.Duration(0), wait)
}

func TestCheckHourTier(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	limiter := New(Bypass{})
	limiter.Clock = fixedClock(now)

	limits := Limits{
		"vote": {PerHour: 1, PerDay: 2, PerWeek: 3},
	}

	allowed, wait := limiter.Check("acct", "vote", limits)
	require.True(t, allowed)
	require.Equal(t, time.Duration(0), wait)

	limiter.Record("acct", "vote")

	allowed, wait = limiter.Check("acct", "vote", limits)
	require.False(t, allowed)
	require.Equal(t, time.Hour, wait)
}

func TestCheckTierOrderDayBeforeWeek(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	limiter := New(Bypass{})

	// Two actions three hours ago: outside the hour window, inside the day.
	limiter.Clock = fixedClock(now.Add(-3 * time.Hour))
	limiter.Record("acct", "post")
	limiter.Record("acct", "post")

	limiter.Clock = fixedClock(now)
	allowed, wait := limiter.Check("acct", "post", Limits{
		"post": {PerHour: 5, PerDay: 2, PerWeek: 2},
	})
	require.False(t, allowed)
	require.Equal(t, 24*time.Hour, wait)
}

func TestCheckWindowExpiry(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	limiter := New(Bypass{})

	limiter.Clock = fixedClock(now.Add(-2 * time.Hour))
	limiter.Record("acct", "vote")

	limiter.Clock = fixedClock(now)
	allowed, _ := limiter.Check("acct", "vote", Limits{
		"vote": {PerHour: 1},
	})
	require.True(t, allowed)
}

func TestCheckJitterClampedToZero(t *testing.T) {
	limiter := New(Bypass{})
	limiter.Clock = fixedClock(time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC))
	limiter.Rand = rand.New(rand.NewSource(1))

	limits := Limits{
		// Jitter far wider than the tier can push the raw wait negative.
		"vote": {PerHour: 1, JitterSeconds: 100000},
	}

	limiter.Record("acct", "vote")

	for range 50 {
		allowed, wait := limiter.Check("acct", "vote", limits)
		require.False(t, allowed)
		require.GreaterOrEqual(t, wait, time.Duration(0))
	}
}

func TestBypassAll(t *testing.T) {
	limiter := New(Bypass{All: true})
	limiter.Clock = fixedClock(time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC))

	limits := Limits{"post": {PerHour: 1}}
	limiter.Record("acct", "post")
	limiter.Record("acct", "post")

	allowed, wait := limiter.Check("acct", "post", limits)
	require.True(t, allowed)
	require.Equal(t, time.Duration(0), wait)
}

func TestBypassEngagementOnly(t *testing.T) {
	limiter := New(Bypass{Engagement: true})
	limiter.Clock = fixedClock(time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC))

	limits := Limits{
		"vote": {PerHour: 1},
		"post": {PerHour: 1},
	}

	limiter.Record("acct", "vote")
	limiter.Record("acct", "post")

	allowed, _ := limiter.Check("acct", "vote", limits)
	require.True(t, allowed, "engagement action should bypass")

	allowed, _ = limiter.Check("acct", "post", limits)
	require.False(t, allowed, "non-engagement action stays limited")
}

func TestAccountsAreIndependent(t *testing.T) {
	limiter := New(Bypass{})
	limiter.Clock = fixedClock(time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC))

	limits := Limits{"vote": {PerHour: 1}}
	limiter.Record("alpha", "vote")

	allowed, _ := limiter.Check("beta", "vote", limits)
	require.True(t, allowed)
}

func TestRecordPrunesBeyondWeek(t *testing.T) {
	now := time.Date(2026, 1, 8, 12, 0, 0, 0, time.UTC)
	limiter := New(Bypass{})

	limiter.Clock = fixedClock(now.Add(-8 * 24 * time.Hour))
	limiter.Record("acct", "vote")

	limiter.Clock = fixedClock(now)
	limiter.Record("acct", "vote")

	require.Equal(t, 1, limiter.Pending("acct", "vote", weekWindow))
}

func TestCheckConcurrent(t *testing.T) {
	limiter := New(Bypass{})
	limits := Limits{"vote": {PerHour: 100}}

	done := make(chan struct{})
	for range 8 {
		go func() {
			defer func() { done <- struct{}{} }()
			for range 100 {
				limiter.Record("acct", "vote")
				limiter.Check("acct", "vote", limits)
			}
		}()
	}
	for range 8 {
		<-done
	}

	require.Equal(t, 800, limiter.Pending("acct", "vote", weekWindow))
}
