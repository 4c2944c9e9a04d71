package lockout

import (
	"testing"
	"time"

	"github.com/dmitrijs2005/gophsignin/internal/timex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func TestPolicy_FailLocksAtThreshold(t *testing.T) {
	p := DefaultPolicy()

	attempts := 0
	var until *time.Time
	for i := 1; i < DefaultThreshold; i++ {
		attempts, until = p.Fail(attempts, t0)
		assert.Equal(t, i, attempts)
		assert.Nil(t, until, "attempt %d must not lock", i)
	}

	attempts, until = p.Fail(attempts, t0)
	assert.Equal(t, 5, attempts)
	require.NotNil(t, until)
	assert.Equal(t, t0.Add(15*time.Minute), *until)
}

func TestLockedExpiredRemaining(t *testing.T) {
	until := t0.Add(time.Minute)

	assert.False(t, Locked(nil, t0))
	assert.False(t, Expired(nil, t0))
	assert.Zero(t, Remaining(nil, t0))

	assert.True(t, Locked(&until, t0))
	assert.False(t, Expired(&until, t0))
	assert.Equal(t, time.Minute, Remaining(&until, t0))

	assert.False(t, Locked(&until, until), "the deadline itself is unlocked")
	assert.True(t, Expired(&until, until))
	assert.Zero(t, Remaining(&until, until.Add(time.Second)))
}

func TestTimer_FiresAtDeadline(t *testing.T) {
	clock := timex.NewFakeClock(t0)
	tm := NewTimer(clock)

	var fired []time.Time
	deadline := t0.Add(15 * time.Minute)
	tm.Schedule(deadline, func(d time.Time) { fired = append(fired, d) })

	got, ok := tm.Deadline()
	require.True(t, ok)
	assert.Equal(t, deadline, got)

	clock.Advance(15*time.Minute - time.Millisecond)
	assert.Empty(t, fired)

	clock.Advance(time.Millisecond)
	assert.Equal(t, []time.Time{deadline}, fired)
}

func TestTimer_RescheduleCancelsPrevious(t *testing.T) {
	clock := timex.NewFakeClock(t0)
	tm := NewTimer(clock)

	var fired []time.Time
	record := func(d time.Time) { fired = append(fired, d) }

	tm.Schedule(t0.Add(time.Minute), record)
	tm.Schedule(t0.Add(10*time.Minute), record)
	assert.Equal(t, 1, clock.Pending())

	clock.Advance(time.Hour)
	assert.Equal(t, []time.Time{t0.Add(10 * time.Minute)}, fired)
}

func TestTimer_Stop(t *testing.T) {
	clock := timex.NewFakeClock(t0)
	tm := NewTimer(clock)

	fired := false
	tm.Schedule(t0.Add(time.Minute), func(time.Time) { fired = true })
	tm.Stop()
	tm.Stop()

	_, ok := tm.Deadline()
	assert.False(t, ok)

	clock.Advance(time.Hour)
	assert.False(t, fired)
}

func TestTimer_PastDeadlineFiresImmediately(t *testing.T) {
	clock := timex.NewFakeClock(t0)
	tm := NewTimer(clock)

	fired := false
	tm.Schedule(t0.Add(-time.Minute), func(time.Time) { fired = true })
	clock.Advance(0)
	assert.True(t, fired)
}
