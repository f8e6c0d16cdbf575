package control

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/racecar/internal/timeutil"
)

func newDebouncer(t *testing.T, clock timeutil.Clock) *Debouncer {
	t.Helper()
	d, err := NewDebouncer(clock, true, 300*time.Millisecond)
	require.NoError(t, err)
	return d
}

func TestDebouncer_BriefDropoutSuppressed(t *testing.T) {
	clock := timeutil.NewMockClock(epoch)
	d := newDebouncer(t, clock)

	for i := 0; i < 2; i++ {
		assert.True(t, d.Update(false), "dropout at %d", i)
		clock.Advance(50 * time.Millisecond)
	}
	assert.True(t, d.Update(true))
	for i := 0; i < 5; i++ {
		clock.Advance(50 * time.Millisecond)
		assert.True(t, d.Update(false), "timer restarted by the baseline reading")
	}
}

func TestDebouncer_SustainedChangeConfirmed(t *testing.T) {
	clock := timeutil.NewMockClock(epoch)
	d := newDebouncer(t, clock)

	var flippedAt time.Duration = -1
	for elapsed := time.Duration(0); elapsed <= 350*time.Millisecond; elapsed += 25 * time.Millisecond {
		clock.Set(epoch.Add(elapsed))
		if !d.Update(false) && flippedAt < 0 {
			flippedAt = elapsed
		}
	}
	assert.Equal(t, 300*time.Millisecond, flippedAt)
}

func TestDebouncer_BaselineReportedImmediately(t *testing.T) {
	clock := timeutil.NewMockClock(epoch)
	d := newDebouncer(t, clock)

	clock.Advance(time.Second)
	require.False(t, d.Update(false))
	assert.True(t, d.Update(true))
	assert.True(t, d.Update(false), "new deviation starts a fresh window")
}

func TestDebouncer_FalseBaseline(t *testing.T) {
	clock := timeutil.NewMockClock(epoch)
	d, err := NewDebouncer(clock, false, 100*time.Millisecond)
	require.NoError(t, err)
	assert.False(t, d.Baseline())

	assert.False(t, d.Update(true))
	clock.Advance(100 * time.Millisecond)
	assert.True(t, d.Update(true))
}

func TestDebouncer_NegativeDuration(t *testing.T) {
	_, err := NewDebouncer(timeutil.NewMockClock(epoch), true, -time.Millisecond)
	assert.True(t, errors.Is(err, ErrInvalidConfig))
}
