package scheduler_test

import (
	"sync/atomic"
	"testing"
	"time"

	"codeberg.org/halvard/sysmond/internal/scheduler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartRunsWorkImmediately(t *testing.T) {
	s := scheduler.New()
	ran := make(chan struct{}, 1)

	ok := s.Start("immediate", func() {
		select {
		case ran <- struct{}{}:
		default:
		}
	}, time.Hour)
	require.True(t, ok)
	defer s.StopAll(time.Second)

	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("work was not invoked immediately after Start")
	}
}

func TestStartRejectsInvalidArguments(t *testing.T) {
	s := scheduler.New()

	assert.False(t, s.Start("nil-work", nil, time.Second))
	assert.False(t, s.Start("zero-interval", func() {}, 0))
	assert.False(t, s.Start("negative-interval", func() {}, -time.Second))
}

func TestStartRejectsDuplicateName(t *testing.T) {
	s := scheduler.New()

	require.True(t, s.Start("dup", func() {}, time.Hour))
	defer s.StopAll(time.Second)

	assert.False(t, s.Start("dup", func() {}, time.Hour), "Second Start with a live name must fail")
	assert.True(t, s.Start("other", func() {}, time.Hour), "A different name must still start")
}

func TestStopInterruptsWait(t *testing.T) {
	s := scheduler.New()

	require.True(t, s.Start("waiter", func() {}, time.Hour))

	// The task is now deep in an hour-long wait; Stop must not take an hour.
	start := time.Now()
	stopped := s.Stop("waiter", 2*time.Second)
	elapsed := time.Since(start)

	assert.True(t, stopped)
	assert.Less(t, elapsed, time.Second, "Stop should interrupt the wait, not ride it out")
	assert.False(t, s.IsRunning("waiter"))
}

func TestStopUnknownName(t *testing.T) {
	s := scheduler.New()

	assert.False(t, s.Stop("ghost", time.Second))
}

func TestStopTimesOutOnBlockedWork(t *testing.T) {
	s := scheduler.New()
	release := make(chan struct{})
	started := make(chan struct{})

	require.True(t, s.Start("blocked", func() {
		close(started)
		<-release
	}, time.Hour))
	<-started

	stopped := s.Stop("blocked", 100*time.Millisecond)
	assert.False(t, stopped, "Stop must report failure when work outlives the timeout")

	close(release)
}

func TestPanickingWorkKeepsRunning(t *testing.T) {
	s := scheduler.New()
	var runs atomic.Int32

	require.True(t, s.Start("panicky", func() {
		runs.Add(1)
		panic("boom")
	}, 20*time.Millisecond))

	require.Eventually(t, func() bool {
		return runs.Load() >= 2
	}, 2*time.Second, 10*time.Millisecond, "loop should survive panics and keep invoking work")

	assert.True(t, s.Stop("panicky", time.Second))
}

func TestNameReusableAfterStop(t *testing.T) {
	s := scheduler.New()

	require.True(t, s.Start("reuse", func() {}, time.Hour))
	require.True(t, s.Stop("reuse", time.Second))

	assert.True(t, s.Start("reuse", func() {}, time.Hour), "A stopped name must be reusable")
	s.StopAll(time.Second)
}

func TestStopAll(t *testing.T) {
	s := scheduler.New()

	require.True(t, s.Start("a", func() {}, time.Hour))
	require.True(t, s.Start("b", func() {}, time.Hour))
	assert.ElementsMatch(t, []string{"a", "b"}, s.Active())

	assert.True(t, s.StopAll(time.Second))
	assert.Empty(t, s.Active())
}

func TestRestart(t *testing.T) {
	s := scheduler.New()
	var first, second atomic.Int32

	require.True(t, s.Start("job", func() { first.Add(1) }, time.Hour))
	require.True(t, s.Restart("job", func() { second.Add(1) }, time.Hour, time.Second))
	defer s.StopAll(time.Second)

	require.Eventually(t, func() bool {
		return second.Load() >= 1
	}, time.Second, 10*time.Millisecond)
	assert.True(t, s.IsRunning("job"))
}

func TestWorkDoesNotOverlap(t *testing.T) {
	s := scheduler.New()
	var active, overlaps atomic.Int32

	require.True(t, s.Start("serial", func() {
		if active.Add(1) > 1 {
			overlaps.Add(1)
		}
		time.Sleep(30 * time.Millisecond)
		active.Add(-1)
	}, 5*time.Millisecond))

	time.Sleep(200 * time.Millisecond)
	s.Stop("serial", time.Second)

	assert.Zero(t, overlaps.Load(), "work invocations must run strictly one after another")
}
