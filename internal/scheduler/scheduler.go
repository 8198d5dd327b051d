// Package scheduler runs named units of work on fixed intervals, each on its
// own goroutine. At most one live task exists per name; stopping is
// cooperative and interrupts an in-progress wait immediately.
package scheduler

import (
	"sync"
	"time"

	"codeberg.org/halvard/sysmond/internal/logger"
)

type task struct {
	name     string
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

func (t *task) alive() bool {
	select {
	case <-t.done:
		return false
	default:
		return true
	}
}

func (t *task) signalStop() {
	t.stopOnce.Do(func() { close(t.stop) })
}

type Scheduler struct {
	mu    sync.Mutex
	tasks map[string]*task
}

func New() *Scheduler {
	return &Scheduler{tasks: make(map[string]*task)}
}

// Start begins executing work immediately, then again after every interval,
// measured from the start of the wait that follows each invocation. It
// returns false when a task with the same name is still alive, when work is
// nil, or when the interval is not positive. Panics inside work are
// recovered and logged; the loop continues.
func (s *Scheduler) Start(name string, work func(), interval time.Duration) bool {
	if work == nil || interval <= 0 {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.tasks[name]; ok && existing.alive() {
		logger.Debug().Str("task", name).Msg("task already running")
		return false
	}

	t := &task{
		name: name,
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	s.tasks[name] = t

	go t.run(work, interval)

	logger.Debug().Str("task", name).Dur("interval", interval).Msg("task started")

	return true
}

func (t *task) run(work func(), interval time.Duration) {
	defer close(t.done)

	for {
		t.invoke(work)

		select {
		case <-t.stop:
			return
		case <-time.After(interval):
		}
	}
}

func (t *task) invoke(work func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error().Str("task", t.name).Interface("panic", r).
				Msg("recovered panic in periodic task")
		}
	}()

	work()
}

// Stop signals the named task and waits up to timeout for it to finish its
// current work invocation and exit. It returns true once the task has
// exited, false on an unknown name or when the timeout elapses first (the
// task may still be finishing).
func (s *Scheduler) Stop(name string, timeout time.Duration) bool {
	s.mu.Lock()
	t, ok := s.tasks[name]
	s.mu.Unlock()

	if !ok {
		logger.Debug().Str("task", name).Msg("stop requested for unknown task")
		return false
	}

	t.signalStop()

	select {
	case <-t.done:
	case <-time.After(timeout):
		logger.Warn().Str("task", name).Msg("task did not stop within timeout")
		return false
	}

	s.mu.Lock()
	if current, ok := s.tasks[name]; ok && current == t {
		delete(s.tasks, name)
	}
	s.mu.Unlock()

	logger.Debug().Str("task", name).Msg("task stopped")

	return true
}

// StopAll stops every known task, applying timeout to each in turn. It
// returns true only when all of them exited in time.
func (s *Scheduler) StopAll(timeout time.Duration) bool {
	s.mu.Lock()
	names := make([]string, 0, len(s.tasks))
	for name := range s.tasks {
		names = append(names, name)
	}
	s.mu.Unlock()

	all := true
	for _, name := range names {
		if !s.Stop(name, timeout) {
			all = false
		}
	}

	return all
}

// IsRunning reports whether a task with this name is currently alive.
func (s *Scheduler) IsRunning(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[name]

	return ok && t.alive()
}

// Active returns the names of all live tasks.
func (s *Scheduler) Active() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.tasks))
	for name, t := range s.tasks {
		if t.alive() {
			names = append(names, name)
		}
	}

	return names
}

// Restart stops the named task if it is running, then starts it again with
// the given work and interval.
func (s *Scheduler) Restart(name string, work func(), interval, timeout time.Duration) bool {
	s.Stop(name, timeout)

	return s.Start(name, work, interval)
}
