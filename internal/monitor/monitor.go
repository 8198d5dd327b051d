// Package monitor drives the periodic collection cycle: query the metrics
// source, append to the history buffer, persist when telemetry is enabled,
// and hand the reading to the registered observer.
package monitor

import (
	"context"
	"sync"
	"time"

	"codeberg.org/halvard/sysmond/internal/config"
	"codeberg.org/halvard/sysmond/internal/history"
	"codeberg.org/halvard/sysmond/internal/logger"
	"codeberg.org/halvard/sysmond/internal/proc"
	"codeberg.org/halvard/sysmond/internal/scheduler"
	"codeberg.org/halvard/sysmond/internal/sysinfo"
)

const (
	MetricsTask   = "metrics"
	ProcessesTask = "processes"

	recordTimeout = 5 * time.Second
)

// Seam so tests can stub process enumeration.
var listProcesses = proc.List

// Source produces one reading per collection cycle.
type Source interface {
	Reading() sysinfo.Reading
}

// Recorder persists readings. Failures are logged, never propagated.
type Recorder interface {
	Record(ctx context.Context, reading sysinfo.Reading) error
}

type Monitor struct {
	cfg      *config.Config
	source   Source
	buffer   *history.Buffer
	recorder Recorder
	sched    *scheduler.Scheduler

	mu          sync.RWMutex
	onReading   func(sysinfo.Reading)
	onProcesses func([]proc.Info)
}

// New wires a monitor from its collaborators. recorder may be nil when
// telemetry is disabled.
func New(cfg *config.Config, source Source, buffer *history.Buffer, recorder Recorder, sched *scheduler.Scheduler) *Monitor {
	return &Monitor{
		cfg:      cfg,
		source:   source,
		buffer:   buffer,
		recorder: recorder,
		sched:    sched,
	}
}

// OnReading registers the observer called with every new reading. The
// callback runs on the collection goroutine; without one, readings are
// dumped through the logger.
func (m *Monitor) OnReading(fn func(sysinfo.Reading)) {
	m.mu.Lock()
	m.onReading = fn
	m.mu.Unlock()
}

// OnProcesses registers the observer for process table refreshes.
func (m *Monitor) OnProcesses(fn func([]proc.Info)) {
	m.mu.Lock()
	m.onProcesses = fn
	m.mu.Unlock()
}

// Start launches the metrics task and, when process polling is configured,
// the process table task. It returns false when the metrics task was
// already running.
func (m *Monitor) Start() bool {
	if !m.sched.Start(MetricsTask, m.collect, m.cfg.IntervalDuration()) {
		return false
	}

	if m.cfg.ProcessInterval > 0 {
		m.sched.Start(ProcessesTask, m.collectProcesses, m.cfg.ProcessIntervalDuration())
	}

	return true
}

// Stop halts both tasks, waiting up to timeout for each.
func (m *Monitor) Stop(timeout time.Duration) bool {
	stopped := m.sched.Stop(MetricsTask, timeout)
	if m.sched.IsRunning(ProcessesTask) {
		stopped = m.sched.Stop(ProcessesTask, timeout) && stopped
	}

	return stopped
}

// History returns an ordered copy of the retained readings.
func (m *Monitor) History() []sysinfo.Reading {
	return m.buffer.Snapshot()
}

// Current returns the most recent reading, if one exists yet.
func (m *Monitor) Current() (sysinfo.Reading, bool) {
	return m.buffer.Last()
}

// collect runs one cycle. Nothing here may propagate past the cycle
// boundary: a recording failure is one log line and the next interval
// proceeds as if the cycle had completed normally.
func (m *Monitor) collect() {
	reading := m.source.Reading()

	m.buffer.Append(reading)

	if m.recorder != nil {
		ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
		if err := m.recorder.Record(ctx, reading); err != nil {
			logger.Warn().Err(err).Msg("failed to record reading")
		}
		cancel()
	}

	m.mu.RLock()
	notify := m.onReading
	m.mu.RUnlock()

	if notify != nil {
		notify(reading)
		return
	}

	dumpReading(reading)
}

func (m *Monitor) collectProcesses() {
	infos := listProcesses("cpu_percent", true, m.cfg.ProcessLimit)

	m.mu.RLock()
	notify := m.onProcesses
	m.mu.RUnlock()

	if notify != nil {
		notify(infos)
		return
	}

	logger.Info().Int("processes", len(infos)).Msg("process table refreshed")
}

func dumpReading(reading sysinfo.Reading) {
	logger.Info().
		Float64("cpu_percent", reading.CPUPercent()).
		Float64("ram_percent", reading.RAMPercent()).
		Float64("upload_bps", reading.UploadBytesPerSec()).
		Float64("download_bps", reading.DownloadBytesPerSec()).
		Int("gpus", len(reading.GPUs)).
		Msg("reading")
}
