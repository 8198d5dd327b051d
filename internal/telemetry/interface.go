package telemetry

import (
	"context"

	"codeberg.org/halvard/sysmond/internal/sysinfo"
)

// Collector persists readings for later analysis. Record must be safe to
// call from the collection goroutine on every cycle.
type Collector interface {
	Record(ctx context.Context, reading sysinfo.Reading) error
	Close() error
}

// Repository is the storage backend behind a Collector.
type Repository interface {
	Record(reading sysinfo.Reading) error
	Close() error
}
