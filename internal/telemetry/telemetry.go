package telemetry

import (
	"context"

	"codeberg.org/halvard/sysmond/internal/errors"
	"codeberg.org/halvard/sysmond/internal/sysinfo"
)

type service struct {
	repo Repository
	cfg  Config
}

// NewService builds a Collector for the given configuration. When telemetry
// is disabled it returns a no-op collector so callers never branch.
func NewService(cfg Config) (Collector, error) {
	errFactory := errors.New()

	if err := cfg.Validate(); err != nil {
		return nil, errFactory.Wrap(ErrInvalidConfig, err)
	}

	if !cfg.Enabled {
		return noopCollector{}, nil
	}

	repo, err := NewRepository(cfg)
	if err != nil {
		return nil, err
	}

	return &service{
		repo: repo,
		cfg:  cfg,
	}, nil
}

func (s *service) Record(ctx context.Context, reading sysinfo.Reading) error {
	errFactory := errors.New()

	if reading.Timestamp.IsZero() {
		return errFactory.New(ErrInvalidReading)
	}

	select {
	case <-ctx.Done():
		return errFactory.Wrap(ErrOperationTimeout, ctx.Err())
	default:
		if err := s.repo.Record(reading); err != nil {
			return err
		}
	}

	return nil
}

func (s *service) Close() error {
	errFactory := errors.New()

	if err := s.repo.Close(); err != nil {
		return errFactory.Wrap(ErrStorageClose, err)
	}
	return nil
}

type noopCollector struct{}

func (noopCollector) Record(context.Context, sysinfo.Reading) error { return nil }
func (noopCollector) Close() error                                  { return nil }
