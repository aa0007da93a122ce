// Copyright 2024-2026 Aiku AI

package syncer

import (
	"context"
	"errors"
	"time"
)

// Loop runs a full sync immediately and then every interval until ctx is
// done. Failed runs are logged and retried at the next tick.
func (s *Syncer) Loop(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()
	s.log.Info().Dur("interval", s.cfg.Interval).Msg("Starting periodic sync")
	for {
		s.runOnce(ctx)
		select {
		case <-ctx.Done():
			s.log.Info().Msg("Stopping periodic sync")
			return
		case <-ticker.C:
		}
	}
}

func (s *Syncer) runOnce(ctx context.Context) {
	_, err := s.Run(ctx)
	switch {
	case err == nil:
	case errors.Is(err, ErrRunInProgress):
		s.log.Debug().Msg("Skipping periodic sync, a run is in progress")
	case errors.Is(err, context.Canceled):
	default:
		s.log.Error().Err(err).Msg("Periodic sync failed")
	}
}
