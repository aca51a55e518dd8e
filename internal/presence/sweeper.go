package presence

import (
	"context"
	"time"

	"go.uber.org/zap"

	"chatify-service/internal/observability"
)

// Sweeper runs the liveness sweep on a fixed interval until its context is
// cancelled.
type Sweeper struct {
	tracker  *Tracker
	interval time.Duration
	log      *zap.SugaredLogger
}

// NewSweeper constructs a Sweeper.
func NewSweeper(tracker *Tracker, interval time.Duration, log *zap.SugaredLogger) *Sweeper {
	return &Sweeper{tracker: tracker, interval: interval, log: log}
}

// Run blocks until ctx is done.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			swept, err := s.tracker.Sweep(ctx)
			if err != nil {
				s.log.Errorw("presence sweep failed", "err", err)
				continue
			}
			observability.AddPresenceSweep(swept)
		}
	}
}
