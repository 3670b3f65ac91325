// Package reaper periodically deletes expired sessions.
package reaper

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Sessions is satisfied by *session.Manager.
type Sessions interface {
	Reap(ctx context.Context, now time.Time) (int64, error)
}

// Recorder receives the number of sessions removed per pass.
type Recorder interface {
	SessionsReaped(n int64)
}

type Job struct {
	sessions Sessions
	log      zerolog.Logger
	recorder Recorder
	interval time.Duration
	now      func() time.Time
}

func New(s Sessions, interval time.Duration, log zerolog.Logger, rec Recorder) *Job {
	return &Job{
		sessions: s,
		log:      log.With().Str("job", "session_reaper").Logger(),
		recorder: rec,
		interval: interval,
		now:      time.Now,
	}
}

// RunOnce deletes every session that has expired by now and reports how many.
func (j *Job) RunOnce(ctx context.Context) (int64, error) {
	start := time.Now()
	// a pass never outlives its interval
	ctx, cancel := context.WithTimeout(ctx, j.interval)
	defer cancel()
	n, err := j.sessions.Reap(ctx, j.now())
	if err != nil {
		j.log.Error().Err(err).Msg("session reap failed")
		return 0, fmt.Errorf("reap sessions: %w", err)
	}
	if j.recorder != nil {
		j.recorder.SessionsReaped(n)
	}
	j.log.Info().
		Int64("deleted_count", n).
		Dur("duration", time.Since(start)).
		Msg("session reap complete")
	return n, nil
}

// Run reaps once immediately and then on every tick until ctx is done.
// A failed pass is logged and retried on the next tick.
func (j *Job) Run(ctx context.Context) error {
	t := time.NewTicker(j.interval)
	defer t.Stop()

	_, _ = j.RunOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			_, _ = j.RunOnce(ctx)
		}
	}
}
