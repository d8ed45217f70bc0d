package auth

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"
)

// ScheduleSweep starts a background scheduler that evicts expired sessions
// every interval. onSwept, if set, receives the number removed by each run.
// Callers stop it with Scheduler.Stop.
func (s *SessionStore) ScheduleSweep(interval time.Duration, onSwept func(int)) (*gocron.Scheduler, error) {
	scheduler := gocron.NewScheduler(time.UTC)
	_, err := scheduler.Every(interval).Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		removed, err := s.Sweep(ctx)
		if err != nil {
			s.log.Error().Err(err).Msg("session sweep failed")
			return
		}
		if removed > 0 {
			s.log.Info().Int("removed", removed).Msg("expired sessions swept")
		}
		if onSwept != nil {
			onSwept(removed)
		}
	})
	if err != nil {
		return nil, err
	}
	scheduler.StartAsync()
	return scheduler, nil
}
