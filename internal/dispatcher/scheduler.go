package dispatcher

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
)

// Run starts a cycle immediately and then on every tick until ctx is done.
// A tick that finds the previous cycle still running is skipped.
// Run returns after the last started cycle has finished.
func (d *Dispatcher) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return errors.New("dispatcher: interval must be positive")
	}

	log.Info().Dur("interval", interval).Dur("deadline", d.deadline).Int("workers", d.workers).Msg("Check scheduler started")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	d.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			d.wg.Wait()
			log.Info().Msg("Check scheduler stopped")
			return nil
		case <-ticker.C:
			d.tick(ctx)
		}
	}
}

func (d *Dispatcher) tick(ctx context.Context) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		_, err := d.RunCycle(ctx)
		switch {
		case errors.Is(err, ErrCycleInProgress):
			log.Warn().Msg("Previous check cycle still running, tick skipped")
		case err != nil && ctx.Err() == nil:
			log.Error().Err(err).Msg("Check cycle failed")
		}
	}()
}
