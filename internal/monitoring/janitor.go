package monitoring

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/gatehouse-io/gatehouse/internal/services"
)

// Janitor clears expired password-reset tokens in the background. Reset
// tokens already fail verification after expiry; this keeps stale rows from
// accumulating in the store.
type Janitor struct {
	users services.UserStoreProvider
	cron  *cron.Cron
}

// NewJanitor creates a new janitor over the given user store.
func NewJanitor(users services.UserStoreProvider) *Janitor {
	return &Janitor{users: users, cron: cron.New()}
}

// Run schedules the cleanup and starts the cron loop.
func (j *Janitor) Run() error {
	if _, err := j.cron.AddFunc("@every 15m", func() { j.RunOnce(context.Background()) }); err != nil {
		return err
	}
	j.cron.Start()
	return nil
}

// RunOnce performs a single cleanup pass.
func (j *Janitor) RunOnce(ctx context.Context) {
	n, err := j.users.PurgeExpiredResetTokens(ctx, time.Now())
	if err != nil {
		log.Error().Err(err).Msg("Failed to purge expired reset tokens")
		return
	}
	if n > 0 {
		log.Info().Int64("cleared", n).Msg("Cleared expired reset tokens")
	}
}

// Stop halts the cron loop and waits for a running pass to finish.
func (j *Janitor) Stop() {
	ctx := j.cron.Stop()
	<-ctx.Done()
}
