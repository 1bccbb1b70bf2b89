package sched

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"telegram-bg-remover/internal/domain"
	"telegram-bg-remover/internal/domain/ports/repository"
	"telegram-bg-remover/internal/infra/metrics"
	red "telegram-bg-remover/internal/infra/redis"
)

const (
	reaperLockKey = "bgr:lock:artifact_reaper"
	// bounds how long a crashed sweeper can keep other replicas out
	reaperLockTTL = 10 * time.Minute
)

// ArtifactReaper removes stored artifacts older than ttl on a cron schedule.
// With a locker, only one replica sweeps per tick.
type ArtifactReaper struct {
	schedule string
	ttl      time.Duration
	sweeper  repository.ArtifactSweeper
	locker   red.Locker
	cron     *cron.Cron
	log      *zerolog.Logger
}

func NewArtifactReaper(schedule string, ttl time.Duration, sweeper repository.ArtifactSweeper, locker red.Locker, logger *zerolog.Logger) (*ArtifactReaper, error) {
	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("reaper schedule %q: %w", schedule, err)
	}
	if ttl <= 0 {
		return nil, errors.New("reaper ttl must be positive")
	}
	l := logger.With().Str("component", "ArtifactReaper").Logger()
	cl := cronLogger{log: &l}
	return &ArtifactReaper{
		schedule: schedule,
		ttl:      ttl,
		sweeper:  sweeper,
		locker:   locker,
		cron:     cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl))),
		log:      &l,
	}, nil
}

// Start schedules the sweep; ctx bounds every run.
func (r *ArtifactReaper) Start(ctx context.Context) error {
	if _, err := r.cron.AddFunc(r.schedule, func() {
		if _, err := r.SweepOnce(ctx); err != nil {
			r.log.Error().Err(err).Msg("artifact sweep failed")
		}
	}); err != nil {
		return err
	}
	r.cron.Start()
	r.log.Info().Str("schedule", r.schedule).Dur("ttl", r.ttl).Msg("Starting artifact reaper")
	return nil
}

// Stop halts scheduling; the returned context is done once a running sweep ends.
func (r *ArtifactReaper) Stop() context.Context {
	r.log.Info().Msg("Stopping artifact reaper")
	return r.cron.Stop()
}

// SweepOnce runs one sweep now. When another replica holds the lock it does
// nothing and reports zero.
func (r *ArtifactReaper) SweepOnce(ctx context.Context) (int, error) {
	if r.locker != nil {
		token, err := r.locker.TryLock(ctx, reaperLockKey, reaperLockTTL)
		if errors.Is(err, domain.ErrLockHeld) {
			r.log.Debug().Msg("sweep skipped, lock held elsewhere")
			return 0, nil
		}
		if err != nil {
			return 0, fmt.Errorf("reaper lock: %w", err)
		}
		defer func() {
			if err := r.locker.Unlock(context.WithoutCancel(ctx), reaperLockKey, token); err != nil {
				r.log.Warn().Err(err).Msg("reaper unlock")
			}
		}()
	}

	n, err := r.sweeper.Sweep(ctx, r.ttl)
	metrics.AddArtifactsSwept(n)
	if n > 0 {
		r.log.Info().Int("count", n).Msg("expired artifacts removed")
	}
	return n, err
}

// cronLogger routes cron's internal logging to zerolog.
type cronLogger struct {
	log *zerolog.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
