package sweeper

import (
	"context"
	"fmt"
	"time"

	"github.com/adhocore/gronx"

	"suggestbox/pkg/browse"
	"suggestbox/pkg/config"
	"suggestbox/pkg/logger"
	"suggestbox/pkg/session"
)

// Start runs the periodic session sweep on the configured cron schedule.
// Interaction sessions are normally reaped by their own timers; the
// sweep is the backstop, and it is the only thing that ages out idle
// browse sessions. Returns a cancel func for the scheduler goroutine.
func Start(ctx context.Context, cfg *config.Config, sessions *session.Manager, browser *browse.Manager) (context.CancelFunc, error) {
	cronExpr := cfg.Sessions.SweepCron
	if cronExpr == "" {
		cronExpr = config.DefaultSweepCron
	}
	if !gronx.IsValid(cronExpr) {
		logger.Error("sweeper_invalid_cron", "cron", cronExpr)
		return nil, fmt.Errorf("invalid sweep cron expression: %s", cronExpr)
	}

	browseIdle := cfg.Sessions.BrowseIdle.Duration()
	if browseIdle <= 0 {
		browseIdle = config.DefaultBrowseIdle
	}

	logger.Info("sweeper_started", "cron", cronExpr, "browse_idle", browseIdle.String())
	ctx2, cancel := context.WithCancel(ctx)
	go runScheduler(ctx2, cronExpr, browseIdle, sessions, browser)
	return cancel, nil
}

// runScheduler computes the next cron tick with gronx and sleeps until
// then, sweeping on each tick.
func runScheduler(ctx context.Context, cronExpr string, browseIdle time.Duration, sessions *session.Manager, browser *browse.Manager) {
	for {
		select {
		case <-ctx.Done():
			logger.Info("sweeper_stopping")
			return
		default:
		}

		now := time.Now().UTC()
		next, err := gronx.NextTickAfter(cronExpr, now, false)
		if err != nil {
			logger.Error("sweeper_nexttick_failed", "cron", cronExpr, "error", err)
			select {
			case <-time.After(30 * time.Second):
			case <-ctx.Done():
				logger.Info("sweeper_stopping")
				return
			}
			continue
		}

		wait := time.Until(next)
		if wait <= 0 {
			sweep(browseIdle, sessions, browser)
			select {
			case <-time.After(time.Second):
			case <-ctx.Done():
				logger.Info("sweeper_stopping")
				return
			}
			continue
		}

		select {
		case <-time.After(wait):
			sweep(browseIdle, sessions, browser)
		case <-ctx.Done():
			logger.Info("sweeper_stopping")
			return
		}
	}
}

func sweep(browseIdle time.Duration, sessions *session.Manager, browser *browse.Manager) {
	now := time.Now()
	expired := sessions.SweepExpired(now)
	idle := browser.Sweep(now, browseIdle)
	if expired > 0 || idle > 0 {
		logger.Debug("sweep_completed", "sessions", expired, "browse", idle)
	}
}
