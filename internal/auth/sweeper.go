// Copyright (c) 2026 BreachLab. All rights reserved.
// Author: platform@breachlab.io

package auth

import (
	stdctx "context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

const sweepTimeout = 30 * time.Second

// Sweeper periodically purges expired sessions from the ledger.
//
// Purely janitorial: expired sessions are already rejected at use, the
// sweeper only keeps the collection from growing without bound.
type Sweeper struct {
	ledger *Ledger
	logger *slog.Logger
	cron   *cron.Cron
}

// NewSweeper creates a Sweeper over the given ledger.
func NewSweeper(ledger *Ledger, logger *slog.Logger) *Sweeper {
	return &Sweeper{
		ledger: ledger,
		logger: logger,
	}
}

// Start schedules the sweep on the given cron expression (e.g. "@hourly")
// and runs it until [Sweeper.Stop].
func (sweeper *Sweeper) Start(schedule string) error {
	runner := cron.New()

	if _, err := runner.AddFunc(schedule, sweeper.runOnce); err != nil {
		return fmt.Errorf("auth: invalid sweep schedule %q: %w", schedule, err)
	}

	runner.Start()
	sweeper.cron = runner

	sweeper.logger.Info("session_sweeper_started", slog.String("schedule", schedule))
	return nil
}

// Stop halts the schedule and waits for an in-flight sweep to finish.
func (sweeper *Sweeper) Stop() {
	if sweeper.cron == nil {
		return
	}
	<-sweeper.cron.Stop().Done()
	sweeper.logger.Info("session_sweeper_stopped")
}

func (sweeper *Sweeper) runOnce() {
	context, cancel := stdctx.WithTimeout(stdctx.Background(), sweepTimeout)
	defer cancel()

	removed, err := sweeper.ledger.Sweep(context)
	if err != nil {
		sweeper.logger.Error("session_sweep_failed", slog.String("error", err.Error()))
		return
	}

	if removed > 0 {
		sweeper.logger.Info("session_sweep_completed", slog.Int64("removed", removed))
	}
}
