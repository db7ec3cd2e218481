// Package scheduler wires the recurring jobs: the expired-block sweep and the
// periodic analyzer run.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/argus-sec/argus/backend/internal/logger"
	"github.com/argus-sec/argus/backend/internal/services"
)

type Scheduler struct {
	cron      *cron.Cron
	blocklist *services.BlocklistService
	analyzers *services.AnalyzerService
}

func New(blocklist *services.BlocklistService, analyzers *services.AnalyzerService) *Scheduler {
	return &Scheduler{
		cron:      cron.New(),
		blocklist: blocklist,
		analyzers: analyzers,
	}
}

// Start registers the jobs and starts the cron loop. Schedules use cron
// syntax, including the "@every 5m" shorthand.
func (s *Scheduler) Start(sweepSchedule, analyzerSchedule string) error {
	if _, err := s.cron.AddFunc(sweepSchedule, s.runSweep); err != nil {
		return fmt.Errorf("register sweep job: %w", err)
	}
	if _, err := s.cron.AddFunc(analyzerSchedule, s.runAnalyzers); err != nil {
		return fmt.Errorf("register analyzer job: %w", err)
	}

	s.cron.Start()
	logger.WithFields(map[string]interface{}{"sweep": sweepSchedule, "analyzers": analyzerSchedule}).
		Info("scheduler started")
	return nil
}

// Stop halts the cron loop and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) runSweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	result := s.blocklist.UnblockExpired(ctx)
	if result.Errors > 0 {
		logger.WithFields(map[string]interface{}{"errors": result.Errors}).Warn("sweep finished with errors")
	}
}

func (s *Scheduler) runAnalyzers() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	summary := s.analyzers.RunAll(ctx, 4*time.Minute)
	logger.WithFields(map[string]interface{}{
		"completed": summary.CompletedTasks,
		"failed":    summary.FailedTasks,
		"timed_out": summary.TimedOutTasks,
		"findings":  len(summary.Results),
	}).Info("analyzer run finished")
}
