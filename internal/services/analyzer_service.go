package services

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/argus-sec/argus/backend/internal/executor"
	"github.com/argus-sec/argus/backend/internal/models"
)

// Finding is one observation produced by a batch analyzer.
type Finding struct {
	Analyzer string `json:"analyzer"`
	Subject  string `json:"subject"`
	Detail   string `json:"detail"`
	Severity string `json:"severity"`
}

// AnalyzerService runs the periodic analysis jobs through the bounded
// executor. A degraded run (failed or unscheduled analyzers) still returns
// the findings that did complete.
type AnalyzerService struct {
	db            *gorm.DB
	notifications *NotificationService
}

func NewAnalyzerService(db *gorm.DB, notifications *NotificationService) *AnalyzerService {
	return &AnalyzerService{db: db, notifications: notifications}
}

// RunAll executes every analyzer within the given total budget and reports a
// degraded run to the notification channel.
func (s *AnalyzerService) RunAll(ctx context.Context, totalBudget time.Duration) executor.Summary[Finding] {
	tasks := []executor.Task[Finding]{
		{Name: "top-attackers", Priority: 30, Run: s.topAttackers},
		{Name: "stale-blocks", Priority: 20, Run: s.staleBlocks},
		{Name: "rule-distribution", Priority: 10, Run: s.ruleDistribution},
	}

	summary := executor.Run(ctx, tasks, executor.Options{
		MaxConcurrency: 2,
		DefaultTimeout: 30 * time.Second,
		TotalTimeout:   totalBudget,
	})

	if summary.Degraded() && s.notifications != nil {
		title := "Analysis run degraded"
		message := fmt.Sprintf("%d/%d analyzers completed (%d failed, %d timed out)",
			summary.CompletedTasks, summary.TotalTasks, summary.FailedTasks, summary.TimedOutTasks)
		if _, err := s.notifications.Create(models.NotificationTypeWarning, title, message); err == nil {
			s.notifications.SendExternal(EventClassAnalyzer, title, message)
		}
	}
	return summary
}

// topAttackers flags the noisiest source IPs of the last 24 hours.
func (s *AnalyzerService) topAttackers(ctx context.Context) ([]Finding, error) {
	type row struct {
		OrganizationID string
		SourceIP       string
		Count          int
	}
	var rows []row
	err := s.db.WithContext(ctx).Model(&models.WafEvent{}).
		Select("organization_id, source_ip, count(*) as count").
		Where("observed_at > ?", time.Now().Add(-24*time.Hour)).
		Group("organization_id, source_ip").
		Order("count desc").
		Limit(10).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("query top attackers: %w", err)
	}

	findings := make([]Finding, 0, len(rows))
	for _, r := range rows {
		severity := "low"
		if r.Count >= 100 {
			severity = "high"
		} else if r.Count >= 25 {
			severity = "medium"
		}
		findings = append(findings, Finding{
			Analyzer: "top-attackers",
			Subject:  r.SourceIP,
			Detail:   fmt.Sprintf("%d events in 24h for org %s", r.Count, r.OrganizationID),
			Severity: severity,
		})
	}
	return findings, nil
}

// staleBlocks flags active records whose expiry is long past, which means the
// sweep is not keeping up.
func (s *AnalyzerService) staleBlocks(ctx context.Context) ([]Finding, error) {
	var records []models.BlockedIP
	err := s.db.WithContext(ctx).
		Where("is_active = ? AND expires_at <= ?", true, time.Now().Add(-time.Hour)).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("query stale blocks: %w", err)
	}

	findings := make([]Finding, 0, len(records))
	for _, r := range records {
		findings = append(findings, Finding{
			Analyzer: "stale-blocks",
			Subject:  r.IPAddress,
			Detail:   fmt.Sprintf("still active %s past expiry for org %s", time.Since(r.ExpiresAt).Round(time.Minute), r.OrganizationID),
			Severity: "medium",
		})
	}
	return findings, nil
}

// ruleDistribution summarizes which threat types dominated the last 24 hours.
func (s *AnalyzerService) ruleDistribution(ctx context.Context) ([]Finding, error) {
	type row struct {
		ThreatType string
		Count      int
	}
	var rows []row
	err := s.db.WithContext(ctx).Model(&models.WafEvent{}).
		Select("threat_type, count(*) as count").
		Where("observed_at > ? AND threat_type != ?", time.Now().Add(-24*time.Hour), "unknown").
		Group("threat_type").
		Order("count desc").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("query rule distribution: %w", err)
	}

	findings := make([]Finding, 0, len(rows))
	for _, r := range rows {
		findings = append(findings, Finding{
			Analyzer: "rule-distribution",
			Subject:  r.ThreatType,
			Detail:   fmt.Sprintf("%d events in 24h", r.Count),
			Severity: "low",
		})
	}
	return findings, nil
}
