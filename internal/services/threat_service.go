package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/argus-sec/argus/backend/internal/logger"
	"github.com/argus-sec/argus/backend/internal/metrics"
	"github.com/argus-sec/argus/backend/internal/models"
	"github.com/argus-sec/argus/backend/internal/threat"
	"github.com/argus-sec/argus/backend/internal/util"
)

// ThreatService is the ingest pipeline: classify each firewall log event,
// persist it with its analysis attached, and when the per-IP event count
// crosses the organization's threshold, drive the auto-block.
type ThreatService struct {
	db            *gorm.DB
	blocklist     *BlocklistService
	notifications *NotificationService
}

func NewThreatService(db *gorm.DB, blocklist *BlocklistService, notifications *NotificationService) *ThreatService {
	return &ThreatService{db: db, blocklist: blocklist, notifications: notifications}
}

// RecordEvent analyzes one parsed event, stores it, and evaluates the source
// IP against the organization's auto-block policy. The stored row and the
// analysis are returned; an auto-block failure does not fail the ingest.
func (s *ThreatService) RecordEvent(ctx context.Context, organizationID string, ev threat.ParsedEvent) (*models.WafEvent, threat.Analysis, error) {
	analysis := threat.AnalyzeEvent(ev)

	metrics.IncWafEvent()
	metrics.IncThreat(string(analysis.Severity))

	observed := ev.Timestamp
	if observed.IsZero() {
		observed = time.Now()
	}

	row := &models.WafEvent{
		OrganizationID:    organizationID,
		SourceIP:          ev.SourceIP,
		URI:               ev.URI,
		UserAgent:         ev.UserAgent,
		Action:            ev.Action,
		RuleMatched:       ev.RuleMatched,
		ThreatType:        string(analysis.ThreatType),
		Severity:          string(analysis.Severity),
		Confidence:        analysis.Confidence,
		Indicators:        strings.Join(analysis.Indicators, "\n"),
		RecommendedAction: analysis.RecommendedAction,
		ObservedAt:        observed,
	}
	if err := s.db.Create(row).Error; err != nil {
		return nil, analysis, fmt.Errorf("persist waf event: %w", err)
	}

	s.evaluateSource(ctx, organizationID, ev, analysis)
	return row, analysis, nil
}

// evaluateSource counts the source IP's recent events and blocks it when the
// policy threshold is crossed.
func (s *ThreatService) evaluateSource(ctx context.Context, organizationID string, ev threat.ParsedEvent, analysis threat.Analysis) {
	if ev.SourceIP == "" {
		return
	}

	log := logger.WithFields(map[string]interface{}{"org": organizationID, "ip": ev.SourceIP})

	policy, err := s.blocklist.PolicyFor(organizationID)
	if err != nil {
		log.WithError(err).Debug("no auto-block policy configured")
		return
	}

	count, err := s.CountRecentEvents(organizationID, ev.SourceIP, policy.Window())
	if err != nil {
		log.WithError(err).Warn("failed to count recent events")
		return
	}

	escalated := threat.CalculateSeverity(analysis.ThreatType, count, ev.Action == threat.ActionBlock)
	if !s.blocklist.ShouldAutoBlock(count, policy) {
		return
	}

	reason := fmt.Sprintf("auto: %d %s events within %s (severity %s)",
		count, analysis.ThreatType, policy.Window(), escalated)
	result := s.blocklist.BlockIP(ctx, organizationID, ev.SourceIP, reason, models.BlockedByAuto, policy)

	switch result.Action {
	case BlockActionBlocked:
		title := fmt.Sprintf("Auto-blocked %s", ev.SourceIP)
		message := fmt.Sprintf("%s after %d events; last URI: %s",
			reason, count, util.SanitizeForLog(ev.URI))
		if s.notifications != nil {
			if _, err := s.notifications.Create(models.NotificationTypeWarning, title, message); err != nil {
				log.WithError(err).Warn("failed to record auto-block notification")
			}
			s.notifications.SendExternal(EventClassBlock, title, message)
		}
	case BlockActionFailed:
		log.WithField("message", result.Message).Error("auto-block attempt failed")
	}
}

// CountRecentEvents returns how many events the source IP produced for the
// organization within the window.
func (s *ThreatService) CountRecentEvents(organizationID, sourceIP string, window time.Duration) (int, error) {
	var count int64
	err := s.db.Model(&models.WafEvent{}).
		Where("organization_id = ? AND source_ip = ? AND observed_at > ?",
			organizationID, sourceIP, time.Now().Add(-window)).
		Count(&count).Error
	return int(count), err
}

// ListEvents returns recent events for an organization, newest first,
// optionally filtered by source IP.
func (s *ThreatService) ListEvents(organizationID, sourceIP string, limit int) ([]models.WafEvent, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	query := s.db.Where("organization_id = ?", organizationID).Order("observed_at desc").Limit(limit)
	if sourceIP != "" {
		query = query.Where("source_ip = ?", sourceIP)
	}
	var events []models.WafEvent
	err := query.Find(&events).Error
	return events, err
}
