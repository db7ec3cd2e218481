package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/argus-sec/argus/backend/internal/ipset"
	"github.com/argus-sec/argus/backend/internal/models"
	"github.com/argus-sec/argus/backend/internal/threat"
)

func setupThreatTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.WafEvent{}, &models.BlockedIP{}, &models.AutoBlockPolicy{},
		&models.Notification{}, &models.NotificationProvider{},
	))
	return db
}

func newThreatTestService(t *testing.T, db *gorm.DB) *ThreatService {
	blocklist := NewBlocklistService(db, ipset.NewManager(ipset.NewMemory()))
	return NewThreatService(db, blocklist, NewNotificationService(db))
}

func TestThreatService_RecordEvent(t *testing.T) {
	db := setupThreatTestDB(t)
	svc := newThreatTestService(t, db)

	row, analysis, err := svc.RecordEvent(context.Background(), "org-1", threat.ParsedEvent{
		URI:       "/products?id=1' OR '1'='1",
		UserAgent: "Mozilla/5.0",
		Action:    threat.ActionBlock,
		SourceIP:  "203.0.113.7",
	})
	require.NoError(t, err)
	assert.Equal(t, threat.TypeSQLInjection, analysis.ThreatType)

	var stored models.WafEvent
	require.NoError(t, db.First(&stored, row.ID).Error)
	assert.Equal(t, "org-1", stored.OrganizationID)
	assert.Equal(t, "203.0.113.7", stored.SourceIP)
	assert.Equal(t, string(threat.TypeSQLInjection), stored.ThreatType)
	assert.Equal(t, string(analysis.Severity), stored.Severity)
	assert.InDelta(t, analysis.Confidence, stored.Confidence, 0.001)
	assert.NotEmpty(t, stored.Indicators)
	assert.WithinDuration(t, time.Now(), stored.ObservedAt, time.Minute)
}

func TestThreatService_RecordEvent_AutoBlockAtThreshold(t *testing.T) {
	db := setupThreatTestDB(t)
	svc := newThreatTestService(t, db)

	policy := testPolicy("org-1")
	policy.Threshold = 3
	require.NoError(t, db.Create(policy).Error)

	ev := threat.ParsedEvent{
		URI:       "/.env",
		UserAgent: "Mozilla/5.0",
		Action:    threat.ActionBlock,
		SourceIP:  "203.0.113.7",
	}
	for i := 0; i < 2; i++ {
		_, _, err := svc.RecordEvent(context.Background(), "org-1", ev)
		require.NoError(t, err)
	}

	var count int64
	db.Model(&models.BlockedIP{}).Count(&count)
	assert.EqualValues(t, 0, count, "below threshold, no block yet")

	_, _, err := svc.RecordEvent(context.Background(), "org-1", ev)
	require.NoError(t, err)

	var record models.BlockedIP
	require.NoError(t, db.Where("organization_id = ? AND ip_address = ?", "org-1", "203.0.113.7").First(&record).Error)
	assert.True(t, record.IsActive)
	assert.Equal(t, models.BlockedByAuto, record.BlockedBy)
	assert.Contains(t, record.Reason, "auto:")

	// The auto-block leaves an internal notification behind.
	var notifications []models.Notification
	require.NoError(t, db.Find(&notifications).Error)
	require.Len(t, notifications, 1)
	assert.Contains(t, notifications[0].Title, "203.0.113.7")
}

func TestThreatService_RecordEvent_DisabledPolicyNeverBlocks(t *testing.T) {
	db := setupThreatTestDB(t)
	svc := newThreatTestService(t, db)

	policy := testPolicy("org-1")
	policy.Threshold = 1
	policy.Enabled = false
	require.NoError(t, db.Create(policy).Error)

	ev := threat.ParsedEvent{URI: "/.env", Action: threat.ActionBlock, SourceIP: "203.0.113.7"}
	_, _, err := svc.RecordEvent(context.Background(), "org-1", ev)
	require.NoError(t, err)

	var count int64
	db.Model(&models.BlockedIP{}).Count(&count)
	assert.EqualValues(t, 0, count)
}

func TestThreatService_RecordEvent_NoSourceIP(t *testing.T) {
	db := setupThreatTestDB(t)
	svc := newThreatTestService(t, db)

	_, _, err := svc.RecordEvent(context.Background(), "org-1", threat.ParsedEvent{
		URI:    "/index.html",
		Action: threat.ActionAllow,
	})
	require.NoError(t, err)

	var count int64
	db.Model(&models.WafEvent{}).Count(&count)
	assert.EqualValues(t, 1, count)
}

func TestThreatService_CountRecentEvents_WindowBounds(t *testing.T) {
	db := setupThreatTestDB(t)
	svc := newThreatTestService(t, db)

	now := time.Now()
	for _, observed := range []time.Time{
		now.Add(-5 * time.Minute),
		now.Add(-30 * time.Minute),
		now.Add(-2 * time.Hour), // outside a 1h window
	} {
		require.NoError(t, db.Create(&models.WafEvent{
			OrganizationID: "org-1",
			SourceIP:       "203.0.113.7",
			ObservedAt:     observed,
		}).Error)
	}
	require.NoError(t, db.Create(&models.WafEvent{
		OrganizationID: "org-2",
		SourceIP:       "203.0.113.7",
		ObservedAt:     now,
	}).Error)

	count, err := svc.CountRecentEvents("org-1", "203.0.113.7", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestThreatService_ListEvents(t *testing.T) {
	db := setupThreatTestDB(t)
	svc := newThreatTestService(t, db)

	now := time.Now()
	for i, ip := range []string{"203.0.113.1", "203.0.113.2", "203.0.113.1"} {
		require.NoError(t, db.Create(&models.WafEvent{
			OrganizationID: "org-1",
			SourceIP:       ip,
			ObservedAt:     now.Add(time.Duration(i) * time.Minute),
		}).Error)
	}

	events, err := svc.ListEvents("org-1", "", 0)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, "203.0.113.1", events[0].SourceIP, "newest first")

	filtered, err := svc.ListEvents("org-1", "203.0.113.2", 10)
	require.NoError(t, err)
	assert.Len(t, filtered, 1)
}
