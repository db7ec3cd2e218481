package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/argus-sec/argus/backend/internal/ipset"
	"github.com/argus-sec/argus/backend/internal/logger"
	"github.com/argus-sec/argus/backend/internal/metrics"
	"github.com/argus-sec/argus/backend/internal/models"
)

// Block outcome actions.
const (
	BlockActionBlocked        = "blocked"
	BlockActionAlreadyBlocked = "already_blocked"
	BlockActionFailed         = "failed"
)

// BlockResult is the structured outcome of a block attempt. It is returned,
// logged, and optionally surfaced to notification channels; BlockIP does not
// raise errors for expected failures.
type BlockResult struct {
	Success   bool      `json:"success"`
	Action    string    `json:"action"`
	Message   string    `json:"message"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

// UnblockResult is the structured outcome of an unblock attempt.
type UnblockResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// SweepResult summarizes one pass of the expired-block sweep.
type SweepResult struct {
	Unblocked int `json:"unblocked"`
	Errors    int `json:"errors"`
}

// BlocklistService owns the block/unblock/expire lifecycle for one database
// and one external firewall. The persisted record and the firewall IP set are
// only loosely consistent: block fails closed (no record without a firewall
// entry), unblock fails open (the record is released even when the firewall
// call fails), and the periodic sweep reconciles the rest.
type BlocklistService struct {
	db    *gorm.DB
	ipset *ipset.Manager

	// locks serializes check-then-act per (organization, ip) so concurrent
	// block attempts cannot both race past the already-blocked check.
	locks sync.Map
}

func NewBlocklistService(db *gorm.DB, mgr *ipset.Manager) *BlocklistService {
	return &BlocklistService{db: db, ipset: mgr}
}

// ShouldAutoBlock reports whether an observed event count crosses the
// policy's auto-block threshold.
func (s *BlocklistService) ShouldAutoBlock(eventCount int, policy *models.AutoBlockPolicy) bool {
	return policy != nil && policy.Enabled && eventCount >= policy.Threshold
}

// PolicyFor returns the organization's auto-block policy, falling back to the
// "default" row. ErrRecordNotFound surfaces when neither exists.
func (s *BlocklistService) PolicyFor(organizationID string) (*models.AutoBlockPolicy, error) {
	var policy models.AutoBlockPolicy
	err := s.db.Where("organization_id = ?", organizationID).First(&policy).Error
	if errors.Is(err, gorm.ErrRecordNotFound) && organizationID != models.DefaultOrganizationID {
		err = s.db.Where("organization_id = ?", models.DefaultOrganizationID).First(&policy).Error
	}
	if err != nil {
		return nil, err
	}
	return &policy, nil
}

// UpsertPolicy creates or updates an organization's policy.
func (s *BlocklistService) UpsertPolicy(policy *models.AutoBlockPolicy) error {
	if policy.OrganizationID == "" {
		return fmt.Errorf("policy requires an organization id")
	}
	var existing models.AutoBlockPolicy
	err := s.db.Where("organization_id = ?", policy.OrganizationID).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return s.db.Create(policy).Error
	}
	if err != nil {
		return err
	}

	existing.Enabled = policy.Enabled
	existing.Threshold = policy.Threshold
	existing.BlockDurationHours = policy.BlockDurationHours
	existing.WindowMinutes = policy.WindowMinutes
	existing.IPSetName = policy.IPSetName
	existing.Scope = policy.Scope
	return s.db.Save(&existing).Error
}

// BlockIP drives the Unblocked -> Blocked transition for one (org, ip) pair.
// Blocking an IP with an unexpired record is a no-op; blocking after expiry
// opens a new window on the same row. The firewall call happens before any
// state is persisted, so a firewall failure leaves no partial state.
func (s *BlocklistService) BlockIP(ctx context.Context, organizationID, ip, reason, blockedBy string, policy *models.AutoBlockPolicy) BlockResult {
	unlock := s.lock(organizationID, ip)
	defer unlock()

	log := logger.WithFields(map[string]interface{}{"org": organizationID, "ip": ip})

	var existing models.BlockedIP
	err := s.db.Where("organization_id = ? AND ip_address = ?", organizationID, ip).First(&existing).Error
	found := err == nil
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return BlockResult{Action: BlockActionFailed, Message: fmt.Sprintf("lookup block record: %v", err)}
	}
	if found && existing.IsActive {
		return BlockResult{
			Success:   true,
			Action:    BlockActionAlreadyBlocked,
			Message:   fmt.Sprintf("IP %s is already blocked until %s", ip, existing.ExpiresAt.Format(time.RFC3339)),
			ExpiresAt: existing.ExpiresAt,
		}
	}

	setID, err := s.ipset.AddAddress(ctx, policy.IPSetName, ipset.Scope(policy.Scope), ip)
	if err != nil {
		log.WithError(err).Error("failed to add IP to firewall set")
		return BlockResult{Action: BlockActionFailed, Message: err.Error()}
	}

	now := time.Now()
	expires := now.Add(policy.BlockDuration())
	if found {
		existing.Reason = reason
		existing.BlockedBy = blockedBy
		existing.BlockedAt = now
		existing.ExpiresAt = expires
		existing.WAFIPSetID = setID
		existing.IsActive = true
		err = s.db.Save(&existing).Error
	} else {
		err = s.db.Create(&models.BlockedIP{
			OrganizationID: organizationID,
			IPAddress:      ip,
			Reason:         reason,
			BlockedBy:      blockedBy,
			BlockedAt:      now,
			ExpiresAt:      expires,
			WAFIPSetID:     setID,
			IsActive:       true,
		}).Error
	}
	if err != nil {
		return BlockResult{Action: BlockActionFailed, Message: fmt.Sprintf("persist block record: %v", err)}
	}

	if blockedBy == models.BlockedByAuto {
		metrics.IncAutoBlock()
	} else {
		metrics.IncManualBlock()
	}
	log.WithFields(map[string]interface{}{"blocked_by": blockedBy, "expires_at": expires}).Info("IP blocked")

	return BlockResult{
		Success:   true,
		Action:    BlockActionBlocked,
		Message:   fmt.Sprintf("IP %s blocked until %s", ip, expires.Format(time.RFC3339)),
		ExpiresAt: expires,
	}
}

// UnblockIP drives the Blocked -> Unblocked transition. An IP with no record
// is already unblocked, so that is a success. A firewall removal failure is
// logged and suppressed: the database record is released regardless, since a
// phantom firewall entry is reconciled later while a permanently blocked
// record would not be.
func (s *BlocklistService) UnblockIP(ctx context.Context, organizationID, ip string, policy *models.AutoBlockPolicy) UnblockResult {
	unlock := s.lock(organizationID, ip)
	defer unlock()

	log := logger.WithFields(map[string]interface{}{"org": organizationID, "ip": ip})

	var record models.BlockedIP
	err := s.db.Where("organization_id = ? AND ip_address = ?", organizationID, ip).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return UnblockResult{Success: true, Message: fmt.Sprintf("IP %s is not blocked", ip)}
	}
	if err != nil {
		return UnblockResult{Message: fmt.Sprintf("lookup block record: %v", err)}
	}

	if err := s.ipset.RemoveAddress(ctx, policy.IPSetName, ipset.Scope(policy.Scope), ip); err != nil {
		log.WithError(err).Warn("failed to remove IP from firewall set; releasing DB record anyway")
	}

	if record.IsActive {
		record.IsActive = false
		if err := s.db.Save(&record).Error; err != nil {
			return UnblockResult{Message: fmt.Sprintf("release block record: %v", err)}
		}
		metrics.IncUnblock()
		log.Info("IP unblocked")
	}

	return UnblockResult{Success: true, Message: fmt.Sprintf("IP %s unblocked", ip)}
}

// UnblockExpired sweeps every active record whose window has lapsed. One IP's
// failure does not stop the sweep; the caller gets aggregate counts.
func (s *BlocklistService) UnblockExpired(ctx context.Context) SweepResult {
	var expired []models.BlockedIP
	if err := s.db.Where("is_active = ? AND expires_at <= ?", true, time.Now()).Find(&expired).Error; err != nil {
		logger.Log().WithError(err).Error("failed to query expired blocks")
		metrics.IncSweepError()
		return SweepResult{Errors: 1}
	}

	var result SweepResult
	for _, record := range expired {
		policy, err := s.PolicyFor(record.OrganizationID)
		if err != nil {
			logger.WithFields(map[string]interface{}{"org": record.OrganizationID}).
				WithError(err).Warn("no policy for expired block; skipping")
			metrics.IncSweepError()
			result.Errors++
			continue
		}

		res := s.UnblockIP(ctx, record.OrganizationID, record.IPAddress, policy)
		if res.Success {
			result.Unblocked++
		} else {
			metrics.IncSweepError()
			result.Errors++
		}
	}

	if result.Unblocked > 0 || result.Errors > 0 {
		logger.WithFields(map[string]interface{}{"unblocked": result.Unblocked, "errors": result.Errors}).
			Info("expired block sweep finished")
	}
	return result
}

// ListBlocked returns the organization's block records, active first.
func (s *BlocklistService) ListBlocked(organizationID string, activeOnly bool) ([]models.BlockedIP, error) {
	var records []models.BlockedIP
	query := s.db.Where("organization_id = ?", organizationID).Order("is_active desc, blocked_at desc")
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}
	err := query.Find(&records).Error
	return records, err
}

func (s *BlocklistService) lock(organizationID, ip string) func() {
	key := organizationID + "/" + ip
	actual, _ := s.locks.LoadOrStore(key, &sync.Mutex{})
	mu := actual.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}
