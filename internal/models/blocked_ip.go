package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Who initiated a block.
const (
	BlockedByAuto   = "auto"
	BlockedByManual = "manual"
)

// BlockedIP is one blocked source address for one organization. At most one
// row exists per (organization, ip) pair; an expired or unblocked row is kept
// with IsActive=false for audit and reused on the next block.
type BlockedIP struct {
	ID             uint      `json:"id" gorm:"primaryKey"`
	UUID           string    `json:"uuid" gorm:"uniqueIndex"`
	OrganizationID string    `json:"organization_id" gorm:"uniqueIndex:idx_blocked_ips_org_ip;size:64"`
	IPAddress      string    `json:"ip_address" gorm:"uniqueIndex:idx_blocked_ips_org_ip;size:64"`
	Reason         string    `json:"reason"`
	BlockedBy      string    `json:"blocked_by"` // auto, manual
	BlockedAt      time.Time `json:"blocked_at"`
	ExpiresAt      time.Time `json:"expires_at" gorm:"index"`
	WAFIPSetID     string    `json:"waf_ip_set_id"`
	IsActive       bool      `json:"is_active" gorm:"index"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (b *BlockedIP) BeforeCreate(tx *gorm.DB) (err error) {
	if b.UUID == "" {
		b.UUID = uuid.NewString()
	}
	return
}

// Expired reports whether the block window has lapsed at the given instant.
func (b *BlockedIP) Expired(now time.Time) bool {
	return !b.ExpiresAt.After(now)
}
