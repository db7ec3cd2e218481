package models

import "time"

// DefaultOrganizationID is the policy row applied to organizations without
// one of their own.
const DefaultOrganizationID = "default"

// AutoBlockPolicy is the per-organization auto-block configuration: when the
// qualifying event count for a source IP inside the window reaches Threshold,
// the IP is blocked for BlockDurationHours.
type AutoBlockPolicy struct {
	ID                 uint      `json:"id" gorm:"primaryKey"`
	OrganizationID     string    `json:"organization_id" gorm:"uniqueIndex;size:64"`
	Enabled            bool      `json:"enabled"`
	Threshold          int       `json:"threshold"`
	BlockDurationHours int       `json:"block_duration_hours"`
	WindowMinutes      int       `json:"window_minutes"`
	IPSetName          string    `json:"ip_set_name"`
	Scope              string    `json:"scope"` // REGIONAL, EDGE
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// BlockDuration returns the configured block window as a duration.
func (p *AutoBlockPolicy) BlockDuration() time.Duration {
	return time.Duration(p.BlockDurationHours) * time.Hour
}

// Window returns the event-counting window as a duration.
func (p *AutoBlockPolicy) Window() time.Duration {
	return time.Duration(p.WindowMinutes) * time.Minute
}
