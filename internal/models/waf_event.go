package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// WafEvent is one firewall log event together with the classifier's verdict,
// persisted for dashboards and per-IP aggregation.
type WafEvent struct {
	ID             uint   `json:"id" gorm:"primaryKey"`
	UUID           string `json:"uuid" gorm:"uniqueIndex"`
	OrganizationID string `json:"organization_id" gorm:"index:idx_waf_events_org_ip;size:64"`
	SourceIP       string `json:"source_ip" gorm:"index:idx_waf_events_org_ip;size:64"`

	URI         string `json:"uri"`
	UserAgent   string `json:"user_agent"`
	Action      string `json:"action"` // BLOCK, ALLOW, COUNT
	RuleMatched string `json:"rule_matched"`

	ThreatType        string  `json:"threat_type" gorm:"index"`
	Severity          string  `json:"severity" gorm:"index"`
	Confidence        float64 `json:"confidence"`
	Indicators        string  `json:"indicators" gorm:"type:text"` // newline-separated audit strings
	RecommendedAction string  `json:"recommended_action"`

	ObservedAt time.Time `json:"observed_at" gorm:"index"`
	CreatedAt  time.Time `json:"created_at"`
}

func (e *WafEvent) BeforeCreate(tx *gorm.DB) (err error) {
	if e.UUID == "" {
		e.UUID = uuid.NewString()
	}
	return
}
