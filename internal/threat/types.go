package threat

import "time"

// Severity is the ordered threat severity scale: critical > high > medium > low.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Rank maps a severity onto an integer so severities can be compared.
// Unknown values rank below low.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

// AtLeast reports whether s is equal to or more severe than other.
func (s Severity) AtLeast(other Severity) bool {
	return s.Rank() >= other.Rank()
}

func maxSeverity(a, b Severity) Severity {
	if b.Rank() > a.Rank() {
		return b
	}
	return a
}

// Type classifies what kind of threat an event represents.
type Type string

const (
	TypeSQLInjection        Type = "sql_injection"
	TypeXSS                 Type = "xss"
	TypePathTraversal       Type = "path_traversal"
	TypeCommandInjection    Type = "command_injection"
	TypeScannerDetected     Type = "scanner_detected"
	TypeSensitivePathAccess Type = "sensitive_path_access"
	TypeRateLimitExceeded   Type = "rate_limit_exceeded"
	TypeSuspiciousUserAgent Type = "suspicious_user_agent"
	TypeBotDetected         Type = "bot_detected"
	TypeCredentialStuffing  Type = "credential_stuffing"
	TypeUnknown             Type = "unknown"
)

// Firewall actions as they appear in the raw log line.
const (
	ActionBlock = "BLOCK"
	ActionAllow = "ALLOW"
	ActionCount = "COUNT"
)

// Recommended responses for a classified event.
const (
	RecommendMonitor = "monitor"
	RecommendAlert   = "alert"
	RecommendBlock   = "block"
)

// ParsedEvent is one firewall log line after parsing. It is consumed
// read-only; the classifier never mutates it.
type ParsedEvent struct {
	URI         string    `json:"uri"`
	UserAgent   string    `json:"user_agent"`
	Action      string    `json:"action"`
	RuleMatched string    `json:"rule_matched"`
	SourceIP    string    `json:"source_ip"`
	Timestamp   time.Time `json:"timestamp"`
}

// Analysis is the classifier's verdict for a single event. It is transient:
// callers persist whatever projection of it they need.
type Analysis struct {
	ThreatType        Type     `json:"threat_type"`
	Severity          Severity `json:"severity"`
	Confidence        float64  `json:"confidence"`
	Indicators        []string `json:"indicators"`
	RecommendedAction string   `json:"recommended_action"`
}
