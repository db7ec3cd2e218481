package threat

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAnalyzeEvent_SQLInjectionBlocked(t *testing.T) {
	ev := ParsedEvent{
		URI:         "/products?id=1' OR '1'='1",
		UserAgent:   "Mozilla/5.0",
		Action:      ActionBlock,
		RuleMatched: "SQLiRule",
		SourceIP:    "203.0.113.10",
	}

	a := AnalyzeEvent(ev)

	assert.Equal(t, TypeSQLInjection, a.ThreatType)
	assert.Equal(t, SeverityCritical, a.Severity)
	assert.InDelta(t, 1.0, a.Confidence, 1e-9)
	assert.Equal(t, RecommendBlock, a.RecommendedAction)
	assert.Contains(t, a.Indicators, "Attack Signature: OR 1=1")
	assert.Contains(t, a.Indicators, "WAF Rule Matched: SQLiRule")
}

func TestAnalyzeEvent_ScannerUserAgent(t *testing.T) {
	ev := ParsedEvent{URI: "/", UserAgent: "sqlmap/1.6", Action: ActionCount}

	a := AnalyzeEvent(ev)

	assert.Equal(t, TypeScannerDetected, a.ThreatType)
	assert.InDelta(t, 0.9, a.Confidence, 1e-9)
	assert.Equal(t, SeverityCritical, a.Severity)
	assert.Equal(t, RecommendBlock, a.RecommendedAction)
	assert.Contains(t, a.Indicators, "Suspicious User-Agent: SQLMap Scanner")
}

func TestAnalyzeEvent_EmptyUserAgent(t *testing.T) {
	ev := ParsedEvent{URI: "/health", UserAgent: "", Action: ActionAllow}

	a := AnalyzeEvent(ev)

	assert.Equal(t, TypeSuspiciousUserAgent, a.ThreatType)
	assert.Equal(t, SeverityMedium, a.Severity)
	assert.InDelta(t, 0.7, a.Confidence, 1e-9)
	assert.Equal(t, RecommendMonitor, a.RecommendedAction)
	assert.Contains(t, a.Indicators, "Suspicious User-Agent: Empty User-Agent")
}

func TestAnalyzeEvent_SensitivePath(t *testing.T) {
	ev := ParsedEvent{URI: "/.env", UserAgent: "Mozilla/5.0", Action: ActionAllow}

	a := AnalyzeEvent(ev)

	assert.Equal(t, TypeSensitivePathAccess, a.ThreatType)
	assert.InDelta(t, 0.8, a.Confidence, 1e-9)
	assert.Equal(t, SeverityHigh, a.Severity)
	assert.Equal(t, RecommendAlert, a.RecommendedAction)
	assert.Contains(t, a.Indicators, "Sensitive Path: Environment File")
}

func TestAnalyzeEvent_SignatureOverridesUserAgentType(t *testing.T) {
	// A scanner UA plus an attack payload: the signature's type wins, but the
	// user-agent indicator is still present.
	ev := ParsedEvent{
		URI:       "/search?q=<script>alert(1)</script>",
		UserAgent: "sqlmap/1.6",
		Action:    ActionCount,
	}

	a := AnalyzeEvent(ev)

	assert.Equal(t, TypeXSS, a.ThreatType)
	assert.InDelta(t, 0.95, a.Confidence, 1e-9)
	assert.Contains(t, a.Indicators, "Suspicious User-Agent: SQLMap Scanner")
	assert.Contains(t, a.Indicators, "Attack Signature: Script Tag")
}

func TestAnalyzeEvent_EncodedTraversalDecodedBeforeMatch(t *testing.T) {
	ev := ParsedEvent{
		URI:       "/files?name=%2e%2e%2f%2e%2e%2fetc%2fpasswd",
		UserAgent: "Mozilla/5.0",
		Action:    ActionCount,
	}

	a := AnalyzeEvent(ev)

	assert.Equal(t, TypePathTraversal, a.ThreatType)
	assert.Contains(t, a.Indicators, "Attack Signature: Directory Traversal")
	assert.Contains(t, a.Indicators, "Attack Signature: System File Access")
}

func TestAnalyzeEvent_MalformedEncodingFallsBackToRaw(t *testing.T) {
	// "%zz" is invalid percent-encoding; the raw URI is inspected instead and
	// the literal traversal still matches.
	ev := ParsedEvent{
		URI:       "/files?name=%zz/../../etc/passwd",
		UserAgent: "Mozilla/5.0",
		Action:    ActionCount,
	}

	a := AnalyzeEvent(ev)

	assert.Equal(t, TypePathTraversal, a.ThreatType)
}

func TestAnalyzeEvent_NoMatches(t *testing.T) {
	allow := AnalyzeEvent(ParsedEvent{URI: "/index.html", UserAgent: "Mozilla/5.0", Action: ActionAllow})
	assert.Equal(t, TypeUnknown, allow.ThreatType)
	assert.Equal(t, SeverityLow, allow.Severity)
	assert.InDelta(t, 0.5, allow.Confidence, 1e-9)
	assert.Empty(t, allow.Indicators)
	assert.Equal(t, RecommendMonitor, allow.RecommendedAction)

	// Same event blocked by the firewall: severity medium, confidence bumped.
	blocked := AnalyzeEvent(ParsedEvent{URI: "/index.html", UserAgent: "Mozilla/5.0", Action: ActionBlock})
	assert.Equal(t, TypeUnknown, blocked.ThreatType)
	assert.Equal(t, SeverityMedium, blocked.Severity)
	assert.InDelta(t, 0.6, blocked.Confidence, 1e-9)
}

func TestAnalyzeEvent_Deterministic(t *testing.T) {
	ev := ParsedEvent{
		URI:         "/admin?cmd=;cat /etc/passwd",
		UserAgent:   "curl/8.0",
		Action:      ActionBlock,
		RuleMatched: "CmdRule",
	}

	first := AnalyzeEvent(ev)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, AnalyzeEvent(ev))
	}
}

func TestAnalyzeEvent_FirstSignatureDecidesType(t *testing.T) {
	// Payload matches both a SQLi and a traversal signature; the SQLi entry
	// comes first in the table, so sql_injection wins regardless of severity.
	ev := ParsedEvent{
		URI:       "/p?id=1' OR '1'='1&f=../../secret",
		UserAgent: "Mozilla/5.0",
		Action:    ActionCount,
	}

	a := AnalyzeEvent(ev)

	assert.Equal(t, TypeSQLInjection, a.ThreatType)
	assert.Contains(t, a.Indicators, "Attack Signature: OR 1=1")
	assert.Contains(t, a.Indicators, "Attack Signature: Directory Traversal")
}

func TestSeverityRankOrdering(t *testing.T) {
	assert.True(t, SeverityCritical.Rank() > SeverityHigh.Rank())
	assert.True(t, SeverityHigh.Rank() > SeverityMedium.Rank())
	assert.True(t, SeverityMedium.Rank() > SeverityLow.Rank())
	assert.True(t, SeverityLow.AtLeast(SeverityLow))
	assert.False(t, SeverityLow.AtLeast(SeverityMedium))
}
