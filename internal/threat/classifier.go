package threat

import (
	"math"
	"net/url"
	"strings"
)

// AnalyzeEvent classifies one parsed firewall log event against the static
// rule tables. Pure and deterministic: no I/O, no clock, identical input
// yields an identical Analysis.
func AnalyzeEvent(ev ParsedEvent) Analysis {
	var (
		indicators []string
		matchedSev Severity
		anyMatch   bool
	)

	note := func(category, name string, sev Severity) {
		indicators = append(indicators, category+": "+name)
		matchedSev = maxSeverity(matchedSev, sev)
		anyMatch = true
	}

	// User-agent table. A blank user agent always matches the synthetic rule;
	// the regex rules are still evaluated so indicators can co-occur.
	var uaNames []string
	if strings.TrimSpace(ev.UserAgent) == "" {
		uaNames = append(uaNames, emptyUserAgentRule.name)
		note("Suspicious User-Agent", emptyUserAgentRule.name, emptyUserAgentRule.severity)
	}
	for _, r := range userAgentRules {
		if r.re.MatchString(ev.UserAgent) {
			uaNames = append(uaNames, r.name)
			note("Suspicious User-Agent", r.name, r.severity)
		}
	}

	// Sensitive paths are matched against the raw, undecoded URI.
	pathMatched := false
	for _, r := range sensitivePathRules {
		if r.re.MatchString(ev.URI) {
			pathMatched = true
			note("Sensitive Path", r.name, r.severity)
		}
	}

	// Attack signatures run against the decoded URI so encoded payloads do not
	// slip past. A URI that fails decoding is inspected as-is.
	decoded := ev.URI
	if d, err := url.PathUnescape(ev.URI); err == nil {
		decoded = d
	}
	firstSigType := TypeUnknown
	for _, r := range attackSignatures {
		if r.re.MatchString(decoded) {
			if firstSigType == TypeUnknown {
				firstSigType = r.threatType
			}
			note("Attack Signature", r.name, r.severity)
		}
	}

	threatType := TypeUnknown
	confidence := 0.5
	if len(uaNames) > 0 {
		if containsScannerName(uaNames) {
			threatType = TypeScannerDetected
			confidence = 0.9
		} else {
			threatType = TypeSuspiciousUserAgent
			confidence = 0.7
		}
	}
	if pathMatched && (threatType == TypeUnknown || threatType == TypeSuspiciousUserAgent) {
		threatType = TypeSensitivePathAccess
		confidence = math.Max(confidence, 0.8)
	}
	if firstSigType != TypeUnknown {
		threatType = firstSigType
		confidence = 0.95
	}
	if ev.Action == ActionBlock {
		confidence = math.Min(confidence+0.1, 1.0)
		if ev.RuleMatched != "" {
			indicators = append(indicators, "WAF Rule Matched: "+ev.RuleMatched)
		}
	}

	severity := matchedSev
	if !anyMatch {
		if ev.Action == ActionBlock {
			severity = SeverityMedium
		} else {
			severity = SeverityLow
		}
	}

	return Analysis{
		ThreatType:        threatType,
		Severity:          severity,
		Confidence:        confidence,
		Indicators:        indicators,
		RecommendedAction: recommendAction(severity, confidence),
	}
}

func containsScannerName(names []string) bool {
	for _, n := range names {
		if strings.Contains(n, "Scanner") || strings.Contains(n, "Scan") {
			return true
		}
	}
	return false
}

func recommendAction(severity Severity, confidence float64) string {
	switch {
	case severity == SeverityCritical:
		return RecommendBlock
	case severity == SeverityHigh:
		return RecommendAlert
	case severity == SeverityMedium && confidence > 0.8:
		return RecommendAlert
	default:
		return RecommendMonitor
	}
}
