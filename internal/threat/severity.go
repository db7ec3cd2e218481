package threat

// baseSeverity is the starting point for escalation, keyed by threat type.
var baseSeverity = map[Type]Severity{
	TypeSQLInjection:        SeverityCritical,
	TypeCommandInjection:    SeverityCritical,
	TypePathTraversal:       SeverityHigh,
	TypeXSS:                 SeverityHigh,
	TypeScannerDetected:     SeverityHigh,
	TypeCredentialStuffing:  SeverityHigh,
	TypeSensitivePathAccess: SeverityMedium,
	TypeRateLimitExceeded:   SeverityMedium,
	TypeSuspiciousUserAgent: SeverityLow,
	TypeBotDetected:         SeverityLow,
	TypeUnknown:             SeverityLow,
}

// CalculateSeverity derives an escalated severity for a threat type observed
// eventCount times. isBlocked reports whether the firewall already stopped the
// request: a threat that got through is one step more severe than an
// equivalent blocked one.
func CalculateSeverity(t Type, eventCount int, isBlocked bool) Severity {
	sev, ok := baseSeverity[t]
	if !ok {
		sev = SeverityLow
	}

	// Frequency escalation, highest threshold wins.
	switch {
	case eventCount >= 100:
		sev = SeverityCritical
	case eventCount >= 50:
		if sev != SeverityCritical {
			sev = SeverityHigh
		}
	case eventCount >= 10:
		if sev == SeverityLow {
			sev = SeverityMedium
		}
	}

	if !isBlocked && t != TypeUnknown {
		sev = stepUp(sev)
	}
	return sev
}

func stepUp(s Severity) Severity {
	switch s {
	case SeverityLow:
		return SeverityMedium
	case SeverityMedium:
		return SeverityHigh
	case SeverityHigh:
		return SeverityCritical
	default:
		return SeverityCritical
	}
}
