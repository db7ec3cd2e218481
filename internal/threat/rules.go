package threat

import "regexp"

// Rule tables are data, not code branches: ordered lists compiled once at
// package init. Every rule that matches contributes an indicator; severity is
// the maximum across all matches.

type userAgentRule struct {
	re       *regexp.Regexp
	name     string
	severity Severity
}

type pathRule struct {
	re       *regexp.Regexp
	name     string
	severity Severity
}

type signatureRule struct {
	re         *regexp.Regexp
	name       string
	severity   Severity
	threatType Type
}

// emptyUserAgentRule is the synthetic entry matched whenever the user agent
// header is absent or blank.
var emptyUserAgentRule = userAgentRule{name: "Empty User-Agent", severity: SeverityMedium}

var userAgentRules = []userAgentRule{
	{regexp.MustCompile(`(?i)sqlmap`), "SQLMap Scanner", SeverityCritical},
	{regexp.MustCompile(`(?i)nikto`), "Nikto Scanner", SeverityCritical},
	{regexp.MustCompile(`(?i)nessus`), "Nessus Scanner", SeverityHigh},
	{regexp.MustCompile(`(?i)acunetix`), "Acunetix Scanner", SeverityHigh},
	{regexp.MustCompile(`(?i)\bnmap\b`), "Nmap Scanner", SeverityHigh},
	{regexp.MustCompile(`(?i)masscan`), "Masscan Scanner", SeverityHigh},
	{regexp.MustCompile(`(?i)(dirbuster|gobuster|dirb\b|feroxbuster)`), "Directory Scanner", SeverityHigh},
	{regexp.MustCompile(`(?i)(wpscan|joomscan|droopescan)`), "CMS Scanner", SeverityHigh},
	{regexp.MustCompile(`(?i)(hydra|medusa|ncrack)`), "Credential Bruteforcer", SeverityHigh},
	{regexp.MustCompile(`(?i)(havij|pangolin)`), "SQL Injection Tool", SeverityCritical},
	{regexp.MustCompile(`(?i)zgrab`), "ZGrab Scanner", SeverityMedium},
	{regexp.MustCompile(`(?i)(headlesschrome|phantomjs)`), "Headless Browser", SeverityMedium},
	{regexp.MustCompile(`(?i)(python-requests|python-urllib|go-http-client|okhttp|libwww-perl)`), "Automation Library", SeverityLow},
	{regexp.MustCompile(`(?i)^(curl|wget)[/ ]`), "Scripted Client", SeverityLow},
}

var sensitivePathRules = []pathRule{
	{regexp.MustCompile(`(?i)/\.env(\.|$|\?|/)?`), "Environment File", SeverityHigh},
	{regexp.MustCompile(`(?i)/\.git(/|$|\?)`), "Git Repository", SeverityHigh},
	{regexp.MustCompile(`(?i)/\.aws/`), "AWS Credentials", SeverityHigh},
	{regexp.MustCompile(`(?i)/\.ssh/`), "SSH Key Material", SeverityHigh},
	{regexp.MustCompile(`(?i)/(wp-admin|wp-login\.php|xmlrpc\.php)`), "WordPress Admin", SeverityMedium},
	{regexp.MustCompile(`(?i)/(phpmyadmin|pma|adminer)`), "Database Console", SeverityHigh},
	{regexp.MustCompile(`(?i)/(admin|administrator)(/|$|\?)`), "Admin Panel", SeverityMedium},
	{regexp.MustCompile(`(?i)/(config|configuration)\.(php|json|ya?ml|xml)`), "Config File", SeverityHigh},
	{regexp.MustCompile(`(?i)/(backup|dump|db)\.(sql|zip|tar|gz|bak)`), "Backup Artifact", SeverityHigh},
	{regexp.MustCompile(`(?i)/server-status`), "Server Status Page", SeverityMedium},
	{regexp.MustCompile(`(?i)/actuator(/|$)`), "Actuator Endpoint", SeverityMedium},
	{regexp.MustCompile(`(?i)/id_rsa`), "Private Key", SeverityHigh},
}

// attackSignatures are matched against the URL-decoded request URI. Table
// order matters: the first matching signature decides the threat type.
var attackSignatures = []signatureRule{
	{regexp.MustCompile(`(?i)('|%27)\s*or\s*'?1'?\s*=\s*'?1`), "OR 1=1", SeverityCritical, TypeSQLInjection},
	{regexp.MustCompile(`(?i)union(\s|\+)+(all(\s|\+)+)?select`), "UNION SELECT", SeverityCritical, TypeSQLInjection},
	{regexp.MustCompile(`(?i)(sleep|benchmark|waitfor(\s|\+)+delay)\s*\(`), "Time-Based SQLi", SeverityCritical, TypeSQLInjection},
	{regexp.MustCompile(`(?i)information_schema`), "Schema Probe", SeverityHigh, TypeSQLInjection},
	{regexp.MustCompile(`(?i)'\s*(--|#)`), "SQL Comment Trailer", SeverityHigh, TypeSQLInjection},
	{regexp.MustCompile(`(?i)<\s*script`), "Script Tag", SeverityHigh, TypeXSS},
	{regexp.MustCompile(`(?i)javascript\s*:`), "JavaScript URI", SeverityHigh, TypeXSS},
	{regexp.MustCompile(`(?i)on(error|load|click|mouseover)\s*=`), "Event Handler Injection", SeverityHigh, TypeXSS},
	{regexp.MustCompile(`(?i)(document\.cookie|window\.location)`), "DOM Exfiltration", SeverityHigh, TypeXSS},
	{regexp.MustCompile(`\.\./|\.\.\\`), "Directory Traversal", SeverityHigh, TypePathTraversal},
	{regexp.MustCompile(`(?i)/etc/(passwd|shadow)`), "System File Access", SeverityHigh, TypePathTraversal},
	{regexp.MustCompile(`(?i)(c:\\|/windows/system32)`), "Windows Path Probe", SeverityHigh, TypePathTraversal},
	{regexp.MustCompile(`(?i);\s*(cat|ls|id|whoami|uname|nc|curl|wget)(\s|$|\+)`), "Shell Command Chain", SeverityCritical, TypeCommandInjection},
	{regexp.MustCompile(`\$\(|` + "`"), "Command Substitution", SeverityCritical, TypeCommandInjection},
	{regexp.MustCompile(`(?i)(\|\||&&)(\s|\+)*(cat|curl|wget|bash|sh)\b`), "Command Conjunction", SeverityCritical, TypeCommandInjection},
}
