package service

import (
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/caimari/musedock-sub009/internal/core/ports"
)

// WAFRule is a named request pattern.
type WAFRule struct {
	Name    string
	Pattern *regexp.Regexp
	// Agent rules match the User-Agent instead of the path and query.
	Agent bool
}

// DefaultWAFRules is a compact signature list for the most common attack scans.
func DefaultWAFRules() []WAFRule {
	return []WAFRule{
		{Name: "sql_injection", Pattern: regexp.MustCompile(`(?i)(\bunion\b[\s(]+\bselect\b|\bselect\b.+\bfrom\b.+\bwhere\b|\bor\b\s+\d+\s*=\s*\d+|;\s*drop\s+table|sleep\s*\(\s*\d+\s*\)|benchmark\s*\()`)},
		{Name: "xss", Pattern: regexp.MustCompile(`(?i)(<\s*script\b|javascript\s*:|\bon(error|load|mouseover)\s*=|<\s*iframe\b)`)},
		{Name: "path_traversal", Pattern: regexp.MustCompile(`(\.\./|\.\.\\|%2e%2e%2f|/etc/passwd|\bboot\.ini\b)`)},
		{Name: "scanner", Pattern: regexp.MustCompile(`(?i)(sqlmap|nikto|acunetix|nessus|masscan|wpscan)`), Agent: true},
	}
}

// RuleWAF is a signature-based WAF.
type RuleWAF struct {
	rules []WAFRule
}

// NewRuleWAF returns a WAF over rules, or DefaultWAFRules when rules is empty.
func NewRuleWAF(rules ...WAFRule) ports.WAF {
	if len(rules) == 0 {
		rules = DefaultWAFRules()
	}
	return &RuleWAF{rules: rules}
}

func (w *RuleWAF) Inspect(r *http.Request) string {
	target := r.URL.Path + "?" + r.URL.RawQuery
	if decoded, err := url.QueryUnescape(target); err == nil {
		target = target + "\n" + decoded
	}
	target = strings.ToLower(target)
	agent := r.UserAgent()

	for _, rule := range w.rules {
		subject := target
		if rule.Agent {
			subject = agent
		}
		if rule.Pattern.MatchString(subject) {
			return rule.Name
		}
	}
	return ""
}
