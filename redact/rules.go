// Package redact scrubs secrets and personal data from chat sessions before
// they are exported.
package redact

import (
	"fmt"
	"regexp"
)

// Rule detects sensitive data in a string and provides a replacement.
type Rule interface {
	Name() string
	Kind() string
	Detect(s string) []Match
	Replacement(m Match) string
}

// Match is one detected occurrence, as byte offsets into the input.
type Match struct {
	Start int
	End   int
	Value string
}

const (
	kindSecret = "secret"
	kindPII    = "pii"
)

// patternRule redacts every match of a regular expression.
type patternRule struct {
	name string
	kind string
	re   *regexp.Regexp
}

func newPatternRule(kind, name, expr string) Rule {
	return &patternRule{name: name, kind: kind, re: regexp.MustCompile(expr)}
}

func (r *patternRule) Name() string { return r.name }
func (r *patternRule) Kind() string { return r.kind }

func (r *patternRule) Detect(s string) []Match {
	var matches []Match
	for _, loc := range r.re.FindAllStringIndex(s, -1) {
		matches = append(matches, Match{Start: loc[0], End: loc[1], Value: s[loc[0]:loc[1]]})
	}
	return matches
}

func (r *patternRule) Replacement(Match) string {
	return fmt.Sprintf("[REDACTED:%s]", r.name)
}

// SecretRules covers credentials a student may paste into a question: keys
// for the model and Google APIs behind the platform, the platform's own
// session cookie, bearer tokens and PEM keys.
func SecretRules() []Rule {
	return []Rule{
		newPatternRule(kindSecret, "openai_key", `sk-(?:proj-)?[A-Za-z0-9_\-]{32,}`),
		newPatternRule(kindSecret, "google_api_key", `AIza[0-9A-Za-z_\-]{35}`),
		newPatternRule(kindSecret, "google_oauth_token", `ya29\.[0-9A-Za-z_\-]{20,}`),
		newPatternRule(kindSecret, "session_cookie", `session_id=[A-Za-z0-9\-_.]{16,}`),
		newPatternRule(kindSecret, "jwt", `eyJ[A-Za-z0-9\-_]+\.eyJ[A-Za-z0-9\-_]+\.[A-Za-z0-9\-_.+/=]+`),
		newPatternRule(kindSecret, "private_key", `-----BEGIN [A-Z ]+PRIVATE KEY-----`),
	}
}

// PIIRules covers contact details and Thai identity numbers.
func PIIRules() []Rule {
	return []Rule{
		newPatternRule(kindPII, "email", `[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`),
		// 13 digits, optionally grouped 1-4-5-2-1.
		newPatternRule(kindPII, "thai_id", `\b\d-?\d{4}-?\d{5}-?\d{2}-?\d\b`),
		// Thai mobile and landline numbers, local (0...) or international (+66...).
		newPatternRule(kindPII, "phone", `(?:\+66[\s\-]?|\b0)[2-9]\d?[\s\-]?\d{3}[\s\-]?\d{3,4}\b`),
	}
}
