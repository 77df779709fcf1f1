// Package redact strips credentials, answer keys and infrastructure details
// from error text before it is logged.
package redact

import "regexp"

// Placeholders substituted for redacted text.
const (
	CredentialPlaceholder = "[REDACTED_CREDENTIAL]"
	TokenPlaceholder      = "[REDACTED_TOKEN]"
	AnswerPlaceholder     = "[REDACTED_ANSWER]"
	SQLPlaceholder        = "[REDACTED_SQL]"
	PathPlaceholder       = "[REDACTED_PATH]"
	EmailPlaceholder      = "[REDACTED_EMAIL]"
	HostPlaceholder       = "[REDACTED_HOST]"
)

type rule struct {
	pattern     *regexp.Regexp
	replacement string
}

// Rules run in order; earlier rules see the unmodified text, so connection
// strings and tokens are replaced before the generic host and path rules.
var rules = []rule{
	{regexp.MustCompile(`(?i)\b(postgres(?:ql)?|pgx)://[^@\s]+@`), "$1://" + CredentialPlaceholder + "@"},
	{regexp.MustCompile(`(?i)\b(password|passwd|pwd)=\S+`), "$1=" + CredentialPlaceholder},
	{regexp.MustCompile(`eyJ[\w-]+\.eyJ[\w-]+\.[\w-]+`), TokenPlaceholder},
	{regexp.MustCompile(`(?i)\b(bearer)\s+\S+`), "$1 " + TokenPlaceholder},
	{regexp.MustCompile(`(?i)\b(jwt_secret|secret|api_key|token)(\s*[=:]\s*)['"]?[\w\-.~+/]{8,}['"]?`), "$1$2" + CredentialPlaceholder},
	{regexp.MustCompile(`(?i)\b(correct_answer|answer)(\s*[=:]\s*)('[^']*'|"[^"]*"|\S+)`), "$1$2" + AnswerPlaceholder},
	{regexp.MustCompile(`(?is)\b(SELECT|INSERT|UPDATE|DELETE)\b.*?\b(FROM|INTO|SET)\b[^;]*`), SQLPlaceholder},
	{regexp.MustCompile(`\b[\w.%+-]+@[\w.-]+\.[A-Za-z]{2,}\b`), EmailPlaceholder},
	{regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}(?::\d{1,5})?\b`), HostPlaceholder},
	{regexp.MustCompile(`(^|\s)(?:/[\w.-]+){2,}`), "${1}" + PathPlaceholder},
}

// String returns s with sensitive fragments replaced.
func String(s string) string {
	if s == "" {
		return s
	}
	for _, r := range rules {
		s = r.pattern.ReplaceAllString(s, r.replacement)
	}
	return s
}

// Error returns the redacted text of err, or "" for nil.
func Error(err error) string {
	if err == nil {
		return ""
	}
	return String(err.Error())
}
