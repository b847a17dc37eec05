package logging

import (
	"log/slog"
	"net/url"
	"regexp"
	"strings"
)

// Redactor masks credentials in log attributes.
type Redactor struct {
	patterns []*redactPattern
}

type redactPattern struct {
	regex       *regexp.Regexp
	replacement string
}

const masked = "***"

// urlMasked replaces URL components; it needs no escaping.
const urlMasked = "redacted"

// sensitiveKeys mark attributes whose whole value is masked.
var sensitiveKeys = []string{
	"password", "passwd", "secret", "token", "authorization", "dsn",
}

// NewRedactor creates a Redactor with the built-in patterns.
func NewRedactor() *Redactor {
	return &Redactor{
		patterns: []*redactPattern{
			// libpq key/value connection strings
			{regexp.MustCompile(`(password)=\S+`), "$1=" + masked},
			// Bearer tokens
			{regexp.MustCompile(`Bearer\s+[a-zA-Z0-9\-._~+/]+=*`), "Bearer " + masked},
		},
	}
}

// RedactString masks credentials embedded in value.
func (r *Redactor) RedactString(value string) string {
	if value == "" {
		return value
	}

	if u, err := url.Parse(value); err == nil && u.Scheme != "" && u.Host != "" {
		value = redactURL(u)
	}

	for _, p := range r.patterns {
		value = p.regex.ReplaceAllString(value, p.replacement)
	}
	return value
}

// ReplaceAttr is a slog.HandlerOptions.ReplaceAttr hook.
func (r *Redactor) ReplaceAttr(groups []string, a slog.Attr) slog.Attr {
	if a.Value.Kind() != slog.KindString {
		return a
	}
	if isSensitiveKey(a.Key) {
		return slog.String(a.Key, masked)
	}
	return slog.String(a.Key, r.RedactString(a.Value.String()))
}

// redactURL masks the password and the path of webhook-style URLs, which
// commonly embed tokens.
func redactURL(u *url.URL) string {
	if u.User != nil {
		if _, ok := u.User.Password(); ok {
			u.User = url.UserPassword(u.User.Username(), urlMasked)
		}
	}
	if u.RawQuery != "" {
		u.RawQuery = urlMasked
	}
	if strings.Count(u.Path, "/") > 1 {
		u.Path = "/" + urlMasked
		u.RawPath = ""
	}
	return u.String()
}

func isSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, sensitive := range sensitiveKeys {
		if strings.Contains(lower, sensitive) {
			return true
		}
	}
	return false
}
