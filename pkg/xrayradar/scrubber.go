// scrubber.go implements fail-closed redaction of secrets and PII in events.

package xrayradar

import (
	"net/http"
	"regexp"
	"strings"
)

const redacted = "[REDACTED]"

// ScrubberConfig controls scrubbing behavior.
type ScrubberConfig struct {
	// SensitiveKeys are extra substrings marking tag, extra, and breadcrumb
	// data keys whose values are replaced wholesale.
	SensitiveKeys []string

	// MaxMessageSize bounds messages and exception values (default: 4096).
	MaxMessageSize int

	// MaxValueSize bounds individual string values in tags and extra (default: 1024).
	MaxValueSize int

	// ScrubMessages enables pattern scrubbing of free text (default: true).
	ScrubMessages bool

	// NormalizePaths replaces user home directories in frame paths (default: true).
	NormalizePaths bool
}

// DefaultScrubberConfig returns production-safe defaults.
func DefaultScrubberConfig() ScrubberConfig {
	return ScrubberConfig{
		MaxMessageSize: 4096,
		MaxValueSize:   1024,
		ScrubMessages:  true,
		NormalizePaths: true,
	}
}

// Compiled once at package init.
var messageScrubPatterns = []*regexp.Regexp{
	// API keys and tokens
	regexp.MustCompile(`(?i)(api[_-]?key|token)[=:\s]+['"]?[\w\-\.]+['"]?`),
	regexp.MustCompile(`(?i)(authorization|bearer)[=:\s]+['"]?[\w\-\.]+['"]?[\s]+['"]?[\w\-\.]+['"]?`),
	regexp.MustCompile(`(?i)sk-[a-zA-Z0-9_-]{20,}`),
	regexp.MustCompile(`(?i)gh[po]_[a-zA-Z0-9]{36}`),
	regexp.MustCompile(`(?i)github_pat_[a-zA-Z0-9_]{22,}`),
	regexp.MustCompile(`(?i)xox[baprs]-[a-zA-Z0-9\-]{10,}`),
	regexp.MustCompile(`(?i)eyJ[a-zA-Z0-9_-]*\.eyJ[a-zA-Z0-9_-]*\.[a-zA-Z0-9_-]*`),

	// Credentials
	regexp.MustCompile(`(?i)(password|passwd|secret|credential)[=:\s]+['"]?[^\s'"",]+['"]?`),

	// PII
	regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`),
	regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`),
	regexp.MustCompile(`\b\d{4}[\s-]?\d{4}[\s-]?\d{4}[\s-]?\d{4}\b`),
}

// Case-insensitive substrings marking sensitive keys.
var sensitiveKeyPatterns = []string{
	"token",
	"key",
	"secret",
	"password",
	"credential",
	"auth",
	"passwd",
	"cookie",
}

var pathNormalizationPatterns = []*regexp.Regexp{
	regexp.MustCompile(`/home/[^/]+/`),
	regexp.MustCompile(`/Users/[^/]+/`),
	regexp.MustCompile(`C:\\Users\\[^\\]+\\`),
}

// sensitiveHeaders are always redacted from request snapshots.
var sensitiveHeaders = map[string]struct{}{
	"Authorization":       {},
	"Proxy-Authorization": {},
	"Cookie":              {},
	"Set-Cookie":          {},
	"X-Api-Key":           {},
	"X-Auth-Token":        {},
	"X-Csrftoken":         {},
	"X-Xrayradar-Token":   {},
}

// IsSensitiveHeader reports whether a header must never be reported.
func IsSensitiveHeader(name string) bool {
	_, ok := sensitiveHeaders[http.CanonicalHeaderKey(name)]
	return ok
}

// RedactHeaders flattens headers, dropping sensitive ones. Multiple values
// are joined with ", ".
func RedactHeaders(h map[string][]string) map[string]string {
	if len(h) == 0 {
		return nil
	}
	out := make(map[string]string, len(h))
	for name, values := range h {
		if IsSensitiveHeader(name) {
			continue
		}
		out[http.CanonicalHeaderKey(name)] = strings.Join(values, ", ")
	}
	return out
}

// Scrubber redacts sensitive data from events.
type Scrubber struct {
	cfg           ScrubberConfig
	sensitiveKeys []string
}

// NewScrubber creates a scrubber. Zero size limits take the defaults.
func NewScrubber(cfg ScrubberConfig) *Scrubber {
	defaults := DefaultScrubberConfig()
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = defaults.MaxMessageSize
	}
	if cfg.MaxValueSize <= 0 {
		cfg.MaxValueSize = defaults.MaxValueSize
	}
	keys := append([]string(nil), sensitiveKeyPatterns...)
	for _, k := range cfg.SensitiveKeys {
		keys = append(keys, strings.ToLower(k))
	}
	return &Scrubber{cfg: cfg, sensitiveKeys: keys}
}

// ScrubEvent returns a scrubbed copy of event. Maps and slices are copied
// before modification.
func (s *Scrubber) ScrubEvent(event Event) Event {
	event.Message = s.ScrubMessage(event.Message)

	if event.Exception != nil {
		list := ExceptionList{Values: make([]Exception, len(event.Exception.Values))}
		for i, exc := range event.Exception.Values {
			exc.Value = s.ScrubMessage(exc.Value)
			if exc.Stacktrace != nil && s.cfg.NormalizePaths {
				st := Stacktrace{Frames: make([]Frame, len(exc.Stacktrace.Frames))}
				for j, f := range exc.Stacktrace.Frames {
					f.AbsPath = normalizePath(f.AbsPath)
					st.Frames[j] = f
				}
				exc.Stacktrace = &st
			}
			list.Values[i] = exc
		}
		event.Exception = &list
	}

	if event.Tags != nil {
		tags := make(map[string]string, len(event.Tags))
		for k, v := range event.Tags {
			if s.isSensitiveKey(k) {
				tags[k] = redacted
				continue
			}
			tags[k] = truncateWithMarker(v, s.cfg.MaxValueSize)
		}
		event.Tags = tags
	}

	event.Extra = s.scrubMap(event.Extra)

	if event.Breadcrumbs != nil {
		crumbs := make([]Breadcrumb, len(event.Breadcrumbs))
		for i, b := range event.Breadcrumbs {
			b.Message = s.ScrubMessage(b.Message)
			b.Data = s.scrubMap(b.Data)
			crumbs[i] = b
		}
		event.Breadcrumbs = crumbs
	}

	if event.Request != nil {
		r := *event.Request
		r.QueryString = s.ScrubMessage(r.QueryString)
		if r.Headers != nil {
			headers := make(map[string]string, len(r.Headers))
			for k, v := range r.Headers {
				if IsSensitiveHeader(k) {
					continue
				}
				headers[k] = v
			}
			r.Headers = headers
		}
		event.Request = &r
	}
	return event
}

// ScrubMessage truncates msg and replaces secrets and PII.
func (s *Scrubber) ScrubMessage(msg string) string {
	if !s.cfg.ScrubMessages || msg == "" {
		return msg
	}
	msg = truncateWithMarker(msg, s.cfg.MaxMessageSize)
	for _, pattern := range messageScrubPatterns {
		msg = pattern.ReplaceAllString(msg, redacted)
	}
	return msg
}

// scrubMap redacts sensitive keys and scrubs nested values.
func (s *Scrubber) scrubMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		if s.isSensitiveKey(k) {
			out[k] = redacted
			continue
		}
		out[k] = s.scrubValue(v)
	}
	return out
}

func (s *Scrubber) scrubValue(v any) any {
	switch val := v.(type) {
	case string:
		return truncateWithMarker(s.ScrubMessage(val), s.cfg.MaxValueSize)
	case map[string]any:
		return s.scrubMap(val)
	case map[string]string:
		out := make(map[string]any, len(val))
		for k, sv := range val {
			out[k] = sv
		}
		return s.scrubMap(out)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = s.scrubValue(item)
		}
		return out
	case []string:
		out := make([]string, len(val))
		for i, item := range val {
			out[i] = truncateWithMarker(s.ScrubMessage(item), s.cfg.MaxValueSize)
		}
		return out
	default:
		return v
	}
}

func (s *Scrubber) isSensitiveKey(key string) bool {
	keyLower := strings.ToLower(key)
	for _, pattern := range s.sensitiveKeys {
		if strings.Contains(keyLower, pattern) {
			return true
		}
	}
	return false
}

func normalizePath(p string) string {
	for _, pattern := range pathNormalizationPatterns {
		p = pattern.ReplaceAllString(p, "/[PATH]/")
	}
	return p
}

// truncateWithMarker cuts s to maxLen bytes including a marker.
func truncateWithMarker(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	marker := "...[TRUNCATED]"
	if maxLen <= len(marker) {
		return marker[:maxLen]
	}
	return s[:maxLen-len(marker)] + marker
}
