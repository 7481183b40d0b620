// overrides.go carries per-capture context supplied by the caller.

package xrayradar

import (
	"fmt"
	"maps"
)

// Overrides is per-capture context layered over the scope snapshot.
// Fields holds free-form keys; recognized event keys are routed to their
// fields and everything else lands in Extra verbatim.
type Overrides struct {
	Level       Level
	Message     string
	Logger      string
	Tags        map[string]string
	Extra       map[string]any
	User        *User
	Request     *Request
	Fingerprint []string
	Environment string
	Release     string
	ServerName  string
	Fields      map[string]any
}

// CaptureOption configures a single capture call.
type CaptureOption func(*Overrides)

// WithLevel sets the event level.
func WithLevel(level Level) CaptureOption {
	return func(o *Overrides) {
		o.Level = level
	}
}

// WithMessage sets the event message. For exceptions it accompanies the
// exception payload, e.g. the formatted log line that carried the error.
func WithMessage(msg string) CaptureOption {
	return func(o *Overrides) {
		o.Message = msg
	}
}

// WithLoggerName records the name of the logger that produced the event.
func WithLoggerName(name string) CaptureOption {
	return func(o *Overrides) {
		o.Logger = name
	}
}

// WithTag adds one tag.
func WithTag(key, value string) CaptureOption {
	return func(o *Overrides) {
		if o.Tags == nil {
			o.Tags = make(map[string]string)
		}
		o.Tags[key] = value
	}
}

// WithTags merges tags into the event tags.
func WithTags(tags map[string]string) CaptureOption {
	return func(o *Overrides) {
		if o.Tags == nil {
			o.Tags = make(map[string]string, len(tags))
		}
		maps.Copy(o.Tags, tags)
	}
}

// WithExtra adds one extra value.
func WithExtra(key string, value any) CaptureOption {
	return func(o *Overrides) {
		if o.Extra == nil {
			o.Extra = make(map[string]any)
		}
		o.Extra[key] = value
	}
}

// WithUser replaces the scope user for this event.
func WithUser(u User) CaptureOption {
	return func(o *Overrides) {
		o.User = &u
	}
}

// WithRequest attaches a request snapshot.
func WithRequest(r Request) CaptureOption {
	return func(o *Overrides) {
		o.Request = &r
	}
}

// WithFingerprint overrides the computed grouping fingerprint.
func WithFingerprint(parts ...string) CaptureOption {
	return func(o *Overrides) {
		o.Fingerprint = parts
	}
}

// WithFields attaches arbitrary keyword context. Known event keys (level,
// message, logger, tags, extra, user, request, fingerprint, environment,
// release, server_name) set their fields; any other key is stored under
// extra with its name unchanged.
func WithFields(fields map[string]any) CaptureOption {
	return func(o *Overrides) {
		if o.Fields == nil {
			o.Fields = make(map[string]any, len(fields))
		}
		maps.Copy(o.Fields, fields)
	}
}

func collectOverrides(opts []CaptureOption) Overrides {
	var ov Overrides
	for _, opt := range opts {
		if opt != nil {
			opt(&ov)
		}
	}
	return ov
}

// resolveFields routes Fields into typed overrides. Values of the wrong type
// for a known key are kept as extra so no caller context is lost. Free-form
// keys are applied after the "extra" field, so a top-level key wins over the
// same key inside it.
func (o Overrides) resolveFields() Overrides {
	if len(o.Fields) == 0 {
		return o
	}
	out := o
	out.Tags = maps.Clone(o.Tags)
	out.Extra = maps.Clone(o.Extra)
	if out.Extra == nil {
		out.Extra = make(map[string]any)
	}

	var rest []string
	for key, value := range o.Fields {
		if !out.applyField(key, value) {
			rest = append(rest, key)
		}
	}
	for _, key := range rest {
		out.Extra[key] = o.Fields[key]
	}
	out.Fields = nil
	return out
}

func (o *Overrides) applyField(key string, value any) bool {
	switch key {
	case "level":
		switch v := value.(type) {
		case Level:
			if v.Valid() {
				o.Level = v
				return true
			}
		case string:
			if lvl, err := ParseLevel(v); err == nil {
				o.Level = lvl
				return true
			}
		}
	case "message":
		if v, ok := value.(string); ok {
			o.Message = v
			return true
		}
	case "logger":
		if v, ok := value.(string); ok {
			o.Logger = v
			return true
		}
	case "environment":
		if v, ok := value.(string); ok {
			o.Environment = v
			return true
		}
	case "release":
		if v, ok := value.(string); ok {
			o.Release = v
			return true
		}
	case "server_name":
		if v, ok := value.(string); ok {
			o.ServerName = v
			return true
		}
	case "tags":
		switch v := value.(type) {
		case map[string]string:
			if o.Tags == nil {
				o.Tags = make(map[string]string, len(v))
			}
			maps.Copy(o.Tags, v)
			return true
		case map[string]any:
			if o.Tags == nil {
				o.Tags = make(map[string]string, len(v))
			}
			for k, tv := range v {
				o.Tags[k] = fmt.Sprint(tv)
			}
			return true
		}
	case "extra":
		if v, ok := value.(map[string]any); ok {
			maps.Copy(o.Extra, v)
			return true
		}
	case "user":
		switch v := value.(type) {
		case User:
			o.User = &v
			return true
		case *User:
			if v != nil {
				u := *v
				o.User = &u
				return true
			}
		}
	case "request":
		switch v := value.(type) {
		case Request:
			o.Request = &v
			return true
		case *Request:
			if v != nil {
				r := *v
				o.Request = &r
				return true
			}
		}
	case "fingerprint":
		if v, ok := value.([]string); ok {
			o.Fingerprint = v
			return true
		}
	}
	return false
}
