// request.go defines the contracts framework collaborators rely on.

package xrayradar

import (
	"context"
	"strings"
)

// RequestSource is the read-only view of an inbound request that a framework
// adapter exposes.
type RequestSource interface {
	Method() string
	URL() string
	Headers() map[string][]string
	RemoteAddr() string
}

// NewRequestSnapshot copies src into a Request. Sensitive headers such as
// Authorization and Cookie are removed.
func NewRequestSnapshot(src RequestSource) Request {
	if src == nil {
		return Request{}
	}
	path, query, _ := strings.Cut(src.URL(), "?")
	return Request{
		Method:      src.Method(),
		URL:         path,
		QueryString: query,
		Headers:     RedactHeaders(src.Headers()),
		RemoteAddr:  src.RemoteAddr(),
	}
}

// Capturer is what framework and logging collaborators need from a tracker.
type Capturer interface {
	CaptureException(ctx context.Context, err error, opts ...CaptureOption) string
	CaptureMessage(ctx context.Context, msg string, opts ...CaptureOption) string
	AddBreadcrumb(b Breadcrumb)
}
