// Package console provides a transport that prints events in human-readable
// form. Useful for development and debugging.
package console

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/xrayradar/xrayradar-go/pkg/xrayradar"
)

// Option configures the console transport.
type Option func(*consoleConfig)

type consoleConfig struct {
	out     io.Writer
	verbose bool
}

// WithWriter sets the destination (default: os.Stderr).
func WithWriter(w io.Writer) Option {
	return func(c *consoleConfig) {
		if w != nil {
			c.out = w
		}
	}
}

// WithVerbose adds stack frames, tags, and breadcrumbs to the output.
func WithVerbose() Option {
	return func(c *consoleConfig) {
		c.verbose = true
	}
}

type consoleTransport struct {
	mu      sync.Mutex
	out     io.Writer
	verbose bool
}

// New creates a transport that writes to stderr unless WithWriter is given.
func New(opts ...Option) xrayradar.Transport {
	cfg := &consoleConfig{out: os.Stderr}
	for _, opt := range opts {
		opt(cfg)
	}
	return &consoleTransport{out: cfg.out, verbose: cfg.verbose}
}

// SendEvent formats the event. Lines from concurrent sends do not interleave.
//
//	[XRAYRADAR] <timestamp> <LEVEL> <type>: <value> (env: <environment>)
func (s *consoleTransport) SendEvent(ctx context.Context, event xrayradar.Event) error {
	var b strings.Builder

	timestamp := event.Timestamp.Format("2006-01-02T15:04:05Z07:00")
	headline := event.Message
	var top *xrayradar.Exception
	if event.Exception != nil && len(event.Exception.Values) > 0 {
		top = &event.Exception.Values[len(event.Exception.Values)-1]
		headline = top.Type + ": " + top.Value
	}
	fmt.Fprintf(&b, "[XRAYRADAR] %s %s %s", timestamp, strings.ToUpper(string(event.Level)), headline)
	if event.Environment != "" {
		fmt.Fprintf(&b, " (env: %s)", event.Environment)
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "        Event: %s\n", event.EventID)
	if top != nil && event.Message != "" {
		fmt.Fprintf(&b, "        Message: %s\n", event.Message)
	}
	if len(event.Fingerprint) > 0 {
		fmt.Fprintf(&b, "        Fingerprint: %s\n", strings.Join(event.Fingerprint, ","))
	}
	if event.User != nil && !event.User.IsEmpty() {
		fmt.Fprintf(&b, "        User: %s\n", userLabel(*event.User))
	}
	if event.Request != nil {
		fmt.Fprintf(&b, "        Request: %s %s\n", event.Request.Method, event.Request.URL)
	}

	if s.verbose {
		if len(event.Tags) > 0 {
			keys := make([]string, 0, len(event.Tags))
			for k := range event.Tags {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			pairs := make([]string, len(keys))
			for i, k := range keys {
				pairs[i] = k + "=" + event.Tags[k]
			}
			fmt.Fprintf(&b, "        Tags: %s\n", strings.Join(pairs, " "))
		}
		if top != nil && top.Stacktrace != nil {
			b.WriteString("        Stack trace:\n")
			for _, f := range top.Stacktrace.Frames {
				fmt.Fprintf(&b, "          %s.%s (%s:%d)\n", f.Module, f.Function, f.Filename, f.Lineno)
			}
		}
		if len(event.Breadcrumbs) > 0 {
			b.WriteString("        Breadcrumbs:\n")
			for _, crumb := range event.Breadcrumbs {
				fmt.Fprintf(&b, "          %s [%s] %s %s\n",
					crumb.Timestamp.Format("15:04:05"), crumb.Level, crumb.Category, crumb.Message)
			}
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := io.WriteString(s.out, b.String())
	return err
}

func userLabel(u xrayradar.User) string {
	switch {
	case u.ID != "":
		return u.ID
	case u.Username != "":
		return u.Username
	case u.Email != "":
		return u.Email
	}
	return u.IPAddress
}

// Flush is a no-op for the console transport.
func (s *consoleTransport) Flush(ctx context.Context) error {
	return nil
}

// Close is a no-op for the console transport.
func (s *consoleTransport) Close() error {
	return nil
}
