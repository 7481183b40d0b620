// event.go defines the canonical event structure delivered to the collector.

package xrayradar

import "time"

// SDKName and SDKVersion identify this client on the wire.
const (
	SDKName    = "xrayradar-go"
	SDKVersion = "0.4.0"
)

// Event is a single structured report of an error or message plus context.
// Builders return it by value; transports never modify the caller's copy.
type Event struct {
	// Identity

	EventID   string    `json:"event_id"`
	Timestamp time.Time `json:"timestamp"`

	// Payload

	Level     Level          `json:"level"`
	Message   string         `json:"message,omitempty"`
	Logger    string         `json:"logger,omitempty"`
	Exception *ExceptionList `json:"exception,omitempty"`

	// Origin

	Platform    string  `json:"platform"`
	SDK         SDKInfo `json:"sdk"`
	Environment string  `json:"environment,omitempty"`
	Release     string  `json:"release,omitempty"`
	ServerName  string  `json:"server_name,omitempty"`

	// Context

	User        *User             `json:"user,omitempty"`
	Tags        map[string]string `json:"tags,omitempty"`
	Extra       map[string]any    `json:"extra,omitempty"`
	Breadcrumbs []Breadcrumb      `json:"breadcrumbs,omitempty"`
	Request     *Request          `json:"request,omitempty"`
	Contexts    map[string]any    `json:"contexts,omitempty"`

	// Fingerprint groups similar events. Computed when not supplied.
	Fingerprint []string `json:"fingerprint,omitempty"`
}

// SDKInfo identifies the client library that produced an event.
type SDKInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// ExceptionList holds the exception chain, innermost cause first.
type ExceptionList struct {
	Values []Exception `json:"values"`
}

// Exception describes one error in a chain.
type Exception struct {
	Type       string      `json:"type"`
	Value      string      `json:"value"`
	Module     string      `json:"module,omitempty"`
	Stacktrace *Stacktrace `json:"stacktrace,omitempty"`
}

// Stacktrace is an ordered list of frames, outermost caller first.
type Stacktrace struct {
	Frames []Frame `json:"frames"`
}

// Frame is a single stack frame.
type Frame struct {
	Function string         `json:"function,omitempty"`
	Module   string         `json:"module,omitempty"`
	Filename string         `json:"filename,omitempty"`
	AbsPath  string         `json:"abs_path,omitempty"`
	Lineno   int            `json:"lineno,omitempty"`
	InApp    bool           `json:"in_app"`
	Vars     map[string]any `json:"vars,omitempty"`
}

// Breadcrumb is a timestamped trail entry recorded before an event.
type Breadcrumb struct {
	Timestamp time.Time      `json:"timestamp"`
	Category  string         `json:"category,omitempty"`
	Message   string         `json:"message,omitempty"`
	Level     Level          `json:"level"`
	Type      string         `json:"type"`
	Data      map[string]any `json:"data,omitempty"`
}

// User identifies the affected user. All fields are optional.
type User struct {
	ID        string `json:"id,omitempty"`
	Email     string `json:"email,omitempty"`
	Username  string `json:"username,omitempty"`
	IPAddress string `json:"ip_address,omitempty"`
}

// IsEmpty reports whether no user field is set.
func (u User) IsEmpty() bool {
	return u == User{}
}

// Request is a normalized snapshot of an inbound request. Sensitive headers
// are removed before the snapshot reaches the core.
type Request struct {
	Method      string            `json:"method,omitempty"`
	URL         string            `json:"url,omitempty"`
	QueryString string            `json:"query_string,omitempty"`
	Headers     map[string]string `json:"headers,omitempty"`
	RemoteAddr  string            `json:"remote_addr,omitempty"`
}
