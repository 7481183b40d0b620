// dsn.go parses and redacts destination addresses.

package xrayradar

import (
	"net/url"
	"strings"
)

// invalidDSNPlaceholder is what RedactDSN returns when the address cannot be parsed.
const invalidDSNPlaceholder = "<invalid dsn>"

// DSN is a parsed destination address.
//
//	{scheme}://{public_key}[:{secret_key}]@{host}{path}
//
// The last path segment is the project identifier.
type DSN struct {
	Scheme    string
	Host      string
	Path      string
	ProjectID string
	PublicKey string
	SecretKey string
}

// parseURL is swapped in tests to simulate parser failures.
var parseURL = url.Parse

// ParseDSN validates and parses raw. A parser failure yields an
// InvalidDsnError wrapping the cause; a URL missing scheme, host, or project
// identifier yields an InvalidDsnError without one.
func ParseDSN(raw string) (*DSN, error) {
	u, err := parseURL(raw)
	if err != nil {
		return nil, &InvalidDsnError{DSN: invalidDSNPlaceholder, Reason: "Failed to parse DSN", Err: err}
	}

	redacted := redactURL(u)
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, &InvalidDsnError{DSN: redacted, Reason: "malformed dsn: scheme must be http or https"}
	}
	if u.Host == "" {
		return nil, &InvalidDsnError{DSN: redacted, Reason: "malformed dsn: missing host"}
	}

	path := strings.TrimRight(u.Path, "/")
	projectID := path[strings.LastIndex(path, "/")+1:]
	if projectID == "" {
		return nil, &InvalidDsnError{DSN: redacted, Reason: "malformed dsn: missing project id"}
	}

	d := &DSN{
		Scheme:    u.Scheme,
		Host:      u.Host,
		Path:      u.Path,
		ProjectID: projectID,
	}
	if u.User != nil {
		d.PublicKey = u.User.Username()
		d.SecretKey, _ = u.User.Password()
	}
	return d, nil
}

// StoreURL is the endpoint events are posted to.
func (d *DSN) StoreURL() string {
	return d.Scheme + "://" + d.Host + d.Path
}

// RedactDSN renders raw safe for logs: embedded credentials are replaced
// and an unparseable address becomes a fixed placeholder.
func RedactDSN(raw string) (redacted string) {
	defer func() {
		if r := recover(); r != nil {
			redacted = invalidDSNPlaceholder
		}
	}()
	u, err := parseURL(raw)
	if err != nil {
		return invalidDSNPlaceholder
	}
	return redactURL(u)
}

func redactURL(u *url.URL) string {
	if u.User == nil {
		return u.String()
	}
	clone := *u
	clone.User = nil
	s := clone.String()
	if clone.Scheme != "" {
		prefix := clone.Scheme + "://"
		return prefix + "***@" + strings.TrimPrefix(s, prefix)
	}
	return "***@" + s
}
