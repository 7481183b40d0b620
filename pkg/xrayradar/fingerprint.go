// fingerprint.go generates stable hashes for grouping similar events.

package xrayradar

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
)

// fingerprintFrames is how many in-app frames contribute to a fingerprint.
const fingerprintFrames = 3

// Patterns stripped from messages before hashing.
var (
	hexAddrPattern = regexp.MustCompile(`0x[0-9a-fA-F]+`)
	numberPattern  = regexp.MustCompile(`\d+`)
	uuidPattern    = regexp.MustCompile(`[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}`)
)

// Fingerprint returns a hash for grouping similar events.
//
// Exceptions group by the outermost type and the innermost in-app function
// names (no line numbers). Messages group by level, logger, and the message
// with ids, addresses, and numbers removed.
func Fingerprint(event Event) string {
	var parts []string
	if event.Exception != nil && len(event.Exception.Values) > 0 {
		values := event.Exception.Values
		top := values[len(values)-1]
		parts = append(parts, "exception", top.Type)
		parts = append(parts, groupingFrames(top.Stacktrace)...)
	} else {
		parts = append(parts, "message", string(event.Level), event.Logger, normalizeMessage(event.Message))
	}

	hash := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(hash[:16])
}

// groupingFrames picks the innermost in-app function names, falling back to
// any frame when none are in-app.
func groupingFrames(st *Stacktrace) []string {
	if st == nil {
		return nil
	}
	pick := func(inAppOnly bool) []string {
		var names []string
		for i := len(st.Frames) - 1; i >= 0 && len(names) < fingerprintFrames; i-- {
			f := st.Frames[i]
			if inAppOnly && !f.InApp {
				continue
			}
			names = append(names, f.Module+"."+f.Function)
		}
		return names
	}
	if names := pick(true); len(names) > 0 {
		return names
	}
	return pick(false)
}

func normalizeMessage(msg string) string {
	msg = uuidPattern.ReplaceAllString(msg, "<id>")
	msg = hexAddrPattern.ReplaceAllString(msg, "<addr>")
	msg = numberPattern.ReplaceAllString(msg, "<n>")
	return strings.TrimSpace(msg)
}
