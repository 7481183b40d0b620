// truncate.go shrinks oversized serialized events.

package xrayradar

import (
	"unicode/utf8"

	json "github.com/goccy/go-json"
)

// Truncation limits applied to oversized payloads.
const (
	maxMessageChars    = 1000
	// maxStackFrames keeps the first frames. Frames are ordered outermost
	// caller first, so the failing frame of a deeper stack is cut.
	maxStackFrames     = 50
	maxBreadcrumbsSent = 100
	truncatedSuffix    = "... (truncated)"
)

// truncatePayload applies the size-reduction rules to an encoded event: the
// message is cut to maxMessageChars characters plus a marker, every
// exception stacktrace keeps its first maxStackFrames frames, and
// breadcrumbs keep the first maxBreadcrumbsSent entries. The result may
// still exceed the size limit.
func truncatePayload(body []byte) ([]byte, error) {
	var doc map[string]any
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, err
	}

	if msg, ok := doc["message"].(string); ok && utf8.RuneCountInString(msg) > maxMessageChars {
		doc["message"] = string([]rune(msg)[:maxMessageChars]) + truncatedSuffix
	}

	if exc, ok := doc["exception"].(map[string]any); ok {
		if values, ok := exc["values"].([]any); ok {
			for _, v := range values {
				value, ok := v.(map[string]any)
				if !ok {
					continue
				}
				st, ok := value["stacktrace"].(map[string]any)
				if !ok {
					continue
				}
				if frames, ok := st["frames"].([]any); ok && len(frames) > maxStackFrames {
					st["frames"] = frames[:maxStackFrames]
				}
			}
		}
	}

	if crumbs, ok := doc["breadcrumbs"].([]any); ok && len(crumbs) > maxBreadcrumbsSent {
		doc["breadcrumbs"] = crumbs[:maxBreadcrumbsSent]
	}

	return json.Marshal(doc)
}
