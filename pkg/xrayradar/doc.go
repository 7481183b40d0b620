// Package xrayradar is an error and event capture client.
//
// Application code reports errors and log messages through a Tracker, which
// merges ambient context (user, tags, extra data, breadcrumbs) into a
// canonical Event and delivers it to a remote collection endpoint over HTTP.
//
// # Core Components
//
//   - Config: validated settings loaded from a struct, a map, or a JSON file
//   - Scope: mutable context store snapshotted at capture time
//   - Builder: turns an error or message plus context into an Event
//   - Transport: encodes, truncates, and delivers events (HTTP by default)
//   - Tracker: facade that wires the above and never fails the host
//
// # Quick Start
//
//	cfg := xrayradar.DefaultConfig()
//	cfg.DSN = "https://public@collector.example.com/42"
//	tracker, err := xrayradar.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer tracker.Close()
//
//	tracker.SetTag("feature", "checkout")
//	if err := charge(ctx); err != nil {
//	    tracker.CaptureException(ctx, err,
//	        xrayradar.WithFields(map[string]any{"payment_stage": "processing"}))
//	}
//
// For panics, defer the tracker's Recover:
//
//	defer tracker.Recover(ctx)
//
// # Design Principles
//
//   - Capture never returns an error and never panics: telemetry failure must
//     not mask application failure
//   - Construction fails fast: bad config or DSN is reported by New
//   - Capture is synchronous and bounded by the configured timeout
//   - Sampling and level filtering are policy, not errors
package xrayradar
