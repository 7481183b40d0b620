// recover.go provides deferred panic capture.

package xrayradar

import "context"

// Recover captures an in-flight panic and returns the recovered value. It
// does not re-panic. It must be called directly by a deferred function:
//
//	func handler(ctx context.Context) {
//	    defer tracker.Recover(ctx)
//	    // code that might panic
//	}
//
// recover only stops a panic when called by the deferred function itself,
// so Recover cannot be wrapped in a closure. To turn a panic into an error,
// recover yourself and hand the value to CapturePanic:
//
//	defer func() {
//	    if r := recover(); r != nil {
//	        tracker.CapturePanic(ctx, r)
//	        err = fmt.Errorf("panic: %v", r)
//	    }
//	}()
func (t *Tracker) Recover(ctx context.Context, opts ...CaptureOption) any {
	r := recover()
	if r == nil {
		return nil
	}
	t.CapturePanic(ctx, r, opts...)
	return r
}
