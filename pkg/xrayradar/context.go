// context.go propagates request snapshots and conversation ids through
// context.Context.

package xrayradar

import "context"

// Context key types (unexported to avoid collisions)
type requestKey struct{}
type contextIDKey struct{}

// contextIDSet distinguishes "zero value" from "not set".
type contextIDSet struct {
	id uint64
}

// ContextWithRequest returns a context carrying a request snapshot. Captures
// made with that context attach the snapshot unless the call supplies its own.
func ContextWithRequest(ctx context.Context, r Request) context.Context {
	return context.WithValue(ctx, requestKey{}, r)
}

// RequestFromContext extracts the request snapshot from ctx.
func RequestFromContext(ctx context.Context) (Request, bool) {
	if ctx == nil {
		return Request{}, false
	}
	r, ok := ctx.Value(requestKey{}).(Request)
	return r, ok
}

// WithContextID returns a context carrying a conversation context id.
// Transports that link events to conversation history (cxdb) read it.
func WithContextID(ctx context.Context, contextID uint64) context.Context {
	return context.WithValue(ctx, contextIDKey{}, contextIDSet{id: contextID})
}

// ContextIDFromContext extracts the conversation context id.
// Returns 0 and false if not set.
func ContextIDFromContext(ctx context.Context) (uint64, bool) {
	if ctx == nil {
		return 0, false
	}
	set, ok := ctx.Value(contextIDKey{}).(contextIDSet)
	if !ok {
		return 0, false
	}
	return set.id, true
}

// ContextIDProvider is implemented by sessions that know their conversation
// context id.
type ContextIDProvider interface {
	ContextID(ctx context.Context) (uint64, error)
}
