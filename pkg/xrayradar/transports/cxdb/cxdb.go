// Package cxdb provides a transport that persists events to cxdb as
// SystemMessage items, linked to the conversation that produced them.
package cxdb

import (
	"context"
	"fmt"

	json "github.com/goccy/go-json"
	cxdbclient "github.com/strongdm/ai-cxdb/clients/go"
	cxdtypes "github.com/strongdm/ai-cxdb/clients/go/types"

	"github.com/xrayradar/xrayradar-go/pkg/xrayradar"
)

const (
	maxTitleLen   = 100
	maxHeadingLen = 80
)

// Client is the subset of the cxdb client the transport needs.
// *cxdbclient.Client satisfies it.
type Client interface {
	CreateContext(ctx context.Context, baseTurnID uint64) (*cxdbclient.ContextHead, error)
	AppendTurn(ctx context.Context, req *cxdbclient.AppendRequest) (*cxdbclient.AppendResult, error)
}

// Option configures the cxdb transport.
type Option func(*transport)

// WithOrphanLabels sets the labels attached to contexts created for events
// that carry no conversation context id.
func WithOrphanLabels(labels ...string) Option {
	return func(t *transport) {
		t.orphanLabels = labels
	}
}

// WithClientTag sets the client tag recorded on orphan contexts.
func WithClientTag(tag string) Option {
	return func(t *transport) {
		t.clientTag = tag
	}
}

type transport struct {
	client       Client
	orphanLabels []string
	clientTag    string
}

// New creates a transport writing to cxdb. The conversation context id is
// read from the SendEvent context (see xrayradar.WithContextID); without one
// a fresh orphan context is created per event.
func New(client Client, opts ...Option) xrayradar.Transport {
	t := &transport{
		client:       client,
		orphanLabels: []string{"error", "unlinked"},
		clientTag:    "xrayradar",
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *transport) SendEvent(ctx context.Context, event xrayradar.Event) error {
	contextID, linked := xrayradar.ContextIDFromContext(ctx)
	if !linked {
		head, err := t.client.CreateContext(ctx, 0)
		if err != nil {
			return fmt.Errorf("create orphan context: %w", err)
		}
		contextID = head.ContextID
	}

	item := t.conversationItem(event, contextID, !linked)
	payload, err := cxdbclient.EncodeMsgpack(item)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	_, err = t.client.AppendTurn(ctx, &cxdbclient.AppendRequest{
		ContextID:      contextID,
		TypeID:         cxdtypes.TypeIDConversationItem,
		TypeVersion:    cxdtypes.TypeVersionConversationItem,
		Payload:        payload,
		IdempotencyKey: event.EventID,
	})
	if err != nil {
		return fmt.Errorf("append turn: %w", err)
	}
	return nil
}

func (t *transport) conversationItem(event xrayradar.Event, contextID uint64, orphan bool) *cxdtypes.ConversationItem {
	item := &cxdtypes.ConversationItem{
		ItemType:  cxdtypes.ItemTypeSystem,
		Status:    cxdtypes.ItemStatusComplete,
		Timestamp: event.Timestamp.UnixMilli(),
		ID:        event.EventID,
		System: &cxdtypes.SystemMessage{
			Kind:    cxdtypes.SystemKindError,
			Title:   title(event),
			Content: details(event, contextID),
		},
	}
	// cxdb reads context metadata from the first turn only.
	if orphan {
		item.ContextMetadata = &cxdtypes.ContextMetadata{
			Labels:    t.orphanLabels,
			ClientTag: t.clientTag,
		}
	}
	return item
}

// title renders "Type: value" for exceptions and the message otherwise.
func title(event xrayradar.Event) string {
	heading, body := "", event.Message
	if event.Exception != nil && len(event.Exception.Values) > 0 {
		top := event.Exception.Values[len(event.Exception.Values)-1]
		heading, body = top.Type, top.Value
	}
	if len([]rune(body)) > maxHeadingLen {
		body = string([]rune(body)[:maxHeadingLen]) + "..."
	}

	s := body
	if heading != "" {
		s = heading
		if body != "" {
			s += ": " + body
		}
	}
	if r := []rune(s); len(r) > maxTitleLen {
		s = string(r[:maxTitleLen-3]) + "..."
	}
	return s
}

// details encodes the event as JSON for SystemMessage.Content.
func details(event xrayradar.Event, contextID uint64) string {
	d := map[string]any{
		"event_id":    event.EventID,
		"level":       string(event.Level),
		"platform":    event.Platform,
		"context_id":  contextID,
		"fingerprint": event.Fingerprint,
	}
	if event.Message != "" {
		d["message"] = event.Message
	}
	if event.Exception != nil {
		d["exception"] = event.Exception
	}
	if event.Environment != "" {
		d["environment"] = event.Environment
	}
	if event.Release != "" {
		d["release"] = event.Release
	}
	if event.ServerName != "" {
		d["server_name"] = event.ServerName
	}
	if len(event.Tags) > 0 {
		d["tags"] = event.Tags
	}
	if len(event.Extra) > 0 {
		d["extra"] = event.Extra
	}
	if event.User != nil {
		d["user"] = event.User
	}
	if event.Request != nil {
		d["request"] = event.Request
	}
	if len(event.Breadcrumbs) > 0 {
		d["breadcrumbs"] = event.Breadcrumbs
	}

	b, err := json.Marshal(d)
	if err != nil {
		return fmt.Sprintf(`{"error":"failed to encode details: %s"}`, err)
	}
	return string(b)
}

// Flush is a no-op; writes are synchronous.
func (t *transport) Flush(ctx context.Context) error {
	return nil
}

// Close is a no-op; the caller owns the client.
func (t *transport) Close() error {
	return nil
}
