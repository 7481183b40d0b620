// scope.go provides the mutable context store merged into every event.

package xrayradar

import (
	"maps"
	"sync"
	"time"
)

// Breadcrumb type used when none is given.
const defaultBreadcrumbType = "default"

// Scope holds the user, tags, extra data, and breadcrumbs merged into each
// captured event. All methods are safe for concurrent use, but a Scope shared
// by concurrent requests mixes their context; give each request its own
// Tracker or Scope when isolation matters.
type Scope struct {
	mu          sync.RWMutex
	user        *User
	tags        map[string]string
	extra       map[string]any
	breadcrumbs *breadcrumbRing
	now         func() time.Time
}

// ScopeSnapshot is a detached copy of a Scope's state.
type ScopeSnapshot struct {
	User        *User
	Tags        map[string]string
	Extra       map[string]any
	Breadcrumbs []Breadcrumb
}

// NewScope creates an empty scope holding at most maxBreadcrumbs breadcrumbs.
func NewScope(maxBreadcrumbs int) *Scope {
	return &Scope{
		tags:        make(map[string]string),
		extra:       make(map[string]any),
		breadcrumbs: newBreadcrumbRing(maxBreadcrumbs),
		now:         time.Now,
	}
}

// SetUser replaces the current user wholesale.
func (s *Scope) SetUser(u User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = &u
}

// ClearUser removes the current user.
func (s *Scope) ClearUser() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = nil
}

// SetTag upserts one tag.
func (s *Scope) SetTag(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tags[key] = value
}

// SetExtra upserts one extra value.
func (s *Scope) SetExtra(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.extra[key] = value
}

// AddBreadcrumb appends b, evicting the oldest breadcrumb when at capacity.
// A zero timestamp is set to now, an empty level to info, and an empty type
// to "default".
func (s *Scope) AddBreadcrumb(b Breadcrumb) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b.Timestamp.IsZero() {
		b.Timestamp = s.now().UTC()
	}
	if b.Level == "" {
		b.Level = LevelInfo
	}
	if b.Type == "" {
		b.Type = defaultBreadcrumbType
	}
	if b.Data != nil {
		b.Data = maps.Clone(b.Data)
	}
	s.breadcrumbs.Add(b)
}

// ClearBreadcrumbs empties the breadcrumb buffer.
func (s *Scope) ClearBreadcrumbs() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.breadcrumbs.Reset()
}

// Clear resets user, tags, extra, and breadcrumbs.
func (s *Scope) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = nil
	s.tags = make(map[string]string)
	s.extra = make(map[string]any)
	s.breadcrumbs.Reset()
}

// Snapshot returns copies of the scope state. Later mutation of the scope
// does not affect the snapshot.
func (s *Scope) Snapshot() ScopeSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := ScopeSnapshot{
		Tags:        maps.Clone(s.tags),
		Extra:       maps.Clone(s.extra),
		Breadcrumbs: s.breadcrumbs.Items(),
	}
	if s.user != nil {
		u := *s.user
		snap.User = &u
	}
	return snap
}
