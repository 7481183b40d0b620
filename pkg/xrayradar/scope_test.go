package xrayradar

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestScope_BreadcrumbsEvictOldest(t *testing.T) {
	scope := NewScope(3)
	for i := 0; i < 5; i++ {
		scope.AddBreadcrumb(Breadcrumb{Message: fmt.Sprintf("crumb-%d", i)})
	}

	crumbs := scope.Snapshot().Breadcrumbs
	if len(crumbs) != 3 {
		t.Fatalf("len(Breadcrumbs) = %d, want 3", len(crumbs))
	}
	for i, want := range []string{"crumb-2", "crumb-3", "crumb-4"} {
		if crumbs[i].Message != want {
			t.Errorf("Breadcrumbs[%d] = %q, want %q", i, crumbs[i].Message, want)
		}
	}
}

func TestScope_ZeroCapacityDropsBreadcrumbs(t *testing.T) {
	scope := NewScope(0)
	scope.AddBreadcrumb(Breadcrumb{Message: "dropped"})

	if n := len(scope.Snapshot().Breadcrumbs); n != 0 {
		t.Errorf("len(Breadcrumbs) = %d, want 0", n)
	}
}

func TestScope_BreadcrumbDefaults(t *testing.T) {
	fixed := time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)
	scope := NewScope(10)
	scope.now = func() time.Time { return fixed }

	scope.AddBreadcrumb(Breadcrumb{Message: "hello"})

	b := scope.Snapshot().Breadcrumbs[0]
	if !b.Timestamp.Equal(fixed) {
		t.Errorf("Timestamp = %v, want %v", b.Timestamp, fixed)
	}
	if b.Level != LevelInfo {
		t.Errorf("Level = %q, want info", b.Level)
	}
	if b.Type != "default" {
		t.Errorf("Type = %q, want default", b.Type)
	}
}

func TestScope_SetUserReplacesWholesale(t *testing.T) {
	scope := NewScope(10)
	scope.SetUser(User{ID: "1", Email: "a@example.com"})
	scope.SetUser(User{ID: "2"})

	u := scope.Snapshot().User
	if u == nil || u.ID != "2" || u.Email != "" {
		t.Errorf("User = %+v, want only ID 2", u)
	}

	scope.ClearUser()
	if scope.Snapshot().User != nil {
		t.Error("User should be nil after ClearUser")
	}
}

func TestScope_SnapshotIsDetached(t *testing.T) {
	scope := NewScope(10)
	scope.SetTag("region", "eu")
	scope.SetExtra("cart", 3)
	scope.AddBreadcrumb(Breadcrumb{Message: "one"})

	snap := scope.Snapshot()
	scope.SetTag("region", "us")
	scope.SetExtra("cart", 4)
	scope.AddBreadcrumb(Breadcrumb{Message: "two"})
	snap.Tags["mutated"] = "yes"

	if snap.Tags["region"] != "eu" {
		t.Errorf("snapshot tag changed to %q", snap.Tags["region"])
	}
	if snap.Extra["cart"] != 3 {
		t.Errorf("snapshot extra changed to %v", snap.Extra["cart"])
	}
	if len(snap.Breadcrumbs) != 1 {
		t.Errorf("snapshot breadcrumbs = %d, want 1", len(snap.Breadcrumbs))
	}
	if _, ok := scope.Snapshot().Tags["mutated"]; ok {
		t.Error("mutating a snapshot leaked into the scope")
	}
}

func TestScope_BreadcrumbDataIsCopied(t *testing.T) {
	scope := NewScope(10)
	data := map[string]any{"k": "v"}
	scope.AddBreadcrumb(Breadcrumb{Message: "m", Data: data})
	data["k"] = "changed"

	if got := scope.Snapshot().Breadcrumbs[0].Data["k"]; got != "v" {
		t.Errorf("breadcrumb data = %v, want v", got)
	}
}

func TestScope_Clear(t *testing.T) {
	scope := NewScope(10)
	scope.SetUser(User{ID: "1"})
	scope.SetTag("a", "b")
	scope.SetExtra("c", "d")
	scope.AddBreadcrumb(Breadcrumb{Message: "m"})

	scope.Clear()

	snap := scope.Snapshot()
	if snap.User != nil || len(snap.Tags) != 0 || len(snap.Extra) != 0 || len(snap.Breadcrumbs) != 0 {
		t.Errorf("snapshot after Clear = %+v, want empty", snap)
	}
}

func TestScope_ClearBreadcrumbsKeepsTags(t *testing.T) {
	scope := NewScope(10)
	scope.SetTag("a", "b")
	scope.AddBreadcrumb(Breadcrumb{Message: "m"})

	scope.ClearBreadcrumbs()

	snap := scope.Snapshot()
	if len(snap.Breadcrumbs) != 0 {
		t.Error("breadcrumbs not cleared")
	}
	if snap.Tags["a"] != "b" {
		t.Error("ClearBreadcrumbs removed tags")
	}
}

func TestScope_ConcurrentUse(t *testing.T) {
	scope := NewScope(50)
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				scope.SetTag(fmt.Sprintf("t%d", n), "v")
				scope.AddBreadcrumb(Breadcrumb{Message: "m"})
				_ = scope.Snapshot()
			}
		}(i)
	}
	wg.Wait()

	if n := len(scope.Snapshot().Breadcrumbs); n != 50 {
		t.Errorf("len(Breadcrumbs) = %d, want 50", n)
	}
}
