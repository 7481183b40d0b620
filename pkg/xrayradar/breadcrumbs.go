// breadcrumbs.go implements the bounded breadcrumb FIFO.

package xrayradar

// breadcrumbRing is a fixed-capacity ring buffer. When full, Add overwrites
// the oldest entry. Capacity 0 drops everything.
type breadcrumbRing struct {
	items    []Breadcrumb
	capacity int
	next     int // index of the oldest entry once the ring is full
}

func newBreadcrumbRing(capacity int) *breadcrumbRing {
	if capacity < 0 {
		capacity = 0
	}
	return &breadcrumbRing{capacity: capacity}
}

func (r *breadcrumbRing) Add(b Breadcrumb) {
	if r.capacity == 0 {
		return
	}
	if len(r.items) < r.capacity {
		r.items = append(r.items, b)
		return
	}
	r.items[r.next] = b
	r.next = (r.next + 1) % r.capacity
}

// Items returns a copy in insertion order, oldest first.
func (r *breadcrumbRing) Items() []Breadcrumb {
	out := make([]Breadcrumb, 0, len(r.items))
	out = append(out, r.items[r.next:]...)
	out = append(out, r.items[:r.next]...)
	return out
}

func (r *breadcrumbRing) Len() int {
	return len(r.items)
}

func (r *breadcrumbRing) Reset() {
	r.items = nil
	r.next = 0
}
