package fragment

import (
	"sync"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
)

type joinEntry struct {
	spec JoinSpec
	refs int
}

type whereEntry struct {
	spec WhereSpec
	refs int
}

// Registry is the process-wide set of installed fragments. An entry stays
// while at least one lease holds it.
type Registry struct {
	mu     sync.Mutex
	prefix string
	joins  map[uuid.UUID]*joinEntry
	wheres map[uuid.UUID]*whereEntry
}

// NewRegistry returns an empty registry. prefix is prepended to join table
// names when rendered.
func NewRegistry(prefix string) *Registry {
	return &Registry{
		prefix: prefix,
		joins:  make(map[uuid.UUID]*joinEntry),
		wheres: make(map[uuid.UUID]*whereEntry),
	}
}

// Len returns the number of installed join and where entries.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.joins) + len(r.wheres)
}

// Lease starts a new execution scope.
func (r *Registry) Lease() *Lease {
	return &Lease{reg: r, held: make(map[uuid.UUID]bool)}
}

// Lease holds the fragments one execution installed. It is not safe for
// concurrent use; Release may be called any number of times.
type Lease struct {
	reg      *Registry
	held     map[uuid.UUID]bool
	joins    []uuid.UUID
	wheres   []uuid.UUID
	released bool
}

// AddJoin installs spec. A join already held by this lease is not counted
// twice. It reports whether a new entry was taken.
func (l *Lease) AddJoin(spec JoinSpec) bool {
	id := spec.ID()
	if l.released || l.held[id] {
		return false
	}

	l.reg.mu.Lock()
	e, ok := l.reg.joins[id]
	if !ok {
		e = &joinEntry{spec: spec}
		l.reg.joins[id] = e
	}
	e.refs++
	l.reg.mu.Unlock()

	l.held[id] = true
	l.joins = append(l.joins, id)
	return true
}

func (l *Lease) AddWhere(spec WhereSpec) bool {
	id := spec.ID()
	if l.released || l.held[id] {
		return false
	}

	l.reg.mu.Lock()
	e, ok := l.reg.wheres[id]
	if !ok {
		e = &whereEntry{spec: spec}
		l.reg.wheres[id] = e
	}
	e.refs++
	l.reg.mu.Unlock()

	l.held[id] = true
	l.wheres = append(l.wheres, id)
	return true
}

// Joins renders the lease's joins against the primary alias in the order
// they were added. Joins that fail sanitizing are skipped.
func (l *Lease) Joins(primary string) []string {
	l.reg.mu.Lock()
	defer l.reg.mu.Unlock()

	var out []string
	for _, id := range l.joins {
		e, ok := l.reg.joins[id]
		if !ok {
			continue
		}
		if s := e.spec.SQL(l.reg.prefix, primary); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Wheres renders the lease's where fragments against column.
func (l *Lease) Wheres(column string) []sq.Sqlizer {
	l.reg.mu.Lock()
	defer l.reg.mu.Unlock()

	var out []sq.Sqlizer
	for _, id := range l.wheres {
		if e, ok := l.reg.wheres[id]; ok {
			out = append(out, e.spec.Sqlizer(column))
		}
	}
	return out
}

// Len returns the number of fragments the lease holds.
func (l *Lease) Len() int { return len(l.joins) + len(l.wheres) }

// Release drops the lease's references. Entries still held by other leases
// stay installed.
func (l *Lease) Release() {
	if l.released {
		return
	}
	l.released = true

	l.reg.mu.Lock()
	defer l.reg.mu.Unlock()
	for _, id := range l.joins {
		if e, ok := l.reg.joins[id]; ok {
			if e.refs--; e.refs <= 0 {
				delete(l.reg.joins, id)
			}
		}
	}
	for _, id := range l.wheres {
		if e, ok := l.reg.wheres[id]; ok {
			if e.refs--; e.refs <= 0 {
				delete(l.reg.wheres, id)
			}
		}
	}
}
