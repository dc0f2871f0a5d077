// Package adapter exposes a store collection by position, like a list on screen.
//
// The store addresses entities by id. A Collection resolves positions to ids,
// and keeps the position scoped state of a list view: the selected row and
// the pending (not yet saved) edits per row. Both shift with the rows when a
// row is deleted.
package adapter

import (
	"context"
	"maps"
	"sync"

	"github.com/etnz/retirement"
	"github.com/etnz/retirement/store"
)

// ops binds a Collection to one store collection.
type ops[E, P any] struct {
	list   func() []E
	id     func(E) string
	add    func(ctx context.Context, patch P) bool
	update func(ctx context.Context, id string, patch P) bool
	remove func(ctx context.Context, id string) bool
}

// Collection is the position addressed view of a store collection.
type Collection[E, P any] struct {
	ops ops[E, P]

	mu       sync.Mutex
	selected int
	pending  map[int]P
}

func newCollection[E, P any](o ops[E, P]) *Collection[E, P] {
	return &Collection[E, P]{ops: o, pending: make(map[int]P)}
}

// Members returns the family members of s by position.
func Members(s *store.Store) *Collection[retirement.FamilyMember, retirement.MemberPatch] {
	return newCollection(ops[retirement.FamilyMember, retirement.MemberPatch]{
		list: s.Members,
		id:   func(m retirement.FamilyMember) string { return m.ID },
		add: func(ctx context.Context, patch retirement.MemberPatch) bool {
			_, ok := s.AddMember(ctx, patch.Apply(retirement.DefaultMember("", s.Today())))
			return ok
		},
		update: s.UpdateMember,
		remove: s.DeleteMember,
	})
}

// Funds returns the retirement funds of s by position.
//
// Appended funds are owned by the first member unless the patch says otherwise.
func Funds(s *store.Store) *Collection[retirement.RetirementFund, retirement.FundPatch] {
	return newCollection(ops[retirement.RetirementFund, retirement.FundPatch]{
		list: s.Funds,
		id:   func(f retirement.RetirementFund) string { return f.ID },
		add: func(ctx context.Context, patch retirement.FundPatch) bool {
			owner := ""
			if members := s.Members(); len(members) > 0 {
				owner = members[0].ID
			}
			_, ok := s.AddFund(ctx, patch.Apply(retirement.DefaultFund("", owner, s.Today())))
			return ok
		},
		update: s.UpdateFund,
		remove: s.DeleteFund,
	})
}

// Len returns the number of rows.
func (c *Collection[E, P]) Len() int { return len(c.ops.list()) }

// At returns the row at index.
func (c *Collection[E, P]) At(index int) (E, bool) {
	list := c.ops.list()
	if index < 0 || index >= len(list) {
		var zero E
		return zero, false
	}
	return list[index], true
}

// ID returns the id of the row at index.
func (c *Collection[E, P]) ID(index int) (string, bool) {
	e, ok := c.At(index)
	if !ok {
		return "", false
	}
	return c.ops.id(e), true
}

// Index returns the position of the row id, or -1.
func (c *Collection[E, P]) Index(id string) int {
	for i, e := range c.ops.list() {
		if c.ops.id(e) == id {
			return i
		}
	}
	return -1
}

// Update changes the row at index:
//
//   - a nil patch deletes the row, later rows shift down by one.
//   - an index below Len merges patch into the row.
//   - an index at or above Len appends a new row made of the defaults and patch.
//
// It reports whether the store applied the change.
func (c *Collection[E, P]) Update(ctx context.Context, index int, patch *P) bool {
	n := c.Len()
	switch {
	case index < 0:
		return false
	case patch == nil:
		id, ok := c.ID(index)
		if !ok || !c.ops.remove(ctx, id) {
			return false
		}
		c.deleted(index)
		return true
	case index < n:
		id, _ := c.ID(index)
		return c.ops.update(ctx, id, *patch)
	default:
		return c.ops.add(ctx, *patch)
	}
}

// deleted shifts the selection and the pending edits after the row at index was removed.
func (c *Collection[E, P]) deleted(index int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case index == c.selected:
		c.selected = max(0, index-1)
	case index < c.selected:
		c.selected--
	}
	shifted := make(map[int]P, len(c.pending))
	for i, p := range c.pending {
		switch {
		case i < index:
			shifted[i] = p
		case i > index:
			shifted[i-1] = p
		}
	}
	c.pending = shifted
}

// Select makes index the selected row.
func (c *Collection[E, P]) Select(index int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selected = max(0, index)
}

// Selected returns the selected row index.
func (c *Collection[E, P]) Selected() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selected
}

// SetPending records an edit of the row at index, not yet sent to the store.
func (c *Collection[E, P]) SetPending(index int, patch P) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending[index] = patch
}

// Pending returns the pending edit of the row at index.
func (c *Collection[E, P]) Pending(index int) (P, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.pending[index]
	return p, ok
}

// PendingIndexes returns a copy of all the pending edits by row.
func (c *Collection[E, P]) PendingIndexes() map[int]P {
	c.mu.Lock()
	defer c.mu.Unlock()
	return maps.Clone(c.pending)
}

// Commit sends the pending edit of the row at index to the store.
// The edit is dropped once applied.
func (c *Collection[E, P]) Commit(ctx context.Context, index int) bool {
	p, ok := c.Pending(index)
	if !ok {
		return false
	}
	if !c.Update(ctx, index, &p) {
		return false
	}
	c.mu.Lock()
	delete(c.pending, index)
	c.mu.Unlock()
	return true
}
