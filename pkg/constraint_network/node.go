package constraint_network

import (
	"fmt"

	"github.com/jtomasevic/incscore/pkg/tuple"
)

// node is a tuple-creating node: it owns a propagation queue and the store
// layout of the tuples it creates. Filters and scorers are lifecycles
// attached to a node's output, not nodes.
type node interface {
	base() *nodeBase
	propagate()
}

// NodeStats describes one node and what it has propagated so far.
type NodeStats struct {
	ID        int
	Kind      string
	Layer     int
	Parents   []int
	StoreSize int
	Consumers int
	Inserted  uint64
	Updated   uint64
	Retracted uint64
}

type nodeBase struct {
	id      int
	kind    string
	layer   int
	parents []node
	out     *bridge

	// storeSize grows while the builder attaches consumers; it is final
	// before the first tuple is created.
	storeSize int
	queue     propagationQueue
}

func (b *nodeBase) base() *nodeBase { return b }

func (b *nodeBase) name() string { return fmt.Sprintf("#%d %s", b.id, b.kind) }

// reserve hands out the next store slot of this node's output tuples.
func (b *nodeBase) reserve() int {
	s := b.storeSize
	b.storeSize++
	return s
}

func (b *nodeBase) stats() NodeStats {
	s := NodeStats{
		ID:        b.id,
		Kind:      b.kind,
		Layer:     b.layer,
		StoreSize: b.storeSize,
		Consumers: len(b.out.consumers),
		Inserted:  b.queue.inserted,
		Updated:   b.queue.updated,
		Retracted: b.queue.retracted,
	}
	for _, p := range b.parents {
		s.Parents = append(s.Parents, p.base().id)
	}
	return s
}

func (b *nodeBase) propagate() { b.queue.propagate() }

// propagationQueue holds the dirty output tuples of one node until the
// network settles that node's layer.
//
// Transitions:
//
//	insert:  DEAD -> CREATING
//	update:  OK -> UPDATING (CREATING and UPDATING stay)
//	retract: OK -> DYING, UPDATING -> DYING, CREATING -> ABORTING
//
// Anything else is a consistency error.
type propagationQueue struct {
	owner *nodeBase
	dirty []*tuple.Tuple

	inserted, updated, retracted uint64
}

func (q *propagationQueue) insert(t *tuple.Tuple) {
	if t.State() != tuple.Dead {
		fail(q.owner.name(), "insert", t, "tuple is not dead")
	}
	t.SetState(tuple.Creating)
	q.dirty = append(q.dirty, t)
}

func (q *propagationQueue) update(t *tuple.Tuple) {
	switch t.State() {
	case tuple.Ok:
		t.SetState(tuple.Updating)
		q.dirty = append(q.dirty, t)
	case tuple.Creating, tuple.Updating:
	default:
		fail(q.owner.name(), "update", t, "tuple is not alive")
	}
}

func (q *propagationQueue) retract(t *tuple.Tuple) {
	switch t.State() {
	case tuple.Ok:
		t.SetState(tuple.Dying)
		q.dirty = append(q.dirty, t)
	case tuple.Updating:
		t.SetState(tuple.Dying)
	case tuple.Creating:
		t.SetState(tuple.Aborting)
	default:
		fail(q.owner.name(), "retract", t, "tuple is not alive")
	}
}

// propagate delivers retracts, then updates, then inserts.
func (q *propagationQueue) propagate() {
	if len(q.dirty) == 0 {
		return
	}
	next := q.owner.out
	for _, t := range q.dirty {
		switch t.State() {
		case tuple.Dying:
			next.Retract(t)
			t.SetState(tuple.Dead)
			q.retracted++
		case tuple.Aborting:
			t.SetState(tuple.Dead)
		}
	}
	for _, t := range q.dirty {
		if t.State() == tuple.Updating {
			next.Update(t)
			t.SetState(tuple.Ok)
			q.updated++
		}
	}
	for _, t := range q.dirty {
		if t.State() == tuple.Creating {
			next.Insert(t)
			t.SetState(tuple.Ok)
			q.inserted++
		}
	}
	clear(q.dirty)
	q.dirty = q.dirty[:0]
}
