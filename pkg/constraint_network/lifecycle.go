package constraint_network

import (
	"github.com/jtomasevic/incscore/pkg/tuple"
)

// TupleLifecycle receives the insert/update/retract stream of one parent.
type TupleLifecycle interface {
	Insert(t *tuple.Tuple)
	Update(t *tuple.Tuple)
	Retract(t *tuple.Tuple)
}

// bridge fans a stream out to every consumer attached to one built op.
// Consumers are called in attach order.
type bridge struct {
	consumers []TupleLifecycle
}

func (b *bridge) attach(c TupleLifecycle) { b.consumers = append(b.consumers, c) }

func (b *bridge) Insert(t *tuple.Tuple) {
	for _, c := range b.consumers {
		c.Insert(t)
	}
}

func (b *bridge) Update(t *tuple.Tuple) {
	for _, c := range b.consumers {
		c.Update(t)
	}
}

func (b *bridge) Retract(t *tuple.Tuple) {
	for _, c := range b.consumers {
		c.Retract(t)
	}
}

type filterMark uint8

const (
	filterRejected filterMark = iota + 1
	filterPassed
)

// filterLifecycle forwards the tuples that pass its predicate. It creates
// no tuples of its own: a tuple that starts passing is inserted downstream,
// one that stops passing is retracted.
type filterLifecycle struct {
	name string
	test func(*tuple.Tuple) bool
	slot int
	next TupleLifecycle
}

func (f *filterLifecycle) Insert(t *tuple.Tuple) {
	if t.Get(f.slot) != nil {
		fail(f.name, "insert", t, "tuple already inserted")
	}
	if f.test(t) {
		t.Set(f.slot, filterPassed)
		f.next.Insert(t)
		return
	}
	t.Set(f.slot, filterRejected)
}

func (f *filterLifecycle) Update(t *tuple.Tuple) {
	mark, _ := t.Get(f.slot).(filterMark)
	if mark == 0 {
		fail(f.name, "update", t, "tuple was never inserted")
	}
	pass := f.test(t)
	switch {
	case mark == filterPassed && pass:
		f.next.Update(t)
	case mark == filterPassed:
		t.Set(f.slot, filterRejected)
		f.next.Retract(t)
	case pass:
		t.Set(f.slot, filterPassed)
		f.next.Insert(t)
	}
}

func (f *filterLifecycle) Retract(t *tuple.Tuple) {
	mark, _ := t.Clear(f.slot).(filterMark)
	switch mark {
	case 0:
		fail(f.name, "retract", t, "tuple was never inserted")
	case filterPassed:
		f.next.Retract(t)
	}
}

// twoInput is a node fed by a left and a right parent; leftInput and
// rightInput route each parent stream to its side.
type twoInput interface {
	insertLeft(t *tuple.Tuple)
	updateLeft(t *tuple.Tuple)
	retractLeft(t *tuple.Tuple)
	insertRight(t *tuple.Tuple)
	updateRight(t *tuple.Tuple)
	retractRight(t *tuple.Tuple)
}

type leftInput struct{ n twoInput }

func (l leftInput) Insert(t *tuple.Tuple)  { l.n.insertLeft(t) }
func (l leftInput) Update(t *tuple.Tuple)  { l.n.updateLeft(t) }
func (l leftInput) Retract(t *tuple.Tuple) { l.n.retractLeft(t) }

type rightInput struct{ n twoInput }

func (r rightInput) Insert(t *tuple.Tuple)  { r.n.insertRight(t) }
func (r rightInput) Update(t *tuple.Tuple)  { r.n.updateRight(t) }
func (r rightInput) Retract(t *tuple.Tuple) { r.n.retractRight(t) }
