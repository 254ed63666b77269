package constraint_network

import (
	"reflect"

	"github.com/jtomasevic/incscore/pkg/tuple"
)

// mapNode creates exactly one output per input tuple.
type mapNode struct {
	nodeBase
	inSlot  int
	mappers []Mapping
}

func (n *mapNode) insert(t *tuple.Tuple) {
	if t.Get(n.inSlot) != nil {
		fail(n.name(), "insert", t, "tuple already inserted")
	}
	out := tuple.NewBlank(len(n.mappers), n.storeSize)
	n.fill(out, t)
	t.Set(n.inSlot, out)
	n.queue.insert(out)
}

func (n *mapNode) update(t *tuple.Tuple) {
	out, _ := t.Get(n.inSlot).(*tuple.Tuple)
	if out == nil {
		fail(n.name(), "update", t, "tuple was never inserted")
	}
	n.fill(out, t)
	n.queue.update(out)
}

func (n *mapNode) retract(t *tuple.Tuple) {
	out, _ := t.Clear(n.inSlot).(*tuple.Tuple)
	if out == nil {
		fail(n.name(), "retract", t, "tuple was never inserted")
	}
	n.queue.retract(out)
}

func (n *mapNode) fill(out, in *tuple.Tuple) {
	for i, m := range n.mappers {
		out.SetFact(i, m.Fn(in))
	}
}

// flattenNode replaces the last fact of its input by each element of the
// collection derived from it.
type flattenNode struct {
	nodeBase
	inSlot  int
	flatten Flattener
}

type flattenInput struct {
	outs  []*tuple.Tuple
	elems []any
}

func (n *flattenNode) insert(t *tuple.Tuple) {
	if t.Get(n.inSlot) != nil {
		fail(n.name(), "insert", t, "tuple already inserted")
	}
	in := &flattenInput{}
	for _, e := range n.flatten.Fn(t) {
		n.emit(in, t, e)
	}
	t.Set(n.inSlot, in)
}

// update keeps the outputs of elements still present (matched by ==) and
// retracts or creates the rest. Non-comparable elements are always
// recreated.
func (n *flattenNode) update(t *tuple.Tuple) {
	in, _ := t.Get(n.inSlot).(*flattenInput)
	if in == nil {
		fail(n.name(), "update", t, "tuple was never inserted")
	}
	reusable := map[any][]*tuple.Tuple{}
	var stale []*tuple.Tuple
	for i, e := range in.elems {
		if isComparable(e) {
			reusable[e] = append(reusable[e], in.outs[i])
		} else {
			stale = append(stale, in.outs[i])
		}
	}
	next := &flattenInput{}
	for _, e := range n.flatten.Fn(t) {
		if isComparable(e) {
			if outs := reusable[e]; len(outs) > 0 {
				out := outs[0]
				reusable[e] = outs[1:]
				out.CopyFacts(t, 0)
				out.SetFact(t.Arity()-1, e)
				next.outs = append(next.outs, out)
				next.elems = append(next.elems, e)
				n.queue.update(out)
				continue
			}
		}
		n.emit(next, t, e)
	}
	for _, outs := range reusable {
		stale = append(stale, outs...)
	}
	for _, out := range stale {
		n.queue.retract(out)
	}
	t.Set(n.inSlot, next)
}

func (n *flattenNode) retract(t *tuple.Tuple) {
	in, _ := t.Clear(n.inSlot).(*flattenInput)
	if in == nil {
		fail(n.name(), "retract", t, "tuple was never inserted")
	}
	for _, out := range in.outs {
		n.queue.retract(out)
	}
}

func (n *flattenNode) emit(in *flattenInput, t *tuple.Tuple, e any) {
	out := tuple.NewBlank(t.Arity(), n.storeSize)
	out.CopyFacts(t, 0)
	out.SetFact(t.Arity()-1, e)
	in.outs = append(in.outs, out)
	in.elems = append(in.elems, e)
	n.queue.insert(out)
}

func isComparable(v any) bool {
	return v == nil || reflect.TypeOf(v).Comparable()
}

// concatNode merges two streams of equal arity. Every input is re-emitted
// as a copy owned by this node, so a fact present on both sides yields two
// outputs.
type concatNode struct {
	nodeBase
	leftSlot  int
	rightSlot int
}

func (n *concatNode) insertLeft(t *tuple.Tuple)   { n.insertSide(t, n.leftSlot) }
func (n *concatNode) updateLeft(t *tuple.Tuple)   { n.updateSide(t, n.leftSlot) }
func (n *concatNode) retractLeft(t *tuple.Tuple)  { n.retractSide(t, n.leftSlot) }
func (n *concatNode) insertRight(t *tuple.Tuple)  { n.insertSide(t, n.rightSlot) }
func (n *concatNode) updateRight(t *tuple.Tuple)  { n.updateSide(t, n.rightSlot) }
func (n *concatNode) retractRight(t *tuple.Tuple) { n.retractSide(t, n.rightSlot) }

func (n *concatNode) insertSide(t *tuple.Tuple, slot int) {
	if t.Get(slot) != nil {
		fail(n.name(), "insert", t, "tuple already inserted")
	}
	out := tuple.NewBlank(t.Arity(), n.storeSize)
	out.CopyFacts(t, 0)
	t.Set(slot, out)
	n.queue.insert(out)
}

func (n *concatNode) updateSide(t *tuple.Tuple, slot int) {
	out, _ := t.Get(slot).(*tuple.Tuple)
	if out == nil {
		fail(n.name(), "update", t, "tuple was never inserted")
	}
	out.CopyFacts(t, 0)
	n.queue.update(out)
}

func (n *concatNode) retractSide(t *tuple.Tuple, slot int) {
	out, _ := t.Clear(slot).(*tuple.Tuple)
	if out == nil {
		fail(n.name(), "retract", t, "tuple was never inserted")
	}
	n.queue.retract(out)
}

// singleInput adapts a one-parent node to TupleLifecycle.
type singleInput struct {
	insertFn, updateFn, retractFn func(*tuple.Tuple)
}

func (s singleInput) Insert(t *tuple.Tuple)  { s.insertFn(t) }
func (s singleInput) Update(t *tuple.Tuple)  { s.updateFn(t) }
func (s singleInput) Retract(t *tuple.Tuple) { s.retractFn(t) }
