package constraint_network

import (
	"github.com/jtomasevic/incscore/pkg/index"
	"github.com/jtomasevic/incscore/pkg/tuple"
)

// joinNode pairs left tuples (arity 1..3) with right uni tuples.
//
// Each side keeps an index of its live inputs. An input remembers its keys,
// its index entry and the outputs it takes part in; every output remembers
// both inputs through a link in its own store.
type joinNode struct {
	nodeBase
	leftArity  int
	leftSlot   int
	rightSlot  int
	linkSlot   int
	indexing   joinIndexing
	filtering  []Filtering
	leftIndex  *index.Index[*joinInput]
	rightIndex *index.Index[*joinInput]
}

type joinInput struct {
	t       *tuple.Tuple
	keys    index.Keys
	entry   *index.Element[*joinInput]
	outputs index.List[*tuple.Tuple]
}

type joinLink struct {
	left, right           *joinInput
	leftEntry, rightEntry *index.Element[*tuple.Tuple]
}

func (n *joinNode) input(t *tuple.Tuple, slot int, op string) *joinInput {
	in, _ := t.Get(slot).(*joinInput)
	if in == nil {
		fail(n.name(), op, t, "tuple was never inserted")
	}
	return in
}

func (n *joinNode) insertLeft(t *tuple.Tuple) {
	if t.Get(n.leftSlot) != nil {
		fail(n.name(), "insertLeft", t, "tuple already inserted")
	}
	l := &joinInput{t: t, keys: n.indexing.leftKeys(t)}
	l.entry = n.leftIndex.Put(l.keys, l)
	t.Set(n.leftSlot, l)
	n.rightIndex.ForEach(l.keys, func(r *joinInput) { n.match(l, r) })
}

func (n *joinNode) insertRight(t *tuple.Tuple) {
	if t.Get(n.rightSlot) != nil {
		fail(n.name(), "insertRight", t, "tuple already inserted")
	}
	r := &joinInput{t: t, keys: n.indexing.rightKeys(t)}
	r.entry = n.rightIndex.Put(r.keys, r)
	t.Set(n.rightSlot, r)
	n.leftIndex.ForEach(r.keys, func(l *joinInput) { n.match(l, r) })
}

func (n *joinNode) updateLeft(t *tuple.Tuple) {
	l := n.input(t, n.leftSlot, "updateLeft")
	keys := n.indexing.leftKeys(t)
	if keys.Equal(l.keys) {
		if len(n.filtering) == 0 {
			l.outputs.ForEach(n.refresh)
			return
		}
		existing := make(map[*joinInput]*tuple.Tuple, l.outputs.Len())
		l.outputs.ForEach(func(out *tuple.Tuple) { existing[n.link(out).right] = out })
		n.rightIndex.ForEach(l.keys, func(r *joinInput) { n.rematch(l, r, existing[r]) })
		return
	}
	if !n.leftIndex.Remove(l.keys, l.entry) {
		fail(n.name(), "updateLeft", t, "tuple missing from left index")
	}
	l.outputs.ForEach(n.unmatch)
	l.keys = keys
	l.entry = n.leftIndex.Put(keys, l)
	n.rightIndex.ForEach(keys, func(r *joinInput) { n.match(l, r) })
}

func (n *joinNode) updateRight(t *tuple.Tuple) {
	r := n.input(t, n.rightSlot, "updateRight")
	keys := n.indexing.rightKeys(t)
	if keys.Equal(r.keys) {
		if len(n.filtering) == 0 {
			r.outputs.ForEach(n.refresh)
			return
		}
		existing := make(map[*joinInput]*tuple.Tuple, r.outputs.Len())
		r.outputs.ForEach(func(out *tuple.Tuple) { existing[n.link(out).left] = out })
		n.leftIndex.ForEach(r.keys, func(l *joinInput) { n.rematch(l, r, existing[l]) })
		return
	}
	if !n.rightIndex.Remove(r.keys, r.entry) {
		fail(n.name(), "updateRight", t, "tuple missing from right index")
	}
	r.outputs.ForEach(n.unmatch)
	r.keys = keys
	r.entry = n.rightIndex.Put(keys, r)
	n.leftIndex.ForEach(keys, func(l *joinInput) { n.match(l, r) })
}

func (n *joinNode) retractLeft(t *tuple.Tuple) {
	l := n.input(t, n.leftSlot, "retractLeft")
	t.Clear(n.leftSlot)
	if !n.leftIndex.Remove(l.keys, l.entry) {
		fail(n.name(), "retractLeft", t, "tuple missing from left index")
	}
	l.outputs.ForEach(n.unmatch)
}

func (n *joinNode) retractRight(t *tuple.Tuple) {
	r := n.input(t, n.rightSlot, "retractRight")
	t.Clear(n.rightSlot)
	if !n.rightIndex.Remove(r.keys, r.entry) {
		fail(n.name(), "retractRight", t, "tuple missing from right index")
	}
	r.outputs.ForEach(n.unmatch)
}

// match creates the output of a pair found through the index, unless a
// filtering rejects it.
func (n *joinNode) match(l, r *joinInput) {
	if !passesAll(n.filtering, l.t, r.t) {
		return
	}
	n.create(l, r)
}

// rematch re-tests a pair whose keys did not change.
func (n *joinNode) rematch(l, r *joinInput, out *tuple.Tuple) {
	pass := passesAll(n.filtering, l.t, r.t)
	switch {
	case out != nil && pass:
		n.refresh(out)
	case out != nil:
		n.unmatch(out)
	case pass:
		n.create(l, r)
	}
}

func (n *joinNode) create(l, r *joinInput) {
	out := tuple.NewBlank(n.leftArity+1, n.storeSize)
	out.CopyFacts(l.t, 0)
	out.SetFact(n.leftArity, r.t.A())
	link := &joinLink{left: l, right: r}
	link.leftEntry = l.outputs.Add(out)
	link.rightEntry = r.outputs.Add(out)
	out.Set(n.linkSlot, link)
	n.queue.insert(out)
}

func (n *joinNode) refresh(out *tuple.Tuple) {
	link := n.link(out)
	out.CopyFacts(link.left.t, 0)
	out.SetFact(n.leftArity, link.right.t.A())
	n.queue.update(out)
}

func (n *joinNode) unmatch(out *tuple.Tuple) {
	link := n.link(out)
	if !link.left.outputs.Remove(link.leftEntry) || !link.right.outputs.Remove(link.rightEntry) {
		fail(n.name(), "retract", out, "output is not linked to its inputs")
	}
	out.Clear(n.linkSlot)
	n.queue.retract(out)
}

func (n *joinNode) link(out *tuple.Tuple) *joinLink {
	link, _ := out.Get(n.linkSlot).(*joinLink)
	if link == nil {
		fail(n.name(), "link", out, "output has no link")
	}
	return link
}
