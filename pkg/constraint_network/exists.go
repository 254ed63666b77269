package constraint_network

import (
	"github.com/jtomasevic/incscore/pkg/index"
	"github.com/jtomasevic/incscore/pkg/tuple"
)

// existsNode implements ifExists and ifNotExists. A left tuple passes when
// its number of matching right tuples is positive (shouldExist) or zero
// (!shouldExist). A passing left tuple is re-emitted as a copy owned by
// this node.
type existsNode struct {
	nodeBase
	shouldExist bool
	leftSlot    int
	rightSlot   int
	indexing    joinIndexing
	filtering   []Filtering
	leftIndex   *index.Index[*existsLeft]
	rightIndex  *index.Index[*existsRight]
}

type existsLeft struct {
	t     *tuple.Tuple
	keys  index.Keys
	entry *index.Element[*existsLeft]
	pairs index.List[*existsPair]
	out   *tuple.Tuple
}

type existsRight struct {
	t     *tuple.Tuple
	keys  index.Keys
	entry *index.Element[*existsRight]
	pairs index.List[*existsPair]
}

type existsPair struct {
	left                  *existsLeft
	right                 *existsRight
	leftEntry, rightEntry *index.Element[*existsPair]
}

func (n *existsNode) leftOf(t *tuple.Tuple, op string) *existsLeft {
	l, _ := t.Get(n.leftSlot).(*existsLeft)
	if l == nil {
		fail(n.name(), op, t, "tuple was never inserted")
	}
	return l
}

func (n *existsNode) rightOf(t *tuple.Tuple, op string) *existsRight {
	r, _ := t.Get(n.rightSlot).(*existsRight)
	if r == nil {
		fail(n.name(), op, t, "tuple was never inserted")
	}
	return r
}

func (n *existsNode) insertLeft(t *tuple.Tuple) {
	if t.Get(n.leftSlot) != nil {
		fail(n.name(), "insertLeft", t, "tuple already inserted")
	}
	l := &existsLeft{t: t, keys: n.indexing.leftKeys(t)}
	l.entry = n.leftIndex.Put(l.keys, l)
	t.Set(n.leftSlot, l)
	n.scanLeft(l)
	n.reconcile(l, false)
}

func (n *existsNode) updateLeft(t *tuple.Tuple) {
	l := n.leftOf(t, "updateLeft")
	keys := n.indexing.leftKeys(t)
	switch {
	case !keys.Equal(l.keys):
		if !n.leftIndex.Remove(l.keys, l.entry) {
			fail(n.name(), "updateLeft", t, "tuple missing from left index")
		}
		l.pairs.ForEach(n.unpair)
		l.keys = keys
		l.entry = n.leftIndex.Put(keys, l)
		n.scanLeft(l)
	case len(n.filtering) > 0:
		l.pairs.ForEach(n.unpair)
		n.scanLeft(l)
	}
	n.reconcile(l, true)
}

func (n *existsNode) retractLeft(t *tuple.Tuple) {
	l := n.leftOf(t, "retractLeft")
	t.Clear(n.leftSlot)
	if !n.leftIndex.Remove(l.keys, l.entry) {
		fail(n.name(), "retractLeft", t, "tuple missing from left index")
	}
	l.pairs.ForEach(n.unpair)
	if l.out != nil {
		n.queue.retract(l.out)
		l.out = nil
	}
}

func (n *existsNode) insertRight(t *tuple.Tuple) {
	if t.Get(n.rightSlot) != nil {
		fail(n.name(), "insertRight", t, "tuple already inserted")
	}
	r := &existsRight{t: t, keys: n.indexing.rightKeys(t)}
	r.entry = n.rightIndex.Put(r.keys, r)
	t.Set(n.rightSlot, r)
	for _, l := range n.scanRight(r) {
		n.reconcile(l, false)
	}
}

func (n *existsNode) updateRight(t *tuple.Tuple) {
	r := n.rightOf(t, "updateRight")
	keys := n.indexing.rightKeys(t)
	if keys.Equal(r.keys) && len(n.filtering) == 0 {
		return
	}
	// Drop every pair, rescan, then settle each affected left once both
	// passes are done so a left that keeps a match is not flapped.
	affected := n.unpairRight(r)
	if !keys.Equal(r.keys) {
		if !n.rightIndex.Remove(r.keys, r.entry) {
			fail(n.name(), "updateRight", t, "tuple missing from right index")
		}
		r.keys = keys
		r.entry = n.rightIndex.Put(keys, r)
	}
	affected = append(affected, n.scanRight(r)...)
	for _, l := range affected {
		n.reconcile(l, false)
	}
}

func (n *existsNode) retractRight(t *tuple.Tuple) {
	r := n.rightOf(t, "retractRight")
	t.Clear(n.rightSlot)
	if !n.rightIndex.Remove(r.keys, r.entry) {
		fail(n.name(), "retractRight", t, "tuple missing from right index")
	}
	for _, l := range n.unpairRight(r) {
		n.reconcile(l, false)
	}
}

func (n *existsNode) scanLeft(l *existsLeft) {
	n.rightIndex.ForEach(l.keys, func(r *existsRight) {
		if passesAll(n.filtering, l.t, r.t) {
			n.pair(l, r)
		}
	})
}

func (n *existsNode) scanRight(r *existsRight) []*existsLeft {
	var paired []*existsLeft
	n.leftIndex.ForEach(r.keys, func(l *existsLeft) {
		if passesAll(n.filtering, l.t, r.t) {
			n.pair(l, r)
			paired = append(paired, l)
		}
	})
	return paired
}

func (n *existsNode) unpairRight(r *existsRight) []*existsLeft {
	lefts := make([]*existsLeft, 0, r.pairs.Len())
	r.pairs.ForEach(func(p *existsPair) {
		lefts = append(lefts, p.left)
		n.unpair(p)
	})
	return lefts
}

func (n *existsNode) pair(l *existsLeft, r *existsRight) {
	p := &existsPair{left: l, right: r}
	p.leftEntry = l.pairs.Add(p)
	p.rightEntry = r.pairs.Add(p)
}

func (n *existsNode) unpair(p *existsPair) {
	if !p.left.pairs.Remove(p.leftEntry) || !p.right.pairs.Remove(p.rightEntry) {
		fail(n.name(), "unpair", p.left.t, "pair is not linked")
	}
}

// reconcile makes the left's output match its pair count. It is idempotent
// unless refresh asks for an update of a surviving output.
func (n *existsNode) reconcile(l *existsLeft, refresh bool) {
	alive := (l.pairs.Len() > 0) == n.shouldExist
	switch {
	case alive && l.out == nil:
		l.out = tuple.NewBlank(l.t.Arity(), n.storeSize)
		l.out.CopyFacts(l.t, 0)
		n.queue.insert(l.out)
	case alive && refresh:
		l.out.CopyFacts(l.t, 0)
		n.queue.update(l.out)
	case !alive && l.out != nil:
		n.queue.retract(l.out)
		l.out = nil
	}
}
