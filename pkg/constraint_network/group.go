package constraint_network

import (
	"github.com/jtomasevic/incscore/pkg/index"
	"github.com/jtomasevic/incscore/pkg/tuple"
)

// groupNode partitions its input by key. Each non-empty group owns one
// output tuple: the key facts followed by one result per collector.
// Collector results are read when the output is propagated, so any number
// of changes to a group between two settles costs one downstream update.
type groupNode struct {
	nodeBase
	inSlot     int
	groupSlot  int
	keys       []Mapping
	collectors []Collector
	groups     map[any]*group
}

type group struct {
	key        any
	keyFacts   []any
	containers []Container
	out        *tuple.Tuple
	size       int
}

type groupInput struct {
	g     *group
	undos []func()
}

func newGroupNode(keys []Mapping, collectors []Collector) *groupNode {
	return &groupNode{keys: keys, collectors: collectors, groups: map[any]*group{}}
}

func (n *groupNode) insert(t *tuple.Tuple) {
	if t.Get(n.inSlot) != nil {
		fail(n.name(), "insert", t, "tuple already inserted")
	}
	key, facts := n.keyOf(t)
	t.Set(n.inSlot, n.enter(key, facts, t))
}

func (n *groupNode) update(t *tuple.Tuple) {
	in := n.input(t, "update")
	key, facts := n.keyOf(t)
	if key == in.g.key {
		n.undo(in, t)
		in.undos = n.accumulate(in.g, t)
		// Key facts may be mutable objects, so the output is updated even
		// without collectors.
		n.queue.update(in.g.out)
		return
	}
	n.leave(in, t)
	t.Set(n.inSlot, n.enter(key, facts, t))
}

func (n *groupNode) retract(t *tuple.Tuple) {
	in := n.input(t, "retract")
	t.Clear(n.inSlot)
	n.leave(in, t)
}

func (n *groupNode) input(t *tuple.Tuple, op string) *groupInput {
	in, _ := t.Get(n.inSlot).(*groupInput)
	if in == nil {
		fail(n.name(), op, t, "tuple was never inserted")
	}
	return in
}

func (n *groupNode) enter(key any, facts []any, t *tuple.Tuple) *groupInput {
	g := n.groups[key]
	if g == nil {
		g = &group{key: key, keyFacts: facts, containers: make([]Container, len(n.collectors))}
		for i, c := range n.collectors {
			g.containers[i] = c.NewContainer()
		}
		g.out = tuple.NewBlank(len(n.keys)+len(n.collectors), n.storeSize)
		for i, f := range facts {
			g.out.SetFact(i, f)
		}
		g.out.Set(n.groupSlot, g)
		n.groups[key] = g
		n.queue.insert(g.out)
	} else if len(n.collectors) > 0 {
		n.queue.update(g.out)
	}
	g.size++
	return &groupInput{g: g, undos: n.accumulate(g, t)}
}

func (n *groupNode) leave(in *groupInput, t *tuple.Tuple) {
	n.undo(in, t)
	g := in.g
	g.size--
	switch {
	case g.size == 0:
		delete(n.groups, g.key)
		n.queue.retract(g.out)
	case len(n.collectors) > 0:
		n.queue.update(g.out)
	}
}

func (n *groupNode) accumulate(g *group, t *tuple.Tuple) []func() {
	if len(g.containers) == 0 {
		return nil
	}
	undos := make([]func(), len(g.containers))
	for i, c := range g.containers {
		undos[i] = c.Add(t)
	}
	return undos
}

func (n *groupNode) undo(in *groupInput, t *tuple.Tuple) {
	for i, u := range in.undos {
		if u == nil {
			fail(n.name(), "undo", t, "collector %d returned no undo", i)
		}
		u()
	}
	in.undos = nil
}

func (n *groupNode) keyOf(t *tuple.Tuple) (any, []any) {
	switch len(n.keys) {
	case 0:
		return index.NoKey, nil
	case 1:
		k := n.keys[0].Fn(t)
		return k, []any{k}
	}
	facts := make([]any, len(n.keys))
	for i, m := range n.keys {
		facts[i] = m.Fn(t)
	}
	return index.Composite(facts...), facts
}

// propagate writes the current collector results into every dirty output
// before handing the queue over.
func (n *groupNode) propagate() {
	if len(n.collectors) > 0 {
		for _, out := range n.queue.dirty {
			if s := out.State(); s != tuple.Creating && s != tuple.Updating {
				continue
			}
			g := out.Get(n.groupSlot).(*group)
			for i, c := range g.containers {
				out.SetFact(len(n.keys)+i, c.Result())
			}
		}
	}
	n.queue.propagate()
}

// distinctKeys groups on every fact of the input tuple.
func distinctKeys(arity int) []Mapping {
	keys := make([]Mapping, arity)
	for i := range keys {
		keys[i] = FactMapping(i)
	}
	return keys
}
