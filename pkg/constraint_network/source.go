package constraint_network

import (
	"reflect"

	"github.com/jtomasevic/incscore/pkg/tuple"
)

// forEachNode is a source: one uni tuple per inserted fact of its category.
type forEachNode struct {
	nodeBase
	category reflect.Type
	tuples   map[any]*tuple.Tuple
}

func newForEachNode(category reflect.Type) *forEachNode {
	n := &forEachNode{category: category, tuples: map[any]*tuple.Tuple{}}
	n.kind = "forEach(" + category.String() + ")"
	return n
}

func (n *forEachNode) accepts(typ reflect.Type) bool {
	return typ.AssignableTo(n.category)
}

func (n *forEachNode) has(fact any) bool {
	_, ok := n.tuples[fact]
	return ok
}

func (n *forEachNode) insert(fact any) {
	if _, ok := n.tuples[fact]; ok {
		fail(n.name(), "insert", nil, "fact %v already inserted", fact)
	}
	t := tuple.NewUni(fact, n.storeSize)
	n.tuples[fact] = t
	n.queue.insert(t)
}

func (n *forEachNode) update(fact any) {
	t, ok := n.tuples[fact]
	if !ok {
		fail(n.name(), "update", nil, "fact %v not inserted", fact)
	}
	n.queue.update(t)
}

// replace swaps the fact held by a live tuple and propagates it as an update.
func (n *forEachNode) replace(old, fact any) {
	t, ok := n.tuples[old]
	if !ok {
		fail(n.name(), "replace", nil, "fact %v not inserted", old)
	}
	delete(n.tuples, old)
	n.tuples[fact] = t
	t.SetFact(0, fact)
	n.queue.update(t)
}

func (n *forEachNode) retract(fact any) {
	t, ok := n.tuples[fact]
	if !ok {
		fail(n.name(), "retract", nil, "fact %v not inserted", fact)
	}
	delete(n.tuples, fact)
	n.queue.retract(t)
}
