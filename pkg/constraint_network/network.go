package constraint_network

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/jtomasevic/incscore/pkg/score"
)

// Network is a built node graph scoring into one accumulator.
//
// IMPORTANT:
//   - A Network is single-goroutine. Build one per session.
//   - Every exported mutation settles the whole graph before returning, so
//     the accumulator always reflects the inserted facts.
//   - After an error other than ErrFactNotFound / ErrFactAlreadyInserted /
//     ErrInvalidOperation the network state is undefined.
type Network struct {
	nodes   []node
	layers  [][]node
	sources []*forEachNode
	byType  map[reflect.Type][]*forEachNode
	acc     *score.Accumulator
}

func newNetwork(nodes []node, sources []*forEachNode, acc *score.Accumulator) *Network {
	return &Network{
		nodes:   nodes,
		layers:  layered(nodes),
		sources: sources,
		byType:  map[reflect.Type][]*forEachNode{},
		acc:     acc,
	}
}

func (n *Network) Accumulator() *score.Accumulator { return n.acc }

// Insert adds a fact to every source whose type accepts it.
func (n *Network) Insert(fact any) (err error) {
	srcs, err := n.sourcesOf(fact)
	if err != nil {
		return err
	}
	for _, s := range srcs {
		if s.has(fact) {
			return fmt.Errorf("%w: %v", ErrFactAlreadyInserted, fact)
		}
	}
	defer recoverInto(&err)
	for _, s := range srcs {
		s.insert(fact)
	}
	n.settle()
	return nil
}

// Update re-evaluates everything derived from a fact that was mutated in place.
func (n *Network) Update(fact any) (err error) {
	srcs, err := n.liveSourcesOf(fact)
	if err != nil {
		return err
	}
	defer recoverInto(&err)
	for _, s := range srcs {
		s.update(fact)
	}
	n.settle()
	return nil
}

// Replace swaps old for fact, keeping every derived tuple. Both must have
// the same dynamic type.
func (n *Network) Replace(old, fact any) (err error) {
	if reflect.TypeOf(old) != reflect.TypeOf(fact) {
		return fmt.Errorf("%w: replacing %T with %T", ErrInvalidOperation, old, fact)
	}
	srcs, err := n.liveSourcesOf(old)
	if err != nil {
		return err
	}
	if old != fact {
		for _, s := range srcs {
			if s.has(fact) {
				return fmt.Errorf("%w: %v", ErrFactAlreadyInserted, fact)
			}
		}
	}
	defer recoverInto(&err)
	for _, s := range srcs {
		s.replace(old, fact)
	}
	n.settle()
	return nil
}

func (n *Network) Retract(fact any) (err error) {
	srcs, err := n.liveSourcesOf(fact)
	if err != nil {
		return err
	}
	defer recoverInto(&err)
	for _, s := range srcs {
		s.retract(fact)
	}
	n.settle()
	return nil
}

// sourcesOf returns the sources accepting the fact's type. A fact no
// constraint uses has none, which is not an error.
func (n *Network) sourcesOf(fact any) ([]*forEachNode, error) {
	if fact == nil {
		return nil, fmt.Errorf("%w: nil fact", ErrInvalidOperation)
	}
	typ := reflect.TypeOf(fact)
	if !typ.Comparable() {
		return nil, fmt.Errorf("%w: fact of type %s is not comparable", ErrInvalidOperation, typ)
	}
	srcs, ok := n.byType[typ]
	if !ok {
		for _, s := range n.sources {
			if s.accepts(typ) {
				srcs = append(srcs, s)
			}
		}
		n.byType[typ] = srcs
	}
	return srcs, nil
}

func (n *Network) liveSourcesOf(fact any) ([]*forEachNode, error) {
	srcs, err := n.sourcesOf(fact)
	if err != nil {
		return nil, err
	}
	for _, s := range srcs {
		if !s.has(fact) {
			return nil, fmt.Errorf("%w: %v", ErrFactNotFound, fact)
		}
	}
	return srcs, nil
}

// settle propagates layer by layer until every queue is empty. A node only
// feeds nodes of a higher layer, so one pass suffices.
func (n *Network) settle() {
	for _, layer := range n.layers {
		for _, nd := range layer {
			nd.propagate()
		}
	}
}

func (n *Network) NodeCount() int { return len(n.nodes) }

func (n *Network) LayerCount() int { return len(n.layers) }

// NodeStats returns one entry per node in build order.
func (n *Network) NodeStats() []NodeStats {
	out := make([]NodeStats, len(n.nodes))
	for i, nd := range n.nodes {
		out[i] = nd.base().stats()
	}
	return out
}

// String renders the graph layer by layer.
func (n *Network) String() string {
	var sb strings.Builder
	for l, layer := range n.layers {
		fmt.Fprintf(&sb, "[Layer %d]\n", l)
		for i, nd := range layer {
			b := nd.base()
			branch := "├──"
			if i == len(layer)-1 {
				branch = "└──"
			}
			fmt.Fprintf(&sb, "%s #%d %s", branch, b.id, b.kind)
			if len(b.parents) > 0 {
				ids := make([]string, len(b.parents))
				for j, p := range b.parents {
					ids[j] = fmt.Sprintf("#%d", p.base().id)
				}
				fmt.Fprintf(&sb, " <- %s", strings.Join(ids, ", "))
			}
			fmt.Fprintf(&sb, " (consumers=%d, store=%d)\n", len(b.out.consumers), b.storeSize)
		}
	}
	return sb.String()
}
