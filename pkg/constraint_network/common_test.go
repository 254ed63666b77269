package constraint_network

import (
	"reflect"
	"testing"

	"github.com/jtomasevic/incscore/pkg/index"
	"github.com/jtomasevic/incscore/pkg/score"
	"github.com/jtomasevic/incscore/pkg/signature"
	"github.com/jtomasevic/incscore/pkg/tuple"
	"github.com/stretchr/testify/require"
)

type item struct {
	id    int
	value int
	tags  []string
}

type blocker struct {
	value int
}

var (
	itemType    = reflect.TypeOf((*item)(nil))
	blockerType = reflect.TypeOf((*blocker)(nil))
)

func itemValue(t *tuple.Tuple) any     { return t.A().(*item).value }
func lastItemValue(t *tuple.Tuple) any { return t.Fact(t.Arity() - 1).(*item).value }
func blockerValue(t *tuple.Tuple) any  { return t.A().(*blocker).value }
func itemID(t *tuple.Tuple) any        { return t.A().(*item).id }
func itemTags(t *tuple.Tuple) []any {
	tags := t.A().(*item).tags
	out := make([]any, len(tags))
	for i, s := range tags {
		out[i] = s
	}
	return out
}

func lessLeftID(l, r *tuple.Tuple) bool { return l.A().(*item).id < r.A().(*item).id }
func isEven(t *tuple.Tuple) bool        { return t.A().(*item).value%2 == 0 }

func compareInts(a, b any) int {
	x, y := a.(int), b.(int)
	switch {
	case x < y:
		return -1
	case x > y:
		return 1
	}
	return 0
}

func mapping(f func(*tuple.Tuple) any) Mapping {
	return Mapping{Fn: f, ID: signature.FuncID(f)}
}

func predicate(f func(*tuple.Tuple) bool) Predicate {
	return Predicate{Fn: f, ID: signature.FuncID(f)}
}

func filtering(f func(l, r *tuple.Tuple) bool) Filtering {
	return Filtering{Fn: f, ID: signature.FuncID(f)}
}

func joiner(kind index.Comparison, left, right func(*tuple.Tuple) any) Joiner {
	j := Joiner{
		Kind:    kind,
		Left:    left,
		Right:   right,
		LeftID:  signature.FuncID(left),
		RightID: signature.FuncID(right),
	}
	if kind != index.Equal {
		j.Compare = compareInts
	}
	return j
}

// equalValuePairs is forEach(item) joined with itself on value, each
// unordered pair once.
func equalValuePairs() *Op {
	items := ForEach(itemType)
	return Join(items, items,
		[]Joiner{joiner(index.Equal, itemValue, itemValue)},
		filtering(lessLeftID))
}

func penalize(name string, src *Op) *ConstraintDef {
	return &ConstraintDef{
		Ref:    score.ConstraintRef{Package: "test", Name: name},
		Weight: score.SimpleOf(1),
		Impact: Penalize,
		Source: src,
	}
}

func build(t *testing.T, defs ...*ConstraintDef) *Network {
	t.Helper()
	n, err := Build(defs, score.NewAccumulator(score.Simple, true))
	require.NoError(t, err)
	return n
}

func requireScore(t *testing.T, n *Network, want int64) {
	t.Helper()
	require.Equal(t, score.SimpleOf(want), n.Accumulator().Score())
	require.Equal(t, n.Accumulator().Score(), n.Accumulator().SumOfConstraints())
}

// countCollector counts the tuples of a group.
type countCollector struct{}

type countContainer struct{ n int }

func (countCollector) NewContainer() Container { return &countContainer{} }
func (countCollector) Removable() bool         { return true }
func (countCollector) Signature() string       { return "count" }

func (c *countContainer) Add(*tuple.Tuple) func() {
	c.n++
	return func() { c.n-- }
}

func (c *countContainer) Result() any { return c.n }

// appendOnly refuses removal.
type appendOnly struct{ countCollector }

func (appendOnly) Removable() bool   { return false }
func (appendOnly) Signature() string { return "appendOnly" }

// recorder captures the stream a queue propagates.
type recorder struct {
	events []string
}

func (r *recorder) Insert(t *tuple.Tuple)  { r.events = append(r.events, "insert "+t.String()) }
func (r *recorder) Update(t *tuple.Tuple)  { r.events = append(r.events, "update "+t.String()) }
func (r *recorder) Retract(t *tuple.Tuple) { r.events = append(r.events, "retract "+t.String()) }
