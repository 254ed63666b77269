package constraint_network

import (
	"errors"
	"math/rand"
	"reflect"
	"strings"
	"testing"

	"github.com/jtomasevic/incscore/pkg/index"
	"github.com/jtomasevic/incscore/pkg/score"
	"github.com/jtomasevic/incscore/pkg/tuple"
	"github.com/stretchr/testify/require"
)

/*
========================
Propagation queue
========================
*/

func TestPropagationQueue_Transitions(t *testing.T) {
	owner := &nodeBase{kind: "test", out: &bridge{}}
	owner.queue.owner = owner
	rec := &recorder{}
	owner.out.attach(rec)
	q := &owner.queue

	a := tuple.NewUni("a", 0)
	b := tuple.NewUni("b", 0)
	q.insert(a)
	q.insert(b)
	q.retract(b)
	require.Equal(t, tuple.Aborting, b.State())
	q.propagate()
	require.Equal(t, []string{"insert Uni[a]@CREATING"}, rec.events)
	require.Equal(t, tuple.Ok, a.State())
	require.Equal(t, tuple.Dead, b.State())

	rec.events = nil
	q.update(a)
	q.update(a)
	c := tuple.NewUni("c", 0)
	q.insert(c)
	q.retract(a)
	q.propagate()
	require.Equal(t, []string{"retract Uni[a]@DYING", "insert Uni[c]@CREATING"}, rec.events)
	require.Equal(t, uint64(2), q.inserted)
	require.Equal(t, uint64(1), q.retracted)
	require.Zero(t, q.updated)

	require.Panics(t, func() { q.update(a) })
	require.Panics(t, func() { q.retract(a) })
	require.Panics(t, func() { q.insert(c) })
}

/*
========================
Filter / join
========================
*/

func TestNetwork_FilterPromotesAndDemotes(t *testing.T) {
	n := build(t, penalize("even", Filter(ForEach(itemType), predicate(isEven))))
	i := &item{id: 1, value: 1}
	require.NoError(t, n.Insert(i))
	requireScore(t, n, 0)

	i.value = 2
	require.NoError(t, n.Update(i))
	requireScore(t, n, -1)

	i.value = 4
	require.NoError(t, n.Update(i))
	requireScore(t, n, -1)

	i.value = 3
	require.NoError(t, n.Update(i))
	requireScore(t, n, 0)

	i.value = 6
	require.NoError(t, n.Update(i))
	require.NoError(t, n.Retract(i))
	requireScore(t, n, 0)
}

func TestNetwork_EqualValuePairs(t *testing.T) {
	n := build(t, penalize("pairs", equalValuePairs()))
	items := []*item{{id: 1, value: 1}, {id: 2, value: 2}, {id: 3, value: 2}}
	for _, i := range items {
		require.NoError(t, n.Insert(i))
	}
	requireScore(t, n, -1)

	items[0].value = 2
	require.NoError(t, n.Update(items[0]))
	requireScore(t, n, -3)

	require.NoError(t, n.Retract(items[1]))
	requireScore(t, n, -1)

	items[2].value = 5
	require.NoError(t, n.Update(items[2]))
	requireScore(t, n, 0)
}

func TestNetwork_JoinUpdatesInPlace(t *testing.T) {
	n := build(t, penalize("blocked", Join(ForEach(itemType), ForEach(blockerType),
		[]Joiner{joiner(index.Equal, itemValue, blockerValue)})))
	i := &item{id: 1, value: 1}
	b := &blocker{value: 1}
	require.NoError(t, n.Insert(i))
	require.NoError(t, n.Insert(b))
	requireScore(t, n, -1)

	i.id = 7
	require.NoError(t, n.Update(i))
	requireScore(t, n, -1)
	join := n.NodeStats()[2]
	require.True(t, strings.HasPrefix(join.Kind, "join"))
	require.Equal(t, uint64(1), join.Inserted)
	require.Equal(t, uint64(1), join.Updated)
	require.Zero(t, join.Retracted)

	i.value = 2
	require.NoError(t, n.Update(i))
	requireScore(t, n, 0)
	require.Equal(t, uint64(1), n.NodeStats()[2].Retracted)

	b.value = 2
	require.NoError(t, n.Update(b))
	requireScore(t, n, -1)
	require.Equal(t, uint64(2), n.NodeStats()[2].Inserted)
}

func TestNetwork_ComparisonJoin(t *testing.T) {
	items := ForEach(itemType)
	// every (a, b) with a.value < b.value
	n := build(t, penalize("ascending", Join(items, items,
		[]Joiner{joiner(index.LessThan, itemValue, itemValue)})))
	a, b, c := &item{id: 1, value: 1}, &item{id: 2, value: 2}, &item{id: 3, value: 3}
	for _, i := range []*item{a, b, c} {
		require.NoError(t, n.Insert(i))
	}
	requireScore(t, n, -3)

	c.value = 0
	require.NoError(t, n.Update(c))
	requireScore(t, n, -3)

	b.value = 1
	require.NoError(t, n.Update(b))
	requireScore(t, n, -2)
}

func TestNetwork_JoinChainToQuad(t *testing.T) {
	items := ForEach(itemType)
	eq := []Joiner{joiner(index.Equal, itemValue, itemValue)}
	eqLast := []Joiner{joiner(index.Equal, lastItemValue, itemValue)}
	quads := Join(Join(Join(items, items, eq), items, eqLast), items, eqLast)
	n := build(t, penalize("quads", quads))
	require.NoError(t, n.Insert(&item{id: 1, value: 1}))
	requireScore(t, n, -1)
	require.NoError(t, n.Insert(&item{id: 2, value: 1}))
	requireScore(t, n, -16)
}

/*
========================
ifExists / ifNotExists
========================
*/

func TestNetwork_IfExistsAndIfNotExists(t *testing.T) {
	items, blockers := ForEach(itemType), ForEach(blockerType)
	joiners := []Joiner{joiner(index.Equal, itemValue, blockerValue)}
	n := build(t,
		penalize("blocked", IfExists(items, blockers, true, joiners)),
		penalize("unblocked", IfExists(items, blockers, false, joiners)),
	)
	acc := n.Accumulator()
	blocked := func() int64 { return acc.ConstraintScore(0).Level(0) }
	unblocked := func() int64 { return acc.ConstraintScore(1).Level(0) }

	i1, i2 := &item{id: 1, value: 1}, &item{id: 2, value: 2}
	require.NoError(t, n.Insert(i1))
	require.NoError(t, n.Insert(i2))
	require.Equal(t, int64(0), blocked())
	require.Equal(t, int64(-2), unblocked())

	b1, b2 := &blocker{value: 1}, &blocker{value: 1}
	require.NoError(t, n.Insert(b1))
	require.NoError(t, n.Insert(b2))
	require.Equal(t, int64(-1), blocked())
	require.Equal(t, int64(-1), unblocked())

	require.NoError(t, n.Retract(b1))
	require.Equal(t, int64(-1), blocked())

	b2.value = 2
	require.NoError(t, n.Update(b2))
	require.Equal(t, int64(-1), blocked())
	require.Equal(t, int64(-1), unblocked())

	i2.value = 3
	require.NoError(t, n.Update(i2))
	require.Equal(t, int64(0), blocked())
	require.Equal(t, int64(-2), unblocked())

	require.NoError(t, n.Retract(i1))
	require.NoError(t, n.Retract(i2))
	require.True(t, acc.Score().IsZero())
}

/*
========================
groupBy / map / flatten / concat / distinct
========================
*/

func TestNetwork_GroupByCount(t *testing.T) {
	def := penalize("crowded", GroupBy(ForEach(itemType),
		[]Mapping{mapping(itemValue)}, []Collector{countCollector{}}))
	def.MatchWeight = func(t *tuple.Tuple) int64 {
		c := int64(t.B().(int))
		return c * c
	}
	n := build(t, def)
	i1, i2, i3 := &item{id: 1, value: 1}, &item{id: 2, value: 1}, &item{id: 3, value: 2}
	for _, i := range []*item{i1, i2, i3} {
		require.NoError(t, n.Insert(i))
	}
	requireScore(t, n, -5)

	i3.value = 1
	require.NoError(t, n.Update(i3))
	requireScore(t, n, -9)

	require.NoError(t, n.Retract(i1))
	requireScore(t, n, -4)

	require.NoError(t, n.Retract(i2))
	require.NoError(t, n.Retract(i3))
	requireScore(t, n, 0)
}

func TestNetwork_GroupWithoutKeys(t *testing.T) {
	def := penalize("total", GroupBy(ForEach(itemType), nil, []Collector{countCollector{}}))
	def.MatchWeight = func(t *tuple.Tuple) int64 { return int64(t.A().(int)) }
	n := build(t, def)
	i1, i2 := &item{id: 1}, &item{id: 2}
	require.NoError(t, n.Insert(i1))
	require.NoError(t, n.Insert(i2))
	requireScore(t, n, -2)
	require.NoError(t, n.Retract(i1))
	require.NoError(t, n.Retract(i2))
	requireScore(t, n, 0)
	require.Empty(t, n.Accumulator().Totals()[0].Matches)
}

func TestNetwork_MapThenDistinct(t *testing.T) {
	n := build(t, penalize("values", Distinct(Map(ForEach(itemType), mapping(itemValue)))))
	i1, i2, i3 := &item{id: 1, value: 1}, &item{id: 2, value: 1}, &item{id: 3, value: 2}
	for _, i := range []*item{i1, i2, i3} {
		require.NoError(t, n.Insert(i))
	}
	requireScore(t, n, -2)

	require.NoError(t, n.Retract(i3))
	requireScore(t, n, -1)

	i2.value = 9
	require.NoError(t, n.Update(i2))
	requireScore(t, n, -2)
}

func TestNetwork_FlattenLastReusesElements(t *testing.T) {
	n := build(t, penalize("tags", FlattenLast(ForEach(itemType), Flattener{Fn: itemTags, ID: 1})))
	i := &item{id: 1, tags: []string{"a", "b"}}
	require.NoError(t, n.Insert(i))
	requireScore(t, n, -2)

	i.tags = []string{"b", "c", "c"}
	require.NoError(t, n.Update(i))
	requireScore(t, n, -3)

	flatten := n.NodeStats()[1]
	require.Equal(t, "flattenLast", flatten.Kind)
	require.Equal(t, uint64(4), flatten.Inserted)
	require.Equal(t, uint64(1), flatten.Updated)
	require.Equal(t, uint64(1), flatten.Retracted)

	require.NoError(t, n.Retract(i))
	requireScore(t, n, 0)
}

func TestNetwork_Concat(t *testing.T) {
	items := ForEach(itemType)
	n := build(t, penalize("twice even", Concat(Filter(items, predicate(isEven)), items)))
	i2, i3 := &item{id: 2, value: 2}, &item{id: 3, value: 3}
	require.NoError(t, n.Insert(i2))
	require.NoError(t, n.Insert(i3))
	requireScore(t, n, -3)

	i3.value = 4
	require.NoError(t, n.Update(i3))
	requireScore(t, n, -4)

	require.NoError(t, n.Retract(i2))
	requireScore(t, n, -2)
}

func TestNetwork_RetractAllLeavesNoState(t *testing.T) {
	items := ForEach(itemType)
	defs := append(randomEquivalenceDefs(),
		penalize("values", Distinct(Map(items, mapping(itemValue)))),
		penalize("tags", FlattenLast(items, Flattener{Fn: itemTags, ID: 1})),
		penalize("twice even", Concat(Filter(items, predicate(isEven)), items)),
	)
	n := build(t, defs...)
	facts := []any{
		&item{id: 1, value: 1, tags: []string{"a"}},
		&item{id: 2, value: 1},
		&item{id: 3, value: 2, tags: []string{"a", "b"}},
		&blocker{value: 1},
		&blocker{value: 2},
	}
	for _, f := range facts {
		require.NoError(t, n.Insert(f))
	}
	require.False(t, n.Accumulator().Score().IsZero())

	for _, f := range facts {
		require.NoError(t, n.Retract(f))
	}
	requireScore(t, n, 0)
	for _, total := range n.Accumulator().Totals() {
		require.Zero(t, total.MatchCount, total.Constraint.ID())
	}
	for _, nd := range n.nodes {
		b := nd.base()
		require.Empty(t, b.queue.dirty, b.name())
		switch x := nd.(type) {
		case *forEachNode:
			require.Empty(t, x.tuples, b.name())
		case *joinNode:
			require.True(t, x.leftIndex.IsEmpty(), b.name())
			require.True(t, x.rightIndex.IsEmpty(), b.name())
		case *existsNode:
			require.True(t, x.leftIndex.IsEmpty(), b.name())
			require.True(t, x.rightIndex.IsEmpty(), b.name())
		case *groupNode:
			require.Empty(t, x.groups, b.name())
		}
	}
}

/*
========================
Node sharing and rendering
========================
*/

func TestBuild_SharesEqualOperations(t *testing.T) {
	items := ForEach(itemType)
	seen := map[string][]*tuple.Tuple{}
	recordMatch := func(def *ConstraintDef) *ConstraintDef {
		def.MatchWeight = func(t *tuple.Tuple) int64 {
			seen[def.Ref.Name] = append(seen[def.Ref.Name], t)
			return 1
		}
		return def
	}
	n := build(t,
		recordMatch(penalize("pairs", equalValuePairs())),
		recordMatch(penalize("even pairs", Filter(equalValuePairs(), predicate(isEven)))),
		penalize("ascending", Join(items, items, []Joiner{joiner(index.LessThan, itemValue, itemValue)})),
	)
	// forEach(item), the shared equal join and the less-than join
	require.Equal(t, 3, n.NodeCount())
	require.Equal(t, 2, n.LayerCount())

	require.NoError(t, n.Insert(&item{id: 1, value: 2}))
	require.NoError(t, n.Insert(&item{id: 2, value: 2}))
	requireScore(t, n, -2)

	// both constraints score the one tuple of the shared join
	require.NotEmpty(t, seen["pairs"])
	require.NotEmpty(t, seen["even pairs"])
	require.Same(t, seen["pairs"][0], seen["even pairs"][0])

	out := n.String()
	require.Contains(t, out, "[Layer 0]")
	require.Contains(t, out, "forEach(*constraint_network.item)")
	require.Contains(t, out, "#1 join(==)+1filtering <- #0, #0")
}

func TestBuild_ZeroWeightDisablesConstraint(t *testing.T) {
	acc := score.NewAccumulator(score.Simple, false)
	n, err := Build([]*ConstraintDef{penalize("pairs", equalValuePairs())}, acc,
		WithWeights(map[string]score.Score{"test/pairs": score.SimpleOf(0)}))
	require.NoError(t, err)
	require.Zero(t, n.NodeCount())
	require.Zero(t, acc.ConstraintCount())
	require.NoError(t, n.Insert(&item{id: 1}))
}

func TestBuild_Errors(t *testing.T) {
	items := ForEach(itemType)
	eq := []Joiner{joiner(index.Equal, itemValue, itemValue)}
	quad := Join(Join(Join(items, items, eq), items, eq), items, eq)

	badOp := Filter(items, predicate(isEven))
	badOp.Err = errors.New("boom")

	cases := []struct {
		name string
		defs []*ConstraintDef
		opts []BuildOption
		want error
	}{
		{name: "arity overflow", defs: []*ConstraintDef{penalize("x", Join(quad, items, eq))}, want: ErrArityOverflow},
		{name: "non removable collector", defs: []*ConstraintDef{penalize("x", GroupBy(items, nil, []Collector{appendOnly{}}))}, want: ErrNonRemovableCollector},
		{name: "joiner type mismatch", defs: []*ConstraintDef{penalize("x", Join(items, items, []Joiner{{
			Kind: index.Equal, Left: itemValue, Right: itemID, LeftType: reflect.TypeOf(0), RightType: reflect.TypeOf(""),
		}}))}, want: ErrInvalidJoiner},
		{name: "missing comparator", defs: []*ConstraintDef{penalize("x", Join(items, items, []Joiner{{
			Kind: index.LessThan, Left: itemValue, Right: itemValue,
		}}))}, want: ErrInvalidJoiner},
		{name: "right side not uni", defs: []*ConstraintDef{penalize("x", Join(items, equalValuePairs(), eq))}, want: ErrInvalidOperation},
		{name: "duplicate constraint", defs: []*ConstraintDef{penalize("x", items), penalize("x", items)}, want: score.ErrDuplicateConstraint},
		{name: "declaration error", defs: []*ConstraintDef{penalize("x", badOp)}, want: badOp.Err},
		{name: "unknown weight override", defs: []*ConstraintDef{penalize("x", items)},
			opts: []BuildOption{WithWeights(map[string]score.Score{"nope": score.SimpleOf(1)})}, want: ErrInvalidOperation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Build(tc.defs, score.NewAccumulator(score.Simple, false), tc.opts...)
			require.ErrorIs(t, err, tc.want)
			var be *BuildError
			require.ErrorAs(t, err, &be)
		})
	}

	_, err := Build(nil, score.NewAccumulator(score.Simple, false))
	require.ErrorIs(t, err, ErrNoConstraints)

	def := penalize("hs", items)
	def.Weight = score.HardSoftOf(1, 0)
	_, err = Build([]*ConstraintDef{def}, score.NewAccumulator(score.Simple, false))
	require.ErrorIs(t, err, score.ErrDefinitionMismatch)

	def = penalize("negative", items)
	def.Weight = score.SimpleOf(-1)
	_, err = Build([]*ConstraintDef{def}, score.NewAccumulator(score.Simple, false))
	require.ErrorIs(t, err, ErrInvalidOperation)
}

/*
========================
Runtime errors
========================
*/

func TestNetwork_FactErrors(t *testing.T) {
	n := build(t, penalize("pairs", equalValuePairs()))
	i := &item{id: 1}
	require.NoError(t, n.Insert(i))
	require.ErrorIs(t, n.Insert(i), ErrFactAlreadyInserted)
	require.ErrorIs(t, n.Retract(&item{id: 2}), ErrFactNotFound)
	require.ErrorIs(t, n.Update(&item{id: 2}), ErrFactNotFound)
	require.ErrorIs(t, n.Insert(nil), ErrInvalidOperation)
	require.ErrorIs(t, n.Insert(item{id: 3}), ErrInvalidOperation)
	require.ErrorIs(t, n.Replace(i, "other"), ErrInvalidOperation)
	require.NoError(t, n.Insert("no source takes strings"))

	j := &item{id: 1}
	require.NoError(t, n.Replace(i, j))
	require.ErrorIs(t, n.Retract(i), ErrFactNotFound)
	require.NoError(t, n.Retract(j))
}

func TestNetwork_UserPanicIsReported(t *testing.T) {
	n := build(t, penalize("boom", Filter(ForEach(itemType), predicate(func(t *tuple.Tuple) bool {
		if t.A().(*item).value == 13 {
			panic("unlucky")
		}
		return true
	}))))
	err := n.Insert(&item{id: 1, value: 13})
	require.ErrorIs(t, err, ErrUnexpectedPanic)
	require.Contains(t, err.Error(), "unlucky")
}

func TestNetwork_NegativeMatchWeightIsInconsistent(t *testing.T) {
	def := penalize("weighted", ForEach(itemType))
	def.MatchWeight = func(t *tuple.Tuple) int64 { return int64(t.A().(*item).value) }
	n := build(t, def)
	require.NoError(t, n.Insert(&item{id: 1, value: 2}))
	requireScore(t, n, -2)

	err := n.Insert(&item{id: 2, value: -1})
	require.ErrorIs(t, err, ErrConsistency)
	var ce *ConsistencyError
	require.ErrorAs(t, err, &ce)
	require.Equal(t, "score(test/weighted)", ce.Node)
}

/*
========================
Incremental == from scratch
========================
*/

func randomEquivalenceDefs() []*ConstraintDef {
	items, blockers := ForEach(itemType), ForEach(blockerType)
	crowded := penalize("crowded", GroupBy(items, []Mapping{mapping(itemValue)}, []Collector{countCollector{}}))
	crowded.MatchWeight = func(t *tuple.Tuple) int64 {
		c := int64(t.B().(int))
		return c * c
	}
	return []*ConstraintDef{
		penalize("pairs", equalValuePairs()),
		penalize("unblocked", IfExists(items, blockers, false, []Joiner{joiner(index.Equal, itemValue, blockerValue)})),
		penalize("blocked even", IfExists(Filter(items, predicate(isEven)), blockers, true,
			[]Joiner{joiner(index.Equal, itemValue, blockerValue)})),
		penalize("ascending", Join(items, items, []Joiner{joiner(index.LessThan, itemValue, itemValue)})),
		crowded,
	}
}

func TestNetwork_IncrementalMatchesFromScratch(t *testing.T) {
	rnd := rand.New(rand.NewSource(42))
	n := build(t, randomEquivalenceDefs()...)

	items := make([]*item, 12)
	for i := range items {
		items[i] = &item{id: i, value: rnd.Intn(5)}
	}
	blockers := make([]*blocker, 4)
	for i := range blockers {
		blockers[i] = &blocker{value: rnd.Intn(5)}
	}
	live := map[any]bool{}

	for step := 0; step < 400; step++ {
		var fact any
		if rnd.Intn(3) == 0 {
			fact = blockers[rnd.Intn(len(blockers))]
		} else {
			fact = items[rnd.Intn(len(items))]
		}
		switch {
		case !live[fact]:
			require.NoError(t, n.Insert(fact))
			live[fact] = true
		case rnd.Intn(4) == 0:
			require.NoError(t, n.Retract(fact))
			delete(live, fact)
		default:
			switch f := fact.(type) {
			case *item:
				f.value = rnd.Intn(5)
			case *blocker:
				f.value = rnd.Intn(5)
			}
			require.NoError(t, n.Update(fact))
		}

		fresh := build(t, randomEquivalenceDefs()...)
		for f := range live {
			require.NoError(t, fresh.Insert(f))
		}
		require.Equal(t, fresh.Accumulator().Score(), n.Accumulator().Score(), "step %d", step)
		for c := 0; c < n.Accumulator().ConstraintCount(); c++ {
			require.Equal(t, fresh.Accumulator().ConstraintScore(c), n.Accumulator().ConstraintScore(c), "step %d constraint %d", step, c)
		}
	}
}
