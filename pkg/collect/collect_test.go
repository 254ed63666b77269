package collect

import (
	"cmp"
	"math"
	"math/rand"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

type load struct {
	name   string
	metric int64
}

func loadName(l load) string  { return l.name }
func loadMetric(l load) int64 { return l.metric }
func loadDay(l load) int      { return int(l.metric) }
func loadEnd(l load) int64    { return l.metric + int64(len(l.name)) }
func byMetric(a, b load) int  { return cmp.Compare(a.metric, b.metric) }

func TestCount(t *testing.T) {
	c := Count[string]().NewContainer()
	require.Equal(t, 0, c.Result())
	u1 := c.Add("a")
	u2 := c.Add("a")
	require.Equal(t, 2, c.Result())
	u1()
	u2()
	require.Equal(t, 0, c.Result())
}

func TestCountDistinct(t *testing.T) {
	c := CountDistinct[string]().NewContainer()
	u1 := c.Add("a")
	c.Add("a")
	c.Add("b")
	require.Equal(t, 2, c.Result())
	u1()
	require.Equal(t, 2, c.Result())
}

func TestSumAndAverage(t *testing.T) {
	sum := Sum(loadMetric).NewContainer()
	avg := Average(loadMetric).NewContainer()
	require.Equal(t, 0.0, avg.Result())
	for _, l := range []load{{"a", 2}, {"b", 4}} {
		sum.Add(l)
		avg.Add(l)
	}
	u := sum.Add(load{"c", 9})
	require.Equal(t, int64(15), sum.Result())
	u()
	require.Equal(t, int64(6), sum.Result())
	require.Equal(t, 3.0, avg.Result())
}

func TestSumAndAverageUndoExactly(t *testing.T) {
	sum := Sum(loadMetric).NewContainer()
	avg := Average(loadMetric).NewContainer()
	undoSum, undoAvg := sum.Add(load{"huge", 1e17}), avg.Add(load{"huge", 1e17})
	sum.Add(load{"one", 1})
	avg.Add(load{"one", 1})
	undoSum()
	undoAvg()
	require.Equal(t, int64(1), sum.Result())
	require.Equal(t, 1.0, avg.Result())

	// wrapping around is undone as well
	undoSum = sum.Add(load{"max", math.MaxInt64})
	sum.Add(load{"two", 2})
	undoSum()
	require.Equal(t, int64(3), sum.Result())
}

func TestMinMax(t *testing.T) {
	minC := Min(loadMetric).NewContainer()
	maxBy := MaxBy(loadMetric).NewContainer()
	a, b, c := load{"a", 3}, load{"b", 1}, load{"c", 3}
	var undoB func()
	for _, l := range []load{a, b, c} {
		u := minC.Add(l)
		maxBy.Add(l)
		if l == b {
			undoB = u
		}
	}
	require.Equal(t, int64(1), minC.Result())
	require.Equal(t, c, maxBy.Result())
	undoB()
	require.Equal(t, int64(3), minC.Result())

	minBy := MinBy(loadMetric).NewContainer()
	require.Equal(t, load{}, minBy.Result())
	minBy.Add(a)
	minBy.Add(c)
	require.Equal(t, a, minBy.Result())
}

func TestCollections(t *testing.T) {
	list := ToList[string]().NewContainer()
	set := ToSet[string]().NewContainer()
	sorted := ToSortedSet(strings.Compare).NewContainer()
	var undos []func()
	for _, s := range []string{"b", "a", "b"} {
		list.Add(s)
		undos = append(undos, set.Add(s), sorted.Add(s))
	}
	require.Equal(t, []string{"b", "a", "b"}, list.Result())
	require.Equal(t, map[string]struct{}{"a": {}, "b": {}}, set.Result())
	require.Equal(t, []string{"a", "b"}, sorted.Result())

	// drop the first "b" from set and sorted set: one "b" remains
	undos[0]()
	undos[1]()
	require.Len(t, set.Result(), 2)
	require.Equal(t, []string{"a", "b"}, sorted.Result())
}

func TestSortedSetKeepsRemainingEqualElement(t *testing.T) {
	c := ToSortedSet(byMetric).NewContainer()
	a, b, d := load{"a", 1}, load{"b", 1}, load{"d", 1}
	undoA := c.Add(a)
	undoB := c.Add(b)
	c.Add(load{"c", 0})
	require.Equal(t, []load{{"c", 0}, a}, c.Result())

	undoA()
	require.Equal(t, []load{{"c", 0}, b}, c.Result())
	c.Add(d)
	require.Equal(t, []load{{"c", 0}, b}, c.Result())
	undoB()
	require.Equal(t, []load{{"c", 0}, d}, c.Result())
}

func TestToMap(t *testing.T) {
	c := ToMap(loadName, loadMetric).NewContainer()
	u := c.Add(load{"a", 1})
	c.Add(load{"a", 2})
	c.Add(load{"b", 3})
	require.Equal(t, map[string][]int64{"a": {1, 2}, "b": {3}}, c.Result())
	u()
	require.Equal(t, map[string][]int64{"a": {2}, "b": {3}}, c.Result())
}

func TestComposition(t *testing.T) {
	heavy := func(l load) bool { return l.metric > 1 }
	c := Conditionally(heavy, Count[load]()).NewContainer()
	c.Add(load{"a", 1})
	u := c.Add(load{"b", 2})
	require.Equal(t, 1, c.Result())
	u()
	require.Equal(t, 0, c.Result())

	tenfold := AndThen(Count[load](), func(n int) int { return n * 10 }).NewContainer()
	tenfold.Add(load{})
	require.Equal(t, 10, tenfold.Result())

	spread := Compose(Min(loadMetric), Max(loadMetric), func(lo, hi int64) int64 { return hi - lo }).NewContainer()
	spread.Add(load{"a", 2})
	u = spread.Add(load{"b", 7})
	require.Equal(t, int64(5), spread.Result())
	u()
	require.Equal(t, int64(0), spread.Result())
}

func TestReduce(t *testing.T) {
	maxOf := func(a, b int) int { return max(a, b) }
	c := Reduce(0, maxOf).NewContainer()
	c.Add(3)
	u := c.Add(9)
	require.Equal(t, 9, c.Result())
	u()
	require.Equal(t, 3, c.Result())

	add := func(acc, v int64) int64 { return acc + v }
	sub := func(acc, v int64) int64 { return acc - v }
	inv := ReduceInvertible(0, loadMetric, add, sub).NewContainer()
	u = inv.Add(load{"a", 4})
	inv.Add(load{"b", 5})
	u()
	require.Equal(t, int64(5), inv.Result())
}

func TestLoadBalance(t *testing.T) {
	c := LoadBalanceOf(loadName, loadMetric).NewContainer()
	require.Zero(t, c.Result().Unfairness)

	first := c.Add(load{"A", 2})
	require.Zero(t, c.Result().Unfairness)
	second := c.Add(load{"B", 1})
	require.InDelta(t, 0.707107, c.Result().Unfairness, 1e-6)
	third := c.Add(load{"B", 1})
	require.InDelta(t, 0, c.Result().Unfairness, 1e-9)
	second()
	require.InDelta(t, 0.707107, c.Result().Unfairness, 1e-6)
	third()
	require.Zero(t, c.Result().Unfairness)
	require.Equal(t, map[string]int64{"A": 2}, c.Result().Loads)
	first()
	require.Empty(t, c.Result().Loads)
}

func TestLoadBalanceUndoExactly(t *testing.T) {
	c := LoadBalanceOf(loadName, loadMetric).NewContainer()
	c.Add(load{"A", 1})
	c.Add(load{"B", 2})
	before := c.Result()
	undo := c.Add(load{"A", 1e17})
	undo()
	require.Equal(t, before, c.Result())
}

func TestConsecutiveSequences(t *testing.T) {
	c := ToConsecutiveSequences(loadDay).NewContainer()
	require.Empty(t, c.Result().Sequences)

	undos := map[string]func(){}
	for _, l := range []load{{"d1", 1}, {"d2", 2}, {"d3", 3}, {"d5", 5}, {"e5", 5}, {"d8", 8}} {
		undos[l.name] = c.Add(l)
	}
	chain := c.Result()
	require.Equal(t, []Sequence[load]{
		{First: 1, Last: 3, Items: []load{{"d1", 1}, {"d2", 2}, {"d3", 3}}},
		{First: 5, Last: 5, Items: []load{{"d5", 5}, {"e5", 5}}},
		{First: 8, Last: 8, Items: []load{{"d8", 8}}},
	}, chain.Sequences)
	require.Equal(t, []Break{{After: 3, Before: 5}, {After: 5, Before: 8}}, chain.Breaks)
	require.Equal(t, 3, chain.Sequences[0].Length())
	require.Equal(t, 2, chain.Breaks[0].Length())

	undos["d5"]()
	undos["d3"]()
	chain = c.Result()
	require.Len(t, chain.Sequences, 3)
	require.Equal(t, Sequence[load]{First: 5, Last: 5, Items: []load{{"e5", 5}}}, chain.Sequences[1])
	require.Equal(t, 3, chain.Breaks[0].Length())

	// 3 and 4 close the hole between 2 and 5
	c.Add(load{"d4", 4})
	c.Add(load{"d3", 3})
	chain = c.Result()
	require.Len(t, chain.Sequences, 2)
	require.Equal(t, 1, chain.Sequences[0].First)
	require.Equal(t, 5, chain.Sequences[0].Last)
	require.Equal(t, []Break{{After: 5, Before: 8}}, chain.Breaks)
}

func TestConnectedRanges(t *testing.T) {
	c := ToConnectedRanges(loadMetric, loadEnd).NewContainer()
	require.Empty(t, c.Result().Ranges)

	// the name length is the duration
	a, b, d := load{"aaaa", 0}, load{"bbbb", 2}, load{"dd", 6}
	e := load{"ee", 10}
	c.Add(a)
	undoB := c.Add(b)
	c.Add(d)
	c.Add(e)
	require.Equal(t, ConnectedRanges[load, int64]{
		Ranges: []ConnectedRange[load, int64]{
			{Start: 0, End: 8, Items: []load{a, b, d}, MinimumOverlap: 1, MaximumOverlap: 2},
			{Start: 10, End: 12, Items: []load{e}, MinimumOverlap: 1, MaximumOverlap: 1},
		},
		Gaps: []Gap[int64]{{Start: 8, End: 10}},
	}, c.Result())

	undoB()
	got := c.Result()
	require.Len(t, got.Ranges, 3)
	require.Equal(t, []Gap[int64]{{Start: 4, End: 6}, {Start: 8, End: 10}}, got.Gaps)
	require.Equal(t, int64(4), got.Ranges[0].Length())
	require.Equal(t, int64(2), got.Gaps[0].Length())
	require.Equal(t, 1, got.Ranges[1].Count())

	// an empty range touching a stretch joins it without covering anything
	c.Add(load{"", 12})
	got = c.Result()
	require.Equal(t, 2, got.Ranges[2].Count())
	require.Equal(t, 1, got.Ranges[2].MaximumOverlap)
}

type added[A any] struct {
	a    A
	undo func()
}

// requireSameAsRebuilt adds and undoes random elements and compares the
// container after every step with one built from the remaining elements.
func requireSameAsRebuilt[A, R any](t *testing.T, c Collector[A, R], gen func(*rand.Rand) A) {
	t.Helper()
	rng := rand.New(rand.NewSource(7))
	live := c.NewContainer()
	var present []added[A]
	for step := 0; step < 400; step++ {
		if len(present) > 0 && rng.Intn(3) == 0 {
			i := rng.Intn(len(present))
			present[i].undo()
			present = slices.Delete(present, i, i+1)
		} else {
			a := gen(rng)
			present = append(present, added[A]{a: a, undo: live.Add(a)})
		}
		rebuilt := c.NewContainer()
		for _, p := range present {
			rebuilt.Add(p.a)
		}
		require.Equal(t, rebuilt.Result(), live.Result(), "step %d", step)
	}
}

func randomLoad(rng *rand.Rand) load {
	names := []string{"", "a", "bb", "ccc"}
	metric := rng.Int63n(20) - 5
	if rng.Intn(10) == 0 {
		metric = math.MaxInt64 - rng.Int63n(3)
	}
	return load{name: names[rng.Intn(len(names))], metric: metric}
}

func smallLoad(rng *rand.Rand) load {
	l := randomLoad(rng)
	l.metric %= 30
	return l
}

func TestIncrementalMatchesRebuilt(t *testing.T) {
	t.Run("sum", func(t *testing.T) { requireSameAsRebuilt(t, Sum(loadMetric), randomLoad) })
	t.Run("average", func(t *testing.T) { requireSameAsRebuilt(t, Average(loadMetric), randomLoad) })
	t.Run("minBy", func(t *testing.T) { requireSameAsRebuilt(t, MinBy(loadMetric), randomLoad) })
	t.Run("maxBy", func(t *testing.T) { requireSameAsRebuilt(t, MaxBy(loadMetric), randomLoad) })
	t.Run("sortedSet", func(t *testing.T) { requireSameAsRebuilt(t, ToSortedSet(byMetric), randomLoad) })
	t.Run("toMap", func(t *testing.T) { requireSameAsRebuilt(t, ToMap(loadName, loadMetric), randomLoad) })
	t.Run("loadBalance", func(t *testing.T) { requireSameAsRebuilt(t, LoadBalanceOf(loadName, loadMetric), randomLoad) })
	t.Run("sequences", func(t *testing.T) { requireSameAsRebuilt(t, ToConsecutiveSequences(loadDay), smallLoad) })
	t.Run("ranges", func(t *testing.T) { requireSameAsRebuilt(t, ToConnectedRanges(loadMetric, loadEnd), smallLoad) })
}

func TestSignatures(t *testing.T) {
	require.Equal(t, Count[int]().Signature(), Count[int]().Signature())
	require.Equal(t, Sum(loadMetric).Signature(), Sum(loadMetric).Signature())
	require.NotEqual(t, Sum(loadMetric).Signature(), Min(loadMetric).Signature())
	require.NotEqual(t, Min(loadMetric).Signature(), Max(loadMetric).Signature())
	require.Empty(t, Compose(Count[int](), Of[int, int]("", nil), func(a, b int) int { return a }).Signature())

	require.True(t, Of[int, int]("custom", nil).Removable())
	require.False(t, AddOnly[int, int]("custom", nil).Removable())
	require.False(t, Conditionally(func(int) bool { return true }, AddOnly[int, int]("x", nil)).Removable())
}
