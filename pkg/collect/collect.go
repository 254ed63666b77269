// Package collect holds the group collectors.
//
// A Collector creates one Container per group. Every element added to a
// container returns an undo that removes exactly that element again; the
// network calls it when the element leaves the group or changes. Result is
// read once per propagation of the group, not once per element.
package collect

import (
	"cmp"
	"fmt"
	"math"
	"slices"

	"github.com/google/btree"

	"github.com/jtomasevic/incscore/pkg/index"
	"github.com/jtomasevic/incscore/pkg/signature"
)

type Collector[A, R any] interface {
	NewContainer() Container[A, R]
	// Removable is false for collectors whose undo is not supported; the
	// network refuses them.
	Removable() bool
	// Signature identifies equivalent collectors; "" means never equivalent.
	Signature() string
}

type Container[A, R any] interface {
	Add(a A) (undo func())
	Result() R
}

// Integer is any built-in integer type. Sums over integers undo exactly,
// even after wrapping around, so floats are not accepted.
type Integer interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uintptr
}

// collector is the common implementation: a signature and a container factory.
type collector[A, R any] struct {
	sig       string
	removable bool
	factory   func() Container[A, R]
}

func (c collector[A, R]) NewContainer() Container[A, R] { return c.factory() }
func (c collector[A, R]) Removable() bool               { return c.removable }
func (c collector[A, R]) Signature() string             { return c.sig }

func sig(name string, fns ...uintptr) string {
	s := name
	for _, id := range fns {
		if id == 0 {
			return ""
		}
		s += fmt.Sprintf(":%x", id)
	}
	return s
}

// Of wraps a custom removable collector.
func Of[A, R any](signature string, newContainer func() Container[A, R]) Collector[A, R] {
	return collector[A, R]{sig: signature, removable: true, factory: newContainer}
}

// AddOnly wraps a custom collector that cannot remove elements. Its
// containers may return nil undos. Groups using it are rejected when the
// network is built.
func AddOnly[A, R any](signature string, newContainer func() Container[A, R]) Collector[A, R] {
	return collector[A, R]{sig: signature, removable: false, factory: newContainer}
}

/*
========================
Counting
========================
*/

type countContainer[A any] struct{ n int }

func (c *countContainer[A]) Add(A) func() {
	c.n++
	return func() { c.n-- }
}

func (c *countContainer[A]) Result() int { return c.n }

func Count[A any]() Collector[A, int] {
	return collector[A, int]{sig: "count", removable: true, factory: func() Container[A, int] {
		return &countContainer[A]{}
	}}
}

type countDistinctContainer[A comparable] struct{ seen map[A]int }

func (c *countDistinctContainer[A]) Add(a A) func() {
	c.seen[a]++
	return func() {
		if c.seen[a]--; c.seen[a] == 0 {
			delete(c.seen, a)
		}
	}
}

func (c *countDistinctContainer[A]) Result() int { return len(c.seen) }

func CountDistinct[A comparable]() Collector[A, int] {
	return collector[A, int]{sig: "countDistinct", removable: true, factory: func() Container[A, int] {
		return &countDistinctContainer[A]{seen: map[A]int{}}
	}}
}

/*
========================
Arithmetic
========================
*/

type sumContainer[A any, N Integer] struct {
	f   func(A) N
	sum N
}

func (c *sumContainer[A, N]) Add(a A) func() {
	v := c.f(a)
	c.sum += v
	return func() { c.sum -= v }
}

func (c *sumContainer[A, N]) Result() N { return c.sum }

// Sum adds f(a) over the group. Scale fractional quantities to an integer
// unit (cents, milliseconds) before summing them.
func Sum[A any, N Integer](f func(A) N) Collector[A, N] {
	return collector[A, N]{sig: sig("sum", signature.FuncID(f)), removable: true, factory: func() Container[A, N] {
		return &sumContainer[A, N]{f: f}
	}}
}

type averageContainer[A any, N Integer] struct {
	f     func(A) N
	sum   N
	count int
}

func (c *averageContainer[A, N]) Add(a A) func() {
	v := c.f(a)
	c.sum += v
	c.count++
	return func() {
		c.sum -= v
		c.count--
	}
}

// Result is 0 for an empty container.
func (c *averageContainer[A, N]) Result() float64 {
	if c.count == 0 {
		return 0
	}
	return float64(c.sum) / float64(c.count)
}

func Average[A any, N Integer](f func(A) N) Collector[A, float64] {
	return collector[A, float64]{sig: sig("average", signature.FuncID(f)), removable: true, factory: func() Container[A, float64] {
		return &averageContainer[A, N]{f: f}
	}}
}

/*
========================
Extremes
========================
*/

// ranked keeps elements ordered by key; equal keys keep insertion order.
type ranked[A any, V cmp.Ordered] struct {
	key  V
	seq  uint64
	elem A
}

type extremeContainer[A any, V cmp.Ordered, R any] struct {
	f    func(A) V
	max  bool
	pick func(ranked[A, V]) R
	tree *btree.BTreeG[ranked[A, V]]
	seq  uint64
}

func newExtreme[A any, V cmp.Ordered, R any](f func(A) V, max bool, pick func(ranked[A, V]) R) *extremeContainer[A, V, R] {
	return &extremeContainer[A, V, R]{
		f:    f,
		max:  max,
		pick: pick,
		tree: btree.NewG[ranked[A, V]](8, func(a, b ranked[A, V]) bool {
			if c := cmp.Compare(a.key, b.key); c != 0 {
				return c < 0
			}
			return a.seq < b.seq
		}),
	}
}

func (c *extremeContainer[A, V, R]) Add(a A) func() {
	c.seq++
	r := ranked[A, V]{key: c.f(a), seq: c.seq, elem: a}
	c.tree.ReplaceOrInsert(r)
	return func() { c.tree.Delete(r) }
}

// Result is the zero R for an empty container.
func (c *extremeContainer[A, V, R]) Result() R {
	var (
		r  ranked[A, V]
		ok bool
	)
	if c.max {
		r, ok = c.tree.Max()
	} else {
		r, ok = c.tree.Min()
	}
	if !ok {
		var zero R
		return zero
	}
	return c.pick(r)
}

func keyOf[A any, V cmp.Ordered](r ranked[A, V]) V  { return r.key }
func elemOf[A any, V cmp.Ordered](r ranked[A, V]) A { return r.elem }

// Min is the smallest f(a) of the group.
func Min[A any, V cmp.Ordered](f func(A) V) Collector[A, V] {
	return collector[A, V]{sig: sig("min", signature.FuncID(f)), removable: true, factory: func() Container[A, V] {
		return newExtreme(f, false, keyOf[A, V])
	}}
}

func Max[A any, V cmp.Ordered](f func(A) V) Collector[A, V] {
	return collector[A, V]{sig: sig("max", signature.FuncID(f)), removable: true, factory: func() Container[A, V] {
		return newExtreme(f, true, keyOf[A, V])
	}}
}

// MinBy is the element with the smallest f(a); the earliest added wins ties.
func MinBy[A any, V cmp.Ordered](f func(A) V) Collector[A, A] {
	return collector[A, A]{sig: sig("minBy", signature.FuncID(f)), removable: true, factory: func() Container[A, A] {
		return newExtreme(f, false, elemOf[A, V])
	}}
}

// MaxBy is the element with the largest f(a); the latest added wins ties.
func MaxBy[A any, V cmp.Ordered](f func(A) V) Collector[A, A] {
	return collector[A, A]{sig: sig("maxBy", signature.FuncID(f)), removable: true, factory: func() Container[A, A] {
		return newExtreme(f, true, elemOf[A, V])
	}}
}

/*
========================
Collections
========================
*/

type listContainer[A any] struct{ items index.List[A] }

func (c *listContainer[A]) Add(a A) func() {
	e := c.items.Add(a)
	return func() { c.items.Remove(e) }
}

// Result is a fresh slice in insertion order.
func (c *listContainer[A]) Result() []A { return c.items.Values() }

func ToList[A any]() Collector[A, []A] {
	return collector[A, []A]{sig: "toList", removable: true, factory: func() Container[A, []A] {
		return &listContainer[A]{}
	}}
}

type setContainer[A comparable] struct{ counts map[A]int }

func (c *setContainer[A]) Add(a A) func() {
	c.counts[a]++
	return func() {
		if c.counts[a]--; c.counts[a] == 0 {
			delete(c.counts, a)
		}
	}
}

func (c *setContainer[A]) Result() map[A]struct{} {
	out := make(map[A]struct{}, len(c.counts))
	for a := range c.counts {
		out[a] = struct{}{}
	}
	return out
}

// ToSet collects the distinct elements.
func ToSet[A comparable]() Collector[A, map[A]struct{}] {
	return collector[A, map[A]struct{}]{sig: "toSet", removable: true, factory: func() Container[A, map[A]struct{}] {
		return &setContainer[A]{counts: map[A]int{}}
	}}
}

// sortedEntry holds every added element equal to elem under compare; the
// earliest one still present represents the entry.
type sortedEntry[A any] struct {
	elem  A
	items index.List[A]
}

type sortedSetContainer[A any] struct {
	tree *btree.BTreeG[*sortedEntry[A]]
}

func (c *sortedSetContainer[A]) Add(a A) func() {
	e, ok := c.tree.Get(&sortedEntry[A]{elem: a})
	if !ok {
		e = &sortedEntry[A]{elem: a}
		c.tree.ReplaceOrInsert(e)
	}
	item := e.items.Add(a)
	return func() {
		e.items.Remove(item)
		if e.items.Len() == 0 {
			c.tree.Delete(e)
		}
	}
}

func (c *sortedSetContainer[A]) Result() []A {
	out := make([]A, 0, c.tree.Len())
	c.tree.Ascend(func(e *sortedEntry[A]) bool {
		out = append(out, e.items.First().Value)
		return true
	})
	return out
}

// ToSortedSet collects the distinct elements in ascending order. Elements
// equal under compare are one entry, shown as the earliest added that is
// still present.
func ToSortedSet[A any](compare func(a, b A) int) Collector[A, []A] {
	return collector[A, []A]{sig: sig("toSortedSet", signature.FuncID(compare)), removable: true, factory: func() Container[A, []A] {
		return &sortedSetContainer[A]{tree: btree.NewG[*sortedEntry[A]](8, func(x, y *sortedEntry[A]) bool {
			return compare(x.elem, y.elem) < 0
		})}
	}}
}

type mapContainer[A any, K comparable, V any] struct {
	key    func(A) K
	val    func(A) V
	values map[K]*index.List[V]
}

func (c *mapContainer[A, K, V]) Add(a A) func() {
	k := c.key(a)
	l := c.values[k]
	if l == nil {
		l = &index.List[V]{}
		c.values[k] = l
	}
	e := l.Add(c.val(a))
	return func() {
		l.Remove(e)
		if l.Len() == 0 {
			delete(c.values, k)
		}
	}
}

func (c *mapContainer[A, K, V]) Result() map[K][]V {
	out := make(map[K][]V, len(c.values))
	for k, l := range c.values {
		out[k] = l.Values()
	}
	return out
}

// ToMap groups val(a) by key(a), keeping every value in insertion order.
func ToMap[A any, K comparable, V any](key func(A) K, val func(A) V) Collector[A, map[K][]V] {
	return collector[A, map[K][]V]{
		sig:       sig("toMap", signature.FuncID(key), signature.FuncID(val)),
		removable: true,
		factory: func() Container[A, map[K][]V] {
			return &mapContainer[A, K, V]{key: key, val: val, values: map[K]*index.List[V]{}}
		},
	}
}

/*
========================
Composition
========================
*/

type conditionalContainer[A, R any] struct {
	pred  func(A) bool
	inner Container[A, R]
}

func noop() {}

func (c *conditionalContainer[A, R]) Add(a A) func() {
	if !c.pred(a) {
		return noop
	}
	return c.inner.Add(a)
}

func (c *conditionalContainer[A, R]) Result() R { return c.inner.Result() }

// Conditionally only passes elements accepted by pred to c.
func Conditionally[A, R any](pred func(A) bool, c Collector[A, R]) Collector[A, R] {
	inner := c.Signature()
	s := sig("if", signature.FuncID(pred))
	if inner == "" || s == "" {
		s = ""
	} else {
		s += "(" + inner + ")"
	}
	return collector[A, R]{sig: s, removable: c.Removable(), factory: func() Container[A, R] {
		return &conditionalContainer[A, R]{pred: pred, inner: c.NewContainer()}
	}}
}

type andThenContainer[A, R, T any] struct {
	inner Container[A, R]
	f     func(R) T
}

func (c *andThenContainer[A, R, T]) Add(a A) func() { return c.inner.Add(a) }
func (c *andThenContainer[A, R, T]) Result() T      { return c.f(c.inner.Result()) }

// AndThen maps the result of c.
func AndThen[A, R, T any](c Collector[A, R], f func(R) T) Collector[A, T] {
	s := sig("andThen", signature.FuncID(f))
	if inner := c.Signature(); inner == "" || s == "" {
		s = ""
	} else {
		s += "(" + inner + ")"
	}
	return collector[A, T]{sig: s, removable: c.Removable(), factory: func() Container[A, T] {
		return &andThenContainer[A, R, T]{inner: c.NewContainer(), f: f}
	}}
}

type composeContainer[A, R1, R2, R any] struct {
	c1    Container[A, R1]
	c2    Container[A, R2]
	merge func(R1, R2) R
}

func (c *composeContainer[A, R1, R2, R]) Add(a A) func() {
	u1, u2 := c.c1.Add(a), c.c2.Add(a)
	if u1 == nil || u2 == nil {
		return nil
	}
	return func() {
		u1()
		u2()
	}
}

func (c *composeContainer[A, R1, R2, R]) Result() R {
	return c.merge(c.c1.Result(), c.c2.Result())
}

// Compose runs two collectors over the same elements and merges their results.
func Compose[A, R1, R2, R any](c1 Collector[A, R1], c2 Collector[A, R2], merge func(R1, R2) R) Collector[A, R] {
	s := sig("compose", signature.FuncID(merge))
	if c1.Signature() == "" || c2.Signature() == "" || s == "" {
		s = ""
	} else {
		s += "(" + c1.Signature() + "," + c2.Signature() + ")"
	}
	return collector[A, R]{sig: s, removable: c1.Removable() && c2.Removable(), factory: func() Container[A, R] {
		return &composeContainer[A, R1, R2, R]{c1: c1.NewContainer(), c2: c2.NewContainer(), merge: merge}
	}}
}

/*
========================
Reduction
========================
*/

type reduceContainer[A any] struct {
	identity A
	op       func(A, A) A
	items    index.List[A]
}

func (c *reduceContainer[A]) Add(a A) func() {
	e := c.items.Add(a)
	return func() { c.items.Remove(e) }
}

// Result folds every element present, in insertion order.
func (c *reduceContainer[A]) Result() A {
	acc := c.identity
	c.items.ForEach(func(a A) { acc = c.op(acc, a) })
	return acc
}

// Reduce folds the group with op starting at identity. op need not be
// invertible: the elements are kept and the fold is recomputed per result.
func Reduce[A any](identity A, op func(A, A) A) Collector[A, A] {
	return collector[A, A]{sig: sig("reduce", signature.FuncID(op)), removable: true, factory: func() Container[A, A] {
		return &reduceContainer[A]{identity: identity, op: op}
	}}
}

type invertibleContainer[A, V any] struct {
	f           func(A) V
	add, remove func(V, V) V
	acc         V
}

func (c *invertibleContainer[A, V]) Add(a A) func() {
	v := c.f(a)
	c.acc = c.add(c.acc, v)
	return func() { c.acc = c.remove(c.acc, v) }
}

func (c *invertibleContainer[A, V]) Result() V { return c.acc }

// ReduceInvertible folds f(a) with add and undoes with remove in O(1).
func ReduceInvertible[A, V any](identity V, f func(A) V, add, remove func(acc, v V) V) Collector[A, V] {
	return collector[A, V]{
		sig:       sig("reduceInvertible", signature.FuncID(f), signature.FuncID(add), signature.FuncID(remove)),
		removable: true,
		factory: func() Container[A, V] {
			return &invertibleContainer[A, V]{f: f, add: add, remove: remove, acc: identity}
		},
	}
}

/*
========================
Load balancing
========================
*/

// LoadBalance is the result of the LoadBalance collector.
type LoadBalance[B comparable] struct {
	Loads map[B]int64
	// Unfairness is sqrt(sum((load - mean load)^2)) over every balanced item.
	Unfairness float64
}

type loadEntry struct {
	load  int64
	count int
}

type loadBalanceContainer[A any, B comparable] struct {
	balanced func(A) B
	load     func(A) int64
	entries  map[B]*loadEntry
	sum      int64
	sumSq    int64
}

func (c *loadBalanceContainer[A, B]) Add(a A) func() {
	b, l := c.balanced(a), c.load(a)
	e := c.entries[b]
	if e == nil {
		e = &loadEntry{}
		c.entries[b] = e
	}
	c.shift(e, l)
	e.count++
	return func() {
		c.shift(e, -l)
		if e.count--; e.count == 0 {
			delete(c.entries, b)
		}
	}
}

func (c *loadBalanceContainer[A, B]) shift(e *loadEntry, delta int64) {
	before := e.load
	e.load += delta
	c.sum += delta
	c.sumSq += e.load*e.load - before*before
}

func (c *loadBalanceContainer[A, B]) Result() LoadBalance[B] {
	out := LoadBalance[B]{Loads: make(map[B]int64, len(c.entries))}
	for b, e := range c.entries {
		out.Loads[b] = e.load
	}
	if n := float64(len(c.entries)); n > 0 {
		sum := float64(c.sum)
		variance := float64(c.sumSq) - sum*sum/n
		if variance > 0 {
			out.Unfairness = math.Sqrt(variance)
		}
	}
	return out
}

// LoadBalanceOf sums load(a) per balanced(a) and measures how unevenly the
// load is spread.
func LoadBalanceOf[A any, B comparable](balanced func(A) B, load func(A) int64) Collector[A, LoadBalance[B]] {
	return collector[A, LoadBalance[B]]{
		sig:       sig("loadBalance", signature.FuncID(balanced), signature.FuncID(load)),
		removable: true,
		factory: func() Container[A, LoadBalance[B]] {
			return &loadBalanceContainer[A, B]{balanced: balanced, load: load, entries: map[B]*loadEntry{}}
		},
	}
}

/*
========================
Consecutive sequences
========================
*/

// Sequence is a run of elements whose indexes follow each other without a
// hole. Several elements may share an index.
type Sequence[A any] struct {
	First, Last int
	// Items are ordered by index, then by insertion.
	Items []A
}

// Length counts the indexes covered, First and Last included.
func (s Sequence[A]) Length() int { return s.Last - s.First + 1 }

// Break is the hole between two sequences.
type Break struct {
	// After is the last index of the earlier sequence, Before the first of
	// the later one.
	After, Before int
}

func (b Break) Length() int { return b.Before - b.After }

// SequenceChain is the result of ToConsecutiveSequences. Breaks[i] lies
// between Sequences[i] and Sequences[i+1].
type SequenceChain[A any] struct {
	Sequences []Sequence[A]
	Breaks    []Break
}

type indexEntry[A any] struct {
	at    int
	items index.List[A]
}

type sequenceContainer[A any] struct {
	indexOf func(A) int
	tree    *btree.BTreeG[*indexEntry[A]]
}

func (c *sequenceContainer[A]) Add(a A) func() {
	at := c.indexOf(a)
	e, ok := c.tree.Get(&indexEntry[A]{at: at})
	if !ok {
		e = &indexEntry[A]{at: at}
		c.tree.ReplaceOrInsert(e)
	}
	item := e.items.Add(a)
	return func() {
		e.items.Remove(item)
		if e.items.Len() == 0 {
			c.tree.Delete(e)
		}
	}
}

func (c *sequenceContainer[A]) Result() SequenceChain[A] {
	var out SequenceChain[A]
	var cur *Sequence[A]
	c.tree.Ascend(func(e *indexEntry[A]) bool {
		if cur != nil && e.at > cur.Last+1 {
			out.Breaks = append(out.Breaks, Break{After: cur.Last, Before: e.at})
			cur = nil
		}
		if cur == nil {
			out.Sequences = append(out.Sequences, Sequence[A]{First: e.at})
			cur = &out.Sequences[len(out.Sequences)-1]
		}
		cur.Last = e.at
		cur.Items = append(cur.Items, e.items.Values()...)
		return true
	})
	return out
}

// ToConsecutiveSequences splits the group into runs of consecutive
// indexOf(a), e.g. the shifts of one employee by day number.
func ToConsecutiveSequences[A any](indexOf func(A) int) Collector[A, SequenceChain[A]] {
	return collector[A, SequenceChain[A]]{
		sig:       sig("toConsecutiveSequences", signature.FuncID(indexOf)),
		removable: true,
		factory: func() Container[A, SequenceChain[A]] {
			return &sequenceContainer[A]{
				indexOf: indexOf,
				tree:    btree.NewG[*indexEntry[A]](8, func(x, y *indexEntry[A]) bool { return x.at < y.at }),
			}
		},
	}
}

/*
========================
Connected ranges
========================
*/

// ConnectedRange is a maximal stretch covered by overlapping or touching
// ranges [start, end).
type ConnectedRange[A any, P Integer] struct {
	Start, End P
	// Items are ordered by start, then end, then insertion.
	Items []A
	// MinimumOverlap and MaximumOverlap are the fewest and most ranges
	// covering one point of the stretch. Empty ranges connect but cover
	// nothing.
	MinimumOverlap, MaximumOverlap int
}

func (r ConnectedRange[A, P]) Length() P  { return r.End - r.Start }
func (r ConnectedRange[A, P]) Count() int { return len(r.Items) }

// Gap is the uncovered stretch between two connected ranges.
type Gap[P Integer] struct{ Start, End P }

func (g Gap[P]) Length() P { return g.End - g.Start }

// ConnectedRanges is the result of ToConnectedRanges. Gaps[i] lies between
// Ranges[i] and Ranges[i+1].
type ConnectedRanges[A any, P Integer] struct {
	Ranges []ConnectedRange[A, P]
	Gaps   []Gap[P]
}

type rangeItem[A any, P Integer] struct {
	start, end P
	seq        uint64
	elem       A
}

type rangeContainer[A any, P Integer] struct {
	start, end func(A) P
	tree       *btree.BTreeG[rangeItem[A, P]]
	seq        uint64
}

func (c *rangeContainer[A, P]) Add(a A) func() {
	c.seq++
	r := rangeItem[A, P]{start: c.start(a), end: c.end(a), seq: c.seq, elem: a}
	c.tree.ReplaceOrInsert(r)
	return func() { c.tree.Delete(r) }
}

func (c *rangeContainer[A, P]) Result() ConnectedRanges[A, P] {
	var out ConnectedRanges[A, P]
	var starts, ends []P
	closeRange := func() {
		cur := &out.Ranges[len(out.Ranges)-1]
		cur.MinimumOverlap, cur.MaximumOverlap = overlaps(starts, ends)
		starts, ends = starts[:0], ends[:0]
	}
	c.tree.Ascend(func(r rangeItem[A, P]) bool {
		n := len(out.Ranges)
		if n > 0 && r.start > out.Ranges[n-1].End {
			closeRange()
			out.Gaps = append(out.Gaps, Gap[P]{Start: out.Ranges[n-1].End, End: r.start})
		}
		if n == 0 || r.start > out.Ranges[n-1].End {
			out.Ranges = append(out.Ranges, ConnectedRange[A, P]{Start: r.start, End: r.end})
		}
		cur := &out.Ranges[len(out.Ranges)-1]
		cur.End = max(cur.End, r.end)
		cur.Items = append(cur.Items, r.elem)
		starts = append(starts, r.start)
		ends = append(ends, r.end)
		return true
	})
	if len(out.Ranges) > 0 {
		closeRange()
	}
	return out
}

// overlaps sweeps the ranges of one connected range. starts must be sorted;
// ends is sorted in place. A range ending where another starts does not
// overlap it.
func overlaps[P Integer](starts, ends []P) (lo, hi int) {
	slices.Sort(ends)
	lo = math.MaxInt
	active := 0
	for i, j := 0, 0; i < len(starts) || j < len(ends); {
		p := ends[j]
		if i < len(starts) && starts[i] < p {
			p = starts[i]
		}
		for ; j < len(ends) && ends[j] == p; j++ {
			active--
		}
		for ; i < len(starts) && starts[i] == p; i++ {
			active++
		}
		hi = max(hi, active)
		if active > 0 {
			lo = min(lo, active)
		}
	}
	if lo == math.MaxInt {
		lo = 0
	}
	return lo, hi
}

// ToConnectedRanges merges the ranges [start(a), end(a)) of the group into
// connected ranges, e.g. the bookings of one room into busy stretches.
func ToConnectedRanges[A any, P Integer](start, end func(A) P) Collector[A, ConnectedRanges[A, P]] {
	return collector[A, ConnectedRanges[A, P]]{
		sig:       sig("toConnectedRanges", signature.FuncID(start), signature.FuncID(end)),
		removable: true,
		factory: func() Container[A, ConnectedRanges[A, P]] {
			return &rangeContainer[A, P]{
				start: start,
				end:   end,
				tree: btree.NewG[rangeItem[A, P]](8, func(x, y rangeItem[A, P]) bool {
					if x.start != y.start {
						return x.start < y.start
					}
					if x.end != y.end {
						return x.end < y.end
					}
					return x.seq < y.seq
				}),
			}
		},
	}
}
