// Package index implements the join index: a map from derived join keys to
// the live tuples holding that key.
//
// An Index is a chain of levels. An equality level hashes its key; a
// comparison level keeps keys ordered in a B-tree so that range queries
// ("every stored key greater than q") do not scan unrelated keys. The last
// level is a plain insertion-ordered list.
//
// Ordering: ForEach visits comparison buckets in ascending key order and,
// inside a bucket, items in insertion order. Equality levels visit only the
// single matching bucket.
package index

import (
	"fmt"

	"github.com/google/btree"
)

// Comparison is the relation between a query key q and a stored key s that
// must hold for s to be visited: q <kind> s.
type Comparison uint8

const (
	Equal Comparison = iota
	LessThan
	LessThanOrEqual
	GreaterThan
	GreaterThanOrEqual
)

func (c Comparison) String() string {
	switch c {
	case Equal:
		return "=="
	case LessThan:
		return "<"
	case LessThanOrEqual:
		return "<="
	case GreaterThan:
		return ">"
	case GreaterThanOrEqual:
		return ">="
	default:
		return fmt.Sprintf("Comparison(%d)", uint8(c))
	}
}

// Flip returns the same relation with operands swapped: a < b  <=>  b > a.
func (c Comparison) Flip() Comparison {
	switch c {
	case LessThan:
		return GreaterThan
	case LessThanOrEqual:
		return GreaterThanOrEqual
	case GreaterThan:
		return LessThan
	case GreaterThanOrEqual:
		return LessThanOrEqual
	default:
		return c
	}
}

// Holds evaluates q <c> s given cmp(q, s).
func (c Comparison) Holds(cmp int) bool {
	switch c {
	case Equal:
		return cmp == 0
	case LessThan:
		return cmp < 0
	case LessThanOrEqual:
		return cmp <= 0
	case GreaterThan:
		return cmp > 0
	case GreaterThanOrEqual:
		return cmp >= 0
	default:
		return false
	}
}

// Level describes one index level. Compare is required for every kind but Equal.
type Level struct {
	Kind    Comparison
	Compare func(a, b any) int
}

type indexer[T any] interface {
	put(keys Keys, depth int, item T) *Element[T]
	remove(keys Keys, depth int, e *Element[T]) bool
	forEach(keys Keys, depth int, fn func(T))
	size(keys Keys, depth int) int
	isEmpty() bool
}

// Index stores items under Keys, one key per level.
type Index[T any] struct {
	levels []Level
	root   indexer[T]
}

func New[T any](levels []Level) (*Index[T], error) {
	for i, l := range levels {
		if l.Kind != Equal && l.Compare == nil {
			return nil, fmt.Errorf("index level %d (%s) has no comparator", i, l.Kind)
		}
		if l.Kind > GreaterThanOrEqual {
			return nil, fmt.Errorf("index level %d has unknown kind %s", i, l.Kind)
		}
	}
	x := &Index[T]{levels: levels}
	x.root = x.newIndexer(0)
	return x, nil
}

func (x *Index[T]) Levels() int { return len(x.levels) }

func (x *Index[T]) newIndexer(depth int) indexer[T] {
	if depth == len(x.levels) {
		return &listIndexer[T]{}
	}
	l := x.levels[depth]
	if l.Kind == Equal {
		return &equalIndexer[T]{owner: x, depth: depth, buckets: map[any]indexer[T]{}}
	}
	return newComparisonIndexer(x, depth, l)
}

// Put stores item under keys and returns the handle needed to remove it.
func (x *Index[T]) Put(keys Keys, item T) *Element[T] {
	x.checkKeys(keys)
	return x.root.put(keys, 0, item)
}

// Remove deletes the element stored under keys. It reports false when
// nothing was stored there, which callers treat as a consistency error.
func (x *Index[T]) Remove(keys Keys, e *Element[T]) bool {
	x.checkKeys(keys)
	return x.root.remove(keys, 0, e)
}

// ForEach visits every stored item whose keys satisfy all level relations
// with the query keys. fn must not modify the index.
func (x *Index[T]) ForEach(keys Keys, fn func(T)) {
	x.checkKeys(keys)
	x.root.forEach(keys, 0, fn)
}

// Size counts the items ForEach would visit.
func (x *Index[T]) Size(keys Keys) int {
	x.checkKeys(keys)
	return x.root.size(keys, 0)
}

func (x *Index[T]) IsEmpty() bool {
	return x.root.isEmpty()
}

func (x *Index[T]) checkKeys(keys Keys) {
	if len(keys) != len(x.levels) {
		panic(fmt.Sprintf("index expects %d keys, got %d", len(x.levels), len(keys)))
	}
}

// ================
// Leaf
// ================

type listIndexer[T any] struct {
	items List[T]
}

func (l *listIndexer[T]) put(_ Keys, _ int, item T) *Element[T] {
	return l.items.Add(item)
}

func (l *listIndexer[T]) remove(_ Keys, _ int, e *Element[T]) bool {
	return l.items.Remove(e)
}

func (l *listIndexer[T]) forEach(_ Keys, _ int, fn func(T)) {
	for e := l.items.First(); e != nil; e = e.Next() {
		fn(e.Value)
	}
}

func (l *listIndexer[T]) size(Keys, int) int { return l.items.Len() }

func (l *listIndexer[T]) isEmpty() bool { return l.items.Len() == 0 }

// ================
// Equality level
// ================

type equalIndexer[T any] struct {
	owner   *Index[T]
	depth   int
	buckets map[any]indexer[T]
}

func (q *equalIndexer[T]) put(keys Keys, depth int, item T) *Element[T] {
	k := keys[depth]
	down, ok := q.buckets[k]
	if !ok {
		down = q.owner.newIndexer(depth + 1)
		q.buckets[k] = down
	}
	return down.put(keys, depth+1, item)
}

func (q *equalIndexer[T]) remove(keys Keys, depth int, e *Element[T]) bool {
	k := keys[depth]
	down, ok := q.buckets[k]
	if !ok || !down.remove(keys, depth+1, e) {
		return false
	}
	if down.isEmpty() {
		delete(q.buckets, k)
	}
	return true
}

func (q *equalIndexer[T]) forEach(keys Keys, depth int, fn func(T)) {
	if down, ok := q.buckets[keys[depth]]; ok {
		down.forEach(keys, depth+1, fn)
	}
}

func (q *equalIndexer[T]) size(keys Keys, depth int) int {
	if down, ok := q.buckets[keys[depth]]; ok {
		return down.size(keys, depth+1)
	}
	return 0
}

func (q *equalIndexer[T]) isEmpty() bool { return len(q.buckets) == 0 }

// ================
// Comparison level
// ================

type bucket[T any] struct {
	key  any
	down indexer[T]
}

type comparisonIndexer[T any] struct {
	owner   *Index[T]
	depth   int
	kind    Comparison
	compare func(a, b any) int
	tree    *btree.BTreeG[*bucket[T]]
}

func newComparisonIndexer[T any](owner *Index[T], depth int, l Level) *comparisonIndexer[T] {
	c := &comparisonIndexer[T]{owner: owner, depth: depth, kind: l.Kind, compare: l.Compare}
	c.tree = btree.NewG[*bucket[T]](16, func(a, b *bucket[T]) bool {
		return c.compare(a.key, b.key) < 0
	})
	return c
}

func (c *comparisonIndexer[T]) put(keys Keys, depth int, item T) *Element[T] {
	pivot := &bucket[T]{key: keys[depth]}
	b, ok := c.tree.Get(pivot)
	if !ok {
		pivot.down = c.owner.newIndexer(depth + 1)
		c.tree.ReplaceOrInsert(pivot)
		b = pivot
	}
	return b.down.put(keys, depth+1, item)
}

func (c *comparisonIndexer[T]) remove(keys Keys, depth int, e *Element[T]) bool {
	b, ok := c.tree.Get(&bucket[T]{key: keys[depth]})
	if !ok || !b.down.remove(keys, depth+1, e) {
		return false
	}
	if b.down.isEmpty() {
		c.tree.Delete(b)
	}
	return true
}

// visit walks the buckets whose stored key s satisfies q <kind> s.
func (c *comparisonIndexer[T]) visit(q any, fn func(b *bucket[T]) bool) {
	pivot := &bucket[T]{key: q}
	switch c.kind {
	case LessThan:
		// s > q
		c.tree.AscendGreaterOrEqual(pivot, func(b *bucket[T]) bool {
			if c.compare(b.key, q) == 0 {
				return true
			}
			return fn(b)
		})
	case LessThanOrEqual:
		// s >= q
		c.tree.AscendGreaterOrEqual(pivot, fn)
	case GreaterThan:
		// s < q
		c.tree.AscendLessThan(pivot, fn)
	case GreaterThanOrEqual:
		// s <= q
		c.tree.Ascend(func(b *bucket[T]) bool {
			if c.compare(b.key, q) > 0 {
				return false
			}
			return fn(b)
		})
	}
}

func (c *comparisonIndexer[T]) forEach(keys Keys, depth int, fn func(T)) {
	c.visit(keys[depth], func(b *bucket[T]) bool {
		b.down.forEach(keys, depth+1, fn)
		return true
	})
}

func (c *comparisonIndexer[T]) size(keys Keys, depth int) int {
	n := 0
	c.visit(keys[depth], func(b *bucket[T]) bool {
		n += b.down.size(keys, depth+1)
		return true
	})
	return n
}

func (c *comparisonIndexer[T]) isEmpty() bool { return c.tree.Len() == 0 }
