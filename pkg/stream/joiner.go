package stream

import (
	"cmp"
	"reflect"

	cn "github.com/jtomasevic/incscore/pkg/constraint_network"
	"github.com/jtomasevic/incscore/pkg/index"
	"github.com/jtomasevic/incscore/pkg/signature"
	"github.com/jtomasevic/incscore/pkg/tuple"
)

// joiners is the untyped payload shared by every typed joiner.
type joiners struct {
	indexed   []cn.Joiner
	filtering []cn.Filtering
}

func merge[J interface{ parts() joiners }](js []J) ([]cn.Joiner, []cn.Filtering) {
	var idx []cn.Joiner
	var flt []cn.Filtering
	for _, j := range js {
		p := j.parts()
		idx = append(idx, p.indexed...)
		flt = append(flt, p.filtering...)
	}
	return idx, flt
}

// BiJoiner matches a fact of A (left) with a fact of B (right).
type BiJoiner[A, B any] struct{ j joiners }

// TriJoiner matches a pair (A, B) with a fact of C.
type TriJoiner[A, B, C any] struct{ j joiners }

// QuadJoiner matches a triple (A, B, C) with a fact of D.
type QuadJoiner[A, B, C, D any] struct{ j joiners }

func (j BiJoiner[A, B]) parts() joiners         { return j.j }
func (j TriJoiner[A, B, C]) parts() joiners     { return j.j }
func (j QuadJoiner[A, B, C, D]) parts() joiners { return j.j }

func compareOf[K cmp.Ordered](a, b any) int { return cmp.Compare(as[K](a), as[K](b)) }

func indexed[K any](kind index.Comparison, compare func(a, b any) int,
	left func(*tuple.Tuple) any, leftID uintptr,
	right func(*tuple.Tuple) any, rightID uintptr,
) joiners {
	typ := reflect.TypeFor[K]()
	return joiners{indexed: []cn.Joiner{{
		Kind:      kind,
		Left:      left,
		Right:     right,
		Compare:   compare,
		LeftType:  typ,
		RightType: typ,
		LeftID:    leftID,
		RightID:   rightID,
	}}}
}

func uniKey[D, K any](f func(D) K) func(*tuple.Tuple) any {
	return func(t *tuple.Tuple) any { return f(uni[D](t)) }
}

func biKey[A, B, K any](f func(A, B) K) func(*tuple.Tuple) any {
	return func(t *tuple.Tuple) any { return f(bi[A, B](t)) }
}

func triKey[A, B, C, K any](f func(A, B, C) K) func(*tuple.Tuple) any {
	return func(t *tuple.Tuple) any { return f(tri[A, B, C](t)) }
}

// ======================================
// Bi joiners
// ======================================

func biJoiner[A, B, K any](kind index.Comparison, compare func(a, b any) int, left func(A) K, right func(B) K) BiJoiner[A, B] {
	return BiJoiner[A, B]{j: indexed[K](kind, compare,
		uniKey(left), signature.FuncID(left),
		uniKey(right), signature.FuncID(right))}
}

// Equal matches when left(a) == right(b). Equal joiners are hash indexed.
func Equal[A, B any, K comparable](left func(A) K, right func(B) K) BiJoiner[A, B] {
	return biJoiner(index.Equal, nil, left, right)
}

// EqualOn is Equal with the same property on both sides.
func EqualOn[A any, K comparable](prop func(A) K) BiJoiner[A, A] {
	return Equal(prop, prop)
}

func LessThan[A, B any, K cmp.Ordered](left func(A) K, right func(B) K) BiJoiner[A, B] {
	return biJoiner(index.LessThan, compareOf[K], left, right)
}

func LessThanOrEqual[A, B any, K cmp.Ordered](left func(A) K, right func(B) K) BiJoiner[A, B] {
	return biJoiner(index.LessThanOrEqual, compareOf[K], left, right)
}

func GreaterThan[A, B any, K cmp.Ordered](left func(A) K, right func(B) K) BiJoiner[A, B] {
	return biJoiner(index.GreaterThan, compareOf[K], left, right)
}

func GreaterThanOrEqual[A, B any, K cmp.Ordered](left func(A) K, right func(B) K) BiJoiner[A, B] {
	return biJoiner(index.GreaterThanOrEqual, compareOf[K], left, right)
}

// Overlapping matches half-open ranges [start, end) that intersect:
// leftStart < rightEnd and leftEnd > rightStart.
func Overlapping[A, B any, K cmp.Ordered](leftStart, leftEnd func(A) K, rightStart, rightEnd func(B) K) BiJoiner[A, B] {
	lt := biJoiner(index.LessThan, compareOf[K], leftStart, rightEnd)
	gt := biJoiner(index.GreaterThan, compareOf[K], leftEnd, rightStart)
	return BiJoiner[A, B]{j: joiners{indexed: append(lt.j.indexed, gt.j.indexed...)}}
}

// Filtering is an arbitrary predicate tested after every indexed joiner.
func Filtering[A, B any](f func(A, B) bool) BiJoiner[A, B] {
	return BiJoiner[A, B]{j: joiners{filtering: []cn.Filtering{{
		Fn: func(l, r *tuple.Tuple) bool { return f(uni[A](l), uni[B](r)) },
		ID: signature.FuncID(f),
	}}}}
}

// ======================================
// Tri joiners
// ======================================

func triJoiner[A, B, C, K any](kind index.Comparison, compare func(a, b any) int, left func(A, B) K, right func(C) K) TriJoiner[A, B, C] {
	return TriJoiner[A, B, C]{j: indexed[K](kind, compare,
		biKey(left), signature.FuncID(left),
		uniKey(right), signature.FuncID(right))}
}

func TriEqual[A, B, C any, K comparable](left func(A, B) K, right func(C) K) TriJoiner[A, B, C] {
	return triJoiner(index.Equal, nil, left, right)
}

func TriLessThan[A, B, C any, K cmp.Ordered](left func(A, B) K, right func(C) K) TriJoiner[A, B, C] {
	return triJoiner(index.LessThan, compareOf[K], left, right)
}

func TriLessThanOrEqual[A, B, C any, K cmp.Ordered](left func(A, B) K, right func(C) K) TriJoiner[A, B, C] {
	return triJoiner(index.LessThanOrEqual, compareOf[K], left, right)
}

func TriGreaterThan[A, B, C any, K cmp.Ordered](left func(A, B) K, right func(C) K) TriJoiner[A, B, C] {
	return triJoiner(index.GreaterThan, compareOf[K], left, right)
}

func TriGreaterThanOrEqual[A, B, C any, K cmp.Ordered](left func(A, B) K, right func(C) K) TriJoiner[A, B, C] {
	return triJoiner(index.GreaterThanOrEqual, compareOf[K], left, right)
}

func TriOverlapping[A, B, C any, K cmp.Ordered](leftStart, leftEnd func(A, B) K, rightStart, rightEnd func(C) K) TriJoiner[A, B, C] {
	lt := triJoiner(index.LessThan, compareOf[K], leftStart, rightEnd)
	gt := triJoiner(index.GreaterThan, compareOf[K], leftEnd, rightStart)
	return TriJoiner[A, B, C]{j: joiners{indexed: append(lt.j.indexed, gt.j.indexed...)}}
}

func TriFiltering[A, B, C any](f func(A, B, C) bool) TriJoiner[A, B, C] {
	return TriJoiner[A, B, C]{j: joiners{filtering: []cn.Filtering{{
		Fn: func(l, r *tuple.Tuple) bool {
			a, b := bi[A, B](l)
			return f(a, b, uni[C](r))
		},
		ID: signature.FuncID(f),
	}}}}
}

// ======================================
// Quad joiners
// ======================================

func quadJoiner[A, B, C, D, K any](kind index.Comparison, compare func(a, b any) int, left func(A, B, C) K, right func(D) K) QuadJoiner[A, B, C, D] {
	return QuadJoiner[A, B, C, D]{j: indexed[K](kind, compare,
		triKey(left), signature.FuncID(left),
		uniKey(right), signature.FuncID(right))}
}

func QuadEqual[A, B, C, D any, K comparable](left func(A, B, C) K, right func(D) K) QuadJoiner[A, B, C, D] {
	return quadJoiner(index.Equal, nil, left, right)
}

func QuadLessThan[A, B, C, D any, K cmp.Ordered](left func(A, B, C) K, right func(D) K) QuadJoiner[A, B, C, D] {
	return quadJoiner(index.LessThan, compareOf[K], left, right)
}

func QuadLessThanOrEqual[A, B, C, D any, K cmp.Ordered](left func(A, B, C) K, right func(D) K) QuadJoiner[A, B, C, D] {
	return quadJoiner(index.LessThanOrEqual, compareOf[K], left, right)
}

func QuadGreaterThan[A, B, C, D any, K cmp.Ordered](left func(A, B, C) K, right func(D) K) QuadJoiner[A, B, C, D] {
	return quadJoiner(index.GreaterThan, compareOf[K], left, right)
}

func QuadGreaterThanOrEqual[A, B, C, D any, K cmp.Ordered](left func(A, B, C) K, right func(D) K) QuadJoiner[A, B, C, D] {
	return quadJoiner(index.GreaterThanOrEqual, compareOf[K], left, right)
}

func QuadFiltering[A, B, C, D any](f func(A, B, C, D) bool) QuadJoiner[A, B, C, D] {
	return QuadJoiner[A, B, C, D]{j: joiners{filtering: []cn.Filtering{{
		Fn: func(l, r *tuple.Tuple) bool {
			a, b, c := tri[A, B, C](l)
			return f(a, b, c, uni[D](r))
		},
		ID: signature.FuncID(f),
	}}}}
}
