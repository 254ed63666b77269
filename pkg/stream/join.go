package stream

import (
	"cmp"

	cn "github.com/jtomasevic/incscore/pkg/constraint_network"
)

// Join pairs every fact of left with every matching fact of right.
func Join[A, B any](left Uni[A], right Uni[B], joiners ...BiJoiner[A, B]) Bi[A, B] {
	idx, flt := merge(joiners)
	return Bi[A, B]{op: cn.Join(left.op, right.op, idx, flt...)}
}

func JoinTri[A, B, C any](left Bi[A, B], right Uni[C], joiners ...TriJoiner[A, B, C]) Tri[A, B, C] {
	idx, flt := merge(joiners)
	return Tri[A, B, C]{op: cn.Join(left.op, right.op, idx, flt...)}
}

func JoinQuad[A, B, C, D any](left Tri[A, B, C], right Uni[D], joiners ...QuadJoiner[A, B, C, D]) Quad[A, B, C, D] {
	idx, flt := merge(joiners)
	return Quad[A, B, C, D]{op: cn.Join(left.op, right.op, idx, flt...)}
}

// ForEachUniquePair streams every unordered pair of distinct A facts once,
// ordered by id: (a, b) with id(a) < id(b).
func ForEachUniquePair[A any, K cmp.Ordered](id func(A) K, joiners ...BiJoiner[A, A]) Bi[A, A] {
	all := append([]BiJoiner[A, A]{LessThan(id, id)}, joiners...)
	return Join(ForEach[A](), ForEach[A](), all...)
}

// ======================================
// Existence
// ======================================

// IfExists keeps the facts of s matched by at least one fact of other.
func IfExists[A, B any](s Uni[A], other Uni[B], joiners ...BiJoiner[A, B]) Uni[A] {
	idx, flt := merge(joiners)
	return Uni[A]{op: cn.IfExists(s.op, other.op, true, idx, flt...)}
}

// IfNotExists keeps the facts of s matched by no fact of other.
func IfNotExists[A, B any](s Uni[A], other Uni[B], joiners ...BiJoiner[A, B]) Uni[A] {
	idx, flt := merge(joiners)
	return Uni[A]{op: cn.IfExists(s.op, other.op, false, idx, flt...)}
}

func IfExistsBi[A, B, C any](s Bi[A, B], other Uni[C], joiners ...TriJoiner[A, B, C]) Bi[A, B] {
	idx, flt := merge(joiners)
	return Bi[A, B]{op: cn.IfExists(s.op, other.op, true, idx, flt...)}
}

func IfNotExistsBi[A, B, C any](s Bi[A, B], other Uni[C], joiners ...TriJoiner[A, B, C]) Bi[A, B] {
	idx, flt := merge(joiners)
	return Bi[A, B]{op: cn.IfExists(s.op, other.op, false, idx, flt...)}
}

func IfExistsTri[A, B, C, D any](s Tri[A, B, C], other Uni[D], joiners ...QuadJoiner[A, B, C, D]) Tri[A, B, C] {
	idx, flt := merge(joiners)
	return Tri[A, B, C]{op: cn.IfExists(s.op, other.op, true, idx, flt...)}
}

func IfNotExistsTri[A, B, C, D any](s Tri[A, B, C], other Uni[D], joiners ...QuadJoiner[A, B, C, D]) Tri[A, B, C] {
	idx, flt := merge(joiners)
	return Tri[A, B, C]{op: cn.IfExists(s.op, other.op, false, idx, flt...)}
}

// ======================================
// Complement
// ======================================

func self[A any](a A) A { return a }

func firstOf[A, B any](a A, _ B) A { return a }

// Complement adds to s every fact of A that s does not contain, so that each
// fact of A is seen at least once.
func Complement[A comparable](s Uni[A]) Uni[A] {
	return s.Concat(IfNotExists(ForEach[A](), s, Equal(self[A], self[A])))
}

// ComplementBi adds a pair (a, pad(a)) for every fact a of A that is not the
// first fact of any pair of s, e.g. computers without processes with a load
// of zero.
func ComplementBi[A comparable, B any](s Bi[A, B], pad func(A) B) Bi[A, B] {
	missing := IfNotExists(ForEach[A](), MapBi(s, firstOf[A, B]), Equal(self[A], self[A]))
	return s.Concat(Map2(missing, self[A], pad))
}
