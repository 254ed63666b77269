package stream

import (
	cn "github.com/jtomasevic/incscore/pkg/constraint_network"
	"github.com/jtomasevic/incscore/pkg/signature"
	"github.com/jtomasevic/incscore/pkg/tuple"
)

func mapping[R any](id uintptr, f func(*tuple.Tuple) R) cn.Mapping {
	return cn.Mapping{Fn: func(t *tuple.Tuple) any { return f(t) }, ID: id}
}

// ======================================
// Map
// ======================================

// Map replaces each fact with f(fact). Equal results are not merged; follow
// with Distinct for that.
func Map[A, R any](s Uni[A], f func(A) R) Uni[R] {
	return Uni[R]{op: cn.Map(s.op, mapping(signature.FuncID(f), func(t *tuple.Tuple) R {
		return f(uni[A](t))
	}))}
}

// Map2 maps each fact to a pair.
func Map2[A, R1, R2 any](s Uni[A], f1 func(A) R1, f2 func(A) R2) Bi[R1, R2] {
	return Bi[R1, R2]{op: cn.Map(s.op,
		mapping(signature.FuncID(f1), func(t *tuple.Tuple) R1 { return f1(uni[A](t)) }),
		mapping(signature.FuncID(f2), func(t *tuple.Tuple) R2 { return f2(uni[A](t)) }),
	)}
}

func MapBi[A, B, R any](s Bi[A, B], f func(A, B) R) Uni[R] {
	return Uni[R]{op: cn.Map(s.op, mapping(signature.FuncID(f), func(t *tuple.Tuple) R {
		return f(bi[A, B](t))
	}))}
}

func MapTri[A, B, C, R any](s Tri[A, B, C], f func(A, B, C) R) Uni[R] {
	return Uni[R]{op: cn.Map(s.op, mapping(signature.FuncID(f), func(t *tuple.Tuple) R {
		return f(tri[A, B, C](t))
	}))}
}

func MapQuad[A, B, C, D, R any](s Quad[A, B, C, D], f func(A, B, C, D) R) Uni[R] {
	return Uni[R]{op: cn.Map(s.op, mapping(signature.FuncID(f), func(t *tuple.Tuple) R {
		return f(quad[A, B, C, D](t))
	}))}
}

// ======================================
// Expand
// ======================================

// Expand appends f(fact) to each tuple, keeping the original fact.
func Expand[A, R any](s Uni[A], f func(A) R) Bi[A, R] {
	return Bi[A, R]{op: cn.Map(s.op,
		cn.FactMapping(0),
		mapping(signature.FuncID(f), func(t *tuple.Tuple) R { return f(uni[A](t)) }),
	)}
}

func ExpandBi[A, B, R any](s Bi[A, B], f func(A, B) R) Tri[A, B, R] {
	return Tri[A, B, R]{op: cn.Map(s.op,
		cn.FactMapping(0),
		cn.FactMapping(1),
		mapping(signature.FuncID(f), func(t *tuple.Tuple) R { return f(bi[A, B](t)) }),
	)}
}

func ExpandTri[A, B, C, R any](s Tri[A, B, C], f func(A, B, C) R) Quad[A, B, C, R] {
	return Quad[A, B, C, R]{op: cn.Map(s.op,
		cn.FactMapping(0),
		cn.FactMapping(1),
		cn.FactMapping(2),
		mapping(signature.FuncID(f), func(t *tuple.Tuple) R { return f(tri[A, B, C](t)) }),
	)}
}

// ======================================
// FlattenLast
// ======================================

func flattener[R any](id uintptr, f func(*tuple.Tuple) []R) cn.Flattener {
	return cn.Flattener{
		Fn: func(t *tuple.Tuple) []any {
			elems := f(t)
			out := make([]any, len(elems))
			for i, e := range elems {
				out[i] = e
			}
			return out
		},
		ID: id,
	}
}

// FlattenLast replaces each fact with every element of f(fact).
func FlattenLast[A, R any](s Uni[A], f func(A) []R) Uni[R] {
	return Uni[R]{op: cn.FlattenLast(s.op, flattener(signature.FuncID(f), func(t *tuple.Tuple) []R {
		return f(uni[A](t))
	}))}
}

// FlattenLastBi keeps A and replaces B with every element of f(B).
func FlattenLastBi[A, B, R any](s Bi[A, B], f func(B) []R) Bi[A, R] {
	return Bi[A, R]{op: cn.FlattenLast(s.op, flattener(signature.FuncID(f), func(t *tuple.Tuple) []R {
		return f(as[B](t.B()))
	}))}
}
