// Package stream is the typed way to declare constraints. Every stream is a
// thin wrapper around a constraint_network.Op; nothing is evaluated until a
// session builds the network.
//
// A typical constraint:
//
//	stream.ForEach[Process]().
//		Filter(unassigned).
//		Penalize(score.HardSoftOf(1, 0)).
//		AsConstraint("unassigned process")
//
// Functions passed to a stream are identified by their code pointer (see
// signature.FuncID). Declaring the same top-level function twice lets the
// network share one node between both uses; closures capturing variables are
// never shared.
package stream

import (
	"fmt"
	"reflect"

	"github.com/jtomasevic/incscore/pkg/celexpr"
	cn "github.com/jtomasevic/incscore/pkg/constraint_network"
	"github.com/jtomasevic/incscore/pkg/signature"
	"github.com/jtomasevic/incscore/pkg/tuple"
)

// Uni is a stream of single facts.
type Uni[A any] struct{ op *cn.Op }

// Bi is a stream of fact pairs.
type Bi[A, B any] struct{ op *cn.Op }

type Tri[A, B, C any] struct{ op *cn.Op }

type Quad[A, B, C, D any] struct{ op *cn.Op }

func (s Uni[A]) Op() *cn.Op           { return s.op }
func (s Bi[A, B]) Op() *cn.Op         { return s.op }
func (s Tri[A, B, C]) Op() *cn.Op     { return s.op }
func (s Quad[A, B, C, D]) Op() *cn.Op { return s.op }

// as converts a tuple fact back to its declared type. Facts of interface
// types may be nil; they convert to the zero value.
func as[T any](v any) T {
	t, _ := v.(T)
	return t
}

func uni[A any](t *tuple.Tuple) A { return as[A](t.A()) }

func bi[A, B any](t *tuple.Tuple) (A, B) { return as[A](t.A()), as[B](t.B()) }

func tri[A, B, C any](t *tuple.Tuple) (A, B, C) {
	return as[A](t.A()), as[B](t.B()), as[C](t.C())
}

func quad[A, B, C, D any](t *tuple.Tuple) (A, B, C, D) {
	return as[A](t.A()), as[B](t.B()), as[C](t.C()), as[D](t.D())
}

// ForEach streams every inserted fact assignable to A.
func ForEach[A any]() Uni[A] {
	return Uni[A]{op: cn.ForEach(reflect.TypeFor[A]())}
}

// ======================================
// Filter
// ======================================

func (s Uni[A]) Filter(pred func(A) bool) Uni[A] {
	return Uni[A]{op: cn.Filter(s.op, cn.Predicate{
		Fn: func(t *tuple.Tuple) bool { return pred(uni[A](t)) },
		ID: signature.FuncID(pred),
	})}
}

func (s Bi[A, B]) Filter(pred func(A, B) bool) Bi[A, B] {
	return Bi[A, B]{op: cn.Filter(s.op, cn.Predicate{
		Fn: func(t *tuple.Tuple) bool { return pred(bi[A, B](t)) },
		ID: signature.FuncID(pred),
	})}
}

func (s Tri[A, B, C]) Filter(pred func(A, B, C) bool) Tri[A, B, C] {
	return Tri[A, B, C]{op: cn.Filter(s.op, cn.Predicate{
		Fn: func(t *tuple.Tuple) bool { return pred(tri[A, B, C](t)) },
		ID: signature.FuncID(pred),
	})}
}

func (s Quad[A, B, C, D]) Filter(pred func(A, B, C, D) bool) Quad[A, B, C, D] {
	return Quad[A, B, C, D]{op: cn.Filter(s.op, cn.Predicate{
		Fn: func(t *tuple.Tuple) bool { return pred(quad[A, B, C, D](t)) },
		ID: signature.FuncID(pred),
	})}
}

// FilterExpr keeps facts for which the CEL expression holds. bind exposes
// each fact to the expression as the variables named in vars, e.g.
//
//	s.FilterExpr("p.cpu > 4", func(p Process) map[string]any {
//		return map[string]any{"p": map[string]any{"cpu": p.CPU}}
//	}, "p")
//
// A compile error is reported when the network is built. An evaluation
// error is a user function failure and surfaces from the session operation
// that triggered it.
func (s Uni[A]) FilterExpr(expr string, bind func(A) map[string]any, vars ...string) Uni[A] {
	return Uni[A]{op: exprFilter(s.op, expr, signature.FuncID(bind), vars,
		func(t *tuple.Tuple) map[string]any { return bind(uni[A](t)) })}
}

func (s Bi[A, B]) FilterExpr(expr string, bind func(A, B) map[string]any, vars ...string) Bi[A, B] {
	return Bi[A, B]{op: exprFilter(s.op, expr, signature.FuncID(bind), vars,
		func(t *tuple.Tuple) map[string]any { return bind(bi[A, B](t)) })}
}

func (s Tri[A, B, C]) FilterExpr(expr string, bind func(A, B, C) map[string]any, vars ...string) Tri[A, B, C] {
	return Tri[A, B, C]{op: exprFilter(s.op, expr, signature.FuncID(bind), vars,
		func(t *tuple.Tuple) map[string]any { return bind(tri[A, B, C](t)) })}
}

func exprFilter(parent *cn.Op, expr string, bindID uintptr, vars []string, bind func(*tuple.Tuple) map[string]any) *cn.Op {
	prg, err := celexpr.Compile(expr, vars...)
	if err != nil {
		op := cn.Filter(parent, cn.Predicate{Text: expr})
		op.Err = err
		return op
	}
	text := prg.Key()
	if bindID == 0 {
		// unidentified binder: keep the text readable but unshareable
		return cn.Filter(parent, cn.Predicate{
			Fn: func(t *tuple.Tuple) bool { return mustEval(prg, bind(t)) },
		})
	}
	return cn.Filter(parent, cn.Predicate{
		Fn:   func(t *tuple.Tuple) bool { return mustEval(prg, bind(t)) },
		ID:   bindID,
		Text: fmt.Sprintf("%s@%x", text, bindID),
	})
}

func mustEval(prg *celexpr.Program, bindings map[string]any) bool {
	ok, err := prg.Eval(bindings)
	if err != nil {
		panic(err)
	}
	return ok
}

// ======================================
// Distinct / Concat
// ======================================

// Distinct drops duplicate tuples: equal facts at every position count once.
// Every fact must be comparable.
func (s Uni[A]) Distinct() Uni[A] {
	return Uni[A]{op: cn.Distinct(s.op)}
}

func (s Bi[A, B]) Distinct() Bi[A, B] {
	return Bi[A, B]{op: cn.Distinct(s.op)}
}

func (s Tri[A, B, C]) Distinct() Tri[A, B, C] {
	return Tri[A, B, C]{op: cn.Distinct(s.op)}
}

func (s Quad[A, B, C, D]) Distinct() Quad[A, B, C, D] {
	return Quad[A, B, C, D]{op: cn.Distinct(s.op)}
}

// Concat streams the tuples of both streams; a tuple present in both is seen twice.
func (s Uni[A]) Concat(o Uni[A]) Uni[A] {
	return Uni[A]{op: cn.Concat(s.op, o.op)}
}

func (s Bi[A, B]) Concat(o Bi[A, B]) Bi[A, B] {
	return Bi[A, B]{op: cn.Concat(s.op, o.op)}
}

func (s Tri[A, B, C]) Concat(o Tri[A, B, C]) Tri[A, B, C] {
	return Tri[A, B, C]{op: cn.Concat(s.op, o.op)}
}

func (s Quad[A, B, C, D]) Concat(o Quad[A, B, C, D]) Quad[A, B, C, D] {
	return Quad[A, B, C, D]{op: cn.Concat(s.op, o.op)}
}
