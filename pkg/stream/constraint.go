package stream

import (
	cn "github.com/jtomasevic/incscore/pkg/constraint_network"
	"github.com/jtomasevic/incscore/pkg/score"
	"github.com/jtomasevic/incscore/pkg/tuple"
)

// builder holds a constraint under construction. Typed builders embed it and
// add the justification hooks for their arity.
type builder struct {
	def cn.ConstraintDef
}

func newBuilder(src *cn.Op, impact cn.ImpactType, weight score.Score, matchWeight func(*tuple.Tuple) int64) builder {
	return builder{def: cn.ConstraintDef{
		Source:      src,
		Impact:      impact,
		Weight:      weight,
		MatchWeight: matchWeight,
	}}
}

// AsConstraint finishes the constraint under the given name.
func (b builder) AsConstraint(name string) *cn.ConstraintDef {
	return b.finish(score.ConstraintRef{Name: name}, "")
}

func (b builder) AsConstraintDescribed(name, description string) *cn.ConstraintDef {
	return b.finish(score.ConstraintRef{Name: name}, description)
}

// AsConstraintIn finishes the constraint with id "pkg/name".
func (b builder) AsConstraintIn(pkg, name string) *cn.ConstraintDef {
	return b.finish(score.ConstraintRef{Package: pkg, Name: name}, "")
}

func (b builder) finish(ref score.ConstraintRef, description string) *cn.ConstraintDef {
	def := b.def
	def.Ref = ref
	def.Description = description
	return &def
}

// ======================================
// Uni
// ======================================

type UniConstraintBuilder[A any] struct{ builder }

// JustifyWith replaces the default justification (the facts and the impact).
func (c UniConstraintBuilder[A]) JustifyWith(f func(A, score.Score) any) UniConstraintBuilder[A] {
	c.def.Justify = func(facts []any, impact score.Score) any { return f(as[A](facts[0]), impact) }
	return c
}

// IndictWith replaces the default indicted objects (the facts).
func (c UniConstraintBuilder[A]) IndictWith(f func(A) []any) UniConstraintBuilder[A] {
	c.def.Indict = func(facts []any) []any { return f(as[A](facts[0])) }
	return c
}

func uniWeigher[A any](f func(A) int64) func(*tuple.Tuple) int64 {
	return func(t *tuple.Tuple) int64 { return f(uni[A](t)) }
}

// Penalize subtracts weight once per match.
func (s Uni[A]) Penalize(weight score.Score) UniConstraintBuilder[A] {
	return UniConstraintBuilder[A]{newBuilder(s.op, cn.Penalize, weight, nil)}
}

// PenalizeBy subtracts weight*matchWeight(a) per match; matchWeight must not
// be negative.
func (s Uni[A]) PenalizeBy(weight score.Score, matchWeight func(A) int64) UniConstraintBuilder[A] {
	return UniConstraintBuilder[A]{newBuilder(s.op, cn.Penalize, weight, uniWeigher(matchWeight))}
}

func (s Uni[A]) Reward(weight score.Score) UniConstraintBuilder[A] {
	return UniConstraintBuilder[A]{newBuilder(s.op, cn.Reward, weight, nil)}
}

func (s Uni[A]) RewardBy(weight score.Score, matchWeight func(A) int64) UniConstraintBuilder[A] {
	return UniConstraintBuilder[A]{newBuilder(s.op, cn.Reward, weight, uniWeigher(matchWeight))}
}

func (s Uni[A]) Impact(weight score.Score) UniConstraintBuilder[A] {
	return UniConstraintBuilder[A]{newBuilder(s.op, cn.Impact, weight, nil)}
}

// ImpactBy adds weight*matchWeight(a) per match; matchWeight may be negative.
func (s Uni[A]) ImpactBy(weight score.Score, matchWeight func(A) int64) UniConstraintBuilder[A] {
	return UniConstraintBuilder[A]{newBuilder(s.op, cn.Impact, weight, uniWeigher(matchWeight))}
}

// ======================================
// Bi
// ======================================

type BiConstraintBuilder[A, B any] struct{ builder }

func (c BiConstraintBuilder[A, B]) JustifyWith(f func(A, B, score.Score) any) BiConstraintBuilder[A, B] {
	c.def.Justify = func(facts []any, impact score.Score) any {
		return f(as[A](facts[0]), as[B](facts[1]), impact)
	}
	return c
}

func (c BiConstraintBuilder[A, B]) IndictWith(f func(A, B) []any) BiConstraintBuilder[A, B] {
	c.def.Indict = func(facts []any) []any { return f(as[A](facts[0]), as[B](facts[1])) }
	return c
}

func biWeigher[A, B any](f func(A, B) int64) func(*tuple.Tuple) int64 {
	return func(t *tuple.Tuple) int64 { return f(bi[A, B](t)) }
}

func (s Bi[A, B]) Penalize(weight score.Score) BiConstraintBuilder[A, B] {
	return BiConstraintBuilder[A, B]{newBuilder(s.op, cn.Penalize, weight, nil)}
}

func (s Bi[A, B]) PenalizeBy(weight score.Score, matchWeight func(A, B) int64) BiConstraintBuilder[A, B] {
	return BiConstraintBuilder[A, B]{newBuilder(s.op, cn.Penalize, weight, biWeigher(matchWeight))}
}

func (s Bi[A, B]) Reward(weight score.Score) BiConstraintBuilder[A, B] {
	return BiConstraintBuilder[A, B]{newBuilder(s.op, cn.Reward, weight, nil)}
}

func (s Bi[A, B]) RewardBy(weight score.Score, matchWeight func(A, B) int64) BiConstraintBuilder[A, B] {
	return BiConstraintBuilder[A, B]{newBuilder(s.op, cn.Reward, weight, biWeigher(matchWeight))}
}

func (s Bi[A, B]) Impact(weight score.Score) BiConstraintBuilder[A, B] {
	return BiConstraintBuilder[A, B]{newBuilder(s.op, cn.Impact, weight, nil)}
}

func (s Bi[A, B]) ImpactBy(weight score.Score, matchWeight func(A, B) int64) BiConstraintBuilder[A, B] {
	return BiConstraintBuilder[A, B]{newBuilder(s.op, cn.Impact, weight, biWeigher(matchWeight))}
}

// ======================================
// Tri
// ======================================

type TriConstraintBuilder[A, B, C any] struct{ builder }

func (c TriConstraintBuilder[A, B, C]) JustifyWith(f func(A, B, C, score.Score) any) TriConstraintBuilder[A, B, C] {
	c.def.Justify = func(facts []any, impact score.Score) any {
		return f(as[A](facts[0]), as[B](facts[1]), as[C](facts[2]), impact)
	}
	return c
}

func (c TriConstraintBuilder[A, B, C]) IndictWith(f func(A, B, C) []any) TriConstraintBuilder[A, B, C] {
	c.def.Indict = func(facts []any) []any {
		return f(as[A](facts[0]), as[B](facts[1]), as[C](facts[2]))
	}
	return c
}

func triWeigher[A, B, C any](f func(A, B, C) int64) func(*tuple.Tuple) int64 {
	return func(t *tuple.Tuple) int64 { return f(tri[A, B, C](t)) }
}

func (s Tri[A, B, C]) Penalize(weight score.Score) TriConstraintBuilder[A, B, C] {
	return TriConstraintBuilder[A, B, C]{newBuilder(s.op, cn.Penalize, weight, nil)}
}

func (s Tri[A, B, C]) PenalizeBy(weight score.Score, matchWeight func(A, B, C) int64) TriConstraintBuilder[A, B, C] {
	return TriConstraintBuilder[A, B, C]{newBuilder(s.op, cn.Penalize, weight, triWeigher(matchWeight))}
}

func (s Tri[A, B, C]) Reward(weight score.Score) TriConstraintBuilder[A, B, C] {
	return TriConstraintBuilder[A, B, C]{newBuilder(s.op, cn.Reward, weight, nil)}
}

func (s Tri[A, B, C]) RewardBy(weight score.Score, matchWeight func(A, B, C) int64) TriConstraintBuilder[A, B, C] {
	return TriConstraintBuilder[A, B, C]{newBuilder(s.op, cn.Reward, weight, triWeigher(matchWeight))}
}

func (s Tri[A, B, C]) Impact(weight score.Score) TriConstraintBuilder[A, B, C] {
	return TriConstraintBuilder[A, B, C]{newBuilder(s.op, cn.Impact, weight, nil)}
}

func (s Tri[A, B, C]) ImpactBy(weight score.Score, matchWeight func(A, B, C) int64) TriConstraintBuilder[A, B, C] {
	return TriConstraintBuilder[A, B, C]{newBuilder(s.op, cn.Impact, weight, triWeigher(matchWeight))}
}

// ======================================
// Quad
// ======================================

type QuadConstraintBuilder[A, B, C, D any] struct{ builder }

func (c QuadConstraintBuilder[A, B, C, D]) JustifyWith(f func(A, B, C, D, score.Score) any) QuadConstraintBuilder[A, B, C, D] {
	c.def.Justify = func(facts []any, impact score.Score) any {
		return f(as[A](facts[0]), as[B](facts[1]), as[C](facts[2]), as[D](facts[3]), impact)
	}
	return c
}

func (c QuadConstraintBuilder[A, B, C, D]) IndictWith(f func(A, B, C, D) []any) QuadConstraintBuilder[A, B, C, D] {
	c.def.Indict = func(facts []any) []any {
		return f(as[A](facts[0]), as[B](facts[1]), as[C](facts[2]), as[D](facts[3]))
	}
	return c
}

func quadWeigher[A, B, C, D any](f func(A, B, C, D) int64) func(*tuple.Tuple) int64 {
	return func(t *tuple.Tuple) int64 { return f(quad[A, B, C, D](t)) }
}

func (s Quad[A, B, C, D]) Penalize(weight score.Score) QuadConstraintBuilder[A, B, C, D] {
	return QuadConstraintBuilder[A, B, C, D]{newBuilder(s.op, cn.Penalize, weight, nil)}
}

func (s Quad[A, B, C, D]) PenalizeBy(weight score.Score, matchWeight func(A, B, C, D) int64) QuadConstraintBuilder[A, B, C, D] {
	return QuadConstraintBuilder[A, B, C, D]{newBuilder(s.op, cn.Penalize, weight, quadWeigher(matchWeight))}
}

func (s Quad[A, B, C, D]) Reward(weight score.Score) QuadConstraintBuilder[A, B, C, D] {
	return QuadConstraintBuilder[A, B, C, D]{newBuilder(s.op, cn.Reward, weight, nil)}
}

func (s Quad[A, B, C, D]) RewardBy(weight score.Score, matchWeight func(A, B, C, D) int64) QuadConstraintBuilder[A, B, C, D] {
	return QuadConstraintBuilder[A, B, C, D]{newBuilder(s.op, cn.Reward, weight, quadWeigher(matchWeight))}
}

func (s Quad[A, B, C, D]) Impact(weight score.Score) QuadConstraintBuilder[A, B, C, D] {
	return QuadConstraintBuilder[A, B, C, D]{newBuilder(s.op, cn.Impact, weight, nil)}
}

func (s Quad[A, B, C, D]) ImpactBy(weight score.Score, matchWeight func(A, B, C, D) int64) QuadConstraintBuilder[A, B, C, D] {
	return QuadConstraintBuilder[A, B, C, D]{newBuilder(s.op, cn.Impact, weight, quadWeigher(matchWeight))}
}
