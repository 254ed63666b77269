package constraint_network

import (
	"github.com/jtomasevic/incscore/pkg/score"
	"github.com/jtomasevic/incscore/pkg/tuple"
)

// scorer is the terminal lifecycle of one constraint. Every live tuple
// holds the undo of its registration in the scorer's slot.
type scorer struct {
	name string
	def  *ConstraintDef
	idx  int
	acc  *score.Accumulator
	slot int
	sign int64
}

func newScorer(def *ConstraintDef, idx int, acc *score.Accumulator, slot int) *scorer {
	s := &scorer{name: "score(" + def.Ref.ID() + ")", def: def, idx: idx, acc: acc, slot: slot, sign: 1}
	if def.Impact == Penalize {
		s.sign = -1
	}
	return s
}

func (s *scorer) Insert(t *tuple.Tuple) {
	if t.Get(s.slot) != nil {
		fail(s.name, "insert", t, "tuple already scored")
	}
	t.Set(s.slot, s.register(t))
}

func (s *scorer) Update(t *tuple.Tuple) {
	undo, _ := t.Get(s.slot).(func())
	if undo == nil {
		fail(s.name, "update", t, "tuple was never scored")
	}
	undo()
	t.Set(s.slot, s.register(t))
}

func (s *scorer) Retract(t *tuple.Tuple) {
	undo, _ := t.Clear(s.slot).(func())
	if undo == nil {
		fail(s.name, "retract", t, "tuple was never scored")
	}
	undo()
}

func (s *scorer) register(t *tuple.Tuple) func() {
	w := int64(1)
	if s.def.MatchWeight != nil {
		w = s.def.MatchWeight(t)
	}
	if w < 0 && s.def.Impact != Impact {
		fail(s.name, "score", t, "negative match weight %d for a %s constraint", w, s.def.Impact)
	}
	var explain score.Explainer
	if s.acc.TracksMatches() {
		facts := t.Facts()
		explain = func(impact score.Score) (any, []any) {
			var justification any = score.DefaultJustification{Facts: facts, Impact: impact}
			if s.def.Justify != nil {
				justification = s.def.Justify(facts, impact)
			}
			indicted := facts
			if s.def.Indict != nil {
				indicted = s.def.Indict(facts)
			}
			return justification, indicted
		}
	}
	return s.acc.Register(s.idx, s.sign*w, explain)
}
