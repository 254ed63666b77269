package score

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestAccumulator(t *testing.T, track bool) (*Accumulator, int, int) {
	t.Helper()
	acc := NewAccumulator(HardSoft, track)
	hard, err := acc.AddConstraint(ConstraintRef{Name: "overlap"}, HardSoftOf(-1, 0))
	require.NoError(t, err)
	soft, err := acc.AddConstraint(ConstraintRef{Package: "cost", Name: "usage"}, HardSoftOf(0, -1))
	require.NoError(t, err)
	return acc, hard, soft
}

func TestAccumulator_RegisterAndUndo(t *testing.T) {
	acc, hard, soft := newTestAccumulator(t, false)

	u1 := acc.Register(hard, 1, nil)
	u2 := acc.Register(soft, 5, nil)
	u3 := acc.Register(soft, 2, nil)
	require.Equal(t, HardSoftOf(-1, -7), acc.Score())
	require.Equal(t, HardSoftOf(0, -7), acc.ConstraintScore(soft))
	require.Equal(t, acc.Score(), acc.SumOfConstraints())

	u2()
	require.Equal(t, HardSoftOf(-1, -2), acc.Score())
	u1()
	u3()
	require.True(t, acc.Score().IsZero())
	require.Panics(t, u3)
}

func TestAccumulator_AddConstraintErrors(t *testing.T) {
	acc, _, _ := newTestAccumulator(t, false)
	_, err := acc.AddConstraint(ConstraintRef{Name: "overlap"}, HardSoftOf(-1, 0))
	require.ErrorIs(t, err, ErrDuplicateConstraint)
	_, err = acc.AddConstraint(ConstraintRef{Name: "other"}, SimpleOf(-1))
	require.ErrorIs(t, err, ErrDefinitionMismatch)
	require.Equal(t, 2, acc.ConstraintCount())
}

func TestAccumulator_TotalsAndIndictments(t *testing.T) {
	acc, hard, soft := newTestAccumulator(t, true)
	explain := func(facts ...any) Explainer {
		return func(impact Score) (any, []any) {
			return DefaultJustification{Facts: facts, Impact: impact}, facts
		}
	}
	acc.Register(hard, 1, explain("a", "b"))
	undo := acc.Register(soft, 3, explain("a"))
	acc.Register(soft, 1, explain("c"))

	totals := acc.Totals()
	require.Len(t, totals, 2)
	require.Equal(t, "cost/usage", totals[0].Constraint.ID())
	require.Equal(t, 2, totals[0].MatchCount)
	require.Equal(t, HardSoftOf(0, -4), totals[0].Score)
	require.Len(t, totals[0].Matches, 2)
	require.Equal(t, "overlap", totals[1].Constraint.ID())
	require.Equal(t, "[a, b] -1hard/0soft", totals[1].Matches[0].Justification.(DefaultJustification).String())

	inds, err := acc.Indictments()
	require.NoError(t, err)
	require.Len(t, inds, 3)
	require.Equal(t, "a", inds[0].Object)
	require.Equal(t, HardSoftOf(-1, -3), inds[0].Score)
	require.Equal(t, 2, inds[0].MatchCount)

	undo()
	inds, err = acc.Indictments()
	require.NoError(t, err)
	require.Equal(t, HardSoftOf(-1, 0), inds[0].Score)
}

func TestAccumulator_IndictmentsRequireTracking(t *testing.T) {
	acc, _, _ := newTestAccumulator(t, false)
	_, err := acc.Indictments()
	require.ErrorIs(t, err, ErrMatchesNotTracked)
	require.Nil(t, acc.Totals()[0].Matches)

	e, err := Explain(acc)
	require.NoError(t, err)
	require.Nil(t, e.Indictments)
}

func TestExplanation_String(t *testing.T) {
	acc, hard, _ := newTestAccumulator(t, true)
	acc.Register(hard, 2, func(impact Score) (any, []any) {
		return DefaultJustification{Facts: []any{"x"}, Impact: impact}, []any{"x"}
	})
	e, err := Explain(acc)
	require.NoError(t, err)
	require.Len(t, e.Indictments, 1)
	out := e.String()
	require.Contains(t, out, "Score: -2hard/0soft (feasible: false)")
	require.Contains(t, out, "CONSTRAINTS")
	require.Contains(t, out, "overlap")
	require.Contains(t, out, "INDICTMENTS")
}
