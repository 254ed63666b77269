package score

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
)

var (
	ErrDuplicateConstraint = errors.New("duplicate constraint")
	ErrDefinitionMismatch  = errors.New("score definition mismatch")
	ErrMatchesNotTracked   = errors.New("constraint matches are not tracked")
)

// ConstraintRef names a constraint. Package is optional.
type ConstraintRef struct {
	Package string
	Name    string
}

// ID is "package/name", or just the name without a package.
func (r ConstraintRef) ID() string {
	if r.Package == "" {
		return r.Name
	}
	return r.Package + "/" + r.Name
}

func (r ConstraintRef) String() string { return r.ID() }

// Explainer produces the justification and the indicted objects of one match.
// It is only called when the accumulator tracks matches.
type Explainer func(impact Score) (justification any, indicted []any)

// ConstraintMatch is one live terminal match.
type ConstraintMatch struct {
	Constraint    ConstraintRef
	Score         Score
	Justification any
	Indicted      []any

	seq uint64
}

type tally struct {
	ref     ConstraintRef
	weight  Score
	score   Score
	count   int
	matches map[*ConstraintMatch]struct{}
}

// Accumulator keeps the running score of one session.
//
// Every terminal match is registered with its constraint and match weight
// and gets back an undo function. Register and undo are O(1): they adjust the
// constraint's tally and the total, nothing else is rescanned.
type Accumulator struct {
	def          Definition
	total        Score
	tallies      []*tally
	byID         map[string]int
	trackMatches bool
	seq          uint64
}

func NewAccumulator(def Definition, trackMatches bool) *Accumulator {
	return &Accumulator{
		def:          def,
		total:        def.Zero(),
		byID:         map[string]int{},
		trackMatches: trackMatches,
	}
}

func (a *Accumulator) Definition() Definition { return a.def }

func (a *Accumulator) TracksMatches() bool { return a.trackMatches }

// AddConstraint registers a constraint and returns its index.
func (a *Accumulator) AddConstraint(ref ConstraintRef, weight Score) (int, error) {
	if weight.def != a.def {
		return -1, fmt.Errorf("%w: constraint %s has a %s weight, session uses %s", ErrDefinitionMismatch, ref, weight.def, a.def)
	}
	if _, ok := a.byID[ref.ID()]; ok {
		return -1, fmt.Errorf("%w: %s", ErrDuplicateConstraint, ref)
	}
	t := &tally{ref: ref, weight: weight, score: a.def.Zero()}
	if a.trackMatches {
		t.matches = map[*ConstraintMatch]struct{}{}
	}
	a.tallies = append(a.tallies, t)
	a.byID[ref.ID()] = len(a.tallies) - 1
	return len(a.tallies) - 1, nil
}

func (a *Accumulator) ConstraintCount() int { return len(a.tallies) }

// Register adds weight*matchWeight of constraint idx to the total. The
// returned undo removes exactly that contribution and must be called once.
func (a *Accumulator) Register(idx int, matchWeight int64, explain Explainer) (undo func()) {
	t := a.tallies[idx]
	impact := t.weight.Multiply(matchWeight)
	t.score = t.score.Add(impact)
	t.count++
	a.total = a.total.Add(impact)

	var m *ConstraintMatch
	if a.trackMatches {
		a.seq++
		m = &ConstraintMatch{Constraint: t.ref, Score: impact, seq: a.seq}
		if explain != nil {
			m.Justification, m.Indicted = explain(impact)
		}
		t.matches[m] = struct{}{}
	}

	done := false
	return func() {
		if done {
			panic(fmt.Errorf("match of constraint %s undone twice", t.ref))
		}
		done = true
		t.score = t.score.Subtract(impact)
		t.count--
		a.total = a.total.Subtract(impact)
		if m != nil {
			delete(t.matches, m)
		}
	}
}

// Score is the running total.
func (a *Accumulator) Score() Score { return a.total }

// ConstraintScore is the running total of one constraint.
func (a *Accumulator) ConstraintScore(idx int) Score { return a.tallies[idx].score }

// SumOfConstraints adds up the per-constraint totals; it must always equal Score.
func (a *Accumulator) SumOfConstraints() Score {
	s := a.def.Zero()
	for _, t := range a.tallies {
		s = s.Add(t.score)
	}
	return s
}

// ConstraintMatchTotal summarises one constraint.
type ConstraintMatchTotal struct {
	Constraint ConstraintRef
	Weight     Score
	Score      Score
	MatchCount int
	// Matches is nil unless the accumulator tracks matches.
	Matches []ConstraintMatch
}

// Totals returns a snapshot per constraint, ordered by constraint id.
func (a *Accumulator) Totals() []ConstraintMatchTotal {
	out := make([]ConstraintMatchTotal, 0, len(a.tallies))
	for _, t := range a.tallies {
		total := ConstraintMatchTotal{
			Constraint: t.ref,
			Weight:     t.weight,
			Score:      t.score,
			MatchCount: t.count,
		}
		if a.trackMatches {
			total.Matches = sortedMatches(t.matches)
		}
		out = append(out, total)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Constraint.ID() < out[j].Constraint.ID() })
	return out
}

// Indictment sums the matches that implicate one object.
type Indictment struct {
	Object     any
	Score      Score
	MatchCount int
	Matches    []ConstraintMatch
}

// Indictments groups the live matches by indicted object, worst score first.
// Objects that are not comparable cannot be grouped and are skipped.
func (a *Accumulator) Indictments() ([]Indictment, error) {
	if !a.trackMatches {
		return nil, ErrMatchesNotTracked
	}
	byObject := map[any]*Indictment{}
	var order []any
	for _, t := range a.tallies {
		for _, m := range sortedMatches(t.matches) {
			for _, o := range m.Indicted {
				if o == nil || !reflect.TypeOf(o).Comparable() {
					continue
				}
				ind, ok := byObject[o]
				if !ok {
					ind = &Indictment{Object: o, Score: a.def.Zero()}
					byObject[o] = ind
					order = append(order, o)
				}
				ind.Score = ind.Score.Add(m.Score)
				ind.MatchCount++
				ind.Matches = append(ind.Matches, m)
			}
		}
	}
	out := make([]Indictment, 0, len(order))
	for _, o := range order {
		out = append(out, *byObject[o])
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score.Compare(out[j].Score) < 0 })
	return out, nil
}

func sortedMatches(set map[*ConstraintMatch]struct{}) []ConstraintMatch {
	out := make([]ConstraintMatch, 0, len(set))
	for m := range set {
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].seq < out[j].seq })
	return out
}
