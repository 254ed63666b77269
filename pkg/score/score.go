// Package score holds multi-level scores and the accumulator that keeps a
// running total of weighted constraint matches.
package score

import (
	"fmt"
	"strings"
)

// MaxLevels bounds the number of levels of any score type.
const MaxLevels = 8

// Kind identifies a score type.
type Kind uint8

const (
	SimpleKind Kind = iota
	HardSoftKind
	HardMediumSoftKind
	BendableKind
)

func (k Kind) String() string {
	switch k {
	case SimpleKind:
		return "simple"
	case HardSoftKind:
		return "hard_soft"
	case HardMediumSoftKind:
		return "hard_medium_soft"
	case BendableKind:
		return "bendable"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Definition describes the shape of a score: its kind and how many of its
// levels are hard (feasibility) levels.
type Definition struct {
	kind       Kind
	hardLevels uint8
	softLevels uint8
}

var (
	Simple         = Definition{kind: SimpleKind, softLevels: 1}
	HardSoft       = Definition{kind: HardSoftKind, hardLevels: 1, softLevels: 1}
	HardMediumSoft = Definition{kind: HardMediumSoftKind, hardLevels: 1, softLevels: 2}
)

// Bendable returns a definition with a configurable number of hard and soft levels.
func Bendable(hard, soft int) (Definition, error) {
	if hard < 0 || soft < 0 || hard+soft == 0 || hard+soft > MaxLevels {
		return Definition{}, fmt.Errorf("bendable score needs 1..%d levels, got %d hard and %d soft", MaxLevels, hard, soft)
	}
	return Definition{kind: BendableKind, hardLevels: uint8(hard), softLevels: uint8(soft)}, nil
}

func (d Definition) Kind() Kind { return d.kind }

func (d Definition) HardLevels() int { return int(d.hardLevels) }

func (d Definition) SoftLevels() int { return int(d.softLevels) }

func (d Definition) Levels() int { return int(d.hardLevels + d.softLevels) }

func (d Definition) IsValid() bool { return d.Levels() > 0 }

func (d Definition) String() string {
	if d.kind == BendableKind {
		return fmt.Sprintf("bendable:%d/%d", d.hardLevels, d.softLevels)
	}
	return d.kind.String()
}

// Zero returns the zero score of this definition.
func (d Definition) Zero() Score {
	return Score{def: d}
}

// Of builds a score from raw levels, hard levels first.
func (d Definition) Of(levels ...int64) (Score, error) {
	if len(levels) != d.Levels() {
		return Score{}, fmt.Errorf("%s score has %d levels, got %d", d, d.Levels(), len(levels))
	}
	s := Score{def: d}
	copy(s.levels[:], levels)
	return s, nil
}

// OneHard is 1 on the first hard level (the most significant level for Simple).
func (d Definition) OneHard() Score {
	s := Score{def: d}
	s.levels[0] = 1
	return s
}

// OneSoft is 1 on the last level.
func (d Definition) OneSoft() Score {
	s := Score{def: d}
	s.levels[d.Levels()-1] = 1
	return s
}

func SimpleOf(v int64) Score {
	return Score{def: Simple, levels: [MaxLevels]int64{v}}
}

func HardSoftOf(hard, soft int64) Score {
	return Score{def: HardSoft, levels: [MaxLevels]int64{hard, soft}}
}

func HardMediumSoftOf(hard, medium, soft int64) Score {
	return Score{def: HardMediumSoft, levels: [MaxLevels]int64{hard, medium, soft}}
}

func BendableOf(hard, soft []int64) (Score, error) {
	d, err := Bendable(len(hard), len(soft))
	if err != nil {
		return Score{}, err
	}
	return d.Of(append(append([]int64(nil), hard...), soft...)...)
}

// Score is an immutable multi-level score. Higher is better; levels compare
// lexicographically, hard levels first. Scores are comparable with ==.
type Score struct {
	def    Definition
	levels [MaxLevels]int64
}

// Definition returns the definition this score belongs to.
func (s Score) Definition() Definition { return s.def }

func (s Score) Level(i int) int64 { return s.levels[i] }

func (s Score) Levels() []int64 {
	out := make([]int64, s.def.Levels())
	copy(out, s.levels[:])
	return out
}

func (s Score) HardLevels() []int64 { return s.Levels()[:s.def.hardLevels] }

func (s Score) SoftLevels() []int64 { return s.Levels()[s.def.hardLevels:] }

// Add assumes both scores share a definition.
func (s Score) Add(o Score) Score {
	for i := 0; i < MaxLevels; i++ {
		s.levels[i] += o.levels[i]
	}
	return s
}

func (s Score) Subtract(o Score) Score {
	for i := 0; i < MaxLevels; i++ {
		s.levels[i] -= o.levels[i]
	}
	return s
}

func (s Score) Multiply(f int64) Score {
	for i := 0; i < MaxLevels; i++ {
		s.levels[i] *= f
	}
	return s
}

func (s Score) Negate() Score {
	return s.Multiply(-1)
}

func (s Score) IsZero() bool {
	return s.levels == [MaxLevels]int64{}
}

// IsFeasible reports whether every hard level is non-negative.
func (s Score) IsFeasible() bool {
	for i := 0; i < int(s.def.hardLevels); i++ {
		if s.levels[i] < 0 {
			return false
		}
	}
	return true
}

// Compare returns -1, 0 or 1 when s is worse than, equal to or better than o.
func (s Score) Compare(o Score) int {
	for i := 0; i < s.def.Levels(); i++ {
		switch {
		case s.levels[i] < o.levels[i]:
			return -1
		case s.levels[i] > o.levels[i]:
			return 1
		}
	}
	return 0
}

func (s Score) String() string {
	switch s.def.kind {
	case SimpleKind:
		return fmt.Sprintf("%d", s.levels[0])
	case HardSoftKind:
		return fmt.Sprintf("%dhard/%dsoft", s.levels[0], s.levels[1])
	case HardMediumSoftKind:
		return fmt.Sprintf("%dhard/%dmedium/%dsoft", s.levels[0], s.levels[1], s.levels[2])
	case BendableKind:
		return fmt.Sprintf("[%s]hard/[%s]soft", joinLevels(s.HardLevels()), joinLevels(s.SoftLevels()))
	default:
		return fmt.Sprintf("%v", s.Levels())
	}
}

func joinLevels(ls []int64) string {
	parts := make([]string, len(ls))
	for i, l := range ls {
		parts[i] = fmt.Sprintf("%d", l)
	}
	return strings.Join(parts, "/")
}
