package constraint_network

import (
	"fmt"
	"sort"

	"github.com/jtomasevic/incscore/pkg/index"
	"github.com/jtomasevic/incscore/pkg/tuple"
)

// keyFunc derives the index keys of one side of a join.
type keyFunc func(*tuple.Tuple) index.Keys

// joinIndexing is a compiled joiner list. Equal joiners come first and are
// merged into one level; every comparison joiner adds its own level.
type joinIndexing struct {
	leftLevels, rightLevels []index.Level
	leftKeys, rightKeys     keyFunc
}

func validateJoiners(js []Joiner) error {
	for i, j := range js {
		if j.Kind > index.GreaterThanOrEqual {
			return fmt.Errorf("%w: joiner %d has unknown kind %s", ErrInvalidJoiner, i, j.Kind)
		}
		if j.Left == nil || j.Right == nil {
			return fmt.Errorf("%w: joiner %d (%s) is missing a mapping", ErrInvalidJoiner, i, j.Kind)
		}
		if j.Kind != index.Equal && j.Compare == nil {
			return fmt.Errorf("%w: joiner %d (%s) has no comparator", ErrInvalidJoiner, i, j.Kind)
		}
		if j.LeftType != nil && j.RightType != nil && j.LeftType != j.RightType {
			return fmt.Errorf("%w: joiner %d (%s) compares %s with %s", ErrInvalidJoiner, i, j.Kind, j.LeftType, j.RightType)
		}
	}
	return nil
}

func compileJoiners(js []Joiner) joinIndexing {
	ordered := make([]Joiner, len(js))
	copy(ordered, js)
	sort.SliceStable(ordered, func(a, b int) bool {
		return ordered[a].Kind == index.Equal && ordered[b].Kind != index.Equal
	})
	var equal, ranged []Joiner
	for _, j := range ordered {
		if j.Kind == index.Equal {
			equal = append(equal, j)
		} else {
			ranged = append(ranged, j)
		}
	}

	var ix joinIndexing
	if len(equal) > 0 {
		ix.leftLevels = append(ix.leftLevels, index.Level{Kind: index.Equal})
		ix.rightLevels = append(ix.rightLevels, index.Level{Kind: index.Equal})
	}
	for _, j := range ranged {
		// The right index is queried with left keys: left <kind> right.
		// The left index is queried with right keys: right <flip> left.
		ix.rightLevels = append(ix.rightLevels, index.Level{Kind: j.Kind, Compare: j.Compare})
		ix.leftLevels = append(ix.leftLevels, index.Level{Kind: j.Kind.Flip(), Compare: j.Compare})
	}
	ix.leftKeys = buildKeyFunc(equal, ranged, func(j Joiner) func(*tuple.Tuple) any { return j.Left })
	ix.rightKeys = buildKeyFunc(equal, ranged, func(j Joiner) func(*tuple.Tuple) any { return j.Right })
	return ix
}

func buildKeyFunc(equal, ranged []Joiner, side func(Joiner) func(*tuple.Tuple) any) keyFunc {
	eq := make([]func(*tuple.Tuple) any, len(equal))
	for i, j := range equal {
		eq[i] = side(j)
	}
	rg := make([]func(*tuple.Tuple) any, len(ranged))
	for i, j := range ranged {
		rg[i] = side(j)
	}
	levels := len(rg)
	if len(eq) > 0 {
		levels++
	}
	return func(t *tuple.Tuple) index.Keys {
		keys := make(index.Keys, 0, levels)
		switch len(eq) {
		case 0:
		case 1:
			keys = append(keys, eq[0](t))
		default:
			vals := make([]any, len(eq))
			for i, f := range eq {
				vals[i] = f(t)
			}
			keys = append(keys, index.Composite(vals...))
		}
		for _, f := range rg {
			keys = append(keys, f(t))
		}
		return keys
	}
}

func passesAll(fs []Filtering, left, right *tuple.Tuple) bool {
	for _, f := range fs {
		if !f.Fn(left, right) {
			return false
		}
	}
	return true
}
