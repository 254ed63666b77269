package constraint_network

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/jtomasevic/incscore/pkg/index"
	"github.com/jtomasevic/incscore/pkg/score"
	"github.com/jtomasevic/incscore/pkg/tuple"
)

// OpKind identifies a stream operation.
type OpKind uint8

const (
	OpForEach OpKind = iota
	OpFilter
	OpJoin
	OpIfExists
	OpIfNotExists
	OpGroupBy
	OpMap
	OpFlattenLast
	OpConcat
	OpDistinct
)

func (k OpKind) String() string {
	switch k {
	case OpForEach:
		return "forEach"
	case OpFilter:
		return "filter"
	case OpJoin:
		return "join"
	case OpIfExists:
		return "ifExists"
	case OpIfNotExists:
		return "ifNotExists"
	case OpGroupBy:
		return "groupBy"
	case OpMap:
		return "map"
	case OpFlattenLast:
		return "flattenLast"
	case OpConcat:
		return "concat"
	case OpDistinct:
		return "distinct"
	default:
		return fmt.Sprintf("OpKind(%d)", uint8(k))
	}
}

// Predicate tests one tuple. ID identifies the user function for node
// sharing; Text is set for expression predicates instead.
type Predicate struct {
	Fn   func(*tuple.Tuple) bool
	ID   uintptr
	Text string
}

// Mapping derives one value from a tuple (group keys, map outputs).
type Mapping struct {
	Fn func(*tuple.Tuple) any
	ID uintptr
}

// FactMapping returns fact i of the tuple unchanged. Its ID is stable, so
// ops mapping the same fact positions share nodes.
func FactMapping(i int) Mapping {
	return Mapping{Fn: func(t *tuple.Tuple) any { return t.Fact(i) }, ID: uintptr(i + 1)}
}

// Filtering is a pairwise predicate applied after the indexed joiners.
type Filtering struct {
	Fn func(left, right *tuple.Tuple) bool
	ID uintptr
}

// Flattener expands the last fact of a tuple into zero or more elements.
type Flattener struct {
	Fn func(*tuple.Tuple) []any
	ID uintptr
}

// Joiner is one indexed join condition: Left(leftTuple) <Kind> Right(rightTuple).
//
// IMPORTANT:
//   - Equal joiners need comparable key values.
//   - Every other kind needs Compare, a total order over the key values.
//   - LeftType and RightType are the declared key types; when both are set
//     they must be identical.
type Joiner struct {
	Kind      index.Comparison
	Left      func(*tuple.Tuple) any
	Right     func(*tuple.Tuple) any
	Compare   func(a, b any) int
	LeftType  reflect.Type
	RightType reflect.Type
	LeftID    uintptr
	RightID   uintptr
}

// Collector is the untyped form of a group collector: it accumulates whole
// tuples. The typed collectors of package collect are adapted to it.
type Collector interface {
	NewContainer() Container
	// Removable reports whether Add returns an undo. The network only
	// accepts removable collectors.
	Removable() bool
	// Signature identifies the collector for node sharing; "" disables
	// sharing of the group node using it.
	Signature() string
}

// Container is the per-group state of a collector.
type Container interface {
	Add(t *tuple.Tuple) (undo func())
	Result() any
}

// Op is one declared stream operation. Ops form a DAG through Parents; the
// builder turns the DAG reachable from every constraint into shared nodes.
type Op struct {
	Kind    OpKind
	Parents []*Op
	Arity   int

	Category   reflect.Type
	Predicate  Predicate
	Joiners    []Joiner
	Filtering  []Filtering
	Keys       []Mapping
	Collectors []Collector
	Mappers    []Mapping
	Flatten    Flattener

	// Err is a declaration error (an expression that did not compile, a
	// bad collector argument); Build reports it instead of building.
	Err error
}

// ForEach declares the source stream of every inserted fact assignable to category.
func ForEach(category reflect.Type) *Op {
	return &Op{Kind: OpForEach, Arity: 1, Category: category}
}

func Filter(parent *Op, p Predicate) *Op {
	return &Op{Kind: OpFilter, Parents: []*Op{parent}, Arity: parent.Arity, Predicate: p}
}

// Join pairs left tuples with uni tuples of right; the output carries the
// left facts followed by the right fact.
func Join(left, right *Op, joiners []Joiner, filtering ...Filtering) *Op {
	return &Op{
		Kind:      OpJoin,
		Parents:   []*Op{left, right},
		Arity:     left.Arity + right.Arity,
		Joiners:   joiners,
		Filtering: filtering,
	}
}

// IfExists keeps left tuples for which at least one (shouldExist) or no
// (!shouldExist) right tuple matches every joiner and filtering.
func IfExists(left, right *Op, shouldExist bool, joiners []Joiner, filtering ...Filtering) *Op {
	kind := OpIfExists
	if !shouldExist {
		kind = OpIfNotExists
	}
	return &Op{
		Kind:      kind,
		Parents:   []*Op{left, right},
		Arity:     left.Arity,
		Joiners:   joiners,
		Filtering: filtering,
	}
}

// GroupBy emits one tuple per distinct key: the key values followed by one
// result per collector.
func GroupBy(parent *Op, keys []Mapping, collectors []Collector) *Op {
	return &Op{
		Kind:       OpGroupBy,
		Parents:    []*Op{parent},
		Arity:      len(keys) + len(collectors),
		Keys:       keys,
		Collectors: collectors,
	}
}

func Map(parent *Op, mappers ...Mapping) *Op {
	return &Op{Kind: OpMap, Parents: []*Op{parent}, Arity: len(mappers), Mappers: mappers}
}

func FlattenLast(parent *Op, f Flattener) *Op {
	return &Op{Kind: OpFlattenLast, Parents: []*Op{parent}, Arity: parent.Arity, Flatten: f}
}

func Concat(a, b *Op) *Op {
	return &Op{Kind: OpConcat, Parents: []*Op{a, b}, Arity: a.Arity}
}

func Distinct(parent *Op) *Op {
	return &Op{Kind: OpDistinct, Parents: []*Op{parent}, Arity: parent.Arity}
}

// Describe is a short human form used in errors and network dumps.
func (o *Op) Describe() string {
	switch o.Kind {
	case OpForEach:
		if o.Category == nil {
			return "forEach(<nil>)"
		}
		return fmt.Sprintf("forEach(%s)", o.Category)
	case OpFilter:
		if o.Predicate.Text != "" {
			return fmt.Sprintf("filter(%q)", o.Predicate.Text)
		}
		return "filter"
	case OpJoin, OpIfExists, OpIfNotExists:
		kinds := make([]string, len(o.Joiners))
		for i, j := range o.Joiners {
			kinds[i] = j.Kind.String()
		}
		s := fmt.Sprintf("%s(%s)", o.Kind, strings.Join(kinds, ","))
		if len(o.Filtering) > 0 {
			s += fmt.Sprintf("+%dfiltering", len(o.Filtering))
		}
		return s
	case OpGroupBy:
		return fmt.Sprintf("groupBy(keys=%d,collectors=%d)", len(o.Keys), len(o.Collectors))
	case OpMap:
		return fmt.Sprintf("map(%d)", len(o.Mappers))
	default:
		return o.Kind.String()
	}
}

// ImpactType is the direction a constraint pushes the score.
type ImpactType uint8

const (
	// Penalize subtracts weight*matchWeight; the match weight must not be negative.
	Penalize ImpactType = iota
	// Reward adds weight*matchWeight; the match weight must not be negative.
	Reward
	// Impact adds weight*matchWeight with a match weight of either sign.
	Impact
)

func (i ImpactType) String() string {
	switch i {
	case Penalize:
		return "penalize"
	case Reward:
		return "reward"
	case Impact:
		return "impact"
	default:
		return fmt.Sprintf("ImpactType(%d)", uint8(i))
	}
}

// ConstraintDef is a named terminal: every live tuple of Source contributes
// Weight*MatchWeight(tuple) to the score, in the direction of Impact.
type ConstraintDef struct {
	Ref         score.ConstraintRef
	Description string
	Weight      score.Score
	Impact      ImpactType
	Source      *Op

	// MatchWeight defaults to 1.
	MatchWeight func(*tuple.Tuple) int64
	// Justify defaults to score.DefaultJustification.
	Justify func(facts []any, impact score.Score) any
	// Indict defaults to the matched facts.
	Indict func(facts []any) []any
}
