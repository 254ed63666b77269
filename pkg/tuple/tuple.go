package tuple

import (
	"fmt"
	"strings"
)

// MaxArity is the largest number of facts a tuple can carry (Quad).
const MaxArity = 4

// State is the lifecycle state of a tuple.
//
// A tuple starts DEAD, becomes CREATING when its origin node creates it and
// queues it, OK once the insert reached every consumer. An update from
// upstream moves it to UPDATING, a retract to DYING (or ABORTING if the
// tuple was never propagated), and it is DEAD again after consumers saw the
// retract.
type State uint8

const (
	Dead State = iota
	Creating
	Ok
	Updating
	Dying
	Aborting
)

func (s State) String() string {
	switch s {
	case Dead:
		return "DEAD"
	case Creating:
		return "CREATING"
	case Ok:
		return "OK"
	case Updating:
		return "UPDATING"
	case Dying:
		return "DYING"
	case Aborting:
		return "ABORTING"
	default:
		return fmt.Sprintf("State(%d)", uint8(s))
	}
}

// IsDirty reports whether a tuple in this state sits in its origin's propagation queue.
func (s State) IsDirty() bool {
	return s == Creating || s == Updating || s == Dying || s == Aborting
}

// IsActive reports whether consumers may still observe the tuple as live.
func (s State) IsActive() bool {
	return s == Creating || s == Ok || s == Updating
}

// Tuple is the unit flowing through the network: 1..4 fact references,
// a per-consumer scratch store and a lifecycle state.
//
// IMPORTANT:
//   - Tuples have identity semantics. Two tuples holding equal facts are
//     different flow instances; never compare them by content.
//   - Only the origin node (the node that created the tuple) may call
//     SetFact / CopyFacts. Every other node treats the tuple as read-only.
//   - Store slot indexes are handed out by the graph builder, one per
//     consumer, and never change afterwards.
type Tuple struct {
	facts [MaxArity]any
	arity uint8
	state State

	// store: size 0..1 lives in slot, larger stores in slots.
	size  uint16
	slot  any
	slots []any
}

// New creates a DEAD tuple with the given facts and store size.
func New(storeSize int, facts ...any) *Tuple {
	if len(facts) == 0 || len(facts) > MaxArity {
		panic(fmt.Sprintf("tuple arity %d out of range [1,%d]", len(facts), MaxArity))
	}
	t := newTuple(storeSize, len(facts))
	copy(t.facts[:], facts)
	return t
}

// NewBlank creates a DEAD tuple of the given arity with nil facts; the
// origin node fills them in.
func NewBlank(arity, storeSize int) *Tuple {
	if arity < 1 || arity > MaxArity {
		panic(fmt.Sprintf("tuple arity %d out of range [1,%d]", arity, MaxArity))
	}
	return newTuple(storeSize, arity)
}

func NewUni(a any, storeSize int) *Tuple {
	t := newTuple(storeSize, 1)
	t.facts[0] = a
	return t
}

func NewBi(a, b any, storeSize int) *Tuple {
	t := newTuple(storeSize, 2)
	t.facts[0], t.facts[1] = a, b
	return t
}

func NewTri(a, b, c any, storeSize int) *Tuple {
	t := newTuple(storeSize, 3)
	t.facts[0], t.facts[1], t.facts[2] = a, b, c
	return t
}

func NewQuad(a, b, c, d any, storeSize int) *Tuple {
	t := newTuple(storeSize, 4)
	t.facts[0], t.facts[1], t.facts[2], t.facts[3] = a, b, c, d
	return t
}

func newTuple(storeSize, arity int) *Tuple {
	t := &Tuple{arity: uint8(arity), size: uint16(storeSize)}
	if storeSize > 1 {
		t.slots = make([]any, storeSize)
	}
	return t
}

func (t *Tuple) Arity() int { return int(t.arity) }

func (t *Tuple) Fact(i int) any {
	if i >= int(t.arity) {
		panic(fmt.Sprintf("fact index %d out of range for arity %d", i, t.arity))
	}
	return t.facts[i]
}

func (t *Tuple) A() any { return t.facts[0] }
func (t *Tuple) B() any { return t.Fact(1) }
func (t *Tuple) C() any { return t.Fact(2) }
func (t *Tuple) D() any { return t.Fact(3) }

// Facts returns a copy of the fact references.
func (t *Tuple) Facts() []any {
	out := make([]any, t.arity)
	copy(out, t.facts[:t.arity])
	return out
}

// SetFact swaps one fact reference. Origin node only.
func (t *Tuple) SetFact(i int, v any) {
	if i >= int(t.arity) {
		panic(fmt.Sprintf("fact index %d out of range for arity %d", i, t.arity))
	}
	t.facts[i] = v
}

// CopyFacts copies all facts of from into t starting at offset. Origin node only.
func (t *Tuple) CopyFacts(from *Tuple, offset int) {
	n := int(from.arity)
	if offset+n > int(t.arity) {
		panic(fmt.Sprintf("copying %d facts at offset %d overflows arity %d", n, offset, t.arity))
	}
	copy(t.facts[offset:offset+n], from.facts[:n])
}

func (t *Tuple) State() State { return t.state }

func (t *Tuple) SetState(s State) { t.state = s }

func (t *Tuple) StoreSize() int { return int(t.size) }

// Get returns the value held in a store slot (nil when empty).
func (t *Tuple) Get(slot int) any {
	if t.slots != nil {
		return t.slots[slot]
	}
	t.checkSlot(slot)
	return t.slot
}

func (t *Tuple) Set(slot int, v any) {
	if t.slots != nil {
		t.slots[slot] = v
		return
	}
	t.checkSlot(slot)
	t.slot = v
}

// Clear empties a store slot and returns what it held.
func (t *Tuple) Clear(slot int) any {
	old := t.Get(slot)
	t.Set(slot, nil)
	return old
}

func (t *Tuple) checkSlot(slot int) {
	if slot != 0 || t.size == 0 {
		panic(fmt.Sprintf("store slot %d out of range for store size %d", slot, t.size))
	}
}

func (t *Tuple) String() string {
	var sb strings.Builder
	switch t.arity {
	case 1:
		sb.WriteString("Uni[")
	case 2:
		sb.WriteString("Bi[")
	case 3:
		sb.WriteString("Tri[")
	default:
		sb.WriteString("Quad[")
	}
	for i := 0; i < int(t.arity); i++ {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%v", t.facts[i])
	}
	sb.WriteString("]@")
	sb.WriteString(t.state.String())
	return sb.String()
}
