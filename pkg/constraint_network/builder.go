package constraint_network

import (
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"sort"

	"github.com/jtomasevic/incscore/pkg/index"
	"github.com/jtomasevic/incscore/pkg/score"
	"github.com/jtomasevic/incscore/pkg/signature"
	"github.com/jtomasevic/incscore/pkg/tuple"
)

// ======================================
// Builder: constraint definitions -> Network
// ======================================
//
// Every op reachable from an enabled constraint is built once. Two ops with
// the same structural signature (kind, parents, parameters and the
// identity of every user function) share one node, so the second
// constraint that says "forEach(Shift).join(Employee)" reuses the first
// one's join and everything above it.
//
// IMPORTANT:
//   - Store slots are reserved while consumers attach. Nothing is inserted
//     before Build returns, so tuple stores never need to grow.
//   - Parents are always built before children; a node's layer is known
//     the moment it is created.

type BuildOption func(*buildConfig)

type buildConfig struct {
	logger  *slog.Logger
	weights map[string]score.Score
}

func WithLogger(l *slog.Logger) BuildOption {
	return func(c *buildConfig) { c.logger = l }
}

// WithWeights overrides the default weight of constraints by id. A zero
// weight disables the constraint.
func WithWeights(w map[string]score.Score) BuildOption {
	return func(c *buildConfig) { c.weights = w }
}

// site is one built op: the node owning its tuples and the fan-out its
// consumers attach to. A filter's site shares the creator of its parent.
type site struct {
	id      int
	canon   string
	arity   int
	creator node
	out     *bridge
}

type builder struct {
	cfg     buildConfig
	acc     *score.Accumulator
	sites   map[*Op]*site
	memo    map[uint64][]*site
	nsites  int
	nodes   []node
	sources []*forEachNode
	shared  int

	constraint string
}

// Build compiles the constraint definitions into a network scoring into acc.
func Build(defs []*ConstraintDef, acc *score.Accumulator, opts ...BuildOption) (*Network, error) {
	cfg := buildConfig{logger: slog.Default()}
	for _, o := range opts {
		o(&cfg)
	}
	if len(defs) == 0 {
		return nil, ErrNoConstraints
	}
	b := &builder{
		cfg:   cfg,
		acc:   acc,
		sites: map[*Op]*site{},
		memo:  map[uint64][]*site{},
	}

	known := make(map[string]bool, len(defs))
	var disabled []string
	for _, def := range defs {
		b.constraint = def.Ref.ID()
		if known[b.constraint] {
			return nil, &BuildError{Constraint: b.constraint, Err: score.ErrDuplicateConstraint}
		}
		known[b.constraint] = true

		weight := def.Weight
		if w, ok := cfg.weights[b.constraint]; ok {
			weight = w
		}
		if err := checkWeight(def, weight, acc.Definition()); err != nil {
			return nil, &BuildError{Constraint: b.constraint, Err: err}
		}
		if weight.IsZero() {
			disabled = append(disabled, b.constraint)
			continue
		}
		if def.Source == nil {
			return nil, &BuildError{Constraint: b.constraint, Err: fmt.Errorf("%w: constraint has no stream", ErrInvalidOperation)}
		}
		s, err := b.build(def.Source)
		if err != nil {
			return nil, err
		}
		idx, err := acc.AddConstraint(def.Ref, weight)
		if err != nil {
			return nil, &BuildError{Constraint: b.constraint, Err: err}
		}
		s.out.attach(newScorer(def, idx, acc, s.creator.base().reserve()))
	}
	for id := range cfg.weights {
		if !known[id] {
			return nil, &BuildError{Constraint: id, Err: fmt.Errorf("%w: weight override for an unknown constraint", ErrInvalidOperation)}
		}
	}

	n := newNetwork(b.nodes, b.sources, acc)
	cfg.logger.Debug("constraint network built",
		"constraints", acc.ConstraintCount(),
		"disabled", disabled,
		"nodes", len(b.nodes),
		"layers", len(n.layers),
		"shared", b.shared,
	)
	return n, nil
}

func checkWeight(def *ConstraintDef, w score.Score, want score.Definition) error {
	if w.Definition() != want {
		return fmt.Errorf("%w: weight %s is %s, session uses %s", score.ErrDefinitionMismatch, w, w.Definition(), want)
	}
	if def.Impact == Impact {
		return nil
	}
	for _, l := range w.Levels() {
		if l < 0 {
			return fmt.Errorf("%w: %s constraint has negative weight %s", ErrInvalidOperation, def.Impact, w)
		}
	}
	return nil
}

func (b *builder) errorf(op *Op, err error) error {
	return &BuildError{Constraint: b.constraint, Op: op.Describe(), Err: err}
}

func (b *builder) build(op *Op) (*site, error) {
	if s, ok := b.sites[op]; ok {
		return s, nil
	}
	if op.Err != nil {
		return nil, b.errorf(op, op.Err)
	}
	parents := make([]*site, len(op.Parents))
	for i, p := range op.Parents {
		if p == nil {
			return nil, b.errorf(op, fmt.Errorf("%w: missing parent", ErrInvalidOperation))
		}
		s, err := b.build(p)
		if err != nil {
			return nil, err
		}
		parents[i] = s
	}
	if err := validate(op, parents); err != nil {
		return nil, b.errorf(op, err)
	}

	w := signature.NewWriter()
	shareable := writeSignature(w, op, parents)
	hash, canon := w.Sum(), w.Canonical()
	if shareable {
		for _, s := range b.memo[hash] {
			if s.canon == canon {
				b.sites[op] = s
				b.shared++
				return s, nil
			}
		}
	}

	s, err := b.instantiate(op, parents)
	if err != nil {
		return nil, b.errorf(op, err)
	}
	s.id = b.nsites
	s.canon = canon
	s.arity = op.Arity
	b.nsites++
	if shareable {
		b.memo[hash] = append(b.memo[hash], s)
	}
	b.sites[op] = s
	return s, nil
}

func validate(op *Op, parents []*site) error {
	for i, p := range parents {
		if i < len(op.Parents) && p.arity != op.Parents[i].Arity {
			return fmt.Errorf("%w: parent %d declares arity %d, built with %d", ErrInvalidOperation, i, op.Parents[i].Arity, p.arity)
		}
	}
	switch op.Kind {
	case OpForEach:
		if op.Category == nil {
			return fmt.Errorf("%w: forEach without a type", ErrInvalidOperation)
		}
		return nil
	case OpFilter:
		if op.Predicate.Fn == nil {
			return fmt.Errorf("%w: filter without a predicate", ErrInvalidOperation)
		}
	case OpJoin, OpIfExists, OpIfNotExists:
		if len(parents) != 2 {
			return fmt.Errorf("%w: %s needs two parents", ErrInvalidOperation, op.Kind)
		}
		if parents[1].arity != 1 {
			return fmt.Errorf("%w: %s right side has arity %d, want 1", ErrInvalidOperation, op.Kind, parents[1].arity)
		}
		if op.Kind == OpJoin && parents[0].arity+1 > tuple.MaxArity {
			return fmt.Errorf("%w: joining arity %d with a uni stream", ErrArityOverflow, parents[0].arity)
		}
		if err := validateJoiners(op.Joiners); err != nil {
			return err
		}
		for i, f := range op.Filtering {
			if f.Fn == nil {
				return fmt.Errorf("%w: filtering %d has no predicate", ErrInvalidJoiner, i)
			}
		}
	case OpGroupBy:
		n := len(op.Keys) + len(op.Collectors)
		if n == 0 {
			return fmt.Errorf("%w: groupBy without keys or collectors", ErrInvalidOperation)
		}
		if n > tuple.MaxArity {
			return fmt.Errorf("%w: groupBy produces %d facts", ErrArityOverflow, n)
		}
		for i, k := range op.Keys {
			if k.Fn == nil {
				return fmt.Errorf("%w: group key %d has no mapping", ErrInvalidOperation, i)
			}
		}
		for i, c := range op.Collectors {
			if c == nil {
				return fmt.Errorf("%w: collector %d is nil", ErrInvalidOperation, i)
			}
			if !c.Removable() {
				return fmt.Errorf("%w: collector %d (%s)", ErrNonRemovableCollector, i, c.Signature())
			}
		}
	case OpMap:
		if len(op.Mappers) == 0 {
			return fmt.Errorf("%w: map without mappings", ErrInvalidOperation)
		}
		if len(op.Mappers) > tuple.MaxArity {
			return fmt.Errorf("%w: map produces %d facts", ErrArityOverflow, len(op.Mappers))
		}
		for i, m := range op.Mappers {
			if m.Fn == nil {
				return fmt.Errorf("%w: mapping %d is nil", ErrInvalidOperation, i)
			}
		}
	case OpFlattenLast:
		if op.Flatten.Fn == nil {
			return fmt.Errorf("%w: flattenLast without a function", ErrInvalidOperation)
		}
	case OpConcat:
		if len(parents) != 2 {
			return fmt.Errorf("%w: concat needs two parents", ErrInvalidOperation)
		}
		if parents[0].arity != parents[1].arity {
			return fmt.Errorf("%w: concat of arity %d and %d", ErrInvalidOperation, parents[0].arity, parents[1].arity)
		}
	case OpDistinct:
	default:
		return fmt.Errorf("%w: unknown op kind %s", ErrInvalidOperation, op.Kind)
	}
	if len(parents) == 0 {
		return fmt.Errorf("%w: %s without a parent", ErrInvalidOperation, op.Kind)
	}
	return nil
}

// writeSignature writes the structural identity of op. It reports false
// when some part has no identity, in which case the op is never shared.
func writeSignature(w *signature.Writer, op *Op, parents []*site) bool {
	shareable := true
	fn := func(id uintptr) {
		if id == 0 {
			shareable = false
		}
		w.Func(id)
	}
	w.Int(int(op.Kind)).Int(op.Arity).Int(len(parents))
	for _, p := range parents {
		w.Int(p.id)
	}
	switch op.Kind {
	case OpForEach:
		w.String(typeName(op.Category))
	case OpFilter:
		if op.Predicate.Text != "" {
			w.String(op.Predicate.Text)
		} else {
			fn(op.Predicate.ID)
		}
	case OpJoin, OpIfExists, OpIfNotExists:
		w.Int(len(op.Joiners))
		for _, j := range op.Joiners {
			w.Int(int(j.Kind))
			fn(j.LeftID)
			fn(j.RightID)
		}
		w.Int(len(op.Filtering))
		for _, f := range op.Filtering {
			fn(f.ID)
		}
	case OpGroupBy:
		w.Int(len(op.Keys))
		for _, k := range op.Keys {
			fn(k.ID)
		}
		w.Int(len(op.Collectors))
		for _, c := range op.Collectors {
			sig := c.Signature()
			if sig == "" {
				shareable = false
			}
			w.String(sig)
		}
	case OpMap:
		w.Int(len(op.Mappers))
		for _, m := range op.Mappers {
			fn(m.ID)
		}
	case OpFlattenLast:
		fn(op.Flatten.ID)
	}
	return shareable
}

func typeName(t reflect.Type) string {
	if t.Name() != "" {
		return t.PkgPath() + "." + t.Name()
	}
	switch t.Kind() {
	case reflect.Pointer:
		return "*" + typeName(t.Elem())
	case reflect.Slice:
		return "[]" + typeName(t.Elem())
	default:
		return t.String()
	}
}

func (b *builder) addNode(n node, kind string, parents ...node) {
	nb := n.base()
	nb.id = len(b.nodes)
	if nb.kind == "" {
		nb.kind = kind
	}
	nb.out = &bridge{}
	nb.queue.owner = nb
	nb.parents = parents
	for _, p := range parents {
		if l := p.base().layer + 1; l > nb.layer {
			nb.layer = l
		}
	}
	b.nodes = append(b.nodes, n)
}

func (b *builder) instantiate(op *Op, parents []*site) (*site, error) {
	switch op.Kind {
	case OpForEach:
		n := newForEachNode(op.Category)
		b.addNode(n, "")
		b.sources = append(b.sources, n)
		return &site{creator: n, out: n.out}, nil

	case OpFilter:
		p := parents[0]
		out := &bridge{}
		p.out.attach(&filterLifecycle{
			name: p.creator.base().name() + " " + op.Describe(),
			test: op.Predicate.Fn,
			slot: p.creator.base().reserve(),
			next: out,
		})
		return &site{creator: p.creator, out: out}, nil

	case OpJoin:
		l, r := parents[0], parents[1]
		ix := compileJoiners(op.Joiners)
		leftIndex, err := index.New[*joinInput](ix.leftLevels)
		if err != nil {
			return nil, errors.Join(ErrInvalidJoiner, err)
		}
		rightIndex, err := index.New[*joinInput](ix.rightLevels)
		if err != nil {
			return nil, errors.Join(ErrInvalidJoiner, err)
		}
		n := &joinNode{
			leftArity:  l.arity,
			leftSlot:   l.creator.base().reserve(),
			rightSlot:  r.creator.base().reserve(),
			indexing:   ix,
			filtering:  op.Filtering,
			leftIndex:  leftIndex,
			rightIndex: rightIndex,
		}
		b.addNode(n, op.Describe(), l.creator, r.creator)
		n.linkSlot = n.reserve()
		l.out.attach(leftInput{n})
		r.out.attach(rightInput{n})
		return &site{creator: n, out: n.out}, nil

	case OpIfExists, OpIfNotExists:
		l, r := parents[0], parents[1]
		ix := compileJoiners(op.Joiners)
		leftIndex, err := index.New[*existsLeft](ix.leftLevels)
		if err != nil {
			return nil, errors.Join(ErrInvalidJoiner, err)
		}
		rightIndex, err := index.New[*existsRight](ix.rightLevels)
		if err != nil {
			return nil, errors.Join(ErrInvalidJoiner, err)
		}
		n := &existsNode{
			shouldExist: op.Kind == OpIfExists,
			leftSlot:    l.creator.base().reserve(),
			rightSlot:   r.creator.base().reserve(),
			indexing:    ix,
			filtering:   op.Filtering,
			leftIndex:   leftIndex,
			rightIndex:  rightIndex,
		}
		b.addNode(n, op.Describe(), l.creator, r.creator)
		l.out.attach(leftInput{n})
		r.out.attach(rightInput{n})
		return &site{creator: n, out: n.out}, nil

	case OpGroupBy, OpDistinct:
		p := parents[0]
		keys, collectors := op.Keys, op.Collectors
		if op.Kind == OpDistinct {
			keys, collectors = distinctKeys(p.arity), nil
		}
		n := newGroupNode(keys, collectors)
		n.inSlot = p.creator.base().reserve()
		b.addNode(n, op.Describe(), p.creator)
		n.groupSlot = n.reserve()
		p.out.attach(singleInput{n.insert, n.update, n.retract})
		return &site{creator: n, out: n.out}, nil

	case OpMap:
		p := parents[0]
		n := &mapNode{inSlot: p.creator.base().reserve(), mappers: op.Mappers}
		b.addNode(n, op.Describe(), p.creator)
		p.out.attach(singleInput{n.insert, n.update, n.retract})
		return &site{creator: n, out: n.out}, nil

	case OpFlattenLast:
		p := parents[0]
		n := &flattenNode{inSlot: p.creator.base().reserve(), flatten: op.Flatten}
		b.addNode(n, op.Describe(), p.creator)
		p.out.attach(singleInput{n.insert, n.update, n.retract})
		return &site{creator: n, out: n.out}, nil

	case OpConcat:
		l, r := parents[0], parents[1]
		n := &concatNode{
			leftSlot:  l.creator.base().reserve(),
			rightSlot: r.creator.base().reserve(),
		}
		b.addNode(n, op.Describe(), l.creator, r.creator)
		l.out.attach(leftInput{n})
		r.out.attach(rightInput{n})
		return &site{creator: n, out: n.out}, nil
	}
	return nil, fmt.Errorf("%w: unknown op kind %s", ErrInvalidOperation, op.Kind)
}

// layered groups nodes by layer, keeping build order inside a layer.
func layered(nodes []node) [][]node {
	sorted := make([]node, len(nodes))
	copy(sorted, nodes)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].base().layer < sorted[j].base().layer
	})
	var layers [][]node
	for _, n := range sorted {
		l := n.base().layer
		for len(layers) <= l {
			layers = append(layers, nil)
		}
		layers[l] = append(layers[l], n)
	}
	return layers
}
