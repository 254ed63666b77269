// Package session is the entry point for scoring: a Factory compiles the
// constraints once, and each Session holds one independent network that keeps
// the score of its facts up to date as they are inserted, changed and
// retracted.
//
// IMPORTANT:
//   - A Session is not safe for concurrent use. Give every goroutine its own
//     session from the same Factory.
//   - Facts are mutated by the caller, then announced with Update. A fact
//     changed without Update leaves the score stale.
//   - After an internal error the session is broken: every later operation
//     returns ErrSessionBroken.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	cn "github.com/jtomasevic/incscore/pkg/constraint_network"
	"github.com/jtomasevic/incscore/pkg/index"
	"github.com/jtomasevic/incscore/pkg/score"
)

var ErrSessionBroken = errors.New("session is broken")

// ConstraintDiff is one constraint whose incremental score differs from a
// full rebuild.
type ConstraintDiff struct {
	Constraint string
	Expected   score.Score
	Actual     score.Score
}

// ScoreCorruptionError reports an incremental score that does not match the
// score of the same facts evaluated from scratch.
type ScoreCorruptionError struct {
	Expected score.Score
	Actual   score.Score
	Diffs    []ConstraintDiff
}

func (e *ScoreCorruptionError) Error() string {
	msg := fmt.Sprintf("score corruption: incremental %s, expected %s", e.Actual, e.Expected)
	for _, d := range e.Diffs {
		msg += fmt.Sprintf("; %s: %s != %s", d.Constraint, d.Actual, d.Expected)
	}
	return msg
}

// ConstraintProvider declares the constraints of a problem.
type ConstraintProvider func() []*cn.ConstraintDef

// Factory holds compiled constraint definitions and creates sessions.
// It is safe for concurrent use.
type Factory struct {
	def     score.Definition
	defs    []*cn.ConstraintDef
	opts    options
	weights map[string]score.Score
}

// NewFactory declares the constraints and checks them by building one
// network, so configuration errors surface here and not per session.
func NewFactory(def score.Definition, provider ConstraintProvider, opts ...Option) (*Factory, error) {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	if !def.IsValid() {
		return nil, fmt.Errorf("%w: invalid score definition", cn.ErrInvalidOperation)
	}

	weights := map[string]score.Score{}
	if o.config != nil {
		parsed, err := o.config.ParsedWeights(def)
		if err != nil {
			return nil, err
		}
		for id, w := range parsed {
			weights[id] = w
		}
	}
	for id, w := range o.weights {
		weights[id] = w
	}

	f := &Factory{def: def, defs: provider(), opts: o, weights: weights}
	if _, err := f.build(score.NewAccumulator(def, false), o.logger); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *Factory) build(acc *score.Accumulator, logger *slog.Logger) (*cn.Network, error) {
	return cn.Build(f.defs, acc, cn.WithLogger(logger), cn.WithWeights(f.weights))
}

func (f *Factory) Definition() score.Definition { return f.def }

// NewSession builds a fresh network with no facts.
func (f *Factory) NewSession() (*Session, error) {
	id := uuid.New()
	logger := f.opts.logger.With("session", id.String())
	acc := score.NewAccumulator(f.def, f.opts.trackMatches)
	n, err := f.build(acc, logger)
	if err != nil {
		return nil, err
	}
	return &Session{
		id:      id,
		factory: f,
		network: n,
		acc:     acc,
		facts:   map[any]*index.Element[any]{},
		logger:  logger,
	}, nil
}

// Session scores one working set of facts.
type Session struct {
	id      uuid.UUID
	factory *Factory
	network *cn.Network
	acc     *score.Accumulator
	order   index.List[any]
	facts   map[any]*index.Element[any]
	logger  *slog.Logger
	broken  error
}

func (s *Session) ID() uuid.UUID { return s.id }

// Broken returns the error that broke the session, nil while it is usable.
func (s *Session) Broken() error { return s.broken }

// ======================================
// Fact operations
// ======================================

func (s *Session) Insert(fact any) error {
	return s.apply("insert", func() error {
		if err := checkFact(fact); err != nil {
			return err
		}
		if _, ok := s.facts[fact]; ok {
			return fmt.Errorf("%w: %v", cn.ErrFactAlreadyInserted, fact)
		}
		if err := s.network.Insert(fact); err != nil {
			return err
		}
		s.facts[fact] = s.order.Add(fact)
		return nil
	})
}

// Update announces that fact was mutated in place.
func (s *Session) Update(fact any) error {
	return s.apply("update", func() error {
		if err := s.known(fact); err != nil {
			return err
		}
		return s.network.Update(fact)
	})
}

// Replace swaps old for fact. Tuples derived from old are kept and
// re-evaluated, which is cheaper than Retract plus Insert.
func (s *Session) Replace(old, fact any) error {
	return s.apply("replace", func() error {
		if err := s.known(old); err != nil {
			return err
		}
		if err := checkFact(fact); err != nil {
			return err
		}
		if _, ok := s.facts[fact]; ok && old != fact {
			return fmt.Errorf("%w: %v", cn.ErrFactAlreadyInserted, fact)
		}
		if err := s.network.Replace(old, fact); err != nil {
			return err
		}
		e := s.facts[old]
		delete(s.facts, old)
		e.Value = fact
		s.facts[fact] = e
		return nil
	})
}

func (s *Session) Retract(fact any) error {
	return s.apply("retract", func() error {
		if err := s.known(fact); err != nil {
			return err
		}
		if err := s.network.Retract(fact); err != nil {
			return err
		}
		s.order.Remove(s.facts[fact])
		delete(s.facts, fact)
		return nil
	})
}

// checkFact rejects facts that cannot be tracked: nil and non-comparable values.
func checkFact(fact any) error {
	if fact == nil {
		return fmt.Errorf("%w: nil fact", cn.ErrInvalidOperation)
	}
	if t := reflect.TypeOf(fact); !t.Comparable() {
		return fmt.Errorf("%w: fact of type %s is not comparable", cn.ErrInvalidOperation, t)
	}
	return nil
}

func (s *Session) known(fact any) error {
	if err := checkFact(fact); err != nil {
		return err
	}
	if _, ok := s.facts[fact]; !ok {
		return fmt.Errorf("%w: %v", cn.ErrFactNotFound, fact)
	}
	return nil
}

// apply runs one operation. Rejected operations (unknown fact, duplicate,
// invalid argument) leave the session intact; internal errors break it.
func (s *Session) apply(op string, fn func() error) (err error) {
	if s.broken != nil {
		return fmt.Errorf("%w: %w", ErrSessionBroken, s.broken)
	}
	start := time.Now()
	defer func() {
		if !s.factory.opts.metrics {
			return
		}
		operationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
		operationsTotal.WithLabelValues(op, outcome(err, s.broken)).Inc()
	}()

	if err := fn(); err != nil {
		if errors.Is(err, cn.ErrConsistency) || errors.Is(err, cn.ErrUnexpectedPanic) {
			s.breakWith(op, err)
		}
		return err
	}
	if s.factory.opts.assert {
		if err := s.Verify(context.Background()); err != nil {
			return err
		}
	}
	return nil
}

func outcome(err, broken error) string {
	switch {
	case err == nil:
		return "ok"
	case broken != nil:
		return "broken"
	default:
		return "rejected"
	}
}

func (s *Session) breakWith(op string, err error) {
	s.broken = err
	s.logger.Error("session broken", "op", op, "error", err)
	if s.factory.opts.metrics {
		sessionsBroken.Inc()
	}
}

// ======================================
// Score and explanation
// ======================================

func (s *Session) Score() score.Score { return s.acc.Score() }

// Facts returns the inserted facts in insertion order.
func (s *Session) Facts() []any { return s.order.Values() }

func (s *Session) ConstraintMatchTotals() []score.ConstraintMatchTotal { return s.acc.Totals() }

// Indictments needs WithConstraintMatches.
func (s *Session) Indictments() ([]score.Indictment, error) { return s.acc.Indictments() }

func (s *Session) Explain() (score.Explanation, error) { return score.Explain(s.acc) }

// Verify rebuilds the network from scratch with the current facts and
// compares the scores, constraint by constraint. A mismatch breaks the
// session and returns a *ScoreCorruptionError.
func (s *Session) Verify(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "session.Verify")
	defer span.End()
	span.SetAttributes(
		attribute.String("session", s.id.String()),
		attribute.Int("facts", len(s.facts)),
	)
	if s.broken != nil {
		return fmt.Errorf("%w: %w", ErrSessionBroken, s.broken)
	}

	acc := score.NewAccumulator(s.factory.def, false)
	fresh, err := s.factory.build(acc, s.logger)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "rebuild failed")
		return err
	}
	for _, f := range s.order.Values() {
		if err := ctx.Err(); err != nil {
			span.SetStatus(codes.Error, "context canceled")
			return err
		}
		if err := fresh.Insert(f); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "rebuild failed")
			return fmt.Errorf("verify: %w", err)
		}
	}

	corruption := compare(acc, s.acc)
	if corruption == nil {
		if s.factory.opts.metrics {
			verificationsTotal.WithLabelValues("ok").Inc()
		}
		span.SetStatus(codes.Ok, "score verified")
		return nil
	}
	if s.factory.opts.metrics {
		verificationsTotal.WithLabelValues("corrupted").Inc()
	}
	span.RecordError(corruption)
	span.SetStatus(codes.Error, "score corruption")
	s.breakWith("verify", corruption)
	return corruption
}

func compare(expected, actual *score.Accumulator) *ScoreCorruptionError {
	var diffs []ConstraintDiff
	want, got := expected.Totals(), actual.Totals()
	for i := range want {
		if want[i].Score != got[i].Score {
			diffs = append(diffs, ConstraintDiff{
				Constraint: want[i].Constraint.ID(),
				Expected:   want[i].Score,
				Actual:     got[i].Score,
			})
		}
	}
	if len(diffs) == 0 && expected.Score() == actual.Score() {
		return nil
	}
	return &ScoreCorruptionError{Expected: expected.Score(), Actual: actual.Score(), Diffs: diffs}
}

// ======================================
// Statistics
// ======================================

type Stats struct {
	Facts  int
	Nodes  int
	Layers int
	// PerNode is ordered by node id.
	PerNode []cn.NodeStats
}

func (s *Session) Stats() Stats {
	return Stats{
		Facts:   len(s.facts),
		Nodes:   s.network.NodeCount(),
		Layers:  s.network.LayerCount(),
		PerNode: s.network.NodeStats(),
	}
}

// Network renders the layered node graph of this session.
func (s *Session) Network() string { return s.network.String() }
