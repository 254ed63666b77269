package stream

import (
	"fmt"

	"github.com/jtomasevic/incscore/pkg/collect"
	cn "github.com/jtomasevic/incscore/pkg/constraint_network"
	"github.com/jtomasevic/incscore/pkg/signature"
	"github.com/jtomasevic/incscore/pkg/tuple"
)

// collector adapts a typed collector to whole tuples: value extracts the
// collected element from each tuple.
type collector[V, R any] struct {
	c       collect.Collector[V, R]
	value   func(*tuple.Tuple) V
	valueID uintptr
}

func (c collector[V, R]) NewContainer() cn.Container {
	return container[V, R]{inner: c.c.NewContainer(), value: c.value}
}

func (c collector[V, R]) Removable() bool { return c.c.Removable() }

func (c collector[V, R]) Signature() string {
	sig := c.c.Signature()
	if sig == "" || c.valueID == 0 {
		return ""
	}
	return fmt.Sprintf("%s@%x", sig, c.valueID)
}

type container[V, R any] struct {
	inner collect.Container[V, R]
	value func(*tuple.Tuple) V
}

func (c container[V, R]) Add(t *tuple.Tuple) func() { return c.inner.Add(c.value(t)) }
func (c container[V, R]) Result() any               { return c.inner.Result() }

// factID identifies "the first fact itself" as collected value.
var factID = cn.FactMapping(0).ID

func uniCollector[A, R any](c collect.Collector[A, R]) cn.Collector {
	return collector[A, R]{c: c, value: uni[A], valueID: factID}
}

func biCollector[A, B, V, R any](value func(A, B) V, c collect.Collector[V, R]) cn.Collector {
	return collector[V, R]{
		c:       c,
		value:   func(t *tuple.Tuple) V { return value(bi[A, B](t)) },
		valueID: signature.FuncID(value),
	}
}

func triCollector[A, B, C, V, R any](value func(A, B, C) V, c collect.Collector[V, R]) cn.Collector {
	return collector[V, R]{
		c:       c,
		value:   func(t *tuple.Tuple) V { return value(tri[A, B, C](t)) },
		valueID: signature.FuncID(value),
	}
}

func uniKeyMapping[A, K any](key func(A) K) cn.Mapping {
	return mapping(signature.FuncID(key), func(t *tuple.Tuple) K { return key(uni[A](t)) })
}

// ======================================
// Uni grouping
// ======================================

// GroupBy streams each distinct key of s once, for as long as at least one
// fact maps to it.
func GroupBy[A any, K comparable](s Uni[A], key func(A) K) Uni[K] {
	return Uni[K]{op: cn.GroupBy(s.op, []cn.Mapping{uniKeyMapping(key)}, nil)}
}

func GroupBy2[A any, K1, K2 comparable](s Uni[A], key1 func(A) K1, key2 func(A) K2) Bi[K1, K2] {
	return Bi[K1, K2]{op: cn.GroupBy(s.op, []cn.Mapping{uniKeyMapping(key1), uniKeyMapping(key2)}, nil)}
}

// GroupByCollect streams (key, result) for every key, where result is the
// collector applied to the facts with that key.
func GroupByCollect[A any, K comparable, R any](s Uni[A], key func(A) K, c collect.Collector[A, R]) Bi[K, R] {
	return Bi[K, R]{op: cn.GroupBy(s.op,
		[]cn.Mapping{uniKeyMapping(key)},
		[]cn.Collector{uniCollector(c)})}
}

func GroupByCollect2[A any, K comparable, R1, R2 any](s Uni[A], key func(A) K, c1 collect.Collector[A, R1], c2 collect.Collector[A, R2]) Tri[K, R1, R2] {
	return Tri[K, R1, R2]{op: cn.GroupBy(s.op,
		[]cn.Mapping{uniKeyMapping(key)},
		[]cn.Collector{uniCollector(c1), uniCollector(c2)})}
}

func GroupBy2Collect[A any, K1, K2 comparable, R any](s Uni[A], key1 func(A) K1, key2 func(A) K2, c collect.Collector[A, R]) Tri[K1, K2, R] {
	return Tri[K1, K2, R]{op: cn.GroupBy(s.op,
		[]cn.Mapping{uniKeyMapping(key1), uniKeyMapping(key2)},
		[]cn.Collector{uniCollector(c)})}
}

// Collect streams a single tuple holding the collector result over every
// fact of s. The tuple exists only while s is not empty.
func Collect[A, R any](s Uni[A], c collect.Collector[A, R]) Uni[R] {
	return Uni[R]{op: cn.GroupBy(s.op, nil, []cn.Collector{uniCollector(c)})}
}

func Collect2[A, R1, R2 any](s Uni[A], c1 collect.Collector[A, R1], c2 collect.Collector[A, R2]) Bi[R1, R2] {
	return Bi[R1, R2]{op: cn.GroupBy(s.op, nil, []cn.Collector{uniCollector(c1), uniCollector(c2)})}
}

// ======================================
// Bi / Tri grouping
// ======================================

func GroupByBi[A, B any, K comparable](s Bi[A, B], key func(A, B) K) Uni[K] {
	return Uni[K]{op: cn.GroupBy(s.op, []cn.Mapping{biKeyMapping(key)}, nil)}
}

// GroupByCollectBi groups pairs by key and collects value(a, b) per group.
func GroupByCollectBi[A, B any, K comparable, V, R any](s Bi[A, B], key func(A, B) K, value func(A, B) V, c collect.Collector[V, R]) Bi[K, R] {
	return Bi[K, R]{op: cn.GroupBy(s.op,
		[]cn.Mapping{biKeyMapping(key)},
		[]cn.Collector{biCollector(value, c)})}
}

func CollectBi[A, B, V, R any](s Bi[A, B], value func(A, B) V, c collect.Collector[V, R]) Uni[R] {
	return Uni[R]{op: cn.GroupBy(s.op, nil, []cn.Collector{biCollector(value, c)})}
}

func GroupByCollectTri[A, B, C any, K comparable, V, R any](s Tri[A, B, C], key func(A, B, C) K, value func(A, B, C) V, c collect.Collector[V, R]) Bi[K, R] {
	return Bi[K, R]{op: cn.GroupBy(s.op,
		[]cn.Mapping{mapping(signature.FuncID(key), func(t *tuple.Tuple) K { return key(tri[A, B, C](t)) })},
		[]cn.Collector{triCollector(value, c)})}
}

func CollectTri[A, B, C, V, R any](s Tri[A, B, C], value func(A, B, C) V, c collect.Collector[V, R]) Uni[R] {
	return Uni[R]{op: cn.GroupBy(s.op, nil, []cn.Collector{triCollector(value, c)})}
}

func biKeyMapping[A, B, K any](key func(A, B) K) cn.Mapping {
	return mapping(signature.FuncID(key), func(t *tuple.Tuple) K { return key(bi[A, B](t)) })
}
