// Copyright © 2024 OpenIM. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package fetch

// planNode is the type-erased plan tree: a tagged union (one Go type per
// leaf, plus bindNode for sequencing) interpreted by pattern match in
// interpreter.go. There is deliberately no higher-kinded or monadic
// encoding here — Plan[A] below is just a thin, type-checked handle
// around a planNode.
type planNode interface {
	isPlanNode()
}

type pureNode struct{ value any }

// inlinedNode marks a value already known from a prior cache lookup. It
// behaves exactly like pureNode during interpretation but is a distinct
// type so the dependency extractor and simplifier can tell "always pure"
// apart from "resolved by this rewrite".
type inlinedNode struct{ value any }

type errorNode struct{ err error }

type fetchOneNode struct {
	source erasedSource
	id     any
}

type fetchManyNode struct {
	source erasedSource
	ids    []any
}

// concurrentNode dispatches every batch against its source in one round and
// yields the resulting Environment.
type concurrentNode struct {
	batches []fetchManyNode
}

// joinNode is the sole source of concurrency: its two branches are resolved
// together by the interpreter's join algorithm (interpreter.go), not by
// naively sequencing left then right.
type joinNode struct {
	left, right planNode
}

// bindNode sequences prev, then feeds its value to k to obtain the next
// plan. Map and FlatMap are both expressed as bindNode.
type bindNode struct {
	prev planNode
	k    func(any) planNode
}

func (pureNode) isPlanNode()       {}
func (inlinedNode) isPlanNode()    {}
func (errorNode) isPlanNode()      {}
func (fetchOneNode) isPlanNode()   {}
func (fetchManyNode) isPlanNode()  {}
func (concurrentNode) isPlanNode() {}
func (joinNode) isPlanNode()       {}
func (bindNode) isPlanNode()       {}

// Plan is a pure, composable description of a fetch computation yielding a
// value of type A. Plans are built and consumed within a single Run call;
// they are not meant to be shared across runs.
type Plan[A any] struct {
	node planNode
}

// Pure lifts a, with no fetch, into a Plan.
func Pure[A any](a A) Plan[A] {
	return Plan[A]{node: pureNode{value: a}}
}

// Error builds a Plan that fails the run with err as soon as it is reached.
func Error[A any](err error) Plan[A] {
	return Plan[A]{node: errorNode{err: err}}
}

// One fetches a single identity from source ds.
func One[I comparable, A any](id I, ds DataSource[I, A]) Plan[A] {
	return Plan[A]{node: fetchOneNode{source: eraseSource(ds), id: id}}
}

// Map transforms a Plan's eventual value.
func Map[A, B any](p Plan[A], f func(A) B) Plan[B] {
	return Plan[B]{node: bindNode{
		prev: p.node,
		k: func(v any) planNode {
			return pureNode{value: f(v.(A))}
		},
	}}
}

// FlatMap sequences p into a plan built from p's value.
func FlatMap[A, B any](p Plan[A], f func(A) Plan[B]) Plan[B] {
	return Plan[B]{node: bindNode{
		prev: p.node,
		k: func(v any) planNode {
			return f(v.(A)).node
		},
	}}
}

// Pair is the result of Join.
type Pair[A, B any] struct {
	First  A
	Second B
}

type pair struct{ left, right any }

// Join is the sole source of concurrency in the plan algebra: fa and fb are
// resolved together, batching any independent fetches they each still need
// against the same source into one round (see interpreter.go's join
// handling).
func Join[A, B any](fa Plan[A], fb Plan[B]) Plan[Pair[A, B]] {
	jn := joinNode{left: fa.node, right: fb.node}
	return Plan[Pair[A, B]]{node: bindNode{
		prev: jn,
		k: func(v any) planNode {
			p := v.(pair)
			return pureNode{value: Pair[A, B]{First: p.left.(A), Second: p.right.(B)}}
		},
	}}
}

// Map2 is Join(fa, fb).Map(f): the canonical two-source combinator.
func Map2[A, B, C any](f func(A, B) C, fa Plan[A], fb Plan[B]) Plan[C] {
	return Map(Join(fa, fb), func(p Pair[A, B]) C {
		return f(p.First, p.Second)
	})
}

// Collect resolves every plan in plans, preserving order, as a left-fold of
// pairwise Join: n independent fetches against the same source resolve in
// one concurrent round rather than n sequential ones.
func Collect[A any](plans []Plan[A]) Plan[[]A] {
	if len(plans) == 0 {
		return Pure[[]A](nil)
	}
	acc := Map(plans[0], func(a A) []A { return []A{a} })
	for _, p := range plans[1:] {
		acc = Map2(func(xs []A, a A) []A { return append(xs, a) }, acc, p)
	}
	return acc
}

// Traverse maps f over items and Collects the results.
func Traverse[T, A any](items []T, f func(T) Plan[A]) Plan[[]A] {
	plans := make([]Plan[A], len(items))
	for i, t := range items {
		plans[i] = f(t)
	}
	return Collect(plans)
}
