// Package bktree implements a Burkhard-Keller tree: a metric-space index that
// answers "everything within distance r of q" without scanning every value.
//
// Nodes live in a single arena slice and reference their children by index.
// Each node keeps its children sorted by their exact distance from the node,
// so a radius search can binary search the admissible band [d-r, d+r] instead
// of visiting every child. Traversal uses an explicit stack, which keeps very
// deep trees (long chains of near-identical names) off the goroutine stack.
//
// A Tree is built by a single writer and afterwards only read. Search does not
// mutate anything and may be called from any number of goroutines once the
// last Insert has returned.
package bktree

import (
	"errors"
	"fmt"
	"sort"
)

// ErrInvalidRadius is returned by Search for a negative radius.
var ErrInvalidRadius = errors.New("bktree: radius must be non-negative")

const noNode int32 = -1

type edge struct {
	dist  int32
	child int32
}

type node[T any] struct {
	value    T
	children []edge // sorted by dist
}

// Match is a value found by Search together with its distance to the query.
type Match[T any] struct {
	Distance int
	Value    T
}

// Tree is a BK-tree over values of type T.
type Tree[T any] struct {
	metric   Metric[T]
	nodes    []node[T]
	root     int32
	maxDepth int
}

// New returns an empty tree ordered by metric.
func New[T any](metric Metric[T]) *Tree[T] {
	return &Tree[T]{metric: metric, root: noNode}
}

// Len returns the number of values stored, duplicates included.
func (t *Tree[T]) Len() int {
	return len(t.nodes)
}

// Depth returns the length of the longest root-to-leaf path (0 for an empty
// tree, 1 for a lone root).
func (t *Tree[T]) Depth() int {
	return t.maxDepth
}

// Insert adds value to the tree. It reports whether an existing value was at
// distance 0 from it; such duplicates are kept, chained under the distance-0
// key, so every inserted value remains retrievable.
//
// Insert must not run concurrently with Insert or Search.
func (t *Tree[T]) Insert(value T) (duplicate bool) {
	idx := int32(len(t.nodes))
	t.nodes = append(t.nodes, node[T]{value: value})

	if t.root == noNode {
		t.root = idx
		t.maxDepth = 1
		return false
	}

	cur := t.root
	depth := 1
	for {
		d := t.metric(t.nodes[cur].value, value)
		if d == 0 {
			duplicate = true
		}

		children := t.nodes[cur].children
		i := sort.Search(len(children), func(i int) bool { return int(children[i].dist) >= d })
		if i < len(children) && int(children[i].dist) == d {
			cur = children[i].child
			depth++
			continue
		}

		children = append(children, edge{})
		copy(children[i+1:], children[i:])
		children[i] = edge{dist: int32(d), child: idx}
		t.nodes[cur].children = children

		if depth+1 > t.maxDepth {
			t.maxDepth = depth + 1
		}
		return duplicate
	}
}

// Search returns every value within radius of query, in no particular order.
// An empty tree yields an empty result.
func (t *Tree[T]) Search(query T, radius int) ([]Match[T], error) {
	if radius < 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidRadius, radius)
	}
	if t.root == noNode {
		return nil, nil
	}

	var out []Match[T]
	stack := []int32{t.root}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		n := &t.nodes[cur]
		d := t.metric(n.value, query)
		if d <= radius {
			out = append(out, Match[T]{Distance: d, Value: n.value})
		}

		// Triangle inequality: only children keyed in [d-radius, d+radius]
		// can hold values within radius of query.
		lo, hi := d-radius, d+radius
		children := n.children
		i := sort.Search(len(children), func(i int) bool { return int(children[i].dist) >= lo })
		for ; i < len(children) && int(children[i].dist) <= hi; i++ {
			stack = append(stack, children[i].child)
		}
	}
	return out, nil
}

// Walk calls fn for every stored value in insertion order until fn returns
// false.
func (t *Tree[T]) Walk(fn func(T) bool) {
	for i := range t.nodes {
		if !fn(t.nodes[i].value) {
			return
		}
	}
}

// SortMatches orders matches by ascending distance, keeping the relative
// order of equal distances.
func SortMatches[T any](ms []Match[T]) {
	sort.SliceStable(ms, func(i, j int) bool { return ms[i].Distance < ms[j].Distance })
}
