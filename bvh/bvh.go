// Package bvh accelerates nearest-hit queries over a fixed set of Hittables
// with a bounding volume hierarchy.
package bvh

import (
	"math/rand"
	"sort"

	"row-major.net/harpoon/aabox"
	"row-major.net/harpoon/hit"
	"row-major.net/harpoon/ray"
	"row-major.net/harpoon/vmath/vec3"
)

// Node is either a leaf holding exactly one object, or an interior node that
// owns exactly two children.  Bounds covers everything below the node.
type Node struct {
	Bounds aabox.AABox

	Object hit.Hittable

	LoChild *Node
	HiChild *Node
}

func (n *Node) IsLeaf() bool {
	return n.LoChild == nil && n.HiChild == nil
}

type element struct {
	object   hit.Hittable
	bounds   aabox.AABox
	centroid vec3.T
}

// Tree is immutable once built and safe for concurrent queries.
type Tree struct {
	Root *Node

	time0, time1 float64
}

// Build constructs a hierarchy over objects, with bounds covering the shutter
// interval [time0, time1].  The objects slice is not modified.
//
// Each level sorts its objects by bounding box centroid along the axis where
// the centroids are most spread out, and splits at the median index.
func Build(objects []hit.Hittable, time0, time1 float64) *Tree {
	tree := &Tree{time0: time0, time1: time1}
	if len(objects) == 0 {
		return tree
	}

	elements := make([]element, 0, len(objects))
	for _, o := range objects {
		b := o.Bounds(time0, time1)
		elements = append(elements, element{
			object:   o,
			bounds:   b,
			centroid: b.Centroid(),
		})
	}

	tree.Root = build(elements)
	return tree
}

func build(elements []element) *Node {
	if len(elements) == 1 {
		return &Node{
			Bounds: elements[0].bounds,
			Object: elements[0].object,
		}
	}

	bounds := aabox.AccumZeroAABox()
	centroids := aabox.AccumZeroAABox()
	for _, e := range elements {
		bounds = aabox.MinContainingAABox(bounds, e.bounds)
		centroids = aabox.GrowAABoxToPoint(centroids, e.centroid)
	}

	if len(elements) > 2 {
		axis := centroids.LongestAxis()
		sort.SliceStable(elements, func(i, j int) bool {
			return elements[i].centroid[axis] < elements[j].centroid[axis]
		})
	}

	mid := len(elements) / 2
	return &Node{
		Bounds:  bounds,
		LoChild: build(elements[:mid]),
		HiChild: build(elements[mid:]),
	}
}

func (t *Tree) Bounds(time0, time1 float64) aabox.AABox {
	if t.Root == nil {
		return aabox.AccumZeroAABox()
	}
	return t.Root.Bounds
}

// RayHit returns the nearest hit inside span.
//
// Both children of every node whose box is touched get visited; each hit found
// shrinks span.Hi, so later candidates can only replace it with a nearer one.
func (t *Tree) RayHit(r ray.Ray, span ray.Span, rng *rand.Rand) (hit.Record, bool) {
	closest := hit.Record{}
	found := false
	if t.Root == nil {
		return closest, false
	}

	slabs := aabox.NewSlabTester(r)

	workStack := make([]*Node, 0, 64)
	workStack = append(workStack, t.Root)
	for len(workStack) != 0 {
		cur := workStack[len(workStack)-1]
		workStack = workStack[:len(workStack)-1]

		if slabs.Test(cur.Bounds, span).IsNaN() {
			continue
		}

		if cur.IsLeaf() {
			if rec, ok := cur.Object.RayHit(r, span, rng); ok {
				span.Hi = rec.T
				closest = rec
				found = true
			}
			continue
		}

		workStack = append(workStack, cur.HiChild, cur.LoChild)
	}

	return closest, found
}

// Size is the number of leaves.
func (t *Tree) Size() int {
	return count(t.Root)
}

func count(n *Node) int {
	if n == nil {
		return 0
	}
	if n.IsLeaf() {
		return 1
	}
	return count(n.LoChild) + count(n.HiChild)
}

// Depth is the number of nodes on the longest root-to-leaf path.
func (t *Tree) Depth() int {
	return depth(t.Root)
}

func depth(n *Node) int {
	if n == nil {
		return 0
	}
	lo, hi := depth(n.LoChild), depth(n.HiChild)
	if lo > hi {
		return lo + 1
	}
	return hi + 1
}

func (t *Tree) Materials() []hit.Material {
	var ms []hit.Material
	stack := []*Node{}
	if t.Root != nil {
		stack = append(stack, t.Root)
	}
	for len(stack) != 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n.IsLeaf() {
			ms = append(ms, hit.Materials(n.Object)...)
			continue
		}
		stack = append(stack, n.LoChild, n.HiChild)
	}
	return ms
}
