// Package svg turns a layered vector drawing into a depth map and writes
// cross-sections back out as such a drawing.
//
// A layered drawing is a tree of groups. Every group with polygons as
// direct children is one layer; the layers stack from the first in
// document order (lowest) to the last (highest). Polygons filled with the
// target color (white) take the gray level of their layer.
package svg

import (
	"image/color"

	"github.com/go-gl/mathgl/mgl64"
)

// Kind tags the variant held by a Node.
type Kind int

const (
	// Container is the root of a drawing.
	Container Kind = iota
	// Group holds other nodes.
	Group
	// Polygon is a filled shape. Its rings are in drawing units with all
	// transforms applied.
	Polygon
)

func (k Kind) String() string {
	switch k {
	case Container:
		return "container"
	case Group:
		return "group"
	case Polygon:
		return "polygon"
	}
	return "unknown"
}

// Node is one element of a drawing.
type Node struct {
	Kind     Kind
	ID       string
	Children []*Node // Container and Group only

	Rings [][]mgl64.Vec2 // Polygon only
	Fill  color.RGBA     // Polygon only; not premultiplied, zero alpha means unfilled
}

// HasPolygons reports whether any direct child of n is a polygon.
func (n *Node) HasPolygons() bool {
	for _, c := range n.Children {
		if c.Kind == Polygon {
			return true
		}
	}
	return false
}

// Drawing is a parsed vector drawing. Width and Height are in points
// (1/72 inch).
type Drawing struct {
	Width, Height float64
	Root          *Node
}

// Visitor receives the nodes of a tree from Walk. Returning false from
// Container or Group skips that node's children.
type Visitor interface {
	Container(n *Node) bool
	Group(n *Node) bool
	Polygon(n *Node)
}

// Walk visits n and its descendants in document order.
func Walk(n *Node, v Visitor) {
	if n == nil {
		return
	}
	var descend bool
	switch n.Kind {
	case Container:
		descend = v.Container(n)
	case Group:
		descend = v.Group(n)
	case Polygon:
		v.Polygon(n)
	}
	if !descend {
		return
	}
	for _, c := range n.Children {
		Walk(c, v)
	}
}
