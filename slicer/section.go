package slicer

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/gmlewis/depthmap/mesh"
)

// Loop is a closed polygon in the XY plane. The last point connects back
// to the first and is not repeated. Outer boundaries run counter-clockwise
// and holes run clockwise when viewed from +Z.
type Loop []mgl64.Vec2

// Area returns the signed area of the loop (positive when counter-clockwise).
func (l Loop) Area() float64 {
	var sum float64
	for i, p := range l {
		q := l[(i+1)%len(l)]
		sum += p.X()*q.Y() - q.X()*p.Y()
	}
	return sum / 2
}

// CrossSection is the intersection of a mesh with the plane at height Z.
type CrossSection struct {
	Z     float64
	Loops []Loop
}

// Empty reports whether the plane missed the mesh.
func (cs *CrossSection) Empty() bool {
	return cs == nil || len(cs.Loops) == 0
}

// Area returns the net filled area of the section.
func (cs *CrossSection) Area() float64 {
	if cs == nil {
		return 0
	}
	var sum float64
	for _, l := range cs.Loops {
		sum += l.Area()
	}
	return sum
}

// Bounds returns the XY bounding box of all loops.
func (cs *CrossSection) Bounds() (min, max mgl64.Vec2) {
	min = mgl64.Vec2{math.Inf(1), math.Inf(1)}
	max = mgl64.Vec2{math.Inf(-1), math.Inf(-1)}
	if cs == nil {
		return min, max
	}
	for _, l := range cs.Loops {
		for _, p := range l {
			min = mgl64.Vec2{math.Min(min[0], p[0]), math.Min(min[1], p[1])}
			max = mgl64.Vec2{math.Max(max[0], p[0]), math.Max(max[1], p[1])}
		}
	}
	return min, max
}

// edge is a mesh edge keyed by its vertex indices, lower index first.
type edge struct {
	a, b int
}

func newEdge(i, j int) edge {
	if i > j {
		i, j = j, i
	}
	return edge{a: i, b: j}
}

// segment is a directed piece of a cross-section boundary, running from
// the crossing on edge p to the crossing on edge q with the solid on its
// left.
type segment struct {
	p, q edge
}

// Section intersects m with the horizontal plane at height z.
//
// A vertex is above the plane when its Z is strictly greater than z, so a
// plane through a vertex or a horizontal face still yields a consistent
// boundary. Segments are chained through the mesh edges they cross rather
// than by their coordinates, so rounding in the vertices and zero-area
// faces cannot split a loop.
func Section(m *mesh.Mesh, z float64) *CrossSection {
	var segs []segment
	for _, f := range m.Faces {
		if s, ok := faceSegment(m, f, z); ok {
			segs = append(segs, s)
		}
	}

	points := make(map[edge]mgl64.Vec2, 2*len(segs))
	at := func(e edge) mgl64.Vec2 {
		if p, ok := points[e]; ok {
			return p
		}
		p := crossing(m.Vertices[e.a], m.Vertices[e.b], z)
		points[e] = p
		return p
	}
	return &CrossSection{Z: z, Loops: assemble(segs, at)}
}

// faceSegment returns the directed segment where face f crosses the
// plane. Walking the face's corners in order, the boundary runs from the
// edge that goes down through the plane to the edge that comes back up,
// which keeps the solid on the left for an outward-facing triangle.
func faceSegment(m *mesh.Mesh, f [3]int, z float64) (segment, bool) {
	var down, up edge
	var haveDown, haveUp bool
	for i := 0; i < 3; i++ {
		a, b := f[i], f[(i+1)%3]
		aAbove, bAbove := m.Vertices[a].Z() > z, m.Vertices[b].Z() > z
		switch {
		case aAbove && !bAbove:
			down, haveDown = newEdge(a, b), true
		case !aAbove && bAbove:
			up, haveUp = newEdge(a, b), true
		}
	}
	if !haveDown || !haveUp || down == up {
		return segment{}, false // missed, or a face collapsed onto one edge
	}
	return segment{p: down, q: up}, true
}

// crossing interpolates the point at height z on the edge from a to b,
// always from the lower end so both faces sharing the edge agree.
func crossing(a, b mgl64.Vec3, z float64) mgl64.Vec2 {
	if a.Z() > b.Z() {
		a, b = b, a
	}
	t := (z - a.Z()) / (b.Z() - a.Z())
	return mgl64.Vec2{a.X() + t*(b.X()-a.X()), a.Y() + t*(b.Y()-a.Y())}
}

// assemble chains directed segments into closed loops through their
// shared edges. Chains left open (from a mesh whose seams were never
// welded) are joined where their end points coincide, and anything still
// open is closed with a straight edge.
func assemble(segs []segment, at func(edge) mgl64.Vec2) []Loop {
	starts := make(map[edge][]int, len(segs))
	for i, s := range segs {
		starts[s.p] = append(starts[s.p], i)
	}
	used := make([]bool, len(segs))

	next := func(e edge) int {
		for _, i := range starts[e] {
			if !used[i] {
				return i
			}
		}
		return -1
	}

	var loops, open []Loop
	for i := range segs {
		if used[i] {
			continue
		}
		first := segs[i].p
		var chain Loop
		closed := false
		for cur := i; ; {
			used[cur] = true
			chain = appendPoint(chain, at(segs[cur].p))
			end := segs[cur].q
			if end == first {
				closed = true
				break
			}
			if cur = next(end); cur < 0 {
				chain = appendPoint(chain, at(end))
				break
			}
		}
		if closed {
			loops = appendLoop(loops, chain)
		} else {
			open = append(open, chain)
		}
	}
	return append(loops, joinChains(open)...)
}

// joinChains links open chains end to start by exact coordinates.
func joinChains(chains []Loop) []Loop {
	byStart := make(map[mgl64.Vec2][]int, len(chains))
	for i, c := range chains {
		byStart[c[0]] = append(byStart[c[0]], i)
	}
	used := make([]bool, len(chains))

	var loops []Loop
	for i := range chains {
		if used[i] {
			continue
		}
		used[i] = true
		loop := append(Loop(nil), chains[i]...)
		for loop[len(loop)-1] != loop[0] {
			j := -1
			for _, k := range byStart[loop[len(loop)-1]] {
				if !used[k] {
					j = k
					break
				}
			}
			if j < 0 {
				break
			}
			used[j] = true
			for _, p := range chains[j] {
				loop = appendPoint(loop, p)
			}
		}
		loops = appendLoop(loops, loop)
	}
	return loops
}

// appendPoint adds p to l unless it repeats the last point.
func appendPoint(l Loop, p mgl64.Vec2) Loop {
	if n := len(l); n > 0 && l[n-1] == p {
		return l
	}
	return append(l, p)
}

// appendLoop adds l to loops once its closing point is dropped, skipping
// anything with no area to enclose.
func appendLoop(loops []Loop, l Loop) []Loop {
	if n := len(l); n > 1 && l[0] == l[n-1] {
		l = l[:n-1]
	}
	if len(l) < 3 {
		return loops
	}
	return append(loops, l)
}
