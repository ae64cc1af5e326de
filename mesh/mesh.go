// Package mesh represents triangulated solids read from STL files.
package mesh

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// ErrEmptyMesh is returned when a mesh has no faces.
var ErrEmptyMesh = errors.New("mesh has no faces")

// Mesh is a triangulated 3D solid.
//
// Faces index into Vertices. Bounds are computed from the vertices on
// every call and never cached, so a Mesh may be safely edited in place.
type Mesh struct {
	Vertices []mgl64.Vec3
	Faces    [][3]int
}

// New returns a mesh after checking that every face references a valid vertex.
func New(vertices []mgl64.Vec3, faces [][3]int) (*Mesh, error) {
	for i, f := range faces {
		for _, v := range f {
			if v < 0 || v >= len(vertices) {
				return nil, fmt.Errorf("face %v references vertex %v, have %v vertices", i, v, len(vertices))
			}
		}
	}
	return &Mesh{Vertices: vertices, Faces: faces}, nil
}

// WeldTolerance is the distance, relative to the size of the model,
// below which FromTriangles treats two corners as the same vertex.
const WeldTolerance = 1e-9

// FromTriangles builds a mesh from free-standing triangles, welding
// corners that lie within WeldTolerance of each other so that
// neighbouring triangles share vertices.
func FromTriangles(tris [][3]mgl64.Vec3) *Mesh {
	m := &Mesh{Faces: make([][3]int, 0, len(tris))}
	eps := weldEpsilon(tris)

	type cell [3]int64
	cellOf := func(v mgl64.Vec3) cell {
		return cell{int64(math.Floor(v[0] / eps)), int64(math.Floor(v[1] / eps)), int64(math.Floor(v[2] / eps))}
	}
	grid := map[cell][]int{}
	weld := func(v mgl64.Vec3) int {
		c := cellOf(v)
		for dx := int64(-1); dx <= 1; dx++ {
			for dy := int64(-1); dy <= 1; dy++ {
				for dz := int64(-1); dz <= 1; dz++ {
					for _, i := range grid[cell{c[0] + dx, c[1] + dy, c[2] + dz}] {
						if near(m.Vertices[i], v, eps) {
							return i
						}
					}
				}
			}
		}
		i := len(m.Vertices)
		m.Vertices = append(m.Vertices, v)
		grid[c] = append(grid[c], i)
		return i
	}

	for _, t := range tris {
		m.Faces = append(m.Faces, [3]int{weld(t[0]), weld(t[1]), weld(t[2])})
	}
	return m
}

// weldEpsilon scales WeldTolerance by the diagonal of the triangles'
// bounding box.
func weldEpsilon(tris [][3]mgl64.Vec3) float64 {
	min := mgl64.Vec3{math.Inf(1), math.Inf(1), math.Inf(1)}
	max := mgl64.Vec3{math.Inf(-1), math.Inf(-1), math.Inf(-1)}
	for _, t := range tris {
		for _, v := range t {
			for axis := 0; axis < 3; axis++ {
				min[axis] = math.Min(min[axis], v[axis])
				max[axis] = math.Max(max[axis], v[axis])
			}
		}
	}
	diag := max.Sub(min).Len()
	if math.IsNaN(diag) || math.IsInf(diag, 0) {
		diag = 0
	}
	return WeldTolerance * (1 + diag)
}

func near(a, b mgl64.Vec3, eps float64) bool {
	return math.Abs(a[0]-b[0]) <= eps && math.Abs(a[1]-b[1]) <= eps && math.Abs(a[2]-b[2]) <= eps
}

// NumFaces returns the number of triangles.
func (m *Mesh) NumFaces() int {
	return len(m.Faces)
}

// Triangle returns the three corners of face i.
func (m *Mesh) Triangle(i int) [3]mgl64.Vec3 {
	f := m.Faces[i]
	return [3]mgl64.Vec3{m.Vertices[f[0]], m.Vertices[f[1]], m.Vertices[f[2]]}
}

// Bounds returns the axis-aligned bounding box of the referenced vertices.
func (m *Mesh) Bounds() (min, max mgl64.Vec3) {
	min = mgl64.Vec3{math.Inf(1), math.Inf(1), math.Inf(1)}
	max = mgl64.Vec3{math.Inf(-1), math.Inf(-1), math.Inf(-1)}
	for _, f := range m.Faces {
		for _, vi := range f {
			v := m.Vertices[vi]
			for axis := 0; axis < 3; axis++ {
				min[axis] = math.Min(min[axis], v[axis])
				max[axis] = math.Max(max[axis], v[axis])
			}
		}
	}
	return min, max
}

// Extents returns the size of the bounding box along each axis.
func (m *Mesh) Extents() mgl64.Vec3 {
	min, max := m.Bounds()
	return max.Sub(min)
}

// Translate returns a copy of the mesh moved by d.
func (m *Mesh) Translate(d mgl64.Vec3) *Mesh {
	out := &Mesh{
		Vertices: make([]mgl64.Vec3, len(m.Vertices)),
		Faces:    append([][3]int(nil), m.Faces...),
	}
	for i, v := range m.Vertices {
		out.Vertices[i] = v.Add(d)
	}
	return out
}

// Rezero returns a copy of the mesh whose bounding box starts at the origin.
func (m *Mesh) Rezero() *Mesh {
	min, _ := m.Bounds()
	return m.Translate(min.Mul(-1))
}
