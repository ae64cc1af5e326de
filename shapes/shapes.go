// Package shapes builds sample solids for calibrating depth maps.
//
// Solids are modeled as signed distance functions with sdfx and
// tessellated by marching cubes. Every returned mesh has its minimum
// corner at the origin.
package shapes

import (
	"fmt"

	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/go-gl/mathgl/mgl64"

	"github.com/gmlewis/depthmap/mesh"
)

// DefaultCells is the marching cubes resolution along the longest axis.
const DefaultCells = 100

// Box returns a rectangular block.
func Box(x, y, z float64, cells int) (*mesh.Mesh, error) {
	s, err := sdf.Box3D(v3.Vec{X: x, Y: y, Z: z}, 0)
	if err != nil {
		return nil, fmt.Errorf("sdf.Box3D: %w", err)
	}
	return toMesh(s, cells), nil
}

// Cuboid returns the exact 12-triangle block spanning min to max with
// outward facing triangles. Unlike Box it is not re-zeroed.
func Cuboid(min, max mgl64.Vec3) *mesh.Mesh {
	c := func(x, y, z int) mgl64.Vec3 {
		pick := func(axis, bit int) float64 {
			if bit == 0 {
				return min[axis]
			}
			return max[axis]
		}
		return mgl64.Vec3{pick(0, x), pick(1, y), pick(2, z)}
	}
	return mesh.FromTriangles([][3]mgl64.Vec3{
		{c(0, 0, 0), c(0, 1, 0), c(1, 1, 0)}, {c(0, 0, 0), c(1, 1, 0), c(1, 0, 0)}, // -Z
		{c(0, 0, 1), c(1, 0, 1), c(1, 1, 1)}, {c(0, 0, 1), c(1, 1, 1), c(0, 1, 1)}, // +Z
		{c(0, 0, 0), c(1, 0, 0), c(1, 0, 1)}, {c(0, 0, 0), c(1, 0, 1), c(0, 0, 1)}, // -Y
		{c(0, 1, 0), c(0, 1, 1), c(1, 1, 1)}, {c(0, 1, 0), c(1, 1, 1), c(1, 1, 0)}, // +Y
		{c(0, 0, 0), c(0, 0, 1), c(0, 1, 1)}, {c(0, 0, 0), c(0, 1, 1), c(0, 1, 0)}, // -X
		{c(1, 0, 0), c(1, 1, 0), c(1, 1, 1)}, {c(1, 0, 0), c(1, 1, 1), c(1, 0, 1)}, // +X
	})
}

// Cone returns a truncated cone standing on its wider base r0 with top radius r1.
func Cone(height, r0, r1 float64, cells int) (*mesh.Mesh, error) {
	s, err := sdf.Cone3D(height, r0, r1, 0)
	if err != nil {
		return nil, fmt.Errorf("sdf.Cone3D: %w", err)
	}
	return toMesh(s, cells), nil
}

// Cylinder returns an upright cylinder.
func Cylinder(height, radius float64, cells int) (*mesh.Mesh, error) {
	s, err := sdf.Cylinder3D(height, radius, 0)
	if err != nil {
		return nil, fmt.Errorf("sdf.Cylinder3D: %w", err)
	}
	return toMesh(s, cells), nil
}

// Sphere returns a ball.
func Sphere(radius float64, cells int) (*mesh.Mesh, error) {
	s, err := sdf.Sphere3D(radius)
	if err != nil {
		return nil, fmt.Errorf("sdf.Sphere3D: %w", err)
	}
	return toMesh(s, cells), nil
}

// Named returns the sample solid called name, sized to fit a size^3 cube.
func Named(name string, size float64, cells int) (*mesh.Mesh, error) {
	switch name {
	case "box", "cube":
		return Box(size, size, size, cells)
	case "cone":
		return Cone(size, size/2, 0, cells)
	case "cylinder":
		return Cylinder(size, size/2, cells)
	case "sphere":
		return Sphere(size/2, cells)
	}
	return nil, fmt.Errorf("unknown shape %q", name)
}

func toMesh(s sdf.SDF3, cells int) *mesh.Mesh {
	if cells <= 0 {
		cells = DefaultCells
	}
	triangles := render.ToTriangles(s, render.NewMarchingCubesUniform(cells))

	tris := make([][3]mgl64.Vec3, 0, len(triangles))
	for _, t := range triangles {
		var tri [3]mgl64.Vec3
		for j := 0; j < 3; j++ {
			tri[j] = mgl64.Vec3{t[j].X, t[j].Y, t[j].Z}
		}
		tris = append(tris, tri)
	}
	return mesh.FromTriangles(tris).Rezero()
}
