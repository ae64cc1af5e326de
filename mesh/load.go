package mesh

import (
	"bytes"
	"fmt"
	"io"
	"log"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/hschendel/stl"
)

// Load reads a binary or ASCII STL file.
func Load(filename string) (*Mesh, error) {
	solid, err := stl.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("stl.ReadFile(%q): %w", filename, err)
	}
	m, err := fromSolid(solid)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", filename, err)
	}
	min, max := m.Bounds()
	log.Printf("Loaded %v: %v faces, %v vertices, bounds=(%0.3f,%0.3f,%0.3f)-(%0.3f,%0.3f,%0.3f)",
		filename, len(m.Faces), len(m.Vertices), min[0], min[1], min[2], max[0], max[1], max[2])
	return m, nil
}

// Read reads a binary or ASCII STL stream. Readers that cannot seek are
// buffered in memory first.
func Read(r io.Reader) (*Mesh, error) {
	rs, ok := r.(io.ReadSeeker)
	if !ok {
		buf, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("read: %w", err)
		}
		rs = bytes.NewReader(buf)
	}
	solid, err := stl.ReadAll(rs)
	if err != nil {
		return nil, fmt.Errorf("stl.ReadAll: %w", err)
	}
	return fromSolid(solid)
}

func fromSolid(solid *stl.Solid) (*Mesh, error) {
	if len(solid.Triangles) == 0 {
		return nil, ErrEmptyMesh
	}
	tris := make([][3]mgl64.Vec3, 0, len(solid.Triangles))
	for _, t := range solid.Triangles {
		var tri [3]mgl64.Vec3
		for j, v := range t.Vertices {
			tri[j] = mgl64.Vec3{float64(v[0]), float64(v[1]), float64(v[2])}
		}
		tris = append(tris, tri)
	}
	return FromTriangles(tris), nil
}
