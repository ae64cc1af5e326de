package mesh

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

const asciiTetra = `solid tetra
facet normal 0 0 -1
 outer loop
  vertex 0 0 0
  vertex 0 1 0
  vertex 1 0 0
 endloop
endfacet
facet normal 0 -1 0
 outer loop
  vertex 0 0 0
  vertex 1 0 0
  vertex 0 0 2
 endloop
endfacet
facet normal -1 0 0
 outer loop
  vertex 0 0 0
  vertex 0 0 2
  vertex 0 1 0
 endloop
endfacet
facet normal 1 1 1
 outer loop
  vertex 1 0 0
  vertex 0 1 0
  vertex 0 0 2
 endloop
endfacet
endsolid tetra
`

func TestRead(t *testing.T) {
	m, err := Read(strings.NewReader(asciiTetra))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got, want := m.NumFaces(), 4; got != want {
		t.Errorf("NumFaces = %v, want %v", got, want)
	}
	if got, want := len(m.Vertices), 4; got != want {
		t.Errorf("welded vertices = %v, want %v", got, want)
	}
	min, max := m.Bounds()
	if want := (mgl64.Vec3{0, 0, 0}); min != want {
		t.Errorf("min = %v, want %v", min, want)
	}
	if want := (mgl64.Vec3{1, 1, 2}); max != want {
		t.Errorf("max = %v, want %v", max, want)
	}
}

func TestReadStream(t *testing.T) {
	// Hide the Seek method of the underlying reader.
	r := struct{ io.Reader }{strings.NewReader(asciiTetra)}
	m, err := Read(r)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got, want := m.NumFaces(), 4; got != want {
		t.Errorf("NumFaces = %v, want %v", got, want)
	}
}

func TestReadEmpty(t *testing.T) {
	_, err := Read(strings.NewReader("solid empty\nendsolid empty\n"))
	if !errors.Is(err, ErrEmptyMesh) {
		t.Errorf("Read = %v, want %v", err, ErrEmptyMesh)
	}
}

func TestNew(t *testing.T) {
	verts := []mgl64.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}
	tests := []struct {
		name    string
		faces   [][3]int
		wantErr bool
	}{
		{name: "valid", faces: [][3]int{{0, 1, 2}}},
		{name: "negative index", faces: [][3]int{{0, -1, 2}}, wantErr: true},
		{name: "index out of range", faces: [][3]int{{0, 1, 3}}, wantErr: true},
	}

	for i, tt := range tests {
		t.Run(fmt.Sprintf("test #%v: %v", i, tt.name), func(t *testing.T) {
			_, err := New(verts, tt.faces)
			if (err != nil) != tt.wantErr {
				t.Errorf("New err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRezero(t *testing.T) {
	m := FromTriangles([][3]mgl64.Vec3{{{-1, 2, 5}, {3, 2, 5}, {-1, 4, 7}}})
	r := m.Rezero()

	min, max := r.Bounds()
	if want := (mgl64.Vec3{}); min != want {
		t.Errorf("min = %v, want %v", min, want)
	}
	if want := (mgl64.Vec3{4, 2, 2}); max != want {
		t.Errorf("max = %v, want %v", max, want)
	}

	// The source mesh is untouched.
	if min, _ := m.Bounds(); min != (mgl64.Vec3{-1, 2, 5}) {
		t.Errorf("source mesh moved: min = %v", min)
	}
}

func TestBoundsRecomputed(t *testing.T) {
	m := FromTriangles([][3]mgl64.Vec3{{{0, 0, 0}, {1, 0, 0}, {0, 1, 1}}})
	if got := m.Extents(); got != (mgl64.Vec3{1, 1, 1}) {
		t.Fatalf("Extents = %v", got)
	}
	m.Vertices[0] = mgl64.Vec3{-1, 0, 0}
	if got := m.Extents(); got != (mgl64.Vec3{2, 1, 1}) {
		t.Errorf("Extents after edit = %v, want (2,1,1)", got)
	}
}

func TestFromTrianglesWeld(t *testing.T) {
	tests := []struct {
		name  string
		shift float64
		want  int
	}{
		{name: "identical corners", want: 4},
		{name: "rounding noise", shift: 1e-12, want: 4},
		{name: "distinct corners", shift: 1e-3, want: 6},
	}

	for i, tt := range tests {
		t.Run(fmt.Sprintf("test #%v: %v", i, tt.name), func(t *testing.T) {
			d := mgl64.Vec3{tt.shift, -tt.shift, tt.shift}
			m := FromTriangles([][3]mgl64.Vec3{
				{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
				{mgl64.Vec3{1, 0, 0}.Add(d), {1, 1, 0}, mgl64.Vec3{0, 1, 0}.Add(d)},
			})
			if got := len(m.Vertices); got != tt.want {
				t.Errorf("got %v vertices, want %v", got, tt.want)
			}
		})
	}
}
