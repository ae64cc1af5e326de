package slicer

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/gmlewis/depthmap/mesh"
	"github.com/gmlewis/depthmap/shapes"
)

func cube(size float64) *mesh.Mesh {
	return shapes.Cuboid(mgl64.Vec3{}, mgl64.Vec3{size, size, size})
}

func TestRange(t *testing.T) {
	m := shapes.Cuboid(mgl64.Vec3{0, 0, 2}, mgl64.Vec3{1, 1, 12})
	tests := []struct {
		name         string
		bottom, top  float64
		wantLo       float64
		wantHi       float64
		wantFallback bool
	}{
		{name: "no offsets", wantLo: 2, wantHi: 12},
		{name: "bottom offset", bottom: 1, wantLo: 3, wantHi: 12},
		{name: "both offsets", bottom: 1, top: 2.5, wantLo: 3, wantHi: 9.5},
		{name: "offsets equal height", bottom: 4, top: 6, wantLo: 2, wantHi: 12, wantFallback: true},
		{name: "offsets exceed height", bottom: 40, top: 6, wantLo: 2, wantHi: 12, wantFallback: true},
		{name: "negative offsets ignored", bottom: -3, top: -1, wantLo: 2, wantHi: 12},
	}

	for i, tt := range tests {
		t.Run(fmt.Sprintf("test #%v: %v", i, tt.name), func(t *testing.T) {
			gotLo, gotHi, gotFallback := Range(m, tt.bottom, tt.top)
			if gotLo != tt.wantLo || gotHi != tt.wantHi || gotFallback != tt.wantFallback {
				t.Errorf("Range = (%v, %v, %v), want (%v, %v, %v)", gotLo, gotHi, gotFallback, tt.wantLo, tt.wantHi, tt.wantFallback)
			}
		})
	}
}

func TestHeights(t *testing.T) {
	tests := []struct {
		name   string
		lo, hi float64
		steps  int
		want   []float64
	}{
		{name: "ten steps", lo: 0, hi: 10, steps: 10, want: []float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}},
		{name: "one step", lo: 2, hi: 4, steps: 1, want: []float64{2}},
		{name: "zero steps means one", lo: 2, hi: 4, steps: 0, want: []float64{2}},
		{name: "flat range", lo: 3, hi: 3, steps: 5, want: []float64{3}},
		{name: "quarter steps", lo: 1, hi: 2, steps: 4, want: []float64{1, 1.25, 1.5, 1.75}},
	}

	for i, tt := range tests {
		t.Run(fmt.Sprintf("test #%v: %v", i, tt.name), func(t *testing.T) {
			got := Heights(tt.lo, tt.hi, tt.steps)
			if len(got) != len(tt.want) {
				t.Fatalf("Heights = %v, want %v", got, tt.want)
			}
			for j := range got {
				if math.Abs(got[j]-tt.want[j]) > 1e-12 {
					t.Errorf("Heights = %v, want %v", got, tt.want)
					break
				}
			}
		})
	}
}

func TestSliceCube(t *testing.T) {
	sections, err := Slice(context.Background(), cube(10), Options{Steps: 10})
	if err != nil {
		t.Fatalf("Slice: %v", err)
	}
	if got, want := len(sections), 10; got != want {
		t.Fatalf("got %v sections, want %v", got, want)
	}
	for i, cs := range sections {
		if cs.Z != float64(i) {
			t.Errorf("section %v: Z = %v, want %v", i, cs.Z, i)
		}
		if len(cs.Loops) != 1 {
			t.Errorf("section %v: %v loops, want 1", i, len(cs.Loops))
			continue
		}
		if got := cs.Loops[0].Area(); math.Abs(got-100) > 1e-9 {
			t.Errorf("section %v: area = %v, want 100 (counter-clockwise)", i, got)
		}
		min, max := cs.Bounds()
		if min != (mgl64.Vec2{0, 0}) || max != (mgl64.Vec2{10, 10}) {
			t.Errorf("section %v: bounds = %v-%v, want (0,0)-(10,10)", i, min, max)
		}
	}
}

func TestSliceProperties(t *testing.T) {
	m := shapes.Cuboid(mgl64.Vec3{-3, -3, 5}, mgl64.Vec3{3, 3, 17})
	tests := []struct {
		name      string
		opts      Options
		lo, hi    float64
		wantCount int
	}{
		{name: "defaults", opts: DefaultOptions(), lo: 5, hi: 17, wantCount: DefaultSteps},
		{name: "offsets", opts: Options{Steps: 7, BottomOffset: 1, TopOffset: 2}, lo: 6, hi: 15, wantCount: 7},
		{name: "fallback", opts: Options{Steps: 12, BottomOffset: 10, TopOffset: 2}, lo: 5, hi: 17, wantCount: 12},
		{name: "parallel", opts: Options{Steps: 33, Workers: 4}, lo: 5, hi: 17, wantCount: 33},
	}

	for i, tt := range tests {
		t.Run(fmt.Sprintf("test #%v: %v", i, tt.name), func(t *testing.T) {
			sections, err := Slice(context.Background(), m, tt.opts)
			if err != nil {
				t.Fatalf("Slice: %v", err)
			}
			if len(sections) != tt.wantCount {
				t.Errorf("got %v sections, want %v", len(sections), tt.wantCount)
			}
			last := math.Inf(-1)
			for j, cs := range sections {
				if cs.Z <= last {
					t.Errorf("section %v: Z = %v not above %v", j, cs.Z, last)
				}
				if cs.Z < tt.lo || cs.Z > tt.hi {
					t.Errorf("section %v: Z = %v outside [%v,%v]", j, cs.Z, tt.lo, tt.hi)
				}
				last = cs.Z
			}
		})
	}
}

func TestSectionMisses(t *testing.T) {
	m := cube(10)
	for _, z := range []float64{-1, 10, 11} {
		if cs := Section(m, z); !cs.Empty() {
			t.Errorf("Section(z=%v) = %v loops, want empty", z, len(cs.Loops))
		}
	}
}

func TestSectionHole(t *testing.T) {
	// A square tube: the inner block has its faces turned inward.
	outer := shapes.Cuboid(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{10, 10, 4})
	inner := shapes.Cuboid(mgl64.Vec3{3, 3, 0}, mgl64.Vec3{7, 7, 4})
	var tris [][3]mgl64.Vec3
	for i := range outer.Faces {
		tris = append(tris, outer.Triangle(i))
	}
	for i := range inner.Faces {
		tri := inner.Triangle(i)
		tris = append(tris, [3]mgl64.Vec3{tri[0], tri[2], tri[1]})
	}

	cs := Section(mesh.FromTriangles(tris), 2)
	if len(cs.Loops) != 2 {
		t.Fatalf("got %v loops, want 2", len(cs.Loops))
	}
	var areas []float64
	for _, l := range cs.Loops {
		areas = append(areas, l.Area())
	}
	if areas[0] < areas[1] {
		areas[0], areas[1] = areas[1], areas[0]
	}
	if math.Abs(areas[0]-100) > 1e-9 || math.Abs(areas[1]+16) > 1e-9 {
		t.Errorf("loop areas = %v, want [100 -16]", areas)
	}
	if got := cs.Area(); math.Abs(got-84) > 1e-9 {
		t.Errorf("net area = %v, want 84", got)
	}
}

func TestSliceCone(t *testing.T) {
	m, err := shapes.Cone(10, 5, 0, 60)
	if err != nil {
		t.Fatalf("shapes.Cone: %v", err)
	}
	sections, err := Slice(context.Background(), m, Options{Steps: 20, BottomOffset: 0.25})
	if err != nil {
		t.Fatalf("Slice: %v", err)
	}
	if len(sections) < 15 {
		t.Fatalf("got %v sections, want at least 15", len(sections))
	}
	for i := 1; i < len(sections); i++ {
		if prev, cur := sections[i-1].Area(), sections[i].Area(); cur >= prev {
			t.Errorf("section %v area %v not smaller than section %v area %v", i, cur, i-1, prev)
		}
	}
	for i, cs := range sections {
		if cs.Z > 7 {
			break
		}
		r := 5 * (1 - cs.Z/10)
		want := math.Pi * r * r
		if got := cs.Area(); math.Abs(got-want) > 0.1*want {
			t.Errorf("section %v at z=%0.3f: area %0.2f, want %0.2f (%v loops)", i, cs.Z, got, want, len(cs.Loops))
		}
	}
}

// unwelded gives every face its own copy of its corners.
func unwelded(m *mesh.Mesh) *mesh.Mesh {
	out := &mesh.Mesh{}
	for i := range m.Faces {
		tri := m.Triangle(i)
		n := len(out.Vertices)
		out.Vertices = append(out.Vertices, tri[:]...)
		out.Faces = append(out.Faces, [3]int{n, n + 1, n + 2})
	}
	return out
}

func cubeTriangles(size float64) [][3]mgl64.Vec3 {
	m := cube(size)
	tris := make([][3]mgl64.Vec3, 0, m.NumFaces())
	for i := range m.Faces {
		tris = append(tris, m.Triangle(i))
	}
	return tris
}

func TestSectionSeams(t *testing.T) {
	// On the +X side, A-C is the diagonal shared by the last two faces.
	a, c, d := mgl64.Vec3{10, 0, 0}, mgl64.Vec3{10, 10, 10}, mgl64.Vec3{10, 0, 10}
	mid := mgl64.Vec3{10, 5, 5}
	sliver := append(cubeTriangles(10)[:11], [3]mgl64.Vec3{a, mid, d}, [3]mgl64.Vec3{mid, c, d}, [3]mgl64.Vec3{a, c, mid})

	jittered := cubeTriangles(10)
	jittered[10][0] = jittered[10][0].Add(mgl64.Vec3{1e-12, -1e-12, 0})

	tests := []struct {
		name string
		m    *mesh.Mesh
	}{
		{name: "welded", m: cube(10)},
		{name: "unwelded faces", m: unwelded(cube(10))},
		{name: "zero-area sliver", m: mesh.FromTriangles(sliver)},
		{name: "jittered corner", m: mesh.FromTriangles(jittered)},
	}

	for i, tt := range tests {
		t.Run(fmt.Sprintf("test #%v: %v", i, tt.name), func(t *testing.T) {
			for _, z := range []float64{2.5, 5, 7.5} {
				cs := Section(tt.m, z)
				if len(cs.Loops) != 1 {
					t.Errorf("z=%v: got %v loops, want 1", z, len(cs.Loops))
					continue
				}
				if got := cs.Area(); math.Abs(got-100) > 1e-6 {
					t.Errorf("z=%v: area = %v, want 100", z, got)
				}
			}
		})
	}
}

func TestSliceCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Slice(ctx, cube(1), Options{Steps: 5}); !errors.Is(err, context.Canceled) {
		t.Errorf("Slice = %v, want %v", err, context.Canceled)
	}
}
