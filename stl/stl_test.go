package stl

import (
	"bytes"
	"fmt"
	"io"
	"testing"

	"github.com/gmlewis/depthmap/mesh"
	"github.com/go-gl/mathgl/mgl64"
)

func TestWriter(t *testing.T) {
	tests := []struct {
		name string
		tris []Tri
	}{
		{
			name: "no triangles",
		},
		{
			name: "two triangles",
			tris: []Tri{
				{V1: [3]float32{0, 0, 0}, V2: [3]float32{1, 0, 0}, V3: [3]float32{0, 1, 0}},
				{V1: [3]float32{1, 0, 0}, V2: [3]float32{1, 1, 0}, V3: [3]float32{0, 1, 0}},
			},
		},
	}

	for i, tt := range tests {
		t.Run(fmt.Sprintf("test #%v: %v", i, tt.name), func(t *testing.T) {
			out := &fakeFile{}
			ch := make(chan Tri, bufSize)
			c := &Client{ch: ch}
			c.start(out)

			for i, tri := range tt.tris {
				if err := c.Write(&tri); err != nil {
					t.Fatalf("c.Write: i=%v, %v", i, err)
				}
			}
			if err := c.Close(); err != nil {
				t.Fatalf("c.Close: %v", err)
			}

			if out.closes != 1 {
				t.Errorf("expected 1 close, got %v", out.closes)
			}
			if out.seeks != 1 {
				t.Errorf("expected 1 seek, got %v", out.seeks)
			}
			if out.writes != len(tt.tris)+1 { // +1 for the final count
				t.Errorf("expected %v writes, got %v", len(tt.tris)+1, out.writes)
			}
		})
	}
}

func TestWriteMeshRoundTrip(t *testing.T) {
	src := mesh.FromTriangles([][3]mgl64.Vec3{
		{{0, 0, 0}, {0, 1, 0}, {1, 0, 0}},
		{{0, 0, 0}, {1, 0, 0}, {0, 0, 2}},
		{{0, 0, 0}, {0, 0, 2}, {0, 1, 0}},
		{{1, 0, 0}, {0, 1, 0}, {0, 0, 2}},
	})

	out := &memFile{}
	c, err := newClient(out)
	if err != nil {
		t.Fatalf("newClient: %v", err)
	}
	if err := WriteMesh(c, src); err != nil {
		t.Fatalf("WriteMesh: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if got, want := len(out.buf), headerSize+4+50*4; got != want {
		t.Fatalf("file size = %v, want %v", got, want)
	}

	got, err := mesh.Read(bytes.NewReader(out.buf))
	if err != nil {
		t.Fatalf("mesh.Read: %v", err)
	}
	if got.NumFaces() != src.NumFaces() {
		t.Errorf("NumFaces = %v, want %v", got.NumFaces(), src.NumFaces())
	}
	gotMin, gotMax := got.Bounds()
	wantMin, wantMax := src.Bounds()
	if gotMin != wantMin || gotMax != wantMax {
		t.Errorf("bounds = %v-%v, want %v-%v", gotMin, gotMax, wantMin, wantMax)
	}
}

type fakeFile struct {
	closes int
	seeks  int
	writes int
}

func (f *fakeFile) Close() error {
	f.closes++
	return nil
}

func (f *fakeFile) Seek(offset int64, whence int) (int64, error) {
	f.seeks++
	return 0, nil
}

func (f *fakeFile) Write(p []byte) (n int, err error) {
	f.writes++
	return len(p), nil
}

// memFile is an in-memory writeSeekCloser.
type memFile struct {
	buf []byte
	off int
}

func (m *memFile) Write(p []byte) (int, error) {
	if end := m.off + len(p); end > len(m.buf) {
		m.buf = append(m.buf, make([]byte, end-len(m.buf))...)
	}
	copy(m.buf[m.off:], p)
	m.off += len(p)
	return len(p), nil
}

func (m *memFile) Seek(offset int64, whence int) (int64, error) {
	switch whence {
	case io.SeekStart:
		m.off = int(offset)
	case io.SeekCurrent:
		m.off += int(offset)
	case io.SeekEnd:
		m.off = len(m.buf) + int(offset)
	}
	return int64(m.off), nil
}

func (m *memFile) Close() error { return nil }
