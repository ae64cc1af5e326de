// Package stl provides a streaming binary STL file writer.
package stl

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/gmlewis/depthmap/mesh"
)

const (
	headerSize = 80
	bufSize    = 10000
)

// Client is a streaming binary STL file writer client.
type Client struct {
	wg sync.WaitGroup // ensures file is closed
	ch chan Tri

	mu  sync.RWMutex
	err error
}

// Tri represents an STL triangle.
type Tri struct {
	// Normal plus three vertex triplets: [3]float{x,y,z}
	N, V1, V2, V3 [3]float32
	_             uint16 // unused attribute byte count
}

// New creates a new streaming binary STL file writer.
func New(filename string) (*Client, error) {
	out, err := os.Create(filename)
	if err != nil {
		return nil, err
	}
	return newClient(out)
}

func newClient(out writeSeekCloser) (*Client, error) {
	// The triangle count is patched in on Close.
	header := struct {
		_ [headerSize]uint8
		_ uint32
	}{}
	if err := binary.Write(out, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("error writing header: %w", err)
	}

	c := &Client{ch: make(chan Tri, bufSize)}
	c.start(out)
	return c, nil
}

func (c *Client) start(out writeSeekCloser) {
	c.wg.Add(1)
	go func() {
		err := writer(out, c.ch)
		c.mu.Lock()
		c.err = err
		c.mu.Unlock()
		c.wg.Done()
	}()
}

// Write writes a triangle to the STL file.
func (c *Client) Write(t *Tri) error {
	c.ch <- *t
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.err
}

// Close finalizes the STL file.
func (c *Client) Close() error {
	close(c.ch)
	c.wg.Wait()
	return c.err
}

// WriteMesh streams every face of m to w with its face normal.
func WriteMesh(w interface{ Write(*Tri) error }, m *mesh.Mesh) error {
	for i := range m.Faces {
		tri := m.Triangle(i)
		n := tri[1].Sub(tri[0]).Cross(tri[2].Sub(tri[0]))
		if l := n.Len(); l > 0 {
			n = n.Mul(1 / l)
		}
		t := &Tri{N: f32(n), V1: f32(tri[0]), V2: f32(tri[1]), V3: f32(tri[2])}
		if err := w.Write(t); err != nil {
			return fmt.Errorf("face %v: %w", i, err)
		}
	}
	return nil
}

// Save writes m to a new binary STL file.
func Save(filename string, m *mesh.Mesh) error {
	c, err := New(filename)
	if err != nil {
		return err
	}
	if err := WriteMesh(c, m); err != nil {
		c.Close()
		return err
	}
	return c.Close()
}

func f32(v [3]float64) [3]float32 {
	return [3]float32{float32(v[0]), float32(v[1]), float32(v[2])}
}

type writeSeekCloser interface {
	io.Writer
	io.Seeker
	io.Closer
}

func writer(out writeSeekCloser, ch <-chan Tri) error {
	var count uint32
	var werr error
	for t := range ch {
		if werr != nil {
			continue // drain so Write never blocks
		}
		if err := binary.Write(out, binary.LittleEndian, &t); err != nil {
			werr = fmt.Errorf("write triangle %#v: %w", t, err)
			continue
		}
		count++
	}
	if werr != nil {
		out.Close()
		return werr
	}

	if _, err := out.Seek(headerSize, io.SeekStart); err != nil {
		return fmt.Errorf("seek: %w", err)
	}

	if err := binary.Write(out, binary.LittleEndian, &count); err != nil {
		return fmt.Errorf("write count %v: %w", count, err)
	}

	return out.Close()
}
