// Package slicer cuts a mesh into an ordered stack of horizontal
// cross-sections.
package slicer

import (
	"context"
	"log"
	"math"
	"sync"

	"github.com/samber/lo"

	"github.com/gmlewis/depthmap/mesh"
)

// DefaultSteps is the number of cuts made when none is requested.
const DefaultSteps = 255

// Options controls where a mesh is cut.
type Options struct {
	// Steps is the number of evenly spaced cuts. Values below 1 mean 1.
	Steps int
	// BottomOffset raises the lowest cut above the bottom of the mesh.
	BottomOffset float64
	// TopOffset lowers the highest cut below the top of the mesh.
	TopOffset float64
	// Workers is the number of goroutines intersecting planes.
	Workers int
}

// DefaultOptions returns the options used by the command-line tools.
func DefaultOptions() Options {
	return Options{Steps: DefaultSteps, Workers: 1}
}

// Range returns the height interval to be sliced. When the offsets
// together consume the whole height of the mesh they are ignored and the
// full extent is returned with fallback set.
func Range(m *mesh.Mesh, bottomOffset, topOffset float64) (zLo, zHi float64, fallback bool) {
	min, max := m.Bounds()
	zLo, zHi = min.Z(), max.Z()
	bottomOffset = math.Max(bottomOffset, 0)
	topOffset = math.Max(topOffset, 0)
	if bottomOffset+topOffset >= zHi-zLo {
		return zLo, zHi, true
	}
	return zLo + bottomOffset, zHi - topOffset, false
}

// Heights divides [zLo, zHi) into steps equal intervals and returns the
// lower boundary of each one. The top of the range is never cut, since a
// plane through the top face of a solid intersects nothing.
func Heights(zLo, zHi float64, steps int) []float64 {
	if steps < 1 {
		steps = 1
	}
	step := (zHi - zLo) / float64(steps)
	if step <= 0 {
		return []float64{zLo}
	}
	heights := make([]float64, steps)
	for i := range heights {
		heights[i] = zLo + float64(i)*step
	}
	return heights
}

// Slice cuts m at evenly spaced heights and returns the non-empty
// cross-sections ordered by increasing height. The context is checked once
// per cut.
func Slice(ctx context.Context, m *mesh.Mesh, opts Options) ([]*CrossSection, error) {
	zLo, zHi, fallback := Range(m, opts.BottomOffset, opts.TopOffset)
	if fallback && (opts.BottomOffset > 0 || opts.TopOffset > 0) {
		log.Printf("Offsets %v+%v exceed model height %v; slicing full extent", opts.BottomOffset, opts.TopOffset, zHi-zLo)
	}
	heights := Heights(zLo, zHi, opts.Steps)

	sections := make([]*CrossSection, len(heights))
	if err := forEach(ctx, len(heights), opts.Workers, func(i int) {
		sections[i] = Section(m, heights[i])
	}); err != nil {
		return nil, err
	}

	sections = lo.Filter(sections, func(cs *CrossSection, _ int) bool {
		return !cs.Empty()
	})
	log.Printf("Sliced z=[%0.3f,%0.3f) into %v steps: %v non-empty sections", zLo, zHi, len(heights), len(sections))
	return sections, nil
}

// forEach calls fn(i) for i in [0,n) on up to workers goroutines, stopping
// early when ctx is done.
func forEach(ctx context.Context, n, workers int, fn func(i int)) error {
	if workers <= 1 {
		for i := 0; i < n; i++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			fn(i)
		}
		return nil
	}

	ch := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range ch {
				fn(i)
			}
		}()
	}

	var err error
	for i := 0; i < n; i++ {
		if err = ctx.Err(); err != nil {
			break
		}
		ch <- i
	}
	close(ch)
	wg.Wait()
	return err
}
