// Package depthmap turns a triangle mesh into a grayscale depth map by
// slicing it into horizontal layers, encoding each layer's height as a
// gray level and merging the layers so every pixel keeps the height of
// the highest material above it.
package depthmap

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"sync"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/gmlewis/depthmap/mesh"
	"github.com/gmlewis/depthmap/raster"
	"github.com/gmlewis/depthmap/slicer"
)

// ErrNoLayers is returned when no slicing plane intersects the mesh.
var ErrNoLayers = errors.New("no layer intersects the model")

// LayerProcessor receives every rasterized layer, lowest first, before
// it is encoded. n is the layer's ordinal and z its height in the
// re-zeroed model.
type LayerProcessor interface {
	ProcessLayer(n int, z float64, g raster.Grid, mask *image.Gray) error
}

// SectionProcessor receives every cross-section, lowest first, before
// it is rasterized.
type SectionProcessor interface {
	ProcessSection(n int, cs *slicer.CrossSection, g raster.Grid) error
}

// Preparer is implemented by layer and section processors that need the
// grid and the number of layers before the first layer arrives.
type Preparer interface {
	PrepareLayers(g raster.Grid, numLayers int, zRange [2]float64) error
}

// Options controls a Build.
type Options struct {
	Steps        int
	BottomOffset float64
	TopOffset    float64

	// Resolution is the pixel count along the longer side of the model.
	Resolution int
	Margin     int

	Encoding Encoding
	BitDepth int // 8 or 16

	// Workers is the number of goroutines used for slicing and
	// rasterizing. Layers are handled one at a time, in order, when any
	// processors are present.
	Workers    int
	Processors []LayerProcessor
	Sections   []SectionProcessor
}

// DefaultOptions returns the options used by stl-to-depthmap.
func DefaultOptions() Options {
	return Options{
		Steps:      slicer.DefaultSteps,
		Resolution: raster.DefaultResolution,
		Margin:     raster.DefaultMargin,
		Encoding:   Normalized,
		BitDepth:   8,
		Workers:    1,
	}
}

// Result is a finished depth map.
type Result struct {
	// Depth holds one level per pixel in [0, Max]; 0 is the background.
	Depth  *image.Gray16
	Grid   raster.Grid
	Layers int
	Max    uint16
	// Range is the sliced height interval of the re-zeroed model.
	Range [2]float64
}

// Image returns the depth map at its bit depth: *image.Gray for 8-bit
// results and *image.Gray16 otherwise.
func (r *Result) Image() image.Image {
	if r.Max > 0xff {
		return r.Depth
	}
	img := image.NewGray(r.Depth.Rect)
	for i := range img.Pix {
		img.Pix[i] = r.Depth.Pix[2*i+1]
	}
	return img
}

// Float returns every pixel's level as a fraction of Max, row by row.
func (r *Result) Float() []float32 {
	out := make([]float32, len(r.Depth.Pix)/2)
	if r.Max == 0 {
		return out
	}
	for i := range out {
		v := uint16(r.Depth.Pix[2*i])<<8 | uint16(r.Depth.Pix[2*i+1])
		out[i] = float32(v) / float32(r.Max)
	}
	return out
}

// Build renders m as a depth map. The mesh is not modified.
func Build(ctx context.Context, m *mesh.Mesh, opts Options) (*Result, error) {
	if m == nil || m.NumFaces() == 0 {
		return nil, mesh.ErrEmptyMesh
	}
	max, err := MaxLevel(opts.BitDepth)
	if err != nil {
		return nil, err
	}

	m = m.Rezero()
	sections, err := slicer.Slice(ctx, m, slicer.Options{
		Steps:        opts.Steps,
		BottomOffset: opts.BottomOffset,
		TopOffset:    opts.TopOffset,
		Workers:      opts.Workers,
	})
	if err != nil {
		return nil, fmt.Errorf("slice: %w", err)
	}
	if len(sections) == 0 {
		return nil, ErrNoLayers
	}

	lo, hi := m.Bounds()
	grid, err := raster.NewGrid(mgl64.Vec2{lo.X(), lo.Y()}, mgl64.Vec2{hi.X(), hi.Y()}, opts.Resolution, opts.Margin)
	if err != nil {
		return nil, fmt.Errorf("grid: %w", err)
	}
	log.Printf("Rasterizing %v layers on a %v grid", len(sections), grid)

	zLo, zHi, _ := slicer.Range(m, opts.BottomOffset, opts.TopOffset)
	res := &Result{Grid: grid, Layers: len(sections), Max: max, Range: [2]float64{zLo, zHi}}

	for _, p := range preparers(opts) {
		if err := p.PrepareLayers(grid, len(sections), res.Range); err != nil {
			return nil, fmt.Errorf("prepare layers: %w", err)
		}
	}

	b := &builder{sections: sections, grid: grid, opts: opts, max: max}
	var acc *Accumulator
	if opts.Workers > 1 && len(opts.Processors) == 0 && len(opts.Sections) == 0 {
		acc, err = b.parallel(ctx)
	} else {
		acc, err = b.sequential(ctx)
	}
	if err != nil {
		return nil, err
	}
	res.Depth = acc.Image()
	return res, nil
}

func preparers(opts Options) []Preparer {
	var out []Preparer
	for _, p := range opts.Processors {
		if pp, ok := p.(Preparer); ok {
			out = append(out, pp)
		}
	}
	for _, p := range opts.Sections {
		if pp, ok := p.(Preparer); ok {
			out = append(out, pp)
		}
	}
	return out
}

type builder struct {
	sections []*slicer.CrossSection
	grid     raster.Grid
	opts     Options
	max      uint16
}

// layer rasterizes and encodes section i.
func (b *builder) layer(i int) (*image.Gray, *image.Gray16) {
	mask := raster.Rasterize(b.sections[i], b.grid)
	return mask, Encode(mask, b.opts.Encoding.Level(i, len(b.sections), b.max))
}

func (b *builder) sequential(ctx context.Context) (*Accumulator, error) {
	acc := NewAccumulator(b.grid.Rect())
	for i, cs := range b.sections {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, p := range b.opts.Sections {
			if err := p.ProcessSection(i, cs, b.grid); err != nil {
				return nil, fmt.Errorf("section %v: %w", i, err)
			}
		}
		mask, layer := b.layer(i)
		for _, p := range b.opts.Processors {
			if err := p.ProcessLayer(i, cs.Z, b.grid, mask); err != nil {
				return nil, fmt.Errorf("layer %v: %w", i, err)
			}
		}
		acc.Add(layer, i)
	}
	return acc, nil
}

// parallel gives every worker its own accumulator and merges them at the
// end. The lighter merge is commutative, so the result does not depend
// on which worker handled which layer.
func (b *builder) parallel(ctx context.Context) (*Accumulator, error) {
	ch := make(chan int)
	accs := make([]*Accumulator, b.opts.Workers)
	var wg sync.WaitGroup
	for w := range accs {
		accs[w] = NewAccumulator(b.grid.Rect())
		wg.Add(1)
		go func(acc *Accumulator) {
			defer wg.Done()
			for i := range ch {
				_, layer := b.layer(i)
				acc.Add(layer, i)
			}
		}(accs[w])
	}

	var err error
	for i := range b.sections {
		if err = ctx.Err(); err != nil {
			break
		}
		ch <- i
	}
	close(ch)
	wg.Wait()
	if err != nil {
		return nil, err
	}

	for _, acc := range accs[1:] {
		accs[0].Merge(acc)
	}
	return accs[0], nil
}
