package depthmap

import (
	"fmt"
	"image"
)

// Accumulator merges layers with the lighter rule: every pixel keeps the
// largest level seen so far. An Accumulator is not safe for concurrent use.
type Accumulator struct {
	depth  *image.Gray16
	layers int
}

// NewAccumulator returns an all-background accumulator covering r.
func NewAccumulator(r image.Rectangle) *Accumulator {
	return &Accumulator{depth: image.NewGray16(r)}
}

// Add merges layer into the accumulator. ordinal identifies the layer in
// the panic raised when its bounds differ from the accumulator's, which
// means the layers were not rasterized on a shared grid.
func (a *Accumulator) Add(layer *image.Gray16, ordinal int) {
	Lighter(a.depth, layer, ordinal)
	a.layers++
}

// Merge folds another accumulator into a, as the final step of a
// parallel reduction.
func (a *Accumulator) Merge(b *Accumulator) {
	Lighter(a.depth, b.depth, -1)
	a.layers += b.layers
}

// Layers returns the number of layers added.
func (a *Accumulator) Layers() int {
	return a.layers
}

// Image returns the accumulated depth map. It aliases the accumulator.
func (a *Accumulator) Image() *image.Gray16 {
	return a.depth
}

// Composite merges layers in order into a new depth map with the bounds of
// the first layer. It returns nil when there are no layers.
func Composite(layers ...*image.Gray16) *image.Gray16 {
	if len(layers) == 0 {
		return nil
	}
	acc := NewAccumulator(layers[0].Rect)
	for i, layer := range layers {
		acc.Add(layer, i)
	}
	return acc.Image()
}

// Lighter sets every pixel of dst to the larger of itself and the
// matching pixel of src.
func Lighter(dst, src *image.Gray16, ordinal int) {
	if dst.Rect != src.Rect {
		panic(fmt.Sprintf("depthmap: layer %v has bounds %v, depth map has %v", ordinal, src.Rect, dst.Rect))
	}
	w := 2 * dst.Rect.Dx()
	for y := dst.Rect.Min.Y; y < dst.Rect.Max.Y; y++ {
		d := dst.Pix[dst.PixOffset(dst.Rect.Min.X, y):][:w]
		s := src.Pix[src.PixOffset(src.Rect.Min.X, y):][:w]
		for i := 0; i < w; i += 2 {
			if s[i] > d[i] || (s[i] == d[i] && s[i+1] > d[i+1]) {
				d[i], d[i+1] = s[i], s[i+1]
			}
		}
	}
}
