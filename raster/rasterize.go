package raster

import (
	"image"
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/gmlewis/depthmap/slicer"
)

// Mask values written by Rasterize.
const (
	Background uint8 = 0
	Foreground uint8 = 0xff
)

// Rasterize fills the pixels of g whose centers lie inside cs with
// Foreground, using the nonzero winding rule so clockwise loops cut holes.
// All other pixels are Background. A nil or empty section gives an all
// Background image.
func Rasterize(cs *slicer.CrossSection, g Grid) *image.Gray {
	if cs.Empty() {
		return image.NewGray(g.Rect())
	}
	paths := make([][]mgl64.Vec2, 0, len(cs.Loops))
	for _, loop := range cs.Loops {
		path := make([]mgl64.Vec2, len(loop))
		for i, p := range loop {
			path[i] = g.toPixel(p)
		}
		paths = append(paths, path)
	}
	return Fill(g.Rect(), paths)
}

// crossing is where an edge cuts a scanline. dir is +1 for an edge
// running down the image and -1 for one running up.
type crossing struct {
	x   float64
	dir int
}

// Fill rasterizes closed paths given in pixel coordinates (y down) into
// a mask of size r, which must have its minimum at the origin. Pixel
// (col, row) is Foreground when its center (col+0.5, row+0.5) has a
// nonzero winding number. Edges are half-open: a center exactly on a
// left or top edge is inside, one on a right or bottom edge is not, so
// paths sharing an edge never both claim a pixel. Paths with fewer than
// three points are skipped.
func Fill(r image.Rectangle, paths [][]mgl64.Vec2) *image.Gray {
	img := image.NewGray(r)
	w, h := r.Dx(), r.Dy()
	if w <= 0 || h <= 0 || len(paths) == 0 {
		return img
	}

	rows := make([][]crossing, h)
	for _, path := range paths {
		if len(path) < 3 {
			continue
		}
		for i, a := range path {
			b := path[(i+1)%len(path)]
			addEdge(rows, a, b)
		}
	}

	for row, xs := range rows {
		if len(xs) < 2 {
			continue
		}
		sort.Slice(xs, func(i, j int) bool { return xs[i].x < xs[j].x })
		pix := img.Pix[img.PixOffset(0, row):][:w]
		var wind int
		for i, c := range xs[:len(xs)-1] {
			wind += c.dir
			if wind == 0 {
				continue
			}
			for col := firstCenter(c.x, w); col < firstCenter(xs[i+1].x, w); col++ {
				pix[col] = Foreground
			}
		}
	}
	return img
}

// addEdge records the crossings of edge a-b with every scanline whose
// center y lies in [min y, max y). Horizontal edges cross nothing.
func addEdge(rows [][]crossing, a, b mgl64.Vec2) {
	dir := 1
	if a.Y() > b.Y() {
		a, b, dir = b, a, -1
	}
	if a.Y() == b.Y() {
		return
	}
	first := firstCenter(a.Y(), len(rows))
	last := firstCenter(b.Y(), len(rows))
	slope := (b.X() - a.X()) / (b.Y() - a.Y())
	for row := first; row < last; row++ {
		y := float64(row) + 0.5
		rows[row] = append(rows[row], crossing{x: a.X() + (y-a.Y())*slope, dir: dir})
	}
}

// firstCenter returns the first index in [0, n] whose pixel center is at
// or beyond v.
func firstCenter(v float64, n int) int {
	i := math.Ceil(v - 0.5)
	switch {
	case math.IsNaN(i) || i < 0:
		return 0
	case i > float64(n):
		return n
	}
	return int(i)
}

// Count returns the number of pixels equal to v.
func Count(img *image.Gray, v uint8) int {
	var n int
	for y := img.Rect.Min.Y; y < img.Rect.Max.Y; y++ {
		row := img.Pix[img.PixOffset(img.Rect.Min.X, y):][:img.Rect.Dx()]
		for _, p := range row {
			if p == v {
				n++
			}
		}
	}
	return n
}
