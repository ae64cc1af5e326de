// Package raster maps cross-sections onto a shared pixel grid.
package raster

import (
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

const (
	// DefaultResolution is the pixel count along the longer side of a model.
	DefaultResolution = 2048
	// DefaultMargin is the number of pixels of padding on every side.
	DefaultMargin = 2
)

// ErrEmptyGrid is returned for a footprint with no area to map.
var ErrEmptyGrid = errors.New("footprint has zero extent")

// Grid is the pixel lattice shared by every layer of a depth map.
//
// Origin is the model-space position of the lower-left corner of the
// image. Rows run from +Y at the top of the image to -Y at the bottom,
// so the depth map reads like the model seen from above.
type Grid struct {
	Width, Height int
	Origin        mgl64.Vec2
	Pitch         float64 // model units per pixel
}

// NewGrid fits the footprint min-max into a grid whose longer side spans
// resolution pixels, padded with margin pixels on every side.
func NewGrid(min, max mgl64.Vec2, resolution, margin int) (Grid, error) {
	if resolution < 1 {
		return Grid{}, fmt.Errorf("resolution must be positive, got %v", resolution)
	}
	if margin < 0 {
		margin = 0
	}
	extent := max.Sub(min)
	longest := math.Max(extent.X(), extent.Y())
	if !(longest > 0) || math.IsInf(longest, 0) {
		return Grid{}, ErrEmptyGrid
	}

	pitch := longest / float64(resolution)
	span := func(e float64) int {
		// Absorb rounding noise so an exact fit does not gain a column.
		return int(math.Ceil(e/pitch-1e-9)) + 2*margin
	}
	m := float64(margin) * pitch
	return Grid{
		Width:  span(extent.X()),
		Height: span(extent.Y()),
		Origin: mgl64.Vec2{min.X() - m, min.Y() - m},
		Pitch:  pitch,
	}, nil
}

// Rect returns the image bounds of the grid.
func (g Grid) Rect() image.Rectangle {
	return image.Rect(0, 0, g.Width, g.Height)
}

// ToRaster converts a model-space point to continuous raster coordinates.
func (g Grid) ToRaster(p mgl64.Vec2) (x, y float32) {
	q := g.toPixel(p)
	return float32(q.X()), float32(q.Y())
}

// toPixel is ToRaster at full precision. It is the inverse of Center.
func (g Grid) toPixel(p mgl64.Vec2) mgl64.Vec2 {
	return mgl64.Vec2{
		(p.X() - g.Origin.X()) / g.Pitch,
		float64(g.Height) - (p.Y()-g.Origin.Y())/g.Pitch,
	}
}

// Center returns the model-space center of pixel (col, row).
func (g Grid) Center(col, row int) mgl64.Vec2 {
	return mgl64.Vec2{
		g.Origin.X() + (float64(col)+0.5)*g.Pitch,
		g.Origin.Y() + (float64(g.Height-row)-0.5)*g.Pitch,
	}
}

func (g Grid) String() string {
	return fmt.Sprintf("%vx%v px, pitch %0.5f, origin (%0.3f,%0.3f)", g.Width, g.Height, g.Pitch, g.Origin.X(), g.Origin.Y())
}
