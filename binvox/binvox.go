// Package binvox is a LayerProcessor that collects the layer masks into a
// binvox voxel grid.
package binvox

import (
	"errors"
	"fmt"
	"image"
	"log"

	"github.com/gmlewis/stldice/v4/binvox"

	"github.com/gmlewis/depthmap/raster"
)

// Client converts layer masks to voxels. By default only the shell of the
// solid is kept: a voxel is written when it lies on the boundary of its
// layer or has empty space directly below or above it.
//
// Client implements depthmap.LayerProcessor and depthmap.Preparer.
type Client struct {
	b     *binvox.BinVOX
	solid bool

	// Last layer and the voxels already written for it.
	last      *image.Gray
	lastAdded []bool
	lastN     int

	voxels int
}

// New returns a Client. When solid is true every foreground pixel
// becomes a voxel.
func New(solid bool) *Client {
	return &Client{solid: solid}
}

// PrepareLayers sizes the voxel grid to g and numLayers.
func (c *Client) PrepareLayers(g raster.Grid, numLayers int, zRange [2]float64) error {
	scale := g.Pitch * float64(max(g.Width, g.Height))
	c.b = binvox.New(g.Width, g.Height, numLayers, g.Origin.X(), g.Origin.Y(), zRange[0], scale, false)
	c.last, c.lastAdded = nil, nil
	c.voxels = 0
	return nil
}

// ProcessLayer adds the voxels of layer n.
func (c *Client) ProcessLayer(n int, z float64, g raster.Grid, mask *image.Gray) error {
	if c.b == nil {
		return errors.New("binvox: ProcessLayer called before PrepareLayers")
	}
	if c.last != nil && c.last.Rect != mask.Rect {
		return fmt.Errorf("binvox: layer %v is %v, want %v", n, mask.Rect, c.last.Rect)
	}

	// Top faces of the previous layer.
	if c.last != nil {
		for i, v := range c.last.Pix {
			if v == raster.Foreground && mask.Pix[i] != raster.Foreground && !c.lastAdded[i] {
				c.add(c.last, i, c.lastN)
			}
		}
	}

	added := make([]bool, len(mask.Pix))
	w, h := mask.Rect.Dx(), mask.Rect.Dy()
	inside := func(x, y int) bool {
		return x >= 0 && y >= 0 && x < w && y < h && mask.Pix[y*mask.Stride+x] == raster.Foreground
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*mask.Stride + x
			if mask.Pix[i] != raster.Foreground {
				continue
			}
			below := c.last != nil && c.last.Pix[i] == raster.Foreground
			edge := !inside(x-1, y) || !inside(x+1, y) || !inside(x, y-1) || !inside(x, y+1)
			if c.solid || !below || edge {
				c.add(mask, i, n)
				added[i] = true
			}
		}
	}

	c.last, c.lastAdded, c.lastN = mask, added, n
	return nil
}

// add writes the voxel for pixel index i of img at layer n. Image rows
// run from +Y down, voxel Y runs up.
func (c *Client) add(img *image.Gray, i, n int) {
	x, row := i%img.Stride, i/img.Stride
	c.b.Add(x, img.Rect.Dy()-1-row, n)
	c.voxels++
}

// Voxels returns the number of voxels added so far.
func (c *Client) Voxels() int {
	return c.voxels
}

// flush closes the top of the last layer.
func (c *Client) flush() {
	if c.last == nil {
		return
	}
	for i, v := range c.last.Pix {
		if v == raster.Foreground && !c.lastAdded[i] {
			c.add(c.last, i, c.lastN)
			c.lastAdded[i] = true
		}
	}
}

// Write finishes the grid and writes it to filename.
func (c *Client) Write(filename string) error {
	if c.b == nil {
		return errors.New("binvox: nothing to write")
	}
	c.flush()
	log.Printf("Writing %v voxels to %v", c.voxels, filename)
	if err := c.b.Write(filename, 0, 0, 0, c.b.NX, c.b.NY, c.b.NZ); err != nil {
		return fmt.Errorf("Write: %w", err)
	}
	return nil
}
