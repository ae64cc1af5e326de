// Package photon is a LayerProcessor that writes the layer masks to a
// ChiTuBox .cbddlp file (which is identical to an AnyCubic .photon file).
//
// This is based on: github.com/Andoryuuta/photon
// with the major difference that this code does not hold the full
// model in-memory but instead streams the images to the output file.
package photon

import (
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"io"
	"log"

	"github.com/gmlewis/depthmap/raster"
)

// Writer streams layers to a .cbddlp file. It implements
// depthmap.LayerProcessor and depthmap.Preparer.
type Writer struct {
	w io.WriteSeeker

	numLayers      int
	layerThickness float32 // millimeters

	layerHeaderOffset0 int64
	layerHeaders       []binCompatLayerHeader
	next               int
}

// New returns a Writer. Close must be called after the last layer to
// fill in the layer table.
func New(w io.WriteSeeker) *Writer {
	return &Writer{w: w}
}

// PrepareLayers records the layer count and thickness.
func (d *Writer) PrepareLayers(g raster.Grid, numLayers int, zRange [2]float64) error {
	if numLayers < 1 {
		return errors.New("photon: no layers")
	}
	if g.Width > screenWidth || g.Height > screenHeight {
		log.Printf("photon: %vx%v px layers are cropped to the %vx%v px screen", g.Width, g.Height, screenWidth, screenHeight)
	}
	d.numLayers = numLayers
	d.layerThickness = float32((zRange[1] - zRange[0]) / float64(numLayers))
	d.layerHeaders = nil
	d.next = 0
	return nil
}

// ProcessLayer encodes mask as layer n. Layers must arrive in order.
func (d *Writer) ProcessLayer(n int, z float64, g raster.Grid, mask *image.Gray) error {
	if d.numLayers == 0 {
		return errors.New("photon: ProcessLayer called before PrepareLayers")
	}
	if n != d.next || n >= d.numLayers {
		return fmt.Errorf("photon: got layer %v, want layer %v of %v", n, d.next, d.numLayers)
	}
	var err error
	if n == 0 {
		err = d.writeHeader(mask)
	} else {
		err = d.writeSlice(n, mask)
	}
	if err != nil {
		return err
	}
	d.layerHeaders[n].AbsoluteHeight = float32(z)
	d.next++
	return nil
}

// Close goes back and writes the final layer table. It does not close
// the underlying writer.
func (d *Writer) Close() error {
	if d.layerHeaders == nil {
		return nil
	}
	if _, err := d.w.Seek(d.layerHeaderOffset0, io.SeekStart); err != nil {
		return fmt.Errorf("seek: %w", err)
	}
	if err := binary.Write(d.w, binary.LittleEndian, d.layerHeaders); err != nil {
		return err
	}
	_, err := d.w.Seek(0, io.SeekEnd)
	return err
}
