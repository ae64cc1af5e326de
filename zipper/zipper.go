// Package zipper is a LayerProcessor that writes every layer mask to a ZIP
// archive as a PNG image.
package zipper

import (
	"fmt"
	"image"
	"image/png"
	"io"
	"time"

	"github.com/klauspost/compress/zip"

	"github.com/gmlewis/depthmap/raster"
)

// Zipper writes one PNG per layer. It implements depthmap.LayerProcessor.
type Zipper struct {
	w       *zip.Writer
	fmtStr  string
	svx     bool
	written int
}

// New returns a Zipper writing layer%04d.png entries to w.
// The caller must Close the Zipper and then w.
func New(w io.Writer) *Zipper {
	return &Zipper{w: zip.NewWriter(w), fmtStr: "layer%04d.png"}
}

// PrepareLayers is called once before the first layer.
func (zp *Zipper) PrepareLayers(g raster.Grid, numLayers int, zRange [2]float64) error {
	if zp.svx {
		return zp.writeManifest(g, numLayers, zRange)
	}
	return nil
}

// ProcessLayer stores mask as entry n.
func (zp *Zipper) ProcessLayer(n int, z float64, g raster.Grid, mask *image.Gray) error {
	filename := fmt.Sprintf(zp.fmtStr, n)
	fh := &zip.FileHeader{
		Name:     filename,
		Comment:  fmt.Sprintf("z=%0.3f", z),
		Method:   zip.Deflate,
		Modified: time.Now(),
	}
	f, err := zp.w.CreateHeader(fh)
	if err != nil {
		return fmt.Errorf("unable to create ZIP file %q: %w", filename, err)
	}
	if err := png.Encode(f, mask); err != nil {
		return fmt.Errorf("PNG encode: %w", err)
	}
	zp.written++
	return nil
}

// Layers returns the number of layers written so far.
func (zp *Zipper) Layers() int {
	return zp.written
}

// Close finishes the archive. It does not close the underlying writer.
func (zp *Zipper) Close() error {
	if err := zp.w.Close(); err != nil {
		return fmt.Errorf("unable to close ZIP writer: %w", err)
	}
	return nil
}
