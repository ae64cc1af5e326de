package zipper

import (
	"fmt"
	"io"
	"time"

	"github.com/klauspost/compress/zip"

	"github.com/gmlewis/depthmap/raster"
)

// NewSVX returns a Zipper that writes an SVX voxel file: the layer masks
// as density slices plus a manifest describing the grid.
func NewSVX(w io.Writer) *Zipper {
	return &Zipper{w: zip.NewWriter(w), fmtStr: "density/slice%04d.png", svx: true}
}

func (zp *Zipper) writeManifest(g raster.Grid, numLayers int, zRange [2]float64) error {
	fh := &zip.FileHeader{
		Name:     "manifest.xml",
		Method:   zip.Deflate,
		Modified: time.Now(),
	}
	f, err := zp.w.CreateHeader(fh)
	if err != nil {
		return fmt.Errorf("unable to create ZIP file %q: %w", fh.Name, err)
	}

	// SVX voxels are cubes; the XY pitch is used and the layer spacing is
	// recorded only in the slice comments.
	_, err = fmt.Fprintf(f, manifestFmt,
		g.Width,
		g.Height,
		numLayers,
		g.Pitch/1000.0, // millimeters to meters
		zRange[0],
		zRange[1],
		time.Now().Format("2006-01-02"))
	return err
}

var manifestFmt = `<?xml version="1.0"?>

<grid version="1.0" gridSizeX="%v" gridSizeY="%v" gridSizeZ="%v"
   voxelSize="%v" subvoxelBits="8" slicesOrientation="Z" >

    <channels>
        <channel type="DENSITY" bits="8" slices="density/slice%%04d.png" />
    </channels>

    <materials>
        <material id="1" urn="urn:shapeways:materials/1" />
    </materials>

    <metadata>
        <entry key="zRange" value="%0.3f-%0.3f" />
        <entry key="creationDate" value=%q />
    </metadata>
</grid>`
