package svg

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	svgo "github.com/ajstarks/svgo"

	"github.com/gmlewis/depthmap/raster"
	"github.com/gmlewis/depthmap/slicer"
)

// Exporter writes cross-sections as a layered drawing that Render turns
// back into the same depth map: one group per section, holding one white
// path in pixel coordinates of the grid.
//
// Exporter implements depthmap.SectionProcessor and depthmap.Preparer.
type Exporter struct {
	w       *errWriter
	canvas  *svgo.SVG
	started bool
}

// NewExporter returns an Exporter writing to w. Close must be called to
// finish the document.
func NewExporter(w io.Writer) *Exporter {
	ew := &errWriter{w: w}
	return &Exporter{w: ew, canvas: svgo.New(ew)}
}

// PrepareLayers starts the document.
func (e *Exporter) PrepareLayers(g raster.Grid, numLayers int, zRange [2]float64) error {
	e.canvas.Start(g.Width, g.Height)
	e.canvas.Title(fmt.Sprintf("%v layers, z=%0.3f to %0.3f, %0.5f units per px", numLayers, zRange[0], zRange[1], g.Pitch))
	e.started = true
	return e.w.err
}

// ProcessSection writes section n as its own group.
func (e *Exporter) ProcessSection(n int, cs *slicer.CrossSection, g raster.Grid) error {
	if !e.started {
		return errors.New("svg: ProcessSection called before PrepareLayers")
	}
	e.canvas.Gid(fmt.Sprintf("layer%04d", n))
	if d := pathData(cs, g); d != "" {
		e.canvas.Path(d, "fill:white;stroke:none")
	}
	e.canvas.Gend()
	return e.w.err
}

// Close ends the document.
func (e *Exporter) Close() error {
	if e.started {
		e.canvas.End()
		e.started = false
	}
	return e.w.err
}

// Export writes sections, lowest first, as a layered drawing on grid g.
func Export(w io.Writer, sections []*slicer.CrossSection, g raster.Grid) error {
	var zRange [2]float64
	if len(sections) > 0 {
		zRange = [2]float64{sections[0].Z, sections[len(sections)-1].Z}
	}
	e := NewExporter(w)
	if err := e.PrepareLayers(g, len(sections), zRange); err != nil {
		return err
	}
	for i, cs := range sections {
		if err := e.ProcessSection(i, cs, g); err != nil {
			return err
		}
	}
	return e.Close()
}

func pathData(cs *slicer.CrossSection, g raster.Grid) string {
	if cs.Empty() {
		return ""
	}
	var sb strings.Builder
	f := func(v float32) string { return strconv.FormatFloat(float64(v), 'f', -1, 32) }
	for _, loop := range cs.Loops {
		if len(loop) < 3 {
			continue
		}
		for i, p := range loop {
			x, y := g.ToRaster(p)
			if i == 0 {
				sb.WriteString("M")
			} else {
				sb.WriteString(" L")
			}
			sb.WriteString(f(x) + "," + f(y))
		}
		sb.WriteString(" Z ")
	}
	return strings.TrimSpace(sb.String())
}

// errWriter remembers the first write error, since svgo does not report
// them.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) Write(p []byte) (int, error) {
	if ew.err != nil {
		return 0, ew.err
	}
	n, err := ew.w.Write(p)
	ew.err = err
	return n, err
}
