package svg

import (
	"fmt"
	"image"
	"image/color"
	"log"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/gmlewis/depthmap/depthmap"
	"github.com/gmlewis/depthmap/raster"
)

// White is the default target color: polygons filled with it are
// painted with their layer's gray level.
var White = color.RGBA{0xff, 0xff, 0xff, 0xff}

// Options controls Render.
type Options struct {
	// DPI is the output resolution; the drawing is measured in points.
	DPI float64
	// Target is the fill color replaced by the layer's gray level.
	Target color.RGBA
}

// DefaultOptions returns the options used by svg-to-depthmap.
func DefaultOptions() Options {
	return Options{DPI: 72, Target: White}
}

// Layer is one group of polygons sharing a height.
type Layer struct {
	Group    *Node
	Polygons []*Node
}

// layerCollector gathers every container or group with direct polygon
// children, in document order.
type layerCollector struct {
	layers []Layer
}

func (lc *layerCollector) Container(n *Node) bool { return lc.Group(n) }

func (lc *layerCollector) Group(n *Node) bool {
	if !n.HasPolygons() {
		return true
	}
	l := Layer{Group: n}
	for _, c := range n.Children {
		if c.Kind == Polygon {
			l.Polygons = append(l.Polygons, c)
		}
	}
	lc.layers = append(lc.layers, l)
	return true
}

func (lc *layerCollector) Polygon(n *Node) {}

// Layers returns the layers of d from lowest to highest.
func Layers(d *Drawing) []Layer {
	lc := &layerCollector{}
	Walk(d.Root, lc)
	return lc.layers
}

// Size returns the pixel size of d at the given resolution.
func (d *Drawing) Size(dpi float64) image.Rectangle {
	scale := dpi / 72
	return image.Rect(0, 0, int(d.Width*scale), int(d.Height*scale))
}

// Render paints every layer of d with the gray level of its position in
// the stack and merges the layers so each pixel keeps the brightest
// value. Uncovered pixels are black.
func Render(d *Drawing, opts Options) (*image.RGBA, error) {
	if d == nil || d.Root == nil {
		return nil, ErrNoDrawing
	}
	if opts.DPI <= 0 {
		return nil, fmt.Errorf("DPI must be positive, got %v", opts.DPI)
	}
	r := d.Size(opts.DPI)
	if r.Empty() {
		return nil, fmt.Errorf("drawing of %vx%v points is empty at %v DPI", d.Width, d.Height, opts.DPI)
	}

	out := image.NewRGBA(r)
	for i := 3; i < len(out.Pix); i += 4 {
		out.Pix[i] = 0xff
	}

	layers := Layers(d)
	scale := opts.DPI / 72
	for i, l := range layers {
		v := uint8(depthmap.Normalized.Level(i, len(layers), 0xff))
		page := renderLayer(l, r, scale, opts.Target, color.RGBA{v, v, v, 0xff})
		lighter(out, page)
	}
	log.Printf("Rendered %v layers into %vx%v px at %v DPI", len(layers), r.Dx(), r.Dy(), opts.DPI)
	return out, nil
}

// renderLayer paints the polygons of l in order onto a transparent page.
// Any visible fill is painted opaque.
func renderLayer(l Layer, r image.Rectangle, scale float64, target, gray color.RGBA) *image.RGBA {
	page := image.NewRGBA(r)
	for _, p := range l.Polygons {
		c := p.Fill
		if c.A == 0 {
			continue
		}
		if c.R == target.R && c.G == target.G && c.B == target.B {
			c = gray
		}
		c.A = 0xff

		paths := make([][]mgl64.Vec2, len(p.Rings))
		for i, ring := range p.Rings {
			paths[i] = make([]mgl64.Vec2, len(ring))
			for j, q := range ring {
				paths[i][j] = q.Mul(scale)
			}
		}
		mask := raster.Fill(r, paths)
		for i, m := range mask.Pix {
			if m == raster.Foreground {
				page.Pix[4*i], page.Pix[4*i+1], page.Pix[4*i+2], page.Pix[4*i+3] = c.R, c.G, c.B, c.A
			}
		}
	}
	return page
}

// lighter keeps the larger of each channel of dst and src in dst.
func lighter(dst, src *image.RGBA) {
	for i, v := range src.Pix {
		if v > dst.Pix[i] {
			dst.Pix[i] = v
		}
	}
}
