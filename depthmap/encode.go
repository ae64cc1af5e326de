package depthmap

import (
	"fmt"
	"image"
	"math"

	"github.com/gmlewis/depthmap/raster"
)

// Encoding selects how a layer's position in the stack becomes a pixel level.
type Encoding int

const (
	// Normalized gives layer i of n the fraction (i+1)/n of the full
	// scale, so the lowest layer is distinguishable from the background
	// and the highest layer is full white.
	Normalized Encoding = iota
	// Ordinal uses the layer index itself as the level, clamped to the
	// scale. Layer 0 coincides with the background.
	Ordinal
)

func (e Encoding) String() string {
	switch e {
	case Normalized:
		return "normalized"
	case Ordinal:
		return "ordinal"
	}
	return fmt.Sprintf("Encoding(%d)", int(e))
}

// ParseEncoding parses the name returned by Encoding.String.
func ParseEncoding(s string) (Encoding, error) {
	switch s {
	case "normalized", "":
		return Normalized, nil
	case "ordinal":
		return Ordinal, nil
	}
	return 0, fmt.Errorf("unknown encoding %q (want normalized or ordinal)", s)
}

// Level returns the intensity of layer i out of n on a scale whose
// brightest value is max. It never decreases as i grows.
func (e Encoding) Level(i, n int, max uint16) uint16 {
	if i < 0 {
		return 0
	}
	if e == Ordinal {
		if i > int(max) {
			return max
		}
		return uint16(i)
	}
	if n < 1 {
		n = 1
	}
	if i >= n {
		return max
	}
	return uint16(math.Round(float64(i+1) * float64(max) / float64(n)))
}

// Fraction returns the Normalized level of layer i out of n on a 0-1 scale.
func Fraction(i, n int) float64 {
	if n < 1 {
		return 1
	}
	return float64(i+1) / float64(n)
}

// MaxLevel returns the brightest level representable at the given bit depth.
func MaxLevel(bitDepth int) (uint16, error) {
	switch bitDepth {
	case 8:
		return 0xff, nil
	case 16:
		return 0xffff, nil
	}
	return 0, fmt.Errorf("unsupported bit depth %v (want 8 or 16)", bitDepth)
}

// Encode turns a rasterized mask into a layer: Foreground pixels take
// level and everything else stays at the background level 0.
func Encode(mask *image.Gray, level uint16) *image.Gray16 {
	layer := image.NewGray16(mask.Rect)
	hi, lo := uint8(level>>8), uint8(level)
	for y := mask.Rect.Min.Y; y < mask.Rect.Max.Y; y++ {
		src := mask.Pix[mask.PixOffset(mask.Rect.Min.X, y):][:mask.Rect.Dx()]
		dst := layer.Pix[layer.PixOffset(mask.Rect.Min.X, y):][:2*mask.Rect.Dx()]
		for x, v := range src {
			if v == raster.Foreground {
				dst[2*x], dst[2*x+1] = hi, lo
			}
		}
	}
	return layer
}
