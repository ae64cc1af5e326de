package raster

import (
	"fmt"
	"image"
	"image/draw"
	"strconv"
	"strings"
)

// Remap returns a copy of img in which every pixel equal to from is
// replaced by to. Values are in the native units of the image: 0-255 for
// 8-bit images and 0-65535 for 16-bit ones. For color images a pixel
// matches when all of its color channels equal from, and all of them are
// set to to; alpha is left alone. Images of other types are converted to
// NRGBA first. The input is never modified.
func Remap(img image.Image, from, to int) image.Image {
	switch src := img.(type) {
	case *image.Gray:
		dst := *src
		dst.Pix = append([]uint8(nil), src.Pix...)
		if f, ok := fits(from, 0xff); ok {
			t, _ := fits(to, 0xff)
			replace8(dst.Pix, 1, 1, uint8(f), uint8(t))
		}
		return &dst
	case *image.Gray16:
		dst := *src
		dst.Pix = append([]uint8(nil), src.Pix...)
		if f, ok := fits(from, 0xffff); ok {
			t, _ := fits(to, 0xffff)
			for i := 0; i+1 < len(dst.Pix); i += 2 {
				if int(dst.Pix[i])<<8|int(dst.Pix[i+1]) == f {
					dst.Pix[i], dst.Pix[i+1] = uint8(t>>8), uint8(t)
				}
			}
		}
		return &dst
	case *image.RGBA:
		dst := *src
		dst.Pix = append([]uint8(nil), src.Pix...)
		if f, ok := fits(from, 0xff); ok {
			t, _ := fits(to, 0xff)
			replace8(dst.Pix, 4, 3, uint8(f), uint8(t))
		}
		return &dst
	case *image.NRGBA:
		dst := *src
		dst.Pix = append([]uint8(nil), src.Pix...)
		if f, ok := fits(from, 0xff); ok {
			t, _ := fits(to, 0xff)
			replace8(dst.Pix, 4, 3, uint8(f), uint8(t))
		}
		return &dst
	}

	b := img.Bounds()
	dst := image.NewNRGBA(b)
	draw.Draw(dst, b, img, b.Min, draw.Src)
	return Remap(dst, from, to)
}

// replace8 walks pixels of size stride bytes and rewrites the first n
// channels when all of them equal from.
func replace8(pix []uint8, stride, n int, from, to uint8) {
	for i := 0; i+stride <= len(pix); i += stride {
		match := true
		for c := 0; c < n; c++ {
			if pix[i+c] != from {
				match = false
				break
			}
		}
		if match {
			for c := 0; c < n; c++ {
				pix[i+c] = to
			}
		}
	}
}

// fits clamps v into [0, max] and reports whether it was already in range.
func fits(v, max int) (int, bool) {
	switch {
	case v < 0:
		return 0, false
	case v > max:
		return max, false
	}
	return v, true
}

// Replacement is a FROM,TO value pair for Remap, usable as a flag.Value.
type Replacement struct {
	From, To int
	set      bool
}

func (r *Replacement) String() string {
	if r == nil || !r.set {
		return ""
	}
	return fmt.Sprintf("%v,%v", r.From, r.To)
}

// Set parses "FROM,TO".
func (r *Replacement) Set(s string) error {
	from, to, ok := strings.Cut(s, ",")
	if !ok {
		return fmt.Errorf("want FROM,TO, got %q", s)
	}
	f, err := strconv.Atoi(strings.TrimSpace(from))
	if err != nil {
		return fmt.Errorf("bad FROM value: %w", err)
	}
	t, err := strconv.Atoi(strings.TrimSpace(to))
	if err != nil {
		return fmt.Errorf("bad TO value: %w", err)
	}
	r.From, r.To, r.set = f, t, true
	return nil
}

// Apply remaps img when a pair has been set and returns img otherwise.
func (r *Replacement) Apply(img image.Image) image.Image {
	if r == nil || !r.set {
		return img
	}
	return Remap(img, r.From, r.To)
}
