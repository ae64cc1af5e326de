// Package imageio writes depth maps to disk and shows them on screen.
package imageio

import (
	"bufio"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mrjoshuak/go-openexr/exr"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

// Format is an output image format, named by its usual file extension.
type Format string

// Supported formats.
const (
	PNG  Format = "png"
	TIFF Format = "tiff"
	BMP  Format = "bmp"
	EXR  Format = "exr"
)

// Formats lists the supported formats.
var Formats = []Format{PNG, TIFF, BMP, EXR}

// ParseFormat returns the format named s. The empty string means PNG.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimPrefix(s, "."))); f {
	case "":
		return PNG, nil
	case PNG, TIFF, BMP, EXR:
		return f, nil
	case "tif":
		return TIFF, nil
	}
	return "", fmt.Errorf("unsupported image format %q (want one of %v)", s, Formats)
}

// FormatFromPath returns the format implied by the extension of path.
func FormatFromPath(path string) (Format, bool) {
	ext := filepath.Ext(path)
	if ext == "" {
		return "", false
	}
	f, err := ParseFormat(ext)
	return f, err == nil
}

// OutputPath returns where a depth map made from input is written. An
// explicit output is used as given, gaining the extension of f when it
// has none. Otherwise the name is the base name of input up to its first
// dot, with the extension of f, in the current directory.
func OutputPath(input, output string, f Format) string {
	if f == "" {
		f = PNG
	}
	if output != "" {
		if filepath.Ext(output) == "" {
			return output + "." + string(f)
		}
		return output
	}
	base := filepath.Base(input)
	if i := strings.Index(base, "."); i > 0 {
		base = base[:i]
	}
	return base + "." + string(f)
}

// Encode writes img to w in format f. EXR output needs w to be an
// io.WriteSeeker.
func Encode(w io.Writer, img image.Image, f Format) error {
	switch f {
	case PNG, "":
		return png.Encode(w, img)
	case TIFF:
		return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
	case BMP:
		return bmp.Encode(w, img)
	case EXR:
		ws, ok := w.(io.WriteSeeker)
		if !ok {
			return fmt.Errorf("EXR output needs a seekable writer, got %T", w)
		}
		return exr.Encode(ws, ToEXR(img))
	}
	return fmt.Errorf("unsupported image format %q", f)
}

// Save writes img to path in format f.
func Save(path string, img image.Image, f Format) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %v: %w", path, err)
	}
	defer func() {
		if cerr := file.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("close %v: %w", path, cerr)
		}
	}()

	if f == EXR {
		return Encode(file, img, f)
	}
	bw := bufio.NewWriter(file)
	if err := Encode(bw, img, f); err != nil {
		return fmt.Errorf("encode %v: %w", path, err)
	}
	return bw.Flush()
}

// ToEXR converts img to a linear float image with gray levels in the
// color channels scaled to [0,1] and alpha kept.
func ToEXR(img image.Image) *exr.RGBAImage {
	b := img.Bounds()
	out := exr.NewRGBAImage(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, a := img.At(x, y).RGBA()
			if a != 0 {
				// Undo the premultiplication applied by RGBA.
				r, g, bl = r*0xffff/a, g*0xffff/a, bl*0xffff/a
			}
			out.SetRGBA(x, y, float32(r)/0xffff, float32(g)/0xffff, float32(bl)/0xffff, float32(a)/0xffff)
		}
	}
	return out
}
