package imageio

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/mrjoshuak/go-openexr/exr"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{in: "", want: PNG},
		{in: "png", want: PNG},
		{in: ".PNG", want: PNG},
		{in: "tif", want: TIFF},
		{in: "tiff", want: TIFF},
		{in: "bmp", want: BMP},
		{in: "exr", want: EXR},
		{in: "jpg", wantErr: true},
	}

	for i, tt := range tests {
		t.Run(fmt.Sprintf("test #%v: %q", i, tt.in), func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseFormat err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseFormat = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestOutputPath(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		output string
		f      Format
		want   string
	}{
		{name: "default", input: "models/part.stl", want: "part.png"},
		{name: "first dot", input: "/tmp/part.v2.stl", f: TIFF, want: "part.tiff"},
		{name: "explicit", input: "part.stl", output: "out/depth.bmp", f: PNG, want: "out/depth.bmp"},
		{name: "explicit without extension", input: "part.stl", output: "depth", f: EXR, want: "depth.exr"},
		{name: "svg", input: "drawing.svg", want: "drawing.png"},
	}

	for i, tt := range tests {
		t.Run(fmt.Sprintf("test #%v: %v", i, tt.name), func(t *testing.T) {
			if got := OutputPath(tt.input, tt.output, tt.f); got != tt.want {
				t.Errorf("OutputPath = %q, want %q", got, tt.want)
			}
		})
	}

	if f, ok := FormatFromPath("a/b.tif"); !ok || f != TIFF {
		t.Errorf("FormatFromPath(b.tif) = %q, %v", f, ok)
	}
	if _, ok := FormatFromPath("a/b"); ok {
		t.Error("FormatFromPath(b) = ok, want !ok")
	}
}

func testImage() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, 3, 2))
	img.Pix = []uint8{0, 128, 255, 255, 0, 7}
	return img
}

func TestSave(t *testing.T) {
	decoders := map[Format]func(*os.File) (image.Image, error){
		PNG:  func(f *os.File) (image.Image, error) { return png.Decode(f) },
		TIFF: func(f *os.File) (image.Image, error) { return tiff.Decode(f) },
		BMP:  func(f *os.File) (image.Image, error) { return bmp.Decode(f) },
	}
	src := testImage()
	dir := t.TempDir()

	for i, f := range []Format{PNG, TIFF, BMP} {
		t.Run(fmt.Sprintf("test #%v: %v", i, f), func(t *testing.T) {
			path := filepath.Join(dir, "out."+string(f))
			if err := Save(path, src, f); err != nil {
				t.Fatalf("Save: %v", err)
			}
			file, err := os.Open(path)
			if err != nil {
				t.Fatal(err)
			}
			defer file.Close()
			got, err := decoders[f](file)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if got.Bounds() != src.Bounds() {
				t.Fatalf("bounds = %v, want %v", got.Bounds(), src.Bounds())
			}
			for y := 0; y < 2; y++ {
				for x := 0; x < 3; x++ {
					want, _, _, _ := src.At(x, y).RGBA()
					if r, _, _, _ := got.At(x, y).RGBA(); r != want {
						t.Errorf("pixel (%v,%v) = %v, want %v", x, y, r, want)
					}
				}
			}
		})
	}
}

func TestSaveEXR(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.exr")
	src := testImage()
	if err := Save(path, src, EXR); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := exr.DecodeFile(path)
	if err != nil {
		t.Fatalf("DecodeFile: %v", err)
	}
	for y := 0; y < 2; y++ {
		for x := 0; x < 3; x++ {
			want := float64(src.GrayAt(x, y).Y) / 255
			r, _, _, a := got.RGBA(x, y)
			if math.Abs(float64(r)-want) > 1e-3 || a != 1 {
				t.Errorf("pixel (%v,%v) = %v alpha %v, want %v", x, y, r, a, want)
			}
		}
	}
}

func TestEncodeEXRNeedsSeeker(t *testing.T) {
	var buf bytes.Buffer
	if err := Encode(&buf, testImage(), EXR); err == nil {
		t.Error("Encode(EXR) to a bytes.Buffer = nil error")
	}
}

func TestSaveUnwritable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "out.png")
	if err := Save(path, testImage(), PNG); err == nil {
		t.Errorf("Save(%v) = nil error", path)
	}
}

func TestViewer(t *testing.T) {
	tests := []struct {
		goos string
		want string
	}{
		{goos: "linux", want: "xdg-open"},
		{goos: "darwin", want: "open"},
		{goos: "windows", want: "cmd"},
	}
	for _, tt := range tests {
		if got := viewer(tt.goos, "x.png").Args[0]; got != tt.want {
			t.Errorf("viewer(%v) = %v, want %v", tt.goos, got, tt.want)
		}
	}
}
