// stl-to-depthmap slices an STL model into horizontal layers and writes a
// grayscale depth map: every pixel holds the height of the highest
// material above it, from black (empty) to white (the top layer).
//
// The output is named after the model unless -o is given. With -show the
// depth map is opened in the default image viewer instead of being saved.
// The layers can also be written as a ZIP of PNG masks (-zip), an SVX
// voxel file (-svx), a binvox voxel grid (-binvox), a resin printer file
// (-photon) or a layered SVG (-svg) that svg-to-depthmap turns back into
// the same depth map.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"

	"github.com/gmlewis/depthmap/binvox"
	"github.com/gmlewis/depthmap/depthmap"
	"github.com/gmlewis/depthmap/imageio"
	"github.com/gmlewis/depthmap/mesh"
	"github.com/gmlewis/depthmap/photon"
	"github.com/gmlewis/depthmap/raster"
	"github.com/gmlewis/depthmap/svg"
	"github.com/gmlewis/depthmap/zipper"
)

var (
	steps        = flag.Int("steps", 255, "Number of layers to slice the model into")
	bottomOffset = flag.Float64("bottom-offset", 0, "Raise the lowest cut above the bottom of the model")
	topOffset    = flag.Float64("top-offset", 0, "Lower the highest cut below the top of the model")
	output       = flag.String("o", "", "Output file name (default is the model's base name)")
	show         = flag.Bool("show", false, "Show the depth map instead of saving it")
	format       = flag.String("format", "", "Output format: png, tiff, bmp or exr (default from -o, else png)")
	res          = flag.Int("res", raster.DefaultResolution, "Pixels along the longer side of the model")
	margin       = flag.Int("margin", raster.DefaultMargin, "Pixels of padding around the model")
	depth        = flag.Int("depth", 8, "Bits per pixel: 8 or 16")
	encoding     = flag.String("encoding", "normalized", "Layer encoding: normalized or ordinal")
	workers      = flag.Int("workers", runtime.NumCPU(), "Number of slicing goroutines")

	writeBinvox = flag.String("binvox", "", "Also write the layers to this binvox file")
	solid       = flag.Bool("solid", false, "Fill the binvox interior instead of writing only its shell")
	writePhoton = flag.String("photon", "", "Also write the layers to this ChiTuBox .cbddlp file")
	writeSVG    = flag.String("svg", "", "Also write the cross-sections to this layered SVG file")
	writeSVX    = flag.String("svx", "", "Also write the layers to this SVX voxel file")
	writeZip    = flag.String("zip", "", "Also write the layer masks to this ZIP file")

	replace raster.Replacement
)

func main() {
	flag.Var(&replace, "replace", "Replace the pixel value FROM with TO in the depth map, as FROM,TO")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %v [flags] model.stl\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	arg := flag.Arg(0)

	f, err := outputFormat(*format, *output)
	check("%v", err)
	enc, err := depthmap.ParseEncoding(*encoding)
	check("%v", err)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	log.Printf("Loading mesh %q...", arg)
	m, err := mesh.Load(arg)
	check("mesh.Load: %v", err)

	opts := depthmap.DefaultOptions()
	opts.Steps = *steps
	opts.BottomOffset = *bottomOffset
	opts.TopOffset = *topOffset
	opts.Resolution = *res
	opts.Margin = *margin
	opts.BitDepth = *depth
	opts.Encoding = enc
	opts.Workers = *workers

	st := &stage{}
	if *writeZip != "" {
		zp := zipper.New(st.create(*writeZip))
		opts.Processors = append(opts.Processors, zp)
		st.add(zp)
	}
	if *writeSVX != "" {
		zp := zipper.NewSVX(st.create(*writeSVX))
		opts.Processors = append(opts.Processors, zp)
		st.add(zp)
	}
	if *writePhoton != "" {
		pw := photon.New(st.create(*writePhoton))
		opts.Processors = append(opts.Processors, pw)
		st.add(pw)
	}
	var bv *binvox.Client
	if *writeBinvox != "" {
		bv = binvox.New(*solid)
		opts.Processors = append(opts.Processors, bv)
	}
	if *writeSVG != "" {
		e := svg.NewExporter(st.create(*writeSVG))
		opts.Sections = append(opts.Sections, e)
		st.add(e)
	}

	log.Printf("Slicing mesh into %v steps...", opts.Steps)
	result, err := depthmap.Build(ctx, m, opts)
	if err != nil {
		st.abort()
		log.Fatalf("depthmap.Build: %v", err)
	}

	err = st.commit()
	check("%v", err)
	if bv != nil {
		err := bv.Write(*writeBinvox)
		check("binvox.Write: %v", err)
	}

	img := replace.Apply(result.Image())
	if *show {
		err := imageio.Show(img)
		check("imageio.Show: %v", err)
		return
	}

	out := imageio.OutputPath(arg, *output, f)
	log.Printf("Writing %v-bit depth map with %v layers to %v", *depth, result.Layers, out)
	err = imageio.Save(out, img, f)
	check("imageio.Save: %v", err)

	log.Println("Done.")
}

// outputFormat picks the -format flag, then the extension of -o, then PNG.
func outputFormat(name, output string) (imageio.Format, error) {
	if name != "" {
		return imageio.ParseFormat(name)
	}
	if f, ok := imageio.FormatFromPath(output); ok {
		return f, nil
	}
	if filepath.Ext(output) != "" {
		return "", fmt.Errorf("cannot tell the image format of %q; use -format", output)
	}
	return imageio.PNG, nil
}

// stage keeps the side outputs in temporary files next to their targets
// so a failed run leaves no partial files behind.
type stage struct {
	closers []io.Closer
	files   []*os.File
	targets []string
}

// create opens a temporary file in the directory of target. It exits on
// error after removing what was already staged.
func (s *stage) create(target string) *os.File {
	f, err := os.CreateTemp(filepath.Dir(target), "."+filepath.Base(target)+".*")
	if err == nil {
		err = f.Chmod(0644)
		s.files = append(s.files, f)
		s.targets = append(s.targets, target)
	}
	if err != nil {
		s.abort()
		log.Fatalf("Create: %v", err)
	}
	return f
}

// add registers a writer to be closed before the files are.
func (s *stage) add(c io.Closer) {
	s.closers = append(s.closers, c)
}

// commit closes every writer and file and renames the files into place.
// On error nothing is renamed and the temporary files are removed.
func (s *stage) commit() error {
	for _, c := range s.closers {
		if err := c.Close(); err != nil {
			s.abort()
			return fmt.Errorf("close: %w", err)
		}
	}
	for _, f := range s.files {
		if err := f.Close(); err != nil {
			s.abort()
			return fmt.Errorf("close: %w", err)
		}
	}
	for i, f := range s.files {
		if err := os.Rename(f.Name(), s.targets[i]); err != nil {
			s.abort()
			return fmt.Errorf("rename: %w", err)
		}
	}
	s.closers, s.files, s.targets = nil, nil, nil
	return nil
}

// abort closes and removes the staged files, leaving the targets as they
// were.
func (s *stage) abort() {
	for _, f := range s.files {
		f.Close()
		os.Remove(f.Name())
	}
	s.closers, s.files, s.targets = nil, nil, nil
}

func check(fmtStr string, args ...interface{}) {
	if err := args[len(args)-1]; err != nil {
		log.Fatalf(fmtStr, args...)
	}
}
