// svg-to-depthmap renders a layered SVG drawing as a depth map.
//
// Each group holding polygons is one layer, stacked in document order.
// White polygons in a layer are painted with the layer's gray level and
// the layers are merged so each pixel keeps its brightest value.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/gmlewis/depthmap/imageio"
	"github.com/gmlewis/depthmap/raster"
	"github.com/gmlewis/depthmap/svg"
)

var (
	dpi    = flag.Float64("dpi", 72, "Output resolution in dots per inch")
	output = flag.String("o", "", "Output file name (default is the drawing's base name)")
	show   = flag.Bool("show", false, "Show the depth map instead of saving it")
	format = flag.String("format", "", "Output format: png, tiff, bmp or exr (default from -o, else png)")

	replace raster.Replacement
)

func main() {
	flag.Var(&replace, "replace", "Replace the pixel value FROM with TO in the depth map, as FROM,TO")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %v [flags] drawing.svg\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	arg := flag.Arg(0)

	f := imageio.PNG
	switch {
	case *format != "":
		var err error
		f, err = imageio.ParseFormat(*format)
		check("%v", err)
	case filepath.Ext(*output) != "":
		var ok bool
		if f, ok = imageio.FormatFromPath(*output); !ok {
			log.Fatalf("cannot tell the image format of %q; use -format", *output)
		}
	}

	log.Printf("Loading drawing %q...", arg)
	d, err := svg.Load(arg)
	check("svg.Load: %v", err)

	opts := svg.DefaultOptions()
	opts.DPI = *dpi
	img, err := svg.Render(d, opts)
	check("svg.Render: %v", err)

	out := replace.Apply(img)
	if *show {
		err := imageio.Show(out)
		check("imageio.Show: %v", err)
		return
	}

	filename := imageio.OutputPath(arg, *output, f)
	log.Printf("Writing %v", filename)
	err = imageio.Save(filename, out, f)
	check("imageio.Save: %v", err)

	log.Println("Done.")
}

func check(fmtStr string, args ...interface{}) {
	if err := args[len(args)-1]; err != nil {
		log.Fatalf(fmtStr, args...)
	}
}
