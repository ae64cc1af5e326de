// -*- compile-command: "go run main.go"; -*-

// depthmap-shapes writes simple STL solids for trying out stl-to-depthmap.
package main

import (
	"flag"
	"fmt"
	"log"
	"strings"

	"github.com/gmlewis/depthmap/shapes"
	"github.com/gmlewis/depthmap/stl"
)

var (
	shape = flag.String("shape", "cone", "Solid to write: box, cube, cone, cylinder or sphere")
	size  = flag.Float64("size", 10, "Largest dimension of the solid")
	cells = flag.Int("cells", shapes.DefaultCells, "Marching cubes cells along the longest side")
	out   = flag.String("o", "", "Output STL file (default is <shape>.stl)")
)

func main() {
	flag.Parse()

	filename := *out
	if filename == "" {
		filename = fmt.Sprintf("%v.stl", strings.ToLower(*shape))
	}

	m, err := shapes.Named(*shape, *size, *cells)
	check("shapes.Named: %v", err)

	err = stl.Save(filename, m)
	check("stl.Save: %v", err)

	lo, hi := m.Bounds()
	log.Printf("Wrote %v triangles to %v, bounds %v-%v", m.NumFaces(), filename, lo, hi)
	log.Printf("Done.")
}

func check(fmtStr string, args ...interface{}) {
	if err := args[len(args)-1]; err != nil {
		log.Fatalf(fmtStr, args...)
	}
}
