package svg

import (
	"encoding/xml"
	"errors"
	"fmt"
	"image/color"
	"io"
	"math"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	"golang.org/x/image/colornames"
)

// ErrNoDrawing is returned when the input has no <svg> root element.
var ErrNoDrawing = errors.New("no <svg> element")

var black = color.RGBA{A: 0xff}

// Load reads the drawing in filename.
func Load(filename string) (*Drawing, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	d, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", filename, err)
	}
	return d, nil
}

// state is the context inherited by the children of an open element.
type state struct {
	node *Node
	ctm  mgl64.Mat3
	fill color.RGBA
	skip bool
}

// Parse reads a drawing. Groups (g, a and nested svg elements) and the
// shapes polygon, polyline, rect and path are understood; paths may use
// only straight segments. Other elements are skipped with their children.
func Parse(r io.Reader) (*Drawing, error) {
	dec := xml.NewDecoder(r)
	var (
		d     *Drawing
		stack []state
		done  bool
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("xml: %w", err)
		}
		if done {
			continue
		}

		switch t := tok.(type) {
		case xml.StartElement:
			attrs := attrMap(t.Attr)
			if d == nil {
				if t.Name.Local != "svg" {
					return nil, ErrNoDrawing
				}
				var st state
				if d, st, err = startDrawing(attrs); err != nil {
					return nil, err
				}
				stack = append(stack, st)
				continue
			}
			parent := stack[len(stack)-1]
			if parent.skip {
				stack = append(stack, state{skip: true})
				continue
			}
			st, err := parent.child(t.Name.Local, attrs)
			if err != nil {
				return nil, fmt.Errorf("<%v id=%q>: %w", t.Name.Local, attrs["id"], err)
			}
			stack = append(stack, st)
		case xml.EndElement:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
				done = len(stack) == 0
			}
		}
	}
	if d == nil {
		return nil, ErrNoDrawing
	}
	return d, nil
}

func attrMap(attrs []xml.Attr) map[string]string {
	m := make(map[string]string, len(attrs))
	for _, a := range attrs {
		m[a.Name.Local] = a.Value
	}
	return m
}

func startDrawing(attrs map[string]string) (*Drawing, state, error) {
	var vb []float64
	if s, ok := attrs["viewBox"]; ok {
		vb = numbers(s)
		if len(vb) != 4 || vb[2] <= 0 || vb[3] <= 0 {
			return nil, state{}, fmt.Errorf("bad viewBox %q", s)
		}
	}

	w, wok := length(attrs["width"])
	h, hok := length(attrs["height"])
	switch {
	case wok && hok:
	case vb != nil:
		if !wok {
			w = vb[2]
		}
		if !hok {
			h = vb[3]
		}
	default:
		return nil, state{}, errors.New("svg has neither width and height nor a viewBox")
	}

	ctm := mgl64.Ident3()
	if vb != nil {
		ctm = mgl64.Scale2D(w/vb[2], h/vb[3]).Mul3(mgl64.Translate2D(-vb[0], -vb[1]))
	}
	root := &Node{Kind: Container, ID: attrs["id"]}
	st := state{node: root, ctm: ctm, fill: black}
	c, ok, err := fillOf(attrs)
	if err != nil {
		return nil, state{}, err
	}
	if ok {
		st.fill = c
	}
	return &Drawing{Width: w, Height: h, Root: root}, st, nil
}

func (parent state) child(name string, attrs map[string]string) (state, error) {
	t, err := parseTransform(attrs["transform"])
	if err != nil {
		return state{}, err
	}
	st := state{ctm: parent.ctm.Mul3(t), fill: parent.fill}
	c, ok, err := fillOf(attrs)
	if err != nil {
		return state{}, err
	}
	if ok {
		st.fill = c
	}

	var rings [][]mgl64.Vec2
	switch name {
	case "g", "a", "svg":
		st.node = &Node{Kind: Group, ID: attrs["id"]}
		parent.node.Children = append(parent.node.Children, st.node)
		return st, nil
	case "polygon", "polyline":
		rings, err = parsePoints(attrs["points"])
	case "rect":
		rings, err = parseRect(attrs)
	case "path":
		rings, err = parsePath(attrs["d"])
	default:
		return state{skip: true}, nil
	}
	if err != nil {
		return state{}, err
	}

	for _, ring := range rings {
		for i, p := range ring {
			v := st.ctm.Mul3x1(mgl64.Vec3{p.X(), p.Y(), 1})
			ring[i] = mgl64.Vec2{v.X(), v.Y()}
		}
	}
	n := &Node{Kind: Polygon, ID: attrs["id"], Rings: rings, Fill: st.fill}
	parent.node.Children = append(parent.node.Children, n)
	return state{node: n, skip: true}, nil
}

var number = regexp.MustCompile(`[-+]?(?:\d+\.?\d*|\.\d+)(?:[eE][-+]?\d+)?`)

// numbers returns every number in s, ignoring separators.
func numbers(s string) []float64 {
	var out []float64
	for _, f := range number.FindAllString(s, -1) {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			continue
		}
		out = append(out, v)
	}
	return out
}

// Points per unit for the absolute length units.
var units = map[string]float64{
	"":   1,
	"px": 1,
	"pt": 1,
	"pc": 12,
	"in": 72,
	"cm": 72 / 2.54,
	"mm": 72 / 25.4,
}

// length parses an absolute length into points.
func length(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	i := strings.LastIndexFunc(s, func(r rune) bool { return r >= '0' && r <= '9' || r == '.' }) + 1
	scale, ok := units[strings.TrimSpace(s[i:])]
	if !ok {
		return 0, false
	}
	v, err := strconv.ParseFloat(s[:i], 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v * scale, true
}

var transformOp = regexp.MustCompile(`(\w+)\s*\(([^)]*)\)`)

// parseTransform composes an SVG transform list, left to right.
func parseTransform(s string) (mgl64.Mat3, error) {
	m := mgl64.Ident3()
	for _, op := range transformOp.FindAllStringSubmatch(s, -1) {
		args := numbers(op[2])
		arg := func(i int, def float64) float64 {
			if i < len(args) {
				return args[i]
			}
			return def
		}
		var t mgl64.Mat3
		switch op[1] {
		case "translate":
			t = mgl64.Translate2D(arg(0, 0), arg(1, 0))
		case "scale":
			t = mgl64.Scale2D(arg(0, 1), arg(1, arg(0, 1)))
		case "rotate":
			cx, cy := arg(1, 0), arg(2, 0)
			t = mgl64.Translate2D(cx, cy).
				Mul3(mgl64.HomogRotate2D(mgl64.DegToRad(arg(0, 0)))).
				Mul3(mgl64.Translate2D(-cx, -cy))
		case "skewX":
			t = mgl64.Mat3{1, 0, 0, math.Tan(mgl64.DegToRad(arg(0, 0))), 1, 0, 0, 0, 1}
		case "skewY":
			t = mgl64.Mat3{1, math.Tan(mgl64.DegToRad(arg(0, 0))), 0, 0, 1, 0, 0, 0, 1}
		case "matrix":
			if len(args) != 6 {
				return m, fmt.Errorf("matrix needs 6 values, got %q", op[2])
			}
			t = mgl64.Mat3{args[0], args[1], 0, args[2], args[3], 0, args[4], args[5], 1}
		default:
			return m, fmt.Errorf("unknown transform %q", op[1])
		}
		m = m.Mul3(t)
	}
	return m, nil
}

func parsePoints(s string) ([][]mgl64.Vec2, error) {
	v := numbers(s)
	if len(v)%2 != 0 {
		return nil, fmt.Errorf("odd number of coordinates in points %q", s)
	}
	ring := make([]mgl64.Vec2, 0, len(v)/2)
	for i := 0; i < len(v); i += 2 {
		ring = append(ring, mgl64.Vec2{v[i], v[i+1]})
	}
	return [][]mgl64.Vec2{ring}, nil
}

func parseRect(attrs map[string]string) ([][]mgl64.Vec2, error) {
	get := func(name string) float64 {
		v, _ := strconv.ParseFloat(strings.TrimSpace(attrs[name]), 64)
		return v
	}
	x, y, w, h := get("x"), get("y"), get("width"), get("height")
	if w < 0 || h < 0 {
		return nil, fmt.Errorf("negative rect size %vx%v", w, h)
	}
	return [][]mgl64.Vec2{{{x, y}, {x + w, y}, {x + w, y + h}, {x, y + h}}}, nil
}

var pathToken = regexp.MustCompile(`[A-Za-z]|[-+]?(?:\d+\.?\d*|\.\d+)(?:[eE][-+]?\d+)?`)

// parsePath converts path data made of straight segments into rings.
// Every subpath is treated as closed.
func parsePath(d string) ([][]mgl64.Vec2, error) {
	var (
		rings      [][]mgl64.Vec2
		ring       []mgl64.Vec2
		cur, start mgl64.Vec2
		cmd        byte
	)
	closeRing := func() {
		if len(ring) >= 3 {
			rings = append(rings, ring)
		}
		ring = nil
	}

	toks := pathToken.FindAllString(d, -1)
	for i := 0; i < len(toks); {
		if c := toks[i][0]; c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z' {
			i++
			switch c {
			case 'Z', 'z':
				closeRing()
				cur, cmd = start, 0
				continue
			case 'M', 'm', 'L', 'l', 'H', 'h', 'V', 'v':
				cmd = c
			default:
				return nil, fmt.Errorf("unsupported path command %q", string(c))
			}
		}
		if cmd == 0 {
			return nil, fmt.Errorf("path data %q: number without a command", d)
		}

		n := 2
		if cmd == 'H' || cmd == 'h' || cmd == 'V' || cmd == 'v' {
			n = 1
		}
		if i+n > len(toks) {
			return nil, fmt.Errorf("path data %q: command %q is missing values", d, string(cmd))
		}
		var args [2]float64
		for j := 0; j < n; j++ {
			v, err := strconv.ParseFloat(toks[i+j], 64)
			if err != nil {
				return nil, fmt.Errorf("path data %q: %w", d, err)
			}
			args[j] = v
		}
		i += n

		rel := cmd >= 'a'
		var p mgl64.Vec2
		switch cmd {
		case 'M', 'm', 'L', 'l':
			p = mgl64.Vec2{args[0], args[1]}
			if rel {
				p = p.Add(cur)
			}
		case 'H', 'h':
			p = mgl64.Vec2{args[0], cur.Y()}
			if rel {
				p[0] += cur.X()
			}
		case 'V', 'v':
			p = mgl64.Vec2{cur.X(), args[0]}
			if rel {
				p[1] += cur.Y()
			}
		}
		if cmd == 'M' || cmd == 'm' {
			closeRing()
			start = p
			// Further pairs after a moveto are linetos.
			if cmd == 'M' {
				cmd = 'L'
			} else {
				cmd = 'l'
			}
		}
		ring = append(ring, p)
		cur = p
	}
	closeRing()
	return rings, nil
}

// fillOf returns the fill set on an element, preferring its style. It
// reports false when the element inherits its fill.
func fillOf(attrs map[string]string) (color.RGBA, bool, error) {
	v, ok := attrs["fill"]
	for _, decl := range strings.Split(attrs["style"], ";") {
		if k, sv, found := strings.Cut(decl, ":"); found && strings.TrimSpace(k) == "fill" {
			v, ok = sv, true
		}
	}
	if !ok {
		return color.RGBA{}, false, nil
	}
	switch s := strings.ToLower(strings.TrimSpace(v)); s {
	case "", "inherit", "currentcolor":
		return color.RGBA{}, false, nil
	default:
		c, err := parseColor(s)
		if err != nil {
			return color.RGBA{}, false, err
		}
		return c, true, nil
	}
}

// parseColor understands none, the SVG color keywords, #rgb, #rrggbb,
// rgb() and rgba(). The alpha of rgba() is kept; none is fully
// transparent.
func parseColor(s string) (color.RGBA, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch {
	case s == "none" || s == "transparent":
		return color.RGBA{}, nil
	case strings.HasPrefix(s, "#"):
		hex := s[1:]
		if len(hex) == 3 {
			hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
		}
		v, err := strconv.ParseUint(hex, 16, 32)
		if len(hex) != 6 || err != nil {
			return color.RGBA{}, fmt.Errorf("bad color %q", s)
		}
		return color.RGBA{uint8(v >> 16), uint8(v >> 8), uint8(v), 0xff}, nil
	case strings.HasPrefix(s, "rgb(") || strings.HasPrefix(s, "rgba("):
		return parseRGB(s)
	}
	if c, ok := colornames.Map[s]; ok {
		return c, nil
	}
	return color.RGBA{}, fmt.Errorf("unknown color %q", s)
}

// parseRGB reads rgb(r,g,b) and rgba(r,g,b,a). Channels are 0-255 or
// percentages; alpha is 0-1 or a percentage.
func parseRGB(s string) (color.RGBA, error) {
	fn, args, ok := strings.Cut(s, "(")
	if !ok || !strings.HasSuffix(args, ")") {
		return color.RGBA{}, fmt.Errorf("bad color %q", s)
	}
	parts := strings.Split(strings.TrimSuffix(args, ")"), ",")
	if want := len(fn); len(parts) != want {
		return color.RGBA{}, fmt.Errorf("%v() wants %v values, got %q", fn, want, s)
	}

	var c [4]uint8
	c[3] = 0xff
	for i, p := range parts {
		p = strings.TrimSpace(p)
		scale := 1.0
		if i == 3 {
			scale = 255
		}
		if strings.HasSuffix(p, "%") {
			p, scale = strings.TrimSuffix(p, "%"), 255.0/100
		}
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return color.RGBA{}, fmt.Errorf("bad color %q", s)
		}
		c[i] = uint8(math.Round(math.Max(0, math.Min(255, v*scale))))
	}
	return color.RGBA{c[0], c[1], c[2], c[3]}, nil
}
