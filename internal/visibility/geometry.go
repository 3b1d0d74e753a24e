package visibility

import (
	"fmt"
	"strconv"
	"strings"
)

// Rect is a cell-addressed rectangle in content coordinates: X counts
// columns, Y counts lines from the top of the scrollable content.
type Rect struct {
	X, Y int
	W, H int
}

// Area returns W*H, or 0 for degenerate rectangles.
func (r Rect) Area() int {
	if r.W <= 0 || r.H <= 0 {
		return 0
	}
	return r.W * r.H
}

// Contains reports whether the cell at (x, y) lies inside r.
func (r Rect) Contains(x, y int) bool {
	return x >= r.X && x < r.X+r.W && y >= r.Y && y < r.Y+r.H
}

// Intersect returns the overlap of r and o; the result has zero area when
// they do not overlap.
func (r Rect) Intersect(o Rect) Rect {
	x0, y0 := max(r.X, o.X), max(r.Y, o.Y)
	x1, y1 := min(r.X+r.W, o.X+o.W), min(r.Y+r.H, o.Y+o.H)
	if x1 <= x0 || y1 <= y0 {
		return Rect{X: x0, Y: y0}
	}
	return Rect{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}

// Grow extends r by m on each side. Negative margins shrink it.
func (r Rect) Grow(m Margin) Rect {
	out := Rect{
		X: r.X - m.Left,
		Y: r.Y - m.Top,
		W: r.W + m.Left + m.Right,
		H: r.H + m.Top + m.Bottom,
	}
	out.W = max(out.W, 0)
	out.H = max(out.H, 0)
	return out
}

// Margin grows (or shrinks) the root region before intersecting.
type Margin struct {
	Top, Right, Bottom, Left int
}

// ParseMargin reads the CSS margin shorthand with one to four values,
// e.g. "0px", "2px 0", "1 2 3", "1px 2px 3px 4px". One px is one cell.
func ParseMargin(value string) (Margin, error) {
	fields := strings.Fields(value)
	if len(fields) == 0 || len(fields) > 4 {
		return Margin{}, fmt.Errorf("margin %q: want 1 to 4 values", value)
	}
	vals := make([]int, len(fields))
	for i, f := range fields {
		n, err := strconv.Atoi(strings.TrimSuffix(strings.ToLower(f), "px"))
		if err != nil {
			return Margin{}, fmt.Errorf("margin %q: bad length %q", value, f)
		}
		vals[i] = n
	}
	switch len(vals) {
	case 1:
		return Margin{vals[0], vals[0], vals[0], vals[0]}, nil
	case 2:
		return Margin{vals[0], vals[1], vals[0], vals[1]}, nil
	case 3:
		return Margin{vals[0], vals[1], vals[2], vals[1]}, nil
	default:
		return Margin{vals[0], vals[1], vals[2], vals[3]}, nil
	}
}

// intersectionRatio is the visible fraction of el inside root. A zero-area
// element counts as fully visible when its origin lies inside root.
func intersectionRatio(el, root Rect) float64 {
	area := el.Area()
	if area == 0 {
		if root.Contains(el.X, el.Y) {
			return 1
		}
		return 0
	}
	return float64(el.Intersect(root).Area()) / float64(area)
}
