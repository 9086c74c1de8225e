// Package geometry provides axis-aligned bounding-box math for the
// tracking and scoring pipeline: centers, intersection-over-union,
// containment tests and detection association. All functions are pure.
package geometry

// Rect is an axis-aligned rectangle in frame pixel coordinates.
// Invariant for well-formed rects: X1 < X2 and Y1 < Y2.
type Rect struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

// Valid reports whether the rect has positive width and height.
func (r Rect) Valid() bool {
	return r.X1 < r.X2 && r.Y1 < r.Y2
}

// Width returns the horizontal extent of the rect.
func (r Rect) Width() float64 { return r.X2 - r.X1 }

// Height returns the vertical extent of the rect.
func (r Rect) Height() float64 { return r.Y2 - r.Y1 }

// Area returns the rect area, or 0 for degenerate rects.
func (r Rect) Area() float64 {
	if !r.Valid() {
		return 0
	}
	return r.Width() * r.Height()
}

// Center returns the midpoint of the rect.
func Center(r Rect) (x, y float64) {
	return (r.X1 + r.X2) / 2, (r.Y1 + r.Y2) / 2
}

// IoU computes the intersection-over-union of two rects in [0, 1].
// Disjoint or degenerate rects yield 0.
func IoU(a, b Rect) float64 {
	ix1 := max(a.X1, b.X1)
	iy1 := max(a.Y1, b.Y1)
	ix2 := min(a.X2, b.X2)
	iy2 := min(a.Y2, b.Y2)

	if ix1 >= ix2 || iy1 >= iy2 {
		return 0
	}

	intersection := (ix2 - ix1) * (iy2 - iy1)
	union := a.Area() + b.Area() - intersection
	if union <= 0 {
		return 0
	}
	return intersection / union
}

// ContainsCenter reports whether the center of box lies within zone,
// bounds inclusive. A center exactly on the zone edge counts as inside.
func ContainsCenter(zone, box Rect) bool {
	cx, cy := Center(box)
	return zone.X1 <= cx && cx <= zone.X2 && zone.Y1 <= cy && cy <= zone.Y2
}

// TouchesEdge reports whether box comes within margin fraction of any
// border of a frame with the given dimensions. A margin of 0.05 means
// within 5% of the frame width (horizontally) or height (vertically).
func TouchesEdge(box Rect, frameWidth, frameHeight, margin float64) bool {
	mx := frameWidth * margin
	my := frameHeight * margin
	return box.X1 <= mx || box.Y1 <= my ||
		box.X2 >= frameWidth-mx || box.Y2 >= frameHeight-my
}
