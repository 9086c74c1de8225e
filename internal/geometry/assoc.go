package geometry

// Associate finds the best-matching person box for a detection box by
// maximum IoU. Returns the index into persons, or -1 when no box
// exceeds minIoU. With minIoU of 0 any positive overlap qualifies.
//
// Ties go to the lower index so association is deterministic for a
// fixed input ordering.
func Associate(box Rect, persons []Rect, minIoU float64) int {
	best := -1
	bestIoU := minIoU
	for i, p := range persons {
		v := IoU(box, p)
		if v > bestIoU {
			best = i
			bestIoU = v
		}
	}
	return best
}
