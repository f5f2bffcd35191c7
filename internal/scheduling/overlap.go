package scheduling

import "time"

// Overlaps reports whether the half-open intervals [startA, endA) and
// [startB, endB) intersect. An interval ending exactly when the other
// begins does not overlap it.
func Overlaps(startA, endA, startB, endB time.Time) bool {
	return startA.Before(endB) && startB.Before(endA)
}
