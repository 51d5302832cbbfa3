package core

// VisibilityStatus classifies the outcome of a visibility evaluation.
type VisibilityStatus int

const (
	// VisibilityVisible means the target is inside the FOV and range.
	VisibilityVisible VisibilityStatus = iota
	// VisibilityDegenerate means no forward-looking viewing angle exists
	// (behind the sensor plane, on it, or non-finite input).
	VisibilityDegenerate
	// VisibilityOutOfFOV means an axis angle exceeds half its FOV extent.
	VisibilityOutOfFOV
	// VisibilityOutOfRange means the distance exceeds the range limit.
	VisibilityOutOfRange
)

func (s VisibilityStatus) String() string {
	switch s {
	case VisibilityVisible:
		return "visible"
	case VisibilityDegenerate:
		return "degenerate"
	case VisibilityOutOfFOV:
		return "out_of_fov"
	case VisibilityOutOfRange:
		return "out_of_range"
	default:
		return "unknown"
	}
}

// VisibilityResult is the detailed answer to a visibility query. Angles and
// Distance are populated even when the target is not visible; for a
// degenerate result Angles holds whatever the arctangent produced.
type VisibilityResult struct {
	Status   VisibilityStatus
	Angles   ViewingAngles
	Distance float64
}

// Visible reports whether the status is VisibilityVisible.
func (r VisibilityResult) Visible() bool {
	return r.Status == VisibilityVisible
}
