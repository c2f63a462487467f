package mot

import (
	"fmt"
	"math"

	"github.com/pkg/errors"
)

// Detection is a single detector output for the current frame.
type Detection struct {
	Class string    `json:"class"`
	Score float64   `json:"score"`
	BBox  Rectangle `json:"bbox"`
}

// Validate rejects detections the tracker can't reason about:
// non-finite coordinates, negative size or score outside [0,1].
// Zero-area boxes are valid.
func (d Detection) Validate() error {
	if !d.BBox.IsFinite() {
		return errors.Errorf("bbox has non-finite component: %v", d.BBox)
	}
	if d.BBox.Width < 0 || d.BBox.Height < 0 {
		return errors.Errorf("bbox has negative size: %v", d.BBox)
	}
	if math.IsNaN(d.Score) || d.Score < 0 || d.Score > 1 {
		return errors.Errorf("score must be in [0,1], got %v", d.Score)
	}
	return nil
}

// TrackRecord is what Tracker reports for a CONFIRMED or LOST track.
type TrackRecord struct {
	ID       uint64     `json:"id"`
	BBox     Rectangle  `json:"bbox"`
	Velocity Velocity   `json:"velocity"`
	Class    string     `json:"class"`
	State    TrackState `json:"state"`
	Age      int        `json:"age"`
}

// FormatID formats track identifier for display, e.g. 7 -> "T-0007".
// Identifiers wider than 4 digits are not truncated.
func FormatID(id uint64) string {
	return fmt.Sprintf("T-%04d", id)
}
