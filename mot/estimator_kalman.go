package mot

import (
	kalman_filter "github.com/LdDl/kalman-filter"
	"github.com/pkg/errors"
)

// KalmanEstimator uses 8-D Kalman filter with full covariance for bounding box dynamics.
// State vector: [cx, cy, w, h, vx, vy, vw, vh] - center position, size, and velocities.
// It is slower than DiagonalEstimator but models cross-dimension correlations.
type KalmanEstimator struct {
	current Rectangle
	tracker *kalman_filter.KalmanBBox
}

// NewKalmanEstimator creates a new KalmanEstimator positioned at bbox.
func NewKalmanEstimator(bbox Rectangle, params KalmanParams) *KalmanEstimator {
	center := bbox.Center()

	// No control input: pure constant-velocity model
	uCx := 0.0
	uCy := 0.0
	uW := 0.0
	uH := 0.0
	kf := kalman_filter.NewKalmanBBox(
		params.Dt, uCx, uCy, uW, uH,
		params.StdDevA, params.StdDevM, params.StdDevM, params.StdDevM, params.StdDevM,
		kalman_filter.WithStateBBox(center.X, center.Y, bbox.Width, bbox.Height),
	)
	return &KalmanEstimator{
		current: bbox,
		tracker: kf,
	}
}

// Predict executes Kalman filter prediction step
func (est *KalmanEstimator) Predict() Rectangle {
	est.tracker.Predict()
	est.current = est.stateBBox()
	return est.current
}

// Update executes Kalman filter update step
func (est *KalmanEstimator) Update(measurement Rectangle) error {
	center := measurement.Center()
	err := est.tracker.Update(center.X, center.Y, measurement.Width, measurement.Height)
	if err != nil {
		return errors.Wrap(err, "Can't update kalman filter")
	}
	est.current = est.stateBBox()
	return nil
}

// State returns current box estimate
func (est *KalmanEstimator) State() Rectangle {
	return est.current
}

// Velocity returns (vx, vy) of box center
func (est *KalmanEstimator) Velocity() Velocity {
	vx, vy, _, _ := est.tracker.GetVelocity()
	return Velocity{X: vx, Y: vy}
}

// SizeVelocity returns (vw, vh)
func (est *KalmanEstimator) SizeVelocity() (float64, float64) {
	_, _, vw, vh := est.tracker.GetVelocity()
	return vw, vh
}

func (est *KalmanEstimator) stateBBox() Rectangle {
	cx, cy, w, h := est.tracker.GetState()
	return Rectangle{
		X:      cx - w/2.0,
		Y:      cy - h/2.0,
		Width:  w,
		Height: h,
	}
}
