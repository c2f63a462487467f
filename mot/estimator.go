package mot

// Estimator is the per-track motion model.
// Every Track owns exactly one Estimator; estimators are never shared.
type Estimator interface {
	// Predict advances state by one frame and returns predicted box
	Predict() Rectangle
	// Update corrects state with measured box
	Update(measurement Rectangle) error
	// State returns current box estimate
	State() Rectangle
	// Velocity returns (vx, vy) per frame
	Velocity() Velocity
	// SizeVelocity returns (vw, vh) per frame
	SizeVelocity() (float64, float64)
}

// DiagonalEstimator is a constant-velocity filter for a box.
// State vector: [x, y, w, h, vx, vy, vw, vh].
//
// Uncertainty is a diagonal (per-dimension scalar) instead of a full covariance
// matrix: each of x, y, w, h gets its own gain and cross-dimension correlations
// (e.g. x with vx) are not modelled. See KalmanEstimator for the full filter.
type DiagonalEstimator struct {
	state       [8]float64
	uncertainty [8]float64
	params      NoiseParams
}

// NewDiagonalEstimator creates estimator positioned at bbox with zero velocity.
func NewDiagonalEstimator(bbox Rectangle, params NoiseParams) *DiagonalEstimator {
	est := DiagonalEstimator{
		state:  [8]float64{bbox.X, bbox.Y, bbox.Width, bbox.Height, 0, 0, 0, 0},
		params: params,
	}
	for i := 0; i < 4; i++ {
		est.uncertainty[i] = params.InitialPositionUncertainty
		est.uncertainty[i+4] = params.InitialVelocityUncertainty
	}
	return &est
}

// Predict executes position += velocity and inflates position uncertainty by process noise
func (est *DiagonalEstimator) Predict() Rectangle {
	for i := 0; i < 4; i++ {
		est.state[i] += est.state[i+4]
		est.uncertainty[i] += est.params.ProcessNoise
	}
	return est.State()
}

// Update applies scalar gain K = P / (P + R) for every position dimension independently.
// Always returns nil.
func (est *DiagonalEstimator) Update(measurement Rectangle) error {
	z := [4]float64{measurement.X, measurement.Y, measurement.Width, measurement.Height}
	for i := 0; i < 4; i++ {
		p := est.uncertainty[i]
		k := p / (p + est.params.MeasurementNoise)
		innovation := z[i] - est.state[i]
		est.state[i] += k * innovation
		est.state[i+4] += k * innovation * est.params.VelocityGain
		est.uncertainty[i] *= (1 - k)
		est.uncertainty[i+4] *= est.params.VelocityUncertaintyDecay
	}
	return nil
}

// State returns current box estimate
func (est *DiagonalEstimator) State() Rectangle {
	return Rectangle{
		X:      est.state[0],
		Y:      est.state[1],
		Width:  est.state[2],
		Height: est.state[3],
	}
}

// Velocity returns (vx, vy)
func (est *DiagonalEstimator) Velocity() Velocity {
	return Velocity{X: est.state[4], Y: est.state[5]}
}

// SizeVelocity returns (vw, vh)
func (est *DiagonalEstimator) SizeVelocity() (float64, float64) {
	return est.state[6], est.state[7]
}

// Uncertainty returns copy of per-dimension uncertainty [x, y, w, h, vx, vy, vw, vh]
func (est *DiagonalEstimator) Uncertainty() [8]float64 {
	return est.uncertainty
}
