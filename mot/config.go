package mot

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// MatchingAlgorithm is for algorithm type for matching detections to tracks
type MatchingAlgorithm uint16

const (
	// MatchingAlgorithmGreedy accepts least-cost pairs first. Fast, but may pick suboptimal pairs in dense scenes
	MatchingAlgorithmGreedy MatchingAlgorithm = iota
	// MatchingAlgorithmHungarian uses the Hungarian algorithm (Kuhn-Munkres) for optimal assignment
	MatchingAlgorithmHungarian
)

func (algorithm MatchingAlgorithm) String() string {
	switch algorithm {
	case MatchingAlgorithmGreedy:
		return "greedy"
	case MatchingAlgorithmHungarian:
		return "hungarian"
	default:
		return "unknown"
	}
}

// ParseMatchingAlgorithm returns algorithm by its name ("greedy" or "hungarian")
func ParseMatchingAlgorithm(name string) (MatchingAlgorithm, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "greedy":
		return MatchingAlgorithmGreedy, nil
	case "hungarian":
		return MatchingAlgorithmHungarian, nil
	default:
		return 0, errors.Errorf("unknown matching algorithm %q", name)
	}
}

// EstimatorKind selects state estimator implementation for new tracks
type EstimatorKind uint16

const (
	// EstimatorDiagonal is the constant-velocity filter with per-dimension uncertainty
	EstimatorDiagonal EstimatorKind = iota
	// EstimatorKalman is the full-covariance 8-D Kalman filter
	EstimatorKalman
)

func (kind EstimatorKind) String() string {
	switch kind {
	case EstimatorDiagonal:
		return "diagonal"
	case EstimatorKalman:
		return "kalman"
	default:
		return "unknown"
	}
}

// ParseEstimatorKind returns estimator kind by its name ("diagonal" or "kalman")
func ParseEstimatorKind(name string) (EstimatorKind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "diagonal":
		return EstimatorDiagonal, nil
	case "kalman":
		return EstimatorKalman, nil
	default:
		return 0, errors.Errorf("unknown estimator %q", name)
	}
}

// NoiseParams configures DiagonalEstimator.
type NoiseParams struct {
	// Starting uncertainty of x, y, w, h
	InitialPositionUncertainty float64
	// Starting uncertainty of vx, vy, vw, vh
	InitialVelocityUncertainty float64
	// Added to position uncertainty on each prediction
	ProcessNoise float64
	// R in K = P / (P + R)
	MeasurementNoise float64
	// Multiplier applied to velocity uncertainty on each update
	VelocityUncertaintyDecay float64
	// Share of the innovation fed into velocity
	VelocityGain float64
}

// KalmanParams configures KalmanEstimator.
type KalmanParams struct {
	// Time step between frames
	Dt float64
	// Standard deviation of acceleration (process noise)
	StdDevA float64
	// Standard deviation of measurement for every box component
	StdDevM float64
}

// Config holds tracker parameters
type Config struct {
	// Frames a LOST track may stay unmatched before removal
	MaxAge int
	// Consecutive hits needed to promote TENTATIVE track
	HitsToConfirm int
	// Minimal IoU for a track/detection pair to be matched
	IoUThreshold float64
	// Detections with score below are low-confidence ones
	HighThreshold float64
	// Lower bound for reported width and height
	MinBoxSize float64
	// Algorithm to use for matching
	Algorithm MatchingAlgorithm
	// Estimator for new tracks
	Estimator EstimatorKind
	Noise     NoiseParams
	Kalman    KalmanParams
}

// DefaultConfig returns tracker configuration with default parameters.
func DefaultConfig() Config {
	return Config{
		MaxAge:        30,
		HitsToConfirm: 3,
		IoUThreshold:  0.3,
		HighThreshold: 0.5,
		MinBoxSize:    0.001,
		Algorithm:     MatchingAlgorithmGreedy,
		Estimator:     EstimatorDiagonal,
		Noise: NoiseParams{
			InitialPositionUncertainty: 10.0,
			InitialVelocityUncertainty: 1000.0,
			ProcessNoise:               1.0,
			MeasurementNoise:           1.0,
			VelocityUncertaintyDecay:   0.99,
			VelocityGain:               0.5,
		},
		Kalman: KalmanParams{
			Dt:      1.0,
			StdDevA: 0.01,
			StdDevM: 0.01,
		},
	}
}

// Validate checks that parameters are usable
func (cfg Config) Validate() error {
	if cfg.MaxAge < 0 {
		return errors.Errorf("max age must be non-negative, got %d", cfg.MaxAge)
	}
	if cfg.HitsToConfirm < 1 {
		return errors.Errorf("hits to confirm must be at least 1, got %d", cfg.HitsToConfirm)
	}
	if cfg.IoUThreshold < 0 || cfg.IoUThreshold > 1 {
		return errors.Errorf("IoU threshold must be in [0,1], got %f", cfg.IoUThreshold)
	}
	if cfg.HighThreshold < 0 || cfg.HighThreshold > 1 {
		return errors.Errorf("high threshold must be in [0,1], got %f", cfg.HighThreshold)
	}
	if cfg.MinBoxSize <= 0 {
		return errors.Errorf("min box size must be positive, got %f", cfg.MinBoxSize)
	}
	if cfg.Algorithm != MatchingAlgorithmGreedy && cfg.Algorithm != MatchingAlgorithmHungarian {
		return errors.Errorf("unknown matching algorithm %d", cfg.Algorithm)
	}
	switch cfg.Estimator {
	case EstimatorDiagonal:
		if cfg.Noise.MeasurementNoise <= 0 {
			return errors.Errorf("measurement noise must be positive, got %f", cfg.Noise.MeasurementNoise)
		}
		if cfg.Noise.InitialPositionUncertainty < 0 || cfg.Noise.ProcessNoise < 0 {
			return errors.New("position uncertainty and process noise must be non-negative")
		}
	case EstimatorKalman:
		if cfg.Kalman.Dt <= 0 {
			return errors.Errorf("kalman dt must be positive, got %f", cfg.Kalman.Dt)
		}
		if cfg.Kalman.StdDevM <= 0 {
			return errors.Errorf("kalman measurement deviation must be positive, got %f", cfg.Kalman.StdDevM)
		}
	default:
		return errors.Errorf("unknown estimator %d", cfg.Estimator)
	}
	return nil
}

// TuningFile is the JSON representation of Config. Omitted fields keep defaults.
type TuningFile struct {
	MaxAge        *int     `json:"max_age,omitempty"`
	HitsToConfirm *int     `json:"hits_to_confirm,omitempty"`
	IoUThreshold  *float64 `json:"iou_threshold,omitempty"`
	HighThreshold *float64 `json:"high_threshold,omitempty"`
	MinBoxSize    *float64 `json:"min_box_size,omitempty"`
	Algorithm     *string  `json:"algorithm,omitempty"` // "greedy" or "hungarian"
	Estimator     *string  `json:"estimator,omitempty"` // "diagonal" or "kalman"

	// Diagonal estimator
	InitialPositionUncertainty *float64 `json:"initial_position_uncertainty,omitempty"`
	InitialVelocityUncertainty *float64 `json:"initial_velocity_uncertainty,omitempty"`
	ProcessNoise               *float64 `json:"process_noise,omitempty"`
	MeasurementNoise           *float64 `json:"measurement_noise,omitempty"`
	VelocityUncertaintyDecay   *float64 `json:"velocity_uncertainty_decay,omitempty"`
	VelocityGain               *float64 `json:"velocity_gain,omitempty"`

	// Kalman estimator
	KalmanDt      *float64 `json:"kalman_dt,omitempty"`
	KalmanStdDevA *float64 `json:"kalman_std_dev_a,omitempty"`
	KalmanStdDevM *float64 `json:"kalman_std_dev_m,omitempty"`
}

// NewTuningFile returns file representation with every field of cfg set
func NewTuningFile(cfg Config) TuningFile {
	algorithm := cfg.Algorithm.String()
	estimator := cfg.Estimator.String()
	noise := cfg.Noise
	kalman := cfg.Kalman
	return TuningFile{
		MaxAge:                     &cfg.MaxAge,
		HitsToConfirm:              &cfg.HitsToConfirm,
		IoUThreshold:               &cfg.IoUThreshold,
		HighThreshold:              &cfg.HighThreshold,
		MinBoxSize:                 &cfg.MinBoxSize,
		Algorithm:                  &algorithm,
		Estimator:                  &estimator,
		InitialPositionUncertainty: &noise.InitialPositionUncertainty,
		InitialVelocityUncertainty: &noise.InitialVelocityUncertainty,
		ProcessNoise:               &noise.ProcessNoise,
		MeasurementNoise:           &noise.MeasurementNoise,
		VelocityUncertaintyDecay:   &noise.VelocityUncertaintyDecay,
		VelocityGain:               &noise.VelocityGain,
		KalmanDt:                   &kalman.Dt,
		KalmanStdDevA:              &kalman.StdDevA,
		KalmanStdDevM:              &kalman.StdDevM,
	}
}

// Apply overrides cfg fields present in the file
func (tf *TuningFile) Apply(cfg *Config) error {
	setInt(&cfg.MaxAge, tf.MaxAge)
	setInt(&cfg.HitsToConfirm, tf.HitsToConfirm)
	setFloat(&cfg.IoUThreshold, tf.IoUThreshold)
	setFloat(&cfg.HighThreshold, tf.HighThreshold)
	setFloat(&cfg.MinBoxSize, tf.MinBoxSize)
	if tf.Algorithm != nil {
		algorithm, err := ParseMatchingAlgorithm(*tf.Algorithm)
		if err != nil {
			return err
		}
		cfg.Algorithm = algorithm
	}
	if tf.Estimator != nil {
		kind, err := ParseEstimatorKind(*tf.Estimator)
		if err != nil {
			return err
		}
		cfg.Estimator = kind
	}
	setFloat(&cfg.Noise.InitialPositionUncertainty, tf.InitialPositionUncertainty)
	setFloat(&cfg.Noise.InitialVelocityUncertainty, tf.InitialVelocityUncertainty)
	setFloat(&cfg.Noise.ProcessNoise, tf.ProcessNoise)
	setFloat(&cfg.Noise.MeasurementNoise, tf.MeasurementNoise)
	setFloat(&cfg.Noise.VelocityUncertaintyDecay, tf.VelocityUncertaintyDecay)
	setFloat(&cfg.Noise.VelocityGain, tf.VelocityGain)
	setFloat(&cfg.Kalman.Dt, tf.KalmanDt)
	setFloat(&cfg.Kalman.StdDevA, tf.KalmanStdDevA)
	setFloat(&cfg.Kalman.StdDevM, tf.KalmanStdDevM)
	return nil
}

func setInt(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}

func setFloat(dst *float64, src *float64) {
	if src != nil {
		*dst = *src
	}
}

// LoadConfig reads JSON tuning file on top of DefaultConfig and validates the result.
// The file must have .json extension and be under 1MB.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return cfg, errors.Errorf("config file must have .json extension, got %q", ext)
	}
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return cfg, errors.Wrap(err, "can't stat config file")
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return cfg, errors.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}
	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return cfg, errors.Wrap(err, "can't read config file")
	}
	var tf TuningFile
	if err := json.Unmarshal(data, &tf); err != nil {
		return cfg, errors.Wrap(err, "can't parse config file")
	}
	if err := tf.Apply(&cfg); err != nil {
		return cfg, errors.Wrap(err, "invalid config file")
	}
	if err := cfg.Validate(); err != nil {
		return cfg, errors.Wrap(err, "invalid config")
	}
	return cfg, nil
}
