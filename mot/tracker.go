package mot

import (
	"sort"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Stats are counters of the last Tracker.Update call.
type Stats struct {
	// Number of Update calls since creation or Reset
	Frame uint64
	// Detections passed to Update
	Detections int
	// Valid detections with score >= high threshold
	High int
	// Valid detections with score < high threshold
	Low int
	// Detections rejected by Detection.Validate
	Invalid int
	// Tracks matched in first (high confidence) stage
	MatchedHigh int
	// Tracks matched in second (low confidence) stage
	MatchedLow int
	// Tracks matched in neither stage
	Missed int
	// New tracks
	Spawned int
	// Removed tracks
	Pruned int
	// Tracks kept after pruning, any state
	Tracks int
	// Records returned
	Reported int
}

// Tracker is implementation of cascaded Multi-object tracker (MOT), inspired by ByteTrack.
// Tracker is not safe for concurrent use: exactly one Update may be in flight (see Gate).
type Tracker struct {
	cfg Config
	// Tracks in creation order
	tracks []*Track
	// Last assigned identifier
	lastID uint64
	// Changes on every Reset
	epoch uuid.UUID
	stats Stats
}

// NewTracker creates a new instance of Tracker with specified parameters.
func NewTracker(cfg Config) (*Tracker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "Can't create tracker")
	}
	return &Tracker{
		cfg:    cfg,
		tracks: make([]*Track, 0),
		epoch:  uuid.New(),
	}, nil
}

// DefaultTracker creates a Tracker with default parameters.
func DefaultTracker() *Tracker {
	tracker, err := NewTracker(DefaultConfig())
	if err != nil {
		panic("default config must be valid: " + err.Error())
	}
	return tracker
}

// Config returns tracker's parameters
func (tracker *Tracker) Config() Config {
	return tracker.cfg
}

// Epoch identifies the identifier space: id N of one epoch is unrelated to id N of another.
func (tracker *Tracker) Epoch() uuid.UUID {
	return tracker.epoch
}

// Stats returns counters of the last Update call
func (tracker *Tracker) Stats() Stats {
	return tracker.stats
}

// Tracks returns all tracks held by tracker including TENTATIVE ones, in creation order.
// Returned tracks must not be mutated.
func (tracker *Tracker) Tracks() []*Track {
	tracks := make([]*Track, len(tracker.tracks))
	copy(tracks, tracker.tracks)
	return tracks
}

// Reset drops all tracks and restarts identifiers from 1 in a new epoch.
func (tracker *Tracker) Reset() {
	tracker.tracks = make([]*Track, 0)
	tracker.lastID = 0
	tracker.epoch = uuid.New()
	tracker.stats = Stats{}
	Logf("[mot] tracker reset, epoch %s", tracker.epoch)
}

// Update runs one tracking cycle for the detections of the current frame and returns
// records of CONFIRMED and LOST tracks in creation order.
//
// Malformed detections are skipped. When an estimator fails to update, the track and the
// detection of that pair are handled as unmatched and the cycle still completes: records are
// returned together with an error wrapping the first failure.
func (tracker *Tracker) Update(detections []Detection) ([]TrackRecord, error) {
	tracker.stats = Stats{
		Frame:      tracker.stats.Frame + 1,
		Detections: len(detections),
	}

	// Predict next positions for all existing tracks
	for _, track := range tracker.tracks {
		if track.state != StateDeleted {
			track.Predict()
		}
	}

	high, low := tracker.partition(detections)
	failures := []error{}

	// 1. First stage: match all tracks with high confidence detections
	stage1 := tracker.associate(tracker.tracks, high)
	for _, match := range stage1.Matches {
		err := tracker.applyMatch(tracker.tracks[match[0]], high[match[1]])
		if err != nil {
			failures = append(failures, errors.Wrap(err, "Stage 1"))
			stage1.UnmatchedTracks = append(stage1.UnmatchedTracks, match[0])
			stage1.UnmatchedDetections = append(stage1.UnmatchedDetections, match[1])
			continue
		}
		tracker.stats.MatchedHigh++
	}
	sort.Ints(stage1.UnmatchedTracks)
	sort.Ints(stage1.UnmatchedDetections)

	// 2. Second stage: match remaining tracks with low confidence detections
	remaining := make([]*Track, 0, len(stage1.UnmatchedTracks))
	for _, idx := range stage1.UnmatchedTracks {
		remaining = append(remaining, tracker.tracks[idx])
	}
	stage2 := tracker.associate(remaining, low)
	for _, match := range stage2.Matches {
		err := tracker.applyMatch(remaining[match[0]], low[match[1]])
		if err != nil {
			failures = append(failures, errors.Wrap(err, "Stage 2"))
			stage2.UnmatchedTracks = append(stage2.UnmatchedTracks, match[0])
			continue
		}
		tracker.stats.MatchedLow++
	}
	for _, idx := range stage2.UnmatchedTracks {
		track := remaining[idx]
		previous := track.state
		track.MarkMissed()
		if previous == StateConfirmed && track.state == StateLost {
			Logf("[mot] track %s lost", FormatID(track.id))
		}
	}
	tracker.stats.Missed = len(stage2.UnmatchedTracks)

	// 3. Spawn tracks for unmatched high confidence detections. Low confidence ones never spawn
	for _, idx := range stage1.UnmatchedDetections {
		tracker.spawn(high[idx])
	}

	// 4. Remove deleted tracks and tracks which have been lost for too long
	tracker.prune()

	// 5. Assemble output
	records := make([]TrackRecord, 0, len(tracker.tracks))
	for _, track := range tracker.tracks {
		if !track.state.Visible() {
			continue
		}
		records = append(records, TrackRecord{
			ID:       track.id,
			BBox:     track.GetBBox().Clamped(tracker.cfg.MinBoxSize),
			Velocity: track.GetVelocity(),
			Class:    track.currentClass,
			State:    track.state,
			Age:      track.age,
		})
	}
	tracker.stats.Tracks = len(tracker.tracks)
	tracker.stats.Reported = len(records)
	if len(failures) > 0 {
		return records, errors.Wrapf(failures[0], "%d track update(s) failed", len(failures))
	}
	return records, nil
}

// partition splits valid detections by confidence preserving their relative order.
func (tracker *Tracker) partition(detections []Detection) ([]Detection, []Detection) {
	high := make([]Detection, 0, len(detections))
	low := make([]Detection, 0)
	for i, detection := range detections {
		if err := detection.Validate(); err != nil {
			tracker.stats.Invalid++
			Logf("[mot] skipping detection #%d in frame %d: %v", i, tracker.stats.Frame, err)
			continue
		}
		if detection.Score >= tracker.cfg.HighThreshold {
			high = append(high, detection)
		} else {
			low = append(low, detection)
		}
	}
	tracker.stats.High = len(high)
	tracker.stats.Low = len(low)
	return high, low
}

// associate matches predicted boxes of tracks with detections
func (tracker *Tracker) associate(tracks []*Track, detections []Detection) Assignment {
	trackBBoxes := make([]Rectangle, len(tracks))
	for i, track := range tracks {
		trackBBoxes[i] = track.GetPredictedBBox()
	}
	detectionBBoxes := make([]Rectangle, len(detections))
	for j, detection := range detections {
		detectionBBoxes[j] = detection.BBox
	}
	costMatrix := CostMatrix(trackBBoxes, detectionBBoxes)
	return Associate(costMatrix, len(detections), 1.0-tracker.cfg.IoUThreshold, tracker.cfg.Algorithm)
}

func (tracker *Tracker) applyMatch(track *Track, detection Detection) error {
	previous := track.state
	err := track.Update(detection.BBox, detection.Class, detection.Score)
	if err != nil {
		Logf("[mot] track %s update failed: %v", FormatID(track.id), err)
		return errors.Wrapf(err, "Can't update track %s", FormatID(track.id))
	}
	if previous != StateConfirmed && track.state == StateConfirmed {
		Logf("[mot] track %s confirmed as %q", FormatID(track.id), track.currentClass)
	}
	return nil
}

func (tracker *Tracker) spawn(detection Detection) {
	tracker.lastID++
	track := NewTrack(tracker.lastID, detection, tracker.newEstimator(detection.BBox), tracker.cfg.HitsToConfirm)
	tracker.tracks = append(tracker.tracks, track)
	tracker.stats.Spawned++
}

func (tracker *Tracker) newEstimator(bbox Rectangle) Estimator {
	switch tracker.cfg.Estimator {
	case EstimatorKalman:
		return NewKalmanEstimator(bbox, tracker.cfg.Kalman)
	default:
		return NewDiagonalEstimator(bbox, tracker.cfg.Noise)
	}
}

func (tracker *Tracker) prune() {
	kept := tracker.tracks[:0]
	for _, track := range tracker.tracks {
		if track.state == StateLost && track.timeSinceUpdate > tracker.cfg.MaxAge {
			track.markDeleted()
			Logf("[mot] track %s removed after %d missed frames", FormatID(track.id), track.timeSinceUpdate)
		}
		if track.state == StateDeleted {
			tracker.stats.Pruned++
			continue
		}
		kept = append(kept, track)
	}
	// Let removed tracks be garbage collected
	for i := len(kept); i < len(tracker.tracks); i++ {
		tracker.tracks[i] = nil
	}
	tracker.tracks = kept
}
