package mot

import (
	"github.com/pkg/errors"
)

// TrackState represents the lifecycle state of a track.
type TrackState string

const (
	StateTentative TrackState = "tentative" // New track, needs confirmation
	StateConfirmed TrackState = "confirmed" // Stable track, reported to consumers
	StateLost      TrackState = "lost"      // Confirmed track missing in recent frames, still reported
	StateDeleted   TrackState = "deleted"   // Track marked for removal
)

// Visible reports whether tracks in this state are exposed to consumers
func (state TrackState) Visible() bool {
	return state == StateConfirmed || state == StateLost
}

// Track is a single tracked object: an estimator, a class-vote histogram and a state machine.
//
// Transitions:
//
//	TENTATIVE --hit (hits >= hitsToConfirm)--> CONFIRMED
//	TENTATIVE --miss--> DELETED
//	CONFIRMED --miss--> LOST
//	LOST --hit--> CONFIRMED (hits reset to 1)
//
// LOST tracks are moved to DELETED by Tracker once they have been missing for too long.
type Track struct {
	id              uint64
	state           TrackState
	estimator       Estimator
	predictedBBox   Rectangle
	age             int
	timeSinceUpdate int
	consecutiveHits int
	hitsToConfirm   int
	classVotes      map[string]int
	currentClass    string
	score           float64
}

// NewTrack creates TENTATIVE track from detection. The spawning detection counts as the first hit.
func NewTrack(id uint64, detection Detection, estimator Estimator, hitsToConfirm int) *Track {
	track := Track{
		id:              id,
		state:           StateTentative,
		estimator:       estimator,
		predictedBBox:   estimator.State(),
		consecutiveHits: 1,
		hitsToConfirm:   hitsToConfirm,
		classVotes:      make(map[string]int),
		score:           detection.Score,
	}
	track.vote(detection.Class)
	if track.consecutiveHits >= track.hitsToConfirm {
		track.state = StateConfirmed
	}
	return &track
}

// GetID returns track's identifier
func (track *Track) GetID() uint64 {
	return track.id
}

// GetState returns track's lifecycle state
func (track *Track) GetState() TrackState {
	return track.state
}

// GetAge returns number of frames since creation
func (track *Track) GetAge() int {
	return track.age
}

// GetTimeSinceUpdate returns number of frames since last successful match
func (track *Track) GetTimeSinceUpdate() int {
	return track.timeSinceUpdate
}

// GetConsecutiveHits returns number of consecutive matched frames
func (track *Track) GetConsecutiveHits() int {
	return track.consecutiveHits
}

// GetClass returns the most voted class label
func (track *Track) GetClass() string {
	return track.currentClass
}

// GetClassVotes returns copy of class histogram
func (track *Track) GetClassVotes() map[string]int {
	votes := make(map[string]int, len(track.classVotes))
	for class, count := range track.classVotes {
		votes[class] = count
	}
	return votes
}

// GetScore returns confidence of last matched detection
func (track *Track) GetScore() float64 {
	return track.score
}

// GetBBox returns current box estimate
func (track *Track) GetBBox() Rectangle {
	return track.estimator.State()
}

// GetPredictedBBox returns box predicted on the last Predict call
func (track *Track) GetPredictedBBox() Rectangle {
	return track.predictedBBox
}

// GetVelocity returns (vx, vy) estimate
func (track *Track) GetVelocity() Velocity {
	return track.estimator.Velocity()
}

// Predict advances estimator by one frame
func (track *Track) Predict() {
	track.predictedBBox = track.estimator.Predict()
	track.age++
	track.timeSinceUpdate++
}

// Update corrects track with matched detection and applies hit transition
func (track *Track) Update(bbox Rectangle, class string, score float64) error {
	err := track.estimator.Update(bbox)
	if err != nil {
		return errors.Wrapf(err, "Can't update estimator of track %d", track.id)
	}
	track.timeSinceUpdate = 0
	track.consecutiveHits++
	track.score = score
	track.vote(class)

	switch track.state {
	case StateTentative:
		if track.consecutiveHits >= track.hitsToConfirm {
			track.state = StateConfirmed
		}
	case StateLost:
		track.state = StateConfirmed
		track.consecutiveHits = 1
	}
	return nil
}

// MarkMissed resets hit streak and applies miss transition
func (track *Track) MarkMissed() {
	track.consecutiveHits = 0
	switch track.state {
	case StateTentative:
		track.state = StateDeleted
	case StateConfirmed:
		track.state = StateLost
	}
}

// markDeleted is used by Tracker to drop LOST tracks which exceeded max age
func (track *Track) markDeleted() {
	track.state = StateDeleted
}

// vote records class label. Ties keep the label which reached the top count first.
func (track *Track) vote(class string) {
	track.classVotes[class]++
	if track.classVotes[class] > track.classVotes[track.currentClass] {
		track.currentClass = class
	}
}
