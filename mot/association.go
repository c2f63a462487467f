package mot

// Assignment is the result of matching rows (tracks) to columns (detections) of a cost matrix.
type Assignment struct {
	// Pairs of {trackIndex, detectionIndex}
	Matches [][2]int
	// Track indices left without detection, ascending
	UnmatchedTracks []int
	// Detection indices left without track, ascending
	UnmatchedDetections []int
}

// CostMatrix builds matrix with one row per track box and one column per detection box.
// Cost is 1 - IoU.
func CostMatrix(trackBBoxes []Rectangle, detectionBBoxes []Rectangle) [][]float64 {
	costMatrix := make([][]float64, len(trackBBoxes))
	for i, trkBox := range trackBBoxes {
		row := make([]float64, len(detectionBBoxes))
		for j, detBox := range detectionBBoxes {
			row[j] = 1.0 - IoU(trkBox, detBox)
		}
		costMatrix[i] = row
	}
	return costMatrix
}

// Associate matches tracks to detections. Pairs with cost above maxCost are never matched.
// numDetections is needed since cost matrix without rows carries no column count.
func Associate(costMatrix [][]float64, numDetections int, maxCost float64, algorithm MatchingAlgorithm) Assignment {
	var matches [][2]int
	if len(costMatrix) > 0 && numDetections > 0 {
		switch algorithm {
		case MatchingAlgorithmHungarian:
			matches = hungarianMatching(costMatrix, numDetections, maxCost)
		default:
			matches = greedyMatching(costMatrix, numDetections, maxCost)
		}
	}
	return newAssignment(matches, len(costMatrix), numDetections)
}

// greedyMatching accepts pairs in ascending cost order while neither side is claimed.
// Stops at the first pair above maxCost: no cheaper pairs remain after it.
func greedyMatching(costMatrix [][]float64, numDetections int, maxCost float64) [][2]int {
	pairs := make(costHeap, 0, len(costMatrix)*numDetections)
	for i, row := range costMatrix {
		for j := 0; j < numDetections; j++ {
			pairs = append(pairs, costPair{track: i, detection: j, cost: row[j]})
		}
	}
	pairs.init()

	matches := make([][2]int, 0)
	claimedTracks := make(map[int]struct{})
	claimedDetections := make(map[int]struct{})
	for pairs.Len() > 0 {
		pair := pairs.Pop()
		if pair.cost > maxCost {
			break
		}
		if _, found := claimedTracks[pair.track]; found {
			continue
		}
		if _, found := claimedDetections[pair.detection]; found {
			continue
		}
		claimedTracks[pair.track] = struct{}{}
		claimedDetections[pair.detection] = struct{}{}
		matches = append(matches, [2]int{pair.track, pair.detection})
	}
	return matches
}

// hungarianMatching maximizes total similarity (1 - cost) over the whole matrix, then drops pairs above maxCost.
// Matches are ordered by track index.
func hungarianMatching(costMatrix [][]float64, numDetections int, maxCost float64) [][2]int {
	numTracks := len(costMatrix)
	// Pad rectangular matrix to square with zero similarity
	paddedSize := maxInt(numTracks, numDetections)
	paddedMatrix := make([][]float64, paddedSize)
	for i := 0; i < paddedSize; i++ {
		paddedMatrix[i] = make([]float64, paddedSize)
		if i >= numTracks {
			continue
		}
		for j := 0; j < numDetections; j++ {
			paddedMatrix[i][j] = 1.0 - costMatrix[i][j]
		}
	}

	rowToCol := solveMaxAssignment(paddedMatrix)
	matches := make([][2]int, 0, numTracks)
	for trackIndex := 0; trackIndex < numTracks; trackIndex++ {
		detectionIndex := rowToCol[trackIndex]
		// Padding column
		if detectionIndex >= numDetections {
			continue
		}
		if costMatrix[trackIndex][detectionIndex] > maxCost {
			continue
		}
		matches = append(matches, [2]int{trackIndex, detectionIndex})
	}
	return matches
}

func newAssignment(matches [][2]int, numTracks, numDetections int) Assignment {
	matchedTracks := make([]bool, numTracks)
	matchedDetections := make([]bool, numDetections)
	for _, match := range matches {
		matchedTracks[match[0]] = true
		matchedDetections[match[1]] = true
	}
	assignment := Assignment{
		Matches:             matches,
		UnmatchedTracks:     make([]int, 0),
		UnmatchedDetections: make([]int, 0),
	}
	if assignment.Matches == nil {
		assignment.Matches = make([][2]int, 0)
	}
	for i, matched := range matchedTracks {
		if !matched {
			assignment.UnmatchedTracks = append(assignment.UnmatchedTracks, i)
		}
	}
	for j, matched := range matchedDetections {
		if !matched {
			assignment.UnmatchedDetections = append(assignment.UnmatchedDetections, j)
		}
	}
	return assignment
}
