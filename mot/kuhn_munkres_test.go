package mot

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// bestTotal enumerates every permutation of square matrix
func bestTotal(matrix [][]float64) float64 {
	n := len(matrix)
	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}
	best := assignmentTotal(matrix, perm)
	var permute func(k int)
	permute = func(k int) {
		if k == n {
			if total := assignmentTotal(matrix, perm); total > best {
				best = total
			}
			return
		}
		for i := k; i < n; i++ {
			perm[k], perm[i] = perm[i], perm[k]
			permute(k + 1)
			perm[k], perm[i] = perm[i], perm[k]
		}
	}
	permute(0)
	return best
}

func assertPermutation(t *testing.T, rowToCol []int, n int) {
	t.Helper()
	require.Len(t, rowToCol, n)
	seen := make(map[int]struct{}, n)
	for row, col := range rowToCol {
		assert.True(t, col >= 0 && col < n, "row %d assigned to column %d out of range", row, col)
		_, dup := seen[col]
		assert.False(t, dup, "column %d assigned twice", col)
		seen[col] = struct{}{}
	}
}

func TestSolveMaxAssignmentTwoByTwo(t *testing.T) {
	t.Parallel()

	similarity := [][]float64{
		{0.90, 0.80},
		{0.85, 0.10},
	}
	rowToCol := solveMaxAssignment(similarity)
	assert.Equal(t, []int{1, 0}, rowToCol)
	assert.InDelta(t, 1.65, assignmentTotal(similarity, rowToCol), eps)
}

func TestSolveMaxAssignmentMatchesBruteForce(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(42))
	for size := 1; size <= 6; size++ {
		for trial := 0; trial < 30; trial++ {
			similarity := make([][]float64, size)
			for i := range similarity {
				similarity[i] = make([]float64, size)
				for j := range similarity[i] {
					// Coarse values give plenty of ties
					similarity[i][j] = float64(rng.Intn(5)) / 4.0
				}
			}
			rowToCol := solveMaxAssignment(similarity)
			assertPermutation(t, rowToCol, size)
			assert.InDelta(t, bestTotal(similarity), assignmentTotal(similarity, rowToCol), eps,
				"size %d trial %d: %v", size, trial, similarity)
		}
	}
}

func TestKuhnMunkresMinRectangularPadding(t *testing.T) {
	t.Parallel()

	// Last row is padding
	cost := [][]float64{
		{4, 1, 3},
		{2, 0, 5},
		{0, 0, 0},
	}
	rowToCol := kuhnMunkresMin(cost)
	assertPermutation(t, rowToCol, 3)
	assert.InDelta(t, 3.0, assignmentTotal(cost, rowToCol), eps)
}

func TestPermutationFromRejectsInconsistentResult(t *testing.T) {
	t.Parallel()

	matrix := [][]float64{
		{0.90, 0.80},
		{0.85, 0.10},
	}

	// Value reported for (1,1) is not in the matrix
	_, ok := permutationFrom(map[int]map[int]float64{0: {0: 0.9}, 1: {1: 0.8}}, matrix)
	assert.False(t, ok)

	// Column used twice
	_, ok = permutationFrom(map[int]map[int]float64{0: {0: 0.9}, 1: {0: 0.85}}, matrix)
	assert.False(t, ok)

	// Missing row
	_, ok = permutationFrom(map[int]map[int]float64{0: {1: 0.8}}, matrix)
	assert.False(t, ok)

	// Several columns for one row
	_, ok = permutationFrom(map[int]map[int]float64{0: {0: 0.9, 1: 0.8}, 1: {1: 0.1}}, matrix)
	assert.False(t, ok)

	// Out of range column
	_, ok = permutationFrom(map[int]map[int]float64{0: {2: 0.9}, 1: {1: 0.1}}, matrix)
	assert.False(t, ok)

	rowToCol, ok := permutationFrom(map[int]map[int]float64{0: {1: 0.8}, 1: {0: 0.85}}, matrix)
	require.True(t, ok)
	assert.Equal(t, []int{1, 0}, rowToCol)

	_, ok = permutationFrom(nil, matrix)
	assert.False(t, ok)
}

func TestAssociateHungarianBeatsGreedyTotal(t *testing.T) {
	t.Parallel()

	// Greedy grabs the cheapest pair (0,0) and strands track 1
	cost := [][]float64{
		{0.05, 0.10, 0.60},
		{0.10, 0.65, 0.90},
		{0.60, 0.20, 0.15},
	}
	greedy := Associate(cost, 3, 0.7, MatchingAlgorithmGreedy)
	optimal := Associate(cost, 3, 0.7, MatchingAlgorithmHungarian)

	assert.Equal(t, [][2]int{{0, 0}, {2, 2}, {1, 1}}, greedy.Matches)
	assert.Equal(t, [][2]int{{0, 1}, {1, 0}, {2, 2}}, optimal.Matches)
	assert.Empty(t, optimal.UnmatchedTracks)

	total := func(matches [][2]int) float64 {
		sum := 0.0
		for _, m := range matches {
			sum += 1.0 - cost[m[0]][m[1]]
		}
		return sum
	}
	assert.InDelta(t, 2.15, total(greedy.Matches), eps)
	assert.InDelta(t, 2.65, total(optimal.Matches), eps)
}
