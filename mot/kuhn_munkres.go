package mot

import (
	"math"

	"github.com/arthurkushman/go-hungarian"
)

// solveMaxAssignment returns, for every row of square similarity matrix, the column assigned to it
// so that total similarity is maximal.
//
// hungarian.SolveMax result is accepted only when it is a permutation whose reported values match
// the matrix and whose total is optimal; otherwise the Kuhn-Munkres pass below decides.
func solveMaxAssignment(similarity [][]float64) []int {
	optimal := kuhnMunkresMin(negate(similarity))
	if candidate, ok := permutationFrom(librarySolveMax(similarity), similarity); ok {
		if assignmentTotal(similarity, candidate) >= assignmentTotal(similarity, optimal)-1e-9 {
			return candidate
		}
	}
	return optimal
}

// librarySolveMax runs hungarian.SolveMax. A panic inside the library yields nil.
func librarySolveMax(similarity [][]float64) (assignments map[int]map[int]float64) {
	defer func() {
		if r := recover(); r != nil {
			assignments = nil
		}
	}()
	return hungarian.SolveMax(similarity)
}

// permutationFrom converts map[row]map[column]value into row -> column slice.
// Returns false when a row has no or several columns, a column is reused,
// an index is out of range or a reported value differs from the matrix.
func permutationFrom(assignments map[int]map[int]float64, matrix [][]float64) ([]int, bool) {
	n := len(matrix)
	if len(assignments) != n {
		return nil, false
	}
	rowToCol := make([]int, n)
	usedColumns := make([]bool, n)
	for row := 0; row < n; row++ {
		columns, found := assignments[row]
		if !found || len(columns) != 1 {
			return nil, false
		}
		for col, value := range columns {
			if col < 0 || col >= n || usedColumns[col] {
				return nil, false
			}
			if math.Abs(matrix[row][col]-value) > 1e-9 {
				return nil, false
			}
			usedColumns[col] = true
			rowToCol[row] = col
		}
	}
	return rowToCol, true
}

func assignmentTotal(matrix [][]float64, rowToCol []int) float64 {
	total := 0.0
	for row, col := range rowToCol {
		total += matrix[row][col]
	}
	return total
}

func negate(matrix [][]float64) [][]float64 {
	negated := make([][]float64, len(matrix))
	for i, row := range matrix {
		negated[i] = make([]float64, len(row))
		for j, value := range row {
			negated[i][j] = -value
		}
	}
	return negated
}

// kuhnMunkresMin solves minimum-cost assignment of square matrix with row/column potentials in O(n^3).
// Returns row -> column.
func kuhnMunkresMin(cost [][]float64) []int {
	n := len(cost)
	// 1-based: index 0 is a virtual column
	u := make([]float64, n+1)
	v := make([]float64, n+1)
	p := make([]int, n+1)
	way := make([]int, n+1)
	minv := make([]float64, n+1)
	used := make([]bool, n+1)

	for i := 1; i <= n; i++ {
		p[0] = i
		j0 := 0
		for j := range minv {
			minv[j] = math.Inf(1)
			used[j] = false
		}
		for {
			used[j0] = true
			i0 := p[j0]
			delta := math.Inf(1)
			j1 := 0
			for j := 1; j <= n; j++ {
				if used[j] {
					continue
				}
				cur := cost[i0-1][j-1] - u[i0] - v[j]
				if cur < minv[j] {
					minv[j] = cur
					way[j] = j0
				}
				if minv[j] < delta {
					delta = minv[j]
					j1 = j
				}
			}
			for j := 0; j <= n; j++ {
				if used[j] {
					u[p[j]] += delta
					v[j] -= delta
				} else {
					minv[j] -= delta
				}
			}
			j0 = j1
			if p[j0] == 0 {
				break
			}
		}
		// Flip augmenting path
		for j0 != 0 {
			j1 := way[j0]
			p[j0] = p[j1]
			j0 = j1
		}
	}

	rowToCol := make([]int, n)
	for j := 1; j <= n; j++ {
		if p[j] != 0 {
			rowToCol[p[j]-1] = j - 1
		}
	}
	return rowToCol
}
