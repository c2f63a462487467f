package mot

// costPair is a candidate (track, detection) match.
type costPair struct {
	track     int
	detection int
	cost      float64
}

// Copied from container/heap - https://golang.org/pkg/container/heap/
// Why make copy? Just want to avoid type conversion

// costHeap is a min-heap of candidate pairs. Equal costs are ordered by track index, then detection index,
// so greedy matching is deterministic.
type costHeap []costPair

func (h costHeap) Len() int { return len(h) }
func (h costHeap) Less(i, j int) bool {
	if h[i].cost != h[j].cost {
		return h[i].cost < h[j].cost
	}
	if h[i].track != h[j].track {
		return h[i].track < h[j].track
	}
	return h[i].detection < h[j].detection
}
func (h costHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

// init establishes the heap invariants.
// The complexity is O(n) where n = h.Len().
func (h costHeap) init() {
	n := h.Len()
	for i := n/2 - 1; i >= 0; i-- {
		h.down(i, n)
	}
}

// Pop removes and returns the minimum element (according to Less) from the heap.
// The complexity is O(log n) where n = h.Len().
func (h *costHeap) Pop() costPair {
	n := h.Len() - 1
	h.Swap(0, n)
	h.down(0, n)
	heapSize := len(*h)
	lastNode := (*h)[heapSize-1]
	*h = (*h)[0 : heapSize-1]
	return lastNode
}

func (h costHeap) down(i0, n int) bool {
	i := i0
	for {
		j1 := 2*i + 1
		if j1 >= n || j1 < 0 {
			break
		}
		j := j1
		if j2 := j1 + 1; j2 < n && h.Less(j2, j1) {
			j = j2
		}
		if !h.Less(j, i) {
			break
		}
		h.Swap(i, j)
		i = j
	}
	return i > i0
}
