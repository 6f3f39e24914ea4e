package database

import (
	"errors"
	"maps"
	"slices"
	"sort"
	"sync"

	"github.com/coder/hnsw"
	"github.com/kozaktomas/attendance/internal/matcher"
)

// EnrollmentIndex wraps an HNSW graph over usable enrollments, keyed by student ID.
// It answers "who is closest to this face" for duplicate checks without a table scan.
//
// Deletes are lazy: the student leaves byID while its node stays in the graph and is
// filtered out of search results. A key that is added again, or too many stale nodes,
// rebuild the graph from byID.
type EnrollmentIndex struct {
	graph    *hnsw.Graph[string]
	byID     map[string]*StoredEnrollment
	inGraph  map[string]struct{} // keys with a node in graph, including stale ones
	dim      int
	metric   string
	distance matcher.DistanceFunc
	mu       sync.RWMutex
}

// NewEnrollmentIndex creates a new empty index for the given metric.
func NewEnrollmentIndex(metric string) *EnrollmentIndex {
	return &EnrollmentIndex{
		byID:     make(map[string]*StoredEnrollment),
		inGraph:  make(map[string]struct{}),
		metric:   metric,
		distance: matcher.DistanceByName(metric),
	}
}

// newGraph creates a graph configured for the index metric.
func (h *EnrollmentIndex) newGraph() *hnsw.Graph[string] {
	g := hnsw.NewGraph[string]()
	g.M = HNSWMaxNeighbors
	g.Ml = 1.0 / float64(HNSWMaxNeighbors) // Standard HNSW formula
	g.EfSearch = HNSWEfSearch
	if h.metric == matcher.MetricCosine {
		g.Distance = hnsw.CosineDistance
	} else {
		g.Distance = hnsw.EuclideanDistance
	}
	return g
}

// Build replaces the index content with the usable enrollments.
// The dimension of the first usable enrollment fixes the index dimension.
func (h *EnrollmentIndex) Build(enrollments []StoredEnrollment) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.reset()
	for i := range enrollments {
		h.addLocked(&enrollments[i])
	}
}

// Upsert adds or replaces the enrollment of a student.
// Unusable enrollments remove the student from the index.
func (h *EnrollmentIndex) Upsert(e *StoredEnrollment) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.deleteLocked(e.StudentID)
	h.addLocked(e)
}

// Delete removes a student from the index.
func (h *EnrollmentIndex) Delete(studentID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.deleteLocked(studentID)
}

func (h *EnrollmentIndex) reset() {
	h.graph = nil
	h.dim = 0
	h.byID = make(map[string]*StoredEnrollment)
	h.inGraph = make(map[string]struct{})
}

func (h *EnrollmentIndex) addLocked(e *StoredEnrollment) {
	if !e.Usable() {
		return
	}
	if h.dim == 0 {
		h.dim = len(e.Embedding)
	}
	if len(e.Embedding) != h.dim {
		return // graph requires a single dimension
	}

	copied := *e
	copied.Embedding = slices.Clone(e.Embedding)
	h.byID[e.StudentID] = &copied

	// hnsw cannot replace a node in place, a returning key needs a fresh graph.
	if _, stale := h.inGraph[e.StudentID]; stale {
		h.rebuildLocked()
		return
	}
	if h.graph == nil {
		h.graph = h.newGraph()
	}
	h.graph.Add(hnsw.MakeNode(copied.StudentID, copied.Embedding))
	h.inGraph[copied.StudentID] = struct{}{}
}

func (h *EnrollmentIndex) deleteLocked(studentID string) {
	if _, ok := h.byID[studentID]; !ok {
		return
	}
	delete(h.byID, studentID)

	switch {
	case len(h.byID) == 0:
		h.reset()
	case len(h.inGraph)-len(h.byID) > max(len(h.byID), HNSWMinSearch):
		h.rebuildLocked()
	}
}

// rebuildLocked recreates the graph from byID in student ID order.
func (h *EnrollmentIndex) rebuildLocked() {
	h.graph = nil
	h.inGraph = make(map[string]struct{}, len(h.byID))
	if len(h.byID) == 0 {
		h.dim = 0
		return
	}

	h.graph = h.newGraph()
	for _, id := range slices.Sorted(maps.Keys(h.byID)) {
		e := h.byID[id]
		h.graph.Add(hnsw.MakeNode(id, e.Embedding))
		h.inGraph[id] = struct{}{}
	}
}

// Nearest returns up to k student IDs closest to the query, nearest first,
// together with their exact distances under the index metric.
func (h *EnrollmentIndex) Nearest(query []float32, k int) ([]string, []float64, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.graph == nil || len(h.byID) == 0 {
		return nil, nil, nil
	}
	if len(query) != h.dim {
		return nil, nil, errors.New("query dimension does not match index")
	}

	// Stale nodes are filtered below, ask for enough candidates to cover them.
	stale := len(h.inGraph) - len(h.byID)
	neighbors := h.graph.Search(query, max(k, HNSWMinSearch)+stale)

	type hit struct {
		id   string
		dist float64
	}
	hits := make([]hit, 0, len(neighbors))
	for _, n := range neighbors {
		if _, ok := h.byID[n.Key]; !ok {
			continue
		}
		// Recompute with our own distance so results agree with the matcher.
		hits = append(hits, hit{id: n.Key, dist: h.distance(query, n.Value)})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].dist < hits[j].dist })
	if len(hits) > k {
		hits = hits[:k]
	}

	ids := make([]string, len(hits))
	distances := make([]float64, len(hits))
	for i, hh := range hits {
		ids[i] = hh.id
		distances[i] = hh.dist
	}
	return ids, distances, nil
}

// Count returns the number of indexed enrollments.
func (h *EnrollmentIndex) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.byID)
}
