package database

// HNSW index parameters for face embeddings
const (
	// HNSWMaxNeighbors (M) is the maximum number of neighbors per node.
	// Higher values improve recall but increase memory and build time.
	HNSWMaxNeighbors = 16

	// HNSWEfSearch is the search candidate pool size.
	// Higher values improve recall but slow down search.
	HNSWEfSearch = 100

	// HNSWMinSearch is the minimum number of candidates requested from the graph.
	HNSWMinSearch = 10
)

// DefaultAttendanceLimit caps ListAttendance when no limit is given
const DefaultAttendanceLimit = 500
