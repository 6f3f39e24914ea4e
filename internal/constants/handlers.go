package constants

import "time"

// Handler pagination constants
const (
	// DefaultAttendanceListLimit is the number of attendance records returned when no limit is given
	DefaultAttendanceListLimit = 100
)

// File upload constants
const (
	// MaxUploadSize is the maximum photo upload size in bytes (20MB)
	MaxUploadSize = 20 << 20

	// MultipartMemory is the part of a multipart form kept in memory, the rest spills to disk
	MultipartMemory = 8 << 20
)

// Server timeouts
const (
	// RequestTimeout bounds a single request including the embedding server round trip
	RequestTimeout = 2 * time.Minute

	// ShutdownTimeout is the grace period for in-flight requests on shutdown
	ShutdownTimeout = 30 * time.Second
)
