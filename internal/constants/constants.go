// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

// Processing constants
const (
	// WorkerPoolSize is the default number of parallel workers for enroll sync and roster import
	WorkerPoolSize = 8

	// MaxImageSize is the maximum dimension (width or height) of images sent to the embedding server
	MaxImageSize = 1920
)

// Matching constants
const (
	// DuplicateHintLimit is the number of nearest enrollments inspected for a possible duplicate
	DuplicateHintLimit = 2

	// ResponseDistanceDecimals is the precision of distances in API responses
	ResponseDistanceDecimals = 4
)
