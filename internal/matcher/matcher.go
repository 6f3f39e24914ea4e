// Package matcher selects the enrolled identity closest to a probe face embedding.
package matcher

import (
	"iter"
	"slices"
)

const (
	// DefaultThreshold is the maximum distance accepted as the same person.
	// Lower values = stricter matching.
	DefaultThreshold = 0.45

	// NoMatchDistance is the starting distance of a scan. Enrollments at or beyond
	// it never become the best candidate.
	NoMatchDistance = 1.0
)

// Enrollment pairs an identity with its reference face embedding.
// A nil or empty Vector means no embedding could be produced for the identity.
type Enrollment struct {
	Identity string
	Vector   []float32
}

// Result is the outcome of a single match.
type Result struct {
	Identity  string  // Best matching identity, empty unless Confident
	Distance  float64 // Minimum distance seen (NoMatchDistance if nothing was closer)
	Confident bool    // Distance is below the threshold
	Compared  int     // Enrollments actually compared
	Skipped   int     // Enrollments without a usable vector
}

// Matcher runs a linear nearest-neighbour scan over enrollments.
// It holds no mutable state and is safe for concurrent use.
type Matcher struct {
	threshold float64
	distance  DistanceFunc
}

// New creates a matcher. A non-positive threshold falls back to DefaultThreshold
// and a nil distance to EuclideanDistance.
func New(threshold float64, distance DistanceFunc) *Matcher {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if distance == nil {
		distance = EuclideanDistance
	}
	return &Matcher{threshold: threshold, distance: distance}
}

// Threshold returns the exclusive distance threshold.
func (m *Matcher) Threshold() float64 {
	return m.threshold
}

// Distance returns the distance between two embeddings using the matcher's metric.
func (m *Matcher) Distance(a, b []float32) float64 {
	return m.distance(a, b)
}

// Match scans the enrollments in order and returns the closest one.
func (m *Matcher) Match(probe []float32, enrollments []Enrollment) Result {
	return m.MatchSeq(probe, slices.Values(enrollments))
}

// MatchSeq is Match over an arbitrary sequence of enrollments.
// On equal distances the first enrollment seen wins.
func (m *Matcher) MatchSeq(probe []float32, enrollments iter.Seq[Enrollment]) Result {
	res := Result{Distance: NoMatchDistance}
	if len(probe) == 0 {
		return res
	}

	var best string
	found := false
	for e := range enrollments {
		if len(e.Vector) == 0 || len(e.Vector) != len(probe) {
			res.Skipped++
			continue
		}
		res.Compared++

		d := m.distance(e.Vector, probe)
		if d < res.Distance {
			res.Distance = d
			best = e.Identity
			found = true
		}
	}

	if found && res.Distance < m.threshold {
		res.Identity = best
		res.Confident = true
	}
	return res
}
