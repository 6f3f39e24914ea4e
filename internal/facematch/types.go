// Package facematch holds helpers shared by the attendance service, storage and web handlers:
// person name normalization for search and face box geometry.
package facematch

// FaceBox is a detected face in relative (0-1) image coordinates
type FaceBox struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Area returns the fraction of the image covered by the box.
func (b FaceBox) Area() float64 {
	return b.W * b.H
}
