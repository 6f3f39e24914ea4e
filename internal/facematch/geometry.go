package facematch

// ConvertPixelBBoxToRelative converts pixel bbox to relative (0-1) coordinates.
// Input bbox is [x1, y1, x2, y2] in pixels, output is [x1, y1, x2, y2] in relative coords.
func ConvertPixelBBoxToRelative(bbox []float64, width, height int) []float64 {
	if len(bbox) != 4 || width <= 0 || height <= 0 {
		return bbox
	}
	return []float64{
		bbox[0] / float64(width),
		bbox[1] / float64(height),
		bbox[2] / float64(width),
		bbox[3] / float64(height),
	}
}

// RelativeFaceBox converts a pixel bbox [x1, y1, x2, y2] to a FaceBox clamped to the image.
// Returns false if the bbox or the image dimensions are invalid.
func RelativeFaceBox(bbox []float64, width, height int) (FaceBox, bool) {
	if len(bbox) != 4 || width <= 0 || height <= 0 {
		return FaceBox{}, false
	}

	rel := ConvertPixelBBoxToRelative(bbox, width, height)
	x1, y1 := clamp01(rel[0]), clamp01(rel[1])
	x2, y2 := clamp01(rel[2]), clamp01(rel[3])
	if x2 <= x1 || y2 <= y1 {
		return FaceBox{}, false
	}
	return FaceBox{X: x1, Y: y1, W: x2 - x1, H: y2 - y1}, true
}

func clamp01(v float64) float64 {
	return min(max(v, 0), 1)
}
