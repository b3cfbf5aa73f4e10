package ai

import (
	"image"
	"math"
)

// candidate is one anchor that passed the confidence threshold, before
// non-maximum suppression. Coordinates are in network-input pixels.
type candidate struct {
	X1, Y1, X2, Y2 float32
	ClassID        int
	Score          float32
}

// decodeOutput reads a YOLO detection head laid out as [channels][anchors]
// (channels = 4 box values + one score per class) and keeps every anchor
// whose best class score is above threshold.
func decodeOutput(data []float32, channels, anchors int, threshold float32) []candidate {
	if channels <= 4 || anchors <= 0 || len(data) < channels*anchors {
		return nil
	}

	var out []candidate
	for i := 0; i < anchors; i++ {
		best, bestScore := -1, float32(math.Inf(-1))
		for c := 4; c < channels; c++ {
			if score := data[c*anchors+i]; score > bestScore {
				best, bestScore = c-4, score
			}
		}
		if bestScore <= threshold {
			continue
		}

		cx, cy := data[i], data[anchors+i]
		w, h := data[2*anchors+i], data[3*anchors+i]
		out = append(out, candidate{
			X1:      cx - w/2,
			Y1:      cy - h/2,
			X2:      cx + w/2,
			Y2:      cy + h/2,
			ClassID: best,
			Score:   bestScore,
		})
	}
	return out
}

// rect returns the candidate box in network-input pixels.
func (c candidate) rect() image.Rectangle {
	return image.Rect(int(c.X1), int(c.Y1), int(c.X2), int(c.Y2))
}
