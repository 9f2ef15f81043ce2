// Package route derives the directional transition overlay: for each dancer,
// an arrow from the current main formation to the next one. Move pictures
// shape the interpolated path but never anchor an arrow.
package route

import (
	"math"
	"sort"

	"github.com/plorberg/Choreo/internal/models"
	"github.com/plorberg/Choreo/internal/timeline"
)

type Arrow struct {
	DancerID string      `json:"dancerId"`
	From     models.Vec2 `json:"from"`
	To       models.Vec2 `json:"to"`
}

// Compute returns one arrow per dancer connecting the anchoring main picture
// to the next main picture.
//
// The anchor is the selected picture when selectedID is non-empty, otherwise
// the picture active at currentSec (the latest picture whose start time is at
// or before it). Either way a Move anchor resolves backward to its preceding
// Main picture. When the anchor is the last main picture the result is empty:
// there is nothing left to transition to.
func Compute(pictures []models.Picture, selectedID string, currentSec float64, starts []float64) []Arrow {
	if len(pictures) < 2 {
		return nil
	}
	if len(starts) != len(pictures) {
		starts = timeline.StartTimes(pictures)
	}

	from := anchorIndex(pictures, selectedID, currentSec, starts)
	from = resolveToMain(pictures, from)
	if from < 0 {
		return nil
	}

	to := nextMain(pictures, from)
	if to < 0 {
		return nil
	}

	fromPose := timeline.ResolvePose(pictures, from)
	toPose := timeline.ResolvePose(pictures, to)

	arrows := make([]Arrow, 0, len(fromPose))
	for _, id := range unionIDs(fromPose, toPose) {
		src, srcOK := fromPose[id]
		dst, dstOK := toPose[id]
		if !srcOK && !dstOK {
			continue
		}
		if !srcOK {
			src = dst
		}
		if !dstOK {
			dst = src
		}
		if !finite(src) || !finite(dst) {
			continue
		}
		arrows = append(arrows, Arrow{DancerID: id, From: src, To: dst})
	}
	return arrows
}

func anchorIndex(pictures []models.Picture, selectedID string, currentSec float64, starts []float64) int {
	if selectedID != "" {
		for i := range pictures {
			if pictures[i].ID == selectedID {
				return i
			}
		}
	}
	idx := 0
	for i := range starts {
		if starts[i] <= currentSec {
			idx = i
		}
	}
	return idx
}

func resolveToMain(pictures []models.Picture, idx int) int {
	for i := idx; i >= 0; i-- {
		if pictures[i].Kind != models.KindMove {
			return i
		}
	}
	return -1
}

func nextMain(pictures []models.Picture, from int) int {
	for i := from + 1; i < len(pictures); i++ {
		if pictures[i].Kind != models.KindMove {
			return i
		}
	}
	return -1
}

func unionIDs(a, b map[string]models.Vec2) []string {
	seen := make(map[string]bool, len(a)+len(b))
	ids := make([]string, 0, len(a)+len(b))
	for id := range a {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	for id := range b {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

func finite(v models.Vec2) bool {
	return !math.IsNaN(v.X) && !math.IsInf(v.X, 0) &&
		!math.IsNaN(v.Y) && !math.IsInf(v.Y, 0)
}
