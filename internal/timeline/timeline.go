// Package timeline turns a sequence of discrete pictures into a continuous,
// time-indexed pose. Every function here is pure: the playback path calls
// PoseAtTime on every tick and must never observe shared mutation.
package timeline

import (
	"math"

	"github.com/plorberg/Choreo/internal/models"
)

// moveSec returns a picture's move duration with the epsilon floor applied,
// so interpolation never divides by zero.
func moveSec(p models.Picture) float64 {
	if p.MoveSec > models.EpsilonMoveSec {
		return p.MoveSec
	}
	return models.EpsilonMoveSec
}

func holdSec(p models.Picture) float64 {
	if p.HoldSec > 0 {
		return p.HoldSec
	}
	return 0
}

// Duration returns the pictures-only length of a sequence: the sum of
// hold+move over every picture except the last. The timeline ends on arrival
// at the final picture; its hold does not extend playback.
func Duration(seq *models.Sequence) float64 {
	if seq == nil || len(seq.Pictures) < 2 {
		return 0
	}
	total := 0.0
	for i := 0; i < len(seq.Pictures)-1; i++ {
		total += holdSec(seq.Pictures[i]) + moveSec(seq.Pictures[i])
	}
	return total
}

// StartTimes returns the arrival time of each picture along the sequence's
// own timeline. The first picture arrives at zero.
func StartTimes(pictures []models.Picture) []float64 {
	starts := make([]float64, len(pictures))
	acc := 0.0
	for i := range pictures {
		starts[i] = acc
		acc += holdSec(pictures[i]) + moveSec(pictures[i])
	}
	return starts
}

// ResolvePose returns the fully gap-filled pose of the picture at idx: every
// dancer missing from its partial position map is looked up backward through
// earlier pictures, nearest definition wins.
func ResolvePose(pictures []models.Picture, idx int) map[string]models.Vec2 {
	if idx < 0 || idx >= len(pictures) {
		return nil
	}
	out := make(map[string]models.Vec2)
	for i := idx; i >= 0; i-- {
		for id, pos := range pictures[i].Positions {
			if _, ok := out[id]; !ok {
				out[id] = pos
			}
		}
	}
	return out
}

// PoseAtTime computes the dancer positions at t seconds along the sequence's
// own timeline. Returns nil if the sequence has no pictures. A sequence with
// a single picture always shows that picture's resolved pose.
//
// Between adjacent pictures a and b, time splits into a hold window, during
// which a's pose is shown verbatim, and a move window, during which each
// dancer's x and y interpolate linearly toward b. A dancer present on only
// one side stays put at the side that defines it.
func PoseAtTime(seq *models.Sequence, t float64) map[string]models.Vec2 {
	if seq == nil || len(seq.Pictures) == 0 {
		return nil
	}
	pics := seq.Pictures
	if len(pics) == 1 {
		return ResolvePose(pics, 0)
	}

	total := Duration(seq)
	t = clamp(t, 0, total)

	acc := 0.0
	for i := 0; i < len(pics)-1; i++ {
		hold := holdSec(pics[i])
		move := moveSec(pics[i])

		if t <= acc+hold {
			return ResolvePose(pics, i)
		}
		if t <= acc+hold+move {
			k := clamp((t-(acc+hold))/move, 0, 1)
			return lerpPoses(ResolvePose(pics, i), ResolvePose(pics, i+1), k)
		}
		acc += hold + move
	}
	return ResolvePose(pics, len(pics)-1)
}

// lerpPoses interpolates over the union of dancers in both resolved poses.
func lerpPoses(from, to map[string]models.Vec2, k float64) map[string]models.Vec2 {
	out := make(map[string]models.Vec2, len(from)+len(to))
	for id, a := range from {
		b, ok := to[id]
		if !ok {
			out[id] = a
			continue
		}
		out[id] = models.Vec2{
			X: a.X + (b.X-a.X)*k,
			Y: a.Y + (b.Y-a.Y)*k,
		}
	}
	for id, b := range to {
		if _, ok := from[id]; !ok {
			out[id] = b
		}
	}
	return out
}

// SegmentAt locates the picture whose outgoing window [start, start+hold+move)
// contains t. Returns the picture index and the window start, or -1 if t falls
// at or past the arrival of the last picture.
func SegmentAt(pictures []models.Picture, t float64) (int, float64) {
	if len(pictures) < 2 {
		return -1, 0
	}
	acc := 0.0
	for i := 0; i < len(pictures)-1; i++ {
		span := holdSec(pictures[i]) + moveSec(pictures[i])
		if t < acc+span {
			return i, acc
		}
		acc += span
	}
	return -1, acc
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}
