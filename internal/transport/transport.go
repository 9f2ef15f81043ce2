// Package transport owns the audio clock: play/pause/seek, a loop region,
// and clip loading with a waveform for display. It knows nothing about
// sequences or pictures; the clip binder translates between its absolute
// timeline and sequence-relative time.
package transport

import (
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"
)

// Transport is the audio-backed playhead. All state is guarded by one mutex;
// callers sample the clock once per tick and pass that single value down.
type Transport struct {
	mu sync.Mutex

	posSec    float64
	playing   bool
	startedAt time.Time

	durationSec float64
	peaks       []float64

	loopEnabled bool
	loopStart   *float64
	loopEnd     *float64

	// loadGen invalidates stale LoadAudio completions: a decode that finishes
	// after a newer load started must be discarded, not applied.
	loadGen int

	peakCount int
	logger    *slog.Logger
}

func New(logger *slog.Logger) *Transport {
	if logger == nil {
		logger = slog.Default()
	}
	return &Transport{peakCount: 1000, logger: logger}
}

// SetPeakCount adjusts waveform resolution for subsequent loads.
func (t *Transport) SetPeakCount(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if n > 0 {
		t.peakCount = n
	}
}

// LoadAudio decodes an uploaded WAV clip. Any in-flight playback is stopped
// and the loop region cleared before the new source is accepted. If another
// load starts while this one is decoding, this one's result is dropped.
func (t *Transport) LoadAudio(data []byte) error {
	t.mu.Lock()
	t.loadGen++
	gen := t.loadGen
	t.stopLocked()
	t.posSec = 0
	t.durationSec = 0
	t.peaks = nil
	t.loopEnabled = false
	t.loopStart = nil
	t.loopEnd = nil
	peakCount := t.peakCount
	t.mu.Unlock()

	clip, err := decodeWAV(data, peakCount)
	if err != nil {
		return fmt.Errorf("load audio: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if gen != t.loadGen {
		t.logger.Debug("discarding stale audio load", "generation", gen, "current", t.loadGen)
		return nil
	}
	t.durationSec = clip.durationSec
	t.peaks = clip.peaks
	t.posSec = 0
	t.logger.Info("audio loaded", "duration_sec", clip.durationSec, "peaks", len(clip.peaks))
	return nil
}

func (t *Transport) CurrentTimeSec() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.currentLocked()
}

func (t *Transport) DurationSec() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.durationSec
}

func (t *Transport) IsPlaying() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.playing
}

// Peaks returns a copy of the waveform so callers cannot alias internal state.
func (t *Transport) Peaks() []float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]float64, len(t.peaks))
	copy(out, t.peaks)
	return out
}

func (t *Transport) Play() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.playing || t.durationSec <= 0 {
		return
	}
	if t.posSec >= t.durationSec {
		t.posSec = 0
	}
	t.playing = true
	t.startedAt = time.Now()
}

func (t *Transport) Pause() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopLocked()
}

// Seek moves the playhead, clamped to [0, duration]. Seeking to the loop end
// while looped wraps to the loop start; seeking before the loop start leaves
// the region behind and disables looping rather than clamping into it.
func (t *Transport) Seek(sec float64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	sec = clampF(sec, 0, t.durationSec)
	if t.loopActiveLocked() {
		start, end := *t.loopStart, *t.loopEnd
		switch {
		case sec < start:
			t.loopEnabled = false
		case sec >= end:
			sec = start + math.Mod(sec-end, end-start)
		}
	}
	t.posSec = sec
	t.startedAt = time.Now()
}

func (t *Transport) LoopEnabled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.loopEnabled
}

// LoopRegion returns the loop bounds; ok is false when either end is unset.
func (t *Transport) LoopRegion() (start, end float64, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.loopStart == nil || t.loopEnd == nil {
		return 0, 0, false
	}
	return *t.loopStart, *t.loopEnd, true
}

func (t *Transport) SetLoopStart(sec float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	sec = clampF(sec, 0, t.durationSec)
	t.loopStart = &sec
	t.reorderLoopLocked()
}

// SetLoopEnd sets the loop end and enables looping, matching the editor
// gesture of marking B after A.
func (t *Transport) SetLoopEnd(sec float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	sec = clampF(sec, 0, t.durationSec)
	t.loopEnd = &sec
	t.reorderLoopLocked()
	t.loopEnabled = true
}

func (t *Transport) ToggleLoop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.loopEnabled = !t.loopEnabled
}

func (t *Transport) ClearLoop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.loopStart = nil
	t.loopEnd = nil
	t.loopEnabled = false
}

// Clock interface. The Transport is the audio implementation; consumers only
// ever see the interface, handed out by the clip binder.

func (t *Transport) NowSec() float64   { return t.CurrentTimeSec() }
func (t *Transport) SeekSec(s float64) { t.Seek(s) }
func (t *Transport) Start()            { t.Play() }
func (t *Transport) Stop()             { t.Pause() }
func (t *Transport) IsRunning() bool   { return t.IsPlaying() }

// currentLocked samples the playhead and applies loop wrapping. Overshoot
// past the loop end carries into the wrapped position, so tight loops do not
// drift by the sampling interval.
func (t *Transport) currentLocked() float64 {
	pos := t.posSec
	if t.playing {
		pos += time.Since(t.startedAt).Seconds()
	}

	if t.loopActiveLocked() {
		start, end := *t.loopStart, *t.loopEnd
		if pos >= end {
			pos = start + math.Mod(pos-end, end-start)
			t.posSec = pos
			t.startedAt = time.Now()
		}
		return pos
	}

	if t.durationSec > 0 && pos >= t.durationSec {
		pos = t.durationSec
		t.posSec = pos
		t.playing = false
	}
	return pos
}

func (t *Transport) stopLocked() {
	if !t.playing {
		return
	}
	t.posSec = t.currentLocked()
	t.playing = false
}

func (t *Transport) loopActiveLocked() bool {
	return t.loopEnabled && t.loopStart != nil && t.loopEnd != nil && *t.loopEnd > *t.loopStart
}

func (t *Transport) reorderLoopLocked() {
	if t.loopStart != nil && t.loopEnd != nil && *t.loopStart > *t.loopEnd {
		t.loopStart, t.loopEnd = t.loopEnd, t.loopStart
	}
}

func clampF(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
