// Package clip reconciles a sequence's optional bound audio region with the
// transport's absolute clock. Consumers work entirely in sequence-relative
// seconds; the binder owns the translation and picks the right clock for the
// job: the audio transport when a clip is bound and loaded, a free-running
// frame clock otherwise.
package clip

import (
	"errors"

	"github.com/plorberg/Choreo/internal/models"
	"github.com/plorberg/Choreo/internal/timeline"
	"github.com/plorberg/Choreo/internal/transport"
)

// Playback preconditions. These are advisories, not failures: the editor
// refuses the gesture and keeps going.
var (
	ErrTooFewPictures = errors.New("sequence needs at least two pictures to play")
	ErrZeroDuration   = errors.New("sequence has no playable duration")
	ErrAudioNotLoaded = errors.New("audio clip is bound but no audio is loaded")
)

type Binder struct {
	transport *transport.Transport
	frame     *transport.FrameClock
}

func NewBinder(t *transport.Transport) *Binder {
	return &Binder{
		transport: t,
		frame:     transport.NewFrameClock(),
	}
}

// bound reports whether the sequence has a valid clip and the audio backing
// it has actually loaded. Until then the pictures-only timeline is
// authoritative.
func (b *Binder) bound(seq *models.Sequence) bool {
	return seq != nil && seq.HasMusicClip() && b.transport.DurationSec() > 0
}

// Clock returns the playhead consumers should sample for this sequence.
func (b *Binder) Clock(seq *models.Sequence) transport.Clock {
	if b.bound(seq) {
		return b.transport
	}
	return b.frame
}

// EffectiveDuration is the clip length when bound and loaded, else the
// pictures-only duration.
func (b *Binder) EffectiveDuration(seq *models.Sequence) float64 {
	if seq == nil {
		return 0
	}
	if b.bound(seq) {
		return *seq.MusicEndSec - *seq.MusicStartSec
	}
	return timeline.Duration(seq)
}

// RelativeTime maps the active clock to sequence-relative seconds, clamped
// into [0, effective duration].
func (b *Binder) RelativeTime(seq *models.Sequence) float64 {
	if seq == nil {
		return 0
	}
	abs := b.Clock(seq).NowSec()
	rel := abs
	if b.bound(seq) {
		rel = abs - *seq.MusicStartSec
	}
	dur := b.EffectiveDuration(seq)
	if rel < 0 {
		rel = 0
	}
	if rel > dur {
		rel = dur
	}
	return rel
}

// Seek converts sequence-relative seconds to the active clock's coordinate
// space and forwards it.
func (b *Binder) Seek(seq *models.Sequence, relSec float64) {
	if seq == nil {
		return
	}
	if relSec < 0 {
		relSec = 0
	}
	if dur := b.EffectiveDuration(seq); relSec > dur {
		relSec = dur
	}
	if b.bound(seq) {
		b.transport.Seek(*seq.MusicStartSec + relSec)
		return
	}
	b.frame.SeekSec(relSec)
}

// Play starts playback after checking the preconditions: at least two
// pictures, a positive effective duration, and loaded audio when a clip is
// bound.
func (b *Binder) Play(seq *models.Sequence) error {
	if seq == nil || len(seq.Pictures) < 2 {
		return ErrTooFewPictures
	}
	if seq.HasMusicClip() && b.transport.DurationSec() <= 0 {
		return ErrAudioNotLoaded
	}
	if b.EffectiveDuration(seq) <= 0 {
		return ErrZeroDuration
	}
	clock := b.Clock(seq)
	if !b.bound(seq) && clock.NowSec() >= b.EffectiveDuration(seq) {
		clock.SeekSec(0)
	}
	clock.Start()
	return nil
}

func (b *Binder) Pause(seq *models.Sequence) {
	b.Clock(seq).Stop()
}

func (b *Binder) IsPlaying(seq *models.Sequence) bool {
	return b.Clock(seq).IsRunning()
}

// ActivateSequence pushes the newly active sequence's clip bounds into the
// transport's loop region without forcing a seek, so switching sequences
// snaps the audio context without interrupting in-flight playback. Called on
// sequence switch and again when audio finishes loading (the duration 0 -> >0
// transition).
func (b *Binder) ActivateSequence(seq *models.Sequence) {
	b.frame.Stop()
	b.frame.SeekSec(0)
	if seq == nil {
		b.transport.ClearLoop()
		return
	}
	if b.bound(seq) {
		b.transport.SetLoopStart(*seq.MusicStartSec)
		b.transport.SetLoopEnd(*seq.MusicEndSec)
		return
	}
	b.transport.ClearLoop()
}

// ClipCleared reacts to a sequence losing its binding. Only the active
// sequence touches transport state.
func (b *Binder) ClipCleared(seq *models.Sequence, active bool) {
	if active {
		b.transport.ClearLoop()
	}
}

// ResetPlayback stops whichever clock is live and rewinds to the clip start.
// Used after restore/import, when the project has been replaced wholesale.
func (b *Binder) ResetPlayback(seq *models.Sequence) {
	b.frame.Stop()
	b.frame.SeekSec(0)
	b.transport.Pause()
	if b.bound(seq) {
		b.transport.Seek(*seq.MusicStartSec)
	} else {
		b.transport.Seek(0)
	}
}

// AtEnd reports that an unlooped, audio-less playback ran past the end of
// the sequence. The caller stops the clock; the frame clock itself has no
// notion of duration.
func (b *Binder) AtEnd(seq *models.Sequence) bool {
	if seq == nil || b.bound(seq) {
		return false
	}
	dur := b.EffectiveDuration(seq)
	return dur > 0 && b.frame.NowSec() >= dur
}
