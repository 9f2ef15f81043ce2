package transport

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"
)

// makeWAV builds a 16-bit PCM mono WAVE file of the given length. Amplitude
// ramps so peak extraction has something to measure.
func makeWAV(t *testing.T, seconds float64, sampleRate int) []byte {
	t.Helper()

	frames := int(seconds * float64(sampleRate))
	dataSize := frames * 2

	var buf bytes.Buffer
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+dataSize))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // mono
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate*2)) // byte rate
	binary.Write(&buf, binary.LittleEndian, uint16(2))            // block align
	binary.Write(&buf, binary.LittleEndian, uint16(16))           // bits per sample

	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(dataSize))
	for i := 0; i < frames; i++ {
		sample := int16(float64(i) / float64(frames) * 30000)
		binary.Write(&buf, binary.LittleEndian, sample)
	}

	return buf.Bytes()
}

func TestDecodeWAV(t *testing.T) {
	data := makeWAV(t, 2.0, 1000)

	clip, err := decodeWAV(data, 100)
	if err != nil {
		t.Fatalf("Failed to decode WAV: %v", err)
	}
	if math.Abs(clip.durationSec-2.0) > 0.01 {
		t.Errorf("Expected duration 2.0, got %f", clip.durationSec)
	}
	if len(clip.peaks) < 100 {
		t.Errorf("Expected at least 100 peaks, got %d", len(clip.peaks))
	}
	for i, p := range clip.peaks {
		if p < 0 || p > 1 {
			t.Errorf("Peak %d out of range [0,1]: %f", i, p)
		}
	}
	// Amplitude ramps up, so the last peak must exceed the first.
	if clip.peaks[len(clip.peaks)-1] <= clip.peaks[0] {
		t.Errorf("Expected rising peaks, got first=%f last=%f",
			clip.peaks[0], clip.peaks[len(clip.peaks)-1])
	}
}

func TestDecodeWAV_Rejects(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"not riff", []byte("this is not a wav file, not even close")},
		{"truncated header", []byte("RIFF1234WAVE")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := decodeWAV(tt.data, 100); err == nil {
				t.Error("Expected error, got nil")
			}
		})
	}
}

func TestLoadAudio(t *testing.T) {
	tr := New(nil)
	if err := tr.LoadAudio(makeWAV(t, 10, 1000)); err != nil {
		t.Fatalf("Failed to load audio: %v", err)
	}
	if math.Abs(tr.DurationSec()-10) > 0.01 {
		t.Errorf("Expected duration 10, got %f", tr.DurationSec())
	}
	if len(tr.Peaks()) == 0 {
		t.Error("Expected peaks after load")
	}
	if tr.IsPlaying() {
		t.Error("Load must not start playback")
	}
}

func TestLoadAudio_ResetsLoopAndPosition(t *testing.T) {
	tr := New(nil)
	if err := tr.LoadAudio(makeWAV(t, 10, 1000)); err != nil {
		t.Fatalf("Failed to load audio: %v", err)
	}
	tr.Seek(5)
	tr.SetLoopStart(2)
	tr.SetLoopEnd(4)

	if err := tr.LoadAudio(makeWAV(t, 6, 1000)); err != nil {
		t.Fatalf("Failed to reload audio: %v", err)
	}
	if tr.CurrentTimeSec() != 0 {
		t.Errorf("Expected playhead reset, got %f", tr.CurrentTimeSec())
	}
	if tr.LoopEnabled() {
		t.Error("Expected loop cleared by new load")
	}
	if _, _, ok := tr.LoopRegion(); ok {
		t.Error("Expected loop region cleared by new load")
	}
}

func TestSeek_Clamps(t *testing.T) {
	tr := New(nil)
	tr.LoadAudio(makeWAV(t, 10, 1000))

	tr.Seek(-5)
	if tr.CurrentTimeSec() != 0 {
		t.Errorf("Expected clamp to 0, got %f", tr.CurrentTimeSec())
	}
	tr.Seek(100)
	if math.Abs(tr.CurrentTimeSec()-10) > 0.01 {
		t.Errorf("Expected clamp to duration, got %f", tr.CurrentTimeSec())
	}
}

func TestSeek_NoAudioStaysAtZero(t *testing.T) {
	tr := New(nil)
	tr.Seek(42)
	if tr.CurrentTimeSec() != 0 {
		t.Errorf("Expected 0 with no audio loaded, got %f", tr.CurrentTimeSec())
	}
}

func TestLoop_SeekToEndWraps(t *testing.T) {
	tr := New(nil)
	tr.LoadAudio(makeWAV(t, 10, 1000))
	tr.SetLoopStart(2)
	tr.SetLoopEnd(6)

	if !tr.LoopEnabled() {
		t.Fatal("Setting loop end should enable looping")
	}

	// Seeking to exactly the loop end wraps to the loop start.
	tr.Seek(6)
	if got := tr.CurrentTimeSec(); math.Abs(got-2) > 1e-9 {
		t.Errorf("Expected wrap to loop start 2, got %f", got)
	}

	// Overshoot past the end carries into the wrapped position.
	tr.Seek(6.5)
	if got := tr.CurrentTimeSec(); math.Abs(got-2.5) > 1e-9 {
		t.Errorf("Expected wrap to 2.5, got %f", got)
	}
}

func TestLoop_SeekBeforeStartDisables(t *testing.T) {
	tr := New(nil)
	tr.LoadAudio(makeWAV(t, 10, 1000))
	tr.SetLoopStart(2)
	tr.SetLoopEnd(6)

	tr.Seek(1.9)
	if tr.LoopEnabled() {
		t.Error("Seeking before the loop start should disable looping")
	}
	if got := tr.CurrentTimeSec(); math.Abs(got-1.9) > 1e-9 {
		t.Errorf("Expected playhead at 1.9, got %f", got)
	}
}

func TestLoop_ReordersBounds(t *testing.T) {
	tr := New(nil)
	tr.LoadAudio(makeWAV(t, 10, 1000))
	tr.SetLoopStart(8)
	tr.SetLoopEnd(3)

	start, end, ok := tr.LoopRegion()
	if !ok {
		t.Fatal("Expected loop region set")
	}
	if start != 3 || end != 8 {
		t.Errorf("Expected reordered region [3,8], got [%f,%f]", start, end)
	}
}

func TestToggleAndClearLoop(t *testing.T) {
	tr := New(nil)
	tr.LoadAudio(makeWAV(t, 10, 1000))
	tr.SetLoopEnd(5)

	tr.ToggleLoop()
	if tr.LoopEnabled() {
		t.Error("Expected loop disabled after toggle")
	}
	tr.ToggleLoop()
	if !tr.LoopEnabled() {
		t.Error("Expected loop re-enabled after toggle")
	}

	tr.ClearLoop()
	if tr.LoopEnabled() {
		t.Error("Expected loop disabled after clear")
	}
	if _, _, ok := tr.LoopRegion(); ok {
		t.Error("Expected loop region cleared")
	}
}

func TestPlay_RequiresAudio(t *testing.T) {
	tr := New(nil)
	tr.Play()
	if tr.IsPlaying() {
		t.Error("Play without audio must be a no-op")
	}
}

func TestPlayPause(t *testing.T) {
	tr := New(nil)
	tr.LoadAudio(makeWAV(t, 10, 1000))

	tr.Play()
	if !tr.IsPlaying() {
		t.Fatal("Expected playing after Play")
	}
	tr.Pause()
	if tr.IsPlaying() {
		t.Fatal("Expected paused after Pause")
	}

	// The playhead holds its position across pause.
	pos := tr.CurrentTimeSec()
	if pos2 := tr.CurrentTimeSec(); pos2 != pos {
		t.Errorf("Paused playhead drifted from %f to %f", pos, pos2)
	}
}

func TestFrameClock(t *testing.T) {
	c := NewFrameClock()
	if c.NowSec() != 0 {
		t.Errorf("Expected new clock at 0, got %f", c.NowSec())
	}

	c.SeekSec(3)
	if c.NowSec() != 3 {
		t.Errorf("Expected 3 after seek, got %f", c.NowSec())
	}

	c.SeekSec(-1)
	if c.NowSec() != 0 {
		t.Errorf("Expected negative seek clamped to 0, got %f", c.NowSec())
	}

	c.Start()
	if !c.IsRunning() {
		t.Error("Expected running after Start")
	}
	c.Stop()
	if c.IsRunning() {
		t.Error("Expected stopped after Stop")
	}
}
