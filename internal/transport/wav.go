package transport

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

var errNotWAV = errors.New("not a RIFF/WAVE file")

// decodedClip is the result of decoding an uploaded audio file: the clip
// length plus a coarse peak waveform (normalized 0..1) for display.
type decodedClip struct {
	durationSec float64
	peaks       []float64
}

// decodeWAV parses a 16-bit PCM WAVE file and extracts duration and peaks.
// Peaks are chunked maxima of the absolute sample value, normalized by the
// int16 range, targeting peakCount entries across the full duration.
func decodeWAV(data []byte, peakCount int) (*decodedClip, error) {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, errNotWAV
	}

	var (
		sampleRate  int
		numChannels int
		bitsPerSamp int
		pcm         []byte
	)

	// Chunk walk: only fmt and data matter; everything else is skipped.
	off := 12
	for off+8 <= len(data) {
		id := string(data[off : off+4])
		size := int(binary.LittleEndian.Uint32(data[off+4 : off+8]))
		body := off + 8
		if body+size > len(data) {
			size = len(data) - body
		}
		switch id {
		case "fmt ":
			if size < 16 {
				return nil, fmt.Errorf("wav: truncated fmt chunk")
			}
			format := int(binary.LittleEndian.Uint16(data[body : body+2]))
			if format != 1 {
				return nil, fmt.Errorf("wav: unsupported audio format %d (PCM only)", format)
			}
			numChannels = int(binary.LittleEndian.Uint16(data[body+2 : body+4]))
			sampleRate = int(binary.LittleEndian.Uint32(data[body+4 : body+8]))
			bitsPerSamp = int(binary.LittleEndian.Uint16(data[body+14 : body+16]))
		case "data":
			pcm = data[body : body+size]
		}
		// Chunks are word-aligned.
		off = body + size
		if size%2 == 1 {
			off++
		}
	}

	if sampleRate == 0 || numChannels == 0 {
		return nil, fmt.Errorf("wav: missing fmt chunk")
	}
	if bitsPerSamp != 16 {
		return nil, fmt.Errorf("wav: unsupported bit depth %d (16-bit only)", bitsPerSamp)
	}
	if len(pcm) == 0 {
		return nil, fmt.Errorf("wav: missing data chunk")
	}

	bytesPerFrame := numChannels * 2
	frames := len(pcm) / bytesPerFrame
	if frames == 0 {
		return nil, fmt.Errorf("wav: empty data chunk")
	}
	duration := float64(frames) / float64(sampleRate)

	if peakCount <= 0 {
		peakCount = 1000
	}
	chunk := frames / peakCount
	if chunk < 1 {
		chunk = 1
	}

	var peaks []float64
	currentMax := 0.0
	count := 0
	for f := 0; f < frames; f++ {
		base := f * bytesPerFrame
		for ch := 0; ch < numChannels; ch++ {
			val := int16(binary.LittleEndian.Uint16(pcm[base+ch*2 : base+ch*2+2]))
			abs := math.Abs(float64(val))
			if abs > currentMax {
				currentMax = abs
			}
		}
		count++
		if count >= chunk {
			peaks = append(peaks, currentMax/32768.0)
			currentMax = 0
			count = 0
		}
	}
	if count > 0 {
		peaks = append(peaks, currentMax/32768.0)
	}

	return &decodedClip{durationSec: duration, peaks: peaks}, nil
}
