// Package voice bridges a browser microphone websocket to a Gemini Live
// session and schedules the spoken replies for gapless playback.
package voice

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"
)

const (
	InputSampleRate  = 16000
	OutputSampleRate = 24000
	InputMIMEType    = "audio/pcm;rate=16000"

	// CaptureBlockSamples is the block size the browser capture node emits.
	CaptureBlockSamples = 4096
)

// Float32ToPCM16 converts little-endian float32 mono samples to little-endian
// signed 16-bit PCM. Samples are scaled by 32768 and clamped.
func Float32ToPCM16(frame []byte) ([]byte, error) {
	if len(frame)%4 != 0 {
		return nil, fmt.Errorf("voice: frame length %d is not a multiple of 4", len(frame))
	}
	out := make([]byte, len(frame)/2)
	for i := 0; i < len(frame)/4; i++ {
		sample := math.Float32frombits(binary.LittleEndian.Uint32(frame[i*4:]))
		binary.LittleEndian.PutUint16(out[i*2:], uint16(scaleSample(sample)))
	}
	return out, nil
}

func scaleSample(sample float32) int16 {
	v := float64(sample) * 32768
	if math.IsNaN(v) {
		return 0
	}
	switch {
	case v >= math.MaxInt16:
		return math.MaxInt16
	case v <= math.MinInt16:
		return math.MinInt16
	}
	return int16(v)
}

// PCM16Duration is the playback length of mono 16-bit PCM at sampleRate.
func PCM16Duration(data []byte, sampleRate int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	samples := len(data) / 2
	return time.Duration(samples) * time.Second / time.Duration(sampleRate)
}
