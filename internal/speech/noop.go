package speech

import (
	"bytes"
	"context"
	"encoding/binary"
	"time"
)

// NoopSynthesizer fabricates evenly spaced timestamps and a silent WAV of the
// matching length. It is used when no synthesis backend is configured.
type NoopSynthesizer struct {
	CharDuration time.Duration
	SampleRate   int
}

func NewNoopSynthesizer(charDuration time.Duration) *NoopSynthesizer {
	if charDuration <= 0 {
		charDuration = 60 * time.Millisecond
	}
	return &NoopSynthesizer{CharDuration: charDuration, SampleRate: 16000}
}

func (n *NoopSynthesizer) Synthesize(ctx context.Context, text string) (*SpeechWithTimestamps, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	step := n.CharDuration.Seconds()
	s := &SpeechWithTimestamps{Format: "wav"}
	i := 0
	for _, r := range text {
		s.Chars = append(s.Chars, string(r))
		s.StartSeconds = append(s.StartSeconds, float64(i)*step)
		s.EndSeconds = append(s.EndSeconds, float64(i+1)*step)
		i++
	}
	s.Audio = silentWAV(s.Duration(), n.SampleRate)
	return s, nil
}

// silentWAV encodes 16-bit mono PCM silence.
func silentWAV(d time.Duration, sampleRate int) []byte {
	if sampleRate <= 0 {
		sampleRate = 16000
	}
	samples := int(d.Seconds() * float64(sampleRate))
	dataSize := samples * 2

	var buf bytes.Buffer
	buf.Grow(44 + dataSize)
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+dataSize))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))           // fmt chunk size
	binary.Write(&buf, binary.LittleEndian, uint16(1))            // PCM
	binary.Write(&buf, binary.LittleEndian, uint16(1))            // mono
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate))   // sample rate
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate*2)) // byte rate
	binary.Write(&buf, binary.LittleEndian, uint16(2))            // block align
	binary.Write(&buf, binary.LittleEndian, uint16(16))           // bits per sample
	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(dataSize))
	buf.Write(make([]byte, dataSize))
	return buf.Bytes()
}
