package speech

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode"
)

var (
	ErrTextNotFound     = errors.New("text not found in speech")
	ErrMisalignedSpeech = errors.New("speech timestamps are misaligned")
)

// endOfUtteranceTail is added after the last character when a range runs to
// the end of the speech.
const endOfUtteranceTail = 100 * time.Millisecond

// SpeechWithTimestamps is synthesized audio plus per-character alignment.
// Chars, StartSeconds and EndSeconds are parallel arrays.
type SpeechWithTimestamps struct {
	Audio        []byte    `json:"audio"`
	Format       string    `json:"format"`
	Chars        []string  `json:"chars"`
	StartSeconds []float64 `json:"startSeconds"`
	EndSeconds   []float64 `json:"endSeconds"`
}

// Synthesizer turns text into timed speech.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (*SpeechWithTimestamps, error)
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func (s *SpeechWithTimestamps) Validate() error {
	if len(s.Chars) != len(s.StartSeconds) || len(s.Chars) != len(s.EndSeconds) {
		return fmt.Errorf("%w: %d chars, %d starts, %d ends",
			ErrMisalignedSpeech, len(s.Chars), len(s.StartSeconds), len(s.EndSeconds))
	}
	return nil
}

// Duration is the end time of the last character.
func (s *SpeechWithTimestamps) Duration() time.Duration {
	if len(s.EndSeconds) == 0 {
		return 0
	}
	return seconds(s.EndSeconds[len(s.EndSeconds)-1])
}

// Text reassembles the spoken text.
func (s *SpeechWithTimestamps) Text() string {
	n := 0
	for _, c := range s.Chars {
		n += len(c)
	}
	b := make([]byte, 0, n)
	for _, c := range s.Chars {
		b = append(b, c...)
	}
	return string(b)
}

// RangeOf locates the first contiguous occurrence of text. The range starts
// at its first character and ends where the following character starts, or
// slightly after the last character at the end of the utterance.
func (s *SpeechWithTimestamps) RangeOf(text string) (time.Duration, time.Duration, error) {
	if err := s.Validate(); err != nil {
		return 0, 0, err
	}
	needle := make([]string, 0, len(text))
	for _, r := range text {
		needle = append(needle, string(r))
	}
	if len(needle) == 0 {
		return 0, 0, fmt.Errorf("%w: empty text", ErrTextNotFound)
	}

	for i := 0; i+len(needle) <= len(s.Chars); i++ {
		match := true
		for k, c := range needle {
			if s.Chars[i+k] != c {
				match = false
				break
			}
		}
		if !match {
			continue
		}
		start := seconds(s.StartSeconds[i])
		last := i + len(needle) - 1
		if last+1 < len(s.Chars) {
			return start, seconds(s.StartSeconds[last+1]), nil
		}
		return start, seconds(s.EndSeconds[last]) + endOfUtteranceTail, nil
	}
	return 0, 0, fmt.Errorf("%w: %q", ErrTextNotFound, text)
}

// Word is a whitespace-delimited run of characters with its timing.
type Word struct {
	Text  string
	Start time.Duration
	End   time.Duration
}

func isSpace(c string) bool {
	for _, r := range c {
		if !unicode.IsSpace(r) {
			return false
		}
	}
	return true
}

// Words splits the alignment into timed words.
func (s *SpeechWithTimestamps) Words() []Word {
	var (
		out  []Word
		cur  []byte
		from = -1
	)
	flush := func(to int) {
		if from >= 0 {
			out = append(out, Word{
				Text:  string(cur),
				Start: seconds(s.StartSeconds[from]),
				End:   seconds(s.EndSeconds[to]),
			})
		}
		cur = cur[:0]
		from = -1
	}
	for i, c := range s.Chars {
		if isSpace(c) {
			flush(i - 1)
			continue
		}
		if from < 0 {
			from = i
		}
		cur = append(cur, c...)
	}
	flush(len(s.Chars) - 1)
	return out
}
