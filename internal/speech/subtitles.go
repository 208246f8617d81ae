package speech

import (
	"strings"
	"time"
)

// SubtitleOptions bounds a single caption.
type SubtitleOptions struct {
	MaxDuration time.Duration
	MaxChars    int
	PauseGap    time.Duration
}

func DefaultSubtitleOptions() SubtitleOptions {
	return SubtitleOptions{
		MaxDuration: 2500 * time.Millisecond,
		MaxChars:    32,
		PauseGap:    400 * time.Millisecond,
	}
}

// Chunk is one displayable caption, relative to the start of the speech.
type Chunk struct {
	Text  string
	Start time.Duration
	End   time.Duration
}

// Subtitles groups words into captions. A new caption starts when adding the
// next word would exceed MaxChars or MaxDuration, or when the silence before
// it is longer than PauseGap.
func (s *SpeechWithTimestamps) Subtitles(opts SubtitleOptions) []Chunk {
	words := s.Words()
	var (
		out   []Chunk
		cur   []string
		chars int
		start time.Duration
		end   time.Duration
	)
	flush := func() {
		if len(cur) > 0 {
			out = append(out, Chunk{Text: strings.Join(cur, " "), Start: start, End: end})
		}
		cur, chars = nil, 0
	}

	for _, w := range words {
		if len(cur) > 0 {
			nextChars := chars + 1 + len([]rune(w.Text))
			tooLong := opts.MaxChars > 0 && nextChars > opts.MaxChars
			tooSlow := opts.MaxDuration > 0 && w.End-start > opts.MaxDuration
			paused := opts.PauseGap > 0 && w.Start-end > opts.PauseGap
			if tooLong || tooSlow || paused {
				flush()
			}
		}
		if len(cur) == 0 {
			start = w.Start
			chars = len([]rune(w.Text))
		} else {
			chars += 1 + len([]rune(w.Text))
		}
		cur = append(cur, w.Text)
		end = w.End
	}
	flush()
	return out
}

// ChunkAt returns the caption visible at t, if any.
func ChunkAt(chunks []Chunk, t time.Duration) (Chunk, bool) {
	for _, c := range chunks {
		if t >= c.Start && t < c.End {
			return c, true
		}
	}
	return Chunk{}, false
}
