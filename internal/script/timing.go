package script

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ivlev/stickmotion/internal/timeline"
)

func parseSeconds(s string) (time.Duration, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid seconds %q", s)
	}
	if v < 0 {
		return 0, fmt.Errorf("negative seconds %q", s)
	}
	return time.Duration(v * float64(time.Second)), nil
}

func parseStart(s string) (timeline.Start, error) {
	s = strings.TrimSpace(s)
	switch {
	case s == "" || s == "after":
		return timeline.AfterPrevious(), nil
	case strings.HasPrefix(s, "at:"):
		s = strings.TrimPrefix(s, "at:")
	}
	d, err := parseSeconds(s)
	if err != nil {
		return timeline.Start{}, fmt.Errorf("start: %w", err)
	}
	return timeline.StartAt(d), nil
}

// parseEnd returns def for an empty descriptor; a nil def means UntilEnd.
func parseEnd(s string, def *timeline.End) (timeline.End, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		if def != nil {
			return *def, nil
		}
		return timeline.UntilEnd(), nil
	}

	kind, arg, _ := strings.Cut(s, ":")
	switch kind {
	case "until-end":
		return timeline.UntilEnd(), nil
	case "before-next":
		if arg == "" {
			return timeline.BeforeNext(0), nil
		}
		d, err := parseSeconds(arg)
		if err != nil {
			return timeline.End{}, fmt.Errorf("end: %w", err)
		}
		return timeline.BeforeNext(d), nil
	case "at", "for":
		d, err := parseSeconds(arg)
		if err != nil {
			return timeline.End{}, fmt.Errorf("end: %w", err)
		}
		if kind == "at" {
			return timeline.EndAt(d), nil
		}
		return timeline.For(d), nil
	}
	return timeline.End{}, fmt.Errorf("unknown end %q", s)
}
