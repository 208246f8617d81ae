// Package timeline resolves relative placements of sequences and audio into
// absolute start and end times.
package timeline

import (
	"fmt"
	"time"
)

type StartKind int

const (
	// StartAfterPrevious anchors to the latest resolved end point in scope.
	StartAfterPrevious StartKind = iota
	// StartAtPoint is an absolute start within the scope.
	StartAtPoint
)

type Start struct {
	Kind StartKind
	At   time.Duration
}

func AfterPrevious() Start { return Start{Kind: StartAfterPrevious} }

func StartAt(at time.Duration) Start { return Start{Kind: StartAtPoint, At: at} }

func (s Start) String() string {
	if s.Kind == StartAtPoint {
		return fmt.Sprintf("at(%v)", s.At)
	}
	return "afterPrevious"
}

type EndKind int

const (
	// EndUntilEnd extends to the end of the whole timeline.
	EndUntilEnd EndKind = iota
	// EndBeforeNext lasts at least Value and is closed by the next item that
	// starts at or after it.
	EndBeforeNext
	// EndAtPoint is an absolute end within the scope.
	EndAtPoint
	// EndFixedDuration ends Value after the start.
	EndFixedDuration
)

var endNames = map[EndKind]string{
	EndUntilEnd:      "untilEnd",
	EndBeforeNext:    "beforeNext",
	EndAtPoint:       "at",
	EndFixedDuration: "for",
}

type End struct {
	Kind  EndKind
	Value time.Duration
}

func UntilEnd() End { return End{Kind: EndUntilEnd} }

// BeforeNext ends when the next item starts, but not before minimum.
func BeforeNext(minimum time.Duration) End { return End{Kind: EndBeforeNext, Value: minimum} }

func EndAt(at time.Duration) End { return End{Kind: EndAtPoint, Value: at} }

func For(d time.Duration) End { return End{Kind: EndFixedDuration, Value: d} }

func (e End) String() string {
	if e.Kind == EndUntilEnd {
		return endNames[e.Kind]
	}
	return fmt.Sprintf("%s(%v)", endNames[e.Kind], e.Value)
}

// open reports whether the end is only known after later items are added.
func (e End) open() bool {
	return e.Kind == EndUntilEnd || e.Kind == EndBeforeNext
}

// Timing is a resolved start paired with a possibly unresolved end.
type Timing struct {
	From time.Duration
	End  End
}

// AbsoluteEnd returns the end time when it is already known.
func (t Timing) AbsoluteEnd() (time.Duration, bool) {
	switch t.End.Kind {
	case EndAtPoint:
		return t.End.Value, true
	case EndFixedDuration:
		return t.From + t.End.Value, true
	}
	return 0, false
}

func (t Timing) validate() error {
	switch t.End.Kind {
	case EndAtPoint:
		if t.End.Value < t.From {
			return fmt.Errorf("%w: end %v before start %v", ErrInvalidRange, t.End.Value, t.From)
		}
	case EndFixedDuration, EndBeforeNext:
		if t.End.Value < 0 {
			return fmt.Errorf("%w: negative length %v", ErrInvalidRange, t.End.Value)
		}
	}
	if t.From < 0 {
		return fmt.Errorf("%w: negative start %v", ErrInvalidRange, t.From)
	}
	return nil
}
