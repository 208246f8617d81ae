package effects

import (
	"math"
	"testing"
	"time"

	"github.com/ivlev/stickmotion/internal/animation"
)

func TestApplyFade(t *testing.T) {
	fade := Transition{Kind: Fade, Duration: time.Second, Easing: animation.Linear}
	span := 10 * time.Second

	tests := []struct {
		local   time.Duration
		opacity float64
	}{
		{0, 0},
		{500 * time.Millisecond, 0.5},
		{time.Second, 1},
		{5 * time.Second, 1},
		{9500 * time.Millisecond, 0.5},
		{span, 0},
	}
	for _, tt := range tests {
		s := Apply(fade, fade, tt.local, span)
		if math.Abs(s.Opacity-tt.opacity) > 1e-9 {
			t.Errorf("local %v: opacity %f, want %f", tt.local, s.Opacity, tt.opacity)
		}
	}
}

func TestApplySlideDirections(t *testing.T) {
	slide := Transition{Kind: SlideLeft, Duration: time.Second, Easing: animation.Linear}
	span := 4 * time.Second

	in := Apply(slide, slide, 0, span)
	if in.OffsetX != 1 {
		t.Errorf("entering slide should start one frame to the right, got %f", in.OffsetX)
	}
	out := Apply(slide, slide, span, span)
	if out.OffsetX != -1 {
		t.Errorf("leaving slide should end one frame to the left, got %f", out.OffsetX)
	}
	mid := Apply(slide, slide, 2*time.Second, span)
	if mid != Identity() {
		t.Errorf("middle of sequence should be untouched, got %+v", mid)
	}
}

func TestNoneIsIdentity(t *testing.T) {
	if s := Apply(Transition{}, Transition{Kind: Fade}, 0, time.Second); s != Identity() {
		t.Errorf("expected identity, got %+v", s)
	}
}

func TestParseKind(t *testing.T) {
	for k, name := range kindNames {
		got, err := ParseKind(name)
		if err != nil || got != k {
			t.Errorf("ParseKind(%q) = %v, %v", name, got, err)
		}
	}
	if _, err := ParseKind("spin"); err == nil {
		t.Error("expected error for unknown transition")
	}
}
