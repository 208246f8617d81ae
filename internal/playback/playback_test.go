package playback

import (
	"context"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.t = f.t.Add(d)
	f.mu.Unlock()
}

func newTestController(total int) (*Controller, *fakeClock) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	return NewController(total, 10, WithClock(clock.Now)), clock
}

func TestPlayAdvancesAndWraps(t *testing.T) {
	c, clock := newTestController(20)
	if c.State() != Stopped || c.Frame() != 0 {
		t.Fatalf("initial state %v frame %d", c.State(), c.Frame())
	}

	c.Play()
	clock.Advance(550 * time.Millisecond)
	if got := c.Tick(); got != 5 {
		t.Errorf("after 0.55s frame = %d, want 5", got)
	}

	clock.Advance(2 * time.Second)
	if got := c.Tick(); got != 5 {
		t.Errorf("after a full loop frame = %d, want 5", got)
	}
}

func TestPauseResumeKeepsFrame(t *testing.T) {
	c, clock := newTestController(100)
	c.Play()
	clock.Advance(300 * time.Millisecond)
	c.TogglePlayPause()
	if c.State() != Paused || c.Frame() != 3 {
		t.Fatalf("paused at %v frame %d, want paused at 3", c.State(), c.Frame())
	}

	clock.Advance(10 * time.Second)
	if got := c.Tick(); got != 3 {
		t.Errorf("paused frame moved to %d", got)
	}

	c.TogglePlayPause()
	if got := c.Tick(); got != 3 {
		t.Errorf("resume jumped to %d, want 3", got)
	}
	clock.Advance(200 * time.Millisecond)
	if got := c.Tick(); got != 5 {
		t.Errorf("after resume frame = %d, want 5", got)
	}
}

func TestConcurrentTogglesPair(t *testing.T) {
	c, clock := newTestController(100)
	c.Play()
	clock.Advance(400 * time.Millisecond)
	c.Pause()

	// Every toggle must observe the previous one, so an even number of them
	// from Paused lands back in Paused.
	const workers, each = 8, 50
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range each {
				c.TogglePlayPause()
			}
		}()
	}
	wg.Wait()

	if c.State() != Paused {
		t.Errorf("state after %d toggles = %v, want paused", workers*each, c.State())
	}
	if c.Frame() != 4 {
		t.Errorf("frame = %d, want 4", c.Frame())
	}
}

func TestSeekClamps(t *testing.T) {
	c, _ := newTestController(50)
	tests := []struct {
		name string
		seek func()
		want int
	}{
		{"frame", func() { c.SeekToFrame(12) }, 12},
		{"negative frame", func() { c.SeekToFrame(-4) }, 0},
		{"past end", func() { c.SeekToFrame(500) }, 49},
		{"duration", func() { c.SeekToDuration(2500 * time.Millisecond) }, 25},
		{"long duration", func() { c.SeekToDuration(time.Hour) }, 49},
		{"progress", func() { c.SeekToProgress(0.5) }, 25},
		{"progress end", func() { c.SeekToProgress(1) }, 49},
		{"progress before start", func() { c.SeekToProgress(-1) }, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.seek()
			if got := c.Frame(); got != tt.want {
				t.Errorf("frame = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestSeekWhilePlaying(t *testing.T) {
	c, clock := newTestController(100)
	c.Play()
	clock.Advance(time.Second)
	c.SeekToFrame(40)
	if got := c.Tick(); got != 40 {
		t.Errorf("frame after seek = %d, want 40", got)
	}
	clock.Advance(100 * time.Millisecond)
	if got := c.Tick(); got != 41 {
		t.Errorf("frame = %d, want 41", got)
	}
}

func TestStopRewinds(t *testing.T) {
	c, clock := newTestController(100)
	c.Play()
	clock.Advance(time.Second)
	c.Stop()
	if c.State() != Stopped || c.Frame() != 0 {
		t.Errorf("after stop: %v frame %d", c.State(), c.Frame())
	}
	clock.Advance(time.Second)
	if got := c.Tick(); got != 0 {
		t.Errorf("stopped controller advanced to %d", got)
	}
}

func TestEmptyVideo(t *testing.T) {
	c, _ := newTestController(0)
	c.Play()
	if c.State() != Stopped {
		t.Errorf("empty video started playing")
	}
	c.SeekToFrame(3)
	if c.Frame() != 0 {
		t.Errorf("frame = %d", c.Frame())
	}
}

func TestRunDeliversFrames(t *testing.T) {
	frames := make(chan int, 16)
	c := NewController(5, 200, OnFrame(func(f int) {
		select {
		case frames <- f:
		default:
		}
	}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	if f := <-frames; f != 0 {
		t.Errorf("first delivered frame = %d", f)
	}
	c.Play()
	select {
	case <-frames:
	case <-time.After(2 * time.Second):
		t.Error("no frame delivered while playing")
	}

	cancel()
	if err := <-done; err != context.Canceled {
		t.Errorf("Run returned %v", err)
	}
}
