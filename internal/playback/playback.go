// Package playback drives preview of a video definition at a fixed frame
// rate against the wall clock.
package playback

import (
	"context"
	"math"
	"sync"
	"time"
)

type State int

const (
	Stopped State = iota
	Playing
	Paused
)

func (s State) String() string {
	switch s {
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	default:
		return "stopped"
	}
}

// Controller is a Stopped/Playing/Paused state machine over frame indices
// 0..Total-1. Playing loops forever. All methods are safe for concurrent use.
type Controller struct {
	mu    sync.Mutex
	fps   float64
	total int
	state State
	frame int

	// While playing, frame = anchorFrame + elapsed since anchorTime.
	anchorFrame int
	anchorTime  time.Time

	now     func() time.Time
	onFrame func(frame int)
	last    int
}

type Option func(*Controller)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// OnFrame registers a callback run by Run whenever the frame changes.
func OnFrame(fn func(frame int)) Option {
	return func(c *Controller) { c.onFrame = fn }
}

func NewController(totalFrames int, fps float64, opts ...Option) *Controller {
	if totalFrames < 0 {
		totalFrames = 0
	}
	c := &Controller{fps: fps, total: totalFrames, now: time.Now, last: -1}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) Frame() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.frame
}

func (c *Controller) TotalFrames() int { return c.total }

func (c *Controller) FPS() float64 { return c.fps }

// Play starts or resumes from the current frame.
func (c *Controller) Play() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.play()
}

// Pause holds the current frame.
func (c *Controller) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pause()
}

// TogglePlayPause flips between Playing and Paused without moving the frame.
// From Stopped it starts playing.
func (c *Controller) TogglePlayPause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Playing {
		c.pause()
		return
	}
	c.play()
}

func (c *Controller) play() {
	if c.state == Playing || c.total == 0 {
		return
	}
	c.state = Playing
	c.reanchor()
}

func (c *Controller) pause() {
	if c.state != Playing {
		return
	}
	c.advance()
	c.state = Paused
}

// Stop rewinds to frame 0.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = Stopped
	c.frame = 0
}

// SeekToFrame moves to frame, clamped to [0, Total-1]. Valid in any state.
func (c *Controller) SeekToFrame(frame int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frame = c.clamp(frame)
	if c.state == Playing {
		c.reanchor()
	}
}

func (c *Controller) SeekToDuration(d time.Duration) {
	c.SeekToFrame(int(math.Floor(d.Seconds() * c.fps)))
}

// SeekToProgress seeks to a fraction of the whole video.
func (c *Controller) SeekToProgress(p float64) {
	c.SeekToFrame(int(math.Floor(p * float64(c.total))))
}

// Tick recomputes the frame from the wall clock and returns it.
func (c *Controller) Tick() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Playing {
		c.advance()
	}
	return c.frame
}

// Run ticks once per frame interval until ctx is done, calling the OnFrame
// callback whenever the frame differs from the last one delivered.
func (c *Controller) Run(ctx context.Context) error {
	interval := time.Second
	if c.fps > 0 {
		interval = time.Duration(float64(time.Second) / c.fps)
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	c.deliver(c.Tick())
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			c.deliver(c.Tick())
		}
	}
}

func (c *Controller) deliver(frame int) {
	c.mu.Lock()
	changed := frame != c.last
	c.last = frame
	fn := c.onFrame
	c.mu.Unlock()
	if changed && fn != nil {
		fn(frame)
	}
}

// advance must be called with mu held and state Playing.
func (c *Controller) advance() {
	if c.total == 0 || c.fps <= 0 {
		return
	}
	elapsed := c.now().Sub(c.anchorTime)
	if elapsed < 0 {
		elapsed = 0
	}
	n := c.anchorFrame + int(elapsed.Seconds()*c.fps)
	c.frame = n % c.total
}

func (c *Controller) reanchor() {
	c.anchorFrame = c.frame
	c.anchorTime = c.now()
}

func (c *Controller) clamp(frame int) int {
	if c.total == 0 || frame < 0 {
		return 0
	}
	if frame > c.total-1 {
		return c.total - 1
	}
	return frame
}
