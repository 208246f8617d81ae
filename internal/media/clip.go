package media

import (
	"context"
	"fmt"
	"image"
	"io"
	"math"
	"os/exec"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// Clip decodes frames of one media file forward from a running ffmpeg
// process. Seeking backwards or far ahead restarts the decoder.
type Clip struct {
	ctx       context.Context
	loader    *Loader
	info      Info
	trimStart time.Duration
	length    time.Duration

	mu      sync.Mutex
	cmd     *exec.Cmd
	stdout  io.ReadCloser
	next    int // index of the next frame the decoder will produce
	current int // index held in frame, -1 when empty
	frame   *image.RGBA
}

// restartGap is how many frames ahead a request may be before the decoder is
// restarted with a seek instead of reading forward.
const restartGap = 90

func (c *Clip) Length() time.Duration { return c.length }

func (c *Clip) Size() (int, int) { return c.info.Width, c.info.Height }

func (c *Clip) frameCount() int {
	n := int(math.Ceil(c.length.Seconds() * c.loader.fps))
	if n < 1 {
		n = 1
	}
	return n
}

// FrameAt returns the frame shown at t relative to the clip start. Times
// outside the clip are clamped. The returned image is reused by the next
// call.
func (c *Clip) FrameAt(t time.Duration) (image.Image, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx := int(t.Seconds() * c.loader.fps)
	if idx < 0 {
		idx = 0
	}
	if n := c.frameCount(); idx >= n {
		idx = n - 1
	}
	if idx == c.current && c.frame != nil {
		return c.frame, nil
	}

	if c.cmd == nil || idx < c.next || idx-c.next > restartGap {
		if err := c.start(idx); err != nil {
			return nil, err
		}
	}
	if c.frame == nil {
		c.frame = image.NewRGBA(image.Rect(0, 0, c.info.Width, c.info.Height))
	}
	for c.next <= idx {
		if _, err := io.ReadFull(c.stdout, c.frame.Pix); err != nil {
			if c.current >= 0 && (err == io.EOF || err == io.ErrUnexpectedEOF) {
				// The decoder produced fewer frames than the probed
				// duration suggests; hold the last one.
				c.next = idx + 1
				break
			}
			return nil, errors.Wrapf(err, "read frame %d of %s", c.next, c.info.Path)
		}
		c.current = c.next
		c.next++
	}
	c.current = idx
	return c.frame, nil
}

func (c *Clip) start(idx int) error {
	c.stop()
	from := c.trimStart + time.Duration(float64(idx)/c.loader.fps*float64(time.Second))
	remaining := c.length - (from - c.trimStart)
	args := []string{
		"-v", "error",
		"-ss", seconds(from),
		"-i", c.info.Path,
		"-t", seconds(remaining),
		"-an",
		"-vf", fmt.Sprintf("fps=%g", c.loader.fps),
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"-",
	}
	c.loader.logger.Debug().Strs("args", args).Int("frame", idx).Msg("starting clip decoder")

	cmd := exec.CommandContext(c.ctx, c.loader.ffmpegPath, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return errors.Wrap(err, "ffmpeg stdout pipe")
	}
	if err := cmd.Start(); err != nil {
		return errors.Wrap(err, "start ffmpeg decoder")
	}
	c.cmd = cmd
	c.stdout = stdout
	c.next = idx
	c.current = -1
	return nil
}

func (c *Clip) stop() {
	if c.cmd == nil {
		return
	}
	if c.cmd.Process != nil {
		c.cmd.Process.Kill()
	}
	c.cmd.Wait()
	c.cmd = nil
	c.stdout = nil
}

// Close stops the decoder.
func (c *Clip) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stop()
	return nil
}

func seconds(d time.Duration) string {
	return fmt.Sprintf("%.3f", d.Seconds())
}
