package video

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// ExitError reports a non-zero encoder exit with the tail of its stderr.
type ExitError struct {
	Code   int
	Output string
}

func (e *ExitError) Error() string {
	if e.Output == "" {
		return fmt.Sprintf("encoder exited with code %d", e.Code)
	}
	return fmt.Sprintf("encoder exited with code %d: %s", e.Code, e.Output)
}

// Stream is a running encoder fed through Write.
type Stream interface {
	io.Writer
	// Finish closes the input and waits for the encoder to exit.
	Finish() error
	// Abort kills the encoder without waiting for output to be finalized.
	Abort()
}

// FFmpegEncoder starts ffmpeg processes for exports.
type FFmpegEncoder struct {
	Path   string
	logger zerolog.Logger
}

func NewFFmpegEncoder(path string, logger zerolog.Logger) *FFmpegEncoder {
	return &FFmpegEncoder{
		Path:   path,
		logger: logger.With().Str("component", "ffmpeg").Logger(),
	}
}

// Start launches ffmpeg for p. The returned stream expects exactly
// p.FrameSize() bytes per frame.
func (e *FFmpegEncoder) Start(ctx context.Context, p Params) (Stream, error) {
	args, err := BuildArgs(p)
	if err != nil {
		return nil, err
	}
	e.logger.Debug().Strs("args", args).Msg("starting encoder")
	return StartProcess(ctx, e.Path, args, e.logger)
}

// Process is a child process whose stdin receives raw frames.
type Process struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stderr *tail
	done   sync.WaitGroup

	once    sync.Once
	waitErr error
}

// StartProcess runs name with args, piping stdin and collecting stderr.
func StartProcess(ctx context.Context, name string, args []string, logger zerolog.Logger) (*Process, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", name, err)
	}

	p := &Process{cmd: cmd, stdin: stdin, stderr: &tail{max: 4096}}
	p.done.Add(1)
	go func() {
		defer p.done.Done()
		scanner := bufio.NewScanner(stderr)
		for scanner.Scan() {
			line := scanner.Text()
			p.stderr.add(line)
			logger.Debug().Str("stderr", line).Msg("encoder output")
		}
	}()
	return p, nil
}

func (p *Process) Write(b []byte) (int, error) {
	return p.stdin.Write(b)
}

func (p *Process) Finish() error {
	p.once.Do(func() {
		closeErr := p.stdin.Close()
		p.done.Wait()
		p.waitErr = p.exitErr(p.cmd.Wait())
		if p.waitErr == nil && closeErr != nil && !errors.Is(closeErr, io.ErrClosedPipe) {
			p.waitErr = fmt.Errorf("close encoder input: %w", closeErr)
		}
	})
	return p.waitErr
}

func (p *Process) Abort() {
	if p.cmd.Process != nil {
		_ = p.cmd.Process.Kill()
	}
	p.once.Do(func() {
		_ = p.stdin.Close()
		p.done.Wait()
		_ = p.cmd.Wait()
		p.waitErr = errors.New("encoder aborted")
	})
}

func (p *Process) exitErr(err error) error {
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		return &ExitError{Code: ee.ExitCode(), Output: p.stderr.String()}
	}
	return err
}

// tail keeps the last max bytes of stderr lines.
type tail struct {
	mu    sync.Mutex
	max   int
	lines []string
	size  int
}

func (t *tail) add(line string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lines = append(t.lines, line)
	t.size += len(line) + 1
	for t.size > t.max && len(t.lines) > 1 {
		t.size -= len(t.lines[0]) + 1
		t.lines = t.lines[1:]
	}
}

func (t *tail) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return strings.Join(t.lines, "\n")
}
