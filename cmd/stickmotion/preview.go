package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/chzyer/readline"
	"github.com/disintegration/imaging"
	"github.com/mattn/go-sixel"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ivlev/stickmotion/internal/config"
	"github.com/ivlev/stickmotion/internal/logging"
	"github.com/ivlev/stickmotion/internal/playback"
	"github.com/ivlev/stickmotion/internal/renderer"
	"github.com/ivlev/stickmotion/internal/scene"
)

var previewCmd = &cobra.Command{
	Use:   "preview [script]",
	Short: "Play a script in the terminal as sixel graphics",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg := config.FromContext(ctx)
		logger := logging.WithComponent("preview")

		path, err := resolveScript(args, logger)
		if err != nil {
			return err
		}
		s, err := assemble(ctx, cfg, path, logger)
		if err != nil {
			return err
		}
		defer s.Close()

		w := cfg.Preview.Width
		if w <= 0 || w > cfg.Output.Width {
			w = cfg.Output.Width
		}
		h := w * cfg.Output.Height / cfg.Output.Width
		comp, err := s.compositor(w, h, logger)
		if err != nil {
			return err
		}

		p := &previewer{
			session: s,
			comp:    comp,
			out:     os.Stdout,
			logger:  logger,
		}
		if cfg.Preview.FPS > 0 {
			p.minGap = time.Duration(float64(time.Second) / cfg.Preview.FPS)
		}
		total := s.video.FrameCount(cfg.Output.FPS)
		p.ctrl = playback.NewController(total, cfg.Output.FPS, playback.OnFrame(p.show))
		return p.shell(ctx)
	},
}

// previewer draws frames chosen by the playback controller. Only the
// controller's Run goroutine renders, except for snapshots which take mu.
type previewer struct {
	session *session
	comp    *renderer.Compositor
	ctrl    *playback.Controller
	out     io.Writer
	logger  zerolog.Logger

	mu       sync.Mutex
	minGap   time.Duration
	lastDraw time.Time
}

func (p *previewer) show(frame int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	// Sixel output is slow; drop frames rather than fall behind.
	if p.ctrl.State() == playback.Playing && time.Since(p.lastDraw) < p.minGap {
		return
	}
	p.lastDraw = time.Now()

	bmp, err := p.comp.RenderFrame(context.Background(), scene.At(frame, p.ctrl.FPS()))
	if err != nil {
		p.logger.Error().Err(err).Int("frame", frame).Msg("render failed")
		return
	}

	var buf bytes.Buffer
	buf.WriteString("\x1b7\x1b[H")
	if err := sixel.NewEncoder(&buf).Encode(bmp.RGBA()); err != nil {
		p.logger.Error().Err(err).Msg("sixel encode failed")
		return
	}
	buf.WriteString("\x1b8")
	p.out.Write(buf.Bytes())
}

// snapshot renders the current frame at full output size into a PNG.
func (p *previewer) snapshot(ctx context.Context, path string) error {
	cfg := p.session.cfg
	comp, err := p.session.compositor(cfg.Output.Width, cfg.Output.Height, p.logger)
	if err != nil {
		return err
	}
	p.mu.Lock()
	bmp, err := comp.RenderFrame(ctx, scene.At(p.ctrl.Frame(), p.ctrl.FPS()))
	p.mu.Unlock()
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return imaging.Save(bmp.RGBA(), path)
}

func previewCompleter() readline.AutoCompleter {
	return readline.NewPrefixCompleter(
		readline.PcItem("play"),
		readline.PcItem("pause"),
		readline.PcItem("toggle"),
		readline.PcItem("stop"),
		readline.PcItem("seek"),
		readline.PcItem("frame"),
		readline.PcItem("progress"),
		readline.PcItem("save"),
		readline.PcItem("status"),
		readline.PcItem("help"),
		readline.PcItem("quit"),
	)
}

func (p *previewer) shell(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		p.ctrl.Run(ctx)
	}()
	defer func() {
		cancel()
		wg.Wait()
	}()

	historyFile := ""
	if home, err := os.UserHomeDir(); err == nil {
		historyFile = filepath.Join(home, ".stickmotion_history")
	}
	rl, err := readline.NewEx(&readline.Config{
		Prompt:       "stickmotion> ",
		HistoryFile:  historyFile,
		AutoComplete: previewCompleter(),
	})
	if err != nil {
		return fmt.Errorf("init readline: %w", err)
	}
	defer rl.Close()

	fmt.Fprintf(rl.Stdout(), "%d frames at %.0f fps, type help for commands\n", p.ctrl.TotalFrames(), p.ctrl.FPS())
	for {
		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt || err == io.EOF {
				return nil
			}
			return err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		quit, err := p.handle(ctx, line, rl.Stdout())
		if err != nil {
			fmt.Fprintf(rl.Stdout(), "error: %v\n", err)
		}
		if quit {
			return nil
		}
	}
}

// handle runs one shell command and reports whether the shell should exit.
func (p *previewer) handle(ctx context.Context, line string, out io.Writer) (bool, error) {
	fields := strings.Fields(line)
	arg := func() (float64, error) {
		if len(fields) < 2 {
			return 0, fmt.Errorf("%s needs a value", fields[0])
		}
		return strconv.ParseFloat(fields[1], 64)
	}

	switch fields[0] {
	case "play":
		p.ctrl.Play()
	case "pause":
		p.ctrl.Pause()
	case "toggle":
		p.ctrl.TogglePlayPause()
	case "stop":
		p.ctrl.Stop()
	case "seek":
		v, err := arg()
		if err != nil {
			return false, err
		}
		p.ctrl.SeekToDuration(time.Duration(v * float64(time.Second)))
	case "frame":
		v, err := arg()
		if err != nil {
			return false, err
		}
		p.ctrl.SeekToFrame(int(v))
	case "progress":
		v, err := arg()
		if err != nil {
			return false, err
		}
		p.ctrl.SeekToProgress(v)
	case "save":
		if len(fields) < 2 {
			return false, fmt.Errorf("save needs a file name")
		}
		if err := p.snapshot(ctx, fields[1]); err != nil {
			return false, err
		}
		fmt.Fprintf(out, "saved frame %d to %s\n", p.ctrl.Frame(), fields[1])
	case "status":
	case "help":
		fmt.Fprintln(out, "play | pause | toggle | stop | seek <sec> | frame <n> | progress <0..1> | save <file.png> | status | quit")
		return false, nil
	case "quit", "exit":
		return true, nil
	default:
		return false, fmt.Errorf("unknown command %q", fields[0])
	}

	frame := p.ctrl.Frame()
	fmt.Fprintf(out, "%s frame %d/%d (%.2fs)\n",
		p.ctrl.State(), frame, p.ctrl.TotalFrames(), float64(frame)/p.ctrl.FPS())
	return false, nil
}
