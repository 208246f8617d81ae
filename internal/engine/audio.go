package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/ivlev/stickmotion/internal/director"
	"github.com/ivlev/stickmotion/internal/video"
)

// materializeAudio turns audio definitions into encoder inputs. Speech is
// written to files under dir; resources are referenced in place. The result
// keeps the order of defs.
func materializeAudio(ctx context.Context, defs []*director.AudioDefinition, dir string) ([]video.AudioInput, error) {
	inputs := make([]video.AudioInput, len(defs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)

	for i, def := range defs {
		inputs[i] = video.AudioInput{Start: def.From, End: def.To}
		switch def.Kind {
		case director.AudioResource:
			inputs[i].Path = def.Path
			inputs[i].TrimStart = def.TrimStart
		case director.AudioSpeech:
			if def.Speech == nil || len(def.Speech.Audio) == 0 {
				_ = g.Wait()
				return nil, fmt.Errorf("speech %q has no audio", def.Text)
			}
			ext := def.Speech.Format
			if ext == "" {
				ext = "mp3"
			}
			path := filepath.Join(dir, fmt.Sprintf("speech_%03d.%s", i, ext))
			inputs[i].Path = path
			audio := def.Speech.Audio
			g.Go(func() error {
				if err := ctx.Err(); err != nil {
					return err
				}
				if err := os.WriteFile(path, audio, 0o644); err != nil {
					return fmt.Errorf("write speech audio: %w", err)
				}
				return nil
			})
		default:
			_ = g.Wait()
			return nil, fmt.Errorf("unknown audio kind %d", def.Kind)
		}
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return inputs, nil
}
