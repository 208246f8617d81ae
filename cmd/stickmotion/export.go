package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/ivlev/stickmotion/internal/config"
	"github.com/ivlev/stickmotion/internal/engine"
	"github.com/ivlev/stickmotion/internal/logging"
	"github.com/ivlev/stickmotion/internal/system"
	"github.com/ivlev/stickmotion/internal/video"
)

var exportFlags struct {
	output  string
	alpha   bool
	fps     float64
	size    string
	quality int
	stats   bool
}

var exportCmd = &cobra.Command{
	Use:   "export [script]",
	Short: "Render a script to a video file",
	Long:  "Render a script to a video file. Without a script argument the newest .yaml script in the working directory is used.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg := config.FromContext(ctx)
		logger := logging.WithComponent("export")

		applyExportFlags(cmd, cfg)

		path, err := resolveScript(args, logger)
		if err != nil {
			return err
		}
		s, err := assemble(ctx, cfg, path, logger)
		if err != nil {
			return err
		}
		defer s.Close()

		comp, err := s.compositor(cfg.Output.Width, cfg.Output.Height, logger)
		if err != nil {
			return err
		}

		enc := system.Encoder{Name: cfg.FFmpeg.Encoder}
		if enc.Name == "" {
			enc = system.GetBestH264Encoder(ctx, s.ffmpeg)
		}

		output := exportFlags.output
		if output == "" {
			output = defaultOutput(path, cfg.Output.Alpha)
		}
		if dir := filepath.Dir(output); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return err
			}
		}

		exporter := engine.NewExporter(comp, video.NewFFmpegEncoder(s.ffmpeg, logger), logger)
		res, err := exporter.Run(ctx, s.video, engine.Options{
			Output:   output,
			FPS:      cfg.Output.FPS,
			Alpha:    cfg.Output.Alpha,
			Quality:  cfg.Output.Quality,
			Encoder:  enc,
			TempDir:  cfg.Output.TempDir,
			Progress: os.Stderr,
			Stats:    cfg.Output.ShowStats,
		})
		if err != nil {
			var exitErr *video.ExitError
			if errors.As(err, &exitErr) {
				log.Error().Int("code", exitErr.Code).Str("ffmpeg", exitErr.Output).Msg("encoder failed")
			}
			return err
		}

		log.Info().
			Str("output", res.Output).
			Int("frames", res.Frames).
			Dur("length", res.Length).
			Dur("elapsed", res.Elapsed).
			Str("encoder", enc.Name).
			Msg("export complete")
		if res.Stats != nil {
			fmt.Fprintln(cmd.OutOrStdout(), res.Stats.String())
		}
		return nil
	},
}

func init() {
	f := exportCmd.Flags()
	f.StringVarP(&exportFlags.output, "output", "o", "", "output file (default: output/<script>.mp4)")
	f.BoolVar(&exportFlags.alpha, "alpha", false, "keep transparency (.mov or .webm output)")
	f.Float64Var(&exportFlags.fps, "fps", 0, "frame rate override")
	f.StringVar(&exportFlags.size, "size", "", "frame size override, WIDTHxHEIGHT")
	f.IntVar(&exportFlags.quality, "quality", 0, "quality override (CRF for software encoders)")
	f.BoolVar(&exportFlags.stats, "stats", false, "print a performance report")
}

// applyExportFlags copies explicitly set flags over the loaded config.
func applyExportFlags(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	if f.Changed("alpha") {
		cfg.Output.Alpha = exportFlags.alpha
	}
	if f.Changed("fps") {
		cfg.Output.FPS = exportFlags.fps
	}
	if f.Changed("quality") {
		cfg.Output.Quality = exportFlags.quality
	}
	if f.Changed("stats") {
		cfg.Output.ShowStats = exportFlags.stats
	}
	if f.Changed("size") {
		var w, h int
		if _, err := fmt.Sscanf(strings.ToLower(exportFlags.size), "%dx%d", &w, &h); err == nil {
			cfg.Output.Width, cfg.Output.Height = w, h
		} else {
			log.Warn().Str("size", exportFlags.size).Msg("ignoring malformed --size")
		}
	}
}

// defaultOutput names the video after the script, in output/.
func defaultOutput(scriptPath string, alpha bool) string {
	base := strings.TrimSuffix(filepath.Base(scriptPath), filepath.Ext(scriptPath))
	ext := ".mp4"
	if alpha {
		ext = ".mov"
	}
	return filepath.Join("output", base+ext)
}
