package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/ivlev/stickmotion/internal/config"
	"github.com/ivlev/stickmotion/internal/logging"
	"github.com/ivlev/stickmotion/internal/project"
	"github.com/ivlev/stickmotion/internal/system"
)

var (
	cfgFile string
	verbose bool
	version = "dev"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:          "stickmotion",
	Short:        "stickmotion - stick-figure animation and video composition",
	Long:         "Compose stick-figure animations, slides, clips and narration into videos from YAML scripts.",
	Version:      version,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logging.Init(verbose)
		system.InitResourceLimits(logging.WithComponent("system"))

		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		cfg.BuildVersion = version

		cmd.SetContext(config.WithConfig(cmd.Context(), cfg))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./stickmotion.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(previewCmd)
	rootCmd.AddCommand(framesCmd)
	rootCmd.AddCommand(projectsCmd)
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
}

var framesCmd = &cobra.Command{
	Use:   "frames [project file]",
	Short: "Expand a project's keyframes and print the compiled frames",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())

		p, err := project.Load(args[0])
		if err != nil {
			return err
		}
		frames, err := p.Frames(cfg.Animation.KeyframeFPS, cfg.Animation.TargetFPS)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "FRAME\tFIGURES\tSEGMENTS\tVIEWPORT")
		for i, f := range frames {
			sf := f.Compile()
			v := sf.Viewport
			fmt.Fprintf(w, "%d\t%d\t%d\t(%.1f, %.1f) x%.2f %.2frad\n",
				i, len(f.Figures), len(sf.Segments), v.OffsetX, v.OffsetY, v.Scale, v.Rotation)
		}
		if err := w.Flush(); err != nil {
			return err
		}

		log.Info().
			Str("project", args[0]).
			Int("keyframes", len(p.Keyframes)).
			Int("frames", len(frames)).
			Msg("expanded project")
		return nil
	},
}

var projectsCmd = &cobra.Command{
	Use:   "projects [dir]",
	Short: "List animation projects in a directory",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := "."
		if len(args) == 1 {
			dir = args[0]
		}
		list, err := project.List(dir, logging.WithComponent("project"))
		if err != nil {
			return err
		}
		if len(list) == 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "no projects in %s\n", dir)
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tKEYFRAMES\tFIGURES\tMODIFIED\tPATH")
		for _, s := range list {
			fmt.Fprintf(w, "%s\t%d\t%d\t%s\t%s\n",
				s.Name, s.Keyframes, s.Figures, s.ModTime.Format("2006-01-02 15:04"), s.Path)
		}
		return w.Flush()
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Config management commands",
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write the default configuration",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "stickmotion.yaml"
		if len(args) == 1 {
			path = args[0]
		}
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists", path)
		}
		if err := config.Default().Save(path); err != nil {
			return err
		}
		abs, _ := filepath.Abs(path)
		log.Info().Str("path", abs).Msg("wrote default config")
		return nil
	},
}
