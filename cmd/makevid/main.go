package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Zelak312/fumkit/internal/config"
	"github.com/Zelak312/fumkit/internal/ffmpeg"
	"github.com/Zelak312/fumkit/internal/logging"
	"github.com/Zelak312/fumkit/internal/makevid"
)

// CLI flags
var (
	configFlag        string
	debugFlag         bool
	intermediatesFlag int
	outputVideoFlag   string
	upscaleFlag       bool
	upscaleFactorFlag int
	fpsFlag           float64
)

var rootCmd = &cobra.Command{
	Use:   "makevid <folder>",
	Short: "Blend intermediate frames between images and encode a video",
	Long: `makevid loads the images of a folder in filename order, writes
cross-dissolve frames between every adjacent pair next to the sources and
assembles the folder into a video with ffmpeg.

Examples:
  makevid .
  makevid shots --num_intermediates 5 --output_video shots.mp4
  makevid shots --upscale --fps 24`,
	Args:          cobra.ExactArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runMain,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "Path to the config yml file")
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "Enable debug logging")

	rootCmd.Flags().IntVar(&intermediatesFlag, "num_intermediates", 3, "Number of intermediate images to generate")
	rootCmd.Flags().StringVar(&outputVideoFlag, "output_video", "output.mp4", "Output video file name")
	rootCmd.Flags().BoolVar(&upscaleFlag, "upscale", false, "Upscale images with Lanczos before processing")
	rootCmd.Flags().IntVar(&upscaleFactorFlag, "upscale_factor", 2, "Integer upscale factor used with --upscale")
	rootCmd.Flags().Float64Var(&fpsFlag, "fps", 30, "Frame rate of the output video")

	rootCmd.AddCommand(serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func setup() (config.Config, func(), error) {
	cfg, err := config.GetConfig(configFlag)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("loading config: %w", err)
	}

	logFile := logging.Setup(logging.Options{
		LogPath: cfg.LogPath,
		Debug:   debugFlag || cfg.Debug,
		Console: true,
	})

	return cfg, func() { logFile.Close() }, nil
}

// pipelineOptions merges config defaults with the flags that were set.
func pipelineOptions(cmd *cobra.Command, cfg config.Config, folder string) makevid.Options {
	opts := optionsFromConfig(cfg, folder)

	flags := cmd.Flags()
	if flags.Changed("num_intermediates") {
		opts.Intermediates = intermediatesFlag
	}
	if flags.Changed("output_video") {
		opts.OutputVideo = outputVideoFlag
	}
	if flags.Changed("upscale") {
		opts.Upscale = upscaleFlag
	}
	if flags.Changed("upscale_factor") {
		opts.UpscaleFactor = upscaleFactorFlag
	}
	if flags.Changed("fps") {
		opts.Encoder.FrameRate = fpsFlag
	}

	return opts
}

func optionsFromConfig(cfg config.Config, folder string) makevid.Options {
	opts := makevid.DefaultOptions(folder)
	opts.Intermediates = *cfg.Defaults.Intermediates
	opts.OutputVideo = cfg.Defaults.OutputVideo
	opts.Upscale = cfg.Defaults.Upscale
	opts.UpscaleFactor = cfg.Defaults.UpscaleFactor
	opts.Encoder = makevid.EncoderSettings{
		FrameRate:   cfg.Encoder.FrameRate,
		Codec:       cfg.Encoder.Codec,
		PixelFormat: cfg.Encoder.PixelFormat,
		Pattern:     cfg.Encoder.FramePattern,
		Overwrite:   *cfg.Encoder.Overwrite,
	}
	return opts
}

func runMain(cmd *cobra.Command, args []string) error {
	cfg, closeLog, err := setup()
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := pipelineOptions(cmd, cfg, args[0])
	opts.Progress = func(done, total int) {
		log.WithField("done", done).WithField("total", total).Info("Pair blended")
	}
	opts.EncodeProgress = func(percent float64) {
		log.WithField("progress", fmt.Sprintf("%.1f%%", percent)).Debug("Encoding")
	}

	encoder := ffmpeg.New(cfg.Encoder.FfmpegBinary, cfg.Encoder.FfprobeBinary)
	result, err := makevid.Run(ctx, opts, encoder)
	if err != nil {
		if result != nil && len(result.Written) > 0 {
			log.WithField("written", len(result.Written)).Warn("Intermediate frames were kept")
		}
		return err
	}

	log.WithField("output", opts.OutputVideo).
		WithField("frames", len(result.Sources)+len(result.Written)).
		Info("Video created")
	return nil
}
