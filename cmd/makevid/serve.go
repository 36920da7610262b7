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
	"github.com/Zelak312/fumkit/internal/makevid"
	"github.com/Zelak312/fumkit/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the makevid job queue over HTTP",
	Long: `serve keeps a queue of folders to turn into videos. Jobs are stored
in sqlite, processed by a pool of workers and reported over HTTP and a
websocket at /ws.`,
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE:         runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, closeLog, err := setup()
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := server.NewSqlite(cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.RunMigrations(); err != nil {
		return err
	}

	srv, err := server.New(ctx, server.Options{
		BindAddress: cfg.BindAddress,
		Port:        cfg.Port,
		Workers:     cfg.Workers,
		Defaults: server.JobDefaults{
			Intermediates: *cfg.Defaults.Intermediates,
			OutputVideo:   cfg.Defaults.OutputVideo,
			Upscale:       cfg.Defaults.Upscale,
		},
	}, store, newProcessor(cfg))
	if err != nil {
		return err
	}

	log.Info("Starting makevid server")
	return srv.Run(ctx)
}

// newProcessor runs the blend pipeline for one queued job.
func newProcessor(cfg config.Config) server.Processor {
	encoder := ffmpeg.New(cfg.Encoder.FfmpegBinary, cfg.Encoder.FfprobeBinary)

	return func(ctx context.Context, job server.Job, progress func(string, float64)) (string, error) {
		opts := optionsFromConfig(cfg, job.Folder)
		opts.Intermediates = job.Intermediates
		opts.OutputVideo = job.OutputVideo
		opts.Upscale = job.Upscale
		opts.Progress = func(done, total int) {
			progress("blend", float64(done)/float64(total)*100)
		}
		opts.EncodeProgress = func(percent float64) {
			progress("encode", percent)
		}

		result, err := makevid.Run(ctx, opts, encoder)
		if result == nil {
			return "", err
		}
		if err != nil {
			return result.EncoderOutput, fmt.Errorf("job %d: %w", job.ID, err)
		}
		return result.EncoderOutput, nil
	}
}
