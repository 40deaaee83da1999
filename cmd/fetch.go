package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"vidgrab/engine"
	"vidgrab/services"
	"vidgrab/types"
)

const fetchPollInterval = 250 * time.Millisecond

func newFetchCommand(ctx *commandContext) *cobra.Command {
	var (
		quality  string
		formatID string
		start    int
		end      int
	)

	cmd := &cobra.Command{
		Use:   "fetch <url>",
		Short: "Download a single URL into the download directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.config()
			if err != nil {
				return err
			}
			logger, err := ctx.logger(io.Discard)
			if err != nil {
				return err
			}

			media, err := services.NewMediaService(cfg, engine.NewYTDLP(cfg.Engine.Binary), nil, logger)
			if err != nil {
				return err
			}

			req := types.DownloadRequest{
				URL:      args[0],
				Quality:  quality,
				FormatID: formatID,
			}
			if cmd.Flags().Changed("start") {
				req.StartTime = &start
			}
			if cmd.Flags().Changed("end") {
				req.EndTime = &end
			}

			runCtx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			media.Start(runCtx)
			defer media.Stop()

			jobID, err := media.StartDownload(req)
			if err != nil {
				return err
			}

			var progressOut io.Writer = io.Discard
			if isTerminal(os.Stderr.Fd()) {
				progressOut = os.Stderr
			}

			job, err := waitForJob(runCtx, media, jobID, progressOut)
			if err != nil {
				return err
			}
			if job.Status == types.JobStatusFailed {
				return fmt.Errorf("download %s failed: %s", jobID, job.Error)
			}

			path, err := media.GetFilePath(jobID)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&quality, "quality", "q", services.QualityBest, "Quality preset (best, 1080p, 720p, 480p, 360p, audio)")
	cmd.Flags().StringVarP(&formatID, "format", "f", "", "Explicit format id from analyze output")
	cmd.Flags().IntVar(&start, "start", 0, "Clip start offset in seconds")
	cmd.Flags().IntVar(&end, "end", 0, "Clip end offset in seconds")

	return cmd
}

// waitForJob polls until the job is terminal, rendering progress to w
func waitForJob(ctx context.Context, media services.MediaService, jobID string, w io.Writer) (types.DownloadJob, error) {
	bar := progressbar.NewOptions(100,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(jobID+" queued"),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)

	ticker := time.NewTicker(fetchPollInterval)
	defer ticker.Stop()

	for {
		job, ok := media.GetProgress(jobID)
		if !ok {
			return types.DownloadJob{}, fmt.Errorf("%w: %s", services.ErrJobNotFound, jobID)
		}

		desc := fmt.Sprintf("%s %s", jobID, job.Status)
		if job.Speed != "" {
			desc += " " + job.Speed
		}
		bar.Describe(desc)
		_ = bar.Set(int(job.Progress))

		if job.Status.IsTerminal() {
			if job.Status == types.JobStatusCompleted {
				_ = bar.Finish()
			}
			return job, nil
		}

		select {
		case <-ctx.Done():
			return job, errors.Join(ctx.Err(), fmt.Errorf("download %s interrupted", jobID))
		case <-ticker.C:
		}
	}
}
