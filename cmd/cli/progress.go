package main

import (
	"fmt"
	"io"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/yourusername/tikdown-go/internal/app"
	"github.com/yourusername/tikdown-go/internal/domain"
)

// watchProgress polls the job until done yields the pipeline result. The
// bar appears once the transfer starts.
func watchProgress(job *app.Job, interval time.Duration, w io.Writer, done <-chan error) error {
	if interval <= 0 {
		interval = 200 * time.Millisecond
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var bar *progressbar.ProgressBar
	status := domain.RecordStatus("")

	for {
		select {
		case err := <-done:
			if bar != nil {
				if err == nil {
					snap := job.Progress.Snapshot()
					_ = bar.Set64(snap.TotalBytes)
					_ = bar.Finish()
				} else {
					_ = bar.Exit()
					fmt.Fprintln(w)
				}
			}
			return err

		case <-ticker.C:
			record := job.Record()
			if record.Status != status {
				status = record.Status
				if status == domain.StatusResolving {
					fmt.Fprintf(w, "Resolving %s\n", record.ShareURL)
				}
			}
			if status != domain.StatusDownloading {
				continue
			}

			snap := job.Progress.Snapshot()
			if bar == nil {
				fmt.Fprintf(w, "Video %s, %s\n", record.VideoID, domain.FormatSize(record.Size))
				bar = newBar(w, record.FileName, snap.TotalBytes)
			}
			if bar.GetMax64() != snap.TotalBytes {
				bar.ChangeMax64(snap.TotalBytes)
			}
			_ = bar.Set64(snap.BytesWritten)
		}
	}
}

func newBar(w io.Writer, name string, total int64) *progressbar.ProgressBar {
	return progressbar.NewOptions64(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(name),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetWidth(30),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionShowCount(),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(w)
		}),
		progressbar.OptionSetPredictTime(true),
	)
}
