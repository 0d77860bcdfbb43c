package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/yourusername/tikdown-go/internal/app"
	"github.com/yourusername/tikdown-go/internal/domain"
)

var (
	configPath string
	verbose    bool
	rootCmd    = &cobra.Command{
		Use:           "tikdown",
		Short:         "tikdown - Douyin share link resolver and downloader",
		Long:          `Paste Douyin share text to resolve the video behind it and save it locally.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(statsCmd)
}

// loadConfig applies the CLI's logging defaults on top of the config file
func loadConfig() (*domain.Config, error) {
	config, err := app.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	if verbose {
		config.Logging.Level = "debug"
	}
	return config, nil
}

func bootstrap(config *domain.Config) (*app.Components, error) {
	log, err := app.NewLogger(config)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return app.Bootstrap(config, log)
}

// readInput joins args, or reads stdin when there are none or the only one is "-"
func readInput(args []string, stdin io.Reader) (string, error) {
	if len(args) > 0 && !(len(args) == 1 && args[0] == "-") {
		return strings.Join(args, " "), nil
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

var resolveCmd = &cobra.Command{
	Use:   "resolve [text...]",
	Short: "Resolve share text to a verified direct link",
	RunE: func(cmd *cobra.Command, args []string) error {
		input, err := readInput(args, cmd.InOrStdin())
		if err != nil {
			return err
		}

		config, err := loadConfig()
		if err != nil {
			return err
		}
		components, err := bootstrap(config)
		if err != nil {
			return err
		}
		defer components.Close()

		ctx, stop := signalContext()
		defer stop()

		info, err := components.Pipeline.Resolve(ctx, input)
		if err != nil {
			return err
		}

		printVideoInfo(cmd.OutOrStdout(), info)
		return nil
	},
}

var getCmd = &cobra.Command{
	Use:   "get [text...]",
	Short: "Resolve share text and download the video",
	RunE: func(cmd *cobra.Command, args []string) error {
		input, err := readInput(args, cmd.InOrStdin())
		if err != nil {
			return err
		}

		config, err := loadConfig()
		if err != nil {
			return err
		}
		if dir, _ := cmd.Flags().GetString("dir"); dir != "" {
			config.Download.Dir = dir
			config.Download.SubDir = ""
		}
		name, _ := cmd.Flags().GetString("name")
		quiet, _ := cmd.Flags().GetBool("quiet")

		components, err := bootstrap(config)
		if err != nil {
			return err
		}
		defer components.Close()

		ctx, stop := signalContext()
		defer stop()

		job, err := components.Pipeline.NewJob(input)
		if err != nil {
			return err
		}

		done := make(chan error, 1)
		go func() {
			done <- components.Pipeline.Run(ctx, job, name)
		}()

		if quiet {
			err = <-done
		} else {
			err = watchProgress(job, config.Download.ProgressInterval, cmd.ErrOrStderr(), done)
		}
		if err != nil {
			return err
		}

		record := job.Record()
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Saved to %s (%s)\n", record.FilePath, domain.FormatSize(record.Size))
		return nil
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List past fetches",
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, closeFn, err := openHistory()
		if err != nil {
			return err
		}
		defer closeFn()

		filters := make(map[string]interface{})
		if status, _ := cmd.Flags().GetString("status"); status != "" {
			if !domain.ValidateStatus(domain.RecordStatus(status)) {
				return fmt.Errorf("invalid status: %s", status)
			}
			filters["status"] = status
		}

		records, err := repo.FindAll(filters)
		if err != nil {
			return err
		}

		printRecords(cmd.OutOrStdout(), records)
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show fetch statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, closeFn, err := openHistory()
		if err != nil {
			return err
		}
		defer closeFn()

		stats, err := repo.GetStats()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "Fetch Statistics:")
		fmt.Fprintf(out, "  Total:       %d\n", stats.Total)
		fmt.Fprintf(out, "  Resolving:   %d\n", stats.Resolving)
		fmt.Fprintf(out, "  Downloading: %d\n", stats.Downloading)
		fmt.Fprintf(out, "  Completed:   %d\n", stats.Completed)
		fmt.Fprintf(out, "  Failed:      %d\n", stats.Failed)
		fmt.Fprintf(out, "  Cancelled:   %d\n", stats.Cancelled)
		return nil
	},
}

func openHistory() (domain.RecordRepository, func(), error) {
	config, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	if !config.History.Enabled {
		return nil, nil, errors.New("history is disabled in the configuration")
	}

	components, err := bootstrap(config)
	if err != nil {
		return nil, nil, err
	}
	return components.History(), components.Close, nil
}

func printVideoInfo(w io.Writer, info *domain.VideoInfo) {
	fmt.Fprintf(w, "Video ID:    %s\n", info.ID)
	fmt.Fprintf(w, "Size:        %s\n", domain.FormatSize(info.Size))
	fmt.Fprintf(w, "Direct link: %s\n", info.DirectLink)
}

func printRecords(w io.Writer, records []*domain.Record) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tVIDEO\tSTATUS\tSIZE\tFILE\tCREATED")
	for _, r := range records {
		status := string(r.Status)
		if r.FailureReason != "" && r.Status == domain.StatusFailed {
			status += " (" + string(r.FailureReason) + ")"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			truncate(r.ID, 8),
			r.VideoID,
			status,
			domain.FormatSize(r.Size),
			truncate(r.FilePath, 40),
			r.CreatedAt.Format("2006-01-02 15:04"))
	}
	tw.Flush()
}

func init() {
	getCmd.Flags().StringP("name", "n", "", "File name without extension (default: taken from the share text)")
	getCmd.Flags().StringP("dir", "d", "", "Download directory")
	getCmd.Flags().BoolP("quiet", "q", false, "Do not show progress")
	historyCmd.Flags().StringP("status", "s", "", "Filter by status")
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}

// exitCode maps a classified error to the process status
func exitCode(err error) int {
	switch domain.Classify(err) {
	case domain.KindCancelled:
		return 130
	case domain.KindInput:
		return 2
	default:
		return 1
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if domain.Classify(err) == domain.KindCancelled {
			fmt.Fprintln(os.Stderr, "Cancelled")
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			if reason := domain.ReasonOf(err); reason != "" {
				fmt.Fprintf(os.Stderr, "Reason: %s\n", reason.Description())
			}
		}
		os.Exit(exitCode(err))
	}
}
