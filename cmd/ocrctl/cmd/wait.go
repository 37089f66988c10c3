package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ocrplane/pkg/api"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/time/rate"
)

var waitCmd = &cobra.Command{
	Use:   "wait [job_id]",
	Short: "Block until a job reaches a terminal state",
	Long: `Poll a job's status until it completes or fails.

Polling is paced by --interval and bounded by --timeout. The command
exits non-zero if the job failed or the timeout elapsed.

Example:
  ocrctl wait 0f1e2d3c-4b5a-6978-8796-a5b4c3d2e1f0 --interval 5s`,
	Args:          cobra.ExactArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		jobID := args[0]
		interval, _ := cmd.Flags().GetDuration("interval")
		timeout, _ := cmd.Flags().GetDuration("timeout")

		url := viper.GetString("url")
		token := viper.GetString("token")

		if token == "" {
			cmd.Println("API token not found. Please set it using the --token flag or the OCRPLANE_TOKEN environment variable")
			return fmt.Errorf("missing token")
		}

		client := NewOCRClient(url, token)

		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		// Burst of one so the first poll fires immediately and the rest
		// are paced at the interval.
		limiter := rate.NewLimiter(rate.Every(interval), 1)
		started := time.Now()
		lastStatus := ""

		for {
			if err := limiter.Wait(ctx); err != nil {
				err = fmt.Errorf("timed out after %s waiting for job %s", timeout, jobID)
				cmd.Println(err)
				return err
			}

			job, err := client.GetStatus(jobID)
			if err != nil {
				var apiErr *APIError
				if errors.As(err, &apiErr) {
					cmd.Printf("Request failed (%d): %s\n", apiErr.StatusCode, apiErr.Message)
				} else {
					cmd.Printf("Request failed: %v\n", err)
				}
				return err
			}

			if job.Status != lastStatus {
				cmd.Printf("%s %s\n", statusIcon(job.Status), job.Status)
				lastStatus = job.Status
			}

			switch job.Status {
			case api.StatusCompleted:
				cmd.Printf("✓ Job %s completed in %s\n", jobID, formatDuration(time.Since(started)))
				return nil
			case api.StatusFailed:
				err := fmt.Errorf("job %s failed: %s", jobID, job.Error)
				cmd.Printf("✗ %v\n", err)
				return err
			}
		}
	},
}

func init() {
	waitCmd.Flags().Duration("interval", 2*time.Second, "Delay between status polls")
	waitCmd.Flags().Duration("timeout", 10*time.Minute, "Give up after this long")
	rootCmd.AddCommand(waitCmd)
}
