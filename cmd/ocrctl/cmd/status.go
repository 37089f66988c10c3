package cmd

import (
	"fmt"
	"strings"
	"time"

	"ocrplane/pkg/api"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var statusCmd = &cobra.Command{
	Use:   "status [job_id]",
	Short: "Get status of an OCR job",
	Long:  `Retrieve detailed status information for an OCR job, including its current state (queued, processing, completed, failed), progress, and timestamps.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		jobID := args[0]

		url := viper.GetString("url")
		token := viper.GetString("token")

		if token == "" {
			cmd.Println("API token not found. Please set it using the --token flag or the OCRPLANE_TOKEN environment variable")
			return
		}

		client := NewOCRClient(url, token)
		job, err := client.GetStatus(jobID)
		if err != nil {
			if apiErr, ok := err.(*APIError); ok {
				cmd.Printf("Request failed (%d): %s\n", apiErr.StatusCode, apiErr.Message)
			} else {
				cmd.Printf("Request failed: %v\n", err)
			}
			return
		}

		printJobStatus(cmd, *job)
	},
}

func printJobStatus(cmd *cobra.Command, job api.JobStatusResponse) {
	// Header with status icon
	icon := statusIcon(job.Status)
	cmd.Printf("%s %sJob Details%s\n", icon, colorBold, colorReset)
	cmd.Println("──────────────────────────────")

	cmd.Printf("%sJob ID:%s     %s\n", colorDim, colorReset, job.JobID)
	cmd.Printf("%sStatus:%s     %s\n", colorDim, colorReset, colorizeStatus(job.Status))
	cmd.Printf("%sProgress:%s   %s\n", colorDim, colorReset, progressBar(job.Progress))

	if job.PageCount > 0 {
		cmd.Printf("%sPages:%s      %d\n", colorDim, colorReset, job.PageCount)
	}

	if job.Error != "" {
		cmd.Printf("%sError:%s      %s%s%s\n", colorDim, colorReset, colorRed, job.Error, colorReset)
	}

	cmd.Printf("%sCreated:%s    %s\n", colorDim, colorReset, formatTimeWithRelative(job.CreatedAt))

	if job.ResultPath != "" {
		cmd.Printf("%sResult:%s     %s\n", colorDim, colorReset, job.ResultPath)
	}
}

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorBold   = "\033[1m"
	colorDim    = "\033[2m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
)

func statusIcon(status string) string {
	switch status {
	case api.StatusCompleted:
		return colorGreen + "✓" + colorReset
	case api.StatusFailed:
		return colorRed + "✗" + colorReset
	case api.StatusProcessing:
		return colorYellow + "⏳" + colorReset
	case api.StatusQueued:
		return colorCyan + "◯" + colorReset
	default:
		return "•"
	}
}

func colorizeStatus(status string) string {
	icon := statusIcon(status)
	switch status {
	case api.StatusCompleted:
		return icon + " " + colorGreen + status + colorReset
	case api.StatusFailed:
		return icon + " " + colorRed + status + colorReset
	case api.StatusProcessing:
		return icon + " " + colorYellow + status + colorReset
	case api.StatusQueued:
		return icon + " " + colorCyan + status + colorReset
	default:
		return status
	}
}

// progressBar renders a ten-cell bar like "[█████░░░░░] 50%".
func progressBar(progress float64) string {
	if progress < 0 {
		progress = 0
	}
	if progress > 1 {
		progress = 1
	}
	filled := int(progress*10 + 0.5)
	bar := strings.Repeat("█", filled) + strings.Repeat("░", 10-filled)
	return fmt.Sprintf("[%s] %d%%", bar, int(progress*100+0.5))
}

func formatTimeWithRelative(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	relative := relativeTime(t)
	return fmt.Sprintf("%s %s(%s ago)%s", t.Format("Mon, 02 Jan 2006 15:04:05 MST"), colorDim, relative, colorReset)
}

func relativeTime(t time.Time) string {
	duration := time.Since(t)

	if duration < time.Minute {
		return fmt.Sprintf("%ds", int(duration.Seconds()))
	} else if duration < time.Hour {
		return fmt.Sprintf("%dm", int(duration.Minutes()))
	} else if duration < 24*time.Hour {
		return fmt.Sprintf("%dh", int(duration.Hours()))
	} else {
		days := int(duration.Hours() / 24)
		if days == 1 {
			return "1 day"
		}
		return fmt.Sprintf("%d days", days)
	}
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	} else if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	} else if d < time.Hour {
		return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
