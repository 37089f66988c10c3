package cmd

import (
	"fmt"
	"sync"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
)

// maxConcurrentUploads bounds how many files are in flight at once.
const maxConcurrentUploads = 4

var uploadCmd = &cobra.Command{
	Use:   "upload [file]...",
	Short: "Upload documents for OCR",
	Long: `Upload one or more documents to the OCR queue.

Each file becomes its own job; multiple files are uploaded concurrently.
The command prints one job ID per file and exits non-zero if any upload
was rejected.

Example:
  ocrctl upload report.pdf
  ocrctl upload scans/*.png`,
	Args:          cobra.MinimumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		url := viper.GetString("url")
		token := viper.GetString("token")

		if token == "" {
			cmd.Println("API token not found. Please set it using the --token flag or the OCRPLANE_TOKEN environment variable")
			return fmt.Errorf("missing token")
		}

		client := NewOCRClient(url, token)

		var g errgroup.Group
		g.SetLimit(maxConcurrentUploads)

		var mu sync.Mutex
		failed := 0

		for _, path := range args {
			g.Go(func() error {
				job, err := client.UploadFile(path)

				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					failed++
					if apiErr, ok := err.(*APIError); ok {
						cmd.Printf("✗ %s: upload rejected (%d): %s\n", path, apiErr.StatusCode, apiErr.Message)
					} else {
						cmd.Printf("✗ %s: %v\n", path, err)
					}
					return nil
				}
				cmd.Printf("✓ %s\n  Job ID: %s\n", path, job.JobID)
				return nil
			})
		}
		g.Wait()

		if failed > 0 {
			err := fmt.Errorf("%d of %d uploads failed", failed, len(args))
			cmd.Println(err)
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(uploadCmd)
}
