package cmd

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var resultCmd = &cobra.Command{
	Use:   "result [job_id]",
	Short: "Fetch the extracted text of a completed job",
	Long: `Retrieve the OCR output for a completed job.

The extracted text is printed to stdout, or written to a file with -o.

Example:
  ocrctl result 0f1e2d3c-4b5a-6978-8796-a5b4c3d2e1f0
  ocrctl result 0f1e2d3c-4b5a-6978-8796-a5b4c3d2e1f0 -o report.md`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		jobID := args[0]
		outPath, _ := cmd.Flags().GetString("output")

		url := viper.GetString("url")
		token := viper.GetString("token")

		if token == "" {
			cmd.Println("API token not found. Please set it using the --token flag or the OCRPLANE_TOKEN environment variable")
			return
		}

		client := NewOCRClient(url, token)
		result, err := client.GetResult(jobID)
		if err != nil {
			if apiErr, ok := err.(*APIError); ok {
				cmd.Printf("Request failed (%d): %s\n", apiErr.StatusCode, apiErr.Message)
			} else {
				cmd.Printf("Request failed: %v\n", err)
			}
			return
		}

		if outPath != "" {
			if err := os.WriteFile(outPath, []byte(result.Text), 0o644); err != nil {
				cmd.Printf("Failed to write %s: %v\n", outPath, err)
				return
			}
			cmd.Printf("✓ Wrote %d bytes to %s\n", len(result.Text), outPath)
			return
		}

		cmd.Print(result.Text)
		if len(result.Text) > 0 && result.Text[len(result.Text)-1] != '\n' {
			cmd.Println()
		}
	},
}

func init() {
	resultCmd.Flags().StringP("output", "o", "", "Write the extracted text to this file instead of stdout")
	rootCmd.AddCommand(resultCmd)
}
