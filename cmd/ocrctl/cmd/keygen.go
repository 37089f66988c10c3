package cmd

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/spf13/cobra"
)

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate a random secret for token signing",
	Long: `Generate a cryptographically random secret suitable for the server's
SECRET_KEY setting.

Example:
  ocrctl keygen
  ocrctl keygen --bytes 64`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		n, _ := cmd.Flags().GetInt("bytes")
		if n <= 0 {
			cmd.Println("Error: --bytes must be positive")
			return
		}

		buf := make([]byte, n)
		if _, err := rand.Read(buf); err != nil {
			cmd.Printf("Failed to read random bytes: %v\n", err)
			return
		}

		cmd.Println(hex.EncodeToString(buf))
	},
}

func init() {
	keygenCmd.Flags().Int("bytes", 32, "Number of random bytes in the secret")
	rootCmd.AddCommand(keygenCmd)
}
