package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var loginCmd = &cobra.Command{
	Use:   "login [username]",
	Short: "Authenticate and print a bearer token",
	Long: `Exchange a username and password for a bearer token.

The password is read from the --password flag or the OCRPLANE_PASSWORD
environment variable.

Example:
  ocrctl login alice --password wonderland
  OCRPLANE_PASSWORD=wonderland ocrctl login alice`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		username := args[0]

		password, _ := cmd.Flags().GetString("password")
		if password == "" {
			password = viper.GetString("password")
		}
		if password == "" {
			cmd.Println("Password not found. Please set it using the --password flag or the OCRPLANE_PASSWORD environment variable")
			return
		}

		url := viper.GetString("url")
		client := NewOCRClient(url, "")

		result, err := client.Login(username, password)
		if err != nil {
			if apiErr, ok := err.(*APIError); ok {
				cmd.Printf("Login failed (%d): %s\n", apiErr.StatusCode, apiErr.Message)
			} else {
				cmd.Printf("Login failed: %v\n", err)
			}
			return
		}

		cmd.Printf("✓ Logged in as %s\n", username)
		cmd.Printf("Token: %s\n", result.AccessToken)
		cmd.Println()
		cmd.Println("Export it for later commands:")
		cmd.Printf("  export OCRPLANE_TOKEN=%s\n", result.AccessToken)
	},
}

func init() {
	loginCmd.Flags().StringP("password", "p", "", "Password for the given username")
	rootCmd.AddCommand(loginCmd)
}
