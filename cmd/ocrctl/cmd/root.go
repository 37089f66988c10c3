package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "ocrctl",
	Short: "Ocrctl is a command line tool for interacting with the ocrplane service",
	Long: `ocrctl is the command-line interface for the ocrplane document OCR service.

ocrplane accepts PDF and image uploads over an authenticated HTTP API, runs
each document through an OCR pipeline in the background, and serves the
extracted text once processing finishes.

Common workflows:

  Log in and save the token:
    ocrctl login alice --password wonderland
    export OCRPLANE_TOKEN=<token>

  Upload documents for OCR:
    ocrctl upload report.pdf scan.png

  Check job progress:
    ocrctl status <job-id>

  Block until a job finishes:
    ocrctl wait <job-id>

  Fetch the extracted text:
    ocrctl result <job-id> -o report.md

Configuration:
  Set the API endpoint and credentials via environment variables or a config file:
    OCRPLANE_URL      API endpoint (default: http://localhost:8015)
    OCRPLANE_TOKEN    Bearer token from 'ocrctl login'`,
}

func Execute() error {
	return rootCmd.Execute()
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

		// Search config in home directory with name ".ocrctl"
		viper.AddConfigPath(home)
		viper.SetConfigName(".ocrctl")
		viper.SetConfigType("yaml")
	}

	// Read environment variables that match "OCRPLANE_VARNAME"
	viper.SetEnvPrefix("OCRPLANE")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Println("Using config file:", viper.ConfigFileUsed())
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.ocrctl.yaml)")

	rootCmd.PersistentFlags().String("url", "http://localhost:8015", "ocrplane API URL")
	viper.BindPFlag("url", rootCmd.PersistentFlags().Lookup("url"))

	rootCmd.PersistentFlags().StringP("token", "t", "", "Bearer token for authentication")
	viper.BindPFlag("token", rootCmd.PersistentFlags().Lookup("token"))
}
