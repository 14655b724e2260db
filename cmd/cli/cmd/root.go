package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "reportctl",
	Short: "Reportctl is a command line tool for interacting with the reportplane platform",
	Long: `reportctl is the command-line interface for the ReportPlane website report platform.

ReportPlane generates multi-stage marketing reports for websites: website
analysis, SEO, social media presence, online reputation, competitors, AI
scoring, and an executive summary. Reports are generated asynchronously by
worker agents pulling from a queue.

Common workflows:

  Request a report:
    reportctl create "https://example.com" --email "me@example.com"

  Check report status:
    reportctl status <report-id>

  Follow live generation progress:
    reportctl watch <report-id>

  Cancel a pending or in-flight report:
    reportctl cancel <report-id>

Configuration:
  Set the API endpoint via environment variables or a config file:
    REPORTPLANE_URL    API endpoint (default: http://localhost:8080)

For more information, visit: https://github.com/reportplane/reportplane`,
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

		// Search config in home directory with name ".reportctl"
		viper.AddConfigPath(home)
		viper.SetConfigName(".reportctl")
		viper.SetConfigType("yaml")
	}

	// Read environment variables that match "REPORTPLANE_VARNAME"
	viper.SetEnvPrefix("REPORTPLANE")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Println("Using config file:", viper.ConfigFileUsed())
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.reportctl.yaml)")

	rootCmd.PersistentFlags().String("url", "http://localhost:8080", "ReportPlane Controller URL")
	viper.BindPFlag("url", rootCmd.PersistentFlags().Lookup("url"))
}
