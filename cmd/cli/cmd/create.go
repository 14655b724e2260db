package cmd

import (
	"reportplane/pkg/api"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var createCmd = &cobra.Command{
	Use:   "create [website_url]",
	Short: "Request a new website report",
	Long: `Request a new report for a website. Generation happens asynchronously;
use 'reportctl status' or 'reportctl watch' to follow it.

Example:
  reportctl create "https://example.com"
  reportctl create "example.com" --company "Example Inc" --email "me@example.com"`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		flags := cmd.Flags()
		company, _ := flags.GetString("company")
		email, _ := flags.GetString("email")

		apiURL := viper.GetString("url")

		client := NewReportClient(apiURL)
		req := api.CreateReportRequest{
			URL:            args[0],
			CompanyName:    company,
			RequesterEmail: email,
		}

		result, err := client.CreateReport(req)
		if err != nil {
			if apiErr, ok := err.(*APIError); ok {
				cmd.Printf("Error (%d): %s\n", apiErr.StatusCode, apiErr.Message)
			} else {
				cmd.Printf("Error: %v\n", err)
			}
			return
		}

		cmd.Printf("✓ Report requested!\nID: %s\nStatus: %s\n", result.ReportID, result.Status)
	},
}

func init() {
	flags := createCmd.Flags()
	flags.String("company", "", "Company name (optional, detected from the site when empty)")
	flags.StringP("email", "e", "", "Address notified when the report completes (optional)")

	rootCmd.AddCommand(createCmd)
}
