package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cancelCmd = &cobra.Command{
	Use:   "cancel [report_id]",
	Short: "Cancel a pending or in-flight report",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		reportID := args[0]
		apiURL := viper.GetString("url")

		client := NewReportClient(apiURL)
		result, err := client.CancelReport(reportID)
		if err != nil {
			if apiErr, ok := err.(*APIError); ok {
				cmd.Printf("Error (%d): %s\n", apiErr.StatusCode, apiErr.Message)
			} else {
				cmd.Printf("Error: %v\n", err)
			}
			return
		}

		if result.Cancelled {
			cmd.Printf("✓ Report %s cancelled\n", result.ReportID)
		} else {
			cmd.Printf("Report %s was not cancelled (already finished?)\n", result.ReportID)
		}
	},
}

func init() {
	rootCmd.AddCommand(cancelCmd)
}
