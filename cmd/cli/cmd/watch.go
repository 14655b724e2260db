package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"reportplane/internal/progress"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

var watchCmd = &cobra.Command{
	Use:   "watch [report_id]",
	Short: "Follow live generation progress of a report",
	Long: `Subscribe to the report's progress websocket and print stage events as
they happen. Exits when the report reaches a terminal state or on Ctrl-C.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		reportID := args[0]
		apiURL := viper.GetString("url")

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		endpoint := fmt.Sprintf("%s/reports/%s/ws", wsURL(apiURL), reportID)
		conn, _, err := websocket.Dial(ctx, endpoint, nil)
		if err != nil {
			cmd.Printf("Failed to connect: %v\n", err)
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "done")

		cmd.Printf("Watching report %s (Ctrl-C to stop)\n", reportID)

		for {
			var ev progress.Event
			if err := wsjson.Read(ctx, conn, &ev); err != nil {
				if ctx.Err() != nil {
					return
				}
				cmd.Printf("Connection closed: %v\n", err)
				return
			}

			printEvent(cmd, ev)

			if ev.Type == progress.EventReportCompleted || ev.Type == progress.EventReportFailed {
				return
			}
		}
	},
}

func printEvent(cmd *cobra.Command, ev progress.Event) {
	switch ev.Type {
	case progress.EventProgressUpdate:
		cmd.Printf("[%3d%%] %s %s %s\n", ev.Progress, stageIcon(ev.State), ev.Stage, ev.Message)
	case progress.EventReportCompleted:
		cmd.Printf("[100%%] %s report completed\n", colorGreen+"✓"+colorReset)
	case progress.EventReportFailed:
		cmd.Printf("%s report failed: %s\n", colorRed+"✗"+colorReset, ev.Error)
	case progress.EventStatusUpdate:
		cmd.Printf("status: %s\n", colorizeStatus(ev.NewStatus))
	default:
		// Snapshot and list events carry no stage detail worth printing here.
	}
}

// wsURL converts the configured API base URL to its websocket form.
func wsURL(apiURL string) string {
	switch {
	case strings.HasPrefix(apiURL, "https://"):
		return "wss://" + strings.TrimPrefix(apiURL, "https://")
	case strings.HasPrefix(apiURL, "http://"):
		return "ws://" + strings.TrimPrefix(apiURL, "http://")
	}
	return apiURL
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
