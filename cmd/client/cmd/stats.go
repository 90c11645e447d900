// cmd/client/cmd/stats.go
package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"prefectlog/internal/domain/attendance"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var statsDate string

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show attendance statistics",
	Long: `Summarizes attendance: totals, on-time rate and a per-role breakdown.
With --date the summary covers a single day.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		records, err := app.Transport.ListAll(cmd.Context())
		if err != nil {
			return fmt.Errorf("list records: %w", err)
		}

		var stats attendance.Stats
		if statsDate != "" {
			if _, perr := time.Parse(attendance.DateLayout, statsDate); perr != nil {
				return fmt.Errorf("date must be in YYYY-MM-DD format, got %q", statsDate)
			}
			stats = attendance.DailyStats(records, statsDate)
			fmt.Printf("Attendance for %s\n\n", statsDate)
		} else {
			stats = attendance.ComputeStats(records)
			fmt.Println("Attendance, all time")
			fmt.Println()
		}

		fmt.Printf("Total:   %d\n", stats.Total)
		fmt.Printf("On time: %s\n", color.GreenString("%d", stats.OnTime))
		fmt.Printf("Late:    %s\n", color.YellowString("%d", stats.Late))
		fmt.Printf("Rate:    %.1f%%\n\n", stats.Rate)

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "Role\tCount\t\n")
		for _, role := range attendance.Roles {
			fmt.Fprintf(w, "%s\t%d\t\n", role, stats.ByRole[role])
		}
		return w.Flush()
	},
}

func init() {
	statsCmd.Flags().StringVarP(&statsDate, "date", "d", "", "only count records for this day (YYYY-MM-DD)")
	rootCmd.AddCommand(statsCmd)
}
