// cmd/client/cmd/report.go
package cmd

import (
	"fmt"
	"os"
	"time"

	"prefectlog/internal/domain/attendance"

	"github.com/spf13/cobra"
)

var reportOutput string

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Generate attendance reports",
}

var reportPrefectCmd = &cobra.Command{
	Use:   "prefect <prefect-number>",
	Short: "Per-prefect attendance history report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		records, err := app.Transport.ListAll(cmd.Context())
		if err != nil {
			return fmt.Errorf("list records: %w", err)
		}
		return writeReport(attendance.PrefectReport(records, args[0]))
	},
}

var reportDayCmd = &cobra.Command{
	Use:   "day <date>",
	Short: "Daily attendance report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := time.Parse(attendance.DateLayout, args[0]); err != nil {
			return fmt.Errorf("date must be in YYYY-MM-DD format, got %q", args[0])
		}
		records, err := app.Transport.ListAll(cmd.Context())
		if err != nil {
			return fmt.Errorf("list records: %w", err)
		}
		return writeReport(attendance.DayReport(records, args[0]))
	},
}

func writeReport(report string) error {
	if reportOutput == "" {
		fmt.Println(report)
		return nil
	}
	if err := os.WriteFile(reportOutput, []byte(report), 0644); err != nil {
		return fmt.Errorf("write report file: %w", err)
	}
	fmt.Printf("Report written to %s\n", reportOutput)
	return nil
}

func init() {
	reportCmd.PersistentFlags().StringVarP(&reportOutput, "output", "o", "", "write the report to a file instead of stdout")
	reportCmd.AddCommand(reportPrefectCmd)
	reportCmd.AddCommand(reportDayCmd)
	rootCmd.AddCommand(reportCmd)
}
