// cmd/client/cmd/list.go
package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"prefectlog/internal/domain/attendance"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	listDate   string
	listFormat string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List attendance records",
	Long: `Shows attendance records, newest first. With --date only records for
that calendar day are shown.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			records []attendance.Record
			err     error
		)
		if listDate != "" {
			if _, perr := time.Parse(attendance.DateLayout, listDate); perr != nil {
				return fmt.Errorf("date must be in YYYY-MM-DD format, got %q", listDate)
			}
			records, err = app.Transport.ListByDate(cmd.Context(), listDate)
		} else {
			records, err = app.Transport.ListAll(cmd.Context())
		}
		if err != nil {
			return fmt.Errorf("list records: %w", err)
		}

		switch listFormat {
		case "json":
			return printRecordsJSON(records)
		case "table":
			return printRecordsTable(records)
		default:
			return printRecordsSimple(records)
		}
	},
}

func printRecordsSimple(records []attendance.Record) error {
	if len(records) == 0 {
		fmt.Println("No records found")
		return nil
	}

	fmt.Printf("Found %d record(s)\n\n", len(records))

	for i, rec := range records {
		fmt.Printf("%d. %s as %s\n", i+1, rec.PrefectNumber, rec.Role)
		fmt.Printf("   %s at %s [%s]\n", rec.Date, rec.Timestamp.Format("15:04:05"), coloredStatus(rec.Status))
	}
	return nil
}

func printRecordsTable(records []attendance.Record) error {
	if len(records) == 0 {
		fmt.Println("No records found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Prefect\tRole\tDate\tTime\tStatus\t\n")
	fmt.Fprintf(w, "---\t---\t---\t---\t---\t\n")

	for _, rec := range records {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t\n",
			rec.PrefectNumber,
			rec.Role,
			rec.Date,
			rec.Timestamp.Format("15:04:05"),
			rec.Status,
		)
	}

	w.Flush()
	fmt.Printf("\nTotal: %d\n", len(records))
	return nil
}

func printRecordsJSON(records []attendance.Record) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(records)
}

func coloredStatus(status string) string {
	if status == attendance.StatusLate {
		return color.YellowString(status)
	}
	return color.GreenString(status)
}

func init() {
	listCmd.Flags().StringVarP(&listDate, "date", "d", "", "only records for this day (YYYY-MM-DD)")
	listCmd.Flags().StringVarP(&listFormat, "format", "f", "simple", "output format (simple, table, json)")
	rootCmd.AddCommand(listCmd)
}
