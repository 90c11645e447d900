// cmd/client/cmd/mark.go
package cmd

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"prefectlog/internal/app/client/config"
	"prefectlog/internal/domain/attendance"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var markRole string

var markCmd = &cobra.Command{
	Use:   "mark <prefect-number>",
	Short: "Mark attendance for a prefect",
	Long: `Marks a morning check-in for one prefect. The check-in counts as on
time up to 07:00:00; anything later is recorded as late.

A prefect can be marked once per role per day. A second attempt for the
same prefect, role and date is rejected.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		role := attendance.Role(markRole)

		rec, err := app.Transport.MarkAttendance(cmd.Context(), args[0], role)
		if err != nil {
			if errors.Is(err, attendance.ErrDuplicate) {
				return fmt.Errorf("prefect %s is already marked as %s today", args[0], markRole)
			}
			if errors.Is(err, attendance.ErrInvalidRole) {
				return fmt.Errorf("unknown role %q, valid roles: %s", markRole, roleList())
			}
			return err
		}

		printRecord(rec)
		return nil
	},
}

var markBulkCmd = &cobra.Command{
	Use:   "bulk <file>",
	Short: "Mark attendance for several prefects from a CSV file",
	Long: `Reads prefect-number,role pairs from a CSV file and marks each one.
Entries are independent: a duplicate or invalid line does not stop the
rest of the batch.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		entries, err := readBulkFile(args[0])
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Println("No entries found in file")
			return nil
		}

		// Local mode hands the whole batch to the service so the batch
		// is logged and pruned once. Remote mode marks entry by entry.
		if cfg.Mode == config.ModeLocal {
			result := app.Service.MarkBulk(entries, time.Time{})
			printBulkSummary(len(result.Success), result.Errors)
			return nil
		}

		var marked int
		var failed []attendance.BulkError
		for _, entry := range entries {
			_, err := app.Transport.MarkAttendance(cmd.Context(), entry.PrefectNumber, entry.Role)
			if err != nil {
				failed = append(failed, attendance.BulkError{
					PrefectNumber: entry.PrefectNumber,
					Role:          entry.Role,
					Reason:        err.Error(),
				})
				continue
			}
			marked++
		}
		printBulkSummary(marked, failed)
		return nil
	},
}

func readBulkFile(path string) ([]attendance.BulkEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open bulk file: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = 2
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse bulk file: %w", err)
	}

	entries := make([]attendance.BulkEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, attendance.BulkEntry{
			PrefectNumber: strings.TrimSpace(row[0]),
			Role:          attendance.Role(strings.TrimSpace(row[1])),
		})
	}
	return entries, nil
}

func printRecord(rec attendance.Record) {
	status := color.GreenString(string(rec.Status))
	if rec.Status == attendance.StatusLate {
		status = color.YellowString(string(rec.Status))
	}
	fmt.Printf("Marked %s as %s on %s at %s [%s]\n",
		rec.PrefectNumber,
		rec.Role,
		rec.Date,
		rec.Timestamp.Format("15:04:05"),
		status,
	)
}

func printBulkSummary(marked int, failed []attendance.BulkError) {
	fmt.Printf("Marked: %d, failed: %d\n", marked, len(failed))
	for _, f := range failed {
		color.Red("  %s (%s): %s", f.PrefectNumber, f.Role, f.Reason)
	}
}

func roleList() string {
	names := make([]string, len(attendance.Roles))
	for i, r := range attendance.Roles {
		names[i] = string(r)
	}
	return strings.Join(names, ", ")
}

func init() {
	markCmd.Flags().StringVarP(&markRole, "role", "r", "", "prefect role (required)")
	markCmd.MarkFlagRequired("role")

	markCmd.AddCommand(markBulkCmd)
	rootCmd.AddCommand(markCmd)
}
