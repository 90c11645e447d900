// cmd/client/cmd/backup.go
package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Create, export and restore backups",
	Long: `Backups are JSON snapshot documents of the full record set. The store
also keeps a rotated set of automatic snapshots internally; these
commands deal with snapshot files you can move between devices.`,
}

var backupCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Write a backup snapshot file",
	RunE: func(cmd *cobra.Command, args []string) error {
		serialized, err := app.Transport.ExportBackup(cmd.Context())
		if err != nil {
			return fmt.Errorf("create backup: %w", err)
		}

		if err := os.MkdirAll(cfg.BackupDir, 0700); err != nil {
			return fmt.Errorf("create backup directory: %w", err)
		}

		name := fmt.Sprintf("attendance-backup-%s.json", time.Now().Format("2006-01-02-150405"))
		path := filepath.Join(cfg.BackupDir, name)
		if err := os.WriteFile(path, []byte(serialized), 0600); err != nil {
			return fmt.Errorf("write backup file: %w", err)
		}

		fmt.Printf("Backup written to %s\n", path)
		return nil
	},
}

var backupExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Print a backup snapshot to stdout",
	RunE: func(cmd *cobra.Command, args []string) error {
		serialized, err := app.Transport.ExportBackup(cmd.Context())
		if err != nil {
			return fmt.Errorf("export backup: %w", err)
		}
		fmt.Println(serialized)
		return nil
	},
}

var backupRestoreCmd = &cobra.Command{
	Use:   "restore <file>",
	Short: "Replace all records with the contents of a snapshot file",
	Long: `Restores the record set from a snapshot file. The current records are
replaced wholesale; entries the snapshot carries that are structurally
invalid are skipped.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read snapshot file: %w", err)
		}

		if err := app.Transport.ImportBackup(cmd.Context(), string(raw)); err != nil {
			return fmt.Errorf("restore backup: %w", err)
		}

		fmt.Println("Backup restored")
		return nil
	},
}

func init() {
	backupCmd.AddCommand(backupCreateCmd)
	backupCmd.AddCommand(backupExportCmd)
	backupCmd.AddCommand(backupRestoreCmd)
	rootCmd.AddCommand(backupCmd)
}
