// cmd/client/cmd/wipe.go
package cmd

import (
	"errors"
	"fmt"
	"os"

	"prefectlog/internal/app/client"
	"prefectlog/internal/app/client/config"
	"prefectlog/internal/domain/admin"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var wipeCmd = &cobra.Command{
	Use:   "wipe",
	Short: "Erase all attendance data",
	Long: `Removes every attendance record, backup and setting. The operation is
guarded by the admin PIN and cannot be undone.

Ten wrong PIN attempts lock admin access for 15 minutes.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Print("Admin PIN: ")
		pin, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Println()
		if err != nil {
			return fmt.Errorf("read PIN: %w", err)
		}

		if err := app.Guard.Verify(string(pin)); err != nil {
			var lockErr *admin.LockoutError
			if errors.As(err, &lockErr) {
				return fmt.Errorf("admin access is locked, try again in %d minute(s)", lockErr.RemainingMinutes)
			}
			var pinErr *admin.PinError
			if errors.As(err, &pinErr) {
				return fmt.Errorf("invalid PIN, %d attempt(s) remaining", pinErr.RemainingAttempts)
			}
			return err
		}

		if cfg.Mode == config.ModeRemote {
			remote, ok := app.Transport.(*client.RemoteTransport)
			if !ok {
				return fmt.Errorf("remote transport unavailable")
			}
			if err := remote.WipeAll(cmd.Context()); err != nil {
				return fmt.Errorf("wipe server data: %w", err)
			}
		} else {
			if err := app.Store.Wipe(); err != nil {
				return fmt.Errorf("wipe local data: %w", err)
			}
		}

		color.Red("All attendance data erased")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(wipeCmd)
}
