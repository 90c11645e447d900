// cmd/client/cmd/members.go
package cmd

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"prefectlog/internal/app/client"
	"prefectlog/internal/app/client/config"
	"prefectlog/internal/domain/attendance"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	memberName   string
	memberRole   string
	memberNumber string
)

var membersCmd = &cobra.Command{
	Use:   "members",
	Short: "Show and manage the prefect roster",
	Long: `Lists the prefects known to the system. In remote mode the roster is
kept on the server and can be edited with the add, update and remove
subcommands. In local mode the roster is derived from attendance
records, so it only shows prefects who have checked in at least once.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Mode == config.ModeRemote {
			remote, ok := app.Transport.(*client.RemoteTransport)
			if !ok {
				return fmt.Errorf("remote transport unavailable")
			}
			members, err := remote.ListMembers(cmd.Context())
			if err != nil {
				return fmt.Errorf("list members: %w", err)
			}
			return printMembers(members)
		}
		return printMembers(rosterFromRecords(app.Service.Records()))
	},
}

var membersAddCmd = &cobra.Command{
	Use:   "add <prefect-number>",
	Short: "Register a prefect on the roster",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		remote, err := remoteOnly("add")
		if err != nil {
			return err
		}

		m, err := remote.CreateMember(cmd.Context(), args[0], attendance.Role(memberRole), memberName)
		if err != nil {
			if errors.Is(err, attendance.ErrMemberExists) {
				return fmt.Errorf("prefect number %s is already registered", args[0])
			}
			if errors.Is(err, attendance.ErrInvalidRole) {
				return fmt.Errorf("unknown role %q, valid roles: %s", memberRole, roleList())
			}
			return err
		}

		color.Green("Registered %s as %s", m.PrefectNumber, m.Role)
		return nil
	},
}

var membersUpdateCmd = &cobra.Command{
	Use:   "update <member-id>",
	Short: "Update a roster entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		remote, err := remoteOnly("update")
		if err != nil {
			return err
		}

		var upd attendance.MemberUpdate
		if cmd.Flags().Changed("name") {
			upd.Name = &memberName
		}
		if cmd.Flags().Changed("role") {
			role := attendance.Role(memberRole)
			upd.Role = &role
		}
		if cmd.Flags().Changed("number") {
			upd.PrefectNumber = &memberNumber
		}
		if upd.Name == nil && upd.Role == nil && upd.PrefectNumber == nil {
			return fmt.Errorf("nothing to update, pass --name, --role or --number")
		}

		m, err := remote.UpdateMember(cmd.Context(), args[0], upd)
		if err != nil {
			if errors.Is(err, attendance.ErrNotFound) {
				return fmt.Errorf("no member with id %s", args[0])
			}
			return err
		}

		color.Green("Updated %s (%s)", m.PrefectNumber, m.Role)
		return nil
	},
}

var membersRemoveCmd = &cobra.Command{
	Use:   "remove <member-id>",
	Short: "Remove a roster entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		remote, err := remoteOnly("remove")
		if err != nil {
			return err
		}

		if err := remote.DeleteMember(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("remove member: %w", err)
		}

		color.Red("Member %s removed", args[0])
		return nil
	},
}

func remoteOnly(verb string) (*client.RemoteTransport, error) {
	if cfg.Mode != config.ModeRemote {
		return nil, fmt.Errorf("members %s needs a server, run with --server or mode=remote", verb)
	}
	remote, ok := app.Transport.(*client.RemoteTransport)
	if !ok {
		return nil, fmt.Errorf("remote transport unavailable")
	}
	return remote, nil
}

// rosterFromRecords collapses attendance records into one roster entry per
// prefect number and role pair.
func rosterFromRecords(records []attendance.Record) []attendance.Member {
	seen := map[string]bool{}
	var members []attendance.Member
	for _, rec := range records {
		key := rec.PrefectNumber + "|" + string(rec.Role)
		if seen[key] {
			continue
		}
		seen[key] = true
		members = append(members, attendance.Member{
			PrefectNumber: rec.PrefectNumber,
			Role:          rec.Role,
		})
	}
	sort.Slice(members, func(i, j int) bool {
		return members[i].PrefectNumber < members[j].PrefectNumber
	})
	return members
}

func printMembers(members []attendance.Member) error {
	if len(members) == 0 {
		fmt.Println("No members found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Prefect\tRole\tName\tID\t\n")
	fmt.Fprintf(w, "---\t---\t---\t---\t\n")

	for _, m := range members {
		name := m.Name
		if name == "" {
			name = "-"
		}
		id := m.ID
		if id == "" {
			id = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t\n", m.PrefectNumber, m.Role, name, id)
	}

	w.Flush()
	fmt.Printf("\nTotal: %d\n", len(members))
	return nil
}

func init() {
	membersAddCmd.Flags().StringVarP(&memberName, "name", "n", "", "display name")
	membersAddCmd.Flags().StringVarP(&memberRole, "role", "r", "", "prefect role (required)")
	membersAddCmd.MarkFlagRequired("role")

	membersUpdateCmd.Flags().StringVarP(&memberName, "name", "n", "", "new display name")
	membersUpdateCmd.Flags().StringVarP(&memberRole, "role", "r", "", "new role")
	membersUpdateCmd.Flags().StringVar(&memberNumber, "number", "", "new prefect number")

	membersCmd.AddCommand(membersAddCmd, membersUpdateCmd, membersRemoveCmd)
	rootCmd.AddCommand(membersCmd)
}
