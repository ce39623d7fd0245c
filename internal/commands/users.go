package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (c *CLI) newUsersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "List and show users",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List every user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			res := c.svc.Users(cmd.Context(), c.reads()...)
			if !res.HasValue {
				return res.Err
			}
			out := cmd.OutOrStdout()
			if res.Err != nil {
				printStale(out, res.Err)
			}
			for _, u := range res.Value {
				_, _ = fmt.Fprintf(out, "%s %s %s\n",
					mutedStyle.Render(fmt.Sprintf("#%-3d", u.ID)),
					titleStyle.Render(u.Name),
					mutedStyle.Render("@"+u.Username))
			}
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "get <id>",
		Short: "Show a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("id", args[0])
			if err != nil {
				return err
			}
			res := c.svc.User(cmd.Context(), id, c.reads()...)
			if !res.HasValue {
				return res.Err
			}
			u := res.Value
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintln(out, titleStyle.Render(u.Name))
			_, _ = fmt.Fprintln(out, mutedStyle.Render("@"+u.Username+" · "+u.Email))
			_, _ = fmt.Fprintf(out, "phone: %s\nwebsite: %s\ncompany: %s\n", u.Phone, u.Website, u.Company.Name)
			return nil
		},
	})
	return cmd
}
