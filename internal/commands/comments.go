package commands

import (
	"github.com/spf13/cobra"

	"github.com/briangreenhill/postboard/cache"
	"github.com/briangreenhill/postboard/schema"
)

func (c *CLI) newCommentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "comments",
		Short: "Read comments",
	}
	var postID int
	list := &cobra.Command{
		Use:   "list",
		Short: "List comments, all of them or those on one post",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var res cache.Result[[]schema.Comment]
			if cmd.Flags().Changed("post") {
				res = c.svc.CommentsByPost(cmd.Context(), postID, c.reads()...)
			} else {
				res = c.svc.Comments(cmd.Context(), c.reads()...)
			}
			if !res.HasValue {
				return res.Err
			}
			out := cmd.OutOrStdout()
			if res.Err != nil {
				printStale(out, res.Err)
			}
			for _, cm := range res.Value {
				printComment(out, cm)
			}
			return nil
		},
	}
	list.Flags().IntVar(&postID, "post", 0, "Only comments on this post id")
	cmd.AddCommand(list)

	cmd.AddCommand(&cobra.Command{
		Use:   "get <id>",
		Short: "Show a comment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("id", args[0])
			if err != nil {
				return err
			}
			res := c.svc.Comment(cmd.Context(), id, c.reads()...)
			if !res.HasValue {
				return res.Err
			}
			out := cmd.OutOrStdout()
			if res.Err != nil {
				printStale(out, res.Err)
			}
			printComment(out, res.Value)
			return nil
		},
	})
	return cmd
}
