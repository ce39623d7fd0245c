package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/briangreenhill/postboard/board"
	"github.com/briangreenhill/postboard/cache"
	"github.com/briangreenhill/postboard/schema"
)

func (c *CLI) newPostsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "posts",
		Short: "List, show and edit posts",
	}
	cmd.AddCommand(c.newPostsListCmd())
	cmd.AddCommand(c.newPostsGetCmd())
	cmd.AddCommand(c.newPostsCreateCmd())
	cmd.AddCommand(c.newPostsUpdateCmd())
	cmd.AddCommand(c.newPostsDeleteCmd())
	return cmd
}

func (c *CLI) newPostsListCmd() *cobra.Command {
	var page, limit, order, query string
	var userID int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List posts, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pag, err := schema.ParsePagination(page, limit)
			if err != nil {
				return err
			}
			sort, err := schema.ParseSort("id", order)
			if err != nil {
				return err
			}

			var res cache.Result[[]schema.Post]
			if cmd.Flags().Changed("user") {
				res = c.svc.PostsByUser(cmd.Context(), userID, c.reads()...)
			} else {
				res = c.svc.Posts(cmd.Context(), c.reads()...)
			}
			if !res.HasValue {
				return res.Err
			}
			users := c.svc.Users(cmd.Context())

			out := cmd.OutOrStdout()
			if res.Err != nil {
				printStale(out, res.Err)
			}
			matched := schema.SortPosts(schema.ParseSearch(query).FilterPosts(res.Value), sort.Order)
			for _, p := range schema.Paginate(matched, pag) {
				printPostLine(out, p, board.UserName(users.Value, p.UserID))
			}
			_, _ = fmt.Fprintln(out, mutedStyle.Render(fmt.Sprintf("page %d of %d · %d posts", pag.Page, max(pag.PageCount(len(matched)), 1), len(matched))))
			return nil
		},
	}
	cmd.Flags().StringVar(&page, "page", "", "Page number (default 1)")
	cmd.Flags().StringVar(&limit, "limit", "", "Posts per page (default 10)")
	cmd.Flags().StringVar(&order, "sort", "desc", "Sort by id: asc or desc")
	cmd.Flags().StringVarP(&query, "query", "q", "", "Only posts whose title or body contains this text")
	cmd.Flags().IntVar(&userID, "user", 0, "Only posts by this user id")
	return cmd
}

func (c *CLI) newPostsGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show a post and its comments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("id", args[0])
			if err != nil {
				return err
			}
			post := c.svc.Post(cmd.Context(), id, c.reads()...)
			if !post.HasValue {
				return post.Err
			}
			users := c.svc.Users(cmd.Context())
			comments := c.svc.CommentsByPost(cmd.Context(), id, c.reads()...)

			out := cmd.OutOrStdout()
			if post.Err != nil {
				printStale(out, post.Err)
			}
			printPost(out, post.Value, board.UserName(users.Value, post.Value.UserID))
			if !comments.HasValue {
				return comments.Err
			}
			_, _ = fmt.Fprintln(out, titleStyle.Render(fmt.Sprintf("%d comments", len(comments.Value))))
			for _, cm := range comments.Value {
				printComment(out, cm)
			}
			return nil
		},
	}
}

func (c *CLI) newPostsCreateCmd() *cobra.Command {
	var in schema.NewPost
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Publish a new post",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			post, err := c.svc.CreatePost(cmd.Context(), in)
			if err != nil {
				return err
			}
			printSuccess(cmd.OutOrStdout(), fmt.Sprintf("created post %d", post.ID))
			return nil
		},
	}
	cmd.Flags().StringVar(&in.Title, "title", "", "Post title")
	cmd.Flags().StringVar(&in.Body, "body", "", "Post body")
	cmd.Flags().IntVar(&in.UserID, "user", board.DefaultAuthorID, "Author user id")
	return cmd
}

func (c *CLI) newPostsUpdateCmd() *cobra.Command {
	var title, body string
	var userID int
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change a post's title, body or author",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("id", args[0])
			if err != nil {
				return err
			}
			var patch schema.PostPatch
			if cmd.Flags().Changed("title") {
				patch.Title = &title
			}
			if cmd.Flags().Changed("body") {
				patch.Body = &body
			}
			if cmd.Flags().Changed("user") {
				patch.UserID = &userID
			}
			post, err := c.svc.UpdatePost(cmd.Context(), id, patch)
			if err != nil {
				return err
			}
			printSuccess(cmd.OutOrStdout(), fmt.Sprintf("updated post %d", post.ID))
			return nil
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "New title")
	cmd.Flags().StringVar(&body, "body", "", "New body")
	cmd.Flags().IntVar(&userID, "user", 0, "New author user id")
	return cmd
}

func (c *CLI) newPostsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a post",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("id", args[0])
			if err != nil {
				return err
			}
			if err := c.svc.DeletePost(cmd.Context(), id); err != nil {
				return err
			}
			printSuccess(cmd.OutOrStdout(), fmt.Sprintf("deleted post %d", id))
			return nil
		},
	}
}

func printPostLine(w io.Writer, p schema.Post, author string) {
	_, _ = fmt.Fprintf(w, "%s %s %s\n",
		mutedStyle.Render(fmt.Sprintf("#%-4d", p.ID)),
		titleStyle.Render(p.Title),
		mutedStyle.Render("by "+author))
}

func printPost(w io.Writer, p schema.Post, author string) {
	_, _ = fmt.Fprintln(w, titleStyle.Render(p.Title))
	_, _ = fmt.Fprintln(w, mutedStyle.Render(fmt.Sprintf("#%d by %s", p.ID, author)))
	_, _ = fmt.Fprintln(w, bodyStyle.Render(p.Body))
}

func printComment(w io.Writer, cm schema.Comment) {
	_, _ = fmt.Fprintf(w, "%s %s\n", cm.Name, mutedStyle.Render("<"+cm.Email+">"))
	_, _ = fmt.Fprintln(w, bodyStyle.Render(cm.Body))
}
