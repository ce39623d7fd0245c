// Package commands implements the postboard command line interface.
package commands

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/briangreenhill/postboard/board"
	"github.com/briangreenhill/postboard/cache"
	"github.com/briangreenhill/postboard/schema"
)

// Version is set at build time with -ldflags.
var Version = "dev"

// CLI represents the command line interface for postboard.
type CLI struct {
	svc     *board.Service
	rootCmd *cobra.Command
	refresh bool
}

// New creates a CLI reading from and writing through svc.
func New(svc *board.Service) *CLI {
	rootCmd := &cobra.Command{
		Use:           "postboard",
		Short:         "Browse and edit posts on a JSONPlaceholder API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	c := &CLI{
		svc:     svc,
		rootCmd: rootCmd,
	}

	rootCmd.PersistentFlags().BoolVar(&c.refresh, "refresh", false, "Fetch from the API even when a fresh copy is cached")

	rootCmd.AddCommand(c.newPostsCmd())
	rootCmd.AddCommand(c.newUsersCmd())
	rootCmd.AddCommand(c.newCommentsCmd())
	rootCmd.AddCommand(c.newVersionCmd())

	return c
}

// Execute runs the root command with the given context.
func (c *CLI) Execute(ctx context.Context) error {
	c.rootCmd.SetContext(ctx)
	return c.rootCmd.Execute()
}

// SetArgs sets the arguments for the root command. Used for testing.
func (c *CLI) SetArgs(args []string) {
	c.rootCmd.SetArgs(args)
}

// SetOutput redirects command output. Used for testing.
func (c *CLI) SetOutput(w io.Writer) {
	c.rootCmd.SetOut(w)
	c.rootCmd.SetErr(w)
}

// reads returns the options every read is made with.
func (c *CLI) reads() []cache.QueryOption {
	if c.refresh {
		return []cache.QueryOption{cache.Refetch()}
	}
	return nil
}

func parseID(name, raw string) (int, error) {
	id, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.Wrapf(schema.InvalidArgument("", name, "expected number, got "+strconv.Quote(raw)), "parse %s", name)
	}
	return id, nil
}

func (c *CLI) newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the application version",
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), Version)
		},
	}
}
