package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jacentio/forumledger/forum"
)

// ThreadOptions holds flags for thread commands.
type ThreadOptions struct {
	*RootOptions
	As          string
	Title       string
	Description string
}

// NewThreadCommand creates the thread command group.
func NewThreadCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ThreadOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "thread",
		Short: "Create and read threads",
	}

	create := &cobra.Command{
		Use:   "create",
		Short: "Create a thread under the next thread id",
		Long: `Create a thread under the next thread id.

The assigned id is not printed; use "forum thread count" to read the
latest id when no other writer is active.

Example:
  forum thread create --as alice --title Hello --description World`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return createThread(opts, cmd)
		},
	}
	create.Flags().StringVar(&opts.As, "as", "", "caller principal (required)")
	create.Flags().StringVar(&opts.Title, "title", "", "thread title")
	create.Flags().StringVar(&opts.Description, "description", "", "thread description")
	_ = create.MarkFlagRequired("as")

	get := &cobra.Command{
		Use:   "get <id>",
		Short: "Print a thread as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return getThread(opts, cmd, args[0])
		},
	}

	count := &cobra.Command{
		Use:   "count",
		Short: "Print how many threads have been created",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withLedger(cmd, func(l *forum.Ledger) error {
				n, err := l.ThreadCount(cmd.Context())
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), n)
				return err
			})
		},
	}

	cmd.AddCommand(create, get, count)
	return cmd
}

func createThread(opts *ThreadOptions, cmd *cobra.Command) error {
	if opts.As == "" {
		return forum.ErrUnauthenticated
	}
	return opts.withLedger(cmd, func(l *forum.Ledger) error {
		if err := l.CreateThread(cmd.Context(), forum.Principal(opts.As), opts.Title, opts.Description); err != nil {
			return err
		}
		_, err := fmt.Fprintln(cmd.OutOrStdout(), ack)
		return err
	})
}

func getThread(opts *ThreadOptions, cmd *cobra.Command, arg string) error {
	id, err := parseID("thread id", arg)
	if err != nil {
		return err
	}
	return opts.withLedger(cmd, func(l *forum.Ledger) error {
		t, err := l.GetThread(cmd.Context(), id)
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), t)
	})
}
