package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jacentio/forumledger/forum"
)

// ElementOptions holds flags for element commands.
type ElementOptions struct {
	*RootOptions
	As      string
	Content string
}

// NewElementCommand creates the element command group.
func NewElementCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ElementOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:     "element",
		Aliases: []string{"reply"},
		Short:   "Create and read thread elements (replies)",
	}

	create := &cobra.Command{
		Use:   "create <thread-id>",
		Short: "Append a reply to a thread",
		Long: `Append a reply to a thread under the thread's next element id.

The thread id is not checked against existing threads.

Example:
  forum element create 1 --as bob --content "first reply"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return createElement(opts, cmd, args[0])
		},
	}
	create.Flags().StringVar(&opts.As, "as", "", "caller principal (required)")
	create.Flags().StringVar(&opts.Content, "content", "", "reply content")
	_ = create.MarkFlagRequired("as")

	get := &cobra.Command{
		Use:   "get <thread-id> <element-id>",
		Short: "Print a reply as JSON",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return getElement(opts, cmd, args[0], args[1])
		},
	}

	count := &cobra.Command{
		Use:   "count <thread-id>",
		Short: "Print how many replies a thread has received",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			threadID, err := parseID("thread id", args[0])
			if err != nil {
				return err
			}
			return opts.withLedger(cmd, func(l *forum.Ledger) error {
				n, err := l.ElementCount(cmd.Context(), threadID)
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

func createElement(opts *ElementOptions, cmd *cobra.Command, arg string) error {
	if opts.As == "" {
		return forum.ErrUnauthenticated
	}
	threadID, err := parseID("thread id", arg)
	if err != nil {
		return err
	}
	return opts.withLedger(cmd, func(l *forum.Ledger) error {
		if err := l.CreateThreadElement(cmd.Context(), forum.Principal(opts.As), threadID, opts.Content); err != nil {
			return err
		}
		_, err := fmt.Fprintln(cmd.OutOrStdout(), ack)
		return err
	})
}

func getElement(opts *ElementOptions, cmd *cobra.Command, threadArg, elemArg string) error {
	threadID, err := parseID("thread id", threadArg)
	if err != nil {
		return err
	}
	elemID, err := parseID("element id", elemArg)
	if err != nil {
		return err
	}
	return opts.withLedger(cmd, func(l *forum.Ledger) error {
		e, err := l.GetThreadElement(cmd.Context(), threadID, elemID)
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), e)
	})
}
