package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/jacentio/forumledger/forum"
	"github.com/jacentio/forumledger/internal/config"
	"github.com/jacentio/forumledger/kv"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	Backend    string
	DataPath   string

	cfg config.Config
}

// NewRootCommand creates the root command for the forum CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "forum",
		Short: "Forum ledger",
		Long:  "Create and read forum threads and replies stored in a transactional key-value ledger.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.ConfigPath, opts.overrides)
			if err != nil {
				return err
			}
			opts.cfg = cfg
			return nil
		},
		SilenceUsage: true,
	}

	// Global flags
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to YAML config file")
	cmd.PersistentFlags().StringVar(&opts.Backend, "backend", "", "storage backend: pebble (default), sqlite, dynamodb, or memory (lost on exit)")
	cmd.PersistentFlags().StringVar(&opts.DataPath, "data", "", "pebble directory or sqlite file")

	// Add subcommands
	cmd.AddCommand(NewThreadCommand(opts))
	cmd.AddCommand(NewElementCommand(opts))
	cmd.AddCommand(NewServeCommand(opts))

	return cmd
}

// overrides applies flags on top of file and environment config.
func (o *RootOptions) overrides(c *config.Config) {
	if o.Backend != "" {
		c.Backend = o.Backend
	}
	if o.DataPath != "" {
		c.DataPath = o.DataPath
	}
}

// openLedger opens the configured store. The caller closes the store.
func (o *RootOptions) openLedger(cmd *cobra.Command) (*forum.Ledger, kv.Store, *slog.Logger, error) {
	logger := o.cfg.Log.NewLogger(cmd.ErrOrStderr())

	store, err := o.cfg.OpenStore(cmd.Context())
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open %s store: %w", o.cfg.Backend, err)
	}
	return forum.New(store, logger), store, logger, nil
}

// withLedger runs fn against a freshly opened ledger and closes the store after.
func (o *RootOptions) withLedger(cmd *cobra.Command, fn func(*forum.Ledger) error) error {
	ledger, store, _, err := o.openLedger(cmd)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(ledger)
}
