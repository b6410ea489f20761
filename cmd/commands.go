package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/spacemeshos/noderecon/app"
	"github.com/spacemeshos/noderecon/config"
)

const defaultRunsLimit = 20

// NewRootCommand returns the noderecon command with all of its subcommands.
func NewRootCommand() *cobra.Command {
	cfg := config.DefaultConfig()
	root := &cobra.Command{
		Use:           "noderecon",
		Short:         "reconcile peers observed by independent crawlers",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	AddFlags(root.PersistentFlags(), &cfg)
	root.AddCommand(
		runCommand(&cfg),
		importCommand(&cfg),
		compareCommand(&cfg),
		runsCommand(&cfg),
		versionCommand(),
	)
	return root
}

func runCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "fetch all sources, reconcile them and compare with peer lists",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			return withApp(c, cfg, func(ctx context.Context, a *app.App) error {
				_, err := a.Run(ctx)
				return err
			})
		},
	}
}

func importCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "import <label> <path>",
		Short: "store a json dump of peer records as the snapshot of a source",
		Args:  cobra.ExactArgs(2),
		RunE: func(c *cobra.Command, args []string) error {
			return withApp(c, cfg, func(ctx context.Context, a *app.App) error {
				n, err := a.Import(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				fmt.Fprintf(c.OutOrStdout(), "imported %d records as %s\n", n, args[0])
				return nil
			})
		},
	}
}

func compareCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "compare [label...]",
		Short: "compare imported snapshots with peer lists",
		RunE: func(c *cobra.Command, args []string) error {
			return withApp(c, cfg, func(ctx context.Context, a *app.App) error {
				_, err := a.Compare(ctx, args...)
				return err
			})
		},
	}
}

func runsCommand(cfg *config.Config) *cobra.Command {
	var limit int
	c := &cobra.Command{
		Use:   "runs",
		Short: "show history of persisted runs",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			if limit <= 0 {
				return fmt.Errorf("invalid limit %d", limit)
			}
			return withApp(c, cfg, func(_ context.Context, a *app.App) error {
				_, err := a.Runs(limit)
				return err
			})
		},
	}
	c.Flags().IntVarP(&limit, "limit", "n", defaultRunsLimit, "maximum number of runs to show")
	return c
}

func versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version info",
		Run: func(c *cobra.Command, args []string) {
			fmt.Fprint(c.OutOrStdout(), Version)
			if Commit != "" {
				fmt.Fprintf(c.OutOrStdout(), "+%s", Commit)
			}
			fmt.Fprintln(c.OutOrStdout())
		},
	}
}
