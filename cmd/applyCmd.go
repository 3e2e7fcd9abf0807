package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"Micronet/api"
	"Micronet/pkg"
)

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Apply Topology",
	Long: `Apply Topology with Hosts, Switches and Links, then read commands from stdin
until "exit" or a signal. The topology is torn down on the way out.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		filepath, _ := cmd.Flags().GetString("from")
		desc, err := api.LoadDescription(filepath)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		n, err := pkg.NewNetwork(ctx, Config, desc)
		if err != nil {
			return err
		}
		// Teardown must run even after a signal cancelled ctx.
		defer func() {
			if err := n.Stop(context.Background()); err != nil {
				log.Error("teardown failed", "err", err)
			}
		}()

		out := cmd.OutOrStdout()
		n.ShowNodes(out)
		n.ShowLinks(out)

		done := make(chan error, 1)
		go func() {
			done <- runShell(ctx, n, os.Stdin, out)
		}()

		// wait, before shutting down, clear up the resources
		select {
		case err = <-done:
			return err
		case <-ctx.Done():
			log.Info("Exiting...")
			return nil
		}
	},
}

func init() {
	applyCmd.Flags().StringP("from", "f", "", "Path to the topology configuration file")
	_ = applyCmd.MarkFlagRequired("from")
}
