package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"Micronet/api"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate Topology",
	Long:  `Parse a topology file and check its names and links without touching the kernel.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		filepath, _ := cmd.Flags().GetString("from")
		desc, err := api.LoadDescription(filepath)
		if err != nil {
			return err
		}
		if err := desc.Validate(); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Topology %s: %d hosts, %d switches\n", desc.Name, len(desc.Hosts), len(desc.Switches))
		for _, l := range desc.SortedLinks() {
			fmt.Fprintf(out, "Link: %s\n", l.Key())
		}
		return nil
	},
}

func init() {
	validateCmd.Flags().StringP("from", "f", "", "Path to the topology configuration file")
	_ = validateCmd.MarkFlagRequired("from")
}
