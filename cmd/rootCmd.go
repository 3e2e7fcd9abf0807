package cmd

import (
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"Micronet/pkg/config"
)

var Config *config.Config

var rootCmd = &cobra.Command{
	Use:   "micronet",
	Short: "micronet network emulation CLI",
	Long:  "A command-line tool for emulating network topologies with Linux namespaces.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		envFile, _ := cmd.Flags().GetString("env")
		c, err := config.Load(envFile)
		if err != nil {
			return err
		}
		level, err := log.ParseLevel(c.LogLevel)
		if err != nil {
			return err
		}
		log.SetLevel(level)
		Config = c
		return nil
	},
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("env", "", "Path to the env configuration file (default .env)")

	rootCmd.AddCommand(applyCmd)
	rootCmd.AddCommand(validateCmd)
}
