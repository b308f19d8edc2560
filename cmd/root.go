package cmd

import "github.com/spf13/cobra"

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "lonewatch",
		Short:        "Lone worker safety monitor over Telegram",
		Long:         "lonewatch runs a chat bot that prompts lone workers to confirm they are safe and escalates to their supervisors when they stop answering.",
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().String(configFlag, "", "config file (TOML, YAML or JSON); keys may sit under a [Default] section")

	rootCmd.AddCommand(
		newVersionCmd(),
		newServeCmd(),
		newStatusCmd(),
	)

	return rootCmd
}
