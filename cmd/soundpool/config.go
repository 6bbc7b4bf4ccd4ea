package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lixenwraith/soundpool/config"
)

// DefaultConfigFile is written by config init when no path is given
const DefaultConfigFile = "soundpool.toml"

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

var configInitCmd = &cobra.Command{
	Use:         "init [PATH]",
	Short:       "Write the default configuration (never overwrites)",
	Args:        cobra.MaximumNArgs(1),
	Annotations: map[string]string{skipConfig: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		path := DefaultConfigFile
		if len(args) == 1 {
			path = args[0]
		}
		if err := config.WriteDefaults(path); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}
