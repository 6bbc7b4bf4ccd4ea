package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lixenwraith/soundpool/config"
	"github.com/lixenwraith/soundpool/log"
)

// skipConfig marks commands that run without loading configuration
const skipConfig = "skip-config"

var (
	cfgPath string
	cfg     config.Config
	logFile *os.File
)

var rootCmd = &cobra.Command{
	Use:   "soundpool",
	Short: "Pooled sound playback with persisted mixer volumes",
	Long: `soundpool drives a fixed pool of playback slots over a beep mixer with
master, music and sfx buses. Bus volumes persist between runs in a TOML
file or an SQLite database.

Settings come from an optional TOML config file (--config), SOUNDPOOL_*
environment variables and the flags below, in increasing priority.`,
	SilenceUsage:       true,
	PersistentPreRunE:  loadConfig,
	PersistentPostRunE: closeLog,
}

func init() {
	f := rootCmd.PersistentFlags()
	f.StringVarP(&cfgPath, "config", "c", "", "config file (TOML)")
	f.Bool("debug", false, "write a debug log to the log directory")
	f.Int("capacity", 0, "playback pool capacity")
	f.String("overflow", "", "pool overflow policy: drop, grow or steal")
	f.String("prefs", "", "volume store backend: memory, file or sqlite")
	f.String("prefs-path", "", "volume store file")
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func loadConfig(cmd *cobra.Command, args []string) error {
	if cmd.Annotations[skipConfig] == "true" {
		return nil
	}

	f := cmd.Flags()
	loaded, err := config.Load(cfgPath,
		config.BindFlag("log.debug", f.Lookup("debug")),
		config.BindFlag("pool.capacity", f.Lookup("capacity")),
		config.BindFlag("pool.overflow", f.Lookup("overflow")),
		config.BindFlag("prefs.backend", f.Lookup("prefs")),
		config.BindFlag("prefs.path", f.Lookup("prefs-path")),
	)
	if err != nil {
		return err
	}
	cfg = loaded

	file, err := log.Setup(cfg.Log.Debug, cfg.Log.Dir)
	if err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	logFile = file
	log.Debug(log.CatCLI, "Command started", "cmd", cmd.CommandPath(), "config", cfgPath)
	return nil
}

func closeLog(cmd *cobra.Command, args []string) error {
	if logFile == nil {
		return nil
	}
	err := logFile.Close()
	logFile = nil
	return err
}
