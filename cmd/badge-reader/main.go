package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"knxtools/config"
	"knxtools/ui"
)

var (
	configPath string
	debug      bool
)

var rootCmd = &cobra.Command{
	Use:   "badge-reader",
	Short: "Read badge identifiers from a serial reader and log them",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}

		level := ui.LoggerLevelInfo
		if debug {
			level = ui.LoggerLevelDebug
		}
		return ui.NewReaderApp(cfg, level).Run()
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultPath, "configuration file")
	rootCmd.Flags().BoolVar(&debug, "debug", false, "show debug messages in the log view")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
