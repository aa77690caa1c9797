package commands

import (
	"context"
	"fmt"
	"os"

	"bonchassist-backend/internal/components/telemetry"
	"bonchassist-backend/internal/config"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "bonchctl",
	Short: "bonchctl is a terminal client for the SPbSUT timetable and attendance.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		configPath, err := cmd.Flags().GetString("config")
		if err != nil {
			return err
		}
		verbose, err := cmd.Flags().GetBool("verbose")
		if err != nil {
			return err
		}

		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("read config: %w", err)
		}
		if dump, _ := cmd.Flags().GetString("dump"); dump != "" {
			cfg.Portal.DumpDir = dump
		}
		telemetry.InitSlog(verbose || cfg.Verbose)

		cmd.SetContext(setGlobals(cmd.Context(), &globals{
			Config: cfg,
			Tel:    telemetry.SlogAPI{},
		}))
		return nil
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().String("config", "config.json5", "Path to the configuration file.")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging.")
	rootCmd.PersistentFlags().String("dump", "", "Write every portal request and response to this directory.")
}

func Execute(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render(err.Error()))
		os.Exit(1)
	}
}
