package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	ctx := &commandContext{}

	rootCmd := &cobra.Command{
		Use:           "mediagram",
		Short:         "Sound event eventograms and speech emotion reports for media files",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&ctx.configFlag, "config", "c", "", "Configuration file path")
	flags.StringVar(&ctx.logLevel, "log-level", "", "Log level (overrides pipeline.log_level)")
	flags.BoolVarP(&ctx.verbose, "verbose", "v", false, "Shorthand for --log-level debug")

	rootCmd.AddCommand(newEventogramCommand(ctx))
	rootCmd.AddCommand(newEmotionsCommand(ctx))
	rootCmd.AddCommand(newUnhyphenateCommand(ctx))
	rootCmd.AddCommand(newWikifeedCommand(ctx))
	rootCmd.AddCommand(newProbeCommand(ctx))
	rootCmd.AddCommand(newDoctorCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))

	return rootCmd
}
