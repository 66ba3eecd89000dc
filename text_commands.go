package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/maastricht-university/mediagram/clients"
	"github.com/maastricht-university/mediagram/textproc"
	"github.com/maastricht-university/mediagram/wikifeed"
)

func newUnhyphenateCommand(ctx *commandContext) *cobra.Command {
	var lang string
	cmd := &cobra.Command{
		Use:   "unhyphenate <file>",
		Short: "Rejoin words hyphenated across line breaks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := ctx.logger(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			out, err := textproc.ProcessFile(args[0], lang)
			if err != nil {
				return err
			}
			log.WithFields(logrus.Fields{"input": args[0], "lang": lang}).Debug("dehyphenated")
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
	cmd.Flags().StringVar(&lang, "lang", textproc.DefaultLang, "Document language (BCP 47)")
	return cmd
}

func newWikifeedCommand(ctx *commandContext) *cobra.Command {
	opts := wikifeed.Options{}
	cmd := &cobra.Command{
		Use:   "wikifeed",
		Short: "Save a Wikipedia user's contributions feed as HTML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			log, err := ctx.logger(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			opts.Log = log
			out, err := wikifeed.Save(cmd.Context(), clients.NewHTTP(conf.ServiceTimeout()), opts)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&opts.User, "user", wikifeed.DefaultUser, "Wikipedia user name")
	fl.StringVar(&opts.Output, "output", wikifeed.DefaultOutput, "Output HTML file")
	fl.BoolVar(&opts.Open, "open", false, "Open the page in the default browser")
	return cmd
}
