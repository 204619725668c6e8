package main

import (
	"github.com/spf13/cobra"

	"github.com/artomart/craftsearch/internal/config"
	"github.com/artomart/craftsearch/internal/version"
)

type rootOptions struct {
	env string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "craftsearch",
		Short: "Multimodal product search for handcrafted goods",
		Long: `craftsearch indexes artisan products by the tags a language model extracts
from their text and photos, and ranks them against free-text queries with a
regional and cultural boost.`,
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&opts.env, "env", "e", config.GetEnv(), "config environment (config/<env>.yaml)")

	cmd.AddCommand(newServeCmd(opts), newQueryCmd(opts))
	return cmd
}
