package main

import (
	"errors"
	"fmt"
	"slices"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"spongycord/internal/config"
)

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			v := config.New()
			if err := v.ReadInConfig(); err != nil {
				var nf viper.ConfigFileNotFoundError
				if !errors.As(err, &nf) {
					return fmt.Errorf("read config: %w", err)
				}
			}
			if _, err := config.FromViper(v); err != nil {
				return err
			}

			out := c.OutOrStdout()
			if f := v.ConfigFileUsed(); f != "" {
				fmt.Fprintf(out, "# file: %s\n", f)
			} else {
				fmt.Fprintln(out, "# file: none (defaults and environment)")
			}
			keys := v.AllKeys()
			slices.Sort(keys)
			for _, k := range keys {
				fmt.Fprintf(out, "%s = %v\n", k, v.Get(k))
			}
			return nil
		},
	}
}
