// Package cli implements zonectl, the operator tool for zone lookups and
// live region detection.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jwalitptl/geo-pricing/internal/config"
)

type options struct {
	configPath  string
	providerURL string
}

func (o *options) load() (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	if o.providerURL != "" {
		cfg.Geolocation.ProviderURL = o.providerURL
	}
	return cfg, nil
}

func newRootCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "zonectl",
		Short: "Inspect pricing zones and detect client regions",
		Long: `zonectl looks up the eight pricing zones and the countries mapped to
them, runs region detection against the configured provider and resolves
plan prices for a zone.`,
		Args:                  cobra.NoArgs,
		DisableFlagsInUseLine: true,
		SilenceUsage:          true,
		Run: func(cmd *cobra.Command, _ []string) {
			_ = cmd.Help()
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", os.Getenv("GEOPRICING_CONFIG"), "path to config file")
	cmd.PersistentFlags().StringVar(&opts.providerURL, "provider-url", "", "override the geolocation provider URL")

	return cmd
}

// NewCLI returns the zonectl root command with all subcommands.
func NewCLI() *cobra.Command {
	opts := &options{}

	rootCmd := newRootCmd(opts)
	rootCmd.AddCommand(newZonesCmd())
	rootCmd.AddCommand(newCountriesCmd())
	rootCmd.AddCommand(newLookupCmd())
	rootCmd.AddCommand(newDetectCmd(opts))
	rootCmd.AddCommand(newPriceCmd(opts))

	return rootCmd
}

// Execute runs zonectl and exits non-zero on failure.
func Execute() {
	if err := NewCLI().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
