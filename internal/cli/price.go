package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jwalitptl/geo-pricing/internal/bootstrap"
	"github.com/jwalitptl/geo-pricing/internal/model"
	"github.com/jwalitptl/geo-pricing/internal/service/location"
	"github.com/jwalitptl/geo-pricing/internal/service/pricing"
	"github.com/jwalitptl/geo-pricing/internal/zone"
	"github.com/jwalitptl/geo-pricing/pkg/logger"
	"github.com/jwalitptl/geo-pricing/pkg/metrics"
)

func newPriceCmd(opts *options) *cobra.Command {
	var (
		zoneFlag string
		ip       string
	)

	cmd := &cobra.Command{
		Use:   "price <plan>",
		Short: "Resolve the price of a configured plan",
		Long: `Prints the price of a plan from the configured price book. The zone
comes from --zone, or from detecting --ip (or this machine) when omitted.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}

			m := metrics.New("zonectl")
			z := model.ZoneID(zoneFlag)
			if z == "" {
				detector := bootstrap.NewDetector(cfg.Geolocation, m, logger.Nop())
				loc, err := detector.DetectIP(cmd.Context(), ip)
				if err != nil && !location.IsFallback(err) {
					return err
				}
				if err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", err)
				}
				z = loc.RegionCode
			} else if !zone.IsValidZone(z) {
				return fmt.Errorf("unknown zone %q", zoneFlag)
			}

			catalog := pricing.NewCatalog(cfg.Pricing.Plans, pricing.NewMatcher(m, logger.Nop()))
			price, err := catalog.PriceFor(args[0], z)
			if err != nil {
				return err
			}
			if price.Entry == nil {
				return fmt.Errorf("plan %q has no prices", args[0])
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s in %s (%s): %.2f %s\n",
				price.Plan, price.RegionCode, price.RegionName, price.Entry.Price, price.Entry.Currency)
			if price.Fallback {
				fmt.Fprintf(out, "no price for %s, showing %s\n", price.RegionCode, price.Entry.Zone())
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&zoneFlag, "zone", "", "zone to price in, e.g. zone_2")
	cmd.Flags().StringVar(&ip, "ip", "", "IP address to detect the zone from")

	return cmd
}
