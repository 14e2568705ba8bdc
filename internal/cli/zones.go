package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jwalitptl/geo-pricing/internal/model"
	"github.com/jwalitptl/geo-pricing/internal/zone"
)

func newZonesCmd() *cobra.Command {
	return &cobra.Command{
		Use:                   "zones",
		Short:                 "List the pricing zones",
		Args:                  cobra.NoArgs,
		DisableFlagsInUseLine: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ZONE\tNAME\tCOUNTRIES")
			for _, z := range zone.Zones() {
				fmt.Fprintf(w, "%s\t%s\t%d\n", z.ID, z.Name, z.CountryCount)
			}
			return w.Flush()
		},
	}
}

func newCountriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:                   "countries <zone>",
		Short:                 "List the countries of a zone in table order",
		Args:                  cobra.ExactArgs(1),
		DisableFlagsInUseLine: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			id := model.ZoneID(args[0])
			if !zone.IsValidZone(id) {
				return fmt.Errorf("unknown zone %q", args[0])
			}

			codes := zone.CountriesInZone(id)
			out := make([]string, len(codes))
			for i, c := range codes {
				out[i] = string(c)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s): %s\n", id, zone.NameForZone(id), strings.Join(out, " "))
			return nil
		},
	}
}

func newLookupCmd() *cobra.Command {
	return &cobra.Command{
		Use:                   "lookup <country-code>...",
		Short:                 "Resolve country codes to zones",
		Args:                  cobra.MinimumNArgs(1),
		DisableFlagsInUseLine: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "COUNTRY\tZONE\tNAME\tMAPPED")
			for _, code := range args {
				cz := zone.Resolve(model.CountryCode(code))
				fmt.Fprintf(w, "%s\t%s\t%s\t%t\n", cz.CountryCode, cz.RegionCode, cz.RegionName, cz.Mapped)
			}
			return w.Flush()
		},
	}
}
