package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jwalitptl/geo-pricing/internal/bootstrap"
	"github.com/jwalitptl/geo-pricing/internal/model"
	"github.com/jwalitptl/geo-pricing/internal/service/location"
	"github.com/jwalitptl/geo-pricing/pkg/logger"
	"github.com/jwalitptl/geo-pricing/pkg/metrics"
)

type detectFlags struct {
	ip  string
	lat float64
	lon float64
}

func newDetectCmd(opts *options) *cobra.Command {
	var flags detectFlags

	cmd := &cobra.Command{
		Use:   "detect",
		Short: "Detect the region of this machine or of an IP address",
		Long: `Queries the geolocation provider once and prints the resulting location
as JSON. A failed detection prints the default-zone location and a warning.
With --lat and --lon the coordinates are attached to the result; the zone
still comes from the IP lookup.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}

			detector := bootstrap.NewDetector(cfg.Geolocation, metrics.New("zonectl"), logger.Nop())

			var loc model.Location
			if cmd.Flags().Changed("lat") || cmd.Flags().Changed("lon") {
				if !cmd.Flags().Changed("lat") || !cmd.Flags().Changed("lon") {
					return fmt.Errorf("--lat and --lon must be given together")
				}
				source := location.StaticSource{Latitude: flags.lat, Longitude: flags.lon}
				loc, err = detector.DetectViaGeolocation(cmd.Context(), source, flags.ip)
			} else {
				loc, err = detector.DetectIP(cmd.Context(), flags.ip)
			}

			if err != nil && !location.IsFallback(err) {
				return err
			}
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", err)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(loc)
		},
	}

	cmd.Flags().StringVar(&flags.ip, "ip", "", "IP address to locate (default: this machine)")
	cmd.Flags().Float64Var(&flags.lat, "lat", 0, "latitude to attach")
	cmd.Flags().Float64Var(&flags.lon, "lon", 0, "longitude to attach")

	return cmd
}
