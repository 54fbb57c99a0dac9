package main

import (
	"fmt"
	"strings"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"

	"github.com/WessleyAI/wessley-remap/engine/domain"
	"github.com/WessleyAI/wessley-remap/engine/resolve"
	"github.com/WessleyAI/wessley-remap/pkg/natsutil"
)

func newResolveCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve engines and vehicles against the catalogue",
	}
	cmd.AddCommand(newResolveEngineCmd(a), newResolveVehicleCmd(a))
	return cmd
}

func newResolveEngineCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "engine <descriptor>",
		Short:   "Resolve an engine option or key to its specification record",
		Example: `  remapctl resolve engine "2.0 TDI GTD - 184hp"`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			descriptor := strings.Join(args, " ")
			m, ok := resolve.NewResolver(store).ResolveEngine(descriptor)
			if !ok {
				return fmt.Errorf("no engine matches %q", descriptor)
			}
			return printJSON(cmd.OutOrStdout(), m)
		},
	}
}

func newResolveVehicleCmd(a *app) *cobra.Command {
	var (
		d      domain.PartialVehicleDescriptor
		year   int
		cc     int
		power  float64
		text   string
		mode   string
		remote bool
	)
	cmd := &cobra.Command{
		Use:   "vehicle",
		Short: "Resolve a partial vehicle description to a dropdown selection",
		Example: `  remapctl resolve vehicle --make VW --model Golf --year 2018 --engine "2.0 TDI - 150hp"
  remapctl resolve vehicle --text "2019 Ford Focus 1.0 EcoBoost 125hp"
  remapctl resolve vehicle --remote --make Skoda --model Octavia --year 2017 --cc 1968 --mode scored`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("year") {
				d.Year = domain.IntPtr(year)
			}
			if cmd.Flags().Changed("cc") {
				d.EngineCapacityCC = domain.IntPtr(cc)
			}
			if cmd.Flags().Changed("power") {
				d.PowerBHP = domain.FloatPtr(power)
			}
			req := resolve.Request{Descriptor: d, Text: text, Mode: mode}

			if remote {
				nc, err := nats.Connect(a.cfg.NATSURL, nats.Name("remapctl"))
				if err != nil {
					return fmt.Errorf("nats connect %s: %w", a.cfg.NATSURL, err)
				}
				defer nc.Close()
				resp, err := natsutil.Request[resolve.Request, resolve.Response](cmd.Context(), nc, resolve.SubjectResolve, req)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), resp)
			}

			store, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			resp, err := resolve.NewResolver(store, resolve.WithLogger(a.logger)).Handle(cmd.Context(), req)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), resp)
		},
	}
	f := cmd.Flags()
	f.StringVar(&d.Make, "make", "", "manufacturer")
	f.StringVar(&d.Model, "model", "", "model")
	f.IntVar(&year, "year", 0, "model year")
	f.StringVar(&d.Engine, "engine", "", "engine option or description")
	f.IntVar(&cc, "cc", 0, "engine capacity in cc")
	f.Float64Var(&power, "power", 0, "power in bhp")
	f.StringVar(&d.FuelType, "fuel", "", "fuel type")
	f.StringVar(&text, "text", "", "free-text description; overrides the other fields")
	f.StringVar(&mode, "mode", "cascade", "cascade or scored")
	f.BoolVar(&remote, "remote", false, "ask a resolver worker over NATS instead of resolving locally")
	return cmd
}
