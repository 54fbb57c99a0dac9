package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"

	"github.com/WessleyAI/wessley-remap/engine/catalog"
	"github.com/WessleyAI/wessley-remap/engine/resolve"
	"github.com/WessleyAI/wessley-remap/pkg/natsutil"
)

func newCatalogueCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "catalogue",
		Aliases: []string{"catalog"},
		Short:   "Validate and distribute catalogues",
	}
	cmd.AddCommand(newCatalogueCheckCmd(a), newCatalogueNotifyCmd(a))
	return cmd
}

func newCatalogueCheckCmd(a *app) *cobra.Command {
	var vehiclesFile, enginesFile string
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check engine keys against their records and report unresolvable options",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if vehiclesFile != "" {
				a.cfg.CatalogueFile = vehiclesFile
			}
			if enginesFile != "" {
				a.cfg.EnginesFile = enginesFile
			}
			store, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			snap := store.Load()
			out := cmd.OutOrStdout()

			problems := catalog.CheckConsistency(snap.Engines)
			for _, p := range problems {
				fmt.Fprintln(out, "engine:", p)
			}
			unresolved := 0
			for _, mk := range snap.ManufacturerKeys() {
				for _, mdl := range snap.ModelKeys(mk) {
					table, _ := snap.YearTable(mk, mdl)
					for _, entry := range table {
						for _, opt := range entry.Engines {
							if _, ok := resolve.ResolveEngine(snap, opt); !ok {
								unresolved++
								fmt.Fprintf(out, "option: %s/%s %s %q has no engine record\n", mk, mdl, entry.Range, opt)
							}
						}
					}
				}
			}
			fmt.Fprintf(out, "catalogue %s: %d makes, %d engines, %d inconsistent keys, %d unresolved options\n",
				snap.Version, len(snap.ManufacturerKeys()), len(snap.Engines), len(problems), unresolved)
			if len(problems) > 0 {
				return errors.New("engine catalogue is inconsistent")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&vehiclesFile, "vehicles", "", "vehicle catalogue file (default: configured source or bundled)")
	cmd.Flags().StringVar(&enginesFile, "engines", "", "engine catalogue file (default: bundled)")
	return cmd
}

func newCatalogueNotifyCmd(a *app) *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:   "notify",
		Short: "Ask every API and worker replica to refetch the vehicle catalogue",
		RunE: func(cmd *cobra.Command, _ []string) error {
			nc, err := nats.Connect(a.cfg.NATSURL, nats.Name("remapctl"))
			if err != nil {
				return fmt.Errorf("nats connect %s: %w", a.cfg.NATSURL, err)
			}
			defer nc.Close()
			msg := resolve.CatalogueRefresh{Reason: reason, RequestedAt: time.Now().UTC()}
			if err := natsutil.Publish(cmd.Context(), nc, resolve.SubjectCatalogueRefresh, msg); err != nil {
				return err
			}
			if err := nc.Flush(); err != nil {
				return fmt.Errorf("nats flush: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "published %s\n", resolve.SubjectCatalogueRefresh)
			return nil
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "manual", "reason recorded in replica logs")
	return cmd
}
