// Package main is remapctl, the operator CLI for the remap resolver.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/WessleyAI/wessley-remap/engine/catalog"
	"github.com/WessleyAI/wessley-remap/pkg/config"
)

// app carries what every subcommand needs once flags are parsed.
type app struct {
	cfgFile string
	verbose bool

	cfg    config.Config
	logger *slog.Logger
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:          "remapctl",
		Short:        "Inspect and operate the vehicle/engine resolver",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(a.cfgFile)
			if err != nil {
				return err
			}
			a.cfg = cfg
			level := slog.LevelWarn
			if a.verbose {
				level = slog.LevelDebug
			}
			a.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&a.cfgFile, "config", "c", "", "YAML config file (environment variables override it)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "log debug output to stderr")

	root.AddCommand(newResolveCmd(a), newCatalogueCmd(a), newGraphCmd(a))
	return root
}

// openStore loads the catalogue the same way the servers do.
func (a *app) openStore(ctx context.Context) (*catalog.Store, error) {
	store, _, err := catalog.Open(ctx, catalog.OpenOptions{
		VehiclesURL:  a.cfg.CatalogueURL,
		VehiclesFile: a.cfg.CatalogueFile,
		EnginesFile:  a.cfg.EnginesFile,
		Logger:       a.logger,
	})
	return store, err
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
