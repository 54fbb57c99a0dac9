package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/WessleyAI/wessley-remap/engine/graph"
)

func newGraphCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Mirror the catalogue into Neo4j",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "sync",
			Short: "MERGE the current catalogue into the graph",
			RunE: func(cmd *cobra.Command, _ []string) error {
				store, err := a.openStore(cmd.Context())
				if err != nil {
					return err
				}
				return a.withGraph(cmd.Context(), func(g *graph.Store) error {
					st, err := g.SyncCatalogue(cmd.Context(), store.Load())
					if err != nil {
						return err
					}
					return printJSON(cmd.OutOrStdout(), st)
				})
			},
		},
		&cobra.Command{
			Use:   "stats",
			Short: "Print node and relationship counts",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return a.withGraph(cmd.Context(), func(g *graph.Store) error {
					nodes, err := g.NodeCounts(cmd.Context())
					if err != nil {
						return err
					}
					rels, err := g.RelationshipCounts(cmd.Context())
					if err != nil {
						return err
					}
					return printJSON(cmd.OutOrStdout(), map[string]any{"nodes": nodes, "relationships": rels})
				})
			},
		},
	)
	return cmd
}

func (a *app) withGraph(ctx context.Context, fn func(*graph.Store) error) error {
	driver, err := graph.NewDriver(ctx, a.cfg.Neo4jURL, a.cfg.Neo4jUser, a.cfg.Neo4jPass)
	if err != nil {
		return err
	}
	defer driver.Close(ctx)
	return fn(graph.New(graph.DriverOpener{Driver: driver}, a.logger))
}
