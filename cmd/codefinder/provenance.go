package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/efebarandurmaz/codefinder/internal/config"
	"github.com/efebarandurmaz/codefinder/internal/graph"
	"github.com/efebarandurmaz/codefinder/internal/graph/neo4j"
)

func newProvenanceCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "provenance <owner/repo> <path>",
		Short: "List the chunk ids indexed from one file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if cfg.Graph.URI == "" {
				return errors.New("provenance needs CODEFINDER_GRAPH_URI")
			}
			ctx := cmd.Context()
			repo, err := neo4j.NewNeo4j(ctx, cfg.Graph.URI, cfg.Graph.Username, cfg.Graph.Password)
			if err != nil {
				return err
			}
			defer func() { _ = repo.Close(context.Background()) }()
			return printProvenance(ctx, cmd.OutOrStdout(), repo, args[0], args[1])
		},
	}
}

func printProvenance(ctx context.Context, out io.Writer, repo graph.Repository, repository, path string) error {
	ids, err := repo.ChunksForFile(ctx, repository, path)
	if err != nil {
		return fmt.Errorf("looking up %s/%s: %w", repository, path, err)
	}
	if len(ids) == 0 {
		fmt.Fprintf(out, "No chunks indexed for %s %s\n", repository, path)
		return nil
	}
	fmt.Fprintf(out, "%s %s: %d chunks\n", repository, path, len(ids))
	for _, id := range ids {
		fmt.Fprintf(out, "  %s\n", id)
	}
	return nil
}
