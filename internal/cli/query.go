package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"govreporter/internal/app"
	"govreporter/internal/models"
)

func newQueryCmd(a *app.Application) *cobra.Command {
	var collection string
	var limit int
	var minScore float64
	var showText bool

	cmd := &cobra.Command{
		Use:   "query <text>",
		Short: "Run a one-off semantic search from the terminal",
		Args: func(_ *cobra.Command, args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("%w: query takes exactly one argument", ErrUsage)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.Config.ValidateServer(); err != nil {
				return err
			}

			collections, err := collectionsFor(collection)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			store, err := a.Milvus(ctx)
			if err != nil {
				return err
			}

			vectors, failed := a.Embedder().EmbedBatch(ctx, []string{args[0]})
			if len(failed) > 0 {
				return fmt.Errorf("could not embed the query text")
			}

			var merged []models.SearchResult
			for _, c := range collections {
				hits, err := store.SemanticSearch(ctx, c, vectors[0], limit, nil)
				if err != nil {
					return fmt.Errorf("search in %s: %w", c, err)
				}
				merged = append(merged, hits...)
			}
			sort.SliceStable(merged, func(i, j int) bool { return merged[i].Score > merged[j].Score })
			if len(merged) > limit {
				merged = merged[:limit]
			}

			out := cmd.OutOrStdout()
			shown := 0
			for _, r := range merged {
				if float64(r.Score) < minScore {
					continue
				}
				shown++
				fmt.Fprintf(out, "%2d. %.3f  %s\n", shown, r.Score, queryTitle(r.Payload))
				if showText {
					fmt.Fprintf(out, "    %s\n", strings.ReplaceAll(r.Payload.Text, "\n", "\n    "))
				}
			}
			if shown == 0 {
				fmt.Fprintln(out, "no results")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&collection, "collection", "all", "court_opinions, executive_orders, or all")
	cmd.Flags().IntVar(&limit, "limit", 5, "maximum results")
	cmd.Flags().Float64Var(&minScore, "min-score", 0, "hide results scoring below this")
	cmd.Flags().BoolVar(&showText, "show-text", false, "print chunk text")
	return cmd
}

func collectionsFor(name string) ([]string, error) {
	switch name {
	case "all", "":
		return []string{models.CollectionCourtOpinions, models.CollectionExecutiveOrders}, nil
	case models.CollectionCourtOpinions, models.CollectionExecutiveOrders:
		return []string{name}, nil
	}
	return nil, fmt.Errorf("%w: unknown collection %q", ErrUsage, name)
}

func queryTitle(p *models.ChunkPayload) string {
	switch {
	case p.Opinion != nil && p.Opinion.Citation != "":
		return p.Title + ", " + p.Opinion.Citation
	case p.Order != nil && p.Order.ExecutiveOrderNumber != "":
		return "EO " + p.Order.ExecutiveOrderNumber + ": " + p.Title
	}
	return p.Title
}
