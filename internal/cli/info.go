package cli

import (
	"fmt"
	"math"
	"math/rand"
	"strings"

	"github.com/spf13/cobra"

	"govreporter/internal/app"
	"govreporter/internal/models"
	"govreporter/internal/server"
)

func newInfoCmd(a *app.Application) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info",
		Short: "Inspect collections, stored payloads and ingestion progress",
	}
	cmd.AddCommand(newInfoCollectionsCmd(a), newInfoSampleCmd(a), newInfoStatsCmd(a))
	return cmd
}

func newInfoCollectionsCmd(a *app.Application) *cobra.Command {
	return &cobra.Command{
		Use:   "collections",
		Short: "List collections with counts and dimensions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := a.Milvus(cmd.Context())
			if err != nil {
				return err
			}
			infos, err := store.ListCollections(cmd.Context())
			fmt.Fprintln(cmd.OutOrStdout(), server.FormatCollections(infos, err))
			return err
		},
	}
}

func newInfoSampleCmd(a *app.Application) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "sample <collection>",
		Short: "Print random stored payloads from a collection",
		Args: func(_ *cobra.Command, args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("%w: sample takes exactly one collection name", ErrUsage)
			}
			if _, err := models.DocumentTypeForCollection(args[0]); err != nil {
				return fmt.Errorf("%w: %v", ErrUsage, err)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := a.Milvus(ctx)
			if err != nil {
				return err
			}

			dim := a.Config.EmbeddingDimensions
			hits, err := store.SemanticSearch(ctx, args[0], randomUnitVector(dim), limit, nil)
			if err != nil {
				return fmt.Errorf("sample %s: %w", args[0], err)
			}
			if len(hits) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "collection is empty")
				return nil
			}
			for i, r := range hits {
				if i > 0 {
					fmt.Fprintln(cmd.OutOrStdout(), strings.Repeat("-", 60))
				}
				fmt.Fprint(cmd.OutOrStdout(), server.FormatChunk(&r))
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 3, "number of payloads to print")
	return cmd
}

func newInfoStatsCmd(a *app.Application) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print ingestion-ledger statistics per corpus",
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			for _, docType := range []models.DocumentType{models.DocumentTypeCourtOpinion, models.DocumentTypeExecutiveOrder} {
				prog, err := a.Progress(docType)
				if err != nil {
					return err
				}
				st, err := prog.Stats()
				if err != nil {
					prog.Close()
					return err
				}
				runs, err := prog.RecentRuns(5)
				prog.Close()
				if err != nil {
					return err
				}

				fmt.Fprintf(out, "%s\n", docType.Collection())
				fmt.Fprintf(out, "  total: %d  completed: %d  failed: %d  pending: %d  processing: %d\n",
					st.Total(), st.Completed, st.Failed, st.Pending, st.Processing)
				if st.Completed+st.Failed > 0 {
					fmt.Fprintf(out, "  success rate: %.0f%%  avg duration: %.1fs\n",
						st.SuccessRate()*100, st.AvgDurationMS/1000)
				}
				for _, f := range st.RecentFailures {
					fmt.Fprintf(out, "  failed %s: %s\n", f.DocumentID, f.Error)
				}
				for _, r := range runs {
					fmt.Fprintf(out, "  run %d: %s  %s → %s  %s\n", r.ID, r.Status, r.StartedAt, r.EndedAt, r.Args)
				}
				fmt.Fprintln(out)
			}
			return nil
		},
	}
}

// randomUnitVector gives SemanticSearch an unbiased probe direction; with a
// cosine metric the nearest neighbours of a random direction are an
// arbitrary sample of the collection.
func randomUnitVector(dim int) []float32 {
	v := make([]float32, dim)
	var sum float64
	for i := range v {
		v[i] = float32(rand.NormFloat64())
		sum += float64(v[i]) * float64(v[i])
	}
	if sum == 0 {
		v[0] = 1
		return v
	}
	norm := float32(math.Sqrt(sum))
	for i := range v {
		v[i] /= norm
	}
	return v
}
