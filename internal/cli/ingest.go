package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"govreporter/internal/app"
	"govreporter/internal/database/milvus"
	"govreporter/internal/ingestion"
	"govreporter/internal/models"
)

type ingestFlags struct {
	start         string
	end           string
	batch         int
	workers       int
	dryRun        bool
	milvusAddress string
}

func newIngestCmd(a *app.Application) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Fetch, enrich and index a document corpus",
	}
	cmd.AddCommand(
		newIngestCorpusCmd(a, "opinions", models.DocumentTypeCourtOpinion, 50),
		newIngestCorpusCmd(a, "orders", models.DocumentTypeExecutiveOrder, 25),
	)
	return cmd
}

func newIngestCorpusCmd(a *app.Application, name string, docType models.DocumentType, defaultBatch int) *cobra.Command {
	flags := &ingestFlags{}

	cmd := &cobra.Command{
		Use:   name + " --start YYYY-MM-DD",
		Short: "Ingest " + docType.Collection(),
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := validateWindow(flags.start, flags.end); err != nil {
				return err
			}
			if err := a.Config.ValidateIngest(docType); err != nil {
				return err
			}
			return runIngest(cmd, a, docType, flags)
		},
	}

	cmd.Flags().StringVar(&flags.start, "start", "", "earliest publication date, YYYY-MM-DD (required)")
	cmd.Flags().StringVar(&flags.end, "end", "", "latest publication date, YYYY-MM-DD (default today)")
	cmd.Flags().IntVar(&flags.batch, "batch", defaultBatch, "documents per embed/upsert batch")
	cmd.Flags().IntVar(&flags.workers, "workers", a.Config.PipelineWorkers, "concurrent document workers")
	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "process documents without embedding or storing")
	cmd.Flags().StringVar(&flags.milvusAddress, "milvus-address", "", "override the configured Milvus address")
	return cmd
}

func runIngest(cmd *cobra.Command, a *app.Application, docType models.DocumentType, flags *ingestFlags) error {
	if flags.milvusAddress != "" {
		a.Config.MilvusAddress = flags.milvusAddress
	}

	// First signal cancels the run context; workers drain and the run row
	// is marked interrupted.
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fetcher, err := a.Fetcher(docType)
	if err != nil {
		return err
	}
	chunker, err := a.Chunker(docType)
	if err != nil {
		return err
	}
	ex, err := a.Extractor()
	if err != nil {
		return err
	}

	var store milvus.Store
	if !flags.dryRun {
		store, err = a.Milvus(ctx)
		if err != nil {
			return err
		}
	}

	prog, err := a.Progress(docType)
	if err != nil {
		return err
	}
	defer prog.Close()

	pipeline := ingestion.New(fetcher, chunker, ex, a.Embedder(), store, prog, ingestion.Options{
		Start:     flags.start,
		End:       flags.end,
		BatchSize: flags.batch,
		Workers:   flags.workers,
		DryRun:    flags.dryRun,
	}, a.Log)

	summary, err := pipeline.Run(ctx)
	if summary != nil {
		fmt.Fprintln(cmd.OutOrStdout(), summary.Describe())
	}
	if err != nil {
		return err
	}
	if summary.Interrupted {
		return ErrInterrupted
	}
	if summary.Discovered > 0 && summary.Completed == 0 && summary.Skipped == 0 {
		return fmt.Errorf("no documents completed (%d failed)", summary.Failed)
	}
	return nil
}
