package cli

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"govreporter/internal/app"
	"govreporter/internal/models"
)

func newDeleteCmd(a *app.Application) *cobra.Command {
	var all bool
	var collection string
	var yes bool
	var keepProgress bool

	cmd := &cobra.Command{
		Use:   "delete (--all | --collection NAME)",
		Short: "Drop indexed collections and, optionally, ingestion progress",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if all == (collection != "") {
				return fmt.Errorf("%w: pass exactly one of --all or --collection", ErrUsage)
			}

			targets := []string{collection}
			if all {
				targets = []string{models.CollectionCourtOpinions, models.CollectionExecutiveOrders}
			} else if _, err := models.DocumentTypeForCollection(collection); err != nil {
				return fmt.Errorf("%w: %v", ErrUsage, err)
			}

			if !yes && !confirm(cmd, fmt.Sprintf("This permanently deletes %s. Type 'yes' to continue: ",
				strings.Join(targets, " and "))) {
				fmt.Fprintln(cmd.OutOrStdout(), "aborted")
				return nil
			}

			ctx := cmd.Context()
			store, err := a.Milvus(ctx)
			if err != nil {
				return err
			}
			for _, target := range targets {
				if err := store.DeleteCollection(ctx, target); err != nil {
					return fmt.Errorf("delete %s: %w", target, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", target)
			}

			if all && !keepProgress {
				if err := removeProgressFiles(a.Config.ProgressDir); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "removed ingestion progress")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "delete every collection")
	cmd.Flags().StringVar(&collection, "collection", "", "delete one collection by name")
	cmd.Flags().BoolVar(&yes, "yes", false, "skip the confirmation prompt")
	cmd.Flags().BoolVar(&keepProgress, "keep-progress", false, "keep the progress databases with --all")
	return cmd
}

func confirm(cmd *cobra.Command, prompt string) bool {
	fmt.Fprint(cmd.OutOrStdout(), prompt)
	reader := bufio.NewReader(cmd.InOrStdin())
	line, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	return strings.TrimSpace(line) == "yes"
}

// removeProgressFiles drops the per-corpus SQLite files plus their WAL
// sidecars, leaving the directory in place.
func removeProgressFiles(dir string) error {
	for _, collection := range []string{models.CollectionCourtOpinions, models.CollectionExecutiveOrders} {
		for _, suffix := range []string{".db", ".db-wal", ".db-shm"} {
			path := filepath.Join(dir, collection+suffix)
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("remove %s: %w", path, err)
			}
		}
	}
	return nil
}
