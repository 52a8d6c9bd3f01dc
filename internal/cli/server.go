package cli

import (
	"github.com/spf13/cobra"

	"govreporter/internal/app"
	"govreporter/internal/server"
)

func newServerCmd(a *app.Application) *cobra.Command {
	var transport string
	var port int

	cmd := &cobra.Command{
		Use:   "server",
		Short: "Serve the indexed collections to MCP clients",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.Config.ValidateServer(); err != nil {
				return err
			}
			ctx := cmd.Context()

			store, err := a.Milvus(ctx)
			if err != nil {
				return err
			}

			srv := server.New(a.Config, store, a.Embedder(), a.Fetchers(), a.Log)
			if err := srv.Prepare(ctx); err != nil {
				return err
			}
			return srv.Serve(transport, port)
		},
	}

	cmd.Flags().StringVar(&transport, "transport", "stdio", "MCP transport: stdio, sse, or httpstream")
	cmd.Flags().IntVar(&port, "port", 8080, "listen port for the HTTP transports")
	return cmd
}
