// Command mcp_server runs only the MCP server, for deployments that ingest
// elsewhere and just need the serving surface.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"govreporter/internal/app"
	"govreporter/internal/config"
	"govreporter/internal/server"
)

func main() {
	transport := flag.String("transport", "stdio", "MCP transport: stdio, sse, or httpstream")
	port := flag.Int("port", 8080, "listen port for the HTTP transports")
	logLevel := flag.String("log-level", "", "override MCP_LOG_LEVEL")
	flag.Parse()

	if err := run(*transport, *port, *logLevel); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run(transport string, port int, logLevel string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if logLevel != "" {
		cfg.MCPLogLevel = logLevel
	}
	if err := cfg.ValidateServer(); err != nil {
		return err
	}

	a := app.New(cfg, "mcp_server")
	ctx := context.Background()

	store, err := a.Milvus(ctx)
	if err != nil {
		return err
	}

	srv := server.New(cfg, store, a.Embedder(), a.Fetchers(), a.Log)
	if err := srv.Prepare(ctx); err != nil {
		return err
	}
	return srv.Serve(transport, port)
}
