package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sprite-ai/agtrace/internal/api"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Start an HTTP server exposing the trace engine.

Endpoints:
  GET  /health                          Health check
  GET  /api/sessions/{id}/tasks         List a session's tasks
  GET  /api/trace/{taskID}              Reconstruct a task's trace
  POST /api/trace/{taskID}/children     Lazily load a spawn step's children
  GET  /api/ws                          WebSocket trace sessions`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringP("addr", "a", "", "address to listen on (overrides config)")
	serveCmd.Flags().IntP("port", "p", 0, "port to listen on (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	addr := cfg.Server.Addr
	port := cfg.Server.Port
	if v, _ := cmd.Flags().GetString("addr"); v != "" {
		addr = v
	}
	if v, _ := cmd.Flags().GetInt("port"); v != 0 {
		port = v
	}

	listen := fmt.Sprintf("%s:%d", addr, port)
	srv := api.New(listen, newService(cfg))
	return srv.ListenAndServe()
}
