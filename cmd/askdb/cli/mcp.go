package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	amcp "github.com/askdb/askdb/internal/mcp"
)

func newMCPCmd() *cobra.Command {
	var (
		transport string
		addr      string
	)

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start the MCP server for AI agents",
		Long: `Start a Model Context Protocol (MCP) server that exposes the question-to-SQL
pipeline and the feedback loop as tools for AI agents. Supports stdio (default)
and streamable HTTP transports.

In stdio mode, the MCP server communicates over stdin/stdout using JSON-RPC,
suitable for desktop MCP clients that launch it as a subprocess. Logs go to
stderr so they never corrupt the protocol stream.`,
		Example: `  askdb mcp                                # stdio mode
  askdb mcp --transport http --addr :8081  # streamable HTTP mode`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			srv := amcp.NewMCPServer(a.assistant, appVersion, a.logger)
			switch a.cfg.MCP.Transport {
			case "stdio":
				return srv.ServeStdio()
			case "http":
				return srv.ServeHTTP(a.cfg.MCP.Addr)
			default:
				return fmt.Errorf("unsupported transport %q; use 'stdio' or 'http'", a.cfg.MCP.Transport)
			}
		},
	}

	cmd.Flags().StringVar(&transport, "transport", "stdio", "Transport mode: stdio or http")
	cmd.Flags().StringVar(&addr, "addr", ":8081", "HTTP listen address (only used with --transport http)")

	viper.BindPFlag("mcp.transport", cmd.Flags().Lookup("transport"))
	viper.BindPFlag("mcp.addr", cmd.Flags().Lookup("addr"))

	return cmd
}
