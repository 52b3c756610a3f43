package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/askdb/askdb/internal/connector"
	"github.com/askdb/askdb/internal/service"
)

// checkTimeout bounds the whole health probe.
const checkTimeout = 10 * time.Second

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check the database, the language model and the index",
		Long: `Probe the three runtime dependencies and report their status. When both the
database and the index are available, indexed tables missing from the
database are listed too. Exits non-zero when any dependency is down.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), checkTimeout)
			defer cancel()

			report := a.health.Report(ctx)
			printReport(cmd.OutOrStdout(), report)
			printConnections(ctx, cmd.OutOrStdout(), a.registry)

			if report.Database && a.index != nil {
				if conn, err := a.registry.Get(connector.DefaultService); err == nil {
					names, err := conn.TableNames(ctx)
					if err != nil {
						a.logger.Warn("list database tables", "error", err)
					} else if missing := a.index.MissingTables(names); len(missing) > 0 {
						fmt.Fprintf(cmd.OutOrStdout(), "\nIndexed tables missing from the database: %v\n", missing)
					}
				}
			}

			if !report.Healthy() {
				return errors.New("one or more dependencies are unavailable")
			}
			return nil
		},
	}
}

func printReport(w io.Writer, r *service.HealthReport) {
	line := func(name string, ok bool, key string) {
		status := "OK"
		if !ok {
			status = "FAIL"
			if msg, found := r.Errors[key]; found {
				status += " (" + msg + ")"
			}
		}
		fmt.Fprintf(w, "  %-10s %s\n", name, status)
	}
	line("Database", r.Database, "database")
	line("LLM", r.LLM, "llm")
	line("RAG", r.RAG, "rag")
}

// printConnections pings every registered database connection.
func printConnections(ctx context.Context, w io.Writer, registry *connector.Registry) {
	names := registry.ListServices()
	if len(names) == 0 {
		fmt.Fprintln(w, "\nNo database connections.")
		return
	}
	fmt.Fprintln(w, "\nConnections:")
	for _, name := range names {
		conn, err := registry.Get(name)
		if err != nil {
			fmt.Fprintf(w, "  %-10s FAIL (%v)\n", name, err)
			continue
		}
		status := "OK"
		if err := conn.Ping(ctx); err != nil {
			status = "FAIL (" + err.Error() + ")"
		}
		fmt.Fprintf(w, "  %-10s %-8s %s\n", name, conn.DriverName(), status)
	}
}
