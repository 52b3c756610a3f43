package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/askdb/askdb/internal/config"
	"github.com/askdb/askdb/internal/server"
	"github.com/askdb/askdb/internal/service"
)

const banner = `
             _        _ _
  __ _  ___ | | __ __| | |__
 / _' |/ __|| |/ // _' | '_ \
| (_| |\__ \|   <| (_| | |_) |
 \__,_||___/|_|\_\\__,_|_.__/
`

func newServeCmd() *cobra.Command {
	var (
		port int
		host string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the askdb API server",
		Long:  "Start the HTTP server that answers questions, runs validated queries and records reviewer feedback.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 5000, "HTTP listen port")
	cmd.Flags().StringVar(&host, "host", "0.0.0.0", "HTTP listen host")

	viper.BindPFlag("server.port", cmd.Flags().Lookup("port"))
	viper.BindPFlag("server.host", cmd.Flags().Lookup("host"))

	return cmd
}

func runServe(ctx context.Context) error {
	fmt.Print(banner)
	fmt.Println()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Logging)

	a, err := openApp(ctx, cfg, logger)
	if err != nil {
		return err
	}

	bodySize, err := config.ParseSize(cfg.Server.MaxBodySize)
	if err != nil {
		a.Close()
		return err
	}

	authSvc := service.NewAuthService(cfg.Auth.JWTSecret)
	if !authSvc.Enabled() {
		logger.Warn("auth.jwt_secret is empty, correction and feedback endpoints are open")
	}

	srv := server.New(server.Config{
		Host:               cfg.Server.Host,
		Port:               cfg.Server.Port,
		ShutdownTimeout:    cfg.Server.ShutdownTimeout,
		CORSOrigins:        cfg.Server.CORSOrigins,
		MaxBodySize:        bodySize,
		RateLimitPerMinute: cfg.Server.RateLimitPerMinute,
	}, a.assistant, a.health, authSvc, logger)
	srv.OnShutdown(a.Close)

	fmt.Printf("  API:     http://%s:%d/api/v1\n", displayHost(cfg.Server.Host), cfg.Server.Port)
	fmt.Printf("  Health:  http://%s:%d/healthz\n", displayHost(cfg.Server.Host), cfg.Server.Port)
	fmt.Println()

	return srv.ListenAndServe()
}

func displayHost(host string) string {
	if host == "" || host == "0.0.0.0" {
		return "localhost"
	}
	return host
}
