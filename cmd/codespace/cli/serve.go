package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/faucetdb/codespace/internal/config"
	"github.com/faucetdb/codespace/internal/server"
)

func newServeCmd() *cobra.Command {
	var (
		port int
		host string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the Codespace API server",
		Long:  "Start the HTTP server that exposes the codespace, sharing and account APIs.",
		Example: `  codespace serve
  codespace serve --dev                 # no Redis or secrets required
  CODESPACE_DATABASE_DRIVER=postgres CODESPACE_DATABASE_DSN=postgres://... codespace serve`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 8000, "HTTP listen port")
	cmd.Flags().StringVar(&host, "host", "0.0.0.0", "HTTP listen host")

	viper.BindPFlag("server.port", cmd.Flags().Lookup("port"))
	viper.BindPFlag("server.host", cmd.Flags().Lookup("host"))

	return cmd
}

func runServe(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	a, err := openApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if cfg.Auth.JWTSecret == devSecret || cfg.Share.TokenSecret == devSecret {
		logger.Warn("using development secrets; set auth.jwt_secret and share.token_secret before deploying")
	}

	maxBody, _ := config.ParseSize(cfg.Server.MaxBodySize)
	srvCfg := server.Config{
		Host:               cfg.Server.Host,
		Port:               cfg.Server.Port,
		ShutdownTimeout:    config.Duration(cfg.Server.ShutdownTimeout),
		CORSOrigins:        cfg.Server.CORS.Origins,
		MaxBodySize:        maxBody,
		AnonymousPerMinute: cfg.Server.RateLimit.AnonymousPerMinute,
		LoginPerMinute:     cfg.Server.RateLimit.LoginPerMinute,
		Version:            versionString(),
	}

	srv := server.New(srvCfg, server.Deps{
		Store:      a.store,
		Cache:      a.cache,
		CodeSpaces: a.codespaces,
		Ephemeral:  a.ephemeral,
		Auth:       a.auth,
		Users:      a.users,
		Share:      a.share,
	}, logger)

	host := cfg.Server.Host
	if host == "0.0.0.0" {
		host = "127.0.0.1"
	}
	fmt.Printf("→ Codespace %s\n", versionString())
	fmt.Printf("→ Listening on http://%s:%d\n", host, cfg.Server.Port)
	fmt.Printf("→ OpenAPI:    http://%s:%d/openapi.json\n", host, cfg.Server.Port)
	fmt.Printf("→ Health:     http://%s:%d/healthz\n", host, cfg.Server.Port)
	fmt.Printf("→ Database:   %s, cache: %s (active %s, ephemeral %s)\n",
		cfg.Database.Driver, cfg.Cache.Driver, cfg.Cache.ActiveTTL, cfg.Cache.EphemeralTTL)
	fmt.Println()

	return srv.ListenAndServe()
}
