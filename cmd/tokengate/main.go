package main

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dropDatabas3/tokengate/internal/app"
	"github.com/dropDatabas3/tokengate/internal/config"
	"github.com/dropDatabas3/tokengate/internal/observability/logger"
	"github.com/dropDatabas3/tokengate/internal/security/password"
	"github.com/dropDatabas3/tokengate/internal/store/pg"
)

func main() {
	_ = godotenv.Load()

	var configPath string

	root := &cobra.Command{
		Use:           "tokengate",
		Short:         "Multi-tenant OAuth 2.0 / OIDC token service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", envOr("CONFIG_PATH", "config.yaml"), "path to the YAML configuration file")

	root.AddCommand(serveCmd(&configPath))
	root.AddCommand(migrateCmd(&configPath))
	root.AddCommand(keysCmd())
	root.AddCommand(hashpwCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func serveCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the token service",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := app.New(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.Close()
			defer func() { _ = logger.Sync() }()

			g, gctx := errgroup.WithContext(ctx)
			g.Go(a.Server.Start)
			g.Go(func() error {
				<-gctx.Done()
				logger.L().Info("shutting down")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
				defer cancel()
				return a.Server.Shutdown(shutdownCtx)
			})
			return g.Wait()
		},
	}
}

func migrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if cfg.Storage.Driver != "postgres" {
				return fmt.Errorf("migrate requires the postgres storage driver, got %q", cfg.Storage.Driver)
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
			defer cancel()

			store, err := pg.New(ctx, pg.Config{
				DSN:             cfg.Storage.Postgres.DSN,
				MaxConns:        cfg.Storage.Postgres.MaxConns,
				MinConns:        cfg.Storage.Postgres.MinConns,
				ConnMaxLifetime: cfg.Storage.Postgres.ConnMaxLifetime,
			})
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Migrate(ctx); err != nil {
				return err
			}
			fmt.Println("migrations applied")
			return nil
		},
	}
}

// keysCmd prints a fresh Ed25519 seed in the form the tenant
// signing_key config expects.
func keysCmd() *cobra.Command {
	var kid string
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Generate a tenant signing key seed",
		RunE: func(_ *cobra.Command, _ []string) error {
			seed := make([]byte, 32)
			if _, err := rand.Read(seed); err != nil {
				return err
			}
			fmt.Printf("kid:  %s\nseed: %s\n", kid, base64.RawURLEncoding.EncodeToString(seed))
			return nil
		},
	}
	cmd.Flags().StringVar(&kid, "kid", "key-1", "key id to print alongside the seed")
	return cmd
}

// hashpwCmd hashes a password for the tenant users config block.
func hashpwCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hashpw <password>",
		Short: "Hash a password for the users config block",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			phc, err := password.Hash(password.Default, args[0])
			if err != nil {
				return err
			}
			fmt.Println(phc)
			return nil
		},
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
