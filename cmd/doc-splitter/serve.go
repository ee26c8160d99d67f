package main

import (
	"fmt"

	"doc-splitter/internal/api"
	"doc-splitter/internal/api/handlers"
	"doc-splitter/internal/metrics"
	"doc-splitter/internal/repository"
	"doc-splitter/internal/service"
	"doc-splitter/internal/splitter"
	"doc-splitter/pkg/auth"
	"doc-splitter/pkg/logger"
	"doc-splitter/pkg/postgres"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func serveCmd(e *env) *cobra.Command {
	var migrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Run the HTTP API backed by PostgreSQL.

Configuration comes from the environment or a .env file (DB_*, JWT_*, LLM_*,
GIGACHAT_*, OPENAI_*, SPLIT_*, SERVER_*).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			cfg, err := e.loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			if err := logger.Init(cfg.Logger.Level); err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			defer logger.Sync()

			appLogger := logger.Get()
			appLogger.Info("Starting doc-splitter service", zap.String("version", version))

			metrics.Register()

			db, err := postgres.NewPool(ctx, &cfg.Database, appLogger)
			if err != nil {
				return err
			}
			defer db.Close()

			if migrate {
				if err := postgres.Migrate(ctx, db); err != nil {
					return err
				}
				appLogger.Info("Database schema applied")
			}

			provider, err := e.newProvider(ctx, &cfg.LLM, appLogger)
			if err != nil {
				return fmt.Errorf("failed to initialize model provider: %w", err)
			}
			defer provider.Close()

			analysisRepo := repository.NewAnalysisRepository(db, appLogger)
			jwtManager := auth.NewJWTManager(cfg.JWT.SecretKey, cfg.JWT.Expiration)

			split := splitter.New(provider, splitterConfig(cfg), appLogger)
			analysisService := service.NewAnalysisService(split, analysisRepo, appLogger)
			analysisHandler := handlers.NewAnalysisHandler(analysisService, appLogger)

			app := api.SetupRouter(analysisHandler, jwtManager, api.RouterConfig{
				BodyLimit: cfg.Server.BodyLimit,
				AccessLog: true,
			}, appLogger)

			errCh := make(chan error, 1)
			go func() {
				addr := ":" + cfg.Server.Port
				appLogger.Info("Server starting", zap.String("address", addr), zap.String("llm_provider", cfg.LLM.Provider))
				errCh <- app.Listen(addr)
			}()

			select {
			case err := <-errCh:
				return fmt.Errorf("server failed: %w", err)
			case <-ctx.Done():
			}

			appLogger.Info("Shutting down server")
			if err := app.ShutdownWithTimeout(cfg.Server.WriteTimeout); err != nil {
				appLogger.Error("Server shutdown error", zap.Error(err))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&migrate, "migrate", true, "create the analysis tables on startup if missing")

	return cmd
}
