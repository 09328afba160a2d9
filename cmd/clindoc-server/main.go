package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/clindoc/clindoc/internal/config"
	"github.com/clindoc/clindoc/internal/domain/report"
	"github.com/clindoc/clindoc/internal/pipeline"
	"github.com/clindoc/clindoc/internal/pipeline/entity"
	"github.com/clindoc/clindoc/internal/pipeline/extract"
	"github.com/clindoc/clindoc/internal/pipeline/link"
	"github.com/clindoc/clindoc/internal/pipeline/narrative"
	"github.com/clindoc/clindoc/internal/pipeline/safety"
	"github.com/clindoc/clindoc/internal/platform/db"
	"github.com/clindoc/clindoc/internal/platform/embed"
	"github.com/clindoc/clindoc/internal/platform/llm"
	"github.com/clindoc/clindoc/internal/platform/middleware"
	"github.com/clindoc/clindoc/internal/platform/nlp"
	"github.com/clindoc/clindoc/internal/platform/ocr"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "clindoc-server",
		Short: "Clinical document analysis API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(analyzeCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the document analysis API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			count, err := migrator.Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			statuses, err := migrator.Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			fmt.Println("---------- ---------------------------------------- ---------- --------------------")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	return cmd
}

// analyzeCmd runs the pipeline against a local file without the API server or
// database, printing the analysis result as JSON. Useful for smoke-testing a
// deployment's backend configuration.
func analyzeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "analyze <file>",
		Short: "Analyze a single document and print the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			doc := extract.RawDocument{
				Filename:  args[0],
				MediaType: extract.MediaTypeForFilename(args[0]),
				Data:      data,
			}

			pipe, _ := buildPipeline(cfg)
			result, err := pipe.Run(context.Background(), doc)
			if err != nil {
				return err
			}

			out, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}
}

// buildPipeline assembles the analysis pipeline from configuration, returning
// it along with availability probes for each configured backend. Backends
// whose URLs are unset are left nil; the pipeline degrades or skips those
// stages at run time.
func buildPipeline(cfg *config.Config) (*pipeline.Pipeline, map[string]func(context.Context) bool) {
	probes := make(map[string]func(context.Context) bool)

	var ocrBackend extract.OCRBackend
	if cfg.OCREnabled && cfg.OCRURL != "" {
		client := ocr.NewClient(cfg.OCRURL)
		probes["ocr"] = client.Available
		ocrBackend = client
	}
	extractor := extract.NewExtractor(ocrBackend)

	entities := &entity.Extractor{}
	if cfg.NERGeneralURL != "" {
		client := nlp.NewClient(cfg.NERGeneralURL, "general")
		probes["ner_general"] = client.Available
		entities.General = client
	}
	if cfg.NERBiomedicalURL != "" {
		client := nlp.NewClient(cfg.NERBiomedicalURL, "biomedical")
		probes["ner_biomedical"] = client.Available
		entities.Biomedical = client
	}

	var linker *link.Linker
	if cfg.LinkingEnabled && cfg.EmbeddingURL != "" {
		linker = link.NewLinker(embed.NewClient(cfg.EmbeddingURL, cfg.EmbeddingModel), link.NewLexicon())
		if cfg.LinkConditionThreshold > 0 {
			linker.Threshold = cfg.LinkConditionThreshold
		}
		if cfg.LinkMedicationThreshold > 0 {
			linker.MedicationThreshold = cfg.LinkMedicationThreshold
		}
	}

	var enhancer narrative.Enhancer
	var flagWriter safety.Narrator
	if cfg.LLMEnabled && cfg.LLMURL != "" {
		client := llm.NewClient(cfg.LLMURL, cfg.LLMModel, cfg.LLMAPIKey)
		probes["llm"] = func(context.Context) bool { return client.Available() }
		enhancer = narrative.NewLLMEnhancer(client)
		flagWriter = safety.NewLLMNarrator(client)
	}
	generator := narrative.NewGenerator(enhancer)
	if cfg.LLMTimeout > 0 {
		generator.Timeout = cfg.LLMTimeout
	}

	opts := pipeline.Options{
		LinkingEnabled:   linker != nil,
		NarrativeEnabled: enhancer != nil,
		SafetyNarration:  flagWriter != nil,
	}
	return pipeline.New(opts, extractor, entities, linker, generator, flagWriter), probes
}

func runServer() error {
	// Logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	// Database
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.BodyLimit(cfg.MaxUploadMB))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": "0.1.0",
		})
	})
	e.GET("/health/db", db.HealthHandler(pool))

	// Pipeline and report domain
	pipe, probes := buildPipeline(cfg)
	logger.Info().
		Bool("ocr", cfg.OCREnabled).
		Bool("linking", cfg.LinkingEnabled).
		Bool("llm", cfg.LLMEnabled).
		Msg("analysis pipeline configured")

	// Readiness: the database gates readiness; backend probes are
	// informational because the pipeline degrades without them.
	e.GET("/ready", func(c echo.Context) error {
		probeCtx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
		defer cancel()

		backends := make(map[string]bool, len(probes))
		for name, probe := range probes {
			backends[name] = probe(probeCtx)
		}

		if err := pool.Ping(probeCtx); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]interface{}{
				"status":   "not ready",
				"error":    err.Error(),
				"backends": backends,
			})
		}
		return c.JSON(http.StatusOK, map[string]interface{}{
			"status":   "ready",
			"backends": backends,
		})
	})

	apiV1 := e.Group("/api/v1")
	reportSvc := report.NewService(report.NewRepoPG(pool), pipe)
	reportHandler := report.NewHandler(reportSvc)
	reportHandler.RegisterRoutes(apiV1)

	// Start server with graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
