package main

import (
	"context"
	"os"
	"time"

	"github.com/dvloznov/finbot/internal/app"
	"github.com/dvloznov/finbot/internal/assistant"
	"github.com/dvloznov/finbot/internal/config"
	"github.com/dvloznov/finbot/internal/logger"
	"github.com/dvloznov/finbot/internal/store"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	userID   string
	logLevel string
	timeout  time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "finbot",
	Short: "Chat with the finance assistant from the terminal",
	Long: `finbot records income, expenses, goals and budgets from plain
conversation. Replies are answered by Gemini and any actions they contain are
saved to the configured data service.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&userID, "user", "u", "", "User id (default: FINBOT_USER_ID)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (default: LOG_LEVEL or warn)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 2*time.Minute, "Timeout for one-shot commands")

	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(summaryCmd)
	rootCmd.AddCommand(categoriesCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// env is what every subcommand needs.
type env struct {
	cfg      *config.Config
	log      zerolog.Logger
	repo     store.Repository
	services *app.Services
	userID   string
}

// setup loads configuration and opens the data service. The model client is
// created only when withModel is set.
func setup(ctx context.Context, withModel bool) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(withModel); err != nil {
		return nil, err
	}

	level := logLevel
	if level == "" {
		level = "warn"
	}
	log := logger.NewWithOptions(logger.Options{Level: level, Format: cfg.LogFormat, Out: os.Stderr})

	repo, err := app.OpenRepository(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var completion assistant.CompletionService
	if withModel {
		completion, err = assistant.NewGeminiService(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, float32(cfg.GeminiTemperature))
		if err != nil {
			repo.Close()
			return nil, err
		}
	}

	services := app.NewServices(cfg, repo, completion, log)
	if err := app.SeedCategories(ctx, repo, services.Catalog); err != nil {
		repo.Close()
		return nil, err
	}

	id := userID
	if id == "" {
		id = cfg.DefaultUserID
	}
	return &env{cfg: cfg, log: log, repo: repo, services: services, userID: id}, nil
}

func (e *env) Close() {
	if err := e.repo.Close(); err != nil {
		e.log.Warn().Err(err).Msg("Failed to close data service")
	}
}
