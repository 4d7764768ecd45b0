package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/fived/therapists/internal/analysis"
	"github.com/fived/therapists/internal/auth"
	"github.com/fived/therapists/internal/config"
	"github.com/fived/therapists/internal/logger"
	"github.com/fived/therapists/internal/platform/telegram"
	"github.com/fived/therapists/internal/questionnaire"
	"github.com/fived/therapists/internal/report"
	"github.com/fived/therapists/internal/server"
	"github.com/fived/therapists/internal/storage"
)

func NewServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.Log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	handler, closeFn, err := buildApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeFn()

	return server.Run(ctx, ":"+cfg.Server.Port, handler, log)
}

// buildApp wires storage, services and the router from cfg.
func buildApp(ctx context.Context, cfg *config.Config, log *logrus.Logger) (http.Handler, func(), error) {
	// 1. Auth
	if cfg.Auth.Secret == "" {
		return nil, nil, errors.New("auth.secret (JWT_SECRET) is required to serve")
	}
	tokens := auth.NewTokens(cfg.Auth.Secret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)

	// 2. Questionnaire
	catalog, err := questionnaire.Load(cfg.Questionnaire.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("load questionnaire: %w", err)
	}

	// 3. Storage
	store, err := storage.Open(ctx, cfg.DB, log)
	if err != nil {
		return nil, nil, err
	}

	// 4. Clients
	tgClient := telegram.NewClient(cfg.Telegram.Token, cfg.Telegram.BaseURL)
	if !tgClient.Configured() || cfg.Telegram.ChatID == 0 {
		log.Warn("telegram delivery is not configured, report sharing is disabled")
	}

	// 5. Services
	reportSvc := report.NewService(tgClient, cfg.Telegram.ChatID, cfg.Report.FontPaths, log)
	sessions := analysis.NewSessionStore(cfg.Server.SessionTTL)
	go sessions.RunJanitor(ctx, time.Minute)
	analysisSvc := analysis.NewService(store, catalog, sessions, log)
	analysisHandler := analysis.NewHandler(analysisSvc, reportSvc, log)

	closeFn := func() {
		if err := store.Close(); err != nil {
			log.WithError(err).Error("failed to close store")
		}
	}
	return server.NewRouter(analysisHandler, tokens, log), closeFn, nil
}
