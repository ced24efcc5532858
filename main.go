package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/domjanbaric/agnetic-finance-workshop/internal/adapter/model"
	"github.com/domjanbaric/agnetic-finance-workshop/internal/config"
	"github.com/domjanbaric/agnetic-finance-workshop/internal/finance"
	store "github.com/domjanbaric/agnetic-finance-workshop/internal/repository"
	"github.com/domjanbaric/agnetic-finance-workshop/internal/service"
	"github.com/domjanbaric/agnetic-finance-workshop/internal/tools"
	v1 "github.com/domjanbaric/agnetic-finance-workshop/internal/transport/http/v1"
	"github.com/domjanbaric/agnetic-finance-workshop/policy"
)

func main() {
	// .env is optional, real deployments use the environment directly
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	log := cfg.NewLogger()
	slog.SetDefault(log)

	log.Info("starting workshop service",
		"port", cfg.HTTPPort,
		"database", cfg.DatabaseDSN,
		"model_mode", cfg.ModelMode,
	)

	db, err := store.NewSQLiteStore(cfg.DatabaseDSN)
	if err != nil {
		log.Error("failed to initialize store", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	client := model.NewFromMode(cfg.ModelMode, cfg.ModelBaseURL, cfg.ModelAPIKey, cfg.ModelTimeout, log)

	ctx := context.Background()
	policyEngine, err := policy.NewEngine(ctx, policy.DefaultPolicy)
	if err != nil {
		log.Error("failed to initialize policy engine", "error", err)
		os.Exit(1)
	}

	registry := tools.NewRegistry()
	table, err := finance.LoadMetricsTable()
	if err != nil {
		log.Error("failed to load metrics table", "error", err)
		os.Exit(1)
	}
	registry.MustRegister(finance.NewMetricsTool(table))
	registry.MustRegister(finance.NewPriceTool())
	registry.MustRegister(finance.NewNewsTool())
	log.Info("tools registered", "tools", registry.Names())

	teams, err := service.DefaultTeamDefs()
	if err != nil {
		log.Error("failed to load team catalog", "error", err)
		os.Exit(1)
	}

	svc, err := service.New(db, client, registry, policyEngine, teams, cfg, log)
	if err != nil {
		log.Error("failed to build service", "error", err)
		os.Exit(1)
	}

	h := v1.NewHandler(svc, log)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	h.RegisterRoutes(e)

	go func() {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Error("server stopped", "error", err)
			os.Exit(1)
		}
	}()
	log.Info("api started", "port", cfg.HTTPPort, "teams", len(teams))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to shutdown gracefully", "error", err)
	}
	log.Info("stopped")
}
