package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/01moynul/homewareontap-golang/internal/auth"
	"github.com/01moynul/homewareontap-golang/internal/config"
	"github.com/01moynul/homewareontap-golang/internal/database"
	"github.com/01moynul/homewareontap-golang/internal/handlers"
	"github.com/01moynul/homewareontap-golang/internal/logger"
	"github.com/01moynul/homewareontap-golang/internal/pricing"
	"github.com/01moynul/homewareontap-golang/internal/routes"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// --- Load Environment Variables (.env) ---
	if err := godotenv.Load(); err != nil {
		log.Println("WARNING: Could not find or load .env file. Relying on system environment variables.")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	zl, err := logger.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer zl.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Database Connection ---
	db, err := database.OpenDB(ctx, cfg.DSN, zl)
	if err != nil {
		zl.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// --- Application Setup ---
	calc := pricing.NewCalculator(cfg.FlatShippingRate, cfg.FreeShippingThreshold, cfg.TaxRate)
	tokens := auth.NewTokens(cfg.JWTSecret, cfg.JWTTTL)
	app := handlers.New(db, calc, tokens, zl, cfg.OrderPendingTTL)

	// --- Background Worker ---
	// Cancels unpaid orders and returns their stock.
	go app.RunWorker(ctx, cfg.WorkerInterval)

	// --- Router Setup ---
	gin.SetMode(cfg.GinMode)
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           routes.SetupRouter(app, cfg, zl),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zl.Info("starting HomewareOnTap API server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zl.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zl.Error("graceful shutdown failed", zap.Error(err))
	}
}
