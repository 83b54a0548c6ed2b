package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/PabloGalante/hospital-erp-agent/internal/adapters/http"
	"github.com/PabloGalante/hospital-erp-agent/internal/adapters/ws"
	"github.com/PabloGalante/hospital-erp-agent/internal/bootstrap"
	"github.com/PabloGalante/hospital-erp-agent/internal/config"
	"github.com/PabloGalante/hospital-erp-agent/internal/domain"
	"github.com/PabloGalante/hospital-erp-agent/internal/observability"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log := observability.Logger()
	cfg := config.Load()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		log.Error("failed to build application", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	hub := ws.NewHub()
	go hub.Run(ctx)
	app.Conversation.Subscribe(hub)

	// A missing key is fine here: it can be submitted through POST /credential.
	if err := app.Conversation.Start(ctx, cfg.APIKey); err != nil && !errors.Is(err, domain.ErrNoCredential) {
		log.Warn("model session not ready", "kind", domain.KindOf(err), "error", err)
	}

	e := httpadapter.NewServer(app.Conversation, app.Audit, hub)

	go func() {
		addr := ":" + cfg.Port
		log.Info("hospital API listening", "addr", addr)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	app.Conversation.Cancel()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to shutdown gracefully", "error", err)
	}

	log.Info("hospital API stopped")
}
