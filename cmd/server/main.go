package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	router "github.com/dkeye/AssistHub/internal/adapters/http"
	"github.com/dkeye/AssistHub/internal/adapters/rtc"
	"github.com/dkeye/AssistHub/internal/app"
	"github.com/dkeye/AssistHub/internal/app/orch"
	"github.com/dkeye/AssistHub/internal/config"
	"github.com/dkeye/AssistHub/internal/logging"
	"github.com/dkeye/AssistHub/internal/metrics"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Console logger until the config tells us where else to write.
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	logFile := logging.Setup(cfg.Log)
	defer logFile.Close()

	promReg := prometheus.NewRegistry()
	promReg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	hub := &orch.Orchestrator{
		Registry: app.NewRegistry(),
		Policy:   app.SimplePolicy{},
		Metrics:  metrics.New(promReg),
		Signals:  rtc.Inspector{},
	}
	hub.SetOptions(orch.OptionsFromConfig(cfg))

	cfg.OnChange(func(next *config.Config) {
		if err := logging.SetLevel(next.Log.Level); err != nil {
			log.Warn().Err(err).Msg("invalid log level in config")
		}
		hub.SetOptions(orch.OptionsFromConfig(next))
		log.Info().Msg("config reloaded")
	}, func(err error) {
		log.Error().Err(err).Msg("config reload rejected")
	})

	go hub.RunReaper(ctx)
	go hub.RunStatusReport(ctx)

	// Connections outlive the signal long enough to flush shutdown notices.
	connCtx, stopConns := context.WithCancel(context.Background())
	defer stopConns()

	r := router.SetupRouter(connCtx, cfg, hub, promReg)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("AssistHub server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server error")
			cancel()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	hub.Shutdown()
	time.Sleep(cfg.ShutdownGrace)
	stopConns()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited gracefully")
}
