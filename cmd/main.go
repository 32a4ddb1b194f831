package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"medmanage/internal/config"
	httpapi "medmanage/internal/http"
	"medmanage/internal/logger"
	"medmanage/internal/metrics"
	"medmanage/internal/seed"
	"medmanage/internal/service"
	"medmanage/internal/storage"

	_ "medmanage/docs"
)

// @title MedManage API
// @version 1.0
// @description Pharmacy inventory and order management backend.
// @BasePath /api
func main() {
	app := &cli.App{
		Name:  "medmanage",
		Usage: "pharmacy inventory and order management backend",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:  "env-file",
				Usage: "dotenv files to load before reading the environment",
			},
		},
		Before: setup,
		Action: serve,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the HTTP API",
				Action: serve,
			},
			{
				Name:   "seed",
				Usage:  "clear the medicine catalog and insert the reference medicines",
				Action: seedCatalog,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.GetLogger().Fatal("application stopped with error", zap.Error(err))
	}
}

var cfg *config.Config

func setup(c *cli.Context) error {
	var err error
	cfg, err = config.Load(c.StringSlice("env-file")...)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := logger.Init(logger.LogConfig{
		Level:       cfg.Log.Level,
		Environment: cfg.Server.Env,
		ServiceName: cfg.ServiceName,
	}); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	return nil
}

func serve(c *cli.Context) error {
	log := logger.GetLogger()
	defer log.Sync()
	log.Info("starting "+cfg.ServiceName, cfg.LogFields()...)

	ctx := c.Context
	store, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(cfg.ServiceName, reg)

	medicinesSvc := service.NewMedicineService(store.Medicines)
	ordersSvc := service.NewOrderService(store.Medicines, store.Orders, store.Schema, service.WithMetrics(m))
	dashboardSvc := service.NewDashboardService(store.Medicines, store.Orders)

	srv := httpapi.NewServer(medicinesSvc, ordersSvc, dashboardSvc, httpapi.Options{
		AllowOrigins: cfg.Server.CORSAllowOrigins,
		Metrics:      m,
	})

	httpServer := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: srv.Engine(),
	}

	go func() {
		log.Info("HTTP server listening", zap.String("addr", "http://localhost"+httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", zap.Error(err))
	}
	if err := store.Close(shutdownCtx); err != nil {
		log.Error("storage close error", zap.Error(err))
	}
	log.Info("server stopped")
	return nil
}

func seedCatalog(c *cli.Context) error {
	log := logger.GetLogger()
	defer log.Sync()

	ctx := c.Context
	store, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	defer store.Close(context.Background())

	if _, err := seed.LoadMedicines(ctx, store.Medicines, seed.ReferenceMedicines()); err != nil {
		log.Error("error inserting medicines", zap.Error(err))
		return err
	}
	return nil
}
