// cmd/auth-service/main.go
package main

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/gorm"

	"marketplace/internal/pkg/bootstrap"
	"marketplace/internal/pkg/httpclient"
	"marketplace/internal/pkg/scheduler"
	"marketplace/internal/service/auth/application"
	"marketplace/internal/service/auth/infrastructure"
	"marketplace/internal/service/auth/interfaces"
)

const serviceName = "auth-service"

// main 函数是应用的"组装根" (Composition Root)
func main() {
	if err := bootstrap.Init(); err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	cfg := bootstrap.GetCurrentConfig()

	db, err := gorm.Open(gormmysql.Open(cfg.MysqlDSN()), &gorm.Config{})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to mysql")
	}
	if err := db.AutoMigrate(
		&infrastructure.CredentialModel{},
		&infrastructure.OrphanRecordModel{},
	); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate schema")
	}

	registry := prometheus.DefaultRegisterer

	credentialRepo := infrastructure.NewGormCredentialRepository(db)
	orphanRepo := infrastructure.NewGormOrphanRepository(db)
	profiles := infrastructure.NewUserServiceClient(
		httpclient.NewClient(otel.Tracer(serviceName)),
		cfg.App.UserServiceURL,
	)

	metrics := application.NewRegistrationMetrics(registry)
	registration := application.NewRegistrationService(credentialRepo, orphanRepo, profiles, metrics)
	orphanWorker := application.NewOrphanWorker(orphanRepo, profiles, cfg.App.Orphan.MaxRetry, registry)

	handler := interfaces.NewAuthHandler(registration)

	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: serviceName,
		Port:        8083,
		RegisterHandlers: func(appCtx bootstrap.AppCtx) {
			appCtx.Mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
			appCtx.Mux.Handle("/metrics", promhttp.Handler())
			handler.RegisterRoutes(appCtx.Mux)
		},
		BackgroundTasks: []func(ctx context.Context) error{
			scheduler.Task{Name: "orphan-cleanup", Interval: cfg.App.Orphan.Interval.Std(), Run: orphanWorker.Sweep}.Loop(),
		},
	})
}
