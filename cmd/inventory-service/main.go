// cmd/inventory-service/main.go
package main

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/gorm"

	"marketplace/internal/pkg/bootstrap"
	"marketplace/internal/pkg/lock"
	"marketplace/internal/pkg/mq"
	"marketplace/internal/pkg/scheduler"
	"marketplace/internal/service/inventory/application"
	"marketplace/internal/service/inventory/infrastructure"
	"marketplace/internal/service/inventory/infrastructure/alerthub"
	"marketplace/internal/service/inventory/infrastructure/rule"
	"marketplace/internal/service/inventory/interfaces"
	outboxapp "marketplace/internal/service/outbox/application"
	outboxinfra "marketplace/internal/service/outbox/infrastructure"
)

const (
	serviceName         = "inventory-service"
	outboxRedeliverSize = 100
)

// main 函数是应用的"组装根" (Composition Root)
// 它的核心职责是：创建并组装所有依赖项，然后启动应用。
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
		&infrastructure.StockItemModel{},
		&infrastructure.ReservationModel{},
		&infrastructure.ReservationLineModel{},
		&infrastructure.StockMovementModel{},
		&outboxinfra.DomainEventModel{},
	); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate schema")
	}

	// SKU 租约：配置了 zookeeper 就用分布式锁，否则退化为进程内锁
	var locker lock.Locker
	if cfg.Infra.Zookeeper.Enabled {
		zkLocker, err := lock.NewZkLocker(cfg.Infra.Zookeeper.Servers, 5*time.Second)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to zookeeper")
		}
		defer zkLocker.Close()
		locker = zkLocker
	} else {
		locker = lock.NewKeyMutex()
	}

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.Infra.Redis.Addr})
	cache := infrastructure.NewRedisAvailabilityCache(redisClient)

	kafkaWriter := mq.NewKafkaWriter(cfg.Infra.Kafka.Brokers, cfg.Infra.Kafka.EventTopic)
	defer kafkaWriter.Close()

	registry := prometheus.DefaultRegisterer

	// 出站事件流：先落库再投递，投递失败由补投任务兜底
	eventRepo := outboxinfra.NewGormEventRepository(db)
	transport := outboxinfra.NewKafkaTransport(kafkaWriter)
	sequencer := outboxapp.NewSequencer(eventRepo, transport)
	redelivery := outboxapp.NewRedelivery(eventRepo, transport, outboxRedeliverSize, registry)

	stockRepo := infrastructure.NewGormStockRepository(db)
	reservationRepo := infrastructure.NewGormReservationRepository(db)
	movementRepo := infrastructure.NewGormMovementRepository(db)

	stockService := application.NewStockService(stockRepo, movementRepo, locker, cache)
	reservationService := application.NewReservationService(reservationRepo, stockService, sequencer, cfg.App.Reservation.TTL.Std())
	reservationAPI := application.NewInstrumentedReservationService(reservationService, otel.Tracer(serviceName), registry)

	reaper := application.NewReaper(reservationRepo, reservationAPI, cfg.App.Reservation.ReaperBatchSize, registry)

	ruleEngine, err := rule.NewCelEngine()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build rule engine")
	}
	hub := alerthub.NewHub()
	lowStock := application.NewLowStockMonitor(stockRepo, ruleEngine, hub, cfg.App.LowStock.Rule)

	handler := interfaces.NewInventoryHandler(reservationAPI, stockService)

	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: serviceName,
		Port:        8082,
		RegisterHandlers: func(appCtx bootstrap.AppCtx) {
			appCtx.Mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
			appCtx.Mux.Handle("/metrics", promhttp.Handler())
			appCtx.Mux.HandleFunc("/ws/alerts", hub.ServeWS)
			handler.RegisterRoutes(appCtx.Mux)
		},
		BackgroundTasks: []func(ctx context.Context) error{
			hub.Run,
			scheduler.Task{Name: "reservation-reaper", Interval: cfg.App.Reservation.ReaperInterval.Std(), Run: reaper.Sweep}.Loop(),
			scheduler.Task{Name: "low-stock-monitor", Interval: cfg.App.LowStock.Interval.Std(), Run: lowStock.Check}.Loop(),
			scheduler.Task{Name: "outbox-redelivery", Interval: cfg.App.Outbox.RedeliveryInterval.Std(), Run: redelivery.Sweep}.Loop(),
		},
	})
}
