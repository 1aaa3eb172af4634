package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/api-sage/transfer-ledger/src/internal/adapter/messaging"
	"github.com/api-sage/transfer-ledger/src/internal/adapter/platform"
	"github.com/api-sage/transfer-ledger/src/internal/adapter/repository/postgres"
	"github.com/api-sage/transfer-ledger/src/internal/config"
	"github.com/api-sage/transfer-ledger/src/internal/usecase/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := postgres.RunMigrations(ctx, cfg.DatabaseDSN, cfg.MigrationsDir); err != nil {
		cancel()
		log.Fatalf("run migrations: %v", err)
	}

	db, err := postgres.Open(ctx, cfg.DatabaseDSN)
	cancel()
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	uow := postgres.NewUnitOfWork(db)
	accountRepo := postgres.NewAccountRepository(db)
	transferRepo := postgres.NewTransferRepository(db)
	holderRepo := postgres.NewAccountHolderRepository(db)

	transferService := services.NewTransferService(
		uow,
		accountRepo,
		transferRepo,
		holderRepo,
		holderRepo,
		platform.SystemClock{},
		services.NewFeeService(cfg.HomeCurrency, cfg.BaseFee, cfg.PercentageFee, cfg.ForeignSurcharge, cfg.MaxFee),
		services.NewArrivalService(cfg.HomeCurrency, cfg.DomesticDays, cfg.InternationalDays),
		services.NewTimestampReferenceGenerator(cfg.ReferencePrefix),
		services.NewLimitGuard(cfg.DailyLimit),
		cfg.MinAmount,
		cfg.MaxAmount,
		cfg.ReferenceMaxAttempts,
	)

	if cfg.AMQPURL != "" {
		consumer, err := messaging.NewSettlementConsumer(cfg.AMQPURL, cfg.SettlementQueue, transferService)
		if err != nil {
			log.Fatalf("connect settlement queue: %v", err)
		}
		defer consumer.Close()

		if err := consumer.Start(); err != nil {
			log.Fatalf("start settlement consumer: %v", err)
		}
		log.Printf("settlement consumer listening on %s", cfg.SettlementQueue)
	} else {
		log.Println("AMQP_URL not set; settlement consumer disabled")
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Println("shutting down")
}
