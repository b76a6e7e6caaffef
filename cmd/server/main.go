package main

import (
	"database/sql"
	"fmt"
	"os"

	"github.com/deepakgees/AssetManagement-sub001/internal/broker"
	"github.com/deepakgees/AssetManagement-sub001/internal/config"
	"github.com/deepakgees/AssetManagement-sub001/internal/http"
	"github.com/deepakgees/AssetManagement-sub001/internal/logger"
	"github.com/deepakgees/AssetManagement-sub001/internal/repository"
	"github.com/deepakgees/AssetManagement-sub001/internal/repository/memory"
	"github.com/deepakgees/AssetManagement-sub001/internal/repository/postgres"
	"github.com/deepakgees/AssetManagement-sub001/internal/service"

	_ "github.com/lib/pq"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.Environment)
	brokerSvc := broker.NewMockService(cfg.SnapshotTTL)

	var repoImpl repository.PortfolioRepository
	if cfg.UseInMemoryStore {
		log.Warn("DATABASE_URL not set, using in-memory store. Data will reset on restart.")
		repoImpl = memory.New()
	} else {
		if err := postgres.RunMigrations(cfg.DBURL, cfg.MigrationsPath); err != nil {
			log.WithError(err).Fatal("migrations failed")
		}
		db, err := sql.Open("postgres", cfg.DBURL)
		if err != nil {
			log.WithError(err).Fatal("failed to connect to postgres")
		}
		if err := db.Ping(); err != nil {
			log.WithError(err).Fatal("postgres ping failed")
		}
		repoImpl = postgres.New(db)
		defer db.Close()
		log.Info("connected to postgres")
	}

	portfolioSvc := service.NewPortfolioService(repoImpl, brokerSvc, log)
	router := http.Router(portfolioSvc, log)

	addr := fmt.Sprintf(":%s", cfg.Port)
	log.Infof("portfolio service listening on %s", addr)
	if err := router.Run(addr); err != nil {
		log.WithError(err).Error("server stopped")
		os.Exit(1)
	}
}
