package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"github.com/aitsa/viaticos-engine/internal/application/service"
	appwf "github.com/aitsa/viaticos-engine/internal/application/workflow"
	"github.com/aitsa/viaticos-engine/internal/config"
	"github.com/aitsa/viaticos-engine/internal/infrastructure/directory"
	"github.com/aitsa/viaticos-engine/internal/infrastructure/persistence/repository"
	"github.com/aitsa/viaticos-engine/internal/infrastructure/persistence/sqlite"
	httpserver "github.com/aitsa/viaticos-engine/internal/interfaces/http"
	"github.com/aitsa/viaticos-engine/pkg/database"
	"github.com/aitsa/viaticos-engine/pkg/utils"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to configuration file")
	flag.Parse()

	// Local overrides for development; absence is not an error.
	_ = gotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting viáticos workflow engine",
		zap.Int("port", cfg.Server.Port),
		zap.String("database", cfg.Database.Path))

	db, err := database.Open(database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to open database", zap.Error(err))
	}
	defer db.Close()

	migrator := database.NewMigrator(db, logger)
	if err := migrator.Run(cfg.Database.MigrationsDir); err != nil {
		logger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	hrDB, err := database.Open(database.Config{
		Path:         cfg.Directory.Path,
		ReadOnly:     true,
		MaxOpenConns: 4,
		MaxIdleConns: 2,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to open HR database", zap.Error(err))
	}
	defer hrDB.Close()

	txManager := sqlite.NewDB(db, logger)
	missionRepo := repository.NewMissionRepository(db, logger)
	historyRepo := repository.NewHistoryRepository(db, logger)
	rateRepo := repository.NewRateRepository(db, logger)
	employeeDir := directory.NewEmployeeDirectory(hrDB, logger)
	budgetCatalog := directory.NewBudgetCatalog(hrDB, logger)

	engine := appwf.NewEngine(missionRepo, historyRepo, rateRepo, budgetCatalog, txManager, logger)

	serviceLogger := utils.NewSugarAdapter(logger)
	missionService := service.NewMissionService(missionRepo, historyRepo, rateRepo, employeeDir, txManager, serviceLogger)
	reportService := service.NewReportService(missionRepo, serviceLogger)

	server := httpserver.NewServer(httpserver.ServerConfig{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, missionService, reportService, engine, serviceLogger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.Start(ctx); err != nil {
		logger.Fatal("Server error", zap.Error(err))
	}

	logger.Info("Server exited")
}
