package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/savannahq/pettycash/internal"
	"github.com/savannahq/pettycash/internal/core/database"
	"github.com/savannahq/pettycash/internal/core/events"
	"github.com/savannahq/pettycash/internal/dashboard"
	dashboarddb "github.com/savannahq/pettycash/internal/dashboard/postgres"
	"github.com/savannahq/pettycash/internal/expense"
	expensedb "github.com/savannahq/pettycash/internal/expense/postgres"
	"github.com/savannahq/pettycash/internal/ledger"
	ledgerdb "github.com/savannahq/pettycash/internal/ledger/postgres"
	"github.com/savannahq/pettycash/internal/notification"
	notificationdb "github.com/savannahq/pettycash/internal/notification/postgres"
	"github.com/savannahq/pettycash/internal/pettycash"
	pettycashdb "github.com/savannahq/pettycash/internal/pettycash/postgres"
	"github.com/savannahq/pettycash/internal/reconciliation"
	reconciliationdb "github.com/savannahq/pettycash/internal/reconciliation/postgres"
	statusdb "github.com/savannahq/pettycash/internal/status/postgres"
	"github.com/savannahq/pettycash/internal/topup"
	topupdb "github.com/savannahq/pettycash/internal/topup/postgres"
	"github.com/savannahq/pettycash/internal/transport/rest"
	"github.com/savannahq/pettycash/pkg/logger"

	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config *internal.Config
	DB     *sqlx.DB
	Router *chi.Mux
	Logger *slog.Logger
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	deps.Logger.Info("Starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:         addr,
		Handler:      deps.Router,
		ReadTimeout:  deps.Config.Server.ReadTimeout,
		WriteTimeout: deps.Config.Server.WriteTimeout,
		IdleTimeout:  deps.Config.Server.IdleTimeout,
	}

	// Signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		deps.Logger.Info("Received signal, shutting down...", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			deps.Logger.Error("Server shutdown error", "error", err)
		}
		if err := deps.DB.Close(); err != nil {
			deps.Logger.Error("Database close error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			deps.Logger.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}

	deps.Logger.Info("Server stopped")
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.Init(config.Environment)
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	gormDB, err := gorm.Open(gormpostgres.New(gormpostgres.Config{Conn: db.DB}), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize gorm: %w", err)
	}

	txManager := database.NewTxManager(gormDB)
	bus := events.NewEventBus(lg)

	statusRepo := statusdb.NewStatusRepository(gormDB)
	ledgerRepo := ledgerdb.NewLedgerRepository(gormDB)
	notificationRepo := notificationdb.NewNotificationRepository(gormDB)
	accountRepo := pettycashdb.NewAccountRepository(gormDB)
	expenseRepo := expensedb.NewExpenseRepository(gormDB)
	topupRepo := topupdb.NewTopUpRepository(gormDB)
	reconciliationRepo := reconciliationdb.NewReconciliationRepository(gormDB)
	dashboardRepo := dashboarddb.NewDashboardRepository(gormDB)

	ledgerSvc := ledger.NewService(ledgerRepo, statusRepo, bus, lg)
	notificationSvc := notification.NewService(notificationRepo, lg)
	accountSvc := pettycash.NewService(accountRepo, ledgerSvc, txManager, lg)
	topupSvc := topup.NewService(topupRepo, statusRepo, accountSvc, ledgerSvc, notificationSvc, txManager, lg)
	expenseSvc := expense.NewService(expenseRepo, statusRepo, ledgerSvc, notificationSvc, txManager, lg)
	reconciliationSvc := reconciliation.NewService(reconciliationRepo, statusRepo, ledgerSvc, notificationSvc, txManager, lg)
	dashboardSvc := dashboard.NewService(dashboardRepo, accountSvc, lg)

	// The account manager and top-up workflow call each other, as do the
	// expense and reconciliation workflows. The second edge of each pair is
	// wired here.
	accountSvc.SetAutoTopUps(topupSvc)
	expenseSvc.SetReconciliations(reconciliationSvc)
	reconciliationSvc.SetExpenses(expenseSvc)

	router := chi.NewRouter()
	rest.RegisterAllRoutes(
		router,
		db.DB,
		pettycash.NewHandler(accountSvc),
		expense.NewHandler(expenseSvc),
		topup.NewHandler(topupSvc),
		reconciliation.NewHandler(reconciliationSvc),
		notification.NewHandler(notificationSvc),
		ledger.NewHandler(ledgerSvc),
		dashboard.NewHandler(dashboardSvc),
		lg,
	)

	return &Dependencies{
		Config: config,
		Logger: lg,
		DB:     db,
		Router: router,
	}, nil
}

// initDB initializes the database connection
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// verify connection; close underlying *sql.DB on failure
	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}
