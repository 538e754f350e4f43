package container

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"os"

	"github.com/NaN-tic/trytond-project-expenses/internal/application/port"
	"github.com/NaN-tic/trytond-project-expenses/internal/application/service"
	"github.com/NaN-tic/trytond-project-expenses/internal/infrastructure/persistence/repository"
	"github.com/NaN-tic/trytond-project-expenses/internal/infrastructure/persistence/sqlite"
	"github.com/NaN-tic/trytond-project-expenses/internal/infrastructure/report"
	"github.com/NaN-tic/trytond-project-expenses/migrations"
	"github.com/NaN-tic/trytond-project-expenses/pkg/database"
	"go.uber.org/zap"
)

// DatabaseBundle holds database-related components.
type DatabaseBundle struct {
	DB             *database.DB
	TransactionMgr *sqlite.DB
}

// ServiceDeps holds dependencies for creating services.
type ServiceDeps struct {
	Repos           *RepositoryBundle
	TxManager       port.TransactionManager
	SheetWriter     port.ExpenseSheetWriter
	WorkInvoicer    port.WorkInvoicer
	DefaultLanguage string
	Logger          *zap.Logger
}

// ProvideDatabase opens the database and runs pending migrations.
// Migrations come from MigrationsDir when set, else from the embedded set.
func ProvideDatabase(ctx context.Context, cfg *DatabaseConfig, logger *zap.Logger) (*DatabaseBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	db, err := database.New(database.Config{
		Path:            cfg.Path,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	}, logger)
	if err != nil {
		return nil, err
	}

	var source fs.FS = migrations.FS
	if cfg.MigrationsDir != "" {
		source = os.DirFS(cfg.MigrationsDir)
	}

	if err := database.NewMigrator(db, logger).RunMigrations(ctx, source); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &DatabaseBundle{
		DB:             db,
		TransactionMgr: sqlite.NewDB(db.DB, logger),
	}, nil
}

// ProvideRepositories creates all repositories from a database connection.
func ProvideRepositories(sqlDB *sql.DB, logger *zap.Logger) (*RepositoryBundle, error) {
	if sqlDB == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return &RepositoryBundle{
		Expense:     repository.NewExpenseRepository(sqlDB, logger),
		Work:        repository.NewWorkRepository(sqlDB, logger),
		Product:     repository.NewProductRepository(sqlDB, logger),
		Party:       repository.NewPartyRepository(sqlDB, logger),
		InvoiceLine: repository.NewInvoiceLineRepository(sqlDB, logger),
	}, nil
}

// ProvideSheetWriter creates the spreadsheet renderer used by exports.
func ProvideSheetWriter(logger *zap.Logger) port.ExpenseSheetWriter {
	return report.NewExpenseSheet(logger)
}

// ProvideServices creates all application services.
func ProvideServices(deps *ServiceDeps) (*ServiceBundle, error) {
	if deps == nil || deps.Repos == nil {
		return nil, fmt.Errorf("repositories are required")
	}
	if deps.TxManager == nil {
		return nil, fmt.Errorf("transaction manager is required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	logger := &zapLoggerAdapter{logger: deps.Logger}

	sheetWriter := deps.SheetWriter
	if sheetWriter == nil {
		sheetWriter = ProvideSheetWriter(deps.Logger)
	}
	workInvoicer := deps.WorkInvoicer
	if workInvoicer == nil {
		workInvoicer = service.NewLoggingWorkInvoicer(logger)
	}

	expenseService := service.NewExpenseService(
		deps.Repos.Expense,
		deps.Repos.Work,
		deps.Repos.Product,
		deps.Repos.Party,
		deps.Repos.InvoiceLine,
		deps.TxManager,
		deps.DefaultLanguage,
		logger,
	)

	workService := service.NewWorkService(
		deps.Repos.Work,
		deps.Repos.Expense,
		deps.Repos.Product,
		expenseService,
		workInvoicer,
		sheetWriter,
		deps.TxManager,
		logger,
	)

	return &ServiceBundle{
		Expense: expenseService,
		Work:    workService,
	}, nil
}
