package commands

import (
	"context"
	"fmt"
	"time"

	"gitlab.com/yelinaung/expense-approvals/internal/api"
	"gitlab.com/yelinaung/expense-approvals/internal/auth"
	"gitlab.com/yelinaung/expense-approvals/internal/blob"
	"gitlab.com/yelinaung/expense-approvals/internal/budget"
	"gitlab.com/yelinaung/expense-approvals/internal/config"
	"gitlab.com/yelinaung/expense-approvals/internal/database"
	"gitlab.com/yelinaung/expense-approvals/internal/directory"
	"gitlab.com/yelinaung/expense-approvals/internal/expense"
	"gitlab.com/yelinaung/expense-approvals/internal/gemini"
	"gitlab.com/yelinaung/expense-approvals/internal/logger"
	"gitlab.com/yelinaung/expense-approvals/internal/repository"
	"gitlab.com/yelinaung/expense-approvals/internal/repository/memstore"
	"gitlab.com/yelinaung/expense-approvals/internal/spend"
)

// stores is one storage backend's repositories.
type stores struct {
	departments   budget.DepartmentStore
	categories    budget.CategoryStore
	subcategories budget.SubcategoryStore
	expenses      expense.Store
	users         directory.UserStore
	suppliers     directory.SupplierStore
	cards         directory.CreditCardStore
}

func postgresStores(db database.PGXDB) stores {
	return stores{
		departments:   repository.NewDepartmentRepository(db),
		categories:    repository.NewCategoryRepository(db),
		subcategories: repository.NewSubcategoryRepository(db),
		expenses:      repository.NewExpenseRepository(db),
		users:         repository.NewUserRepository(db),
		suppliers:     repository.NewSupplierRepository(db),
		cards:         repository.NewCreditCardRepository(db),
	}
}

func memoryStores(db *memstore.DB) stores {
	return stores{
		departments:   db.Departments(),
		categories:    db.Categories(),
		subcategories: db.Subcategories(),
		expenses:      db.Expenses(),
		users:         db.Users(),
		suppliers:     db.Suppliers(),
		cards:         db.CreditCards(),
	}
}

// openStores connects the configured backend. close releases it.
func openStores(ctx context.Context, cfg *config.Config) (s stores, closeFn func(), err error) {
	if cfg.Storage == config.StorageMemory {
		logger.Log.Warn().Msg("Using in-memory storage, data is lost on restart")
		return memoryStores(memstore.New()), func() {}, nil
	}

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return stores{}, nil, err
	}
	if err := database.RunMigrations(ctx, pool); err != nil {
		pool.Close()
		return stores{}, nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	logger.Log.Info().Msg("Database initialized successfully")
	return postgresStores(pool), pool.Close, nil
}

// app is the wired service graph behind the HTTP server.
type app struct {
	directory *directory.Service
	server    *api.Server
}

func newApp(ctx context.Context, cfg *config.Config, s stores) (*app, error) {
	files, err := blob.NewFileStore(cfg.UploadDir, blob.DefaultMaxSize)
	if err != nil {
		return nil, err
	}

	opts := []expense.Option{expense.WithBlobStore(files)}
	if cfg.ExtractionEnabled() {
		client, err := gemini.NewClient(ctx, cfg.GeminiAPIKey, gemini.WithModel(cfg.GeminiModel))
		if err != nil {
			return nil, err
		}
		opts = append(opts, expense.WithExtractor(client))
		logger.Log.Info().Str("model", client.Model()).Msg("Document extraction enabled")
	}

	budgetSvc := budget.NewService(s.departments, s.categories, s.subcategories)
	expenseSvc := expense.NewService(s.expenses, budgetSvc, s.suppliers, s.cards, opts...)
	directorySvc := directory.NewService(s.suppliers, s.cards, s.users)
	tokens := auth.NewTokenService(cfg.JWTSecret, cfg.JWTIssuer, cfg.TokenTTL)

	server := api.New(api.Deps{
		Budget:         budgetSvc,
		Expenses:       expenseSvc,
		Spend:          spend.NewService(budgetSvc, s.expenses),
		Directory:      directorySvc,
		Auth:           auth.NewResolver(tokens, s.users),
		Documents:      files,
		Users:          s.users,
		RequestTimeout: cfg.RequestTimeout,
		Now:            time.Now,
	})
	return &app{directory: directorySvc, server: server}, nil
}

// bootstrap creates the configured administrator when missing.
func (a *app) bootstrap(ctx context.Context, admin config.BootstrapAdmin) error {
	if !admin.Enabled() {
		return nil
	}
	created, err := a.directory.EnsureAdmin(ctx, admin.Username, admin.Email, admin.Password)
	if err != nil {
		return fmt.Errorf("failed to bootstrap administrator: %w", err)
	}
	if !created {
		logger.Log.Debug().Msg("Bootstrap administrator already exists")
	}
	return nil
}
