// Package api exposes the expense and budget operations as a JSON HTTP API.
package api

import (
	"context"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"gitlab.com/yelinaung/expense-approvals/internal/auth"
	"gitlab.com/yelinaung/expense-approvals/internal/budget"
	"gitlab.com/yelinaung/expense-approvals/internal/directory"
	"gitlab.com/yelinaung/expense-approvals/internal/expense"
	"gitlab.com/yelinaung/expense-approvals/internal/models"
	"gitlab.com/yelinaung/expense-approvals/internal/spend"
)

// DocumentOpener reads stored expense documents.
type DocumentOpener interface {
	Open(name string) (io.ReadCloser, error)
}

// UserLister lists every user. Used to label exports, which accounting may
// produce without holding user management rights.
type UserLister interface {
	GetAll(ctx context.Context) ([]models.User, error)
}

// Deps are the services behind the API.
type Deps struct {
	Budget         *budget.Service
	Expenses       *expense.Service
	Spend          *spend.Service
	Directory      *directory.Service
	Auth           *auth.Resolver
	Documents      DocumentOpener
	Users          UserLister
	RequestTimeout time.Duration
	Now            func() time.Time
}

// Server routes HTTP requests to the services.
type Server struct {
	budget    *budget.Service
	expenses  *expense.Service
	spend     *spend.Service
	directory *directory.Service
	auth      *auth.Resolver
	documents DocumentOpener
	users     UserLister
	timeout   time.Duration
	now       func() time.Time
	mux       *http.ServeMux
}

// New creates a Server and registers its routes.
func New(d Deps) *Server {
	s := &Server{
		budget:    d.Budget,
		expenses:  d.Expenses,
		spend:     d.Spend,
		directory: d.Directory,
		auth:      d.Auth,
		documents: d.Documents,
		users:     d.Users,
		timeout:   d.RequestTimeout,
		now:       d.Now,
		mux:       http.NewServeMux(),
	}
	if s.now == nil {
		s.now = time.Now
	}
	s.routes()
	return s
}

// Handler returns the instrumented root handler.
func (s *Server) Handler() http.Handler {
	return otelhttp.NewHandler(withTimeout(s.timeout, withLogging(s.mux)), "expense-approvals")
}

func (s *Server) routes() {
	m := s.mux
	m.HandleFunc("GET /healthz", s.handleHealth)
	m.HandleFunc("POST /api/auth/login", s.handleLogin)
	m.HandleFunc("GET /api/me", s.authed(s.handleMe))

	m.HandleFunc("GET /api/departments", s.authed(s.handleListDepartments))
	m.HandleFunc("POST /api/departments", s.authed(s.handleCreateDepartment))
	m.HandleFunc("GET /api/departments/{id}", s.authed(s.handleGetDepartment))
	m.HandleFunc("PUT /api/departments/{id}", s.authed(s.handleUpdateDepartment))
	m.HandleFunc("DELETE /api/departments/{id}", s.authed(s.handleDeleteDepartment))
	m.HandleFunc("GET /api/departments/{id}/overview", s.authed(s.handleDepartmentOverview))
	m.HandleFunc("GET /api/departments/{id}/chart.png", s.authed(s.handleDepartmentChart))
	m.HandleFunc("POST /api/departments/{id}/categories", s.authed(s.handleCreateCategory))

	m.HandleFunc("GET /api/categories", s.authed(s.handleListCategories))
	m.HandleFunc("GET /api/categories/{id}", s.authed(s.handleGetCategory))
	m.HandleFunc("PUT /api/categories/{id}", s.authed(s.handleUpdateCategory))
	m.HandleFunc("DELETE /api/categories/{id}", s.authed(s.handleDeleteCategory))
	m.HandleFunc("POST /api/categories/{id}/subcategories", s.authed(s.handleCreateSubcategory))

	m.HandleFunc("GET /api/subcategories", s.authed(s.handleListSubcategories))
	m.HandleFunc("GET /api/subcategories/{id}", s.authed(s.handleGetSubcategory))
	m.HandleFunc("PUT /api/subcategories/{id}", s.authed(s.handleUpdateSubcategory))
	m.HandleFunc("DELETE /api/subcategories/{id}", s.authed(s.handleDeleteSubcategory))

	m.HandleFunc("GET /api/budget/tree", s.authed(s.handleBudgetTree))
	m.HandleFunc("GET /api/budget/overview", s.authed(s.handleBudgetOverview))

	m.HandleFunc("GET /api/expenses", s.authed(s.handleListExpenses))
	m.HandleFunc("POST /api/expenses", s.authed(s.handleSubmitExpense))
	m.HandleFunc("GET /api/expenses/export.csv", s.authed(s.handleExportExpenses))
	m.HandleFunc("POST /api/expenses/prefill", s.authed(s.handlePrefill))
	m.HandleFunc("GET /api/expenses/{id}", s.authed(s.handleGetExpense))
	m.HandleFunc("PUT /api/expenses/{id}", s.authed(s.handleEditExpense))
	m.HandleFunc("DELETE /api/expenses/{id}", s.authed(s.handleDeleteExpense))
	m.HandleFunc("POST /api/expenses/{id}/approve", s.authed(s.handleApproveExpense))
	m.HandleFunc("POST /api/expenses/{id}/reject", s.authed(s.handleRejectExpense))
	m.HandleFunc("POST /api/expenses/{id}/payment-status", s.authed(s.handlePaymentStatus))
	m.HandleFunc("GET /api/expenses/{id}/documents/{kind}", s.authed(s.handleDownloadDocument))

	m.HandleFunc("GET /api/suppliers", s.authed(s.handleListSuppliers))
	m.HandleFunc("POST /api/suppliers", s.authed(s.handleCreateSupplier))
	m.HandleFunc("GET /api/suppliers/{id}", s.authed(s.handleGetSupplier))
	m.HandleFunc("PUT /api/suppliers/{id}", s.authed(s.handleUpdateSupplier))
	m.HandleFunc("DELETE /api/suppliers/{id}", s.authed(s.handleDeleteSupplier))

	m.HandleFunc("GET /api/credit-cards", s.authed(s.handleListCreditCards))
	m.HandleFunc("POST /api/credit-cards", s.authed(s.handleCreateCreditCard))
	m.HandleFunc("GET /api/credit-cards/{id}", s.authed(s.handleGetCreditCard))
	m.HandleFunc("PUT /api/credit-cards/{id}", s.authed(s.handleUpdateCreditCard))
	m.HandleFunc("DELETE /api/credit-cards/{id}", s.authed(s.handleDeleteCreditCard))

	m.HandleFunc("GET /api/users", s.authed(s.handleListUsers))
	m.HandleFunc("POST /api/users", s.authed(s.handleCreateUser))
	m.HandleFunc("GET /api/users/{id}", s.authed(s.handleGetUser))
	m.HandleFunc("PUT /api/users/{id}", s.authed(s.handleUpdateUser))
	m.HandleFunc("DELETE /api/users/{id}", s.authed(s.handleDeleteUser))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
