package api

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gitlab.com/yelinaung/expense-approvals/internal/auth"
	"gitlab.com/yelinaung/expense-approvals/internal/blob"
	"gitlab.com/yelinaung/expense-approvals/internal/budget"
	"gitlab.com/yelinaung/expense-approvals/internal/directory"
	"gitlab.com/yelinaung/expense-approvals/internal/expense"
	"gitlab.com/yelinaung/expense-approvals/internal/models"
	"gitlab.com/yelinaung/expense-approvals/internal/repository/memstore"
	"gitlab.com/yelinaung/expense-approvals/internal/report"
	"gitlab.com/yelinaung/expense-approvals/internal/spend"
)

const (
	testSecret   = "api-test-secret-with-enough-entropy-0123"
	testPassword = "correct horse battery"
)

var testNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

type testServer struct {
	t       *testing.T
	handler http.Handler
	db      *memstore.DB

	engineering *models.Department
	licenses    *models.Subcategory

	employee   string
	manager    string
	accounting string
	admin      string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ctx := context.Background()

	db := memstore.New()
	files, err := blob.NewFileStore(t.TempDir(), 0)
	require.NoError(t, err)

	budgetSvc := budget.NewService(db.Departments(), db.Categories(), db.Subcategories())
	expenseSvc := expense.NewService(db.Expenses(), budgetSvc, db.Suppliers(), db.CreditCards(),
		expense.WithBlobStore(files),
		expense.WithClock(func() time.Time { return testNow }),
	)
	tokens := auth.NewTokenService(testSecret, "expense-approvals-test", time.Hour)

	srv := New(Deps{
		Budget:         budgetSvc,
		Expenses:       expenseSvc,
		Spend:          spend.NewService(budgetSvc, db.Expenses()),
		Directory:      directory.NewService(db.Suppliers(), db.CreditCards(), db.Users()),
		Auth:           auth.NewResolver(tokens, db.Users()),
		Documents:      files,
		Users:          db.Users(),
		RequestTimeout: 5 * time.Second,
		Now:            func() time.Time { return testNow },
	})

	ts := &testServer{t: t, handler: srv.Handler(), db: db}

	ts.engineering = &models.Department{Name: "Engineering", Budget: decimal.NewFromInt(10000), Currency: "ILS"}
	require.NoError(t, db.Departments().Create(ctx, ts.engineering))
	software := &models.Category{DepartmentID: ts.engineering.ID, Name: "Software", Budget: decimal.NewFromInt(4000)}
	require.NoError(t, db.Categories().Create(ctx, software))
	ts.licenses = &models.Subcategory{CategoryID: software.ID, Name: "Licenses", Budget: decimal.NewFromInt(2000)}
	require.NoError(t, db.Subcategories().Create(ctx, ts.licenses))

	hash, err := auth.HashPassword(testPassword)
	require.NoError(t, err)
	user := func(name string, mutate func(*models.User)) string {
		u := &models.User{
			Username:     name,
			Email:        name + "@example.com",
			Name:         strings.ToUpper(name[:1]) + name[1:],
			PasswordHash: hash,
			Active:       true,
		}
		if mutate != nil {
			mutate(u)
		}
		require.NoError(t, db.Users().Create(ctx, u))
		token, _, err := tokens.Issue(u.ID)
		require.NoError(t, err)
		return token
	}
	ts.employee = user("employee", nil)
	ts.manager = user("manager", func(u *models.User) {
		u.IsManager = true
		u.ManagedDepartmentIDs = []int64{ts.engineering.ID}
	})
	ts.accounting = user("accounting", func(u *models.User) { u.IsAccounting = true })
	ts.admin = user("admin", func(u *models.User) { u.IsAdmin = true })
	return ts
}

func (ts *testServer) do(method, path, token string, body any) *httptest.ResponseRecorder {
	ts.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(ts.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return ts.send(req, token)
}

func (ts *testServer) send(req *http.Request, token string) *httptest.ResponseRecorder {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func requireErrorKind(t *testing.T, rec *httptest.ResponseRecorder, status int, kind string) {
	t.Helper()
	require.Equal(t, status, rec.Code, rec.Body.String())
	body := decodeBody[errorBody](t, rec)
	require.Equal(t, kind, body.Error.Kind)
}

func (ts *testServer) submit(token, amount string) models.Expense {
	ts.t.Helper()
	rec := ts.do(http.MethodPost, "/api/expenses", token, map[string]any{
		"subcategory_id": ts.licenses.ID,
		"amount":         amount,
		"reason":         "annual renewal",
	})
	require.Equal(ts.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decodeBody[models.Expense](ts.t, rec)
}

func TestHealth(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	rec := ts.do(http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestAuthentication(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	t.Run("missing token", func(t *testing.T) {
		rec := ts.do(http.MethodGet, "/api/me", "", nil)
		requireErrorKind(t, rec, http.StatusUnauthorized, "unauthenticated")
		require.Contains(t, rec.Header().Get("WWW-Authenticate"), "Bearer")
	})

	t.Run("garbage token", func(t *testing.T) {
		rec := ts.do(http.MethodGet, "/api/me", "not-a-jwt", nil)
		requireErrorKind(t, rec, http.StatusUnauthorized, "unauthenticated")
	})

	t.Run("login and me", func(t *testing.T) {
		rec := ts.do(http.MethodPost, "/api/auth/login", "", loginRequest{Username: "Manager", Password: testPassword})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		login := decodeBody[loginResponse](t, rec)
		require.NotEmpty(t, login.Token)
		require.Equal(t, "manager", login.User.Username)
		require.NotContains(t, rec.Body.String(), "password")

		rec = ts.do(http.MethodGet, "/api/me", login.Token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		me := decodeBody[models.User](t, rec)
		require.Equal(t, login.User.ID, me.ID)
		require.True(t, me.IsManager)
	})

	t.Run("wrong password", func(t *testing.T) {
		rec := ts.do(http.MethodPost, "/api/auth/login", "", loginRequest{Username: "manager", Password: "wrong password!"})
		requireErrorKind(t, rec, http.StatusUnauthorized, "unauthenticated")
	})

	t.Run("unknown field", func(t *testing.T) {
		rec := ts.do(http.MethodPost, "/api/auth/login", "", map[string]string{"user": "manager"})
		requireErrorKind(t, rec, http.StatusBadRequest, "validation")
	})
}

func TestExpenseLifecycle(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	e := ts.submit(ts.employee, "120.50")
	require.Equal(t, models.ExpenseStatusPending, e.Status)
	require.Equal(t, ts.engineering.ID, e.DepartmentID)
	require.True(t, decimal.RequireFromString("120.50").Equal(e.Amount))
	path := fmt.Sprintf("/api/expenses/%d", e.ID)

	rec := ts.do(http.MethodPost, path+"/approve", ts.employee, nil)
	requireErrorKind(t, rec, http.StatusForbidden, "forbidden")

	rec = ts.do(http.MethodPost, path+"/payment-status", ts.accounting, paymentStatusRequest{Status: models.PaymentStatusPaid})
	requireErrorKind(t, rec, http.StatusConflict, "invalid_state")

	rec = ts.do(http.MethodPost, path+"/approve", ts.manager, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	approved := decodeBody[models.Expense](t, rec)
	require.Equal(t, models.ExpenseStatusApproved, approved.Status)
	require.NotNil(t, approved.ReviewedAt)

	rec = ts.do(http.MethodPost, path+"/reject", ts.manager, rejectRequest{Reason: "too late"})
	requireErrorKind(t, rec, http.StatusConflict, "invalid_state")

	rec = ts.do(http.MethodPut, path, ts.employee, map[string]any{"amount": "99", "reason": "changed"})
	requireErrorKind(t, rec, http.StatusConflict, "invalid_state")

	rec = ts.do(http.MethodPost, path+"/payment-status", ts.accounting, paymentStatusRequest{Status: models.PaymentStatusPendingAttention})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = ts.do(http.MethodPost, path+"/payment-status", ts.accounting, paymentStatusRequest{Status: models.PaymentStatusPaid})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, models.PaymentStatusPaid, decodeBody[models.Expense](t, rec).PaymentStatus)

	rec = ts.do(http.MethodGet, fmt.Sprintf("/api/departments/%d/overview", ts.engineering.ID), ts.employee, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	overview := decodeBody[spend.DepartmentSpend](t, rec)
	require.True(t, decimal.RequireFromString("120.50").Equal(overview.Spent))

	rec = ts.do(http.MethodGet, fmt.Sprintf("/api/departments/%d/chart.png", ts.engineering.ID), ts.employee, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	require.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")))
}

func TestExpenseRejectAndDelete(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	rejected := ts.submit(ts.employee, "50")
	rec := ts.do(http.MethodPost, fmt.Sprintf("/api/expenses/%d/reject", rejected.ID), ts.manager, rejectRequest{Reason: "  "})
	requireErrorKind(t, rec, http.StatusBadRequest, "validation")
	rec = ts.do(http.MethodPost, fmt.Sprintf("/api/expenses/%d/reject", rejected.ID), ts.manager, rejectRequest{Reason: "duplicate"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, "duplicate", decodeBody[models.Expense](t, rec).RejectionReason)

	pending := ts.submit(ts.employee, "75")
	path := fmt.Sprintf("/api/expenses/%d", pending.ID)

	rec = ts.do(http.MethodPut, path, ts.employee, map[string]any{"amount": "80", "reason": "price went up"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.True(t, decimal.NewFromInt(80).Equal(decodeBody[models.Expense](t, rec).Amount))

	rec = ts.do(http.MethodDelete, path, ts.manager, nil)
	requireErrorKind(t, rec, http.StatusForbidden, "forbidden")
	rec = ts.do(http.MethodDelete, path, ts.employee, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = ts.do(http.MethodGet, path, ts.employee, nil)
	requireErrorKind(t, rec, http.StatusNotFound, "not_found")
}

func TestListExpenses(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	first := ts.submit(ts.employee, "10")
	ts.submit(ts.employee, "20")
	rec := ts.do(http.MethodPost, fmt.Sprintf("/api/expenses/%d/approve", first.ID), ts.manager, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	tests := []struct {
		name  string
		token string
		query string
		want  int
		code  int
	}{
		{name: "owner sees own", token: ts.employee, query: "", want: 2, code: http.StatusOK},
		{name: "status filter", token: ts.manager, query: "?status=approved", want: 1, code: http.StatusOK},
		{name: "accounting sees all", token: ts.accounting, query: "?payment_status=pending_payment", want: 2, code: http.StatusOK},
		{name: "admin sees all", token: ts.admin, query: "?department_id=" + fmt.Sprint(ts.engineering.ID), want: 2, code: http.StatusOK},
		{name: "bad status", token: ts.admin, query: "?status=draft", code: http.StatusBadRequest},
		{name: "bad id", token: ts.admin, query: "?owner_id=abc", code: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(http.MethodGet, "/api/expenses"+tt.query, tt.token, nil)
			require.Equal(t, tt.code, rec.Code, rec.Body.String())
			if tt.code == http.StatusOK {
				require.Len(t, decodeBody[[]models.Expense](t, rec), tt.want)
			}
		})
	}
}

func TestSubmitMultipartAndDownload(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("expense", fmt.Sprintf(`{"subcategory_id":%d,"amount":"300","reason":"laptop dock"}`, ts.licenses.ID)))
	part, err := mw.CreateFormFile("invoice", "invoice.pdf")
	require.NoError(t, err)
	_, err = part.Write([]byte("%PDF-1.4 fake invoice"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/expenses", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := ts.send(req, ts.employee)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	e := decodeBody[models.Expense](t, rec)
	require.NotEmpty(t, e.InvoiceFile)
	require.Empty(t, e.QuoteFile)

	rec = ts.do(http.MethodGet, fmt.Sprintf("/api/expenses/%d/documents/invoice", e.ID), ts.manager, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	require.Equal(t, "%PDF-1.4 fake invoice", rec.Body.String())

	rec = ts.do(http.MethodGet, fmt.Sprintf("/api/expenses/%d/documents/quote", e.ID), ts.manager, nil)
	requireErrorKind(t, rec, http.StatusNotFound, "not_found")

	rec = ts.do(http.MethodGet, fmt.Sprintf("/api/expenses/%d/documents/photo", e.ID), ts.manager, nil)
	requireErrorKind(t, rec, http.StatusBadRequest, "validation")
}

func TestPrefillWithoutExtractor(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("kind", "receipt"))
	part, err := mw.CreateFormFile("document", "receipt.png")
	require.NoError(t, err)
	_, err = part.Write([]byte("\x89PNG fake"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/expenses/prefill", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := ts.send(req, ts.employee)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.JSONEq(t, `{"found":false}`, rec.Body.String())

	rec = ts.do(http.MethodPost, "/api/expenses/prefill", ts.employee, map[string]string{"kind": "receipt"})
	requireErrorKind(t, rec, http.StatusBadRequest, "validation")
}

func TestExportCSV(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	ts.submit(ts.employee, "42")

	rec := ts.do(http.MethodGet, "/api/expenses/export.csv", ts.employee, nil)
	requireErrorKind(t, rec, http.StatusForbidden, "forbidden")

	rec = ts.do(http.MethodGet, "/api/expenses/export.csv?status=pending", ts.accounting, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Contains(t, rec.Header().Get("Content-Disposition"), report.ExportFilename(testNow))

	rows, err := csv.NewReader(rec.Body).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, report.CSVHeader, rows[0])
	require.Contains(t, rows[1], "Employee")
	require.Contains(t, rows[1], "Engineering")
	require.Contains(t, rows[1], "Licenses")
}

func TestBudgetHierarchy(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	rec := ts.do(http.MethodPost, "/api/departments", ts.employee, budget.DepartmentInput{Name: "Ops", Budget: decimal.NewFromInt(100)})
	requireErrorKind(t, rec, http.StatusForbidden, "forbidden")

	rec = ts.do(http.MethodPost, "/api/departments", ts.admin, budget.DepartmentInput{Name: "Ops", Budget: decimal.NewFromInt(1000), Currency: "usd"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	ops := decodeBody[models.Department](t, rec)
	require.Equal(t, "USD", ops.Currency)

	rec = ts.do(http.MethodPost, fmt.Sprintf("/api/departments/%d/categories", ops.ID), ts.admin, budget.NodeInput{Name: "Cloud", Budget: decimal.NewFromInt(1500)})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	cloud := decodeBody[models.Category](t, rec)

	rec = ts.do(http.MethodPost, fmt.Sprintf("/api/categories/%d/subcategories", cloud.ID), ts.admin, budget.NodeInput{Name: "Compute", Budget: decimal.NewFromInt(200)})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = ts.do(http.MethodGet, fmt.Sprintf("/api/budget/tree?department_id=%d", ops.ID), ts.employee, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	tree := decodeBody[[]models.DepartmentNode](t, rec)
	require.Len(t, tree, 1)
	require.Len(t, tree[0].Categories, 1)
	require.True(t, tree[0].Categories[0].ExceedsParent)
	require.Len(t, tree[0].Categories[0].Subcategories, 1)

	rec = ts.do(http.MethodDelete, fmt.Sprintf("/api/departments/%d", ops.ID), ts.admin, nil)
	requireErrorKind(t, rec, http.StatusConflict, "conflict")

	rec = ts.do(http.MethodDelete, fmt.Sprintf("/api/subcategories/%d", ts.licenses.ID), ts.admin, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = ts.do(http.MethodGet, "/api/departments/0", ts.admin, nil)
	requireErrorKind(t, rec, http.StatusBadRequest, "validation")
	rec = ts.do(http.MethodGet, "/api/departments/9999", ts.admin, nil)
	requireErrorKind(t, rec, http.StatusNotFound, "not_found")
}

func TestDirectory(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	rec := ts.do(http.MethodPost, "/api/suppliers", ts.admin, directory.SupplierInput{Name: "Acme"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	acme := decodeBody[models.Supplier](t, rec)
	require.Equal(t, models.SupplierStatusActive, acme.Status)

	rec = ts.do(http.MethodGet, "/api/suppliers?status=active", ts.employee, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, decodeBody[[]models.Supplier](t, rec), 1)

	rec = ts.do(http.MethodDelete, fmt.Sprintf("/api/suppliers/%d", acme.ID), ts.admin, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.JSONEq(t, `{"deactivated":false}`, rec.Body.String())

	rec = ts.do(http.MethodPost, "/api/credit-cards", ts.admin, directory.CreditCardInput{LastFour: "12a4"})
	requireErrorKind(t, rec, http.StatusBadRequest, "validation")
	rec = ts.do(http.MethodPost, "/api/credit-cards", ts.accounting, directory.CreditCardInput{LastFour: "0042", Description: "Travel card"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = ts.do(http.MethodGet, "/api/users", ts.manager, nil)
	requireErrorKind(t, rec, http.StatusForbidden, "forbidden")
	rec = ts.do(http.MethodGet, "/api/users", ts.admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, decodeBody[[]models.User](t, rec), 4)

	rec = ts.do(http.MethodPost, "/api/users", ts.admin, directory.UserInput{
		Username: "newhire",
		Email:    "newhire@example.com",
		Password: testPassword,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = ts.do(http.MethodPost, "/api/auth/login", "", loginRequest{Username: "newhire", Password: testPassword})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = ts.do(http.MethodPost, "/api/users", ts.admin, directory.UserInput{
		Username: "NEWHIRE",
		Email:    "other@example.com",
		Password: testPassword,
	})
	requireErrorKind(t, rec, http.StatusConflict, "conflict")
}
