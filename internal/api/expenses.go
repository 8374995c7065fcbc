package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"gitlab.com/yelinaung/expense-approvals/internal/apperr"
	"gitlab.com/yelinaung/expense-approvals/internal/authz"
	"gitlab.com/yelinaung/expense-approvals/internal/blob"
	"gitlab.com/yelinaung/expense-approvals/internal/expense"
	"gitlab.com/yelinaung/expense-approvals/internal/models"
	"gitlab.com/yelinaung/expense-approvals/internal/report"
)

// maxMultipartBody caps a multipart request carrying all three documents.
const maxMultipartBody = 3*blob.DefaultMaxSize + maxJSONBody

var documentKinds = []models.DocumentKind{models.DocumentQuote, models.DocumentInvoice, models.DocumentReceipt}

func isMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "multipart/form-data"
}

func parseMultipart(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxMultipartBody)
	if err := r.ParseMultipartForm(maxMultipartBody); err != nil {
		return apperr.Validation("invalid multipart form: %v", err)
	}
	return nil
}

// formUpload reads the file part named field. ok is false when the part is absent.
func formUpload(r *http.Request, field string, kind models.DocumentKind) (u expense.Upload, ok bool, err error) {
	f, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return expense.Upload{}, false, nil
	}
	if err != nil {
		return expense.Upload{}, false, apperr.Validation("invalid %s upload: %v", field, err)
	}
	defer func() { _ = f.Close() }()

	data, err := io.ReadAll(io.LimitReader(f, blob.DefaultMaxSize+1))
	if err != nil {
		return expense.Upload{}, false, fmt.Errorf("failed to read %s upload: %w", field, err)
	}
	if len(data) > blob.DefaultMaxSize {
		return expense.Upload{}, false, apperr.Validation("%s exceeds %d bytes", field, blob.DefaultMaxSize)
	}
	return expense.Upload{
		Kind:     kind,
		Filename: header.Filename,
		MIMEType: header.Header.Get("Content-Type"),
		Data:     data,
	}, true, nil
}

// decodeExpenseRequest reads v either from a JSON body or from the "expense"
// field of a multipart form whose quote, invoice and receipt parts become uploads.
func decodeExpenseRequest(w http.ResponseWriter, r *http.Request, v any) ([]expense.Upload, error) {
	if !isMultipart(r) {
		return nil, decodeJSON(w, r, v)
	}
	if err := parseMultipart(w, r); err != nil {
		return nil, err
	}
	raw := r.FormValue("expense")
	if raw == "" {
		return nil, apperr.Validation("multipart field %q is required", "expense")
	}
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return nil, apperr.Validation("invalid expense JSON: %v", err)
	}

	var uploads []expense.Upload
	for _, kind := range documentKinds {
		u, ok, err := formUpload(r, string(kind), kind)
		if err != nil {
			return nil, err
		}
		if ok {
			uploads = append(uploads, u)
		}
	}
	return uploads, nil
}

func listFilter(r *http.Request) (expense.ListFilter, error) {
	q := r.URL.Query()
	var f expense.ListFilter
	if v := q.Get("status"); v != "" {
		st := models.ExpenseStatus(v)
		f.Status = &st
	}
	if v := q.Get("payment_status"); v != "" {
		ps := models.PaymentStatus(v)
		f.PaymentStatus = &ps
	}
	var err error
	if f.OwnerID, err = queryID(r, "owner_id"); err != nil {
		return f, err
	}
	if f.DepartmentID, err = queryID(r, "department_id"); err != nil {
		return f, err
	}
	if f.SubcategoryID, err = queryID(r, "subcategory_id"); err != nil {
		return f, err
	}
	return f, nil
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request, p *authz.Principal) {
	f, err := listFilter(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	expenses, err := s.expenses.List(r.Context(), p, f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, expenses)
}

func (s *Server) handleSubmitExpense(w http.ResponseWriter, r *http.Request, p *authz.Principal) {
	var in expense.SubmitInput
	uploads, err := decodeExpenseRequest(w, r, &in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	in.Uploads = uploads
	e, err := s.expenses.Submit(r.Context(), p, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

func (s *Server) handleGetExpense(w http.ResponseWriter, r *http.Request, p *authz.Principal) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	e, err := s.expenses.Get(r.Context(), p, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleEditExpense(w http.ResponseWriter, r *http.Request, p *authz.Principal) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var f expense.Fields
	uploads, err := decodeExpenseRequest(w, r, &f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	f.Uploads = uploads
	e, err := s.expenses.Edit(r.Context(), p, id, f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request, p *authz.Principal) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.expenses.Delete(r.Context(), p, id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleApproveExpense(w http.ResponseWriter, r *http.Request, p *authz.Principal) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	e, err := s.expenses.Approve(r.Context(), p, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

func (s *Server) handleRejectExpense(w http.ResponseWriter, r *http.Request, p *authz.Principal) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req rejectRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	e, err := s.expenses.Reject(r.Context(), p, id, req.Reason)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

type paymentStatusRequest struct {
	Status models.PaymentStatus `json:"status"`
}

func (s *Server) handlePaymentStatus(w http.ResponseWriter, r *http.Request, p *authz.Principal) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req paymentStatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	e, err := s.expenses.SetPaymentStatus(r.Context(), p, id, req.Status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

type prefillResponse struct {
	Found bool                 `json:"found"`
	Data  *models.DocumentData `json:"data,omitempty"`
}

func (s *Server) handlePrefill(w http.ResponseWriter, r *http.Request, p *authz.Principal) {
	if !isMultipart(r) {
		writeError(w, r, apperr.Validation("prefill expects a multipart form"))
		return
	}
	if err := parseMultipart(w, r); err != nil {
		writeError(w, r, err)
		return
	}
	kind := models.DocumentKind(r.FormValue("kind"))
	u, ok, err := formUpload(r, "document", kind)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !ok {
		writeError(w, r, apperr.Validation("multipart file %q is required", "document"))
		return
	}
	data, err := s.expenses.Prefill(r.Context(), p, u)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, prefillResponse{Found: data != nil, Data: data})
}

func (s *Server) handleDownloadDocument(w http.ResponseWriter, r *http.Request, p *authz.Principal) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	kind := models.DocumentKind(r.PathValue("kind"))
	if !kind.Valid() {
		writeError(w, r, apperr.Validation("unknown document kind %q", kind))
		return
	}
	e, err := s.expenses.Get(r.Context(), p, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	name := e.Attachment(kind)
	if name == "" || s.documents == nil {
		writeError(w, r, apperr.NotFound("expense %d has no %s", id, kind))
		return
	}

	rc, err := s.documents.Open(name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer func() { _ = rc.Close() }()

	contentType := mime.TypeByExtension(strings.ToLower(filepath.Ext(name)))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, rc)
}

func (s *Server) handleExportExpenses(w http.ResponseWriter, r *http.Request, p *authz.Principal) {
	f, err := listFilter(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	expenses, err := s.expenses.Export(r.Context(), p, f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	labels, err := s.exportLabels(r, p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	data, err := report.ExpensesCSV(expenses, labels)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+report.ExportFilename(s.now())+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// exportLabels collects display names for every id an export row can carry.
func (s *Server) exportLabels(r *http.Request, p *authz.Principal) (report.Labels, error) {
	ctx := r.Context()
	labels := report.Labels{
		Users:         map[int64]string{},
		Departments:   map[int64]string{},
		Categories:    map[int64]string{},
		Subcategories: map[int64]string{},
		Suppliers:     map[int64]string{},
	}

	tree, err := s.budget.Tree(ctx, p, nil)
	if err != nil {
		return labels, err
	}
	for _, d := range tree {
		labels.Departments[d.Department.ID] = d.Department.Name
		for _, c := range d.Categories {
			labels.Categories[c.Category.ID] = c.Category.Name
			for _, sc := range c.Subcategories {
				labels.Subcategories[sc.Subcategory.ID] = sc.Subcategory.Name
			}
		}
	}

	suppliers, err := s.directory.ListSuppliers(ctx, p, "")
	if err != nil {
		return labels, err
	}
	for _, sup := range suppliers {
		labels.Suppliers[sup.ID] = sup.Name
	}

	if s.users != nil {
		users, err := s.users.GetAll(ctx)
		if err != nil {
			return labels, err
		}
		for _, u := range users {
			name := u.Name
			if name == "" {
				name = u.Username
			}
			labels.Users[u.ID] = name
		}
	}
	return labels, nil
}
