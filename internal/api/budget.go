package api

import (
	"errors"
	"net/http"

	"gitlab.com/yelinaung/expense-approvals/internal/apperr"
	"gitlab.com/yelinaung/expense-approvals/internal/authz"
	"gitlab.com/yelinaung/expense-approvals/internal/budget"
	"gitlab.com/yelinaung/expense-approvals/internal/report"
)

func (s *Server) handleListDepartments(w http.ResponseWriter, r *http.Request, p *authz.Principal) {
	departments, err := s.budget.ListDepartments(r.Context(), p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, departments)
}

func (s *Server) handleCreateDepartment(w http.ResponseWriter, r *http.Request, p *authz.Principal) {
	var in budget.DepartmentInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	d, err := s.budget.CreateDepartment(r.Context(), p, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

func (s *Server) handleGetDepartment(w http.ResponseWriter, r *http.Request, p *authz.Principal) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	d, err := s.budget.GetDepartment(r.Context(), p, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleUpdateDepartment(w http.ResponseWriter, r *http.Request, p *authz.Principal) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in budget.DepartmentInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	d, err := s.budget.UpdateDepartment(r.Context(), p, id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleDeleteDepartment(w http.ResponseWriter, r *http.Request, p *authz.Principal) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.budget.DeleteDepartment(r.Context(), p, id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDepartmentOverview(w http.ResponseWriter, r *http.Request, p *authz.Principal) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	ds, err := s.spend.Department(r.Context(), p, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ds)
}

func (s *Server) handleDepartmentChart(w http.ResponseWriter, r *http.Request, p *authz.Principal) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	ds, err := s.spend.Department(r.Context(), p, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	png, err := report.SpendChart(ds)
	if errors.Is(err, report.ErrNoSpend) {
		writeError(w, r, apperr.NotFound("department %d has no approved spend", id))
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", `inline; filename="`+report.ChartFilename(id)+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request, p *authz.Principal) {
	departmentID, err := queryID(r, "department_id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	categories, err := s.budget.ListCategories(r.Context(), p, departmentID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, categories)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request, p *authz.Principal) {
	departmentID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in budget.NodeInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	c, err := s.budget.CreateCategory(r.Context(), p, departmentID, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (s *Server) handleGetCategory(w http.ResponseWriter, r *http.Request, p *authz.Principal) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	c, err := s.budget.GetCategory(r.Context(), p, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request, p *authz.Principal) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in budget.NodeInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	c, err := s.budget.UpdateCategory(r.Context(), p, id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request, p *authz.Principal) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.budget.DeleteCategory(r.Context(), p, id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListSubcategories(w http.ResponseWriter, r *http.Request, p *authz.Principal) {
	categoryID, err := queryID(r, "category_id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	subcategories, err := s.budget.ListSubcategories(r.Context(), p, categoryID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, subcategories)
}

func (s *Server) handleCreateSubcategory(w http.ResponseWriter, r *http.Request, p *authz.Principal) {
	categoryID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in budget.NodeInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	sc, err := s.budget.CreateSubcategory(r.Context(), p, categoryID, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sc)
}

func (s *Server) handleGetSubcategory(w http.ResponseWriter, r *http.Request, p *authz.Principal) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	sc, err := s.budget.GetSubcategory(r.Context(), p, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sc)
}

func (s *Server) handleUpdateSubcategory(w http.ResponseWriter, r *http.Request, p *authz.Principal) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in budget.NodeInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	sc, err := s.budget.UpdateSubcategory(r.Context(), p, id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sc)
}

func (s *Server) handleDeleteSubcategory(w http.ResponseWriter, r *http.Request, p *authz.Principal) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.budget.DeleteSubcategory(r.Context(), p, id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleBudgetTree(w http.ResponseWriter, r *http.Request, p *authz.Principal) {
	departmentID, err := queryID(r, "department_id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	tree, err := s.budget.Tree(r.Context(), p, departmentID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tree)
}

func (s *Server) handleBudgetOverview(w http.ResponseWriter, r *http.Request, p *authz.Principal) {
	departmentID, err := queryID(r, "department_id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	overview, err := s.spend.Overview(r.Context(), p, departmentID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, overview)
}
