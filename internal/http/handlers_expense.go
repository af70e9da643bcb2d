package http

import (
	"net/http"

	"budgetbee/internal/auth"
	"budgetbee/internal/log"
)

const (
	defaultExpenseLimit = 50
	maxExpenseLimit     = 500
)

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	who, _ := auth.IdentityFrom(r.Context())
	limit := ParseLimit(r.URL.Query(), defaultExpenseLimit, maxExpenseLimit)

	items, err := s.deps.Expenses.ListExpenses(r.Context(), who.UserID, limit)
	if err != nil {
		writeError(w, r, err, msgInternal)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"expenses": items})
}

func (s *Server) handleGetExpense(w http.ResponseWriter, r *http.Request) {
	who, _ := auth.IdentityFrom(r.Context())
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err, msgInternal)
		return
	}
	e, err := s.deps.Expenses.GetExpense(r.Context(), who.UserID, id)
	if err != nil {
		writeError(w, r, err, msgInternal)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"expense": e})
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	who, _ := auth.IdentityFrom(r.Context())

	var in expenseInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err, msgInternal)
		return
	}
	exp, err := in.toExpense(s.now())
	if err != nil {
		writeError(w, r, err, msgInternal)
		return
	}

	created, err := s.deps.Expenses.CreateExpense(r.Context(), who, exp)
	if err != nil {
		writeError(w, r, err, msgInternal)
		return
	}
	s.invalidateOverview(who.UserID)

	log.FromContext(r.Context()).InfoContext(r.Context(), "Expense saved",
		log.NewFields().
			WithOperation(log.OpCreate).
			WithExpense(created.ID, created.Amount.Cents, string(created.Category)).
			ToSlice()...)
	writeJSON(w, http.StatusCreated, map[string]any{"expense": created})
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	who, _ := auth.IdentityFrom(r.Context())
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err, msgInternal)
		return
	}

	var in expenseInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err, msgInternal)
		return
	}
	exp, err := in.toExpense(s.now())
	if err != nil {
		writeError(w, r, err, msgInternal)
		return
	}
	exp.ID = id

	updated, err := s.deps.Expenses.UpdateExpense(r.Context(), who, exp)
	if err != nil {
		writeError(w, r, err, msgInternal)
		return
	}
	s.invalidateOverview(who.UserID)
	writeJSON(w, http.StatusOK, map[string]any{"expense": updated})
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	who, _ := auth.IdentityFrom(r.Context())
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err, msgInternal)
		return
	}
	if err := s.deps.Expenses.DeleteExpense(r.Context(), who, id); err != nil {
		writeError(w, r, err, msgInternal)
		return
	}
	s.invalidateOverview(who.UserID)
	w.WriteHeader(http.StatusNoContent)
}
