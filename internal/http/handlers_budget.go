package http

import (
	"context"
	"net/http"

	"budgetbee/internal/auth"
	"budgetbee/internal/core"
)

// currencySymbol resolves the display symbol for a user's currency, falling
// back to dollars when no profile is available.
func (s *Server) currencySymbol(ctx context.Context, userID string) string {
	if s.deps.Profiles != nil {
		if p, err := s.deps.Profiles.GetProfile(ctx, userID); err == nil {
			if sym, ok := core.Currencies[p.Currency]; ok {
				return sym
			}
		}
	}
	return core.Currencies["USD"]
}

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	who, _ := auth.IdentityFrom(r.Context())
	budgets, err := s.deps.Budgets.ListBudgets(r.Context(), who.UserID)
	if err != nil {
		writeError(w, r, err, msgInternal)
		return
	}

	symbol := s.currencySymbol(r.Context(), who.UserID)
	views := make([]core.BudgetView, 0, len(budgets))
	for _, b := range budgets {
		views = append(views, b.View(symbol))
	}
	writeJSON(w, http.StatusOK, map[string]any{"budgets": views})
}

func (s *Server) handleCreateBudget(w http.ResponseWriter, r *http.Request) {
	who, _ := auth.IdentityFrom(r.Context())

	var in budgetInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err, msgInternal)
		return
	}
	b, err := in.toBudget()
	if err != nil {
		writeError(w, r, err, msgInternal)
		return
	}

	created, err := s.deps.Budgets.CreateBudget(r.Context(), who, b)
	if err != nil {
		writeError(w, r, err, msgInternal)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"budget": created.View(s.currencySymbol(r.Context(), who.UserID))})
}

func (s *Server) handleUpdateBudget(w http.ResponseWriter, r *http.Request) {
	who, _ := auth.IdentityFrom(r.Context())
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err, msgInternal)
		return
	}

	var in budgetInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err, msgInternal)
		return
	}
	b, err := in.toBudget()
	if err != nil {
		writeError(w, r, err, msgInternal)
		return
	}
	b.ID = id

	updated, err := s.deps.Budgets.UpdateBudget(r.Context(), who, b)
	if err != nil {
		writeError(w, r, err, msgInternal)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"budget": updated.View(s.currencySymbol(r.Context(), who.UserID))})
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	who, _ := auth.IdentityFrom(r.Context())
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err, msgInternal)
		return
	}
	if err := s.deps.Budgets.DeleteBudget(r.Context(), who, id); err != nil {
		writeError(w, r, err, msgInternal)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
