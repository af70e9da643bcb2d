package http

import (
	"fmt"
	"net/http"

	"budgetbee/internal/auth"
	"budgetbee/internal/core"
	"budgetbee/internal/services"
)

func (s *Server) handleMonthOverview(w http.ResponseWriter, r *http.Request) {
	who, _ := auth.IdentityFrom(r.Context())
	params, err := ParseMonthParams(r.URL.Query(), s.now())
	if err != nil {
		writeError(w, r, err, msgInternal)
		return
	}

	ov, err := s.getOverview(r.Context(), who.UserID, params.Year, params.Month)
	if err != nil {
		writeError(w, r, err, msgInternal)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"overview": ov})
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	who, _ := auth.IdentityFrom(r.Context())
	p, err := s.deps.Profiles.GetProfile(r.Context(), who.UserID)
	if err != nil {
		writeError(w, r, err, msgInternal)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"profile": p})
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	who, _ := auth.IdentityFrom(r.Context())

	var in profileInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err, msgInternal)
		return
	}
	code, err := core.ParseCurrency(in.Currency)
	if err != nil {
		writeError(w, r, fmt.Errorf("%w: %v", services.ErrValidation, err), msgInternal)
		return
	}
	if err := s.deps.Profiles.SetCurrency(r.Context(), who.UserID, code); err != nil {
		writeError(w, r, err, msgInternal)
		return
	}

	p, err := s.deps.Profiles.GetProfile(r.Context(), who.UserID)
	if err != nil {
		writeError(w, r, err, msgInternal)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"profile": p})
}
