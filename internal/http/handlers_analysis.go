package http

import (
	"net/http"

	"budgetbee/internal/analysis"
	"budgetbee/internal/auth"
	"budgetbee/internal/log"
)

type analyzeResponse struct {
	Analysis analysis.SpendingAnalysis `json:"analysis"`
}

// handleAnalyze runs the spending analysis for the caller. Any request body is
// ignored; the identity comes from the bearer token.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	who, _ := auth.IdentityFrom(r.Context())

	result, err := s.deps.Analyzer.Analyze(r.Context(), who.UserID)
	if err != nil {
		writeError(w, r, err, msgAnalyzeFailed)
		return
	}

	logger := log.FromContext(r.Context()).WithComponent(log.ComponentAnalysis)
	args := []any{log.FieldOperation, log.OpAnalyze, "fraud_alerts", len(result.FraudAlerts)}
	if result.Statistics != nil {
		args = append(args, log.FieldCount, result.Statistics.TransactionCount)
	}
	logger.InfoContext(r.Context(), "Spending analysis served", args...)

	writeJSON(w, http.StatusOK, analyzeResponse{Analysis: result})
}
