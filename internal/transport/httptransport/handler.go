package httptransport

import (
	"encoding/json"
	"net/http"

	"github.com/flowvet/flowvet/internal/app"
	"github.com/flowvet/flowvet/internal/transport/verifydto"
)

type Handler struct {
	svc app.VerifyService
}

func NewHandler(svc app.VerifyService) *Handler {
	return &Handler{svc: svc}
}

// Verify runs one policy set against one graph snapshot. A violated policy
// is a successful verification with passed=false; only malformed requests
// and evaluation failures are HTTP errors.
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var in verifydto.VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid json", "details": err.Error()})
		return
	}

	report, err := h.svc.Verify(in.GraphDOT, in.PolicyYAML)
	if err != nil {
		if _, ok := app.IsViolation(err); ok {
			writeJSON(w, http.StatusOK, verifydto.VerifyResponse{Passed: false, Report: report})
			return
		}
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "verify failed", "details": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, verifydto.VerifyResponse{Passed: true, Report: report})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
