package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/carbonledger/carbonledger/internal/activity"
	"github.com/carbonledger/carbonledger/internal/engine"
	"github.com/carbonledger/carbonledger/internal/engine/batch"
	"github.com/carbonledger/carbonledger/internal/logging"
	"github.com/carbonledger/carbonledger/internal/persist"
)

// reviewThreshold marks results whose confidence warrants a human look.
const reviewThreshold = 0.5

// calculationRequest is the wire shape of a calculation request. Exactly
// one of raw_input or structured must be set.
type calculationRequest struct {
	RawInput   string                   `json:"raw_input,omitempty"`
	Structured *activity.ParsedActivity `json:"structured,omitempty"`
	CompanyID  string                   `json:"company_id,omitempty"`
	DemoMode   bool                     `json:"demo_mode,omitempty"`
}

func (r calculationRequest) toEngine() engine.Request {
	return engine.Request{
		RawInput:   r.RawInput,
		Structured: r.Structured,
		CompanyID:  r.CompanyID,
		DemoMode:   r.DemoMode,
	}
}

// calculationResponse is the wire shape of a calculation answer.
type calculationResponse struct {
	Success        bool           `json:"success"`
	Calculation    *engine.Result `json:"calculation,omitempty"`
	RequiresReview bool           `json:"requires_review,omitempty"`
	Warning        string         `json:"warning,omitempty"`
	Error          string         `json:"error,omitempty"`
}

// handleHealth answers liveness probes.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleCalculate runs one calculation. Persistence failures degrade to a
// warning on an otherwise successful response.
func (s *Server) handleCalculate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logging.FromContext(ctx)

	var req calculationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, calculationResponse{
			Error: "invalid JSON body",
		})
		return
	}

	companyID, err := persist.ParseCompanyID(req.CompanyID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, calculationResponse{Error: err.Error()})
		return
	}

	result, err := s.calc.Calculate(ctx, req.toEngine())
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, activity.ErrValidation) {
			status = http.StatusBadRequest
		}
		writeJSON(w, status, calculationResponse{Error: err.Error()})
		return
	}

	resp := calculationResponse{
		Success:        true,
		Calculation:    result,
		RequiresReview: result.Confidence < reviewThreshold,
	}

	// Demo estimates never reach storage.
	if !req.DemoMode {
		if err := s.sink.Save(ctx, persist.Record{Result: result, CompanyID: companyID}); err != nil {
			log.Warn().Err(err).Str("id", result.ID).Msg("calculation not persisted")
			resp.Warning = "calculation completed but was not persisted"
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// batchRequest is the wire shape of a batch calculation request.
type batchRequest struct {
	Items     []calculationRequest `json:"items"`
	ChunkSize int                  `json:"chunk_size,omitempty"`
}

// batchItemError reports one failed batch item.
type batchItemError struct {
	Index int    `json:"index"`
	Error string `json:"error"`
}

// batchResponse is the wire shape of a batch answer. Results is
// index-aligned with the request items; failed items are null.
type batchResponse struct {
	Success   bool             `json:"success"`
	Results   []*engine.Result `json:"results,omitempty"`
	Errors    []batchItemError `json:"errors,omitempty"`
	Succeeded int              `json:"succeeded"`
	Error     string           `json:"error,omitempty"`
}

// handleBatchCalculate runs many calculations with per-item error
// isolation.
func (s *Server) handleBatchCalculate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, batchResponse{Error: "invalid JSON body"})
		return
	}
	if len(req.Items) == 0 {
		writeJSON(w, http.StatusBadRequest, batchResponse{Error: "items must not be empty"})
		return
	}

	processor, err := batch.NewProcessor(s.calc, batch.Config{ChunkSize: req.ChunkSize})
	if err != nil {
		writeJSON(w, http.StatusBadRequest, batchResponse{Error: err.Error()})
		return
	}

	reqs := make([]engine.Request, len(req.Items))
	for i, item := range req.Items {
		reqs[i] = item.toEngine()
	}

	report, err := processor.Process(ctx, reqs)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, batchResponse{Error: err.Error()})
		return
	}

	resp := batchResponse{
		Success:   true,
		Results:   report.Results,
		Succeeded: report.Succeeded(),
	}
	for _, itemErr := range report.Errors {
		resp.Errors = append(resp.Errors, batchItemError{
			Index: itemErr.Index,
			Error: itemErr.Err.Error(),
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

// writeJSON encodes v as JSON with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
