package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/crossledger/reconciler/internal/domain"
	"github.com/crossledger/reconciler/internal/ingestion"
	"github.com/crossledger/reconciler/internal/reconciliation"
	"github.com/crossledger/reconciler/internal/repository"
)

// Handlers groups all HTTP handler methods and their dependencies.
type Handlers struct {
	txnRepo      *repository.TransactionRepo
	engine       *reconciliation.Engine
	ingestionSvc *ingestion.Service
	log          *logrus.Logger
}

// --- helpers ---

func (h *Handlers) writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.WithError(err).Error("encode response")
	}
}

func (h *Handlers) writeError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, map[string]string{"error": msg})
}

func (h *Handlers) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		h.writeError(w, http.StatusNotFound, "transaction not found")
	case errors.Is(err, domain.ErrInvalidTransaction):
		h.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrConstraintViolation):
		h.log.WithError(err).Error("pairing constraint violation")
		h.writeError(w, http.StatusInternalServerError, err.Error())
	default:
		h.writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func parseTime(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		t, err = time.Parse("2006-01-02", s)
		if err != nil {
			return nil
		}
	}
	return &t
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 1 {
		return def
	}
	return v
}

// --- CreateTransaction ---

func (h *Handlers) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	var in ingestion.NewTransaction
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	txn, err := h.ingestionSvc.Ingest(in)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, txn)
}

// --- ImportTransactions ---

func (h *Handlers) ImportTransactions(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid multipart form: "+err.Error())
		return
	}

	provider := r.FormValue("provider")
	format := r.FormValue("format")
	if provider == "" || format == "" {
		h.writeError(w, http.StatusBadRequest, "provider and format are required")
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "file field is required: "+err.Error())
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "read file: "+err.Error())
		return
	}

	result, err := h.ingestionSvc.ImportBatch(data, domain.Provider(provider), format)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidTransaction) {
			h.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, result)
}

// --- ListTransactions ---

func (h *Handlers) ListTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := repository.TransactionFilter{
		Status:   q.Get("status"),
		Provider: q.Get("provider"),
		Currency: q.Get("currency"),
		From:     parseTime(q.Get("from")),
		To:       parseTime(q.Get("to")),
		Page:     parseIntDefault(q.Get("page"), 1),
		Limit:    parseIntDefault(q.Get("limit"), 50),
	}

	txns, total, err := h.txnRepo.List(filter)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"transactions": txns,
		"total":        total,
		"page":         filter.Page,
		"limit":        filter.Limit,
	})
}

// --- GetTransaction ---

func (h *Handlers) GetTransaction(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "id is required")
		return
	}

	txn, err := h.txnRepo.GetByID(id)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, txn)
}

// --- ReconcileTransaction ---

// ReconcileTransaction triggers reconciliation manually. Re-running it on an
// already-matched transaction returns the existing match unchanged.
func (h *Handlers) ReconcileTransaction(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "id is required")
		return
	}

	result, err := h.engine.Reconcile(id)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, result)
}

// --- GetReconciliationSummary ---

func (h *Handlers) GetReconciliationSummary(w http.ResponseWriter, r *http.Request) {
	counts, err := h.txnRepo.CountByProviderStatus()
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	volumes, err := h.txnRepo.MatchedVolumeByCurrency()
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	total := 0
	matched := 0
	for _, c := range counts {
		total += c.Count
		if c.Status == string(domain.StatusMatched) {
			matched += c.Count
		}
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"total":               total,
		"matched":             matched,
		"pending":             total - matched,
		"by_provider_status":  counts,
		"matched_by_currency": volumes,
	})
}

// --- Health ---

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
