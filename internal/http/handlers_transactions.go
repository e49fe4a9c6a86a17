package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"spendwise/internal/core"
	"spendwise/internal/log"
	"spendwise/internal/services"
	"spendwise/internal/store"
	"spendwise/internal/validation"
)

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Transactions())
}

// handleFilteredTransactions applies the store filter, overridden by any of
// the month, type and search query parameters.
func (s *Server) handleFilteredTransactions(w http.ResponseWriter, r *http.Request) {
	f, err := s.filterFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, core.FilterTransactions(s.store.Transactions(), f))
}

// filterFromQuery merges query overrides into the current store filter
// without changing it.
func (s *Server) filterFromQuery(r *http.Request) (core.Filter, error) {
	q := r.URL.Query()
	var p core.FilterPatch
	if q.Has("month") {
		m := strings.TrimSpace(q.Get("month"))
		p.Month = &m
	}
	if q.Has("type") {
		t := core.FilterType(strings.TrimSpace(q.Get("type")))
		p.Type = &t
	}
	if q.Has("search") {
		search := sanitizeInput(q.Get("search"))
		p.Search = &search
	}
	if err := p.Validate(); err != nil {
		return core.Filter{}, err
	}
	return s.store.Filter().Merge(p), nil
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	form, ok := s.decodeForm(w, r)
	if !ok {
		return
	}

	t, err := s.service.Create(r.Context(), form)
	if err != nil {
		s.writeServiceError(w, r, err, log.OpCreate)
		return
	}

	log.NewStructuredLogger(log.FromContext(r.Context())).LogTransactionCreated(r.Context(),
		t.ID, t.Title, t.Amount.String(), string(t.Type), string(t.Category))
	writeJSON(w, http.StatusCreated, t)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	form, ok := s.decodeForm(w, r)
	if !ok {
		return
	}

	t, err := s.service.Update(r.Context(), id, form)
	if err != nil {
		s.writeServiceError(w, r, err, log.OpUpdate)
		return
	}

	log.FromContext(r.Context()).InfoContext(r.Context(), "Transaction updated",
		log.FieldOperation, log.OpUpdate, log.FieldTransactionID, t.ID)
	writeJSON(w, http.StatusOK, t)
}

// handleDeleteTransaction is idempotent: unknown ids also answer 204.
func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	s.service.Delete(r.Context(), id)

	log.FromContext(r.Context()).InfoContext(r.Context(), "Transaction deleted",
		log.FieldOperation, log.OpDelete, log.FieldTransactionID, id)
	w.WriteHeader(http.StatusNoContent)
}

// transactionRequest is the JSON body of create and update. Amount may be
// sent as a string or a number.
type transactionRequest struct {
	Title    string          `json:"title"`
	Amount   json.RawMessage `json:"amount"`
	Type     string          `json:"type"`
	Category string          `json:"category"`
	Date     string          `json:"date"`
}

func (s *Server) decodeForm(w http.ResponseWriter, r *http.Request) (validation.TransactionForm, bool) {
	var req transactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return validation.TransactionForm{}, false
	}
	return validation.TransactionForm{
		Title:    sanitizeInput(req.Title),
		Amount:   rawAmount(req.Amount),
		Type:     strings.TrimSpace(req.Type),
		Category: strings.TrimSpace(req.Category),
		Date:     strings.TrimSpace(req.Date),
	}, true
}

// rawAmount returns the text of a JSON string or number. Anything else
// becomes "" and fails validation.
func rawAmount(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return ""
		}
		return strings.TrimSpace(s)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return ""
	}
	return n.String()
}

func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error, op string) {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusUnprocessableEntity, verr.Result)
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "transaction not found")
	default:
		log.NewStructuredLogger(log.FromContext(r.Context())).LogError(r.Context(),
			"Transaction request failed", err, op, nil)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (s *Server) handleGetFilter(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Filter())
}

func (s *Server) handlePatchFilter(w http.ResponseWriter, r *http.Request) {
	var p core.FilterPatch
	if err := decodeJSON(w, r, &p); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if p.Search != nil {
		search := sanitizeInput(*p.Search)
		p.Search = &search
	}
	if err := p.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.store.SetFilter(r.Context(), p))
}

func (s *Server) handleResetFilter(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.ResetFilter(r.Context()))
}
