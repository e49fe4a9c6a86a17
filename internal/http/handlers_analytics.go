package http

import (
	"net/http"

	"spendwise/internal/core"
)

// monthOptions is how many months the month picker offers.
const monthOptions = 12

type summaryResponse struct {
	Filter     core.Filter         `json:"filter"`
	Totals     core.Totals         `json:"totals"`
	Categories []core.CategoryStat `json:"categories"`
	Count      int                 `json:"count"`
}

// handleSummary reports totals and the expense breakdown of the filtered set.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	f, err := s.filterFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	txs := core.FilterTransactions(s.store.Transactions(), f)
	writeJSON(w, http.StatusOK, summaryResponse{
		Filter:     f,
		Totals:     core.ComputeTotals(txs),
		Categories: core.CategoryBreakdown(txs),
		Count:      len(txs),
	})
}

func (s *Server) handleMonthlyTrend(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, core.MonthlyTrend(s.store.Transactions()))
}

// handleDailyTrend defaults to the filter month.
func (s *Server) handleDailyTrend(w http.ResponseWriter, r *http.Request) {
	month := r.URL.Query().Get("month")
	if month == "" {
		month = s.store.Filter().Month
	}
	days, err := core.DailyTrend(s.store.Transactions(), month)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, days)
}

func (s *Server) handleMonths(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, core.MonthOptions(s.now(), monthOptions))
}
