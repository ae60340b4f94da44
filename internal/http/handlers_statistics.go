package http

import (
	"net/http"
	"strconv"
)

func (s *Server) handleStatistics(w http.ResponseWriter, r *http.Request) {
	q := ParseStatsQuery(r.URL.Query())
	report, err := s.svc.Statistics(r.Context(), userID(r), q)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleTransactionDates(w http.ResponseWriter, r *http.Request) {
	dates, err := s.svc.TransactionDates(r.Context(), userID(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dates)
}

// handleMonthlyChart answers 204 when the year has nothing to draw.
func (s *Server) handleMonthlyChart(w http.ResponseWriter, r *http.Request) {
	year, _ := strconv.Atoi(r.URL.Query().Get("year"))
	png, err := s.svc.MonthlyChart(r.Context(), userID(r), year)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	NewJSONResponse().
		Header("Cache-Control", "private, max-age=60").
		Raw("image/png", png).
		Write(w)
}

func (s *Server) handleExportStatistics(w http.ResponseWriter, r *http.Request) {
	q := ParseStatsQuery(r.URL.Query())
	ref, err := s.svc.ExportStatistics(r.Context(), userID(r), q)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, exportJSON{Reference: ref})
}
