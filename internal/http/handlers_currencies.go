package http

import (
	"net/http"
)

func (s *Server) handleListCurrencies(w http.ResponseWriter, r *http.Request) {
	currencies, err := s.svc.ListCurrencies(r.Context(), userID(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(currencies, toCurrencyJSON))
}

func (s *Server) handleAddCurrency(w http.ResponseWriter, r *http.Request) {
	var req currencyRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	created, err := s.svc.AddCurrency(r.Context(), userID(r), req.Code)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCurrencyJSON(created))
}

// handleSetCurrencyRate overrides a rate by hand.
func (s *Server) handleSetCurrencyRate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req rateRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	updated, err := s.svc.SetCurrencyRate(r.Context(), userID(r), id, req.Rate)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCurrencyJSON(updated))
}

func (s *Server) handleDeleteCurrency(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.svc.DeleteCurrency(r.Context(), userID(r), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleRefreshRates answers 202 when the refresh was queued for the
// worker and 200 when it already ran inline.
func (s *Server) handleRefreshRates(w http.ResponseWriter, r *http.Request) {
	queued, err := s.svc.RequestRateRefresh(r.Context(), userID(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	status := http.StatusOK
	if queued {
		status = http.StatusAccepted
	}
	writeJSON(w, status, refreshJSON{Queued: queued})
}
