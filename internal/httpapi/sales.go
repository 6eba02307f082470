package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"mothercare/backend/internal/domain"
)

func (a *API) handleSales(w http.ResponseWriter, r *http.Request) {
	line, ok := lineFrom(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		a.listSales(w, r, line)
	case http.MethodPost:
		var req domain.SaleRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		resp, err := a.service.RecordSale(r.Context(), line, req)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{
			"sale": newSaleView(resp.Sale),
			"item": newItemView(resp.Item),
		})
	default:
		writeMethodNotAllowed(w)
	}
}

// listSales filters by ?session=<id|current> and ?range=<today|week|month>.
func (a *API) listSales(w http.ResponseWriter, r *http.Request, line domain.Line) {
	query := r.URL.Query()
	rng, err := a.service.ResolveRange(query.Get("range"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	filter := domain.SaleFilter{From: rng.From, To: rng.To}

	switch session := strings.TrimSpace(query.Get("session")); session {
	case "":
	case "current":
		current, err := a.service.CurrentSession(r.Context(), line)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		filter.SessionID = current.ID
	default:
		filter.SessionID = session
	}

	sales, err := a.service.ListSales(r.Context(), line, filter)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sales": newSaleViews(sales)})
}

func (a *API) handleSale(w http.ResponseWriter, r *http.Request) {
	line, ok := lineFrom(w, r)
	if !ok {
		return
	}
	id := r.PathValue("id")

	switch r.Method {
	case http.MethodGet:
		sale, err := a.service.GetSale(r.Context(), line, id)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"sale": newSaleView(sale)})
	case http.MethodDelete:
		var req domain.DeleteSaleRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if err := a.service.CanDeleteSale(r.Context()); err != nil {
			writeServiceError(w, err)
			return
		}
		if !a.pinLimiter.Allow("pin:sale-delete:" + clientKey(r)) {
			writeError(w, http.StatusTooManyRequests, errors.New("too many manager pin attempts"))
			return
		}
		if !a.auth.ValidateManagerPIN(req.ManagerPIN) {
			writeError(w, http.StatusForbidden, errors.New("invalid manager pin"))
			return
		}

		sale, err := a.service.DeleteSale(r.Context(), line, id, req.Restock)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"sale": newSaleView(sale), "restocked": req.Restock})
	default:
		writeMethodNotAllowed(w)
	}
}
