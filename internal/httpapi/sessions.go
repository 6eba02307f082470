package httpapi

import (
	"net/http"

	"mothercare/backend/internal/domain"
)

func (a *API) handleSessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	line, ok := lineFrom(w, r)
	if !ok {
		return
	}

	sessions, err := a.service.ListSessions(r.Context(), line)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": sessions})
}

func (a *API) handleCurrentSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	line, ok := lineFrom(w, r)
	if !ok {
		return
	}

	session, sales, err := a.service.CurrentSessionSales(r.Context(), line)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"session": session, "sales": newSaleViews(sales)})
}

func (a *API) handleSessionOpen(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	line, ok := lineFrom(w, r)
	if !ok {
		return
	}

	session, created, err := a.service.OpenFirstSession(r.Context(), line)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, map[string]any{"session": session, "created": created})
}

func (a *API) handleSessionClose(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	line, ok := lineFrom(w, r)
	if !ok {
		return
	}

	var req domain.SessionCloseRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
	}

	closure, err := a.service.CloseAndReopen(r.Context(), line, req.Notes)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newClosureView(closure))
}

func (a *API) handleReports(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	line, ok := lineFrom(w, r)
	if !ok {
		return
	}

	reports, err := a.service.ListReports(r.Context(), line)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reports": newReportViews(reports)})
}

func (a *API) handleReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	line, ok := lineFrom(w, r)
	if !ok {
		return
	}

	rep, err := a.service.GetReport(r.Context(), line, r.PathValue("session"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"report": newReportView(rep)})
}

func (a *API) handleSessionPartitions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	line, ok := lineFrom(w, r)
	if !ok {
		return
	}

	partitions, err := a.service.SessionPartitions(r.Context(), line)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"partitions": newPartitionViews(partitions)})
}

func (a *API) handleDatePartitions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	line, ok := lineFrom(w, r)
	if !ok {
		return
	}

	rng, err := a.service.ResolveRange(r.URL.Query().Get("range"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	partitions, err := a.service.DatePartitions(r.Context(), line, rng)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"timezone":   a.service.Location().String(),
		"partitions": newPartitionViews(partitions),
	})
}

func (a *API) handleSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	line, ok := lineFrom(w, r)
	if !ok {
		return
	}

	rng, err := a.service.ResolveRange(r.URL.Query().Get("range"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	summary, err := a.service.Summarize(r.Context(), line, rng)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newSummaryView(summary))
}

func (a *API) handleOverview(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	rng, err := a.service.ResolveRange(r.URL.Query().Get("range"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	overview, err := a.service.Overview(r.Context(), rng)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newOverviewView(overview))
}
