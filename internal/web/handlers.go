package web

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/JonMunkholm/csvlint/internal/core"
	"github.com/JonMunkholm/csvlint/internal/web/templates"
)

// handleValidate runs one validation. The status is 200 whatever the verdict;
// the report carries it.
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	req, err := s.parseValidateRequest(w, r)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	ctx := WithRequestMetadata(r.Context(), r)
	report, err := s.service.Validate(ctx, req)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	switch {
	case isHTMX(r):
		s.render(w, r, templates.ReportPartial(report))
	case wantsHTML(r):
		s.render(w, r, templates.ReportPage(report))
	default:
		writeJSON(w, http.StatusOK, report)
	}
}

// handleListReports returns recent report summaries.
func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	summaries, err := s.service.ListReports(r.Context(), parseIntParam(r, "limit", 50))
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reports": summaries})
}

// handleGetReport returns one stored report as JSON.
func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	report, err := s.lookupReport(r)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// handleReportPage renders one stored report.
func (s *Server) handleReportPage(w http.ResponseWriter, r *http.Request) {
	report, err := s.lookupReport(r)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	s.render(w, r, templates.ReportPage(report))
}

// handleReportsPage renders recent reports.
func (s *Server) handleReportsPage(w http.ResponseWriter, r *http.Request) {
	summaries, err := s.service.ListReports(r.Context(), parseIntParam(r, "limit", 50))
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	s.render(w, r, templates.ReportList(summaries))
}

// handleHealth reports liveness and validation capacity.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"history":     s.service.HistoryEnabled(),
		"validations": s.service.LimiterStatus(),
	})
}

func (s *Server) lookupReport(r *http.Request) (*core.Report, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return nil, errInvalidReportID
	}
	return s.service.GetReport(r.Context(), id)
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, c templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := c.Render(r.Context(), w); err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
	}
}

// parseIntParam parses a positive integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}

// wantsHTML reports whether the client asked for a page rather than JSON.
func wantsHTML(r *http.Request) bool {
	accept := r.Header.Get("Accept")
	return strings.Contains(accept, "text/html") && !strings.Contains(accept, "application/json")
}
