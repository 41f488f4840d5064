package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/dejisec/tattletale/internal/export"
	"github.com/dejisec/tattletale/internal/model"
	"github.com/dejisec/tattletale/internal/report"
)

var errNoReport = errors.New("no report loaded")

// Handlers contains HTTP handlers.
type Handlers struct {
	server *Server
}

// NewHandlers creates new handlers.
func NewHandlers(s *Server) *Handlers {
	return &Handlers{server: s}
}

// Dashboard serves the main dashboard page.
func (h *Handlers) Dashboard(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	rep := h.server.Report()
	if rep == nil {
		http.Error(w, errNoReport.Error(), http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := getDashboardTemplate().Execute(w, newDashboardData(rep)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// APIGetSummary returns the headline figures and category table.
func (h *Handlers) APIGetSummary(w http.ResponseWriter, r *http.Request) {
	h.withReport(w, func(rep *model.Report) any {
		return map[string]any{
			"generated_at":             rep.GeneratedAt,
			"total_accounts":           rep.TotalAccounts,
			"cracked_accounts":         rep.CrackedAccounts,
			"cracked_percent":          rep.CrackedPercent,
			"shared_hash_accounts":     rep.SharedHashAccounts,
			"shared_hash_percent":      rep.SharedHashPercent,
			"unique_hashes":            rep.UniqueHashes,
			"unique_cracked_passwords": rep.UniqueCrackedPasswords,
			"categories":               rep.Categories,
			"conflicts":                len(rep.Conflicts),
		}
	})
}

// APIGetDomains returns the per-domain breakdown.
func (h *Handlers) APIGetDomains(w http.ResponseWriter, r *http.Request) {
	h.withReport(w, func(rep *model.Report) any { return rep.Domains })
}

// APIGetPasswords returns the password reuse ranking. An optional limit
// query parameter shortens it.
func (h *Handlers) APIGetPasswords(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if l := r.URL.Query().Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n < 0 {
			writeError(w, fmt.Errorf("invalid limit %q", l), http.StatusBadRequest)
			return
		}
		limit = n
	}

	h.withReport(w, func(rep *model.Report) any {
		top := rep.TopReusedPasswords
		if limit > 0 && limit < len(top) {
			top = top[:limit]
		}
		return top
	})
}

// APIGetShared returns shared-hash groups with pagination.
func (h *Handlers) APIGetShared(w http.ResponseWriter, r *http.Request) {
	page := 1
	limit := 50
	if p := r.URL.Query().Get("page"); p != "" {
		if pn, err := strconv.Atoi(p); err == nil && pn > 0 {
			page = pn
		}
	}
	if l := r.URL.Query().Get("limit"); l != "" {
		if ln, err := strconv.Atoi(l); err == nil && ln > 0 && ln <= 500 {
			limit = ln
		}
	}

	h.withReport(w, func(rep *model.Report) any {
		groups := rep.SharedGroups
		total := len(groups)
		start := (page - 1) * limit
		end := start + limit

		if start >= total {
			groups = []model.HashGroup{}
		} else {
			if end > total {
				end = total
			}
			groups = groups[start:end]
		}

		return map[string]any{
			"groups":      groups,
			"page":        page,
			"limit":       limit,
			"total":       total,
			"total_pages": (total + limit - 1) / limit,
		}
	})
}

// APIGetCracked returns every cracked account with its plaintext.
func (h *Handlers) APIGetCracked(w http.ResponseWriter, r *http.Request) {
	h.withReport(w, func(rep *model.Report) any { return rep.CrackedRows })
}

// APIGetTargets returns the high-value target section.
func (h *Handlers) APIGetTargets(w http.ResponseWriter, r *http.Request) {
	h.withReport(w, func(rep *model.Report) any {
		return map[string]any{
			"targets":  rep.Targets,
			"cracked":  rep.Targets.CrackedCount(),
			"exposure": rep.TargetExposure,
		}
	})
}

// APIReload re-runs the analysis.
func (h *Handlers) APIReload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, errors.New("method not allowed"), http.StatusMethodNotAllowed)
		return
	}

	rep, err := h.server.Reload(r.Context())
	if err != nil {
		writeError(w, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{
		"generated_at":   rep.GeneratedAt,
		"total_accounts": rep.TotalAccounts,
	})
}

// APIGetRuns returns stored runs when a database is configured.
func (h *Handlers) APIGetRuns(w http.ResponseWriter, r *http.Request) {
	if h.server.db == nil {
		writeError(w, errors.New("no database configured"), http.StatusNotFound)
		return
	}

	limit := 20
	if l := r.URL.Query().Get("limit"); l != "" {
		if ln, err := strconv.Atoi(l); err == nil && ln > 0 && ln <= 500 {
			limit = ln
		}
	}

	runs, err := h.server.db.Runs(r.Context(), limit)
	if err != nil {
		writeError(w, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, runs)
}

// DownloadReport downloads the markdown report.
func (h *Handlers) DownloadReport(w http.ResponseWriter, r *http.Request) {
	rep := h.server.Report()
	if rep == nil {
		writeError(w, errNoReport, http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Header().Set("Content-Disposition", "attachment; filename="+report.MarkdownFilename(rep))
	w.Write([]byte(report.FormatMarkdown(rep)))
}

// ExportSharedCSV downloads the shared-hash CSV export.
func (h *Handlers) ExportSharedCSV(w http.ResponseWriter, r *http.Request) {
	rep := h.server.Report()
	if rep == nil {
		writeError(w, errNoReport, http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", "attachment; filename="+export.SharedHashesFilename(rep.GeneratedAt))
	if err := export.WriteSharedHashesCSV(w, rep.SharedHashRows); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// ExportUserPass downloads the user:password export.
func (h *Handlers) ExportUserPass(w http.ResponseWriter, r *http.Request) {
	rep := h.server.Report()
	if rep == nil {
		writeError(w, errNoReport, http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", "attachment; filename="+export.UserPassFilename(rep.GeneratedAt))
	if err := export.WriteUserPassTXT(w, rep.CrackedRows); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (h *Handlers) withReport(w http.ResponseWriter, fn func(*model.Report) any) {
	rep := h.server.Report()
	if rep == nil {
		writeError(w, errNoReport, http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, fn(rep))
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, err error, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
