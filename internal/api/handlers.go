package api

import (
	"encoding/json"
	"io"
	"net/http"
	"os"
	"strconv"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"

	"github.com/fitops/auditor/internal/report"
	"github.com/fitops/auditor/internal/repository"
	"github.com/fitops/auditor/internal/service"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Handlers groups all HTTP handler methods and their dependencies.
type Handlers struct {
	auditSvc *service.Service
	runRepo  *repository.RunRepo
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Error("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
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

// --- CreateAudit ---

// CreateAudit accepts one or more membership exports as multipart files and
// audits them as a batch. A failed file is reported per-file; the batch never
// fails as a whole because one export was bad.
func (h *Handlers) CreateAudit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form: "+err.Error())
		return
	}

	fileHeaders := r.MultipartForm.File["files"]
	if len(fileHeaders) == 0 {
		writeError(w, http.StatusBadRequest, "at least one file is required in the files field")
		return
	}

	var uploads []service.Upload
	for _, fh := range fileHeaders {
		f, err := fh.Open()
		if err != nil {
			writeError(w, http.StatusBadRequest, "open upload: "+err.Error())
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			writeError(w, http.StatusInternalServerError, "read upload: "+err.Error())
			return
		}
		uploads = append(uploads, service.Upload{Filename: fh.Filename, Data: data})
	}

	resp, err := h.auditSvc.AuditBatch(uploads, r.FormValue("category"))
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// --- Runs ---

func (h *Handlers) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit := parseIntDefault(r.URL.Query().Get("limit"), 50)

	runs, err := h.runRepo.List(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs, "count": len(runs)})
}

func (h *Handlers) GetRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	run, err := h.runRepo.GetByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if run == nil {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}

	flagged, err := h.runRepo.FlaggedMembers(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"run": run, "flagged_members": flagged})
}

// GetRunReport streams the stored report artifact for a run.
func (h *Handlers) GetRunReport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	run, err := h.runRepo.GetByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if run == nil {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	if run.ArtifactPath == "" {
		writeError(w, http.StatusNotFound, "no report stored for this run")
		return
	}

	data, err := os.ReadFile(run.ArtifactPath)
	if err != nil {
		log.WithError(err).WithField("run", id).Error("Failed to read report artifact")
		writeError(w, http.StatusInternalServerError, "report artifact unavailable")
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+report.SuggestedFilename(run.SourceFile)+`"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		log.WithError(err).Error("Failed to write report response")
	}
}

// --- Dashboard ---

func (h *Handlers) GetDashboard(w http.ResponseWriter, r *http.Request) {
	totals, err := h.runRepo.Dashboard()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, totals)
}

// --- Rules ---

// GetRuleCategories lists the configured rule set categories so UI clients
// can offer a category picker.
func (h *Handlers) GetRuleCategories(w http.ResponseWriter, r *http.Request) {
	cfg := h.auditSvc.Rules()
	writeJSON(w, http.StatusOK, map[string]any{
		"categories":       cfg.Categories(),
		"default_category": cfg.DefaultCategory(),
	})
}
