// Package handlers is the HTTP boundary around the import job manager.
package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"mime/multipart"
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"

	"github.com/cmsjade5000/WardrobeManager/internal/importer"
	"github.com/cmsjade5000/WardrobeManager/internal/storage"
)

// maxUploadBytes bounds multipart request memory/disk usage
const maxUploadBytes = 256 << 20

// ImportService is the job manager surface the handlers need
type ImportService interface {
	CreateJob(items []*importer.JobItem, defaults importer.Defaults) (*importer.Job, error)
	GetJob(id string) (importer.JobSnapshot, bool)
}

// ImportHandler handles bulk import requests and status polling
type ImportHandler struct {
	service ImportService
	store   *storage.ImageStore
}

// NewImportHandler creates a new import handler
func NewImportHandler(service ImportService, store *storage.ImageStore) *ImportHandler {
	return &ImportHandler{
		service: service,
		store:   store,
	}
}

// Register mounts the import routes on r
func (h *ImportHandler) Register(r chi.Router) {
	r.Post("/api/import/upload", h.HandleDirectUpload)
	r.Post("/api/import/csv", h.HandleCSVImport)
	r.Get("/api/import/jobs/{jobID}", h.HandleJobStatus)
}

// HandleDirectUpload handles POST /api/import/upload - one job entry per
// uploaded image, metadata from the shared form defaults.
func (h *ImportHandler) HandleDirectUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		respondError(w, http.StatusBadRequest, importer.ErrNoImages.Error())
		return
	}

	files := r.MultipartForm.File["images"]
	if len(files) == 0 {
		respondError(w, http.StatusBadRequest, importer.ErrNoImages.Error())
		return
	}

	defaults := parseDefaults(r)
	if !defaults.HasRequired() {
		respondError(w, http.StatusBadRequest, importer.ErrMissingDefaults.Error())
		return
	}

	sources := make([]importer.SourceFile, 0, len(files))
	for _, fh := range files {
		path, err := h.saveUpload(fh)
		if err != nil {
			log.Printf("Failed to store uploaded image %s: %v", fh.Filename, err)
			respondError(w, http.StatusInternalServerError, "Failed to store uploaded image")
			return
		}
		sources = append(sources, importer.SourceFile{Filename: fh.Filename, Path: path})
	}

	items, err := importer.ResolveDirectUpload(sources, defaults)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.createJob(w, items, defaults)
}

// HandleCSVImport handles POST /api/import/csv - a CSV manifest plus a ZIP
// archive of images.
func (h *ImportHandler) HandleCSVImport(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		respondError(w, http.StatusBadRequest, "CSV and ZIP files are required")
		return
	}

	csvFile, _, csvErr := r.FormFile("csv")
	zipFile, _, zipErr := r.FormFile("zip")
	if csvErr != nil || zipErr != nil {
		respondError(w, http.StatusBadRequest, "CSV and ZIP files are required")
		return
	}
	defer csvFile.Close()
	defer zipFile.Close()

	defaults := parseDefaults(r)

	// Stage both uploads on disk; they are removed after resolution
	// regardless of outcome.
	csvName, err := h.store.Save(csvFile, ".csv")
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to store uploaded CSV")
		return
	}
	defer h.store.Remove(csvName)

	zipName, err := h.store.Save(zipFile, ".zip")
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to store uploaded ZIP")
		return
	}
	defer h.store.Remove(zipName)

	csvPath, _ := h.store.Path(csvName)
	zipPath, _ := h.store.Path(zipName)

	items, err := importer.ResolveCSVArchive(csvPath, zipPath, defaults, h.store)
	if err != nil {
		var parseErr *importer.CSVParseError
		switch {
		case errors.As(err, &parseErr):
			respondJSON(w, http.StatusBadRequest, map[string]interface{}{
				"error":   parseErr.Error(),
				"details": parseErr.Details,
			})
		default:
			respondError(w, http.StatusBadRequest, err.Error())
		}
		return
	}

	h.createJob(w, items, defaults)
}

// HandleJobStatus handles GET /api/import/jobs/{jobID}
func (h *ImportHandler) HandleJobStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")

	snapshot, ok := h.service.GetJob(jobID)
	if !ok {
		respondError(w, http.StatusNotFound, "Import job not found")
		return
	}

	respondJSON(w, http.StatusOK, snapshot)
}

// createJob enqueues the resolved manifest and responds with the job snapshot
func (h *ImportHandler) createJob(w http.ResponseWriter, items []*importer.JobItem, defaults importer.Defaults) {
	job, err := h.service.CreateJob(items, defaults)
	if err != nil {
		if errors.Is(err, importer.ErrQueueFull) {
			respondError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		log.Printf("Failed to create import job: %v", err)
		respondError(w, http.StatusInternalServerError, "Failed to create import job")
		return
	}

	respondJSON(w, http.StatusOK, job.Snapshot())
}

// saveUpload copies one uploaded file into the shared storage area and
// returns its absolute path.
func (h *ImportHandler) saveUpload(fh *multipart.FileHeader) (string, error) {
	f, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer f.Close()

	name, err := h.store.Save(f, filepath.Ext(fh.Filename))
	if err != nil {
		return "", err
	}

	return h.store.Path(name)
}

// parseDefaults reads the shared defaults record from the form's text fields.
// The tags field accepts either a JSON-array-encoded string or a single value.
func parseDefaults(r *http.Request) importer.Defaults {
	d := importer.Defaults{
		Type:     r.FormValue("type"),
		Category: r.FormValue("category"),
		Color:    r.FormValue("color"),
		Brand:    r.FormValue("brand"),
		Size:     r.FormValue("size"),
		Material: r.FormValue("material"),
		Notes:    r.FormValue("notes"),
	}

	if raw := r.FormValue("tags"); raw != "" {
		var tags []string
		if err := json.Unmarshal([]byte(raw), &tags); err == nil {
			d.Tags = tags
		} else {
			d.Tags = []string{raw}
		}
	}

	return d
}

func respondJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}
