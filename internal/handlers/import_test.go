package handlers

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cmsjade5000/WardrobeManager/internal/importer"
	"github.com/cmsjade5000/WardrobeManager/internal/storage"
)

type mockService struct {
	createdItems    []*importer.JobItem
	createdDefaults importer.Defaults
	createJobFunc   func(items []*importer.JobItem, defaults importer.Defaults) (*importer.Job, error)
	getJobFunc      func(id string) (importer.JobSnapshot, bool)
}

func (m *mockService) CreateJob(items []*importer.JobItem, defaults importer.Defaults) (*importer.Job, error) {
	m.createdItems = items
	m.createdDefaults = defaults
	if m.createJobFunc != nil {
		return m.createJobFunc(items, defaults)
	}
	job := &importer.Job{
		ID:        uuid.New().String(),
		Status:    importer.JobQueued,
		Total:     len(items),
		Defaults:  defaults,
		Items:     items,
		CreatedAt: time.Now(),
	}
	for _, it := range items {
		if it.Status == importer.ItemFailed {
			job.Failed++
		}
	}
	return job, nil
}

func (m *mockService) GetJob(id string) (importer.JobSnapshot, bool) {
	if m.getJobFunc != nil {
		return m.getJobFunc(id)
	}
	return importer.JobSnapshot{}, false
}

func newTestHandler(t *testing.T) (*ImportHandler, *mockService, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewImageStore(dir, "/images")
	require.NoError(t, err)
	service := &mockService{}
	return NewImportHandler(service, store), service, dir
}

func newRouter(h *ImportHandler) chi.Router {
	r := chi.NewRouter()
	h.Register(r)
	return r
}

// multipartRequest builds a multipart POST body. files maps field name to
// filename/content pairs; several files may share the "images" field.
type filePart struct {
	field    string
	filename string
	content  []byte
}

func multipartRequest(t *testing.T, url string, parts []filePart, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for _, p := range parts {
		fw, err := w.CreateFormFile(p.field, p.filename)
		require.NoError(t, err)
		_, err = fw.Write(p.content)
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, url, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func zipBytes(t *testing.T, entries map[string][]byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, data := range entries {
		fw, err := zw.Create(name)
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestDirectUpload_NoImages(t *testing.T) {
	h, _, _ := newTestHandler(t)
	r := newRouter(h)

	req := multipartRequest(t, "/api/import/upload", nil, map[string]string{
		"type": "TOP", "category": "Imported", "color": "Red",
	})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "No images uploaded", decodeBody(t, rec)["error"])
}

func TestDirectUpload_MissingRequiredDefaults(t *testing.T) {
	h, _, _ := newTestHandler(t)
	r := newRouter(h)

	req := multipartRequest(t, "/api/import/upload",
		[]filePart{{field: "images", filename: "a.png", content: []byte("img")}},
		map[string]string{"type": "TOP", "category": "Imported"})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Type, category, and color are required", decodeBody(t, rec)["error"])
}

func TestDirectUpload_Success(t *testing.T) {
	h, service, _ := newTestHandler(t)
	r := newRouter(h)

	req := multipartRequest(t, "/api/import/upload",
		[]filePart{
			{field: "images", filename: "a.png", content: []byte("one")},
			{field: "images", filename: "b.png", content: []byte("two")},
		},
		map[string]string{
			"type": "TOP", "category": "Imported", "color": "Red",
			"tags": `["Beach","Summer"]`,
		})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "queued", body["status"])
	assert.EqualValues(t, 2, body["total"])
	assert.EqualValues(t, 0, body["completed"])
	assert.NotEmpty(t, body["id"])
	assert.Len(t, body["items"], 2)

	require.Len(t, service.createdItems, 2)
	assert.Equal(t, "a", service.createdItems[0].Payload.Name)
	assert.Equal(t, "b", service.createdItems[1].Payload.Name)
	assert.Equal(t, []string{"Beach", "Summer"}, service.createdDefaults.Tags)

	// Uploaded files were staged into the shared storage area
	for _, it := range service.createdItems {
		_, err := os.Stat(it.SourcePath)
		assert.NoError(t, err)
	}
}

func TestDirectUpload_SingleTagValue(t *testing.T) {
	h, service, _ := newTestHandler(t)
	r := newRouter(h)

	req := multipartRequest(t, "/api/import/upload",
		[]filePart{{field: "images", filename: "a.png", content: []byte("one")}},
		map[string]string{"type": "TOP", "category": "C", "color": "Red", "tags": "Beach"})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"Beach"}, service.createdDefaults.Tags)
}

func TestCSVImport_MissingFiles(t *testing.T) {
	h, _, _ := newTestHandler(t)
	r := newRouter(h)

	req := multipartRequest(t, "/api/import/csv",
		[]filePart{{field: "csv", filename: "m.csv", content: []byte("filename\na.png\n")}},
		nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "CSV and ZIP files are required", decodeBody(t, rec)["error"])
}

func TestCSVImport_ParseFailure(t *testing.T) {
	h, _, _ := newTestHandler(t)
	r := newRouter(h)

	req := multipartRequest(t, "/api/import/csv",
		[]filePart{
			{field: "csv", filename: "m.csv", content: []byte("filename,name\na.png,\"broken\n")},
			{field: "zip", filename: "z.zip", content: zipBytes(t, map[string][]byte{"a.png": []byte("x")})},
		},
		nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "CSV parse failed", body["error"])
	assert.NotEmpty(t, body["details"])
}

func TestCSVImport_NoDataRows(t *testing.T) {
	h, _, _ := newTestHandler(t)
	r := newRouter(h)

	req := multipartRequest(t, "/api/import/csv",
		[]filePart{
			{field: "csv", filename: "m.csv", content: []byte("filename,name\n")},
			{field: "zip", filename: "z.zip", content: zipBytes(t, map[string][]byte{"a.png": []byte("x")})},
		},
		nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "CSV contains no data rows", decodeBody(t, rec)["error"])
}

func TestCSVImport_EmptyArchive(t *testing.T) {
	h, _, _ := newTestHandler(t)
	r := newRouter(h)

	req := multipartRequest(t, "/api/import/csv",
		[]filePart{
			{field: "csv", filename: "m.csv", content: []byte("filename\na.png\n")},
			{field: "zip", filename: "z.zip", content: zipBytes(t, map[string][]byte{})},
		},
		nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "ZIP contains no files", decodeBody(t, rec)["error"])
}

func TestCSVImport_Success(t *testing.T) {
	h, service, dir := newTestHandler(t)
	r := newRouter(h)

	req := multipartRequest(t, "/api/import/csv",
		[]filePart{
			{field: "csv", filename: "m.csv", content: []byte("filename,type\nshirt.png,BOTTOM\n")},
			{field: "zip", filename: "z.zip", content: zipBytes(t, map[string][]byte{"shirt.png": []byte("img")})},
		},
		map[string]string{"type": "TOP", "category": "Imported", "color": "Red"})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.EqualValues(t, 1, body["total"])

	require.Len(t, service.createdItems, 1)
	assert.Equal(t, "BOTTOM", service.createdItems[0].Payload.Type, "row value overrides the default")

	// Temp CSV/ZIP uploads are cleaned up; only the extracted source remains
	leftovers, err := filepath.Glob(filepath.Join(dir, "*"))
	require.NoError(t, err)
	for _, f := range leftovers {
		assert.False(t, strings.HasSuffix(f, ".csv"), "uploaded CSV must be removed")
		assert.False(t, strings.HasSuffix(f, ".zip"), "uploaded ZIP must be removed")
	}
}

func TestJobStatus_NotFound(t *testing.T) {
	h, _, _ := newTestHandler(t)
	r := newRouter(h)

	req := httptest.NewRequest(http.MethodGet, "/api/import/jobs/"+uuid.New().String(), nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Import job not found", decodeBody(t, rec)["error"])
}

func TestJobStatus_Found(t *testing.T) {
	h, service, _ := newTestHandler(t)
	r := newRouter(h)

	jobID := uuid.New().String()
	service.getJobFunc = func(id string) (importer.JobSnapshot, bool) {
		if id != jobID {
			return importer.JobSnapshot{}, false
		}
		return importer.JobSnapshot{
			ID:        jobID,
			Status:    importer.JobCompleted,
			Total:     2,
			Completed: 1,
			Failed:    1,
			Items: []importer.ItemSnapshot{
				{ID: "i1", Filename: "a.png", Status: importer.ItemCompleted, ItemID: "c1", ImageURL: "/images/x.jpg"},
				{ID: "i2", Filename: "b.png", Status: importer.ItemFailed, Error: "Duplicate image detected."},
			},
		}, true
	}

	req := httptest.NewRequest(http.MethodGet, "/api/import/jobs/"+jobID, nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, jobID, body["id"])
	assert.Equal(t, "completed", body["status"])

	items := body["items"].([]interface{})
	require.Len(t, items, 2)
	failed := items[1].(map[string]interface{})
	assert.Equal(t, "Duplicate image detected.", failed["error"])
	_, hasItemID := failed["itemId"]
	assert.False(t, hasItemID, "terminal failed entries carry an error, not an item id")
}
