package importer

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Fixed per-entry resolution and processing error messages. These are part of
// the external contract: clients display them verbatim.
const (
	MsgMissingFilename  = "Missing filename in CSV."
	MsgMissingRowFields = "Missing type, category, or color for this row."
	MsgFileNotInArchive = "File not found in ZIP."
	MsgDuplicateImage   = "Duplicate image detected."
)

// Request-rejection errors. These abort the request before a job exists.
var (
	ErrNoImages        = errors.New("No images uploaded")
	ErrMissingDefaults = errors.New("Type, category, and color are required")
	ErrNoDataRows      = errors.New("CSV contains no data rows")
	ErrEmptyArchive    = errors.New("ZIP contains no files")
	ErrQueueFull       = errors.New("import queue is full")
)

// CSVParseError rejects a request whose manifest could not be parsed
type CSVParseError struct {
	Details []string
}

func (e *CSVParseError) Error() string { return "CSV parse failed" }

// SourceStore stores entry source files extracted during manifest resolution
type SourceStore interface {
	Save(r io.Reader, ext string) (string, error)
	Path(name string) (string, error)
}

// SourceFile is one uploaded image already written to the shared storage area
type SourceFile struct {
	Filename string // original upload filename
	Path     string // absolute path on disk
}

// ResolveDirectUpload builds the manifest for a direct multi-file upload:
// one entry per file, name derived from the filename, every other field from
// the shared defaults. Type, category and color are required.
func ResolveDirectUpload(files []SourceFile, defaults Defaults) ([]*JobItem, error) {
	if len(files) == 0 {
		return nil, ErrNoImages
	}
	if !defaults.HasRequired() {
		return nil, ErrMissingDefaults
	}

	items := make([]*JobItem, 0, len(files))
	for _, f := range files {
		items = append(items, &JobItem{
			ID:         uuid.New().String(),
			Filename:   f.Filename,
			Status:     ItemQueued,
			SourcePath: f.Path,
			Payload: Payload{
				Name:     stem(f.Filename),
				Type:     defaults.Type,
				Category: defaults.Category,
				Color:    defaults.Color,
				Brand:    defaults.Brand,
				Size:     defaults.Size,
				Material: defaults.Material,
				Notes:    defaults.Notes,
				Tags:     defaults.Tags,
			},
		})
	}
	return items, nil
}

// ResolveCSVArchive builds the manifest from a CSV file and a ZIP archive of
// images. Every data row becomes exactly one entry, in row order; rows that
// fail resolution are pre-marked failed with a fixed message but still join
// the job. Matched archive entries are extracted into store.
func ResolveCSVArchive(csvPath, archivePath string, defaults Defaults, store SourceStore) ([]*JobItem, error) {
	rows, err := readManifest(csvPath)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNoDataRows
	}

	index, closeArchive, err := indexArchive(archivePath)
	if err != nil {
		return nil, err
	}
	defer closeArchive()

	items := make([]*JobItem, 0, len(rows))
	for i, row := range rows {
		items = append(items, resolveRow(i+1, row, defaults, index, store))
	}
	return items, nil
}

// resolveRow turns one CSV row into a job item, pre-failing it on the first
// unmet requirement: filename present, type/category/color resolvable, file
// present in the archive.
func resolveRow(position int, row manifestRow, defaults Defaults, index *archiveIndex, store SourceStore) *JobItem {
	filename := row.first("filename", "file", "image")

	name := row.first("name")
	if name == "" {
		name = stem(filename)
	}
	if name == "" {
		name = fmt.Sprintf("Item %d", position)
	}

	payload := Payload{
		Name:     name,
		Type:     row.firstOr(defaults.Type, "type"),
		Category: row.firstOr(defaults.Category, "category"),
		Color:    row.firstOr(defaults.Color, "color"),
		Brand:    row.firstOr(defaults.Brand, "brand"),
		Size:     row.firstOr(defaults.Size, "size"),
		Material: row.firstOr(defaults.Material, "material"),
		Notes:    row.firstOr(defaults.Notes, "notes"),
		Tags:     defaults.Tags,
	}
	if tags := row.first("tags"); tags != "" {
		payload.Tags = splitTags(tags)
	}

	item := &JobItem{
		ID:       uuid.New().String(),
		Filename: filename,
		Status:   ItemQueued,
		Payload:  payload,
	}

	fail := func(msg string) *JobItem {
		item.Status = ItemFailed
		item.Error = msg
		return item
	}

	if filename == "" {
		return fail(MsgMissingFilename)
	}
	if payload.Type == "" || payload.Category == "" || payload.Color == "" {
		return fail(MsgMissingRowFields)
	}

	entry, ok := index.lookup(filename)
	if !ok {
		return fail(MsgFileNotInArchive)
	}

	path, err := extractEntry(entry, store)
	if err != nil {
		return fail(err.Error())
	}
	item.SourcePath = path
	return item
}

// extractEntry copies one archive entry into the shared storage area
func extractEntry(entry *zip.File, store SourceStore) (string, error) {
	rc, err := entry.Open()
	if err != nil {
		return "", fmt.Errorf("failed to read archive entry: %w", err)
	}
	defer rc.Close()

	name, err := store.Save(rc, filepath.Ext(entry.Name))
	if err != nil {
		return "", fmt.Errorf("failed to extract archive entry: %w", err)
	}

	return store.Path(name)
}

// archiveIndex maps archive entry filenames to entries, case-insensitively
// with an extension-insensitive fallback.
type archiveIndex struct {
	byBase map[string]*zip.File
	byStem map[string]*zip.File
}

func indexArchive(archivePath string) (*archiveIndex, func() error, error) {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open archive: %w", err)
	}

	index := &archiveIndex{
		byBase: make(map[string]*zip.File),
		byStem: make(map[string]*zip.File),
	}
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		base := strings.ToLower(filepath.Base(f.Name))
		if _, seen := index.byBase[base]; !seen {
			index.byBase[base] = f
		}
		st := stem(base)
		if _, seen := index.byStem[st]; !seen {
			index.byStem[st] = f
		}
	}

	if len(index.byBase) == 0 {
		zr.Close()
		return nil, nil, ErrEmptyArchive
	}

	return index, zr.Close, nil
}

// lookup matches first on exact base filename, then on the filename with its
// extension stripped (so "photo.jpg" in the CSV finds "photo.png" in the ZIP).
func (ix *archiveIndex) lookup(filename string) (*zip.File, bool) {
	base := strings.ToLower(filepath.Base(filename))
	if f, ok := ix.byBase[base]; ok {
		return f, true
	}
	if f, ok := ix.byStem[stem(base)]; ok {
		return f, true
	}
	return nil, false
}

// stem returns the base filename without its extension
func stem(filename string) string {
	base := filepath.Base(filename)
	if base == "." || base == string(filepath.Separator) {
		return ""
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// splitTags parses a comma-separated tag list, dropping empty tokens
func splitTags(s string) []string {
	var tags []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
