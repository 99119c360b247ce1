package server

import (
	"encoding/json"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Daskott/famtree/server/auth/key"
	"github.com/Daskott/famtree/server/events"
	"github.com/Daskott/famtree/server/models"
	"github.com/go-playground/validator"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

const MAX_UPLOAD_SIZE = 32 << 20

type ResponsePayload struct {
	Errors  []string    `json:"errors"`
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
}

type PageData struct {
	Items  interface{}    `json:"items"`
	Paging *models.Paging `json:"paging"`
}

var validate = validator.New()

type resourceOptions struct {
	skipCreate bool
}

// resourceHandlers serves list/detail/create/update/delete for one entity.
type resourceHandlers[T models.Resource] struct {
	app    *App
	entity string
}

func registerResource[T models.Resource](router *mux.Router, app *App, path, entity string, opts resourceOptions) {
	h := resourceHandlers[T]{app: app, entity: entity}

	router.HandleFunc(path, h.list).Methods("GET")
	router.HandleFunc(path+"/{id}", h.find).Methods("GET")
	router.HandleFunc(path+"/{id}", h.update).Methods("PUT")
	router.HandleFunc(path+"/{id}", h.delete).Methods("DELETE")

	if !opts.skipCreate {
		router.HandleFunc(path, h.create).Methods("POST")
	}
}

func (h resourceHandlers[T]) list(rw http.ResponseWriter, r *http.Request) {
	items, paging, err := models.FetchPage[T](r.Context(), listOptionsFromQuery(r))
	if err != nil {
		writeError(rw, r, err)
		return
	}

	writeResponse(rw, ResponsePayload{Data: PageData{Items: items, Paging: paging}}, http.StatusOK)
}

func (h resourceHandlers[T]) find(rw http.ResponseWriter, r *http.Request) {
	id, ok := idFromPath(r)
	if !ok {
		writeMessage(rw, r, "api.errors.invalid_id", http.StatusBadRequest)
		return
	}

	item, err := models.FindByID[T](r.Context(), id)
	if err != nil {
		writeError(rw, r, err)
		return
	}

	writeResponse(rw, ResponsePayload{Data: item}, http.StatusOK)
}

func (h resourceHandlers[T]) create(rw http.ResponseWriter, r *http.Request) {
	item, ok := h.decode(rw, r)
	if !ok {
		return
	}

	err := models.Create(r.Context(), item)
	if err != nil {
		writeError(rw, r, err)
		return
	}

	created, err := models.FindByID[T](r.Context(), recordID(item))
	if err != nil {
		writeError(rw, r, err)
		return
	}

	h.app.publish(r.Context(), h.entity, events.CREATED_ACTION, recordID(created), created)
	writeResponse(rw, ResponsePayload{Data: created}, http.StatusCreated)
}

func (h resourceHandlers[T]) update(rw http.ResponseWriter, r *http.Request) {
	id, ok := idFromPath(r)
	if !ok {
		writeMessage(rw, r, "api.errors.invalid_id", http.StatusBadRequest)
		return
	}

	item, ok := h.decode(rw, r)
	if !ok {
		return
	}

	err := models.Update(r.Context(), id, item)
	if err != nil {
		writeError(rw, r, err)
		return
	}

	updated, err := models.FindByID[T](r.Context(), id)
	if err != nil {
		writeError(rw, r, err)
		return
	}

	h.app.publish(r.Context(), h.entity, events.UPDATED_ACTION, id, updated)
	writeResponse(rw, ResponsePayload{Data: updated}, http.StatusOK)
}

func (h resourceHandlers[T]) delete(rw http.ResponseWriter, r *http.Request) {
	id, ok := idFromPath(r)
	if !ok {
		writeMessage(rw, r, "api.errors.invalid_id", http.StatusBadRequest)
		return
	}

	err := models.Delete[T](r.Context(), id)
	if err != nil {
		writeError(rw, r, err)
		return
	}

	h.app.publish(r.Context(), h.entity, events.DELETED_ACTION, id, nil)
	writeResponse(rw, ResponsePayload{}, http.StatusOK)
}

func (h resourceHandlers[T]) decode(rw http.ResponseWriter, r *http.Request) (*T, bool) {
	item := new(T)

	err := json.NewDecoder(r.Body).Decode(item)
	if err != nil {
		writeMessage(rw, r, "api.errors.invalid_body", http.StatusBadRequest)
		return nil, false
	}

	err = validate.Struct(item)
	if err != nil {
		writeError(rw, r, err)
		return nil, false
	}

	return item, true
}

// uploadFamilyMedia stores a multipart 'file' in the blob store and records it.
func (app *App) uploadFamilyMedia(rw http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(rw, r.Body, MAX_UPLOAD_SIZE)
	if err := r.ParseMultipartForm(MAX_UPLOAD_SIZE); err != nil {
		writeMessage(rw, r, "api.errors.invalid_body", http.StatusBadRequest)
		return
	}

	familyID, err := strconv.ParseUint(r.FormValue("family_id"), 10, 64)
	if err != nil || familyID == 0 {
		writeMessage(rw, r, "api.errors.invalid_id", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeMessage(rw, r, "api.errors.file_required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	mimeType := header.Header.Get("Content-Type")
	media := &models.FamilyMedia{
		FamilyID:    uint(familyID),
		FileName:    header.Filename,
		MimeType:    mimeType,
		MediaType:   models.MediaTypeFromMime(mimeType),
		FileSize:    header.Size,
		Description: r.FormValue("description"),
		StorageKey:  mediaKey(uint(familyID), header.Filename),
	}

	if err = validate.Struct(media); err != nil {
		writeError(rw, r, err)
		return
	}

	err = app.blobs.Put(r.Context(), media.StorageKey, file, mimeType)
	if err != nil {
		writeError(rw, r, err)
		return
	}

	err = models.Create(r.Context(), media)
	if err != nil {
		// the record is the only way to reach the blob, drop it
		if delErr := app.blobs.Delete(r.Context(), media.StorageKey); delErr != nil {
			logg.Errorf("unable to remove orphaned blob %v: %v", media.StorageKey, delErr)
		}
		writeError(rw, r, err)
		return
	}

	app.publish(r.Context(), "family_media", events.CREATED_ACTION, media.ID, media)
	writeResponse(rw, ResponsePayload{Data: media}, http.StatusCreated)
}

func (app *App) familyMediaContent(rw http.ResponseWriter, r *http.Request) {
	id, ok := idFromPath(r)
	if !ok {
		writeMessage(rw, r, "api.errors.invalid_id", http.StatusBadRequest)
		return
	}

	media, err := models.FindByID[models.FamilyMedia](r.Context(), id)
	if err != nil {
		writeError(rw, r, err)
		return
	}

	content, err := app.blobs.Get(r.Context(), media.StorageKey)
	if err != nil {
		writeError(rw, r, err)
		return
	}
	defer content.Close()

	contentType := media.MimeType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	rw.Header().Set("Content-Type", contentType)
	rw.Header().Set("Content-Disposition", "inline; filename=\""+strings.ReplaceAll(media.FileName, "\"", "")+"\"")
	rw.WriteHeader(http.StatusOK)

	if _, err = io.Copy(rw, content); err != nil {
		logg.Errorf("stream family media id=%v: %v", id, err)
	}
}

func familyTree(rw http.ResponseWriter, r *http.Request) {
	id, ok := idFromPath(r)
	if !ok {
		writeMessage(rw, r, "api.errors.invalid_id", http.StatusBadRequest)
		return
	}

	tree, err := models.FindFamilyTree(r.Context(), id)
	if err != nil {
		writeError(rw, r, err)
		return
	}

	writeResponse(rw, ResponsePayload{Data: tree}, http.StatusOK)
}

func fetchJobs(rw http.ResponseWriter, r *http.Request) {
	var jobs []models.Job
	var paging *models.Paging
	var err error

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	status := r.URL.Query().Get("status")

	if status != "" && !models.IsJobStatus(status) {
		writeResponse(rw, ResponsePayload{Errors: []string{"unknown job status " + status}}, http.StatusBadRequest)
		return
	}

	if status != "" {
		jobs, paging, err = models.FetchJobsByStatus(status, page)
	} else {
		jobs, paging, err = models.FetchJobs(page)
	}

	if err != nil {
		writeError(rw, r, err)
		return
	}

	writeResponse(rw, ResponsePayload{Data: PageData{Items: jobs, Paging: paging}}, http.StatusOK)
}

func jobsStats(rw http.ResponseWriter, r *http.Request) {
	stats, err := models.CurrentJobsStats()
	if err != nil {
		writeError(rw, r, err)
		return
	}

	writeResponse(rw, ResponsePayload{Data: stats}, http.StatusOK)
}

func healthz(rw http.ResponseWriter, r *http.Request) {
	rw.Header().Set("Content-Type", "application/json")

	sqlDB, err := models.DB().DB()
	if err == nil {
		err = sqlDB.PingContext(r.Context())
	}

	if err != nil {
		logg.Error(err)
		writeResponse(rw, ResponsePayload{Errors: []string{"database unavailable"}}, http.StatusServiceUnavailable)
		return
	}

	writeResponse(rw, ResponsePayload{Data: map[string]string{"status": "ok"}}, http.StatusOK)
}

func (app *App) jwks(rw http.ResponseWriter, r *http.Request) {
	rw.Header().Set("Content-Type", "application/json")

	jwk, err := app.keyPair.JWK()
	if err != nil {
		writeError(rw, r, err)
		return
	}

	json.NewEncoder(rw).Encode(key.ExportJWKAsJWKS(jwk))
}

func notFound(rw http.ResponseWriter, r *http.Request) {
	rw.Header().Set("Content-Type", "application/json")
	writeMessage(rw, r, "api.errors.not_found", http.StatusNotFound)
}

// ---------------------------------------------------------------------------------//
// Helper functions
// --------------------------------------------------------------------------------//

// mediaKey returns families/{familyID}/{uuid}{ext}.
func mediaKey(familyID uint, fileName string) string {
	ext := strings.ToLower(filepath.Ext(fileName))
	return "families/" + strconv.FormatUint(uint64(familyID), 10) + "/" + uuid.NewString() + ext
}

// recordID reads the primary key of any entity embedding models.BaseModel.
func recordID(item interface{}) uint {
	if identified, ok := item.(interface{ GetID() uint }); ok {
		return identified.GetID()
	}
	return 0
}
