package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/Daskott/famtree/server/models"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorded struct {
	method        string
	path          string
	query         string
	authorization string
	language      string
	contentType   string
	body          string
}

type recorder struct {
	mu   sync.Mutex
	last recorded
}

func (r *recorder) get() recorded {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

func writeEnvelope(w http.ResponseWriter, status int, data interface{}, errs ...string) {
	if errs == nil {
		errs = []string{}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{"errors": errs, "success": status < 400, "data": data})
}

func newTestServer(t *testing.T, rec *recorder) *httptest.Server {
	t.Helper()
	router := mux.NewRouter()

	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, _ := io.ReadAll(r.Body)
			rec.mu.Lock()
			rec.last = recorded{
				method:        r.Method,
				path:          r.URL.Path,
				query:         r.URL.RawQuery,
				authorization: r.Header.Get("Authorization"),
				language:      r.Header.Get("Accept-Language"),
				contentType:   r.Header.Get("Content-Type"),
				body:          string(body),
			}
			rec.mu.Unlock()
			r.Body = io.NopCloser(strings.NewReader(string(body)))
			next.ServeHTTP(w, r)
		})
	})

	api := router.PathPrefix(API_PREFIX).Subrouter()
	api.HandleFunc("/members", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusOK, map[string]interface{}{
			"items":  []models.Member{{FirstName: "Ada"}, {FirstName: "Eric"}},
			"paging": models.Paging{Total: 12, Page: 2, Pages: 6, ItemsPerPage: 2},
		})
	}).Methods(http.MethodGet)

	api.HandleFunc("/members", func(w http.ResponseWriter, r *http.Request) {
		member := models.Member{}
		json.NewDecoder(r.Body).Decode(&member)
		member.ID = 7
		writeEnvelope(w, http.StatusCreated, member)
	}).Methods(http.MethodPost)

	api.HandleFunc("/members/{id}", func(w http.ResponseWriter, r *http.Request) {
		if mux.Vars(r)["id"] != "7" {
			writeEnvelope(w, http.StatusNotFound, nil, "record not found")
			return
		}
		member := models.Member{FirstName: "Ada"}
		if r.Method == http.MethodPut {
			json.NewDecoder(r.Body).Decode(&member)
		}
		member.ID = 7
		writeEnvelope(w, http.StatusOK, member)
	}).Methods(http.MethodGet, http.MethodPut)

	api.HandleFunc("/members/{id}", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusOK, map[string]string{"message": "deleted"})
	}).Methods(http.MethodDelete)

	api.HandleFunc("/families", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusBadRequest, nil, "name is required", "visibility is invalid")
	}).Methods(http.MethodPost)

	api.HandleFunc("/families/{id}/tree", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusOK, models.FamilyTree{
			Family:  models.Family{Name: "Okafor"},
			Members: []models.Member{{FirstName: "Ada"}},
		})
	}).Methods(http.MethodGet)

	api.HandleFunc("/family-media", func(w http.ResponseWriter, r *http.Request) {
		file, header, err := r.FormFile("file")
		if err != nil {
			writeEnvelope(w, http.StatusBadRequest, nil, "file is required")
			return
		}
		defer file.Close()
		content, _ := io.ReadAll(file)

		writeEnvelope(w, http.StatusCreated, models.FamilyMedia{
			FileName:    header.Filename,
			Description: r.FormValue("description") + ":" + r.FormValue("family_id"),
			FileSize:    int64(len(content)),
		})
	}).Methods(http.MethodPost)

	api.HandleFunc("/family-media/{id}/content", func(w http.ResponseWriter, r *http.Request) {
		if mux.Vars(r)["id"] != "3" {
			writeEnvelope(w, http.StatusNotFound, nil, "record not found")
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte("png-bytes"))
	}).Methods(http.MethodGet)

	api.HandleFunc("/events", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("<html>bad gateway</html>"))
	})

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server
}

func TestSearch(t *testing.T) {
	rec := &recorder{}
	server := newTestServer(t, rec)
	c := New(server.URL+"/", WithToken("secret"), WithLanguage("vi"))

	list, err := c.Members.Search(context.Background(), models.ListOptions{
		Page:         2,
		ItemsPerPage: 2,
		SortBy:       "first_name:asc",
		Search:       "ad",
		Filters:      map[string]string{"family_id": "1", "gender": ""},
	})
	require.Nil(t, err)

	assert.Len(t, list.Items, 2)
	assert.Equal(t, "Eric", list.Items[1].FirstName)
	assert.Equal(t, models.Paging{Total: 12, Page: 2, Pages: 6, ItemsPerPage: 2}, list.Paging)

	assert.Equal(t, "/api/v1/members", rec.get().path)
	assert.Equal(t, "family_id=1&items_per_page=2&page=2&search=ad&sort_by=first_name%3Aasc", rec.get().query)
	assert.Equal(t, "Bearer secret", rec.get().authorization)
	assert.Equal(t, "vi", rec.get().language)
}

func TestFiltersCannotOverrideListOptions(t *testing.T) {
	rec := &recorder{}
	server := newTestServer(t, rec)

	_, err := New(server.URL).Members.Search(context.Background(), models.ListOptions{
		Page:    2,
		Search:  "ad",
		Filters: map[string]string{"page": "9", "search": "zz", "sort_by": "id", "items_per_page": "99", "gender": "female"},
	})
	require.Nil(t, err)

	assert.Equal(t, "gender=female&page=2&search=ad", rec.get().query)
}

func TestCrud(t *testing.T) {
	rec := &recorder{}
	server := newTestServer(t, rec)
	c := New(server.URL)
	ctx := context.Background()

	created, err := c.Members.Add(ctx, &models.Member{FirstName: "Ada", FamilyID: 1})
	require.Nil(t, err)
	assert.Equal(t, uint(7), created.ID)
	assert.Equal(t, "application/json", rec.get().contentType)
	assert.Contains(t, rec.get().body, `"first_name":"Ada"`)
	assert.Empty(t, rec.get().authorization)

	found, err := c.Members.GetByID(ctx, 7)
	require.Nil(t, err)
	assert.Equal(t, "Ada", found.FirstName)

	updated, err := c.Members.Update(ctx, 7, &models.Member{FirstName: "Adaeze"})
	require.Nil(t, err)
	assert.Equal(t, http.MethodPut, rec.get().method)
	assert.Equal(t, "Adaeze", updated.FirstName)

	err = c.Members.Delete(ctx, 7)
	require.Nil(t, err)
	assert.Equal(t, http.MethodDelete, rec.get().method)
	assert.Equal(t, "/api/v1/members/7", rec.get().path)
}

func TestAPIErrors(t *testing.T) {
	rec := &recorder{}
	server := newTestServer(t, rec)
	c := New(server.URL)
	ctx := context.Background()

	_, err := c.Members.GetByID(ctx, 8)
	apiErr := &APIError{}
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, "record not found", apiErr.Message)

	_, err = c.Families.Add(ctx, &models.Family{})
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "name is required; visibility is invalid", apiErr.Message)
	assert.Equal(t, []string{"name is required", "visibility is invalid"}, apiErr.Errors)

	// bodies that are not an envelope still surface the status
	_, err = c.Events.Search(ctx, models.ListOptions{})
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
	assert.Empty(t, apiErr.Message)
	assert.Equal(t, "famtree api: 502 Bad Gateway", apiErr.Error())
}

func TestTransportError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	server.Close()

	_, err := New(server.URL).Members.GetByID(context.Background(), 1)
	require.NotNil(t, err)

	apiErr := &APIError{}
	assert.False(t, errors.As(err, &apiErr))
}

func TestFamilyTree(t *testing.T) {
	rec := &recorder{}
	server := newTestServer(t, rec)

	tree, err := New(server.URL).Families.Tree(context.Background(), 4)
	require.Nil(t, err)

	assert.Equal(t, "/api/v1/families/4/tree", rec.get().path)
	assert.Equal(t, "Okafor", tree.Family.Name)
	assert.Len(t, tree.Members, 1)
}

func TestMediaUploadAndContent(t *testing.T) {
	rec := &recorder{}
	server := newTestServer(t, rec)
	c := New(server.URL)
	ctx := context.Background()

	media, err := c.FamilyMedia.Upload(ctx, 5, "wedding.png", "the wedding", strings.NewReader("png-bytes"))
	require.Nil(t, err)
	assert.Equal(t, "wedding.png", media.FileName)
	assert.Equal(t, "the wedding:5", media.Description)
	assert.Equal(t, int64(9), media.FileSize)
	assert.True(t, strings.HasPrefix(rec.get().contentType, "multipart/form-data"))

	content, err := c.FamilyMedia.Content(ctx, 3)
	require.Nil(t, err)
	defer content.Close()

	b, _ := io.ReadAll(content)
	assert.Equal(t, "png-bytes", string(b))

	_, err = c.FamilyMedia.Content(ctx, 4)
	apiErr := &APIError{}
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
}
