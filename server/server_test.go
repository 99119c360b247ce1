package server

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	devconfig "github.com/Daskott/famtree/dev/config"
	"github.com/Daskott/famtree/server/auth"
	"github.com/Daskott/famtree/server/auth/key"
	"github.com/Daskott/famtree/server/blob"
	"github.com/Daskott/famtree/server/events"
	"github.com/Daskott/famtree/server/metrics"
	"github.com/Daskott/famtree/server/models"
	"github.com/golang-jwt/jwt"
	"github.com/gorilla/mux"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testResponse struct {
	Errors  []string        `json:"errors"`
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
}

type testEnv struct {
	router    *mux.Router
	app       *App
	publisher *events.RecordingPublisher
	blobs     *blob.LocalStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	models.InitializeTestDb()

	blobs, err := blob.NewLocalStore(t.TempDir())
	require.Nil(t, err)

	publisher := &events.RecordingPublisher{}
	app := &App{blobs: blobs, publisher: publisher, metrics: metrics.New()}

	return &testEnv{router: newRouter(app), app: app, publisher: publisher, blobs: blobs}
}

func (env *testEnv) do(t *testing.T, method, path string, body interface{}, headers map[string]string) (int, testResponse) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.Nil(t, err)
		reader = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, path, reader)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	res := testResponse{}
	require.Nil(t, json.Unmarshal(rec.Body.Bytes(), &res), rec.Body.String())
	return rec.Code, res
}

func TestFamilyCrud(t *testing.T) {
	env := newTestEnv(t)

	status, res := env.do(t, "POST", "/api/v1/families", map[string]interface{}{"name": "Stark", "id": 99}, nil)
	require.Equal(t, http.StatusCreated, status, res.Errors)
	assert.True(t, res.Success)

	created := models.Family{}
	require.Nil(t, json.Unmarshal(res.Data, &created))
	assert.Equal(t, uint(1), created.ID, "client supplied ids are ignored")
	assert.Equal(t, models.PRIVATE_VISIBILITY, created.Visibility)
	assert.Equal(t, models.SYSTEM_ACTOR, created.CreatedBy)

	env.do(t, "POST", "/api/v1/families", map[string]interface{}{"name": "Lannister"}, nil)

	status, res = env.do(t, "GET", "/api/v1/families?items_per_page=1&sort_by=name", nil, nil)
	require.Equal(t, http.StatusOK, status)

	page := struct {
		Items  []models.Family `json:"items"`
		Paging models.Paging   `json:"paging"`
	}{}
	require.Nil(t, json.Unmarshal(res.Data, &page))
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Lannister", page.Items[0].Name)
	assert.Equal(t, int64(2), page.Paging.Total)
	assert.Equal(t, int64(2), page.Paging.Pages)

	status, res = env.do(t, "PUT", "/api/v1/families/1",
		map[string]interface{}{"name": "Stark of Winterfell", "visibility": "public"}, nil)
	require.Equal(t, http.StatusOK, status, res.Errors)

	updated := models.Family{}
	require.Nil(t, json.Unmarshal(res.Data, &updated))
	assert.Equal(t, "Stark of Winterfell", updated.Name)
	assert.Equal(t, models.PUBLIC_VISIBILITY, updated.Visibility)

	status, _ = env.do(t, "DELETE", "/api/v1/families/1", nil, nil)
	assert.Equal(t, http.StatusOK, status)

	status, res = env.do(t, "GET", "/api/v1/families/1", nil, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, []string{"record not found"}, res.Errors)

	status, _ = env.do(t, "DELETE", "/api/v1/families/1", nil, nil)
	assert.Equal(t, http.StatusNotFound, status)

	types := []string{}
	for _, event := range env.publisher.Events() {
		types = append(types, event.Type)
	}
	assert.Equal(t, []string{"family.created", "family.created", "family.updated", "family.deleted"}, types)
}

func TestRequestErrors(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, "POST", "/api/v1/families", map[string]interface{}{"name": "Stark"}, nil)

	cases := []struct {
		description    string
		method         string
		path           string
		body           interface{}
		headers        map[string]string
		expectedStatus int
		expectedError  string
	}{
		{
			description:    "missing required field",
			method:         "POST",
			path:           "/api/v1/members",
			body:           map[string]interface{}{"family_id": 1, "last_name": "Stark"},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "FirstName",
		},
		{
			description:    "unknown family",
			method:         "POST",
			path:           "/api/v1/members",
			body:           map[string]interface{}{"family_id": 42, "first_name": "Jon", "last_name": "Snow"},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "family_id does not reference an existing record",
		},
		{
			description:    "invalid id",
			method:         "GET",
			path:           "/api/v1/members/abc",
			expectedStatus: http.StatusBadRequest,
			expectedError:  "id must be a positive number",
		},
		{
			description:    "malformed json",
			method:         "POST",
			path:           "/api/v1/events",
			body:           "not an event",
			expectedStatus: http.StatusBadRequest,
			expectedError:  "request body is invalid",
		},
		{
			description:    "localized not found",
			method:         "GET",
			path:           "/api/v1/members/7",
			headers:        map[string]string{"Accept-Language": "vi-VN,vi;q=0.9"},
			expectedStatus: http.StatusNotFound,
			expectedError:  "không tìm thấy bản ghi",
		},
		{
			description:    "unknown route",
			method:         "GET",
			path:           "/api/v1/dragons",
			expectedStatus: http.StatusNotFound,
			expectedError:  "record not found",
		},
	}

	for _, tcase := range cases {
		t.Run(tcase.description, func(t *testing.T) {
			status, res := env.do(t, tcase.method, tcase.path, tcase.body, tcase.headers)
			assert.Equal(t, tcase.expectedStatus, status)
			assert.False(t, res.Success)
			require.NotEmpty(t, res.Errors)
			assert.Contains(t, strings.Join(res.Errors, "\n"), tcase.expectedError)
		})
	}
}

func TestFamilyTree(t *testing.T) {
	env := newTestEnv(t)

	env.do(t, "POST", "/api/v1/families", map[string]interface{}{"name": "Stark"}, nil)
	env.do(t, "POST", "/api/v1/members", map[string]interface{}{"family_id": 1, "first_name": "Eddard", "last_name": "Stark"}, nil)
	env.do(t, "POST", "/api/v1/members", map[string]interface{}{"family_id": 1, "first_name": "Bran", "last_name": "Stark"}, nil)
	status, res := env.do(t, "POST", "/api/v1/relationships", map[string]interface{}{
		"family_id": 1, "source_member_id": 1, "target_member_id": 2, "type": "father"}, nil)
	require.Equal(t, http.StatusCreated, status, res.Errors)

	status, res = env.do(t, "GET", "/api/v1/families/1/tree", nil, nil)
	require.Equal(t, http.StatusOK, status)

	tree := models.FamilyTree{}
	require.Nil(t, json.Unmarshal(res.Data, &tree))
	assert.Equal(t, "Stark", tree.Family.Name)
	assert.Len(t, tree.Members, 2)
	assert.Len(t, tree.Relationships, 1)
}

func TestFamilyMediaUpload(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, "POST", "/api/v1/families", map[string]interface{}{"name": "Stark"}, nil)

	upload := func(familyID string) *httptest.ResponseRecorder {
		body := &bytes.Buffer{}
		writer := multipart.NewWriter(body)
		writer.WriteField("family_id", familyID)
		writer.WriteField("description", "Winterfell in winter")

		part, err := writer.CreateFormFile("file", "winterfell.PNG")
		require.Nil(t, err)
		part.Write([]byte("png bytes"))
		require.Nil(t, writer.Close())

		req := httptest.NewRequest("POST", "/api/v1/family-media", body)
		req.Header.Set("Content-Type", writer.FormDataContentType())

		rec := httptest.NewRecorder()
		env.router.ServeHTTP(rec, req)
		return rec
	}

	rec := upload("1")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	res := testResponse{}
	require.Nil(t, json.Unmarshal(rec.Body.Bytes(), &res))
	media := models.FamilyMedia{}
	require.Nil(t, json.Unmarshal(res.Data, &media))
	assert.Equal(t, "winterfell.PNG", media.FileName)
	assert.Equal(t, int64(len("png bytes")), media.FileSize)
	assert.Regexp(t, `^families/1/[0-9a-f-]{36}\.png$`, media.StorageKey)

	req := httptest.NewRequest("GET", "/api/v1/family-media/1/content", nil)
	contentRec := httptest.NewRecorder()
	env.router.ServeHTTP(contentRec, req)
	assert.Equal(t, http.StatusOK, contentRec.Code)
	assert.Equal(t, "png bytes", contentRec.Body.String())

	// soft deleting the record keeps the blob
	status, _ := env.do(t, "DELETE", "/api/v1/family-media/1", nil, nil)
	require.Equal(t, http.StatusOK, status)
	_, err := env.blobs.Get(req.Context(), media.StorageKey)
	assert.Nil(t, err)

	// unknown family, the blob must not be left behind
	rec = upload("404")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func newTestKeyPair(t *testing.T) *key.KeyPair {
	t.Helper()

	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.Nil(t, err)

	keyPair, err := key.NewKeyPairFromRSAPrivateKeyPem(string(pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(privateKey),
	})))
	require.Nil(t, err)
	return keyPair
}

func bearer(t *testing.T, keyPair *key.KeyPair, subject string, roles ...string) map[string]string {
	t.Helper()

	token, err := auth.EncodeJWT(auth.TokenClaims{
		Roles: roles,
		StandardClaims: jwt.StandardClaims{
			Subject:   subject,
			ExpiresAt: time.Now().Add(time.Hour).Unix(),
		},
	}, keyPair)
	require.Nil(t, err)

	return map[string]string{"Authorization": "Bearer " + token}
}

func TestAuth(t *testing.T) {
	env := newTestEnv(t)
	keyPair := newTestKeyPair(t)
	env.app.keyPair = keyPair
	env.app.verifier = auth.NewLocalVerifier(keyPair, "", "")
	env.router = newRouter(env.app)

	status, res := env.do(t, "GET", "/api/v1/families", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, []string{"no token provided"}, res.Errors)

	status, _ = env.do(t, "GET", "/api/v1/families", nil, map[string]string{"Authorization": "Bearer nope"})
	assert.Equal(t, http.StatusUnauthorized, status)

	status, res = env.do(t, "POST", "/api/v1/families", map[string]interface{}{"name": "Tully"},
		bearer(t, keyPair, "auth0|catelyn"))
	require.Equal(t, http.StatusCreated, status)

	family := models.Family{}
	require.Nil(t, json.Unmarshal(res.Data, &family))
	assert.Equal(t, "auth0|catelyn", family.CreatedBy)
	assert.Equal(t, "auth0|catelyn", env.publisher.Events()[0].Actor)

	status, _ = env.do(t, "GET", "/api/v1/jobs/stats", nil, bearer(t, keyPair, "auth0|catelyn"))
	assert.Equal(t, http.StatusForbidden, status)

	status, res = env.do(t, "GET", "/api/v1/jobs/stats", nil, bearer(t, keyPair, "auth0|maester", auth.ADMIN_ROLE))
	assert.Equal(t, http.StatusOK, status)

	stats := models.JobsStats{}
	require.Nil(t, json.Unmarshal(res.Data, &stats))

	status, _ = env.do(t, "GET", "/api/v1/jobs?status=bogus", nil, bearer(t, keyPair, "auth0|maester", auth.ADMIN_ROLE))
	assert.Equal(t, http.StatusBadRequest, status)

	req := httptest.NewRequest("GET", "/.well-known/jwks.json", nil)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), key.DEFAULT_KEY_ID)
}

func TestHealthzAndMetrics(t *testing.T) {
	env := newTestEnv(t)

	status, res := env.do(t, "GET", "/healthz", nil, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, res.Success)

	env.do(t, "GET", "/api/v1/members/3", nil, nil)

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `famtree_http_requests_total{code="404",method="GET",route="/api/v1/members/{id}"} 1`)
}

func TestLoadServerConfig(t *testing.T) {
	config := viper.New()
	config.SetConfigType("yaml")
	require.Nil(t, config.ReadConfig(strings.NewReader(devconfig.SERVER_YML)))

	serverConfig, err := LoadServerConfig(config)
	require.Nil(t, err)
	assert.Equal(t, 3000, serverConfig.Famtree.Listener.Port)
	assert.Equal(t, "sqlite", serverConfig.Database.Driver)
	assert.Equal(t, "local", serverConfig.Storage.Driver)

	config.Set("database.driver", "oracle")
	_, err = LoadServerConfig(config)
	assert.NotNil(t, err)

	config.Set("database.driver", "sqlite")
	config.Set("auth.enabled", true)
	config.Set("famtree.privateKeyPem", "")
	_, err = LoadServerConfig(config)
	assert.NotNil(t, err, "auth needs a key source")
}
