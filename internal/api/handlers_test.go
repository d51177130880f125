package api

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"playground-mockserver/internal/config"
	"playground-mockserver/internal/logger"
	"playground-mockserver/internal/metrics"
	"playground-mockserver/internal/service"
	"playground-mockserver/internal/store"
)

type testEnv struct {
	handler http.Handler
	dbPath  string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "db.json")
	log := logger.NewWithWriter(false, io.Discard)
	cfg := &config.Config{
		Port:           config.DefaultPort,
		DBPath:         dbPath,
		AllowedOrigins: []string{"*"},
		MaxBodyBytes:   1 << 10,
		ReadTimeout:    time.Second,
		WriteTimeout:   time.Second,
	}
	pg := service.NewPlayground(store.New(dbPath, log), log)
	srv := NewServer(cfg, pg, metrics.NewRecorder(), log)
	return &testEnv{handler: srv.Handler(), dbPath: dbPath}
}

func (e *testEnv) do(t *testing.T, method, path, body string) (int, string) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec.Code, rec.Body.String()
}

func TestExampleScenario(t *testing.T) {
	env := newTestEnv(t)

	code, _ := env.do(t, "POST", "/api/endpoints", `{"resource":"users"}`)
	assert.Equal(t, http.StatusCreated, code)

	code, body := env.do(t, "POST", "/mock/users", `{"name":"Ann"}`)
	assert.Equal(t, http.StatusCreated, code)
	assert.JSONEq(t, `{"name":"Ann","id":1}`, body)

	code, body = env.do(t, "POST", "/mock/users", `{"name":"Bo"}`)
	assert.Equal(t, http.StatusCreated, code)
	assert.JSONEq(t, `{"name":"Bo","id":2}`, body)

	code, body = env.do(t, "DELETE", "/mock/users/1", "")
	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"message":"Deleted","deleted":{"name":"Ann","id":1}}`, body)

	code, body = env.do(t, "GET", "/mock/users", "")
	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `[{"name":"Bo","id":2}]`, body)
}

func TestResourceEndpoints(t *testing.T) {
	env := newTestEnv(t)

	code, body := env.do(t, "GET", "/api/endpoints", "")
	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `[]`, body)

	code, body = env.do(t, "POST", "/api/endpoints", `{"resource":"Users"}`)
	assert.Equal(t, http.StatusCreated, code)
	assert.JSONEq(t, `{"message":"Resource 'users' created"}`, body)

	code, body = env.do(t, "POST", "/api/endpoints", `{"resource":"users"}`)
	assert.Equal(t, http.StatusCreated, code)
	assert.JSONEq(t, `{"message":"Resource 'users' already exists"}`, body)

	_, body = env.do(t, "GET", "/api/endpoints", "")
	assert.JSONEq(t, `["users"]`, body)

	code, body = env.do(t, "DELETE", "/api/endpoints/users", "")
	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"message":"Resource 'users' deleted"}`, body)

	_, body = env.do(t, "GET", "/api/endpoints", "")
	assert.JSONEq(t, `[]`, body)

	code, body = env.do(t, "GET", "/mock/users", "")
	assert.Equal(t, http.StatusNotFound, code)
	assert.JSONEq(t, `{"error":"Resource 'users' not found"}`, body)

	code, _ = env.do(t, "DELETE", "/api/endpoints/users", "")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestCreateResourceValidation(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantCode int
		wantErr  string
	}{
		{"missing body", "", http.StatusBadRequest, "Resource name is required"},
		{"missing field", `{}`, http.StatusBadRequest, "Resource name is required"},
		{"blank", `{"resource":"  "}`, http.StatusBadRequest, "Resource name is required"},
		{"slash", `{"resource":"a/b"}`, http.StatusBadRequest, "Resource name must not contain '/'"},
		{"not json", `{resource:`, http.StatusBadRequest, "Invalid JSON body"},
		{"wrong type", `{"resource":5}`, http.StatusBadRequest, "Invalid JSON body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			code, body := env.do(t, "POST", "/api/endpoints", tt.body)
			assert.Equal(t, tt.wantCode, code)
			assert.Contains(t, body, tt.wantErr)
		})
	}
}

func TestRecordEndpoints(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, "POST", "/api/endpoints", `{"resource":"users"}`)
	env.do(t, "POST", "/mock/users", `{"name":"Ann","age":30,"tags":["a"]}`)

	code, body := env.do(t, "GET", "/mock/users/1", "")
	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"id":1,"name":"Ann","age":30,"tags":["a"]}`, body)

	code, body = env.do(t, "PATCH", "/mock/users/1", `{"age":31}`)
	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"id":1,"name":"Ann","age":31,"tags":["a"]}`, body)

	_, body = env.do(t, "GET", "/mock/users/1", "")
	assert.JSONEq(t, `{"id":1,"name":"Ann","age":31,"tags":["a"]}`, body)

	code, body = env.do(t, "PATCH", "/mock/users/1", "")
	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"id":1,"name":"Ann","age":31,"tags":["a"]}`, body)

	code, body = env.do(t, "POST", "/mock/USERS", `{"name":"Bo"}`)
	assert.Equal(t, http.StatusCreated, code, "resource names are case-insensitive")
	assert.JSONEq(t, `{"id":2,"name":"Bo"}`, body)

	code, body = env.do(t, "POST", "/mock/users", "")
	assert.Equal(t, http.StatusCreated, code)
	assert.JSONEq(t, `{"id":3}`, body)
}

func TestRecordNotFound(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, "POST", "/api/endpoints", `{"resource":"users"}`)

	tests := []struct {
		method, path, body string
		wantErr            string
	}{
		{"GET", "/mock/ghost", "", "Resource 'ghost' not found"},
		{"POST", "/mock/ghost", `{"a":1}`, "Resource 'ghost' not found"},
		{"GET", "/mock/ghost/1", "", "Resource 'ghost' not found"},
		{"GET", "/mock/users/1", "", "Record 1 not found in resource 'users'"},
		{"GET", "/mock/users/abc", "", "Record abc not found in resource 'users'"},
		{"PATCH", "/mock/users/1", `{"a":1}`, "Record 1 not found in resource 'users'"},
		{"PATCH", "/mock/ghost/1", `{"a":1}`, "Resource 'ghost' not found"},
		{"DELETE", "/mock/users/1", "", "Record 1 not found in resource 'users'"},
		{"DELETE", "/mock/ghost/1", "", "Resource 'ghost' not found"},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			code, body := env.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, http.StatusNotFound, code)
			assert.JSONEq(t, `{"error":"`+tt.wantErr+`"}`, body)
		})
	}
}

func TestMalformedRecordBody(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, "POST", "/api/endpoints", `{"resource":"users"}`)

	for _, body := range []string{`{"name":`, `[1,2]`, `"text"`, `{"a":1} {"b":2}`} {
		code, resp := env.do(t, "POST", "/mock/users", body)
		assert.Equal(t, http.StatusBadRequest, code, body)
		assert.Contains(t, resp, "Invalid JSON body", body)
	}

	_, resp := env.do(t, "GET", "/mock/users", "")
	assert.JSONEq(t, `[]`, resp)
}

func TestBodyTooLarge(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, "POST", "/api/endpoints", `{"resource":"users"}`)

	big := `{"blob":"` + strings.Repeat("x", 2<<10) + `"}`
	code, _ := env.do(t, "POST", "/mock/users", big)
	assert.Equal(t, http.StatusRequestEntityTooLarge, code)
}

func TestFallbackNotFound(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, "POST", "/api/endpoints", `{"resource":"users"}`)

	tests := []struct{ method, path string }{
		{"GET", "/"},
		{"GET", "/nope"},
		{"GET", "/mock"},
		{"GET", "/mock/users/1/extra"},
		{"PUT", "/mock/users/1"},
		{"PATCH", "/mock/users"},
		{"DELETE", "/api/endpoints"},
		{"POST", "/ping"},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			code, body := env.do(t, tt.method, tt.path, "")
			assert.Equal(t, http.StatusNotFound, code)
			assert.JSONEq(t, `{"error":"Not found"}`, body)
		})
	}
}

func TestDataFilePersistsAcrossServers(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, "POST", "/api/endpoints", `{"resource":"users"}`)
	env.do(t, "POST", "/mock/users", `{"name":"Ann"}`)

	b, err := os.ReadFile(env.dbPath)
	require.NoError(t, err)
	assert.JSONEq(t, `{"users":[{"id":1,"name":"Ann"}]}`, string(b))
	assert.Contains(t, string(b), "\n  \"users\"", "file is pretty-printed")

	log := logger.NewWithWriter(false, io.Discard)
	pg := service.NewPlayground(store.New(env.dbPath, log), log)
	records, err := pg.ListRecords("users")
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestHandEditedFileIsServed(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, os.WriteFile(env.dbPath, []byte(`{
  "products": [{"id": 10, "price": 9.99}],
  "meta": {"owner": "me"}
}`), 0o644))

	_, body := env.do(t, "GET", "/api/endpoints", "")
	assert.JSONEq(t, `["products"]`, body)

	code, body := env.do(t, "POST", "/mock/products", `{"price":1.5}`)
	assert.Equal(t, http.StatusCreated, code)
	assert.JSONEq(t, `{"id":11,"price":1.5}`, body)

	b, err := os.ReadFile(env.dbPath)
	require.NoError(t, err)
	assert.JSONEq(t, `{
  "products": [{"id": 10, "price": 9.99}, {"id": 11, "price": 1.5}],
  "meta": {"owner": "me"}
}`, string(b))
}

func TestCorruptFileStartsFresh(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, os.WriteFile(env.dbPath, []byte(`{not json`), 0o644))

	code, body := env.do(t, "GET", "/api/endpoints", "")
	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `[]`, body)
}

func TestPersistFailureReturns500(t *testing.T) {
	env := newTestEnv(t)
	// A directory where the data file should be makes every write fail.
	require.NoError(t, os.Mkdir(env.dbPath, 0o755))

	code, body := env.do(t, "POST", "/api/endpoints", `{"resource":"users"}`)
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.JSONEq(t, `{"error":"Failed to persist data"}`, body)
}

func TestPing(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, "POST", "/api/endpoints", `{"resource":"users"}`)
	env.do(t, "POST", "/mock/users", `{}`)

	code, body := env.do(t, "GET", "/ping", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, `"status":"ok"`)
	assert.Contains(t, body, `"resources":1`)
	assert.Contains(t, body, `"records":1`)
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, "GET", "/api/endpoints", "")
	env.do(t, "GET", "/mock/ghost", "")
	env.do(t, "GET", "/nowhere", "")

	code, body := env.do(t, "GET", "/metrics", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, `http_requests_total{method="GET",route="/api/endpoints",status="200"} 1`)
	assert.Contains(t, body, `http_requests_total{method="GET",route="/mock/{resource}",status="404"} 1`)
	assert.Contains(t, body, `http_requests_total{method="GET",route="unmatched",status="404"} 1`)
	assert.Contains(t, body, "http_request_duration_seconds_count 3")
	assert.Contains(t, body, "http_active_connections 1")
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest("OPTIONS", "/mock/users/1", nil)
	req.Header.Set("Origin", "http://localhost:19006")
	req.Header.Set("Access-Control-Request-Method", "PATCH")
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	assert.Less(t, rec.Code, 300)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "PATCH")
}

func TestTrailingSlashIsIgnored(t *testing.T) {
	env := newTestEnv(t)

	code, _ := env.do(t, "POST", "/api/endpoints/", `{"resource":"users"}`)
	assert.Equal(t, http.StatusCreated, code)

	code, body := env.do(t, "POST", "/mock/users/", `{"name":"Ann"}`)
	assert.Equal(t, http.StatusCreated, code)
	assert.JSONEq(t, `{"id":1,"name":"Ann"}`, body)

	code, body = env.do(t, "GET", "/mock/users/", "")
	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `[{"id":1,"name":"Ann"}]`, body)

	code, body = env.do(t, "GET", "/mock/users/1/", "")
	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"id":1,"name":"Ann"}`, body)

	code, _ = env.do(t, "DELETE", "/api/endpoints/users/", "")
	assert.Equal(t, http.StatusOK, code)
}

func TestMixedCaseResourceInFile(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, os.WriteFile(env.dbPath, []byte(`{"Users":[{"id":1,"name":"Ann"}]}`), 0o644))

	_, body := env.do(t, "GET", "/api/endpoints", "")
	assert.JSONEq(t, `["users"]`, body)

	code, body := env.do(t, "GET", "/mock/users", "")
	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `[{"id":1,"name":"Ann"}]`, body)

	code, body = env.do(t, "POST", "/api/endpoints", `{"resource":"users"}`)
	assert.Equal(t, http.StatusCreated, code)
	assert.JSONEq(t, `{"message":"Resource 'users' already exists"}`, body)

	code, _ = env.do(t, "DELETE", "/api/endpoints/Users", "")
	assert.Equal(t, http.StatusOK, code)

	_, body = env.do(t, "GET", "/api/endpoints", "")
	assert.JSONEq(t, `[]`, body)
}

func TestNonResourceKeyIsProtected(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, os.WriteFile(env.dbPath, []byte(`{"meta":{"owner":"me"}}`), 0o644))

	code, body := env.do(t, "POST", "/api/endpoints", `{"resource":"meta"}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.JSONEq(t, `{"error":"Key 'meta' is not a resource"}`, body)

	code, _ = env.do(t, "DELETE", "/api/endpoints/meta", "")
	assert.Equal(t, http.StatusNotFound, code)

	b, err := os.ReadFile(env.dbPath)
	require.NoError(t, err)
	assert.JSONEq(t, `{"meta":{"owner":"me"}}`, string(b))
}
