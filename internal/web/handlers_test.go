package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/assetdesk/assetdesk/internal/config"
	"github.com/assetdesk/assetdesk/internal/importer"
	"github.com/assetdesk/assetdesk/internal/service"
	"github.com/assetdesk/assetdesk/internal/store"
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Host:           "127.0.0.1",
			Port:           8080,
			RequestTimeout: 60 * time.Second,
		},
		Import: config.ImportConfig{
			MaxFileSize:   1 << 20,
			MaxConcurrent: 5,
			MaxWaitTime:   time.Second,
		},
		Rate: config.RateLimitConfig{Enabled: false},
	}
}

func newTestServer(t *testing.T) (*Server, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	svc := service.New(mem, nil)
	return NewServer(svc, testConfig()), mem
}

func doRequest(srv *Server, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(srv, http.MethodGet, "/healthz", "", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ok"`)
}

func TestListEntities(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(srv, http.MethodGet, "/api/entities", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var entities []service.EntityInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entities))
	assert.NotEmpty(t, entities)

	keys := make([]string, len(entities))
	for i, e := range entities {
		keys[i] = e.Key
	}
	assert.Contains(t, keys, "monitors")
	assert.Contains(t, keys, "licenses")
}

func TestTemplate(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(srv, http.MethodGet, "/api/template/monitors", "", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Equal(t, "seatNumber,knoxId,serialNumber,model,location,remark\n", rec.Body.String())
}

func TestTemplateUnknownEntity(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(srv, http.MethodGet, "/api/template/nonsense", "", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestImportCreatesRecords(t *testing.T) {
	srv, mem := newTestServer(t)

	body := "Seat Number,Knox ID\nA-101,K-1\nA-102,K-2\n"
	rec := doRequest(srv, http.MethodPost, "/api/import/monitors", body,
		map[string]string{"X-File-Name": "monitors.csv"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp importResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "monitors", resp.Entity)
	assert.Equal(t, "monitors.csv", resp.FileName)
	assert.False(t, resp.DryRun)
	assert.Equal(t, 2, resp.Outcome.Created)
	assert.Equal(t, 0, resp.Outcome.Failed)
	assert.Empty(t, resp.DisplayErrors)

	assert.Equal(t, 2, mem.RecordCount("monitors"))
}

func TestImportPartialFailureListsErrors(t *testing.T) {
	srv, mem := newTestServer(t)

	// Second data row is missing its seat number.
	body := "seatNumber,knoxId\nA-101,K-1\n,K-2\n"
	rec := doRequest(srv, http.MethodPost, "/api/import/monitors", body, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp importResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Outcome.Created)
	assert.Equal(t, 1, resp.Outcome.Failed)
	require.Len(t, resp.DisplayErrors, 1)
	assert.Contains(t, resp.DisplayErrors[0], "row 2")

	assert.Equal(t, 1, mem.RecordCount("monitors"))
}

func TestImportUnknownEntity(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(srv, http.MethodPost, "/api/import/widgets", "a,b\n1,2\n", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestImportUnrecognizedHeader(t *testing.T) {
	srv, mem := newTestServer(t)

	rec := doRequest(srv, http.MethodPost, "/api/import/monitors", "foo,bar\n1,2\n", nil)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, 0, mem.RecordCount("monitors"))
}

func TestImportMalformedInput(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(srv, http.MethodPost, "/api/import/monitors", "seatNumber\n\xff\xfe\n", nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestImportEmptyBody(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(srv, http.MethodPost, "/api/import/monitors", "", nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestImportBodyTooLarge(t *testing.T) {
	mem := store.NewMemory()
	svc := service.New(mem, nil)
	cfg := testConfig()
	cfg.Import.MaxFileSize = 16
	srv := NewServer(svc, cfg)

	body := "seatNumber,knoxId\nA-101,K-1\n"
	rec := doRequest(srv, http.MethodPost, "/api/import/monitors", body, nil)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, 0, mem.RecordCount("monitors"))
}

func TestImportPreviewDoesNotPersist(t *testing.T) {
	srv, mem := newTestServer(t)

	body := "seatNumber,knoxId\nA-101,K-1\n"
	rec := doRequest(srv, http.MethodPost, "/api/import/monitors/preview", body, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp importResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.DryRun)
	assert.Equal(t, 1, resp.Outcome.Created)

	assert.Equal(t, 0, mem.RecordCount("monitors"))
}

func TestAllocate(t *testing.T) {
	srv, mem := newTestServer(t)
	mem.SetPool("chargers", 5)

	body := `{"requests":[{"assignee":"Kim","quantity":2},{"assignee":"Lee","quantity":1}]}`
	rec := doRequest(srv, http.MethodPost, "/api/allocate/chargers", body, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var report service.AllocationReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, "chargers", report.PoolID)
	assert.Len(t, report.Assignments, 2)
	assert.Equal(t, 2, report.Remaining)

	remaining, err := mem.GetAvailableQuantity(context.Background(), "chargers")
	require.NoError(t, err)
	assert.Equal(t, 2, remaining)
}

func TestAllocateOverCapacity(t *testing.T) {
	srv, mem := newTestServer(t)
	mem.SetPool("chargers", 1)

	body := `{"requests":[{"assignee":"Kim","quantity":2}]}`
	rec := doRequest(srv, http.MethodPost, "/api/allocate/chargers", body, nil)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	remaining, err := mem.GetAvailableQuantity(context.Background(), "chargers")
	require.NoError(t, err)
	assert.Equal(t, 1, remaining)
}

func TestAllocateInvalidRequest(t *testing.T) {
	srv, mem := newTestServer(t)
	mem.SetPool("chargers", 5)

	body := `{"requests":[{"assignee":"","quantity":1}]}`
	rec := doRequest(srv, http.MethodPost, "/api/allocate/chargers", body, nil)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestAllocateUnknownPool(t *testing.T) {
	srv, _ := newTestServer(t)

	body := `{"requests":[{"assignee":"Kim","quantity":1}]}`
	rec := doRequest(srv, http.MethodPost, "/api/allocate/missing", body, nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAllocateBadJSON(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(srv, http.MethodPost, "/api/allocate/chargers", "{not json", nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAllocateValidateDoesNotCommit(t *testing.T) {
	srv, mem := newTestServer(t)
	mem.SetPool("chargers", 5)

	body := `{"requests":[{"assignee":"Kim","quantity":3}]}`
	rec := doRequest(srv, http.MethodPost, "/api/allocate/chargers/validate", body, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var report service.AllocationReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.True(t, report.DryRun)
	assert.Equal(t, 2, report.Remaining)

	remaining, err := mem.GetAvailableQuantity(context.Background(), "chargers")
	require.NoError(t, err)
	assert.Equal(t, 5, remaining)
}

func TestRelease(t *testing.T) {
	srv, mem := newTestServer(t)
	mem.SetPool("chargers", 3)

	body := `{"assignee":"Kim","quantity":2}`
	rec := doRequest(srv, http.MethodPost, "/api/release/chargers", body, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]int
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 5, resp["available"])
}

func TestReleaseUnknownPool(t *testing.T) {
	srv, _ := newTestServer(t)

	body := `{"assignee":"Kim","quantity":2}`
	rec := doRequest(srv, http.MethodPost, "/api/release/missing", body, nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReleaseNonPositiveQuantity(t *testing.T) {
	srv, mem := newTestServer(t)
	mem.SetPool("chargers", 3)

	for _, body := range []string{
		`{"assignee":"Kim","quantity":-1000}`,
		`{"assignee":"Kim","quantity":0}`,
		`{"assignee":"Kim"}`,
	} {
		rec := doRequest(srv, http.MethodPost, "/api/release/chargers", body, nil)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, body)
	}

	// The pool never went negative or moved at all.
	remaining, err := mem.GetAvailableQuantity(context.Background(), "chargers")
	require.NoError(t, err)
	assert.Equal(t, 3, remaining)
}

func TestRateLimiter(t *testing.T) {
	mem := store.NewMemory()
	svc := service.New(mem, nil)
	cfg := testConfig()
	cfg.Rate.Enabled = true
	cfg.Rate.RequestsPerMinute = 2
	srv := NewServer(svc, cfg)

	headers := map[string]string{"X-Real-IP": "10.0.0.9"}
	for i := 0; i < 2; i++ {
		rec := doRequest(srv, http.MethodGet, "/healthz", "", headers)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := doRequest(srv, http.MethodGet, "/healthz", "", headers)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
}

func TestShutdownStopsRateLimiter(t *testing.T) {
	mem := store.NewMemory()
	svc := service.New(mem, nil)
	cfg := testConfig()
	cfg.Rate.Enabled = true
	srv := NewServer(svc, cfg)

	require.NoError(t, srv.Shutdown(context.Background()))

	// The limiter's cleanup goroutine is gone; stopping again is a no-op.
	require.NoError(t, srv.Shutdown(context.Background()))

	select {
	case <-srv.limiter.done:
	default:
		t.Fatal("limiter done channel should be closed after Shutdown")
	}
}

func TestSecurityHeaders(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(srv, http.MethodGet, "/healthz", "", nil)

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
}

func TestDisplayErrorsTruncation(t *testing.T) {
	errs := make([]importer.RowError, 8)
	for i := range errs {
		errs[i] = importer.RowError{Row: i + 1, Message: "bad row"}
	}

	out := displayErrors(errs)

	require.Len(t, out, maxDisplayErrors+1)
	assert.Equal(t, "row 1: bad row", out[0])
	assert.Equal(t, "... and 3 more", out[maxDisplayErrors])

	assert.Nil(t, displayErrors(nil))
}
