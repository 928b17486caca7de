package display

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAircraftSource struct{ views []AircraftView }

func (f fakeAircraftSource) AircraftViews() []AircraftView { return f.views }

type fakeViolationSource struct{ summary interface{} }

func (f fakeViolationSource) ViolationSummary() interface{} { return f.summary }

func TestHealthzReturnsHealthy(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	router := NewRouter(DefaultConfig(), fakeAircraftSource{}, fakeViolationSource{}, hub, zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestAircraftEndpointReturnsSourceViews(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	src := fakeAircraftSource{views: []AircraftView{{Callsign: "AC001", Quality: 90}}}
	router := NewRouter(DefaultConfig(), src, fakeViolationSource{}, hub, zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/aircraft", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var got []AircraftView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "AC001", got[0].Callsign)
}

func TestViolationsEndpointReturnsSourceSummary(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	src := fakeViolationSource{summary: map[string]int{"current": 2}}
	router := NewRouter(DefaultConfig(), fakeAircraftSource{}, src, hub, zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/violations", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var got map[string]int
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 2, got["current"])
}

func TestCorrelationIDHeaderIsEchoedAndGenerated(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	router := NewRouter(DefaultConfig(), fakeAircraftSource{}, fakeViolationSource{}, hub, zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Correlation-ID", "abc-123")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, "abc-123", rec.Header().Get("X-Correlation-ID"))
}
