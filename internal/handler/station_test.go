package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/varudhamalabinaya/EV-ChargingSpot/internal/middleware"
	"github.com/varudhamalabinaya/EV-ChargingSpot/internal/model"
	"github.com/varudhamalabinaya/EV-ChargingSpot/internal/queue"
)

type stationFixture struct {
	h        *StationHandler
	stations *fakeStationRepo
	hub      *recordingHub
	events   []queue.StationChangedEvent
	e        *echo.Echo
}

func newStationFixture() *stationFixture {
	stations := newFakeStationRepo()
	hub := &recordingHub{}
	f := &stationFixture{stations: stations, hub: hub, e: echo.New()}
	f.h = &StationHandler{
		Stations: stations,
		Hub:      hub,
		PublishEvent: func(ctx context.Context, ev queue.StationChangedEvent) error {
			f.events = append(f.events, ev)
			return nil
		},
	}
	return f
}

func (f *stationFixture) seed(t *testing.T, s model.Station) model.Station {
	t.Helper()
	require.NoError(t, f.stations.Create(context.Background(), &s))
	return s
}

func (f *stationFixture) request(method, path, body string) (*httptest.ResponseRecorder, echo.Context) {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	return rec, f.e.NewContext(req, rec)
}

func TestStationCreateAndGet(t *testing.T) {
	f := newStationFixture()

	rec, c := f.request(http.MethodPost, "/v1/stations",
		`{"name":"Harbor Chargers","city":"Oslo","total_ports":8,"available_ports":8,"network":"ChargeGrid","price_per_kwh":0.42}`)
	require.NoError(t, f.h.Create(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	var created model.Station
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, model.StationActive, created.Status) // defaulted

	rec2, c2 := f.request(http.MethodGet, "/v1/stations/"+created.ID, "")
	c2.SetParamNames("id")
	c2.SetParamValues(created.ID)
	require.NoError(t, f.h.Get(c2))
	assert.Equal(t, http.StatusOK, rec2.Code)

	require.Len(t, f.events, 1)
	assert.Equal(t, "created", f.events[0].Action)
}

func TestStationCreateValidation(t *testing.T) {
	f := newStationFixture()

	cases := []struct {
		name string
		body string
	}{
		{"missing name", `{"total_ports":4}`},
		{"bad status", `{"name":"X","status":"broken"}`},
		{"available exceeds total", `{"name":"X","total_ports":2,"available_ports":5}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec, c := f.request(http.MethodPost, "/v1/stations", tc.body)
			require.NoError(t, f.h.Create(c))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestStationGetUnknown(t *testing.T) {
	f := newStationFixture()
	rec, c := f.request(http.MethodGet, "/v1/stations/missing", "")
	c.SetParamNames("id")
	c.SetParamValues("missing")
	require.NoError(t, f.h.Get(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStationListFilters(t *testing.T) {
	f := newStationFixture()
	f.seed(t, model.Station{Name: "A", City: "Oslo", Status: model.StationActive, AvailablePorts: 4, Network: "ChargeGrid"})
	f.seed(t, model.Station{Name: "B", City: "Oslo", Status: model.StationOffline, AvailablePorts: 0, Network: "ChargeGrid"})
	f.seed(t, model.Station{Name: "C", City: "Bergen", Status: model.StationActive, AvailablePorts: 1, Network: "VoltNet"})

	rec, c := f.request(http.MethodGet, "/v1/stations?status=active&city=Oslo", "")
	require.NoError(t, f.h.List(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Items []model.Station `json:"items"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Items, 1)
	assert.Equal(t, "A", body.Items[0].Name)

	rec2, c2 := f.request(http.MethodGet, "/v1/stations?status=charging-hard", "")
	require.NoError(t, f.h.List(c2))
	assert.Equal(t, http.StatusBadRequest, rec2.Code)

	rec3, c3 := f.request(http.MethodGet, "/v1/stations?min_available=2", "")
	require.NoError(t, f.h.List(c3))
	require.Equal(t, http.StatusOK, rec3.Code)
	require.NoError(t, json.Unmarshal(rec3.Body.Bytes(), &body))
	require.Len(t, body.Items, 1)
	assert.Equal(t, "A", body.Items[0].Name)
}

func TestStationPatchBroadcastsUpdate(t *testing.T) {
	f := newStationFixture()
	st := f.seed(t, model.Station{Name: "Harbor", Status: model.StationActive, TotalPorts: 8, AvailablePorts: 8})

	rec, c := f.request(http.MethodPatch, "/v1/stations/"+st.ID, `{"status":"maintenance"}`)
	c.SetParamNames("id")
	c.SetParamValues(st.ID)
	require.NoError(t, f.h.Update(c))
	require.Equal(t, http.StatusOK, rec.Code)

	// The hub saw the new state no later than the HTTP response.
	published := f.hub.all()
	require.Len(t, published, 1)
	assert.Equal(t, model.StationMaintenance, published[0].Status)
	assert.Equal(t, st.ID, published[0].ID)

	require.Len(t, f.events, 1)
	assert.Equal(t, "updated", f.events[0].Action)
	assert.Equal(t, model.StationMaintenance, f.events[0].Status)
}

func TestStationPatchUnknown(t *testing.T) {
	f := newStationFixture()
	rec, c := f.request(http.MethodPatch, "/v1/stations/missing", `{"status":"offline"}`)
	c.SetParamNames("id")
	c.SetParamValues("missing")
	require.NoError(t, f.h.Update(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Empty(t, f.hub.all())
}

func TestStationDelete(t *testing.T) {
	f := newStationFixture()
	st := f.seed(t, model.Station{Name: "Harbor", Status: model.StationActive})

	rec, c := f.request(http.MethodDelete, "/v1/stations/"+st.ID, "")
	c.SetParamNames("id")
	c.SetParamValues(st.ID)
	require.NoError(t, f.h.Delete(c))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec2, c2 := f.request(http.MethodDelete, "/v1/stations/"+st.ID, "")
	c2.SetParamNames("id")
	c2.SetParamValues(st.ID)
	require.NoError(t, f.h.Delete(c2))
	assert.Equal(t, http.StatusNotFound, rec2.Code)
}

// TestStandardUserCannotMutateStations drives the full middleware chain:
// a freshly registered user logs in, reads their identity, and is turned
// away from admin-only station writes with 403 (not 401).
func TestStandardUserCannotMutateStations(t *testing.T) {
	af := newAuthFixture()
	sf := newStationFixture()

	e := echo.New()
	cfg := testConfig()
	e.POST("/v1/stations", sf.h.Create,
		middleware.JWTAuth(cfg.JWTSecret), middleware.RequireRole(model.RoleAdmin))
	e.GET("/v1/auth/me", af.h.Me, middleware.JWTAuth(cfg.JWTSecret))

	af.register(t, "user@example.com", "Secret123!")
	pair := af.login(t, "user@example.com", "Secret123!")

	// /auth/me reports the standard role.
	req := httptest.NewRequest(http.MethodGet, "/v1/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+pair.Access.Token)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var me userPart
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &me))
	assert.Equal(t, model.RoleStandard, me.Role)

	// Station create is forbidden for this session.
	req2 := httptest.NewRequest(http.MethodPost, "/v1/stations", strings.NewReader(`{"name":"X"}`))
	req2.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req2.Header.Set("Authorization", "Bearer "+pair.Access.Token)
	rec2 := httptest.NewRecorder()
	e.ServeHTTP(rec2, req2)
	assert.Equal(t, http.StatusForbidden, rec2.Code)

	// Without any token the same route answers 401.
	req3 := httptest.NewRequest(http.MethodPost, "/v1/stations", strings.NewReader(`{"name":"X"}`))
	req3.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec3 := httptest.NewRecorder()
	e.ServeHTTP(rec3, req3)
	assert.Equal(t, http.StatusUnauthorized, rec3.Code)

	// An admin passes.
	af.users.setRole(me.ID, model.RoleAdmin)
	adminPair := af.login(t, "user@example.com", "Secret123!")
	req4 := httptest.NewRequest(http.MethodPost, "/v1/stations", strings.NewReader(`{"name":"Harbor"}`))
	req4.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req4.Header.Set("Authorization", "Bearer "+adminPair.Access.Token)
	rec4 := httptest.NewRecorder()
	e.ServeHTTP(rec4, req4)
	assert.Equal(t, http.StatusCreated, rec4.Code)
}
