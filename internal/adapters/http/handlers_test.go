package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	handler "github.com/samirrijal/evacguide/internal/adapters/http"
	"github.com/samirrijal/evacguide/internal/core/domain"
	"github.com/samirrijal/evacguide/internal/core/hazard"
	"github.com/samirrijal/evacguide/internal/core/usecases"
)

// ---- Mock ports ----

type mockCatalog struct {
	listFn func(ctx context.Context) ([]domain.Shelter, error)
}

func (m *mockCatalog) List(ctx context.Context) ([]domain.Shelter, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, nil
}

func (m *mockCatalog) ListWithin(ctx context.Context, _ domain.Coordinate, _ float64) ([]domain.Shelter, error) {
	return m.List(ctx)
}

type mockShelterProvider struct {
	fetchFn func(ctx context.Context) ([]byte, error)
}

func (m *mockShelterProvider) FetchShelters(ctx context.Context) ([]byte, error) {
	if m.fetchFn != nil {
		return m.fetchFn(ctx)
	}
	return nil, errors.New("not configured")
}

type mockRoutingProvider struct {
	fetchFn func(ctx context.Context, mode domain.TravelMode, start, end domain.Coordinate) ([]byte, error)
}

func (m *mockRoutingProvider) FetchRoute(ctx context.Context, mode domain.TravelMode, start, end domain.Coordinate) ([]byte, error) {
	if m.fetchFn != nil {
		return m.fetchFn(ctx, mode, start, end)
	}
	return nil, domain.ErrProviderUnavailable
}

// ---- Fixtures ----

const tmapRoute = `{"type":"FeatureCollection","features":[
  {"type":"Feature","geometry":{"type":"Point","coordinates":[129.4040,36.0805]},"properties":{"index":0,"pointType":"SP","description":"Start"}},
  {"type":"Feature","geometry":{"type":"LineString","coordinates":[[129.4040,36.0805],[129.3900,36.0700],[129.3775,36.0645]]},"properties":{"index":1,"distance":3200,"time":2400}},
  {"type":"Feature","geometry":{"type":"Point","coordinates":[129.3775,36.0645]},"properties":{"index":2,"pointType":"EP","description":"Arrive"}}
]}`

const routeBody = `{"start":{"lat":36.0805,"lon":129.4040},"end":{"lat":36.0645,"lon":129.3775}}`

const timelineNDJSON = `{"time_minutes": 10, "burned_coordinates": [{"lat": 36.1000, "lon": 129.4000}, {"lat": 36.1005, "lon": 129.4005}]}
{"time_minutes": 0, "burned_coordinates": [{"lat": 36.1000, "lon": 129.4000}], "ignition_point": {"lat": 36.1, "lon": 129.4}}
not json
{"time_minutes": 20, "burned_coordinates": [{"lat": 36.1000, "lon": 129.4000}, {"lat": 36.1005, "lon": 129.4005}, {"lat": 36.1010, "lon": 129.4010}]}`

var catalogShelters = []domain.Shelter{
	{ID: "far", Name: "Far school", Location: domain.Coordinate{Lat: 36.20, Lon: 129.40}, Category: "school"},
	{ID: "near", Name: "Near hall", Location: domain.Coordinate{Lat: 36.0810, Lon: 129.4045}, Category: "hall"},
	{ID: "mid", Name: "Mid gym", Location: domain.Coordinate{Lat: 36.10, Lon: 129.40}, Category: "school"},
}

// ---- Test helpers ----

func setupApp(deps *handler.Dependencies) *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	handler.SetupRoutes(app, deps)
	return app
}

func makeDeps(opts ...func(*handler.Dependencies)) *handler.Dependencies {
	store := hazard.NewStore()
	d := &handler.Dependencies{
		Hazards: usecases.NewHazardService(store, nil, hazard.DefaultVertexCount),
		Shelters: usecases.NewShelterService(&mockCatalog{
			listFn: func(ctx context.Context) ([]domain.Shelter, error) { return catalogShelters, nil },
		}, &mockShelterProvider{}, nil, store, usecases.ShelterOptions{}),
		Routes: usecases.NewRouteService(&mockRoutingProvider{
			fetchFn: func(ctx context.Context, mode domain.TravelMode, start, end domain.Coordinate) ([]byte, error) {
				return []byte(tmapRoute), nil
			},
		}, usecases.RouteOptions{CacheEnabled: true}),
		Wildfire: usecases.NewWildfireService(time.Hour, nil, "test"),
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

func do(t *testing.T, app *fiber.App, method, target, body string) (int, []byte, map[string]string) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, target, err)
	}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	headers := make(map[string]string)
	for k := range resp.Header {
		headers[k] = resp.Header.Get(k)
	}
	return resp.StatusCode, b, headers
}

func decodeError(t *testing.T, b []byte) handler.APIError {
	t.Helper()
	var e handler.APIError
	if err := json.Unmarshal(b, &e); err != nil {
		t.Fatalf("decode APIError: %v (%s)", err, b)
	}
	return e
}

// ---- Hazards ----

func TestCreateHazard_Created(t *testing.T) {
	app := setupApp(makeDeps())

	status, body, _ := do(t, app, "POST", "/v1/hazards", `{"center":{"lat":36.08,"lon":129.40},"radiusMeters":1000,"steps":32}`)
	if status != 201 {
		t.Fatalf("expected 201, got %d: %s", status, body)
	}

	var zone domain.HazardZone
	require.NoError(t, json.Unmarshal(body, &zone))
	assert.NotEmpty(t, zone.ID)
	assert.Equal(t, 32, zone.VertexCount)
	assert.Len(t, zone.Boundary, 33)
	assert.Equal(t, zone.Boundary[0], zone.Boundary[len(zone.Boundary)-1])
}

func TestCreateHazard_BadInput(t *testing.T) {
	app := setupApp(makeDeps())

	cases := map[string]string{
		"missing center": `{"radiusMeters":1000}`,
		"zero radius":    `{"center":{"lat":36.08,"lon":129.40},"radiusMeters":0}`,
		"bad latitude":   `{"center":{"lat":91,"lon":129.40},"radiusMeters":500}`,
		"not json":       `{`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			status, b, _ := do(t, app, "POST", "/v1/hazards", body)
			if status != 400 {
				t.Fatalf("expected 400, got %d: %s", status, b)
			}
			if e := decodeError(t, b); e.Code != "bad_request" {
				t.Errorf("expected code bad_request, got %q", e.Code)
			}
		})
	}
}

func TestLatestHazard_NullThenZone(t *testing.T) {
	app := setupApp(makeDeps())

	status, body, _ := do(t, app, "GET", "/v1/hazards/latest", "")
	require.Equal(t, 200, status)
	assert.JSONEq(t, `{"zone":null}`, string(body))

	do(t, app, "POST", "/v1/hazards", `{"center":{"lat":36.08,"lon":129.40},"radiusMeters":500}`)

	status, body, headers := do(t, app, "GET", "/v1/hazards/latest", "")
	require.Equal(t, 200, status)
	var res struct {
		Zone *domain.HazardZone `json:"zone"`
	}
	require.NoError(t, json.Unmarshal(body, &res))
	require.NotNil(t, res.Zone)
	assert.Equal(t, 500.0, res.Zone.RadiusMeters)
	assert.Equal(t, "no-cache", headers["Cache-Control"])
}

func TestLatestHazardKML(t *testing.T) {
	app := setupApp(makeDeps())

	status, _, _ := do(t, app, "GET", "/v1/hazards/latest.kml", "")
	if status != 404 {
		t.Fatalf("expected 404 without a zone, got %d", status)
	}

	do(t, app, "POST", "/v1/hazards", `{"center":{"lat":36.08,"lon":129.40},"radiusMeters":800,"steps":16}`)

	status, body, headers := do(t, app, "GET", "/v1/hazards/latest.kml", "")
	require.Equal(t, 200, status)
	assert.Equal(t, "application/vnd.google-earth.kml+xml", headers["Content-Type"])
	doc := string(body)
	assert.Contains(t, doc, "<Polygon>")
	assert.Contains(t, doc, "<LinearRing>")
	assert.Contains(t, doc, "<coordinates>")
	assert.Contains(t, doc, "radius 800 m")
}

func TestCheckHazard(t *testing.T) {
	app := setupApp(makeDeps())

	status, body, _ := do(t, app, "GET", "/v1/hazards/check?lat=36.08&lon=129.40", "")
	require.Equal(t, 200, status)
	var ra domain.RiskAssessment
	require.NoError(t, json.Unmarshal(body, &ra))
	assert.Equal(t, domain.RiskNone, ra.Tier)
	assert.Nil(t, ra.DistanceToEdgeMeters)

	do(t, app, "POST", "/v1/hazards", `{"center":{"lat":36.08,"lon":129.40},"radiusMeters":1000}`)

	_, body, _ = do(t, app, "GET", "/v1/hazards/check?lat=36.08&lon=129.40", "")
	require.NoError(t, json.Unmarshal(body, &ra))
	assert.True(t, ra.InHazard)
	assert.Equal(t, domain.RiskHigh, ra.Tier)
	require.NotNil(t, ra.DistanceToEdgeMeters)
	assert.InDelta(t, 1000, *ra.DistanceToEdgeMeters, 20)
}

func TestCheckHazard_MissingParams(t *testing.T) {
	app := setupApp(makeDeps())

	for _, target := range []string{"/v1/hazards/check", "/v1/hazards/check?lat=36", "/v1/hazards/check?lat=x&lon=129"} {
		status, _, _ := do(t, app, "GET", target, "")
		if status != 400 {
			t.Errorf("%s: expected 400, got %d", target, status)
		}
	}
}

// ---- Shelters ----

func TestNearbyShelters_RankedByDistance(t *testing.T) {
	app := setupApp(makeDeps())

	status, body, _ := do(t, app, "GET", "/v1/shelters/nearby?lat=36.0805&lon=129.4040", "")
	require.Equal(t, 200, status)

	var res usecases.NearbyResult
	require.NoError(t, json.Unmarshal(body, &res))
	require.Len(t, res.Items, 3)
	assert.Equal(t, []string{"near", "mid", "far"}, []string{res.Items[0].ID, res.Items[1].ID, res.Items[2].ID})
	assert.Equal(t, domain.SourceCatalog, res.Source)
	assert.False(t, res.Degraded)
}

func TestNearbyShelters_CategoryAndLimit(t *testing.T) {
	app := setupApp(makeDeps())

	_, body, _ := do(t, app, "GET", "/v1/shelters/nearby?lat=36.0805&lon=129.4040&category=school&limit=1", "")
	var res usecases.NearbyResult
	require.NoError(t, json.Unmarshal(body, &res))
	require.Len(t, res.Items, 1)
	assert.Equal(t, "mid", res.Items[0].ID)
}

func TestNearbyShelters_ExcludesHazardByDefault(t *testing.T) {
	app := setupApp(makeDeps())
	do(t, app, "POST", "/v1/hazards", `{"center":{"lat":36.0810,"lon":129.4045},"radiusMeters":300}`)

	_, body, _ := do(t, app, "GET", "/v1/shelters/nearby?lat=36.0805&lon=129.4040", "")
	var res usecases.NearbyResult
	require.NoError(t, json.Unmarshal(body, &res))
	for _, s := range res.Items {
		assert.NotEqual(t, "near", s.ID)
	}

	_, body, _ = do(t, app, "GET", "/v1/shelters/nearby?lat=36.0805&lon=129.4040&excludeHazard=false", "")
	require.NoError(t, json.Unmarshal(body, &res))
	require.NotEmpty(t, res.Items)
	assert.Equal(t, "near", res.Items[0].ID)
	assert.True(t, res.Items[0].InHazard)
}

func TestNearbyShelters_ProviderFailureIsDegraded(t *testing.T) {
	app := setupApp(makeDeps())

	status, body, headers := do(t, app, "GET", "/v1/shelters/nearby?lat=36.0805&lon=129.4040&source=provider", "")
	require.Equal(t, 200, status)
	var res usecases.NearbyResult
	require.NoError(t, json.Unmarshal(body, &res))
	assert.True(t, res.Degraded)
	assert.NotNil(t, res.Items)
	assert.Empty(t, res.Items)
	assert.Equal(t, usecases.ProviderUnavailableNotice, res.Notice)
	assert.Equal(t, "no-store", headers["Cache-Control"])
}

func TestNearbyShelters_BadSource(t *testing.T) {
	app := setupApp(makeDeps())

	status, body, _ := do(t, app, "GET", "/v1/shelters/nearby?lat=36.0805&lon=129.4040&source=carrier-pigeon", "")
	require.Equal(t, 400, status)
	assert.Equal(t, "bad_request", decodeError(t, body).Code)
}

func TestNearbyShelters_CatalogError(t *testing.T) {
	deps := makeDeps(func(d *handler.Dependencies) {
		d.Shelters = usecases.NewShelterService(&mockCatalog{
			listFn: func(ctx context.Context) ([]domain.Shelter, error) { return nil, errors.New("db down") },
		}, nil, nil, hazard.NewStore(), usecases.ShelterOptions{})
	})
	app := setupApp(deps)

	status, body, _ := do(t, app, "GET", "/v1/shelters/nearby?lat=36.0805&lon=129.4040", "")
	require.Equal(t, 500, status)
	e := decodeError(t, body)
	assert.Equal(t, "internal_error", e.Code)
	assert.NotContains(t, e.Message, "db down")
}

func TestShelterCategories(t *testing.T) {
	app := setupApp(makeDeps())

	status, body, _ := do(t, app, "GET", "/v1/shelters/categories", "")
	require.Equal(t, 200, status)
	var res struct {
		Categories []domain.CategoryCount `json:"categories"`
	}
	require.NoError(t, json.Unmarshal(body, &res))
	counts := map[string]int{}
	for _, c := range res.Categories {
		counts[c.Category] = c.Count
	}
	assert.Equal(t, map[string]int{"school": 2, "hall": 1}, counts)
}

// ---- Routes ----

func TestRoute_Walk(t *testing.T) {
	app := setupApp(makeDeps())

	status, body, _ := do(t, app, "POST", "/v1/routes/walk", routeBody)
	require.Equal(t, 200, status, string(body))

	var route domain.Route
	require.NoError(t, json.Unmarshal(body, &route))
	assert.Equal(t, domain.ModeWalk, route.Mode)
	assert.False(t, route.Degraded)
	assert.Len(t, route.Coordinates, 3)
	assert.Equal(t, domain.StepStart, route.Steps[0].Kind)
	assert.Equal(t, domain.StepEnd, route.Steps[len(route.Steps)-1].Kind)
	assert.Equal(t, 3200.0, route.Summary.DistanceMeters)
}

func TestRoute_ProviderDownFallsBack(t *testing.T) {
	deps := makeDeps(func(d *handler.Dependencies) {
		d.Routes = usecases.NewRouteService(&mockRoutingProvider{}, usecases.RouteOptions{})
	})
	app := setupApp(deps)

	status, body, _ := do(t, app, "POST", "/v1/routes/drive", routeBody)
	require.Equal(t, 200, status)
	var route domain.Route
	require.NoError(t, json.Unmarshal(body, &route))
	assert.True(t, route.Degraded)
	assert.Equal(t, domain.ModeDrive, route.Mode)
}

func TestRoute_NoRouteFound(t *testing.T) {
	deps := makeDeps(func(d *handler.Dependencies) {
		d.Routes = usecases.NewRouteService(&mockRoutingProvider{
			fetchFn: func(ctx context.Context, mode domain.TravelMode, start, end domain.Coordinate) ([]byte, error) {
				return []byte(`{"type":"FeatureCollection","features":[]}`), nil
			},
		}, usecases.RouteOptions{})
	})
	app := setupApp(deps)

	status, body, _ := do(t, app, "POST", "/v1/routes/walk", routeBody)
	require.Equal(t, 404, status)
	assert.Equal(t, "no_route_found", decodeError(t, body).Code)
}

func TestRoute_BadInput(t *testing.T) {
	app := setupApp(makeDeps())

	cases := map[string]struct{ target, body string }{
		"unknown mode": {"/v1/routes/fly", routeBody},
		"missing end":  {"/v1/routes/walk", `{"start":{"lat":36.0805,"lon":129.4040}}`},
		"same point":   {"/v1/routes/walk", `{"start":{"lat":36.0805,"lon":129.4040},"end":{"lat":36.0805,"lon":129.4040}}`},
		"bad body":     {"/v1/routes/walk", `[`},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			status, b, _ := do(t, app, "POST", tc.target, tc.body)
			if status != 400 {
				t.Fatalf("expected 400, got %d: %s", status, b)
			}
		})
	}
}

// ---- Legacy aliases ----

func TestLegacyDirections_DeprecatedAlias(t *testing.T) {
	app := setupApp(makeDeps())

	status, body, headers := do(t, app, "POST", "/api/directions/walk",
		`{"startLat":36.0805,"startLng":129.4040,"endLat":36.0645,"endLng":129.3775}`)
	require.Equal(t, 200, status, string(body))

	assert.Equal(t, "true", headers["Deprecation"])
	assert.NotEmpty(t, headers["Sunset"])
	assert.Equal(t, `</v1/routes/walk>; rel="successor-version"`, headers["Link"])
	assert.Contains(t, headers["Warning"], "Deprecated API")

	var res struct {
		Success bool         `json:"success"`
		Type    string       `json:"type"`
		Data    domain.Route `json:"data"`
	}
	require.NoError(t, json.Unmarshal(body, &res))
	assert.True(t, res.Success)
	assert.Equal(t, "walk", res.Type)
	assert.Len(t, res.Data.Coordinates, 3)
}

func TestLegacyDirections_MissingFields(t *testing.T) {
	app := setupApp(makeDeps())

	status, _, headers := do(t, app, "POST", "/api/directions/drive", `{"startLat":36.0805}`)
	assert.Equal(t, 400, status)
	assert.Equal(t, "true", headers["Deprecation"])
}

func TestLegacyNearbyShelters_KParam(t *testing.T) {
	app := setupApp(makeDeps())

	status, body, headers := do(t, app, "GET", "/api/shelters/nearby?lat=36.0805&lon=129.4040&k=2", "")
	require.Equal(t, 200, status)
	assert.Equal(t, "true", headers["Deprecation"])
	assert.Equal(t, `</v1/shelters/nearby>; rel="successor-version"`, headers["Link"])

	var res struct {
		From  domain.Coordinate      `json:"from"`
		Items []domain.RankedShelter `json:"items"`
	}
	require.NoError(t, json.Unmarshal(body, &res))
	assert.Equal(t, 36.0805, res.From.Lat)
	assert.Len(t, res.Items, 2)
}

func TestLegacyNearbyShelters_ProviderFailureIsDegraded(t *testing.T) {
	app := setupApp(makeDeps())

	status, body, headers := do(t, app, "GET", "/api/shelters/nearby?lat=36.0805&lon=129.4040&k=3&source=provider", "")
	require.Equal(t, 200, status)
	assert.Equal(t, "no-store", headers["Cache-Control"])

	var res struct {
		Items    []domain.RankedShelter `json:"items"`
		Degraded bool                   `json:"degraded"`
		Notice   string                 `json:"notice"`
	}
	require.NoError(t, json.Unmarshal(body, &res))
	assert.Empty(t, res.Items)
	assert.True(t, res.Degraded)
	assert.Equal(t, usecases.ProviderUnavailableNotice, res.Notice)
}

func TestLegacyNearbyShelters_HealthyOmitsDegraded(t *testing.T) {
	app := setupApp(makeDeps())

	_, body, headers := do(t, app, "GET", "/api/shelters/nearby?lat=36.0805&lon=129.4040&k=1", "")
	assert.Equal(t, "private, max-age=30", headers["Cache-Control"])
	assert.NotContains(t, string(body), `"degraded"`)
}

func TestV1Routes_NotDeprecated(t *testing.T) {
	app := setupApp(makeDeps())

	_, _, headers := do(t, app, "POST", "/v1/routes/walk", routeBody)
	assert.Empty(t, headers["Deprecation"])
}

// ---- Wildfire ----

func TestWildfireTimeline_LoadAndInspect(t *testing.T) {
	app := setupApp(makeDeps())

	status, body, _ := do(t, app, "POST", "/v1/wildfire/timeline", timelineNDJSON)
	require.Equal(t, 201, status, string(body))
	var summary domain.TimelineSummary
	require.NoError(t, json.Unmarshal(body, &summary))
	assert.Equal(t, 3, summary.Frames)
	assert.Equal(t, 1, summary.SkippedLines)
	assert.Equal(t, 0.0, summary.FirstMinute)
	assert.Equal(t, 20.0, summary.LastMinute)

	status, body, _ = do(t, app, "GET", "/v1/wildfire/timeline", "")
	require.Equal(t, 200, status)
	var st usecases.WildfireStatus
	require.NoError(t, json.Unmarshal(body, &st))
	assert.True(t, st.Loaded)
	require.NotNil(t, st.Playback)
	assert.Equal(t, domain.PlaybackIdle, st.Playback.State)
	assert.Equal(t, 0, st.Playback.Index)

	status, body, _ = do(t, app, "GET", "/v1/wildfire/frames/2", "")
	require.Equal(t, 200, status)
	var view usecases.FrameView
	require.NoError(t, json.Unmarshal(body, &view))
	assert.Equal(t, 2, view.Index)
	assert.Equal(t, 20.0, view.Frame.TimeMinutes)
	assert.Len(t, view.Frame.BurnedCells, 3)
	assert.GreaterOrEqual(t, view.CellSizeMeters, 10.0)
	assert.LessOrEqual(t, view.CellSizeMeters, 100.0)
}

func TestWildfireTimeline_Errors(t *testing.T) {
	app := setupApp(makeDeps())

	status, body, _ := do(t, app, "GET", "/v1/wildfire/timeline", "")
	require.Equal(t, 200, status)
	assert.JSONEq(t, `{"loaded":false}`, string(body))

	status, _, _ = do(t, app, "GET", "/v1/wildfire/frames/0", "")
	assert.Equal(t, 404, status)

	status, body, _ = do(t, app, "POST", "/v1/wildfire/timeline", "garbage\nmore garbage")
	assert.Equal(t, 422, status)
	assert.Equal(t, "no_frames_parsed", decodeError(t, body).Code)

	status, _, _ = do(t, app, "POST", "/v1/wildfire/timeline", "  ")
	assert.Equal(t, 400, status)

	do(t, app, "POST", "/v1/wildfire/timeline", timelineNDJSON)

	status, _, _ = do(t, app, "GET", "/v1/wildfire/frames/3", "")
	assert.Equal(t, 404, status)
	status, _, _ = do(t, app, "GET", "/v1/wildfire/frames/abc", "")
	assert.Equal(t, 400, status)
}

func TestWildfirePlayback(t *testing.T) {
	app := setupApp(makeDeps())

	status, _, _ := do(t, app, "POST", "/v1/wildfire/playback", `{"action":"play"}`)
	assert.Equal(t, 404, status, "no timeline loaded yet")

	do(t, app, "POST", "/v1/wildfire/timeline", timelineNDJSON)

	status, body, _ := do(t, app, "POST", "/v1/wildfire/playback", `{"action":"seek","index":99}`)
	require.Equal(t, 200, status)
	var st usecases.WildfireStatus
	require.NoError(t, json.Unmarshal(body, &st))
	assert.Equal(t, 2, st.Playback.Index)

	// Play from the last frame rewinds; the hour-long interval keeps the cursor still.
	_, body, _ = do(t, app, "POST", "/v1/wildfire/playback", `{"action":"play"}`)
	require.NoError(t, json.Unmarshal(body, &st))
	assert.Equal(t, domain.PlaybackPlaying, st.Playback.State)
	assert.Equal(t, 0, st.Playback.Index)

	_, body, _ = do(t, app, "POST", "/v1/wildfire/playback", `{"action":"pause"}`)
	require.NoError(t, json.Unmarshal(body, &st))
	assert.Equal(t, domain.PlaybackPaused, st.Playback.State)

	status, _, _ = do(t, app, "POST", "/v1/wildfire/playback", `{"action":"seek"}`)
	assert.Equal(t, 400, status)
	status, _, _ = do(t, app, "POST", "/v1/wildfire/playback", `{"action":"rewind"}`)
	assert.Equal(t, 400, status)
}

// ---- GraphQL ----

func TestGraphQL_Queries(t *testing.T) {
	app := setupApp(makeDeps())
	do(t, app, "POST", "/v1/hazards", `{"center":{"lat":36.08,"lon":129.40},"radiusMeters":1000}`)

	query := `{
		hazardLatest { id radius_meters vertex_count created_at }
		classifyPoint(lat: 36.08, lon: 129.40) { in_hazard tier distance_to_edge_meters }
		nearbyShelters(lat: 36.0805, lon: 129.4040, excludeHazard: false, limit: 2) { source items { id distance_meters in_hazard } }
		shelterCategories { category count }
		route(mode: "walk", startLat: 36.0805, startLon: 129.4040, endLat: 36.0645, endLon: 129.3775) { mode degraded summary { distance_meters } }
		wildfireStatus { loaded }
	}`
	payload, _ := json.Marshal(map[string]string{"query": query})

	status, body, _ := do(t, app, "POST", "/graphql", string(payload))
	require.Equal(t, 200, status)

	var res struct {
		Data struct {
			HazardLatest struct {
				RadiusMeters float64 `json:"radius_meters"`
				VertexCount  int     `json:"vertex_count"`
				CreatedAt    string  `json:"created_at"`
			} `json:"hazardLatest"`
			ClassifyPoint struct {
				InHazard bool   `json:"in_hazard"`
				Tier     string `json:"tier"`
			} `json:"classifyPoint"`
			NearbyShelters struct {
				Source string `json:"source"`
				Items  []struct {
					ID       string `json:"id"`
					InHazard bool   `json:"in_hazard"`
				} `json:"items"`
			} `json:"nearbyShelters"`
			ShelterCategories []domain.CategoryCount `json:"shelterCategories"`
			Route             struct {
				Mode     string `json:"mode"`
				Degraded bool   `json:"degraded"`
			} `json:"route"`
			WildfireStatus struct {
				Loaded bool `json:"loaded"`
			} `json:"wildfireStatus"`
		} `json:"data"`
		Errors []json.RawMessage `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(body, &res))
	require.Empty(t, res.Errors, string(body))

	assert.Equal(t, 1000.0, res.Data.HazardLatest.RadiusMeters)
	assert.Equal(t, hazard.DefaultVertexCount, res.Data.HazardLatest.VertexCount)
	_, err := time.Parse(time.RFC3339, res.Data.HazardLatest.CreatedAt)
	assert.NoError(t, err)
	assert.True(t, res.Data.ClassifyPoint.InHazard)
	assert.Equal(t, "high", res.Data.ClassifyPoint.Tier)
	assert.Equal(t, "catalog", res.Data.NearbyShelters.Source)
	require.Len(t, res.Data.NearbyShelters.Items, 2)
	assert.Equal(t, "near", res.Data.NearbyShelters.Items[0].ID)
	assert.True(t, res.Data.NearbyShelters.Items[0].InHazard)
	assert.Len(t, res.Data.ShelterCategories, 2)
	assert.Equal(t, "walk", res.Data.Route.Mode)
	assert.False(t, res.Data.Route.Degraded)
	assert.False(t, res.Data.WildfireStatus.Loaded)
}

func TestGraphQL_EmptyQuery(t *testing.T) {
	app := setupApp(makeDeps())

	status, _, _ := do(t, app, "POST", "/graphql", `{"query":""}`)
	assert.Equal(t, 400, status)
}

// ---- Ops and middleware ----

func TestHealth_Returns200(t *testing.T) {
	app := setupApp(makeDeps())

	status, body, _ := do(t, app, "GET", "/v1/health", "")
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	if !strings.Contains(string(body), `"healthy"`) {
		t.Errorf("unexpected body: %s", body)
	}
}

func TestReady_NothingConfigured(t *testing.T) {
	app := setupApp(makeDeps())

	status, body, _ := do(t, app, "GET", "/v1/ready", "")
	require.Equal(t, 200, status)
	var res struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	require.NoError(t, json.Unmarshal(body, &res))
	assert.Equal(t, "ready", res.Status)
	assert.Equal(t, "not configured", res.Checks["database"])
	assert.Equal(t, "empty", res.Checks["wildfire"])
}

func TestAPIVersionHeader(t *testing.T) {
	app := setupApp(makeDeps())

	_, _, headers := do(t, app, "GET", "/v1/health", "")
	if headers["X-Api-Version"] != "1.0.0" {
		t.Errorf("expected X-API-Version 1.0.0, got %q", headers["X-Api-Version"])
	}
	if headers["X-Content-Type-Options"] != "nosniff" {
		t.Errorf("expected nosniff, got %q", headers["X-Content-Type-Options"])
	}
}

func TestErrorsCarryRequestID(t *testing.T) {
	app := setupApp(makeDeps())

	_, body, headers := do(t, app, "GET", "/v1/hazards/check", "")
	e := decodeError(t, body)
	assert.Equal(t, 400, e.Status)
	assert.NotEmpty(t, e.RequestID)
	assert.Equal(t, headers["X-Request-Id"], e.RequestID)
}

func TestCacheControlByEndpoint(t *testing.T) {
	app := setupApp(makeDeps())

	cases := map[string]string{
		"/v1/shelters/categories":            "public, max-age=3600",
		"/v1/shelters/nearby?lat=36&lon=129": "private, max-age=30",
		"/v1/hazards/latest":                 "no-cache",
		"/v1/wildfire/timeline":              "no-cache",
		"/v1/hazards/check":                  "no-store",
	}
	for target, want := range cases {
		_, _, headers := do(t, app, "GET", target, "")
		if headers["Cache-Control"] != want {
			t.Errorf("%s: expected Cache-Control %q, got %q", target, want, headers["Cache-Control"])
		}
	}
}

func TestETag_NotModified(t *testing.T) {
	app := setupApp(makeDeps())

	_, _, headers := do(t, app, "GET", "/v1/shelters/categories", "")
	etag := headers["Etag"]
	require.NotEmpty(t, etag)

	req := httptest.NewRequest("GET", "/v1/shelters/categories", nil)
	req.Header.Set("If-None-Match", etag)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, 304, resp.StatusCode)
}

// TestAccessLogMiddleware verifies the access log does not alter responses.
func TestAccessLogMiddleware(t *testing.T) {
	app := fiber.New()
	app.Use(handler.RequestIDLogMiddleware())
	app.Use(handler.AccessLogMiddleware())
	app.Get("/test", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true})
	})

	req := httptest.NewRequest("GET", "/test", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "ok") {
		t.Errorf("expected response body to contain 'ok', got %s", string(body))
	}
}
