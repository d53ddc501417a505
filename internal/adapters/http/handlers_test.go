package http_test

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	handler "github.com/samirrijal/nextmetro/internal/adapters/http"
	"github.com/samirrijal/nextmetro/internal/core/domain"
	"github.com/samirrijal/nextmetro/internal/core/usecases"
)

// ---- Test doubles ----

type stubClock struct{ now time.Time }

func (s stubClock) Now() time.Time { return s.now }

func at(h, m int) time.Time {
	return time.Date(2024, 6, 12, h, m, 0, 0, time.UTC)
}

// ---- Test helpers ----

func setupApp(deps *handler.Dependencies) *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	handler.SetupRoutes(app, deps)
	return app
}

func makeDeps(t *testing.T, now time.Time, opts ...func(*handler.Dependencies)) *handler.Dependencies {
	t.Helper()
	engine, err := usecases.NewScheduleEngine(domain.ScheduleConfig{
		HeadwayMinutes:  3,
		LastWindowStart: domain.TimeOfDay{Hour: 0, Minute: 45},
		ServiceEnd:      domain.TimeOfDay{Hour: 1, Minute: 15},
		ServiceResume:   domain.DefaultServiceResume,
		Timezone:        "Europe/Paris",
		Line:            "M7",
	})
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	catalog := domain.NewStationCatalog("M7", domain.M7Stations)

	d := &handler.Dependencies{
		Boards: usecases.NewBoardService(engine, catalog, stubClock{now: now}, nil, nil),
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

func get(t *testing.T, app *fiber.App, target string) (int, map[string]interface{}) {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest("GET", target, nil), -1)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var body map[string]interface{}
	if err := json.Unmarshal(readBody(t, resp.Body), &body); err != nil {
		t.Fatalf("decode %s: %v", target, err)
	}
	return resp.StatusCode, body
}

func readBody(t *testing.T, body io.Reader) []byte {
	t.Helper()
	b, err := io.ReadAll(body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return b
}

// ---- /next-metro ----

func TestNextMetro_SingleArrival(t *testing.T) {
	app := setupApp(makeDeps(t, at(12, 0)))

	status, body := get(t, app, "/next-metro?station=pont%20marie")
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	want := map[string]interface{}{
		"station":     "Pont Marie",
		"line":        "M7",
		"headwayMin":  float64(3),
		"nextArrival": "12:03",
		"isLast":      false,
		"tz":          "Europe/Paris",
	}
	for k, v := range want {
		if body[k] != v {
			t.Errorf("%s: expected %v, got %v", k, v, body[k])
		}
	}
	if _, ok := body["arrivals"]; ok {
		t.Error("single-arrival body should not carry arrivals")
	}
	if _, ok := body["service"]; ok {
		t.Error("open body should not carry service")
	}
}

func TestNextMetro_LastWindow(t *testing.T) {
	app := setupApp(makeDeps(t, at(0, 50)))

	status, body := get(t, app, "/next-metro?station=Ch%C3%A2telet")
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	if body["nextArrival"] != "00:53" || body["isLast"] != true {
		t.Errorf("expected 00:53 last, got %v %v", body["nextArrival"], body["isLast"])
	}
}

func TestNextMetro_MultipleArrivals(t *testing.T) {
	app := setupApp(makeDeps(t, at(0, 44)))

	status, body := get(t, app, "/next-metro?station=Chatelet&n=3")
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	if body["station"] != "Châtelet" {
		t.Errorf("expected canonical name, got %v", body["station"])
	}
	if _, ok := body["nextArrival"]; ok {
		t.Error("multi-arrival body should not carry nextArrival")
	}

	arrivals, ok := body["arrivals"].([]interface{})
	if !ok || len(arrivals) != 3 {
		t.Fatalf("expected 3 arrivals, got %v", body["arrivals"])
	}
	want := []struct {
		time   string
		isLast bool
	}{
		{"00:47", false},
		{"00:50", true},
		{"00:53", true},
	}
	for i, w := range want {
		a := arrivals[i].(map[string]interface{})
		if a["time"] != w.time || a["isLast"] != w.isLast {
			t.Errorf("arrival %d: expected %s/%v, got %v/%v", i, w.time, w.isLast, a["time"], a["isLast"])
		}
	}
}

func TestNextMetro_Closed(t *testing.T) {
	for _, target := range []string{
		"/next-metro?station=Jussieu",
		"/next-metro?station=Jussieu&n=4",
	} {
		t.Run(target, func(t *testing.T) {
			app := setupApp(makeDeps(t, at(1, 30)))

			status, body := get(t, app, target)
			if status != 200 {
				t.Fatalf("expected 200, got %d", status)
			}
			if body["service"] != "closed" || body["tz"] != "Europe/Paris" {
				t.Errorf("expected closed body, got %v", body)
			}
			if len(body) != 2 {
				t.Errorf("closed body should only carry service and tz, got %v", body)
			}
		})
	}
}

func TestNextMetro_Validation(t *testing.T) {
	tests := []struct {
		name    string
		target  string
		status  int
		message string
	}{
		{"missing station", "/next-metro", 400, "Station parameter is required"},
		{"blank station", "/next-metro?station=%20%20", 400, "Station parameter is required"},
		{"n zero", "/next-metro?station=Jussieu&n=0", 400, "Parameter n must be between 1 and 5"},
		{"n too large", "/next-metro?station=Jussieu&n=6", 400, "Parameter n must be between 1 and 5"},
		{"n not a number", "/next-metro?station=Jussieu&n=abc", 400, "Parameter n must be between 1 and 5"},
		{"n negative", "/next-metro?station=Jussieu&n=-1", 400, "Parameter n must be between 1 and 5"},
		{"unknown station", "/next-metro?station=Nowhere", 404, "unknown station"},
	}

	app := setupApp(makeDeps(t, at(12, 0)))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := get(t, app, tt.target)
			if status != tt.status {
				t.Fatalf("expected %d, got %d", tt.status, status)
			}
			if body["error"] != tt.message {
				t.Errorf("expected error %q, got %v", tt.message, body["error"])
			}
		})
	}
}

func TestNextMetro_UnknownStationSuggestions(t *testing.T) {
	app := setupApp(makeDeps(t, at(12, 0)))

	status, body := get(t, app, "/next-metro?station=Pont")
	if status != 404 {
		t.Fatalf("expected 404, got %d", status)
	}
	suggestions, ok := body["suggestions"].([]interface{})
	if !ok {
		t.Fatalf("expected suggestions array, got %v", body["suggestions"])
	}
	if len(suggestions) != 2 || suggestions[0] != "Pont Neuf" || suggestions[1] != "Pont Marie" {
		t.Errorf("unexpected suggestions: %v", suggestions)
	}

	// no match still yields an empty array, not null
	_, body = get(t, app, "/next-metro?station=zzz")
	if s, ok := body["suggestions"].([]interface{}); !ok || len(s) != 0 {
		t.Errorf("expected empty suggestions, got %v", body["suggestions"])
	}
}

func TestNextMetro_NoStoreNoETag(t *testing.T) {
	app := setupApp(makeDeps(t, at(12, 0)))

	resp, _ := app.Test(httptest.NewRequest("GET", "/next-metro?station=Jussieu", nil), -1)
	if cc := resp.Header.Get("Cache-Control"); cc != "no-store" {
		t.Errorf("expected no-store, got %q", cc)
	}
	if etag := resp.Header.Get("ETag"); etag != "" {
		t.Errorf("expected no ETag on boards, got %q", etag)
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header")
	}
}

// ---- Health, readiness, 404 ----

func TestHealth_Returns200(t *testing.T) {
	app := setupApp(makeDeps(t, at(3, 0)))

	status, body := get(t, app, "/health")
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	if body["status"] != "ok" {
		t.Errorf("expected ok status, got %v", body["status"])
	}
}

func TestReady_NoBackends(t *testing.T) {
	app := setupApp(makeDeps(t, at(12, 0)))

	status, body := get(t, app, "/ready")
	// NATS and Valkey are optional
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	checks := body["checks"].(map[string]interface{})
	if checks["nats"] != "not configured" || checks["cache"] != "not configured" {
		t.Errorf("unexpected checks: %v", checks)
	}
}

func TestReady_NoBoards(t *testing.T) {
	app := setupApp(&handler.Dependencies{})

	resp, _ := app.Test(httptest.NewRequest("GET", "/ready", nil), -1)
	if resp.StatusCode != 503 {
		t.Fatalf("expected 503, got %d", resp.StatusCode)
	}
}

func TestNotFound(t *testing.T) {
	app := setupApp(makeDeps(t, at(12, 0)))

	for _, target := range []string{"/nope", "/next-metro/extra", "/v1/health"} {
		status, body := get(t, app, target)
		if status != 404 {
			t.Errorf("%s: expected 404, got %d", target, status)
		}
		if body["error"] != "URL not found" {
			t.Errorf("%s: expected URL not found, got %v", target, body["error"])
		}
	}
}

// ---- /stations ----

func TestStations_Suggest(t *testing.T) {
	app := setupApp(makeDeps(t, at(12, 0)))

	status, body := get(t, app, "/stations?q=porte")
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	suggestions := body["suggestions"].([]interface{})
	if len(suggestions) != 4 || suggestions[0] != "Porte de la Villette" {
		t.Errorf("unexpected suggestions: %v", suggestions)
	}
}

func TestStations_Pagination(t *testing.T) {
	app := setupApp(makeDeps(t, at(12, 0)))

	resp, err := app.Test(httptest.NewRequest("GET", "/stations?offset=10&limit=5", nil), -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var result struct {
		Data       []domain.Station `json:"data"`
		Pagination struct {
			Offset int `json:"offset"`
			Limit  int `json:"limit"`
			Total  int `json:"total"`
		} `json:"pagination"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatal(err)
	}
	if result.Pagination.Total != len(domain.M7Stations) {
		t.Errorf("expected total %d, got %d", len(domain.M7Stations), result.Pagination.Total)
	}
	if len(result.Data) != 5 || result.Data[0].Name != domain.M7Stations[10] {
		t.Errorf("unexpected page: %+v", result.Data)
	}

	link := resp.Header.Get("Link")
	for _, rel := range []string{`rel="first"`, `rel="prev"`, `rel="next"`, `rel="last"`} {
		if !strings.Contains(link, rel) {
			t.Errorf("expected %s in Link header, got %s", rel, link)
		}
	}
	if cc := resp.Header.Get("Cache-Control"); cc != "public, max-age=3600" {
		t.Errorf("expected public caching, got %q", cc)
	}
	if resp.Header.Get("ETag") == "" {
		t.Error("expected ETag on station list")
	}
}

func TestStations_ETagNotModified(t *testing.T) {
	app := setupApp(makeDeps(t, at(12, 0)))

	resp, _ := app.Test(httptest.NewRequest("GET", "/stations", nil), -1)
	etag := resp.Header.Get("ETag")
	if etag == "" {
		t.Fatal("expected ETag")
	}

	req := httptest.NewRequest("GET", "/stations", nil)
	req.Header.Set("If-None-Match", etag)
	resp, _ = app.Test(req, -1)
	if resp.StatusCode != 304 {
		t.Errorf("expected 304, got %d", resp.StatusCode)
	}
}

func TestSchedule(t *testing.T) {
	app := setupApp(makeDeps(t, at(12, 0)))

	status, body := get(t, app, "/schedule")
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	if body["lastWindowStart"] != "00:45" || body["serviceEnd"] != "01:15" || body["serviceResume"] != "05:30" {
		t.Errorf("unexpected schedule: %v", body)
	}
}

// ---- GraphQL ----

func postGraphQL(t *testing.T, app *fiber.App, query string) map[string]interface{} {
	t.Helper()
	payload, _ := json.Marshal(map[string]string{"query": query})
	req := httptest.NewRequest("POST", "/graphql", strings.NewReader(string(payload)))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var result map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatal(err)
	}
	return result
}

func TestGraphQL_NextMetro(t *testing.T) {
	app := setupApp(makeDeps(t, at(0, 44)))

	result := postGraphQL(t, app, `{ nextMetro(station: "Pont Marie", n: 2) { service station arrivals { time isLast } } }`)
	if errs, ok := result["errors"]; ok {
		t.Fatalf("unexpected errors: %v", errs)
	}
	board := result["data"].(map[string]interface{})["nextMetro"].(map[string]interface{})
	if board["service"] != "open" || board["station"] != "Pont Marie" {
		t.Errorf("unexpected board: %v", board)
	}
	arrivals := board["arrivals"].([]interface{})
	if len(arrivals) != 2 {
		t.Fatalf("expected 2 arrivals, got %v", arrivals)
	}
	if second := arrivals[1].(map[string]interface{}); second["time"] != "00:50" || second["isLast"] != true {
		t.Errorf("unexpected second arrival: %v", second)
	}
}

func TestGraphQL_UnknownStation(t *testing.T) {
	app := setupApp(makeDeps(t, at(12, 0)))

	result := postGraphQL(t, app, `{ nextMetro(station: "Nowhere") { station } }`)
	errs, ok := result["errors"].([]interface{})
	if !ok || len(errs) == 0 {
		t.Fatalf("expected errors, got %v", result)
	}
	if msg := errs[0].(map[string]interface{})["message"]; msg != "unknown station" {
		t.Errorf("expected unknown station, got %v", msg)
	}
}

func TestGraphQL_Stations(t *testing.T) {
	app := setupApp(makeDeps(t, at(12, 0)))

	result := postGraphQL(t, app, `{ stations(query: "ivry") }`)
	names := result["data"].(map[string]interface{})["stations"].([]interface{})
	if len(names) != 2 {
		t.Errorf("expected 2 Ivry stations, got %v", names)
	}
}

func TestGraphQL_BadBody(t *testing.T) {
	app := setupApp(makeDeps(t, at(12, 0)))

	req := httptest.NewRequest("POST", "/graphql", strings.NewReader("{"))
	req.Header.Set("Content-Type", "application/json")
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 400 {
		t.Errorf("expected 400, got %d", resp.StatusCode)
	}
}

// ---- Docs ----

func TestDocs_ServesOpenAPI(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "openapi.yaml")
	if err := os.WriteFile(path, []byte("openapi: 3.0.3\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	app := setupApp(makeDeps(t, at(12, 0), func(d *handler.Dependencies) {
		d.OpenAPIPath = path
	}))

	resp, _ := app.Test(httptest.NewRequest("GET", "/docs/openapi.yaml", nil), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if body := readBody(t, resp.Body); !strings.HasPrefix(string(body), "openapi:") {
		t.Errorf("unexpected body %q", body)
	}
}

// TestAccessLogMiddleware verifies structured access logging is emitted.
func TestAccessLogMiddleware(t *testing.T) {
	app := fiber.New()
	app.Use(handler.AccessLogMiddleware())
	app.Get("/test", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true})
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/test", nil))
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
