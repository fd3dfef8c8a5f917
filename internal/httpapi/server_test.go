package httpapi

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"irrinet/controller/internal/daylog"
	"irrinet/controller/internal/engine"
	"irrinet/controller/internal/metrics"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	dlog, err := daylog.New(filepath.Join(t.TempDir(), "daily.csv"))
	if err != nil {
		t.Fatal(err)
	}
	eng := engine.New(engine.Config{}, engine.Deps{
		DayLog:  dlog,
		Metrics: metrics.New(),
		Log:     log,
	})
	s := &Server{Engine: eng, DayLog: dlog, Metrics: metrics.New(), Log: log}
	srv := httptest.NewServer(s.Handler(io.Discard))
	t.Cleanup(srv.Close)
	return s, srv
}

func TestHealth(t *testing.T) {
	_, srv := newTestServer(t)
	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestStatusReturnsSnapshot(t *testing.T) {
	_, srv := newTestServer(t)
	resp, err := http.Get(srv.URL + "/status")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var snap map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"day_index", "kc", "root_zone_mm", "mean_vwc", "et0_mm", "pump_running", "bus_connected"} {
		if _, ok := snap[key]; !ok {
			t.Errorf("snapshot missing %q", key)
		}
	}
}

func TestDailyLogServesCSV(t *testing.T) {
	s, srv := newTestServer(t)
	if err := s.DayLog.Append(daylog.Row{Date: "2026-08-25", MeanVWC: 25, ET0: 4.2, Kc: 0.8}); err != nil {
		t.Fatal(err)
	}
	resp, err := http.Get(srv.URL + "/log")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/csv" {
		t.Fatalf("content type = %q", ct)
	}
	b, _ := io.ReadAll(resp.Body)
	if !strings.HasPrefix(string(b), "Date,MeanVWC") || !strings.Contains(string(b), "2026-08-25") {
		t.Fatalf("body = %q", b)
	}
}

func TestPostConfig(t *testing.T) {
	cases := []struct {
		name string
		body string
		code int
	}{
		{
			"valid",
			`{"crop":"onion","planting_date":"2026-04-15","plant_count":120,"plant_spacing_cm":10,"row_spacing_cm":20,"pump_flow_lph":9}`,
			http.StatusAccepted,
		},
		{
			"unknown crop",
			`{"crop":"kudzu","planting_date":"2026-04-15","plant_count":120,"plant_spacing_cm":10,"row_spacing_cm":20,"pump_flow_lph":9}`,
			http.StatusBadRequest,
		},
		{
			"impossible date",
			`{"crop":"onion","planting_date":"2026-02-30","plant_count":120,"plant_spacing_cm":10,"row_spacing_cm":20,"pump_flow_lph":9}`,
			http.StatusBadRequest,
		},
		{
			"zero flow",
			`{"crop":"onion","planting_date":"2026-04-15","plant_count":120,"plant_spacing_cm":10,"row_spacing_cm":20,"pump_flow_lph":0}`,
			http.StatusBadRequest,
		},
		{
			"malformed json",
			`{"crop":`,
			http.StatusBadRequest,
		},
		{
			"unknown field",
			`{"crop":"onion","sprinklers":4}`,
			http.StatusBadRequest,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, srv := newTestServer(t)
			resp, err := http.Post(srv.URL+"/config", "application/json", strings.NewReader(tc.body))
			if err != nil {
				t.Fatal(err)
			}
			resp.Body.Close()
			if resp.StatusCode != tc.code {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tc.code)
			}
		})
	}
}

func TestConfigRejectsGet(t *testing.T) {
	_, srv := newTestServer(t)
	resp, err := http.Get(srv.URL + "/config")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", resp.StatusCode)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	_, srv := newTestServer(t)
	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(b), "irrigator_ticks_total") {
		t.Fatalf("metrics body missing counters: %q", b[:min(len(b), 200)])
	}
}
