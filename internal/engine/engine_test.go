package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"path/filepath"
	"testing"
	"time"

	"irrinet/controller/internal/bus"
	"irrinet/controller/internal/config"
	"irrinet/controller/internal/daylog"
	"irrinet/controller/internal/metrics"
	"irrinet/controller/internal/mlp"
	"irrinet/controller/internal/weather"
)

type published struct {
	topic   string
	payload string
}

type fakeConn struct {
	connected   bool
	inbox       []bus.Message
	published   []published
	failPublish int // fail the next N publishes
}

func (f *fakeConn) Drain(max int) []bus.Message {
	out := f.inbox
	f.inbox = nil
	return out
}

func (f *fakeConn) Publish(topic, payload string) error {
	if f.failPublish > 0 {
		f.failPublish--
		return errors.New("transport down")
	}
	f.published = append(f.published, published{topic, payload})
	return nil
}

func (f *fakeConn) IsConnected() bool { return f.connected }
func (f *fakeConn) Close()            {}

func (f *fakeConn) commands(topic string) []string {
	var out []string
	for _, p := range f.published {
		if p.topic == topic {
			out = append(out, p.payload)
		}
	}
	return out
}

type fakeFetcher struct {
	sample weather.Sample
	err    error
}

func (f fakeFetcher) Fetch(context.Context) (weather.Sample, error) {
	return f.sample, f.err
}

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.t = c.t.Add(d)
	return nil
}

func testConfig() Config {
	return Config{
		TickInterval:       30 * time.Second,
		StatusInterval:     60 * time.Second,
		SampleWindow:       300 * time.Millisecond,
		SamplePoll:         100 * time.Millisecond,
		ConfigTimeout:      time.Second,
		ReconnectBackoff:   5 * time.Second,
		ReconnectWait:      60 * time.Second,
		PumpOnThresholdS:   0.5,
		FieldCapacityPct:   42,
		WiltingPointPct:    15,
		TopicPumpCmd:       "esp32/pump/control",
		TopicPumpRemaining: "RPi/Pico/PumpRemainingTime",
	}
}

func onionPlanting(clock *fakeClock, daysAgo int) config.PlantingConfig {
	return config.PlantingConfig{
		Crop:           "onion",
		PlantingDate:   clock.t.AddDate(0, 0, -daysAgo).Format("2006-01-02"),
		PlantCount:     100,
		PlantSpacingCM: 10,
		RowSpacingCM:   20,
		PumpFlowLPH:    9,
	}
}

func newTestEngine(t *testing.T, cfg Config, conn *fakeConn, fetch weather.Fetcher, clock *fakeClock) *Engine {
	t.Helper()
	dlog, err := daylog.New(filepath.Join(t.TempDir(), "daily.csv"))
	if err != nil {
		t.Fatal(err)
	}
	e := New(cfg, Deps{
		Dial:    func() (bus.Conn, error) { return conn, nil },
		Fetcher: fetch,
		Model:   mlp.ET0Model(),
		DayLog:  dlog,
		Metrics: metrics.New(),
		Log:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		Now:     clock.now,
		Sleep:   clock.sleep,
	})
	e.conn = conn
	return e
}

func start() (*fakeClock, *fakeConn) {
	clock := &fakeClock{t: time.Date(2026, 8, 26, 6, 0, 0, 0, time.UTC)}
	return clock, &fakeConn{connected: true}
}

func TestPumpOffFiresExactlyOnce(t *testing.T) {
	clock, conn := start()
	e := newTestEngine(t, testConfig(), conn, fakeFetcher{}, clock)
	e.pump = PumpState{Running: true, StartedAt: clock.t, TargetS: 10}

	clock.t = clock.t.Add(5 * time.Second)
	e.pumpOffCheck()
	if len(conn.commands("esp32/pump/control")) != 0 {
		t.Fatal("OFF fired before the target elapsed")
	}

	clock.t = clock.t.Add(6 * time.Second)
	e.pumpOffCheck()
	cmds := conn.commands("esp32/pump/control")
	if len(cmds) != 1 || cmds[0] != "PUMP_OFF" {
		t.Fatalf("commands = %v, want one PUMP_OFF", cmds)
	}
	if e.pump.Running {
		t.Fatal("pump still marked running after OFF")
	}

	for i := 0; i < 5; i++ {
		clock.t = clock.t.Add(30 * time.Second)
		e.pumpOffCheck()
	}
	if got := len(conn.commands("esp32/pump/control")); got != 1 {
		t.Fatalf("OFF fired %d times, want exactly once", got)
	}
}

func TestPumpOffRetriesAfterPublishFailure(t *testing.T) {
	clock, conn := start()
	e := newTestEngine(t, testConfig(), conn, fakeFetcher{}, clock)
	e.pump = PumpState{Running: true, StartedAt: clock.t, TargetS: 10}
	conn.failPublish = 1

	clock.t = clock.t.Add(11 * time.Second)
	e.pumpOffCheck()
	if !e.pump.Running {
		t.Fatal("pump cleared even though OFF publish failed")
	}

	e.pumpOffCheck()
	if e.pump.Running {
		t.Fatal("pump not cleared after OFF finally published")
	}
	if cmds := conn.commands("esp32/pump/control"); len(cmds) != 1 {
		t.Fatalf("commands = %v", cmds)
	}
}

func TestDecidePumpMatrix(t *testing.T) {
	t.Run("on when above threshold", func(t *testing.T) {
		clock, conn := start()
		e := newTestEngine(t, testConfig(), conn, fakeFetcher{}, clock)
		e.decidePump(38.4)
		cmds := conn.commands("esp32/pump/control")
		if len(cmds) != 1 || cmds[0] != "PUMP_ON" {
			t.Fatalf("commands = %v", cmds)
		}
		if !e.pump.Running || e.pump.TargetS != 38.4 {
			t.Fatalf("pump = %+v", e.pump)
		}
	})

	t.Run("target update when already running", func(t *testing.T) {
		clock, conn := start()
		e := newTestEngine(t, testConfig(), conn, fakeFetcher{}, clock)
		started := clock.t.Add(-20 * time.Second)
		e.pump = PumpState{Running: true, StartedAt: started, TargetS: 120}
		e.decidePump(90)
		if len(conn.published) != 0 {
			t.Fatalf("published %v, want no command", conn.published)
		}
		if e.pump.TargetS != 90 || !e.pump.StartedAt.Equal(started) {
			t.Fatalf("pump = %+v, want target updated and timer untouched", e.pump)
		}
	})

	t.Run("off when demand below threshold", func(t *testing.T) {
		clock, conn := start()
		e := newTestEngine(t, testConfig(), conn, fakeFetcher{}, clock)
		e.pump = PumpState{Running: true, StartedAt: clock.t, TargetS: 120}
		e.decidePump(0.2)
		cmds := conn.commands("esp32/pump/control")
		if len(cmds) != 1 || cmds[0] != "PUMP_OFF" {
			t.Fatalf("commands = %v", cmds)
		}
		if e.pump.Running {
			t.Fatal("pump still running")
		}
	})

	t.Run("stays off when ON publish fails", func(t *testing.T) {
		clock, conn := start()
		e := newTestEngine(t, testConfig(), conn, fakeFetcher{}, clock)
		conn.failPublish = 1
		e.decidePump(38.4)
		if e.pump.Running {
			t.Fatal("pump marked running despite failed ON command")
		}
		if len(conn.published) != 0 {
			t.Fatalf("published %v", conn.published)
		}
	})
}

func TestSampleSoilFallbacks(t *testing.T) {
	t.Run("first run default", func(t *testing.T) {
		clock, conn := start()
		e := newTestEngine(t, testConfig(), conn, fakeFetcher{}, clock)
		if got := e.sampleSoil(context.Background()); got != 25.0 {
			t.Fatalf("mean = %v, want first-run default 25.0", got)
		}
	})

	t.Run("keeps previous mean", func(t *testing.T) {
		clock, conn := start()
		e := newTestEngine(t, testConfig(), conn, fakeFetcher{}, clock)
		e.everSampled = true
		e.day.MeanVWC = 31.5
		if got := e.sampleSoil(context.Background()); got != 31.5 {
			t.Fatalf("mean = %v, want previous 31.5", got)
		}
	})
}

func TestSampleSoilMeanAndRangeFilter(t *testing.T) {
	clock, conn := start()
	e := newTestEngine(t, testConfig(), conn, fakeFetcher{}, clock)
	conn.inbox = []bus.Message{
		{Kind: bus.KindSoilReading, Value: 20},
		{Kind: bus.KindSoilReading, Value: 30},
		{Kind: bus.KindSoilReading, Value: 150}, // out of range, dropped
		{Kind: bus.KindSoilReading, Value: -2},  // out of range, dropped
		{Kind: bus.KindSoilReading, Value: 40},
		{Kind: bus.KindSoilReading, Err: errors.New("bad payload")},
	}
	got := e.sampleSoil(context.Background())
	if got != 30 {
		t.Fatalf("mean = %v, want 30", got)
	}
}

func TestSoilReadingsIgnoredOutsideWindow(t *testing.T) {
	clock, conn := start()
	e := newTestEngine(t, testConfig(), conn, fakeFetcher{}, clock)
	e.applyInbound([]bus.Message{{Kind: bus.KindSoilReading, Value: 22}})
	if len(e.soil) != 0 {
		t.Fatalf("buffer = %v, want readings gated while idle", e.soil)
	}
}

func TestFetchET0Fallbacks(t *testing.T) {
	t.Run("never fetched forces zero", func(t *testing.T) {
		clock, conn := start()
		e := newTestEngine(t, testConfig(), conn, fakeFetcher{err: errors.New("dns")}, clock)
		e.day.LastET0 = 7.7 // must be ignored: no weather has ever been obtained
		if got := e.fetchET0(context.Background()); got != 0 {
			t.Fatalf("et0 = %v, want 0 fail-safe", got)
		}
	})

	t.Run("keeps last known on failure", func(t *testing.T) {
		clock, conn := start()
		e := newTestEngine(t, testConfig(), conn, fakeFetcher{err: errors.New("dns")}, clock)
		e.everFetched = true
		e.day.LastET0 = 3.5
		if got := e.fetchET0(context.Background()); got != 3.5 {
			t.Fatalf("et0 = %v, want 3.5", got)
		}
	})

	t.Run("clamps negative prediction", func(t *testing.T) {
		clock, conn := start()
		e := newTestEngine(t, testConfig(), conn, fakeFetcher{err: errors.New("dns")}, clock)
		e.everFetched = true
		e.day.LastET0 = -1.2
		if got := e.fetchET0(context.Background()); got != 0 {
			t.Fatalf("et0 = %v, want clamped to 0", got)
		}
	})
}

func TestRolloverDayScenario(t *testing.T) {
	clock, conn := start()
	fetch := fakeFetcher{sample: weather.Sample{TmaxC: 28.0, RHPct: 50, SolarMJM2Day: 15.0}}
	e := newTestEngine(t, testConfig(), conn, fetch, clock)
	e.applyConfig(onionPlanting(clock, 106))

	conn.inbox = []bus.Message{{Kind: bus.KindSoilReading, Value: 25.0}}
	today := clock.t.Format("2006-01-02")
	e.rollover(context.Background(), today)

	s := e.Snapshot()
	if s.DayIndex != 106 {
		t.Fatalf("day index = %d, want 106", s.DayIndex)
	}
	if s.KcToday != 0.8 {
		t.Fatalf("kc = %v, want 0.8", s.KcToday)
	}
	if s.RootZoneMM != 600 {
		t.Fatalf("root zone = %v, want 600", s.RootZoneMM)
	}
	if s.MeanVWC != 25.0 {
		t.Fatalf("mean vwc = %v", s.MeanVWC)
	}
	if s.AvailableWaterMM != 60.0 {
		t.Fatalf("available = %v, want min(60, 162) = 60.0", s.AvailableWaterMM)
	}
	// golden value for features (28.0, 50, 15.0) against the built-in tables
	if math.Abs(s.ET0-4.518529175246791) > 1e-9 {
		t.Fatalf("et0 = %v, want 4.518529175246791", s.ET0)
	}
	if math.Abs(s.ETc-s.ET0*0.8) > 1e-9 {
		t.Fatalf("etc = %v, want et0*kc = %v", s.ETc, s.ET0*0.8)
	}
	// area = 10cm * 20cm * 100 plants = 2.0 m^2, flow 9 L/h
	wantSecs := s.ETc * 2.0 / 9 * 3600
	if math.Abs(s.PumpDurationS-wantSecs) > 1e-9 {
		t.Fatalf("pump duration = %v, want %v", s.PumpDurationS, wantSecs)
	}
	if s.PumpRunning != (wantSecs > 0.5) {
		t.Fatalf("pump running = %v with duration %v", s.PumpRunning, wantSecs)
	}
	if s.LastDate != today {
		t.Fatalf("last date = %q, want %q", s.LastDate, today)
	}

	rows, err := e.dlog.ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0].Date != today || rows[0].Kc != 0.8 {
		t.Fatalf("daily log rows = %+v", rows)
	}
}

func TestQueueConfigAppliedBetweenTicks(t *testing.T) {
	clock, conn := start()
	e := newTestEngine(t, testConfig(), conn, fakeFetcher{}, clock)
	e.applyConfig(onionPlanting(clock, 106))
	e.recomputeCrop(clock.t)

	maize := config.PlantingConfig{
		Crop:           "maize",
		PlantingDate:   clock.t.AddDate(0, 0, -10).Format("2006-01-02"),
		PlantCount:     50,
		PlantSpacingCM: 25,
		RowSpacingCM:   75,
		PumpFlowLPH:    12,
	}
	if err := e.QueueConfig(maize); err != nil {
		t.Fatal(err)
	}
	e.applyPendingConfig()

	s := e.Snapshot()
	if s.Crop != "maize" || s.DayIndex != 10 {
		t.Fatalf("snapshot = %+v", s)
	}
	wantArea := 0.25 * 0.75 * 50
	if math.Abs(s.TotalAreaM2-wantArea) > 1e-9 {
		t.Fatalf("area = %v, want %v", s.TotalAreaM2, wantArea)
	}
}

func TestQueueConfigRejectsInvalid(t *testing.T) {
	clock, conn := start()
	e := newTestEngine(t, testConfig(), conn, fakeFetcher{}, clock)
	bad := onionPlanting(clock, 10)
	bad.PumpFlowLPH = 0
	if err := e.QueueConfig(bad); err == nil {
		t.Fatal("invalid config accepted")
	}
}

func TestPublishRemaining(t *testing.T) {
	clock, conn := start()
	e := newTestEngine(t, testConfig(), conn, fakeFetcher{}, clock)

	e.publishRemaining()
	e.pump = PumpState{Running: true, StartedAt: clock.t, TargetS: 38.4}
	clock.t = clock.t.Add(10 * time.Second)
	e.publishRemaining()

	got := conn.commands("RPi/Pico/PumpRemainingTime")
	if len(got) != 2 || got[0] != "0.0" || got[1] != "28.4" {
		t.Fatalf("remaining payloads = %v", got)
	}
}
