// v3
// internal/engine/engine.go
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"sync"
	"time"

	"irrinet/controller/internal/bus"
	"irrinet/controller/internal/config"
	"irrinet/controller/internal/crop"
	"irrinet/controller/internal/daylog"
	"irrinet/controller/internal/irrigation"
	"irrinet/controller/internal/metrics"
	"irrinet/controller/internal/mlp"
	"irrinet/controller/internal/weather"
)

const (
	pumpOn  = "PUMP_ON"
	pumpOff = "PUMP_OFF"

	// mean VWC used on the very first day if no sensor reading arrives
	firstRunMeanVWC = 25.0

	dateLayout = "2006-01-02"
)

// Config carries the loop's timing and soil parameters, derived from the
// application config.
type Config struct {
	TickInterval     time.Duration
	StatusInterval   time.Duration
	SampleWindow     time.Duration
	SamplePoll       time.Duration
	ConfigTimeout    time.Duration
	ReconnectBackoff time.Duration
	ReconnectWait    time.Duration

	PumpOnThresholdS float64
	FieldCapacityPct float64
	WiltingPointPct  float64

	TopicPumpCmd       string
	TopicPumpRemaining string
}

// FromApp maps the application config onto the loop knobs.
func FromApp(c *config.AppConfig) Config {
	return Config{
		TickInterval:       c.TickInterval,
		StatusInterval:     c.StatusInterval,
		SampleWindow:       c.SampleWindow,
		SamplePoll:         c.SamplePoll,
		ConfigTimeout:      c.ConfigTimeout,
		ReconnectBackoff:   c.ReconnectBackoff,
		ReconnectWait:      c.ReconnectWait,
		PumpOnThresholdS:   c.PumpOnThresholdS,
		FieldCapacityPct:   c.FieldCapacityPct,
		WiltingPointPct:    c.WiltingPointPct,
		TopicPumpCmd:       c.TopicPumpCmd,
		TopicPumpRemaining: c.TopicPumpRemaining,
	}
}

// DailyState is mutated once per calendar-day rollover and read by the
// status surfaces in between.
type DailyState struct {
	DayIndex          int
	KcToday           float64
	RootZoneMM        float64
	MeanVWC           float64
	LastWeather       weather.Sample
	LastET0           float64
	AvailableWaterMM  float64
	ETcMM             float64
	PumpDurationS     float64
	LastDateProcessed string
}

// PumpState tracks the running irrigation and its wall-clock deadline.
type PumpState struct {
	Running   bool
	StartedAt time.Time
	TargetS   float64
}

// Deps wires the engine's collaborators. Now and Sleep default to the real
// clock when nil.
type Deps struct {
	Dial    func() (bus.Conn, error)
	Fetcher weather.Fetcher
	Model   *mlp.Model
	DayLog  *daylog.Log
	Source  ConfigSource
	Metrics *metrics.Metrics
	Log     *slog.Logger
	Now     func() time.Time
	Sleep   func(ctx context.Context, d time.Duration) error
}

// Engine is the single owner of all mutable control state. The loop runs on
// one goroutine; the HTTP surface reads through Snapshot and writes through
// QueueConfig, both mutex-guarded.
type Engine struct {
	cfg   Config
	dial  func() (bus.Conn, error)
	fetch weather.Fetcher
	model *mlp.Model
	dlog  *daylog.Log
	src   ConfigSource
	met   *metrics.Metrics
	log   *slog.Logger
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error

	conn bus.Conn

	mu       sync.Mutex
	busUp    bool
	planting config.PlantingConfig
	areaM2   float64
	day      DailyState
	pump     PumpState
	pending  *config.PlantingConfig

	soil           []float64
	samplingActive bool
	everSampled    bool
	everFetched    bool

	lastStatus time.Time
}

func New(cfg Config, deps Deps) *Engine {
	e := &Engine{
		cfg:   cfg,
		dial:  deps.Dial,
		fetch: deps.Fetcher,
		model: deps.Model,
		dlog:  deps.DayLog,
		src:   deps.Source,
		met:   deps.Metrics,
		log:   deps.Log.With(slog.String("component", "engine")),
		now:   deps.Now,
		sleep: deps.Sleep,
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.sleep == nil {
		e.sleep = sleepCtx
	}
	return e
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Run drives Connecting -> ConfigPending -> the unbounded tick loop. The
// two startup phases return a fatal error on failure; once the loop is
// entered, every per-tick failure is logged and absorbed.
func (e *Engine) Run(ctx context.Context) error {
	conn, err := e.dial()
	if err != nil {
		return fmt.Errorf("startup broker connect: %w", err)
	}
	e.conn = conn
	e.setBusUp(true)

	pc, err := e.awaitConfig(ctx)
	if err != nil {
		return fmt.Errorf("configuration: %w", err)
	}
	e.applyConfig(pc)
	e.log.Info("configuration complete",
		slog.String("crop", string(pc.Crop)),
		slog.String("planting_date", pc.PlantingDate),
		slog.Int("plants", pc.PlantCount),
		slog.Float64("area_m2", e.areaM2))

	e.lastStatus = e.now()
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		e.met.Tick()

		if !e.ensureBus(ctx) {
			continue // backoff sleeps already taken
		}
		e.applyInbound(e.conn.Drain(0))
		e.applyPendingConfig()

		today := e.now().Format(dateLayout)
		if today != e.day.LastDateProcessed {
			e.rollover(ctx, today)
		}

		e.pumpOffCheck()
		e.publishRemaining()
		e.maybeEmitStatus()

		if err := e.sleep(ctx, e.cfg.TickInterval); err != nil {
			return err
		}
	}
}

func (e *Engine) awaitConfig(ctx context.Context) (config.PlantingConfig, error) {
	cctx, cancel := context.WithTimeout(ctx, e.cfg.ConfigTimeout)
	defer cancel()
	return e.src.Await(cctx, e.conn)
}

func (e *Engine) applyConfig(pc config.PlantingConfig) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.planting = pc
	e.areaM2 = pc.TotalAreaM2()
}

// ensureBus health-checks the session and rebuilds it when it has dropped.
// Returns false when the tick should be retried from the top.
func (e *Engine) ensureBus(ctx context.Context) bool {
	if e.conn != nil && e.conn.IsConnected() {
		e.setBusUp(true)
		return true
	}
	e.setBusUp(false)
	e.met.BusReconnect()
	if e.conn != nil {
		e.conn.Close()
		e.conn = nil
	}
	e.log.Warn("broker session down, reconnecting",
		slog.Duration("backoff", e.cfg.ReconnectBackoff))
	if err := e.sleep(ctx, e.cfg.ReconnectBackoff); err != nil {
		return false
	}
	conn, err := e.dial()
	if err != nil {
		e.log.Error("reconnect failed, waiting before retry",
			slog.String("error", err.Error()),
			slog.Duration("wait", e.cfg.ReconnectWait))
		_ = e.sleep(ctx, e.cfg.ReconnectWait)
		return false
	}
	e.conn = conn
	e.setBusUp(true)
	e.log.Info("broker session re-established")
	return true
}

func (e *Engine) setBusUp(up bool) {
	e.mu.Lock()
	e.busUp = up
	e.mu.Unlock()
	e.met.BusConnected(up)
}

// applyInbound handles a batch of drained messages. Soil readings are only
// accepted while the sampling window is open; configuration topics are
// ignored after startup since the HTTP endpoint owns live reconfiguration.
func (e *Engine) applyInbound(msgs []bus.Message) {
	for _, m := range msgs {
		if m.Err != nil {
			e.log.Warn("dropping malformed payload", slog.String("error", m.Err.Error()))
			continue
		}
		switch m.Kind {
		case bus.KindSoilReading:
			if !e.samplingActive {
				continue
			}
			if m.Value < 0 || m.Value > 100 {
				e.log.Warn("dropping out-of-range soil reading",
					slog.Float64("vwc", m.Value))
				continue
			}
			e.soil = append(e.soil, m.Value)
		case bus.KindUnknown:
			e.log.Warn("message on unexpected topic", slog.String("topic", m.Topic))
		default:
			// config topics are only honored during ConfigPending
			e.log.Info("ignoring config message after startup",
				slog.String("kind", m.Kind.String()))
		}
	}
}

func (e *Engine) applyPendingConfig() {
	e.mu.Lock()
	pc := e.pending
	e.pending = nil
	e.mu.Unlock()
	if pc == nil {
		return
	}
	e.applyConfig(*pc)
	e.recomputeCrop(e.now())
	e.log.Info("planting configuration replaced",
		slog.String("crop", string(pc.Crop)),
		slog.String("planting_date", pc.PlantingDate),
		slog.Float64("kc", e.day.KcToday),
		slog.Float64("root_zone_mm", e.day.RootZoneMM))
}

// recomputeCrop refreshes day index, Kc and root-zone depth from the active
// planting config. A bad date keeps the previous values.
func (e *Engine) recomputeCrop(now time.Time) {
	y, m, d, err := config.ParsePlantingDate(e.planting.PlantingDate)
	if err == nil {
		var days int
		days, err = crop.DaysAfterPlanting(now, y, m, d)
		if err == nil {
			e.mu.Lock()
			e.day.DayIndex = days
			e.day.KcToday = profileOrZero(crop.KcProfile(e.planting.Crop)).Interpolate(days)
			e.day.RootZoneMM = profileOrZero(crop.RootProfile(e.planting.Crop)).Interpolate(days) * 1000
			e.mu.Unlock()
			return
		}
	}
	e.log.Warn("day-clock recompute failed, keeping previous crop values",
		slog.String("error", err.Error()),
		slog.Int("day_index", e.day.DayIndex))
}

func profileOrZero(p crop.Profile, ok bool) crop.Profile {
	if !ok {
		return crop.Profile{}
	}
	return p
}

// rollover runs the once-daily pipeline: sample, recompute crop values,
// fetch weather, infer ET0, size the irrigation, decide the pump, persist.
func (e *Engine) rollover(ctx context.Context, today string) {
	e.log.Info("day rollover", slog.String("date", today))

	mean := e.sampleSoil(ctx)
	now := e.now()
	e.recomputeCrop(now)

	et0 := e.fetchET0(ctx)

	e.mu.Lock()
	e.day.MeanVWC = mean
	e.day.LastET0 = et0
	kc, rz := e.day.KcToday, e.day.RootZoneMM
	area, flow := e.areaM2, e.planting.PumpFlowLPH
	e.mu.Unlock()

	avail, err := irrigation.AvailableWaterDepth(mean, rz, e.cfg.FieldCapacityPct, e.cfg.WiltingPointPct)
	if err != nil {
		e.log.Warn("available-water calculation degraded", slog.String("error", err.Error()))
	}
	secs, etc, err := irrigation.Time(kc, et0, area, flow)
	if err != nil {
		if errors.Is(err, irrigation.ErrInvalidPumpRate) {
			e.log.Warn("pump flow rate invalid, skipping irrigation",
				slog.Float64("flow_lph", flow))
		} else {
			e.log.Warn("irrigation sizing failed", slog.String("error", err.Error()))
		}
	}

	e.mu.Lock()
	e.day.AvailableWaterMM = avail
	e.day.ETcMM = etc
	e.day.PumpDurationS = secs
	e.mu.Unlock()

	e.decidePump(secs)

	row := daylog.Row{
		Date:         today,
		MeanVWC:      mean,
		ET0:          et0,
		ETc:          etc,
		PumpTimeS:    secs,
		AvailWaterMM: avail,
		RootZoneMM:   rz,
		Kc:           kc,
	}
	if err := e.dlog.Append(row); err != nil {
		e.log.Error("daily log append failed", slog.String("error", err.Error()))
	}
	e.met.DayProcessed(mean, et0)

	e.mu.Lock()
	e.day.LastDateProcessed = today
	e.mu.Unlock()

	e.log.Info("daily decision",
		slog.Int("day_index", e.day.DayIndex),
		slog.Float64("mean_vwc", mean),
		slog.Float64("et0_mm", et0),
		slog.Float64("etc_mm", etc),
		slog.Float64("avail_mm", avail),
		slog.Float64("pump_s", secs))
}

// sampleSoil opens the fixed sampling window, draining the bus at a
// sub-second cadence so reconnect traffic is not starved, then folds the
// accepted readings into a mean.
func (e *Engine) sampleSoil(ctx context.Context) float64 {
	e.soil = e.soil[:0]
	e.samplingActive = true
	defer func() { e.samplingActive = false }()

	deadline := e.now().Add(e.cfg.SampleWindow)
	for e.now().Before(deadline) {
		if e.conn != nil {
			e.applyInbound(e.conn.Drain(0))
		}
		if err := e.sleep(ctx, e.cfg.SamplePoll); err != nil {
			break
		}
	}
	if e.conn != nil {
		e.applyInbound(e.conn.Drain(0))
	}

	if len(e.soil) == 0 {
		if !e.everSampled {
			e.log.Warn("no soil readings on first run, assuming default mean",
				slog.Float64("vwc", firstRunMeanVWC))
			return firstRunMeanVWC
		}
		e.log.Warn("no soil readings this window, keeping previous mean",
			slog.Float64("vwc", e.day.MeanVWC))
		return e.day.MeanVWC
	}
	e.everSampled = true
	sum := 0.0
	for _, v := range e.soil {
		sum += v
	}
	mean := sum / float64(len(e.soil))
	e.log.Info("sampling window closed",
		slog.Int("readings", len(e.soil)),
		slog.Float64("mean_vwc", mean))
	return mean
}

// fetchET0 fetches weather and runs inference, degrading to the last known
// ET0 on any failure. If weather has never been obtained, ET0 is forced to
// zero so the pump stays off rather than watering blind.
func (e *Engine) fetchET0(ctx context.Context) float64 {
	sample, err := e.fetch.Fetch(ctx)
	if err != nil {
		e.met.WeatherFailure()
		if !e.everFetched {
			e.log.Warn("weather never fetched, forcing ET0 to zero",
				slog.String("error", err.Error()))
			return 0
		}
		e.log.Warn("weather fetch failed, keeping last ET0",
			slog.String("error", err.Error()),
			slog.Float64("et0_mm", e.day.LastET0))
		return math.Max(0, e.day.LastET0)
	}

	et0, err := e.model.PredictET0(sample.Features())
	if err != nil {
		e.log.Warn("inference failed, keeping last ET0",
			slog.String("error", err.Error()))
		if !e.everFetched {
			return 0
		}
		return math.Max(0, e.day.LastET0)
	}

	e.everFetched = true
	e.mu.Lock()
	e.day.LastWeather = sample
	e.mu.Unlock()
	return math.Max(0, et0)
}

// decidePump runs the once-per-rollover pump policy. Intra-day the only
// re-evaluation is the elapsed-time OFF check.
func (e *Engine) decidePump(secs float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if secs > e.cfg.PumpOnThresholdS {
		if e.pump.Running {
			e.log.Warn("pump already running at daily decision, updating target only",
				slog.Float64("target_s", secs))
			e.pump.TargetS = secs
			return
		}
		if err := e.conn.Publish(e.cfg.TopicPumpCmd, pumpOn); err != nil {
			e.log.Error("pump ON command failed, leaving pump off",
				slog.String("error", err.Error()))
			return
		}
		e.met.PumpCommand("on")
		e.pump = PumpState{Running: true, StartedAt: e.now(), TargetS: secs}
		e.log.Info("pump on", slog.Float64("target_s", secs))
		return
	}

	if e.pump.Running {
		e.commandPumpOffLocked("daily demand below threshold")
	}
}

// pumpOffCheck fires the OFF command exactly once when the running pump has
// met its target duration. A failed publish keeps Running set so the check
// re-fires next tick.
func (e *Engine) pumpOffCheck() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.pump.Running {
		return
	}
	elapsed := e.now().Sub(e.pump.StartedAt).Seconds()
	if elapsed < e.pump.TargetS {
		return
	}
	e.commandPumpOffLocked("target duration reached")
}

func (e *Engine) commandPumpOffLocked(reason string) {
	if err := e.conn.Publish(e.cfg.TopicPumpCmd, pumpOff); err != nil {
		e.log.Error("pump OFF command failed, will retry next tick",
			slog.String("error", err.Error()))
		return
	}
	e.met.PumpCommand("off")
	e.pump = PumpState{}
	e.log.Info("pump off", slog.String("reason", reason))
}

// publishRemaining emits the remaining pump seconds every tick, 0.0 when
// the pump is off.
func (e *Engine) publishRemaining() {
	e.mu.Lock()
	remaining := 0.0
	if e.pump.Running {
		remaining = e.pump.TargetS - e.now().Sub(e.pump.StartedAt).Seconds()
		if remaining < 0 {
			remaining = 0
		}
	}
	e.mu.Unlock()

	e.met.PumpRemaining(remaining)
	payload := strconv.FormatFloat(remaining, 'f', 1, 64)
	if err := e.conn.Publish(e.cfg.TopicPumpRemaining, payload); err != nil {
		e.log.Warn("remaining-time publish failed", slog.String("error", err.Error()))
	}
}

func (e *Engine) maybeEmitStatus() {
	now := e.now()
	if now.Sub(e.lastStatus) < e.cfg.StatusInterval {
		return
	}
	e.lastStatus = now
	s := e.Snapshot()
	e.log.Info("status",
		slog.Int("day_index", s.DayIndex),
		slog.Float64("kc", s.KcToday),
		slog.Float64("root_zone_mm", s.RootZoneMM),
		slog.Float64("mean_vwc", s.MeanVWC),
		slog.Float64("et0_mm", s.ET0),
		slog.Float64("etc_mm", s.ETc),
		slog.Float64("avail_mm", s.AvailableWaterMM),
		slog.Bool("pump_running", s.PumpRunning),
		slog.Float64("pump_remaining_s", s.PumpRemainingS))
}
