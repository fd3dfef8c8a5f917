// v1
// internal/weather/weather.go
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"time"
)

// Sample is the feature set the ET0 model consumes, in model order.
type Sample struct {
	TmaxC        float64
	RHPct        float64
	SolarMJM2Day float64
}

// Features returns the sample as the model's input vector.
func (s Sample) Features() []float64 {
	return []float64{s.TmaxC, s.RHPct, s.SolarMJM2Day}
}

// Fetcher obtains the current ambient weather for the plot.
type Fetcher interface {
	Fetch(ctx context.Context) (Sample, error)
}

// Defaults used when the API response omits a field.
const (
	defaultTempC    = 25.0
	defaultRHPct    = 60.0
	defaultClouds   = 50.0
	whToMJ          = 0.0036
	clearSkyWhM2Day = 990.0
)

// OWMClient fetches current weather from the OpenWeatherMap API for a fixed
// location and derives daily solar energy from cloud cover and day of year,
// since the API does not return solar radiation directly.
type OWMClient struct {
	baseURL string
	apiKey  string
	lat     float64
	lon     float64
	hc      *http.Client
	log     *slog.Logger
	now     func() time.Time
}

// NewOWMClient builds a client with a fixed request timeout. baseURL is the
// API root without query parameters.
func NewOWMClient(baseURL, apiKey string, lat, lon float64, timeout time.Duration, log *slog.Logger) *OWMClient {
	return &OWMClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		lat:     lat,
		lon:     lon,
		hc:      &http.Client{Timeout: timeout},
		log:     log.With(slog.String("component", "weather")),
		now:     time.Now,
	}
}

type owmResponse struct {
	Main struct {
		Temp     *float64 `json:"temp"`
		TempMax  *float64 `json:"temp_max"`
		Humidity *float64 `json:"humidity"`
	} `json:"main"`
	Clouds struct {
		All *float64 `json:"all"`
	} `json:"clouds"`
	Dt int64 `json:"dt"`
}

func (c *OWMClient) Fetch(ctx context.Context) (Sample, error) {
	q := url.Values{}
	q.Set("lat", fmt.Sprintf("%.7f", c.lat))
	q.Set("lon", fmt.Sprintf("%.7f", c.lon))
	q.Set("appid", c.apiKey)
	q.Set("units", "metric")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return Sample{}, fmt.Errorf("build request: %w", err)
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return Sample{}, fmt.Errorf("weather fetch: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Sample{}, fmt.Errorf("read weather response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return Sample{}, fmt.Errorf("weather API status %d: %s", resp.StatusCode, string(body))
	}
	var d owmResponse
	if err := json.Unmarshal(body, &d); err != nil {
		return Sample{}, fmt.Errorf("parse weather response: %w", err)
	}
	return c.assemble(d), nil
}

// assemble applies field defaults and derives the solar-energy feature.
func (c *OWMClient) assemble(d owmResponse) Sample {
	temp := defaultTempC
	if d.Main.Temp != nil {
		temp = *d.Main.Temp
	}
	tmax := temp
	if d.Main.TempMax != nil {
		tmax = *d.Main.TempMax
	}
	rh := defaultRHPct
	if d.Main.Humidity != nil {
		rh = *d.Main.Humidity
	}
	clouds := defaultClouds
	if d.Clouds.All != nil {
		clouds = *d.Clouds.All
	}
	ts := c.now()
	if d.Dt > 0 {
		ts = time.Unix(d.Dt, 0)
	}
	doy := ts.UTC().YearDay()
	energy := solarEnergyMJ(c.lat, doy, clouds)
	c.log.Debug("weather parsed",
		slog.Float64("tmax_c", tmax),
		slog.Float64("rh_pct", rh),
		slog.Float64("clouds_pct", clouds),
		slog.Int("doy", doy),
		slog.Float64("solar_mj", energy))
	return Sample{TmaxC: tmax, RHPct: rh, SolarMJM2Day: energy}
}

// PotentialDaylightHours estimates day length (hours) at the latitude for a
// day of year using the solar declination angle. The formula is a physical
// approximation standing in for a missing radiation sensor.
func PotentialDaylightHours(latDeg float64, doy int) float64 {
	if doy < 1 {
		doy = 1
	}
	if doy > 366 {
		doy = 366
	}
	phi := latDeg * math.Pi / 180
	decl := 0.409 * math.Sin(2*math.Pi*float64(doy)/365-1.39)
	x := -math.Tan(phi) * math.Tan(decl)
	if x > 1 {
		x = 1
	}
	if x < -1 {
		x = -1
	}
	return 24 / math.Pi * math.Acos(x)
}

// solarEnergyMJ converts cloud cover and day length into an estimated daily
// shortwave energy total (MJ/m^2/day), rounded to 2 decimals.
func solarEnergyMJ(latDeg float64, doy int, cloudsPct float64) float64 {
	n := PotentialDaylightHours(latDeg, doy)
	f := cloudsPct / 100
	if f < 0 {
		f = 0
	}
	if f > 1 {
		f = 1
	}
	p := clearSkyWhM2Day * (1 - 0.75*f*f*f)
	return math.Round(p*n*whToMJ*100) / 100
}
