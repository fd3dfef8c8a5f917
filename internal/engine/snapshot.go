// v1
// internal/engine/snapshot.go
package engine

import (
	"irrinet/controller/internal/config"
)

// Snapshot is the read-model served by the HTTP status endpoint.
type Snapshot struct {
	Crop             string  `json:"crop"`
	PlantingDate     string  `json:"planting_date"`
	PlantCount       int     `json:"plant_count"`
	TotalAreaM2      float64 `json:"total_area_m2"`
	DayIndex         int     `json:"day_index"`
	KcToday          float64 `json:"kc"`
	RootZoneMM       float64 `json:"root_zone_mm"`
	MeanVWC          float64 `json:"mean_vwc"`
	TmaxC            float64 `json:"tmax_c"`
	RHPct            float64 `json:"rh_pct"`
	SolarMJM2Day     float64 `json:"solar_mj_m2_day"`
	ET0              float64 `json:"et0_mm"`
	ETc              float64 `json:"etc_mm"`
	AvailableWaterMM float64 `json:"available_water_mm"`
	PumpDurationS    float64 `json:"pump_duration_s"`
	PumpRunning      bool    `json:"pump_running"`
	PumpRemainingS   float64 `json:"pump_remaining_s"`
	LastDate         string  `json:"last_date_processed"`
	BusConnected     bool    `json:"bus_connected"`
}

// Snapshot copies the current derived state under the engine lock.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	remaining := 0.0
	if e.pump.Running {
		remaining = e.pump.TargetS - e.now().Sub(e.pump.StartedAt).Seconds()
		if remaining < 0 {
			remaining = 0
		}
	}
	return Snapshot{
		Crop:             string(e.planting.Crop),
		PlantingDate:     e.planting.PlantingDate,
		PlantCount:       e.planting.PlantCount,
		TotalAreaM2:      e.areaM2,
		DayIndex:         e.day.DayIndex,
		KcToday:          e.day.KcToday,
		RootZoneMM:       e.day.RootZoneMM,
		MeanVWC:          e.day.MeanVWC,
		TmaxC:            e.day.LastWeather.TmaxC,
		RHPct:            e.day.LastWeather.RHPct,
		SolarMJM2Day:     e.day.LastWeather.SolarMJM2Day,
		ET0:              e.day.LastET0,
		ETc:              e.day.ETcMM,
		AvailableWaterMM: e.day.AvailableWaterMM,
		PumpDurationS:    e.day.PumpDurationS,
		PumpRunning:      e.pump.Running,
		PumpRemainingS:   remaining,
		LastDate:         e.day.LastDateProcessed,
		BusConnected:     e.busUp,
	}
}

// QueueConfig validates a replacement planting configuration and parks it
// for the loop to pick up between ticks.
func (e *Engine) QueueConfig(pc config.PlantingConfig) error {
	if err := pc.Validate(); err != nil {
		return err
	}
	e.mu.Lock()
	e.pending = &pc
	e.mu.Unlock()
	return nil
}
