// v1
// internal/irrigation/water.go
package irrigation

import (
	"errors"
	"math"
)

// ErrInvalidPumpRate reports a non-positive pump flow rate. Callers get a
// safe zero-duration result alongside the error.
var ErrInvalidPumpRate = errors.New("pump flow rate must be positive")

// ErrSoilParams reports field capacity at or below wilting point, a soil
// that cannot hold plant-available water.
var ErrSoilParams = errors.New("field capacity must exceed wilting point")

// AvailableWaterDepth returns the plant-available water depth (mm) currently
// held in the root zone: the water above wilting point, capped by the total
// available water the soil can hold (TAW), rounded to 2 decimals.
// A non-positive root zone yields 0; nonsensical soil parameters yield 0
// with ErrSoilParams so the caller can log the condition.
func AvailableWaterDepth(vwcPct, rootZoneMM, fieldCapPct, wiltingPct float64) (float64, error) {
	if rootZoneMM <= 0 {
		return 0, nil
	}
	theta := vwcPct / 100.0
	fc := fieldCapPct / 100.0
	pwp := wiltingPct / 100.0
	if fc <= pwp {
		return 0, ErrSoilParams
	}
	tawMM := (fc - pwp) * rootZoneMM
	abovePWP := math.Max(0, theta-pwp) * rootZoneMM
	return round2(math.Min(abovePWP, tawMM)), nil
}

// Time converts the day's crop water demand into a pump run. Kc and ET0 are
// clamped at zero before use. ETc (mm/day) is returned even when the flow
// rate is invalid. Required liters equal ETc (mm) times area (m^2); the run
// time is liters over flow, in seconds.
//
// Available soil water is deliberately not subtracted from the demand: the
// controller targets full daily ETc replacement.
func Time(kc, et0, areaM2, flowLPH float64) (seconds, etcMM float64, err error) {
	if kc < 0 {
		kc = 0
	}
	if et0 < 0 {
		et0 = 0
	}
	etcMM = et0 * kc
	reqLiters := etcMM * areaM2
	if flowLPH <= 0 {
		return 0, etcMM, ErrInvalidPumpRate
	}
	if reqLiters <= 0 {
		return 0, etcMM, nil
	}
	return reqLiters / flowLPH * 3600.0, etcMM, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
