// v1
// internal/config/planting.go
package config

import (
	"fmt"
	"strconv"
	"strings"

	"irrinet/controller/internal/crop"
)

// PlantingConfig describes one nursery plot: what was planted, when, how the
// plants are laid out and what the pump can deliver. Immutable once applied;
// live reconfiguration replaces the whole value between control-loop ticks.
type PlantingConfig struct {
	Crop           crop.Crop `yaml:"crop" json:"crop"`
	PlantingDate   string    `yaml:"planting_date" json:"planting_date"` // YYYY-MM-DD
	PlantCount     int       `yaml:"plant_count" json:"plant_count"`
	PlantSpacingCM float64   `yaml:"plant_spacing_cm" json:"plant_spacing_cm"`
	RowSpacingCM   float64   `yaml:"row_spacing_cm" json:"row_spacing_cm"`
	PumpFlowLPH    float64   `yaml:"pump_flow_lph" json:"pump_flow_lph"`
}

// ParsePlantingDate splits a YYYY-MM-DD string and validates it as a real
// calendar date.
func ParsePlantingDate(s string) (year, month, day int, err error) {
	parts := strings.Split(strings.TrimSpace(s), "-")
	if len(parts) != 3 {
		return 0, 0, 0, fmt.Errorf("%w: planting date %q, want YYYY-MM-DD", ErrInvalidConfig, s)
	}
	nums := make([]int, 3)
	for i, p := range parts {
		n, convErr := strconv.Atoi(p)
		if convErr != nil {
			return 0, 0, 0, fmt.Errorf("%w: planting date %q, want YYYY-MM-DD", ErrInvalidConfig, s)
		}
		nums[i] = n
	}
	year, month, day = nums[0], nums[1], nums[2]
	if err := crop.ValidateDate(year, month, day); err != nil {
		return 0, 0, 0, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return year, month, day, nil
}

// Validate checks every field against its range constraint.
func (p PlantingConfig) Validate() error {
	if !crop.Known(p.Crop) {
		return fmt.Errorf("%w: unsupported crop %q", ErrInvalidConfig, p.Crop)
	}
	if _, _, _, err := ParsePlantingDate(p.PlantingDate); err != nil {
		return err
	}
	if p.PlantCount <= 0 {
		return fmt.Errorf("%w: plant count %d must be positive", ErrInvalidConfig, p.PlantCount)
	}
	if p.PlantSpacingCM <= 0 {
		return fmt.Errorf("%w: plant spacing %.1f cm must be positive", ErrInvalidConfig, p.PlantSpacingCM)
	}
	if p.RowSpacingCM <= 0 {
		return fmt.Errorf("%w: row spacing %.1f cm must be positive", ErrInvalidConfig, p.RowSpacingCM)
	}
	if p.PumpFlowLPH <= 0 {
		return fmt.Errorf("%w: pump flow %.1f L/h must be positive", ErrInvalidConfig, p.PumpFlowLPH)
	}
	return nil
}

// AreaPerPlantM2 is the plot area allocated to one plant.
func (p PlantingConfig) AreaPerPlantM2() float64 {
	return (p.PlantSpacingCM / 100) * (p.RowSpacingCM / 100)
}

// TotalAreaM2 is the irrigated area of the whole plot.
func (p PlantingConfig) TotalAreaM2() float64 {
	return p.AreaPerPlantM2() * float64(p.PlantCount)
}
