// v2
// internal/engine/source.go
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"irrinet/controller/internal/bus"
	"irrinet/controller/internal/config"
	"irrinet/controller/internal/crop"
)

// ConfigSource supplies the planting configuration during the ConfigPending
// startup phase. The context carries the completeness deadline; running out
// of it is fatal to the process.
type ConfigSource interface {
	Await(ctx context.Context, conn bus.Conn) (config.PlantingConfig, error)
}

// StaticSource serves a pre-filled configuration for installs without a
// dashboard. It validates once and never touches the bus.
type StaticSource struct {
	Planting config.PlantingConfig
}

func (s StaticSource) Await(_ context.Context, _ bus.Conn) (config.PlantingConfig, error) {
	if err := s.Planting.Validate(); err != nil {
		return config.PlantingConfig{}, err
	}
	return s.Planting, nil
}

// BusSource accumulates the six configuration topics from the broker.
// Completeness means every field has arrived at least once; invalid values
// are logged and the field stays unset so the dashboard can resend.
type BusSource struct {
	Poll time.Duration
	Log  *slog.Logger
}

// pendingConfig holds each field as an optional until all are present.
type pendingConfig struct {
	crop         *crop.Crop
	plantingDate *string
	plantCount   *int
	plantSpacing *float64
	rowSpacing   *float64
	flowRate     *float64
}

func (p *pendingConfig) complete() bool {
	return p.crop != nil && p.plantingDate != nil && p.plantCount != nil &&
		p.plantSpacing != nil && p.rowSpacing != nil && p.flowRate != nil
}

func (p *pendingConfig) build() config.PlantingConfig {
	return config.PlantingConfig{
		Crop:           *p.crop,
		PlantingDate:   *p.plantingDate,
		PlantCount:     *p.plantCount,
		PlantSpacingCM: *p.plantSpacing,
		RowSpacingCM:   *p.rowSpacing,
		PumpFlowLPH:    *p.flowRate,
	}
}

func (s BusSource) Await(ctx context.Context, conn bus.Conn) (config.PlantingConfig, error) {
	poll := s.Poll
	if poll <= 0 {
		poll = 100 * time.Millisecond
	}
	log := s.Log.With(slog.String("component", "config-source"))
	log.Info("waiting for planting configuration from broker")

	var p pendingConfig
	for {
		for _, m := range conn.Drain(0) {
			s.apply(&p, m, log)
		}
		if p.complete() {
			pc := p.build()
			if err := pc.Validate(); err != nil {
				// individual fields were validated on arrival, so this
				// only trips on cross-field problems
				return config.PlantingConfig{}, err
			}
			return pc, nil
		}
		select {
		case <-ctx.Done():
			return config.PlantingConfig{}, fmt.Errorf("incomplete configuration: %w", ctx.Err())
		case <-time.After(poll):
		}
	}
}

func (s BusSource) apply(p *pendingConfig, m bus.Message, log *slog.Logger) {
	if m.Err != nil {
		log.Warn("dropping malformed config payload", slog.String("error", m.Err.Error()))
		return
	}
	switch m.Kind {
	case bus.KindConfigCrop:
		c := crop.Crop(m.Text)
		if !crop.Known(c) {
			log.Warn("unknown crop, field stays unset", slog.String("crop", m.Text))
			return
		}
		p.crop = &c
	case bus.KindConfigDate:
		if _, _, _, err := config.ParsePlantingDate(m.Text); err != nil {
			log.Warn("invalid planting date, field stays unset",
				slog.String("date", m.Text), slog.String("error", err.Error()))
			return
		}
		d := m.Text
		p.plantingDate = &d
	case bus.KindConfigPlantCount:
		n := int(m.Value)
		if n <= 0 {
			log.Warn("plant count must be positive", slog.Int("count", n))
			return
		}
		p.plantCount = &n
	case bus.KindConfigPlantSpacing:
		if m.Value <= 0 {
			log.Warn("plant spacing must be positive", slog.Float64("cm", m.Value))
			return
		}
		v := m.Value
		p.plantSpacing = &v
	case bus.KindConfigRowSpacing:
		if m.Value <= 0 {
			log.Warn("row spacing must be positive", slog.Float64("cm", m.Value))
			return
		}
		v := m.Value
		p.rowSpacing = &v
	case bus.KindConfigFlowRate:
		if m.Value <= 0 {
			log.Warn("pump flow rate must be positive", slog.Float64("lph", m.Value))
			return
		}
		v := m.Value
		p.flowRate = &v
	case bus.KindSoilReading:
		// sensor chatter before the first sampling window, ignore
	default:
		log.Warn("message on unexpected topic during configuration",
			slog.String("topic", m.Topic))
	}
}
