// v1
// internal/bus/message.go
package bus

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind tags an inbound message after topic dispatch. Decoding happens once,
// here; the control loop matches on the tag instead of comparing topic
// strings.
type Kind int

const (
	KindUnknown Kind = iota
	KindSoilReading
	KindConfigCrop
	KindConfigDate
	KindConfigPlantCount
	KindConfigPlantSpacing
	KindConfigRowSpacing
	KindConfigFlowRate
)

func (k Kind) String() string {
	switch k {
	case KindSoilReading:
		return "soil_reading"
	case KindConfigCrop:
		return "config_crop"
	case KindConfigDate:
		return "config_date"
	case KindConfigPlantCount:
		return "config_plant_count"
	case KindConfigPlantSpacing:
		return "config_plant_spacing"
	case KindConfigRowSpacing:
		return "config_row_spacing"
	case KindConfigFlowRate:
		return "config_flow_rate"
	default:
		return "unknown"
	}
}

// Message is one decoded inbound payload. Err carries a payload parse
// failure so the loop can log and drop without special cases; Value holds
// numeric payloads and Text holds string ones.
type Message struct {
	Kind  Kind
	Topic string
	Raw   string
	Value float64
	Text  string
	Err   error
}

// Topics names the subscribe side of the session.
type Topics struct {
	Soil       string
	ConfigBase string
}

// Config topic suffixes under the base, as published by the dashboard.
const (
	suffixCrop         = "Crop"
	suffixPlantingDate = "Planting/Date"
	suffixPlantCount   = "Plants/Number"
	suffixPlantSpacing = "Plants/Spacing"
	suffixRowSpacing   = "Row/Spacing"
	suffixFlowRate     = "Pump/Flowrate"
)

// SubscribeTopics returns every topic the session listens on.
func (t Topics) SubscribeTopics() []string {
	return []string{
		t.Soil,
		t.ConfigBase + suffixCrop,
		t.ConfigBase + suffixPlantingDate,
		t.ConfigBase + suffixPlantCount,
		t.ConfigBase + suffixPlantSpacing,
		t.ConfigBase + suffixRowSpacing,
		t.ConfigBase + suffixFlowRate,
	}
}

// Decode classifies a raw topic/payload pair into a tagged Message.
func Decode(t Topics, topic string, payload []byte) Message {
	raw := strings.TrimSpace(string(payload))
	m := Message{Topic: topic, Raw: raw}
	switch topic {
	case t.Soil:
		m.Kind = KindSoilReading
		m.Value, m.Err = parseFloat(raw)
	case t.ConfigBase + suffixCrop:
		m.Kind = KindConfigCrop
		m.Text = strings.ToLower(raw)
	case t.ConfigBase + suffixPlantingDate:
		m.Kind = KindConfigDate
		m.Text = raw
	case t.ConfigBase + suffixPlantCount:
		m.Kind = KindConfigPlantCount
		n, err := strconv.Atoi(raw)
		m.Value, m.Err = float64(n), err
	case t.ConfigBase + suffixPlantSpacing:
		m.Kind = KindConfigPlantSpacing
		m.Value, m.Err = parseFloat(raw)
	case t.ConfigBase + suffixRowSpacing:
		m.Kind = KindConfigRowSpacing
		m.Value, m.Err = parseFloat(raw)
	case t.ConfigBase + suffixFlowRate:
		m.Kind = KindConfigFlowRate
		m.Value, m.Err = parseFloat(raw)
	default:
		m.Kind = KindUnknown
	}
	if m.Err != nil {
		m.Err = fmt.Errorf("parse %s payload %q: %w", m.Kind, raw, m.Err)
	}
	return m
}

func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(s, 64)
}
