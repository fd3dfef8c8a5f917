// v2
// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v2"
)

// ErrInvalidConfig reports an out-of-range or missing required field.
var ErrInvalidConfig = errors.New("invalid configuration")

// AppConfig holds process-level settings: transport endpoints, credentials,
// topics, the plot location and all loop timing. Values come from the
// environment with defaults; an optional YAML settings file overrides the
// environment for deployment-managed installs.
type AppConfig struct {
	HTTPBind string `yaml:"http_bind"`
	LogDir   string `yaml:"log_dir"`

	BrokerURL    string `yaml:"broker_url"`
	MQTTUser     string `yaml:"mqtt_user"`
	MQTTPassword string `yaml:"mqtt_password"`
	MQTTClientID string `yaml:"mqtt_client_id"`
	MQTTUseTLS   bool   `yaml:"mqtt_use_tls"`

	TopicSoil          string `yaml:"topic_soil"`
	TopicPumpCmd       string `yaml:"topic_pump_cmd"`
	TopicLog           string `yaml:"topic_log"`
	TopicPumpRemaining string `yaml:"topic_pump_remaining"`
	TopicConfigBase    string `yaml:"topic_config_base"`

	WifiSSID     string `yaml:"wifi_ssid"`
	WifiPassword string `yaml:"wifi_password"`
	ProbeAddr    string `yaml:"probe_addr"`

	WeatherURL     string  `yaml:"weather_url"`
	WeatherAPIKey  string  `yaml:"weather_api_key"`
	Latitude       float64 `yaml:"latitude"`
	Longitude      float64 `yaml:"longitude"`
	WeatherTimeout time.Duration `yaml:"-"` // env-only, WEATHER_TIMEOUT_S

	DailyLogPath string `yaml:"daily_log_path"`

	// loop timing comes from the environment only
	TickInterval     time.Duration `yaml:"-"`
	StatusInterval   time.Duration `yaml:"-"`
	SampleWindow     time.Duration `yaml:"-"`
	SamplePoll       time.Duration `yaml:"-"`
	ConfigTimeout    time.Duration `yaml:"-"`
	ReconnectBackoff time.Duration `yaml:"-"`
	ReconnectWait    time.Duration `yaml:"-"`

	PumpOnThresholdS float64 `yaml:"pump_on_threshold_s"`
	FieldCapacityPct float64 `yaml:"field_capacity_pct"`
	WiltingPointPct  float64 `yaml:"wilting_point_pct"`

	// ConfigSource selects where the planting configuration comes from:
	// "mqtt" (the six User/Input topics) or "static" (the Planting block
	// below, for installs without a dashboard).
	ConfigSource string          `yaml:"config_source"`
	Planting     *PlantingConfig `yaml:"planting"`
}

// Load reads the environment, then applies the optional YAML settings file
// named by SETTINGS_FILE.
func Load() (*AppConfig, error) {
	c := &AppConfig{
		HTTPBind: getenv("HTTP_BIND", ":8080"),
		LogDir:   getenv("LOG_DIR", "./logs"),

		BrokerURL:    getenv("MQTT_BROKER", "ssl://localhost:8883"),
		MQTTUser:     getenv("MQTT_USER", ""),
		MQTTPassword: getenv("MQTT_PASSWORD", ""),
		MQTTClientID: getenv("MQTT_CLIENT_ID", "irrinet-controller"),
		MQTTUseTLS:   getenv("MQTT_USE_TLS", "true") == "true",

		TopicSoil:          getenv("TOPIC_SOIL", "esp32/soilMoisture"),
		TopicPumpCmd:       getenv("TOPIC_PUMP_CMD", "esp32/pump/control"),
		TopicLog:           getenv("TOPIC_LOG", "RPi/Pico/Log"),
		TopicPumpRemaining: getenv("TOPIC_PUMP_REMAINING", "RPi/Pico/PumpRemainingTime"),
		TopicConfigBase:    getenv("TOPIC_CONFIG_BASE", "User/Input/"),

		WifiSSID:     getenv("WIFI_SSID", ""),
		WifiPassword: getenv("WIFI_PASSWORD", ""),
		ProbeAddr:    getenv("NET_PROBE_ADDR", ""),

		WeatherURL:     getenv("WEATHER_URL", "https://api.openweathermap.org/data/2.5/weather"),
		WeatherAPIKey:  getenv("WEATHER_API_KEY", ""),
		Latitude:       getf("LATITUDE", 13.0192526),
		Longitude:      getf("LONGITUDE", 77.5630184),
		WeatherTimeout: getd("WEATHER_TIMEOUT_S", 20),

		DailyLogPath: getenv("DAILY_LOG_PATH", "./daily_log.csv"),

		TickInterval:     getd("TICK_INTERVAL_S", 30),
		StatusInterval:   getd("STATUS_INTERVAL_S", 60),
		SampleWindow:     getd("SAMPLE_WINDOW_S", 300),
		SamplePoll:       time.Duration(geti("SAMPLE_POLL_MS", 100)) * time.Millisecond,
		ConfigTimeout:    getd("CONFIG_TIMEOUT_S", 600),
		ReconnectBackoff: getd("RECONNECT_BACKOFF_S", 5),
		ReconnectWait:    getd("RECONNECT_WAIT_S", 60),

		PumpOnThresholdS: getf("PUMP_ON_THRESHOLD_S", 0.5),
		FieldCapacityPct: getf("FIELD_CAPACITY_PCT", 42.0),
		WiltingPointPct:  getf("WILTING_POINT_PCT", 15.0),

		ConfigSource: getenv("CONFIG_SOURCE", "mqtt"),
	}
	if path := os.Getenv("SETTINGS_FILE"); path != "" {
		if err := c.loadSettings(path); err != nil {
			return nil, err
		}
	}
	if c.BrokerURL == "" {
		return nil, fmt.Errorf("%w: MQTT_BROKER required", ErrInvalidConfig)
	}
	switch c.ConfigSource {
	case "mqtt", "static":
	default:
		return nil, fmt.Errorf("%w: CONFIG_SOURCE %q (want mqtt or static)", ErrInvalidConfig, c.ConfigSource)
	}
	if c.ConfigSource == "static" {
		if c.Planting == nil {
			return nil, fmt.Errorf("%w: static config source needs a planting block", ErrInvalidConfig)
		}
		if err := c.Planting.Validate(); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *AppConfig) loadSettings(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read settings %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return fmt.Errorf("parse settings %s: %w", path, err)
	}
	return nil
}

func getenv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func geti(k string, d int) int {
	if v := os.Getenv(k); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return d
}

func getf(k string, d float64) float64 {
	if v := os.Getenv(k); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return d
}

func getd(k string, dSeconds int) time.Duration {
	return time.Duration(geti(k, dSeconds)) * time.Second
}
