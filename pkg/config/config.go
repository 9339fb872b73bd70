package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Serial      SerialConfig      `yaml:"serial"`
	Calibration CalibrationConfig `yaml:"calibration"`
	Network     NetworkConfig     `yaml:"network"`
	Trigger     TriggerConfig     `yaml:"trigger"`
	Mock        MockConfig        `yaml:"mock"`
	Publish     PublishConfig     `yaml:"publish"`
	Metrics     MetricsConfig     `yaml:"metrics"`
	Server      ServerConfig      `yaml:"server"`
}

// SerialConfig contains serial port configuration of the sensor board.
type SerialConfig struct {
	Port     string `yaml:"port"`
	BaudRate int    `yaml:"baud_rate"`
}

// ChannelConfig describes the affine map of one analog channel.
// The raw value is mapped with integer arithmetic from [RawMin, RawMax] onto
// [OutMin, OutMax], then divided by Divisor and shifted by Offset.
type ChannelConfig struct {
	Unit    string  `yaml:"unit"`
	RawMin  int     `yaml:"raw_min"`
	RawMax  int     `yaml:"raw_max"`
	OutMin  int     `yaml:"out_min"`
	OutMax  int     `yaml:"out_max"`
	Divisor float32 `yaml:"divisor"`
	Offset  float32 `yaml:"offset"`
}

// CalibrationConfig contains the per-channel transforms.
type CalibrationConfig struct {
	Chlorine     ChannelConfig `yaml:"chlorine"`
	Turbidity    ChannelConfig `yaml:"turbidity"`
	Conductivity ChannelConfig `yaml:"conductivity"`
	PH           ChannelConfig `yaml:"ph"`
}

// NetworkConfig contains the classifier endpoint and association parameters.
type NetworkConfig struct {
	Endpoint            string        `yaml:"endpoint"`
	Timeout             time.Duration `yaml:"timeout"`
	AssociationAttempts int           `yaml:"association_attempts"`
	AssociationInterval time.Duration `yaml:"association_interval"`
}

// TriggerConfig contains the manual trigger timing.
type TriggerConfig struct {
	PollInterval  time.Duration `yaml:"poll_interval"`
	DebounceDelay time.Duration `yaml:"debounce_delay"`
}

// MockConfig contains mock sensor board configuration.
type MockConfig struct {
	Chlorine     uint16        `yaml:"chlorine"`     // Base raw value
	Turbidity    uint16        `yaml:"turbidity"`    // Base raw value
	Conductivity uint16        `yaml:"conductivity"` // Base raw value
	PH           uint16        `yaml:"ph"`           // Base raw value
	Noise        uint16        `yaml:"noise"`        // Max raw deviation per sample
	SampleRate   time.Duration `yaml:"sample_rate"`
}

// PublishConfig selects where completed cycles are published.
// Backend is one of "", "mqtt" or "kafka"; empty disables publishing.
type PublishConfig struct {
	Backend  string   `yaml:"backend"`
	Broker   string   `yaml:"broker"`
	ClientID string   `yaml:"client_id"`
	Topic    string   `yaml:"topic"`
	Brokers  []string `yaml:"brokers"`
}

// MetricsConfig contains the metrics endpoint of the agent.
// An empty Listen disables the endpoint.
type MetricsConfig struct {
	Listen string `yaml:"listen"`
}

// ServerConfig contains the classifier service configuration.
type ServerConfig struct {
	Listen       string `yaml:"listen"`
	Store        string `yaml:"store"` // memory, postgres or redis
	PostgresURL  string `yaml:"postgres_url"`
	RedisAddr    string `yaml:"redis_addr"`
	RedisKey     string `yaml:"redis_key"`
	HistoryLimit int    `yaml:"history_limit"`
}

// Default returns a default configuration with sensible values.
func Default() *Config {
	return &Config{
		Serial: SerialConfig{
			Port:     "/dev/ttyACM0",
			BaudRate: 115200,
		},
		Calibration: CalibrationConfig{
			Chlorine:     ChannelConfig{Unit: "mg/L", RawMin: 0, RawMax: 4095, OutMin: 0, OutMax: 50, Divisor: 10},
			Turbidity:    ChannelConfig{Unit: "NTU", RawMin: 0, RawMax: 4095, OutMin: 10000, OutMax: 0, Divisor: 10, Offset: -10}, // LDR: more light = less turbidity
			Conductivity: ChannelConfig{Unit: "uS/cm", RawMin: 0, RawMax: 4095, OutMin: 0, OutMax: 20000, Divisor: 10},
			PH:           ChannelConfig{Unit: "pH", RawMin: 0, RawMax: 4095, OutMin: 0, OutMax: 140, Divisor: 10},
		},
		Network: NetworkConfig{
			Endpoint:            "http://192.168.0.35:8000/data",
			Timeout:             10 * time.Second,
			AssociationAttempts: 20,
			AssociationInterval: 500 * time.Millisecond,
		},
		Trigger: TriggerConfig{
			PollInterval:  50 * time.Millisecond,
			DebounceDelay: time.Second,
		},
		Mock: MockConfig{
			Chlorine:     820,  // ~1.0 mg/L
			Turbidity:    4050, // ~1 NTU
			Conductivity: 900,  // ~440 uS/cm
			PH:           2100, // ~7.1
			Noise:        20,
			SampleRate:   50 * time.Millisecond,
		},
		Publish: PublishConfig{
			ClientID: "gowqm",
			Topic:    "water/quality",
		},
		Server: ServerConfig{
			Listen:       ":8000",
			Store:        "memory",
			RedisKey:     "water_readings",
			HistoryLimit: 1000,
		},
	}
}

// Load loads configuration from a YAML file. If the file doesn't exist or
// fields are missing, it uses default values.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ensureDefaults()

	return cfg, nil
}

// Save saves the configuration to a YAML file.
func (c *Config) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ensureDefaults ensures that all required fields have default values if missing.
// Load decodes onto Default, so absent keys already hold defaults; a zero
// debounce_delay is kept as configured.
func (c *Config) ensureDefaults() {
	def := Default()

	if c.Serial.Port == "" {
		c.Serial.Port = def.Serial.Port
	}
	if c.Serial.BaudRate == 0 {
		c.Serial.BaudRate = def.Serial.BaudRate
	}

	ensureChannel(&c.Calibration.Chlorine, def.Calibration.Chlorine)
	ensureChannel(&c.Calibration.Turbidity, def.Calibration.Turbidity)
	ensureChannel(&c.Calibration.Conductivity, def.Calibration.Conductivity)
	ensureChannel(&c.Calibration.PH, def.Calibration.PH)

	if c.Network.Endpoint == "" {
		c.Network.Endpoint = def.Network.Endpoint
	}
	if c.Network.Timeout == 0 {
		c.Network.Timeout = def.Network.Timeout
	}
	if c.Network.AssociationAttempts == 0 {
		c.Network.AssociationAttempts = def.Network.AssociationAttempts
	}
	if c.Network.AssociationInterval == 0 {
		c.Network.AssociationInterval = def.Network.AssociationInterval
	}

	if c.Trigger.PollInterval == 0 {
		c.Trigger.PollInterval = def.Trigger.PollInterval
	}
	if c.Trigger.DebounceDelay < 0 {
		c.Trigger.DebounceDelay = 0
	}

	if c.Mock.SampleRate == 0 {
		c.Mock.SampleRate = def.Mock.SampleRate
	}

	if c.Publish.ClientID == "" {
		c.Publish.ClientID = def.Publish.ClientID
	}
	if c.Publish.Topic == "" {
		c.Publish.Topic = def.Publish.Topic
	}

	if c.Server.Listen == "" {
		c.Server.Listen = def.Server.Listen
	}
	if c.Server.Store == "" {
		c.Server.Store = def.Server.Store
	}
	if c.Server.RedisKey == "" {
		c.Server.RedisKey = def.Server.RedisKey
	}
	if c.Server.HistoryLimit == 0 {
		c.Server.HistoryLimit = def.Server.HistoryLimit
	}
}

// ensureChannel replaces a channel that has no usable raw span or divisor.
func ensureChannel(ch *ChannelConfig, def ChannelConfig) {
	if ch.RawMax == ch.RawMin {
		ch.RawMin = def.RawMin
		ch.RawMax = def.RawMax
		if ch.OutMin == 0 && ch.OutMax == 0 {
			ch.OutMin = def.OutMin
			ch.OutMax = def.OutMax
			ch.Offset = def.Offset
		}
	}
	if ch.Divisor == 0 {
		ch.Divisor = def.Divisor
	}
	if ch.Unit == "" {
		ch.Unit = def.Unit
	}
}
