package config

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const DefaultPath = "knxtools.yaml"

// Config holds the settings of both tools. Each tool only reads its own section.
type Config struct {
	Sender SenderConfig `yaml:"sender"`
	Reader ReaderConfig `yaml:"reader"`

	path string
}

// SenderConfig holds the KNX command sender settings
type SenderConfig struct {
	Interface        string `yaml:"interface"`
	GatewayIP        string `yaml:"gateway_ip"`
	GatewayPort      int    `yaml:"gateway_port"`
	ConnectionType   string `yaml:"connection_type"` // tunnel or routing
	MulticastAddress string `yaml:"multicast_address"`
	GroupAddress     string `yaml:"group_address"`
	Value            string `yaml:"value"`
	ScanTimeout      int    `yaml:"scan_timeout"` // in seconds

	// Passed through to the tunnel unchanged, in milliseconds. Zero keeps the library default.
	ResendInterval    int `yaml:"resend_interval"`
	HeartbeatInterval int `yaml:"heartbeat_interval"`
	ResponseTimeout   int `yaml:"response_timeout"`
}

// ReaderConfig holds the badge reader settings
type ReaderConfig struct {
	Port         string `yaml:"port"`
	Baud         int    `yaml:"baud"`
	PollInterval int    `yaml:"poll_interval"` // in milliseconds
	LogFile      string `yaml:"log_file"`
	Encoding     string `yaml:"encoding"`
}

// NewConfig creates a new configuration with default values
func NewConfig() *Config {
	return &Config{
		Sender: SenderConfig{
			GatewayIP:        "192.168.0.11",
			GatewayPort:      3671,
			ConnectionType:   "tunnel",
			MulticastAddress: "224.0.23.12:3671",
			GroupAddress:     "5/1/1",
			Value:            "1",
			ScanTimeout:      3,
		},
		Reader: ReaderConfig{
			Baud:         115200,
			PollInterval: 10,
			LogFile:      "nfc_data.csv",
			Encoding:     "GBK",
		},
		path: DefaultPath,
	}
}

// Path returns the file the configuration is saved to.
func (c *Config) Path() string {
	return c.path
}

// Save persists the configuration
func (c *Config) Save() error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "encode config")
	}

	if err := os.WriteFile(c.path, data, 0600); err != nil {
		return errors.Wrapf(err, "write config %s", c.path)
	}
	return nil
}

// Load reads path on top of the defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}
	cfg := NewConfig()
	cfg.path = path

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, errors.Wrapf(err, "read config %s", path)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return cfg, errors.Wrapf(err, "parse config %s", path)
	}
	return cfg, nil
}
