package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the daemon's complete configuration tree, loaded from a single
// YAML file. Each section carries its own Validate method, the idiom
// logger.go establishes and every other section below reuses.
type Config struct {
	Logger  Logger       `yaml:"Logger"`
	Mesh    Mesh         `yaml:"Mesh"`
	Admin   Admin        `yaml:"Admin"`
	Chat    Chat         `yaml:"Chat"`
	Metrics BasicService `yaml:"Metrics"`
}

// Default returns the configuration a fresh node starts from absent any
// YAML file, matching the original relay's compiled-in constants.
func Default() Config {
	return Config{
		Logger: Logger{LogEncoding: "console", LogLevel: "info"},
		Mesh: Mesh{
			Port:              14627,
			PacketLen:         1400,
			PingInterval:      20 * time.Second,
			Timeout:           60 * time.Second,
			RetryInterval:     15 * time.Minute,
			FetchInterval:     5 * time.Minute,
			ServiceInterval:   10 * time.Second,
			OverlayPrefixByte: 0xfc,
		},
		Admin: Admin{Host: "127.0.0.1", Port: 11234},
		Chat: Chat{
			ListenAddress: ":6667",
			Nick:          "meshchat",
			ServerName:    "ircd-meshchat",
			NetworkName:   "MeshChat",
		},
		Metrics: BasicService{Enabled: false, Addresses: []string{":9090"}},
	}
}

// Load reads and parses the YAML file at path over top of Default, then
// validates the result. An empty path returns Default unmodified.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate returns an error if any section of Config is not valid.
func (c Config) Validate() error {
	if err := c.Logger.Validate(); err != nil {
		return err
	}
	if err := c.Mesh.Validate(); err != nil {
		return err
	}
	if err := c.Admin.Validate(); err != nil {
		return err
	}
	if err := c.Chat.Validate(); err != nil {
		return err
	}
	return nil
}
