package config

import (
	"fmt"
	"net"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// DaemonConfig mirrors the osclinkd config file. Zero values mean "use the
// daemon default"; cmd/osclinkd owns the defaults.
type DaemonConfig struct {
	ID          string         `toml:"id"`
	Host        string         `toml:"host"`
	Port        int            `toml:"port"`
	Workers     int            `toml:"workers"`
	Concurrent  bool           `toml:"concurrent"`
	Verbose     bool           `toml:"verbose"`
	AdminListen string         `toml:"admin_listen"`
	AdminToken  string         `toml:"admin_token"`
	CorsOrigins []string       `toml:"cors_origins"`
	RecordFile  string         `toml:"record_file"`
	Heartbeat   string         `toml:"heartbeat"`
	Clients     []ClientConfig `toml:"clients"`
	Log         LogConfig      `toml:"log"`
}

type ClientConfig struct {
	Name string `toml:"name"`
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

type LogConfig struct {
	Level string `toml:"level"`
}

// SendConfig is the oscsend defaults file.
type SendConfig struct {
	Host   string `toml:"host"`
	Port   int    `toml:"port"`
	Listen string `toml:"listen"`
}

func LoadDaemonConfig(path string) (DaemonConfig, error) {
	var cfg DaemonConfig
	if err := loadToml(path, &cfg); err != nil {
		return DaemonConfig{}, err
	}
	if err := ValidateDaemonConfig(cfg); err != nil {
		return DaemonConfig{}, err
	}
	return cfg, nil
}

func LoadSendConfig(path string) (SendConfig, error) {
	var cfg SendConfig
	if err := loadToml(path, &cfg); err != nil {
		return SendConfig{}, err
	}
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Port == 0 {
		cfg.Port = 9999
	}
	if err := ValidateSendConfig(cfg); err != nil {
		return SendConfig{}, err
	}
	return cfg, nil
}

func loadToml(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if err := toml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return nil
}

func ValidateDaemonConfig(cfg DaemonConfig) error {
	if err := validatePort(cfg.Port, true); err != nil {
		return fmt.Errorf("daemon config %w", err)
	}
	if cfg.Workers < 0 {
		return fmt.Errorf("daemon config workers must not be negative")
	}
	if addr := strings.TrimSpace(cfg.AdminListen); addr != "" {
		if _, _, err := net.SplitHostPort(addr); err != nil {
			return fmt.Errorf("daemon config admin_listen invalid: %w", err)
		}
	}
	names := map[string]bool{}
	for i, c := range cfg.Clients {
		if err := ValidateClientEntry(c); err != nil {
			return fmt.Errorf("clients[%d] invalid: %w", i, err)
		}
		if names[c.Name] {
			return fmt.Errorf("clients[%d] invalid: duplicate name %q", i, c.Name)
		}
		names[c.Name] = true
	}
	return nil
}

func ValidateClientEntry(cfg ClientConfig) error {
	if strings.TrimSpace(cfg.Name) == "" {
		return fmt.Errorf("name is required")
	}
	return validatePort(cfg.Port, true)
}

func ValidateSendConfig(cfg SendConfig) error {
	if strings.TrimSpace(cfg.Host) == "" {
		return fmt.Errorf("send config missing host")
	}
	return validatePort(cfg.Port, false)
}

func validatePort(port int, zeroOK bool) error {
	if port == 0 && zeroOK {
		return nil
	}
	if port <= 0 || port > 65535 {
		return fmt.Errorf("port %d out of range", port)
	}
	return nil
}
