package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config carries the gringottsd runtime settings. Interest defaults are only
// applied on first boot; after that the settings registry is authoritative and
// changes go through the administrative RPC surface.
type Config struct {
	RPCAddress        string `toml:"RPCAddress"`
	DataDir           string `toml:"DataDir"`
	IndexDB           string `toml:"IndexDB"`
	NetworkName       string `toml:"NetworkName"`
	AdminAddress      string `toml:"AdminAddress"`
	PrincipalToken    string `toml:"PrincipalToken"`
	RewardToken       string `toml:"RewardToken"`
	UnitInterest      uint64 `toml:"UnitInterest"`
	PenaltyMultiplier uint64 `toml:"PenaltyMultiplier"`
}

// Load loads the configuration from the given path, creating a default file
// when none exists.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	if strings.TrimSpace(cfg.AdminAddress) == "" {
		return nil, fmt.Errorf("config file %s must set AdminAddress", path)
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.RPCAddress) == "" {
		cfg.RPCAddress = "127.0.0.1:8645"
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = "./gringotts-data"
	}
	if strings.TrimSpace(cfg.NetworkName) == "" {
		cfg.NetworkName = "gringotts-local"
	}
	if cfg.UnitInterest == 0 {
		cfg.UnitInterest = 1000
	}
	if cfg.PenaltyMultiplier == 0 {
		cfg.PenaltyMultiplier = 3
	}
}

func createDefault(path string) (*Config, error) {
	cfg := &Config{}
	applyDefaults(cfg)
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("wrote default config to %s; set AdminAddress and restart", path)
}
