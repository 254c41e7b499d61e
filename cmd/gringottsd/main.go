package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"log/slog"
	"math/big"
	"os"
	"path/filepath"
	"strings"

	"gringotts/config"
	"gringotts/core"
	"gringotts/core/state"
	"gringotts/native/registry"
	"gringotts/observability/logging"
	"gringotts/rpc"
	bankindexer "gringotts/services/bank-indexer"
	"gringotts/storage"
)

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv("GRINGOTTS_ENV"))
	logger := logging.Setup("gringottsd", env)

	cfg, err := config.Load(*configFile)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	admin, err := parseAddr(cfg.AdminAddress)
	if err != nil {
		logger.Error("Invalid AdminAddress in config", slog.Any("error", err))
		os.Exit(1)
	}

	db, err := storage.NewLevelDB(filepath.Join(cfg.DataDir, "ledger"))
	if err != nil {
		panic(fmt.Sprintf("Failed to open database: %v", err))
	}
	defer db.Close()

	manager := state.NewManager(db)
	node := core.NewNode(manager, admin)

	if err := bootstrapRegistry(node, cfg, admin); err != nil {
		logger.Error("Failed to bootstrap settings registry", slog.Any("error", err))
		os.Exit(1)
	}

	if strings.TrimSpace(cfg.IndexDB) != "" {
		indexer, err := bankindexer.New(cfg.IndexDB)
		if err != nil {
			logger.Error("Failed to open index database", slog.Any("error", err))
			os.Exit(1)
		}
		defer indexer.Close()
		node.SetEmitter(indexer)
		logger.Info("Event index enabled", slog.String("path", cfg.IndexDB))
	}

	logger.Info("Starting gringottsd",
		slog.String("network", cfg.NetworkName),
		slog.String("rpc", cfg.RPCAddress),
		slog.String("data", cfg.DataDir))

	server := rpc.NewServer(node)
	if err := server.Start(cfg.RPCAddress); err != nil {
		logger.Error("RPC server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

// bootstrapRegistry seeds registry properties from the config file on first
// boot. Properties already present in state win over config values, so an
// admin change made over RPC survives restarts.
func bootstrapRegistry(node *core.Node, cfg *config.Config, admin [20]byte) error {
	unit, err := node.RegistryUintOf(registry.PropUnitInterest)
	if err != nil {
		return err
	}
	if unit.Sign() == 0 && cfg.UnitInterest > 0 {
		if err := node.RegistrySetUint(admin, registry.PropUnitInterest, new(big.Int).SetUint64(cfg.UnitInterest)); err != nil {
			return err
		}
	}

	multiplier, err := node.RegistryUintOf(registry.PropPenaltyMultiplier)
	if err != nil {
		return err
	}
	if multiplier.Sign() == 0 && cfg.PenaltyMultiplier > 0 {
		if err := node.RegistrySetUint(admin, registry.PropPenaltyMultiplier, new(big.Int).SetUint64(cfg.PenaltyMultiplier)); err != nil {
			return err
		}
	}

	stored, err := node.RegistryAddressOf(registry.PropBankAdmin)
	if err != nil {
		return err
	}
	if stored == ([20]byte{}) {
		if err := node.RegistrySetAddress(admin, registry.PropBankAdmin, admin); err != nil {
			return err
		}
	}

	addressProps := []struct {
		id    registry.PropertyID
		value string
	}{
		{registry.PropPrincipalToken, cfg.PrincipalToken},
		{registry.PropRewardToken, cfg.RewardToken},
	}
	for _, prop := range addressProps {
		if strings.TrimSpace(prop.value) == "" {
			continue
		}
		current, err := node.RegistryAddressOf(prop.id)
		if err != nil {
			return err
		}
		if current != ([20]byte{}) {
			continue
		}
		addr, err := parseAddr(prop.value)
		if err != nil {
			return fmt.Errorf("registry property %d: %w", prop.id, err)
		}
		if err := node.RegistrySetAddress(admin, prop.id, addr); err != nil {
			return err
		}
	}
	return nil
}

func parseAddr(value string) ([20]byte, error) {
	var addr [20]byte
	trimmed := strings.TrimSpace(value)
	trimmed = strings.TrimPrefix(strings.TrimPrefix(trimmed, "0x"), "0X")
	decoded, err := hex.DecodeString(trimmed)
	if err != nil {
		return addr, fmt.Errorf("decode address %q: %w", value, err)
	}
	if len(decoded) != len(addr) {
		return addr, fmt.Errorf("address %q must be 20 bytes", value)
	}
	copy(addr[:], decoded)
	return addr, nil
}
