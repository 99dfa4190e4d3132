package config

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dexterlabs/dexter/internal/domain"
)

const (
	// DefaultSlippageBps default slippage tolerance (0.5%).
	DefaultSlippageBps = 50
	// DefaultDeadlineMinutes default transaction deadline.
	DefaultDeadlineMinutes = 20
)

// Config runtime configuration.
type Config struct {
	// Platform price oracle backend: binance, bybit, hyperliquid or static.
	Platform string
	// Pair chart pair for the analytics panel.
	Pair domain.Pair
	// Assets supported asset symbols.
	Assets []string
	// ListenAddr web server address.
	ListenAddr string
	// WalDir transaction log WAL directory.
	WalDir string
	// Contract exchange contract address payloads are bound to.
	Contract string
	// WalletKey hex private key for the eth wallet; empty selects the
	// simulated wallet.
	WalletKey string
	// ProviderTimeout per provider call.
	ProviderTimeout time.Duration
	// SampleInterval analytics price sampling interval.
	SampleInterval time.Duration
	// SlippageBps default slippage tolerance in basis points.
	SlippageBps int
	// DeadlineMinutes default transaction deadline in minutes.
	DeadlineMinutes int
}

type ConfigTmp struct {
	Platform        string        `yaml:"platform"`
	Pair            string        `yaml:"pair"`
	Assets          []string      `yaml:"assets,omitempty"`
	ListenAddr      string        `yaml:"listen_addr,omitempty"`
	WalDir          string        `yaml:"wal_dir,omitempty"`
	Contract        string        `yaml:"contract,omitempty"`
	WalletKey       string        `yaml:"wallet_key,omitempty"`
	ProviderTimeout time.Duration `yaml:"provider_timeout,omitempty"`
	SampleInterval  time.Duration `yaml:"sample_interval,omitempty"`
	SlippageBps     int           `yaml:"slippage_bps,omitempty"`
	DeadlineMinutes int           `yaml:"deadline_minutes,omitempty"`
}

// Get reads configuration from --config yaml or from flags.
func Get() (Config, error) {
	configPath := flag.String("config", "", "path to yaml config")
	platform := flag.String("platform", "static", "price oracle platform: binance, bybit, hyperliquid or static")
	pairFlag := flag.String("pair", "ETH_USDC", "chart pair, example: ETH_USDC")
	listen := flag.String("listen", ":8080", "web server listen address")
	walDir := flag.String("waldir", "", "transaction WAL directory")
	flag.Parse()

	if *configPath != "" {
		return getYaml(*configPath)
	}

	pair, err := getPairFromString(*pairFlag)
	if err != nil {
		return Config{}, fmt.Errorf("invalid --pair provided, --pair=%s", *pairFlag)
	}

	cfg := Config{
		Platform:   *platform,
		Pair:       pair,
		ListenAddr: *listen,
		WalDir:     *walDir,
	}
	fillDefaults(&cfg)
	return cfg, validate(cfg)
}

func getYaml(path string) (Config, error) {
	var tmp ConfigTmp

	f, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	if err := yaml.Unmarshal(f, &tmp); err != nil {
		return Config{}, err
	}

	pair, err := getPairFromString(tmp.Pair)
	if err != nil {
		return Config{}, fmt.Errorf("incorrect 'pair' param in yaml config: %s, error: %w", tmp.Pair, err)
	}

	cfg := Config{
		Platform:        tmp.Platform,
		Pair:            pair,
		Assets:          tmp.Assets,
		ListenAddr:      tmp.ListenAddr,
		WalDir:          tmp.WalDir,
		Contract:        tmp.Contract,
		WalletKey:       tmp.WalletKey,
		ProviderTimeout: tmp.ProviderTimeout,
		SampleInterval:  tmp.SampleInterval,
		SlippageBps:     tmp.SlippageBps,
		DeadlineMinutes: tmp.DeadlineMinutes,
	}
	fillDefaults(&cfg)
	return cfg, validate(cfg)
}

func fillDefaults(cfg *Config) {
	if cfg.Platform == "" {
		cfg.Platform = "static"
	}
	if len(cfg.Assets) == 0 {
		cfg.Assets = append([]string(nil), domain.DefaultAssets...)
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}
	if cfg.Contract == "" {
		cfg.Contract = "0x0000000000000000000000000000000000d3f7e8"
	}
	if cfg.ProviderTimeout <= 0 {
		cfg.ProviderTimeout = 30 * time.Second
	}
	if cfg.SampleInterval <= 0 {
		cfg.SampleInterval = 5 * time.Minute
	}
	if cfg.SlippageBps <= 0 {
		cfg.SlippageBps = DefaultSlippageBps
	}
	if cfg.DeadlineMinutes <= 0 {
		cfg.DeadlineMinutes = DefaultDeadlineMinutes
	}
}

func validate(cfg Config) error {
	switch cfg.Platform {
	case "binance", "bybit", "hyperliquid", "static":
	default:
		return fmt.Errorf("unsupported platform: %s", cfg.Platform)
	}
	for _, asset := range []string{cfg.Pair.From, cfg.Pair.To} {
		found := false
		for _, supported := range cfg.Assets {
			if supported == asset {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("chart pair asset %s is not in the supported asset set", asset)
		}
	}
	return nil
}

func getPairFromString(pairStr string) (domain.Pair, error) {
	pairElements := strings.Split(pairStr, "_")
	if len(pairElements) != 2 {
		return domain.Pair{}, fmt.Errorf("invalid pair param")
	}
	return domain.Pair{From: pairElements[0], To: pairElements[1]}, nil
}
