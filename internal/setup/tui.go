// Package setup provides the terminal configuration wizard.
package setup

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"

	"github.com/dexterlabs/dexter/config"
)

var (
	subtle    = lipgloss.AdaptiveColor{Light: "#D9DCCF", Dark: "#383838"}
	highlight = lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#7D56F4"}
	special   = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Background(highlight).
			Padding(1, 2).
			Bold(true).
			MarginBottom(1)

	stepStyle = lipgloss.NewStyle().
			Foreground(special).
			Bold(true).
			MarginTop(1).
			MarginBottom(0)
)

// RunTUI launches the terminal configuration wizard and writes the
// resulting YAML config.
func RunTUI() error {
	var (
		platform    string
		pair        string
		listenAddr  string
		walletKey   string
		intervalStr string
		slippageStr string
		confirm     bool
	)

	// defaults
	pair = "ETH_USDC"
	listenAddr = ":8080"
	intervalStr = "5m"
	slippageStr = "50"

	fmt.Print("\033[H\033[2J") // Clear screen
	fmt.Println(headerStyle.Render("DEXTER CONFIG WIZARD"))
	fmt.Println(lipgloss.NewStyle().Foreground(subtle).Render("Confidential trading, configured in style.\n"))

	// oracle platform
	fmt.Println(stepStyle.Render("STEP 1: PRICE ORACLE"))
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Select Price Oracle").
				Options(
					huh.NewOption("Binance", "binance"),
					huh.NewOption("Bybit", "bybit"),
					huh.NewOption("Hyperliquid", "hyperliquid"),
					huh.NewOption("Static rates (offline)", "static"),
				).
				Value(&platform),
		),
	).Run()
	if err != nil {
		return err
	}

	// chart pair
	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("DEXTER CONFIG WIZARD"))
	fmt.Println(stepStyle.Render("STEP 2: CHART PAIR"))
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Analytics Pair").
				Description("Must contain underscore (e.g. ETH_USDC)").
				Value(&pair).
				Validate(func(s string) error {
					if s == "" {
						return fmt.Errorf("pair cannot be empty")
					}
					if !strings.Contains(s, "_") {
						return fmt.Errorf("invalid format: must be BASE_QUOTE (e.g. ETH_USDC)")
					}
					return nil
				}),
			huh.NewInput().
				Title("Price Sample Interval").
				Description("Duration string (e.g. 30s, 1m, 5m)").
				Value(&intervalStr).
				Validate(func(s string) error {
					_, err := time.ParseDuration(s)
					return err
				}),
		),
	).Run()
	if err != nil {
		return err
	}

	// wallet
	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("DEXTER CONFIG WIZARD"))
	fmt.Println(stepStyle.Render("STEP 3: WALLET"))
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Wallet Private Key (hex)").
				Description("Leave empty for the simulated wallet").
				EchoMode(huh.EchoModePassword).
				Value(&walletKey),
		),
	).Run()
	if err != nil {
		return err
	}

	// server
	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("DEXTER CONFIG WIZARD"))
	fmt.Println(stepStyle.Render("STEP 4: SERVER"))
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Listen Address").
				Description("host:port for the web interface").
				Value(&listenAddr),
			huh.NewInput().
				Title("Slippage Tolerance (bps)").
				Description("Basis points, e.g. 50 for 0.5%").
				Value(&slippageStr).
				Validate(func(s string) error {
					v, err := strconv.Atoi(s)
					if err != nil {
						return fmt.Errorf("must be an integer")
					}
					if v <= 0 || v > 5000 {
						return fmt.Errorf("must be between 1 and 5000")
					}
					return nil
				}),
		),
	).Run()
	if err != nil {
		return err
	}

	// confirmation
	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("DEXTER CONFIG WIZARD"))
	fmt.Println(stepStyle.Render("FINAL CONFIRMATION"))

	wallet := "simulated"
	if walletKey != "" {
		wallet = "local key"
	}
	summary := fmt.Sprintf(
		"Oracle: %s\nPair: %s\nWallet: %s\nListen: %s\nInterval: %s\nSlippage: %s bps\n",
		platform, pair, wallet, listenAddr, intervalStr, slippageStr,
	)
	fmt.Println(lipgloss.NewStyle().Border(lipgloss.NormalBorder()).Padding(1).Render(summary))

	err = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Save Configuration?").
				Affirmative("Yes, save and start").
				Negative("No, exit").
				Value(&confirm),
		),
	).Run()
	if err != nil {
		return err
	}

	if !confirm {
		return fmt.Errorf("setup cancelled by user")
	}

	interval, _ := time.ParseDuration(intervalStr)
	slippage, _ := strconv.Atoi(slippageStr)

	cfgTmp := config.ConfigTmp{
		Platform:       platform,
		Pair:           pair,
		ListenAddr:     listenAddr,
		WalletKey:      walletKey,
		SampleInterval: interval,
		SlippageBps:    slippage,
	}

	data, err := yaml.Marshal(cfgTmp)
	if err != nil {
		return fmt.Errorf("failed to generate yaml: %w", err)
	}

	filename := "config.gen.yaml"
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to save config file: %w", err)
	}

	fmt.Println(lipgloss.NewStyle().Foreground(special).Render("\nSaved " + filename))
	return nil
}
