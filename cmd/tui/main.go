package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"signalbot-go/internal/config"
)

const defaultConfigPath = "internal/config/config.yaml"

func main() {
	reader := bufio.NewReader(os.Stdin)

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	for {
		fmt.Println("\n=== SignalBot Control ===")
		fmt.Println("1) Show configuration summary")
		fmt.Println("2) Edit bankroll and loop cadence")
		fmt.Println("3) Edit price source")
		fmt.Println("4) Edit classifier")
		fmt.Println("5) Save config")
		fmt.Println("6) Launch bot")
		fmt.Println("7) Reload config from disk")
		fmt.Println("0) Exit")
		fmt.Print("Select option: ")

		input, _ := reader.ReadString('\n')
		choice := strings.TrimSpace(input)

		switch choice {
		case "1":
			printSummary(cfg)
		case "2":
			editEngine(reader, cfg)
		case "3":
			editSource(reader, cfg)
		case "4":
			editClassifier(reader, cfg)
		case "5":
			if err := cfg.Validate(); err != nil {
				fmt.Fprintf(os.Stderr, "not saved: %v\n", err)
			} else if err := saveConfig(cfg); err != nil {
				fmt.Fprintf(os.Stderr, "save failed: %v\n", err)
			} else {
				fmt.Println("config saved")
			}
		case "6":
			launchBot(reader)
		case "7":
			reloaded, err := loadConfig()
			if err != nil {
				fmt.Fprintf(os.Stderr, "reload failed: %v\n", err)
			} else {
				cfg = reloaded
				fmt.Println("config reloaded")
			}
		case "0":
			return
		default:
			fmt.Println("unknown option")
		}
	}
}

func printSummary(cfg *config.Config) {
	fmt.Println("\n--- Configuration Summary ---")
	fmt.Printf("Starting cash: $%.2f\n", cfg.Paper.StartingCash)
	fmt.Printf("Loop interval: %s\n", cfg.Interval())
	fmt.Printf("Price source: %s (%s/%s)\n", cfg.Source.Provider, cfg.Source.Asset, cfg.Source.Quote)
	fmt.Printf("Classifier: %s", cfg.Classifier.Mode)
	if cfg.Classifier.Mode == "momentum" {
		fmt.Printf(" threshold %.4f\n", cfg.Classifier.MomentumThreshold)
	} else {
		fmt.Printf(" model %s\n", cfg.Classifier.ModelPath)
	}
	fmt.Printf("API address: %s\n", cfg.API.Addr)
	if cfg.Paper.JournalPath != "" {
		fmt.Println("Trade journal:", cfg.Paper.JournalPath)
	}
}

func editEngine(reader *bufio.Reader, cfg *config.Config) {
	fmt.Println("\n--- Edit Bankroll / Cadence ---")
	cfg.Paper.StartingCash = promptFloat(reader, "Starting cash", cfg.Paper.StartingCash)
	seconds := promptFloat(reader, "Loop interval (seconds)", cfg.Interval().Seconds())
	cfg.Engine.IntervalMs = int(seconds * 1000)
}

func editSource(reader *bufio.Reader, cfg *config.Config) {
	fmt.Println("\n--- Edit Price Source ---")
	cfg.Source.Provider = promptString(reader, "Provider (coingecko|binance|stub)", cfg.Source.Provider)
	cfg.Source.Asset = promptString(reader, "Asset", cfg.Source.Asset)
	cfg.Source.Quote = promptString(reader, "Quote currency", cfg.Source.Quote)
}

func editClassifier(reader *bufio.Reader, cfg *config.Config) {
	fmt.Println("\n--- Edit Classifier ---")
	cfg.Classifier.Mode = promptString(reader, "Mode (forest|momentum)", cfg.Classifier.Mode)
	cfg.Classifier.ModelPath = promptString(reader, "Model artifact path", cfg.Classifier.ModelPath)
	cfg.Classifier.MomentumThreshold = promptPercent(reader, "Momentum threshold (%)", cfg.Classifier.MomentumThreshold)
}

func launchBot(reader *bufio.Reader) {
	fmt.Println("Launching bot (Ctrl+C to stop)...")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cmd := exec.CommandContext(ctx, "go", "run", "./cmd/signalbot", "-config", locateConfig())
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Stdin = os.Stdin

	if err := cmd.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to start bot: %v\n", err)
		return
	}

	go func() {
		_ = cmd.Wait()
		cancel()
	}()

	fmt.Print("\nPress ENTER to stop the bot and return to menu...")
	_, _ = reader.ReadString('\n')
	cancel()
	time.Sleep(500 * time.Millisecond)
}

func promptString(reader *bufio.Reader, label, current string) string {
	fmt.Printf("%s [%s]: ", label, current)
	line, _ := reader.ReadString('\n')
	if line = strings.TrimSpace(line); line != "" {
		return line
	}
	return current
}

func promptFloat(reader *bufio.Reader, label string, current float64) float64 {
	fmt.Printf("%s [%.2f]: ", label, current)
	line, _ := reader.ReadString('\n')
	line = strings.TrimSpace(line)
	if line == "" {
		return current
	}
	val, err := strconv.ParseFloat(line, 64)
	if err != nil {
		fmt.Printf("invalid number, keeping %.2f\n", current)
		return current
	}
	return val
}

func promptPercent(reader *bufio.Reader, label string, current float64) float64 {
	pct := promptFloat(reader, label, current*100)
	return pct / 100
}

func loadConfig() (*config.Config, error) {
	return config.Load(locateConfig())
}

func saveConfig(cfg *config.Config) error {
	return config.Save(locateConfig(), cfg)
}

func locateConfig() string {
	if path := os.Getenv("SIGNALBOT_CONFIG"); path != "" {
		return filepath.Clean(path)
	}
	return filepath.Clean(defaultConfigPath)
}
